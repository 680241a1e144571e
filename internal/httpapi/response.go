// Package httpapi holds the response envelope and request helpers shared by
// the HTTP handlers of every bounded context.
package httpapi

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"digimarket/pkg/errors"
	"digimarket/pkg/middleware"
)

// TimeFormat is the timestamp layout used in responses
const TimeFormat = "2006-01-02T15:04:05Z07:00"

// SuccessResponse is the standard success response
type SuccessResponse struct {
	Data    interface{} `json:"data"`
	TraceID string      `json:"trace_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   ErrorBody `json:"error"`
	TraceID string    `json:"trace_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// ErrorBody contains error details
type ErrorBody struct {
	Code    string      `json:"code" example:"VALIDATION_ERROR"`
	Message string      `json:"message" example:"Invalid request body"`
	Details interface{} `json:"details,omitempty"`
}

// Respond writes data in the success envelope
func Respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:    data,
		TraceID: c.GetString(middleware.TraceIDKey),
	})
}

// ParseID reads a positive numeric path parameter
func ParseID(c *gin.Context, param, resource string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.NewValidation("invalid "+resource+" id", nil)
	}
	return uint(id), nil
}

// QueryUint reads an optional numeric query parameter, 0 when absent
func QueryUint(c *gin.Context, key string) (uint, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.NewValidation("invalid "+key, nil)
	}
	return uint(v), nil
}

// QueryInt reads an optional integer query parameter
func QueryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewValidation("invalid "+key, nil)
	}
	return v, nil
}

// BindError converts a gin binding failure into a validation error
func BindError(err error) error {
	return errors.NewValidation("invalid request body", err.Error())
}
