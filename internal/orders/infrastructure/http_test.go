package infrastructure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digimarket/pkg/auth"
	"digimarket/pkg/errors"
	"digimarket/pkg/logger"
	"digimarket/pkg/middleware"
)

func newRouter(env *testEnv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.New("test", "error")

	r := gin.New()
	r.Use(middleware.TraceID())
	r.Use(middleware.ErrorHandler(log))
	r.Use(middleware.Actor())
	NewHTTPHandler(env.useCase).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(r *gin.Engine, method, path string, actor auth.Actor, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor.IsAuthenticated() {
		req.Header.Set(middleware.UserIDHeader, fmt.Sprint(actor.UserID))
		req.Header.Set(middleware.UserRoleHeader, string(actor.Role))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type orderEnvelope struct {
	Data    OrderResponse `json:"data"`
	TraceID string        `json:"trace_id"`
}

func TestHTTP_CreateOrder(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env)

	w := do(r, http.MethodPost, "/api/v1/orders", env.buyer,
		CreateOrderRequest{ListingID: env.listing.ID, PaymentMethod: "card"}, nil)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp orderEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PENDING", resp.Data.Status)
	assert.Equal(t, 107.0, resp.Data.TotalAmount)
	assert.Equal(t, 5.0, resp.Data.PlatformFee)
	assert.Equal(t, 2.0, resp.Data.TransactionFee)
	assert.Nil(t, resp.Data.CompletedAt)
	assert.NotEmpty(t, resp.TraceID)
}

func TestHTTP_CreateOrder_Errors(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env)

	tests := []struct {
		name   string
		actor  auth.Actor
		body   interface{}
		status int
		code   string
	}{
		{name: "anonymous", body: CreateOrderRequest{ListingID: env.listing.ID, PaymentMethod: "card"}, status: http.StatusUnauthorized, code: errors.CodeUnauthorized},
		{name: "missing fields", actor: env.buyer, body: map[string]interface{}{}, status: http.StatusBadRequest, code: errors.CodeValidation},
		{name: "own listing", actor: env.seller, body: CreateOrderRequest{ListingID: env.listing.ID, PaymentMethod: "card"}, status: http.StatusForbidden, code: errors.CodeForbidden},
		{name: "unknown listing", actor: env.buyer, body: CreateOrderRequest{ListingID: 404, PaymentMethod: "card"}, status: http.StatusNotFound, code: errors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/v1/orders", tt.actor, tt.body, nil)

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.code)
		})
	}
}

func TestHTTP_CompleteOrder_RequiresProcessing(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env)
	order := env.placeOrder(t)

	w := do(r, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/complete", order.ID), env.buyer, nil, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), errors.CodeInvalidState)
}

func TestHTTP_UpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env)
	order := env.placeOrder(t)
	path := fmt.Sprintf("/api/v1/orders/%d/status", order.ID)
	processing := "PROCESSING"
	delivered := "DELIVERED"

	w := do(r, http.MethodPatch, path, env.seller, UpdateOrderStatusRequest{Status: &processing}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	w = do(r, http.MethodPatch, path, auth.Actor{UserID: 900, Role: auth.RoleAdmin}, UpdateOrderStatusRequest{Status: &processing}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodPatch, path, env.seller, UpdateOrderStatusRequest{DeliveryStatus: &delivered}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp orderEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PROCESSING", resp.Data.Status)
	assert.Equal(t, "DELIVERED", resp.Data.DeliveryStatus)
}

func TestHTTP_GetOrder_InvalidID(t *testing.T) {
	env := newTestEnv(t)
	r := newRouter(env)

	w := do(r, http.MethodGet, "/api/v1/orders/abc", env.buyer, nil, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
