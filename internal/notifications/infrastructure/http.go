package infrastructure

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"digimarket/internal/httpapi"
	"digimarket/internal/notifications/application"
	"digimarket/internal/notifications/domain"
	"digimarket/pkg/middleware"
)

// HTTPHandler handles HTTP requests for notifications
type HTTPHandler struct {
	useCase *application.NotificationUseCase
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(useCase *application.NotificationUseCase) *HTTPHandler {
	return &HTTPHandler{useCase: useCase}
}

// RegisterRoutes registers the notification routes
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	n := r.Group("/notifications")
	{
		n.GET("", h.ListNotifications)
		n.POST("/:id/read", h.MarkRead)
	}
}

// NotificationResponse is the response body for a notification
type NotificationResponse struct {
	ID        uint   `json:"id" example:"1"`
	Type      string `json:"type" example:"ORDER"`
	Title     string `json:"title" example:"Order Created"`
	Message   string `json:"message" example:"Your order ORD-20240115-1A2B3C4D was placed"`
	Read      bool   `json:"read" example:"false"`
	CreatedAt string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

func toResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.Format(httpapi.TimeFormat),
	}
}

// ListNotifications lists the caller's notifications
// @Summary List my notifications
// @Tags notifications
// @Produce json
// @Param X-User-ID header int true "Caller user ID"
// @Param unread query bool false "Only unread"
// @Success 200 {object} httpapi.SuccessResponse{data=[]NotificationResponse}
// @Failure 401 {object} httpapi.ErrorResponse "Authentication required"
// @Router /api/v1/notifications [get]
func (h *HTTPHandler) ListNotifications(c *gin.Context) {
	list, err := h.useCase.ListNotifications(c.Request.Context(), application.ListNotificationsInput{
		Actor:      middleware.GetActor(c),
		UnreadOnly: c.Query("unread") == "true",
	})
	if err != nil {
		c.Error(err)
		return
	}

	resp := make([]NotificationResponse, len(list))
	for i, n := range list {
		resp[i] = toResponse(n)
	}
	httpapi.Respond(c, http.StatusOK, resp)
}

// MarkRead marks a notification read
// @Summary Mark a notification read
// @Tags notifications
// @Produce json
// @Param X-User-ID header int true "Caller user ID"
// @Param id path int true "Notification ID"
// @Success 200 {object} httpapi.SuccessResponse{data=NotificationResponse}
// @Failure 403 {object} httpapi.ErrorResponse "Not the recipient"
// @Failure 404 {object} httpapi.ErrorResponse "Notification not found"
// @Router /api/v1/notifications/{id}/read [post]
func (h *HTTPHandler) MarkRead(c *gin.Context) {
	id, err := httpapi.ParseID(c, "id", "notification")
	if err != nil {
		c.Error(err)
		return
	}

	n, err := h.useCase.MarkRead(c.Request.Context(), application.MarkReadInput{
		Actor:          middleware.GetActor(c),
		NotificationID: id,
	})
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusOK, toResponse(n))
}
