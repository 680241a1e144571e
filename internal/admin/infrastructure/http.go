package infrastructure

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"digimarket/internal/admin/application"
	cataloghttp "digimarket/internal/catalog/infrastructure"
	"digimarket/internal/httpapi"
	"digimarket/pkg/auth"
	"digimarket/pkg/middleware"
)

// HTTPHandler handles HTTP requests for the admin surface
type HTTPHandler struct {
	useCase *application.AdminUseCase
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(useCase *application.AdminUseCase) *HTTPHandler {
	return &HTTPHandler{useCase: useCase}
}

// RegisterRoutes registers the admin routes
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin")
	{
		admin.GET("/stats", h.GetPlatformStats)
		admin.PATCH("/users/:id/role", h.SetUserRole)
	}
}

// PlatformStatsResponse is the response body for platform statistics
type PlatformStatsResponse struct {
	Users            int64            `json:"users" example:"120"`
	Listings         int64            `json:"listings" example:"340"`
	ListingsByStatus map[string]int64 `json:"listings_by_status"`
	Orders           int64            `json:"orders" example:"512"`
	OrdersByStatus   map[string]int64 `json:"orders_by_status"`
	CompletedVolume  float64          `json:"completed_volume" example:"10486.5"`
	PlatformFees     float64          `json:"platform_fees" example:"490.03"`
	TransactionFees  float64          `json:"transaction_fees" example:"196.01"`
	Reviews          int64            `json:"reviews" example:"87"`
}

// SetUserRoleRequest is the request body for changing a role
type SetUserRoleRequest struct {
	Role string `json:"role" binding:"required" example:"ADMIN"`
}

// GetPlatformStats returns platform statistics
// @Summary Platform statistics
// @Tags admin
// @Produce json
// @Param X-User-ID header int true "Admin user ID"
// @Param X-User-Role header string true "ADMIN"
// @Success 200 {object} httpapi.SuccessResponse{data=PlatformStatsResponse}
// @Failure 403 {object} httpapi.ErrorResponse "Admin role required"
// @Router /api/v1/admin/stats [get]
func (h *HTTPHandler) GetPlatformStats(c *gin.Context) {
	stats, err := h.useCase.GetPlatformStats(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusOK, PlatformStatsResponse{
		Users:            stats.Users,
		Listings:         stats.Listings,
		ListingsByStatus: stats.ListingsByStatus,
		Orders:           stats.Orders,
		OrdersByStatus:   stats.OrdersByStatus,
		CompletedVolume:  stats.CompletedVolume,
		PlatformFees:     stats.PlatformFees,
		TransactionFees:  stats.TransactionFees,
		Reviews:          stats.Reviews,
	})
}

// SetUserRole changes the role of a user
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Param X-User-ID header int true "Admin user ID"
// @Param X-User-Role header string true "ADMIN"
// @Param id path int true "User ID"
// @Param request body SetUserRoleRequest true "New role"
// @Success 200 {object} httpapi.SuccessResponse{data=cataloghttp.UserResponse}
// @Failure 403 {object} httpapi.ErrorResponse "Admin role required"
// @Failure 404 {object} httpapi.ErrorResponse "User not found"
// @Router /api/v1/admin/users/{id}/role [patch]
func (h *HTTPHandler) SetUserRole(c *gin.Context) {
	id, err := httpapi.ParseID(c, "id", "user")
	if err != nil {
		c.Error(err)
		return
	}

	var req SetUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(httpapi.BindError(err))
		return
	}

	user, err := h.useCase.SetUserRole(c.Request.Context(), application.SetUserRoleInput{
		Actor:  middleware.GetActor(c),
		UserID: id,
		Role:   auth.Role(req.Role),
	})
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusOK, cataloghttp.ToUserResponse(user))
}
