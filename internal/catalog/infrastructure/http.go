package infrastructure

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"digimarket/internal/catalog/application"
	"digimarket/internal/catalog/domain"
	"digimarket/internal/httpapi"
	"digimarket/pkg/middleware"
)

// HTTPHandler handles HTTP requests for users and listings
type HTTPHandler struct {
	users    *application.UserUseCase
	listings *application.ListingUseCase
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(users *application.UserUseCase, listings *application.ListingUseCase) *HTTPHandler {
	return &HTTPHandler{users: users, listings: listings}
}

// RegisterRoutes registers the catalog routes
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.POST("", h.RegisterUser)
		users.GET("/:id", h.GetUser)
	}

	listings := r.Group("/listings")
	{
		listings.POST("", h.CreateListing)
		listings.GET("", h.SearchListings)
		listings.GET("/:id", h.GetListing)
		listings.PATCH("/:id/status", h.UpdateListingStatus)
	}
}

// RegisterUserRequest is the request body for registering a user
type RegisterUserRequest struct {
	Name  string `json:"name" binding:"required" example:"Jane Seller"`
	Email string `json:"email" binding:"required,email" example:"jane@example.com"`
}

// UserResponse is the public profile of a user
type UserResponse struct {
	ID              uint     `json:"id" example:"1"`
	Name            string   `json:"name" example:"Jane Seller"`
	Email           string   `json:"email" example:"jane@example.com"`
	Role            string   `json:"role" example:"USER"`
	TotalSales      int      `json:"total_sales" example:"12"`
	CompletedOrders int      `json:"completed_orders" example:"12"`
	SellerRating    *float64 `json:"seller_rating" example:"4.5"`
	CreatedAt       string   `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// CreateListingRequest is the request body for creating a listing
type CreateListingRequest struct {
	Title       string  `json:"title" binding:"required" example:"Lightroom preset pack"`
	Description string  `json:"description" example:"40 film-look presets"`
	Category    string  `json:"category" example:"presets"`
	Price       float64 `json:"price" binding:"required,gt=0" example:"100"`
}

// UpdateListingStatusRequest is the request body for changing availability
type UpdateListingStatusRequest struct {
	Status string `json:"status" binding:"required" example:"INACTIVE"`
}

// ListingResponse is the response body for listing operations
type ListingResponse struct {
	ID          uint    `json:"id" example:"1"`
	SellerID    uint    `json:"seller_id" example:"1"`
	Title       string  `json:"title" example:"Lightroom preset pack"`
	Description string  `json:"description" example:"40 film-look presets"`
	Category    string  `json:"category" example:"presets"`
	Price       float64 `json:"price" example:"100"`
	Status      string  `json:"status" example:"ACTIVE"`
	Sales       int     `json:"sales" example:"3"`
	CreatedAt   string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// ToUserResponse maps a user to its public profile
func ToUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            string(u.Role),
		TotalSales:      u.TotalSales,
		CompletedOrders: u.CompletedOrders,
		SellerRating:    u.SellerRating,
		CreatedAt:       u.CreatedAt.Format(httpapi.TimeFormat),
	}
}

// ToListingResponse maps a listing to its response body
func ToListingResponse(l *domain.Listing) ListingResponse {
	return ListingResponse{
		ID:          l.ID,
		SellerID:    l.SellerID,
		Title:       l.Title,
		Description: l.Description,
		Category:    l.Category,
		Price:       l.Price,
		Status:      string(l.Status),
		Sales:       l.Sales,
		CreatedAt:   l.CreatedAt.Format(httpapi.TimeFormat),
	}
}

// RegisterUser registers a new user
// @Summary Register a user
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterUserRequest true "User registration request"
// @Success 201 {object} httpapi.SuccessResponse{data=UserResponse}
// @Failure 400 {object} httpapi.ErrorResponse "Validation error"
// @Failure 409 {object} httpapi.ErrorResponse "Email already exists"
// @Router /api/v1/users [post]
func (h *HTTPHandler) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(httpapi.BindError(err))
		return
	}

	output, err := h.users.RegisterUser(c.Request.Context(), application.RegisterUserInput{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusCreated, ToUserResponse(output.User))
}

// GetUser retrieves a user profile
// @Summary Get a user profile with seller stats
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} httpapi.SuccessResponse{data=UserResponse}
// @Failure 404 {object} httpapi.ErrorResponse "User not found"
// @Router /api/v1/users/{id} [get]
func (h *HTTPHandler) GetUser(c *gin.Context) {
	id, err := httpapi.ParseID(c, "id", "user")
	if err != nil {
		c.Error(err)
		return
	}

	output, err := h.users.GetUser(c.Request.Context(), application.GetUserInput{ID: id})
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusOK, ToUserResponse(output.User))
}

// CreateListing creates a listing owned by the caller
// @Summary Create a listing
// @Tags listings
// @Accept json
// @Produce json
// @Param X-User-ID header int true "Caller user ID"
// @Param request body CreateListingRequest true "Listing creation request"
// @Success 201 {object} httpapi.SuccessResponse{data=ListingResponse}
// @Failure 400 {object} httpapi.ErrorResponse "Validation error"
// @Failure 401 {object} httpapi.ErrorResponse "Authentication required"
// @Router /api/v1/listings [post]
func (h *HTTPHandler) CreateListing(c *gin.Context) {
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(httpapi.BindError(err))
		return
	}

	output, err := h.listings.CreateListing(c.Request.Context(), application.CreateListingInput{
		Actor:       middleware.GetActor(c),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
	})
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusCreated, ToListingResponse(output.Listing))
}

// GetListing retrieves a listing
// @Summary Get a listing by ID
// @Tags listings
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} httpapi.SuccessResponse{data=ListingResponse}
// @Failure 404 {object} httpapi.ErrorResponse "Listing not found"
// @Router /api/v1/listings/{id} [get]
func (h *HTTPHandler) GetListing(c *gin.Context) {
	id, err := httpapi.ParseID(c, "id", "listing")
	if err != nil {
		c.Error(err)
		return
	}

	listing, err := h.listings.GetListing(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusOK, ToListingResponse(listing))
}

// SearchListings browses listings
// @Summary Search listings by substring
// @Tags listings
// @Produce json
// @Param q query string false "Substring of title or description"
// @Param category query string false "Category"
// @Param seller_id query int false "Seller ID"
// @Param status query string false "ACTIVE (default), INACTIVE or SOLD"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} httpapi.SuccessResponse{data=[]ListingResponse}
// @Router /api/v1/listings [get]
func (h *HTTPHandler) SearchListings(c *gin.Context) {
	sellerID, err := httpapi.QueryUint(c, "seller_id")
	if err != nil {
		c.Error(err)
		return
	}
	limit, err := httpapi.QueryInt(c, "limit", 20)
	if err != nil {
		c.Error(err)
		return
	}
	offset, err := httpapi.QueryInt(c, "offset", 0)
	if err != nil {
		c.Error(err)
		return
	}

	listings, err := h.listings.SearchListings(c.Request.Context(), domain.ListingFilter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		SellerID: sellerID,
		Status:   domain.ListingStatus(c.Query("status")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		c.Error(err)
		return
	}

	resp := make([]ListingResponse, len(listings))
	for i, l := range listings {
		resp[i] = ToListingResponse(l)
	}
	httpapi.Respond(c, http.StatusOK, resp)
}

// UpdateListingStatus activates or deactivates a listing
// @Summary Change listing availability
// @Tags listings
// @Accept json
// @Produce json
// @Param X-User-ID header int true "Caller user ID"
// @Param id path int true "Listing ID"
// @Param request body UpdateListingStatusRequest true "New status"
// @Success 200 {object} httpapi.SuccessResponse{data=ListingResponse}
// @Failure 403 {object} httpapi.ErrorResponse "Not the owner"
// @Failure 409 {object} httpapi.ErrorResponse "Listing already sold"
// @Router /api/v1/listings/{id}/status [patch]
func (h *HTTPHandler) UpdateListingStatus(c *gin.Context) {
	id, err := httpapi.ParseID(c, "id", "listing")
	if err != nil {
		c.Error(err)
		return
	}

	var req UpdateListingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(httpapi.BindError(err))
		return
	}

	listing, err := h.listings.UpdateListingStatus(c.Request.Context(), application.UpdateListingStatusInput{
		Actor:     middleware.GetActor(c),
		ListingID: id,
		Status:    domain.ListingStatus(req.Status),
	})
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusOK, ToListingResponse(listing))
}
