package infrastructure

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"digimarket/internal/httpapi"
	"digimarket/internal/reviews/application"
	"digimarket/internal/reviews/domain"
	"digimarket/pkg/middleware"
)

// HTTPHandler handles HTTP requests for reviews
type HTTPHandler struct {
	useCase *application.ReviewUseCase
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(useCase *application.ReviewUseCase) *HTTPHandler {
	return &HTTPHandler{useCase: useCase}
}

// RegisterRoutes registers the review routes
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	reviews := r.Group("/reviews")
	{
		reviews.GET("", h.ListReviews)
		reviews.GET("/eligibility", h.CanReview)
		reviews.POST("", h.CreateReview)
		reviews.PATCH("/:id", h.UpdateReview)
		reviews.DELETE("/:id", h.DeleteReview)
	}
}

// CreateReviewRequest is the request body for reviewing an order
type CreateReviewRequest struct {
	OrderID uint   `json:"order_id" binding:"required" example:"1"`
	Rating  int    `json:"rating" binding:"required" example:"5"`
	Comment string `json:"comment" example:"Exactly as described"`
}

// UpdateReviewRequest is a partial update. Omitted fields are unchanged.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating,omitempty" example:"4"`
	Comment *string `json:"comment,omitempty" example:"Updated after a week of use"`
}

// ReviewResponse is the response body for a review
type ReviewResponse struct {
	ID        uint   `json:"id" example:"1"`
	OrderID   uint   `json:"order_id" example:"1"`
	ListingID uint   `json:"listing_id" example:"12"`
	GiverID   uint   `json:"giver_id" example:"2"`
	SellerID  uint   `json:"seller_id" example:"1"`
	Rating    int    `json:"rating" example:"5"`
	Comment   string `json:"comment" example:"Exactly as described"`
	CreatedAt string `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt string `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// ReviewChangeResponse is a review with the seller rating after the change
type ReviewChangeResponse struct {
	Review       ReviewResponse `json:"review"`
	SellerRating *float64       `json:"seller_rating" example:"4.5"`
}

// EligibilityResponse tells the caller whether they may review a listing
type EligibilityResponse struct {
	Status    string `json:"status" example:"eligible"`
	CanReview bool   `json:"can_review" example:"true"`
	OrderID   uint   `json:"order_id,omitempty" example:"1"`
	ReviewID  uint   `json:"review_id,omitempty"`
}

func toResponse(r *domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:        r.ID,
		OrderID:   r.OrderID,
		ListingID: r.ListingID,
		GiverID:   r.GiverID,
		SellerID:  r.SellerID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt.Format(httpapi.TimeFormat),
		UpdatedAt: r.UpdatedAt.Format(httpapi.TimeFormat),
	}
}

func toChangeResponse(out *application.ReviewOutput) ReviewChangeResponse {
	return ReviewChangeResponse{Review: toResponse(out.Review), SellerRating: out.SellerRating}
}

// CanReview checks review eligibility
// @Summary Check whether the caller may review a listing
// @Tags reviews
// @Produce json
// @Param X-User-ID header int false "Caller user ID"
// @Param listing_id query int false "Listing ID"
// @Success 200 {object} httpapi.SuccessResponse{data=EligibilityResponse}
// @Router /api/v1/reviews/eligibility [get]
func (h *HTTPHandler) CanReview(c *gin.Context) {
	listingID, err := httpapi.QueryUint(c, "listing_id")
	if err != nil {
		c.Error(err)
		return
	}

	result, err := h.useCase.CanReview(c.Request.Context(), application.CanReviewInput{
		Actor:     middleware.GetActor(c),
		ListingID: listingID,
	})
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusOK, EligibilityResponse{
		Status:    string(result.Status),
		CanReview: result.CanReview(),
		OrderID:   result.OrderID,
		ReviewID:  result.ReviewID,
	})
}

// CreateReview reviews a completed order
// @Summary Review a completed order
// @Tags reviews
// @Accept json
// @Produce json
// @Param X-User-ID header int true "Buyer user ID"
// @Param request body CreateReviewRequest true "Review"
// @Success 201 {object} httpapi.SuccessResponse{data=ReviewChangeResponse}
// @Failure 400 {object} httpapi.ErrorResponse "Validation error"
// @Failure 403 {object} httpapi.ErrorResponse "Not the buyer"
// @Failure 404 {object} httpapi.ErrorResponse "Order not found"
// @Failure 409 {object} httpapi.ErrorResponse "Order not completed or already reviewed"
// @Router /api/v1/reviews [post]
func (h *HTTPHandler) CreateReview(c *gin.Context) {
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(httpapi.BindError(err))
		return
	}

	out, err := h.useCase.CreateReview(c.Request.Context(), application.CreateReviewInput{
		Actor:   middleware.GetActor(c),
		OrderID: req.OrderID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusCreated, toChangeResponse(out))
}

// UpdateReview edits a review
// @Summary Edit a review
// @Tags reviews
// @Accept json
// @Produce json
// @Param X-User-ID header int true "Author or admin user ID"
// @Param X-User-Role header string false "USER or ADMIN"
// @Param id path int true "Review ID"
// @Param request body UpdateReviewRequest true "Fields to change"
// @Success 200 {object} httpapi.SuccessResponse{data=ReviewChangeResponse}
// @Failure 403 {object} httpapi.ErrorResponse "Not the author"
// @Failure 404 {object} httpapi.ErrorResponse "Review not found"
// @Router /api/v1/reviews/{id} [patch]
func (h *HTTPHandler) UpdateReview(c *gin.Context) {
	id, err := httpapi.ParseID(c, "id", "review")
	if err != nil {
		c.Error(err)
		return
	}

	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(httpapi.BindError(err))
		return
	}

	out, err := h.useCase.UpdateReview(c.Request.Context(), application.UpdateReviewInput{
		Actor:    middleware.GetActor(c),
		ReviewID: id,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusOK, toChangeResponse(out))
}

// DeleteReview removes a review
// @Summary Delete a review
// @Tags reviews
// @Produce json
// @Param X-User-ID header int true "Author or admin user ID"
// @Param X-User-Role header string false "USER or ADMIN"
// @Param id path int true "Review ID"
// @Success 200 {object} httpapi.SuccessResponse{data=ReviewChangeResponse}
// @Failure 403 {object} httpapi.ErrorResponse "Not the author"
// @Failure 404 {object} httpapi.ErrorResponse "Review not found"
// @Router /api/v1/reviews/{id} [delete]
func (h *HTTPHandler) DeleteReview(c *gin.Context) {
	id, err := httpapi.ParseID(c, "id", "review")
	if err != nil {
		c.Error(err)
		return
	}

	out, err := h.useCase.DeleteReview(c.Request.Context(), application.DeleteReviewInput{
		Actor:    middleware.GetActor(c),
		ReviewID: id,
	})
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusOK, toChangeResponse(out))
}

// ListReviews lists reviews of a listing or seller
// @Summary List reviews
// @Tags reviews
// @Produce json
// @Param listing_id query int false "Listing ID"
// @Param seller_id query int false "Seller ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} httpapi.SuccessResponse{data=[]ReviewResponse}
// @Failure 400 {object} httpapi.ErrorResponse "listing_id or seller_id required"
// @Router /api/v1/reviews [get]
func (h *HTTPHandler) ListReviews(c *gin.Context) {
	listingID, err := httpapi.QueryUint(c, "listing_id")
	if err != nil {
		c.Error(err)
		return
	}
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

	list, err := h.useCase.ListReviews(c.Request.Context(), application.ListReviewsInput{
		ListingID: listingID,
		SellerID:  sellerID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		c.Error(err)
		return
	}

	resp := make([]ReviewResponse, len(list))
	for i, r := range list {
		resp[i] = toResponse(r)
	}
	httpapi.Respond(c, http.StatusOK, resp)
}
