package infrastructure

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"digimarket/internal/httpapi"
	"digimarket/internal/orders/application"
	"digimarket/internal/orders/domain"
	"digimarket/pkg/middleware"
)

// IdempotencyKeyHeader lets clients retry order creation safely
const IdempotencyKeyHeader = "Idempotency-Key"

// HTTPHandler handles HTTP requests for orders
type HTTPHandler struct {
	useCase *application.OrderUseCase
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(useCase *application.OrderUseCase) *HTTPHandler {
	return &HTTPHandler{useCase: useCase}
}

// RegisterRoutes registers the order routes
func (h *HTTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.POST("/:id/cancel", h.CancelOrder)
		orders.POST("/:id/complete", h.CompleteOrder)
		orders.PATCH("/:id/status", h.UpdateOrderStatus)
	}
}

// CreateOrderRequest is the request body for creating an order
type CreateOrderRequest struct {
	ListingID     uint   `json:"listing_id" binding:"required" example:"12"`
	PaymentMethod string `json:"payment_method" binding:"required" example:"card"`
}

// UpdateOrderStatusRequest is a partial update. Omitted fields are unchanged.
type UpdateOrderStatusRequest struct {
	Status         *string `json:"status,omitempty" example:"PROCESSING"`
	PaymentStatus  *string `json:"payment_status,omitempty" example:"PAID"`
	DeliveryStatus *string `json:"delivery_status,omitempty" example:"DELIVERED"`
}

// OrderResponse is the response body for order operations
type OrderResponse struct {
	ID             uint    `json:"id" example:"1"`
	OrderNumber    string  `json:"order_number" example:"ORD-20240115-1A2B3C4D"`
	BuyerID        uint    `json:"buyer_id" example:"2"`
	SellerID       uint    `json:"seller_id" example:"1"`
	ListingID      uint    `json:"listing_id" example:"12"`
	TotalAmount    float64 `json:"total_amount" example:"107"`
	PlatformFee    float64 `json:"platform_fee" example:"5"`
	TransactionFee float64 `json:"transaction_fee" example:"2"`
	PaymentMethod  string  `json:"payment_method" example:"card"`
	Status         string  `json:"status" example:"PENDING"`
	PaymentStatus  string  `json:"payment_status" example:"PENDING"`
	DeliveryStatus string  `json:"delivery_status" example:"PENDING"`
	CreatedAt      string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
	CompletedAt    *string `json:"completed_at" example:"2024-01-16T09:00:00Z"`
}

// ToOrderResponse maps an order to its response body
func ToOrderResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		BuyerID:        o.BuyerID,
		SellerID:       o.SellerID,
		ListingID:      o.ListingID,
		TotalAmount:    o.TotalAmount,
		PlatformFee:    o.PlatformFee,
		TransactionFee: o.TransactionFee,
		PaymentMethod:  o.PaymentMethod,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		DeliveryStatus: string(o.DeliveryStatus),
		CreatedAt:      o.CreatedAt.Format(httpapi.TimeFormat),
	}
	if o.CompletedAt != nil {
		s := o.CompletedAt.Format(httpapi.TimeFormat)
		resp.CompletedAt = &s
	}
	return resp
}

// CreateOrder places an order
// @Summary Buy a listing
// @Description Creates a PENDING order with 5% platform and 2% transaction fees
// @Tags orders
// @Accept json
// @Produce json
// @Param X-User-ID header int true "Buyer user ID"
// @Param Idempotency-Key header string false "Retry key"
// @Param request body CreateOrderRequest true "Order creation request"
// @Success 201 {object} httpapi.SuccessResponse{data=OrderResponse}
// @Failure 400 {object} httpapi.ErrorResponse "Validation error"
// @Failure 403 {object} httpapi.ErrorResponse "Buying own listing"
// @Failure 404 {object} httpapi.ErrorResponse "Listing missing or not active"
// @Failure 409 {object} httpapi.ErrorResponse "Duplicate idempotency key"
// @Router /api/v1/orders [post]
func (h *HTTPHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(httpapi.BindError(err))
		return
	}

	output, err := h.useCase.CreateOrder(c.Request.Context(), application.CreateOrderInput{
		Actor:          middleware.GetActor(c),
		ListingID:      req.ListingID,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	})
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusCreated, ToOrderResponse(output.Order))
}

// ListOrders lists the caller's orders
// @Summary List orders
// @Tags orders
// @Produce json
// @Param X-User-ID header int true "Caller user ID"
// @Param as query string false "buyer, seller or all (admin)"
// @Param status query string false "Order status"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} httpapi.SuccessResponse{data=[]OrderResponse}
// @Failure 403 {object} httpapi.ErrorResponse "Listing all orders needs admin"
// @Router /api/v1/orders [get]
func (h *HTTPHandler) ListOrders(c *gin.Context) {
	limit, err := httpapi.QueryInt(c, "limit", 50)
	if err != nil {
		c.Error(err)
		return
	}
	offset, err := httpapi.QueryInt(c, "offset", 0)
	if err != nil {
		c.Error(err)
		return
	}

	orders, err := h.useCase.ListOrders(c.Request.Context(), application.ListOrdersInput{
		Actor:  middleware.GetActor(c),
		Scope:  application.OrderScope(c.Query("as")),
		Status: domain.OrderStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		c.Error(err)
		return
	}

	resp := make([]OrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = ToOrderResponse(o)
	}
	httpapi.Respond(c, http.StatusOK, resp)
}

// GetOrder retrieves an order
// @Summary Get an order by ID
// @Tags orders
// @Produce json
// @Param X-User-ID header int true "Caller user ID"
// @Param id path int true "Order ID"
// @Success 200 {object} httpapi.SuccessResponse{data=OrderResponse}
// @Failure 404 {object} httpapi.ErrorResponse "Order not found"
// @Router /api/v1/orders/{id} [get]
func (h *HTTPHandler) GetOrder(c *gin.Context) {
	id, err := httpapi.ParseID(c, "id", "order")
	if err != nil {
		c.Error(err)
		return
	}

	output, err := h.useCase.GetOrder(c.Request.Context(), application.GetOrderInput{
		Actor: middleware.GetActor(c),
		ID:    id,
	})
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusOK, ToOrderResponse(output.Order))
}

// CancelOrder cancels an order
// @Summary Cancel an order
// @Tags orders
// @Produce json
// @Param X-User-ID header int true "Buyer or seller user ID"
// @Param id path int true "Order ID"
// @Success 200 {object} httpapi.SuccessResponse{data=OrderResponse}
// @Failure 403 {object} httpapi.ErrorResponse "Not a party"
// @Failure 404 {object} httpapi.ErrorResponse "Order not found"
// @Failure 409 {object} httpapi.ErrorResponse "Order already completed or cancelled"
// @Router /api/v1/orders/{id}/cancel [post]
func (h *HTTPHandler) CancelOrder(c *gin.Context) {
	id, err := httpapi.ParseID(c, "id", "order")
	if err != nil {
		c.Error(err)
		return
	}

	output, err := h.useCase.CancelOrder(c.Request.Context(), application.CancelOrderInput{
		Actor:   middleware.GetActor(c),
		OrderID: id,
	})
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusOK, ToOrderResponse(output.Order))
}

// CompleteOrder confirms receipt
// @Summary Complete an order
// @Tags orders
// @Produce json
// @Param X-User-ID header int true "Buyer user ID"
// @Param id path int true "Order ID"
// @Success 200 {object} httpapi.SuccessResponse{data=OrderResponse}
// @Failure 404 {object} httpapi.ErrorResponse "Order not found"
// @Failure 409 {object} httpapi.ErrorResponse "Not the buyer or not PROCESSING"
// @Router /api/v1/orders/{id}/complete [post]
func (h *HTTPHandler) CompleteOrder(c *gin.Context) {
	id, err := httpapi.ParseID(c, "id", "order")
	if err != nil {
		c.Error(err)
		return
	}

	output, err := h.useCase.CompleteOrder(c.Request.Context(), application.CompleteOrderInput{
		Actor:   middleware.GetActor(c),
		OrderID: id,
	})
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusOK, ToOrderResponse(output.Order))
}

// UpdateOrderStatus applies a partial status update
// @Summary Update order, payment or delivery status
// @Description status needs an admin, payment_status the buyer or an admin, delivery_status the seller or an admin
// @Tags orders
// @Accept json
// @Produce json
// @Param X-User-ID header int true "Caller user ID"
// @Param X-User-Role header string false "USER or ADMIN"
// @Param id path int true "Order ID"
// @Param request body UpdateOrderStatusRequest true "Fields to change"
// @Success 200 {object} httpapi.SuccessResponse{data=OrderResponse}
// @Failure 403 {object} httpapi.ErrorResponse "Field not allowed for caller"
// @Failure 409 {object} httpapi.ErrorResponse "Invalid transition"
// @Router /api/v1/orders/{id}/status [patch]
func (h *HTTPHandler) UpdateOrderStatus(c *gin.Context) {
	id, err := httpapi.ParseID(c, "id", "order")
	if err != nil {
		c.Error(err)
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(httpapi.BindError(err))
		return
	}

	input := application.UpdateOrderStatusInput{
		Actor:   middleware.GetActor(c),
		OrderID: id,
	}
	if req.Status != nil {
		s := domain.OrderStatus(*req.Status)
		input.Status = &s
	}
	if req.PaymentStatus != nil {
		s := domain.PaymentStatus(*req.PaymentStatus)
		input.PaymentStatus = &s
	}
	if req.DeliveryStatus != nil {
		s := domain.DeliveryStatus(*req.DeliveryStatus)
		input.DeliveryStatus = &s
	}

	output, err := h.useCase.UpdateOrderStatus(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}

	httpapi.Respond(c, http.StatusOK, ToOrderResponse(output.Order))
}
