package application

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"time"

	catalogdomain "digimarket/internal/catalog/domain"
	"digimarket/internal/orders/domain"
	"digimarket/internal/orders/ports"
	"digimarket/pkg/auth"
	"digimarket/pkg/errors"
	"digimarket/pkg/events"
	"digimarket/pkg/logger"

	"go.uber.org/zap"
)

// maxOrderNumberAttempts bounds retries after an order number collision
const maxOrderNumberAttempts = 5

// OrderUseCase runs the order lifecycle. Every mutating operation is one
// unit of work: the status change, seller stats, listing state,
// notifications and outbox events commit together or not at all.
type OrderUseCase struct {
	uowFactory  ports.UnitOfWorkFactory
	idempotency ports.IdempotencyStore
	log         *logger.Logger
	now         func() time.Time
	newNumber   func(time.Time) string
}

// NewOrderUseCase creates a new order use case. idempotency may be nil.
func NewOrderUseCase(uowFactory ports.UnitOfWorkFactory, idempotency ports.IdempotencyStore, log *logger.Logger) *OrderUseCase {
	return &OrderUseCase{
		uowFactory:  uowFactory,
		idempotency: idempotency,
		log:         log,
		now:         time.Now,
		newNumber:   domain.NewOrderNumber,
	}
}

// withinTx runs fn in a fresh unit of work and commits when fn succeeds
func (uc *OrderUseCase) withinTx(ctx context.Context, fn func(uow ports.UnitOfWork) error) error {
	uow := uc.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return errors.NewInternal("failed to begin transaction", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	if err := fn(uow); err != nil {
		return err
	}

	if err := uow.Commit(ctx); err != nil {
		return errors.NewInternal("failed to commit transaction", err)
	}
	return nil
}

// CreateOrderInput represents the input for creating an order
type CreateOrderInput struct {
	Actor          auth.Actor
	ListingID      uint
	PaymentMethod  string
	IdempotencyKey string
}

// CreateOrderOutput represents the output of creating an order
type CreateOrderOutput struct {
	Order *domain.Order
}

// CreateOrder places a PENDING order for an ACTIVE listing. Fees are
// computed from the listing price and frozen on the order.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderOutput, error) {
	if !input.Actor.IsAuthenticated() {
		return nil, errors.NewUnauthorized("authentication required")
	}
	if input.ListingID == 0 {
		return nil, domain.ErrListingRequired
	}
	if strings.TrimSpace(input.PaymentMethod) == "" {
		return nil, domain.ErrPaymentMethodRequired
	}

	release, err := uc.reserve(ctx, input.Actor.UserID, input.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	err = uc.withinTx(ctx, func(uow ports.UnitOfWork) error {
		listing, err := uow.ListingRepository().GetByID(ctx, input.ListingID)
		if err != nil {
			if errors.Is(err, errors.CodeNotFound) {
				return domain.NewListingNotFound(input.ListingID)
			}
			return errors.Internalize(err, "failed to load listing")
		}
		if !listing.IsPurchasable() {
			return domain.NewListingNotFound(input.ListingID)
		}
		if listing.SellerID == input.Actor.UserID {
			return domain.ErrSelfPurchase
		}

		order, err = uc.insertOrder(ctx, uow, input, listing)
		if err != nil {
			return err
		}

		if err := uc.notify(ctx, uow, orderCreatedMessages(order, listing)...); err != nil {
			return err
		}
		return uc.recordEvent(ctx, uow, events.RoutingKeyOrderCreated, order, input.Actor)
	})
	if err != nil {
		release()
		return nil, err
	}

	uc.log.WithContext(ctx).Info("order created",
		zap.Uint("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Uint("buyer_id", order.BuyerID),
		zap.Uint("listing_id", order.ListingID),
		zap.Float64("total_amount", order.TotalAmount),
	)

	return &CreateOrderOutput{Order: order}, nil
}

// insertOrder draws order numbers until one is free
func (uc *OrderUseCase) insertOrder(ctx context.Context, uow ports.UnitOfWork, input CreateOrderInput, listing *catalogdomain.Listing) (*domain.Order, error) {
	now := uc.now()
	for attempt := 1; ; attempt++ {
		order, err := domain.NewOrder(input.Actor.UserID, listing.SellerID, listing.ID, listing.Price, input.PaymentMethod, uc.newNumber(now), now)
		if err != nil {
			return nil, err
		}

		err = uow.OrderRepository().Create(ctx, order)
		if err == nil {
			return order, nil
		}
		if !stderrors.Is(err, domain.ErrOrderNumberTaken) {
			return nil, errors.Internalize(err, "failed to create order")
		}
		if attempt >= maxOrderNumberAttempts {
			return nil, errors.NewInternal("failed to allocate a unique order number", err)
		}

		uc.log.WithContext(ctx).Warn("order number collision, retrying",
			zap.String("order_number", order.OrderNumber),
			zap.Int("attempt", attempt),
		)
	}
}

// reserve claims the idempotency key and returns a func that drops the claim
func (uc *OrderUseCase) reserve(ctx context.Context, buyerID uint, key string) (func(), error) {
	key = strings.TrimSpace(key)
	if key == "" || uc.idempotency == nil {
		return func() {}, nil
	}

	scope := "orders:" + strconv.FormatUint(uint64(buyerID), 10)
	ok, err := uc.idempotency.Reserve(ctx, scope, key)
	if err != nil {
		uc.log.WithContext(ctx).Warn("idempotency store unavailable, continuing without it", zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, domain.ErrDuplicateRequest
	}

	return func() {
		if err := uc.idempotency.Release(ctx, scope, key); err != nil {
			uc.log.WithContext(ctx).Warn("failed to release idempotency key", zap.Error(err))
		}
	}, nil
}

// CancelOrderInput represents the input for cancelling an order
type CancelOrderInput struct {
	Actor   auth.Actor
	OrderID uint
}

// OrderOutput wraps an order returned by a lifecycle operation
type OrderOutput struct {
	Order *domain.Order
}

// CancelOrder cancels a PENDING or PROCESSING order on behalf of either party
func (uc *OrderUseCase) CancelOrder(ctx context.Context, input CancelOrderInput) (*OrderOutput, error) {
	if !input.Actor.IsAuthenticated() {
		return nil, errors.NewUnauthorized("authentication required")
	}

	var order *domain.Order
	err := uc.withinTx(ctx, func(uow ports.UnitOfWork) error {
		var err error
		order, err = uow.OrderRepository().GetForUpdate(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if !order.IsParty(input.Actor.UserID) {
			return domain.ErrCancelForbidden
		}
		if !order.Status.CanTransitionTo(domain.OrderStatusCancelled) {
			return domain.NewUnexpectedStatus("cancelled", order.Status)
		}

		if err := uow.OrderRepository().TransitionStatus(ctx, order.ID, order.Status, domain.OrderStatusCancelled, nil); err != nil {
			return err
		}
		order.Status = domain.OrderStatusCancelled
		order.UpdatedAt = uc.now()

		if err := uc.notify(ctx, uow, bothParties(order, "Order Cancelled", "Order "+order.OrderNumber+" was cancelled.")...); err != nil {
			return err
		}
		return uc.recordEvent(ctx, uow, events.RoutingKeyOrderCancelled, order, input.Actor)
	})
	if err != nil {
		return nil, err
	}

	uc.log.WithContext(ctx).Info("order cancelled",
		zap.Uint("order_id", order.ID),
		zap.Uint("actor_id", input.Actor.UserID),
	)

	return &OrderOutput{Order: order}, nil
}

// CompleteOrderInput represents the input for completing an order
type CompleteOrderInput struct {
	Actor   auth.Actor
	OrderID uint
}

// CompleteOrder lets the buyer confirm a PROCESSING order. The order is
// hidden from non-parties.
func (uc *OrderUseCase) CompleteOrder(ctx context.Context, input CompleteOrderInput) (*OrderOutput, error) {
	if !input.Actor.IsAuthenticated() {
		return nil, errors.NewUnauthorized("authentication required")
	}

	var order *domain.Order
	err := uc.withinTx(ctx, func(uow ports.UnitOfWork) error {
		var err error
		order, err = uow.OrderRepository().GetForUpdate(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if !order.IsParty(input.Actor.UserID) {
			return domain.NewOrderNotFound(input.OrderID)
		}
		if order.BuyerID != input.Actor.UserID {
			return domain.ErrOnlyBuyerCompletes
		}
		if order.Status != domain.OrderStatusProcessing {
			return domain.NewUnexpectedStatus("completed", order.Status)
		}

		return uc.complete(ctx, uow, order, input.Actor)
	})
	if err != nil {
		return nil, err
	}

	uc.log.WithContext(ctx).Info("order completed",
		zap.Uint("order_id", order.ID),
		zap.Uint("seller_id", order.SellerID),
		zap.Uint("listing_id", order.ListingID),
	)

	return &OrderOutput{Order: order}, nil
}

// complete moves a PROCESSING order to COMPLETED and applies the seller and
// listing side effects. The conditional transition runs first so a lost
// race leaves counters untouched.
func (uc *OrderUseCase) complete(ctx context.Context, uow ports.UnitOfWork, order *domain.Order, actor auth.Actor) error {
	now := uc.now()
	if err := uow.OrderRepository().TransitionStatus(ctx, order.ID, order.Status, domain.OrderStatusCompleted, &now); err != nil {
		return err
	}
	if err := uow.UserRepository().IncrementSellerStats(ctx, order.SellerID); err != nil {
		return errors.Internalize(err, "failed to update seller stats")
	}
	if err := uow.ListingRepository().MarkSold(ctx, order.ListingID); err != nil {
		return errors.Internalize(err, "failed to mark listing sold")
	}

	order.Status = domain.OrderStatusCompleted
	order.CompletedAt = &now
	order.UpdatedAt = now

	if err := uc.notify(ctx, uow, bothParties(order, "Order Completed", "Order "+order.OrderNumber+" was completed.")...); err != nil {
		return err
	}
	return uc.recordEvent(ctx, uow, events.RoutingKeyOrderCompleted, order, actor)
}

// UpdateOrderStatusInput represents a partial update of an order. Nil
// fields are left unchanged.
type UpdateOrderStatusInput struct {
	Actor          auth.Actor
	OrderID        uint
	Status         *domain.OrderStatus
	PaymentStatus  *domain.PaymentStatus
	DeliveryStatus *domain.DeliveryStatus
}

// UpdateOrderStatus applies per-field authorized updates. status needs an
// admin, paymentStatus the buyer or an admin, deliveryStatus the seller or
// an admin. All checks run before any write.
func (uc *OrderUseCase) UpdateOrderStatus(ctx context.Context, input UpdateOrderStatusInput) (*OrderOutput, error) {
	if !input.Actor.IsAuthenticated() {
		return nil, errors.NewUnauthorized("authentication required")
	}
	if err := validateUpdate(input); err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Actor.IsAdmin() {
		return nil, domain.ErrStatusForbidden
	}

	var order *domain.Order
	err := uc.withinTx(ctx, func(uow ports.UnitOfWork) error {
		var err error
		order, err = uow.OrderRepository().GetForUpdate(ctx, input.OrderID)
		if err != nil {
			return err
		}

		admin := input.Actor.IsAdmin()
		if input.PaymentStatus != nil && !admin && order.BuyerID != input.Actor.UserID {
			return domain.ErrPaymentForbidden
		}
		if input.DeliveryStatus != nil && !admin && order.SellerID != input.Actor.UserID {
			return domain.ErrDeliveryForbidden
		}

		statusChange := input.Status != nil && *input.Status != order.Status
		if statusChange && !order.Status.CanTransitionTo(*input.Status) {
			return domain.NewInvalidTransition(order.Status, *input.Status)
		}

		fieldsChanged := false
		if input.PaymentStatus != nil && *input.PaymentStatus != order.PaymentStatus {
			if err := uow.OrderRepository().UpdatePaymentStatus(ctx, order.ID, *input.PaymentStatus); err != nil {
				return err
			}
			order.PaymentStatus = *input.PaymentStatus
			fieldsChanged = true
		}
		if input.DeliveryStatus != nil && *input.DeliveryStatus != order.DeliveryStatus {
			if err := uow.OrderRepository().UpdateDeliveryStatus(ctx, order.ID, *input.DeliveryStatus); err != nil {
				return err
			}
			order.DeliveryStatus = *input.DeliveryStatus
			fieldsChanged = true
		}

		if !statusChange {
			if !fieldsChanged {
				return nil
			}
			order.UpdatedAt = uc.now()
			return uc.recordEvent(ctx, uow, events.RoutingKeyOrderStatusUpdated, order, input.Actor)
		}

		if *input.Status == domain.OrderStatusCompleted {
			return uc.complete(ctx, uow, order, input.Actor)
		}

		if err := uow.OrderRepository().TransitionStatus(ctx, order.ID, order.Status, *input.Status, nil); err != nil {
			return err
		}
		order.Status = *input.Status
		order.UpdatedAt = uc.now()

		msg := "Order " + order.OrderNumber + " is now " + string(order.Status) + "."
		if err := uc.notify(ctx, uow, bothParties(order, "Order Status Updated", msg)...); err != nil {
			return err
		}
		return uc.recordEvent(ctx, uow, events.RoutingKeyOrderStatusUpdated, order, input.Actor)
	})
	if err != nil {
		return nil, err
	}

	uc.log.WithContext(ctx).Info("order updated",
		zap.Uint("order_id", order.ID),
		zap.String("status", string(order.Status)),
		zap.String("payment_status", string(order.PaymentStatus)),
		zap.String("delivery_status", string(order.DeliveryStatus)),
		zap.Uint("actor_id", input.Actor.UserID),
	)

	return &OrderOutput{Order: order}, nil
}

func validateUpdate(input UpdateOrderStatusInput) error {
	if input.Status == nil && input.PaymentStatus == nil && input.DeliveryStatus == nil {
		return domain.ErrNothingToUpdate
	}
	if input.Status != nil && !input.Status.Valid() {
		return errors.NewValidation("invalid status", map[string]interface{}{"status": *input.Status})
	}
	if input.PaymentStatus != nil && !input.PaymentStatus.Valid() {
		return errors.NewValidation("invalid payment_status", map[string]interface{}{"payment_status": *input.PaymentStatus})
	}
	if input.DeliveryStatus != nil && !input.DeliveryStatus.Valid() {
		return errors.NewValidation("invalid delivery_status", map[string]interface{}{"delivery_status": *input.DeliveryStatus})
	}
	return nil
}

// GetOrderInput represents the input for getting an order
type GetOrderInput struct {
	Actor auth.Actor
	ID    uint
}

// GetOrderOutput represents the output of getting an order
type GetOrderOutput struct {
	Order *domain.Order
}

// GetOrder retrieves an order visible to the actor
func (uc *OrderUseCase) GetOrder(ctx context.Context, input GetOrderInput) (*GetOrderOutput, error) {
	if !input.Actor.IsAuthenticated() {
		return nil, errors.NewUnauthorized("authentication required")
	}

	order, err := uc.uowFactory.Create().OrderRepository().GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if !order.IsParty(input.Actor.UserID) && !input.Actor.IsAdmin() {
		return nil, domain.NewOrderNotFound(input.ID)
	}

	return &GetOrderOutput{Order: order}, nil
}

// OrderScope selects whose orders ListOrders returns
type OrderScope string

const (
	ScopeParty  OrderScope = ""
	ScopeBuyer  OrderScope = "buyer"
	ScopeSeller OrderScope = "seller"
	ScopeAll    OrderScope = "all"
)

// ListOrdersInput represents the input for listing orders
type ListOrdersInput struct {
	Actor  auth.Actor
	Scope  OrderScope
	Status domain.OrderStatus
	Limit  int
	Offset int
}

// ListOrders returns the actor's purchases, sales or both. ScopeAll is
// reserved to admins.
func (uc *OrderUseCase) ListOrders(ctx context.Context, input ListOrdersInput) ([]*domain.Order, error) {
	if !input.Actor.IsAuthenticated() {
		return nil, errors.NewUnauthorized("authentication required")
	}
	if input.Status != "" && !input.Status.Valid() {
		return nil, errors.NewValidation("invalid status", nil)
	}

	filter := ports.OrderFilter{Status: input.Status, Limit: input.Limit, Offset: input.Offset}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}

	switch input.Scope {
	case ScopeBuyer:
		filter.BuyerID = input.Actor.UserID
	case ScopeSeller:
		filter.SellerID = input.Actor.UserID
	case ScopeAll:
		if !input.Actor.IsAdmin() {
			return nil, domain.ErrListAllForbidden
		}
	case ScopeParty:
		filter.PartyID = input.Actor.UserID
	default:
		return nil, errors.NewValidation("as must be buyer, seller or all", nil)
	}

	return uc.uowFactory.Create().OrderRepository().List(ctx, filter)
}
