package application

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	catalogdomain "digimarket/internal/catalog/domain"
	"digimarket/internal/orders/domain"
	"digimarket/internal/orders/ports"
	outboxdomain "digimarket/internal/outbox/domain"
	"digimarket/internal/storage/memory"
	"digimarket/pkg/auth"
	"digimarket/pkg/errors"
	"digimarket/pkg/events"
	"digimarket/pkg/logger"
)

// MockIdempotencyStore is an in-memory IdempotencyStore
type MockIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{keys: make(map[string]bool)}
}

func (m *MockIdempotencyStore) Reserve(ctx context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.keys[scope+"/"+key] {
		return false, nil
	}
	m.keys[scope+"/"+key] = true
	return true, nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, scope+"/"+key)
	return nil
}

type fixture struct {
	store   *memory.Store
	useCase *OrderUseCase
	seller  *catalogdomain.User
	buyer   *catalogdomain.User
	listing *catalogdomain.Listing
}

var admin = auth.Actor{UserID: 900, Role: auth.RoleAdmin}

func newFixture(t *testing.T, price float64, idempotency ports.IdempotencyStore) *fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	store := memory.NewStore()

	seller, err := catalogdomain.NewUser("Sally Seller", "seller@example.com", now)
	if err != nil {
		t.Fatalf("failed to build seller: %v", err)
	}
	if err := store.Users().Create(ctx, seller); err != nil {
		t.Fatalf("failed to store seller: %v", err)
	}
	buyer, err := catalogdomain.NewUser("Bob Buyer", "buyer@example.com", now)
	if err != nil {
		t.Fatalf("failed to build buyer: %v", err)
	}
	if err := store.Users().Create(ctx, buyer); err != nil {
		t.Fatalf("failed to store buyer: %v", err)
	}
	listing, err := catalogdomain.NewListing(seller.ID, "Go Patterns e-book", "PDF and EPUB", "books", price, now)
	if err != nil {
		t.Fatalf("failed to build listing: %v", err)
	}
	if err := store.Listings().Create(ctx, listing); err != nil {
		t.Fatalf("failed to store listing: %v", err)
	}

	factory := ports.UnitOfWorkFactoryFunc(func() ports.UnitOfWork { return store.NewUnitOfWork() })
	useCase := NewOrderUseCase(factory, idempotency, logger.New("test", "debug"))
	useCase.now = func() time.Time { return now }

	return &fixture{store: store, useCase: useCase, seller: seller, buyer: buyer, listing: listing}
}

func (f *fixture) buyerActor() auth.Actor {
	return auth.Actor{UserID: f.buyer.ID, Role: auth.RoleUser}
}

func (f *fixture) sellerActor() auth.Actor {
	return auth.Actor{UserID: f.seller.ID, Role: auth.RoleUser}
}

func (f *fixture) createOrder(t *testing.T) *domain.Order {
	t.Helper()
	output, err := f.useCase.CreateOrder(context.Background(), CreateOrderInput{
		Actor:         f.buyerActor(),
		ListingID:     f.listing.ID,
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("expected no error creating order, got %v", err)
	}
	return output.Order
}

func (f *fixture) process(t *testing.T, orderID uint) {
	t.Helper()
	status := domain.OrderStatusProcessing
	if _, err := f.useCase.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{
		Actor:   admin,
		OrderID: orderID,
		Status:  &status,
	}); err != nil {
		t.Fatalf("expected no error moving to PROCESSING, got %v", err)
	}
}

func (f *fixture) user(t *testing.T, id uint) *catalogdomain.User {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load user %d: %v", id, err)
	}
	return u
}

func (f *fixture) titles(t *testing.T, userID uint) []string {
	t.Helper()
	list, err := f.store.Notifications().ListByUser(context.Background(), userID, false)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	titles := make([]string, len(list))
	for i, n := range list {
		titles[i] = n.Title
	}
	return titles
}

func (f *fixture) pendingEvents(t *testing.T) []*outboxdomain.Event {
	t.Helper()
	list, err := f.store.Outbox().FetchPending(context.Background(), 100)
	if err != nil {
		t.Fatalf("failed to fetch outbox: %v", err)
	}
	return list
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if !errors.Is(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestCreateOrder_Success(t *testing.T) {
	// Arrange
	f := newFixture(t, 100, nil)

	// Act
	order := f.createOrder(t)

	// Assert
	if order.ID == 0 {
		t.Error("expected order ID to be assigned")
	}
	if order.PlatformFee != 5 || order.TransactionFee != 2 || order.TotalAmount != 107 {
		t.Errorf("expected fees 5/2 and total 107, got %v/%v and %v", order.PlatformFee, order.TransactionFee, order.TotalAmount)
	}
	if order.Status != domain.OrderStatusPending || order.PaymentStatus != domain.PaymentStatusPending || order.DeliveryStatus != domain.DeliveryStatusPending {
		t.Errorf("expected all statuses PENDING, got %s/%s/%s", order.Status, order.PaymentStatus, order.DeliveryStatus)
	}
	if order.BuyerID != f.buyer.ID || order.SellerID != f.seller.ID {
		t.Errorf("unexpected parties %d/%d", order.BuyerID, order.SellerID)
	}
	if !strings.HasPrefix(order.OrderNumber, "ORD-20240115-") {
		t.Errorf("unexpected order number %q", order.OrderNumber)
	}
	if titles := f.titles(t, f.buyer.ID); !contains(titles, "Order Created") {
		t.Errorf("expected buyer notification, got %v", titles)
	}
	if titles := f.titles(t, f.seller.ID); !contains(titles, "New Order Received") {
		t.Errorf("expected seller notification, got %v", titles)
	}
	pending := f.pendingEvents(t)
	if len(pending) != 1 || pending[0].RoutingKey != events.RoutingKeyOrderCreated {
		t.Errorf("expected one %s event, got %v", events.RoutingKeyOrderCreated, pending)
	}
}

func TestCreateOrder_SelfPurchase(t *testing.T) {
	f := newFixture(t, 100, nil)

	_, err := f.useCase.CreateOrder(context.Background(), CreateOrderInput{
		Actor:         f.sellerActor(),
		ListingID:     f.listing.ID,
		PaymentMethod: "card",
	})

	assertCode(t, err, errors.CodeForbidden)
}

func TestCreateOrder_ListingNotPurchasable(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(f *fixture) uint
	}{
		{
			name:    "missing listing",
			prepare: func(f *fixture) uint { return f.listing.ID + 100 },
		},
		{
			name: "inactive listing",
			prepare: func(f *fixture) uint {
				_ = f.store.Listings().UpdateStatus(context.Background(), f.listing.ID, catalogdomain.ListingStatusInactive)
				return f.listing.ID
			},
		},
		{
			name: "sold listing",
			prepare: func(f *fixture) uint {
				_ = f.store.Listings().MarkSold(context.Background(), f.listing.ID)
				return f.listing.ID
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 100, nil)
			listingID := tt.prepare(f)

			_, err := f.useCase.CreateOrder(context.Background(), CreateOrderInput{
				Actor:         f.buyerActor(),
				ListingID:     listingID,
				PaymentMethod: "card",
			})

			assertCode(t, err, errors.CodeNotFound)
		})
	}
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input func(f *fixture) CreateOrderInput
		code  string
	}{
		{
			name:  "anonymous",
			input: func(f *fixture) CreateOrderInput { return CreateOrderInput{ListingID: f.listing.ID, PaymentMethod: "card"} },
			code:  errors.CodeUnauthorized,
		},
		{
			name:  "missing listing id",
			input: func(f *fixture) CreateOrderInput { return CreateOrderInput{Actor: f.buyerActor(), PaymentMethod: "card"} },
			code:  errors.CodeValidation,
		},
		{
			name: "missing payment method",
			input: func(f *fixture) CreateOrderInput {
				return CreateOrderInput{Actor: f.buyerActor(), ListingID: f.listing.ID, PaymentMethod: "  "}
			},
			code: errors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 100, nil)

			_, err := f.useCase.CreateOrder(context.Background(), tt.input(f))

			assertCode(t, err, tt.code)
		})
	}
}

func TestCreateOrder_RetriesOrderNumberCollision(t *testing.T) {
	// Arrange
	f := newFixture(t, 100, nil)
	numbers := []string{"ORD-20240115-AAAAAAAA", "ORD-20240115-AAAAAAAA", "ORD-20240115-BBBBBBBB"}
	f.useCase.newNumber = func(time.Time) string {
		n := numbers[0]
		if len(numbers) > 1 {
			numbers = numbers[1:]
		}
		return n
	}
	first := f.createOrder(t)

	// Act
	second := f.createOrder(t)

	// Assert
	if first.OrderNumber != "ORD-20240115-AAAAAAAA" {
		t.Errorf("unexpected first order number %q", first.OrderNumber)
	}
	if second.OrderNumber != "ORD-20240115-BBBBBBBB" {
		t.Errorf("expected a fresh order number after collision, got %q", second.OrderNumber)
	}
}

func TestCreateOrder_GivesUpAfterRepeatedCollisions(t *testing.T) {
	// Arrange
	f := newFixture(t, 100, nil)
	calls := 0
	f.useCase.newNumber = func(time.Time) string {
		calls++
		return "ORD-20240115-AAAAAAAA"
	}
	f.createOrder(t)
	calls = 0

	// Act
	_, err := f.useCase.CreateOrder(context.Background(), CreateOrderInput{
		Actor:         f.buyerActor(),
		ListingID:     f.listing.ID,
		PaymentMethod: "card",
	})

	// Assert
	assertCode(t, err, errors.CodeInternal)
	if calls != maxOrderNumberAttempts {
		t.Errorf("expected %d attempts, got %d", maxOrderNumberAttempts, calls)
	}
	orders, _ := f.store.Orders().List(context.Background(), ports.OrderFilter{})
	if len(orders) != 1 {
		t.Errorf("expected only the first order to exist, got %d", len(orders))
	}
	if len(f.pendingEvents(t)) != 1 {
		t.Error("expected the failed attempt to leave no outbox event")
	}
}

func TestCreateOrder_IdempotencyKey(t *testing.T) {
	// Arrange
	keys := NewMockIdempotencyStore()
	f := newFixture(t, 100, keys)
	input := CreateOrderInput{
		Actor:          f.buyerActor(),
		ListingID:      f.listing.ID,
		PaymentMethod:  "card",
		IdempotencyKey: "checkout-42",
	}
	if _, err := f.useCase.CreateOrder(context.Background(), input); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act
	_, err := f.useCase.CreateOrder(context.Background(), input)

	// Assert
	assertCode(t, err, errors.CodeConflict)
	orders, _ := f.store.Orders().List(context.Background(), ports.OrderFilter{})
	if len(orders) != 1 {
		t.Errorf("expected one order, got %d", len(orders))
	}
}

func TestCreateOrder_FailedRequestReleasesIdempotencyKey(t *testing.T) {
	keys := NewMockIdempotencyStore()
	f := newFixture(t, 100, keys)
	input := CreateOrderInput{
		Actor:          f.buyerActor(),
		ListingID:      f.listing.ID + 100,
		PaymentMethod:  "card",
		IdempotencyKey: "checkout-42",
	}
	_, err := f.useCase.CreateOrder(context.Background(), input)
	assertCode(t, err, errors.CodeNotFound)

	input.ListingID = f.listing.ID
	if _, err := f.useCase.CreateOrder(context.Background(), input); err != nil {
		t.Fatalf("expected retry with the same key to succeed, got %v", err)
	}
}

func TestCreateOrder_IdempotencyStoreDown(t *testing.T) {
	keys := NewMockIdempotencyStore()
	keys.err = stderrors.New("connection refused")
	f := newFixture(t, 100, keys)

	_, err := f.useCase.CreateOrder(context.Background(), CreateOrderInput{
		Actor:          f.buyerActor(),
		ListingID:      f.listing.ID,
		PaymentMethod:  "card",
		IdempotencyKey: "checkout-42",
	})

	if err != nil {
		t.Fatalf("expected order creation to continue without the store, got %v", err)
	}
}

func TestCompleteOrder_Success(t *testing.T) {
	// Arrange
	f := newFixture(t, 100, nil)
	order := f.createOrder(t)
	f.process(t, order.ID)

	// Act
	output, err := f.useCase.CompleteOrder(context.Background(), CompleteOrderInput{
		Actor:   f.buyerActor(),
		OrderID: order.ID,
	})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output.Order.Status != domain.OrderStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", output.Order.Status)
	}
	if output.Order.CompletedAt == nil {
		t.Error("expected completedAt to be set")
	}
	seller := f.user(t, f.seller.ID)
	if seller.CompletedOrders != 1 || seller.TotalSales != 1 {
		t.Errorf("expected seller stats 1/1, got %d/%d", seller.CompletedOrders, seller.TotalSales)
	}
	listing, _ := f.store.Listings().GetByID(context.Background(), f.listing.ID)
	if listing.Status != catalogdomain.ListingStatusSold || listing.Sales != 1 {
		t.Errorf("expected listing SOLD with 1 sale, got %s/%d", listing.Status, listing.Sales)
	}
	if !contains(f.titles(t, f.buyer.ID), "Order Completed") || !contains(f.titles(t, f.seller.ID), "Order Completed") {
		t.Error("expected both parties to be notified")
	}
}

func TestCompleteOrder_InvalidState(t *testing.T) {
	tests := []struct {
		name    string
		process bool
		actor   func(f *fixture) auth.Actor
		code    string
	}{
		{name: "seller completes pending order", actor: (*fixture).sellerActor, code: errors.CodeInvalidState},
		{name: "seller completes processing order", process: true, actor: (*fixture).sellerActor, code: errors.CodeInvalidState},
		{name: "buyer completes pending order", actor: (*fixture).buyerActor, code: errors.CodeInvalidState},
		{name: "stranger", process: true, actor: func(*fixture) auth.Actor { return auth.Actor{UserID: 777, Role: auth.RoleUser} }, code: errors.CodeNotFound},
		{name: "anonymous", process: true, actor: func(*fixture) auth.Actor { return auth.Actor{} }, code: errors.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 100, nil)
			order := f.createOrder(t)
			if tt.process {
				f.process(t, order.ID)
			}

			_, err := f.useCase.CompleteOrder(context.Background(), CompleteOrderInput{
				Actor:   tt.actor(f),
				OrderID: order.ID,
			})

			assertCode(t, err, tt.code)
			if seller := f.user(t, f.seller.ID); seller.CompletedOrders != 0 {
				t.Errorf("expected no stats change, got %d", seller.CompletedOrders)
			}
		})
	}
}

func TestCompleteOrder_Twice(t *testing.T) {
	// Arrange
	f := newFixture(t, 100, nil)
	order := f.createOrder(t)
	f.process(t, order.ID)
	input := CompleteOrderInput{Actor: f.buyerActor(), OrderID: order.ID}
	if _, err := f.useCase.CompleteOrder(context.Background(), input); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act
	_, err := f.useCase.CompleteOrder(context.Background(), input)

	// Assert
	assertCode(t, err, errors.CodeInvalidState)
	seller := f.user(t, f.seller.ID)
	if seller.CompletedOrders != 1 || seller.TotalSales != 1 {
		t.Errorf("expected seller stats 1/1, got %d/%d", seller.CompletedOrders, seller.TotalSales)
	}
}

func TestCompleteOrder_Concurrent(t *testing.T) {
	// Arrange
	f := newFixture(t, 100, nil)
	order := f.createOrder(t)
	f.process(t, order.ID)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)

	// Act
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.useCase.CompleteOrder(context.Background(), CompleteOrderInput{
				Actor:   f.buyerActor(),
				OrderID: order.ID,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	// Assert
	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assertCode(t, err, errors.CodeInvalidState)
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one completion, got %d", succeeded)
	}
	seller := f.user(t, f.seller.ID)
	if seller.CompletedOrders != 1 || seller.TotalSales != 1 {
		t.Errorf("expected seller stats 1/1, got %d/%d", seller.CompletedOrders, seller.TotalSales)
	}
}

func TestCancelOrder(t *testing.T) {
	t.Run("seller cancels pending order", func(t *testing.T) {
		f := newFixture(t, 100, nil)
		order := f.createOrder(t)

		output, err := f.useCase.CancelOrder(context.Background(), CancelOrderInput{Actor: f.sellerActor(), OrderID: order.ID})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.Order.Status != domain.OrderStatusCancelled {
			t.Errorf("expected CANCELLED, got %s", output.Order.Status)
		}
		if !contains(f.titles(t, f.buyer.ID), "Order Cancelled") {
			t.Error("expected buyer to be notified")
		}
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		f := newFixture(t, 100, nil)
		order := f.createOrder(t)

		_, err := f.useCase.CancelOrder(context.Background(), CancelOrderInput{
			Actor:   auth.Actor{UserID: 777, Role: auth.RoleUser},
			OrderID: order.ID,
		})

		assertCode(t, err, errors.CodeForbidden)
	})

	t.Run("completed order", func(t *testing.T) {
		f := newFixture(t, 100, nil)
		order := f.createOrder(t)
		f.process(t, order.ID)
		if _, err := f.useCase.CompleteOrder(context.Background(), CompleteOrderInput{Actor: f.buyerActor(), OrderID: order.ID}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, err := f.useCase.CancelOrder(context.Background(), CancelOrderInput{Actor: f.buyerActor(), OrderID: order.ID})

		assertCode(t, err, errors.CodeInvalidState)
	})

	t.Run("cancelled order", func(t *testing.T) {
		f := newFixture(t, 100, nil)
		order := f.createOrder(t)
		if _, err := f.useCase.CancelOrder(context.Background(), CancelOrderInput{Actor: f.buyerActor(), OrderID: order.ID}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, err := f.useCase.CancelOrder(context.Background(), CancelOrderInput{Actor: f.buyerActor(), OrderID: order.ID})

		assertCode(t, err, errors.CodeInvalidState)
	})

	t.Run("missing order", func(t *testing.T) {
		f := newFixture(t, 100, nil)

		_, err := f.useCase.CancelOrder(context.Background(), CancelOrderInput{Actor: f.buyerActor(), OrderID: 42})

		assertCode(t, err, errors.CodeNotFound)
	})
}

func TestUpdateOrderStatus_Authorization(t *testing.T) {
	processing := domain.OrderStatusProcessing
	paid := domain.PaymentStatusPaid
	delivered := domain.DeliveryStatusDelivered

	tests := []struct {
		name  string
		actor func(f *fixture) auth.Actor
		input UpdateOrderStatusInput
		code  string
	}{
		{name: "buyer sets status", actor: (*fixture).buyerActor, input: UpdateOrderStatusInput{Status: &processing}, code: errors.CodeForbidden},
		{name: "seller sets status", actor: (*fixture).sellerActor, input: UpdateOrderStatusInput{Status: &processing}, code: errors.CodeForbidden},
		{name: "seller sets payment", actor: (*fixture).sellerActor, input: UpdateOrderStatusInput{PaymentStatus: &paid}, code: errors.CodeForbidden},
		{name: "buyer sets delivery", actor: (*fixture).buyerActor, input: UpdateOrderStatusInput{DeliveryStatus: &delivered}, code: errors.CodeForbidden},
		{name: "buyer sets payment", actor: (*fixture).buyerActor, input: UpdateOrderStatusInput{PaymentStatus: &paid}},
		{name: "seller sets delivery", actor: (*fixture).sellerActor, input: UpdateOrderStatusInput{DeliveryStatus: &delivered}},
		{name: "admin sets everything", actor: func(*fixture) auth.Actor { return admin }, input: UpdateOrderStatusInput{Status: &processing, PaymentStatus: &paid, DeliveryStatus: &delivered}},
		{name: "nothing to update", actor: (*fixture).buyerActor, input: UpdateOrderStatusInput{}, code: errors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 100, nil)
			order := f.createOrder(t)
			input := tt.input
			input.Actor = tt.actor(f)
			input.OrderID = order.ID

			output, err := f.useCase.UpdateOrderStatus(context.Background(), input)

			if tt.code != "" {
				assertCode(t, err, tt.code)
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if input.PaymentStatus != nil && output.Order.PaymentStatus != *input.PaymentStatus {
				t.Errorf("expected payment status %s, got %s", *input.PaymentStatus, output.Order.PaymentStatus)
			}
			if input.DeliveryStatus != nil && output.Order.DeliveryStatus != *input.DeliveryStatus {
				t.Errorf("expected delivery status %s, got %s", *input.DeliveryStatus, output.Order.DeliveryStatus)
			}
		})
	}
}

func TestUpdateOrderStatus_ChecksBeforeWriting(t *testing.T) {
	// Arrange
	f := newFixture(t, 100, nil)
	order := f.createOrder(t)
	paid := domain.PaymentStatusPaid
	delivered := domain.DeliveryStatusDelivered

	// Act
	_, err := f.useCase.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{
		Actor:          f.buyerActor(),
		OrderID:        order.ID,
		PaymentStatus:  &paid,
		DeliveryStatus: &delivered,
	})

	// Assert
	assertCode(t, err, errors.CodeForbidden)
	stored, _ := f.store.Orders().GetByID(context.Background(), order.ID)
	if stored.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected payment status unchanged, got %s", stored.PaymentStatus)
	}
}

func TestUpdateOrderStatus_Transitions(t *testing.T) {
	completed := domain.OrderStatusCompleted
	pending := domain.OrderStatusPending

	t.Run("skipping PROCESSING is rejected", func(t *testing.T) {
		f := newFixture(t, 100, nil)
		order := f.createOrder(t)

		_, err := f.useCase.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{Actor: admin, OrderID: order.ID, Status: &completed})

		assertCode(t, err, errors.CodeInvalidState)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		f := newFixture(t, 100, nil)
		order := f.createOrder(t)

		output, err := f.useCase.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{Actor: admin, OrderID: order.ID, Status: &pending})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.Order.Status != domain.OrderStatusPending {
			t.Errorf("expected PENDING, got %s", output.Order.Status)
		}
		if len(f.pendingEvents(t)) != 1 {
			t.Error("expected no event for a no-op update")
		}
	})

	t.Run("admin completion applies side effects", func(t *testing.T) {
		f := newFixture(t, 100, nil)
		order := f.createOrder(t)
		f.process(t, order.ID)

		output, err := f.useCase.UpdateOrderStatus(context.Background(), UpdateOrderStatusInput{Actor: admin, OrderID: order.ID, Status: &completed})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.Order.CompletedAt == nil {
			t.Error("expected completedAt to be set")
		}
		if seller := f.user(t, f.seller.ID); seller.CompletedOrders != 1 || seller.TotalSales != 1 {
			t.Errorf("expected seller stats 1/1, got %d/%d", seller.CompletedOrders, seller.TotalSales)
		}
		listing, _ := f.store.Listings().GetByID(context.Background(), f.listing.ID)
		if listing.Status != catalogdomain.ListingStatusSold {
			t.Errorf("expected listing SOLD, got %s", listing.Status)
		}
	})

	t.Run("status change notifies both parties", func(t *testing.T) {
		f := newFixture(t, 100, nil)
		order := f.createOrder(t)

		f.process(t, order.ID)

		if !contains(f.titles(t, f.buyer.ID), "Order Status Updated") || !contains(f.titles(t, f.seller.ID), "Order Status Updated") {
			t.Error("expected both parties to be notified")
		}
		var keys []string
		for _, e := range f.pendingEvents(t) {
			keys = append(keys, e.RoutingKey)
		}
		if !contains(keys, events.RoutingKeyOrderStatusUpdated) {
			t.Errorf("expected a status event, got %v", keys)
		}
	})
}

func TestGetOrder_Visibility(t *testing.T) {
	f := newFixture(t, 100, nil)
	order := f.createOrder(t)

	for _, actor := range []auth.Actor{f.buyerActor(), f.sellerActor(), admin} {
		if _, err := f.useCase.GetOrder(context.Background(), GetOrderInput{Actor: actor, ID: order.ID}); err != nil {
			t.Errorf("expected actor %d to see the order, got %v", actor.UserID, err)
		}
	}

	_, err := f.useCase.GetOrder(context.Background(), GetOrderInput{Actor: auth.Actor{UserID: 777, Role: auth.RoleUser}, ID: order.ID})
	assertCode(t, err, errors.CodeNotFound)
}

func TestListOrders_Scopes(t *testing.T) {
	f := newFixture(t, 100, nil)
	f.createOrder(t)

	asBuyer, err := f.useCase.ListOrders(context.Background(), ListOrdersInput{Actor: f.buyerActor(), Scope: ScopeBuyer})
	if err != nil || len(asBuyer) != 1 {
		t.Errorf("expected one purchase, got %d (%v)", len(asBuyer), err)
	}

	sellerPurchases, err := f.useCase.ListOrders(context.Background(), ListOrdersInput{Actor: f.sellerActor(), Scope: ScopeBuyer})
	if err != nil || len(sellerPurchases) != 0 {
		t.Errorf("expected no purchases for seller, got %d (%v)", len(sellerPurchases), err)
	}

	party, err := f.useCase.ListOrders(context.Background(), ListOrdersInput{Actor: f.sellerActor()})
	if err != nil || len(party) != 1 {
		t.Errorf("expected one order for seller, got %d (%v)", len(party), err)
	}

	_, err = f.useCase.ListOrders(context.Background(), ListOrdersInput{Actor: f.buyerActor(), Scope: ScopeAll})
	assertCode(t, err, errors.CodeForbidden)

	all, err := f.useCase.ListOrders(context.Background(), ListOrdersInput{Actor: admin, Scope: ScopeAll})
	if err != nil || len(all) != 1 {
		t.Errorf("expected admin to see one order, got %d (%v)", len(all), err)
	}
}
