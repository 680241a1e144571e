package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogdomain "digimarket/internal/catalog/domain"
	orderdomain "digimarket/internal/orders/domain"
	orderports "digimarket/internal/orders/ports"
	reviewdomain "digimarket/internal/reviews/domain"
	"digimarket/pkg/errors"
)

func newOrder(t *testing.T, number string) *orderdomain.Order {
	t.Helper()
	order, err := orderdomain.NewOrder(2, 1, 10, 100, "card", number, time.Now())
	require.NoError(t, err)
	return order
}

func TestUnitOfWork_RollbackRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	uow := store.NewUnitOfWork()

	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.OrderRepository().Create(ctx, newOrder(t, "ORD-1")))
	require.NoError(t, uow.Rollback(ctx))

	orders, err := store.Orders().List(ctx, orderFilter())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestUnitOfWork_CommitKeepsChanges(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	uow := store.NewUnitOfWork()

	require.NoError(t, uow.Begin(ctx))
	order := newOrder(t, "ORD-1")
	require.NoError(t, uow.OrderRepository().Create(ctx, order))
	require.NoError(t, uow.Commit(ctx))

	assert.ErrorIs(t, uow.Rollback(ctx), ErrNoTransaction)
	stored, err := store.Orders().GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", stored.OrderNumber)
}

func TestUnitOfWork_WithoutBegin(t *testing.T) {
	uow := NewStore().NewUnitOfWork()

	assert.ErrorIs(t, uow.Commit(context.Background()), ErrNoTransaction)
	assert.ErrorIs(t, uow.Rollback(context.Background()), ErrNoTransaction)
}

func TestOrderRepository_DuplicateOrderNumber(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Orders().Create(ctx, newOrder(t, "ORD-1")))

	err := store.Orders().Create(ctx, newOrder(t, "ORD-1"))

	assert.ErrorIs(t, err, orderdomain.ErrOrderNumberTaken)
}

func TestOrderRepository_TransitionStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	order := newOrder(t, "ORD-1")
	require.NoError(t, store.Orders().Create(ctx, order))

	require.NoError(t, store.Orders().TransitionStatus(ctx, order.ID, orderdomain.OrderStatusPending, orderdomain.OrderStatusProcessing, nil))
	err := store.Orders().TransitionStatus(ctx, order.ID, orderdomain.OrderStatusPending, orderdomain.OrderStatusCancelled, nil)

	assert.True(t, errors.Is(err, errors.CodeInvalidState))
	stored, _ := store.Orders().GetByID(ctx, order.ID)
	assert.Equal(t, orderdomain.OrderStatusProcessing, stored.Status)
}

func TestOrderRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	order := newOrder(t, "ORD-1")
	require.NoError(t, store.Orders().Create(ctx, order))

	loaded, _ := store.Orders().GetByID(ctx, order.ID)
	loaded.Status = orderdomain.OrderStatusCancelled

	stored, _ := store.Orders().GetByID(ctx, order.ID)
	assert.Equal(t, orderdomain.OrderStatusPending, stored.Status)
}

func TestReviewRepository_UniquePerOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	first, err := reviewdomain.NewReview(1, 10, 2, 1, 5, "great", time.Now())
	require.NoError(t, err)
	second, err := reviewdomain.NewReview(1, 10, 2, 1, 1, "changed my mind", time.Now())
	require.NoError(t, err)

	require.NoError(t, store.Reviews().Create(ctx, first))
	err = store.Reviews().Create(ctx, second)

	assert.ErrorIs(t, err, reviewdomain.ErrAlreadyReviewed)
}

func TestReviewRepository_AverageRating(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	avg, err := store.Reviews().AverageRatingForSeller(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, avg)

	for i, rating := range []int{4, 2} {
		r, err := reviewdomain.NewReview(uint(i+1), 10, 2, 1, rating, "", time.Now())
		require.NoError(t, err)
		require.NoError(t, store.Reviews().Create(ctx, r))
	}

	avg, err = store.Reviews().AverageRatingForSeller(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 3.0, *avg, 1e-9)
}

func TestListingRepository_Search(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for _, title := range []string{"Go Patterns", "Rust Book", "go concurrency course"} {
		l, err := catalogdomain.NewListing(1, title, "", "books", 10, time.Now())
		require.NoError(t, err)
		require.NoError(t, store.Listings().Create(ctx, l))
	}

	filter := catalogdomain.ListingFilter{Query: "GO"}
	filter.Normalize()
	found, err := store.Listings().Search(ctx, filter)

	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestStats_CountsCompletedOrders(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	completedAt := time.Now()
	a := newOrder(t, "ORD-1")
	b := newOrder(t, "ORD-2")
	require.NoError(t, store.Orders().Create(ctx, a))
	require.NoError(t, store.Orders().Create(ctx, b))
	require.NoError(t, store.Orders().TransitionStatus(ctx, a.ID, orderdomain.OrderStatusPending, orderdomain.OrderStatusProcessing, nil))
	require.NoError(t, store.Orders().TransitionStatus(ctx, a.ID, orderdomain.OrderStatusProcessing, orderdomain.OrderStatusCompleted, &completedAt))

	stats, err := store.Stats().GetPlatformStats(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Orders)
	assert.Equal(t, int64(1), stats.OrdersByStatus["COMPLETED"])
	assert.Equal(t, int64(1), stats.OrdersByStatus["PENDING"])
	assert.Equal(t, 107.0, stats.CompletedVolume)
	assert.Equal(t, 5.0, stats.PlatformFees)
	assert.Equal(t, 2.0, stats.TransactionFees)
}

func orderFilter() orderports.OrderFilter {
	return orderports.OrderFilter{}
}
