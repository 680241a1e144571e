package application

import (
	"context"
	"testing"
	"time"

	catalogdomain "digimarket/internal/catalog/domain"
	orderdomain "digimarket/internal/orders/domain"
	"digimarket/internal/reviews/domain"
	"digimarket/internal/reviews/ports"
	"digimarket/internal/storage/memory"
	"digimarket/pkg/auth"
	"digimarket/pkg/errors"
	"digimarket/pkg/events"
	"digimarket/pkg/logger"
)

type fixture struct {
	store   *memory.Store
	useCase *ReviewUseCase
	seller  *catalogdomain.User
	buyer   *catalogdomain.User
	buyer2  *catalogdomain.User
	listing uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	store := memory.NewStore()

	users := make([]*catalogdomain.User, 3)
	for i, email := range []string{"seller@example.com", "buyer@example.com", "buyer2@example.com"} {
		u, err := catalogdomain.NewUser("User "+email, email, now)
		if err != nil {
			t.Fatalf("failed to build user: %v", err)
		}
		if err := store.Users().Create(ctx, u); err != nil {
			t.Fatalf("failed to store user: %v", err)
		}
		users[i] = u
	}

	listing, err := catalogdomain.NewListing(users[0].ID, "Icon pack", "", "design", 20, now)
	if err != nil {
		t.Fatalf("failed to build listing: %v", err)
	}
	if err := store.Listings().Create(ctx, listing); err != nil {
		t.Fatalf("failed to store listing: %v", err)
	}

	factory := ports.UnitOfWorkFactoryFunc(func() ports.UnitOfWork { return store.NewUnitOfWork() })
	return &fixture{
		store:   store,
		useCase: NewReviewUseCase(factory, logger.New("test", "debug")),
		seller:  users[0],
		buyer:   users[1],
		buyer2:  users[2],
		listing: listing.ID,
	}
}

// placeOrder stores an order for the listing and walks it to status
func (f *fixture) placeOrder(t *testing.T, buyerID uint, status orderdomain.OrderStatus) *orderdomain.Order {
	t.Helper()
	ctx := context.Background()
	order, err := orderdomain.NewOrder(buyerID, f.seller.ID, f.listing, 20, "card", orderdomain.NewOrderNumber(time.Now()), time.Now())
	if err != nil {
		t.Fatalf("failed to build order: %v", err)
	}
	repo := f.store.Orders()
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("failed to store order: %v", err)
	}
	path := []orderdomain.OrderStatus{orderdomain.OrderStatusProcessing, orderdomain.OrderStatusCompleted}
	if status == orderdomain.OrderStatusPending {
		path = nil
	}
	if status == orderdomain.OrderStatusProcessing {
		path = path[:1]
	}
	for _, next := range path {
		var completedAt *time.Time
		if next == orderdomain.OrderStatusCompleted {
			now := time.Now()
			completedAt = &now
		}
		if err := repo.TransitionStatus(ctx, order.ID, order.Status, next, completedAt); err != nil {
			t.Fatalf("failed to move order to %s: %v", next, err)
		}
		order.Status = next
	}
	return order
}

func (f *fixture) actor(u *catalogdomain.User) auth.Actor {
	return auth.Actor{UserID: u.ID, Role: auth.RoleUser}
}

func (f *fixture) review(t *testing.T, buyer *catalogdomain.User, rating int) *ReviewOutput {
	t.Helper()
	order := f.placeOrder(t, buyer.ID, orderdomain.OrderStatusCompleted)
	out, err := f.useCase.CreateReview(context.Background(), CreateReviewInput{
		Actor:   f.actor(buyer),
		OrderID: order.ID,
		Rating:  rating,
		Comment: "works as described",
	})
	if err != nil {
		t.Fatalf("expected no error creating review, got %v", err)
	}
	return out
}

func (f *fixture) sellerRating(t *testing.T) *float64 {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), f.seller.ID)
	if err != nil {
		t.Fatalf("failed to load seller: %v", err)
	}
	return u.SellerRating
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if !errors.Is(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func TestCreateReview_Success(t *testing.T) {
	// Arrange
	f := newFixture(t)

	// Act
	out := f.review(t, f.buyer, 5)

	// Assert
	if out.Review.ID == 0 || out.Review.SellerID != f.seller.ID || out.Review.ListingID != f.listing {
		t.Errorf("unexpected review %+v", out.Review)
	}
	rating := f.sellerRating(t)
	if rating == nil || *rating != 5 {
		t.Errorf("expected seller rating 5, got %v", rating)
	}
	notes, _ := f.store.Notifications().ListByUser(context.Background(), f.seller.ID, false)
	if len(notes) != 1 || notes[0].Title != "New Review" {
		t.Errorf("expected one review notification for the seller, got %v", notes)
	}
	pending, _ := f.store.Outbox().FetchPending(context.Background(), 10)
	if len(pending) != 1 || pending[0].RoutingKey != events.RoutingKeyReviewCreated {
		t.Errorf("expected one %s event, got %v", events.RoutingKeyReviewCreated, pending)
	}
}

func TestCreateReview_SecondAttemptConflicts(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, f.buyer.ID, orderdomain.OrderStatusCompleted)
	input := CreateReviewInput{Actor: f.actor(f.buyer), OrderID: order.ID, Rating: 4}
	if _, err := f.useCase.CreateReview(context.Background(), input); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	input.Rating = 1
	input.Comment = "different content"
	_, err := f.useCase.CreateReview(context.Background(), input)

	assertCode(t, err, errors.CodeConflict)
}

func TestCreateReview_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		status orderdomain.OrderStatus
		buyer  func(f *fixture) *catalogdomain.User
		actor  func(f *fixture) *catalogdomain.User
		rating int
		code   string
	}{
		{name: "rating too low", status: orderdomain.OrderStatusCompleted, rating: 0, code: errors.CodeValidation},
		{name: "rating too high", status: orderdomain.OrderStatusCompleted, rating: 6, code: errors.CodeValidation},
		{name: "not the buyer", status: orderdomain.OrderStatusCompleted, actor: func(f *fixture) *catalogdomain.User { return f.buyer2 }, rating: 5, code: errors.CodeForbidden},
		{name: "seller reviews own sale", status: orderdomain.OrderStatusCompleted, actor: func(f *fixture) *catalogdomain.User { return f.seller }, rating: 5, code: errors.CodeForbidden},
		{name: "pending order", status: orderdomain.OrderStatusPending, rating: 5, code: errors.CodeInvalidState},
		{name: "processing order", status: orderdomain.OrderStatusProcessing, rating: 5, code: errors.CodeInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			order := f.placeOrder(t, f.buyer.ID, tt.status)
			actor := f.buyer
			if tt.actor != nil {
				actor = tt.actor(f)
			}

			_, err := f.useCase.CreateReview(context.Background(), CreateReviewInput{
				Actor:   f.actor(actor),
				OrderID: order.ID,
				Rating:  tt.rating,
			})

			assertCode(t, err, tt.code)
		})
	}

	t.Run("missing order", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.useCase.CreateReview(context.Background(), CreateReviewInput{Actor: f.actor(f.buyer), OrderID: 99, Rating: 5})

		assertCode(t, err, errors.CodeNotFound)
	})

	t.Run("anonymous", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.useCase.CreateReview(context.Background(), CreateReviewInput{OrderID: 1, Rating: 5})

		assertCode(t, err, errors.CodeUnauthorized)
	})
}

func TestDeleteReview_RecomputesRating(t *testing.T) {
	// Arrange
	f := newFixture(t)
	f.review(t, f.buyer, 4)
	low := f.review(t, f.buyer2, 2)
	if rating := f.sellerRating(t); rating == nil || *rating != 3 {
		t.Fatalf("expected seller rating 3, got %v", rating)
	}

	// Act
	out, err := f.useCase.DeleteReview(context.Background(), DeleteReviewInput{Actor: f.actor(f.buyer2), ReviewID: low.Review.ID})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.SellerRating == nil || *out.SellerRating != 4 {
		t.Errorf("expected returned rating 4, got %v", out.SellerRating)
	}
	if rating := f.sellerRating(t); rating == nil || *rating != 4 {
		t.Errorf("expected seller rating 4, got %v", rating)
	}
}

func TestDeleteReview_LastReviewClearsRating(t *testing.T) {
	f := newFixture(t)
	only := f.review(t, f.buyer, 5)

	_, err := f.useCase.DeleteReview(context.Background(), DeleteReviewInput{Actor: f.actor(f.buyer), ReviewID: only.Review.ID})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rating := f.sellerRating(t); rating != nil {
		t.Errorf("expected no seller rating, got %v", *rating)
	}
}

func TestDeleteReview_Authorization(t *testing.T) {
	f := newFixture(t)
	r := f.review(t, f.buyer, 5)

	_, err := f.useCase.DeleteReview(context.Background(), DeleteReviewInput{Actor: f.actor(f.seller), ReviewID: r.Review.ID})
	assertCode(t, err, errors.CodeForbidden)

	admin := auth.Actor{UserID: 900, Role: auth.RoleAdmin}
	if _, err := f.useCase.DeleteReview(context.Background(), DeleteReviewInput{Actor: admin, ReviewID: r.Review.ID}); err != nil {
		t.Errorf("expected admin to delete the review, got %v", err)
	}
}

func TestUpdateReview(t *testing.T) {
	t.Run("rating change recomputes", func(t *testing.T) {
		f := newFixture(t)
		f.review(t, f.buyer, 4)
		r := f.review(t, f.buyer2, 2)
		rating := 5

		out, err := f.useCase.UpdateReview(context.Background(), UpdateReviewInput{Actor: f.actor(f.buyer2), ReviewID: r.Review.ID, Rating: &rating})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.Review.Rating != 5 {
			t.Errorf("expected rating 5, got %d", out.Review.Rating)
		}
		if got := f.sellerRating(t); got == nil || *got != 4.5 {
			t.Errorf("expected seller rating 4.5, got %v", got)
		}
	})

	t.Run("comment only keeps rating", func(t *testing.T) {
		f := newFixture(t)
		r := f.review(t, f.buyer, 3)
		comment := "  still good  "

		out, err := f.useCase.UpdateReview(context.Background(), UpdateReviewInput{Actor: f.actor(f.buyer), ReviewID: r.Review.ID, Comment: &comment})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.Review.Comment != "still good" {
			t.Errorf("expected trimmed comment, got %q", out.Review.Comment)
		}
		if out.SellerRating == nil || *out.SellerRating != 3 {
			t.Errorf("expected rating 3, got %v", out.SellerRating)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newFixture(t)
		r := f.review(t, f.buyer, 3)
		bad := 9

		_, err := f.useCase.UpdateReview(context.Background(), UpdateReviewInput{Actor: f.actor(f.buyer), ReviewID: r.Review.ID})
		assertCode(t, err, errors.CodeValidation)

		_, err = f.useCase.UpdateReview(context.Background(), UpdateReviewInput{Actor: f.actor(f.buyer), ReviewID: r.Review.ID, Rating: &bad})
		assertCode(t, err, errors.CodeValidation)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		f := newFixture(t)
		r := f.review(t, f.buyer, 3)
		rating := 1

		_, err := f.useCase.UpdateReview(context.Background(), UpdateReviewInput{Actor: f.actor(f.buyer2), ReviewID: r.Review.ID, Rating: &rating})

		assertCode(t, err, errors.CodeForbidden)
	})
}

func TestCanReview(t *testing.T) {
	t.Run("not authenticated", func(t *testing.T) {
		f := newFixture(t)

		got, err := f.useCase.CanReview(context.Background(), CanReviewInput{ListingID: f.listing})

		if err != nil || got.Status != domain.EligibilityNotAuthenticated {
			t.Errorf("expected not_authenticated, got %+v (%v)", got, err)
		}
	})

	t.Run("missing listing id", func(t *testing.T) {
		f := newFixture(t)

		got, err := f.useCase.CanReview(context.Background(), CanReviewInput{Actor: f.actor(f.buyer)})

		if err != nil || got.Status != domain.EligibilityMissingListingID {
			t.Errorf("expected missing_listing_id, got %+v (%v)", got, err)
		}
	})

	t.Run("no completed purchase", func(t *testing.T) {
		f := newFixture(t)
		f.placeOrder(t, f.buyer.ID, orderdomain.OrderStatusProcessing)

		got, err := f.useCase.CanReview(context.Background(), CanReviewInput{Actor: f.actor(f.buyer), ListingID: f.listing})

		if err != nil || got.Status != domain.EligibilityNoPurchase {
			t.Errorf("expected no_purchase, got %+v (%v)", got, err)
		}
	})

	t.Run("eligible", func(t *testing.T) {
		f := newFixture(t)
		order := f.placeOrder(t, f.buyer.ID, orderdomain.OrderStatusCompleted)

		got, err := f.useCase.CanReview(context.Background(), CanReviewInput{Actor: f.actor(f.buyer), ListingID: f.listing})

		if err != nil || got.Status != domain.EligibilityEligible || got.OrderID != order.ID || !got.CanReview() {
			t.Errorf("expected eligible for order %d, got %+v (%v)", order.ID, got, err)
		}
	})

	t.Run("already reviewed", func(t *testing.T) {
		f := newFixture(t)
		r := f.review(t, f.buyer, 4)

		got, err := f.useCase.CanReview(context.Background(), CanReviewInput{Actor: f.actor(f.buyer), ListingID: f.listing})

		if err != nil || got.Status != domain.EligibilityAlreadyReviewed || got.ReviewID != r.Review.ID || got.CanReview() {
			t.Errorf("expected already_reviewed with review %d, got %+v (%v)", r.Review.ID, got, err)
		}
	})
}

func TestListReviews(t *testing.T) {
	f := newFixture(t)
	f.review(t, f.buyer, 4)
	f.review(t, f.buyer2, 2)

	bySeller, err := f.useCase.ListReviews(context.Background(), ListReviewsInput{SellerID: f.seller.ID})
	if err != nil || len(bySeller) != 2 {
		t.Errorf("expected two reviews, got %d (%v)", len(bySeller), err)
	}

	_, err = f.useCase.ListReviews(context.Background(), ListReviewsInput{})
	assertCode(t, err, errors.CodeValidation)
}
