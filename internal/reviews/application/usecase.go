package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	notificationapp "digimarket/internal/notifications/application"
	notificationdomain "digimarket/internal/notifications/domain"
	orderdomain "digimarket/internal/orders/domain"
	outboxdomain "digimarket/internal/outbox/domain"
	"digimarket/internal/reviews/domain"
	"digimarket/internal/reviews/ports"
	"digimarket/pkg/auth"
	"digimarket/pkg/errors"
	"digimarket/pkg/events"
	"digimarket/pkg/logger"

	"go.uber.org/zap"
)

// ReviewUseCase handles reviews and keeps seller ratings in step with them
type ReviewUseCase struct {
	uowFactory ports.UnitOfWorkFactory
	log        *logger.Logger
	now        func() time.Time
}

// NewReviewUseCase creates a new review use case
func NewReviewUseCase(uowFactory ports.UnitOfWorkFactory, log *logger.Logger) *ReviewUseCase {
	return &ReviewUseCase{
		uowFactory: uowFactory,
		log:        log,
		now:        time.Now,
	}
}

func (uc *ReviewUseCase) withinTx(ctx context.Context, fn func(uow ports.UnitOfWork) error) error {
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

// CanReviewInput represents the input for an eligibility check
type CanReviewInput struct {
	Actor     auth.Actor
	ListingID uint
}

// CanReview tells the actor whether they may review the listing. Missing
// identity or listing are reported as outcomes, not errors.
func (uc *ReviewUseCase) CanReview(ctx context.Context, input CanReviewInput) (*domain.ReviewEligibility, error) {
	if !input.Actor.IsAuthenticated() {
		return &domain.ReviewEligibility{Status: domain.EligibilityNotAuthenticated}, nil
	}
	if input.ListingID == 0 {
		return &domain.ReviewEligibility{Status: domain.EligibilityMissingListingID}, nil
	}

	uow := uc.uowFactory.Create()
	order, err := uow.OrderRepository().FindCompletedByBuyerAndListing(ctx, input.Actor.UserID, input.ListingID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return &domain.ReviewEligibility{Status: domain.EligibilityNoPurchase}, nil
		}
		return nil, errors.Internalize(err, "failed to look up purchase")
	}

	existing, err := uow.ReviewRepository().FindByGiverAndListing(ctx, input.Actor.UserID, input.ListingID)
	if err == nil {
		return &domain.ReviewEligibility{Status: domain.EligibilityAlreadyReviewed, ReviewID: existing.ID}, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, errors.Internalize(err, "failed to look up review")
	}

	return &domain.ReviewEligibility{Status: domain.EligibilityEligible, OrderID: order.ID}, nil
}

// CreateReviewInput represents the input for creating a review
type CreateReviewInput struct {
	Actor   auth.Actor
	OrderID uint
	Rating  int
	Comment string
}

// ReviewOutput is a review together with the seller rating after the change
type ReviewOutput struct {
	Review       *domain.Review
	SellerRating *float64
}

// CreateReview lets the buyer of a COMPLETED order review it once
func (uc *ReviewUseCase) CreateReview(ctx context.Context, input CreateReviewInput) (*ReviewOutput, error) {
	if !input.Actor.IsAuthenticated() {
		return nil, errors.NewUnauthorized("authentication required")
	}
	if input.OrderID == 0 {
		return nil, domain.ErrOrderRequired
	}
	if err := domain.ValidateRating(input.Rating); err != nil {
		return nil, err
	}
	if err := domain.ValidateComment(strings.TrimSpace(input.Comment)); err != nil {
		return nil, err
	}

	var out ReviewOutput
	err := uc.withinTx(ctx, func(uow ports.UnitOfWork) error {
		order, err := uow.OrderRepository().GetForUpdate(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if order.BuyerID != input.Actor.UserID {
			return domain.ErrNotBuyer
		}
		if order.Status != orderdomain.OrderStatusCompleted {
			return domain.ErrOrderNotComplete
		}

		_, err = uow.ReviewRepository().GetByOrderID(ctx, order.ID)
		if err == nil {
			return domain.ErrAlreadyReviewed
		}
		if !errors.Is(err, errors.CodeNotFound) {
			return errors.Internalize(err, "failed to look up review")
		}

		review, err := domain.NewReview(order.ID, order.ListingID, order.BuyerID, order.SellerID, input.Rating, input.Comment, uc.now())
		if err != nil {
			return err
		}
		if err := uow.ReviewRepository().Create(ctx, review); err != nil {
			return errors.Internalize(err, "failed to create review")
		}

		rating, err := uc.refreshSellerRating(ctx, uow, review.SellerID)
		if err != nil {
			return err
		}
		out = ReviewOutput{Review: review, SellerRating: rating}

		msg := fmt.Sprintf("You received a %d-star review for order %s.", review.Rating, order.OrderNumber)
		if err := uc.notifySeller(ctx, uow, review.SellerID, "New Review", msg); err != nil {
			return err
		}
		return uc.recordEvent(ctx, uow, events.RoutingKeyReviewCreated, review, rating)
	})
	if err != nil {
		return nil, err
	}

	uc.log.WithContext(ctx).Info("review created",
		zap.Uint("review_id", out.Review.ID),
		zap.Uint("order_id", out.Review.OrderID),
		zap.Uint("seller_id", out.Review.SellerID),
		zap.Int("rating", out.Review.Rating),
	)

	return &out, nil
}

// UpdateReviewInput represents a partial review update
type UpdateReviewInput struct {
	Actor    auth.Actor
	ReviewID uint
	Rating   *int
	Comment  *string
}

// UpdateReview lets the author or an admin change a review
func (uc *ReviewUseCase) UpdateReview(ctx context.Context, input UpdateReviewInput) (*ReviewOutput, error) {
	if !input.Actor.IsAuthenticated() {
		return nil, errors.NewUnauthorized("authentication required")
	}
	if input.Rating == nil && input.Comment == nil {
		return nil, domain.ErrNothingToUpdate
	}
	if input.Rating != nil {
		if err := domain.ValidateRating(*input.Rating); err != nil {
			return nil, err
		}
	}
	var comment string
	if input.Comment != nil {
		comment = strings.TrimSpace(*input.Comment)
		if err := domain.ValidateComment(comment); err != nil {
			return nil, err
		}
	}

	var out ReviewOutput
	err := uc.withinTx(ctx, func(uow ports.UnitOfWork) error {
		review, err := uow.ReviewRepository().GetByID(ctx, input.ReviewID)
		if err != nil {
			return err
		}
		if !review.CanBeModifiedBy(input.Actor) {
			return domain.ErrNotGiver
		}

		ratingChanged := input.Rating != nil && *input.Rating != review.Rating
		if input.Rating != nil {
			review.Rating = *input.Rating
		}
		if input.Comment != nil {
			review.Comment = comment
		}
		if err := uow.ReviewRepository().Update(ctx, review); err != nil {
			return errors.Internalize(err, "failed to update review")
		}

		out.Review = review
		if ratingChanged {
			if out.SellerRating, err = uc.refreshSellerRating(ctx, uow, review.SellerID); err != nil {
				return err
			}
			msg := fmt.Sprintf("A review of yours now has %d stars.", review.Rating)
			if err := uc.notifySeller(ctx, uow, review.SellerID, "Review Updated", msg); err != nil {
				return err
			}
		} else if out.SellerRating, err = uc.currentSellerRating(ctx, uow, review.SellerID); err != nil {
			return err
		}

		return uc.recordEvent(ctx, uow, events.RoutingKeyReviewUpdated, review, out.SellerRating)
	})
	if err != nil {
		return nil, err
	}

	uc.log.WithContext(ctx).Info("review updated",
		zap.Uint("review_id", out.Review.ID),
		zap.Uint("actor_id", input.Actor.UserID),
	)

	return &out, nil
}

// DeleteReviewInput represents the input for deleting a review
type DeleteReviewInput struct {
	Actor    auth.Actor
	ReviewID uint
}

// DeleteReview removes a review and recomputes the seller rating from the
// remaining ones
func (uc *ReviewUseCase) DeleteReview(ctx context.Context, input DeleteReviewInput) (*ReviewOutput, error) {
	if !input.Actor.IsAuthenticated() {
		return nil, errors.NewUnauthorized("authentication required")
	}

	var out ReviewOutput
	err := uc.withinTx(ctx, func(uow ports.UnitOfWork) error {
		review, err := uow.ReviewRepository().GetByID(ctx, input.ReviewID)
		if err != nil {
			return err
		}
		if !review.CanBeModifiedBy(input.Actor) {
			return domain.ErrNotGiver
		}

		if err := uow.ReviewRepository().Delete(ctx, review.ID); err != nil {
			return errors.Internalize(err, "failed to delete review")
		}

		rating, err := uc.refreshSellerRating(ctx, uow, review.SellerID)
		if err != nil {
			return err
		}
		out = ReviewOutput{Review: review, SellerRating: rating}

		if err := uc.notifySeller(ctx, uow, review.SellerID, "Review Removed", "A review you received was removed."); err != nil {
			return err
		}
		return uc.recordEvent(ctx, uow, events.RoutingKeyReviewDeleted, review, rating)
	})
	if err != nil {
		return nil, err
	}

	uc.log.WithContext(ctx).Info("review deleted",
		zap.Uint("review_id", out.Review.ID),
		zap.Uint("actor_id", input.Actor.UserID),
	)

	return &out, nil
}

// ListReviewsInput selects reviews of a listing or a seller
type ListReviewsInput struct {
	ListingID uint
	SellerID  uint
	Limit     int
	Offset    int
}

// ListReviews returns reviews, newest first
func (uc *ReviewUseCase) ListReviews(ctx context.Context, input ListReviewsInput) ([]*domain.Review, error) {
	if input.ListingID == 0 && input.SellerID == 0 {
		return nil, domain.ErrListFilter
	}

	filter := ports.ReviewFilter{
		ListingID: input.ListingID,
		SellerID:  input.SellerID,
		Limit:     input.Limit,
		Offset:    input.Offset,
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return uc.uowFactory.Create().ReviewRepository().List(ctx, filter)
}

// refreshSellerRating stores the mean over the seller's remaining reviews
func (uc *ReviewUseCase) refreshSellerRating(ctx context.Context, uow ports.UnitOfWork, sellerID uint) (*float64, error) {
	rating, err := uc.currentSellerRating(ctx, uow, sellerID)
	if err != nil {
		return nil, err
	}
	if err := uow.UserRepository().SetSellerRating(ctx, sellerID, rating); err != nil {
		return nil, errors.Internalize(err, "failed to store seller rating")
	}
	return rating, nil
}

func (uc *ReviewUseCase) currentSellerRating(ctx context.Context, uow ports.UnitOfWork, sellerID uint) (*float64, error) {
	rating, err := uow.ReviewRepository().AverageRatingForSeller(ctx, sellerID)
	if err != nil {
		return nil, errors.Internalize(err, "failed to compute seller rating")
	}
	return rating, nil
}

func (uc *ReviewUseCase) notifySeller(ctx context.Context, uow ports.UnitOfWork, sellerID uint, title, message string) error {
	return notificationapp.Send(ctx, uow.NotificationRepository(), uc.now(), notificationapp.Message{
		UserID:  sellerID,
		Type:    notificationdomain.TypeReview,
		Title:   title,
		Message: message,
	})
}

func (uc *ReviewUseCase) recordEvent(ctx context.Context, uow ports.UnitOfWork, routingKey string, review *domain.Review, sellerRating *float64) error {
	now := uc.now()
	message := events.NewReviewEvent(routingKey, events.ReviewPayload{
		ID:           review.ID,
		OrderID:      review.OrderID,
		ListingID:    review.ListingID,
		GiverID:      review.GiverID,
		SellerID:     review.SellerID,
		Rating:       review.Rating,
		SellerRating: sellerRating,
	}, logger.GetTraceID(ctx), now)

	event, err := outboxdomain.NewEvent(routingKey, message, now)
	if err != nil {
		return errors.NewInternal("failed to build review event", err)
	}
	return errors.Internalize(uow.OutboxRepository().Add(ctx, event), "failed to record review event")
}
