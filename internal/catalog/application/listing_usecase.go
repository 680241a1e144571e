package application

import (
	"context"
	"time"

	"digimarket/internal/catalog/domain"
	"digimarket/internal/catalog/ports"
	"digimarket/pkg/auth"
	"digimarket/pkg/errors"
	"digimarket/pkg/logger"

	"go.uber.org/zap"
)

// ListingUseCase handles listing business logic
type ListingUseCase struct {
	listings ports.ListingRepository
	users    ports.UserRepository
	log      *logger.Logger
}

// NewListingUseCase creates a new listing use case
func NewListingUseCase(listings ports.ListingRepository, users ports.UserRepository, log *logger.Logger) *ListingUseCase {
	return &ListingUseCase{
		listings: listings,
		users:    users,
		log:      log,
	}
}

// CreateListingInput represents the input for creating a listing
type CreateListingInput struct {
	Actor       auth.Actor
	Title       string
	Description string
	Category    string
	Price       float64
}

// CreateListingOutput represents the output of creating a listing
type CreateListingOutput struct {
	Listing *domain.Listing
}

// CreateListing publishes a new listing owned by the actor
func (uc *ListingUseCase) CreateListing(ctx context.Context, input CreateListingInput) (*CreateListingOutput, error) {
	if !input.Actor.IsAuthenticated() {
		return nil, errors.NewUnauthorized("authentication required")
	}

	if _, err := uc.users.GetByID(ctx, input.Actor.UserID); err != nil {
		return nil, err
	}

	listing, err := domain.NewListing(input.Actor.UserID, input.Title, input.Description, input.Category, input.Price, time.Now())
	if err != nil {
		return nil, err
	}

	if err := uc.listings.Create(ctx, listing); err != nil {
		return nil, errors.Internalize(err, "failed to create listing")
	}

	uc.log.WithContext(ctx).Info("listing created",
		zap.Uint("listing_id", listing.ID),
		zap.Uint("seller_id", listing.SellerID),
		zap.Float64("price", listing.Price),
	)

	return &CreateListingOutput{Listing: listing}, nil
}

// GetListing retrieves a listing by ID
func (uc *ListingUseCase) GetListing(ctx context.Context, id uint) (*domain.Listing, error) {
	return uc.listings.GetByID(ctx, id)
}

// SearchListings returns listings matching the filter. Only ACTIVE
// listings are returned unless another status is asked for.
func (uc *ListingUseCase) SearchListings(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error) {
	filter.Normalize()
	if !filter.Status.Valid() {
		return nil, domain.ErrListingStatusInvalid
	}
	return uc.listings.Search(ctx, filter)
}

// UpdateListingStatusInput represents the input for changing listing availability
type UpdateListingStatusInput struct {
	Actor     auth.Actor
	ListingID uint
	Status    domain.ListingStatus
}

// UpdateListingStatus activates or deactivates a listing
func (uc *ListingUseCase) UpdateListingStatus(ctx context.Context, input UpdateListingStatusInput) (*domain.Listing, error) {
	if input.Status != domain.ListingStatusActive && input.Status != domain.ListingStatusInactive {
		return nil, errors.NewValidation("status must be ACTIVE or INACTIVE", nil)
	}

	listing, err := uc.listings.GetByID(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if !input.Actor.Is(listing.SellerID) && !input.Actor.IsAdmin() {
		return nil, domain.ErrNotListingOwner
	}
	if listing.Status == domain.ListingStatusSold {
		return nil, domain.ErrListingSold
	}

	if err := uc.listings.UpdateStatus(ctx, listing.ID, input.Status); err != nil {
		return nil, err
	}
	listing.Status = input.Status

	uc.log.WithContext(ctx).Info("listing status updated",
		zap.Uint("listing_id", listing.ID),
		zap.String("status", string(listing.Status)),
		zap.Uint("actor_id", input.Actor.UserID),
	)

	return listing, nil
}
