package memory

import (
	"context"
	"sort"

	"digimarket/internal/reviews/domain"
	"digimarket/internal/reviews/ports"
	apperrors "digimarket/pkg/errors"
)

type reviewRepository struct {
	store *Store
	uow   *UnitOfWork
}

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	return r.store.access(r.uow, func(st *state) error {
		for _, existing := range st.reviews.rows {
			if existing.OrderID == review.OrderID {
				return domain.ErrAlreadyReviewed
			}
		}
		now := r.store.now()
		if review.CreatedAt.IsZero() {
			review.CreatedAt = now
		}
		review.UpdatedAt = now
		review.ID = st.reviews.insert(*review)
		st.reviews.rows[review.ID] = *review
		return nil
	})
}

func (r *reviewRepository) GetByID(ctx context.Context, id uint) (*domain.Review, error) {
	return r.find(func(rv *domain.Review) bool { return rv.ID == id }, domain.NewReviewNotFound(id))
}

func (r *reviewRepository) GetByOrderID(ctx context.Context, orderID uint) (*domain.Review, error) {
	return r.find(func(rv *domain.Review) bool { return rv.OrderID == orderID },
		apperrors.NewNotFound("review for order", orderID))
}

func (r *reviewRepository) FindByGiverAndListing(ctx context.Context, giverID, listingID uint) (*domain.Review, error) {
	return r.find(func(rv *domain.Review) bool { return rv.GiverID == giverID && rv.ListingID == listingID },
		apperrors.NewNotFound("review for listing", listingID))
}

func (r *reviewRepository) find(match func(*domain.Review) bool, notFound error) (*domain.Review, error) {
	var out *domain.Review
	err := r.store.access(r.uow, func(st *state) error {
		for _, rv := range st.reviews.rows {
			if match(&rv) && (out == nil || rv.ID < out.ID) {
				row := rv
				out = &row
			}
		}
		if out == nil {
			return notFound
		}
		return nil
	})
	return out, err
}

func (r *reviewRepository) Update(ctx context.Context, review *domain.Review) error {
	return r.store.access(r.uow, func(st *state) error {
		existing, ok := st.reviews.rows[review.ID]
		if !ok {
			return domain.NewReviewNotFound(review.ID)
		}
		existing.Rating = review.Rating
		existing.Comment = review.Comment
		existing.UpdatedAt = r.store.now()
		st.reviews.rows[review.ID] = existing
		review.UpdatedAt = existing.UpdatedAt
		return nil
	})
}

func (r *reviewRepository) Delete(ctx context.Context, id uint) error {
	return r.store.access(r.uow, func(st *state) error {
		if _, ok := st.reviews.rows[id]; !ok {
			return domain.NewReviewNotFound(id)
		}
		delete(st.reviews.rows, id)
		return nil
	})
}

func (r *reviewRepository) AverageRatingForSeller(ctx context.Context, sellerID uint) (*float64, error) {
	var ratings []int
	err := r.store.access(r.uow, func(st *state) error {
		for _, rv := range st.reviews.rows {
			if rv.SellerID == sellerID {
				ratings = append(ratings, rv.Rating)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return domain.AverageRating(ratings), nil
}

func (r *reviewRepository) List(ctx context.Context, filter ports.ReviewFilter) ([]*domain.Review, error) {
	var out []*domain.Review
	err := r.store.access(r.uow, func(st *state) error {
		for _, rv := range st.reviews.rows {
			if filter.ListingID != 0 && rv.ListingID != filter.ListingID {
				continue
			}
			if filter.SellerID != 0 && rv.SellerID != filter.SellerID {
				continue
			}
			row := rv
			out = append(out, &row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, filter.Limit, filter.Offset), nil
}
