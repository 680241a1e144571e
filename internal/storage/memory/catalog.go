package memory

import (
	"context"
	"sort"
	"strings"

	"digimarket/internal/catalog/domain"
	"digimarket/pkg/auth"
	apperrors "digimarket/pkg/errors"
)

type userRepository struct {
	store *Store
	uow   *UnitOfWork
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.store.access(r.uow, func(st *state) error {
		for _, u := range st.users.rows {
			if strings.EqualFold(u.Email, user.Email) {
				return domain.ErrEmailExists
			}
		}
		now := r.store.now()
		if user.CreatedAt.IsZero() {
			user.CreatedAt = now
		}
		user.UpdatedAt = now
		row := *user
		row.SellerRating = cloneFloat(user.SellerRating)
		user.ID = st.users.insert(row)
		row.ID = user.ID
		st.users.rows[user.ID] = row
		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var out *domain.User
	err := r.store.access(r.uow, func(st *state) error {
		u, ok := st.users.rows[id]
		if !ok {
			return domain.NewUserNotFound(id)
		}
		u.SellerRating = cloneFloat(u.SellerRating)
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.store.access(r.uow, func(st *state) error {
		for _, u := range st.users.rows {
			if strings.EqualFold(u.Email, email) {
				u.SellerRating = cloneFloat(u.SellerRating)
				out = &u
				return nil
			}
		}
		return apperrors.NewNotFound("user", email)
	})
	return out, err
}

func (r *userRepository) update(id uint, fn func(u *domain.User)) error {
	return r.store.access(r.uow, func(st *state) error {
		u, ok := st.users.rows[id]
		if !ok {
			return domain.NewUserNotFound(id)
		}
		fn(&u)
		u.UpdatedAt = r.store.now()
		st.users.rows[id] = u
		return nil
	})
}

func (r *userRepository) IncrementSellerStats(ctx context.Context, sellerID uint) error {
	return r.update(sellerID, func(u *domain.User) {
		u.TotalSales++
		u.CompletedOrders++
	})
}

func (r *userRepository) SetSellerRating(ctx context.Context, sellerID uint, rating *float64) error {
	return r.update(sellerID, func(u *domain.User) {
		u.SellerRating = cloneFloat(rating)
	})
}

func (r *userRepository) UpdateRole(ctx context.Context, id uint, role auth.Role) error {
	return r.update(id, func(u *domain.User) {
		u.Role = role
	})
}

type listingRepository struct {
	store *Store
	uow   *UnitOfWork
}

func (r *listingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	return r.store.access(r.uow, func(st *state) error {
		now := r.store.now()
		if listing.CreatedAt.IsZero() {
			listing.CreatedAt = now
		}
		listing.UpdatedAt = now
		listing.ID = st.listings.insert(*listing)
		st.listings.rows[listing.ID] = *listing
		return nil
	})
}

func (r *listingRepository) GetByID(ctx context.Context, id uint) (*domain.Listing, error) {
	var out *domain.Listing
	err := r.store.access(r.uow, func(st *state) error {
		l, ok := st.listings.rows[id]
		if !ok {
			return domain.NewListingNotFound(id)
		}
		out = &l
		return nil
	})
	return out, err
}

func (r *listingRepository) Search(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, error) {
	var out []*domain.Listing
	err := r.store.access(r.uow, func(st *state) error {
		for _, l := range st.listings.rows {
			if filter.Matches(&l) {
				row := l
				out = append(out, &row)
			}
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

func (r *listingRepository) update(id uint, fn func(l *domain.Listing)) error {
	return r.store.access(r.uow, func(st *state) error {
		l, ok := st.listings.rows[id]
		if !ok {
			return domain.NewListingNotFound(id)
		}
		fn(&l)
		l.UpdatedAt = r.store.now()
		st.listings.rows[id] = l
		return nil
	})
}

func (r *listingRepository) UpdateStatus(ctx context.Context, id uint, status domain.ListingStatus) error {
	return r.update(id, func(l *domain.Listing) {
		l.Status = status
	})
}

func (r *listingRepository) MarkSold(ctx context.Context, id uint) error {
	return r.update(id, func(l *domain.Listing) {
		l.Status = domain.ListingStatusSold
		l.Sales++
	})
}
