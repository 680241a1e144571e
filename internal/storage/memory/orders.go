package memory

import (
	"context"
	"sort"
	"time"

	"digimarket/internal/orders/domain"
	"digimarket/internal/orders/ports"
	apperrors "digimarket/pkg/errors"
)

type orderRepository struct {
	store *Store
	uow   *UnitOfWork
}

func cloneOrder(o domain.Order) *domain.Order {
	o.CompletedAt = cloneTime(o.CompletedAt)
	return &o
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.store.access(r.uow, func(st *state) error {
		for _, o := range st.orders.rows {
			if o.OrderNumber == order.OrderNumber {
				return domain.ErrOrderNumberTaken
			}
		}
		now := r.store.now()
		if order.CreatedAt.IsZero() {
			order.CreatedAt = now
		}
		order.UpdatedAt = now
		order.ID = st.orders.insert(domain.Order{})
		st.orders.rows[order.ID] = *cloneOrder(*order)
		return nil
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id uint) (*domain.Order, error) {
	var out *domain.Order
	err := r.store.access(r.uow, func(st *state) error {
		o, ok := st.orders.rows[id]
		if !ok {
			return domain.NewOrderNotFound(id)
		}
		out = cloneOrder(o)
		return nil
	})
	return out, err
}

// GetForUpdate needs no extra locking, the unit of work already holds the store
func (r *orderRepository) GetForUpdate(ctx context.Context, id uint) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *orderRepository) List(ctx context.Context, filter ports.OrderFilter) ([]*domain.Order, error) {
	var out []*domain.Order
	err := r.store.access(r.uow, func(st *state) error {
		for _, o := range st.orders.rows {
			if filter.BuyerID != 0 && o.BuyerID != filter.BuyerID {
				continue
			}
			if filter.SellerID != 0 && o.SellerID != filter.SellerID {
				continue
			}
			if filter.PartyID != 0 && !o.IsParty(filter.PartyID) {
				continue
			}
			if filter.Status != "" && o.Status != filter.Status {
				continue
			}
			out = append(out, cloneOrder(o))
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

func (r *orderRepository) TransitionStatus(ctx context.Context, id uint, from, to domain.OrderStatus, completedAt *time.Time) error {
	return r.store.access(r.uow, func(st *state) error {
		o, ok := st.orders.rows[id]
		if !ok {
			return domain.NewOrderNotFound(id)
		}
		if o.Status != from {
			return domain.NewInvalidTransition(o.Status, to)
		}
		o.Status = to
		if completedAt != nil {
			o.CompletedAt = cloneTime(completedAt)
		}
		o.UpdatedAt = r.store.now()
		st.orders.rows[id] = o
		return nil
	})
}

func (r *orderRepository) update(id uint, fn func(o *domain.Order)) error {
	return r.store.access(r.uow, func(st *state) error {
		o, ok := st.orders.rows[id]
		if !ok {
			return domain.NewOrderNotFound(id)
		}
		fn(&o)
		o.UpdatedAt = r.store.now()
		st.orders.rows[id] = o
		return nil
	})
}

func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, id uint, status domain.PaymentStatus) error {
	return r.update(id, func(o *domain.Order) {
		o.PaymentStatus = status
	})
}

func (r *orderRepository) UpdateDeliveryStatus(ctx context.Context, id uint, status domain.DeliveryStatus) error {
	return r.update(id, func(o *domain.Order) {
		o.DeliveryStatus = status
	})
}

func (r *orderRepository) FindCompletedByBuyerAndListing(ctx context.Context, buyerID, listingID uint) (*domain.Order, error) {
	var out *domain.Order
	err := r.store.access(r.uow, func(st *state) error {
		for _, o := range st.orders.rows {
			if o.BuyerID != buyerID || o.ListingID != listingID || o.Status != domain.OrderStatusCompleted {
				continue
			}
			if out == nil || laterCompletion(&o, out) {
				out = cloneOrder(o)
			}
		}
		if out == nil {
			return apperrors.NewNotFound("completed order for listing", listingID)
		}
		return nil
	})
	return out, err
}

func laterCompletion(a, b *domain.Order) bool {
	if a.CompletedAt != nil && b.CompletedAt != nil && !a.CompletedAt.Equal(*b.CompletedAt) {
		return a.CompletedAt.After(*b.CompletedAt)
	}
	return a.ID > b.ID
}
