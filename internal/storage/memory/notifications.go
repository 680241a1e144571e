package memory

import (
	"context"
	"sort"
	"time"

	notificationdomain "digimarket/internal/notifications/domain"
	outboxdomain "digimarket/internal/outbox/domain"
)

type notificationRepository struct {
	store *Store
	uow   *UnitOfWork
}

func (r *notificationRepository) Create(ctx context.Context, n *notificationdomain.Notification) error {
	return r.store.access(r.uow, func(st *state) error {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = r.store.now()
		}
		n.ID = st.notifications.insert(*n)
		st.notifications.rows[n.ID] = *n
		return nil
	})
}

func (r *notificationRepository) GetByID(ctx context.Context, id uint) (*notificationdomain.Notification, error) {
	var out *notificationdomain.Notification
	err := r.store.access(r.uow, func(st *state) error {
		n, ok := st.notifications.rows[id]
		if !ok {
			return notificationdomain.NewNotFound(id)
		}
		out = &n
		return nil
	})
	return out, err
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uint, unreadOnly bool) ([]*notificationdomain.Notification, error) {
	var out []*notificationdomain.Notification
	err := r.store.access(r.uow, func(st *state) error {
		for _, n := range st.notifications.rows {
			if n.UserID != userID || (unreadOnly && n.Read) {
				continue
			}
			row := n
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
	return out, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint) error {
	return r.store.access(r.uow, func(st *state) error {
		n, ok := st.notifications.rows[id]
		if !ok {
			return notificationdomain.NewNotFound(id)
		}
		n.Read = true
		st.notifications.rows[id] = n
		return nil
	})
}

type outboxRepository struct {
	store *Store
	uow   *UnitOfWork
}

func (r *outboxRepository) Add(ctx context.Context, event *outboxdomain.Event) error {
	return r.store.access(r.uow, func(st *state) error {
		if event.CreatedAt.IsZero() {
			event.CreatedAt = r.store.now()
		}
		if event.Status == "" {
			event.Status = outboxdomain.StatusPending
		}
		event.ID = st.events.insert(*event)
		st.events.rows[event.ID] = *event
		return nil
	})
}

func (r *outboxRepository) FetchPending(ctx context.Context, limit int) ([]*outboxdomain.Event, error) {
	var out []*outboxdomain.Event
	err := r.store.access(r.uow, func(st *state) error {
		for _, e := range st.events.rows {
			if e.Status == outboxdomain.StatusPending {
				row := e
				out = append(out, &row)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, 0), nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, id uint, at time.Time) error {
	return r.store.access(r.uow, func(st *state) error {
		e, ok := st.events.rows[id]
		if !ok {
			return nil
		}
		e.Status = outboxdomain.StatusPublished
		e.PublishedAt = cloneTime(&at)
		st.events.rows[id] = e
		return nil
	})
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uint, reason string) error {
	return r.store.access(r.uow, func(st *state) error {
		e, ok := st.events.rows[id]
		if !ok {
			return nil
		}
		e.Attempts++
		e.LastError = reason
		st.events.rows[id] = e
		return nil
	})
}
