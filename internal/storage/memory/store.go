// Package memory is an in-process store for local runs and tests. A unit of
// work holds the store mutex from Begin until Commit or Rollback, so
// transactions are serialized. Rollback restores a snapshot taken at Begin.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	catalogdomain "digimarket/internal/catalog/domain"
	catalogports "digimarket/internal/catalog/ports"
	notificationdomain "digimarket/internal/notifications/domain"
	notificationports "digimarket/internal/notifications/ports"
	orderdomain "digimarket/internal/orders/domain"
	orderports "digimarket/internal/orders/ports"
	outboxdomain "digimarket/internal/outbox/domain"
	outboxports "digimarket/internal/outbox/ports"
	reviewdomain "digimarket/internal/reviews/domain"
	reviewports "digimarket/internal/reviews/ports"
)

// ErrNoTransaction is returned by Commit and Rollback without Begin
var ErrNoTransaction = errors.New("memory: no transaction in progress")

type table[T any] struct {
	rows map[uint]T
	next uint
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[uint]T)}
}

func (t *table[T]) insert(row T) uint {
	t.next++
	t.rows[t.next] = row
	return t.next
}

func (t *table[T]) clone() *table[T] {
	c := &table[T]{rows: make(map[uint]T, len(t.rows)), next: t.next}
	for k, v := range t.rows {
		c.rows[k] = v
	}
	return c
}

type state struct {
	users         *table[catalogdomain.User]
	listings      *table[catalogdomain.Listing]
	orders        *table[orderdomain.Order]
	reviews       *table[reviewdomain.Review]
	notifications *table[notificationdomain.Notification]
	events        *table[outboxdomain.Event]
}

func newState() *state {
	return &state{
		users:         newTable[catalogdomain.User](),
		listings:      newTable[catalogdomain.Listing](),
		orders:        newTable[orderdomain.Order](),
		reviews:       newTable[reviewdomain.Review](),
		notifications: newTable[notificationdomain.Notification](),
		events:        newTable[outboxdomain.Event](),
	}
}

func (s *state) clone() *state {
	return &state{
		users:         s.users.clone(),
		listings:      s.listings.clone(),
		orders:        s.orders.clone(),
		reviews:       s.reviews.clone(),
		notifications: s.notifications.clone(),
		events:        s.events.clone(),
	}
}

// Store holds every table of the marketplace
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{state: newState(), now: time.Now}
}

// UnitOfWork is a transaction over the store. It satisfies the unit of work
// ports of orders and reviews.
type UnitOfWork struct {
	store    *Store
	snapshot *state
	inTx     bool
}

// NewUnitOfWork creates a unit of work bound to the store
func (s *Store) NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{store: s}
}

// Begin locks the store. Calling it twice is a no-op.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.inTx {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	u.store.mu.Lock()
	u.snapshot = u.store.state.clone()
	u.inTx = true
	return nil
}

// Commit keeps the changes and unlocks the store
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if !u.inTx {
		return ErrNoTransaction
	}
	u.snapshot = nil
	u.inTx = false
	u.store.mu.Unlock()
	return nil
}

// Rollback restores the snapshot taken at Begin and unlocks the store
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if !u.inTx {
		return ErrNoTransaction
	}
	u.store.state = u.snapshot
	u.snapshot = nil
	u.inTx = false
	u.store.mu.Unlock()
	return nil
}

// access runs fn against the live state, taking the lock unless the unit
// of work already holds it
func (s *Store) access(uow *UnitOfWork, fn func(st *state) error) error {
	if uow == nil || !uow.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.state)
}

// OrderRepository returns the order repository of the unit of work
func (u *UnitOfWork) OrderRepository() orderports.OrderRepository {
	return &orderRepository{store: u.store, uow: u}
}

// ListingRepository returns the listing repository of the unit of work
func (u *UnitOfWork) ListingRepository() catalogports.ListingRepository {
	return &listingRepository{store: u.store, uow: u}
}

// UserRepository returns the user repository of the unit of work
func (u *UnitOfWork) UserRepository() catalogports.UserRepository {
	return &userRepository{store: u.store, uow: u}
}

// ReviewRepository returns the review repository of the unit of work
func (u *UnitOfWork) ReviewRepository() reviewports.ReviewRepository {
	return &reviewRepository{store: u.store, uow: u}
}

// NotificationRepository returns the notification repository of the unit of work
func (u *UnitOfWork) NotificationRepository() notificationports.NotificationRepository {
	return &notificationRepository{store: u.store, uow: u}
}

// OutboxRepository returns the outbox repository of the unit of work
func (u *UnitOfWork) OutboxRepository() outboxports.Repository {
	return &outboxRepository{store: u.store, uow: u}
}

// Users returns a user repository outside any transaction
func (s *Store) Users() catalogports.UserRepository {
	return &userRepository{store: s}
}

// Listings returns a listing repository outside any transaction
func (s *Store) Listings() catalogports.ListingRepository {
	return &listingRepository{store: s}
}

// Orders returns an order repository outside any transaction
func (s *Store) Orders() orderports.OrderRepository {
	return &orderRepository{store: s}
}

// Reviews returns a review repository outside any transaction
func (s *Store) Reviews() reviewports.ReviewRepository {
	return &reviewRepository{store: s}
}

// Notifications returns a notification repository outside any transaction
func (s *Store) Notifications() notificationports.NotificationRepository {
	return &notificationRepository{store: s}
}

// Outbox returns an outbox repository outside any transaction
func (s *Store) Outbox() outboxports.Repository {
	return &outboxRepository{store: s}
}

func page[T any](rows []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(rows) {
			return rows[:0]
		}
		rows = rows[offset:]
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}
