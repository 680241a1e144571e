package application

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"digimarket/internal/outbox/ports"
	"digimarket/pkg/logger"
)

// Relay publishes pending outbox events on a cron schedule
type Relay struct {
	repo      ports.Repository
	publisher ports.Publisher
	batchSize int
	schedule  string
	cron      *cron.Cron
	log       *logger.Logger
	now       func() time.Time

	// a slow tick must not overlap the next one
	mu sync.Mutex
}

// NewRelay creates a relay. schedule uses the robfig/cron descriptor
// syntax, for example "@every 5s".
func NewRelay(repo ports.Repository, publisher ports.Publisher, schedule string, batchSize int, log *logger.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Relay{
		repo:      repo,
		publisher: publisher,
		batchSize: batchSize,
		schedule:  schedule,
		cron:      cron.New(),
		log:       log,
		now:       time.Now,
	}
}

// Start schedules the relay
func (r *Relay) Start() error {
	_, err := r.cron.AddFunc(r.schedule, func() {
		ctx := context.Background()
		if _, err := r.RunOnce(ctx); err != nil {
			r.log.WithContext(ctx).Error("outbox relay tick failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	r.log.Info("outbox relay started", zap.String("schedule", r.schedule))
	return nil
}

// Stop stops scheduling and waits for a running tick to finish
func (r *Relay) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info("outbox relay stopped")
}

// RunOnce publishes one batch of pending events and returns how many were
// delivered. A failed event stays pending and is retried on the next run.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending, err := r.repo.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, event := range pending {
		if err := r.publisher.Publish(ctx, event.RoutingKey, event.Payload); err != nil {
			r.log.WithContext(ctx).Warn("failed to publish outbox event",
				zap.Uint("event_id", event.ID),
				zap.String("routing_key", event.RoutingKey),
				zap.Error(err),
			)
			if markErr := r.repo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
				return published, markErr
			}
			continue
		}

		if err := r.repo.MarkPublished(ctx, event.ID, r.now()); err != nil {
			return published, err
		}
		published++
	}

	if published > 0 {
		r.log.WithContext(ctx).Debug("outbox events published", zap.Int("count", published))
	}
	return published, nil
}
