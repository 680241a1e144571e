package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("OUTBOX_BATCH_SIZE", "")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.StorageDriver)
	assert.False(t, cfg.UsesMemoryStorage())
	assert.Equal(t, 50, cfg.OutboxBatchSize)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("OUTBOX_BATCH_SIZE", "5")
	t.Setenv("IDEMPOTENCY_TTL", "90m")
	t.Setenv("DB_TIMEOUT", "3")
	t.Setenv("RABBITMQ_ENABLED", "true")

	cfg := Load()

	assert.True(t, cfg.UsesMemoryStorage())
	assert.Equal(t, 5, cfg.OutboxBatchSize)
	assert.Equal(t, 90*time.Minute, cfg.IdempotencyTTL)
	assert.Equal(t, 3*time.Second, cfg.DBTimeout)
	assert.True(t, cfg.RabbitMQEnabled)
}
