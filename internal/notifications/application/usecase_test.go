package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digimarket/internal/notifications/domain"
	"digimarket/internal/storage/memory"
	"digimarket/pkg/auth"
	"digimarket/pkg/errors"
	"digimarket/pkg/logger"
)

func newUseCase(t *testing.T) (*NotificationUseCase, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewNotificationUseCase(store.Notifications(), logger.New("test", "debug")), store
}

func TestSend(t *testing.T) {
	ctx := context.Background()
	_, store := newUseCase(t)
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	err := Send(ctx, store.Notifications(), now,
		Message{UserID: 1, Type: domain.TypeOrder, Title: "Order Created", Message: "placed"},
		Message{UserID: 2, Type: domain.TypeOrder, Title: "New Sale", Message: "sold"},
	)
	require.NoError(t, err)

	list, err := store.Notifications().ListByUser(ctx, 2, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "New Sale", list[0].Title)
	assert.False(t, list[0].Read)
	assert.Equal(t, now, list[0].CreatedAt)
}

func TestSend_RejectsInvalidMessage(t *testing.T) {
	_, store := newUseCase(t)

	err := Send(context.Background(), store.Notifications(), time.Now(), Message{UserID: 1})

	assert.True(t, errors.Is(err, errors.CodeValidation))
}

func TestListNotifications(t *testing.T) {
	ctx := context.Background()
	useCase, store := newUseCase(t)
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, Send(ctx, store.Notifications(), base, Message{UserID: 1, Type: domain.TypeOrder, Title: "first"}))
	require.NoError(t, Send(ctx, store.Notifications(), base.Add(time.Minute), Message{UserID: 1, Type: domain.TypeReview, Title: "second"}))
	require.NoError(t, Send(ctx, store.Notifications(), base, Message{UserID: 2, Type: domain.TypeOrder, Title: "other"}))

	list, err := useCase.ListNotifications(ctx, ListNotificationsInput{Actor: auth.Actor{UserID: 1, Role: auth.RoleUser}})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)
	assert.Equal(t, "first", list[1].Title)

	_, err = useCase.MarkRead(ctx, MarkReadInput{Actor: auth.Actor{UserID: 1}, NotificationID: list[0].ID})
	require.NoError(t, err)

	unread, err := useCase.ListNotifications(ctx, ListNotificationsInput{Actor: auth.Actor{UserID: 1}, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "first", unread[0].Title)

	_, err = useCase.ListNotifications(ctx, ListNotificationsInput{})
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	useCase, store := newUseCase(t)
	require.NoError(t, Send(ctx, store.Notifications(), time.Now(), Message{UserID: 1, Type: domain.TypeSystem, Title: "hello"}))
	list, err := store.Notifications().ListByUser(ctx, 1, false)
	require.NoError(t, err)
	id := list[0].ID

	tests := []struct {
		name  string
		actor auth.Actor
		id    uint
		code  string
	}{
		{name: "anonymous", id: id, code: errors.CodeUnauthorized},
		{name: "other user", actor: auth.Actor{UserID: 2}, id: id, code: errors.CodeForbidden},
		{name: "admin is not the recipient", actor: auth.Actor{UserID: 3, Role: auth.RoleAdmin}, id: id, code: errors.CodeForbidden},
		{name: "missing", actor: auth.Actor{UserID: 1}, id: 404, code: errors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := useCase.MarkRead(ctx, MarkReadInput{Actor: tt.actor, NotificationID: tt.id})
			assert.True(t, errors.Is(err, tt.code), "expected %s, got %v", tt.code, err)
		})
	}

	t.Run("recipient", func(t *testing.T) {
		n, err := useCase.MarkRead(ctx, MarkReadInput{Actor: auth.Actor{UserID: 1}, NotificationID: id})
		require.NoError(t, err)
		assert.True(t, n.Read)

		again, err := useCase.MarkRead(ctx, MarkReadInput{Actor: auth.Actor{UserID: 1}, NotificationID: id})
		require.NoError(t, err)
		assert.True(t, again.Read)
	})
}
