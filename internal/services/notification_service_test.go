package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Maksud444/market-cairo-server/internal/apperr"
	"github.com/Maksud444/market-cairo-server/internal/models"
	"github.com/Maksud444/market-cairo-server/internal/utils"
)

func TestPushAndList_NewestFirst(t *testing.T) {
	db := utils.SetupTestDB(t, "testdb_notification_list", "users")
	svc := NewNotificationService(db, NopDispatcher{})
	ctx := context.Background()

	userID := insertTestUser(t, db, models.VerificationUnverified)

	require.NoError(t, svc.Push(ctx, userID, models.NotificationSystem, "first", "oldest", nil))
	require.NoError(t, svc.Push(ctx, userID, models.NotificationSystem, "second", "newest", nil))

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)
	assert.Equal(t, "first", list[1].Title)

	err = svc.Push(ctx, primitive.NewObjectID(), models.NotificationSystem, "x", "y", nil)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestPush_CapDropsOldest(t *testing.T) {
	db := utils.SetupTestDB(t, "testdb_notification_cap", "users")
	svc := NewNotificationService(db, NopDispatcher{})
	ctx := context.Background()

	userID := insertTestUser(t, db, models.VerificationUnverified)

	for i := 0; i < models.MaxNotifications+5; i++ {
		require.NoError(t, svc.Push(ctx, userID, models.NotificationSystem,
			fmt.Sprintf("n%d", i), "body", nil))
	}

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, models.MaxNotifications)

	// Newest survived, the first five fell off.
	assert.Equal(t, fmt.Sprintf("n%d", models.MaxNotifications+4), list[0].Title)
	assert.Equal(t, "n5", list[len(list)-1].Title)
}

func TestMarkRead(t *testing.T) {
	db := utils.SetupTestDB(t, "testdb_notification_read", "users")
	svc := NewNotificationService(db, NopDispatcher{})
	ctx := context.Background()

	userID := insertTestUser(t, db, models.VerificationUnverified)

	require.NoError(t, svc.Push(ctx, userID, models.NotificationSystem, "a", "x", nil))
	require.NoError(t, svc.Push(ctx, userID, models.NotificationSystem, "b", "y", nil))

	count, err := svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, svc.MarkRead(ctx, userID, list[0].ID))

	count, err = svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = svc.MarkRead(ctx, userID, primitive.NewObjectID())
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestMarkAllRead(t *testing.T) {
	db := utils.SetupTestDB(t, "testdb_notification_readall", "users")
	svc := NewNotificationService(db, NopDispatcher{})
	ctx := context.Background()

	userID := insertTestUser(t, db, models.VerificationUnverified)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Push(ctx, userID, models.NotificationMessage, "msg", "hello", nil))
	}

	require.NoError(t, svc.MarkAllRead(ctx, userID))

	count, err := svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Idempotent on an all-read list.
	require.NoError(t, svc.MarkAllRead(ctx, userID))
}
