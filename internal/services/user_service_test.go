package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Maksud444/market-cairo-server/internal/apperr"
	"github.com/Maksud444/market-cairo-server/internal/db"
	"github.com/Maksud444/market-cairo-server/internal/models"
	"github.com/Maksud444/market-cairo-server/internal/utils"
)

func setupUserTestDB(t *testing.T, dbName string) (*mongo.Database, IUserService) {
	database := utils.SetupTestDB(t, dbName, "users")
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return database, NewUserService(database, NopDispatcher{})
}

func TestRegister(t *testing.T) {
	_, svc := setupUserTestDB(t, "testdb_user_register")
	ctx := context.Background()

	user, err := svc.Register(ctx, "  Buyer@Example.COM ", "password123", "Buyer One")
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", user.Email)
	assert.Equal(t, models.VerificationUnverified, user.Verification.Status)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "password123", user.PasswordHash)

	// Unique email, case-insensitive through normalization.
	_, err = svc.Register(ctx, "buyer@example.com", "password123", "Impostor")
	assert.True(t, apperr.IsKind(err, apperr.Duplicate))

	_, err = svc.Register(ctx, "not-an-email", "password123", "X")
	assert.True(t, apperr.IsKind(err, apperr.Validation))
	_, err = svc.Register(ctx, "short@example.com", "1234567", "X")
	assert.True(t, apperr.IsKind(err, apperr.Validation))
	_, err = svc.Register(ctx, "noname@example.com", "password123", "  ")
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestAuthenticate(t *testing.T) {
	_, svc := setupUserTestDB(t, "testdb_user_auth")
	ctx := context.Background()

	user, err := svc.Register(ctx, "seller@example.com", "password123", "Seller")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "seller@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// Wrong password and unknown account are indistinguishable.
	_, err = svc.Authenticate(ctx, "seller@example.com", "wrongpass1")
	assert.True(t, apperr.IsKind(err, apperr.Authorization))
	_, err = svc.Authenticate(ctx, "ghost@example.com", "password123")
	assert.True(t, apperr.IsKind(err, apperr.Authorization))

	require.NoError(t, svc.Deactivate(ctx, user.ID))
	_, err = svc.Authenticate(ctx, "seller@example.com", "password123")
	assert.True(t, apperr.IsKind(err, apperr.Authorization))
}

func TestUpdateProfile(t *testing.T) {
	_, svc := setupUserTestDB(t, "testdb_user_profile")
	ctx := context.Background()

	user, err := svc.Register(ctx, "profile@example.com", "password123", "Before")
	require.NoError(t, err)

	name := "After"
	location := "Zamalek"
	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdates{Name: &name, Location: &location})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Name)
	assert.Equal(t, "Zamalek", updated.Location)
	// Untouched fields survive.
	assert.Equal(t, "profile@example.com", updated.Email)

	empty := "  "
	_, err = svc.UpdateProfile(ctx, user.ID, ProfileUpdates{Name: &empty})
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	_, err = svc.UpdateProfile(ctx, primitive.NewObjectID(), ProfileUpdates{Name: &name})
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestDeactivate_HidesPublicProfile(t *testing.T) {
	_, svc := setupUserTestDB(t, "testdb_user_deactivate")
	ctx := context.Background()

	user, err := svc.Register(ctx, "gone@example.com", "password123", "Leaving")
	require.NoError(t, err)

	profile, err := svc.GetPublicProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Leaving", profile.Name)

	require.NoError(t, svc.Deactivate(ctx, user.ID))

	_, err = svc.GetPublicProfile(ctx, user.ID)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	// Second deactivation is a conflict.
	err = svc.Deactivate(ctx, user.ID)
	assert.True(t, apperr.IsKind(err, apperr.Conflict))
}

func TestRecordSale(t *testing.T) {
	_, svc := setupUserTestDB(t, "testdb_user_sales")
	ctx := context.Background()

	user, err := svc.Register(ctx, "sales@example.com", "password123", "Seller")
	require.NoError(t, err)

	require.NoError(t, svc.RecordSale(ctx, user.ID))
	require.NoError(t, svc.RecordSale(ctx, user.ID))

	got, err := svc.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.SalesCount)

	err = svc.RecordSale(ctx, primitive.NewObjectID())
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}
