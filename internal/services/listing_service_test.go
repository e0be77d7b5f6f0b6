package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Maksud444/market-cairo-server/internal/apperr"
	"github.com/Maksud444/market-cairo-server/internal/models"
	"github.com/Maksud444/market-cairo-server/internal/utils"
)

func setupListingTestDB(t *testing.T, dbName string) *mongo.Database {
	return utils.SetupTestDB(t, dbName, "listings", "users")
}

func insertTestUser(t *testing.T, db *mongo.Database, status models.VerificationStatus) primitive.ObjectID {
	t.Helper()
	user := models.User{
		ID:           primitive.NewObjectID(),
		Email:        primitive.NewObjectID().Hex() + "@example.com",
		Name:         "Test User",
		IsActive:     true,
		Verification: models.Verification{Status: status},
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	_, err := db.Collection("users").InsertOne(context.Background(), &user)
	require.NoError(t, err)
	return user.ID
}

func validListingInput() ListingInput {
	return ListingInput{
		Title:       "Road bike",
		Description: "Well maintained, recently serviced.",
		Price:       250,
		Category:    models.CategorySports,
		Condition:   models.ConditionGood,
		Location:    models.Location{Area: models.AreaCentral, City: "Cairo"},
	}
}

func newListingServices(db *mongo.Database) (IListingService, IUserService) {
	userSvc := NewUserService(db, NopDispatcher{})
	notifSvc := NewNotificationService(db, NopDispatcher{})
	return NewListingService(db, userSvc, notifSvc, NopDispatcher{}), userSvc
}

func TestCreateListing_RequiresVerification(t *testing.T) {
	db := setupListingTestDB(t, "testdb_listing_create_gate")
	svc, _ := newListingServices(db)
	ctx := context.Background()

	for _, status := range []models.VerificationStatus{
		models.VerificationUnverified,
		models.VerificationPending,
		models.VerificationRejected,
	} {
		sellerID := insertTestUser(t, db, status)
		_, err := svc.CreateListing(ctx, sellerID, validListingInput())
		assert.Error(t, err, "status: %s", status)
		assert.True(t, apperr.IsKind(err, apperr.Forbidden), "status: %s", status)
	}

	sellerID := insertTestUser(t, db, models.VerificationApproved)
	listing, err := svc.CreateListing(ctx, sellerID, validListingInput())
	require.NoError(t, err)
	assert.Equal(t, models.ModerationPending, listing.ModerationStatus)
	assert.Equal(t, models.ListingActive, listing.Status)
	assert.False(t, listing.IsDeleted)
}

func TestCreateListing_Validation(t *testing.T) {
	db := setupListingTestDB(t, "testdb_listing_create_validation")
	svc, _ := newListingServices(db)
	ctx := context.Background()
	sellerID := insertTestUser(t, db, models.VerificationApproved)

	bad := validListingInput()
	bad.Price = 0
	_, err := svc.CreateListing(ctx, sellerID, bad)
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	bad = validListingInput()
	bad.Category = "weapons"
	_, err = svc.CreateListing(ctx, sellerID, bad)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestModerate_ApproveAndReject(t *testing.T) {
	db := setupListingTestDB(t, "testdb_listing_moderate")
	svc, _ := newListingServices(db)
	ctx := context.Background()
	sellerID := insertTestUser(t, db, models.VerificationApproved)
	adminID := insertTestUser(t, db, models.VerificationApproved)

	listing, err := svc.CreateListing(ctx, sellerID, validListingInput())
	require.NoError(t, err)

	// Invisible to the public before approval.
	_, err = svc.GetListing(ctx, listing.ID, nil)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	require.NoError(t, svc.Moderate(ctx, listing.ID, adminID, true, ""))
	fetched, err := svc.GetListing(ctx, listing.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ModerationApproved, fetched.ModerationStatus)

	// Re-approving is allowed.
	require.NoError(t, svc.Moderate(ctx, listing.ID, adminID, true, ""))

	// Reject pulls the listing off the market.
	require.NoError(t, svc.Moderate(ctx, listing.ID, adminID, false, "spam"))
	_, err = svc.GetListing(ctx, listing.ID, nil)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	var stored models.Listing
	require.NoError(t, db.Collection("listings").FindOne(ctx, bson.M{"_id": listing.ID}).Decode(&stored))
	assert.Equal(t, models.ListingRemoved, stored.Status)
	assert.Equal(t, "spam", stored.ModerationNote)

	// Seller got both moderation notifications.
	var seller models.User
	require.NoError(t, db.Collection("users").FindOne(ctx, bson.M{"_id": sellerID}).Decode(&seller))
	assert.GreaterOrEqual(t, len(seller.Notifications), 2)

	err = svc.Moderate(ctx, primitive.NewObjectID(), adminID, true, "")
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestSoftDelete_OnceOnly(t *testing.T) {
	db := setupListingTestDB(t, "testdb_listing_softdelete")
	svc, _ := newListingServices(db)
	ctx := context.Background()
	sellerID := insertTestUser(t, db, models.VerificationApproved)
	adminID := insertTestUser(t, db, models.VerificationApproved)
	otherID := insertTestUser(t, db, models.VerificationApproved)

	listing, err := svc.CreateListing(ctx, sellerID, validListingInput())
	require.NoError(t, err)
	require.NoError(t, svc.Moderate(ctx, listing.ID, adminID, true, ""))

	// Only the owner may soft-delete.
	err = svc.SoftDelete(ctx, listing.ID, otherID, models.DeleteReasonSold)
	assert.True(t, apperr.IsKind(err, apperr.Forbidden))

	require.NoError(t, svc.SoftDelete(ctx, listing.ID, sellerID, models.DeleteReasonSold))

	// Second soft-delete is a conflict, not a grace-window reset.
	err = svc.SoftDelete(ctx, listing.ID, sellerID, models.DeleteReasonChangedMind)
	assert.True(t, apperr.IsKind(err, apperr.Conflict))

	// Inside the grace window it reads as sold with delete metadata.
	fetched, err := svc.GetListing(ctx, listing.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ListingSold, fetched.Status)
	assert.True(t, fetched.IsDeleted)
	assert.Equal(t, models.DeleteReasonSold, fetched.DeleteReason)
}

func TestPurgeExpired(t *testing.T) {
	db := setupListingTestDB(t, "testdb_listing_purge")
	svc, _ := newListingServices(db)
	ctx := context.Background()
	sellerID := insertTestUser(t, db, models.VerificationApproved)
	adminID := insertTestUser(t, db, models.VerificationApproved)

	listing, err := svc.CreateListing(ctx, sellerID, validListingInput())
	require.NoError(t, err)
	require.NoError(t, svc.Moderate(ctx, listing.ID, adminID, true, ""))
	require.NoError(t, svc.SoftDelete(ctx, listing.ID, sellerID, models.DeleteReasonSold))

	// Fresh soft-delete survives a sweep.
	purged, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), purged)

	// Backdate past the grace window; the sweep removes it and reads 404.
	expired := time.Now().UTC().Add(-models.DeleteGracePeriod - time.Hour)
	_, err = db.Collection("listings").UpdateOne(ctx,
		bson.M{"_id": listing.ID},
		bson.M{"$set": bson.M{"deleted_at": expired}},
	)
	require.NoError(t, err)

	purged, err = svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = svc.GetListing(ctx, listing.ID, nil)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestReport_DuplicateAndThreshold(t *testing.T) {
	db := setupListingTestDB(t, "testdb_listing_report")
	svc, _ := newListingServices(db)
	ctx := context.Background()
	sellerID := insertTestUser(t, db, models.VerificationApproved)
	adminID := insertTestUser(t, db, models.VerificationApproved)

	listing, err := svc.CreateListing(ctx, sellerID, validListingInput())
	require.NoError(t, err)
	require.NoError(t, svc.Moderate(ctx, listing.ID, adminID, true, ""))

	reporter := insertTestUser(t, db, models.VerificationUnverified)
	require.NoError(t, svc.Report(ctx, listing.ID, reporter, "scam"))

	// Same user again is a duplicate.
	err = svc.Report(ctx, listing.ID, reporter, "scam again")
	assert.True(t, apperr.IsKind(err, apperr.Duplicate))

	// Two more distinct reporters hit the threshold and re-flag moderation.
	require.NoError(t, svc.Report(ctx, listing.ID, insertTestUser(t, db, models.VerificationUnverified), "scam"))
	require.NoError(t, svc.Report(ctx, listing.ID, insertTestUser(t, db, models.VerificationUnverified), "scam"))

	var stored models.Listing
	require.NoError(t, db.Collection("listings").FindOne(ctx, bson.M{"_id": listing.ID}).Decode(&stored))
	assert.Len(t, stored.Reports, 3)
	assert.Equal(t, models.ModerationPending, stored.ModerationStatus)
}

func TestToggleFavorite_IsItsOwnInverse(t *testing.T) {
	db := setupListingTestDB(t, "testdb_listing_favorite")
	svc, _ := newListingServices(db)
	ctx := context.Background()
	sellerID := insertTestUser(t, db, models.VerificationApproved)
	fanID := insertTestUser(t, db, models.VerificationUnverified)

	listing, err := svc.CreateListing(ctx, sellerID, validListingInput())
	require.NoError(t, err)

	favorited, err := svc.ToggleFavorite(ctx, listing.ID, fanID)
	require.NoError(t, err)
	assert.True(t, favorited)

	var stored models.Listing
	require.NoError(t, db.Collection("listings").FindOne(ctx, bson.M{"_id": listing.ID}).Decode(&stored))
	assert.Equal(t, int64(1), stored.FavoritesCount)

	var fan models.User
	require.NoError(t, db.Collection("users").FindOne(ctx, bson.M{"_id": fanID}).Decode(&fan))
	assert.Contains(t, fan.Favorites, listing.ID)

	favorited, err = svc.ToggleFavorite(ctx, listing.ID, fanID)
	require.NoError(t, err)
	assert.False(t, favorited)

	require.NoError(t, db.Collection("listings").FindOne(ctx, bson.M{"_id": listing.ID}).Decode(&stored))
	assert.Equal(t, int64(0), stored.FavoritesCount)
	require.NoError(t, db.Collection("users").FindOne(ctx, bson.M{"_id": fanID}).Decode(&fan))
	assert.NotContains(t, fan.Favorites, listing.ID)
}

func TestGetListing_ViewCounting(t *testing.T) {
	db := setupListingTestDB(t, "testdb_listing_views")
	svc, _ := newListingServices(db)
	ctx := context.Background()
	sellerID := insertTestUser(t, db, models.VerificationApproved)
	adminID := insertTestUser(t, db, models.VerificationApproved)
	viewerID := insertTestUser(t, db, models.VerificationUnverified)

	listing, err := svc.CreateListing(ctx, sellerID, validListingInput())
	require.NoError(t, err)
	require.NoError(t, svc.Moderate(ctx, listing.ID, adminID, true, ""))

	// Owner views never count.
	_, err = svc.GetListing(ctx, listing.ID, &sellerID)
	require.NoError(t, err)

	// First viewer fetch counts, repeats do not.
	_, err = svc.GetListing(ctx, listing.ID, &viewerID)
	require.NoError(t, err)
	_, err = svc.GetListing(ctx, listing.ID, &viewerID)
	require.NoError(t, err)

	var stored models.Listing
	require.NoError(t, db.Collection("listings").FindOne(ctx, bson.M{"_id": listing.ID}).Decode(&stored))
	assert.Equal(t, int64(1), stored.Views)
}

func TestMarkSold_IncrementsSellerCount(t *testing.T) {
	db := setupListingTestDB(t, "testdb_listing_sold")
	svc, userSvc := newListingServices(db)
	ctx := context.Background()
	sellerID := insertTestUser(t, db, models.VerificationApproved)
	adminID := insertTestUser(t, db, models.VerificationApproved)

	listing, err := svc.CreateListing(ctx, sellerID, validListingInput())
	require.NoError(t, err)
	require.NoError(t, svc.Moderate(ctx, listing.ID, adminID, true, ""))

	require.NoError(t, svc.MarkSold(ctx, listing.ID, sellerID))

	seller, err := userSvc.FindUserByID(ctx, sellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seller.SalesCount)

	// Already sold: conflict.
	err = svc.MarkSold(ctx, listing.ID, sellerID)
	assert.True(t, apperr.IsKind(err, apperr.Conflict))
}
