package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Maksud444/market-cairo-server/internal/apperr"
	"github.com/Maksud444/market-cairo-server/internal/models"
	"github.com/Maksud444/market-cairo-server/internal/utils"
)

func setupVerificationTestDB(t *testing.T, dbName string) (*mongo.Database, IVerificationService) {
	db := utils.SetupTestDB(t, dbName, "users")
	userSvc := NewUserService(db, NopDispatcher{})
	notifSvc := NewNotificationService(db, NopDispatcher{})
	return db, NewVerificationService(db, userSvc, notifSvc, NopDispatcher{})
}

func TestSubmit_ImageCountPerDocumentType(t *testing.T) {
	db, svc := setupVerificationTestDB(t, "testdb_verification_images")
	ctx := context.Background()

	userID := insertTestUser(t, db, models.VerificationUnverified)

	// A passport is one page; cards need front and back.
	_, err := svc.Submit(ctx, userID, models.DocumentPassport, []string{"front.jpg", "back.jpg"})
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	_, err = svc.Submit(ctx, userID, models.DocumentStudentCard, []string{"front.jpg"})
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	_, err = svc.Submit(ctx, userID, models.DocumentType("driver_license"), []string{"a.jpg"})
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	v, err := svc.Submit(ctx, userID, models.DocumentPassport, []string{"passport.jpg"})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, v.Status)
	assert.NotNil(t, v.SubmittedAt)
}

func TestSubmit_StateTransitions(t *testing.T) {
	db, svc := setupVerificationTestDB(t, "testdb_verification_states")
	ctx := context.Background()

	userID := insertTestUser(t, db, models.VerificationUnverified)

	_, err := svc.Submit(ctx, userID, models.DocumentStudentCard, []string{"front.jpg", "back.jpg"})
	require.NoError(t, err)

	// Pending blocks a second submission.
	_, err = svc.Submit(ctx, userID, models.DocumentStudentCard, []string{"front.jpg", "back.jpg"})
	assert.True(t, apperr.IsKind(err, apperr.Conflict))

	status, err := svc.Status(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, status.Status)
}

func TestReview_ApproveThenNoDoubleReview(t *testing.T) {
	db, svc := setupVerificationTestDB(t, "testdb_verification_review")
	ctx := context.Background()

	userID := insertTestUser(t, db, models.VerificationUnverified)
	adminID := insertTestUser(t, db, models.VerificationApproved)

	_, err := svc.Submit(ctx, userID, models.DocumentPassport, []string{"passport.jpg"})
	require.NoError(t, err)

	v, err := svc.Review(ctx, userID, adminID, true, "")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationApproved, v.Status)
	require.NotNil(t, v.ReviewedBy)
	assert.Equal(t, adminID, *v.ReviewedBy)

	// The pending state is gone; a second decision is a conflict.
	_, err = svc.Review(ctx, userID, adminID, false, "second thoughts")
	assert.True(t, apperr.IsKind(err, apperr.Conflict))

	// Approved accounts cannot re-submit.
	_, err = svc.Submit(ctx, userID, models.DocumentPassport, []string{"passport.jpg"})
	assert.True(t, apperr.IsKind(err, apperr.Conflict))
}

func TestReview_RejectAllowsResubmission(t *testing.T) {
	db, svc := setupVerificationTestDB(t, "testdb_verification_reject")
	ctx := context.Background()

	userID := insertTestUser(t, db, models.VerificationUnverified)
	adminID := insertTestUser(t, db, models.VerificationApproved)

	_, err := svc.Submit(ctx, userID, models.DocumentPassport, []string{"blurry.jpg"})
	require.NoError(t, err)

	// Rejection without a reason is invalid.
	_, err = svc.Review(ctx, userID, adminID, false, "  ")
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	v, err := svc.Review(ctx, userID, adminID, false, "document unreadable")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationRejected, v.Status)
	assert.Equal(t, "document unreadable", v.RejectionReason)

	// Rejected users may try again with new documents.
	v, err = svc.Submit(ctx, userID, models.DocumentPassport, []string{"sharp.jpg"})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, v.Status)
	assert.Equal(t, []string{"sharp.jpg"}, v.Images)
}

func TestReview_UnknownUser(t *testing.T) {
	_, svc := setupVerificationTestDB(t, "testdb_verification_missing")
	ctx := context.Background()

	_, err := svc.Review(ctx, primitive.NewObjectID(), primitive.NewObjectID(), true, "")
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestListPending_OldestFirst(t *testing.T) {
	db, svc := setupVerificationTestDB(t, "testdb_verification_queue")
	ctx := context.Background()

	first := insertTestUser(t, db, models.VerificationUnverified)
	second := insertTestUser(t, db, models.VerificationUnverified)
	insertTestUser(t, db, models.VerificationApproved)

	_, err := svc.Submit(ctx, first, models.DocumentPassport, []string{"a.jpg"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, second, models.DocumentPassport, []string{"b.jpg"})
	require.NoError(t, err)

	pending, err := svc.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first, pending[0].ID)
	assert.Equal(t, second, pending[1].ID)
}
