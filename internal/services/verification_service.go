package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Maksud444/market-cairo-server/internal/apperr"
	"github.com/Maksud444/market-cairo-server/internal/models"
)

// IVerificationService defines the interface for identity verification.
type IVerificationService interface {
	Submit(ctx context.Context, userID primitive.ObjectID, docType models.DocumentType, images []string) (*models.Verification, error)
	Review(ctx context.Context, userID, adminID primitive.ObjectID, approve bool, reason string) (*models.Verification, error)
	Status(ctx context.Context, userID primitive.ObjectID) (*models.Verification, error)
	ListPending(ctx context.Context, limit int64) ([]models.User, error)
}

// verificationService implements IVerificationService.
type verificationService struct {
	db           *mongo.Database
	users        IUserService
	notification INotificationService
	dispatcher   Dispatcher
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(db *mongo.Database, users IUserService, notification INotificationService, dispatcher Dispatcher) IVerificationService {
	return &verificationService{db: db, users: users, notification: notification, dispatcher: dispatcher}
}

// Submit moves an account into pending review. Allowed from unverified and
// rejected; a pending or approved account cannot re-submit. The transition is
// a conditional update so two concurrent submissions cannot both win.
func (s *verificationService) Submit(ctx context.Context, userID primitive.ObjectID, docType models.DocumentType, images []string) (*models.Verification, error) {
	if !docType.Valid() {
		return nil, apperr.Newf(apperr.Validation, "unknown document type %q", docType)
	}
	if len(images) != docType.RequiredImages() {
		return nil, apperr.Newf(apperr.Validation, "document type %s requires exactly %d image(s), got %d",
			docType, docType.RequiredImages(), len(images))
	}
	for _, img := range images {
		if strings.TrimSpace(img) == "" {
			return nil, apperr.New(apperr.Validation, "image keys cannot be empty")
		}
	}

	now := time.Now().UTC()
	verification := models.Verification{
		Status:       models.VerificationPending,
		DocumentType: docType,
		Images:       images,
		SubmittedAt:  &now,
	}

	res, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{
			"_id":       userID,
			"is_active": true,
			"verification.status": bson.M{"$in": bson.A{
				models.VerificationUnverified, models.VerificationRejected,
			}},
		},
		bson.M{"$set": bson.M{"verification": verification, "updated_at": now}},
	)
	if err != nil {
		return nil, fmt.Errorf("error submitting verification for user %s: %w", userID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		// Filter did not match; read the document to tell the caller why.
		user, findErr := s.users.FindUserByID(ctx, userID)
		if findErr != nil {
			return nil, findErr
		}
		if !user.IsActive {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		switch user.Verification.Status {
		case models.VerificationPending:
			return nil, apperr.New(apperr.Conflict, "a verification request is already under review")
		case models.VerificationApproved:
			return nil, apperr.New(apperr.Conflict, "account is already verified")
		}
		return nil, apperr.New(apperr.Conflict, "verification cannot be submitted in the current state")
	}

	return &verification, nil
}

// Review resolves a pending request. The filter pins the pending status, so
// of two concurrent reviewers exactly one wins; the loser gets a Conflict.
func (s *verificationService) Review(ctx context.Context, userID, adminID primitive.ObjectID, approve bool, reason string) (*models.Verification, error) {
	reason = strings.TrimSpace(reason)
	if !approve && reason == "" {
		return nil, apperr.New(apperr.Validation, "a rejection reason is required")
	}

	now := time.Now().UTC()
	newStatus := models.VerificationApproved
	if !approve {
		newStatus = models.VerificationRejected
	}

	set := bson.M{
		"verification.status":      newStatus,
		"verification.reviewed_at": now,
		"verification.reviewed_by": adminID,
		"updated_at":               now,
	}
	if approve {
		set["verification.rejection_reason"] = ""
	} else {
		set["verification.rejection_reason"] = reason
	}

	res := s.db.Collection(usersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": userID, "verification.status": models.VerificationPending},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var user models.User
	if err := res.Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			if _, findErr := s.users.FindUserByID(ctx, userID); findErr != nil {
				return nil, findErr
			}
			return nil, apperr.New(apperr.Conflict, "no pending verification request for this user")
		}
		return nil, fmt.Errorf("error reviewing verification for user %s: %w", userID.Hex(), err)
	}

	s.notifyOutcome(ctx, &user, approve, reason)
	return &user.Verification, nil
}

// notifyOutcome fans out the in-app notification and the email. Both are
// best-effort.
func (s *verificationService) notifyOutcome(ctx context.Context, user *models.User, approved bool, reason string) {
	title := "Identity verified"
	content := "Your identity has been verified. You can now publish listings."
	if !approved {
		title = "Verification rejected"
		content = fmt.Sprintf("Your verification request was rejected: %s. You can submit new documents at any time.", reason)
	}

	if err := s.notification.Push(ctx, user.ID, models.NotificationSystem, title, content, nil); err != nil {
		log.Printf("WARN: failed to push verification notification to user %s: %v", user.ID.Hex(), err)
	}
	if err := s.dispatcher.EnqueueEmail(ctx, EmailPayload{
		To:       user.Email,
		Subject:  title,
		BodyText: fmt.Sprintf("Hi %s,\n\n%s", user.Name, content),
	}); err != nil {
		log.Printf("WARN: failed to enqueue verification email to %s: %v", user.Email, err)
	}
}

// Status returns the caller's own verification state.
func (s *verificationService) Status(ctx context.Context, userID primitive.ObjectID) (*models.Verification, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user.Verification, nil
}

// ListPending returns the admin review queue, oldest submission first.
func (s *verificationService) ListPending(ctx context.Context, limit int64) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	cursor, err := s.db.Collection(usersCollection).Find(ctx,
		bson.M{"verification.status": models.VerificationPending},
		options.Find().
			SetSort(bson.D{{Key: "verification.submitted_at", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("error listing pending verifications: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("error decoding pending verifications: %w", err)
	}
	return users, nil
}
