package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Maksud444/market-cairo-server/internal/apperr"
	"github.com/Maksud444/market-cairo-server/internal/auth"
	"github.com/Maksud444/market-cairo-server/internal/db"
	"github.com/Maksud444/market-cairo-server/internal/models"
)

// IUserService defines the interface for account operations.
type IUserService interface {
	Register(ctx context.Context, email, password, name string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	FindUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetPublicProfile(ctx context.Context, userID primitive.ObjectID) (*models.PublicProfile, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, updates ProfileUpdates) (*models.User, error)
	Deactivate(ctx context.Context, userID primitive.ObjectID) error
	TouchLastSeen(ctx context.Context, userID primitive.ObjectID) error
	RecordSale(ctx context.Context, sellerID primitive.ObjectID) error
	SetAdmin(ctx context.Context, userID primitive.ObjectID, isAdmin bool) error
}

// ProfileUpdates carries the caller-editable subset of a user document.
// Nil fields are left untouched.
type ProfileUpdates struct {
	Name     *string
	Avatar   *string
	Location *string
}

const usersCollection = "users"

// userService implements IUserService.
type userService struct {
	db         *mongo.Database
	dispatcher Dispatcher
}

// NewUserService creates a new UserService.
func NewUserService(db *mongo.Database, dispatcher Dispatcher) IUserService {
	return &userService{db: db, dispatcher: dispatcher}
}

// Register creates a new account. Email uniqueness is enforced by the unique
// index on users.email; a duplicate insert surfaces as a Duplicate error.
func (s *userService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.New(apperr.Validation, "a valid email address is required")
	}
	if len(password) < 8 {
		return nil, apperr.New(apperr.Validation, "password must be at least 8 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.Validation, "name is required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Favorites:    []primitive.ObjectID{},
		IsActive:     true,
		Verification: models.Verification{Status: models.VerificationUnverified},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.Collection(usersCollection).InsertOne(ctx, user)
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, apperr.New(apperr.Duplicate, "an account with this email already exists")
		}
		return nil, fmt.Errorf("failed to insert user %s: %w", email, err)
	}

	if mailErr := s.dispatcher.EnqueueEmail(ctx, EmailPayload{
		To:       user.Email,
		Subject:  "Welcome to MarketCairo",
		BodyText: fmt.Sprintf("Hi %s, your account is ready. Verify your identity to start selling.", user.Name),
	}); mailErr != nil {
		log.Printf("WARN: failed to enqueue welcome email for %s: %v", user.Email, mailErr)
	}

	return user, nil
}

// Authenticate checks credentials and returns the account. A missing account
// and a wrong password produce the same Authorization error, so login probes
// cannot distinguish the two.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.Authorization, "invalid email or password")
		}
		return nil, fmt.Errorf("error finding user by email: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.New(apperr.Authorization, "invalid email or password")
	}
	if !user.IsActive {
		return nil, apperr.New(apperr.Authorization, "account is deactivated")
	}

	return &user, nil
}

// FindUserByID finds a user by its ID.
func (s *userService) FindUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, fmt.Errorf("error finding user by ID %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// FindUserByEmail finds a user by email (lowercased).
func (s *userService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, fmt.Errorf("error finding user by email: %w", err)
	}
	return &user, nil
}

// GetPublicProfile returns the seller-facing view of an account. Deactivated
// accounts are hidden.
func (s *userService) GetPublicProfile(ctx context.Context, userID primitive.ObjectID) (*models.PublicProfile, error) {
	user, err := s.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	profile := user.Public()
	return &profile, nil
}

// UpdateProfile applies the caller-editable fields. Only non-nil fields are
// written.
func (s *userService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, updates ProfileUpdates) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if updates.Name != nil {
		name := strings.TrimSpace(*updates.Name)
		if name == "" {
			return nil, apperr.New(apperr.Validation, "name cannot be empty")
		}
		set["name"] = name
	}
	if updates.Avatar != nil {
		set["avatar"] = *updates.Avatar
	}
	if updates.Location != nil {
		set["location"] = *updates.Location
	}

	res := s.db.Collection(usersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": userID, "is_active": true},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var user models.User
	if err := res.Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, fmt.Errorf("error updating profile for user %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// Deactivate marks an account inactive. The account's listings stop being
// served through the public read paths by the listing service.
func (s *userService) Deactivate(ctx context.Context, userID primitive.ObjectID) error {
	res, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": userID, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("error deactivating user %s: %w", userID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		// Either missing or already inactive; distinguish for the caller.
		if _, findErr := s.FindUserByID(ctx, userID); findErr != nil {
			return findErr
		}
		return apperr.New(apperr.Conflict, "account is already deactivated")
	}
	return nil
}

// TouchLastSeen stamps the presence timestamp. Fire-and-forget semantics:
// callers typically ignore the error.
func (s *userService) TouchLastSeen(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"last_seen_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("error updating last_seen for user %s: %w", userID.Hex(), err)
	}
	return nil
}

// RecordSale increments the seller's sales counter.
func (s *userService) RecordSale(ctx context.Context, sellerID primitive.ObjectID) error {
	res, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": sellerID},
		bson.M{"$inc": bson.M{"sales_count": 1}},
	)
	if err != nil {
		return fmt.Errorf("error incrementing sales for user %s: %w", sellerID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}

// SetAdmin toggles the admin flag. Only used by the seed tool and operators.
func (s *userService) SetAdmin(ctx context.Context, userID primitive.ObjectID, isAdmin bool) error {
	res, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"is_admin": isAdmin, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("error setting admin flag for user %s: %w", userID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}
