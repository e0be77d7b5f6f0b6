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
	"github.com/Maksud444/market-cairo-server/internal/models"
)

// IListingService defines the interface for listing lifecycle operations.
type IListingService interface {
	CreateListing(ctx context.Context, sellerID primitive.ObjectID, input ListingInput) (*models.Listing, error)
	GetListing(ctx context.Context, listingID primitive.ObjectID, viewer *primitive.ObjectID) (*models.Listing, error)
	UpdateListing(ctx context.Context, listingID, callerID primitive.ObjectID, isAdmin bool, updates ListingUpdates) (*models.Listing, error)
	Moderate(ctx context.Context, listingID, adminID primitive.ObjectID, approve bool, note string) error
	MarkSold(ctx context.Context, listingID, callerID primitive.ObjectID) error
	SoftDelete(ctx context.Context, listingID, callerID primitive.ObjectID, reason models.DeleteReason) error
	HardDelete(ctx context.Context, listingID primitive.ObjectID) error
	Report(ctx context.Context, listingID, reporterID primitive.ObjectID, reason string) error
	ToggleFavorite(ctx context.Context, listingID, userID primitive.ObjectID) (favorited bool, err error)
	Search(ctx context.Context, params SearchParams) ([]models.Listing, error)
	ListBySeller(ctx context.Context, sellerID primitive.ObjectID, includeHidden bool) ([]models.Listing, error)
	AddImage(ctx context.Context, listingID, callerID primitive.ObjectID, imageKey string) error
	ListPendingModeration(ctx context.Context, limit int64) ([]models.Listing, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// ListingInput is the validated payload for creating a listing.
type ListingInput struct {
	Title       string
	Description string
	Price       int64
	Category    models.Category
	Condition   models.Condition
	Location    models.Location
	Images      []string
}

// ListingUpdates carries the seller-editable fields of a listing. Nil fields
// are left untouched; Images are appended, never replaced.
type ListingUpdates struct {
	Title       *string
	Description *string
	Price       *int64
	Category    *models.Category
	Condition   *models.Condition
	Location    *models.Location
	Images      []string
}

// SearchParams are the browse/search filters. Zero values mean "no filter".
type SearchParams struct {
	Query     string
	Category  models.Category
	Area      models.Area
	MinPrice  int64
	MaxPrice  int64
	Featured  bool
	SortBy    string // "recent" (default), "price_asc", "price_desc", "views"
	Limit     int64
	Skip      int64
}

const listingsCollection = "listings"

// listingService implements IListingService.
type listingService struct {
	db           *mongo.Database
	users        IUserService
	notification INotificationService
	dispatcher   Dispatcher
}

// NewListingService creates a new ListingService.
func NewListingService(db *mongo.Database, users IUserService, notification INotificationService, dispatcher Dispatcher) IListingService {
	return &listingService{db: db, users: users, notification: notification, dispatcher: dispatcher}
}

func (in *ListingInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperr.New(apperr.Validation, "title is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return apperr.New(apperr.Validation, "description is required")
	}
	if in.Price < 1 {
		return apperr.New(apperr.Validation, "price must be at least 1")
	}
	if !in.Category.Valid() {
		return apperr.Newf(apperr.Validation, "unknown category %q", in.Category)
	}
	if !in.Condition.Valid() {
		return apperr.Newf(apperr.Validation, "unknown condition %q", in.Condition)
	}
	if !in.Location.Area.Valid() {
		return apperr.Newf(apperr.Validation, "unknown area %q", in.Location.Area)
	}
	return nil
}

// CreateListing inserts a new listing in pending moderation. Only sellers with
// approved identity verification may create listings; the distinct error code
// lets clients prompt for verification instead of re-login.
func (s *listingService) CreateListing(ctx context.Context, sellerID primitive.ObjectID, input ListingInput) (*models.Listing, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	seller, err := s.users.FindUserByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if seller.Verification.Status != models.VerificationApproved {
		return nil, apperr.New(apperr.Forbidden, "identity verification is required to create listings").
			WithCode("verification_required")
	}

	now := time.Now().UTC()
	images := input.Images
	if images == nil {
		images = []string{}
	}
	listing := &models.Listing{
		ID:               primitive.NewObjectID(),
		UserID:           sellerID,
		Title:            strings.TrimSpace(input.Title),
		Description:      strings.TrimSpace(input.Description),
		Price:            input.Price,
		Category:         input.Category,
		Condition:        input.Condition,
		Images:           images,
		Location:         input.Location,
		Status:           models.ListingActive,
		ModerationStatus: models.ModerationPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if _, err := s.db.Collection(listingsCollection).InsertOne(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to insert listing for seller %s: %w", sellerID.Hex(), err)
	}

	for _, key := range images {
		if dispErr := s.dispatcher.EnqueueImageProcess(ctx, listing.ID, key); dispErr != nil {
			log.Printf("WARN: failed to enqueue image processing for listing %s key %s: %v", listing.ID.Hex(), key, dispErr)
		}
	}

	return listing, nil
}

// GetListing fetches a listing through the public visibility rules and, for a
// non-owner viewer, counts the view at most once per (viewer, listing). The
// dedup and the increment are a single conditional update so concurrent
// fetches cannot double-count.
func (s *listingService) GetListing(ctx context.Context, listingID primitive.ObjectID, viewer *primitive.ObjectID) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, "listing not found")
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID.Hex(), err)
	}

	now := time.Now().UTC()
	isOwner := viewer != nil && *viewer == listing.UserID
	isPrivileged := isOwner // admins go through ListPendingModeration / direct reads

	if !isPrivileged && !listing.VisibleAt(now) {
		// Hidden listings and lapsed soft-deletes are indistinguishable from
		// missing ones for the public.
		return nil, apperr.New(apperr.NotFound, "listing not found")
	}

	if viewer != nil && !isOwner {
		res, incErr := s.db.Collection(listingsCollection).UpdateOne(ctx,
			bson.M{"_id": listingID, "viewed_by": bson.M{"$ne": *viewer}},
			bson.M{
				"$addToSet": bson.M{"viewed_by": *viewer},
				"$inc":      bson.M{"views": 1},
			},
		)
		if incErr != nil {
			log.Printf("WARN: failed to count view on listing %s: %v", listingID.Hex(), incErr)
		} else if res.ModifiedCount > 0 {
			listing.Views++
		}
	}

	if listing.IsDeleted {
		listing.Status = listing.DisplayStatus()
	}
	return &listing, nil
}

// UpdateListing patches the seller-editable fields. Images are append-only.
// An edit after approval intentionally leaves moderation_status untouched.
func (s *listingService) UpdateListing(ctx context.Context, listingID, callerID primitive.ObjectID, isAdmin bool, updates ListingUpdates) (*models.Listing, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if updates.Title != nil {
		if strings.TrimSpace(*updates.Title) == "" {
			return nil, apperr.New(apperr.Validation, "title cannot be empty")
		}
		set["title"] = strings.TrimSpace(*updates.Title)
	}
	if updates.Description != nil {
		if strings.TrimSpace(*updates.Description) == "" {
			return nil, apperr.New(apperr.Validation, "description cannot be empty")
		}
		set["description"] = strings.TrimSpace(*updates.Description)
	}
	if updates.Price != nil {
		if *updates.Price < 1 {
			return nil, apperr.New(apperr.Validation, "price must be at least 1")
		}
		set["price"] = *updates.Price
	}
	if updates.Category != nil {
		if !updates.Category.Valid() {
			return nil, apperr.Newf(apperr.Validation, "unknown category %q", *updates.Category)
		}
		set["category"] = *updates.Category
	}
	if updates.Condition != nil {
		if !updates.Condition.Valid() {
			return nil, apperr.Newf(apperr.Validation, "unknown condition %q", *updates.Condition)
		}
		set["condition"] = *updates.Condition
	}
	if updates.Location != nil {
		if !updates.Location.Area.Valid() {
			return nil, apperr.Newf(apperr.Validation, "unknown area %q", updates.Location.Area)
		}
		set["location"] = *updates.Location
	}

	update := bson.M{"$set": set}
	if len(updates.Images) > 0 {
		update["$push"] = bson.M{"images": bson.M{"$each": updates.Images}}
	}

	filter := bson.M{"_id": listingID, "is_deleted": false}
	if !isAdmin {
		filter["user_id"] = callerID
	}

	res := s.db.Collection(listingsCollection).FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	var listing models.Listing
	if err := res.Decode(&listing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.diagnoseWriteMiss(ctx, listingID, callerID, isAdmin)
		}
		return nil, fmt.Errorf("error updating listing %s: %w", listingID.Hex(), err)
	}

	for _, key := range updates.Images {
		if dispErr := s.dispatcher.EnqueueImageProcess(ctx, listingID, key); dispErr != nil {
			log.Printf("WARN: failed to enqueue image processing for listing %s key %s: %v", listingID.Hex(), key, dispErr)
		}
	}

	return &listing, nil
}

// diagnoseWriteMiss turns a zero-match conditional write into the right
// domain error by re-reading the document.
func (s *listingService) diagnoseWriteMiss(ctx context.Context, listingID, callerID primitive.ObjectID, isAdmin bool) error {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.New(apperr.NotFound, "listing not found")
		}
		return fmt.Errorf("error re-reading listing %s: %w", listingID.Hex(), err)
	}
	if !isAdmin && listing.UserID != callerID {
		return apperr.New(apperr.Forbidden, "only the seller may modify this listing")
	}
	if listing.IsDeleted {
		return apperr.New(apperr.Conflict, "listing has been deleted")
	}
	return apperr.New(apperr.Conflict, "listing is not in a modifiable state")
}

// Moderate applies an admin decision. Re-applying the same decision is
// allowed (no pending guard). A rejection also pulls the listing off the
// market by forcing status=removed.
func (s *listingService) Moderate(ctx context.Context, listingID, adminID primitive.ObjectID, approve bool, note string) error {
	now := time.Now().UTC()
	set := bson.M{
		"moderation_note": strings.TrimSpace(note),
		"updated_at":      now,
	}
	if approve {
		set["moderation_status"] = models.ModerationApproved
	} else {
		set["moderation_status"] = models.ModerationRejected
		set["status"] = models.ListingRemoved
	}

	res := s.db.Collection(listingsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": listingID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var listing models.Listing
	if err := res.Decode(&listing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.New(apperr.NotFound, "listing not found")
		}
		return fmt.Errorf("error moderating listing %s: %w", listingID.Hex(), err)
	}

	s.notifyModeration(ctx, &listing, approve)
	return nil
}

// notifyModeration fans out the seller notification and email. Best-effort.
func (s *listingService) notifyModeration(ctx context.Context, listing *models.Listing, approved bool) {
	title := "Listing approved"
	content := fmt.Sprintf("Your listing %q is now live.", listing.Title)
	if !approved {
		title = "Listing rejected"
		content = fmt.Sprintf("Your listing %q was rejected by moderation.", listing.Title)
		if listing.ModerationNote != "" {
			content = fmt.Sprintf("%s Reason: %s", content, listing.ModerationNote)
		}
	}

	if err := s.notification.Push(ctx, listing.UserID, models.NotificationListing, title, content, &listing.ID); err != nil {
		log.Printf("WARN: failed to push moderation notification for listing %s: %v", listing.ID.Hex(), err)
	}

	seller, err := s.users.FindUserByID(ctx, listing.UserID)
	if err != nil {
		log.Printf("WARN: failed to load seller %s for moderation email: %v", listing.UserID.Hex(), err)
		return
	}
	if err := s.dispatcher.EnqueueEmail(ctx, EmailPayload{
		To:       seller.Email,
		Subject:  title,
		BodyText: fmt.Sprintf("Hi %s,\n\n%s", seller.Name, content),
	}); err != nil {
		log.Printf("WARN: failed to enqueue moderation email to %s: %v", seller.Email, err)
	}
}

// MarkSold transitions an active listing to sold and bumps the seller's sales
// counter. Owner only.
func (s *listingService) MarkSold(ctx context.Context, listingID, callerID primitive.ObjectID) error {
	res, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
		bson.M{
			"_id":        listingID,
			"user_id":    callerID,
			"status":     models.ListingActive,
			"is_deleted": false,
		},
		bson.M{"$set": bson.M{"status": models.ListingSold, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("error marking listing %s sold: %w", listingID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		var listing models.Listing
		findErr := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
		if findErr != nil {
			if errors.Is(findErr, mongo.ErrNoDocuments) {
				return apperr.New(apperr.NotFound, "listing not found")
			}
			return fmt.Errorf("error re-reading listing %s: %w", listingID.Hex(), findErr)
		}
		if listing.UserID != callerID {
			return apperr.New(apperr.Forbidden, "only the seller may mark this listing sold")
		}
		return apperr.New(apperr.Conflict, "listing is not active")
	}

	if err := s.users.RecordSale(ctx, callerID); err != nil {
		log.Printf("WARN: failed to increment sales count for user %s: %v", callerID.Hex(), err)
	}
	return nil
}

// SoftDelete starts the 2-day grace window. Strictly owner-only (admins use
// HardDelete), one soft-delete per listing: a repeat call is a Conflict so the
// grace window can never be silently extended.
func (s *listingService) SoftDelete(ctx context.Context, listingID, callerID primitive.ObjectID, reason models.DeleteReason) error {
	if !reason.Valid() {
		return apperr.Newf(apperr.Validation, "unknown delete reason %q", reason)
	}

	now := time.Now().UTC()
	res, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
		bson.M{"_id": listingID, "user_id": callerID, "is_deleted": false},
		bson.M{"$set": bson.M{
			"is_deleted":    true,
			"deleted_at":    now,
			"delete_reason": reason,
			"status":        models.ListingSold,
			"updated_at":    now,
		}},
	)
	if err != nil {
		return fmt.Errorf("error soft-deleting listing %s: %w", listingID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		var listing models.Listing
		findErr := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
		if findErr != nil {
			if errors.Is(findErr, mongo.ErrNoDocuments) {
				return apperr.New(apperr.NotFound, "listing not found")
			}
			return fmt.Errorf("error re-reading listing %s: %w", listingID.Hex(), findErr)
		}
		if listing.UserID != callerID {
			return apperr.New(apperr.Forbidden, "only the seller may delete this listing")
		}
		return apperr.New(apperr.Conflict, "listing is already deleted")
	}
	return nil
}

// HardDelete permanently removes a listing. Admin only (enforced at the API
// layer).
func (s *listingService) HardDelete(ctx context.Context, listingID primitive.ObjectID) error {
	res, err := s.db.Collection(listingsCollection).DeleteOne(ctx, bson.M{"_id": listingID})
	if err != nil {
		return fmt.Errorf("error hard-deleting listing %s: %w", listingID.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return apperr.New(apperr.NotFound, "listing not found")
	}
	return nil
}

// Report appends a user report. The $ne filter rejects a second report from
// the same user atomically; reaching the review threshold flags the listing
// back into pending moderation.
func (s *listingService) Report(ctx context.Context, listingID, reporterID primitive.ObjectID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperr.New(apperr.Validation, "a report reason is required")
	}

	report := models.Report{UserID: reporterID, Reason: reason, CreatedAt: time.Now().UTC()}
	res := s.db.Collection(listingsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": listingID, "reports.user_id": bson.M{"$ne": reporterID}},
		bson.M{"$push": bson.M{"reports": report}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var listing models.Listing
	if err := res.Decode(&listing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Missing listing or duplicate report; re-read to tell them apart.
			count, countErr := s.db.Collection(listingsCollection).CountDocuments(ctx, bson.M{"_id": listingID})
			if countErr != nil {
				return fmt.Errorf("error re-reading listing %s: %w", listingID.Hex(), countErr)
			}
			if count == 0 {
				return apperr.New(apperr.NotFound, "listing not found")
			}
			return apperr.New(apperr.Duplicate, "you have already reported this listing")
		}
		return fmt.Errorf("error reporting listing %s: %w", listingID.Hex(), err)
	}

	if len(listing.Reports) >= models.ReportReviewThreshold &&
		listing.ModerationStatus != models.ModerationPending {
		_, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
			bson.M{"_id": listingID},
			bson.M{"$set": bson.M{"moderation_status": models.ModerationPending}},
		)
		if err != nil {
			return fmt.Errorf("error re-flagging listing %s for review: %w", listingID.Hex(), err)
		}
		log.Printf("listing %s re-flagged for moderation after %d reports", listingID.Hex(), len(listing.Reports))
	}
	return nil
}

// ToggleFavorite flips the (user, listing) favorite state. The user-side set
// is the source of truth: the conditional $addToSet/$pull decides which way
// the toggle goes, and the listing counter follows only when the user write
// actually modified the set. Concurrent toggles by the same user therefore
// cannot drift the counter.
func (s *listingService) ToggleFavorite(ctx context.Context, listingID, userID primitive.ObjectID) (bool, error) {
	count, err := s.db.Collection(listingsCollection).CountDocuments(ctx, bson.M{"_id": listingID})
	if err != nil {
		return false, fmt.Errorf("error checking listing %s: %w", listingID.Hex(), err)
	}
	if count == 0 {
		return false, apperr.New(apperr.NotFound, "listing not found")
	}

	users := s.db.Collection(usersCollection)

	// Try to add first; if the user already had it, the filter misses and we
	// remove instead.
	res, err := users.UpdateOne(ctx,
		bson.M{"_id": userID, "favorites": bson.M{"$ne": listingID}},
		bson.M{"$addToSet": bson.M{"favorites": listingID}},
	)
	if err != nil {
		return false, fmt.Errorf("error adding favorite for user %s: %w", userID.Hex(), err)
	}
	if res.ModifiedCount > 0 {
		if _, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
			bson.M{"_id": listingID},
			bson.M{"$inc": bson.M{"favorites_count": 1}},
		); err != nil {
			return false, fmt.Errorf("error incrementing favorites on listing %s: %w", listingID.Hex(), err)
		}
		return true, nil
	}
	if res.MatchedCount == 0 {
		// Filter matched neither the user nor the $ne condition; find out which.
		userCount, countErr := users.CountDocuments(ctx, bson.M{"_id": userID})
		if countErr != nil {
			return false, fmt.Errorf("error checking user %s: %w", userID.Hex(), countErr)
		}
		if userCount == 0 {
			return false, apperr.New(apperr.NotFound, "user not found")
		}
	}

	res, err = users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"favorites": listingID}},
	)
	if err != nil {
		return false, fmt.Errorf("error removing favorite for user %s: %w", userID.Hex(), err)
	}
	if res.ModifiedCount > 0 {
		if _, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
			bson.M{"_id": listingID, "favorites_count": bson.M{"$gt": 0}},
			bson.M{"$inc": bson.M{"favorites_count": -1}},
		); err != nil {
			return false, fmt.Errorf("error decrementing favorites on listing %s: %w", listingID.Hex(), err)
		}
	}
	return false, nil
}

// Search runs the public browse query. Only visible listings are returned:
// approved, and either live or soft-deleted within the grace window.
func (s *listingService) Search(ctx context.Context, params SearchParams) ([]models.Listing, error) {
	now := time.Now().UTC()
	graceCutoff := now.Add(-models.DeleteGracePeriod)

	filter := bson.M{
		"moderation_status": models.ModerationApproved,
		"$or": bson.A{
			bson.M{"is_deleted": false, "status": models.ListingActive},
			bson.M{"is_deleted": true, "deleted_at": bson.M{"$gt": graceCutoff}},
		},
	}
	if params.Query != "" {
		filter["$text"] = bson.M{"$search": params.Query}
	}
	if params.Category != "" {
		if !params.Category.Valid() {
			return nil, apperr.Newf(apperr.Validation, "unknown category %q", params.Category)
		}
		filter["category"] = params.Category
	}
	if params.Area != "" {
		if !params.Area.Valid() {
			return nil, apperr.Newf(apperr.Validation, "unknown area %q", params.Area)
		}
		filter["location.area"] = params.Area
	}
	if params.MinPrice > 0 || params.MaxPrice > 0 {
		price := bson.M{}
		if params.MinPrice > 0 {
			price["$gte"] = params.MinPrice
		}
		if params.MaxPrice > 0 {
			price["$lte"] = params.MaxPrice
		}
		filter["price"] = price
	}
	if params.Featured {
		filter["featured"] = true
	}

	var sort bson.D
	switch params.SortBy {
	case "price_asc":
		sort = bson.D{{Key: "price", Value: 1}}
	case "price_desc":
		sort = bson.D{{Key: "price", Value: -1}}
	case "views":
		sort = bson.D{{Key: "views", Value: -1}}
	default:
		sort = bson.D{{Key: "created_at", Value: -1}}
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	cursor, err := s.db.Collection(listingsCollection).Find(ctx, filter,
		options.Find().SetSort(sort).SetLimit(limit).SetSkip(params.Skip))
	if err != nil {
		return nil, fmt.Errorf("error searching listings: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []models.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("error decoding search results: %w", err)
	}
	for i := range listings {
		if listings[i].IsDeleted {
			listings[i].Status = listings[i].DisplayStatus()
		}
	}
	return listings, nil
}

// ListBySeller returns a seller's listings, newest first. includeHidden is
// true for the seller's own dashboard (pending/rejected/deleted included);
// false restricts to the public visibility rules.
func (s *listingService) ListBySeller(ctx context.Context, sellerID primitive.ObjectID, includeHidden bool) ([]models.Listing, error) {
	filter := bson.M{"user_id": sellerID}
	if !includeHidden {
		now := time.Now().UTC()
		filter["moderation_status"] = models.ModerationApproved
		filter["$or"] = bson.A{
			bson.M{"is_deleted": false, "status": models.ListingActive},
			bson.M{"is_deleted": true, "deleted_at": bson.M{"$gt": now.Add(-models.DeleteGracePeriod)}},
		}
	}

	cursor, err := s.db.Collection(listingsCollection).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("error listing by seller %s: %w", sellerID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var listings []models.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("error decoding seller listings: %w", err)
	}
	return listings, nil
}

// AddImage appends one processed image key to a listing.
func (s *listingService) AddImage(ctx context.Context, listingID, callerID primitive.ObjectID, imageKey string) error {
	if strings.TrimSpace(imageKey) == "" {
		return apperr.New(apperr.Validation, "image key is required")
	}
	res, err := s.db.Collection(listingsCollection).UpdateOne(ctx,
		bson.M{"_id": listingID, "user_id": callerID, "is_deleted": false},
		bson.M{"$push": bson.M{"images": imageKey}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("error adding image to listing %s: %w", listingID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return s.diagnoseWriteMiss(ctx, listingID, callerID, false)
	}
	return nil
}

// ListPendingModeration returns the admin moderation queue, oldest first.
func (s *listingService) ListPendingModeration(ctx context.Context, limit int64) ([]models.Listing, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	cursor, err := s.db.Collection(listingsCollection).Find(ctx,
		bson.M{"moderation_status": models.ModerationPending, "is_deleted": false},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("error listing pending moderation: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []models.Listing
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("error decoding moderation queue: %w", err)
	}
	return listings, nil
}

// PurgeExpired permanently deletes every listing whose soft-delete grace
// window has elapsed, returning the purge count. The cutoff uses the same
// constant as the read path so the two can never disagree.
func (s *listingService) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-models.DeleteGracePeriod)
	res, err := s.db.Collection(listingsCollection).DeleteMany(ctx, bson.M{
		"is_deleted": true,
		"deleted_at": bson.M{"$lte": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("error purging expired listings: %w", err)
	}
	if res.DeletedCount > 0 {
		log.Printf("retention sweep purged %d expired listing(s)", res.DeletedCount)
	}
	return res.DeletedCount, nil
}
