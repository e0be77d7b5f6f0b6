package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Maksud444/market-cairo-server/internal/apperr"
	"github.com/Maksud444/market-cairo-server/internal/models"
)

// INotificationService defines the interface for in-app notifications.
type INotificationService interface {
	Push(ctx context.Context, userID primitive.ObjectID, typ models.NotificationType, title, content string, relatedID *primitive.ObjectID) error
	List(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int, error)
	MarkRead(ctx context.Context, userID, notificationID primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) error
}

// notificationService implements INotificationService. Notifications live as a
// capped embedded array on the user document; the push uses $push with $slice
// so the list never grows past models.MaxNotifications and the oldest entries
// fall off first.
type notificationService struct {
	db         *mongo.Database
	dispatcher Dispatcher
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(db *mongo.Database, dispatcher Dispatcher) INotificationService {
	return &notificationService{db: db, dispatcher: dispatcher}
}

// Push appends a notification and emits the realtime event. The Mongo write is
// the source of truth; the websocket push is best-effort on top.
func (s *notificationService) Push(ctx context.Context, userID primitive.ObjectID, typ models.NotificationType, title, content string, relatedID *primitive.ObjectID) error {
	notification := models.Notification{
		ID:        primitive.NewObjectID(),
		Type:      typ,
		Title:     title,
		Content:   content,
		RelatedID: relatedID,
		CreatedAt: time.Now().UTC(),
	}

	res, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$push": bson.M{"notifications": bson.M{
			"$each":  bson.A{notification},
			"$slice": -models.MaxNotifications,
		}}},
	)
	if err != nil {
		return fmt.Errorf("error pushing notification to user %s: %w", userID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}

	s.dispatcher.PushEvent(userID, RealtimeEvent{Type: "notification", Payload: notification})
	return nil
}

// List returns the user's notifications, newest first.
func (s *notificationService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx,
		bson.M{"_id": userID},
		options.FindOne().SetProjection(bson.M{"notifications": 1}),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, fmt.Errorf("error loading notifications for user %s: %w", userID.Hex(), err)
	}

	// Stored oldest-to-newest; reverse for display.
	out := make([]models.Notification, 0, len(user.Notifications))
	for i := len(user.Notifications) - 1; i >= 0; i-- {
		out = append(out, user.Notifications[i])
	}
	return out, nil
}

// UnreadCount returns the number of unread notifications.
func (s *notificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int, error) {
	notifications, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range notifications {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// MarkRead marks one notification as read via a positional update.
func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	res, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": userID, "notifications.id": notificationID},
		bson.M{"$set": bson.M{"notifications.$.read": true}},
	)
	if err != nil {
		return fmt.Errorf("error marking notification %s read: %w", notificationID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "notification not found")
	}
	return nil
}

// MarkAllRead marks every notification as read using an arrayFilters update.
func (s *notificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	res, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"notifications.$[elem].read": true}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: bson.A{bson.M{"elem.read": false}},
		}),
	)
	if err != nil {
		return fmt.Errorf("error marking all notifications read for user %s: %w", userID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}
