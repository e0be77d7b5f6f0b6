package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationMessage NotificationType = "message"
	NotificationListing NotificationType = "listing"
	NotificationSystem  NotificationType = "system"
)

// MaxNotifications bounds the per-user notification list. Appends beyond the
// cap drop the oldest entries (ring-buffer semantics via $push + $slice).
const MaxNotifications = 50

// Notification is one entry in a user's embedded notification list.
type Notification struct {
	ID        primitive.ObjectID  `bson:"id" json:"id"`
	Type      NotificationType    `bson:"type" json:"type"`
	Title     string              `bson:"title" json:"title"`
	Content   string              `bson:"content" json:"content"`
	Read      bool                `bson:"read" json:"read"`
	RelatedID *primitive.ObjectID `bson:"related_id,omitempty" json:"related_id,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}
