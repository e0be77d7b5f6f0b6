package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageType distinguishes user text, image posts and system notices.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageSystem MessageType = "system"
)

// Message is one unit of conversation content. Content always holds the
// post-filter text; OriginalContent is set only when the content filter
// altered the text and is restricted to admin reads.
type Message struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ConversationID  primitive.ObjectID `bson:"conversation_id" json:"conversation_id"`
	SenderID        primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	Content         string             `bson:"content" json:"content"`
	OriginalContent string             `bson:"original_content,omitempty" json:"-"`
	IsFiltered      bool               `bson:"is_filtered" json:"is_filtered"`
	Type            MessageType        `bson:"type" json:"type"`
	Attachments     []string           `bson:"attachments,omitempty" json:"attachments,omitempty"` // S3 keys
	Read            bool               `bson:"read" json:"read"`
	ReadAt          *time.Time         `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}
