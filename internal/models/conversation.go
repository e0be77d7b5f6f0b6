package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LastMessage is the cached snapshot of a conversation's most recent message.
type LastMessage struct {
	Content   string             `bson:"content" json:"content"`
	SenderID  primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Conversation is a message thread scoped to exactly one listing and two
// participants. At most one conversation exists per (unordered pair, listing),
// enforced by a unique index on (pair_key, listing_id).
type Conversation struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	PairKey      string               `bson:"pair_key" json:"-"`
	ListingID    primitive.ObjectID   `bson:"listing_id" json:"listing_id"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	LastMessage  *LastMessage         `bson:"last_message,omitempty" json:"last_message,omitempty"`
	Unread       map[string]int64     `bson:"unread" json:"unread"` // participant hex id -> count
	IsActive     bool                 `bson:"is_active" json:"is_active"`
	CreatedAt    time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at" json:"updated_at"`
}

// PairKey builds the canonical unordered key for a participant pair. The two
// ids are sorted lexicographically so (a,b) and (b,a) collapse to one key.
func PairKey(a, b primitive.ObjectID) string {
	ha, hb := a.Hex(), b.Hex()
	if strings.Compare(ha, hb) > 0 {
		ha, hb = hb, ha
	}
	return ha + ":" + hb
}

// HasParticipant reports whether id is one of the two participants.
func (c *Conversation) HasParticipant(id primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// Counterpart returns the other participant. ok is false when id is not a
// participant of the conversation.
func (c *Conversation) Counterpart(id primitive.ObjectID) (primitive.ObjectID, bool) {
	for _, p := range c.Participants {
		if p != id {
			return p, c.HasParticipant(id)
		}
	}
	return primitive.NilObjectID, false
}

// UnreadFor returns the unread count for the given participant.
func (c *Conversation) UnreadFor(id primitive.ObjectID) int64 {
	if c.Unread == nil {
		return 0
	}
	return c.Unread[id.Hex()]
}
