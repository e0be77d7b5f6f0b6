package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmailPayload carries everything needed to deliver one email.
type EmailPayload struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	BodyText string `json:"body_text"`
	BodyHTML string `json:"body_html,omitempty"`
}

// RealtimeEvent is one push frame for a connected user.
type RealtimeEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Dispatcher is how services hand off side effects (email, websocket push,
// image work) without depending on the task layer. Delivery is best-effort:
// implementations must never surface transport failures back to the caller's
// primary operation.
type Dispatcher interface {
	EnqueueEmail(ctx context.Context, payload EmailPayload) error
	EnqueueImageProcess(ctx context.Context, listingID primitive.ObjectID, imageKey string) error
	PushEvent(userID primitive.ObjectID, event RealtimeEvent)
	// IsOnline reports whether the user holds a live realtime connection in
	// this process. Advisory only; durable presence is the last-seen timestamp.
	IsOnline(userID primitive.ObjectID) bool
}

// NopDispatcher discards everything. Used in tests and the seed tool.
type NopDispatcher struct{}

func (NopDispatcher) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	return nil
}

func (NopDispatcher) EnqueueImageProcess(ctx context.Context, listingID primitive.ObjectID, imageKey string) error {
	return nil
}

func (NopDispatcher) PushEvent(userID primitive.ObjectID, event RealtimeEvent) {}

func (NopDispatcher) IsOnline(userID primitive.ObjectID) bool { return false }
