package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Maksud444/market-cairo-server/internal/apperr"
	"github.com/Maksud444/market-cairo-server/internal/db"
	"github.com/Maksud444/market-cairo-server/internal/filter"
	"github.com/Maksud444/market-cairo-server/internal/models"
)

// IChatService defines the interface for conversations and messages.
type IChatService interface {
	GetOrCreateConversation(ctx context.Context, callerID, listingID primitive.ObjectID) (*models.Conversation, error)
	SendMessage(ctx context.Context, conversationID, senderID primitive.ObjectID, content string, msgType models.MessageType, attachments []string) (*models.Message, error)
	OpenConversation(ctx context.Context, conversationID, viewerID primitive.ObjectID) ([]models.Message, *models.PublicProfile, error)
	ArchiveConversation(ctx context.Context, conversationID, viewerID primitive.ObjectID) error
	ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error)
	GetConversation(ctx context.Context, conversationID, viewerID primitive.ObjectID) (*models.Conversation, error)
	GetMessageAsAdmin(ctx context.Context, messageID primitive.ObjectID) (*models.Message, error)
}

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

// chatService implements IChatService.
type chatService struct {
	db           *mongo.Database
	users        IUserService
	notification INotificationService
	dispatcher   Dispatcher
}

// NewChatService creates a new ChatService.
func NewChatService(db *mongo.Database, users IUserService, notification INotificationService, dispatcher Dispatcher) IChatService {
	return &chatService{db: db, users: users, notification: notification, dispatcher: dispatcher}
}

// GetOrCreateConversation returns the single conversation between the caller
// and the listing's seller for that listing, creating it on first contact.
// The unique index on (pair_key, listing_id) makes concurrent first-contact
// calls collapse to one document: the losing insert hits a duplicate key and
// falls back to reading the winner.
func (s *chatService) GetOrCreateConversation(ctx context.Context, callerID, listingID primitive.ObjectID) (*models.Conversation, error) {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, "listing not found")
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID.Hex(), err)
	}
	if listing.UserID == callerID {
		return nil, apperr.New(apperr.Validation, "cannot start a conversation with yourself")
	}

	pairKey := models.PairKey(callerID, listing.UserID)

	var conversation models.Conversation
	findFilter := bson.M{"pair_key": pairKey, "listing_id": listingID}
	err = s.db.Collection(conversationsCollection).FindOne(ctx, findFilter).Decode(&conversation)
	if err == nil {
		return &conversation, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error finding conversation: %w", err)
	}

	now := time.Now().UTC()
	conversation = models.Conversation{
		ID:           primitive.NewObjectID(),
		PairKey:      pairKey,
		ListingID:    listingID,
		Participants: []primitive.ObjectID{callerID, listing.UserID},
		Unread: map[string]int64{
			callerID.Hex():       0,
			listing.UserID.Hex(): 0,
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.Collection(conversationsCollection).InsertOne(ctx, &conversation)
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			// Lost the race; the other request created it.
			if findErr := s.db.Collection(conversationsCollection).FindOne(ctx, findFilter).Decode(&conversation); findErr != nil {
				return nil, fmt.Errorf("error reading conversation after duplicate insert: %w", findErr)
			}
			return &conversation, nil
		}
		return nil, fmt.Errorf("error creating conversation: %w", err)
	}
	return &conversation, nil
}

// loadConversationFor loads a conversation and checks that viewer is a
// participant.
func (s *chatService) loadConversationFor(ctx context.Context, conversationID, viewerID primitive.ObjectID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := s.db.Collection(conversationsCollection).FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conversation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, "conversation not found")
		}
		return nil, fmt.Errorf("error finding conversation %s: %w", conversationID.Hex(), err)
	}
	if !conversation.HasParticipant(viewerID) {
		return nil, apperr.New(apperr.Forbidden, "not a participant of this conversation")
	}
	return &conversation, nil
}

// SendMessage persists one message. Content always passes through the contact
// filter before it is stored; when the filter fired, the raw input is kept in
// original_content for admin review only. The counterpart's unread counter
// and the last-message snapshot update in the same conversation write.
func (s *chatService) SendMessage(ctx context.Context, conversationID, senderID primitive.ObjectID, content string, msgType models.MessageType, attachments []string) (*models.Message, error) {
	if msgType == "" {
		msgType = models.MessageText
	}
	if msgType == models.MessageText && strings.TrimSpace(content) == "" {
		return nil, apperr.New(apperr.Validation, "message content is required")
	}

	conversation, err := s.loadConversationFor(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	counterpart, _ := conversation.Counterpart(senderID)

	result := filter.Apply(content)
	now := time.Now().UTC()
	message := &models.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        result.Filtered,
		IsFiltered:     result.WasFiltered,
		Type:           msgType,
		Attachments:    attachments,
		CreatedAt:      now,
	}
	if result.WasFiltered {
		message.OriginalContent = content
	}

	if _, err := s.db.Collection(messagesCollection).InsertOne(ctx, message); err != nil {
		return nil, fmt.Errorf("error inserting message: %w", err)
	}

	_, err = s.db.Collection(conversationsCollection).UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{
			"$set": bson.M{
				"last_message": models.LastMessage{
					Content:   message.Content,
					SenderID:  senderID,
					CreatedAt: now,
				},
				"is_active":  true,
				"updated_at": now,
			},
			"$inc": bson.M{"unread." + counterpart.Hex(): 1},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error updating conversation %s after send: %w", conversationID.Hex(), err)
	}

	s.fanOutMessage(ctx, conversation, message, counterpart)
	return message, nil
}

// fanOutMessage pushes the in-app notification and the realtime frame to the
// receiving participant. Best-effort.
func (s *chatService) fanOutMessage(ctx context.Context, conversation *models.Conversation, message *models.Message, receiverID primitive.ObjectID) {
	sender, err := s.users.FindUserByID(ctx, message.SenderID)
	senderName := "Someone"
	if err != nil {
		log.Printf("WARN: failed to load sender %s for message fan-out: %v", message.SenderID.Hex(), err)
	} else {
		senderName = sender.Name
	}

	preview := message.Content
	if len(preview) > 80 {
		// Back off to a rune boundary so the cut never splits a multi-byte
		// character.
		cut := 80
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut] + "…"
	}
	if err := s.notification.Push(ctx, receiverID, models.NotificationMessage,
		fmt.Sprintf("New message from %s", senderName), preview, &conversation.ID); err != nil {
		log.Printf("WARN: failed to push message notification to user %s: %v", receiverID.Hex(), err)
	}

	s.dispatcher.PushEvent(receiverID, RealtimeEvent{Type: "message", Payload: message})
}

// OpenConversation marks every message not sent by the viewer as read, resets
// the viewer's unread counter, and returns the history oldest-first together
// with the counterpart's public profile.
func (s *chatService) OpenConversation(ctx context.Context, conversationID, viewerID primitive.ObjectID) ([]models.Message, *models.PublicProfile, error) {
	conversation, err := s.loadConversationFor(ctx, conversationID, viewerID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	_, err = s.db.Collection(messagesCollection).UpdateMany(ctx,
		bson.M{
			"conversation_id": conversationID,
			"sender_id":       bson.M{"$ne": viewerID},
			"read":            false,
		},
		bson.M{"$set": bson.M{"read": true, "read_at": now}},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("error marking messages read in conversation %s: %w", conversationID.Hex(), err)
	}

	_, err = s.db.Collection(conversationsCollection).UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"unread." + viewerID.Hex(): 0}},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("error resetting unread counter in conversation %s: %w", conversationID.Hex(), err)
	}

	// _id as secondary sort keeps ordering stable when timestamps collide.
	cursor, err := s.db.Collection(messagesCollection).Find(ctx,
		bson.M{"conversation_id": conversationID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading messages for conversation %s: %w", conversationID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, nil, fmt.Errorf("error decoding messages: %w", err)
	}

	counterpartID, _ := conversation.Counterpart(viewerID)
	var profile *models.PublicProfile
	counterpart, err := s.users.FindUserByID(ctx, counterpartID)
	if err != nil {
		log.Printf("WARN: failed to load counterpart %s for conversation %s: %v", counterpartID.Hex(), conversationID.Hex(), err)
	} else {
		p := counterpart.Public()
		p.Online = s.dispatcher.IsOnline(counterpartID)
		profile = &p
	}

	return messages, profile, nil
}

// ArchiveConversation hides the thread from the viewer's conversation list.
// It stays readable by direct id.
func (s *chatService) ArchiveConversation(ctx context.Context, conversationID, viewerID primitive.ObjectID) error {
	if _, err := s.loadConversationFor(ctx, conversationID, viewerID); err != nil {
		return err
	}
	_, err := s.db.Collection(conversationsCollection).UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("error archiving conversation %s: %w", conversationID.Hex(), err)
	}
	return nil
}

// ListConversations returns the user's active threads, most recently updated
// first.
func (s *chatService) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	cursor, err := s.db.Collection(conversationsCollection).Find(ctx,
		bson.M{"participants": userID, "is_active": true},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("error listing conversations for user %s: %w", userID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var conversations []models.Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("error decoding conversations: %w", err)
	}
	return conversations, nil
}

// GetConversation returns one thread by id, participant-only.
func (s *chatService) GetConversation(ctx context.Context, conversationID, viewerID primitive.ObjectID) (*models.Conversation, error) {
	return s.loadConversationFor(ctx, conversationID, viewerID)
}

// GetMessageAsAdmin returns a message including the unfiltered original
// content. Admin access is enforced at the API layer.
func (s *chatService) GetMessageAsAdmin(ctx context.Context, messageID primitive.ObjectID) (*models.Message, error) {
	var message models.Message
	err := s.db.Collection(messagesCollection).FindOne(ctx, bson.M{"_id": messageID}).Decode(&message)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.New(apperr.NotFound, "message not found")
		}
		return nil, fmt.Errorf("error finding message %s: %w", messageID.Hex(), err)
	}
	return &message, nil
}
