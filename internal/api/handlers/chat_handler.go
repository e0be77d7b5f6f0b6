package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Maksud444/market-cairo-server/internal/apperr"
	"github.com/Maksud444/market-cairo-server/internal/models"
	"github.com/Maksud444/market-cairo-server/internal/services"
)

// ChatHandler handles conversation and message endpoints.
type ChatHandler struct {
	chatService services.IChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService services.IChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type startConversationRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
}

// Start handles POST /v1/conversation: find-or-create against the listing's
// seller.
func (h *ChatHandler) Start(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.Validation, "listing_id is required"))
		return
	}
	listingID, err := parseHexID(req.ListingID)
	if err != nil {
		respondError(c, apperr.New(apperr.Validation, "invalid listing_id"))
		return
	}

	conversation, err := h.chatService.GetOrCreateConversation(c.Request.Context(), userID, listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conversation)
}

// List handles GET /v1/conversation.
func (h *ChatHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	conversations, err := h.chatService.ListConversations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// Open handles GET /v1/conversation/:id: returns the ordered history, resets
// the caller's unread counter and marks incoming messages read.
func (h *ChatHandler) Open(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	messages, counterpart, err := h.chatService.OpenConversation(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "counterpart": counterpart})
}

type sendMessageRequest struct {
	Content     string             `json:"content"`
	Type        models.MessageType `json:"type"`
	Attachments []string           `json:"attachments"`
}

// Send handles POST /v1/conversation/:id/message.
func (h *ChatHandler) Send(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), conversationID, userID, req.Content, req.Type, req.Attachments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// Archive handles DELETE /v1/conversation/:id.
func (h *ChatHandler) Archive(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	conversationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.chatService.ArchiveConversation(c.Request.Context(), conversationID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
