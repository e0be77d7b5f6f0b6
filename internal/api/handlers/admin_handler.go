package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Maksud444/market-cairo-server/internal/apperr"
	"github.com/Maksud444/market-cairo-server/internal/services"
)

// AdminHandler handles the admin review and moderation endpoints. Admin
// privileges are enforced by the router middleware.
type AdminHandler struct {
	verificationService services.IVerificationService
	listingService      services.IListingService
	chatService         services.IChatService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(verificationService services.IVerificationService, listingService services.IListingService, chatService services.IChatService) *AdminHandler {
	return &AdminHandler{
		verificationService: verificationService,
		listingService:      listingService,
		chatService:         chatService,
	}
}

// PendingVerifications handles GET /v1/admin/verification.
func (h *AdminHandler) PendingVerifications(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	users, err := h.verificationService.ListPending(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type reviewVerificationRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

// ReviewVerification handles POST /v1/admin/verification/:id/review, where
// :id is the user under review.
func (h *AdminHandler) ReviewVerification(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reviewVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}

	verification, err := h.verificationService.Review(c.Request.Context(), userID, adminID, req.Approve, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, verification)
}

// ModerationQueue handles GET /v1/admin/listing.
func (h *AdminHandler) ModerationQueue(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	listings, err := h.listingService.ListPendingModeration(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

type moderateListingRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// ModerateListing handles POST /v1/admin/listing/:id/moderate.
func (h *AdminHandler) ModerateListing(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req moderateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}

	if err := h.listingService.Moderate(c.Request.Context(), listingID, adminID, req.Approve, req.Note); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HardDeleteListing handles DELETE /v1/admin/listing/:id.
func (h *AdminHandler) HardDeleteListing(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.listingService.HardDelete(c.Request.Context(), listingID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMessage handles GET /v1/admin/message/:id, exposing the pre-filter
// original content for moderation review.
func (h *AdminHandler) GetMessage(c *gin.Context) {
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}
	message, err := h.chatService.GetMessageAsAdmin(c.Request.Context(), messageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":          message,
		"original_content": message.OriginalContent,
	})
}
