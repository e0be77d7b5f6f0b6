package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Maksud444/market-cairo-server/internal/services"
	"github.com/Maksud444/market-cairo-server/internal/storage"
)

// UserHandler handles profile and account endpoints.
type UserHandler struct {
	userService services.IUserService
	storage     storage.IS3Storage
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.IUserService, storage storage.IS3Storage) *UserHandler {
	return &UserHandler{userService: userService, storage: storage}
}

// Me handles GET /v1/me.
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.userService.FindUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.userService.TouchLastSeen(c.Request.Context(), userID); err != nil {
		log.Printf("WARN: failed to touch last_seen for user %s: %v", userID.Hex(), err)
	}
	c.JSON(http.StatusOK, user)
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Avatar   *string `json:"avatar"`
	Location *string `json:"location"`
}

// UpdateProfile handles PATCH /v1/me.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, services.ProfileUpdates{
		Name:     req.Name,
		Avatar:   req.Avatar,
		Location: req.Location,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Deactivate handles DELETE /v1/me.
func (h *UserHandler) Deactivate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.userService.Deactivate(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetPublicProfile handles GET /v1/user/:id.
func (h *UserHandler) GetPublicProfile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	profile, err := h.userService.GetPublicProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UploadURL handles POST /v1/me/upload-url: a pre-signed S3 PUT for avatars,
// listing images and verification documents.
type uploadURLRequest struct {
	Purpose     string `json:"purpose" binding:"required"` // listings | avatars | documents
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

func (h *UserHandler) UploadURL(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "purpose, filename and content_type are required"})
		return
	}
	switch req.Purpose {
	case "listings", "avatars", "documents":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown upload purpose"})
		return
	}

	url, key, err := h.storage.GeneratePresignedPutURL(c.Request.Context(), userID.Hex(), req.Purpose, req.Filename, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "key": key})
}
