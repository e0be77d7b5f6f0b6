package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Maksud444/market-cairo-server/internal/apperr"
	"github.com/Maksud444/market-cairo-server/internal/models"
	"github.com/Maksud444/market-cairo-server/internal/services"
)

// VerificationHandler handles identity verification endpoints.
type VerificationHandler struct {
	verificationService services.IVerificationService
}

// NewVerificationHandler creates a new VerificationHandler.
func NewVerificationHandler(verificationService services.IVerificationService) *VerificationHandler {
	return &VerificationHandler{verificationService: verificationService}
}

type submitVerificationRequest struct {
	DocumentType models.DocumentType `json:"document_type" binding:"required"`
	Images       []string            `json:"images" binding:"required"`
}

// Submit handles POST /v1/verification.
func (h *VerificationHandler) Submit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req submitVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.Validation, "document_type and images are required"))
		return
	}

	verification, err := h.verificationService.Submit(c.Request.Context(), userID, req.DocumentType, req.Images)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, verification)
}

// Status handles GET /v1/verification.
func (h *VerificationHandler) Status(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	verification, err := h.verificationService.Status(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, verification)
}
