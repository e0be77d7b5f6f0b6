package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Maksud444/market-cairo-server/internal/api/middleware"
	"github.com/Maksud444/market-cairo-server/internal/apperr"
	"github.com/Maksud444/market-cairo-server/internal/models"
	"github.com/Maksud444/market-cairo-server/internal/services"
)

// ListingHandler handles listing endpoints.
type ListingHandler struct {
	listingService services.IListingService
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(listingService services.IListingService) *ListingHandler {
	return &ListingHandler{listingService: listingService}
}

type createListingRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description" binding:"required"`
	Price       int64            `json:"price" binding:"required"`
	Category    models.Category  `json:"category" binding:"required"`
	Condition   models.Condition `json:"condition" binding:"required"`
	Location    models.Location  `json:"location" binding:"required"`
	Images      []string         `json:"images"`
}

// Create handles POST /v1/listing.
func (h *ListingHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.Validation, "title, description, price, category, condition and location are required"))
		return
	}

	listing, err := h.listingService.CreateListing(c.Request.Context(), userID, services.ListingInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Condition:   req.Condition,
		Location:    req.Location,
		Images:      req.Images,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// Get handles GET /v1/listing/:id. Works with or without authentication;
// an authenticated non-owner fetch counts a view.
func (h *ListingHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var viewer *primitive.ObjectID
	if raw, exists := c.Get(middleware.ContextKeyUserID); exists {
		if parsed, err := primitive.ObjectIDFromHex(raw.(string)); err == nil {
			viewer = &parsed
		}
	}

	listing, err := h.listingService.GetListing(c.Request.Context(), id, viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

type updateListingRequest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Price       *int64            `json:"price"`
	Category    *models.Category  `json:"category"`
	Condition   *models.Condition `json:"condition"`
	Location    *models.Location  `json:"location"`
	Images      []string          `json:"images"` // appended, never replaced
}

// Update handles PATCH /v1/listing/:id.
func (h *ListingHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	listing, err := h.listingService.UpdateListing(c.Request.Context(), id, userID, isAdmin(c), services.ListingUpdates{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Condition:   req.Condition,
		Location:    req.Location,
		Images:      req.Images,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// MarkSold handles POST /v1/listing/:id/sold.
func (h *ListingHandler) MarkSold(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.listingService.MarkSold(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type softDeleteRequest struct {
	Reason models.DeleteReason `json:"reason" binding:"required"`
}

// SoftDelete handles DELETE /v1/listing/:id.
func (h *ListingHandler) SoftDelete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req softDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.Validation, "a delete reason is required"))
		return
	}
	if err := h.listingService.SoftDelete(c.Request.Context(), id, userID, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type reportRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Report handles POST /v1/listing/:id/report.
func (h *ListingHandler) Report(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.New(apperr.Validation, "a report reason is required"))
		return
	}
	if err := h.listingService.Report(c.Request.Context(), id, userID, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleFavorite handles POST /v1/listing/:id/favorite.
func (h *ListingHandler) ToggleFavorite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	favorited, err := h.listingService.ToggleFavorite(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": favorited})
}

// Search handles GET /v1/listing/search.
func (h *ListingHandler) Search(c *gin.Context) {
	params := services.SearchParams{
		Query:    c.Query("q"),
		Category: models.Category(c.Query("category")),
		Area:     models.Area(c.Query("area")),
		SortBy:   c.Query("sort"),
		Featured: c.Query("featured") == "true",
	}
	if v, err := strconv.ParseInt(c.DefaultQuery("min_price", "0"), 10, 64); err == nil {
		params.MinPrice = v
	}
	if v, err := strconv.ParseInt(c.DefaultQuery("max_price", "0"), 10, 64); err == nil {
		params.MaxPrice = v
	}
	if v, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64); err == nil {
		params.Limit = v
	}
	if v, err := strconv.ParseInt(c.DefaultQuery("skip", "0"), 10, 64); err == nil {
		params.Skip = v
	}

	listings, err := h.listingService.Search(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// BySeller handles GET /v1/user/:id/listing. The seller sees all of their own
// listings; everyone else sees only the publicly visible ones.
func (h *ListingHandler) BySeller(c *gin.Context) {
	sellerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	includeHidden := false
	if raw, exists := c.Get(middleware.ContextKeyUserID); exists {
		if viewerID, err := primitive.ObjectIDFromHex(raw.(string)); err == nil {
			includeHidden = viewerID == sellerID || isAdmin(c)
		}
	}

	listings, err := h.listingService.ListBySeller(c.Request.Context(), sellerID, includeHidden)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}
