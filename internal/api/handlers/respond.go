package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Maksud444/market-cairo-server/internal/api/middleware"
	"github.com/Maksud444/market-cairo-server/internal/apperr"
)

// respondError maps a service error onto the HTTP response. Domain errors
// carry their own status and message; anything else is logged in full and
// reported generically.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	body := gin.H{"error": apperr.PublicMessage(err)}
	if code := apperr.PublicCode(err); code != "" {
		body["code"] = code
	}
	c.AbortWithStatusJSON(status, body)
}

// currentUserID extracts the authenticated user's id set by the auth
// middleware. ok is false (and the response already written) on failure.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	raw, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(raw.(string))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credential subject"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// isAdmin reports the admin claim set by the auth middleware.
func isAdmin(c *gin.Context) bool {
	v, exists := c.Get(middleware.ContextKeyIsAdmin)
	return exists && v.(bool)
}

// parseHexID parses an ObjectID from a request body field.
func parseHexID(hex string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(hex)
}

// pathID parses an ObjectID path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return primitive.NilObjectID, false
	}
	return id, true
}
