package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Maksud444/market-cairo-server/internal/auth"
	"github.com/Maksud444/market-cairo-server/internal/config"
	"github.com/Maksud444/market-cairo-server/internal/realtime"
	"github.com/Maksud444/market-cairo-server/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is already constrained by the CORS layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WsHandler upgrades clients onto the realtime registry and relays
// lightweight client frames (typing indicators).
type WsHandler struct {
	cfg         *config.Config
	registry    *realtime.Registry
	chatService services.IChatService
	userService services.IUserService
}

// NewWsHandler creates a new WsHandler.
func NewWsHandler(cfg *config.Config, registry *realtime.Registry, chatService services.IChatService, userService services.IUserService) *WsHandler {
	return &WsHandler{cfg: cfg, registry: registry, chatService: chatService, userService: userService}
}

// clientFrame is what connected clients may send upstream. Everything else
// flows through the REST API.
type clientFrame struct {
	Type           string `json:"type"` // "typing"
	ConversationID string `json:"conversation_id"`
}

// Connect handles GET /v1/ws?token=<jwt>. Browsers cannot set an
// Authorization header on a websocket handshake, so the token rides in the
// query string.
func (h *WsHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token query parameter required"})
		return
	}
	claims, err := auth.ValidateJWT(token, h.cfg.JwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credential subject"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WARN: websocket upgrade failed for user %s: %v", userID.Hex(), err)
		return
	}

	conn := realtime.NewConnection(userID, ws)
	h.registry.Attach(conn)

	if err := h.userService.TouchLastSeen(context.Background(), userID); err != nil {
		log.Printf("WARN: failed to touch last_seen for user %s: %v", userID.Hex(), err)
	}

	go h.readLoop(conn, ws)
}

// readLoop consumes inbound frames until the client disconnects. Typing
// indicators are relayed to the conversation counterpart; presence is updated
// on disconnect.
func (h *WsHandler) readLoop(conn *realtime.Connection, ws *websocket.Conn) {
	defer func() {
		h.registry.Detach(conn)
		conn.Close(websocket.CloseNormalClosure, "client disconnected")
		if err := h.userService.TouchLastSeen(context.Background(), conn.UserID); err != nil {
			log.Printf("WARN: failed to touch last_seen for user %s: %v", conn.UserID.Hex(), err)
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Type != "typing" {
			continue
		}
		conversationID, err := primitive.ObjectIDFromHex(frame.ConversationID)
		if err != nil {
			continue
		}
		conversation, err := h.chatService.GetConversation(context.Background(), conversationID, conn.UserID)
		if err != nil {
			continue
		}
		counterpart, ok := conversation.Counterpart(conn.UserID)
		if !ok {
			continue
		}
		h.registry.Push(counterpart, services.RealtimeEvent{
			Type: "typing",
			Payload: gin.H{
				"conversation_id": conversationID.Hex(),
				"user_id":         conn.UserID.Hex(),
			},
		})
	}
}
