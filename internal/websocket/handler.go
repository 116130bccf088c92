package websocket

import (
	"context"
	"net/http"
	"os"
	"strings"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	allowed := []string{
		"http://localhost:3000",
		"https://localhost:3000",
		"http://127.0.0.1:3000",
	}
	if custom := os.Getenv("ALLOWED_ORIGINS"); custom != "" {
		for _, o := range strings.Split(custom, ",") {
			allowed = append(allowed, strings.TrimSpace(o))
		}
	}

	for _, o := range allowed {
		if o == origin || o == "*" {
			return true
		}
	}
	return false
}

// TokenVerifier authenticates the credential presented during the handshake.
type TokenVerifier interface {
	Verify(token string) (uint, error)
}

// Presence tracks which users currently hold at least one live connection.
type Presence interface {
	SetUserOnline(ctx context.Context, userID uint) error
	SetUserOffline(ctx context.Context, userID uint) error
}

// Gateway owns the websocket endpoint: it authenticates the handshake,
// upgrades the connection, registers the client and runs its pumps, and
// guarantees exactly one cleanup per connection no matter how it ends.
type Gateway struct {
	registry *Registry
	pipeline *Pipeline
	verifier TokenVerifier
	presence Presence
}

func NewGateway(registry *Registry, pipeline *Pipeline, verifier TokenVerifier, presence Presence) *Gateway {
	return &Gateway{
		registry: registry,
		pipeline: pipeline,
		verifier: verifier,
		presence: presence,
	}
}

// RegisterRoutes maps the websocket endpoint onto the router group.
func (g *Gateway) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws", g.HandleWebSocket)
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Establish an authenticated WebSocket connection for real-time messaging
// @Tags websocket
// @Param token query string true "JWT access token"
// @Success 101 "Switching Protocols - WebSocket connection established"
// @Failure 401 {object} map[string]interface{} "Unauthorized - missing or invalid token"
// @Router /ws [get]
func (g *Gateway) HandleWebSocket(c *gin.Context) {
	// The browser WebSocket API cannot set headers, so the credential
	// travels as a query parameter: /api/v1/ws?token=...
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token parameter is required"})
		return
	}

	userID, err := g.verifier.Verify(token)
	if err != nil {
		slog.Warn("WebSocket connection rejected", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		slog.Error("WebSocket upgrade failed", "userID", userID, "error", err)
		return
	}

	client := NewClient(conn, userID)
	g.register(client)

	go client.writePump()
	go client.readPump(g)
}

func (g *Gateway) register(c *Client) {
	// Presence flips on the first connection only, mirroring disconnect,
	// which flips it off when the last connection goes.
	first := !g.registry.Online(c.UserID())
	g.registry.Add(c.UserID(), c)

	if g.presence != nil && first {
		if err := g.presence.SetUserOnline(context.Background(), c.UserID()); err != nil {
			slog.Warn("Failed to mark user online", "userID", c.UserID(), "error", err)
		}
	}

	slog.Info("Client connected", "clientID", c.ID(), "userID", c.UserID())
}

// disconnect is the single cleanup path for a connection. It is idempotent:
// the read pump, the write pump and Shutdown can all race into it.
func (g *Gateway) disconnect(c *Client) {
	c.close()

	wasOnline := g.registry.Online(c.UserID())
	g.registry.Remove(c.UserID(), c)

	if g.presence != nil && wasOnline && !g.registry.Online(c.UserID()) {
		if err := g.presence.SetUserOffline(context.Background(), c.UserID()); err != nil {
			slog.Warn("Failed to mark user offline", "userID", c.UserID(), "error", err)
		}
	}

	if c.conn != nil {
		c.conn.Close()
	}

	slog.Info("Client disconnected", "clientID", c.ID(), "userID", c.UserID())
}

// Shutdown closes every live connection. Used during graceful server stop.
func (g *Gateway) Shutdown() {
	for _, c := range g.registry.ActiveClients() {
		g.disconnect(c)
	}
}
