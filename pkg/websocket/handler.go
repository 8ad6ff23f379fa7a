package websocket

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TokenValidator resolves a bearer token to the caller's identity.
type TokenValidator func(token string) (userID primitive.ObjectID, role string, err error)

type HandlerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	AllowedOrigins  []string
	Options         Options
}

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	validate TokenValidator
	opts     Options
	baseCtx  context.Context
}

// NewHandler serves upgrades for hub. baseCtx scopes the lifetime of client
// event handling and is normally the server's root context.
func NewHandler(baseCtx context.Context, hub *Hub, validate TokenValidator, cfg HandlerConfig) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		validate: validate,
		opts:     cfg.Options,
		baseCtx:  baseCtx,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

func bearerToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	ctx, span := otel.Tracer("rescuelink/websocket").Start(c.Request.Context(), "websocket.upgrade")
	defer span.End()

	token := bearerToken(c)
	if token == "" {
		span.SetStatus(codes.Error, "missing token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	userID, role, err := h.validate(token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request.WithContext(ctx), nil)
	if err != nil {
		span.RecordError(err)
		h.hub.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := newClient(h.hub, conn, uuid.NewString(), userID, role, h.opts)
	span.SetAttributes(
		attribute.String("ws.conn_id", client.ID),
		attribute.String("user.id", userID.Hex()),
	)

	if !h.hub.Register(ctx, client) {
		span.SetStatus(codes.Error, "hub stopped")
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h.baseCtx)
}
