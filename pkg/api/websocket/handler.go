package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/helixops/taskmesh/internal/application/bus"
	"github.com/helixops/taskmesh/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Handler streams bus messages to WebSocket clients. Each connection is
// registered as a bus subscriber of the requested channel and removed
// again on disconnect.
type Handler struct {
	bus    *bus.Bus
	logger *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(b *bus.Bus, logger *zap.Logger) *Handler {
	return &Handler{
		bus:    b,
		logger: logger,
	}
}

// HandleChannelStream streams a single channel's messages to one client
func (h *Handler) HandleChannelStream(c *gin.Context) {
	channelName := c.Param("name")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	subscriberID := "ws-" + uuid.New().String()
	msgCh := make(chan domain.Message, 32)

	err = h.bus.Subscribe(subscriberID, channelName, func(msg domain.Message) error {
		// Non-blocking: a slow client drops messages instead of stalling
		// bus delivery.
		select {
		case msgCh <- msg:
		default:
			h.logger.Warn("websocket client lagging, dropping message",
				zap.String("subscriber", subscriberID),
				zap.String("message_id", msg.ID))
		}
		return nil
	})
	if err != nil {
		h.logger.Warn("websocket subscribe failed",
			zap.String("channel", channelName),
			zap.Error(err))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		return
	}
	defer func() {
		if err := h.bus.Unsubscribe(subscriberID, channelName); err != nil {
			h.logger.Warn("websocket unsubscribe failed", zap.Error(err))
		}
	}()

	h.logger.Info("WebSocket connection established",
		zap.String("channel", channelName),
		zap.String("subscriber", subscriberID),
		zap.String("client", c.ClientIP()))

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-msgCh:
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("failed to marshal message", zap.Error(err))
				continue
			}

			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Error("failed to write message", zap.Error(err))
				return
			}
		}
	}
}
