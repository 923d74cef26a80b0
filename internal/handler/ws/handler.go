package ws

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/daehak-dining/chatbot/backend/internal/model/dining"
	"github.com/daehak-dining/chatbot/backend/internal/observability"
	"github.com/daehak-dining/chatbot/backend/internal/service/chatbot"
)

// Handler runs interactive chat over a websocket: one JSON request frame in,
// one result frame out, for as long as the client keeps the connection open.
type Handler struct {
	bot      *chatbot.Service
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

// New creates the websocket chat handler.
func New(bot *chatbot.Service, metrics *observability.Metrics) *Handler {
	return &Handler{
		bot:     bot,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chat", h.handleWebSocket)
}

type inboundMessage struct {
	UserID  string          `json:"userId"`
	Message string          `json:"message"`
	Context *dining.Context `json:"context,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new chat connection from %s", r.RemoteAddr)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read failed: %v", err)
			}
			return
		}

		if strings.TrimSpace(inbound.Message) == "" {
			h.write(conn, outgoingMessage{Type: "error", Error: "message is required"})
			continue
		}

		start := time.Now()
		result := h.bot.Chat(r.Context(), inbound.UserID, inbound.Message, inbound.Context, nil)
		h.metrics.RecordChat("ws", result.Err != "", result.TokensUsed, time.Since(start))

		h.write(conn, outgoingMessage{Type: "chat.result", Data: result})
	}
}

func (h *Handler) write(conn *websocket.Conn, message outgoingMessage) {
	message.Timestamp = time.Now().UnixMilli()
	if err := conn.WriteJSON(message); err != nil {
		log.Printf("[websocket] write failed: %v", err)
	}
}
