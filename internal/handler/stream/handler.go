package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/daehak-dining/chatbot/backend/internal/observability"
	"github.com/daehak-dining/chatbot/backend/internal/service/ai"
	"github.com/daehak-dining/chatbot/backend/internal/service/chatbot"
	"github.com/daehak-dining/chatbot/backend/pkg/utils"
)

// Backend is the slice of the generation service the stream handler needs.
type Backend interface {
	StreamingEnabled() bool
	Generate(ctx context.Context, messages []*schema.Message) (*ai.Reply, error)
	Stream(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error)
}

// Handler streams chat replies over Server-Sent Events.
type Handler struct {
	aiSvc   Backend
	bot     *chatbot.Service
	metrics *observability.Metrics
}

// New creates the stream handler.
func New(aiSvc Backend, bot *chatbot.Service, metrics *observability.Metrics) *Handler {
	return &Handler{aiSvc: aiSvc, bot: bot, metrics: metrics}
}

// StreamResponse is one SSE frame.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest answers one chat message over an SSE stream. The
// exchange is appended to the session only after the complete reply has been
// received, mirroring the blocking path.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, userID, message string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	sessionID, messages := h.bot.PreparePrompt(userID, message, nil, nil)

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
	})

	start := time.Now()
	reply, err := h.dispatch(ctx, w, flusher, sessionID, messages)
	if err != nil {
		h.metrics.RecordChat("stream", true, 0, time.Since(start))
		h.sendSSE(w, flusher, StreamResponse{
			Event:     "error",
			SessionID: sessionID,
			Error:     err.Error(),
			Content:   chatbot.ApologyMessage,
		})
		return err
	}
	h.metrics.RecordChat("stream", false, tokenCount(reply), time.Since(start))

	h.bot.RecordExchange(userID, message, reply.Content)

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[stream] completed response for user=%q session=%s", userID, sessionID)
	return nil
}

func (h *Handler) dispatch(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID string, messages []*schema.Message) (*schema.Message, error) {
	if h.aiSvc == nil {
		return nil, errors.New("generation backend not configured")
	}

	if h.aiSvc.StreamingEnabled() {
		return h.streamReply(ctx, w, flusher, sessionID, messages)
	}

	reply, err := h.aiSvc.Generate(ctx, messages)
	if err != nil {
		return nil, err
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   reply.Text,
	})

	return &schema.Message{Role: schema.Assistant, Content: reply.Text}, nil
}

func (h *Handler) streamReply(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID string, messages []*schema.Message) (*schema.Message, error) {
	stream, err := h.aiSvc.Stream(ctx, messages)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return nil, recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			h.sendSSE(w, flusher, StreamResponse{
				Event:     "delta",
				SessionID: sessionID,
				Content:   chunk.Content,
			})
		}
	}

	reply, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, err
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   reply.Content,
	})

	return reply, nil
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}

func tokenCount(reply *schema.Message) int {
	if reply == nil || reply.ResponseMeta == nil || reply.ResponseMeta.Usage == nil {
		return 0
	}
	return reply.ResponseMeta.Usage.TotalTokens
}
