package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/daehak-dining/chatbot/backend/internal/config"
)

// Reply is the result of one generation call.
type Reply struct {
	Text        string
	TotalTokens int
}

// Service wraps the Ark chat model behind the narrow contract the chatbot
// orchestrator needs. Model name, max tokens and temperature are fixed at
// construction; the service performs no prompt assembly of its own.
type Service struct {
	chatModel model.ChatModel
	modelName string
	timeout   time.Duration
	stream    bool
}

// NewService creates the generation backend from configuration.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		modelName: cfg.Model,
		timeout:   cfg.GenerateTimeout,
		stream:    cfg.StreamResponse,
	}, nil
}

// ModelName reports the configured model identifier.
func (s *Service) ModelName() string {
	return s.modelName
}

// StreamingEnabled indicates whether SSE streaming output is configured.
func (s *Service) StreamingEnabled() bool {
	return s.stream
}

// Generate runs one blocking completion over the assembled messages. The
// configured per-call timeout bounds the network round trip; a timeout
// surfaces as an ordinary generation error, never a process failure.
func (s *Service) Generate(ctx context.Context, messages []*schema.Message) (*Reply, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	response, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("chat model generate: %w", err)
	}

	reply := &Reply{Text: response.Content}
	if meta := response.ResponseMeta; meta != nil && meta.Usage != nil {
		reply.TotalTokens = meta.Usage.TotalTokens
	}

	log.Printf("[ai] generated reply, model=%s, length=%d, tokens=%d", s.modelName, len(reply.Text), reply.TotalTokens)
	return reply, nil
}

// Stream returns the model's chunked output for the assembled messages. The
// caller owns the reader and must close it; cancellation follows the request
// context rather than the per-call timeout so long replies are not cut off.
func (s *Service) Stream(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
	if !s.stream {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	stream, err := s.chatModel.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("chat model stream: %w", err)
	}
	return stream, nil
}
