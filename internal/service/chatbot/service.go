package chatbot

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/daehak-dining/chatbot/backend/internal/model/chat"
	"github.com/daehak-dining/chatbot/backend/internal/model/dining"
	"github.com/daehak-dining/chatbot/backend/internal/service/ai"
	"github.com/daehak-dining/chatbot/backend/internal/service/prompt"
	"github.com/daehak-dining/chatbot/backend/internal/service/session"
)

// Generator is the outbound contract to the generation backend.
type Generator interface {
	Generate(ctx context.Context, messages []*schema.Message) (*ai.Reply, error)
	ModelName() string
}

// Result is the well-formed response of every chat interaction. Generation
// failures degrade into an apology reply with Err set; they never surface as
// an error to the transport layer.
type Result struct {
	SessionID  string `json:"sessionId,omitempty"`
	Reply      string `json:"response"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokensUsed"`
	Err        string `json:"error,omitempty"`
}

// Service orchestrates one chat turn: session lookup, prompt assembly,
// generation and the post-success history append.
type Service struct {
	generator Generator
	sessions  *session.Store
	persona   string
}

// NewService wires the orchestrator. An empty persona falls back to the
// built-in cafeteria assistant prompt. A nil generator is allowed: every chat
// then degrades into the apology reply until a backend is configured.
func NewService(generator Generator, sessions *session.Store, persona string) *Service {
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}
	return &Service{
		generator: generator,
		sessions:  sessions,
		persona:   persona,
	}
}

// Chat runs one conversation turn. A non-empty userID binds the turn to that
// user's session, whose stored history is canonical; supplied history is only
// consulted for stateless calls with an empty userID. The store lock is never
// held across the generation call, and both turns of the exchange are
// appended only after generation succeeds.
func (s *Service) Chat(ctx context.Context, userID, message string, info *dining.Context, supplied []chat.Turn) Result {
	sessionID, messages := s.PreparePrompt(userID, message, info, supplied)

	if s.generator == nil {
		log.Printf("[chatbot] no generation backend configured, returning degraded reply for user=%q", userID)
		return Result{
			SessionID: sessionID,
			Reply:     ApologyMessage,
			Err:       "generation backend not configured",
		}
	}

	reply, err := s.generator.Generate(ctx, messages)
	if err != nil {
		log.Printf("[chatbot] generation failed for user=%q: %v", userID, err)
		return Result{
			SessionID: sessionID,
			Reply:     ApologyMessage,
			Model:     s.generator.ModelName(),
			Err:       err.Error(),
		}
	}

	s.RecordExchange(userID, message, reply.Text)

	return Result{
		SessionID:  sessionID,
		Reply:      reply.Text,
		Model:      s.generator.ModelName(),
		TokensUsed: reply.TotalTokens,
	}
}

// Recommend asks for a menu recommendation based on user preferences. The
// call is stateless: preferences are rendered into the request message and
// the available menus travel as ordinary prompt context.
func (s *Service) Recommend(ctx context.Context, prefs *dining.Preferences, menus []dining.Menu) Result {
	var info *dining.Context
	if len(menus) > 0 {
		info = &dining.Context{Menus: menus}
	}
	return s.Chat(ctx, "", recommendationMessage(prefs), info, nil)
}

// PreparePrompt resolves the session and builds the full message sequence
// without calling the backend. The streaming handler uses it so prompt order
// stays identical on both paths.
func (s *Service) PreparePrompt(userID, message string, info *dining.Context, supplied []chat.Turn) (string, []*schema.Message) {
	var sessionID string
	history := supplied
	if userID != "" && s.sessions != nil {
		sess := s.sessions.GetOrCreate(userID)
		sessionID = sess.ID
		history = s.sessions.History(userID)
	}
	return sessionID, prompt.Assemble(s.persona, info, history, message)
}

// RecordExchange appends the user message and the assistant reply to the
// user's session. It must only be called after a successful generation so a
// failed call leaves the history untouched.
func (s *Service) RecordExchange(userID, userMessage, replyText string) {
	if userID == "" || s.sessions == nil {
		return
	}
	if err := s.sessions.AppendTurn(userID, chat.RoleUser, userMessage); err != nil {
		// The session can only vanish through a concurrent clear; treat the
		// exchange as stateless rather than failing the request.
		if errors.Is(err, session.ErrNotFound) {
			log.Printf("[chatbot] session for user=%q cleared mid-request, dropping history append", userID)
		} else {
			log.Printf("[chatbot] failed to append user turn for user=%q: %v", userID, err)
		}
		return
	}
	if err := s.sessions.AppendTurn(userID, chat.RoleAssistant, replyText); err != nil {
		log.Printf("[chatbot] failed to append assistant turn for user=%q: %v", userID, err)
	}
}

// Persona exposes the active system prompt, mainly for diagnostics.
func (s *Service) Persona() string {
	return s.persona
}

func recommendationMessage(prefs *dining.Preferences) string {
	var b strings.Builder
	b.WriteString("다음 사용자 선호도를 고려하여 오늘의 메뉴 중 가장 적합한 메뉴를 추천해주세요:")
	if rendered := prompt.Render(prefs.Sections()); rendered != "" {
		b.WriteString("\n\n")
		b.WriteString(rendered)
	}
	b.WriteString("\n\n추천 이유도 함께 설명해주세요.")
	return b.String()
}
