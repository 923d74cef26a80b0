package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	modelchat "github.com/daehak-dining/chatbot/backend/internal/model/chat"
	"github.com/daehak-dining/chatbot/backend/internal/service/ai"
	"github.com/daehak-dining/chatbot/backend/internal/service/chatbot"
	"github.com/daehak-dining/chatbot/backend/internal/service/session"
)

type fakeGenerator struct {
	reply    *ai.Reply
	err      error
	received [][]*schema.Message
}

func (f *fakeGenerator) Generate(_ context.Context, messages []*schema.Message) (*ai.Reply, error) {
	f.received = append(f.received, messages)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeGenerator) ModelName() string { return "test-model" }

func setupRouter(gen *fakeGenerator) (*chi.Mux, *session.Store) {
	store := session.NewStore(30 * time.Minute)
	bot := chatbot.NewService(gen, store, "")
	handler := New(bot, store, nil)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, store
}

func postJSON(t *testing.T, r http.Handler, path string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestChatMissingMessage(t *testing.T) {
	r, _ := setupRouter(&fakeGenerator{reply: &ai.Reply{Text: "ok"}})
	resp := postJSON(t, r, "/chat", map[string]any{"userId": "u1"})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestChatReturnsReply(t *testing.T) {
	r, store := setupRouter(&fakeGenerator{reply: &ai.Reply{Text: "오늘은 김치찌개입니다.", TotalTokens: 42}})
	resp := postJSON(t, r, "/chat", map[string]any{"userId": "u1", "message": "오늘 메뉴 뭐예요?"})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var result chatbot.Result
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Reply != "오늘은 김치찌개입니다." {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}
	if result.SessionID == "" {
		t.Fatal("expected a session id in the response")
	}
	if got := store.History("u1"); len(got) != 2 {
		t.Fatalf("expected 2 recorded turns, got %d", len(got))
	}
}

func TestChatDegradedOnGenerationFailure(t *testing.T) {
	r, store := setupRouter(&fakeGenerator{err: errors.New("quota exceeded")})
	resp := postJSON(t, r, "/chat", map[string]any{"userId": "u1", "message": "안녕하세요"})

	// Generation failures degrade into a well-formed 200 body.
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var result chatbot.Result
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Reply != chatbot.ApologyMessage {
		t.Fatalf("expected apology reply, got %q", result.Reply)
	}
	if result.Err == "" {
		t.Fatal("expected an error detail field")
	}
	if result.TokensUsed != 0 {
		t.Fatalf("expected 0 tokens, got %d", result.TokensUsed)
	}
	if got := store.History("u1"); len(got) != 0 {
		t.Fatalf("failed generation must not append turns, got %d", len(got))
	}
}

func TestChatNormalizesPlatformShapes(t *testing.T) {
	gen := &fakeGenerator{reply: &ai.Reply{Text: "ok"}}
	r, _ := setupRouter(gen)

	resp := postJSON(t, r, "/chat", map[string]any{
		"message": "어떤 메뉴가 좋아요?",
		"previousMessages": []map[string]string{
			{"role": "USER", "content": "안녕하세요"},
			{"role": "ASSISTANT", "content": "안녕하세요!"},
		},
		"menus": []map[string]any{
			{
				"name":           "제육볶음",
				"price":          5500,
				"restaurantName": "학생회관식당",
				"nutritionInfo":  map[string]any{"calories": 520},
			},
		},
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	// persona + context + 2 history turns + user message
	got := gen.received[0]
	if len(got) != 5 {
		t.Fatalf("expected 5 prompt messages, got %d", len(got))
	}
	if got[2].Role != schema.User || got[3].Role != schema.Assistant {
		t.Fatalf("platform roles not normalized: %s, %s", got[2].Role, got[3].Role)
	}
	if !strings.Contains(got[1].Content, "- 제육볶음 (5500원) | 520kcal") {
		t.Fatalf("platform menu not converted into context: %q", got[1].Content)
	}
}

func TestSimpleChatRequiresMessage(t *testing.T) {
	r, _ := setupRouter(&fakeGenerator{reply: &ai.Reply{Text: "ok"}})

	req := httptest.NewRequest(http.MethodPost, "/chat/simple", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestRecommendEndpoint(t *testing.T) {
	gen := &fakeGenerator{reply: &ai.Reply{Text: "김치찌개를 추천합니다."}}
	r, _ := setupRouter(gen)

	resp := postJSON(t, r, "/recommend", map[string]any{
		"dietaryRestrictions": []string{"견과류 알레르기"},
		"preferredCuisine":    "한식",
		"budget":              6000,
		"availableMenus":      []map[string]any{{"name": "김치찌개", "price": 5000}},
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	request := gen.received[0][len(gen.received[0])-1].Content
	if !strings.Contains(request, "=== 예산 ===") {
		t.Fatalf("expected rendered preferences in the request message, got %q", request)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	r, store := setupRouter(&fakeGenerator{reply: &ai.Reply{Text: "ok"}})
	store.GetOrCreate("u1")
	if err := store.AppendTurn("u1", modelchat.RoleUser, "안녕하세요"); err != nil {
		t.Fatalf("AppendTurn err: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/sessions/u1/history", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var payload struct {
		UserID  string             `json:"userId"`
		History []modelchat.Turn   `json:"history"`
		Session *modelchat.Session `json:"session"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.UserID != "u1" || len(payload.History) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Session == nil || payload.Session.ID == "" {
		t.Fatalf("expected the session record alongside the history, got %+v", payload.Session)
	}
	if payload.Session.CreatedAt.IsZero() {
		t.Fatal("session record must carry its creation time")
	}
}

func TestHistoryEndpointUnknownUser(t *testing.T) {
	r, _ := setupRouter(&fakeGenerator{reply: &ai.Reply{Text: "ok"}})

	req := httptest.NewRequest(http.MethodGet, "/sessions/ghost/history", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	if strings.Contains(body, `"session"`) {
		t.Fatalf("no session record expected for an unknown user, got:\n%s", body)
	}
	if !strings.Contains(body, `"history":[]`) {
		t.Fatalf("expected an empty history array, got:\n%s", body)
	}
}

func TestClearSessionEndpoint(t *testing.T) {
	r, store := setupRouter(&fakeGenerator{reply: &ai.Reply{Text: "ok"}})
	store.GetOrCreate("u1")

	req := httptest.NewRequest(http.MethodDelete, "/sessions/u1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if store.ActiveCount() != 0 {
		t.Fatalf("expected session cleared, found %d", store.ActiveCount())
	}
}
