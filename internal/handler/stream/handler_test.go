package stream

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/daehak-dining/chatbot/backend/internal/service/ai"
	"github.com/daehak-dining/chatbot/backend/internal/service/chatbot"
	"github.com/daehak-dining/chatbot/backend/internal/service/session"
)

type fakeBackend struct {
	reply *ai.Reply
	err   error
}

func (f *fakeBackend) StreamingEnabled() bool { return false }

func (f *fakeBackend) Generate(context.Context, []*schema.Message) (*ai.Reply, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeBackend) Stream(context.Context, []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming disabled")
}

func (f *fakeBackend) ModelName() string { return "test-model" }

func setup(backend *fakeBackend) (*Handler, *session.Store) {
	store := session.NewStore(30 * time.Minute)
	bot := chatbot.NewService(backend, store, "")
	return New(backend, bot, nil), store
}

func TestHandleStreamRequestBlockingPath(t *testing.T) {
	handler, store := setup(&fakeBackend{reply: &ai.Reply{Text: "오늘은 김치찌개입니다."}})

	rr := httptest.NewRecorder()
	if err := handler.HandleStreamRequest(context.Background(), rr, "u1", "오늘 메뉴 뭐예요?"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}

	if got := rr.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type: %q", got)
	}

	body := rr.Body.String()
	for _, want := range []string{`"event":"start"`, `"event":"message"`, "오늘은 김치찌개입니다.", `"event":"end"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("stream body missing %q:\n%s", want, body)
		}
	}

	if got := store.History("u1"); len(got) != 2 {
		t.Fatalf("expected both turns recorded after the stream, got %d", len(got))
	}
}

func TestHandleStreamRequestWithoutBackend(t *testing.T) {
	store := session.NewStore(30 * time.Minute)
	bot := chatbot.NewService(nil, store, "")
	handler := New(nil, bot, nil)

	rr := httptest.NewRecorder()
	if err := handler.HandleStreamRequest(context.Background(), rr, "u1", "안녕하세요"); err == nil {
		t.Fatal("expected an error when no backend is configured")
	}

	body := rr.Body.String()
	if !strings.Contains(body, `"event":"error"`) || !strings.Contains(body, chatbot.ApologyMessage) {
		t.Fatalf("expected an apology error frame, got:\n%s", body)
	}
	if got := store.History("u1"); len(got) != 0 {
		t.Fatalf("degraded stream must not append turns, got %d", len(got))
	}
}

func TestHandleStreamRequestFailureLeavesHistoryUntouched(t *testing.T) {
	handler, store := setup(&fakeBackend{err: errors.New("provider unavailable")})

	rr := httptest.NewRecorder()
	if err := handler.HandleStreamRequest(context.Background(), rr, "u1", "안녕하세요"); err == nil {
		t.Fatal("expected an error from the failed generation")
	}

	body := rr.Body.String()
	if !strings.Contains(body, `"event":"error"`) {
		t.Fatalf("expected an error frame, got:\n%s", body)
	}
	if !strings.Contains(body, chatbot.ApologyMessage) {
		t.Fatalf("expected the apology text in the error frame, got:\n%s", body)
	}

	if got := store.History("u1"); len(got) != 0 {
		t.Fatalf("failed stream must not append turns, got %d", len(got))
	}
}
