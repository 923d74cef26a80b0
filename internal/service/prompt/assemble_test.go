package prompt_test

import (
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/daehak-dining/chatbot/backend/internal/model/chat"
	"github.com/daehak-dining/chatbot/backend/internal/model/dining"
	"github.com/daehak-dining/chatbot/backend/internal/service/prompt"
)

func TestAssembleWithContext(t *testing.T) {
	history := []chat.Turn{
		{Role: chat.RoleUser, Content: "안녕하세요"},
		{Role: chat.RoleAssistant, Content: "안녕하세요! 학생식당 안내 챗봇입니다."},
	}
	info := &dining.Context{Location: "학생회관 2층"}

	messages := prompt.Assemble("persona", info, history, "위치가 어디예요?")

	if len(messages) != len(history)+3 {
		t.Fatalf("expected %d messages, got %d", len(history)+3, len(messages))
	}

	wantRoles := []schema.RoleType{schema.System, schema.System, schema.User, schema.Assistant, schema.User}
	for i, role := range wantRoles {
		if messages[i].Role != role {
			t.Fatalf("message %d: expected role %s, got %s", i, role, messages[i].Role)
		}
	}

	if messages[0].Content != "persona" {
		t.Fatalf("first message must carry the persona, got %q", messages[0].Content)
	}
	if messages[len(messages)-1].Content != "위치가 어디예요?" {
		t.Fatalf("last message must carry the user message, got %q", messages[len(messages)-1].Content)
	}
	if messages[2].Content != history[0].Content || messages[3].Content != history[1].Content {
		t.Fatal("history must pass through verbatim in stored order")
	}
}

func TestAssembleWithoutContext(t *testing.T) {
	history := []chat.Turn{{Role: chat.RoleUser, Content: "hi"}}

	messages := prompt.Assemble("persona", nil, history, "msg")

	if len(messages) != len(history)+2 {
		t.Fatalf("expected %d messages, got %d", len(history)+2, len(messages))
	}
	if messages[1].Role != schema.User || messages[1].Content != "hi" {
		t.Fatalf("expected history turn at position 1, got role=%s content=%q", messages[1].Role, messages[1].Content)
	}
}

func TestAssembleEmptyContextOmitsSystemMessage(t *testing.T) {
	messages := prompt.Assemble("persona", &dining.Context{}, nil, "msg")
	if len(messages) != 2 {
		t.Fatalf("empty context must not add a system message, got %d messages", len(messages))
	}
}

func TestAssembleContextMessage(t *testing.T) {
	info := &dining.Context{
		Menus: []dining.Menu{{Name: "김치찌개", Price: intp(5000), Calories: intp(450)}},
	}

	messages := prompt.Assemble("persona", info, nil, "오늘 메뉴 뭐예요?")

	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}

	want := "현재 이용 가능한 정보:\n=== 오늘의 메뉴 ===\n- 김치찌개 (5000원) | 450kcal"
	if messages[1].Content != want {
		t.Fatalf("unexpected context message:\nwant: %q\ngot:  %q", want, messages[1].Content)
	}
	if messages[1].Role != schema.System {
		t.Fatalf("context message must use the system role, got %s", messages[1].Role)
	}
}
