package prompt

import (
	"github.com/cloudwego/eino/schema"

	"github.com/daehak-dining/chatbot/backend/internal/model/chat"
	"github.com/daehak-dining/chatbot/backend/internal/model/dining"
)

// ContextLabel prefixes the rendered request context inside its system message.
const ContextLabel = "현재 이용 가능한 정보:"

// Assemble builds the ordered message sequence for one generation call:
// persona system message, optional context system message, history verbatim,
// then the user message. Downstream reply quality depends on this order, so
// nothing here may reorder or drop turns.
func Assemble(persona string, info *dining.Context, history []chat.Turn, userMessage string) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+3)
	messages = append(messages, schema.SystemMessage(persona))

	if !info.Empty() {
		messages = append(messages, schema.SystemMessage(ContextLabel+"\n"+Render(info.Sections())))
	}

	for _, turn := range history {
		messages = append(messages, toSchemaMessage(turn))
	}

	return append(messages, schema.UserMessage(userMessage))
}

func toSchemaMessage(turn chat.Turn) *schema.Message {
	switch turn.Role {
	case chat.RoleSystem:
		return schema.SystemMessage(turn.Content)
	case chat.RoleAssistant:
		return schema.AssistantMessage(turn.Content, nil)
	default:
		return schema.UserMessage(turn.Content)
	}
}
