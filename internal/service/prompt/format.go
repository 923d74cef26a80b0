package prompt

import (
	"strings"

	"github.com/daehak-dining/chatbot/backend/internal/model/dining"
)

// Render turns an ordered list of sections into one prompt text block.
// Each section renders as a `=== Title ===` header followed by its lines;
// sections are joined with a single blank line. Sections without lines are
// skipped, so an all-empty input renders as the empty string.
func Render(sections []dining.Section) string {
	parts := make([]string, 0, len(sections))
	for _, section := range sections {
		if len(section.Lines) == 0 {
			continue
		}
		var b strings.Builder
		b.WriteString("=== ")
		b.WriteString(section.Title)
		b.WriteString(" ===")
		for _, line := range section.Lines {
			b.WriteString("\n")
			b.WriteString(line)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}
