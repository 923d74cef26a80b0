package dining

import (
	"fmt"
	"sort"
)

// Menu is one cafeteria menu entry. Price and Calories are optional; a nil
// pointer means the caller did not supply the field.
type Menu struct {
	Name     string `json:"name"`
	Price    *int   `json:"price,omitempty"`
	Calories *int   `json:"calories,omitempty"`
}

// Context carries the transient request-scoped facts rendered into the prompt.
// It is consumed once per request and never stored.
type Context struct {
	Menus          []Menu            `json:"menus,omitempty"`
	OperatingHours map[string]string `json:"operatingHours,omitempty"`
	Location       string            `json:"location,omitempty"`
	Announcements  []string          `json:"announcements,omitempty"`
}

// Empty reports whether no field carries renderable data.
func (c *Context) Empty() bool {
	if c == nil {
		return true
	}
	return len(c.Menus) == 0 && len(c.OperatingHours) == 0 && c.Location == "" && len(c.Announcements) == 0
}

// Section is one titled block of prompt text. Anything that can describe
// itself as an ordered list of sections can be rendered by prompt.Render.
type Section struct {
	Title string
	Lines []string
}

// Sections renders the context fields in fixed order. Empty fields contribute
// no section. Operating hour labels are sorted so the output is stable.
func (c *Context) Sections() []Section {
	if c == nil {
		return nil
	}

	var sections []Section

	if len(c.Menus) > 0 {
		lines := make([]string, 0, len(c.Menus))
		for _, m := range c.Menus {
			lines = append(lines, m.line())
		}
		sections = append(sections, Section{Title: "오늘의 메뉴", Lines: lines})
	}

	if len(c.OperatingHours) > 0 {
		labels := make([]string, 0, len(c.OperatingHours))
		for label := range c.OperatingHours {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		lines := make([]string, 0, len(labels))
		for _, label := range labels {
			lines = append(lines, fmt.Sprintf("- %s: %s", label, c.OperatingHours[label]))
		}
		sections = append(sections, Section{Title: "운영 시간", Lines: lines})
	}

	if c.Location != "" {
		sections = append(sections, Section{Title: "위치", Lines: []string{"- " + c.Location}})
	}

	if len(c.Announcements) > 0 {
		lines := make([]string, 0, len(c.Announcements))
		for _, a := range c.Announcements {
			lines = append(lines, "- "+a)
		}
		sections = append(sections, Section{Title: "공지사항", Lines: lines})
	}

	return sections
}

func (m Menu) line() string {
	name := m.Name
	if name == "" {
		name = "N/A"
	}
	line := "- " + name
	if m.Price != nil {
		line += fmt.Sprintf(" (%d원)", *m.Price)
	}
	if m.Calories != nil {
		line += fmt.Sprintf(" | %dkcal", *m.Calories)
	}
	return line
}
