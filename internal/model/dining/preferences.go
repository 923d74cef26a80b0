package dining

import "fmt"

// Preferences is the recommendation-request payload. It renders through the
// same section contract as Context so the prompt formatter stays generic.
type Preferences struct {
	DietaryRestrictions []string `json:"dietaryRestrictions,omitempty"`
	PreferredCuisine    string   `json:"preferredCuisine,omitempty"`
	Budget              *int     `json:"budget,omitempty"`
}

// Empty reports whether no preference field was supplied.
func (p *Preferences) Empty() bool {
	if p == nil {
		return true
	}
	return len(p.DietaryRestrictions) == 0 && p.PreferredCuisine == "" && p.Budget == nil
}

// Sections renders the preference fields in fixed order.
func (p *Preferences) Sections() []Section {
	if p == nil {
		return nil
	}

	var sections []Section

	if len(p.DietaryRestrictions) > 0 {
		lines := make([]string, 0, len(p.DietaryRestrictions))
		for _, r := range p.DietaryRestrictions {
			lines = append(lines, "- "+r)
		}
		sections = append(sections, Section{Title: "식이 제한사항", Lines: lines})
	}

	if p.PreferredCuisine != "" {
		sections = append(sections, Section{Title: "선호 음식", Lines: []string{"- " + p.PreferredCuisine}})
	}

	if p.Budget != nil {
		sections = append(sections, Section{Title: "예산", Lines: []string{fmt.Sprintf("- %d원 이하", *p.Budget)}})
	}

	return sections
}
