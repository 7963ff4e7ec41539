package workspace

import "strings"

// Shared-workspace section and subsection titles. Projection writes them,
// preference extraction reads them back.
const (
	SectionBasicInfo        = "Basic Info"
	SectionHealthConditions = "Health Conditions"
	SectionFoodPreferences  = "Food Preferences"
	SectionBehaviorPatterns = "Behavior Patterns"

	subAllergies    = "Allergies"
	subDiseases     = "Diseases"
	subRestrictions = "Dietary Restrictions"
	subLiked        = "Liked Foods"
	subDisliked     = "Disliked Foods"
)

// Preferences is the snapshot of user constraints handed to the analyzer
// alongside a meal description.
type Preferences struct {
	Allergies           []string `json:"allergies,omitempty"`
	Diseases            []string `json:"diseases,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	LikedFoods          []string `json:"liked_foods,omitempty"`
	DislikedFoods       []string `json:"disliked_foods,omitempty"`
}

// Empty reports whether no preference of any kind was found.
func (p *Preferences) Empty() bool {
	return len(p.Allergies) == 0 && len(p.Diseases) == 0 &&
		len(p.DietaryRestrictions) == 0 && len(p.LikedFoods) == 0 &&
		len(p.DislikedFoods) == 0
}

// ExtractPreferences pulls allergies, diseases, and food preferences out of
// a shared workspace document. The extraction is tolerant: missing sections
// yield empty lists, and placeholder bullets ("none", "no known ...") are
// ignored.
func ExtractPreferences(doc *Document) *Preferences {
	p := &Preferences{}
	if doc == nil {
		return p
	}

	if body, ok := doc.Section(SectionHealthConditions); ok {
		sub := splitSubsections(body)
		p.Allergies = bulletItems(sub[subAllergies])
		p.Diseases = bulletItems(sub[subDiseases])
	}
	if body, ok := doc.Section(SectionFoodPreferences); ok {
		sub := splitSubsections(body)
		p.LikedFoods = bulletItems(sub[subLiked])
		p.DislikedFoods = bulletItems(sub[subDisliked])
		p.DietaryRestrictions = bulletItems(sub[subRestrictions])
	}
	return p
}

// splitSubsections splits a section body at `### ` headings. Content before
// the first heading is discarded.
func splitSubsections(body string) map[string]string {
	out := map[string]string{}
	var current string
	var lines []string
	flush := func() {
		if current != "" {
			out[current] = strings.TrimSpace(strings.Join(lines, "\n"))
		}
		lines = lines[:0]
	}
	for _, line := range strings.Split(body, "\n") {
		if title, ok := strings.CutPrefix(line, "### "); ok {
			flush()
			current = strings.TrimSpace(title)
			continue
		}
		lines = append(lines, line)
	}
	flush()
	return out
}

// bulletItems collects `- ` list entries, dropping placeholder lines and
// trailing parentheticals ("peanuts (severe)" becomes "peanuts").
func bulletItems(body string) []string {
	var items []string
	for _, line := range strings.Split(body, "\n") {
		item, ok := strings.CutPrefix(strings.TrimSpace(line), "- ")
		if !ok {
			continue
		}
		item = strings.TrimSpace(item)
		lower := strings.ToLower(item)
		if item == "" || strings.HasPrefix(lower, "none") || strings.HasPrefix(lower, "no known") {
			continue
		}
		if i := strings.Index(item, " ("); i > 0 {
			item = item[:i]
		}
		items = append(items, item)
	}
	return items
}
