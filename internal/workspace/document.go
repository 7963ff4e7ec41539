// Package workspace implements the per-user workspace document store.
//
// Each user owns four long-lived markdown documents (shared, goal_tracking,
// nutrition, chat) that summarize profile, goals, nutrition history, and
// conversation history. Documents carry a YAML frontmatter block followed by
// level-2 sections, which are the unit of partial update.
package workspace

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind identifies one of the four fixed per-user workspace documents.
type Kind string

const (
	KindShared       Kind = "shared"
	KindGoalTracking Kind = "goal_tracking"
	KindNutrition    Kind = "nutrition"
	KindChat         Kind = "chat"

	// KindAll is accepted by Archive to snapshot every workspace at once.
	KindAll Kind = "all"
)

// Kinds returns the four workspace kinds in their canonical order.
func Kinds() []Kind {
	return []Kind{KindShared, KindGoalTracking, KindNutrition, KindChat}
}

// Valid reports whether k names one of the four workspace documents.
func (k Kind) Valid() bool {
	switch k {
	case KindShared, KindGoalTracking, KindNutrition, KindChat:
		return true
	}
	return false
}

// Section is a titled body of text within a document. Titles are exact,
// case- and whitespace-sensitive keys, unique within one document.
type Section struct {
	Title string
	Body  string
}

// Document is the parsed form of a workspace file: frontmatter metadata,
// an optional preamble (content before the first section heading, typically
// the H1 title), and an ordered list of sections. Raw preserves the exact
// text the document was parsed from.
type Document struct {
	Frontmatter map[string]any
	Preamble    string
	Sections    []Section
	Raw         string

	// FrontmatterErr records a YAML parse failure. Parsing never fails
	// outright: a malformed frontmatter block yields an empty mapping and
	// the error is kept here so callers can log the anomaly.
	FrontmatterErr error
}

// TimeFormat is the frontmatter timestamp layout (ISO-8601).
const TimeFormat = time.RFC3339

// NewDocument returns an empty document for a user with the mandatory
// frontmatter keys set.
func NewDocument(userID int64, now time.Time) *Document {
	return &Document{
		Frontmatter: map[string]any{
			"user_id":      userID,
			"last_updated": now.Format(TimeFormat),
		},
	}
}

// Parse extracts frontmatter and sections from document text. It never
// fails: unparseable frontmatter yields an empty mapping (with the error
// recorded in FrontmatterErr), and the section map is built from whatever
// level-2 headings are found.
func Parse(text string) *Document {
	doc := &Document{
		Frontmatter: map[string]any{},
		Raw:         text,
	}

	body := text
	if rest, ok := strings.CutPrefix(body, "---\n"); ok {
		if block, after, found := strings.Cut(rest, "\n---\n"); found {
			var fm map[string]any
			if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
				doc.FrontmatterErr = fmt.Errorf("workspace: parse frontmatter: %w", err)
			} else if fm != nil {
				doc.Frontmatter = fm
			}
			body = after
		}
	}

	var (
		current    string
		lines      []string
		inPreamble = true // before the first section heading
		preamble   []string
	)
	flush := func() {
		if current != "" {
			doc.setParsed(current, strings.TrimSpace(strings.Join(lines, "\n")))
		}
		lines = lines[:0]
	}
	for _, line := range strings.Split(body, "\n") {
		if title, ok := strings.CutPrefix(line, "## "); ok {
			if inPreamble {
				inPreamble = false
			} else {
				flush()
			}
			current = strings.TrimSpace(title)
			continue
		}
		if inPreamble {
			preamble = append(preamble, line)
			continue
		}
		lines = append(lines, line)
	}
	flush()
	doc.Preamble = strings.TrimSpace(strings.Join(preamble, "\n"))

	return doc
}

// setParsed records a section found during parsing, merging duplicate
// headings into one body so titles stay unique.
func (d *Document) setParsed(title, body string) {
	for i := range d.Sections {
		if d.Sections[i].Title == title {
			d.Sections[i].Body = strings.TrimSpace(d.Sections[i].Body + "\n" + body)
			return
		}
	}
	d.Sections = append(d.Sections, Section{Title: title, Body: body})
}

// Section returns the body of the named section.
func (d *Document) Section(title string) (string, bool) {
	for _, s := range d.Sections {
		if s.Title == title {
			return s.Body, true
		}
	}
	return "", false
}

// UpdateSection applies the section update protocol: an existing section's
// body is replaced (replace=true) or appended to with a newline separator
// (replace=false); a missing section is appended at the end of the document,
// never mid-document.
func (d *Document) UpdateSection(title, body string, replace bool) {
	body = strings.TrimSpace(body)
	for i := range d.Sections {
		if d.Sections[i].Title != title {
			continue
		}
		if replace || d.Sections[i].Body == "" {
			d.Sections[i].Body = body
		} else {
			d.Sections[i].Body += "\n" + body
		}
		return
	}
	d.Sections = append(d.Sections, Section{Title: title, Body: body})
}

// Touch refreshes the mandatory last_updated frontmatter key. Every write
// that changes section content must call this before rendering.
func (d *Document) Touch(now time.Time) {
	if d.Frontmatter == nil {
		d.Frontmatter = map[string]any{}
	}
	d.Frontmatter["last_updated"] = now.Format(TimeFormat)
}

// UserID returns the user_id frontmatter value, or 0 when absent or not
// numeric.
func (d *Document) UserID() int64 {
	switch v := d.Frontmatter["user_id"].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// Render serializes the document back to its textual form. Section headings
// and bodies round-trip verbatim; frontmatter key order is normalized
// (user_id and last_updated first, remaining keys sorted), which is a
// documented non-goal of byte-exact round-tripping.
func Render(d *Document) string {
	var b strings.Builder

	if len(d.Frontmatter) > 0 {
		b.WriteString("---\n")
		writeFrontmatterKey(&b, d.Frontmatter, "user_id")
		writeFrontmatterKey(&b, d.Frontmatter, "last_updated")
		rest := make([]string, 0, len(d.Frontmatter))
		for k := range d.Frontmatter {
			if k != "user_id" && k != "last_updated" {
				rest = append(rest, k)
			}
		}
		sort.Strings(rest)
		for _, k := range rest {
			writeFrontmatterKey(&b, d.Frontmatter, k)
		}
		b.WriteString("---\n\n")
	}

	if d.Preamble != "" {
		b.WriteString(d.Preamble)
		b.WriteString("\n\n")
	}

	for i, s := range d.Sections {
		fmt.Fprintf(&b, "## %s\n", s.Title)
		if s.Body != "" {
			b.WriteString(s.Body)
			b.WriteString("\n")
		}
		if i < len(d.Sections)-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func writeFrontmatterKey(b *strings.Builder, fm map[string]any, key string) {
	v, ok := fm[key]
	if !ok {
		return
	}
	out, err := yaml.Marshal(map[string]any{key: v})
	if err != nil {
		fmt.Fprintf(b, "%s: %v\n", key, v)
		return
	}
	b.Write(out)
}
