package profile

import (
	"encoding/json"
	"strconv"
	"strings"
)

// SectionName is one of the fixed content areas of a profile or resume.
type SectionName string

const (
	Headline        SectionName = "headline"
	About           SectionName = "about"
	Experience      SectionName = "experience"
	Skills          SectionName = "skills"
	Education       SectionName = "education"
	Followers       SectionName = "followers"
	Activity        SectionName = "activity"
	ProfilePicture  SectionName = "profilePicture"
	BackgroundImage SectionName = "backgroundImage"
)

// allSections is the canonical section order.
var allSections = [...]SectionName{
	Headline,
	About,
	Experience,
	Skills,
	Education,
	Followers,
	Activity,
	ProfilePicture,
	BackgroundImage,
}

// AllSections returns every section in canonical order.
func AllSections() []SectionName {
	out := make([]SectionName, len(allSections))
	copy(out, allSections[:])
	return out
}

// SectionCount is the size of the fixed enumeration.
const SectionCount = len(allSections)

// Valid reports whether n belongs to the fixed enumeration.
func (n SectionName) Valid() bool {
	for _, s := range allSections {
		if s == n {
			return true
		}
	}
	return false
}

// Kind tags which field of a Value carries data.
type Kind int

const (
	KindText Kind = iota + 1
	KindList
	KindEntries
	KindCount
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindEntries:
		return "entries"
	case KindCount:
		return "count"
	default:
		return "unknown"
	}
}

// Entry is one structured record: a position, a degree or a project.
type Entry struct {
	Title        string `json:"title,omitempty"`
	Organization string `json:"organization,omitempty"`
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
	Description  string `json:"description,omitempty"`
}

func (e Entry) empty() bool {
	return strings.TrimSpace(e.Title) == "" &&
		strings.TrimSpace(e.Organization) == "" &&
		strings.TrimSpace(e.Description) == ""
}

// Value is the content of one section. Exactly one payload field is
// meaningful, selected by Kind.
type Value struct {
	Kind    Kind
	Text    string
	List    []string
	Entries []Entry
	Count   int
}

// TextValue builds a free-text value.
func TextValue(s string) *Value {
	return &Value{Kind: KindText, Text: s}
}

// ListValue builds a list value, dropping blank items.
func ListValue(items []string) *Value {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if t := strings.TrimSpace(it); t != "" {
			out = append(out, t)
		}
	}
	return &Value{Kind: KindList, List: out}
}

// EntriesValue builds a structured value, dropping entries with no content.
func EntriesValue(entries []Entry) *Value {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.empty() {
			out = append(out, e)
		}
	}
	return &Value{Kind: KindEntries, Entries: out}
}

// CountValue builds a numeric value such as a follower count.
func CountValue(n int) *Value {
	return &Value{Kind: KindCount, Count: n}
}

// Present reports whether the value counts as available: text must be
// non-blank, sequences must be non-empty, counts are always known.
func (v *Value) Present() bool {
	if v == nil {
		return false
	}
	switch v.Kind {
	case KindText:
		return strings.TrimSpace(v.Text) != ""
	case KindList:
		return len(v.List) > 0
	case KindEntries:
		return len(v.Entries) > 0
	case KindCount:
		return true
	default:
		return false
	}
}

func (v *Value) clone() *Value {
	if v == nil {
		return nil
	}
	out := *v
	out.List = append([]string(nil), v.List...)
	out.Entries = append([]Entry(nil), v.Entries...)
	return &out
}

// MarshalJSON renders the payload for the value's kind.
func (v *Value) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	switch v.Kind {
	case KindText:
		return json.Marshal(v.Text)
	case KindList:
		return json.Marshal(v.List)
	case KindEntries:
		return json.Marshal(v.Entries)
	case KindCount:
		return json.Marshal(v.Count)
	default:
		return []byte("null"), nil
	}
}

// Source records where an Input came from.
type Source string

const (
	SourceDocument Source = "document"
	SourceText     Source = "text"
	SourcePayload  Source = "payload"
)

// Input is the canonical profile record. Every section key is always present;
// absent content is a nil value. Input is immutable once built.
type Input struct {
	source   Source
	sections map[SectionName]*Value
}

// NewInput builds an Input from the given values. Keys outside the fixed
// enumeration are ignored and missing keys are set to nil.
func NewInput(source Source, values map[SectionName]*Value) Input {
	sections := make(map[SectionName]*Value, SectionCount)
	for _, name := range allSections {
		sections[name] = values[name].clone()
	}
	return Input{source: source, sections: sections}
}

// Source reports how the input was obtained.
func (in Input) Source() Source {
	return in.source
}

// Section returns a copy of the section's value, or nil when absent.
func (in Input) Section(name SectionName) *Value {
	return in.sections[name].clone()
}

// Has reports whether the section key exists. It is true for every name in the
// enumeration, including nil sections.
func (in Input) Has(name SectionName) bool {
	_, ok := in.sections[name]
	return ok
}

// MarshalJSON renders all nine keys, absent sections as null.
func (in Input) MarshalJSON() ([]byte, error) {
	out := make(map[string]*Value, SectionCount)
	for _, name := range allSections {
		out[string(name)] = in.sections[name]
	}
	return json.Marshal(out)
}

// Render returns the section as plain text for prompts and terminal output.
// Absent sections render as "".
func (v *Value) Render() string {
	if v == nil {
		return ""
	}
	switch v.Kind {
	case KindText:
		return strings.TrimSpace(v.Text)
	case KindList:
		return strings.Join(v.List, ", ")
	case KindCount:
		return strconv.Itoa(v.Count)
	case KindEntries:
		var b strings.Builder
		for i, e := range v.Entries {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("- ")
			b.WriteString(renderEntry(e))
		}
		return b.String()
	default:
		return ""
	}
}

func renderEntry(e Entry) string {
	var parts []string
	if t := strings.TrimSpace(e.Title); t != "" {
		parts = append(parts, t)
	}
	if o := strings.TrimSpace(e.Organization); o != "" {
		parts = append(parts, "at "+o)
	}
	line := strings.Join(parts, " ")
	if span := dateSpan(e.Start, e.End); span != "" {
		line += " (" + span + ")"
	}
	if d := strings.TrimSpace(e.Description); d != "" {
		if line != "" {
			line += ": "
		}
		line += d
	}
	return line
}

func dateSpan(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start != "" && end != "":
		return start + " - " + end
	case start != "":
		return start + " - present"
	default:
		return end
	}
}
