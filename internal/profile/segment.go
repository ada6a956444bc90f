package profile

import (
	"regexp"
	"strings"
	"unicode"
)

var sectionAliases = map[string]SectionName{
	"headline":                Headline,
	"title":                   Headline,
	"professional title":      Headline,
	"about":                   About,
	"about me":                About,
	"summary":                 About,
	"professional summary":    About,
	"profile":                 About,
	"objective":               About,
	"career objective":        About,
	"experience":              Experience,
	"work experience":         Experience,
	"professional experience": Experience,
	"employment":              Experience,
	"employment history":      Experience,
	"work history":            Experience,
	"skills":                  Skills,
	"technical skills":        Skills,
	"key skills":              Skills,
	"core competencies":       Skills,
	"competencies":            Skills,
	"education":               Education,
	"academic background":     Education,
	"qualifications":          Education,
	"followers":               Followers,
	"connections":             Followers,
	"activity":                Activity,
	"recent activity":         Activity,
	"projects":                Activity,
	"personal projects":       Activity,
	"publications":            Activity,
	"posts":                   Activity,
	"profile picture":         ProfilePicture,
	"profilepicture":          ProfilePicture,
	"photo":                   ProfilePicture,
	"background image":        BackgroundImage,
	"backgroundimage":         BackgroundImage,
	"banner":                  BackgroundImage,
}

// LookupSection resolves a label such as "Work Experience:" to a section.
func LookupSection(label string) (SectionName, bool) {
	key := normalizeLabel(label)
	if name, ok := sectionAliases[key]; ok {
		return name, true
	}
	for _, name := range allSections {
		if strings.EqualFold(key, string(name)) {
			return name, true
		}
	}
	return "", false
}

func normalizeLabel(label string) string {
	label = strings.TrimSpace(label)
	label = strings.TrimRightFunc(label, func(r rune) bool {
		return r == ':' || r == '-' || unicode.IsSpace(r)
	})
	label = strings.ReplaceAll(label, "_", " ")
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

var (
	followersLine = regexp.MustCompile(`(?i)^([\d,]+)\+?\s+(followers|connections)$`)
	monthPrefix   = `(?:(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+)?`
	dateRange     = regexp.MustCompile(`(?i)(` + monthPrefix + `\d{4})\s*(?:-|–|—|to)\s*(` + monthPrefix + `\d{4}|present|current|now)`)
	emailLike     = regexp.MustCompile(`\S+@\S+\.\S+`)
	phoneLike     = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
	bulletPrefix  = regexp.MustCompile(`^\s*(?:[•·▪\-*–]|\d+[.)])\s*`)
)

const maxHeadingLength = 40

// Segment splits extracted document text into sections using heading lines.
// Text before the first heading is treated as the contact block: its first
// line is the name, the next plausible title line becomes the headline and
// the rest falls into about. Unrecognised headings keep appending to the
// current section.
func Segment(text string) map[SectionName]*Value {
	blocks := map[SectionName][]string{}
	var preamble []string
	var current SectionName
	followers := -1

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if m := followersLine.FindStringSubmatch(line); m != nil {
			if n, ok := parseCount(m[1]); ok {
				followers = n
			}
			continue
		}
		if line != "" && len(line) <= maxHeadingLength {
			if name, ok := LookupSection(line); ok {
				current = name
				continue
			}
		}
		if current == "" {
			if line != "" {
				preamble = append(preamble, line)
			}
			continue
		}
		blocks[current] = append(blocks[current], line)
	}

	values := map[SectionName]*Value{}
	headline, about := splitPreamble(preamble)
	if len(blocks[Headline]) == 0 && headline != "" {
		blocks[Headline] = []string{headline}
	}
	if len(about) > 0 {
		blocks[About] = append(about, blocks[About]...)
	}

	for name, lines := range blocks {
		body := strings.TrimSpace(strings.Join(lines, "\n"))
		if body == "" {
			continue
		}
		switch name {
		case Skills:
			values[name] = ListValue(splitSkills(body))
		case Experience, Education, Activity:
			values[name] = EntriesValue(parseEntries(lines))
		case Followers:
			if n, ok := parseCount(body); ok {
				values[name] = CountValue(n)
			}
		case Headline:
			values[name] = TextValue(firstLine(body))
		default:
			values[name] = TextValue(collapseLines(lines))
		}
	}
	if followers >= 0 && values[Followers] == nil {
		values[Followers] = CountValue(followers)
	}
	return values
}

func splitPreamble(lines []string) (string, []string) {
	var rest []string
	headline := ""
	for i, line := range lines {
		if i == 0 || isContactLine(line) {
			continue
		}
		if headline == "" && len(line) <= 100 && !strings.HasSuffix(line, ".") {
			headline = line
			continue
		}
		rest = append(rest, line)
	}
	return headline, rest
}

func isContactLine(line string) bool {
	lower := strings.ToLower(line)
	return emailLike.MatchString(line) ||
		phoneLike.MatchString(line) ||
		strings.Contains(lower, "http://") ||
		strings.Contains(lower, "https://") ||
		strings.Contains(lower, "linkedin.com") ||
		strings.Contains(lower, "github.com")
}

// parseEntries groups lines into records separated by blank lines. The first
// line of a record is its title, optionally "Title at Org" or "Title | Org".
func parseEntries(lines []string) []Entry {
	var out []Entry
	var block []string
	flush := func() {
		if len(block) > 0 {
			out = append(out, entryFromBlock(block))
			block = nil
		}
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	flush()
	return out
}

func entryFromBlock(block []string) Entry {
	var e Entry
	head := bulletPrefix.ReplaceAllString(block[0], "")
	if m := dateRange.FindStringSubmatchIndex(head); m != nil {
		e.Start = strings.TrimSpace(head[m[2]:m[3]])
		e.End = strings.TrimSpace(head[m[4]:m[5]])
		head = strings.ReplaceAll(head[:m[0]]+head[m[1]:], "()", "")
		head = strings.TrimRight(strings.TrimSpace(head), " ,|-–")
	}
	e.Title, e.Organization = splitTitle(head)

	var desc []string
	for _, line := range block[1:] {
		if e.Start == "" {
			if m := dateRange.FindStringSubmatch(line); m != nil && len(strings.TrimSpace(dateRange.ReplaceAllString(line, ""))) < 3 {
				e.Start, e.End = strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
				continue
			}
		}
		desc = append(desc, bulletPrefix.ReplaceAllString(line, ""))
	}
	e.Description = strings.Join(desc, " ")
	return e
}

func splitTitle(head string) (string, string) {
	for _, sep := range []string{" at ", " | ", " @ ", " — ", " – ", " - ", ", "} {
		if i := strings.Index(head, sep); i > 0 {
			return strings.TrimSpace(head[:i]), strings.TrimSpace(head[i+len(sep):])
		}
	}
	return strings.TrimSpace(head), ""
}

// splitSkills splits on commas, semicolons, pipes, bullets and newlines and
// drops case-insensitive duplicates.
func splitSkills(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ',', ';', '|', '\n', '•', '·', '▪':
			return true
		}
		return false
	})
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(bulletPrefix.ReplaceAllString(p, ""))
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

func collapseLines(lines []string) string {
	var kept []string
	for _, l := range lines {
		if t := strings.TrimSpace(l); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, "\n")
}
