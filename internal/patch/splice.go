package patch

import (
	"regexp"
	"strings"
)

// quotedValue matches a single-quoted value on one line, escapes included.
const quotedValue = `'(?:[^'\\\n]|\\.)*'`

// trailerPattern classifies what follows the anchor value: an optional comma
// (group 1) and an optional closing brace (group 2), whitespace allowed
// around both.
var trailerPattern = regexp.MustCompile(`^\s*(,)?\s*(\})?`)

// Splicer removes and re-inserts managed fields around one anchor field.
type Splicer struct {
	anchor  string
	managed []string

	anchorKey   *regexp.Regexp
	anchorValue *regexp.Regexp
	inserted    *regexp.Regexp
}

// NewSplicer compiles the patterns for an anchor and a managed field set.
// Names must be plain identifiers.
func NewSplicer(anchor string, managed []string) *Splicer {
	quoted := make([]string, len(managed))
	for i, m := range managed {
		quoted[i] = regexp.QuoteMeta(m)
	}

	s := &Splicer{
		anchor:      anchor,
		managed:     append([]string(nil), managed...),
		anchorKey:   regexp.MustCompile(`\b` + regexp.QuoteMeta(anchor) + `\s*:`),
		anchorValue: regexp.MustCompile(`^` + regexp.QuoteMeta(anchor) + `\s*:\s*` + quotedValue),
	}
	if len(managed) > 0 {
		s.inserted = regexp.MustCompile(`^[ \t]*,[ \t]*(?:` + strings.Join(quoted, "|") + `)\s*:\s*` + quotedValue)
	}
	return s
}

// Anchor returns the anchor field name.
func (s *Splicer) Anchor() string { return s.anchor }

// Clean drops every line whose trimmed content starts with a managed field
// assignment and then strips the run of managed fields that directly follows
// the anchor value on its line. It returns the cleaned text and the number
// of lines and fields removed.
func (s *Splicer) Clean(content string) (string, int) {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	removed := 0

	for _, line := range lines {
		if s.isManagedLine(line) {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	content = strings.Join(kept, "\n")

	if s.inserted == nil {
		return content, removed
	}

	end, err := s.valueEnd(content)
	if err != nil {
		return content, removed
	}

	rest := content[end:]
	for {
		loc := s.inserted.FindStringIndex(rest)
		if loc == nil {
			break
		}
		rest = rest[loc[1]:]
		removed++
	}

	return content[:end] + rest, removed
}

func (s *Splicer) isManagedLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, m := range s.managed {
		if strings.HasPrefix(trimmed, m+":") {
			return true
		}
	}
	return false
}

// AnchorCount returns how many times the anchor field is assigned in text.
func (s *Splicer) AnchorCount(content string) int {
	return len(s.anchorKey.FindAllStringIndex(content, -1))
}

// valueEnd returns the offset just past the closing quote of the first
// anchor value.
func (s *Splicer) valueEnd(content string) (int, error) {
	loc := s.anchorKey.FindStringIndex(content)
	if loc == nil {
		return 0, ErrAnchorNotFound
	}

	val := s.anchorValue.FindStringIndex(content[loc[0]:])
	if val == nil {
		return 0, ErrAnchorMalformed
	}
	return loc[0] + val[1], nil
}

// AnchorLine returns the 1-based line of the first anchor field, or 0.
func (s *Splicer) AnchorLine(content string) int {
	loc := s.anchorKey.FindStringIndex(content)
	if loc == nil {
		return 0
	}
	return strings.Count(content[:loc[0]], "\n") + 1
}

// Insert splices replacement right after the anchor value, keeping the
// surrounding object well punctuated:
//
//	'v', }      -> 'v', <repl> }
//	'v', next   -> 'v', <repl>, next
//	'v' }       -> 'v', <repl> }
//	'v' next    -> 'v', <repl> next
func (s *Splicer) Insert(content, replacement string) (string, error) {
	end, err := s.valueEnd(content)
	if err != nil {
		return "", err
	}

	head, rest := content[:end], content[end:]
	m := trailerPattern.FindStringSubmatchIndex(rest)
	hasComma, hasBrace := m[2] >= 0, m[4] >= 0

	var b strings.Builder
	b.Grow(len(content) + len(replacement) + 4)
	b.WriteString(head)

	switch {
	case hasComma && hasBrace:
		b.WriteString(rest[:m[3]])
		b.WriteString(" " + replacement + " ")
		b.WriteString(rest[m[4]:])
	case hasComma:
		b.WriteString(rest[:m[3]])
		b.WriteString(" " + replacement + ",")
		b.WriteString(rest[m[3]:])
	case hasBrace:
		b.WriteString(", " + replacement + " ")
		b.WriteString(rest[m[4]:])
	default:
		b.WriteString(", " + replacement)
		b.WriteString(rest)
	}

	return b.String(), nil
}

// Apply runs Clean then Insert.
func (s *Splicer) Apply(content, replacement string) (string, int, error) {
	cleaned, removed := s.Clean(content)
	out, err := s.Insert(cleaned, replacement)
	if err != nil {
		return "", removed, err
	}
	return out, removed, nil
}
