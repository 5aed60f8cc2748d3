package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"locale-patcher/internal/textutil"
)

// fieldPattern matches an identifier followed by a colon and a single-quoted
// value. Escaped quotes stay inside the value.
var fieldPattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*:\s*'((?:[^'\\\n]|\\.)*)'`)

// separatorPattern matches what may sit between fields of a flat sequence.
var separatorPattern = regexp.MustCompile(`^[\s,]*$`)

// ObjectParser reads `name: 'value'` assignments out of TypeScript/JavaScript
// translation modules.
type ObjectParser struct{}

func NewObjectParser() *ObjectParser { return &ObjectParser{} }

func (p *ObjectParser) CanParse(ext string) bool {
	switch ext {
	case ".ts", ".js", ".mjs", ".tsx":
		return true
	}
	return false
}

// Parse reads and decodes a file and collects its field assignments.
func (p *ObjectParser) Parse(filePath string) (*ParseResult, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read translation file: %w", err)
	}

	text, enc, err := textutil.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode translation file: %w", err)
	}

	return &ParseResult{
		FilePath: filePath,
		Encoding: enc.String(),
		Fields:   ParseFields(text),
		RawLines: strings.Split(text, "\n"),
	}, nil
}

// ParseFields returns every assignment in text, in order of appearance.
func ParseFields(text string) []Field {
	matches := fieldPattern.FindAllStringSubmatchIndex(text, -1)
	fields := make([]Field, 0, len(matches))

	line, last := 1, 0
	for _, loc := range matches {
		line += strings.Count(text[last:loc[0]], "\n")
		last = loc[0]

		fields = append(fields, Field{
			Name:  text[loc[2]:loc[3]],
			Value: text[loc[4]:loc[5]],
			Line:  line,
			Start: loc[0],
			End:   loc[1],
		})
	}
	return fields
}

// ParseSequence parses a flat, comma-separated sequence of assignments such
// as `whyTitle: 'X', whyDesc: 'Y'`. Anything other than assignments, commas
// and whitespace is an error.
func ParseSequence(text string) ([]Field, error) {
	fields := ParseFields(text)
	if len(fields) == 0 {
		return nil, fmt.Errorf("no assignments in %q", textutil.Truncate(text, 40))
	}

	prev := 0
	for i, f := range fields {
		gap := text[prev:f.Start]
		switch {
		case !separatorPattern.MatchString(gap):
			return nil, fmt.Errorf("unexpected text %q before %s", textutil.Truncate(strings.TrimSpace(gap), 40), f.Name)
		case i == 0 && strings.TrimSpace(gap) != "":
			return nil, fmt.Errorf("leading separator before %s", f.Name)
		case i > 0 && strings.Count(gap, ",") != 1:
			return nil, fmt.Errorf("expected one comma before %s", f.Name)
		}
		prev = f.End
	}
	if tail := text[prev:]; strings.TrimSpace(tail) != "" {
		return nil, fmt.Errorf("unexpected trailing text %q", textutil.Truncate(strings.TrimSpace(tail), 40))
	}

	return fields, nil
}

// Names returns the field names in order.
func Names(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
