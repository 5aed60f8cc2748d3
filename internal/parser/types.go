package parser

// Field is a single `name: 'value'` assignment found in a translation module.
type Field struct {
	// Name is the property name.
	Name string
	// Value is the raw single-quoted value, without the quotes.
	Value string
	// Line is the 1-based line number of the field name.
	Line int
	// Start and End are byte offsets of the whole assignment in the text.
	Start int
	End   int
}

// ParseResult holds parsing output for a single file.
type ParseResult struct {
	// FilePath is the path of the parsed file.
	FilePath string
	// Encoding is the detected text encoding (utf-8, utf-8-bom, ...).
	Encoding string
	// Fields are the assignments found in the file, in order.
	Fields []Field
	// RawLines preserves the decoded content split on newlines.
	RawLines []string
}

// Count returns how many assignments to name the file holds.
func (r *ParseResult) Count(name string) int {
	n := 0
	for _, f := range r.Fields {
		if f.Name == name {
			n++
		}
	}
	return n
}

// Lookup returns the first assignment to name.
func (r *ParseResult) Lookup(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Parser is the interface for translation file parsers.
type Parser interface {
	// CanParse returns true if this parser handles the given file extension.
	CanParse(ext string) bool
	// Parse reads a file and extracts its field assignments.
	Parse(filePath string) (*ParseResult, error)
}
