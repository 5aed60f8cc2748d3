package table

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"locale-patcher/internal/parser"

	"github.com/pelletier/go-toml/v2"
	"github.com/samber/lo"
	"golang.org/x/text/language"
	"sigs.k8s.io/yaml"
)

// DefaultAnchor is the field after whose value replacement text is inserted.
const DefaultAnchor = "statsSatisfaction"

//go:embed default.toml
var defaultTable []byte

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LocaleEntry pairs a locale code with the text spliced into its file.
type LocaleEntry struct {
	Locale      string
	Replacement string
	// Fields are the assignments parsed from Replacement.
	Fields []parser.Field
}

// Table is the immutable set of locale entries a run applies, together with
// the anchor field and the managed field set.
type Table struct {
	anchor  string
	managed []string
	entries []LocaleEntry
}

// fileTable is the on-disk shape shared by the TOML, YAML and JSON formats.
type fileTable struct {
	Anchor  string       `toml:"anchor" json:"anchor"`
	Managed []string     `toml:"managed" json:"managed"`
	Locales []fileLocale `toml:"locale" json:"locale"`
}

type fileLocale struct {
	Code        string `toml:"code" json:"code"`
	Replacement string `toml:"replacement" json:"replacement"`
}

// Default returns the table embedded in the binary.
func Default() (*Table, error) {
	t, err := Parse(defaultTable, ".toml")
	if err != nil {
		return nil, fmt.Errorf("default table: %w", err)
	}
	return t, nil
}

// Load reads a table file. The format is chosen by extension: .toml, or
// .yaml/.yml/.json.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table file: %w", err)
	}

	t, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes table data in the format named by ext.
func Parse(data []byte, ext string) (*Table, error) {
	var ft fileTable

	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &ft); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	case ".yaml", ".yml", ".json":
		if err := yaml.UnmarshalStrict(data, &ft); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported table format %q", ext)
	}

	entries := make([]LocaleEntry, len(ft.Locales))
	for i, l := range ft.Locales {
		entries[i] = LocaleEntry{Locale: l.Code, Replacement: l.Replacement}
	}

	return New(ft.Anchor, ft.Managed, entries)
}

// New validates and builds a table. An empty anchor selects DefaultAnchor;
// an empty managed set is derived from the field names of all replacements.
func New(anchor string, managed []string, entries []LocaleEntry) (*Table, error) {
	if anchor == "" {
		anchor = DefaultAnchor
	}
	if !identPattern.MatchString(anchor) {
		return nil, fmt.Errorf("anchor %q is not a field name", anchor)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no locale entries")
	}

	seen := make(map[string]bool, len(entries))
	built := make([]LocaleEntry, 0, len(entries))

	for _, e := range entries {
		code := strings.TrimSpace(e.Locale)
		if code == "" {
			return nil, fmt.Errorf("locale entry without code")
		}
		if _, err := language.Parse(code); err != nil {
			return nil, fmt.Errorf("locale %q: %w", code, err)
		}
		if seen[code] {
			return nil, fmt.Errorf("locale %q listed twice", code)
		}
		seen[code] = true

		repl := strings.TrimSpace(e.Replacement)
		if strings.ContainsAny(repl, "\r\n") {
			return nil, fmt.Errorf("locale %q replacement must be a single line", code)
		}
		fields, err := parser.ParseSequence(repl)
		if err != nil {
			return nil, fmt.Errorf("locale %q replacement: %w", code, err)
		}

		built = append(built, LocaleEntry{Locale: code, Replacement: repl, Fields: fields})
	}

	if len(managed) == 0 {
		managed = lo.Uniq(lo.FlatMap(built, func(e LocaleEntry, _ int) []string {
			return parser.Names(e.Fields)
		}))
	}
	managed = lo.Uniq(lo.Map(managed, func(m string, _ int) string { return strings.TrimSpace(m) }))

	for _, m := range managed {
		if !identPattern.MatchString(m) {
			return nil, fmt.Errorf("managed field %q is not a field name", m)
		}
		if m == anchor {
			return nil, fmt.Errorf("anchor %q cannot be a managed field", anchor)
		}
	}

	for _, e := range built {
		names := parser.Names(e.Fields)
		if missing := lo.Without(names, managed...); len(missing) > 0 {
			return nil, fmt.Errorf("locale %q inserts unmanaged fields %v", e.Locale, missing)
		}
		if dup := lo.FindDuplicates(names); len(dup) > 0 {
			return nil, fmt.Errorf("locale %q repeats fields %v", e.Locale, dup)
		}
		if lo.Contains(names, anchor) {
			return nil, fmt.Errorf("locale %q replacement assigns the anchor %q", e.Locale, anchor)
		}
	}

	return &Table{anchor: anchor, managed: managed, entries: built}, nil
}

// WithAnchor returns a copy of the table using a different anchor field.
func (t *Table) WithAnchor(anchor string) (*Table, error) {
	return New(anchor, t.Managed(), t.Entries())
}

// Anchor returns the anchor field name.
func (t *Table) Anchor() string { return t.anchor }

// Managed returns a copy of the managed field set.
func (t *Table) Managed() []string {
	return append([]string(nil), t.managed...)
}

// Entries returns a copy of the locale entries in table order.
func (t *Table) Entries() []LocaleEntry {
	return append([]LocaleEntry(nil), t.entries...)
}

// Locales returns the locale codes in table order.
func (t *Table) Locales() []string {
	return lo.Map(t.entries, func(e LocaleEntry, _ int) string { return e.Locale })
}

// Lookup returns the entry for a locale code.
func (t *Table) Lookup(locale string) (LocaleEntry, bool) {
	return lo.Find(t.entries, func(e LocaleEntry) bool { return e.Locale == locale })
}

// Select returns a table restricted to the given locales, keeping table
// order. Unknown codes are an error.
func (t *Table) Select(locales []string) (*Table, error) {
	if len(locales) == 0 {
		return t, nil
	}
	if unknown := lo.Without(locales, t.Locales()...); len(unknown) > 0 {
		return nil, fmt.Errorf("unknown locales %v", unknown)
	}

	entries := lo.Filter(t.entries, func(e LocaleEntry, _ int) bool {
		return lo.Contains(locales, e.Locale)
	})
	return &Table{anchor: t.anchor, managed: t.Managed(), entries: entries}, nil
}
