package locator

import (
	"fmt"
	"path/filepath"
	"strings"

	"locale-patcher/internal/parser"
	"locale-patcher/internal/table"

	"github.com/rs/zerolog/log"
)

// Placeholder is replaced by the locale code in a path template.
const Placeholder = "{locale}"

// DefaultTemplate is where the web app keeps its translation modules.
const DefaultTemplate = "src/lib/i18n/translations/{locale}.ts"

// Locator maps locale codes to target files through a path template.
type Locator struct {
	root     string
	template string
	parser   parser.Parser
}

// Target is a locale file ready for patching or auditing.
type Target struct {
	Locale string
	Path   string
	Entry  table.LocaleEntry
	Parser parser.Parser
}

// New creates a Locator. Relative templates are resolved against root.
// The template must contain Placeholder and name a file type that has a
// parser.
func New(root, template string) (*Locator, error) {
	if template == "" {
		template = DefaultTemplate
	}
	if !strings.Contains(template, Placeholder) {
		return nil, fmt.Errorf("path template %q has no %s placeholder", template, Placeholder)
	}

	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(template))
	p := parser.NewObjectParser()
	if !p.CanParse(ext) {
		return nil, fmt.Errorf("unsupported translation file type %q", ext)
	}

	return &Locator{root: root, template: template, parser: p}, nil
}

// Path returns the target file for a locale.
func (l *Locator) Path(locale string) string {
	p := filepath.FromSlash(strings.ReplaceAll(l.template, Placeholder, locale))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.root, p)
}

// Template returns the path template.
func (l *Locator) Template() string { return l.template }

// Resolve pairs every table entry with its target file, in table order.
func (l *Locator) Resolve(tbl *table.Table) []Target {
	entries := tbl.Entries()
	targets := make([]Target, 0, len(entries))

	for _, e := range entries {
		targets = append(targets, Target{
			Locale: e.Locale,
			Path:   l.Path(e.Locale),
			Entry:  e,
			Parser: l.parser,
		})
	}

	log.Debug().Int("count", len(targets)).Str("template", l.template).Msg("Resolved locale targets")
	return targets
}
