package patch

import (
	"context"
	"errors"
	"os"

	"locale-patcher/internal/locator"
	"locale-patcher/internal/table"
	"locale-patcher/internal/textutil"

	"github.com/hashicorp/go-multierror"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog/log"
)

// Options configure a Patcher.
type Options struct {
	WriteOptions
	// DryRun computes results and diffs without writing anything.
	DryRun bool
}

// Result describes what patching one locale file did.
type Result struct {
	Locale      string
	Path        string
	Encoding    string
	Changed     bool
	Written     bool
	Removed     int
	AnchorLine  int
	BytesBefore int
	BytesAfter  int
	HashBefore  string
	HashAfter   string
	// Diff is a unified diff of the change, filled for dry runs.
	Diff string
}

// Recorder receives the outcome of every locale in a run.
type Recorder interface {
	Record(ctx context.Context, locale, path string, res *Result, err error) error
}

// Summary aggregates a batch run.
type Summary struct {
	Results   []*Result
	Patched   int
	Unchanged int
	Skipped   int
	Failed    int
	Bytes     int
}

// Patcher applies a locale table to its target files.
type Patcher struct {
	table    *table.Table
	locator  *locator.Locator
	splicer  *Splicer
	opts     Options
	recorder Recorder
}

// NewPatcher creates a Patcher. rec may be nil.
func NewPatcher(tbl *table.Table, loc *locator.Locator, opts Options, rec Recorder) *Patcher {
	return &Patcher{
		table:    tbl,
		locator:  loc,
		splicer:  NewSplicer(tbl.Anchor(), tbl.Managed()),
		opts:     opts,
		recorder: rec,
	}
}

// PatchFile removes previously inserted managed fields from the locale's
// file and splices entry.Replacement after the anchor value. Nothing is
// written when the anchor is missing or the content is already correct.
func (p *Patcher) PatchFile(entry table.LocaleEntry) (*Result, error) {
	path := p.locator.Path(entry.Locale)

	info, err := os.Stat(path)
	if err != nil {
		return nil, &FileAccessError{Locale: entry.Locale, Path: path, Op: "stat", Err: err}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileAccessError{Locale: entry.Locale, Path: path, Op: "read", Err: err}
	}

	text, enc, err := textutil.Decode(raw)
	if err != nil {
		return nil, &FileAccessError{Locale: entry.Locale, Path: path, Op: "decode", Err: err}
	}

	if n := p.splicer.AnchorCount(text); n > 1 {
		log.Warn().Str("locale", entry.Locale).Int("anchors", n).Msg("Anchor field assigned more than once, using the first")
	}

	out, removed, err := p.splicer.Apply(text, entry.Replacement)
	switch {
	case errors.Is(err, ErrAnchorNotFound):
		return nil, &MissingAnchorError{Locale: entry.Locale, Path: path, Anchor: p.splicer.Anchor()}
	case errors.Is(err, ErrAnchorMalformed):
		return nil, &MalformedAnchorError{Locale: entry.Locale, Path: path, Anchor: p.splicer.Anchor(), Line: p.splicer.AnchorLine(text)}
	case err != nil:
		return nil, err
	}

	res := &Result{
		Locale:      entry.Locale,
		Path:        path,
		Encoding:    enc.String(),
		Changed:     out != text,
		Removed:     removed,
		AnchorLine:  p.splicer.AnchorLine(out),
		BytesBefore: len(raw),
		HashBefore:  textutil.Hash(text),
		HashAfter:   textutil.Hash(out),
	}

	encoded, err := textutil.Encode(out, enc)
	if err != nil {
		return nil, &FileAccessError{Locale: entry.Locale, Path: path, Op: "encode", Err: err}
	}
	res.BytesAfter = len(encoded)

	if p.opts.DryRun {
		res.Diff = unifiedDiff(path, text, out)
		return res, nil
	}
	if !res.Changed {
		return res, nil
	}

	if err := writeBack(path, raw, encoded, info.Mode().Perm(), p.opts.WriteOptions); err != nil {
		return nil, &FileAccessError{Locale: entry.Locale, Path: path, Op: "write", Err: err}
	}
	res.Written = true

	return res, nil
}

// Run patches every locale of the table in order. A failing locale is
// logged and recorded but never stops the ones after it; the returned error
// aggregates all failures. Cancellation is checked between locales.
func (p *Patcher) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}
	var result *multierror.Error

	for _, entry := range p.table.Entries() {
		if err := ctx.Err(); err != nil {
			return summary, multierror.Append(result, err).ErrorOrNil()
		}

		res, err := p.PatchFile(entry)
		p.record(ctx, entry.Locale, res, err)

		if err != nil {
			result = multierror.Append(result, err)
			if IsSkip(err) {
				summary.Skipped++
				log.Error().Err(err).Str("locale", entry.Locale).Msg("Anchor field not usable, locale skipped")
			} else {
				summary.Failed++
				log.Error().Err(err).Str("locale", entry.Locale).Msg("Locale failed")
			}
			continue
		}

		summary.Results = append(summary.Results, res)
		if res.Written {
			summary.Bytes += res.BytesAfter
		}
		if res.Changed {
			summary.Patched++
		} else {
			summary.Unchanged++
		}

		log.Info().
			Str("locale", res.Locale).
			Str("path", res.Path).
			Bool("changed", res.Changed).
			Bool("written", res.Written).
			Int("removed", res.Removed).
			Int("line", res.AnchorLine).
			Msg("Locale patched")
	}

	return summary, result.ErrorOrNil()
}

func (p *Patcher) record(ctx context.Context, locale string, res *Result, err error) {
	if p.recorder == nil {
		return
	}
	if recErr := p.recorder.Record(ctx, locale, p.locator.Path(locale), res, err); recErr != nil {
		log.Warn().Err(recErr).Str("locale", locale).Msg("Failed to record patch result")
	}
}

func unifiedDiff(path, before, after string) string {
	if before == after {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: path,
		ToFile:   path,
		Context:  1,
	})
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to render diff")
		return ""
	}
	return diff
}
