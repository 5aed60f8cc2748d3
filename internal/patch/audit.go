package patch

import (
	"context"
	"strings"

	"locale-patcher/internal/locator"
	"locale-patcher/internal/worker"
)

// Report is the read-only view of one target file.
type Report struct {
	Locale string
	Path   string
	// Anchors counts assignments of the anchor field.
	Anchors int
	// Managed counts assignments per managed field.
	Managed map[string]int
	// Pending is true when patching would change the file.
	Pending bool
	Err     error
}

// Healthy reports whether the file is already patched: one anchor and
// exactly one of each field the locale inserts.
func (r *Report) Healthy(fields []string) bool {
	if r.Err != nil || r.Anchors != 1 || r.Pending {
		return false
	}
	for _, f := range fields {
		if r.Managed[f] != 1 {
			return false
		}
	}
	return true
}

// Audit inspects every target of the table concurrently without writing.
// Reports come back in table order.
func (p *Patcher) Audit(ctx context.Context, workers int) []*Report {
	targets := p.locator.Resolve(p.table)

	pool := worker.NewPool[locator.Target, *Report](workers, func(_ context.Context, t locator.Target) (*Report, error) {
		return p.audit(t), nil
	})

	tasks := pool.Execute(ctx, targets)
	reports := make([]*Report, len(tasks))
	for i, task := range tasks {
		if task.Err != nil {
			reports[i] = &Report{Locale: task.Input.Locale, Path: task.Input.Path, Err: task.Err}
			continue
		}
		reports[i] = task.Result
	}
	return reports
}

func (p *Patcher) audit(t locator.Target) *Report {
	rep := &Report{Locale: t.Locale, Path: t.Path, Managed: make(map[string]int)}

	parsed, err := t.Parser.Parse(t.Path)
	if err != nil {
		rep.Err = &FileAccessError{Locale: t.Locale, Path: t.Path, Op: "read", Err: err}
		return rep
	}

	for _, m := range p.table.Managed() {
		rep.Managed[m] = parsed.Count(m)
	}

	text := strings.Join(parsed.RawLines, "\n")
	rep.Anchors = p.splicer.AnchorCount(text)

	out, _, err := p.splicer.Apply(text, t.Entry.Replacement)
	switch {
	case err == nil:
		rep.Pending = out != text
	case IsSkip(err):
		rep.Err = &MissingAnchorError{Locale: t.Locale, Path: t.Path, Anchor: p.splicer.Anchor()}
		if rep.Anchors > 0 {
			rep.Err = &MalformedAnchorError{Locale: t.Locale, Path: t.Path, Anchor: p.splicer.Anchor(), Line: p.splicer.AnchorLine(text)}
		}
	default:
		rep.Err = err
	}
	return rep
}
