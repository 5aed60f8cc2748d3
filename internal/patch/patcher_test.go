package patch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"locale-patcher/internal/locator"
	"locale-patcher/internal/table"
	"locale-patcher/internal/textutil"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hiSource = `const hi = {
  nav: { home: 'होम' },
  home: {
    statsUsers: 'उपयोगकर्ता',
    statsSatisfaction: 'संतुष्टि' },
  about: { title: 'हमारे बारे में' },
};
export default hi;
`

const hiPatched = `const hi = {
  nav: { home: 'होम' },
  home: {
    statsUsers: 'उपयोगकर्ता',
    statsSatisfaction: 'संतुष्टि', whyTitle: 'X', whyDesc: 'Y' },
  about: { title: 'हमारे बारे में' },
};
export default hi;
`

const bnSource = `const bn = {
  home: { statsUsers: 'ব্যবহারকারী' },
};
export default bn;
`

type recorded struct {
	locale string
	res    *Result
	err    error
}

type fakeRecorder struct {
	calls []recorded
}

func (f *fakeRecorder) Record(_ context.Context, locale, _ string, res *Result, err error) error {
	f.calls = append(f.calls, recorded{locale: locale, res: res, err: err})
	return nil
}

func testTable(t *testing.T, locales ...string) *table.Table {
	t.Helper()
	entries := make([]table.LocaleEntry, len(locales))
	for i, l := range locales {
		entries[i] = table.LocaleEntry{Locale: l, Replacement: whyKeys}
	}
	tbl, err := table.New("", nil, entries)
	require.NoError(t, err)
	return tbl
}

func setup(t *testing.T, files map[string]string, locales ...string) (string, *table.Table, *locator.Locator) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	loc, err := locator.New(dir, "{locale}.ts")
	require.NoError(t, err)
	return dir, testTable(t, locales...), loc
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRunContinuesPastFailingLocales(t *testing.T) {
	dir, tbl, loc := setup(t, map[string]string{
		"hi.ts": hiSource,
		"bn.ts": bnSource,
	}, "bn", "ta", "hi")

	rec := &fakeRecorder{}
	p := NewPatcher(tbl, loc, Options{}, rec)

	summary, err := p.Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, summary.Patched)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "hi", summary.Results[0].Locale)
	assert.True(t, summary.Results[0].Written)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 2)

	var missing *MissingAnchorError
	require.True(t, errors.As(merr.Errors[0], &missing))
	assert.Equal(t, "bn", missing.Locale)

	var access *FileAccessError
	require.True(t, errors.As(merr.Errors[1], &access))
	assert.Equal(t, "ta", access.Locale)
	assert.ErrorIs(t, access, os.ErrNotExist)

	assert.Equal(t, hiPatched, readFile(t, filepath.Join(dir, "hi.ts")))
	assert.Equal(t, bnSource, readFile(t, filepath.Join(dir, "bn.ts")), "file without anchor is left untouched")

	require.Len(t, rec.calls, 3)
	assert.Equal(t, []string{"bn", "ta", "hi"}, []string{rec.calls[0].locale, rec.calls[1].locale, rec.calls[2].locale})
	assert.Error(t, rec.calls[0].err)
	assert.NoError(t, rec.calls[2].err)
}

func TestRunIsIdempotent(t *testing.T) {
	dir, tbl, loc := setup(t, map[string]string{"hi.ts": hiSource}, "hi")
	p := NewPatcher(tbl, loc, Options{}, nil)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	once := readFile(t, filepath.Join(dir, "hi.ts"))

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Patched)
	assert.Equal(t, 1, summary.Unchanged)
	assert.False(t, summary.Results[0].Written)
	assert.Equal(t, once, readFile(t, filepath.Join(dir, "hi.ts")))

	assert.Equal(t, 1, strings.Count(once, "whyTitle:"))
	assert.Equal(t, 1, strings.Count(once, "whyDesc:"))
}

func TestPatchFileDryRun(t *testing.T) {
	dir, tbl, loc := setup(t, map[string]string{"hi.ts": hiSource}, "hi")
	p := NewPatcher(tbl, loc, Options{DryRun: true}, nil)

	entry, _ := tbl.Lookup("hi")
	res, err := p.PatchFile(entry)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.False(t, res.Written)
	assert.Contains(t, res.Diff, "+    statsSatisfaction: 'संतुष्टि', whyTitle: 'X', whyDesc: 'Y' },")
	assert.Contains(t, res.Diff, "-    statsSatisfaction: 'संतुष्टि' },")
	assert.Equal(t, hiSource, readFile(t, filepath.Join(dir, "hi.ts")))
	assert.NotEqual(t, res.HashBefore, res.HashAfter)
}

func TestPatchFileBackupAndAtomic(t *testing.T) {
	dir, tbl, loc := setup(t, map[string]string{"hi.ts": hiSource}, "hi")
	p := NewPatcher(tbl, loc, Options{WriteOptions: WriteOptions{Backup: true, Atomic: true}}, nil)

	entry, _ := tbl.Lookup("hi")
	res, err := p.PatchFile(entry)
	require.NoError(t, err)
	assert.True(t, res.Written)

	assert.Equal(t, hiPatched, readFile(t, filepath.Join(dir, "hi.ts")))
	assert.Equal(t, hiSource, readFile(t, filepath.Join(dir, "hi.ts"+BackupSuffix)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestPatchFileKeepsEncoding(t *testing.T) {
	dir := t.TempDir()
	raw, err := textutil.Encode(strings.ReplaceAll(hiSource, "\n", "\r\n"), textutil.UTF16LE)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hi.ts"), raw, 0o600))

	loc, err := locator.New(dir, "{locale}.ts")
	require.NoError(t, err)
	tbl := testTable(t, "hi")
	p := NewPatcher(tbl, loc, Options{}, nil)

	entry, _ := tbl.Lookup("hi")
	res, err := p.PatchFile(entry)
	require.NoError(t, err)
	assert.Equal(t, "utf-16le", res.Encoding)

	written, err := os.ReadFile(filepath.Join(dir, "hi.ts"))
	require.NoError(t, err)
	text, enc, err := textutil.Decode(written)
	require.NoError(t, err)
	assert.Equal(t, textutil.UTF16LE, enc)
	assert.Equal(t, strings.ReplaceAll(hiPatched, "\n", "\r\n"), text)

	info, err := os.Stat(filepath.Join(dir, "hi.ts"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestPatchFileMalformedAnchor(t *testing.T) {
	dir, tbl, loc := setup(t, map[string]string{
		"hi.ts": "const hi = {\n  home: { statsSatisfaction: t('x') },\n};\n",
	}, "hi")
	p := NewPatcher(tbl, loc, Options{}, nil)

	entry, _ := tbl.Lookup("hi")
	_, err := p.PatchFile(entry)

	var malformed *MalformedAnchorError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, 2, malformed.Line)
	assert.True(t, IsSkip(err))
	assert.Contains(t, readFile(t, filepath.Join(dir, "hi.ts")), "t('x')")
}

func TestRunStopsWhenCancelled(t *testing.T) {
	dir, tbl, loc := setup(t, map[string]string{"hi.ts": hiSource}, "hi")
	p := NewPatcher(tbl, loc, Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, summary.Results)
	assert.Equal(t, hiSource, readFile(t, filepath.Join(dir, "hi.ts")))
}

func TestAudit(t *testing.T) {
	dir, tbl, loc := setup(t, map[string]string{
		"hi.ts": hiSource,
		"bn.ts": bnSource,
		"mr.ts": hiPatched,
	}, "hi", "bn", "mr", "ta")
	p := NewPatcher(tbl, loc, Options{}, nil)

	reports := p.Audit(context.Background(), 3)
	require.Len(t, reports, 4)

	hi := reports[0]
	assert.Equal(t, "hi", hi.Locale)
	assert.NoError(t, hi.Err)
	assert.Equal(t, 1, hi.Anchors)
	assert.True(t, hi.Pending)
	assert.Equal(t, 0, hi.Managed["whyTitle"])
	assert.False(t, hi.Healthy(tbl.Managed()))

	var missing *MissingAnchorError
	assert.True(t, errors.As(reports[1].Err, &missing))

	mr := reports[2]
	assert.NoError(t, mr.Err)
	assert.False(t, mr.Pending)
	assert.Equal(t, 1, mr.Managed["whyDesc"])
	assert.True(t, mr.Healthy(tbl.Managed()))

	var access *FileAccessError
	assert.True(t, errors.As(reports[3].Err, &access))

	assert.Equal(t, hiSource, readFile(t, filepath.Join(dir, "hi.ts")), "audit never writes")
}
