package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFields(t *testing.T) {
	text := "const hi = {\n  home: {\n    title: 'नमस्ते', statsSatisfaction: 'संतुष्टि' },\n  about: { note: 'it\\'s' },\n};\n"

	fields := ParseFields(text)
	require.Len(t, fields, 3)

	assert.Equal(t, "title", fields[0].Name)
	assert.Equal(t, "नमस्ते", fields[0].Value)
	assert.Equal(t, 3, fields[0].Line)

	assert.Equal(t, "statsSatisfaction", fields[1].Name)
	assert.Equal(t, "संतुष्टि", fields[1].Value)
	assert.Equal(t, "statsSatisfaction: 'संतुष्टि'", text[fields[1].Start:fields[1].End])

	assert.Equal(t, "note", fields[2].Name)
	assert.Equal(t, `it\'s`, fields[2].Value)
	assert.Equal(t, 4, fields[2].Line)
}

func TestParseSequence(t *testing.T) {
	fields, err := ParseSequence("whyTitle: 'X', whyDesc: 'Y'")
	require.NoError(t, err)
	assert.Equal(t, []string{"whyTitle", "whyDesc"}, Names(fields))

	bad := []string{
		"",
		"whyTitle: 'X' whyDesc: 'Y'",
		"whyTitle: 'X',, whyDesc: 'Y'",
		", whyTitle: 'X'",
		"whyTitle: 'X',",
		"whyTitle: 'X', }",
		"whyTitle: 'X', whyDesc: t('y')",
	}
	for _, in := range bad {
		_, err := ParseSequence(in)
		assert.Error(t, err, in)
	}
}

func TestObjectParserParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bn.ts")
	content := "\xEF\xBB\xBFexport default {\n  home: { statsSatisfaction: 'ok', whyTitle: 'X' },\n};\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p := NewObjectParser()
	require.True(t, p.CanParse(filepath.Ext(path)))
	assert.False(t, p.CanParse(".ini"))

	res, err := p.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "utf-8-bom", res.Encoding)
	assert.Equal(t, 1, res.Count("whyTitle"))
	assert.Equal(t, 0, res.Count("whyDesc"))
	assert.Equal(t, "export default {", res.RawLines[0])

	f, ok := res.Lookup("statsSatisfaction")
	require.True(t, ok)
	assert.Equal(t, 2, f.Line)
}

func TestObjectParserMissingFile(t *testing.T) {
	_, err := NewObjectParser().Parse(filepath.Join(t.TempDir(), "nope.ts"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
