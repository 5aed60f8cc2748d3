package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	const text = "export default {\n  home: { statsSatisfaction: 'संतुष्टि' },\n};\n"

	for _, enc := range []Encoding{UTF8, UTF8BOM, UTF16LE, UTF16BE} {
		t.Run(enc.String(), func(t *testing.T) {
			raw, err := Encode(text, enc)
			require.NoError(t, err)
			assert.Equal(t, enc, DetectEncoding(raw))

			decoded, got, err := Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, enc, got)
			assert.Equal(t, text, decoded)

			again, err := Encode(decoded, got)
			require.NoError(t, err)
			assert.Equal(t, raw, again)
		})
	}
}

func TestEncodeRestoresBOM(t *testing.T) {
	raw, err := Encode("a", UTF8BOM)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF, 'a'}, raw)

	raw, err = Encode("a", UTF16LE)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFE, 'a', 0x00}, raw)
}

func TestDecodeRejectsInvalidUTF8(t *testing.T) {
	_, _, err := Decode([]byte{'a', 0xff, 'b'})
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "लक्ष...", Truncate("लक्षण शिक्षा", 4))
}

func TestHashIsStable(t *testing.T) {
	assert.Equal(t, Hash("x"), Hash("x"))
	assert.NotEqual(t, Hash("x"), Hash("y"))
	assert.Len(t, Hash(""), 64)
}
