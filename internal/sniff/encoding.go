package sniff

import (
	"bytes"
	"io"
	"os"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// readText reads up to limit bytes from path and decodes them to a
// string, trying UTF-16 (BOM), UTF-8, then Latin-1. Data files in the
// wild declare nothing about their encoding, so the sniffers work on
// a best-effort decode rather than failing.
func readText(path string, limit int) (string, error) {
	raw, err := readBytes(path, limit)
	if err != nil {
		return "", err
	}
	return decodeText(raw), nil
}

// readBytes reads up to limit bytes from path.
func readBytes(path string, limit int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sniff: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	buf, err := io.ReadAll(io.LimitReader(f, int64(limit)))
	if err != nil {
		return nil, eris.Wrapf(err, "sniff: read %s", path)
	}
	return buf, nil
}

func decodeText(raw []byte) string {
	if bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) || bytes.HasPrefix(raw, []byte{0xFE, 0xFF}) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		if out, _, err := transform.Bytes(dec, raw); err == nil {
			return string(out)
		}
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
	if err != nil {
		// Latin-1 decodes any byte sequence; this should not happen.
		zap.L().Debug("sniff: latin-1 decode failed", zap.Error(err))
		return string(raw)
	}
	return string(out)
}
