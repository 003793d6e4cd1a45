package normalize

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DecodeBytes returns the input as UTF-8. Legacy exports from old
// point-of-sale machines are routinely Windows-1252; anything that is
// not already valid UTF-8 is decoded from that.
func DecodeBytes(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		// Strip a UTF-8 BOM if present
		return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}), nil
	}

	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode legacy charset: %w", err)
	}
	return decoded, nil
}

// SniffDelimiter picks ';' or ',' by counting occurrences on the first
// line. French exports overwhelmingly use ';' (',' is the decimal
// separator), so ties go to the semicolon.
func SniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{','}) > bytes.Count(line, []byte{';'}) {
		return ','
	}
	return ';'
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldHeader normalizes a header cell for synonym matching: lower-case,
// trimmed, accents stripped.
func FoldHeader(s string) string {
	folded, _, err := transform.String(accentStripper, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
