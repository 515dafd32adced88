package text

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"

	pdferrors "github.com/joshasn/medical-form-app-sub001/internal/pdf/errors"
)

// EncodeWinAnsi encodes s as WinAnsiEncoding (Windows-1252) bytes. The first
// rune that has no code in the encoding yields an EncodingViolation error.
func EncodeWinAnsi(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			return nil, pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeEncodingViolation,
				"invalid UTF-8 in text value", fmt.Sprintf("offset %d", i)).WithOffset(i)
		}
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			return nil, pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeEncodingViolation,
				"character not representable in WinAnsiEncoding",
				fmt.Sprintf("%U at offset %d", r, i)).WithOffset(i)
		}
		out = append(out, b)
	}
	return out, nil
}

// EscapeLiteral renders raw bytes as the body of a PDF literal string, without
// the surrounding parentheses. Bytes outside printable ASCII become octal escapes.
func EscapeLiteral(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) + 8)
	for _, c := range b {
		switch c {
		case '\\', '(', ')':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if c < 0x20 || c > 0x7E {
				fmt.Fprintf(&sb, "\\%03o", c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	return sb.String()
}

// EncodeTextString prepares s as a PDF text string. ASCII input comes back as
// an escaped literal body; anything else is UTF-16BE with a byte order mark,
// returned as hex digits with isHex set.
func EncodeTextString(s string) (body string, isHex bool) {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return EscapeLiteral([]byte(s)), false
	}

	enc := xunicode.UTF16(xunicode.BigEndian, xunicode.UseBOM).NewEncoder()
	b, err := enc.Bytes([]byte(s))
	if err != nil {
		return EscapeLiteral([]byte(SanitizeASCII(s))), false
	}
	return strings.ToUpper(hex.EncodeToString(b)), true
}
