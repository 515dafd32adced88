package grid

import (
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"golang.org/x/text/encoding/charmap"
)

// Standard 14 font names used by the grid.
const (
	Helvetica     = "Helvetica"
	HelveticaBold = "Helvetica-Bold"
)

// glyphWidth returns the width of r in 1/1000 em. Core fonts are measured by
// their WinAnsi code, so runes are mapped through Windows-1252 first.
func glyphWidth(fontName string, r rune) int {
	code := int(r)
	if b, ok := charmap.Windows1252.EncodeRune(r); ok {
		code = int(b)
	}
	return font.CharWidth(fontName, rune(code))
}

// StringWidth returns the advance width of s in points. Names that are not
// standard 14 fonts are measured as Helvetica.
func StringWidth(s, fontName string, size float64) float64 {
	if !font.IsCoreFont(fontName) {
		fontName = Helvetica
	}
	total := 0
	for _, r := range s {
		total += glyphWidth(fontName, r)
	}
	return font.UserSpaceUnits(float64(total), 1) * size
}

// Truncate shortens s with a trailing "..." until it fits maxWidth. Text that
// fits is returned unchanged; if not even the ellipsis fits the result is "".
func Truncate(s, fontName string, size, maxWidth float64) string {
	if StringWidth(s, fontName, size) <= maxWidth {
		return s
	}
	const ellipsis = "..."
	runes := []rune(s)
	for n := len(runes) - 1; n >= 0; n-- {
		candidate := string(runes[:n]) + ellipsis
		if StringWidth(candidate, fontName, size) <= maxWidth {
			return candidate
		}
	}
	return ""
}
