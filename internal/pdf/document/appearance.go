package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/joshasn/medical-form-app-sub001/internal/pdf/text"
)

const (
	minFontSize  = 4
	maxAutoSize  = 12
	textPadding  = 2
	checkMarkTag = "4"
)

// style is the subset of a default appearance string used to draw values.
type style struct {
	size  float64
	color string
}

// parseDA reads font size and fill color from a DA string such as
// "/Helv 0 Tf 0 g". The font itself is always replaced by Helvetica so that
// WinAnsi encoded values render correctly.
func parseDA(da string) style {
	st := style{color: "0 g"}
	parts := strings.Fields(da)
	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "Tf":
			if i >= 1 {
				if size, err := strconv.ParseFloat(parts[i-1], 64); err == nil {
					st.size = size
				}
			}
		case "g":
			if i >= 1 {
				st.color = strings.Join(parts[i-1:i+1], " ")
			}
		case "rg":
			if i >= 3 {
				st.color = strings.Join(parts[i-3:i+1], " ")
			}
		case "k":
			if i >= 4 {
				st.color = strings.Join(parts[i-4:i+1], " ")
			}
		}
	}
	return st
}

func (st style) fontSize(height float64) float64 {
	if st.size > 0 {
		return st.size
	}
	size := height * 0.7
	if size > maxAutoSize {
		size = maxAutoSize
	}
	if size < minFontSize {
		size = minFontSize
	}
	return size
}

func num(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func formXObject(width, height float64) types.Dict {
	return types.Dict{
		"Type":    types.Name("XObject"),
		"Subtype": types.Name("Form"),
		"BBox": types.Array{
			types.Float(0), types.Float(0), types.Float(width), types.Float(height),
		},
	}
}

// textAppearance builds a normal appearance stream showing encoded, which
// must already be WinAnsi bytes.
func (d *Document) textAppearance(w *widget, encoded []byte, st style) (types.IndirectRef, error) {
	font, err := d.standardFont("Helvetica")
	if err != nil {
		return types.IndirectRef{}, err
	}

	width, height := w.rect.Width, w.rect.Height
	size := st.fontSize(height)
	baseline := (height-size)/2 + size*0.22
	if baseline < 1 {
		baseline = 1
	}

	var sb strings.Builder
	sb.WriteString("/Tx BMC\nq\n")
	if width > 2 && height > 2 {
		fmt.Fprintf(&sb, "1 1 %s %s re W n\n", num(width-2), num(height-2))
	}
	sb.WriteString("BT\n")
	fmt.Fprintf(&sb, "/Helv %s Tf\n%s\n", num(size), st.color)
	fmt.Fprintf(&sb, "%s %s Td\n", num(textPadding), num(baseline))
	fmt.Fprintf(&sb, "(%s) Tj\n", text.EscapeLiteral(encoded))
	sb.WriteString("ET\nQ\nEMC\n")

	dict := formXObject(width, height)
	dict["Resources"] = types.Dict{"Font": types.Dict{"Helv": font}}
	return d.newStream(dict, []byte(sb.String()))
}

// checkAppearances builds the on and off appearances for a check box widget
// that has none.
func (d *Document) checkAppearances(w *widget) (on, off types.IndirectRef, err error) {
	font, err := d.standardFont("ZapfDingbats")
	if err != nil {
		return types.IndirectRef{}, types.IndirectRef{}, err
	}

	width, height := w.rect.Width, w.rect.Height
	size := height * 0.8
	if size < minFontSize {
		size = minFontSize
	}
	x := (width - size*0.846) / 2
	y := (height - size*0.7) / 2

	content := fmt.Sprintf("q\n0 g\nBT\n/ZaDb %s Tf\n%s %s Td\n(%s) Tj\nET\nQ\n",
		num(size), num(x), num(y), checkMarkTag)

	onDict := formXObject(width, height)
	onDict["Resources"] = types.Dict{"Font": types.Dict{"ZaDb": font}}
	if on, err = d.newStream(onDict, []byte(content)); err != nil {
		return types.IndirectRef{}, types.IndirectRef{}, err
	}
	if off, err = d.newStream(formXObject(width, height), []byte{}); err != nil {
		return types.IndirectRef{}, types.IndirectRef{}, err
	}
	return on, off, nil
}

// textObject converts a Go string into a PDF text string object.
func textObject(s string) types.Object {
	body, isHex := text.EncodeTextString(s)
	if isHex {
		return types.HexLiteral(body)
	}
	return types.StringLiteral(body)
}
