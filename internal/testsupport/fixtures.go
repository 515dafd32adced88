// Package testsupport assembles small AcroForm PDFs for tests. The files are
// written object by object with a classic cross-reference table so tests do
// not depend on binary fixtures checked into the repository.
package testsupport

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joshasn/medical-form-app-sub001/internal/pdf/text"
)

// FieldType selects how a fixture field is declared.
type FieldType int

const (
	Text FieldType = iota
	CheckBox
	Radio
	Combo
	PushButton
	Signature
)

// FieldSpec describes one fixture field. Options holds radio states or combo
// entries. Parent groups the field under a non-terminal field of that name.
type FieldSpec struct {
	Name         string
	Parent       string
	Type         FieldType
	Page         int
	Rect         [4]float64
	Options      []string
	Value        string
	DA           string
	Flags        int
	NoAppearance bool
	Unplaced     bool
}

// FormSpec describes a fixture document.
type FormSpec struct {
	Pages      int
	PageWidth  float64
	PageHeight float64
	// Origin is the lower-left corner of the MediaBox. Field rects are
	// given in native space, so they must account for it.
	Origin     [2]float64
	Fields     []FieldSpec
	NoAcroForm bool
}

const (
	flagRadio      = 1 << 15
	flagPushButton = 1 << 16
	flagCombo      = 1 << 17
	defaultDA      = "/Helv 0 Tf 0 g"
)

type builder struct {
	objects []string
}

func (b *builder) reserve() int {
	b.objects = append(b.objects, "")
	return len(b.objects)
}

func (b *builder) set(n int, body string) {
	b.objects[n-1] = body
}

func (b *builder) add(body string) int {
	n := b.reserve()
	b.set(n, body)
	return n
}

func (b *builder) stream(dict string, content string) int {
	return b.add(fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(content), content))
}

func (b *builder) bytes(root int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")

	offsets := make([]int, len(b.objects))
	for i, body := range b.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(b.objects)+1)
	fmt.Fprintf(&buf, "%010d %05d f \n", 0, 65535)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d %05d n \n", off, 0)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\n", len(b.objects)+1, root)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func literal(s string) string {
	return "(" + text.EscapeLiteral([]byte(s)) + ")"
}

func ref(n int) string {
	return fmt.Sprintf("%d 0 R", n)
}

func rectArray(r [4]float64) string {
	return fmt.Sprintf("[%g %g %g %g]", r[0], r[1], r[2], r[3])
}

func pdfName(s string) string {
	var sb strings.Builder
	sb.WriteByte('/')
	for _, c := range []byte(s) {
		if c <= ' ' || c >= 0x7F || strings.IndexByte("/#()<>[]{}%", c) >= 0 {
			fmt.Fprintf(&sb, "#%02X", c)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// BuildForm assembles the described document.
func BuildForm(layout FormSpec) []byte {
	if layout.Pages < 1 {
		layout.Pages = 1
	}
	if layout.PageWidth == 0 {
		layout.PageWidth = 612
	}
	if layout.PageHeight == 0 {
		layout.PageHeight = 792
	}

	b := &builder{}
	catalog := b.reserve()
	pagesNode := b.reserve()
	pages := make([]int, layout.Pages)
	for i := range pages {
		pages[i] = b.reserve()
	}
	helv := b.add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	annots := make([][]string, layout.Pages)
	var topLevel []string
	parents := make(map[string]int)
	kids := make(map[string][]string)
	var parentOrder []string

	for _, f := range layout.Fields {
		pageIdx := f.Page - 1
		if pageIdx < 0 || pageIdx >= layout.Pages {
			pageIdx = 0
		}
		pageRef := pages[pageIdx]

		var parentRef int
		if f.Parent != "" {
			n, ok := parents[f.Parent]
			if !ok {
				n = b.reserve()
				parents[f.Parent] = n
				parentOrder = append(parentOrder, f.Parent)
				topLevel = append(topLevel, ref(n))
			}
			parentRef = n
		}

		objNr, widgets := b.field(f, pageRef, parentRef)
		if parentRef != 0 {
			kids[f.Parent] = append(kids[f.Parent], ref(objNr))
		} else {
			topLevel = append(topLevel, ref(objNr))
		}
		if !f.Unplaced {
			for _, w := range widgets {
				annots[pageIdx] = append(annots[pageIdx], ref(w))
			}
		}
	}

	for _, name := range parentOrder {
		b.set(parents[name], fmt.Sprintf("<< /T %s /Kids [%s] >>", literal(name), strings.Join(kids[name], " ")))
	}

	for i, p := range pages {
		content := b.stream("", "0 g")
		dict := fmt.Sprintf("<< /Type /Page /Parent %s /Resources << /Font << /F1 %s >> >> /Contents %s",
			ref(pagesNode), ref(helv), ref(content))
		if len(annots[i]) > 0 {
			dict += fmt.Sprintf(" /Annots [%s]", strings.Join(annots[i], " "))
		}
		b.set(p, dict+" >>")
	}

	kidRefs := make([]string, len(pages))
	for i, p := range pages {
		kidRefs[i] = ref(p)
	}
	ox, oy := layout.Origin[0], layout.Origin[1]
	b.set(pagesNode, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [%g %g %g %g] >>",
		strings.Join(kidRefs, " "), len(pages), ox, oy, ox+layout.PageWidth, oy+layout.PageHeight))

	if layout.NoAcroForm {
		b.set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %s >>", ref(pagesNode)))
	} else {
		acroForm := b.add(fmt.Sprintf("<< /Fields [%s] /DA %s /DR << /Font << /Helv %s >> >> >>",
			strings.Join(topLevel, " "), literal(defaultDA), ref(helv)))
		b.set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %s /AcroForm %s >>", ref(pagesNode), ref(acroForm)))
	}

	return b.bytes(catalog)
}

// field writes the field object and its widgets and returns the field's
// object number together with the widget object numbers.
func (b *builder) field(f FieldSpec, pageRef, parentRef int) (int, []int) {
	w, h := f.Rect[2]-f.Rect[0], f.Rect[3]-f.Rect[1]
	widget := fmt.Sprintf("/Type /Annot /Subtype /Widget /F 4 /P %s", ref(pageRef))
	common := fmt.Sprintf("/T %s", literal(f.Name))
	if parentRef != 0 {
		common += fmt.Sprintf(" /Parent %s", ref(parentRef))
	}
	da := f.DA
	if da == "" {
		da = defaultDA
	}

	switch f.Type {
	case Radio:
		fieldNr := b.reserve()
		var widgetNrs []int
		var kidRefs []string
		for i, opt := range f.Options {
			r := f.Rect
			r[0] += float64(i) * (w + 10)
			r[2] += float64(i) * (w + 10)
			state := "/Off"
			if opt == f.Value {
				state = pdfName(opt)
			}
			dict := fmt.Sprintf("<< %s /Parent %s /Rect %s /AS %s", widget, ref(fieldNr), rectArray(r), state)
			if !f.NoAppearance {
				on := b.stream(formDict(w, h), "q 0 g 1 1 m 2 2 l S Q")
				off := b.stream(formDict(w, h), "")
				dict += fmt.Sprintf(" /AP << /N << %s %s /Off %s >> >>", pdfName(opt), ref(on), ref(off))
			}
			n := b.add(dict + " >>")
			widgetNrs = append(widgetNrs, n)
			kidRefs = append(kidRefs, ref(n))
		}
		value := "/Off"
		if f.Value != "" {
			value = pdfName(f.Value)
		}
		b.set(fieldNr, fmt.Sprintf("<< %s /FT /Btn /Ff %d /V %s /Kids [%s] >>",
			common, flagRadio|f.Flags, value, strings.Join(kidRefs, " ")))
		return fieldNr, widgetNrs

	case CheckBox:
		dict := fmt.Sprintf("<< %s %s /FT /Btn /Rect %s", common, widget, rectArray(f.Rect))
		if f.Flags != 0 {
			dict += fmt.Sprintf(" /Ff %d", f.Flags)
		}
		onState := "Yes"
		if len(f.Options) > 0 {
			onState = f.Options[0]
		}
		if !f.NoAppearance {
			on := b.stream(formDict(w, h), "q 0 g 1 1 m 2 2 l S Q")
			off := b.stream(formDict(w, h), "")
			dict += fmt.Sprintf(" /AP << /N << %s %s /Off %s >> >>", pdfName(onState), ref(on), ref(off))
		}
		if f.Value != "" {
			dict += fmt.Sprintf(" /V %s /AS %s", pdfName(f.Value), pdfName(f.Value))
		} else {
			dict += " /V /Off /AS /Off"
		}
		n := b.add(dict + " >>")
		return n, []int{n}

	default:
		dict := fmt.Sprintf("<< %s %s /Rect %s /DA %s", common, widget, rectArray(f.Rect), literal(da))
		switch f.Type {
		case Combo:
			opts := make([]string, len(f.Options))
			for i, o := range f.Options {
				opts[i] = literal(o)
			}
			dict += fmt.Sprintf(" /FT /Ch /Ff %d /Opt [%s]", flagCombo|f.Flags, strings.Join(opts, " "))
		case PushButton:
			dict += fmt.Sprintf(" /FT /Btn /Ff %d", flagPushButton|f.Flags)
		case Signature:
			dict += " /FT /Sig"
		default:
			dict += " /FT /Tx"
			if f.Flags != 0 {
				dict += fmt.Sprintf(" /Ff %d", f.Flags)
			}
		}
		if f.Value != "" {
			dict += " /V " + literal(f.Value)
		}
		n := b.add(dict + " >>")
		return n, []int{n}
	}
}

func formDict(w, h float64) string {
	return fmt.Sprintf("/Type /XObject /Subtype /Form /BBox [0 0 %g %g]", w, h)
}

// IntakeForm is a one-page patient intake form covering every field kind.
func IntakeForm() FormSpec {
	return FormSpec{
		Fields: []FieldSpec{
			{Name: "firstName", Type: Text, Page: 1, Rect: [4]float64{100, 700, 300, 720}},
			{Name: "lastName", Type: Text, Page: 1, Rect: [4]float64{100, 670, 300, 690}, Flags: 2},
			{Name: "dob", Type: Text, Page: 1, Rect: [4]float64{100, 640, 200, 660}},
			{Name: "phone", Type: Text, Page: 1, Rect: [4]float64{100, 610, 250, 630}},
			{Name: "consent", Type: CheckBox, Page: 1, Rect: [4]float64{100, 580, 112, 592}},
			{Name: "gender", Type: Radio, Page: 1, Rect: [4]float64{100, 550, 112, 562}, Options: []string{"Male", "Female"}},
			{Name: "state", Type: Combo, Page: 1, Rect: [4]float64{100, 520, 200, 540}, Options: []string{"CA", "NY", "Sao Paulo"}},
			{Name: "submit", Type: PushButton, Page: 1, Rect: [4]float64{100, 480, 160, 500}},
		},
	}
}

// IntakePDF returns IntakeForm assembled as PDF bytes.
func IntakePDF() []byte {
	return BuildForm(IntakeForm())
}

// WriteFixture writes data into a fresh temporary directory and returns the
// file path.
func WriteFixture(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}
