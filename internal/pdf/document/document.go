// Package document wraps a pdfcpu context with the operations the form engine
// needs: field discovery, typed value writes, freezing and page drawing.
//
// A Document is owned by a single fill cycle. It is not safe for concurrent
// use and becomes unusable once it has been serialized.
package document

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	pdferrors "github.com/joshasn/medical-form-app-sub001/internal/pdf/errors"
)

// headerWindow is how far into the input the %PDF- marker may appear.
const headerWindow = 1024

// Document is a loaded PDF together with its field catalog.
type Document struct {
	ctx      *model.Context
	pages    []*Page
	fields   []*Field
	byName   map[string]*Field
	fonts    map[string]types.IndirectRef
	acroForm types.Dict
	closed   bool
}

// Load parses raw PDF bytes. Malformed input yields a DocumentLoad error.
func Load(data []byte) (doc *Document, err error) {
	if len(data) == 0 {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeDocumentLoad, "empty document")
	}
	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	if !bytes.Contains(window, []byte("%PDF-")) {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeDocumentLoad, "missing PDF header")
	}

	// pdfcpu panics on some classes of corrupt input
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeDocumentLoad,
				"failed to read PDF context", fmt.Sprint(r))
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeDocumentLoad, "failed to read PDF context", err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeDocumentLoad, "failed to ensure page count", err)
	}

	doc = &Document{
		ctx:    ctx,
		byName: make(map[string]*Field),
		fonts:  make(map[string]types.IndirectRef),
	}

	if err := doc.collectPages(); err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeDocumentLoad, "failed to read page tree", err)
	}

	doc.discover()

	return doc, nil
}

// LoadFile reads and parses the PDF at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeDocumentLoad, "failed to open PDF file", err)
	}
	return Load(data)
}

// Save serializes the document to w. The document is closed afterwards.
func (d *Document) Save(w io.Writer) error {
	if d.closed {
		return pdferrors.NewDocumentClosedError()
	}
	if err := api.WriteContext(d.ctx, w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	d.closed = true
	return nil
}

// Bytes serializes the document and returns the raw PDF. The document is
// closed afterwards.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Closed reports whether the document has already been serialized.
func (d *Document) Closed() bool {
	return d.closed
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.pages)
}

// Pages returns a snapshot of the page list.
func (d *Document) Pages() []Page {
	out := make([]Page, len(d.pages))
	for i, p := range d.pages {
		out[i] = *p
	}
	return out
}

// Page returns the 1-based page pageNr.
func (d *Document) Page(pageNr int) (Page, error) {
	p, err := d.page(pageNr)
	if err != nil {
		return Page{}, err
	}
	return *p, nil
}

func (d *Document) page(pageNr int) (*Page, error) {
	if d.closed {
		return nil, pdferrors.NewDocumentClosedError()
	}
	if pageNr < 1 || pageNr > len(d.pages) {
		return nil, pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeMalformedPage,
			"invalid page number", fmt.Sprintf("page %d of %d", pageNr, len(d.pages)))
	}
	return d.pages[pageNr-1], nil
}

// standardFont returns a document-wide font object for one of the standard 14
// fonts, creating it on first use.
func (d *Document) standardFont(baseFont string) (types.IndirectRef, error) {
	if ref, ok := d.fonts[baseFont]; ok {
		return ref, nil
	}

	font := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name(baseFont),
	}
	if baseFont != "ZapfDingbats" && baseFont != "Symbol" {
		font["Encoding"] = types.Name("WinAnsiEncoding")
	}

	ref, err := d.ctx.IndRefForNewObject(font)
	if err != nil {
		return types.IndirectRef{}, fmt.Errorf("failed to add font %s: %w", baseFont, err)
	}
	d.fonts[baseFont] = *ref
	return *ref, nil
}

// newStream adds an uncompressed stream object and returns its reference.
func (d *Document) newStream(dict types.Dict, content []byte) (types.IndirectRef, error) {
	if dict == nil {
		dict = types.Dict{}
	}
	dict["Length"] = types.Integer(len(content))

	sd := types.StreamDict{Dict: dict, Content: content}
	if err := sd.Encode(); err != nil {
		return types.IndirectRef{}, fmt.Errorf("failed to encode stream: %w", err)
	}

	ref, err := d.ctx.IndRefForNewObject(sd)
	if err != nil {
		return types.IndirectRef{}, fmt.Errorf("failed to add stream: %w", err)
	}
	return *ref, nil
}

// dict resolves o to a dictionary, returning nil when it is anything else.
func (d *Document) dict(o types.Object) types.Dict {
	if o == nil {
		return nil
	}
	dict, err := d.ctx.DereferenceDict(o)
	if err != nil {
		return nil
	}
	return dict
}

// array resolves o to an array, returning nil when it is anything else.
func (d *Document) array(o types.Object) types.Array {
	if o == nil {
		return nil
	}
	arr, err := d.ctx.DereferenceArray(o)
	if err != nil {
		return nil
	}
	return arr
}

// numbers resolves o to an array of exactly n numbers.
func (d *Document) numbers(o types.Object, n int) ([]float64, bool) {
	arr := d.array(o)
	if len(arr) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i, item := range arr {
		f, err := d.ctx.DereferenceNumber(item)
		if err != nil {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// name resolves the entry key of dict to a name, or "".
func (d *Document) name(dict types.Dict, key string) string {
	o, found := dict.Find(key)
	if !found {
		return ""
	}
	n, err := d.ctx.DereferenceName(o, model.V10, nil)
	if err != nil {
		return ""
	}
	return string(n)
}

// str resolves the entry key of dict to a decoded text string, or "".
func (d *Document) str(dict types.Dict, key string) string {
	o, found := dict.Find(key)
	if !found {
		return ""
	}
	s, err := d.ctx.DereferenceStringOrHexLiteral(o, model.V10, nil)
	if err != nil {
		return ""
	}
	return s
}

// integer resolves the entry key of dict to an integer.
func (d *Document) integer(dict types.Dict, key string) (int, bool) {
	o, found := dict.Find(key)
	if !found {
		return 0, false
	}
	i, err := d.ctx.DereferenceInteger(o)
	if err != nil || i == nil {
		return 0, false
	}
	return int(*i), true
}

// objectNumber returns the object number behind an indirect reference, or 0
// for direct objects.
func objectNumber(o types.Object) int {
	if ref, ok := o.(types.IndirectRef); ok {
		return int(ref.ObjectNumber)
	}
	return 0
}

// uniqueName returns prefix, or prefix followed by a counter, such that the
// result is not yet a key of dict.
func uniqueName(dict types.Dict, prefix string) string {
	if _, taken := dict[prefix]; !taken {
		return prefix
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s%d", prefix, i)
		if _, taken := dict[candidate]; !taken {
			return candidate
		}
	}
}
