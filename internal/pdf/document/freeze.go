package document

import (
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	pdferrors "github.com/joshasn/medical-form-app-sub001/internal/pdf/errors"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/text"
)

// Freeze flattens the form: every visible widget's current appearance is
// drawn into its page content, the widgets are removed from the pages and the
// AcroForm is dropped from the catalog. Afterwards the document has no fields.
func (d *Document) Freeze() error {
	if d.closed {
		return pdferrors.NewDocumentClosedError()
	}

	if err := d.ensureAppearances(); err != nil {
		return err
	}

	content := make(map[*Page]*strings.Builder)
	widgets := make(map[int]bool)
	for _, f := range d.fields {
		for _, w := range f.widgets {
			if w.objNr != 0 {
				widgets[w.objNr] = true
			}
			if w.page == nil || !w.hasBox || w.rect.Empty() {
				continue
			}
			if flags, ok := d.integer(w.dict, "F"); ok && flags&annotHidden != 0 {
				continue
			}
			ref, ok := d.normalAppearance(w)
			if !ok {
				continue
			}

			name := d.addXObject(w.page, ref)
			sb, ok := content[w.page]
			if !ok {
				sb = &strings.Builder{}
				content[w.page] = sb
			}
			d.placeAppearance(sb, w, ref, name)
		}
	}

	for _, p := range d.pages {
		if sb, ok := content[p]; ok {
			if err := d.appendContent(p, []byte(sb.String())); err != nil {
				return err
			}
		}
		d.removeWidgets(p, widgets)
	}

	root, err := d.ctx.Catalog()
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}
	delete(root, "AcroForm")

	d.fields = nil
	d.byName = make(map[string]*Field)
	d.acroForm = nil
	return nil
}

// ensureAppearances gives text and dropdown fields that carry a value but no
// appearance stream one, so the value survives flattening.
func (d *Document) ensureAppearances() error {
	for _, f := range d.fields {
		if f.Value == "" || (f.Kind != KindText && f.Kind != KindDropdown) {
			continue
		}
		display := f.Value
		if f.Kind == KindDropdown {
			for i, export := range f.exports {
				if export == f.Value && i < len(f.Options) {
					display = f.Options[i]
					break
				}
			}
		}
		for _, w := range f.widgets {
			if _, ok := d.normalAppearance(w); ok {
				continue
			}
			encoded, err := text.EncodeWinAnsi(text.SanitizeASCII(text.Normalize(display)))
			if err != nil {
				return err
			}
			ref, err := d.textAppearance(w, encoded, parseDA(f.da))
			if err != nil {
				return err
			}
			w.dict["AP"] = types.Dict{"N": ref}
		}
	}
	return nil
}

// normalAppearance returns the stream the widget currently displays.
func (d *Document) normalAppearance(w *widget) (types.IndirectRef, bool) {
	ap := d.dict(w.dict["AP"])
	if ap == nil {
		return types.IndirectRef{}, false
	}
	n, found := ap.Find("N")
	if !found {
		return types.IndirectRef{}, false
	}

	ref, isRef := n.(types.IndirectRef)
	if isRef {
		resolved, err := d.ctx.Dereference(ref)
		if err != nil {
			return types.IndirectRef{}, false
		}
		if _, isStream := resolved.(types.StreamDict); isStream {
			return ref, true
		}
	}

	states := d.dict(n)
	if states == nil {
		return types.IndirectRef{}, false
	}
	state := d.name(w.dict, "AS")
	if state == "" {
		return types.IndirectRef{}, false
	}
	ref, isRef = states[state].(types.IndirectRef)
	return ref, isRef
}

// placeAppearance maps the appearance BBox onto the widget rectangle.
func (d *Document) placeAppearance(sb *strings.Builder, w *widget, ref types.IndirectRef, name string) {
	bbox := []float64{0, 0, w.rect.Width, w.rect.Height}
	if resolved, err := d.ctx.Dereference(ref); err == nil {
		if sd, ok := resolved.(types.StreamDict); ok {
			if box, ok := d.numbers(sd.Dict["BBox"], 4); ok {
				bbox = box
			}
		}
	}
	bw, bh := bbox[2]-bbox[0], bbox[3]-bbox[1]
	if bw == 0 || bh == 0 {
		return
	}
	sx, sy := w.rect.Width/bw, w.rect.Height/bh
	tx, ty := w.rect.X-bbox[0]*sx, w.rect.Y-bbox[1]*sy
	fmt.Fprintf(sb, "q %s 0 0 %s %s %s cm /%s Do Q\n", num(sx), num(sy), num(tx), num(ty), name)
}

// removeWidgets drops form widgets from the page's annotation list.
func (d *Document) removeWidgets(p *Page, widgets map[int]bool) {
	obj, found := p.dict.Find("Annots")
	if !found {
		return
	}
	var kept types.Array
	for _, annot := range d.array(obj) {
		if objNr := objectNumber(annot); objNr != 0 && widgets[objNr] {
			continue
		}
		if ad := d.dict(annot); ad != nil && d.name(ad, "Subtype") == "Widget" {
			continue
		}
		kept = append(kept, annot)
	}
	if len(kept) == 0 {
		delete(p.dict, "Annots")
		return
	}
	p.dict["Annots"] = kept
}
