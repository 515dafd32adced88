package document

import (
	"fmt"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/joshasn/medical-form-app-sub001/internal/pdf/geometry"
)

// Kind is the closed set of field behaviors, decided once at discovery.
type Kind int

const (
	KindUnsupported Kind = iota
	KindText
	KindCheckBox
	KindRadioGroup
	KindDropdown
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCheckBox:
		return "checkbox"
	case KindRadioGroup:
		return "radio"
	case KindDropdown:
		return "dropdown"
	default:
		return "unsupported"
	}
}

// MarshalText renders the kind by name in JSON output
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) Kind {
	switch s {
	case "text":
		return KindText
	case "checkbox":
		return KindCheckBox
	case "radio":
		return KindRadioGroup
	case "dropdown":
		return KindDropdown
	default:
		return KindUnsupported
	}
}

// UnmarshalText accepts the names produced by MarshalText
func (k *Kind) UnmarshalText(b []byte) error {
	*k = ParseKind(string(b))
	return nil
}

// Field flag bits (PDF 32000-1, 12.7.3.1 and 12.7.4)
const (
	flagReadOnly   = 1 << 0
	flagRequired   = 1 << 1
	flagRadio      = 1 << 15
	flagPushButton = 1 << 16
)

// Annotation flag: hidden
const annotHidden = 1 << 1

// Field is one terminal form field.
type Field struct {
	Name     string         `json:"name"`
	Kind     Kind           `json:"kind"`
	Rect     *geometry.Rect `json:"rect,omitempty"`
	Options  []string       `json:"options,omitempty"`
	Value    string         `json:"value,omitempty"`
	ReadOnly bool           `json:"readOnly,omitempty"`
	Required bool           `json:"required,omitempty"`

	dict    types.Dict
	da      string
	exports []string
	widgets []*widget
}

type widget struct {
	dict   types.Dict
	objNr  int
	page   *Page
	rect   geometry.Rect
	hasBox bool
	states []string
}

// onState is the appearance state that renders the widget as selected.
func (w *widget) onState() string {
	if len(w.states) > 0 {
		return w.states[0]
	}
	return ""
}

func (w *widget) hasState(state string) bool {
	for _, s := range w.states {
		if s == state {
			return true
		}
	}
	return false
}

// inherited carries the inheritable field attributes down the field tree.
type inherited struct {
	ft    string
	flags int
	da    string
	value types.Object
}

// Fields returns a snapshot of the field catalog in declaration order.
func (d *Document) Fields() []Field {
	out := make([]Field, len(d.fields))
	for i, f := range d.fields {
		out[i] = *f
		out[i].Options = append([]string(nil), f.Options...)
		if f.Rect != nil {
			r := *f.Rect
			out[i].Rect = &r
		}
	}
	return out
}

// FieldNames returns the field names in catalog order.
func (d *Document) FieldNames() []string {
	names := make([]string, len(d.fields))
	for i, f := range d.fields {
		names[i] = f.Name
	}
	return names
}

// Field returns the named field.
func (d *Document) Field(name string) (Field, bool) {
	f, ok := d.byName[name]
	if !ok {
		return Field{}, false
	}
	return *f, true
}

// discover builds the field catalog. It only reads the object graph; a
// malformed form yields a partial or empty catalog rather than an error.
func (d *Document) discover() {
	root, err := d.ctx.Catalog()
	if err != nil {
		return
	}
	obj, found := root.Find("AcroForm")
	if !found {
		return
	}
	acroForm := d.dict(obj)
	if acroForm == nil {
		return
	}
	d.acroForm = acroForm

	pageOf := d.annotationIndex()
	inh := inherited{da: d.str(acroForm, "DA")}
	visited := make(map[int]bool)
	for _, fieldObj := range d.array(acroForm["Fields"]) {
		d.walkField(fieldObj, "", inh, pageOf, visited, 0)
	}
}

// annotationIndex maps widget object numbers to the first page listing them.
func (d *Document) annotationIndex() map[int]*Page {
	index := make(map[int]*Page)
	for _, p := range d.pages {
		for _, annot := range d.array(p.dict["Annots"]) {
			objNr := objectNumber(annot)
			if objNr == 0 {
				continue
			}
			if _, seen := index[objNr]; !seen {
				index[objNr] = p
			}
		}
	}
	return index
}

func (d *Document) walkField(obj types.Object, parent string, inh inherited, pageOf map[int]*Page, visited map[int]bool, depth int) {
	if depth > maxTreeDepth {
		return
	}
	objNr := objectNumber(obj)
	if objNr != 0 {
		if visited[objNr] {
			return
		}
		visited[objNr] = true
	}
	dict := d.dict(obj)
	if dict == nil {
		return
	}

	name := parent
	if partial := d.str(dict, "T"); partial != "" {
		if name != "" {
			name += "."
		}
		name += partial
	}

	if ft := d.name(dict, "FT"); ft != "" {
		inh.ft = ft
	}
	if flags, ok := d.integer(dict, "Ff"); ok {
		inh.flags = flags
	}
	if da := d.str(dict, "DA"); da != "" {
		inh.da = da
	}
	if v, found := dict.Find("V"); found {
		inh.value = v
	}

	var children []types.Object
	var widgetObjs []types.Object
	for _, kid := range d.array(dict["Kids"]) {
		kd := d.dict(kid)
		if kd == nil {
			continue
		}
		if _, hasT := kd.Find("T"); hasT {
			children = append(children, kid)
		} else {
			widgetObjs = append(widgetObjs, kid)
		}
	}

	if len(children) > 0 {
		for _, child := range children {
			d.walkField(child, name, inh, pageOf, visited, depth+1)
		}
		return
	}

	if name == "" {
		name = fmt.Sprintf("field_%d", len(d.fields)+1)
	}
	if _, dup := d.byName[name]; dup {
		return
	}

	f := &Field{
		Name:     name,
		Kind:     kindOf(inh.ft, inh.flags),
		ReadOnly: inh.flags&flagReadOnly != 0,
		Required: inh.flags&flagRequired != 0,
		dict:     dict,
		da:       inh.da,
	}

	if len(widgetObjs) == 0 {
		if _, isWidget := dict.Find("Rect"); isWidget {
			widgetObjs = []types.Object{obj}
		}
	}
	for _, wo := range widgetObjs {
		f.widgets = append(f.widgets, d.readWidget(wo, pageOf))
	}

	switch f.Kind {
	case KindDropdown:
		f.Options, f.exports = d.choiceOptions(dict)
	case KindCheckBox, KindRadioGroup:
		f.Options = stateOptions(f.widgets)
	}

	f.Value = d.fieldValue(inh.value)

	if len(f.widgets) > 0 {
		if w := f.widgets[0]; w.page != nil && w.hasBox {
			box := w.rect
			box.X -= w.page.OriginX
			box.Y -= w.page.OriginY
			r := geometry.ToTopLeft(box, w.page.Height)
			f.Rect = &r
		}
	}

	d.fields = append(d.fields, f)
	d.byName[name] = f
}

func kindOf(ft string, flags int) Kind {
	switch ft {
	case "Tx":
		return KindText
	case "Btn":
		if flags&flagPushButton != 0 {
			return KindUnsupported
		}
		if flags&flagRadio != 0 {
			return KindRadioGroup
		}
		return KindCheckBox
	case "Ch":
		return KindDropdown
	default:
		return KindUnsupported
	}
}

func (d *Document) readWidget(obj types.Object, pageOf map[int]*Page) *widget {
	dict := d.dict(obj)
	w := &widget{dict: dict, objNr: objectNumber(obj)}
	if w.objNr != 0 {
		w.page = pageOf[w.objNr]
	}

	if corners, ok := d.numbers(dict["Rect"], 4); ok {
		w.rect = geometry.FromCorners(corners[0], corners[1], corners[2], corners[3])
		if w.page != nil {
			w.rect.Page = w.page.Number
		}
		w.hasBox = true
	}

	if ap := d.dict(dict["AP"]); ap != nil {
		if states := d.dict(ap["N"]); states != nil {
			for state := range states {
				if state != "Off" {
					w.states = append(w.states, state)
				}
			}
			sort.Strings(w.states)
		}
	}
	return w
}

func stateOptions(widgets []*widget) []string {
	var options []string
	seen := make(map[string]bool)
	for _, w := range widgets {
		for _, s := range w.states {
			if !seen[s] {
				seen[s] = true
				options = append(options, s)
			}
		}
	}
	return options
}

// choiceOptions returns display texts and export values of a choice field's
// Opt array.
func (d *Document) choiceOptions(dict types.Dict) (display, exports []string) {
	for _, item := range d.array(dict["Opt"]) {
		if pair := d.array(item); pair != nil {
			if len(pair) != 2 {
				continue
			}
			export, err1 := d.ctx.DereferenceStringOrHexLiteral(pair[0], model.V10, nil)
			text, err2 := d.ctx.DereferenceStringOrHexLiteral(pair[1], model.V10, nil)
			if err1 != nil || err2 != nil {
				continue
			}
			display = append(display, text)
			exports = append(exports, export)
			continue
		}
		text, err := d.ctx.DereferenceStringOrHexLiteral(item, model.V10, nil)
		if err != nil {
			continue
		}
		display = append(display, text)
		exports = append(exports, text)
	}
	return display, exports
}

func (d *Document) fieldValue(obj types.Object) string {
	if obj == nil {
		return ""
	}
	resolved, err := d.ctx.Dereference(obj)
	if err != nil || resolved == nil {
		return ""
	}
	switch v := resolved.(type) {
	case types.Name:
		if v == "Off" {
			return ""
		}
		return string(v)
	case types.StringLiteral, types.HexLiteral:
		s, err := d.ctx.DereferenceStringOrHexLiteral(v, model.V10, nil)
		if err != nil {
			return ""
		}
		return s
	case types.Array:
		if len(v) > 0 {
			return d.fieldValue(v[0])
		}
	}
	return ""
}
