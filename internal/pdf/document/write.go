package document

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	pdferrors "github.com/joshasn/medical-form-app-sub001/internal/pdf/errors"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/text"
)

// Every writer prepares encodings and appearance streams first and only then
// touches the field and widget dictionaries, so a failed write leaves the
// field as it was.

func (d *Document) field(name string, kinds ...Kind) (*Field, error) {
	if d.closed {
		return nil, pdferrors.NewDocumentClosedError()
	}
	f, ok := d.byName[name]
	if !ok {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidForm, "no such field").WithField(name)
	}
	for _, k := range kinds {
		if f.Kind == k {
			return f, nil
		}
	}
	return nil, pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeUnsupportedFieldKind,
		"operation does not apply to field kind", f.Kind.String()).WithField(name)
}

// SetText writes value into a text field. Values that cannot be encoded in
// WinAnsiEncoding are rejected with an EncodingViolation error.
func (d *Document) SetText(name, value string) error {
	f, err := d.field(name, KindText)
	if err != nil {
		return err
	}

	encoded, err := text.EncodeWinAnsi(value)
	if err != nil {
		if pdfErr, ok := err.(*pdferrors.PDFError); ok {
			pdfErr.WithField(name)
		}
		return err
	}

	aps, err := d.textAppearances(f, encoded)
	if err != nil {
		return err
	}

	f.dict["V"] = textObject(value)
	for i, w := range f.widgets {
		w.dict["AP"] = types.Dict{"N": aps[i]}
	}
	f.Value = value
	return nil
}

func (d *Document) textAppearances(f *Field, encoded []byte) ([]types.IndirectRef, error) {
	st := parseDA(f.da)
	aps := make([]types.IndirectRef, len(f.widgets))
	for i, w := range f.widgets {
		ref, err := d.textAppearance(w, encoded, st)
		if err != nil {
			return nil, pdferrors.WrapError(pdferrors.ErrorTypeInvalidForm,
				"failed to build appearance", err).WithField(f.Name)
		}
		aps[i] = ref
	}
	return aps, nil
}

// SetChecked checks or unchecks a check box.
func (d *Document) SetChecked(name string, checked bool) error {
	f, err := d.field(name, KindCheckBox)
	if err != nil {
		return err
	}

	type generated struct{ on, off types.IndirectRef }
	missing := make(map[*widget]generated)
	for _, w := range f.widgets {
		if len(w.states) > 0 {
			continue
		}
		on, off, err := d.checkAppearances(w)
		if err != nil {
			return pdferrors.WrapError(pdferrors.ErrorTypeInvalidForm,
				"failed to build appearance", err).WithField(name)
		}
		missing[w] = generated{on, off}
	}

	onState := "Yes"
	if len(f.widgets) > 0 && f.widgets[0].onState() != "" {
		onState = f.widgets[0].onState()
	}

	for w, ap := range missing {
		w.dict["AP"] = types.Dict{"N": types.Dict{onState: ap.on, "Off": ap.off}}
		w.states = []string{onState}
	}

	value := "Off"
	if checked {
		value = onState
	}
	f.dict["V"] = types.Name(value)
	for _, w := range f.widgets {
		state := "Off"
		if checked {
			state = w.onState()
		}
		w.dict["AS"] = types.Name(state)
	}

	if checked {
		f.Value = onState
	} else {
		f.Value = ""
	}
	if len(f.Options) == 0 {
		f.Options = []string{onState}
	}
	return nil
}

// Select picks the option of a radio group or dropdown whose normalized text
// equals the normalized value.
func (d *Document) Select(name, value string) error {
	f, err := d.field(name, KindRadioGroup, KindDropdown)
	if err != nil {
		return err
	}

	want := text.Normalize(value)
	idx := -1
	for i, opt := range f.Options {
		if text.Normalize(opt) == want {
			idx = i
			break
		}
	}
	if idx < 0 {
		return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeOptionNotFound,
			"value matches no option", fmt.Sprintf("%q", value)).WithField(name)
	}
	option := f.Options[idx]

	if f.Kind == KindRadioGroup {
		f.dict["V"] = types.Name(option)
		for _, w := range f.widgets {
			state := "Off"
			if w.hasState(option) {
				state = option
			}
			w.dict["AS"] = types.Name(state)
		}
		f.Value = option
		return nil
	}

	// display text may fall outside WinAnsi even after normalization
	encoded, err := text.EncodeWinAnsi(text.Normalize(option))
	if err != nil {
		encoded, err = text.EncodeWinAnsi(text.SanitizeASCII(text.Normalize(option)))
		if err != nil {
			return err
		}
	}
	aps, err := d.textAppearances(f, encoded)
	if err != nil {
		return err
	}

	export := option
	if idx < len(f.exports) {
		export = f.exports[idx]
	}
	f.dict["V"] = textObject(export)
	f.dict["I"] = types.Array{types.Integer(idx)}
	for i, w := range f.widgets {
		w.dict["AP"] = types.Dict{"N": aps[i]}
	}
	f.Value = export
	return nil
}
