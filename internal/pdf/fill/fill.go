// Package fill applies a data record to a document's form fields on a best
// effort basis and reports what happened to every key.
package fill

import (
	stderrors "errors"
	"fmt"
	"log"

	"github.com/joshasn/medical-form-app-sub001/internal/formdata"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/document"
	pdferrors "github.com/joshasn/medical-form-app-sub001/internal/pdf/errors"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/match"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/text"
)

// Resolution records a key that was written into a field.
type Resolution struct {
	Key   string        `json:"key"`
	Field string        `json:"field"`
	Kind  document.Kind `json:"kind"`
	Tier  match.Tier    `json:"tier"`
}

// Outcome is the complete report of one fill call.
type Outcome struct {
	FilledCount int                        `json:"filledCount"`
	Resolved    []Resolution               `json:"resolved"`
	Unresolved  []string                   `json:"unresolved"`
	Recovered   []string                   `json:"recovered"`
	Diagnostics *pdferrors.ErrorCollection `json:"diagnostics"`
}

func newOutcome() *Outcome {
	return &Outcome{
		Resolved:    []Resolution{},
		Unresolved:  []string{},
		Recovered:   []string{},
		Diagnostics: pdferrors.NewErrorCollection(),
	}
}

// Options configures a Filler.
type Options struct {
	// Flatten freezes the form after filling.
	Flatten bool
	// Normalize replaces text.Normalize for text and option values.
	Normalize func(string) string
	// Logger, when set, receives one line per key.
	Logger *log.Logger
}

// Filler writes records into documents. It holds no per-document state and
// may be shared.
type Filler struct {
	opts Options
}

// New creates a Filler.
func New(opts Options) *Filler {
	if opts.Normalize == nil {
		opts.Normalize = text.Normalize
	}
	return &Filler{opts: opts}
}

func (f *Filler) logf(format string, args ...interface{}) {
	if f.opts.Logger != nil {
		f.opts.Logger.Printf(format, args...)
	}
}

// Apply writes rec into doc in record order. Every field is written at most
// once; per-key problems end up in the outcome, never abort the batch.
func (f *Filler) Apply(doc *document.Document, rec formdata.Record) *Outcome {
	out := newOutcome()

	fields := make(map[string]document.Field)
	for _, field := range doc.Fields() {
		fields[field.Name] = field
	}
	matcher := match.NewMatcher(doc.FieldNames())
	written := make(map[string]string)

	for _, entry := range rec {
		if formdata.IsEmpty(entry.Value) {
			continue
		}

		m, ok := matcher.Resolve(entry.Key)
		if !ok {
			f.unresolved(out, entry.Key, pdferrors.NewPDFError(pdferrors.ErrorTypeFieldResolutionMiss,
				"no field matches key"))
			continue
		}

		if prev, done := written[m.Field]; done {
			f.unresolved(out, entry.Key, pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeFieldAlreadyFilled,
				"field already written", fmt.Sprintf("by key %q", prev)).WithField(m.Field))
			continue
		}

		field := fields[m.Field]
		recovered, err := f.write(doc, field, entry.Value)
		if err != nil {
			f.unresolved(out, entry.Key, asPDFError(err).WithField(field.Name))
			continue
		}

		written[m.Field] = entry.Key
		out.FilledCount++
		out.Resolved = append(out.Resolved, Resolution{Key: entry.Key, Field: field.Name, Kind: field.Kind, Tier: m.Tier})
		if recovered != nil {
			out.Recovered = append(out.Recovered, entry.Key)
			out.Diagnostics.Add(recovered.WithKey(entry.Key).WithField(field.Name))
			f.logf("fill: %s -> %s (%s, sanitized)", entry.Key, field.Name, m.Tier)
			continue
		}
		f.logf("fill: %s -> %s (%s)", entry.Key, field.Name, m.Tier)
	}

	return out
}

func (f *Filler) unresolved(out *Outcome, key string, err *pdferrors.PDFError) {
	out.Unresolved = append(out.Unresolved, key)
	out.Diagnostics.Add(err.WithKey(key))
	f.logf("fill: %s unresolved: %v", key, err)
}

// write dispatches by kind. A non-nil recovered error means the value was
// written only after sanitizing it.
func (f *Filler) write(doc *document.Document, field document.Field, value any) (recovered *pdferrors.PDFError, err error) {
	switch field.Kind {
	case document.KindText:
		s := f.opts.Normalize(formdata.FormatValue(value))
		err := doc.SetText(field.Name, s)
		if err == nil {
			return nil, nil
		}
		if !pdferrors.IsType(err, pdferrors.ErrorTypeEncodingViolation) {
			return nil, err
		}
		if retryErr := doc.SetText(field.Name, text.SanitizeASCII(s)); retryErr != nil {
			return nil, retryErr
		}
		return asPDFError(err), nil

	case document.KindCheckBox:
		return nil, doc.SetChecked(field.Name, isChecked(formdata.FormatValue(value)))

	case document.KindRadioGroup, document.KindDropdown:
		return nil, doc.Select(field.Name, f.opts.Normalize(formdata.FormatValue(value)))

	default:
		return nil, pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeUnsupportedFieldKind,
			"field kind has no writer", field.Kind.String())
	}
}

func isChecked(s string) bool {
	switch s {
	case "Yes", "yes", "true", "1":
		return true
	default:
		return false
	}
}

// asPDFError returns a copy so shared sentinel errors are never annotated.
func asPDFError(err error) *pdferrors.PDFError {
	var pdfErr *pdferrors.PDFError
	if stderrors.As(err, &pdfErr) {
		cp := *pdfErr
		return &cp
	}
	return pdferrors.WrapError(pdferrors.ErrorTypeUnknown, "write failed", err)
}

// Fill applies rec, freezes the form when configured, and serializes doc.
func (f *Filler) Fill(doc *document.Document, rec formdata.Record) ([]byte, *Outcome, error) {
	if doc.Closed() {
		return nil, nil, pdferrors.NewDocumentClosedError()
	}

	out := f.Apply(doc, rec)
	if f.opts.Flatten {
		if err := doc.Freeze(); err != nil {
			return nil, out, fmt.Errorf("failed to flatten form: %w", err)
		}
	}

	data, err := doc.Bytes()
	if err != nil {
		return nil, out, err
	}
	return data, out, nil
}

// FillBytes loads data, fills it and returns the new document bytes.
func (f *Filler) FillBytes(data []byte, rec formdata.Record) ([]byte, *Outcome, error) {
	doc, err := document.Load(data)
	if err != nil {
		return nil, nil, err
	}
	return f.Fill(doc, rec)
}
