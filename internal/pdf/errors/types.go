package errors

import (
	stderrors "errors"
	"fmt"
)

// PDFError describes a problem found while loading a document or reconciling a
// single field with external data.
type PDFError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context,omitempty"`
	Field       string    `json:"field,omitempty"`
	Key         string    `json:"key,omitempty"`
	Offset      int       `json:"offset,omitempty"`
	Recoverable bool      `json:"recoverable"`
	Err         error     `json:"-"`
}

// ErrorType represents the categories of problems the engine reports
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeDocumentLoad
	ErrorTypeDocumentClosed
	ErrorTypeFieldResolutionMiss
	ErrorTypeEncodingViolation
	ErrorTypeUnsupportedFieldKind
	ErrorTypeOptionNotFound
	ErrorTypeFieldAlreadyFilled
	ErrorTypeValidation
	ErrorTypeInvalidForm
	ErrorTypeMalformedPage
	ErrorTypeSecurityRestriction
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// ErrDocumentClosed is the errors.Is target for operations on a document that
// has already been serialized. Operations return fresh values from
// NewDocumentClosedError; the sentinel itself is never returned or annotated.
var ErrDocumentClosed = &PDFError{
	Type:    ErrorTypeDocumentClosed,
	Message: "document already saved",
}

// NewDocumentClosedError returns a new error matching ErrDocumentClosed.
func NewDocumentClosedError() *PDFError {
	return NewPDFError(ErrorTypeDocumentClosed, ErrDocumentClosed.Message)
}

// Error implements the error interface
func (e *PDFError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %q)", e.Field)
	}
	if e.Context != "" {
		msg += ": " + e.Context
	}
	return msg
}

// Unwrap returns the underlying cause, if any
func (e *PDFError) Unwrap() error {
	return e.Err
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeDocumentLoad:
		return "DOCUMENT_LOAD"
	case ErrorTypeDocumentClosed:
		return "DOCUMENT_CLOSED"
	case ErrorTypeFieldResolutionMiss:
		return "FIELD_RESOLUTION_MISS"
	case ErrorTypeEncodingViolation:
		return "ENCODING_VIOLATION"
	case ErrorTypeUnsupportedFieldKind:
		return "UNSUPPORTED_FIELD_KIND"
	case ErrorTypeOptionNotFound:
		return "OPTION_NOT_FOUND"
	case ErrorTypeFieldAlreadyFilled:
		return "FIELD_ALREADY_FILLED"
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeInvalidForm:
		return "INVALID_FORM"
	case ErrorTypeMalformedPage:
		return "MALFORMED_PAGE"
	case ErrorTypeSecurityRestriction:
		return "SECURITY_RESTRICTION"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the type by name in JSON output
func (et ErrorType) MarshalText() ([]byte, error) {
	return []byte(et.String()), nil
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeDocumentLoad, ErrorTypeDocumentClosed:
		return SeverityFatal
	case ErrorTypeSecurityRestriction, ErrorTypeInvalidForm, ErrorTypeMalformedPage:
		return SeverityError
	case ErrorTypeEncodingViolation, ErrorTypeValidation:
		return SeverityWarning
	case ErrorTypeFieldResolutionMiss, ErrorTypeUnsupportedFieldKind,
		ErrorTypeOptionNotFound, ErrorTypeFieldAlreadyFilled:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// IsRecoverable reports whether a batch may continue past an error of this type
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypeDocumentLoad, ErrorTypeDocumentClosed, ErrorTypeSecurityRestriction:
		return false
	case ErrorTypeUnknown:
		return false
	default:
		return true
	}
}

// NewPDFError creates a new PDFError
func NewPDFError(errorType ErrorType, message string) *PDFError {
	return &PDFError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
	}
}

// NewPDFErrorWithContext creates a new PDFError with additional context
func NewPDFErrorWithContext(errorType ErrorType, message, context string) *PDFError {
	e := NewPDFError(errorType, message)
	e.Context = context
	return e
}

// WrapError wraps a standard error as a PDFError
func WrapError(errorType ErrorType, message string, err error) *PDFError {
	e := NewPDFError(errorType, message)
	e.Err = err
	if err != nil {
		e.Context = err.Error()
	}
	return e
}

// WithContext adds context to an existing PDFError
func (e *PDFError) WithContext(context string) *PDFError {
	e.Context = context
	return e
}

// WithField records the document field the error concerns
func (e *PDFError) WithField(name string) *PDFError {
	e.Field = name
	return e
}

// WithKey records the data key the error concerns
func (e *PDFError) WithKey(key string) *PDFError {
	e.Key = key
	return e
}

// WithOffset records a byte or rune offset inside the offending value
func (e *PDFError) WithOffset(offset int) *PDFError {
	e.Offset = offset
	return e
}

// GetSeverity returns the severity of this specific error
func (e *PDFError) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// IsCritical returns true if this error is fatal
func (e *PDFError) IsCritical() bool {
	return e.GetSeverity() == SeverityFatal
}

// Is lets errors.Is match on the error type, so ErrDocumentClosed matches any
// closed-document error.
func (e *PDFError) Is(target error) bool {
	t, ok := target.(*PDFError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// IsType reports whether err, or anything it wraps, is a PDFError of the given type
func IsType(err error, errorType ErrorType) bool {
	var pdfErr *PDFError
	if !stderrors.As(err, &pdfErr) {
		return false
	}
	return pdfErr.Type == errorType
}

// ErrorCollection manages multiple PDF errors
type ErrorCollection struct {
	Errors   []*PDFError `json:"errors"`
	Warnings []*PDFError `json:"warnings"`
}

// NewErrorCollection creates a new error collection
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		Errors:   make([]*PDFError, 0),
		Warnings: make([]*PDFError, 0),
	}
}

// Add adds an error to the appropriate collection based on severity
func (ec *ErrorCollection) Add(err *PDFError) {
	if err == nil {
		return
	}
	severity := err.GetSeverity()
	if severity == SeverityWarning || severity == SeverityInfo {
		ec.Warnings = append(ec.Warnings, err)
	} else {
		ec.Errors = append(ec.Errors, err)
	}
}

// ForKey returns every collected problem recorded against a data key, in order
func (ec *ErrorCollection) ForKey(key string) []*PDFError {
	var out []*PDFError
	for _, list := range [][]*PDFError{ec.Errors, ec.Warnings} {
		for _, err := range list {
			if err.Key == key {
				out = append(out, err)
			}
		}
	}
	return out
}

// HasCriticalErrors returns true if any fatal errors exist
func (ec *ErrorCollection) HasCriticalErrors() bool {
	for _, err := range ec.Errors {
		if err.IsCritical() {
			return true
		}
	}
	return false
}

// Count returns the total number of errors and warnings
func (ec *ErrorCollection) Count() (errors, warnings int) {
	return len(ec.Errors), len(ec.Warnings)
}

// Summary returns a text summary of all errors and warnings
func (ec *ErrorCollection) Summary() string {
	errorCount, warningCount := ec.Count()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}

	summary := fmt.Sprintf("Found %d error(s) and %d warning(s)", errorCount, warningCount)

	if ec.HasCriticalErrors() {
		summary += " (including critical errors)"
	}

	return summary
}
