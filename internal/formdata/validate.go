package formdata

import (
	"regexp"
	"strings"
)

var (
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	phonePattern = regexp.MustCompile(`^[\d\s\-()]+$`)
)

// ValidationError reports one rejected value.
type ValidationError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	IsValid bool              `json:"isValid"`
	Errors  []ValidationError `json:"errors"`
}

// Validate applies name-driven checks: keys containing "date" need
// YYYY-MM-DD, keys containing "phone" need digits, spaces, hyphens and
// parentheses only, and nil values are always reported.
func Validate(rec Record) ValidationResult {
	result := ValidationResult{Errors: []ValidationError{}}
	for _, e := range rec {
		if e.Value == nil {
			result.Errors = append(result.Errors, ValidationError{Key: e.Key, Message: "value is missing"})
			continue
		}

		key := strings.ToLower(e.Key)
		value := FormatValue(e.Value)
		switch {
		case strings.Contains(key, "date"):
			if !datePattern.MatchString(value) {
				result.Errors = append(result.Errors, ValidationError{Key: e.Key, Message: "invalid date format, expected YYYY-MM-DD"})
			}
		case strings.Contains(key, "phone"):
			if !phonePattern.MatchString(value) {
				result.Errors = append(result.Errors, ValidationError{Key: e.Key, Message: "invalid phone number format"})
			}
		}
	}
	result.IsValid = len(result.Errors) == 0
	return result
}
