package formdata

import (
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/match"
)

// MappingResult partitions flattened data into values keyed by field name
// and keys that matched no field.
type MappingResult struct {
	Mapped   Record   `json:"mapped"`
	Unmapped []string `json:"unmapped"`
	Original any      `json:"original,omitempty"`
}

// MapToFields flattens obj and resolves every key against the field names.
func MapToFields(obj any, names []string) MappingResult {
	result := MapRecord(Flatten(obj, ""), names)
	result.Original = obj
	return result
}

// MapRecord resolves every key of an already flat record. When several keys
// resolve to the same field the later value overwrites the earlier one at the
// earlier position.
func MapRecord(rec Record, names []string) MappingResult {
	matcher := match.NewMatcher(names)
	result := MappingResult{Mapped: Record{}, Unmapped: []string{}}
	for _, e := range rec {
		m, ok := matcher.Resolve(e.Key)
		if !ok {
			result.Unmapped = append(result.Unmapped, e.Key)
			continue
		}
		result.Mapped.Set(m.Field, e.Value)
	}
	return result
}
