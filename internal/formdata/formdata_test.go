package formdata

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	input := map[string]any{
		"patient": map[string]any{
			"name":    "X",
			"address": map[string]any{"city": "Lisbon", "zip": 1000},
		},
		"allergies": []any{"peanuts", "dust"},
		"active":    true,
	}

	want := Record{
		{Key: "active", Value: true},
		{Key: "allergies", Value: []any{"peanuts", "dust"}},
		{Key: "patient_address_city", Value: "Lisbon"},
		{Key: "patient_address_zip", Value: 1000},
		{Key: "patient_name", Value: "X"},
	}
	if diff := cmp.Diff(want, Flatten(input, "")); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenWithPrefixAndScalars(t *testing.T) {
	got := Flatten(map[string]any{"name": "X"}, "patient")
	if diff := cmp.Diff(Record{{Key: "patient_name", Value: "X"}}, got); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, Flatten("scalar", ""))
	assert.Empty(t, Flatten(map[string]any{"empty": map[string]any{}}, ""))
}

func TestParseDataKeepsSourceOrder(t *testing.T) {
	raw := []byte(`{"zeta": 1, "patient": {"name": "X", "dob": "1990-02-03"}, "alpha": [1, 2], "note": null}`)

	flat, original, err := ParseData(raw)
	require.NoError(t, err)

	want := Record{
		{Key: "zeta", Value: 1},
		{Key: "patient_name", Value: "X"},
		{Key: "patient_dob", Value: "1990-02-03"},
		{Key: "alpha", Value: []any{1, 2}},
		{Key: "note", Value: nil},
	}
	if diff := cmp.Diff(want, flat); diff != "" {
		t.Fatalf("parse mismatch (-want +got):\n%s", diff)
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(data))
	assert.Equal(t, `{"zeta":1,"patient":{"name":"X","dob":"1990-02-03"},"alpha":[1,2],"note":null}`, string(data))
}

func TestParseDataYAML(t *testing.T) {
	raw := []byte("patient:\n  name: Ada\n  smoker: false\nvisit_date: 2024-05-01\n")
	flat, _, err := ParseData(raw)
	require.NoError(t, err)

	want := Record{
		{Key: "patient_name", Value: "Ada"},
		{Key: "patient_smoker", Value: false},
		{Key: "visit_date", Value: "2024-05-01"},
	}
	if diff := cmp.Diff(want, flat); diff != "" {
		t.Fatalf("parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDataRejectsNonObjects(t *testing.T) {
	_, _, err := ParseData([]byte(`[1, 2, 3]`))
	assert.Error(t, err)

	_, _, err = ParseData([]byte(`{"broken": `))
	assert.Error(t, err)
}

func TestMapToFields(t *testing.T) {
	names := []string{"patient_name", "lastName", "dob"}
	input := map[string]any{
		"patient":   map[string]any{"name": "X"},
		"lastName":  "Y",
		"dob":       "1990-01-01",
		"shoeSize":  42,
		"favourite": "blue",
	}

	result := MapToFields(input, names)

	want := Record{
		{Key: "dob", Value: "1990-01-01"},
		{Key: "lastName", Value: "Y"},
		{Key: "patient_name", Value: "X"},
	}
	if diff := cmp.Diff(want, result.Mapped); diff != "" {
		t.Fatalf("mapped mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"favourite", "shoeSize"}, result.Unmapped)
	assert.Equal(t, input, result.Original)
}

func TestMapRecordOverwritesInPlace(t *testing.T) {
	rec := Record{
		{Key: "first_name", Value: "A"},
		{Key: "city", Value: "Porto"},
		{Key: "firstName", Value: "B"},
	}
	result := MapRecord(rec, []string{"firstName", "city"})

	want := Record{
		{Key: "firstName", Value: "B"},
		{Key: "city", Value: "Porto"},
	}
	if diff := cmp.Diff(want, result.Mapped); diff != "" {
		t.Fatalf("mapped mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, result.Unmapped)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		rec    Record
		errors []ValidationError
	}{
		{
			name: "valid",
			rec: Record{
				{Key: "visit_date", Value: "2024-01-31"},
				{Key: "telephone", Value: "(555) 123-4567"},
				{Key: "name", Value: "Ada"},
			},
			errors: []ValidationError{},
		},
		{
			name: "bad date and phone",
			rec: Record{
				{Key: "birthDate", Value: "31/01/2024"},
				{Key: "mobilePhone", Value: "+1 555 CALL"},
			},
			errors: []ValidationError{
				{Key: "birthDate", Message: "invalid date format, expected YYYY-MM-DD"},
				{Key: "mobilePhone", Message: "invalid phone number format"},
			},
		},
		{
			name:   "nil value",
			rec:    Record{{Key: "notes", Value: nil}},
			errors: []ValidationError{{Key: "notes", Message: "value is missing"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := append(Record(nil), tt.rec...)
			result := Validate(tt.rec)
			assert.Equal(t, len(tt.errors) == 0, result.IsValid)
			assert.Equal(t, tt.errors, result.Errors)
			assert.Equal(t, before, tt.rec)
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "42", FormatValue(42))
	assert.Equal(t, "75.25", FormatValue(75.25))
	assert.Equal(t, "100", FormatValue(100.0))
	assert.Equal(t, "a, 2, false", FormatValue([]any{"a", 2, false}))
}

func TestRecordSetAndGet(t *testing.T) {
	rec := FromMap(map[string]any{"b": 2, "a": 1})
	assert.Equal(t, []string{"a", "b"}, rec.Keys())

	rec.Set("a", 3)
	rec.Set("c", 4)
	v, ok := rec.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, []string{"a", "b", "c"}, rec.Keys())
	assert.Equal(t, map[string]any{"a": 3, "b": 2, "c": 4}, rec.Map())
}
