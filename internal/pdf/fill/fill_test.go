package fill

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshasn/medical-form-app-sub001/internal/formdata"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/document"
	pdferrors "github.com/joshasn/medical-form-app-sub001/internal/pdf/errors"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/match"
	"github.com/joshasn/medical-form-app-sub001/internal/testsupport"
)

func fieldValues(t *testing.T, data []byte) map[string]string {
	t.Helper()
	doc, err := document.Load(data)
	require.NoError(t, err)
	values := make(map[string]string)
	for _, f := range doc.Fields() {
		values[f.Name] = f.Value
	}
	return values
}

func TestFillPartialFailure(t *testing.T) {
	rec := formdata.Record{
		{Key: "firstName", Value: "Jane"},
		{Key: "shoeSize", Value: 42},
		{Key: "last_name", Value: "São Paulo"},
		{Key: "phone", Value: 5551234},
	}

	data, out, err := New(Options{}).FillBytes(testsupport.IntakePDF(), rec)
	require.NoError(t, err)

	assert.Equal(t, 3, out.FilledCount)
	assert.Equal(t, []string{"shoeSize"}, out.Unresolved)
	assert.Empty(t, out.Recovered)
	assert.Equal(t, []Resolution{
		{Key: "firstName", Field: "firstName", Kind: document.KindText, Tier: match.TierExact},
		{Key: "last_name", Field: "lastName", Kind: document.KindText, Tier: match.TierNormalized},
		{Key: "phone", Field: "phone", Kind: document.KindText, Tier: match.TierExact},
	}, out.Resolved)

	diags := out.Diagnostics.ForKey("shoeSize")
	require.Len(t, diags, 1)
	assert.Equal(t, pdferrors.ErrorTypeFieldResolutionMiss, diags[0].Type)

	values := fieldValues(t, data)
	assert.Equal(t, "Jane", values["firstName"])
	assert.Equal(t, "Sao Paulo", values["lastName"])
	assert.Equal(t, "5551234", values["phone"])
}

func TestFillCheckBox(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{true, "Yes"},
		{"Yes", "Yes"},
		{"yes", "Yes"},
		{"true", "Yes"},
		{1, "Yes"},
		{false, ""},
		{"no", ""},
		{"Y", ""},
	}

	for _, tt := range tests {
		data, out, err := New(Options{}).FillBytes(testsupport.IntakePDF(), formdata.Record{{Key: "consent", Value: tt.value}})
		require.NoError(t, err)
		assert.Equal(t, 1, out.FilledCount, "value %v", tt.value)
		assert.Equal(t, tt.want, fieldValues(t, data)["consent"], "value %v", tt.value)
	}
}

func TestFillSelections(t *testing.T) {
	rec := formdata.Record{
		{Key: "gender", Value: "Female"},
		{Key: "state", Value: "São Paulo"},
	}
	data, out, err := New(Options{}).FillBytes(testsupport.IntakePDF(), rec)
	require.NoError(t, err)
	assert.Equal(t, 2, out.FilledCount)

	values := fieldValues(t, data)
	assert.Equal(t, "Female", values["gender"])
	assert.Equal(t, "Sao Paulo", values["state"])
}

func TestFillMissingOptionAndUnsupportedKind(t *testing.T) {
	rec := formdata.Record{
		{Key: "gender", Value: "Other"},
		{Key: "submit", Value: "now"},
		{Key: "dob", Value: "1990-01-01"},
	}
	_, out, err := New(Options{}).FillBytes(testsupport.IntakePDF(), rec)
	require.NoError(t, err)

	assert.Equal(t, 1, out.FilledCount)
	assert.Equal(t, []string{"gender", "submit"}, out.Unresolved)
	assert.Equal(t, pdferrors.ErrorTypeOptionNotFound, out.Diagnostics.ForKey("gender")[0].Type)
	assert.Equal(t, pdferrors.ErrorTypeUnsupportedFieldKind, out.Diagnostics.ForKey("submit")[0].Type)
}

func TestFillWritesEachFieldOnce(t *testing.T) {
	rec := formdata.Record{
		{Key: "firstName", Value: "A"},
		{Key: "first_name", Value: "B"},
	}
	data, out, err := New(Options{}).FillBytes(testsupport.IntakePDF(), rec)
	require.NoError(t, err)

	assert.Equal(t, 1, out.FilledCount)
	assert.Equal(t, []string{"first_name"}, out.Unresolved)
	assert.Equal(t, pdferrors.ErrorTypeFieldAlreadyFilled, out.Diagnostics.ForKey("first_name")[0].Type)
	assert.Equal(t, "A", fieldValues(t, data)["firstName"])
}

func TestFillSkipsEmptyValues(t *testing.T) {
	rec := formdata.Record{
		{Key: "dob", Value: ""},
		{Key: "phone", Value: nil},
		{Key: "unknownKey", Value: ""},
	}
	_, out, err := New(Options{}).FillBytes(testsupport.IntakePDF(), rec)
	require.NoError(t, err)

	assert.Zero(t, out.FilledCount)
	assert.Empty(t, out.Resolved)
	assert.Empty(t, out.Unresolved)
}

func TestFillRecoversFromEncodingViolation(t *testing.T) {
	passThrough := func(s string) string { return s }
	rec := formdata.Record{{Key: "firstName", Value: "Zoë 日本"}}

	data, out, err := New(Options{Normalize: passThrough}).FillBytes(testsupport.IntakePDF(), rec)
	require.NoError(t, err)

	assert.Equal(t, 1, out.FilledCount)
	assert.Equal(t, []string{"firstName"}, out.Recovered)
	assert.Empty(t, out.Unresolved)
	assert.Equal(t, pdferrors.ErrorTypeEncodingViolation, out.Diagnostics.ForKey("firstName")[0].Type)
	assert.Equal(t, "Zoë ", fieldValues(t, data)["firstName"])
}

func TestFillFlatten(t *testing.T) {
	rec := formdata.Record{
		{Key: "firstName", Value: "Jane"},
		{Key: "consent", Value: true},
	}
	data, out, err := New(Options{Flatten: true}).FillBytes(testsupport.IntakePDF(), rec)
	require.NoError(t, err)
	assert.Equal(t, 2, out.FilledCount)

	doc, err := document.Load(data)
	require.NoError(t, err)
	assert.Empty(t, doc.Fields())
}

func TestFillClosedDocument(t *testing.T) {
	doc, err := document.Load(testsupport.IntakePDF())
	require.NoError(t, err)
	_, err = doc.Bytes()
	require.NoError(t, err)

	_, _, err = New(Options{}).Fill(doc, formdata.Record{{Key: "firstName", Value: "x"}})
	assert.ErrorIs(t, err, pdferrors.ErrDocumentClosed)
}

func TestFillBytesRejectsInvalidDocument(t *testing.T) {
	_, out, err := New(Options{}).FillBytes([]byte("nope"), formdata.Record{})
	assert.Nil(t, out)
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeDocumentLoad))
}

func TestFillLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	doc, err := document.Load(testsupport.IntakePDF())
	require.NoError(t, err)
	out := New(Options{Logger: logger}).Apply(doc, formdata.Record{
		{Key: "firstName", Value: "Jane"},
		{Key: "zzz", Value: "x"},
	})

	assert.Equal(t, 1, out.FilledCount)
	assert.Contains(t, buf.String(), "fill: firstName -> firstName (exact)")
	assert.Contains(t, buf.String(), "fill: zzz unresolved")
}
