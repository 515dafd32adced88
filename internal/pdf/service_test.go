package pdf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshasn/medical-form-app-sub001/internal/formdata"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/document"
	pdferrors "github.com/joshasn/medical-form-app-sub001/internal/pdf/errors"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/grid"
	"github.com/joshasn/medical-form-app-sub001/internal/template"
	"github.com/joshasn/medical-form-app-sub001/internal/testsupport"
)

// newTestService returns a service rooted at a directory holding intake.pdf
func newTestService(t *testing.T, opts Options) (*Service, string) {
	t.Helper()

	path := testsupport.WriteFixture(t, "intake.pdf", testsupport.IntakePDF())
	opts.Directory = filepath.Dir(path)
	if opts.MaxFileSize == 0 {
		opts.MaxFileSize = 10 * 1024 * 1024
	}

	svc, err := NewService(opts)
	require.NoError(t, err)
	return svc, opts.Directory
}

func reload(t *testing.T, path string) *document.Document {
	t.Helper()
	doc, err := document.LoadFile(path)
	require.NoError(t, err)
	return doc
}

func boolPtr(b bool) *bool { return &b }

func TestNewService(t *testing.T) {
	_, err := NewService(Options{MaxFileSize: 1024})
	assert.Error(t, err, "empty directory")

	for _, size := range []int64{0, -1, 2 * 1024 * 1024 * 1024} {
		_, err := NewService(Options{MaxFileSize: size, Directory: t.TempDir()})
		assert.Error(t, err, "max file size %d", size)
	}

	svc, err := NewService(Options{MaxFileSize: 1024, Directory: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, int64(1024), svc.GetMaxFileSize())
	assert.NotNil(t, svc.templates, "memory store by default")
}

func TestService_DiscoverFields(t *testing.T) {
	svc, dir := newTestService(t, Options{})

	result, err := svc.DiscoverFields(DiscoverFieldsRequest{Path: "intake.pdf"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "intake.pdf"), result.Path)
	assert.Equal(t, 1, result.PageCount)
	require.Len(t, result.Pages, 1)
	assert.Equal(t, 612.0, result.Pages[0].Width)

	names := make([]string, len(result.Fields))
	for i, f := range result.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"firstName", "lastName", "dob", "phone", "consent", "gender", "state", "submit"}, names)
}

func TestService_DiscoverFieldsRestrictions(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	outside := testsupport.WriteFixture(t, "other.pdf", testsupport.IntakePDF())

	_, err := svc.DiscoverFields(DiscoverFieldsRequest{Path: outside})
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeSecurityRestriction), "got %v", err)

	_, err = svc.DiscoverFields(DiscoverFieldsRequest{Path: "../other.pdf"})
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeSecurityRestriction), "got %v", err)

	small, _ := newTestService(t, Options{MaxFileSize: 100})
	_, err = small.DiscoverFields(DiscoverFieldsRequest{Path: "intake.pdf"})
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeSecurityRestriction), "got %v", err)
}

func TestService_FillForm(t *testing.T) {
	svc, dir := newTestService(t, Options{})

	result, err := svc.FillForm(FillFormRequest{
		Path: "intake.pdf",
		Data: `{"first_name": "Jane", "lastName": "Doe", "consent": "yes", "gender": "Female", "shoeSize": "9"}`,
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "intake_filled.pdf"), result.OutputPath)
	assert.False(t, result.Flattened)
	assert.Nil(t, result.Validation)
	require.NotNil(t, result.Outcome)
	assert.Equal(t, 4, result.Outcome.FilledCount)
	assert.Equal(t, []string{"shoeSize"}, result.Outcome.Unresolved)

	info, err := os.Stat(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, int64(result.Size), info.Size())

	doc := reload(t, result.OutputPath)
	for name, want := range map[string]string{"firstName": "Jane", "lastName": "Doe", "consent": "Yes", "gender": "Female"} {
		f, ok := doc.Field(name)
		require.True(t, ok, name)
		assert.Equal(t, want, f.Value, name)
	}
}

func TestService_FillFormFlatten(t *testing.T) {
	svc, dir := newTestService(t, Options{Flatten: true})

	result, err := svc.FillForm(FillFormRequest{
		Path:       "intake.pdf",
		Data:       "firstName: Jane\n",
		OutputPath: "flat.pdf",
	})
	require.NoError(t, err)
	assert.True(t, result.Flattened)
	assert.Empty(t, reload(t, filepath.Join(dir, "flat.pdf")).Fields())

	result, err = svc.FillForm(FillFormRequest{
		Path:       "intake.pdf",
		Data:       "firstName: Jane\n",
		OutputPath: "editable.pdf",
		Flatten:    boolPtr(false),
	})
	require.NoError(t, err)
	assert.False(t, result.Flattened)
	assert.Len(t, reload(t, result.OutputPath).Fields(), 8)
}

func TestService_FillFormDataFile(t *testing.T) {
	svc, dir := newTestService(t, Options{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jane.yaml"),
		[]byte("patient:\n  phone: 555-0100\nstate: NY\n"), 0o644))

	result, err := svc.FillForm(FillFormRequest{Path: "intake.pdf", DataPath: "jane.yaml", Validate: true})
	require.NoError(t, err)

	require.NotNil(t, result.Validation)
	assert.True(t, result.Validation.IsValid)
	assert.Equal(t, 2, result.Outcome.FilledCount)

	f, ok := reload(t, result.OutputPath).Field("state")
	require.True(t, ok)
	assert.Equal(t, "NY", f.Value)
}

func TestService_FillFormValidationBlocksWrite(t *testing.T) {
	svc, dir := newTestService(t, Options{})

	result, err := svc.FillForm(FillFormRequest{
		Path:     "intake.pdf",
		Data:     `{"visit_date": "03/04/1990"}`,
		Validate: true,
	})
	require.NoError(t, err)

	require.NotNil(t, result.Validation)
	assert.False(t, result.Validation.IsValid)
	assert.Empty(t, result.OutputPath)
	assert.Nil(t, result.Outcome)
	assert.NoFileExists(t, filepath.Join(dir, "intake_filled.pdf"))
}

func TestService_FillFormErrors(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	tests := []struct {
		name     string
		req      FillFormRequest
		wantType pdferrors.ErrorType
	}{
		{
			name:     "no data",
			req:      FillFormRequest{Path: "intake.pdf"},
			wantType: pdferrors.ErrorTypeValidation,
		},
		{
			name:     "data and data file",
			req:      FillFormRequest{Path: "intake.pdf", Data: "{}", DataPath: "jane.yaml"},
			wantType: pdferrors.ErrorTypeValidation,
		},
		{
			name:     "not an object",
			req:      FillFormRequest{Path: "intake.pdf", Data: "[1, 2]"},
			wantType: pdferrors.ErrorTypeValidation,
		},
		{
			name:     "output outside directory",
			req:      FillFormRequest{Path: "intake.pdf", Data: "{}", OutputPath: "../escape.pdf"},
			wantType: pdferrors.ErrorTypeSecurityRestriction,
		},
		{
			name:     "missing form",
			req:      FillFormRequest{Path: "nope.pdf", Data: "{}"},
			wantType: pdferrors.ErrorTypeDocumentLoad,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.FillForm(tt.req)
			require.Error(t, err)
			assert.True(t, pdferrors.IsType(err, tt.wantType), "got %v", err)
		})
	}
}

func TestService_MapData(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	result, err := svc.MapData(MapDataRequest{
		Path: "intake.pdf",
		Data: `{"first_name": "Jane", "patient": {"phone": "555-0100"}, "shoeSize": 9}`,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"firstName", "phone"}, result.Mapped.Keys())
	v, _ := result.Mapped.Get("phone")
	assert.Equal(t, "555-0100", v)
	assert.Equal(t, []string{"shoeSize"}, result.Unmapped)
}

func TestService_ValidateData(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	result, err := svc.ValidateData(ValidateDataRequest{Data: `{"dob": "1990-03-04", "contact": {"phone": "call me"}}`})
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, []formdata.ValidationError{{Key: "contact_phone", Message: "invalid phone number format"}}, result.Errors)

	_, err = svc.ValidateData(ValidateDataRequest{Data: "{"})
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeValidation), "got %v", err)
}

func TestService_DrawTable(t *testing.T) {
	svc, dir := newTestService(t, Options{})

	result, err := svc.DrawTable(DrawTableRequest{
		Path: "intake.pdf",
		Table: grid.Table{
			Page:    1,
			X:       50,
			Y:       400,
			Width:   400,
			Headers: []string{"Drug", "Dose"},
			Rows:    [][]string{{"Ibuprofen", "200 mg"}, {"Cetirizine", "10 mg"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "intake_table.pdf"), result.OutputPath)
	assert.Equal(t, 64.0, result.Height)
	assert.Len(t, reload(t, result.OutputPath).Fields(), 8, "drawing keeps the form")

	_, err = svc.DrawTable(DrawTableRequest{Path: "intake.pdf", Table: grid.Table{Page: 3, Width: 100, Headers: []string{"A"}}})
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeMalformedPage), "got %v", err)

	_, err = svc.DrawTable(DrawTableRequest{Path: "intake.pdf", Table: grid.Table{Page: 1, Width: 100}})
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeValidation), "got %v", err)
}

func TestService_Templates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, Options{Templates: template.NewMemoryStore()})

	saved, err := svc.SaveTemplate(ctx, SaveTemplateRequest{Path: "intake.pdf", Name: "Intake"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	require.Len(t, saved.Fields, 8)
	assert.Equal(t, "firstName", saved.Fields[0].Field)
	assert.Equal(t, document.KindText, saved.Fields[0].Kind)

	got, err := svc.GetTemplate(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Name, got.Name)

	list, err := svc.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteTemplate(ctx, saved.ID))
	_, err = svc.GetTemplate(ctx, saved.ID)
	assert.ErrorIs(t, err, template.ErrNotFound)

	_, err = svc.SaveTemplate(ctx, SaveTemplateRequest{Path: "intake.pdf", Name: "  "})
	assert.Error(t, err)
}
