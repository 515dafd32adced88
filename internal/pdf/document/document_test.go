package document

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/joshasn/medical-form-app-sub001/internal/pdf/errors"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/geometry"
	"github.com/joshasn/medical-form-app-sub001/internal/testsupport"
)

func loadIntake(t *testing.T) *Document {
	t.Helper()
	doc, err := Load(testsupport.IntakePDF())
	require.NoError(t, err)
	return doc
}

func reload(t *testing.T, doc *Document) *Document {
	t.Helper()
	data, err := doc.Bytes()
	require.NoError(t, err)
	again, err := Load(data)
	require.NoError(t, err)
	return again
}

func TestLoadRejectsInvalidInput(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("not a pdf at all"), []byte("%PDF-1.7\ngarbage")} {
		_, err := Load(data)
		require.Error(t, err)
		assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeDocumentLoad), "got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := testsupport.WriteFixture(t, "intake.pdf", testsupport.IntakePDF())
	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Fields(), 8)

	_, err = LoadFile(path + ".missing")
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeDocumentLoad))
}

func TestPages(t *testing.T) {
	doc, err := Load(testsupport.BuildForm(testsupport.FormSpec{Pages: 2, PageWidth: 595, PageHeight: 842}))
	require.NoError(t, err)

	pages := doc.Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, 2, doc.PageCount())
	assert.Equal(t, 2, pages[1].Number)
	assert.Equal(t, 595.0, pages[0].Width)
	assert.Equal(t, 842.0, pages[0].Height)

	_, err = doc.Page(3)
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeMalformedPage))
}

func TestOffsetMediaBox(t *testing.T) {
	doc, err := Load(testsupport.BuildForm(testsupport.FormSpec{
		Origin: [2]float64{20, 9},
		Fields: []testsupport.FieldSpec{
			{Name: "firstName", Type: testsupport.Text, Page: 1, Rect: [4]float64{120, 709, 320, 729}},
		},
	}))
	require.NoError(t, err)

	page, err := doc.Page(1)
	require.NoError(t, err)
	assert.Equal(t, 20.0, page.OriginX)
	assert.Equal(t, 9.0, page.OriginY)
	assert.Equal(t, 792.0, page.Height)

	f, ok := doc.Field("firstName")
	require.True(t, ok)
	require.NotNil(t, f.Rect)
	assert.Equal(t, geometry.Rect{Page: 1, X: 100, Y: 72, Width: 200, Height: 20}, *f.Rect)
}

func TestDiscoverFields(t *testing.T) {
	doc := loadIntake(t)

	assert.Equal(t,
		[]string{"firstName", "lastName", "dob", "phone", "consent", "gender", "state", "submit"},
		doc.FieldNames())

	kinds := map[string]Kind{}
	for _, f := range doc.Fields() {
		kinds[f.Name] = f.Kind
	}
	assert.Equal(t, map[string]Kind{
		"firstName": KindText,
		"lastName":  KindText,
		"dob":       KindText,
		"phone":     KindText,
		"consent":   KindCheckBox,
		"gender":    KindRadioGroup,
		"state":     KindDropdown,
		"submit":    KindUnsupported,
	}, kinds)

	first, ok := doc.Field("firstName")
	require.True(t, ok)
	require.NotNil(t, first.Rect)
	assert.Equal(t, geometry.Rect{Page: 1, X: 100, Y: 72, Width: 200, Height: 20}, *first.Rect)

	last, _ := doc.Field("lastName")
	assert.True(t, last.Required)
	assert.False(t, last.ReadOnly)

	gender, _ := doc.Field("gender")
	assert.Equal(t, []string{"Male", "Female"}, gender.Options)

	consent, _ := doc.Field("consent")
	assert.Equal(t, []string{"Yes"}, consent.Options)
	assert.Empty(t, consent.Value)

	state, _ := doc.Field("state")
	assert.Equal(t, []string{"CA", "NY", "Sao Paulo"}, state.Options)
}

func TestDiscoverHierarchyAndGeometry(t *testing.T) {
	data := testsupport.BuildForm(testsupport.FormSpec{
		Pages: 2,
		Fields: []testsupport.FieldSpec{
			{Name: "name", Parent: "patient", Type: testsupport.Text, Page: 2, Rect: [4]float64{50, 100, 150, 120}, Value: "Ada"},
			{Name: "orphan", Type: testsupport.Text, Page: 1, Rect: [4]float64{10, 10, 20, 20}, Unplaced: true},
			{Name: "broken", Type: testsupport.Text, Page: 1, Rect: [4]float64{30, 30, 30, 30}},
			{Name: "sig", Type: testsupport.Signature, Page: 1, Rect: [4]float64{10, 40, 90, 60}},
		},
	})
	doc, err := Load(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"patient.name", "orphan", "broken", "sig"}, doc.FieldNames())

	name, ok := doc.Field("patient.name")
	require.True(t, ok)
	assert.Equal(t, "Ada", name.Value)
	require.NotNil(t, name.Rect)
	assert.Equal(t, geometry.Rect{Page: 2, X: 50, Y: 672, Width: 100, Height: 20}, *name.Rect)

	orphan, _ := doc.Field("orphan")
	assert.Nil(t, orphan.Rect)

	sig, _ := doc.Field("sig")
	assert.Equal(t, KindUnsupported, sig.Kind)
}

func TestDiscoverWithoutAcroForm(t *testing.T) {
	doc, err := Load(testsupport.BuildForm(testsupport.FormSpec{NoAcroForm: true}))
	require.NoError(t, err)
	assert.Empty(t, doc.Fields())
	assert.Empty(t, doc.FieldNames())
}

func TestFieldsReturnsSnapshot(t *testing.T) {
	doc := loadIntake(t)
	fields := doc.Fields()
	fields[0].Rect.X = 999
	fields[5].Options[0] = "changed"

	again := doc.Fields()
	assert.Equal(t, 100.0, again[0].Rect.X)
	assert.Equal(t, "Male", again[5].Options[0])
}

func TestSetTextRoundTrip(t *testing.T) {
	doc := loadIntake(t)
	require.NoError(t, doc.SetText("firstName", "Jane (Q)"))

	f, _ := doc.Field("firstName")
	assert.Equal(t, "Jane (Q)", f.Value)

	again := reload(t, doc)
	f, _ = again.Field("firstName")
	assert.Equal(t, "Jane (Q)", f.Value)
}

func TestSetTextRejectsUnencodableValue(t *testing.T) {
	doc := loadIntake(t)
	require.NoError(t, doc.SetText("firstName", "Jane"))

	err := doc.SetText("firstName", "Ja日本")
	require.Error(t, err)
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeEncodingViolation))

	var pdfErr *pdferrors.PDFError
	require.True(t, stderrors.As(err, &pdfErr))
	assert.Equal(t, 2, pdfErr.Offset)
	assert.Equal(t, "firstName", pdfErr.Field)

	f, _ := doc.Field("firstName")
	assert.Equal(t, "Jane", f.Value)
}

func TestWritersCheckKindAndName(t *testing.T) {
	doc := loadIntake(t)

	err := doc.SetText("consent", "x")
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeUnsupportedFieldKind))

	err = doc.SetChecked("firstName", true)
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeUnsupportedFieldKind))

	err = doc.Select("nope", "x")
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeInvalidForm))
}

func TestSetChecked(t *testing.T) {
	doc := loadIntake(t)
	require.NoError(t, doc.SetChecked("consent", true))

	f, _ := doc.Field("consent")
	assert.Equal(t, "Yes", f.Value)

	again := reload(t, doc)
	f, _ = again.Field("consent")
	assert.Equal(t, "Yes", f.Value)

	require.NoError(t, again.SetChecked("consent", false))
	f, _ = again.Field("consent")
	assert.Empty(t, f.Value)
}

func TestSetCheckedWithoutAppearance(t *testing.T) {
	doc, err := Load(testsupport.BuildForm(testsupport.FormSpec{
		Fields: []testsupport.FieldSpec{
			{Name: "agree", Type: testsupport.CheckBox, Rect: [4]float64{10, 10, 22, 22}, NoAppearance: true},
		},
	}))
	require.NoError(t, err)

	require.NoError(t, doc.SetChecked("agree", true))

	again := reload(t, doc)
	f, _ := again.Field("agree")
	assert.Equal(t, "Yes", f.Value)
	assert.Equal(t, []string{"Yes"}, f.Options)
}

func TestSelect(t *testing.T) {
	doc := loadIntake(t)

	require.NoError(t, doc.Select("gender", "Female"))
	require.NoError(t, doc.Select("state", "São Paulo"))

	err := doc.Select("state", "Texas")
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeOptionNotFound))

	again := reload(t, doc)
	gender, _ := again.Field("gender")
	assert.Equal(t, "Female", gender.Value)
	state, _ := again.Field("state")
	assert.Equal(t, "Sao Paulo", state.Value)
}

func TestFreeze(t *testing.T) {
	doc := loadIntake(t)
	require.NoError(t, doc.SetText("firstName", "Jane"))
	require.NoError(t, doc.SetChecked("consent", true))
	require.NoError(t, doc.Select("gender", "Male"))

	require.NoError(t, doc.Freeze())
	assert.Empty(t, doc.Fields())

	again := reload(t, doc)
	assert.Empty(t, again.Fields())
	assert.Equal(t, 1, again.PageCount())
}

func TestClosedDocument(t *testing.T) {
	doc := loadIntake(t)
	_, err := doc.Bytes()
	require.NoError(t, err)
	assert.True(t, doc.Closed())

	assert.ErrorIs(t, doc.SetText("firstName", "x"), pdferrors.ErrDocumentClosed)
	assert.ErrorIs(t, doc.Freeze(), pdferrors.ErrDocumentClosed)
	_, err = doc.Bytes()
	assert.ErrorIs(t, err, pdferrors.ErrDocumentClosed)
	_, err = doc.PageFont(1, "Helvetica")
	assert.ErrorIs(t, err, pdferrors.ErrDocumentClosed)

	var closed *pdferrors.PDFError
	require.ErrorAs(t, doc.SetText("lastName", "y"), &closed)
	closed.WithField("lastName").WithKey("last_name")
	assert.Empty(t, pdferrors.ErrDocumentClosed.Field)
	assert.Empty(t, pdferrors.ErrDocumentClosed.Key)
}

func TestPageFontAndAppendContent(t *testing.T) {
	doc := loadIntake(t)

	helv, err := doc.PageFont(1, "Helvetica")
	require.NoError(t, err)
	again, err := doc.PageFont(1, "Helvetica")
	require.NoError(t, err)
	assert.Equal(t, helv, again)

	bold, err := doc.PageFont(1, "Helvetica-Bold")
	require.NoError(t, err)
	assert.NotEqual(t, helv, bold)

	require.NoError(t, doc.AppendContent(1, []byte("BT /"+helv+" 10 Tf 72 72 Td (hi) Tj ET\n")))
	assert.Error(t, doc.AppendContent(2, []byte("x")))

	reloaded := reload(t, doc)
	assert.Len(t, reloaded.Fields(), 8)
}

func TestParseDA(t *testing.T) {
	st := parseDA("/Helv 9 Tf 0 0 1 rg")
	assert.Equal(t, 9.0, st.size)
	assert.Equal(t, "0 0 1 rg", st.color)

	st = parseDA("")
	assert.Equal(t, 0.0, st.size)
	assert.Equal(t, "0 g", st.color)
	assert.Equal(t, 12.0, st.fontSize(40))
	assert.Equal(t, 7.0, st.fontSize(10))
	assert.Equal(t, 4.0, st.fontSize(2))
}

func TestKindText(t *testing.T) {
	for _, k := range []Kind{KindText, KindCheckBox, KindRadioGroup, KindDropdown, KindUnsupported} {
		b, err := k.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, k, ParseKind(string(b)))
	}
}
