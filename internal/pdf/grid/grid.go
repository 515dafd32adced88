// Package grid draws header/row tables as static page content.
package grid

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/draw"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/joshasn/medical-form-app-sub001/internal/pdf/document"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/geometry"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/text"
)

const (
	// Inset is the horizontal padding between a cell border and its text.
	Inset = 4

	defaultRowHeight    = 20
	defaultHeaderHeight = 24
	defaultFontSize     = 10

	headerGray = 0.85
	stripeGray = 0.95
	ruleWidth  = 0.5
)

// FontNames are the page resource names of the regular and bold fonts.
type FontNames struct {
	Regular string
	Bold    string
}

// Table describes a grid anchored at its top-left corner, in top-left page
// coordinates.
type Table struct {
	Page         int        `json:"page"`
	X            float64    `json:"x"`
	Y            float64    `json:"y"`
	Width        float64    `json:"width"`
	Headers      []string   `json:"headers"`
	Rows         [][]string `json:"rows"`
	RowHeight    float64    `json:"rowHeight,omitempty"`
	HeaderHeight float64    `json:"headerHeight,omitempty"`
	FontSize     float64    `json:"fontSize,omitempty"`
	Fonts        FontNames  `json:"-"`
}

func (t Table) withDefaults() Table {
	if t.RowHeight <= 0 {
		t.RowHeight = defaultRowHeight
	}
	if t.HeaderHeight <= 0 {
		t.HeaderHeight = defaultHeaderHeight
	}
	if t.FontSize <= 0 {
		t.FontSize = defaultFontSize
	}
	if t.Fonts.Regular == "" {
		t.Fonts.Regular = "FHelv"
	}
	if t.Fonts.Bold == "" {
		t.Fonts.Bold = "FHeBo"
	}
	return t
}

// Height is the total height of the rendered grid.
func (t Table) Height() float64 {
	t = t.withDefaults()
	return t.HeaderHeight + float64(len(t.Rows))*t.RowHeight
}

// ColumnWidth splits width evenly over n columns.
func ColumnWidth(width float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return width / float64(n)
}

func num(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

var (
	ruleColor   = color.Black
	headerColor = color.SimpleColor{R: headerGray, G: headerGray, B: headerGray}
	stripeColor = color.SimpleColor{R: stripeGray, G: stripeGray, B: stripeGray}
)

// Bounds returns the native bottom-left rectangle the table occupies on page.
func Bounds(t Table, page document.Page) geometry.Rect {
	t = t.withDefaults()
	r := geometry.ToBottomLeft(geometry.Rect{
		Page:   t.Page,
		X:      t.X,
		Y:      t.Y,
		Width:  t.Width,
		Height: t.Height(),
	}, page.Height)
	r.X += page.OriginX
	r.Y += page.OriginY
	return r
}

// Render returns the content stream for t on page. Tables without headers
// render nothing.
func Render(t Table, page document.Page) []byte {
	if len(t.Headers) == 0 {
		return nil
	}
	t = t.withDefaults()

	bounds := Bounds(t, page)
	cols := len(t.Headers)
	colWidth := ColumnWidth(t.Width, cols)
	left := bounds.X
	right := left + t.Width
	top := bounds.Y + bounds.Height

	var buf bytes.Buffer
	buf.WriteString("q\n")

	headerBottom := top - t.HeaderHeight
	draw.FillRectNoBorder(&buf, types.RectForWidthAndHeight(left, headerBottom, t.Width, t.HeaderHeight), headerColor)
	for i, header := range t.Headers {
		writeCell(&buf, t.Fonts.Bold, HelveticaBold, t.FontSize, header,
			left+float64(i)*colWidth, headerBottom, colWidth, t.HeaderHeight)
	}
	separators(&buf, left, colWidth, cols, top, headerBottom)
	rule(&buf, left, headerBottom, right, headerBottom)

	for r, row := range t.Rows {
		rowTop := headerBottom - float64(r)*t.RowHeight
		rowBottom := rowTop - t.RowHeight

		band := color.White
		if r%2 == 0 {
			band = stripeColor
		}
		draw.FillRectNoBorder(&buf, types.RectForWidthAndHeight(left, rowBottom, t.Width, t.RowHeight), band)

		for i := 0; i < cols && i < len(row); i++ {
			writeCell(&buf, t.Fonts.Regular, Helvetica, t.FontSize, row[i],
				left+float64(i)*colWidth, rowBottom, colWidth, t.RowHeight)
		}

		separators(&buf, left, colWidth, cols, rowTop, rowBottom)
		rule(&buf, left, rowBottom, right, rowBottom)
	}

	draw.DrawRect(&buf, types.RectForWidthAndHeight(left, bounds.Y, t.Width, bounds.Height), ruleWidth, &ruleColor, nil)
	buf.WriteString("Q\n")
	return buf.Bytes()
}

func rule(w io.Writer, x1, y1, x2, y2 float64) {
	draw.DrawLine(w, x1, y1, x2, y2, ruleWidth, &ruleColor, nil)
}

func separators(w io.Writer, x, colWidth float64, cols int, top, bottom float64) {
	for i := 1; i < cols; i++ {
		cx := x + float64(i)*colWidth
		rule(w, cx, top, cx, bottom)
	}
}

func writeCell(w io.Writer, resource, font string, size float64, value string, x, bottom, width, height float64) {
	s := Truncate(text.Normalize(value), font, size, width-2*Inset)
	if s == "" {
		return
	}
	encoded, err := text.EncodeWinAnsi(s)
	if err != nil {
		return
	}
	baseline := bottom + (height-size*0.7)/2
	fmt.Fprintf(w, "BT\n/%s %s Tf\n0 g\n%s %s Td\n(%s) Tj\nET\n",
		resource, num(size), num(x+Inset), num(baseline), text.EscapeLiteral(encoded))
}

// Draw registers the grid fonts on the table's page and appends the rendered
// grid to the page content.
func Draw(doc *document.Document, t Table) error {
	if len(t.Headers) == 0 {
		return nil
	}
	page, err := doc.Page(t.Page)
	if err != nil {
		return err
	}

	regular, err := doc.PageFont(t.Page, Helvetica)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", Helvetica, err)
	}
	bold, err := doc.PageFont(t.Page, HelveticaBold)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", HelveticaBold, err)
	}
	t.Fonts = FontNames{Regular: regular, Bold: bold}

	return doc.AppendContent(t.Page, Render(t, page))
}
