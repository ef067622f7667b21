package compose

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// Canvas is the drawing backend a Page is applied to. Coordinates are points
// from the top-left corner of the page.
type Canvas interface {
	Image(asset string, box Box)
	// WithOpacity runs draw with the given alpha and restores the previous alpha afterwards.
	WithOpacity(alpha float64, draw func())
	Text(s string, x, y float64, align Align, font Font, gray int)
	Paragraph(s string, x, bottom, width, leading float64, font Font)
	Line(x1, y1, x2, y2 float64)
}

// pdfCanvas draws on a single fpdf page. Text is encoded as cp1252 so that the
// core fonts can print Portuguese accents.
type pdfCanvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newPDFCanvas(stamp time.Time) *pdfCanvas {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCellMargin(0)
	pdf.AddPage()
	return &pdfCanvas{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (c *pdfCanvas) setInfo(title, author string) {
	c.pdf.SetTitle(title, true)
	c.pdf.SetAuthor(author, true)
}

func (c *pdfCanvas) register(a Asset) {
	c.pdf.RegisterImageOptionsReader(a.Name, fpdf.ImageOptions{ImageType: a.Type}, bytes.NewReader(a.Data))
}

func (c *pdfCanvas) Image(asset string, box Box) {
	c.pdf.ImageOptions(asset, box.X, box.Y, box.W, box.H, false, fpdf.ImageOptions{}, 0, "")
}

func (c *pdfCanvas) WithOpacity(alpha float64, draw func()) {
	prev, mode := c.pdf.GetAlpha()
	c.pdf.SetAlpha(alpha, mode)
	draw()
	c.pdf.SetAlpha(prev, mode)
}

func (c *pdfCanvas) Text(s string, x, y float64, align Align, font Font, gray int) {
	if s == "" {
		return
	}
	c.pdf.SetFont(font.Family, "", font.Size)
	c.pdf.SetTextColor(gray, gray, gray)
	s = c.tr(s)
	switch align {
	case AlignCenter:
		x -= c.pdf.GetStringWidth(s) / 2
	case AlignRight:
		x -= c.pdf.GetStringWidth(s)
	}
	c.pdf.Text(x, y, s)
}

func (c *pdfCanvas) Paragraph(s string, x, bottom, width, leading float64, font Font) {
	c.pdf.SetFont(font.Family, "", font.Size)
	c.pdf.SetTextColor(0, 0, 0)
	s = c.tr(s)
	lines := c.pdf.SplitLines([]byte(s), width)
	c.pdf.SetXY(x, bottom-float64(len(lines))*leading)
	c.pdf.MultiCell(width, leading, s, "", "J", false)
}

func (c *pdfCanvas) Line(x1, y1, x2, y2 float64) {
	c.pdf.SetDrawColor(0, 0, 0)
	c.pdf.Line(x1, y1, x2, y2)
}

// output finalizes the document. Any error recorded while drawing surfaces here.
func (c *pdfCanvas) output() ([]byte, error) {
	if err := c.pdf.Error(); err != nil {
		return nil, err
	}
	if n := c.pdf.PageCount(); n != 1 {
		return nil, fmt.Errorf("expected a single page, got %d", n)
	}
	var buf bytes.Buffer
	if err := c.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
