// Package compose lays out a receipt page and renders it to PDF.
//
// A page is an ordered list of draw directives (absolute images, absolute
// text, a justified paragraph, a rule) applied in sequence to one Canvas.
package compose

import (
	"fmt"

	"receipt2pdf/internal/receipt"
)

// cm in PDF points.
const cm = 72 / 2.54

// Size is a page size in points.
type Size struct {
	W, H float64
}

// A4 as reported by the PDF backend in points.
var A4 = Size{W: 595.28, H: 841.89}

// Align is the horizontal anchor of a text line.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Font selects a core PDF font.
type Font struct {
	Family string
	Size   float64
}

var (
	titleFont  = Font{Family: "Times", Size: 16}
	bodyFont   = Font{Family: "Times", Size: 14}
	footerFont = Font{Family: "Times", Size: 12}
)

const (
	bodyLeading      = 20
	watermarkOpacity = 0.21
	footerGray       = 128
)

// Box is an absolute rectangle; X, Y is the top-left corner.
type Box struct {
	X, Y, W, H float64
}

// Directive is one drawing step.
type Directive interface {
	Draw(c Canvas)
}

// Image draws a registered asset. Opacity below 1 applies to this image only.
type Image struct {
	Asset   string
	Box     Box
	Opacity float64
}

func (d Image) Draw(c Canvas) {
	if d.Opacity > 0 && d.Opacity < 1 {
		c.WithOpacity(d.Opacity, func() { c.Image(d.Asset, d.Box) })
		return
	}
	c.Image(d.Asset, d.Box)
}

// Text draws one line with its baseline at Y, anchored at X according to Align.
type Text struct {
	Text  string
	X, Y  float64
	Align Align
	Font  Font
	Gray  int
}

func (d Text) Draw(c Canvas) {
	c.Text(d.Text, d.X, d.Y, d.Align, d.Font, d.Gray)
}

// Paragraph is word-wrapped and justified within Width; its last line ends at Bottom.
type Paragraph struct {
	Text    string
	X       float64
	Bottom  float64
	Width   float64
	Leading float64
	Font    Font
}

func (d Paragraph) Draw(c Canvas) {
	c.Paragraph(d.Text, d.X, d.Bottom, d.Width, d.Leading, d.Font)
}

// Rule is a straight line.
type Rule struct {
	X1, Y1, X2, Y2 float64
}

func (d Rule) Draw(c Canvas) {
	c.Line(d.X1, d.Y1, d.X2, d.Y2)
}

// Page is a fixed-size page and its directives in drawing order.
type Page struct {
	Size       Size
	Directives []Directive
}

// Draw applies every directive to c in order.
func (p Page) Draw(c Canvas) {
	for _, d := range p.Directives {
		d.Draw(c)
	}
}

// BodyText fills the receipt paragraph.
func BodyText(f receipt.Fields, practice receipt.Practice) string {
	return fmt.Sprintf("Recebemos de %s, inscrita(o) sob o CPF %s, a importância de R$%s (%s) "+
		"referente ao %s realizado no dia %s.",
		f.PayerName, f.TaxID, f.Amount, f.AmountInWords, practice.Service, f.DateNumeric)
}

// Layout builds the receipt page. The practice must have passed Validate.
func Layout(size Size, f receipt.Fields, practice receipt.Practice) Page {
	w, h := size.W, size.H
	mid := w / 2
	signerTaxID, _ := receipt.FormatTaxID(practice.SignerTaxID)
	sigLine := 13.5 * cm

	return Page{
		Size: size,
		Directives: []Directive{
			Image{Asset: AssetLogo, Box: Box{X: mid - 3.5*cm, Y: 2 * cm, W: 7 * cm, H: 2 * cm}},
			Text{Text: "RECIBO", X: mid, Y: 6 * cm, Align: AlignCenter, Font: titleFont},
			Image{
				Asset:   AssetWatermark,
				Box:     Box{X: mid - 6.3*cm, Y: h/2 - 6*cm, W: 13 * cm, H: 11.5 * cm},
				Opacity: watermarkOpacity,
			},
			Paragraph{
				Text:    BodyText(f, practice),
				X:       3 * cm,
				Bottom:  10 * cm,
				Width:   w - 6*cm,
				Leading: bodyLeading,
				Font:    bodyFont,
			},
			Text{
				Text:  fmt.Sprintf("%s, %s.", practice.Locality, f.DateInWords),
				X:     mid + 5,
				Y:     sigLine + 5,
				Align: AlignCenter,
				Font:  bodyFont,
			},
			Image{Asset: AssetSignature, Box: Box{X: mid - 4*cm, Y: sigLine + 5.7*cm, W: 9 * cm, H: 5 * cm}},
			Rule{X1: mid - 4.5*cm, Y1: sigLine + 10.2*cm, X2: mid + 4.5*cm, Y2: sigLine + 10.2*cm},
			Text{Text: practice.SignerName, X: mid, Y: sigLine + 10.8*cm, Align: AlignCenter, Font: bodyFont},
			Text{Text: "CPF: " + signerTaxID, X: mid, Y: sigLine + 11.7*cm, Align: AlignCenter, Font: bodyFont},
			Text{Text: practice.Phones, X: w - 2.5*cm, Y: h - 2.5*cm, Align: AlignRight, Font: footerFont, Gray: footerGray},
			Text{Text: practice.Address, X: w - 2.5*cm, Y: h - 2*cm, Align: AlignRight, Font: footerFont, Gray: footerGray},
		},
	}
}
