// Package render draws the single-page consent document.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"github.com/lucasb-eyer/go-colorful"

	"consentpdf/internal/domain"
	"consentpdf/internal/fonts"
	"consentpdf/internal/layout"
)

const (
	margin       = 30.0
	headerHeight = 80.0
	valueColumn  = 140.0
	rowSpacing   = 25.0
	lineLeading  = 15.0
)

const (
	title         = "🏎️ Time2Race"
	subtitle      = "Анкета клиента / Согласие на обработку ПД"
	clientHeading = "Данные клиента"
	consentTitle  = "Согласие на обработку персональных данных"
	consentText   = "Я даю согласие на обработку моих персональных данных в соответствии с " +
		"Федеральным законом от 27.07.2006 № 152-ФЗ «О персональных данных» " +
		"для целей оказания услуг компанией Time2Race."
	signatureLine = "Подпись клиента: _______________________"
	signatureDate = "Дата: _____________"
	footerText    = "Документ сформирован автоматически системой UniBot Time2Race"
	pageLabel     = "Страница 1 из 1"
)

type rgb struct{ r, g, b int }

func mustHex(s string) rgb {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	r, g, b := c.RGB255()
	return rgb{int(r), int(g), int(b)}
}

var (
	primaryColor = mustHex("#667eea")
	textColor    = mustHex("#333333")
	grayColor    = mustHex("#666666")
	white        = mustHex("#ffffff")
)

// Renderer produces consent documents using a fixed font selection.
type Renderer struct {
	font     *fonts.Selection
	compress bool
}

// New returns a Renderer bound to sel. A nil sel means the built-in base font.
func New(sel *fonts.Selection) *Renderer {
	if sel == nil {
		sel = fonts.Fallback()
	}
	return &Renderer{font: sel, compress: true}
}

// Font returns the selection the renderer draws with.
func (r *Renderer) Font() *fonts.Selection {
	return r.font
}

// page wraps one fpdf document together with the text encoding that matches
// the active font.
type page struct {
	pdf           *fpdf.Fpdf
	family        string
	encode        func(string) string
	width, height float64
}

func (r *Renderer) newPage(created time.Time) *page {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(r.compress)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("consent-pdf", false)

	p := &page{pdf: pdf, family: r.font.Name}
	if r.font.Registered {
		pdf.AddUTF8FontFromBytes(r.font.Name, "", r.font.Data)
		p.encode = bmpOnly
	} else {
		p.encode = pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.AddPage()
	p.width, p.height = pdf.GetPageSize()
	return p
}

// bmpOnly drops runes outside the Basic Multilingual Plane; fpdf maps UTF-8
// fonts through a 16-bit CID table.
func bmpOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xFFFF {
			return -1
		}
		return r
	}, s)
}

func (p *page) font(size float64) { p.pdf.SetFont(p.family, "", size) }

func (p *page) fill(c rgb) { p.pdf.SetFillColor(c.r, c.g, c.b) }

func (p *page) color(c rgb) { p.pdf.SetTextColor(c.r, c.g, c.b) }

func (p *page) text(x, y float64, s string) { p.pdf.Text(x, y, p.encode(s)) }

func (p *page) rightText(x, y float64, s string) {
	enc := p.encode(s)
	p.pdf.Text(x-p.pdf.GetStringWidth(enc), y, enc)
}

// StringWidth measures s at the current font and size.
func (p *page) StringWidth(s string) float64 {
	return p.pdf.GetStringWidth(p.encode(s))
}

// Render draws the consent page for rec and returns the PDF bytes. Output is
// byte-identical for identical input and font selection.
func (r *Renderer) Render(rec domain.ClientRecord) (out []byte, err error) {
	// fpdf panics on some malformed font tables instead of recording an error
	defer func() {
		if v := recover(); v != nil {
			out, err = nil, fmt.Errorf("render consent %q: %v", rec.RequestID, v)
		}
	}()
	safe := r.font.SafeText

	created, ok := parseSubmittedAt(rec.SubmittedAt)
	if !ok {
		created = time.Unix(0, 0).UTC()
	}
	p := r.newPage(created)
	p.pdf.SetTitle("Consent "+rec.RequestID, true)

	// header band
	p.fill(primaryColor)
	p.pdf.Rect(0, 0, p.width, headerHeight, "F")

	p.color(white)
	p.font(24)
	p.text(margin, 50, safe(title))
	p.font(12)
	p.text(margin, 70, safe(subtitle))

	// request metadata
	p.color(textColor)
	p.font(10)
	p.rightText(p.width-margin, 50, "ID: "+rec.RequestID)
	p.rightText(p.width-margin, 65, safe("Дата: "+FormatSubmittedAt(rec.SubmittedAt)))

	// client fields
	y := 130.0
	p.font(14)
	p.color(primaryColor)
	p.text(margin, y, safe(clientHeading))

	y += 30
	fields := [][2]string{
		{safe("ФИО:"), safe(rec.FIO)},
		{safe("Телефон:"), rec.Phone},
		{"Email:", rec.Email},
		{safe("Дата рождения:"), rec.BirthDate},
	}
	p.font(11)
	for _, f := range fields {
		p.color(grayColor)
		p.text(margin, y, f[0])
		p.color(textColor)
		p.text(valueColumn, y, f[1])
		y += rowSpacing
	}

	// consent clause
	y += 30
	p.font(14)
	p.color(primaryColor)
	p.text(margin, y, safe(consentTitle))

	y += 25
	p.font(10)
	p.color(textColor)
	for _, line := range layout.Wrap(safe(consentText), p.width-2*margin, p) {
		p.text(margin, y, line)
		y += lineLeading
	}

	// signature
	y += 40
	p.font(11)
	p.color(grayColor)
	p.text(margin, y, safe(signatureLine))
	p.text(300, y, safe(signatureDate))

	// footer
	p.font(8)
	p.color(grayColor)
	p.text(margin, p.height-30, safe(footerText))
	p.rightText(p.width-margin, p.height-30, safe(pageLabel))

	var buf bytes.Buffer
	if err := p.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render consent %q: %w", rec.RequestID, err)
	}
	return buf.Bytes(), nil
}
