package render

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	family     = "Helvetica"
	textWidth  = 190.0
	bulletIndt = 20.0
)

// PDF writes title and the narrative body to w as an A4 document.
func PDF(w io.Writer, title, body string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(title, true)
	pdf.SetCreator("gradeloom", true)
	pdf.AddPage()
	// Core fonts use cp1252; this covers Spanish accents, ñ and the bullet.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(family, "B", 16)
	pdf.CellFormat(0, 12, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	for _, b := range Parse(body) {
		switch b.Kind {
		case Blank:
			pdf.Ln(5)
		case Heading:
			pdf.SetFont(family, "B", 14)
			pdf.MultiCell(textWidth, 10, tr(b.Text()), "", "L", false)
			pdf.Ln(2)
		case Subheading:
			pdf.SetFont(family, "I", 12)
			pdf.MultiCell(textWidth, 9, tr(b.Text()), "", "L", false)
			pdf.Ln(2)
		case Bullet:
			pdf.SetX(bulletIndt)
			pdf.SetFont(family, "", 12)
			pdf.Write(8, tr("• "))
			writeSpans(pdf, tr, b.Spans)
			pdf.Ln(8)
		case Paragraph:
			if len(b.Spans) == 1 && !b.Spans[0].Bold {
				pdf.SetFont(family, "", 12)
				pdf.MultiCell(textWidth, 8, tr(b.Spans[0].Text), "", "L", false)
				continue
			}
			writeSpans(pdf, tr, b.Spans)
			pdf.Ln(8)
		}
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("layout pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// Bytes renders the document into memory.
func Bytes(title, body string) ([]byte, error) {
	var buf bytes.Buffer
	if err := PDF(&buf, title, body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSpans(pdf *fpdf.Fpdf, tr func(string) string, spans []Span) {
	for _, sp := range spans {
		style := ""
		if sp.Bold {
			style = "B"
		}
		pdf.SetFont(family, style, 12)
		pdf.Write(8, tr(sp.Text))
	}
	pdf.SetFont(family, "", 12)
}
