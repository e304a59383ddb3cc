package export

import (
	"io"

	"github.com/go-pdf/fpdf"
)

// writePDF lays text out on A4 pages with 14mm margins, wrapping long
// lines and breaking pages automatically.
func writePDF(w io.Writer, text string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(true, 14)
	pdf.SetTitle("Transcription", true)
	pdf.SetCreator("media-converter", true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)

	// Core fonts are cp1252; characters outside it are replaced.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.MultiCell(0, 6, tr(text), "", "L", false)

	return pdf.Output(w)
}
