package callsheet

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/anonto42/bizgram/backend/pkg/metrics"
	"github.com/go-pdf/fpdf"
)

// Page geometry in points (Letter).
const (
	margin  = 36.0
	sizeH1  = 16.0
	sizeH2  = 12.0
	sizeB   = 10.0
	sizeS   = 9.0
	lineGap = 3.0
)

type pdfWriter struct {
	pdf          *fpdf.Fpdf
	tr           func(string) string
	y            float64
	pageW, pageH float64
}

func newPDFWriter() *pdfWriter {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.AddPage()
	w, h := pdf.GetPageSize()
	return &pdfWriter{
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		y:     margin,
		pageW: w,
		pageH: h,
	}
}

func (w *pdfWriter) contentW() float64 { return w.pageW - 2*margin }

func (w *pdfWriter) font(size float64, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	w.pdf.SetFont("Helvetica", style, size)
}

// draw prints one line whose top edge is at y.
func (w *pdfWriter) draw(s string, x, y, size float64, bold bool) {
	if s == "" {
		return
	}
	w.font(size, bold)
	w.pdf.Text(x, y+size, w.tr(s))
}

func (w *pdfWriter) width(s string, size float64, bold bool) float64 {
	w.font(size, bold)
	return w.pdf.GetStringWidth(w.tr(s))
}

// ensure starts a new page when need points do not fit.
func (w *pdfWriter) ensure(need float64) {
	if w.y+need > w.pageH-margin {
		w.pdf.AddPage()
		w.y = margin
	}
}

func (w *pdfWriter) wrap(text string, maxW, size float64, bold bool) []string {
	var lines []string
	cur := ""
	for _, word := range strings.Fields(text) {
		trial := word
		if cur != "" {
			trial = cur + " " + word
		}
		if cur != "" && w.width(trial, size, bold) > maxW {
			lines = append(lines, cur)
			cur = word
			continue
		}
		cur = trial
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

func (w *pdfWriter) paragraph(text string, x, maxW, size float64, bold bool) {
	for _, ln := range w.wrap(text, maxW, size, bold) {
		w.ensure(size + lineGap)
		w.draw(ln, x, w.y, size, bold)
		w.y += size + lineGap
	}
}

func (w *pdfWriter) labelVal(kv KV, x, colW float64) {
	w.ensure(sizeB + lineGap)
	w.draw(kv.Label, x, w.y, sizeB, true)
	lw := w.width(kv.Label, sizeB, true) + 4
	w.paragraph(kv.Value, x+lw, colW-lw, sizeB, false)
}

func (w *pdfWriter) section(title string) {
	w.ensure(sizeH2 + 8)
	w.draw(title, margin, w.y, sizeH2, true)
	w.y += sizeH2 + 6
}

func (w *pdfWriter) block(label, text string) {
	w.ensure(sizeS + 2 + sizeB + lineGap)
	w.draw(label, margin, w.y, sizeS, true)
	w.y += sizeS + 2
	w.paragraph(text, margin, w.contentW(), sizeB, false)
	w.y += 6
}

func (w *pdfWriter) table(t Table) {
	w.section(t.Title)
	xs := make([]float64, len(t.Widths))
	widths := make([]float64, len(t.Widths))
	x, used := margin, 0.0
	for _, cw := range t.Widths {
		used += cw
	}
	for i, cw := range t.Widths {
		if cw == 0 {
			cw = w.contentW() - used
		}
		xs[i], widths[i] = x, cw
		x += cw
	}

	w.ensure(sizeS + 6)
	for i, h := range t.Headers {
		w.draw(h, xs[i], w.y, sizeS, true)
	}
	w.y += sizeS + 4

	for _, row := range t.Rows {
		wrapped := w.wrap(row[t.Wrap], widths[t.Wrap]-4, sizeB, false)
		lines := len(wrapped)
		if lines == 0 {
			lines = 1
		}
		need := float64(lines) * (sizeB + lineGap)
		w.ensure(need)
		for i, cell := range row {
			if i == t.Wrap {
				continue
			}
			w.draw(cell, xs[i], w.y, sizeB, false)
		}
		yy := w.y
		for _, ln := range wrapped {
			w.draw(ln, xs[t.Wrap], yy, sizeB, false)
			yy += sizeB + lineGap
		}
		w.y += need
	}
	w.y += 8
}

func (w *pdfWriter) header(s Sheet) {
	const gap, leftW, midW = 12.0, 200.0, 210.0
	rightW := w.contentW() - leftW - midW - 2*gap
	xL := margin
	xM := xL + leftW + gap
	xR := xM + midW + gap
	top := w.y

	w.draw(s.Company, xL, w.y, sizeH2, true)
	w.y += sizeH2 + 6
	w.draw("PRODUCTION OFFICE", xL, w.y, sizeS, true)
	w.y += sizeS + 4
	w.paragraph(s.Address, xL, leftW, sizeB, false)
	for _, kv := range s.Office {
		w.labelVal(kv, xL, leftW)
	}
	bottom := w.y

	w.y = top
	w.draw(s.Title, xM, w.y, sizeH1, true)
	w.y += sizeH1 + 6
	for _, a := range s.Advisories {
		if a == "" {
			w.draw("•", xM, w.y, sizeB, true)
			w.y += sizeB + lineGap
			continue
		}
		w.paragraph("• "+a, xM, midW, sizeB, true)
	}
	if w.y > bottom {
		bottom = w.y
	}

	w.y = top
	for _, kv := range s.Times {
		w.labelVal(kv, xR, rightW)
	}
	w.y += 6
	w.paragraph(s.Weather, xR, rightW, sizeS, false)
	w.y += 8
	for _, kv := range s.Meals {
		w.labelVal(kv, xR, rightW)
	}
	if w.y > bottom {
		bottom = w.y
	}
	w.y = bottom + 12
}

func (w *pdfWriter) contacts(kvs []KV) {
	w.section("KEY CONTACTS & SAFETY")
	colW := (w.contentW() - 12) / 2
	rowH := sizeS + 2 + sizeB + 6
	for i := 0; i < len(kvs); i += 2 {
		w.ensure(rowH)
		for j := 0; j < 2 && i+j < len(kvs); j++ {
			x := margin + float64(j)*(colW+12)
			w.draw(kvs[i+j].Label, x, w.y, sizeS, true)
			w.draw(kvs[i+j].Value, x, w.y+sizeS+2, sizeB, false)
		}
		w.y += rowH
	}
	w.y += 4
}

// WritePDF renders the sheet as a Letter PDF.
func WritePDF(out io.Writer, s Sheet) error {
	start := time.Now()
	defer func() { metrics.PDFRenderDuration.Observe(time.Since(start).Seconds()) }()

	w := newPDFWriter()
	w.pdf.SetTitle("Call sheet - "+s.Title, true)
	w.pdf.SetCreator("bizgram", false)

	w.header(s)

	w.table(s.Schedule)
	w.section("LOCATION / NOTES")
	for _, kv := range s.Locations {
		w.block(kv.Label, kv.Value)
	}
	w.paragraph("TOTAL PAGES: "+s.TotalPages, margin, 200, sizeB, false)
	w.y += 6

	w.table(s.Cast)
	w.table(s.Atmosphere)
	w.block("NOTES", s.Notes)
	w.block("CURRENT PAPERWORK", s.Paperwork)
	w.table(s.Advanced)

	w.contacts(s.Contacts)
	for _, kv := range s.Safety {
		w.block(kv.Label, kv.Value)
	}
	for _, line := range s.Hotlines {
		w.ensure(sizeB + lineGap)
		w.draw(line, margin, w.y, sizeB, false)
		w.y += sizeB + 4
	}

	w.y += 10
	w.section("CREW (summary)")
	for _, line := range s.Crew {
		w.ensure(sizeB + 2)
		w.draw(line, margin, w.y, sizeB, false)
		w.y += sizeB + 2
	}

	return w.pdf.Output(out)
}

// RenderPDF returns the PDF bytes.
func RenderPDF(s Sheet) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
