package callsheet

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

const printCSS = `body{font-family:Helvetica,Arial,sans-serif;font-size:10pt;margin:0.5in;color:#000}
h1{font-size:16pt;margin:0 0 6px}h2{font-size:12pt;margin:16px 0 6px}
.head{display:grid;grid-template-columns:200px 210px 1fr;gap:12px}
table{width:100%;border-collapse:collapse}th{font-size:9pt;text-align:left}
td,th{padding:2px 4px;vertical-align:top;border-bottom:1px solid #ddd}
.label{font-weight:bold;font-size:9pt}.contacts{display:grid;grid-template-columns:1fr 1fr;gap:6px 12px}
@media print{@page{size:letter;margin:0.5in}body{margin:0}}`

// Print renders the sheet as a standalone printable HTML page.
func Print(s Sheet) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		renderPrint(&buf, s)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func esc(s string) string { return html.EscapeString(s) }

func renderPrint(buf *bytes.Buffer, s Sheet) {
	fmt.Fprintf(buf, `<!doctype html><html><head><meta charset="utf-8"><title>Call sheet - %s</title><style>%s</style></head><body>`,
		esc(s.Title), printCSS)

	buf.WriteString(`<section class="head"><div>`)
	fmt.Fprintf(buf, `<h2>%s</h2><div class="label">PRODUCTION OFFICE</div><p>%s</p>`, esc(s.Company), esc(s.Address))
	writeKVs(buf, s.Office)
	fmt.Fprintf(buf, `</div><div><h1>%s</h1><ul>`, esc(s.Title))
	for _, a := range s.Advisories {
		fmt.Fprintf(buf, `<li><strong>%s</strong></li>`, esc(a))
	}
	buf.WriteString(`</ul></div><div>`)
	writeKVs(buf, s.Times)
	fmt.Fprintf(buf, `<p><small>%s</small></p>`, esc(s.Weather))
	writeKVs(buf, s.Meals)
	buf.WriteString(`</div></section>`)

	writeTable(buf, s.Schedule)
	buf.WriteString(`<h2>LOCATION / NOTES</h2>`)
	for _, kv := range s.Locations {
		writeBlock(buf, kv.Label, kv.Value)
	}
	fmt.Fprintf(buf, `<p>TOTAL PAGES: %s</p>`, esc(s.TotalPages))

	writeTable(buf, s.Cast)
	writeTable(buf, s.Atmosphere)
	writeBlock(buf, "NOTES", s.Notes)
	writeBlock(buf, "CURRENT PAPERWORK", s.Paperwork)
	writeTable(buf, s.Advanced)

	buf.WriteString(`<h2>KEY CONTACTS &amp; SAFETY</h2><div class="contacts">`)
	for _, kv := range s.Contacts {
		fmt.Fprintf(buf, `<div><div class="label">%s</div>%s</div>`, esc(kv.Label), esc(kv.Value))
	}
	buf.WriteString(`</div>`)
	for _, kv := range s.Safety {
		writeBlock(buf, kv.Label, kv.Value)
	}
	for _, line := range s.Hotlines {
		fmt.Fprintf(buf, `<p>%s</p>`, esc(line))
	}

	buf.WriteString(`<h2>CREW (summary)</h2>`)
	for _, line := range s.Crew {
		fmt.Fprintf(buf, `<div>%s</div>`, esc(line))
	}
	buf.WriteString(`</body></html>`)
}

func writeKVs(buf *bytes.Buffer, kvs []KV) {
	for _, kv := range kvs {
		fmt.Fprintf(buf, `<div><span class="label">%s</span> %s</div>`, esc(kv.Label), esc(kv.Value))
	}
}

func writeBlock(buf *bytes.Buffer, label, text string) {
	fmt.Fprintf(buf, `<div class="label">%s</div><p>%s</p>`, esc(label), esc(text))
}

func writeTable(buf *bytes.Buffer, t Table) {
	fmt.Fprintf(buf, `<h2>%s</h2><table><thead><tr>`, esc(t.Title))
	for _, h := range t.Headers {
		fmt.Fprintf(buf, `<th>%s</th>`, esc(h))
	}
	buf.WriteString(`</tr></thead><tbody>`)
	for _, row := range t.Rows {
		buf.WriteString(`<tr>`)
		for _, cell := range row {
			fmt.Fprintf(buf, `<td>%s</td>`, esc(cell))
		}
		buf.WriteString(`</tr>`)
	}
	buf.WriteString(`</tbody></table>`)
}
