package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tallercar/tallercar/internal/analytics"
)

// Renderer converts an HTML document into PDF bytes. *report.Client satisfies it.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// PDFWriter renders export tables through Gotenberg.
type PDFWriter struct {
	renderer Renderer
	now      func() time.Time
}

// NewPDFWriter wires a renderer into a TableWriter.
func NewPDFWriter(renderer Renderer) *PDFWriter {
	return &PDFWriter{renderer: renderer, now: time.Now}
}

// Extension implements analytics.TableWriter.
func (p *PDFWriter) Extension() string { return "pdf" }

// Write lays rows out as a landscape HTML table and converts it to PDF.
func (p *PDFWriter) Write(ctx context.Context, rows [][]string, headers []string, shape analytics.Shape) ([]byte, error) {
	if p == nil || p.renderer == nil {
		return nil, errors.New("pdf writer not initialised")
	}
	pdf, err := p.renderer.RenderHTML(ctx, buildTableHTML(shapeTitle(shape), p.now(), headers, rows))
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return pdf, nil
}

func shapeTitle(shape analytics.Shape) string {
	switch shape {
	case analytics.ShapeRepairSummary:
		return "Resumen de reparaciones"
	case analytics.ShapeInvoiceItemDetail:
		return "Detalle de ítems de factura"
	default:
		return string(shape)
	}
}

func buildTableHTML(title string, generated time.Time, headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"><style>")
	b.WriteString("@page{size:A4 landscape;margin:12mm;}body{font-family:sans-serif;font-size:9px;}h1{font-size:16px;margin:0 0 4px;}p{color:#666;margin:0 0 12px;}table{width:100%;border-collapse:collapse;}th,td{border:1px solid #ddd;padding:3px 4px;text-align:left;}th{background:#f5f5f5;}tr:nth-child(even) td{background:#fafafa;}")
	b.WriteString("</style></head><body>")
	fmt.Fprintf(&b, "<h1>%s</h1>", templateEscape(title))
	fmt.Fprintf(&b, "<p>Generado %s · %d filas</p>", generated.Format("2006-01-02 15:04:05"), len(rows))

	b.WriteString("<table><thead><tr>")
	for _, header := range headers {
		b.WriteString("<th>")
		b.WriteString(templateEscape(header))
		b.WriteString("</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>")
			b.WriteString(templateEscape(cell))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table></body></html>")
	return b.String()
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&#39;",
)

func templateEscape(v string) string {
	return htmlEscaper.Replace(v)
}
