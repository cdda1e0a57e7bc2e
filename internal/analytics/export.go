package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Shape identifies the layout of an exported table.
type Shape string

const (
	ShapeRepairSummary     Shape = "repair_summary"
	ShapeInvoiceItemDetail Shape = "invoice_item_detail"
)

// RepairSummaryHeaders are the column titles of the repair summary export.
var RepairSummaryHeaders = []string{
	"Placa", "Marca", "Modelo", "Año", "Cliente",
	"ID Reparación", "Descripción", "Fecha Inicio", "Fecha Fin", "Costo Mano de Obra", "Mecánico", "Estado",
	"ID Factura", "Número Factura", "Fecha Factura", "Total Factura", "Tiene Ítems",
}

// InvoiceItemHeaders are the column titles of the invoice item detail export.
var InvoiceItemHeaders = []string{
	"Placa", "Marca", "Modelo", "Cliente",
	"ID Reparación", "Descripción Reparación",
	"Número Factura", "Fecha Factura", "Total Factura",
	"ID Ítem", "Descripción Ítem", "Tipo", "Precio Unitario", "Cantidad", "Subtotal",
}

// Headers returns a copy of the column titles for the shape.
func (s Shape) Headers() []string {
	switch s {
	case ShapeRepairSummary:
		return append([]string(nil), RepairSummaryHeaders...)
	case ShapeInvoiceItemDetail:
		return append([]string(nil), InvoiceItemHeaders...)
	default:
		return nil
	}
}

// FilenamePrefix returns the attachment name prefix for the shape.
func (s Shape) FilenamePrefix() string {
	switch s {
	case ShapeRepairSummary:
		return "resumen_reparaciones_"
	case ShapeInvoiceItemDetail:
		return "detalle_items_factura_"
	default:
		return "export_"
	}
}

// TableWriter turns rendered rows into a document.
type TableWriter interface {
	Write(ctx context.Context, rows [][]string, headers []string, shape Shape) ([]byte, error)
	// Extension is the file extension of produced documents, without the dot.
	Extension() string
}

// ExportWindow bounds the repairs included in an export by start time.
type ExportWindow struct {
	From *time.Time
	To   *time.Time
}

// Document is a rendered export ready for download.
type Document struct {
	Filename string
	Shape    Shape
	Rows     int
	Content  []byte
}

const filenameTimestamp = "20060102_150405"

// ErrNoWriter is returned when an export is requested without a TableWriter.
var ErrNoWriter = errors.New("analytics: table writer not configured")

// ExportRepairSummary renders one row per repair in the window.
func (s *Service) ExportRepairSummary(ctx context.Context, window ExportWindow, writer TableWriter) (Document, error) {
	details, err := s.exportDetails(ctx, window, writer)
	if err != nil {
		return Document{}, err
	}
	rows := ToRepairSummaryRows(details)
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells = append(cells, row.Cells())
	}
	return s.render(ctx, writer, ShapeRepairSummary, cells)
}

// ExportInvoiceItemDetail renders one row per invoice item in the window.
func (s *Service) ExportInvoiceItemDetail(ctx context.Context, window ExportWindow, writer TableWriter) (Document, error) {
	details, err := s.exportDetails(ctx, window, writer)
	if err != nil {
		return Document{}, err
	}
	rows := ToInvoiceItemDetailRows(details)
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells = append(cells, row.Cells())
	}
	return s.render(ctx, writer, ShapeInvoiceItemDetail, cells)
}

// Export dispatches on shape.
func (s *Service) Export(ctx context.Context, shape Shape, window ExportWindow, writer TableWriter) (Document, error) {
	switch shape {
	case ShapeRepairSummary:
		return s.ExportRepairSummary(ctx, window, writer)
	case ShapeInvoiceItemDetail:
		return s.ExportInvoiceItemDetail(ctx, window, writer)
	default:
		return Document{}, fmt.Errorf("analytics: unknown export shape %q", shape)
	}
}

// exportDetails resolves the detail view with date bounds only; plate, brand
// and client filters belong to the interactive view.
func (s *Service) exportDetails(ctx context.Context, window ExportWindow, writer TableWriter) ([]VehicleDetail, error) {
	if writer == nil {
		return nil, ErrNoWriter
	}
	return s.GetVehicleRepairInvoiceDetails(ctx, VehicleDetailFilter{From: window.From, To: window.To})
}

func (s *Service) render(ctx context.Context, writer TableWriter, shape Shape, cells [][]string) (Document, error) {
	content, err := writer.Write(ctx, cells, shape.Headers(), shape)
	if err != nil {
		return Document{}, fmt.Errorf("analytics: write %s table: %w", shape, err)
	}
	return Document{
		Filename: s.filename(shape, writer.Extension()),
		Shape:    shape,
		Rows:     len(cells),
		Content:  content,
	}, nil
}

func (s *Service) filename(shape Shape, ext string) string {
	name := shape.FilenamePrefix() + s.now().Format(filenameTimestamp)
	if ext = strings.TrimPrefix(strings.TrimSpace(ext), "."); ext != "" {
		name += "." + ext
	}
	return name
}
