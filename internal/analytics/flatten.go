package analytics

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallercar/tallercar/internal/workshop"
)

// RepairSummaryRow is one line of the repair summary export.
type RepairSummaryRow struct {
	VehicleLicensePlate string
	VehicleBrand        string
	VehicleModel        string
	VehicleYear         int
	ClientName          string
	RepairID            int64
	RepairDescription   string
	RepairStartTime     time.Time
	RepairEndTime       *time.Time
	RepairLaborCost     decimal.Decimal
	MechanicName        string
	RepairStatus        workshop.RepairStatus
	InvoiceID           *int64
	InvoiceNumber       string
	InvoiceIssueDate    *time.Time
	InvoiceTotalAmount  decimal.Decimal
	HasInvoiceItems     bool
}

// InvoiceItemRow is one line of the invoice item detail export.
type InvoiceItemRow struct {
	VehicleLicensePlate string
	VehicleBrand        string
	VehicleModel        string
	ClientName          string
	RepairID            int64
	RepairDescription   string
	InvoiceNumber       string
	InvoiceIssueDate    time.Time
	InvoiceTotalAmount  decimal.Decimal
	ItemID              int64
	ItemDescription     string
	ItemType            workshop.ItemType
	ItemUnitPrice       decimal.Decimal
	ItemQuantity        int
	ItemSubtotal        decimal.Decimal
}

// ToRepairSummaryRows emits exactly one row per repair. Repairs without an
// invoice get a nil invoice id, a zero total and HasInvoiceItems false.
func ToRepairSummaryRows(vehicles []VehicleDetail) []RepairSummaryRow {
	rows := make([]RepairSummaryRow, 0, countRepairs(vehicles))
	for _, vehicle := range vehicles {
		for _, repair := range vehicle.Repairs {
			row := RepairSummaryRow{
				VehicleLicensePlate: vehicle.LicensePlate,
				VehicleBrand:        vehicle.Brand,
				VehicleModel:        vehicle.Model,
				VehicleYear:         vehicle.Year,
				ClientName:          vehicle.ClientName,
				RepairID:            repair.ID,
				RepairDescription:   repair.Description,
				RepairStartTime:     repair.StartTime,
				RepairEndTime:       copyTime(repair.EndTime),
				RepairLaborCost:     repair.LaborCost,
				MechanicName:        repair.MechanicName,
				RepairStatus:        repair.Status,
				InvoiceTotalAmount:  decimal.Zero,
			}
			if invoice := repair.Invoice; invoice != nil {
				id := invoice.ID
				issued := invoice.IssueDate
				row.InvoiceID = &id
				row.InvoiceNumber = invoice.InvoiceNumber
				row.InvoiceIssueDate = &issued
				row.InvoiceTotalAmount = invoice.TotalAmount
				row.HasInvoiceItems = len(invoice.Items) > 0
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// ToInvoiceItemDetailRows emits one row per invoice item. Repairs without an
// invoice, or with an empty one, contribute nothing.
func ToInvoiceItemDetailRows(vehicles []VehicleDetail) []InvoiceItemRow {
	rows := make([]InvoiceItemRow, 0)
	for _, vehicle := range vehicles {
		for _, repair := range vehicle.Repairs {
			if repair.Invoice == nil {
				continue
			}
			invoice := repair.Invoice
			for _, item := range invoice.Items {
				rows = append(rows, InvoiceItemRow{
					VehicleLicensePlate: vehicle.LicensePlate,
					VehicleBrand:        vehicle.Brand,
					VehicleModel:        vehicle.Model,
					ClientName:          vehicle.ClientName,
					RepairID:            repair.ID,
					RepairDescription:   repair.Description,
					InvoiceNumber:       invoice.InvoiceNumber,
					InvoiceIssueDate:    invoice.IssueDate,
					InvoiceTotalAmount:  invoice.TotalAmount,
					ItemID:              item.ID,
					ItemDescription:     item.Description,
					ItemType:            item.ItemType,
					ItemUnitPrice:       item.UnitPrice,
					ItemQuantity:        item.Quantity,
					ItemSubtotal:        item.Subtotal,
				})
			}
		}
	}
	return rows
}

func countRepairs(vehicles []VehicleDetail) int {
	n := 0
	for _, vehicle := range vehicles {
		n += len(vehicle.Repairs)
	}
	return n
}

const cellTimeLayout = "2006-01-02 15:04:05"

// Cells renders the row in RepairSummaryHeaders order.
func (r RepairSummaryRow) Cells() []string {
	invoiceID := ""
	if r.InvoiceID != nil {
		invoiceID = formatID(*r.InvoiceID)
	}
	return []string{
		r.VehicleLicensePlate,
		r.VehicleBrand,
		r.VehicleModel,
		strconv.Itoa(r.VehicleYear),
		r.ClientName,
		formatID(r.RepairID),
		r.RepairDescription,
		r.RepairStartTime.Format(cellTimeLayout),
		formatOptionalTime(r.RepairEndTime),
		formatMoney(r.RepairLaborCost),
		r.MechanicName,
		string(r.RepairStatus),
		invoiceID,
		r.InvoiceNumber,
		formatOptionalTime(r.InvoiceIssueDate),
		formatMoney(r.InvoiceTotalAmount),
		formatBool(r.HasInvoiceItems),
	}
}

// Cells renders the row in InvoiceItemHeaders order.
func (r InvoiceItemRow) Cells() []string {
	return []string{
		r.VehicleLicensePlate,
		r.VehicleBrand,
		r.VehicleModel,
		r.ClientName,
		formatID(r.RepairID),
		r.RepairDescription,
		r.InvoiceNumber,
		r.InvoiceIssueDate.Format(cellTimeLayout),
		formatMoney(r.InvoiceTotalAmount),
		formatID(r.ItemID),
		r.ItemDescription,
		string(r.ItemType),
		formatMoney(r.ItemUnitPrice),
		strconv.Itoa(r.ItemQuantity),
		formatMoney(r.ItemSubtotal),
	}
}

func formatID(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatMoney(v decimal.Decimal) string {
	return v.StringFixed(2)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(cellTimeLayout)
}

func formatBool(v bool) string {
	if v {
		return "Sí"
	}
	return "No"
}
