package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/tallercar/tallercar/internal/workshop"
)

// VehicleDetailFilter narrows the detail view. Nil fields are unconstrained;
// From and To bound repair start times independently and inclusively.
type VehicleDetailFilter struct {
	From         *time.Time
	To           *time.Time
	LicensePlate *string
	Brand        *string
	ClientName   *string
}

// VehicleDetail is a vehicle with the repairs that matched the window.
type VehicleDetail struct {
	ID           int64          `json:"id"`
	LicensePlate string         `json:"licensePlate"`
	Brand        string         `json:"brand"`
	Model        string         `json:"model"`
	Year         int            `json:"year"`
	ClientName   string         `json:"clientName"`
	Repairs      []RepairDetail `json:"repairs"`
}

// RepairDetail is a repair with its invoice, when one was issued.
type RepairDetail struct {
	ID           int64                 `json:"id"`
	VehicleID    int64                 `json:"vehicleId"`
	Description  string                `json:"description"`
	StartTime    time.Time             `json:"startTime"`
	EndTime      *time.Time            `json:"endTime"`
	LaborCost    decimal.Decimal       `json:"laborCost"`
	MechanicName string                `json:"mechanicName"`
	Status       workshop.RepairStatus `json:"status"`
	Invoice      *InvoiceDetail        `json:"invoice"`
}

// InvoiceDetail is an invoice with its ordered items.
type InvoiceDetail struct {
	ID            int64               `json:"id"`
	InvoiceNumber string              `json:"invoiceNumber"`
	RepairID      *int64              `json:"repairId"`
	ClientID      int64               `json:"clientId"`
	MechanicID    int64               `json:"mechanicId"`
	IssueDate     time.Time           `json:"issueDate"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
	ClientName    string              `json:"clientName"`
	MechanicName  string              `json:"mechanicName"`
	Items         []InvoiceItemDetail `json:"invoiceItems"`
}

// InvoiceItemDetail is one invoice line.
type InvoiceItemDetail struct {
	ID          int64             `json:"id"`
	Description string            `json:"description"`
	ItemType    workshop.ItemType `json:"itemType"`
	UnitPrice   decimal.Decimal   `json:"unitPrice"`
	Quantity    int               `json:"quantity"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
}

// GetVehicleRepairInvoiceDetails builds the nested vehicle → repairs → invoice →
// items view. A vehicle failing any supplied plate, brand or client filter is
// dropped with all its repairs. A vehicle passing them is kept even when none
// of its repairs fall in the window; its repair list is then empty.
// Vehicles and repairs keep the order the repository returned them in.
func (s *Service) GetVehicleRepairInvoiceDetails(ctx context.Context, filter VehicleDetailFilter) ([]VehicleDetail, error) {
	if err := validateBounds(filter.From, filter.To); err != nil {
		return nil, err
	}
	vehicles, err := s.repo.FindVehicles(ctx, workshop.VehicleFilter{
		LicensePlateContains: filter.LicensePlate,
		BrandContains:        filter.Brand,
		ClientNameContains:   filter.ClientName,
	})
	if err != nil {
		return nil, fmt.Errorf("analytics: load vehicles: %w", err)
	}

	details := make([]VehicleDetail, 0, len(vehicles))
	for _, vehicle := range vehicles {
		if !containsFold(vehicle.LicensePlate, filter.LicensePlate) ||
			!containsFold(vehicle.Brand, filter.Brand) ||
			!containsFold(vehicle.ClientName, filter.ClientName) {
			continue
		}
		details = append(details, buildVehicleDetail(vehicle, filter.From, filter.To))
	}
	return details, nil
}

// GetVehicleDetail returns the detail view of a single vehicle, restricted to
// repairs starting in [from, to]. A missing vehicle yields a not found error.
func (s *Service) GetVehicleDetail(ctx context.Context, vehicleID int64, from, to *time.Time) (VehicleDetail, error) {
	if err := validateBounds(from, to); err != nil {
		return VehicleDetail{}, err
	}
	vehicle, err := s.repo.GetVehicle(ctx, vehicleID)
	if err != nil {
		return VehicleDetail{}, fmt.Errorf("analytics: load vehicle: %w", err)
	}
	return buildVehicleDetail(vehicle, from, to), nil
}

func buildVehicleDetail(vehicle workshop.Vehicle, from, to *time.Time) VehicleDetail {
	detail := VehicleDetail{
		ID:           vehicle.ID,
		LicensePlate: vehicle.LicensePlate,
		Brand:        vehicle.Brand,
		Model:        vehicle.Model,
		Year:         vehicle.Year,
		ClientName:   vehicle.ClientName,
		Repairs:      make([]RepairDetail, 0, len(vehicle.Repairs)),
	}
	for _, repair := range vehicle.Repairs {
		if !inWindow(repair.StartTime, from, to) {
			continue
		}
		detail.Repairs = append(detail.Repairs, buildRepairDetail(repair))
	}
	return detail
}

func buildRepairDetail(repair workshop.Repair) RepairDetail {
	detail := RepairDetail{
		ID:           repair.ID,
		VehicleID:    repair.VehicleID,
		Description:  repair.Description,
		StartTime:    repair.StartTime,
		EndTime:      copyTime(repair.EndTime),
		LaborCost:    repair.LaborCost,
		MechanicName: repair.MechanicName,
		Status:       repair.Status,
	}
	if repair.Invoice != nil {
		invoice := buildInvoiceDetail(*repair.Invoice)
		detail.Invoice = &invoice
	}
	return detail
}

func buildInvoiceDetail(invoice workshop.Invoice) InvoiceDetail {
	detail := InvoiceDetail{
		ID:            invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		ClientID:      invoice.ClientID,
		MechanicID:    invoice.MechanicID,
		IssueDate:     invoice.IssueDate,
		TotalAmount:   invoice.TotalAmount,
		ClientName:    invoice.ClientName,
		MechanicName:  invoice.MechanicName,
		Items:         make([]InvoiceItemDetail, 0, len(invoice.Items)),
	}
	if invoice.RepairID != nil {
		id := *invoice.RepairID
		detail.RepairID = &id
	}
	for _, item := range invoice.Items {
		detail.Items = append(detail.Items, InvoiceItemDetail{
			ID:          item.ID,
			Description: item.Description,
			ItemType:    item.ItemType,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal,
		})
	}
	return detail
}

func inWindow(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// containsFold reports whether value contains needle ignoring case. Runes are
// lowered one at a time, the way PostgreSQL ILIKE compares, so multi-rune
// foldings such as "ß" to "ss" do not match. The needle is composed to NFC to
// agree with the repository query.
func containsFold(value string, needle *string) bool {
	if needle == nil {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(norm.NFC.String(*needle)))
}
