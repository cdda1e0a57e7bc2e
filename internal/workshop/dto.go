package workshop

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceItemRequest struct {
	Description string          `json:"description" validate:"required,max=200"`
	ItemType    ItemType        `json:"itemType" validate:"required"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity" validate:"gte=1"`
}

type CreateInvoiceRequest struct {
	InvoiceNumber string               `json:"invoiceNumber" validate:"required,max=50"`
	RepairID      int64                `json:"repairId" validate:"required,gt=0"`
	IssueDate     *time.Time           `json:"issueDate,omitempty"`
	Items         []InvoiceItemRequest `json:"invoiceItems" validate:"dive"`
}

type UpdateInvoiceRequest struct {
	InvoiceNumber string               `json:"invoiceNumber" validate:"required,max=50"`
	IssueDate     *time.Time           `json:"issueDate,omitempty"`
	Items         []InvoiceItemRequest `json:"invoiceItems" validate:"dive"`
}

type ClientRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"omitempty,email,max=160"`
	Phone string `json:"phone" validate:"omitempty,max=40"`
}

type VehicleRequest struct {
	LicensePlate string `json:"licensePlate" validate:"required,max=20"`
	Brand        string `json:"brand" validate:"required,max=60"`
	Model        string `json:"model" validate:"omitempty,max=60"`
	Year         int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	ClientID     int64  `json:"clientId" validate:"required,gt=0"`
}

// RepairRequest creates or rewrites a repair. A missing start time defaults to
// now and a missing status to PENDING.
type RepairRequest struct {
	VehicleID   int64           `json:"vehicleId" validate:"required,gt=0"`
	MechanicID  int64           `json:"mechanicId" validate:"required,gt=0"`
	Description string          `json:"description" validate:"required,max=500"`
	StartTime   *time.Time      `json:"startTime,omitempty"`
	EndTime     *time.Time      `json:"endTime,omitempty"`
	LaborCost   decimal.Decimal `json:"laborCost"`
	Status      RepairStatus    `json:"status,omitempty"`
}
