package workshop

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallercar/tallercar/internal/platform/httpx"
)

// ============================================================================
// ENUMERATIONS
// ============================================================================

// ItemType classifies an invoice line.
type ItemType string

const (
	ItemTypePart  ItemType = "PART"  // Spare part bought from a supplier
	ItemTypeLabor ItemType = "LABOR" // Billed workshop labor
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypePart, ItemTypeLabor:
		return true
	default:
		return false
	}
}

// ParseItemType converts user input into an ItemType.
func ParseItemType(raw string) (ItemType, error) {
	t := ItemType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown item type %q", httpx.ErrValidation, raw)
	}
	return t, nil
}

// UnmarshalText rejects unknown item types while decoding.
func (t *ItemType) UnmarshalText(text []byte) error {
	parsed, err := ParseItemType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// RepairStatus tracks the lifecycle of a repair.
type RepairStatus string

const (
	RepairStatusPending    RepairStatus = "PENDING"
	RepairStatusInProgress RepairStatus = "IN_PROGRESS"
	RepairStatusCompleted  RepairStatus = "COMPLETED"
	RepairStatusCancelled  RepairStatus = "CANCELLED"
)

// Valid reports whether s is a known repair status.
func (s RepairStatus) Valid() bool {
	switch s {
	case RepairStatusPending, RepairStatusInProgress, RepairStatusCompleted, RepairStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseRepairStatus converts user input into a RepairStatus.
func ParseRepairStatus(raw string) (RepairStatus, error) {
	s := RepairStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown repair status %q", httpx.ErrValidation, raw)
	}
	return s, nil
}

// UnmarshalText rejects unknown statuses while decoding.
func (s *RepairStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseRepairStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ============================================================================
// ENTITIES
// ============================================================================

// Client owns vehicles.
type Client struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Mechanic performs repairs and issues invoices.
type Mechanic struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	Active       bool   `json:"active"`
}

// Vehicle is a client's car with its service history.
type Vehicle struct {
	ID           int64    `json:"id"`
	LicensePlate string   `json:"licensePlate"`
	Brand        string   `json:"brand"`
	Model        string   `json:"model"`
	Year         int      `json:"year"`
	ClientID     int64    `json:"clientId"`
	ClientName   string   `json:"clientName"`
	Repairs      []Repair `json:"repairs"`
}

// Repair is a unit of work on a vehicle. EndTime is nil while the repair is open.
type Repair struct {
	ID           int64           `json:"id"`
	VehicleID    int64           `json:"vehicleId"`
	MechanicID   int64           `json:"mechanicId"`
	MechanicName string          `json:"mechanicName"`
	Description  string          `json:"description"`
	StartTime    time.Time       `json:"startTime"`
	EndTime      *time.Time      `json:"endTime"`
	LaborCost    decimal.Decimal `json:"laborCost"`
	Status       RepairStatus    `json:"status"`
	Invoice      *Invoice        `json:"invoice,omitempty"`
}

// Invoice bills a client. Repair is populated only by reads that join it.
type Invoice struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	RepairID      *int64          `json:"repairId"`
	Repair        *Repair         `json:"-"`
	ClientID      int64           `json:"clientId"`
	ClientName    string          `json:"clientName"`
	MechanicID    int64           `json:"mechanicId"`
	MechanicName  string          `json:"mechanicName"`
	IssueDate     time.Time       `json:"issueDate"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Items         []InvoiceItem   `json:"invoiceItems"`
}

// InvoiceItem is one invoice line. Subtotal equals UnitPrice × Quantity.
type InvoiceItem struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoiceId"`
	Description string          `json:"description"`
	ItemType    ItemType        `json:"itemType"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// VehicleFilter narrows vehicle reads. Nil fields are unconstrained.
type VehicleFilter struct {
	LicensePlateContains *string
	BrandContains        *string
	ClientNameContains   *string
}
