package workshop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallercar/tallercar/internal/platform/httpx"
)

// Service implements invoice bookkeeping on top of the Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// CreateInvoice bills the repair referenced by req. The client and mechanic are
// taken from the repair, and the total is the sum of the item subtotals.
func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (Invoice, error) {
	items, total, err := buildItems(req.Items)
	if err != nil {
		return Invoice{}, err
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		repair, err := tx.GetRepair(ctx, req.RepairID)
		if err != nil {
			return err
		}
		clientID, err := tx.VehicleClientID(ctx, repair.VehicleID)
		if err != nil {
			return err
		}
		repairID := repair.ID
		invoice := Invoice{
			InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
			RepairID:      &repairID,
			ClientID:      clientID,
			MechanicID:    repair.MechanicID,
			IssueDate:     s.issueDate(req.IssueDate),
			TotalAmount:   total,
			Items:         items,
		}
		id, err = tx.CreateInvoice(ctx, invoice)
		return err
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	return s.repo.GetInvoice(ctx, id)
}

// GetInvoice returns an invoice with its items.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// UpdateInvoice replaces the invoice number, issue date and items, then
// recomputes the total.
func (s *Service) UpdateInvoice(ctx context.Context, id int64, req UpdateInvoiceRequest) (Invoice, error) {
	items, total, err := buildItems(req.Items)
	if err != nil {
		return Invoice{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		current, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		current.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)
		if req.IssueDate != nil {
			current.IssueDate = req.IssueDate.UTC()
		}
		current.TotalAmount = total
		if err := tx.UpdateInvoice(ctx, current); err != nil {
			return err
		}
		return tx.ReplaceInvoiceItems(ctx, id, items)
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("update invoice: %w", err)
	}
	return s.repo.GetInvoice(ctx, id)
}

// DeleteInvoice removes an existing invoice.
func (s *Service) DeleteInvoice(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.GetInvoice(ctx, id); err != nil {
			return err
		}
		return tx.DeleteInvoice(ctx, id)
	})
}

func (s *Service) issueDate(requested *time.Time) time.Time {
	if requested != nil && !requested.IsZero() {
		return requested.UTC()
	}
	return s.now().UTC()
}

func buildItems(reqs []InvoiceItemRequest) ([]InvoiceItem, decimal.Decimal, error) {
	items := make([]InvoiceItem, 0, len(reqs))
	total := decimal.Zero
	for i, req := range reqs {
		if !req.ItemType.Valid() {
			return nil, decimal.Zero, fmt.Errorf("%w: item %d: unknown item type %q", httpx.ErrValidation, i, req.ItemType)
		}
		if req.Quantity <= 0 {
			return nil, decimal.Zero, fmt.Errorf("%w: item %d: quantity must be positive", httpx.ErrValidation, i)
		}
		if req.UnitPrice.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("%w: item %d: unit price must not be negative", httpx.ErrValidation, i)
		}
		subtotal := req.UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity)))
		items = append(items, InvoiceItem{
			Description: strings.TrimSpace(req.Description),
			ItemType:    req.ItemType,
			UnitPrice:   req.UnitPrice,
			Quantity:    req.Quantity,
			Subtotal:    subtotal,
		})
		total = total.Add(subtotal)
	}
	return items, total, nil
}
