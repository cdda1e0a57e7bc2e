package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallercar/tallercar/internal/workshop"
)

// FinancialSummary aggregates invoicing over a date window.
type FinancialSummary struct {
	TotalInvoicedAmount   decimal.Decimal `json:"totalInvoicedAmount"`
	TotalLaborCost        decimal.Decimal `json:"totalLaborCost"`
	TotalPartsCost        decimal.Decimal `json:"totalPartsCost"`
	TotalVehiclesServiced int             `json:"totalVehiclesServiced"`
}

// SupplierSummary is the parts spend owed to suppliers over a date window.
type SupplierSummary struct {
	TotalPaid decimal.Decimal `json:"totalPaid"`
}

// GetFinancialSummary sums the invoices issued between startDate and endDate.
// Labor comes from each linked repair's own labor cost, never from LABOR items,
// and every linked repair counts once towards TotalVehiclesServiced.
func (s *Service) GetFinancialSummary(ctx context.Context, startDate, endDate time.Time) (FinancialSummary, error) {
	from, to, err := DateWindow(startDate, endDate)
	if err != nil {
		return FinancialSummary{}, err
	}
	invoices, err := s.repo.FindInvoicesByIssueDateBetween(ctx, from, to)
	if err != nil {
		return FinancialSummary{}, fmt.Errorf("analytics: load invoices: %w", err)
	}

	summary := FinancialSummary{
		TotalInvoicedAmount: decimal.Zero,
		TotalLaborCost:      decimal.Zero,
		TotalPartsCost:      decimal.Zero,
	}
	for _, invoice := range invoices {
		summary.TotalInvoicedAmount = summary.TotalInvoicedAmount.Add(invoice.TotalAmount)
		if invoice.Repair != nil {
			summary.TotalLaborCost = summary.TotalLaborCost.Add(invoice.Repair.LaborCost)
			summary.TotalVehiclesServiced++
		}
		summary.TotalPartsCost = summary.TotalPartsCost.Add(sumSubtotals(invoice.Items, workshop.ItemTypePart))
	}
	return summary, nil
}

// GetTotalPaidToSuppliers sums PART items whose invoice was issued in the
// window. It reads items directly and is computed independently of the parts
// cost in GetFinancialSummary.
func (s *Service) GetTotalPaidToSuppliers(ctx context.Context, startDate, endDate time.Time) (SupplierSummary, error) {
	from, to, err := DateWindow(startDate, endDate)
	if err != nil {
		return SupplierSummary{}, err
	}
	items, err := s.repo.FindInvoiceItemsByTypeAndIssueDateBetween(ctx, workshop.ItemTypePart, from, to)
	if err != nil {
		return SupplierSummary{}, fmt.Errorf("analytics: load part items: %w", err)
	}
	return SupplierSummary{TotalPaid: sumSubtotals(items, workshop.ItemTypePart)}, nil
}

func sumSubtotals(items []workshop.InvoiceItem, itemType workshop.ItemType) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.ItemType == itemType {
			total = total.Add(item.Subtotal)
		}
	}
	return total
}
