package analytics

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var spanishMonths = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthlySalesPoint is the invoiced total of one calendar month.
type MonthlySalesPoint struct {
	Month      string          `json:"month"`
	TotalSales decimal.Decimal `json:"totalSales"`
}

// MonthLabel renders "<Spanish month> <year>", e.g. "Enero 2024".
func MonthLabel(year int, month time.Month) string {
	return spanishMonths[month-1] + " " + strconv.Itoa(year)
}

type monthKey struct {
	year  int
	month time.Month
}

func (k monthKey) before(other monthKey) bool {
	if k.year != other.year {
		return k.year < other.year
	}
	return k.month < other.month
}

// GetMonthlySalesData buckets invoice totals by issue month. Only months with at
// least one invoice are returned, oldest first.
func (s *Service) GetMonthlySalesData(ctx context.Context, startDate, endDate time.Time) ([]MonthlySalesPoint, error) {
	from, to, err := DateWindow(startDate, endDate)
	if err != nil {
		return nil, err
	}
	invoices, err := s.repo.FindInvoicesByIssueDateBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("analytics: load invoices: %w", err)
	}

	totals := make(map[monthKey]decimal.Decimal)
	for _, invoice := range invoices {
		issued := invoice.IssueDate.In(from.Location())
		key := monthKey{year: issued.Year(), month: issued.Month()}
		current, ok := totals[key]
		if !ok {
			current = decimal.Zero
		}
		totals[key] = current.Add(invoice.TotalAmount)
	}

	keys := make([]monthKey, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].before(keys[j]) })

	points := make([]MonthlySalesPoint, 0, len(keys))
	for _, key := range keys {
		points = append(points, MonthlySalesPoint{
			Month:      MonthLabel(key.year, key.month),
			TotalSales: totals[key],
		})
	}
	return points, nil
}
