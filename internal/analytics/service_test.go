package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallercar/tallercar/internal/platform/httpx"
	"github.com/tallercar/tallercar/internal/workshop"
)

type mockRepo struct {
	invoices      []workshop.Invoice
	invoiceErr    error
	invoiceCalls  int
	invoiceFrom   time.Time
	invoiceTo     time.Time
	items         []workshop.InvoiceItem
	itemCalls     int
	itemType      workshop.ItemType
	itemFrom      time.Time
	itemTo        time.Time
	vehicles      []workshop.Vehicle
	vehicleErr    error
	vehicleCalls  int
	vehicleFilter workshop.VehicleFilter
}

func (m *mockRepo) FindInvoicesByIssueDateBetween(ctx context.Context, from, to time.Time) ([]workshop.Invoice, error) {
	m.invoiceCalls++
	m.invoiceFrom, m.invoiceTo = from, to
	return m.invoices, m.invoiceErr
}

func (m *mockRepo) FindInvoiceItemsByTypeAndIssueDateBetween(ctx context.Context, itemType workshop.ItemType, from, to time.Time) ([]workshop.InvoiceItem, error) {
	m.itemCalls++
	m.itemType, m.itemFrom, m.itemTo = itemType, from, to
	return m.items, nil
}

// FindVehicles returns the full catalog; the resolver filters in memory.
func (m *mockRepo) FindVehicles(ctx context.Context, filter workshop.VehicleFilter) ([]workshop.Vehicle, error) {
	m.vehicleCalls++
	m.vehicleFilter = filter
	return m.vehicles, m.vehicleErr
}

func (m *mockRepo) GetVehicle(ctx context.Context, id int64) (workshop.Vehicle, error) {
	for _, v := range m.vehicles {
		if v.ID == id {
			return v, nil
		}
	}
	return workshop.Vehicle{}, httpx.ErrNotFound
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func ptr[T any](v T) *T {
	return &v
}

func assertMoney(t *testing.T, name string, got decimal.Decimal, want int64) {
	t.Helper()
	if !got.Equal(money(want)) {
		t.Fatalf("%s: expected %d, got %s", name, want, got)
	}
}

func TestGetFinancialSummary(t *testing.T) {
	repo := &mockRepo{invoices: []workshop.Invoice{
		{
			ID: 301, InvoiceNumber: "INV-001", IssueDate: day(2024, 1, 15), TotalAmount: money(200),
			Repair: &workshop.Repair{ID: 1, LaborCost: money(70)},
			Items: []workshop.InvoiceItem{
				{ID: 501, ItemType: workshop.ItemTypePart, Subtotal: money(50)},
				{ID: 502, ItemType: workshop.ItemTypeLabor, Subtotal: money(100)},
			},
		},
		{
			ID: 302, InvoiceNumber: "INV-002", IssueDate: day(2024, 1, 20), TotalAmount: money(300),
			Repair: &workshop.Repair{ID: 2, LaborCost: money(120)},
			Items: []workshop.InvoiceItem{
				{ID: 503, ItemType: workshop.ItemTypePart, Subtotal: money(80)},
				{ID: 504, ItemType: workshop.ItemTypeLabor, Subtotal: money(150)},
			},
		},
	}}
	svc := NewService(repo)

	summary, err := svc.GetFinancialSummary(context.Background(), day(2024, 1, 1), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertMoney(t, "invoiced", summary.TotalInvoicedAmount, 500)
	assertMoney(t, "labor", summary.TotalLaborCost, 190)
	assertMoney(t, "parts", summary.TotalPartsCost, 130)
	if summary.TotalVehiclesServiced != 2 {
		t.Fatalf("expected 2 vehicles serviced, got %d", summary.TotalVehiclesServiced)
	}
	if repo.invoiceCalls != 1 {
		t.Fatalf("expected one invoice read, got %d", repo.invoiceCalls)
	}
	if !repo.invoiceFrom.Equal(day(2024, 1, 1)) {
		t.Fatalf("unexpected window start %s", repo.invoiceFrom)
	}
	if want := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC); !repo.invoiceTo.Equal(want) {
		t.Fatalf("unexpected window end %s", repo.invoiceTo)
	}
}

func TestGetFinancialSummaryCountsRepairsNotVehicles(t *testing.T) {
	repo := &mockRepo{invoices: []workshop.Invoice{
		{ID: 1, TotalAmount: money(10), Repair: &workshop.Repair{ID: 1, VehicleID: 9, LaborCost: money(1)}},
		{ID: 2, TotalAmount: money(20), Repair: &workshop.Repair{ID: 2, VehicleID: 9, LaborCost: money(2)}},
		{ID: 3, TotalAmount: money(30)},
	}}
	summary, err := NewService(repo).GetFinancialSummary(context.Background(), day(2024, 1, 1), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalVehiclesServiced != 2 {
		t.Fatalf("expected both repairs on the same vehicle to count, got %d", summary.TotalVehiclesServiced)
	}
	assertMoney(t, "invoiced", summary.TotalInvoicedAmount, 60)
	assertMoney(t, "labor", summary.TotalLaborCost, 3)
}

func TestGetFinancialSummaryEmpty(t *testing.T) {
	summary, err := NewService(&mockRepo{}).GetFinancialSummary(context.Background(), day(2024, 1, 1), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertMoney(t, "invoiced", summary.TotalInvoicedAmount, 0)
	assertMoney(t, "labor", summary.TotalLaborCost, 0)
	assertMoney(t, "parts", summary.TotalPartsCost, 0)
	if summary.TotalVehiclesServiced != 0 {
		t.Fatalf("expected zero vehicles, got %d", summary.TotalVehiclesServiced)
	}
}

func TestGetFinancialSummaryRejectsInvertedWindow(t *testing.T) {
	repo := &mockRepo{}
	_, err := NewService(repo).GetFinancialSummary(context.Background(), day(2024, 2, 1), day(2024, 1, 1))
	if !errors.Is(err, httpx.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.invoiceCalls != 0 {
		t.Fatalf("repository must not be queried for an invalid window")
	}
}

func TestGetFinancialSummaryPropagatesRepositoryFailure(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := NewService(&mockRepo{invoiceErr: boom}).GetFinancialSummary(context.Background(), day(2024, 1, 1), day(2024, 1, 31))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped repository error, got %v", err)
	}
}

func TestGetTotalPaidToSuppliers(t *testing.T) {
	repo := &mockRepo{items: []workshop.InvoiceItem{
		{ID: 1, Description: "Oil Filter", ItemType: workshop.ItemTypePart, UnitPrice: money(30), Quantity: 1, Subtotal: money(30)},
		{ID: 2, Description: "Tires", ItemType: workshop.ItemTypePart, UnitPrice: money(200), Quantity: 4, Subtotal: money(800)},
	}}
	summary, err := NewService(repo).GetTotalPaidToSuppliers(context.Background(), day(2024, 1, 1), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertMoney(t, "paid", summary.TotalPaid, 830)
	if repo.itemCalls != 1 || repo.itemType != workshop.ItemTypePart {
		t.Fatalf("expected one PART item read, got %d calls for %q", repo.itemCalls, repo.itemType)
	}
	if repo.invoiceCalls != 0 {
		t.Fatalf("supplier summary must not read invoices")
	}
	if want := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC); !repo.itemTo.Equal(want) || !repo.itemFrom.Equal(day(2024, 1, 1)) {
		t.Fatalf("unexpected window %s - %s", repo.itemFrom, repo.itemTo)
	}
}

func TestGetTotalPaidToSuppliersEmpty(t *testing.T) {
	summary, err := NewService(&mockRepo{}).GetTotalPaidToSuppliers(context.Background(), day(2024, 1, 1), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertMoney(t, "paid", summary.TotalPaid, 0)
}

func TestGetMonthlySalesData(t *testing.T) {
	repo := &mockRepo{invoices: []workshop.Invoice{
		{ID: 3, IssueDate: day(2024, 2, 5), TotalAmount: money(200)},
		{ID: 1, IssueDate: day(2024, 1, 10), TotalAmount: money(100)},
		{ID: 2, IssueDate: day(2024, 1, 20), TotalAmount: money(150)},
	}}
	points, err := NewService(repo).GetMonthlySalesData(context.Background(), day(2024, 1, 1), day(2024, 2, 29))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Month != "Enero 2024" || points[1].Month != "Febrero 2024" {
		t.Fatalf("unexpected labels %q, %q", points[0].Month, points[1].Month)
	}
	assertMoney(t, "january", points[0].TotalSales, 250)
	assertMoney(t, "february", points[1].TotalSales, 200)
}

func TestGetMonthlySalesDataSkipsEmptyMonthsAcrossYears(t *testing.T) {
	repo := &mockRepo{invoices: []workshop.Invoice{
		{ID: 1, IssueDate: day(2024, 1, 3), TotalAmount: money(10)},
		{ID: 2, IssueDate: day(2023, 12, 30), TotalAmount: money(5)},
		{ID: 3, IssueDate: day(2024, 3, 3), TotalAmount: money(7)},
	}}
	points, err := NewService(repo).GetMonthlySalesData(context.Background(), day(2023, 12, 1), day(2024, 3, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Diciembre 2023", "Enero 2024", "Marzo 2024"}
	if len(points) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(points))
	}
	for i, label := range want {
		if points[i].Month != label {
			t.Fatalf("point %d: expected %q, got %q", i, label, points[i].Month)
		}
	}
}

func TestGetMonthlySalesDataEmpty(t *testing.T) {
	points, err := NewService(&mockRepo{}).GetMonthlySalesData(context.Background(), day(2024, 1, 1), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if points == nil || len(points) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", points)
	}
}

func TestMonthLabelTable(t *testing.T) {
	if got := MonthLabel(2025, time.September); got != "Septiembre 2025" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := MonthLabel(1999, time.December); got != "Diciembre 1999" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestSummariesAreIdempotent(t *testing.T) {
	repo := &mockRepo{
		invoices: []workshop.Invoice{{ID: 1, IssueDate: day(2024, 1, 2), TotalAmount: money(40), Repair: &workshop.Repair{ID: 1, LaborCost: money(5)}}},
		items:    []workshop.InvoiceItem{{ID: 1, ItemType: workshop.ItemTypePart, Subtotal: money(9)}},
	}
	svc := NewService(repo)
	ctx := context.Background()
	first, _ := svc.GetFinancialSummary(ctx, day(2024, 1, 1), day(2024, 1, 31))
	second, _ := svc.GetFinancialSummary(ctx, day(2024, 1, 1), day(2024, 1, 31))
	if !first.TotalInvoicedAmount.Equal(second.TotalInvoicedAmount) || first.TotalVehiclesServiced != second.TotalVehiclesServiced {
		t.Fatalf("summary changed between calls: %+v vs %+v", first, second)
	}
	p1, _ := svc.GetTotalPaidToSuppliers(ctx, day(2024, 1, 1), day(2024, 1, 31))
	p2, _ := svc.GetTotalPaidToSuppliers(ctx, day(2024, 1, 1), day(2024, 1, 31))
	if !p1.TotalPaid.Equal(p2.TotalPaid) {
		t.Fatalf("supplier summary changed between calls")
	}
}
