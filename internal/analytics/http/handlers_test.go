package analytichttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallercar/tallercar/internal/analytics"
	"github.com/tallercar/tallercar/internal/platform/httpx"
)

type stubService struct {
	mu          sync.Mutex
	start, end  time.Time
	filter      analytics.VehicleDetailFilter
	vehicleID   int64
	shape       analytics.Shape
	window      analytics.ExportWindow
	writer      analytics.TableWriter
	err         error
	detailErr   error
	exportCalls int
}

func (s *stubService) record(start, end time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start, s.end = start, end
}

func (s *stubService) GetFinancialSummary(ctx context.Context, start, end time.Time) (analytics.FinancialSummary, error) {
	s.record(start, end)
	return analytics.FinancialSummary{
		TotalInvoicedAmount:   decimal.NewFromInt(500),
		TotalLaborCost:        decimal.NewFromInt(190),
		TotalPartsCost:        decimal.NewFromInt(130),
		TotalVehiclesServiced: 2,
	}, s.err
}

func (s *stubService) GetTotalPaidToSuppliers(ctx context.Context, start, end time.Time) (analytics.SupplierSummary, error) {
	s.record(start, end)
	return analytics.SupplierSummary{TotalPaid: decimal.NewFromInt(830)}, nil
}

func (s *stubService) GetMonthlySalesData(ctx context.Context, start, end time.Time) ([]analytics.MonthlySalesPoint, error) {
	s.record(start, end)
	return []analytics.MonthlySalesPoint{{Month: "Enero 2024", TotalSales: decimal.NewFromInt(250)}}, nil
}

func (s *stubService) GetVehicleRepairInvoiceDetails(ctx context.Context, filter analytics.VehicleDetailFilter) ([]analytics.VehicleDetail, error) {
	s.filter = filter
	return []analytics.VehicleDetail{}, s.detailErr
}

func (s *stubService) GetVehicleDetail(ctx context.Context, vehicleID int64, from, to *time.Time) (analytics.VehicleDetail, error) {
	s.vehicleID = vehicleID
	if s.detailErr != nil {
		return analytics.VehicleDetail{}, s.detailErr
	}
	return analytics.VehicleDetail{ID: vehicleID, LicensePlate: "ABC-123", Repairs: []analytics.RepairDetail{}}, nil
}

func (s *stubService) Export(ctx context.Context, shape analytics.Shape, window analytics.ExportWindow, writer analytics.TableWriter) (analytics.Document, error) {
	s.exportCalls++
	s.shape, s.window, s.writer = shape, window, writer
	if s.err != nil {
		return analytics.Document{}, s.err
	}
	return analytics.Document{
		Filename: shape.FilenamePrefix() + "20240506_070809." + writer.Extension(),
		Shape:    shape,
		Rows:     1,
		Content:  []byte("excel_content"),
	}, nil
}

type fakeWriter struct{ ext string }

func (f fakeWriter) Write(context.Context, [][]string, []string, analytics.Shape) ([]byte, error) {
	return nil, nil
}

func (f fakeWriter) Extension() string { return f.ext }

type recorderStub struct {
	shape, format string
	rows          int
}

func (r *recorderStub) ObserveExport(shape, format string, rows int) {
	r.shape, r.format, r.rows = shape, format, rows
}

func newTestRouter(svc AnalyticsService, opts ...Option) http.Handler {
	opts = append([]Option{
		WithLocation(time.UTC),
		WithWriter("csv", fakeWriter{ext: "csv"}),
		WithWriter("pdf", fakeWriter{ext: "pdf"}),
	}, opts...)
	r := chi.NewRouter()
	NewHandler(nil, svc, opts...).MountRoutes(r, nil)
	return r
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, target, nil))
	return res
}

func TestFinancialSummaryEndpoint(t *testing.T) {
	svc := &stubService{}
	res := get(t, newTestRouter(svc), "/analytics/financial-summary?startDate=2024-01-01&endDate=2024-01-31")

	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Equal(t, "2024-01-01", svc.start.Format(time.DateOnly))
	assert.Equal(t, "2024-01-31", svc.end.Format(time.DateOnly))

	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "500", body["totalInvoicedAmount"])
	assert.Equal(t, float64(2), body["totalVehiclesServiced"])
}

func TestSummaryEndpointsRequireDates(t *testing.T) {
	for _, target := range []string{
		"/analytics/financial-summary?endDate=2024-01-31",
		"/analytics/supplier-summary?startDate=2024-01-01",
		"/analytics/monthly-sales?startDate=01/01/2024&endDate=2024-01-31",
		"/analytics/overview",
	} {
		res := get(t, newTestRouter(&stubService{}), target)
		assert.Equal(t, http.StatusBadRequest, res.Code, target)
		assert.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
	}
}

func TestSummaryEndpointMapsServiceErrors(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("%w: end before start", httpx.ErrValidation)}
	res := get(t, newTestRouter(svc), "/analytics/financial-summary?startDate=2024-02-01&endDate=2024-01-01")
	assert.Equal(t, http.StatusBadRequest, res.Code)

	svc = &stubService{err: errors.New("db down")}
	res = get(t, newTestRouter(svc), "/analytics/financial-summary?startDate=2024-01-01&endDate=2024-01-31")
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.NotContains(t, res.Body.String(), "db down")
}

func TestSupplierAndMonthlyEndpoints(t *testing.T) {
	router := newTestRouter(&stubService{})

	res := get(t, router, "/analytics/supplier-summary?startDate=2024-01-01&endDate=2024-01-31")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"totalPaid":"830"}`, res.Body.String())

	res = get(t, router, "/analytics/monthly-sales?startDate=2024-01-01&endDate=2024-01-31")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `[{"month":"Enero 2024","totalSales":"250"}]`, res.Body.String())
}

func TestOverviewEndpoint(t *testing.T) {
	res := get(t, newTestRouter(&stubService{}), "/analytics/overview?startDate=2024-01-01&endDate=2024-01-31")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	var overview struct {
		Financial    map[string]any   `json:"financialSummary"`
		Suppliers    map[string]any   `json:"supplierSummary"`
		MonthlySales []map[string]any `json:"monthlySales"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &overview))
	assert.Equal(t, "830", overview.Suppliers["totalPaid"])
	assert.Equal(t, "190", overview.Financial["totalLaborCost"])
	assert.Len(t, overview.MonthlySales, 1)
}

func TestOverviewFailsWhole(t *testing.T) {
	res := get(t, newTestRouter(&stubService{err: errors.New("timeout")}), "/analytics/overview?startDate=2024-01-01&endDate=2024-01-31")
	assert.Equal(t, http.StatusInternalServerError, res.Code)
}

func TestVehicleDetailsEndpoint(t *testing.T) {
	svc := &stubService{}
	res := get(t, newTestRouter(svc), "/analytics/vehicles-details?startDate=2024-01-01T00:00:00&endDate=2024-01-31T23:59:59&licensePlate=ABC&brand=Toyota&clientName=Juan")

	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Equal(t, "[]\n", res.Body.String())
	require.NotNil(t, svc.filter.From)
	require.NotNil(t, svc.filter.To)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), *svc.filter.To)
	assert.Equal(t, "ABC", *svc.filter.LicensePlate)
	assert.Equal(t, "Toyota", *svc.filter.Brand)
	assert.Equal(t, "Juan", *svc.filter.ClientName)
}

func TestVehicleDetailsEndpointWithoutFilters(t *testing.T) {
	svc := &stubService{}
	res := get(t, newTestRouter(svc), "/analytics/vehicles-details?licensePlate=")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Nil(t, svc.filter.From)
	assert.Nil(t, svc.filter.To)
	assert.Nil(t, svc.filter.LicensePlate)
	assert.Nil(t, svc.filter.Brand)
	assert.Nil(t, svc.filter.ClientName)

	res = get(t, newTestRouter(svc), "/analytics/vehicles-details?startDate=yesterday")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestVehicleDetailEndpoint(t *testing.T) {
	svc := &stubService{}
	res := get(t, newTestRouter(svc), "/analytics/vehicles/100/details")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, int64(100), svc.vehicleID)

	res = get(t, newTestRouter(&stubService{detailErr: fmt.Errorf("vehicle 7: %w", httpx.ErrNotFound)}), "/analytics/vehicles/7/details")
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = get(t, newTestRouter(svc), "/analytics/vehicles/abc/details")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestExportRepairSummaryEndpoint(t *testing.T) {
	svc := &stubService{}
	recorder := &recorderStub{}
	res := get(t, newTestRouter(svc, WithRecorder(recorder)), "/analytics/export/repairs-summary?startDate=2024-01-01T00:00:00&endDate=2024-01-31T23:59:59")

	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Equal(t, "application/octet-stream", res.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(res.Header().Get("Content-Disposition"), `attachment;filename="resumen_reparaciones_`))
	assert.Equal(t, "excel_content", res.Body.String())
	assert.Equal(t, analytics.ShapeRepairSummary, svc.shape)
	assert.Equal(t, "csv", svc.writer.Extension())
	require.NotNil(t, svc.window.From)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *svc.window.From)
	assert.Equal(t, "repair_summary", recorder.shape)
	assert.Equal(t, "csv", recorder.format)
}

func TestExportInvoiceItemsEndpointPDF(t *testing.T) {
	svc := &stubService{}
	res := get(t, newTestRouter(svc), "/analytics/export/invoice-items-detail?format=PDF")

	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.True(t, strings.HasPrefix(res.Header().Get("Content-Disposition"), `attachment;filename="detalle_items_factura_`))
	assert.True(t, strings.HasSuffix(res.Header().Get("Content-Disposition"), `.pdf"`))
	assert.Equal(t, analytics.ShapeInvoiceItemDetail, svc.shape)
	assert.Nil(t, svc.window.From)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := &stubService{}
	res := get(t, newTestRouter(svc), "/analytics/export/repairs-summary?format=xlsx")
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Zero(t, svc.exportCalls)
}

func TestExportRateLimit(t *testing.T) {
	router := newTestRouter(&stubService{})
	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, get(t, router, "/analytics/export/repairs-summary").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(t, router, "/analytics/export/repairs-summary").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/analytics/financial-summary?startDate=2024-01-01&endDate=2024-01-31").Code)
}

func TestRoutesRequireAuth(t *testing.T) {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	r := chi.NewRouter()
	NewHandler(nil, &stubService{}).MountRoutes(r, deny)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "/analytics/monthly-sales?startDate=2024-01-01&endDate=2024-01-31").Code)
}
