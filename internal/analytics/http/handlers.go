package analytichttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/tallercar/tallercar/internal/analytics"
	"github.com/tallercar/tallercar/internal/platform/httpx"
)

const requestTimeout = 10 * time.Second

const defaultFormat = "csv"

// AnalyticsService is the engine contract used by the handler.
type AnalyticsService interface {
	GetFinancialSummary(ctx context.Context, startDate, endDate time.Time) (analytics.FinancialSummary, error)
	GetTotalPaidToSuppliers(ctx context.Context, startDate, endDate time.Time) (analytics.SupplierSummary, error)
	GetMonthlySalesData(ctx context.Context, startDate, endDate time.Time) ([]analytics.MonthlySalesPoint, error)
	GetVehicleRepairInvoiceDetails(ctx context.Context, filter analytics.VehicleDetailFilter) ([]analytics.VehicleDetail, error)
	GetVehicleDetail(ctx context.Context, vehicleID int64, from, to *time.Time) (analytics.VehicleDetail, error)
	Export(ctx context.Context, shape analytics.Shape, window analytics.ExportWindow, writer analytics.TableWriter) (analytics.Document, error)
}

// ExportRecorder observes generated exports.
type ExportRecorder interface {
	ObserveExport(shape, format string, rows int)
}

// Overview bundles the three summaries of a date window.
type Overview struct {
	Financial    analytics.FinancialSummary    `json:"financialSummary"`
	Suppliers    analytics.SupplierSummary     `json:"supplierSummary"`
	MonthlySales []analytics.MonthlySalesPoint `json:"monthlySales"`
}

// Handler serves the analytics endpoints.
type Handler struct {
	logger   *slog.Logger
	service  AnalyticsService
	writers  map[string]analytics.TableWriter
	recorder ExportRecorder
	loc      *time.Location
	timeout  time.Duration
}

// Option customises a Handler.
type Option func(*Handler)

// WithWriter registers a TableWriter for the given ?format= value.
func WithWriter(format string, writer analytics.TableWriter) Option {
	return func(h *Handler) {
		if writer != nil {
			h.writers[strings.ToLower(format)] = writer
		}
	}
}

// WithRecorder attaches an export metrics recorder.
func WithRecorder(recorder ExportRecorder) Option {
	return func(h *Handler) { h.recorder = recorder }
}

// WithLocation sets the zone zoneless query dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) {
		if loc != nil {
			h.loc = loc
		}
	}
}

// WithTimeout overrides the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service AnalyticsService, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:  logger,
		service: service,
		writers: make(map[string]analytics.TableWriter),
		loc:     time.Local,
		timeout: requestTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleFinancialSummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.parseDateRange(r)
	if err != nil {
		h.respondError(w, "parse financial summary range", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	summary, err := h.service.GetFinancialSummary(ctx, start, end)
	if err != nil {
		h.respondError(w, "financial summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleSupplierSummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.parseDateRange(r)
	if err != nil {
		h.respondError(w, "parse supplier summary range", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	summary, err := h.service.GetTotalPaidToSuppliers(ctx, start, end)
	if err != nil {
		h.respondError(w, "supplier summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleMonthlySales(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.parseDateRange(r)
	if err != nil {
		h.respondError(w, "parse monthly sales range", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	points, err := h.service.GetMonthlySalesData(ctx, start, end)
	if err != nil {
		h.respondError(w, "monthly sales", err)
		return
	}
	httpx.JSON(w, http.StatusOK, points)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.parseDateRange(r)
	if err != nil {
		h.respondError(w, "parse overview range", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var overview Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := h.service.GetFinancialSummary(ctx, start, end)
		if err != nil {
			return err
		}
		overview.Financial = summary
		return nil
	})
	g.Go(func() error {
		summary, err := h.service.GetTotalPaidToSuppliers(ctx, start, end)
		if err != nil {
			return err
		}
		overview.Suppliers = summary
		return nil
	})
	g.Go(func() error {
		points, err := h.service.GetMonthlySalesData(ctx, start, end)
		if err != nil {
			return err
		}
		overview.MonthlySales = points
		return nil
	})
	if err := g.Wait(); err != nil {
		h.respondError(w, "load overview", err)
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func (h *Handler) handleVehicleDetails(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.parseDateTimeBounds(r)
	if err != nil {
		h.respondError(w, "parse vehicle details bounds", err)
		return
	}
	query := r.URL.Query()
	filter := analytics.VehicleDetailFilter{
		From:         from,
		To:           to,
		LicensePlate: optionalString(query.Get("licensePlate")),
		Brand:        optionalString(query.Get("brand")),
		ClientName:   optionalString(query.Get("clientName")),
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	details, err := h.service.GetVehicleRepairInvoiceDetails(ctx, filter)
	if err != nil {
		h.respondError(w, "vehicle details", err)
		return
	}
	httpx.JSON(w, http.StatusOK, details)
}

func (h *Handler) handleVehicleDetail(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := strconv.ParseInt(chi.URLParam(r, "vehicleID"), 10, 64)
	if err != nil || vehicleID <= 0 {
		h.respondError(w, "parse vehicle id", fmt.Errorf("%w: invalid vehicle id", httpx.ErrValidation))
		return
	}
	from, to, err := h.parseDateTimeBounds(r)
	if err != nil {
		h.respondError(w, "parse vehicle detail bounds", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	detail, err := h.service.GetVehicleDetail(ctx, vehicleID, from, to)
	if err != nil {
		h.respondError(w, "vehicle detail", err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) handleExportRepairSummary(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, analytics.ShapeRepairSummary)
}

func (h *Handler) handleExportInvoiceItems(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, analytics.ShapeInvoiceItemDetail)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, shape analytics.Shape) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = defaultFormat
	}
	writer, ok := h.writers[format]
	if !ok {
		h.respondError(w, "select export writer", fmt.Errorf("%w: unsupported export format %q", httpx.ErrValidation, format))
		return
	}
	from, to, err := h.parseDateTimeBounds(r)
	if err != nil {
		h.respondError(w, "parse export bounds", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	doc, err := h.service.Export(ctx, shape, analytics.ExportWindow{From: from, To: to}, writer)
	if err != nil {
		h.respondError(w, "export "+string(shape), err)
		return
	}
	if h.recorder != nil {
		h.recorder.ObserveExport(string(shape), format, doc.Rows)
	}
	h.logger.Info("analytics export generated",
		slog.String("shape", string(shape)),
		slog.String("format", format),
		slog.Int("rows", doc.Rows),
		slog.Int("bytes", len(doc.Content)),
	)
	if _, err := httpx.Attachment(w, doc.Filename, doc.Content); err != nil {
		h.logError("stream export", err)
	}
}

const (
	dateLayout     = time.DateOnly
	dateTimeLayout = "2006-01-02T15:04:05"
)

// parseDateRange reads the required startDate/endDate calendar dates.
func (h *Handler) parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	query := r.URL.Query()
	start, err := h.parseDate("startDate", query.Get("startDate"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := h.parseDate("endDate", query.Get("endDate"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (h *Handler) parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", httpx.ErrValidation, field)
	}
	t, err := time.ParseInLocation(dateLayout, raw, h.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", httpx.ErrValidation, field)
	}
	return t, nil
}

// parseDateTimeBounds reads the optional startDate/endDate instants.
func (h *Handler) parseDateTimeBounds(r *http.Request) (*time.Time, *time.Time, error) {
	query := r.URL.Query()
	from, err := h.parseDateTime("startDate", query.Get("startDate"))
	if err != nil {
		return nil, nil, err
	}
	to, err := h.parseDateTime("endDate", query.Get("endDate"))
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func (h *Handler) parseDateTime(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(dateTimeLayout, raw, h.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an ISO date-time", httpx.ErrValidation, field)
	}
	return &t, nil
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func (h *Handler) respondError(w http.ResponseWriter, context string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logError(context, err)
	}
	httpx.RespondError(w, err)
}

func (h *Handler) logError(context string, err error) {
	h.logger.Error(context, slog.Any("error", err))
}
