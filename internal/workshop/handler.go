package workshop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tallercar/tallercar/internal/platform/httpx"
)

// InvoiceService is the invoice contract used by the HTTP handler.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	UpdateInvoice(ctx context.Context, id int64, req UpdateInvoiceRequest) (Invoice, error)
	DeleteInvoice(ctx context.Context, id int64) error
}

// Handler serves the workshop JSON API: invoices plus the client, vehicle and
// repair catalog when the matching services are configured.
type Handler struct {
	logger    *slog.Logger
	service   InvoiceService
	clients   ClientManager
	vehicles  VehicleManager
	repairs   RepairManager
	validator *validator.Validate
}

// Option customises a Handler.
type Option func(*Handler)

// WithClients serves /clients from svc.
func WithClients(svc ClientManager) Option {
	return func(h *Handler) { h.clients = svc }
}

// WithVehicles serves /vehicles from svc.
func WithVehicles(svc VehicleManager) Option {
	return func(h *Handler) { h.vehicles = svc }
}

// WithRepairs serves /repairs from svc.
func WithRepairs(svc RepairManager) Option {
	return func(h *Handler) { h.repairs = svc }
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service InvoiceService, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, service: service, validator: validator.New()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, "decode invoice", err)
		return
	}
	invoice, err := h.service.CreateInvoice(r.Context(), req)
	if err != nil {
		h.respondError(w, "create invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

func (h *Handler) showInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "invoice")
	if err != nil {
		h.respondError(w, "parse invoice id", err)
		return
	}
	invoice, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.respondError(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "invoice")
	if err != nil {
		h.respondError(w, "parse invoice id", err)
		return
	}
	var req UpdateInvoiceRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, "decode invoice", err)
		return
	}
	invoice, err := h.service.UpdateInvoice(r.Context(), id, req)
	if err != nil {
		h.respondError(w, "update invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) removeInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "invoice")
	if err != nil {
		h.respondError(w, "parse invoice id", err)
		return
	}
	if err := h.service.DeleteInvoice(r.Context(), id); err != nil {
		h.respondError(w, "delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	if err := h.validator.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("%w: field %s failed %s", httpx.ErrValidation, fieldErrs[0].Namespace(), fieldErrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return nil
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pathID(r *http.Request, entity string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s id", httpx.ErrValidation, entity)
	}
	return id, nil
}
