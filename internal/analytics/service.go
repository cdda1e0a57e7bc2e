package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/tallercar/tallercar/internal/platform/httpx"
	"github.com/tallercar/tallercar/internal/workshop"
)

// Repository is the read side of the workshop store the engine relies on.
type Repository interface {
	FindInvoicesByIssueDateBetween(ctx context.Context, from, to time.Time) ([]workshop.Invoice, error)
	FindInvoiceItemsByTypeAndIssueDateBetween(ctx context.Context, itemType workshop.ItemType, from, to time.Time) ([]workshop.InvoiceItem, error)
	FindVehicles(ctx context.Context, filter workshop.VehicleFilter) ([]workshop.Vehicle, error)
	GetVehicle(ctx context.Context, id int64) (workshop.Vehicle, error)
}

// Service computes summaries, detail views and exports. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a Repository into the analytics engine.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock used for export timestamps.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// DateWindow widens inclusive calendar dates to [start 00:00:00, end 23:59:59]
// in the location of start. End before start is a validation failure.
func DateWindow(startDate, endDate time.Time) (time.Time, time.Time, error) {
	if startDate.IsZero() || endDate.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start and end dates are required", httpx.ErrValidation)
	}
	loc := startDate.Location()
	from := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, loc)
	endDate = endDate.In(loc)
	to := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 23, 59, 59, 0, loc)
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end date %s is before start date %s",
			httpx.ErrValidation, endDate.Format(time.DateOnly), startDate.Format(time.DateOnly))
	}
	return from, to, nil
}

func validateBounds(from, to *time.Time) error {
	if from != nil && to != nil && to.Before(*from) {
		return fmt.Errorf("%w: end %s is before start %s",
			httpx.ErrValidation, to.Format(time.DateTime), from.Format(time.DateTime))
	}
	return nil
}
