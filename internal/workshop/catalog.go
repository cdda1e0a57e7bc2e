package workshop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/tallercar/tallercar/internal/platform/httpx"
)

// ============================================================================
// CLIENTS
// ============================================================================

// ClientService manages workshop clients.
type ClientService struct {
	repo Repository
}

// NewClientService constructs a ClientService.
func NewClientService(repo Repository) *ClientService {
	return &ClientService{repo: repo}
}

func (s *ClientService) ListClients(ctx context.Context) ([]Client, error) {
	return s.repo.ListClients(ctx)
}

func (s *ClientService) GetClient(ctx context.Context, id int64) (Client, error) {
	return s.repo.GetClient(ctx, id)
}

func (s *ClientService) CreateClient(ctx context.Context, req ClientRequest) (Client, error) {
	client := clientFromRequest(req)
	id, err := s.repo.CreateClient(ctx, client)
	if err != nil {
		return Client{}, err
	}
	client.ID = id
	return client, nil
}

// UpdateClient overwrites the contact details of an existing client.
func (s *ClientService) UpdateClient(ctx context.Context, id int64, req ClientRequest) (Client, error) {
	client := clientFromRequest(req)
	client.ID = id
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.GetClient(ctx, id); err != nil {
			return err
		}
		return tx.UpdateClient(ctx, client)
	})
	if err != nil {
		return Client{}, fmt.Errorf("update client: %w", err)
	}
	return client, nil
}

func (s *ClientService) DeleteClient(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.GetClient(ctx, id); err != nil {
			return err
		}
		return tx.DeleteClient(ctx, id)
	})
}

func clientFromRequest(req ClientRequest) Client {
	return Client{
		Name:  normalizeText(req.Name),
		Email: normalizeText(req.Email),
		Phone: normalizeText(req.Phone),
	}
}

// ============================================================================
// VEHICLES
// ============================================================================

// VehicleService manages the vehicles registered to clients.
type VehicleService struct {
	repo Repository
}

// NewVehicleService constructs a VehicleService.
func NewVehicleService(repo Repository) *VehicleService {
	return &VehicleService{repo: repo}
}

// ListVehicles returns the vehicles matching filter with their service history.
func (s *VehicleService) ListVehicles(ctx context.Context, filter VehicleFilter) ([]Vehicle, error) {
	vehicles, err := s.repo.FindVehicles(ctx, filter)
	if err != nil {
		return nil, err
	}
	if vehicles == nil {
		vehicles = []Vehicle{}
	}
	return vehicles, nil
}

func (s *VehicleService) GetVehicle(ctx context.Context, id int64) (Vehicle, error) {
	return s.repo.GetVehicle(ctx, id)
}

// CreateVehicle registers a vehicle for an existing client.
func (s *VehicleService) CreateVehicle(ctx context.Context, req VehicleRequest) (Vehicle, error) {
	vehicle := vehicleFromRequest(req)
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.GetClient(ctx, vehicle.ClientID); err != nil {
			return err
		}
		var err error
		id, err = tx.CreateVehicle(ctx, vehicle)
		return err
	})
	if err != nil {
		return Vehicle{}, fmt.Errorf("create vehicle: %w", err)
	}
	return s.repo.GetVehicle(ctx, id)
}

// UpdateVehicle rewrites a vehicle. The vehicle is checked before the new owner.
func (s *VehicleService) UpdateVehicle(ctx context.Context, id int64, req VehicleRequest) (Vehicle, error) {
	vehicle := vehicleFromRequest(req)
	vehicle.ID = id
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.VehicleClientID(ctx, id); err != nil {
			return err
		}
		if _, err := tx.GetClient(ctx, vehicle.ClientID); err != nil {
			return err
		}
		return tx.UpdateVehicle(ctx, vehicle)
	})
	if err != nil {
		return Vehicle{}, fmt.Errorf("update vehicle: %w", err)
	}
	return s.repo.GetVehicle(ctx, id)
}

func (s *VehicleService) DeleteVehicle(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.VehicleClientID(ctx, id); err != nil {
			return err
		}
		return tx.DeleteVehicle(ctx, id)
	})
}

func vehicleFromRequest(req VehicleRequest) Vehicle {
	return Vehicle{
		LicensePlate: normalizeText(req.LicensePlate),
		Brand:        normalizeText(req.Brand),
		Model:        normalizeText(req.Model),
		Year:         req.Year,
		ClientID:     req.ClientID,
	}
}

// ============================================================================
// REPAIRS
// ============================================================================

// RepairService manages repairs performed on vehicles.
type RepairService struct {
	repo Repository
	now  func() time.Time
}

// NewRepairService constructs a RepairService.
func NewRepairService(repo Repository) *RepairService {
	return &RepairService{repo: repo, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *RepairService) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// ListRepairs returns all repairs, or those of one vehicle when vehicleID is set.
func (s *RepairService) ListRepairs(ctx context.Context, vehicleID *int64) ([]Repair, error) {
	if vehicleID != nil {
		if _, err := s.repo.VehicleClientID(ctx, *vehicleID); err != nil {
			return nil, err
		}
	}
	return s.repo.ListRepairs(ctx, vehicleID)
}

func (s *RepairService) GetRepair(ctx context.Context, id int64) (Repair, error) {
	return s.repo.GetRepair(ctx, id)
}

// CreateRepair opens a repair on an existing vehicle for an existing mechanic.
func (s *RepairService) CreateRepair(ctx context.Context, req RepairRequest) (Repair, error) {
	repair, err := repairFromRequest(req, s.now().UTC())
	if err != nil {
		return Repair{}, err
	}
	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := checkRepairRefs(ctx, tx, repair); err != nil {
			return err
		}
		var err error
		id, err = tx.CreateRepair(ctx, repair)
		return err
	})
	if err != nil {
		return Repair{}, fmt.Errorf("create repair: %w", err)
	}
	return s.repo.GetRepair(ctx, id)
}

// UpdateRepair rewrites a repair. A missing start time keeps the stored one.
func (s *RepairService) UpdateRepair(ctx context.Context, id int64, req RepairRequest) (Repair, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		current, err := tx.GetRepair(ctx, id)
		if err != nil {
			return err
		}
		repair, err := repairFromRequest(req, current.StartTime)
		if err != nil {
			return err
		}
		repair.ID = id
		if err := checkRepairRefs(ctx, tx, repair); err != nil {
			return err
		}
		return tx.UpdateRepair(ctx, repair)
	})
	if err != nil {
		return Repair{}, fmt.Errorf("update repair: %w", err)
	}
	return s.repo.GetRepair(ctx, id)
}

func (s *RepairService) DeleteRepair(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.GetRepair(ctx, id); err != nil {
			return err
		}
		return tx.DeleteRepair(ctx, id)
	})
}

func repairFromRequest(req RepairRequest, defaultStart time.Time) (Repair, error) {
	repair := Repair{
		VehicleID:   req.VehicleID,
		MechanicID:  req.MechanicID,
		Description: normalizeText(req.Description),
		StartTime:   defaultStart,
		LaborCost:   req.LaborCost,
		Status:      req.Status,
	}
	if req.StartTime != nil && !req.StartTime.IsZero() {
		repair.StartTime = req.StartTime.UTC()
	}
	if req.EndTime != nil && !req.EndTime.IsZero() {
		end := req.EndTime.UTC()
		if end.Before(repair.StartTime) {
			return Repair{}, fmt.Errorf("%w: end time precedes start time", httpx.ErrValidation)
		}
		repair.EndTime = &end
	}
	if repair.Status == "" {
		repair.Status = RepairStatusPending
	}
	if !repair.Status.Valid() {
		return Repair{}, fmt.Errorf("%w: unknown repair status %q", httpx.ErrValidation, repair.Status)
	}
	if repair.LaborCost.IsNegative() {
		return Repair{}, fmt.Errorf("%w: labor cost must not be negative", httpx.ErrValidation)
	}
	return repair, nil
}

func checkRepairRefs(ctx context.Context, tx Repository, repair Repair) error {
	if _, err := tx.VehicleClientID(ctx, repair.VehicleID); err != nil {
		return err
	}
	ok, err := tx.MechanicExists(ctx, repair.MechanicID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("mechanic %d: %w", repair.MechanicID, httpx.ErrNotFound)
	}
	return nil
}

// normalizeText trims s and composes it to NFC so stored names match the
// composed search needles.
func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
