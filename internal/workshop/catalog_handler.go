package workshop

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tallercar/tallercar/internal/platform/httpx"
)

// ClientManager is the client contract used by the HTTP handler.
type ClientManager interface {
	ListClients(ctx context.Context) ([]Client, error)
	GetClient(ctx context.Context, id int64) (Client, error)
	CreateClient(ctx context.Context, req ClientRequest) (Client, error)
	UpdateClient(ctx context.Context, id int64, req ClientRequest) (Client, error)
	DeleteClient(ctx context.Context, id int64) error
}

// VehicleManager is the vehicle contract used by the HTTP handler.
type VehicleManager interface {
	ListVehicles(ctx context.Context, filter VehicleFilter) ([]Vehicle, error)
	GetVehicle(ctx context.Context, id int64) (Vehicle, error)
	CreateVehicle(ctx context.Context, req VehicleRequest) (Vehicle, error)
	UpdateVehicle(ctx context.Context, id int64, req VehicleRequest) (Vehicle, error)
	DeleteVehicle(ctx context.Context, id int64) error
}

// RepairManager is the repair contract used by the HTTP handler.
type RepairManager interface {
	ListRepairs(ctx context.Context, vehicleID *int64) ([]Repair, error)
	GetRepair(ctx context.Context, id int64) (Repair, error)
	CreateRepair(ctx context.Context, req RepairRequest) (Repair, error)
	UpdateRepair(ctx context.Context, id int64, req RepairRequest) (Repair, error)
	DeleteRepair(ctx context.Context, id int64) error
}

// ============================================================================
// CLIENTS
// ============================================================================

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.ListClients(r.Context())
	if err != nil {
		h.respondError(w, "list clients", err)
		return
	}
	httpx.JSON(w, http.StatusOK, clients)
}

func (h *Handler) showClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "client")
	if err != nil {
		h.respondError(w, "parse client id", err)
		return
	}
	client, err := h.clients.GetClient(r.Context(), id)
	if err != nil {
		h.respondError(w, "get client", err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, "decode client", err)
		return
	}
	client, err := h.clients.CreateClient(r.Context(), req)
	if err != nil {
		h.respondError(w, "create client", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

func (h *Handler) updateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "client")
	if err != nil {
		h.respondError(w, "parse client id", err)
		return
	}
	var req ClientRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, "decode client", err)
		return
	}
	client, err := h.clients.UpdateClient(r.Context(), id, req)
	if err != nil {
		h.respondError(w, "update client", err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) removeClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "client")
	if err != nil {
		h.respondError(w, "parse client id", err)
		return
	}
	if err := h.clients.DeleteClient(r.Context(), id); err != nil {
		h.respondError(w, "delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// VEHICLES
// ============================================================================

func (h *Handler) listVehicles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := VehicleFilter{
		LicensePlateContains: optionalQuery(q.Get("licensePlate")),
		BrandContains:        optionalQuery(q.Get("brand")),
		ClientNameContains:   optionalQuery(q.Get("clientName")),
	}
	vehicles, err := h.vehicles.ListVehicles(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list vehicles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, vehicles)
}

func (h *Handler) showVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "vehicle")
	if err != nil {
		h.respondError(w, "parse vehicle id", err)
		return
	}
	vehicle, err := h.vehicles.GetVehicle(r.Context(), id)
	if err != nil {
		h.respondError(w, "get vehicle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, vehicle)
}

func (h *Handler) createVehicle(w http.ResponseWriter, r *http.Request) {
	var req VehicleRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, "decode vehicle", err)
		return
	}
	vehicle, err := h.vehicles.CreateVehicle(r.Context(), req)
	if err != nil {
		h.respondError(w, "create vehicle", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, vehicle)
}

func (h *Handler) updateVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "vehicle")
	if err != nil {
		h.respondError(w, "parse vehicle id", err)
		return
	}
	var req VehicleRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, "decode vehicle", err)
		return
	}
	vehicle, err := h.vehicles.UpdateVehicle(r.Context(), id, req)
	if err != nil {
		h.respondError(w, "update vehicle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, vehicle)
}

func (h *Handler) removeVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "vehicle")
	if err != nil {
		h.respondError(w, "parse vehicle id", err)
		return
	}
	if err := h.vehicles.DeleteVehicle(r.Context(), id); err != nil {
		h.respondError(w, "delete vehicle", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// REPAIRS
// ============================================================================

func (h *Handler) listRepairs(w http.ResponseWriter, r *http.Request) {
	var vehicleID *int64
	if raw := strings.TrimSpace(r.URL.Query().Get("vehicleId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.respondError(w, "parse vehicle id", fmt.Errorf("%w: invalid vehicle id", httpx.ErrValidation))
			return
		}
		vehicleID = &id
	}
	repairs, err := h.repairs.ListRepairs(r.Context(), vehicleID)
	if err != nil {
		h.respondError(w, "list repairs", err)
		return
	}
	httpx.JSON(w, http.StatusOK, repairs)
}

func (h *Handler) showRepair(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "repair")
	if err != nil {
		h.respondError(w, "parse repair id", err)
		return
	}
	repair, err := h.repairs.GetRepair(r.Context(), id)
	if err != nil {
		h.respondError(w, "get repair", err)
		return
	}
	httpx.JSON(w, http.StatusOK, repair)
}

func (h *Handler) createRepair(w http.ResponseWriter, r *http.Request) {
	var req RepairRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, "decode repair", err)
		return
	}
	repair, err := h.repairs.CreateRepair(r.Context(), req)
	if err != nil {
		h.respondError(w, "create repair", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, repair)
}

func (h *Handler) updateRepair(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "repair")
	if err != nil {
		h.respondError(w, "parse repair id", err)
		return
	}
	var req RepairRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, "decode repair", err)
		return
	}
	repair, err := h.repairs.UpdateRepair(r.Context(), id, req)
	if err != nil {
		h.respondError(w, "update repair", err)
		return
	}
	httpx.JSON(w, http.StatusOK, repair)
}

func (h *Handler) removeRepair(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "repair")
	if err != nil {
		h.respondError(w, "parse repair id", err)
		return
	}
	if err := h.repairs.DeleteRepair(r.Context(), id); err != nil {
		h.respondError(w, "delete repair", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func optionalQuery(raw string) *string {
	if raw == "" {
		return nil
	}
	return &raw
}
