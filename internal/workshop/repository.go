package workshop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/tallercar/tallercar/internal/platform/db"
	"github.com/tallercar/tallercar/internal/platform/httpx"
)

// Repository exposes the workshop reads used by analytics and the catalog and
// invoice writes.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	FindInvoicesByIssueDateBetween(ctx context.Context, from, to time.Time) ([]Invoice, error)
	FindInvoiceItemsByTypeAndIssueDateBetween(ctx context.Context, itemType ItemType, from, to time.Time) ([]InvoiceItem, error)
	FindVehicles(ctx context.Context, filter VehicleFilter) ([]Vehicle, error)
	GetVehicle(ctx context.Context, id int64) (Vehicle, error)

	ListClients(ctx context.Context) ([]Client, error)
	GetClient(ctx context.Context, id int64) (Client, error)
	CreateClient(ctx context.Context, client Client) (int64, error)
	UpdateClient(ctx context.Context, client Client) error
	DeleteClient(ctx context.Context, id int64) error

	VehicleClientID(ctx context.Context, vehicleID int64) (int64, error)
	CreateVehicle(ctx context.Context, vehicle Vehicle) (int64, error)
	UpdateVehicle(ctx context.Context, vehicle Vehicle) error
	DeleteVehicle(ctx context.Context, id int64) error

	MechanicExists(ctx context.Context, id int64) (bool, error)
	ListRepairs(ctx context.Context, vehicleID *int64) ([]Repair, error)
	GetRepair(ctx context.Context, id int64) (Repair, error)
	CreateRepair(ctx context.Context, repair Repair) (int64, error)
	UpdateRepair(ctx context.Context, repair Repair) error
	DeleteRepair(ctx context.Context, id int64) error

	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	CreateInvoice(ctx context.Context, invoice Invoice) (int64, error)
	UpdateInvoice(ctx context.Context, invoice Invoice) error
	ReplaceInvoiceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error
	DeleteInvoice(ctx context.Context, id int64) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool, pool: pool}
}

// WithTx runs fn with a repository bound to a single transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &PGRepository{db: tx, pool: r.pool})
	})
}

// ============================================================================
// INVOICE READS
// ============================================================================

const invoiceSelect = `
	SELECT i.id, i.invoice_number, i.repair_id, i.client_id, c.name,
	       i.mechanic_id, m.name, i.issue_date, i.total_amount,
	       r.id, r.vehicle_id, r.mechanic_id, rm.name, r.description,
	       r.start_time, r.end_time, r.labor_cost, r.status
	FROM invoices i
	JOIN clients c ON c.id = i.client_id
	JOIN mechanics m ON m.id = i.mechanic_id
	LEFT JOIN repairs r ON r.id = i.repair_id
	LEFT JOIN mechanics rm ON rm.id = r.mechanic_id`

// FindInvoicesByIssueDateBetween returns invoices issued in [from, to] with
// their linked repair and ordered items.
func (r *PGRepository) FindInvoicesByIssueDateBetween(ctx context.Context, from, to time.Time) ([]Invoice, error) {
	query := invoiceSelect + `
	WHERE i.issue_date BETWEEN $1 AND $2
	ORDER BY i.issue_date, i.id`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("workshop: query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workshop: iterate invoices: %w", err)
	}
	if err := r.attachItems(ctx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindInvoiceItemsByTypeAndIssueDateBetween returns items of the given type whose
// parent invoice was issued in [from, to].
func (r *PGRepository) FindInvoiceItemsByTypeAndIssueDateBetween(ctx context.Context, itemType ItemType, from, to time.Time) ([]InvoiceItem, error) {
	if !itemType.Valid() {
		return nil, fmt.Errorf("%w: unknown item type %q", httpx.ErrValidation, itemType)
	}
	const query = `
		SELECT it.id, it.invoice_id, it.description, it.item_type,
		       it.unit_price, it.quantity, it.subtotal
		FROM invoice_items it
		JOIN invoices i ON i.id = it.invoice_id
		WHERE it.item_type = $1 AND i.issue_date BETWEEN $2 AND $3
		ORDER BY i.issue_date, it.invoice_id, it.id`

	rows, err := r.db.Query(ctx, query, string(itemType), from, to)
	if err != nil {
		return nil, fmt.Errorf("workshop: query invoice items: %w", err)
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workshop: iterate invoice items: %w", err)
	}
	return items, nil
}

// GetInvoice loads one invoice with its items.
func (r *PGRepository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	query := invoiceSelect + ` WHERE i.id = $1`
	inv, err := scanInvoice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, fmt.Errorf("invoice %d: %w", id, httpx.ErrNotFound)
		}
		return Invoice{}, err
	}
	invoices := []Invoice{inv}
	if err := r.attachItems(ctx, invoices); err != nil {
		return Invoice{}, err
	}
	return invoices[0], nil
}

func (r *PGRepository) attachItems(ctx context.Context, invoices []Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	byInvoice, err := r.itemsByInvoice(ctx, ids)
	if err != nil {
		return err
	}
	for i := range invoices {
		invoices[i].Items = byInvoice[invoices[i].ID]
		if invoices[i].Items == nil {
			invoices[i].Items = []InvoiceItem{}
		}
	}
	return nil
}

func (r *PGRepository) itemsByInvoice(ctx context.Context, invoiceIDs []int64) (map[int64][]InvoiceItem, error) {
	const query = `
		SELECT id, invoice_id, description, item_type, unit_price, quantity, subtotal
		FROM invoice_items
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, id`

	rows, err := r.db.Query(ctx, query, invoiceIDs)
	if err != nil {
		return nil, fmt.Errorf("workshop: query items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]InvoiceItem, len(invoiceIDs))
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[item.InvoiceID] = append(out[item.InvoiceID], item)
	}
	return out, rows.Err()
}

// ============================================================================
// VEHICLE READS
// ============================================================================

// FindVehicles returns vehicles matching filter in id order, each with its
// repairs, invoices and items attached.
func (r *PGRepository) FindVehicles(ctx context.Context, filter VehicleFilter) ([]Vehicle, error) {
	where, args := vehicleConditions(filter)
	query := fmt.Sprintf(`
		SELECT v.id, v.license_plate, v.brand, v.model, v.year, v.client_id, c.name
		FROM vehicles v
		JOIN clients c ON c.id = v.client_id
		%s
		ORDER BY v.id`, where)

	return r.loadVehicles(ctx, query, args...)
}

// vehicleConditions renders filter as a WHERE clause of escaped ILIKE
// substring matches joined with AND. Needles are composed to NFC.
func vehicleConditions(filter VehicleFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	addContains := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, "%"+escapeLike(norm.NFC.String(*value))+"%")
		conditions = append(conditions, fmt.Sprintf("%s ILIKE $%d", column, len(args)))
	}
	addContains("v.license_plate", filter.LicensePlateContains)
	addContains("v.brand", filter.BrandContains)
	addContains("c.name", filter.ClientNameContains)

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// GetVehicle loads one vehicle with its full service history.
func (r *PGRepository) GetVehicle(ctx context.Context, id int64) (Vehicle, error) {
	const query = `
		SELECT v.id, v.license_plate, v.brand, v.model, v.year, v.client_id, c.name
		FROM vehicles v
		JOIN clients c ON c.id = v.client_id
		WHERE v.id = $1`

	vehicles, err := r.loadVehicles(ctx, query, id)
	if err != nil {
		return Vehicle{}, err
	}
	if len(vehicles) == 0 {
		return Vehicle{}, fmt.Errorf("vehicle %d: %w", id, httpx.ErrNotFound)
	}
	return vehicles[0], nil
}

func (r *PGRepository) loadVehicles(ctx context.Context, query string, args ...interface{}) ([]Vehicle, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("workshop: query vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []Vehicle
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.LicensePlate, &v.Brand, &v.Model, &v.Year, &v.ClientID, &v.ClientName); err != nil {
			return nil, fmt.Errorf("workshop: scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workshop: iterate vehicles: %w", err)
	}
	if len(vehicles) == 0 {
		return vehicles, nil
	}

	ids := make([]int64, 0, len(vehicles))
	for _, v := range vehicles {
		ids = append(ids, v.ID)
	}
	repairs, err := r.repairsByVehicle(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range vehicles {
		vehicles[i].Repairs = repairs[vehicles[i].ID]
		if vehicles[i].Repairs == nil {
			vehicles[i].Repairs = []Repair{}
		}
	}
	return vehicles, nil
}

const repairSelect = `
	SELECT r.id, r.vehicle_id, r.mechanic_id, m.name, r.description,
	       r.start_time, r.end_time, r.labor_cost, r.status
	FROM repairs r
	JOIN mechanics m ON m.id = r.mechanic_id`

func (r *PGRepository) repairsByVehicle(ctx context.Context, vehicleIDs []int64) (map[int64][]Repair, error) {
	query := repairSelect + `
	WHERE r.vehicle_id = ANY($1)
	ORDER BY r.vehicle_id, r.id`

	rows, err := r.db.Query(ctx, query, vehicleIDs)
	if err != nil {
		return nil, fmt.Errorf("workshop: query repairs: %w", err)
	}
	defer rows.Close()

	var repairs []Repair
	for rows.Next() {
		rep, err := scanRepair(rows)
		if err != nil {
			return nil, err
		}
		repairs = append(repairs, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workshop: iterate repairs: %w", err)
	}

	repairIDs := make([]int64, 0, len(repairs))
	for _, rep := range repairs {
		repairIDs = append(repairIDs, rep.ID)
	}
	invoices, err := r.invoicesByRepair(ctx, repairIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[int64][]Repair, len(vehicleIDs))
	for _, rep := range repairs {
		if inv, ok := invoices[rep.ID]; ok {
			rep.Invoice = &inv
		}
		out[rep.VehicleID] = append(out[rep.VehicleID], rep)
	}
	return out, nil
}

func (r *PGRepository) invoicesByRepair(ctx context.Context, repairIDs []int64) (map[int64]Invoice, error) {
	out := make(map[int64]Invoice, len(repairIDs))
	if len(repairIDs) == 0 {
		return out, nil
	}
	query := invoiceSelect + `
	WHERE i.repair_id = ANY($1)
	ORDER BY i.id`

	rows, err := r.db.Query(ctx, query, repairIDs)
	if err != nil {
		return nil, fmt.Errorf("workshop: query repair invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		// The repair side already carries the invoice; avoid a cycle.
		inv.Repair = nil
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workshop: iterate repair invoices: %w", err)
	}
	if err := r.attachItems(ctx, invoices); err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		if inv.RepairID == nil {
			continue
		}
		if _, seen := out[*inv.RepairID]; !seen {
			out[*inv.RepairID] = inv
		}
	}
	return out, nil
}

// GetRepair loads a repair without its invoice.
func (r *PGRepository) GetRepair(ctx context.Context, id int64) (Repair, error) {
	query := repairSelect + ` WHERE r.id = $1`
	rep, err := scanRepair(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Repair{}, fmt.Errorf("repair %d: %w", id, httpx.ErrNotFound)
		}
		return Repair{}, err
	}
	return rep, nil
}

// VehicleClientID returns the owner of a vehicle without loading its history.
func (r *PGRepository) VehicleClientID(ctx context.Context, vehicleID int64) (int64, error) {
	var clientID int64
	err := r.db.QueryRow(ctx, `SELECT client_id FROM vehicles WHERE id = $1`, vehicleID).Scan(&clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("vehicle %d: %w", vehicleID, httpx.ErrNotFound)
		}
		return 0, fmt.Errorf("workshop: vehicle owner: %w", err)
	}
	return clientID, nil
}

// MechanicExists reports whether a mechanic row exists.
func (r *PGRepository) MechanicExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM mechanics WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("workshop: mechanic exists: %w", err)
	}
	return exists, nil
}

// ============================================================================
// CLIENTS
// ============================================================================

// ListClients returns every client in id order.
func (r *PGRepository) ListClients(ctx context.Context) ([]Client, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, email, phone FROM clients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("workshop: query clients: %w", err)
	}
	defer rows.Close()

	clients := []Client{}
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone); err != nil {
			return nil, fmt.Errorf("workshop: scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// GetClient loads one client.
func (r *PGRepository) GetClient(ctx context.Context, id int64) (Client, error) {
	var c Client
	err := r.db.QueryRow(ctx, `SELECT id, name, email, phone FROM clients WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, fmt.Errorf("client %d: %w", id, httpx.ErrNotFound)
		}
		return Client{}, fmt.Errorf("workshop: get client: %w", err)
	}
	return c, nil
}

func (r *PGRepository) CreateClient(ctx context.Context, client Client) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO clients (name, email, phone) VALUES ($1, $2, $3)
		RETURNING id`, client.Name, client.Email, client.Phone).Scan(&id)
	if err != nil {
		return 0, mapWriteError("create client", err)
	}
	return id, nil
}

func (r *PGRepository) UpdateClient(ctx context.Context, client Client) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE clients SET name = $2, email = $3, phone = $4
		WHERE id = $1`, client.ID, client.Name, client.Email, client.Phone)
	if err != nil {
		return mapWriteError("update client", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("client %d: %w", client.ID, httpx.ErrNotFound)
	}
	return nil
}

// DeleteClient removes a client. Clients that still own vehicles or
// invoices are rejected with ErrConflict.
func (r *PGRepository) DeleteClient(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "clients", "client", id)
}

// ============================================================================
// VEHICLE WRITES
// ============================================================================

func (r *PGRepository) CreateVehicle(ctx context.Context, vehicle Vehicle) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO vehicles (license_plate, brand, model, year, client_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		vehicle.LicensePlate, vehicle.Brand, vehicle.Model, vehicle.Year, vehicle.ClientID,
	).Scan(&id)
	if err != nil {
		return 0, mapWriteError("create vehicle", err)
	}
	return id, nil
}

func (r *PGRepository) UpdateVehicle(ctx context.Context, vehicle Vehicle) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE vehicles
		SET license_plate = $2, brand = $3, model = $4, year = $5, client_id = $6
		WHERE id = $1`,
		vehicle.ID, vehicle.LicensePlate, vehicle.Brand, vehicle.Model, vehicle.Year, vehicle.ClientID,
	)
	if err != nil {
		return mapWriteError("update vehicle", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle %d: %w", vehicle.ID, httpx.ErrNotFound)
	}
	return nil
}

// DeleteVehicle removes a vehicle; its repairs cascade.
func (r *PGRepository) DeleteVehicle(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "vehicles", "vehicle", id)
}

// ============================================================================
// REPAIR WRITES
// ============================================================================

// ListRepairs returns repairs in id order, optionally narrowed to one vehicle.
func (r *PGRepository) ListRepairs(ctx context.Context, vehicleID *int64) ([]Repair, error) {
	query := repairSelect + ` ORDER BY r.id`
	var args []interface{}
	if vehicleID != nil {
		query = repairSelect + ` WHERE r.vehicle_id = $1 ORDER BY r.id`
		args = append(args, *vehicleID)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("workshop: query repairs: %w", err)
	}
	defer rows.Close()

	repairs := []Repair{}
	for rows.Next() {
		rep, err := scanRepair(rows)
		if err != nil {
			return nil, err
		}
		repairs = append(repairs, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workshop: iterate repairs: %w", err)
	}
	return repairs, nil
}

func (r *PGRepository) CreateRepair(ctx context.Context, repair Repair) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO repairs (vehicle_id, mechanic_id, description, start_time, end_time, labor_cost, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		repair.VehicleID, repair.MechanicID, repair.Description, repair.StartTime,
		repair.EndTime, repair.LaborCost, string(repair.Status),
	).Scan(&id)
	if err != nil {
		return 0, mapWriteError("create repair", err)
	}
	return id, nil
}

func (r *PGRepository) UpdateRepair(ctx context.Context, repair Repair) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE repairs
		SET vehicle_id = $2, mechanic_id = $3, description = $4, start_time = $5,
		    end_time = $6, labor_cost = $7, status = $8
		WHERE id = $1`,
		repair.ID, repair.VehicleID, repair.MechanicID, repair.Description, repair.StartTime,
		repair.EndTime, repair.LaborCost, string(repair.Status),
	)
	if err != nil {
		return mapWriteError("update repair", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repair %d: %w", repair.ID, httpx.ErrNotFound)
	}
	return nil
}

// DeleteRepair removes a repair; a billed invoice keeps its row with the
// repair reference cleared.
func (r *PGRepository) DeleteRepair(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "repairs", "repair", id)
}

// deleteByID issues a single-row delete. table is always a package constant.
func (r *PGRepository) deleteByID(ctx context.Context, table, entity string, id int64) error {
	tag, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return mapWriteError("delete "+entity, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, httpx.ErrNotFound)
	}
	return nil
}

// ============================================================================
// INVOICE WRITES
// ============================================================================

// CreateInvoice inserts the invoice header and its items, returning the new id.
func (r *PGRepository) CreateInvoice(ctx context.Context, invoice Invoice) (int64, error) {
	const query = `
		INSERT INTO invoices (invoice_number, repair_id, client_id, mechanic_id, issue_date, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query,
		invoice.InvoiceNumber, invoice.RepairID, invoice.ClientID, invoice.MechanicID,
		invoice.IssueDate, invoice.TotalAmount,
	).Scan(&id)
	if err != nil {
		return 0, mapWriteError("create invoice", err)
	}
	if err := r.ReplaceInvoiceItems(ctx, id, invoice.Items); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateInvoice rewrites the invoice header.
func (r *PGRepository) UpdateInvoice(ctx context.Context, invoice Invoice) error {
	const query = `
		UPDATE invoices
		SET invoice_number = $2, repair_id = $3, client_id = $4, mechanic_id = $5,
		    issue_date = $6, total_amount = $7, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		invoice.ID, invoice.InvoiceNumber, invoice.RepairID, invoice.ClientID,
		invoice.MechanicID, invoice.IssueDate, invoice.TotalAmount,
	)
	if err != nil {
		return mapWriteError("update invoice", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %d: %w", invoice.ID, httpx.ErrNotFound)
	}
	return nil
}

// ReplaceInvoiceItems swaps the item set of an invoice.
func (r *PGRepository) ReplaceInvoiceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("workshop: clear invoice items: %w", err)
	}
	const insert = `
		INSERT INTO invoice_items (invoice_id, description, item_type, unit_price, quantity, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, item := range items {
		if _, err := r.db.Exec(ctx, insert,
			invoiceID, item.Description, string(item.ItemType), item.UnitPrice, item.Quantity, item.Subtotal,
		); err != nil {
			return fmt.Errorf("workshop: insert invoice item: %w", err)
		}
	}
	return nil
}

// DeleteInvoice removes an invoice; items cascade.
func (r *PGRepository) DeleteInvoice(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("workshop: delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}

// ============================================================================
// SCAN HELPERS
// ============================================================================

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv          Invoice
		repairID     *int64
		vehicleID    *int64
		mechanicID   *int64
		mechanicName *string
		description  *string
		startTime    *time.Time
		endTime      *time.Time
		laborCost    decimal.NullDecimal
		status       *string
	)
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.RepairID, &inv.ClientID, &inv.ClientName,
		&inv.MechanicID, &inv.MechanicName, &inv.IssueDate, &inv.TotalAmount,
		&repairID, &vehicleID, &mechanicID, &mechanicName, &description,
		&startTime, &endTime, &laborCost, &status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, err
		}
		return Invoice{}, fmt.Errorf("workshop: scan invoice: %w", err)
	}
	if repairID != nil {
		rep := Repair{
			ID:           *repairID,
			VehicleID:    deref(vehicleID),
			MechanicID:   deref(mechanicID),
			MechanicName: deref(mechanicName),
			Description:  deref(description),
			EndTime:      endTime,
			LaborCost:    laborCost.Decimal,
			Status:       RepairStatus(deref(status)),
		}
		if startTime != nil {
			rep.StartTime = *startTime
		}
		inv.Repair = &rep
	}
	return inv, nil
}

func scanRepair(row pgx.Row) (Repair, error) {
	var rep Repair
	var status string
	err := row.Scan(
		&rep.ID, &rep.VehicleID, &rep.MechanicID, &rep.MechanicName, &rep.Description,
		&rep.StartTime, &rep.EndTime, &rep.LaborCost, &status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Repair{}, err
		}
		return Repair{}, fmt.Errorf("workshop: scan repair: %w", err)
	}
	rep.Status = RepairStatus(status)
	return rep, nil
}

func scanItem(row pgx.Row) (InvoiceItem, error) {
	var item InvoiceItem
	var itemType string
	err := row.Scan(
		&item.ID, &item.InvoiceID, &item.Description, &itemType,
		&item.UnitPrice, &item.Quantity, &item.Subtotal,
	)
	if err != nil {
		return InvoiceItem{}, fmt.Errorf("workshop: scan invoice item: %w", err)
	}
	item.ItemType = ItemType(itemType)
	return item, nil
}

func mapWriteError(op string, err error) error {
	switch {
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, httpx.ErrDuplicate)
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("%s: %w", op, httpx.ErrConflict)
	}
	return fmt.Errorf("workshop: %s: %w", op, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(v string) string {
	return likeEscaper.Replace(v)
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

var _ Repository = (*PGRepository)(nil)
