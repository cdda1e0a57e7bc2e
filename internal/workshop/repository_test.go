package workshop

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallercar/tallercar/internal/platform/httpx"
)

type recordedQuery struct {
	sql  string
	args []interface{}
}

// scriptedDB answers queries in order from a fixed list of row sets.
type scriptedDB struct {
	results [][][]interface{}
	row     []interface{}
	execTag pgconn.CommandTag
	execErr error
	calls   []recordedQuery
}

func (s *scriptedDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, recordedQuery{sql: sql, args: args})
	return s.execTag, s.execErr
}

func (s *scriptedDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	s.calls = append(s.calls, recordedQuery{sql: sql, args: args})
	rows := &scriptedRows{}
	if len(s.results) > 0 {
		rows.data = s.results[0]
		s.results = s.results[1:]
	}
	return rows, nil
}

func (s *scriptedDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	s.calls = append(s.calls, recordedQuery{sql: sql, args: args})
	return scriptedRow{values: s.row}
}

type scriptedRow struct {
	values []interface{}
}

func (r scriptedRow) Scan(dest ...interface{}) error {
	if r.values == nil {
		return pgx.ErrNoRows
	}
	return assign(r.values, dest)
}

type scriptedRows struct {
	data [][]interface{}
	pos  int
}

func (r *scriptedRows) Close()                                       {}
func (r *scriptedRows) Err() error                                   { return nil }
func (r *scriptedRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *scriptedRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *scriptedRows) RawValues() [][]byte                          { return nil }
func (r *scriptedRows) Conn() *pgx.Conn                              { return nil }

func (r *scriptedRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *scriptedRows) Scan(dest ...interface{}) error {
	return assign(r.data[r.pos-1], dest)
}

func (r *scriptedRows) Values() ([]interface{}, error) {
	return r.data[r.pos-1], nil
}

func assign(values, dest []interface{}) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d targets", len(values), len(dest))
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(v))
	}
	return nil
}

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"toyota":   "toyota",
		"50%":      `50\%`,
		"ABC_123":  `ABC\_123`,
		`back\sla`: `back\\sla`,
		`%_\`:      `\%\_\\`,
	}
	for in, want := range cases {
		assert.Equal(t, want, escapeLike(in), in)
	}
}

func TestVehicleConditions(t *testing.T) {
	where, args := vehicleConditions(VehicleFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	plate := "ab_1"
	client := "pe\u0301rez"
	where, args = vehicleConditions(VehicleFilter{LicensePlateContains: &plate, ClientNameContains: &client})
	assert.Equal(t, "WHERE v.license_plate ILIKE $1 AND c.name ILIKE $2", where)
	assert.Equal(t, []interface{}{`%ab\_1%`, "%p\u00e9rez%"}, args)
}

func TestFindVehiclesBatchesHistory(t *testing.T) {
	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	dbx := &scriptedDB{results: [][][]interface{}{
		{
			{int64(1), "ABC-123", "Toyota", "Corolla", 2018, int64(5), "Juan Pérez"},
			{int64(2), "XYZ-789", "Toyota", "Yaris", 2020, int64(5), "Juan Pérez"},
		},
		{
			{int64(10), int64(1), int64(7), "Carlos", "Cambio de aceite", start, (*time.Time)(nil), decimal.NewFromInt(50), "IN_PROGRESS"},
		},
		{},
	}}
	repo := &PGRepository{db: dbx}

	brand := "toy%"
	vehicles, err := repo.FindVehicles(context.Background(), VehicleFilter{BrandContains: &brand})
	require.NoError(t, err)
	require.Len(t, vehicles, 2)
	require.Len(t, vehicles[0].Repairs, 1)
	assert.Equal(t, RepairStatusInProgress, vehicles[0].Repairs[0].Status)
	assert.Nil(t, vehicles[0].Repairs[0].Invoice)
	assert.NotNil(t, vehicles[1].Repairs)
	assert.Empty(t, vehicles[1].Repairs)

	require.Len(t, dbx.calls, 3, "one query per level, not per vehicle")
	assert.Contains(t, dbx.calls[0].sql, "v.brand ILIKE $1")
	assert.Equal(t, []interface{}{`%toy\%%`}, dbx.calls[0].args)
	assert.Contains(t, dbx.calls[1].sql, "r.vehicle_id = ANY($1)")
	assert.Equal(t, []interface{}{[]int64{1, 2}}, dbx.calls[1].args)
	assert.Contains(t, dbx.calls[2].sql, "i.repair_id = ANY($1)")
	assert.Equal(t, []interface{}{[]int64{10}}, dbx.calls[2].args)
}

func TestFindInvoicesPassesInclusiveBounds(t *testing.T) {
	dbx := &scriptedDB{}
	repo := &PGRepository{db: dbx}
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC)

	invoices, err := repo.FindInvoicesByIssueDateBetween(context.Background(), from, to)
	require.NoError(t, err)
	assert.Empty(t, invoices)
	require.Len(t, dbx.calls, 1)
	assert.Contains(t, dbx.calls[0].sql, "i.issue_date BETWEEN $1 AND $2")
	assert.Equal(t, []interface{}{from, to}, dbx.calls[0].args)
}

func TestVehicleClientID(t *testing.T) {
	repo := &PGRepository{db: &scriptedDB{row: []interface{}{int64(5)}}}
	clientID, err := repo.VehicleClientID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), clientID)

	repo = &PGRepository{db: &scriptedDB{}}
	_, err = repo.VehicleClientID(context.Background(), 99)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestDeleteMapsWriteErrors(t *testing.T) {
	cases := []struct {
		name string
		db   *scriptedDB
		want error
	}{
		{name: "missing row", db: &scriptedDB{execTag: pgconn.NewCommandTag("DELETE 0")}, want: httpx.ErrNotFound},
		{name: "still referenced", db: &scriptedDB{execErr: &pgconn.PgError{Code: "23503"}}, want: httpx.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := (&PGRepository{db: tc.db}).DeleteClient(context.Background(), 4)
			assert.ErrorIs(t, err, tc.want)
			require.Len(t, tc.db.calls, 1)
			assert.Equal(t, "DELETE FROM clients WHERE id = $1", tc.db.calls[0].sql)
		})
	}

	dbx := &scriptedDB{execTag: pgconn.NewCommandTag("DELETE 1")}
	require.NoError(t, (&PGRepository{db: dbx}).DeleteVehicle(context.Background(), 2))
}

func TestCreateVehicleDuplicatePlate(t *testing.T) {
	repo := &PGRepository{db: &duplicateRowDB{}}
	_, err := repo.CreateVehicle(context.Background(), Vehicle{LicensePlate: "ABC-123", ClientID: 1})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

type duplicateRowDB struct{ scriptedDB }

func (d *duplicateRowDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return errRow{err: &pgconn.PgError{Code: "23505"}}
}

type errRow struct{ err error }

func (r errRow) Scan(dest ...interface{}) error { return r.err }
