package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallercar/tallercar/internal/platform/db"
	"github.com/tallercar/tallercar/internal/platform/httpx"
	"github.com/tallercar/tallercar/internal/workshop"
)

// Repository defines persistence operations for mechanic accounts.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (workshop.Mechanic, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	CreateMechanic(ctx context.Context, mechanic workshop.Mechanic) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const findMechanicByUsername = `
SELECT id, name, username, COALESCE(email, ''), password_hash, role, active
FROM mechanics
WHERE username = $1`

// FindByUsername fetches a mechanic by login name.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (workshop.Mechanic, error) {
	var m workshop.Mechanic
	err := r.pool.QueryRow(ctx, findMechanicByUsername, username).
		Scan(&m.ID, &m.Name, &m.Username, &m.Email, &m.PasswordHash, &m.Role, &m.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return workshop.Mechanic{}, fmt.Errorf("mechanic %q: %w", username, httpx.ErrNotFound)
		}
		return workshop.Mechanic{}, fmt.Errorf("auth: find mechanic: %w", err)
	}
	return m, nil
}

// EmailTaken reports whether another mechanic already registered email.
func (r *PGRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM mechanics WHERE email = $1)`, email).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("auth: check email: %w", err)
	}
	return taken, nil
}

const insertMechanic = `
INSERT INTO mechanics (name, username, email, password_hash, role, active)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
RETURNING id`

const emailConstraint = "mechanics_email_key"

// CreateMechanic inserts a mechanic account. A taken username yields
// ErrDuplicate and a taken email ErrValidation.
func (r *PGRepository) CreateMechanic(ctx context.Context, m workshop.Mechanic) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, insertMechanic, m.Name, m.Username, m.Email, m.PasswordHash, m.Role, m.Active).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == emailConstraint:
			return 0, fmt.Errorf("%w: email %q is already registered", httpx.ErrValidation, m.Email)
		case db.IsUniqueViolation(err):
			return 0, fmt.Errorf("username %q: %w", m.Username, httpx.ErrDuplicate)
		}
		return 0, fmt.Errorf("auth: create mechanic: %w", err)
	}
	return id, nil
}

var _ Repository = (*PGRepository)(nil)
