package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tallercar/tallercar/internal/platform/httpx"
	"github.com/tallercar/tallercar/internal/workshop"
)

// Tokens issues and resolves bearer tokens.
type Tokens interface {
	Issue(ctx context.Context, p Principal) (string, error)
	Resolve(ctx context.Context, token string) (Principal, error)
	Revoke(ctx context.Context, token string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens Tokens
	cost   int
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens Tokens) *Service {
	return &Service{repo: repo, tokens: tokens, cost: bcrypt.DefaultCost}
}

// Authenticate validates username/password credentials of an active mechanic.
func (s *Service) Authenticate(ctx context.Context, username, password string) (workshop.Mechanic, error) {
	mechanic, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return workshop.Mechanic{}, ErrInvalidCredentials
		}
		return workshop.Mechanic{}, err
	}
	if !mechanic.Active {
		return workshop.Mechanic{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(mechanic.PasswordHash), []byte(password)); err != nil {
		return workshop.Mechanic{}, ErrInvalidCredentials
	}
	return mechanic, nil
}

// Login authenticates and issues a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (string, workshop.Mechanic, error) {
	mechanic, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", workshop.Mechanic{}, err
	}
	token, err := s.tokens.Issue(ctx, Principal{MechanicID: mechanic.ID, Username: mechanic.Username, Role: mechanic.Role})
	if err != nil {
		return "", workshop.Mechanic{}, err
	}
	return token, mechanic, nil
}

// Logout revokes a bearer token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// Register hashes the password and creates an active mechanic account. A
// taken username is checked first and yields ErrDuplicate; a taken email
// yields ErrValidation.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (workshop.Mechanic, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return workshop.Mechanic{}, fmt.Errorf("username %q: %w", username, httpx.ErrDuplicate)
	} else if !errors.Is(err, httpx.ErrNotFound) {
		return workshop.Mechanic{}, err
	}
	if email != "" {
		taken, err := s.repo.EmailTaken(ctx, email)
		if err != nil {
			return workshop.Mechanic{}, err
		}
		if taken {
			return workshop.Mechanic{}, fmt.Errorf("%w: email %q is already registered", httpx.ErrValidation, email)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return workshop.Mechanic{}, fmt.Errorf("auth: hash password: %w", err)
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = RoleMechanic
	}
	mechanic := workshop.Mechanic{
		Name:         strings.TrimSpace(req.Name),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	id, err := s.repo.CreateMechanic(ctx, mechanic)
	if err != nil {
		return workshop.Mechanic{}, err
	}
	mechanic.ID = id
	return mechanic, nil
}
