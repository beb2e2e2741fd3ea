// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/resourcehub/internal/auth"
	"github.com/olegiv/resourcehub/internal/model"
	"github.com/olegiv/resourcehub/internal/store"
)

// RegisterInput is the self-service registration payload.
// Any role sent by a client has nowhere to land here.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput is the credentials payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AccountService registers and authenticates users.
type AccountService struct {
	queries *store.Queries
	events  *EventService
	metrics Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// AccountOption configures an AccountService.
type AccountOption func(*AccountService)

// WithAccountEvents records audit events for account operations.
func WithAccountEvents(e *EventService) AccountOption {
	return func(s *AccountService) { s.events = e }
}

// WithAccountMetrics reports registration and login counters.
func WithAccountMetrics(m Metrics) AccountOption {
	return func(s *AccountService) { s.metrics = m }
}

// WithAccountLogger sets the logger.
func WithAccountLogger(l *slog.Logger) AccountOption {
	return func(s *AccountService) { s.logger = l }
}

// NewAccountService creates an AccountService backed by db.
func NewAccountService(db *sql.DB, opts ...AccountOption) *AccountService {
	s := &AccountService{
		queries: store.New(db),
		metrics: nopMetrics{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a USER account. Duplicate emails are detected by the
// store's unique constraint, so concurrent registrations cannot both succeed.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.Identity, error) {
	user, err := s.create(ctx, in, model.RoleUser)
	if err != nil {
		return nil, err
	}

	s.metrics.UserRegistered()
	s.events.LogUserEvent(ctx, model.EventLevelInfo, "User registered", user.ID, map[string]any{"email": user.Email})
	return user.Identity(), nil
}

// CreateAdmin creates an ADMIN account. It is only reachable from the
// command line, never from a request.
func (s *AccountService) CreateAdmin(ctx context.Context, in RegisterInput) (*model.Identity, error) {
	user, err := s.create(ctx, in, model.RoleAdmin)
	if err != nil {
		return nil, err
	}

	s.events.LogUserEvent(ctx, model.EventLevelWarning, "Admin account created", user.ID, map[string]any{"email": user.Email})
	return user.Identity(), nil
}

// PromoteToAdmin grants ADMIN to an existing account. Command line only.
func (s *AccountService) PromoteToAdmin(ctx context.Context, email string) (*model.Identity, error) {
	row, err := s.queries.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, s.storageError("looking up user", err)
	}

	if err := s.queries.UpdateUserRole(ctx, store.UpdateUserRoleParams{Role: string(model.RoleAdmin), ID: row.ID}); err != nil {
		return nil, s.storageError("updating role", err)
	}

	s.events.LogUserEvent(ctx, model.EventLevelWarning, "User promoted to admin", row.ID, map[string]any{"email": row.Email})
	row.Role = string(model.RoleAdmin)
	return userFromRow(row).Identity(), nil
}

// Authenticate verifies credentials. Unknown email and wrong password both
// yield ErrInvalidCredentials and cost one bcrypt comparison.
func (s *AccountService) Authenticate(ctx context.Context, in LoginInput) (*model.Identity, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	row, err := s.queries.GetUserByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			auth.BurnCompare(in.Password)
			s.loginFailed(ctx, in.Email, "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, s.storageError("looking up user", err)
	}

	ok, err := auth.CheckPassword(in.Password, row.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash is unreadable", "user_id", row.ID, "error", err)
		s.loginFailed(ctx, in.Email, "bad hash")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		s.loginFailed(ctx, in.Email, "wrong password")
		return nil, ErrInvalidCredentials
	}

	s.metrics.LoginAttempt(true)
	s.events.LogAuthEvent(ctx, model.EventLevelInfo, "User logged in", row.ID, map[string]any{"email": row.Email})
	return userFromRow(row).Identity(), nil
}

// IdentityByID reloads an identity, including its current role.
func (s *AccountService) IdentityByID(ctx context.Context, id string) (*model.Identity, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	row, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, s.storageError("loading user", err)
	}
	return userFromRow(row).Identity(), nil
}

func (s *AccountService) create(ctx context.Context, in RegisterInput, role model.Role) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, NewValidationError("password", fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes))
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, s.storageError("hashing password", err)
	}

	row, err := s.queries.CreateUser(ctx, store.CreateUserParams{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         string(role),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, fmt.Errorf("email %w", ErrConflict)
		}
		return nil, s.storageError("creating user", err)
	}
	return userFromRow(row), nil
}

func (s *AccountService) loginFailed(ctx context.Context, email, reason string) {
	s.metrics.LoginAttempt(false)
	s.events.LogAuthEvent(ctx, model.EventLevelWarning, "Failed login attempt", "", map[string]any{
		"email":  email,
		"reason": reason,
	})
}

func (s *AccountService) storageError(op string, err error) error {
	s.logger.Error("account store failure", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func userFromRow(row store.User) *model.User {
	return &model.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         model.Role(row.Role),
		CreatedAt:    row.CreatedAt,
	}
}
