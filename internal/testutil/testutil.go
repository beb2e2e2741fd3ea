// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"database/sql"
	"io/fs"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/resourcehub/internal/auth"
	"github.com/olegiv/resourcehub/internal/model"
	"github.com/olegiv/resourcehub/internal/store"
	"github.com/olegiv/resourcehub/web"
)

// TestLogger creates a test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a logger that only outputs errors.
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError + 4,
	}))
}

// Templates returns the embedded templates rooted the way the renderer
// expects them.
func Templates(t *testing.T) fs.FS {
	t.Helper()
	sub, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("sub templates: %v", err)
	}
	return sub
}

// TestDB creates a temporary test database with migrations applied.
// It is closed automatically when the test ends.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "resourcehub-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateUser inserts an account with the given role and password and
// returns its identity.
func CreateUser(t *testing.T, db *sql.DB, name, email, password string, role model.Role) *model.Identity {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	row, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         string(role),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	return &model.Identity{ID: row.ID, Name: row.Name, Email: row.Email, Role: model.Role(row.Role)}
}

// CreateResource inserts a resource directly, bypassing the lifecycle service.
func CreateResource(t *testing.T, db *sql.DB, owner *model.Identity, title, subject string, status model.Status) model.Resource {
	t.Helper()

	row, err := store.New(db).CreateResource(context.Background(), store.CreateResourceParams{
		ID:          uuid.NewString(),
		Title:       title,
		Description: "Description of " + title,
		Subject:     subject,
		FileUrl:     "/uploads/" + uuid.NewString() + "-file.pdf",
		Status:      string(status),
		UploadedBy:  owner.ID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateResource: %v", err)
	}

	return model.Resource{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Subject:     row.Subject,
		FileURL:     row.FileUrl,
		Status:      model.Status(row.Status),
		UploadedBy:  row.UploadedBy,
		CreatedAt:   row.CreatedAt,
	}
}

// PDF returns a fake PDF body of the given size.
func PDF(size int) []byte {
	head := []byte("%PDF-1.4\n")
	if size <= len(head) {
		return head[:size]
	}
	body := make([]byte, size)
	copy(body, head)
	for i := len(head); i < size; i++ {
		body[i] = 'x'
	}
	return body
}
