// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const createResource = `-- name: CreateResource :one
INSERT INTO resources (id, title, description, subject, file_url, status, uploaded_by, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, title, description, subject, file_url, status, uploaded_by, created_at
`

type CreateResourceParams struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	FileUrl     string    `json:"file_url"`
	Status      string    `json:"status"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func (q *Queries) CreateResource(ctx context.Context, arg CreateResourceParams) (Resource, error) {
	row := q.db.QueryRowContext(ctx, createResource,
		arg.ID,
		arg.Title,
		arg.Description,
		arg.Subject,
		arg.FileUrl,
		arg.Status,
		arg.UploadedBy,
		arg.CreatedAt,
	)
	var i Resource
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.Subject,
		&i.FileUrl,
		&i.Status,
		&i.UploadedBy,
		&i.CreatedAt,
	)
	return i, err
}

const getResourceByID = `-- name: GetResourceByID :one
SELECT id, title, description, subject, file_url, status, uploaded_by, created_at FROM resources
WHERE id = ?
`

func (q *Queries) GetResourceByID(ctx context.Context, id string) (Resource, error) {
	row := q.db.QueryRowContext(ctx, getResourceByID, id)
	var i Resource
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.Subject,
		&i.FileUrl,
		&i.Status,
		&i.UploadedBy,
		&i.CreatedAt,
	)
	return i, err
}

const approveResource = `-- name: ApproveResource :one
UPDATE resources SET status = 'APPROVED'
WHERE id = ? AND status = 'PENDING'
RETURNING id, title, description, subject, file_url, status, uploaded_by, created_at
`

// ApproveResource transitions a PENDING resource in a single statement.
// It returns sql.ErrNoRows when the id is unknown or already APPROVED.
func (q *Queries) ApproveResource(ctx context.Context, id string) (Resource, error) {
	row := q.db.QueryRowContext(ctx, approveResource, id)
	var i Resource
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Description,
		&i.Subject,
		&i.FileUrl,
		&i.Status,
		&i.UploadedBy,
		&i.CreatedAt,
	)
	return i, err
}

const listResources = `-- name: ListResources :many
SELECT id, title, description, subject, file_url, status, uploaded_by, created_at FROM resources
WHERE (?1 = '' OR status = ?1)
  AND (?2 = '' OR subject = ?2)
ORDER BY created_at DESC, rowid DESC
`

// ListResourcesParams filters a listing. Empty fields do not filter.
type ListResourcesParams struct {
	Status  string `json:"status"`
	Subject string `json:"subject"`
}

func (q *Queries) ListResources(ctx context.Context, arg ListResourcesParams) ([]Resource, error) {
	rows, err := q.db.QueryContext(ctx, listResources, arg.Status, arg.Subject)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanResources(rows)
}

const listResourcesByOwner = `-- name: ListResourcesByOwner :many
SELECT id, title, description, subject, file_url, status, uploaded_by, created_at FROM resources
WHERE uploaded_by = ?
ORDER BY created_at DESC, rowid DESC
`

func (q *Queries) ListResourcesByOwner(ctx context.Context, uploadedBy string) ([]Resource, error) {
	rows, err := q.db.QueryContext(ctx, listResourcesByOwner, uploadedBy)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanResources(rows)
}

const listFileURLs = `-- name: ListFileURLs :many
SELECT file_url FROM resources
`

func (q *Queries) ListFileURLs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listFileURLs)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := []string{}
	for rows.Next() {
		var fileURL string
		if err := rows.Scan(&fileURL); err != nil {
			return nil, err
		}
		items = append(items, fileURL)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countResourcesByStatus = `-- name: CountResourcesByStatus :one
SELECT COUNT(*) FROM resources WHERE status = ?
`

func (q *Queries) CountResourcesByStatus(ctx context.Context, status string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countResourcesByStatus, status)
	var count int64
	err := row.Scan(&count)
	return count, err
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanResources(rows rowScanner) ([]Resource, error) {
	items := []Resource{}
	for rows.Next() {
		var i Resource
		if err := rows.Scan(
			&i.ID,
			&i.Title,
			&i.Description,
			&i.Subject,
			&i.FileUrl,
			&i.Status,
			&i.UploadedBy,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
