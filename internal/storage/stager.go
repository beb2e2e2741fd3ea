// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage validates uploaded documents and persists them through a
// pluggable blob backend (local disk or S3).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/olegiv/resourcehub/internal/model"
)

// MaxFileSize is the largest accepted upload (5 MiB, inclusive).
const MaxFileSize int64 = 5 * 1024 * 1024

var (
	// ErrUnsupportedType is returned when the declared content type is not PDF.
	ErrUnsupportedType = errors.New("only PDF files are allowed")
	// ErrTooLarge is returned when the file exceeds MaxFileSize.
	ErrTooLarge = errors.New("file size must be less than 5MB")
	// ErrWrite wraps backend failures.
	ErrWrite = errors.New("storage write failed")
)

// Blob persists named objects and addresses them by locator.
type Blob interface {
	// Put stores r under name. It must leave nothing behind when it fails.
	Put(ctx context.Context, name string, r io.Reader) (locator string, err error)
	// Remove deletes the object behind locator. Missing objects are not an error.
	Remove(ctx context.Context, locator string) error
}

// File is an upload as declared by the client.
type File struct {
	Reader      io.Reader
	Name        string
	ContentType string
	Size        int64
}

// Stager validates and stores uploaded files.
type Stager struct {
	blob    Blob
	maxSize int64
	newID   func() string
}

// NewStager creates a Stager writing to blob.
func NewStager(blob Blob) *Stager {
	return &Stager{
		blob:    blob,
		maxSize: MaxFileSize,
		newID:   uuid.NewString,
	}
}

// Validate checks the declared type first, then the declared size.
func (s *Stager) Validate(f File) error {
	if f.ContentType != model.MimeTypePDF {
		return ErrUnsupportedType
	}
	if f.Size > s.maxSize {
		return ErrTooLarge
	}
	return nil
}

// Stage validates f and writes it under a fresh collision-resistant name.
// The returned locator is the public address of the stored file. The reader
// is capped at the size limit, so an understated Size still fails with
// ErrTooLarge and nothing is kept.
func (s *Stager) Stage(ctx context.Context, f File) (string, error) {
	if err := s.Validate(f); err != nil {
		return "", err
	}

	name := s.newID() + "-" + SanitizeFilename(f.Name)
	body := &cappedReader{r: f.Reader, remaining: s.maxSize}

	locator, err := s.blob.Put(ctx, name, body)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return "", ErrTooLarge
		}
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return locator, nil
}

// Discard removes a previously staged file.
func (s *Stager) Discard(ctx context.Context, locator string) error {
	if err := s.blob.Remove(ctx, locator); err != nil {
		return fmt.Errorf("%w: removing %s: %w", ErrWrite, locator, err)
	}
	return nil
}

// cappedReader fails with ErrTooLarge once more than remaining bytes are read.
type cappedReader struct {
	r         io.Reader
	remaining int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.remaining < 0 {
		return 0, ErrTooLarge
	}
	// Allow one byte past the limit so overflow is detectable.
	if int64(len(p)) > c.remaining+1 {
		p = p[:c.remaining+1]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
