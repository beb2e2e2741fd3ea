// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const tempPattern = ".upload-*.tmp"

// LocalBlob stores files in a directory served under URLPrefix.
type LocalBlob struct {
	dir       string
	urlPrefix string
}

// NewLocalBlob creates a LocalBlob. The directory is created on first write.
func NewLocalBlob(dir, urlPrefix string) *LocalBlob {
	return &LocalBlob{
		dir:       dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
	}
}

// Dir returns the storage directory.
func (b *LocalBlob) Dir() string {
	return b.dir
}

// Put writes r to a temp file in the target directory and renames it into
// place, so readers never observe a partial file.
func (b *LocalBlob) Put(_ context.Context, name string, r io.Reader) (string, error) {
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, tempPattern)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("syncing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return "", fmt.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(b.dir, name)); err != nil {
		return "", fmt.Errorf("moving file into place: %w", err)
	}
	committed = true

	return b.urlPrefix + "/" + name, nil
}

// Remove deletes the file behind a locator produced by Put.
func (b *LocalBlob) Remove(_ context.Context, locator string) error {
	name, ok := b.nameFromLocator(locator)
	if !ok {
		return fmt.Errorf("locator %q is not served from %s", locator, b.urlPrefix)
	}
	err := os.Remove(filepath.Join(b.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Sweep removes files older than maxAge whose locator is not in referenced,
// plus temp files left behind by interrupted writes. It returns the number
// of files removed.
func (b *LocalBlob) Sweep(ctx context.Context, referenced map[string]bool, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading upload directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		name := entry.Name()
		isTemp, _ := filepath.Match(tempPattern, name)
		if !isTemp && referenced[b.urlPrefix+"/"+name] {
			continue
		}
		if err := os.Remove(filepath.Join(b.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("removing %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

func (b *LocalBlob) nameFromLocator(locator string) (string, bool) {
	name, ok := strings.CutPrefix(locator, b.urlPrefix+"/")
	if !ok || name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", false
	}
	return name, true
}
