// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Job names, also used as metric labels.
const (
	JobOrphanSweep  = "orphan_sweep"
	JobEventCleanup = "event_cleanup"
)

// Sweeper removes stored files that nothing references.
type Sweeper interface {
	Sweep(ctx context.Context, referenced map[string]bool, maxAge time.Duration) (int, error)
}

// ReferenceLister reports the locators of every stored resource.
type ReferenceLister interface {
	ReferencedLocators(ctx context.Context) (map[string]bool, error)
}

// EventPruner deletes old event log entries.
type EventPruner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// OrphanSweep returns a job removing uploaded files that no resource points
// at. Files younger than maxAge are kept so an upload whose record is still
// being written is never taken.
func OrphanSweep(blob Sweeper, refs ReferenceLister, maxAge time.Duration, logger *slog.Logger) Job {
	return func(ctx context.Context) error {
		referenced, err := refs.ReferencedLocators(ctx)
		if err != nil {
			return fmt.Errorf("listing referenced files: %w", err)
		}

		removed, err := blob.Sweep(ctx, referenced, maxAge)
		if removed > 0 {
			logger.Info("removed orphaned uploads", "count", removed, "category", "storage")
		}
		if err != nil {
			return fmt.Errorf("sweeping uploads: %w", err)
		}
		return nil
	}
}

// EventCleanup returns a job deleting events older than retention.
func EventCleanup(events EventPruner, retention time.Duration, logger *slog.Logger) Job {
	return func(ctx context.Context) error {
		deleted, err := events.DeleteOldEvents(ctx, retention)
		if err != nil {
			return fmt.Errorf("deleting old events: %w", err)
		}
		if deleted > 0 {
			logger.Info("pruned event log", "count", deleted, "retention", retention.String())
		}
		return nil
	}
}
