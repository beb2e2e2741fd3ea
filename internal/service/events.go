// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the business operations: account registration and
// authentication, the resource moderation lifecycle and audit events.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/olegiv/resourcehub/internal/model"
	"github.com/olegiv/resourcehub/internal/store"
)

// EventService writes audit events. A nil *EventService discards events.
type EventService struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB, logger *slog.Logger) *EventService {
	return &EventService{
		queries: store.New(db),
		logger:  logger,
	}
}

// LogEvent creates a new event log entry. Failures are logged, not returned
// to the caller's operation.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, userID string, metadata map[string]any) {
	if s == nil {
		return
	}

	var nullUserID sql.NullString
	if userID != "" {
		nullUserID = sql.NullString{String: userID, Valid: true}
	}

	metadataJSON := "{}"
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	_, err := s.queries.CreateEvent(context.WithoutCancel(ctx), store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    nullUserID,
		Metadata:  metadataJSON,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil && s.logger != nil {
		s.logger.Debug("failed to record event", "message", message, "error", err)
	}
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message, userID string, metadata map[string]any) {
	s.LogEvent(ctx, level, model.EventCategoryAuth, message, userID, metadata)
}

// LogResourceEvent logs a resource lifecycle event.
func (s *EventService) LogResourceEvent(ctx context.Context, level, message, userID string, metadata map[string]any) {
	s.LogEvent(ctx, level, model.EventCategoryResource, message, userID, metadata)
}

// LogUserEvent logs an account event.
func (s *EventService) LogUserEvent(ctx context.Context, level, message, userID string, metadata map[string]any) {
	s.LogEvent(ctx, level, model.EventCategoryUser, message, userID, metadata)
}

// Recent returns the newest events.
func (s *EventService) Recent(ctx context.Context, limit int) ([]model.Event, error) {
	rows, err := s.queries.ListEvents(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	events := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, model.Event{
			ID:        r.ID,
			Level:     r.Level,
			Category:  r.Category,
			Message:   r.Message,
			UserID:    r.UserID,
			Metadata:  r.Metadata,
			CreatedAt: r.CreatedAt,
		})
	}
	return events, nil
}

// DeleteOldEvents removes events older than the specified duration.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.queries.DeleteEventsBefore(ctx, time.Now().UTC().Add(-olderThan))
}
