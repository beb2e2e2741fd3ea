// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"
	"time"

	"github.com/olegiv/resourcehub/internal/model"
	"github.com/olegiv/resourcehub/internal/testutil"
)

func TestEventService_LogAndList(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewEventService(db, testutil.TestLoggerSilent())
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "Alice", "alice@example.com", "secret1", model.RoleUser)

	svc.LogAuthEvent(ctx, model.EventLevelWarning, "Failed login attempt", "", map[string]any{"email": "x@example.com"})
	svc.LogResourceEvent(ctx, model.EventLevelInfo, "Resource submitted", user.ID, nil)

	events, err := svc.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}

	byMessage := map[string]model.Event{}
	for _, e := range events {
		byMessage[e.Message] = e
	}

	failed := byMessage["Failed login attempt"]
	if failed.Category != model.EventCategoryAuth || failed.UserID.Valid {
		t.Errorf("auth event = %+v", failed)
	}
	if failed.Metadata != `{"email":"x@example.com"}` {
		t.Errorf("Metadata = %q", failed.Metadata)
	}

	submitted := byMessage["Resource submitted"]
	if submitted.Category != model.EventCategoryResource || submitted.UserID.String != user.ID {
		t.Errorf("resource event = %+v", submitted)
	}
	if submitted.Metadata != "{}" {
		t.Errorf("Metadata = %q, want {}", submitted.Metadata)
	}
}

func TestEventService_NilIsNoop(t *testing.T) {
	var svc *EventService
	svc.LogEvent(context.Background(), model.EventLevelInfo, model.EventCategorySystem, "ignored", "", nil)
}

func TestEventService_DeleteOldEvents(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewEventService(db, testutil.TestLoggerSilent())
	ctx := context.Background()

	svc.LogEvent(ctx, model.EventLevelInfo, model.EventCategorySystem, "recent", "", nil)

	deleted, err := svc.DeleteOldEvents(ctx, time.Hour)
	if err != nil {
		t.Fatalf("DeleteOldEvents: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
}
