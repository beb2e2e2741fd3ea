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

	"github.com/olegiv/resourcehub/internal/cache"
	"github.com/olegiv/resourcehub/internal/model"
	"github.com/olegiv/resourcehub/internal/storage"
	"github.com/olegiv/resourcehub/internal/store"
)

// SubmitInput is the metadata of a new resource. The owner always comes
// from the caller's identity, never from input.
type SubmitInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
	Subject     string `json:"subject" validate:"required,max=100"`
	FileURL     string `json:"file_url" validate:"required"`
}

// UploadInput is a submission together with its file.
type UploadInput struct {
	Title       string
	Description string
	Subject     string
	File        *storage.File
}

// ListFilter narrows a listing. Subject "" or "all" means every subject.
// Status is honoured for ADMIN callers only.
type ListFilter struct {
	Subject string
	Status  model.Status
}

const (
	listingGenerationKey = "listing:generation"
	listingGenerationTTL = 24 * time.Hour
)

// ResourceService runs the PENDING -> APPROVED moderation lifecycle.
type ResourceService struct {
	queries  *store.Queries
	stager   *storage.Stager
	listings *cache.TypedCache[[]model.Resource]
	gens     cache.Cache
	events   *EventService
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// ResourceOption configures a ResourceService.
type ResourceOption func(*ResourceService)

// WithListingCache caches public (APPROVED-only) listings per subject.
// Entries are keyed by a listing generation stored in c itself, so every
// instance sharing c stops reading old entries once an approval starts a
// new generation. With a per-process MemoryCache other instances only see
// approvals after ttl.
func WithListingCache(c cache.Cache, ttl time.Duration) ResourceOption {
	return func(s *ResourceService) {
		if c != nil && ttl > 0 {
			s.listings = cache.NewTypedCache[[]model.Resource](c, "listing:approved:", ttl)
			s.gens = c
		}
	}
}

// WithResourceEvents records audit events for lifecycle operations.
func WithResourceEvents(e *EventService) ResourceOption {
	return func(s *ResourceService) { s.events = e }
}

// WithResourceMetrics reports lifecycle counters.
func WithResourceMetrics(m Metrics) ResourceOption {
	return func(s *ResourceService) { s.metrics = m }
}

// WithResourceLogger sets the logger.
func WithResourceLogger(l *slog.Logger) ResourceOption {
	return func(s *ResourceService) { s.logger = l }
}

// NewResourceService creates a ResourceService. stager may be nil if Upload
// is never called.
func NewResourceService(db *sql.DB, stager *storage.Stager, opts ...ResourceOption) *ResourceService {
	s := &ResourceService{
		queries: store.New(db),
		stager:  stager,
		metrics: nopMetrics{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit records a PENDING resource owned by who.
func (s *ResourceService) Submit(ctx context.Context, who *model.Identity, in SubmitInput) (*model.Resource, error) {
	if who == nil {
		return nil, ErrUnauthenticated
	}
	in = trimSubmit(in)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	row, err := s.queries.CreateResource(ctx, store.CreateResourceParams{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Subject:     in.Subject,
		FileUrl:     in.FileURL,
		Status:      string(model.StatusPending),
		UploadedBy:  who.ID,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return nil, s.storageError("creating resource", err)
	}

	r := resourceFromRow(row)
	s.metrics.ResourceSubmitted(r.Subject)
	s.events.LogResourceEvent(ctx, model.EventLevelInfo, "Resource submitted", who.ID, map[string]any{
		"resource_id": r.ID,
		"subject":     r.Subject,
	})
	return r, nil
}

// Upload validates the metadata, stages the file and submits the resource.
// Nothing is stored unless every field is present and the file is accepted;
// if the record cannot be created the staged file is removed again.
func (s *ResourceService) Upload(ctx context.Context, who *model.Identity, in UploadInput) (*model.Resource, error) {
	if who == nil {
		return nil, ErrUnauthenticated
	}

	meta := trimSubmit(SubmitInput{
		Title:       in.Title,
		Description: in.Description,
		Subject:     in.Subject,
		FileURL:     "pending",
	})
	ve := &ValidationError{}
	if err := validateStruct(meta); err != nil {
		var fields *ValidationError
		if !errors.As(err, &fields) {
			return nil, err
		}
		ve = fields
	}
	if in.File == nil || in.File.Reader == nil {
		ve.add("file", "is required")
	}
	if err := ve.orNil(); err != nil {
		return nil, err
	}

	locator, err := s.stager.Stage(ctx, *in.File)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedType):
			s.metrics.UploadRejected("unsupported_type")
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		case errors.Is(err, storage.ErrTooLarge):
			s.metrics.UploadRejected("too_large")
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		default:
			s.metrics.UploadRejected("storage")
			return nil, s.storageError("staging file", err)
		}
	}

	meta.FileURL = locator
	r, err := s.Submit(ctx, who, meta)
	if err != nil {
		if derr := s.stager.Discard(ctx, locator); derr != nil {
			s.logger.Error("failed to discard staged file", "locator", locator, "error", derr)
		}
		return nil, err
	}
	return r, nil
}

// Approve moves a resource to APPROVED. The role is checked before the
// resource is looked up, so non-admins cannot discover which ids exist. Approving an
// APPROVED resource returns it unchanged.
func (s *ResourceService) Approve(ctx context.Context, who *model.Identity, id string) (*model.Resource, error) {
	if who == nil {
		return nil, ErrUnauthenticated
	}
	if !who.IsAdmin() {
		s.events.LogResourceEvent(ctx, model.EventLevelWarning, "Approval denied", who.ID, map[string]any{"resource_id": id})
		return nil, ErrForbidden
	}
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}

	row, err := s.queries.ApproveResource(ctx, id)
	if err == nil {
		r := resourceFromRow(row)
		s.invalidateListings(ctx)
		s.metrics.ResourceApproved()
		s.events.LogResourceEvent(ctx, model.EventLevelInfo, "Resource approved", who.ID, map[string]any{
			"resource_id": r.ID,
			"owner_id":    r.UploadedBy,
		})
		return r, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, s.storageError("approving resource", err)
	}

	// Nothing transitioned: either already approved or absent.
	row, err = s.queries.GetResourceByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, s.storageError("loading resource", err)
	}
	return resourceFromRow(row), nil
}

// List returns resources visible to who. Anyone but an ADMIN only ever sees
// APPROVED resources, whatever the filter says.
func (s *ResourceService) List(ctx context.Context, who *model.Identity, f ListFilter) ([]model.Resource, error) {
	subject := normalizeSubject(f.Subject)

	if !who.IsAdmin() {
		if s.listings == nil {
			return s.list(ctx, model.StatusApproved, subject)
		}
		gen := s.listingGeneration(ctx)
		return s.listings.GetOrSet(ctx, gen+":subject:"+subject, func() ([]model.Resource, error) {
			return s.list(ctx, model.StatusApproved, subject)
		})
	}

	switch f.Status {
	case "", model.StatusPending, model.StatusApproved:
	default:
		return nil, NewValidationError("status", "must be PENDING or APPROVED")
	}
	return s.list(ctx, f.Status, subject)
}

// ListByOwner returns every resource owned by who, newest first, in any status.
func (s *ResourceService) ListByOwner(ctx context.Context, who *model.Identity) ([]model.Resource, error) {
	if who == nil {
		return nil, ErrUnauthenticated
	}
	rows, err := s.queries.ListResourcesByOwner(ctx, who.ID)
	if err != nil {
		return nil, s.storageError("listing own resources", err)
	}
	return resourcesFromRows(rows), nil
}

// Get returns a single resource if who may see it: APPROVED resources are
// public, PENDING ones are visible to their owner and to admins. Anything
// else is reported as ErrNotFound.
func (s *ResourceService) Get(ctx context.Context, who *model.Identity, id string) (*model.Resource, error) {
	row, err := s.queries.GetResourceByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, s.storageError("loading resource", err)
	}

	r := resourceFromRow(row)
	if r.IsApproved() || who.IsAdmin() || (who != nil && who.ID == r.UploadedBy) {
		return r, nil
	}
	return nil, ErrNotFound
}

// PendingCount returns the size of the moderation queue.
func (s *ResourceService) PendingCount(ctx context.Context) (int64, error) {
	n, err := s.queries.CountResourcesByStatus(ctx, string(model.StatusPending))
	if err != nil {
		return 0, s.storageError("counting resources", err)
	}
	return n, nil
}

// ReferencedLocators returns the file locator of every stored resource.
func (s *ResourceService) ReferencedLocators(ctx context.Context) (map[string]bool, error) {
	urls, err := s.queries.ListFileURLs(ctx)
	if err != nil {
		return nil, s.storageError("listing file locators", err)
	}
	refs := make(map[string]bool, len(urls))
	for _, u := range urls {
		refs[u] = true
	}
	return refs, nil
}

func (s *ResourceService) list(ctx context.Context, status model.Status, subject string) ([]model.Resource, error) {
	rows, err := s.queries.ListResources(ctx, store.ListResourcesParams{
		Status:  string(status),
		Subject: subject,
	})
	if err != nil {
		return nil, s.storageError("listing resources", err)
	}
	return resourcesFromRows(rows), nil
}

// listingGeneration returns the current listing generation, starting a new
// one when none is stored. A new generation is written before the caller
// loads from the store, so whatever it caches is never older than the key.
func (s *ResourceService) listingGeneration(ctx context.Context) string {
	if v, err := s.gens.Get(ctx, listingGenerationKey); err == nil && len(v) > 0 {
		return string(v)
	}
	return s.newListingGeneration(ctx)
}

func (s *ResourceService) newListingGeneration(ctx context.Context) string {
	gen := uuid.NewString()
	if err := s.gens.Set(ctx, listingGenerationKey, []byte(gen), listingGenerationTTL); err != nil {
		s.logger.Warn("failed to store listing generation", "error", err)
	}
	return gen
}

// invalidateListings runs after the store change is committed. Loads that
// started before it cache under the old generation, which nobody reads again.
func (s *ResourceService) invalidateListings(ctx context.Context) {
	if s.listings == nil {
		return
	}
	s.newListingGeneration(ctx)
	if err := s.listings.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate listing cache", "error", err)
	}
}

func (s *ResourceService) storageError(op string, err error) error {
	s.logger.Error("resource store failure", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// normalizeSubject maps the exact "all" sentinel to no filter. Any other
// value, "ALL" included, is a literal subject.
func normalizeSubject(subject string) string {
	if subject == model.SubjectAll {
		return ""
	}
	return subject
}

func trimSubmit(in SubmitInput) SubmitInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Subject = strings.TrimSpace(in.Subject)
	in.FileURL = strings.TrimSpace(in.FileURL)
	return in
}

func resourceFromRow(row store.Resource) *model.Resource {
	return &model.Resource{
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

func resourcesFromRows(rows []store.Resource) []model.Resource {
	out := make([]model.Resource, 0, len(rows))
	for _, row := range rows {
		out = append(out, *resourceFromRow(row))
	}
	return out
}
