// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Status is the moderation state of a resource.
type Status string

// Resource statuses. PENDING moves to APPROVED and never back.
const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
)

// SubjectAll is the listing filter value meaning "no subject filter".
const SubjectAll = "all"

// MimeTypePDF is the only accepted upload type.
const MimeTypePDF = "application/pdf"

// SuggestedSubjects is offered by the upload and browse forms.
// Subject remains free text; these are not enforced.
var SuggestedSubjects = []string{
	"Mathematics",
	"Physics",
	"Chemistry",
	"Biology",
	"Computer Science",
	"History",
	"Literature",
	"Other",
}

// Resource is a submitted study document.
type Resource struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	FileURL     string    `json:"file_url"`
	Status      Status    `json:"status"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsApproved returns true once the resource has passed moderation.
func (r *Resource) IsApproved() bool {
	return r.Status == StatusApproved
}
