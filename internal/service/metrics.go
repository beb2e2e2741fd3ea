// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

// Metrics receives business counters. The metrics package provides the
// Prometheus implementation.
type Metrics interface {
	UserRegistered()
	LoginAttempt(success bool)
	ResourceSubmitted(subject string)
	ResourceApproved()
	UploadRejected(reason string)
}

type nopMetrics struct{}

func (nopMetrics) UserRegistered()          {}
func (nopMetrics) LoginAttempt(bool)        {}
func (nopMetrics) ResourceSubmitted(string) {}
func (nopMetrics) ResourceApproved()        {}
func (nopMetrics) UploadRejected(string)    {}
