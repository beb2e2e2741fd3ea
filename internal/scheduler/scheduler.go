// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrJobNotFound is returned by TriggerNow for an unregistered job name.
var ErrJobNotFound = errors.New("job not found")

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// JobObserver records job runs. It returns err unchanged.
type JobObserver interface {
	ObserveJob(job string, start time.Time, err error) error
}

// registeredJob holds metadata about a registered cron job.
type registeredJob struct {
	name        string
	description string
	schedule    string
	entryID     cron.EntryID
	job         Job
	running     sync.Mutex
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string
	Description string
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
}

// Scheduler owns the cron instance and the jobs registered on it.
type Scheduler struct {
	cron     *cron.Cron
	logger   *slog.Logger
	observer JobObserver
	timeout  time.Duration

	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

// New creates a new scheduler instance. observer may be nil.
func New(logger *slog.Logger, observer JobObserver) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithParser(scheduleParser), cron.WithChain(cron.Recover(cronLogger{logger}))),
		logger:   logger,
		observer: observer,
		timeout:  10 * time.Minute,
		jobs:     make(map[string]*registeredJob),
	}
}

// Register adds a job under a unique name. An empty schedule leaves the job
// disabled and registers nothing.
func (s *Scheduler) Register(name, description, schedule string, job Job) error {
	if schedule == "" {
		s.logger.Info("scheduled job disabled", "name", name)
		return nil
	}
	if err := ValidateSchedule(schedule); err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job already registered: %s", name)
	}

	rj := &registeredJob{
		name:        name,
		description: description,
		schedule:    schedule,
		job:         job,
	}
	entryID, err := s.cron.AddFunc(schedule, func() {
		_ = s.run(context.Background(), rj)
	})
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	rj.entryID = entryID
	s.jobs[name] = rj

	s.logger.Debug("registered scheduled job", "name", name, "schedule", schedule)
	return nil
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// List returns all registered jobs sorted by name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]JobInfo, 0, len(s.jobs))
	for _, job := range s.jobs {
		entry := s.cron.Entry(job.entryID)
		result = append(result, JobInfo{
			Name:        job.name,
			Description: job.description,
			Schedule:    job.schedule,
			LastRun:     entry.Prev,
			NextRun:     entry.Next,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// TriggerNow runs a job immediately and returns its error.
func (s *Scheduler) TriggerNow(ctx context.Context, name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.logger.Info("manually triggering job", "name", name)
	return s.run(ctx, job)
}

// run executes job unless a previous run is still in progress.
func (s *Scheduler) run(ctx context.Context, job *registeredJob) error {
	if !job.running.TryLock() {
		s.logger.Warn("skipping job run, previous run still active", "name", job.name)
		return nil
	}
	defer job.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := job.job(ctx)
	if s.observer != nil {
		err = s.observer.ObserveJob(job.name, start, err)
	}

	if err != nil {
		s.logger.Error("scheduled job failed", "name", job.name, "error", err, "duration", time.Since(start))
		return err
	}
	s.logger.Debug("scheduled job finished", "name", job.name, "duration", time.Since(start))
	return nil
}

// cronLogger adapts slog to cron.Logger for the panic recovery wrapper.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
