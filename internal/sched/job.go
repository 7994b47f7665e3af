// SPDX-License-Identifier: MPL-2.0

// Package sched expands a pipeline's matrix into independent jobs and runs
// them through a bounded worker pool. Jobs share nothing: each gets its own
// scratch directory and its own environment copy. Within a job all phases
// are strictly sequential; concurrency exists only across jobs.
package sched

import (
	"time"

	"convey-cli/internal/pipeline"
	"convey-cli/internal/provision"
	"convey-cli/internal/runtime"

	"github.com/google/uuid"
)

// Status is a job's lifecycle state.
type Status int

const (
	// StatusPending means the job has not run yet.
	StatusPending Status = iota
	// StatusPassed means every phase succeeded.
	StatusPassed
	// StatusFailed means a phase failed and the job blocks the pipeline.
	StatusFailed
	// StatusAllowedFailure means a phase failed but an allow-failure rule
	// matched the entry, so the pipeline result is unaffected.
	StatusAllowedFailure
	// StatusSkipped means fast-finish cancelled the job before it started.
	StatusSkipped
)

// String returns the status label used in reports.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusAllowedFailure:
		return "allowed failure"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Job is one expanded matrix entry scheduled for execution.
type Job struct {
	// ID uniquely identifies the job run.
	ID uuid.UUID

	// Entry is the matrix entry this job executes.
	Entry pipeline.Entry

	// AllowFailure is set when an allow-failure rule matches the entry.
	AllowFailure bool

	// Status is the job's current state.
	Status Status

	// ExitCode is the job result (the failing step's exit status, or 0).
	ExitCode runtime.ExitCode

	// FailedPhase names the phase that aborted the job, or "".
	FailedPhase string

	// FailedKind classifies the failing phase, or "".
	FailedKind provision.Kind

	// Err carries an infrastructure failure cause, when any.
	Err error

	// Duration is the job's wall-clock runtime.
	Duration time.Duration
}

// NewJobs builds the job list for the expanded entries, marking each entry
// that matches an allow-failure rule.
func NewJobs(entries []pipeline.Entry, rules []pipeline.AllowFailureRule) []*Job {
	jobs := make([]*Job, len(entries))
	for i, e := range entries {
		jobs[i] = &Job{
			ID:           uuid.New(),
			Entry:        e,
			AllowFailure: e.Allowed(rules),
			Status:       StatusPending,
		}
	}
	return jobs
}
