// SPDX-License-Identifier: MPL-2.0

package sched

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"convey-cli/internal/pipeline"
	"convey-cli/internal/provision"
	"convey-cli/internal/runtime"

	"github.com/charmbracelet/log"
)

type (
	// RunJobFunc executes one job and returns its outcome.
	RunJobFunc func(ctx context.Context, job *Job) *provision.Outcome

	// Scheduler runs jobs through a bounded worker pool.
	Scheduler struct {
		// Workers bounds concurrent jobs. Values below 1 mean 1, i.e. the
		// matrix runs strictly sequentially.
		Workers int

		// FastFinish skips not-yet-started blocking jobs after the first
		// blocking failure. Allowed-failure jobs still run.
		FastFinish bool

		// Run executes a single job.
		Run RunJobFunc

		// Log receives job lifecycle events. Nil disables logging.
		Log *log.Logger
	}

	// Summary is the result of a full matrix run. Jobs appear in matrix
	// expansion order regardless of completion order.
	Summary struct {
		Jobs     []*Job
		Duration time.Duration
	}
)

// Execute expands nothing itself: callers pass the already-expanded entries
// plus the allow-failure rules, and Execute runs every resulting job.
func (s *Scheduler) Execute(ctx context.Context, entries []pipeline.Entry, rules []pipeline.AllowFailureRule) *Summary {
	start := time.Now()
	jobs := NewJobs(entries, rules)

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	queue := make(chan *Job)
	var blockingFailed atomic.Bool
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				s.runOne(ctx, job, &blockingFailed)
			}
		}()
	}

	for _, job := range jobs {
		queue <- job
	}
	close(queue)
	wg.Wait()

	return &Summary{Jobs: jobs, Duration: time.Since(start)}
}

func (s *Scheduler) runOne(ctx context.Context, job *Job, blockingFailed *atomic.Bool) {
	if s.FastFinish && blockingFailed.Load() && !job.AllowFailure {
		job.Status = StatusSkipped
		s.logf(func(l *log.Logger) { l.Info("skipped (fast finish)", "job", job.Entry.Name()) })
		return
	}

	s.logf(func(l *log.Logger) { l.Info("starting job", "job", job.Entry.Name(), "id", job.ID) })
	outcome := s.Run(ctx, job)

	job.ExitCode = outcome.ExitCode
	job.FailedPhase = outcome.FailedPhase
	job.FailedKind = outcome.FailedKind
	job.Err = outcome.Err
	job.Duration = outcome.Duration

	switch {
	case !outcome.Failed():
		job.Status = StatusPassed
	case job.AllowFailure:
		job.Status = StatusAllowedFailure
	default:
		job.Status = StatusFailed
		blockingFailed.Store(true)
	}

	s.logf(func(l *log.Logger) {
		l.Info("job finished", "job", job.Entry.Name(), "status", job.Status.String(), "exit", job.ExitCode)
	})
}

func (s *Scheduler) logf(fn func(*log.Logger)) {
	if s.Log != nil {
		fn(s.Log)
	}
}

// Failed reports whether the pipeline as a whole failed: true when any
// blocking job failed. Allowed failures and skips never fail the pipeline.
func (s *Summary) Failed() bool {
	for _, job := range s.Jobs {
		if job.Status == StatusFailed {
			return true
		}
	}
	return false
}

// ExitCode is the aggregate process exit status: the first blocking
// failure's exit code (or 1 when that job failed on infrastructure),
// 0 otherwise.
func (s *Summary) ExitCode() runtime.ExitCode {
	for _, job := range s.Jobs {
		if job.Status != StatusFailed {
			continue
		}
		if job.ExitCode.IsSuccess() {
			return 1
		}
		return job.ExitCode
	}
	return 0
}

// Counts tallies jobs per status.
func (s *Summary) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, job := range s.Jobs {
		counts[job.Status]++
	}
	return counts
}
