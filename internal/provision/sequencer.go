// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"convey-cli/internal/runtime"

	"github.com/charmbracelet/log"
)

// ErrStagingIncomplete is the sentinel wrapped when a phase's required
// staged outputs are missing, i.e. the ordering invariant between
// dependency builds was violated.
var ErrStagingIncomplete = errors.New("staged outputs missing")

type (
	// Sequencer executes a planned phase list for one job. All phases run
	// strictly sequentially; the first fatal failure aborts the job.
	Sequencer struct {
		// Runner executes individual steps.
		Runner runtime.Runner

		// Log receives per-phase progress. Nil disables logging.
		Log *log.Logger

		// Stdout and Stderr receive step output. Nil values default to the
		// process streams.
		Stdout io.Writer
		Stderr io.Writer
	}

	// Outcome is the result of running a phase list.
	Outcome struct {
		// ExitCode is the job result: the failing step's exit status, or 0.
		ExitCode runtime.ExitCode

		// FailedPhase names the phase that aborted the job, or "".
		FailedPhase string

		// FailedKind classifies the failing phase, or "" on success.
		FailedKind Kind

		// Err carries the failure cause for infrastructure errors
		// (missing staged outputs, missing shell); nil for plain non-zero
		// step exits and for success.
		Err error

		// Duration is the wall-clock time spent across all phases.
		Duration time.Duration
	}
)

// Failed reports whether the job failed.
func (o *Outcome) Failed() bool {
	return o.Err != nil || !o.ExitCode.IsSuccess()
}

// Run executes the phases in order against env. env is mutated as phases
// register PATH directories; callers pass a per-job copy. %var% placeholders
// are substituted from env before use: in step text, and equally in the
// phase's working directory, required staged paths and PATH contributions,
// since staging dirs are routinely declared as %TEMP%-relative.
func (s *Sequencer) Run(ctx context.Context, phases []Phase, env map[string]string) *Outcome {
	start := time.Now()

	for _, phase := range phases {
		phase.Dir = runtime.Substitute(phase.Dir, env)
		phase.Requires = substitutePaths(phase.Requires, env)
		phase.PathDirs = substitutePaths(phase.PathDirs, env)

		if err := checkRequires(phase); err != nil {
			s.logf(func(l *log.Logger) { l.Error("staging check failed", "phase", phase.Name, "err", err) })
			return &Outcome{
				ExitCode:    1,
				FailedPhase: phase.Name,
				FailedKind:  phase.Kind,
				Err:         err,
				Duration:    time.Since(start),
			}
		}

		if outcome := s.runPhase(ctx, phase, env); outcome != nil {
			outcome.Duration = time.Since(start)
			return outcome
		}

		runtime.PrependPath(env, phase.PathDirs...)
	}

	return &Outcome{Duration: time.Since(start)}
}

// runPhase runs one phase's steps. It returns nil when the job may continue
// and a terminal Outcome otherwise.
func (s *Sequencer) runPhase(ctx context.Context, phase Phase, env map[string]string) *Outcome {
	for _, step := range phase.Steps {
		script := runtime.Substitute(string(step), env)
		s.logf(func(l *log.Logger) { l.Info(script, "phase", phase.Name) })

		result := s.Runner.Run(&runtime.StepContext{
			Context: ctx,
			Dir:     phase.Dir,
			Env:     env,
			Stdout:  s.Stdout,
			Stderr:  s.Stderr,
		}, script)

		if !result.Failed() {
			continue
		}

		if phase.NonFatal {
			s.logf(func(l *log.Logger) {
				l.Warn("ignoring failure in diagnostic phase", "phase", phase.Name, "exit", result.ExitCode)
			})
			continue
		}

		s.logf(func(l *log.Logger) {
			l.Error("step failed", "phase", phase.Name, "exit", result.ExitCode)
		})
		code := result.ExitCode
		if code.IsSuccess() {
			code = 1
		}
		return &Outcome{
			ExitCode:    code,
			FailedPhase: phase.Name,
			FailedKind:  phase.Kind,
			Err:         result.Error,
		}
	}
	return nil
}

// substitutePaths applies %var% substitution to each path.
func substitutePaths(paths []string, env map[string]string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = runtime.Substitute(p, env)
	}
	return out
}

// checkRequires verifies the phase's required staged outputs exist.
func checkRequires(phase Phase) error {
	for _, path := range phase.Requires {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: %s (required by %s)", ErrStagingIncomplete, path, phase.Name)
		}
	}
	return nil
}

func (s *Sequencer) logf(fn func(*log.Logger)) {
	if s.Log != nil {
		fn(s.Log)
	}
}

// PlanSteps renders the substituted step list of a plan without executing
// anything; used by dry-run output.
func PlanSteps(phases []Phase, env map[string]string) []string {
	var out []string
	for _, phase := range phases {
		for _, step := range phase.Steps {
			out = append(out, fmt.Sprintf("[%s] %s", phase.Name, runtime.Substitute(string(step), env)))
		}
	}
	return out
}
