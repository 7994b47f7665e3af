// SPDX-License-Identifier: MPL-2.0

package sched

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"convey-cli/internal/pipeline"
	"convey-cli/internal/provision"
	"convey-cli/internal/runtime"
	"convey-cli/internal/toolchain"

	"github.com/charmbracelet/log"
)

// JobRunnerOptions wires the production job runner.
type JobRunnerOptions struct {
	// Pipeline is the loaded pipeline definition.
	Pipeline *pipeline.Pipeline

	// Runner executes individual steps.
	Runner runtime.Runner

	// Installer resolves toolchain steps; nil uses the default.
	Installer *toolchain.Installer

	// ScratchRoot is where per-job scratch directories are created.
	// Empty means the OS temp directory.
	ScratchRoot string

	// ExtraEnv are highest-precedence variable overrides (--env-var flags).
	ExtraEnv map[string]string

	// Log receives per-step progress; each job logs under its entry name.
	// Nil disables logging.
	Log *log.Logger

	// Stdout and Stderr receive step output.
	Stdout io.Writer
	Stderr io.Writer
}

// NewPipelineRunJob builds the RunJobFunc that provisions and tests one
// matrix entry. Each invocation gets a fresh scratch directory that is
// discarded with the job, mirroring an ephemeral CI machine.
func NewPipelineRunJob(opts JobRunnerOptions) RunJobFunc {
	return func(ctx context.Context, job *Job) *provision.Outcome {
		scratchRoot := opts.ScratchRoot
		if scratchRoot == "" {
			scratchRoot = os.TempDir()
		}
		scratch := filepath.Join(scratchRoot, "convey-job-"+job.ID.String())
		if err := os.MkdirAll(scratch, 0o755); err != nil {
			return &provision.Outcome{ExitCode: 1, Err: err}
		}
		defer os.RemoveAll(scratch)

		workDir := opts.Pipeline.CloneDir
		if workDir == "" && opts.Pipeline.FilePath != "" {
			workDir = filepath.Dir(opts.Pipeline.FilePath)
		}

		phases, err := provision.Plan(opts.Pipeline, job.Entry, provision.Options{
			WorkDir:    workDir,
			ScratchDir: scratch,
			Installer:  opts.Installer,
		})
		if err != nil {
			return &provision.Outcome{ExitCode: 1, Err: err}
		}

		// Per-job environment copy: host env, then pipeline globals, then the
		// entry's own variables, then flag overrides.
		env := runtime.BuildEnv(true, opts.Pipeline.Environment.Global, job.Entry.Vars, opts.ExtraEnv)

		var jobLog *log.Logger
		if opts.Log != nil {
			jobLog = opts.Log.WithPrefix(job.Entry.Name())
		}

		seq := &provision.Sequencer{
			Runner: opts.Runner,
			Log:    jobLog,
			Stdout: opts.Stdout,
			Stderr: opts.Stderr,
		}
		return seq.Run(ctx, phases, env)
	}
}
