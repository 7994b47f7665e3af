// SPDX-License-Identifier: MPL-2.0

package sched

import (
	"context"
	"io"
	"testing"

	"convey-cli/internal/pipeline"
	"convey-cli/internal/runtime"
	"convey-cli/internal/toolchain"
)

func failingTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	disabled := false
	return &pipeline.Pipeline{
		CloneDir: t.TempDir(),
		Environment: pipeline.Environment{
			Global: map[string]string{"RUST_BACKTRACE": "1"},
		},
		Build:      &disabled,
		TestScript: []pipeline.Step{"exit 101"},
	}
}

func TestPipelineRunJobPropagatesTestExit(t *testing.T) {
	t.Parallel()

	p := failingTestPipeline(t)
	run := NewPipelineRunJob(JobRunnerOptions{
		Pipeline: p,
		Runner:   runtime.NewVirtualRunner(),
		// A no-op installer keeps the toolchain phase offline.
		Installer:   &toolchain.Installer{Template: "true", Home: t.TempDir()},
		ScratchRoot: t.TempDir(),
		Stdout:      io.Discard,
		Stderr:      io.Discard,
	})

	jobs := NewJobs(
		[]pipeline.Entry{entry("beta", "i686-pc-windows-gnu")},
		nil,
	)

	outcome := run(context.Background(), jobs[0])
	if !outcome.Failed() {
		t.Fatal("outcome succeeded, want test failure")
	}
	if outcome.ExitCode != 101 {
		t.Errorf("ExitCode = %d, want 101", outcome.ExitCode)
	}
	if outcome.FailedPhase != "test" {
		t.Errorf("FailedPhase = %q, want test", outcome.FailedPhase)
	}
}

func TestPipelineRunJobPassingScript(t *testing.T) {
	t.Parallel()

	p := failingTestPipeline(t)
	p.TestScript = []pipeline.Step{"echo channel is %channel%", "true"}

	run := NewPipelineRunJob(JobRunnerOptions{
		Pipeline:    p,
		Runner:      runtime.NewVirtualRunner(),
		Installer:   &toolchain.Installer{Template: "true", Home: t.TempDir()},
		ScratchRoot: t.TempDir(),
		Stdout:      io.Discard,
		Stderr:      io.Discard,
	})

	jobs := NewJobs([]pipeline.Entry{entry("stable", "x86_64-unknown-linux-gnu")}, nil)
	outcome := run(context.Background(), jobs[0])
	if outcome.Failed() {
		t.Fatalf("outcome failed: %+v", outcome)
	}
}
