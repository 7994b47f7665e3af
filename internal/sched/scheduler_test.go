// SPDX-License-Identifier: MPL-2.0

package sched

import (
	"context"
	"errors"
	"sync"
	"testing"

	"convey-cli/internal/pipeline"
	"convey-cli/internal/provision"
	"convey-cli/internal/runtime"
)

func entry(channel, target string) pipeline.Entry {
	return pipeline.Entry{
		Vars: map[string]string{"channel": channel, "target": target},
		Keys: []string{"channel", "target"},
	}
}

// outcomesByChannel builds a RunJobFunc that fails jobs per their channel.
func outcomesByChannel(fail map[string]runtime.ExitCode) RunJobFunc {
	return func(_ context.Context, job *Job) *provision.Outcome {
		if code, ok := fail[job.Entry.Get("channel")]; ok {
			return &provision.Outcome{ExitCode: code, FailedPhase: "test", FailedKind: provision.KindTest}
		}
		return &provision.Outcome{}
	}
}

func TestExecuteAllPass(t *testing.T) {
	t.Parallel()

	s := &Scheduler{Workers: 2, Run: outcomesByChannel(nil)}
	entries := []pipeline.Entry{
		entry("stable", "x86_64-pc-windows-msvc"),
		entry("beta", "x86_64-pc-windows-msvc"),
	}

	summary := s.Execute(context.Background(), entries, nil)
	if summary.Failed() {
		t.Error("Failed() = true, want false")
	}
	if code := summary.ExitCode(); code != 0 {
		t.Errorf("ExitCode() = %d, want 0", code)
	}
	for _, job := range summary.Jobs {
		if job.Status != StatusPassed {
			t.Errorf("job %s status = %s, want passed", job.Entry.Name(), job.Status)
		}
	}
}

func TestExecuteAllowedFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	s := &Scheduler{
		Workers: 1,
		Run:     outcomesByChannel(map[string]runtime.ExitCode{"nightly": 101}),
	}
	entries := []pipeline.Entry{
		entry("stable", "x86_64-pc-windows-msvc"),
		entry("nightly", "x86_64-pc-windows-msvc"),
	}
	rules := []pipeline.AllowFailureRule{{"channel": "nightly"}}

	summary := s.Execute(context.Background(), entries, rules)
	if summary.Failed() {
		t.Error("Failed() = true, want false (only an allowed failure occurred)")
	}
	if code := summary.ExitCode(); code != 0 {
		t.Errorf("ExitCode() = %d, want 0", code)
	}

	counts := summary.Counts()
	if counts[StatusPassed] != 1 || counts[StatusAllowedFailure] != 1 {
		t.Errorf("counts = %v, want 1 passed and 1 allowed failure", counts)
	}
}

func TestExecuteBlockingFailureFailsRun(t *testing.T) {
	t.Parallel()

	s := &Scheduler{
		Workers: 1,
		Run:     outcomesByChannel(map[string]runtime.ExitCode{"beta": 7}),
	}
	entries := []pipeline.Entry{
		entry("stable", "x86_64-pc-windows-msvc"),
		entry("beta", "x86_64-pc-windows-msvc"),
	}

	summary := s.Execute(context.Background(), entries, nil)
	if !summary.Failed() {
		t.Fatal("Failed() = false, want true")
	}
	// The aggregate exit code is the failing job's exit code.
	if code := summary.ExitCode(); code != 7 {
		t.Errorf("ExitCode() = %d, want 7", code)
	}
	for _, job := range summary.Jobs {
		if job.Status != StatusFailed {
			continue
		}
		if job.FailedPhase != "test" || job.FailedKind != provision.KindTest {
			t.Errorf("failed job carries phase %q kind %q, want test/%s", job.FailedPhase, job.FailedKind, provision.KindTest)
		}
	}
}

func TestExecuteInfrastructureFailureExitCode(t *testing.T) {
	t.Parallel()

	s := &Scheduler{
		Workers: 1,
		Run: func(_ context.Context, _ *Job) *provision.Outcome {
			return &provision.Outcome{Err: errors.New("scratch dir creation failed")}
		},
	}
	entries := []pipeline.Entry{entry("stable", "x86_64-pc-windows-msvc")}

	summary := s.Execute(context.Background(), entries, nil)
	if !summary.Failed() {
		t.Fatal("Failed() = false, want true")
	}
	// Infrastructure failures have no step exit code; the aggregate falls
	// back to 1 so the process still exits non-zero.
	if code := summary.ExitCode(); code != 1 {
		t.Errorf("ExitCode() = %d, want 1", code)
	}
}

func TestExecuteFastFinishSkipsBlockingJobs(t *testing.T) {
	t.Parallel()

	// Sequential execution: the first job fails, so with fast finish the
	// later blocking job must be skipped while the allowed-failure job
	// still runs.
	s := &Scheduler{
		Workers:    1,
		FastFinish: true,
		Run:        outcomesByChannel(map[string]runtime.ExitCode{"stable": 1}),
	}
	entries := []pipeline.Entry{
		entry("stable", "x86_64-pc-windows-msvc"),
		entry("beta", "x86_64-pc-windows-msvc"),
		entry("nightly", "x86_64-pc-windows-msvc"),
	}
	rules := []pipeline.AllowFailureRule{{"channel": "nightly"}}

	summary := s.Execute(context.Background(), entries, rules)

	byChannel := make(map[string]Status)
	for _, job := range summary.Jobs {
		byChannel[job.Entry.Get("channel")] = job.Status
	}
	if byChannel["stable"] != StatusFailed {
		t.Errorf("stable status = %s, want failed", byChannel["stable"])
	}
	if byChannel["beta"] != StatusSkipped {
		t.Errorf("beta status = %s, want skipped", byChannel["beta"])
	}
	if byChannel["nightly"] != StatusAllowedFailure {
		t.Errorf("nightly status = %s, want allowed failure (fast finish never skips allowed-failure jobs)", byChannel["nightly"])
	}
}

func TestExecuteRunsEveryJobWithoutFastFinish(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var ran []string
	s := &Scheduler{
		Workers: 1,
		Run: func(_ context.Context, job *Job) *provision.Outcome {
			mu.Lock()
			ran = append(ran, job.Entry.Get("channel"))
			mu.Unlock()
			return &provision.Outcome{ExitCode: 1}
		},
	}
	entries := []pipeline.Entry{
		entry("stable", "x86_64-pc-windows-msvc"),
		entry("beta", "x86_64-pc-windows-msvc"),
	}

	summary := s.Execute(context.Background(), entries, nil)
	if len(ran) != 2 {
		t.Errorf("ran %v, want both jobs despite failures", ran)
	}
	if counts := summary.Counts(); counts[StatusFailed] != 2 {
		t.Errorf("counts = %v, want 2 failed", counts)
	}
}

func TestNewJobsMarksAllowedFailures(t *testing.T) {
	t.Parallel()

	entries := []pipeline.Entry{
		entry("stable", "x86_64-pc-windows-msvc"),
		entry("nightly", "x86_64-pc-windows-msvc"),
	}
	rules := []pipeline.AllowFailureRule{{"channel": "nightly"}}

	jobs := NewJobs(entries, rules)
	if jobs[0].AllowFailure {
		t.Error("stable job marked as allowed failure")
	}
	if !jobs[1].AllowFailure {
		t.Error("nightly job not marked as allowed failure")
	}
	if jobs[0].ID == jobs[1].ID {
		t.Error("job IDs are not unique")
	}
	for _, job := range jobs {
		if job.Status != StatusPending {
			t.Errorf("new job status = %s, want pending", job.Status)
		}
	}
}
