// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"convey-cli/internal/pipeline"
	"convey-cli/internal/runtime"
)

// scriptedRunner records executed steps (and their working dirs) and fails
// those listed in failWith.
type scriptedRunner struct {
	executed []string
	dirs     []string
	failWith map[string]runtime.ExitCode
}

func (r *scriptedRunner) Name() string    { return "scripted" }
func (r *scriptedRunner) Available() bool { return true }

func (r *scriptedRunner) Run(ctx *runtime.StepContext, script string) *runtime.Result {
	r.executed = append(r.executed, script)
	r.dirs = append(r.dirs, ctx.Dir)
	if code, ok := r.failWith[script]; ok {
		return runtime.NewExitCodeResult(code)
	}
	return runtime.NewSuccessResult()
}

func (r *scriptedRunner) RunCapture(ctx *runtime.StepContext, script string) *runtime.Result {
	return r.Run(ctx, script)
}

func TestSequencerRunsPhasesInOrder(t *testing.T) {
	t.Parallel()

	runner := &scriptedRunner{}
	seq := &Sequencer{Runner: runner}

	phases := []Phase{
		{Name: "fetch", Steps: []pipeline.Step{"clone"}},
		{Name: "build", Steps: []pipeline.Step{"make", "make install"}},
		{Name: "test", Steps: []pipeline.Step{"run tests"}},
	}

	outcome := seq.Run(context.Background(), phases, map[string]string{})
	if outcome.Failed() {
		t.Fatalf("Run() failed: %+v", outcome)
	}

	want := []string{"clone", "make", "make install", "run tests"}
	if !reflect.DeepEqual(runner.executed, want) {
		t.Errorf("executed = %v, want %v", runner.executed, want)
	}
}

func TestSequencerStopsOnFatalFailure(t *testing.T) {
	t.Parallel()

	runner := &scriptedRunner{failWith: map[string]runtime.ExitCode{"make": 101}}
	seq := &Sequencer{Runner: runner}

	phases := []Phase{
		{Name: "build", Steps: []pipeline.Step{"make"}},
		{Name: "test", Steps: []pipeline.Step{"run tests"}},
	}

	outcome := seq.Run(context.Background(), phases, map[string]string{})
	if !outcome.Failed() {
		t.Fatal("Run() succeeded, want failure")
	}
	if outcome.ExitCode != 101 {
		t.Errorf("ExitCode = %d, want 101", outcome.ExitCode)
	}
	if outcome.FailedPhase != "build" {
		t.Errorf("FailedPhase = %q, want build", outcome.FailedPhase)
	}
	if outcome.FailedKind != KindBuild {
		t.Errorf("FailedKind = %q, want %q", outcome.FailedKind, KindBuild)
	}
	for _, script := range runner.executed {
		if script == "run tests" {
			t.Error("test phase ran after a fatal build failure")
		}
	}
}

func TestSequencerNonFatalPhaseKeepsGoing(t *testing.T) {
	t.Parallel()

	runner := &scriptedRunner{failWith: map[string]runtime.ExitCode{"rustc -vV": 1}}
	seq := &Sequencer{Runner: runner}

	phases := []Phase{
		{Name: "versions", Steps: []pipeline.Step{"rustc -vV", "cargo -V"}, NonFatal: true},
		{Name: "test", Steps: []pipeline.Step{"run tests"}},
	}

	outcome := seq.Run(context.Background(), phases, map[string]string{})
	if outcome.Failed() {
		t.Fatalf("Run() failed: %+v", outcome)
	}

	// The remaining diagnostic step and the test phase both still run.
	want := []string{"rustc -vV", "cargo -V", "run tests"}
	if !reflect.DeepEqual(runner.executed, want) {
		t.Errorf("executed = %v, want %v", runner.executed, want)
	}
}

func TestSequencerStagingCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := filepath.Join(dir, "staged.dll")
	if err := os.WriteFile(present, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.dll")

	runner := &scriptedRunner{}
	seq := &Sequencer{Runner: runner}

	phases := []Phase{
		{Name: "build first", Kind: KindBuild, Steps: []pipeline.Step{"make first"}, Requires: []string{present}},
		{Name: "build second", Kind: KindBuild, Steps: []pipeline.Step{"make second"}, Requires: []string{present, missing}},
	}

	outcome := seq.Run(context.Background(), phases, map[string]string{})
	if !outcome.Failed() {
		t.Fatal("Run() succeeded with missing staged output")
	}
	if !errors.Is(outcome.Err, ErrStagingIncomplete) {
		t.Errorf("Err = %v, want ErrStagingIncomplete", outcome.Err)
	}
	if outcome.FailedPhase != "build second" {
		t.Errorf("FailedPhase = %q, want build second", outcome.FailedPhase)
	}

	// The second build must not have run any steps.
	want := []string{"make first"}
	if !reflect.DeepEqual(runner.executed, want) {
		t.Errorf("executed = %v, want %v", runner.executed, want)
	}
}

func TestSequencerSubstitutesVariables(t *testing.T) {
	t.Parallel()

	runner := &scriptedRunner{}
	seq := &Sequencer{Runner: runner}

	phases := []Phase{
		{Name: "fetch", Steps: []pipeline.Step{"git clone repo %TEMP%/dep"}},
	}
	env := map[string]string{"TEMP": "/tmp/job"}

	if outcome := seq.Run(context.Background(), phases, env); outcome.Failed() {
		t.Fatalf("Run() failed: %+v", outcome)
	}
	if want := "git clone repo /tmp/job/dep"; runner.executed[0] != want {
		t.Errorf("executed = %q, want %q", runner.executed[0], want)
	}
}

func TestSequencerSubstitutesPlaceholderPaths(t *testing.T) {
	t.Parallel()

	temp := t.TempDir()
	staging := filepath.Join(temp, "pthreads")
	if err := os.MkdirAll(staging, 0o755); err != nil {
		t.Fatal(err)
	}
	staged := filepath.Join(staging, "staged.dll")
	if err := os.WriteFile(staged, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &scriptedRunner{}
	seq := &Sequencer{Runner: runner}

	// Working dirs, staged-output requirements and PATH contributions all
	// carry %TEMP% placeholders, as in a pipeline whose staging_dir is
	// declared relative to the temp directory.
	phases := []Phase{
		{
			Name:     "build dep",
			Kind:     KindBuild,
			Steps:    []pipeline.Step{"make"},
			Dir:      "%TEMP%/pthreads",
			Requires: []string{"%TEMP%/pthreads/staged.dll"},
			PathDirs: []string{"%TEMP%/pthreads/bin"},
		},
	}
	env := map[string]string{"TEMP": temp, "PATH": "/usr/bin"}

	outcome := seq.Run(context.Background(), phases, env)
	if outcome.Failed() {
		t.Fatalf("Run() failed: %+v", outcome)
	}
	if want := temp + "/pthreads"; runner.dirs[0] != want {
		t.Errorf("step dir = %q, want %q", runner.dirs[0], want)
	}
	if !strings.HasPrefix(env["PATH"], temp+"/pthreads/bin") {
		t.Errorf("PATH = %q, want substituted bin dir prepended", env["PATH"])
	}
}

// TestRunPlannedFixtureWithTempStaging plans the canonical two-dependency
// shape (threading shim staged under %TEMP%, then a library whose build
// consumes the staged artifact) and runs it end to end: the staging check
// must see the artifact at the expanded path, not the literal placeholder.
func TestRunPlannedFixtureWithTempStaging(t *testing.T) {
	t.Parallel()

	temp := t.TempDir()
	stagingDir := filepath.Join(temp, "pthreads")
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stagingDir, "pthreadVC2.dll"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := &pipeline.Pipeline{
		Dependencies: []pipeline.Dependency{
			{
				Name:       "pthreads",
				Repo:       "https://example.org/pthreads.git",
				StagingDir: "%TEMP%/pthreads",
				Build:      []pipeline.Step{"nmake VC"},
				Outputs:    []string{"pthreadVC2.dll"},
			},
			{
				Name:   "srt",
				Repo:   "https://example.org/srt.git",
				Prefix: "%TEMP%/srt-install",
				Build:  []pipeline.Step{"cmake ."},
			},
		},
		TestScript: []pipeline.Step{"cargo test"},
	}

	phases, err := Plan(p, pipeline.Entry{Vars: map[string]string{}}, Options{ScratchDir: filepath.Join(temp, "scratch")})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	runner := &scriptedRunner{}
	seq := &Sequencer{Runner: runner}
	env := map[string]string{"TEMP": temp}

	outcome := seq.Run(context.Background(), phases, env)
	if outcome.Failed() {
		t.Fatalf("Run() failed in %q: %v", outcome.FailedPhase, outcome.Err)
	}

	// The shim build ran inside the expanded staging directory.
	for i, script := range runner.executed {
		if script == "nmake VC" {
			if runner.dirs[i] != stagingDir {
				t.Errorf("shim build dir = %q, want %q", runner.dirs[i], stagingDir)
			}
		}
	}
	// The library's prefix bin dir landed on PATH in expanded form.
	if want := filepath.Join(temp, "srt-install", "bin"); !strings.Contains(env["PATH"], want) {
		t.Errorf("PATH = %q, want %q registered", env["PATH"], want)
	}
}

func TestSequencerPrependsPathAfterPhase(t *testing.T) {
	t.Parallel()

	runner := &scriptedRunner{}
	seq := &Sequencer{Runner: runner}

	phases := []Phase{
		{Name: "toolchain", Steps: []pipeline.Step{"install"}, PathDirs: []string{"/home/ci/.cargo/bin"}},
	}
	env := map[string]string{"PATH": "/usr/bin"}

	if outcome := seq.Run(context.Background(), phases, env); outcome.Failed() {
		t.Fatalf("Run() failed: %+v", outcome)
	}
	if !strings.HasPrefix(env["PATH"], "/home/ci/.cargo/bin") {
		t.Errorf("PATH = %q, want toolchain bin dir prepended", env["PATH"])
	}
}

func TestPlanSteps(t *testing.T) {
	t.Parallel()

	phases := []Phase{
		{Name: "fetch dep", Steps: []pipeline.Step{"clone %REPO%"}},
		{Name: "test", Steps: []pipeline.Step{"cargo test"}},
	}
	env := map[string]string{"REPO": "https://example.org/dep.git"}

	got := PlanSteps(phases, env)
	want := []string{
		"[fetch dep] clone https://example.org/dep.git",
		"[test] cargo test",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PlanSteps() = %v, want %v", got, want)
	}
}
