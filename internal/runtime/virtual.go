// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// VirtualRunner executes steps with the embedded mvdan/sh interpreter.
// It needs no shell on the host, which keeps pipeline files portable
// between Windows and POSIX machines.
type VirtualRunner struct{}

// NewVirtualRunner creates a new virtual step runner.
func NewVirtualRunner() *VirtualRunner {
	return &VirtualRunner{}
}

// Name returns the runner name.
func (r *VirtualRunner) Name() string {
	return RunnerVirtual
}

// Available returns whether this runner is available.
// The virtual runner is always available as it's built-in.
func (r *VirtualRunner) Available() bool {
	return true
}

// Check parses the script without executing it, reporting syntax errors.
func (r *VirtualRunner) Check(script string) error {
	if _, err := syntax.NewParser().Parse(strings.NewReader(script), "step"); err != nil {
		return fmt.Errorf("step syntax error: %w", err)
	}
	return nil
}

// Run executes a step with the embedded interpreter, streaming output.
func (r *VirtualRunner) Run(ctx *StepContext, script string) *Result {
	return r.run(ctx, script, ctx.stdout(), ctx.stderr(), nil)
}

// RunCapture executes a step and captures its output.
func (r *VirtualRunner) RunCapture(ctx *StepContext, script string) *Result {
	var stdout, stderr bytes.Buffer
	result := r.run(ctx, script, &stdout, &stderr, nil)
	result.Output = stdout.String()
	result.ErrOutput = stderr.String()
	return result
}

func (r *VirtualRunner) run(ctx *StepContext, script string, stdout, stderr io.Writer, stdin io.Reader) *Result {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), "step")
	if err != nil {
		return NewErrorResult(1, fmt.Errorf("failed to parse step: %w", err))
	}

	if stdin == nil {
		stdin = ctx.stdin()
	}

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(EnvToSlice(ctx.Env)...)),
		interp.StdIO(stdin, stdout, stderr),
	}
	if ctx.Dir != "" {
		opts = append(opts, interp.Dir(ctx.Dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return NewErrorResult(1, fmt.Errorf("failed to create interpreter: %w", err))
	}

	if err := runner.Run(ctx.context(), prog); err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			return NewExitCodeResult(ExitCode(status))
		}
		return NewErrorResult(1, fmt.Errorf("step execution failed: %w", err))
	}

	return NewSuccessResult()
}
