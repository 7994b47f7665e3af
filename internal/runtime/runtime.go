// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"io"
	"os"
)

const (
	// RunnerNative identifies the system-shell runner.
	RunnerNative = "native"
	// RunnerVirtual identifies the embedded mvdan/sh runner.
	RunnerVirtual = "virtual"
)

type (
	// StepContext carries everything a Runner needs to execute one step.
	StepContext struct {
		// Context is used for cancellation and deadlines.
		Context context.Context

		// Dir is the working directory for the step. Empty means the
		// process working directory.
		Dir string

		// Env is the full environment for the step (no host inheritance
		// happens inside the runner; callers build the environment with
		// BuildEnv so precedence stays in one place).
		Env map[string]string

		// Stdout, Stderr and Stdin are the step's I/O streams. Nil values
		// default to the process streams.
		Stdout io.Writer
		Stderr io.Writer
		Stdin  io.Reader
	}

	// Runner executes a single step script and reports its Result.
	Runner interface {
		// Name returns the runner identifier (RunnerNative or RunnerVirtual).
		Name() string

		// Available reports whether this runner can execute on the host.
		Available() bool

		// Run executes the script, streaming output to the context writers.
		Run(ctx *StepContext, script string) *Result

		// RunCapture executes the script and captures stdout/stderr into
		// the Result instead of streaming.
		RunCapture(ctx *StepContext, script string) *Result
	}
)

// ForName returns the runner registered under name, or nil when the name
// is not recognized.
func ForName(name string) Runner {
	switch name {
	case RunnerNative:
		return NewNativeRunner()
	case RunnerVirtual:
		return NewVirtualRunner()
	default:
		return nil
	}
}

func (c *StepContext) stdout() io.Writer {
	if c.Stdout != nil {
		return c.Stdout
	}
	return os.Stdout
}

func (c *StepContext) stderr() io.Writer {
	if c.Stderr != nil {
		return c.Stderr
	}
	return os.Stderr
}

func (c *StepContext) stdin() io.Reader {
	if c.Stdin != nil {
		return c.Stdin
	}
	return os.Stdin
}

func (c *StepContext) context() context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}
