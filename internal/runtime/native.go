// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"os"
)

// ErrNoShell is returned when no usable system shell can be located.
var ErrNoShell = errors.New("no shell found")

// NativeRunner executes steps using the system's default shell.
type NativeRunner struct {
	// Shell overrides the default shell
	Shell string
	// ShellArgs are arguments passed to the shell before the script
	ShellArgs []string
}

// NewNativeRunner creates a new native step runner.
func NewNativeRunner() *NativeRunner {
	return &NativeRunner{}
}

// Name returns the runner name.
func (r *NativeRunner) Name() string {
	return RunnerNative
}

// Available returns whether this runner is available.
func (r *NativeRunner) Available() bool {
	_, err := r.getShell()
	return err == nil
}

// Run executes a step using the system shell, streaming output.
func (r *NativeRunner) Run(ctx *StepContext, script string) *Result {
	cmd, err := r.command(ctx, script)
	if err != nil {
		return NewErrorResult(1, err)
	}

	cmd.Stdout = ctx.stdout()
	cmd.Stderr = ctx.stderr()
	cmd.Stdin = ctx.stdin()

	return runCmd(cmd)
}

// RunCapture executes a step and captures its output.
func (r *NativeRunner) RunCapture(ctx *StepContext, script string) *Result {
	cmd, err := r.command(ctx, script)
	if err != nil {
		return NewErrorResult(1, err)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	result := runCmd(cmd)
	result.Output = stdout.String()
	result.ErrOutput = stderr.String()
	return result
}

func (r *NativeRunner) command(ctx *StepContext, script string) (*exec.Cmd, error) {
	shell, err := r.getShell()
	if err != nil {
		return nil, err
	}

	args := r.getShellArgs(shell)
	args = append(args, script)

	cmd := exec.CommandContext(ctx.context(), shell, args...)
	cmd.Dir = ctx.Dir
	cmd.Env = EnvToSlice(ctx.Env)
	return cmd, nil
}

func runCmd(cmd *exec.Cmd) *Result {
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return NewExitCodeResult(ExitCode(exitErr.ExitCode()))
		}
		return NewErrorResult(1, fmt.Errorf("failed to execute step: %w", err))
	}
	return NewSuccessResult()
}

// getShell determines which shell to use.
func (r *NativeRunner) getShell() (string, error) {
	// Use configured shell if set
	if r.Shell != "" {
		return r.Shell, nil
	}

	// Platform-specific defaults
	switch runtime.GOOS {
	case "windows":
		// Try PowerShell first, then cmd
		if pwsh, err := exec.LookPath("pwsh"); err == nil {
			return pwsh, nil
		}
		if ps, err := exec.LookPath("powershell"); err == nil {
			return ps, nil
		}
		return exec.LookPath("cmd")
	default:
		// Unix-like: use SHELL env var, or fall back to common shells
		if shell := os.Getenv("SHELL"); shell != "" {
			return shell, nil
		}
		if bash, err := exec.LookPath("bash"); err == nil {
			return bash, nil
		}
		if sh, err := exec.LookPath("sh"); err == nil {
			return sh, nil
		}
		return "", ErrNoShell
	}
}

// getShellArgs returns the arguments to pass to the shell.
func (r *NativeRunner) getShellArgs(shell string) []string {
	if len(r.ShellArgs) > 0 {
		return r.ShellArgs
	}

	base := filepath.Base(shell)
	base = strings.TrimSuffix(base, ".exe")

	switch base {
	case "cmd":
		return []string{"/C"}
	case "powershell", "pwsh":
		return []string{"-NoProfile", "-Command"}
	default:
		// Assume POSIX shell
		return []string{"-c"}
	}
}
