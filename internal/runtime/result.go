// SPDX-License-Identifier: MPL-2.0

package runtime

// Result is the outcome of executing a single step.
type Result struct {
	// ExitCode is the step's exit status. Zero means success.
	ExitCode ExitCode

	// Error is set only for infrastructure failures (missing shell,
	// unparseable script). A non-zero exit from a well-formed step is
	// normal process termination and leaves Error nil.
	Error error

	// Output and ErrOutput hold captured stdout/stderr when the step was
	// run through RunCapture; they are empty for streamed execution.
	Output    string
	ErrOutput string
}

// NewErrorResult creates a Result with the given exit code and error.
func NewErrorResult(code ExitCode, err error) *Result {
	return &Result{ExitCode: code, Error: err}
}

// NewSuccessResult creates a Result with exit code 0 and no error.
func NewSuccessResult() *Result {
	return &Result{}
}

// NewExitCodeResult creates a Result with the given exit code and no error.
// Use this for non-zero exits that represent normal process termination
// rather than infrastructure failures.
func NewExitCodeResult(code ExitCode) *Result {
	return &Result{ExitCode: code}
}

// Failed reports whether the step should be treated as failed.
func (r *Result) Failed() bool {
	return r.Error != nil || !r.ExitCode.IsSuccess()
}
