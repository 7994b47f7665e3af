// SPDX-License-Identifier: MPL-2.0

package pipeline

import "strings"

// ValidationErrors collects every semantic problem found in a pipeline so
// users see all issues at once rather than fixing and re-running iteratively.
type ValidationErrors []error

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(v))
	for i, err := range v {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual errors to errors.Is/As.
func (v ValidationErrors) Unwrap() []error { return v }
