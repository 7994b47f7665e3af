// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// It defines error types carrying remediation steps plus a Markdown-formatted
// troubleshooting catalog for the failure classes a pipeline job can hit:
// toolchain install failures, dependency fetch/build failures, staging layout
// violations, and pipeline file problems.
package issue
