// SPDX-License-Identifier: MPL-2.0

// Package runtime executes individual pipeline steps.
//
// Two step runners are provided: NativeRunner shells out to the system's
// default shell (pwsh/powershell/cmd on Windows, $SHELL/bash/sh elsewhere),
// and VirtualRunner interprets steps with the embedded mvdan/sh shell so
// pipelines behave the same on hosts without a POSIX shell.
//
// A step's exit status is always propagated through Result; infrastructure
// failures (shell missing, script unreadable) are reported as Result.Error
// with a non-zero exit code.
package runtime
