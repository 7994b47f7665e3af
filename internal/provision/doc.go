// SPDX-License-Identifier: MPL-2.0

// Package provision turns a pipeline and one matrix entry into an ordered
// list of phases, then executes them with fail-fast semantics.
//
// The phase order is fixed: per-dependency fetch and build (in declaration
// order), the pipeline's install steps, the toolchain install for the
// entry's channel/target, a non-fatal version report, the optional project
// build, and finally the test script. Dependencies are fetched fresh every
// job; there is no retry and no cache. A later dependency's build refuses
// to start while an earlier dependency's staged outputs are missing.
package provision
