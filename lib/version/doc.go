// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the truthqr binary.
//
// Three variables are injected at build time via -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- semantic version string (set manually for releases)
//
// When GitCommit is not injected, the commit recorded by the Go
// toolchain in the binary's build info is used instead, so plain
// "go install" builds still identify themselves.
//
// [Info] is the one-line --version output; [Full] adds the Go version,
// platform, the wire format version emitted by default, and the
// transport codecs compiled in.
package version
