// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package envelope frames one fragment and its metadata into a single
// string that fits in a QR code, and parses such strings back into a
// [chunk.Header].
//
// Two wire formats are supported:
//
//	Line:       PREFIX|VERSION|CODE|INDEX/TOTAL|FRAGMENT
//	Deep link:  scheme://VERSION/PREFIX/urlencode(CODE)/INDEX/TOTAL?c=urlencode(FRAGMENT)
//	Web URL:    BASE?v=VERSION&prefix=PREFIX&code=CODE&i=INDEX&n=TOTAL&c=FRAGMENT
//
// The URL envelope emits the web form when a web base is configured
// and the deep-link form otherwise. Its parser accepts both.
//
// Envelopes are immutable values. The With* methods return a new,
// independently configured envelope and leave the receiver untouched,
// so a single default can be specialised per document kind:
//
//	returns := envelope.NewLine("", "")           // ER / v1
//	ballots := returns.WithPrefix("BAL")
//
// Header rejects out-of-range positions, and Parse rejects anything
// that does not match the configured prefix and version exactly. All
// failures are [chunk.Validation] errors.
package envelope
