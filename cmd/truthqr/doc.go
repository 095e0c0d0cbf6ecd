// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Truthqr publishes documents as framed QR fragment lines and
// reassembles them from scanned lines.
//
// Commands:
//
//	publish   encode a document into fragment lines, one per output line
//	ingest    record scanned lines in the chunk store and report progress
//	assemble  rebuild a document from the store (optionally ingesting first)
//	status    show received and missing fragments for codes
//	forget    drop codes from the store
//	purge     delete expired sets from a sqlite store
//
// Configuration comes from --config, else TRUTHQR_CONFIG, else the
// built-in defaults (line envelope ER/v1, JSON, base64url, in-memory
// store). A handful of flags override individual keys.
//
// Exit codes:
//
//	0  success
//	1  unexpected error (store unreachable, I/O failure)
//	2  bad arguments, configuration or rejected lines
//	3  document incomplete
//	4  conflicting fragments
//	5  corrupt document
package main
