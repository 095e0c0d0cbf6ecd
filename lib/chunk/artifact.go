// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// NewArtifact builds an Artifact and computes its digest.
func NewArtifact(mime string, body []byte) Artifact {
	return Artifact{
		MIME:   mime,
		Body:   body,
		Digest: Digest(body),
	}
}

// Digest returns the hex-encoded BLAKE3-256 hash of body.
func Digest(body []byte) string {
	sum := blake3.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the artifact body still matches its digest.
// An artifact without a digest verifies trivially.
func (a Artifact) Verify() bool {
	if a.Digest == "" {
		return true
	}
	return Digest(a.Body) == a.Digest
}
