// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

// SplitByCount divides blob into exactly n parts whose in-order
// concatenation is blob. Part lengths differ by at most one; the
// remainder is absorbed by the trailing parts. When n exceeds the
// blob length the leading parts are empty. n below 1 is treated as 1.
//
// Element i of the result is fragment i+1.
func SplitByCount(blob string, n int) []string {
	if n < 1 {
		n = 1
	}
	base := len(blob) / n
	remainder := len(blob) % n

	parts := make([]string, n)
	offset := 0
	for i := range n {
		length := base
		// The last `remainder` parts each take one extra byte.
		if i >= n-remainder {
			length++
		}
		parts[i] = blob[offset : offset+length]
		offset += length
	}
	return parts
}

// SplitBySize divides blob into ceil(len(blob)/maxLen) parts of
// maxLen bytes, the last holding 1..maxLen bytes. An empty blob yields
// a single empty part. maxLen below 1 is treated as 1.
//
// Splitting is byte-oriented; transport-encoded blobs are ASCII.
func SplitBySize(blob string, maxLen int) []string {
	if maxLen < 1 {
		maxLen = 1
	}
	if len(blob) == 0 {
		return []string{""}
	}

	parts := make([]string, 0, (len(blob)+maxLen-1)/maxLen)
	for offset := 0; offset < len(blob); offset += maxLen {
		end := min(offset+maxLen, len(blob))
		parts = append(parts, blob[offset:end])
	}
	return parts
}
