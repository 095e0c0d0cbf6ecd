// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/truthqr/lib/chunk"
)

func TestURLDeepLinkFormat(t *testing.T) {
	framed, err := NewURL(URLConfig{}).Header("XYZ", 2, 5, "eyJoZWxsbyI6IndvcmxkIn0")
	if err != nil {
		t.Fatalf("Header: %v", err)
	}
	want := "truth://v1/ER/XYZ/2/5?c=eyJoZWxsbyI6IndvcmxkIn0"
	if framed != want {
		t.Errorf("Header = %q, want %q", framed, want)
	}
}

func TestURLWebFormat(t *testing.T) {
	envelope := NewURL(URLConfig{WebBase: "https://results.example.org/scan"})
	framed, err := envelope.Header("XYZ", 2, 5, "eyJoZWxsbyI6IndvcmxkIn0")
	if err != nil {
		t.Fatalf("Header: %v", err)
	}
	want := "https://results.example.org/scan?v=v1&prefix=ER&code=XYZ&i=2&n=5&c=eyJoZWxsbyI6IndvcmxkIn0"
	if framed != want {
		t.Errorf("Header = %q, want %q", framed, want)
	}

	withQuery := envelope.WithWebBase("https://results.example.org/scan?station=7")
	framed, _ = withQuery.Header("XYZ", 1, 1, "abc")
	if !strings.HasPrefix(framed, "https://results.example.org/scan?station=7&v=v1&") {
		t.Errorf("Header with existing query = %q", framed)
	}
}

func TestURLRoundTrip(t *testing.T) {
	envelopes := map[string]URL{
		"deep link": NewURL(URLConfig{}),
		"web":       NewURL(URLConfig{WebBase: "https://results.example.org/scan"}),
		"custom":    NewURL(URLConfig{Prefix: "BAL", Version: "v3", Scheme: "vote", PayloadParam: "p"}),
	}
	codes := []string{"XYZ", "code with spaces", "a/b?c+d&e=f#g", "ñandú-選挙"}
	fragments := []string{"eyJoZWxsbyI6IndvcmxkIn0", "", "a/b?c+d&e=f%20", "_-_-"}

	for name, envelope := range envelopes {
		for _, code := range codes {
			for _, fragment := range fragments {
				framed, err := envelope.Header(code, 3, 7, fragment)
				if err != nil {
					t.Fatalf("%s: Header: %v", name, err)
				}
				header, err := envelope.Parse(framed)
				if err != nil {
					t.Fatalf("%s: Parse(%q): %v", name, framed, err)
				}
				if header.Code != code || header.Index != 3 || header.Total != 7 || header.Fragment != fragment {
					t.Errorf("%s: round trip of %q = %+v", name, framed, header)
				}
				if header.Prefix != envelope.Prefix() || header.Version != envelope.Version() {
					t.Errorf("%s: identity = %s/%s", name, header.Prefix, header.Version)
				}
			}
		}
	}
}

func TestURLParseWebWithoutVersionFallsBack(t *testing.T) {
	envelope := NewURL(URLConfig{})
	header, err := envelope.Parse("https://results.example.org/scan?prefix=ER&code=XYZ&i=1&n=2&c=abc")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if header.Version != "v1" || header.Code != "XYZ" || header.Index != 1 || header.Total != 2 {
		t.Errorf("Parse = %+v", header)
	}
}

func TestURLParseRejects(t *testing.T) {
	envelope := NewURL(URLConfig{})
	tests := []struct {
		name   string
		input  string
		reason error
	}{
		{"too few segments", "truth://v1/ER/XYZ/2?c=abc", chunk.ErrMalformed},
		{"too many segments", "truth://v1/ER/XYZ/2/5/6?c=abc", chunk.ErrMalformed},
		{"missing payload", "truth://v1/ER/XYZ/2/5", chunk.ErrMalformed},
		{"missing payload with other query", "truth://v1/ER/XYZ/2/5?x=abc", chunk.ErrMalformed},
		{"wrong scheme", "https://v1/ER/XYZ/2/5?c=abc", chunk.ErrMalformed},
		{"not a url", "ER|v1|XYZ|2/5|abc", chunk.ErrMalformed},
		{"non numeric index", "truth://v1/ER/XYZ/two/5?c=abc", chunk.ErrMalformed},
		{"wrong prefix", "truth://v1/BAL/XYZ/2/5?c=abc", chunk.ErrPrefixMismatch},
		{"wrong version", "truth://v9/ER/XYZ/2/5?c=abc", chunk.ErrVersionMismatch},
		{"index past total", "truth://v1/ER/XYZ/6/5?c=abc", chunk.ErrIndexOutOfRange},
		{"zero index", "truth://v1/ER/XYZ/0/5?c=abc", chunk.ErrIndexOutOfRange},
		{"web missing code", "https://x.org/s?v=v1&prefix=ER&i=1&n=2&c=abc", chunk.ErrMalformed},
		{"web missing total", "https://x.org/s?v=v1&prefix=ER&code=XYZ&i=1&c=abc", chunk.ErrMalformed},
		{"web missing prefix", "https://x.org/s?v=v1&code=XYZ&i=1&n=2&c=abc", chunk.ErrMalformed},
		{"web missing payload", "https://x.org/s?v=v1&prefix=ER&code=XYZ&i=1&n=2", chunk.ErrMalformed},
		{"web wrong version", "https://x.org/s?v=v2&prefix=ER&code=XYZ&i=1&n=2&c=abc", chunk.ErrVersionMismatch},
		{"web wrong prefix", "https://x.org/s?v=v1&prefix=BAL&code=XYZ&i=1&n=2&c=abc", chunk.ErrPrefixMismatch},
		{"web index past total", "https://x.org/s?v=v1&prefix=ER&code=XYZ&i=3&n=2&c=abc", chunk.ErrIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := envelope.Parse(tt.input)
			if !errors.Is(err, tt.reason) {
				t.Fatalf("Parse(%q) = %v, want %v", tt.input, err, tt.reason)
			}
			if !chunk.IsValidation(err) {
				t.Errorf("class = %v, want validation", chunk.ClassOf(err))
			}
		})
	}
}

func TestURLHeaderRejectsOutOfRange(t *testing.T) {
	for _, envelope := range []URL{NewURL(URLConfig{}), NewURL(URLConfig{WebBase: "https://x.org/s"})} {
		if _, err := envelope.Header("XYZ", 0, 5, "a"); !errors.Is(err, chunk.ErrIndexOutOfRange) {
			t.Errorf("Header(index 0) = %v", err)
		}
		if _, err := envelope.Header("XYZ", 6, 5, "a"); !errors.Is(err, chunk.ErrIndexOutOfRange) {
			t.Errorf("Header(index 6 of 5) = %v", err)
		}
		if _, err := envelope.Header("XYZ", 1, 0, "a"); !errors.Is(err, chunk.ErrIndexOutOfRange) {
			t.Errorf("Header(total 0) = %v", err)
		}
	}
}

func TestURLOverridesAreIndependent(t *testing.T) {
	base := NewURL(URLConfig{})
	web := base.WithWebBase("https://x.org/s")
	other := base.WithPrefix("BAL").WithScheme("vote").WithPayloadParam("p").WithVersion("v2")

	if base.Config().WebBase != "" || base.Prefix() != "ER" || base.Config().Scheme != "truth" {
		t.Fatalf("original mutated: %+v", base.Config())
	}
	if web.Config().WebBase != "https://x.org/s" {
		t.Errorf("WithWebBase = %+v", web.Config())
	}
	framed, _ := other.Header("XYZ", 1, 1, "abc")
	if framed != "vote://v2/BAL/XYZ/1/1?p=abc" {
		t.Errorf("Header = %q", framed)
	}
}
