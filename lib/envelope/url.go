// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package envelope

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/bureau-foundation/truthqr/lib/chunk"
)

// URL envelope defaults.
const (
	DefaultScheme       = "truth"
	DefaultPayloadParam = "c"
	DefaultVersionParam = "v"
)

// Query keys of the web form. The payload and version keys are
// configurable; these are not.
const (
	queryPrefix = "prefix"
	queryCode   = "code"
	queryIndex  = "i"
	queryTotal  = "n"
)

// URLConfig configures a URL envelope. Zero fields take the package
// defaults.
type URLConfig struct {
	Prefix  string
	Version string

	// Scheme is the deep-link scheme. Default "truth".
	Scheme string

	// WebBase selects the web form when non-empty, for example
	// "https://results.example.org/scan".
	WebBase string

	// PayloadParam is the query key carrying the fragment. Default "c".
	PayloadParam string

	// VersionParam is the web-form query key carrying the version.
	// Default "v". On parse the key is optional and falls back to the
	// configured version.
	VersionParam string
}

func (c URLConfig) withDefaults() URLConfig {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Scheme == "" {
		c.Scheme = DefaultScheme
	}
	if c.PayloadParam == "" {
		c.PayloadParam = DefaultPayloadParam
	}
	if c.VersionParam == "" {
		c.VersionParam = DefaultVersionParam
	}
	return c
}

// URL frames fragments as deep links or web URLs.
type URL struct {
	config URLConfig
}

// NewURL returns a URL envelope with defaults applied to config.
func NewURL(config URLConfig) URL {
	return URL{config: config.withDefaults()}
}

// Config returns the effective configuration.
func (u URL) Config() URLConfig { return u.config }

func (u URL) Prefix() string { return u.config.Prefix }

func (u URL) Version() string { return u.config.Version }

// WithPrefix returns a copy of u emitting and accepting prefix.
func (u URL) WithPrefix(prefix string) URL {
	u.config.Prefix = prefix
	return u
}

// WithVersion returns a copy of u emitting and accepting version.
func (u URL) WithVersion(version string) URL {
	u.config.Version = version
	return u
}

// WithScheme returns a copy of u using scheme for deep links.
func (u URL) WithScheme(scheme string) URL {
	u.config.Scheme = scheme
	return u
}

// WithWebBase returns a copy of u emitting web URLs under base. An
// empty base switches back to deep links.
func (u URL) WithWebBase(base string) URL {
	u.config.WebBase = base
	return u
}

// WithPayloadParam returns a copy of u carrying fragments under key.
func (u URL) WithPayloadParam(key string) URL {
	u.config.PayloadParam = key
	return u
}

func (u URL) Header(code string, index, total int, fragment string) (string, error) {
	header := chunk.Header{Code: code, Index: index, Total: total}
	if err := header.Validate(); err != nil {
		return "", err
	}
	if u.config.WebBase != "" {
		return u.webHeader(code, index, total, fragment), nil
	}
	return u.deepLinkHeader(code, index, total, fragment), nil
}

func (u URL) deepLinkHeader(code string, index, total int, fragment string) string {
	return fmt.Sprintf("%s://%s/%s/%s/%d/%d?%s=%s",
		u.config.Scheme,
		u.config.Version,
		u.config.Prefix,
		url.QueryEscape(code),
		index,
		total,
		u.config.PayloadParam,
		url.QueryEscape(fragment),
	)
}

func (u URL) webHeader(code string, index, total int, fragment string) string {
	separator := "?"
	if strings.Contains(u.config.WebBase, "?") {
		separator = "&"
	}

	var builder strings.Builder
	builder.WriteString(u.config.WebBase)
	builder.WriteString(separator)
	pairs := [][2]string{
		{u.config.VersionParam, u.config.Version},
		{queryPrefix, u.config.Prefix},
		{queryCode, code},
		{queryIndex, strconv.Itoa(index)},
		{queryTotal, strconv.Itoa(total)},
		{u.config.PayloadParam, fragment},
	}
	for i, pair := range pairs {
		if i > 0 {
			builder.WriteString("&")
		}
		builder.WriteString(url.QueryEscape(pair[0]))
		builder.WriteString("=")
		builder.WriteString(url.QueryEscape(pair[1]))
	}
	return builder.String()
}

func (u URL) Parse(line string) (chunk.Header, error) {
	parsed, err := url.Parse(line)
	if err != nil {
		return chunk.Header{}, chunk.Malformed("invalid URL: %v", err)
	}
	query, err := url.ParseQuery(parsed.RawQuery)
	if err != nil {
		return chunk.Header{}, chunk.Malformed("invalid query: %v", err)
	}

	if isWebForm(line, query) {
		return u.parseWeb(query)
	}
	return u.parseDeepLink(parsed, query)
}

// isWebForm reports whether a URL carries its header in the query.
func isWebForm(line string, query url.Values) bool {
	if !strings.Contains(line, "?") {
		return false
	}
	return query.Has(queryCode) || query.Has(queryIndex) || query.Has(queryTotal)
}

func (u URL) parseWeb(query url.Values) (chunk.Header, error) {
	for _, key := range []string{queryPrefix, queryCode, queryIndex, queryTotal, u.config.PayloadParam} {
		if !query.Has(key) {
			return chunk.Header{}, chunk.Malformed("missing query parameter %q", key)
		}
	}

	header := chunk.Header{
		Prefix:   query.Get(queryPrefix),
		Version:  u.config.Version,
		Code:     query.Get(queryCode),
		Fragment: query.Get(u.config.PayloadParam),
	}
	if query.Has(u.config.VersionParam) {
		header.Version = query.Get(u.config.VersionParam)
	}

	var err error
	if header.Index, err = parseNumber("index", query.Get(queryIndex)); err != nil {
		return chunk.Header{}, withCode(err, header)
	}
	if header.Total, err = parseNumber("total", query.Get(queryTotal)); err != nil {
		return chunk.Header{}, withCode(err, header)
	}
	return u.finish(header)
}

func (u URL) parseDeepLink(parsed *url.URL, query url.Values) (chunk.Header, error) {
	if !strings.EqualFold(parsed.Scheme, u.config.Scheme) {
		return chunk.Header{}, chunk.Malformed("scheme %q, want %q", parsed.Scheme, u.config.Scheme)
	}

	// scheme://VERSION/PREFIX/CODE/INDEX/TOTAL: the version is the
	// authority, the rest are path segments.
	segments := strings.Split(strings.TrimPrefix(parsed.EscapedPath(), "/"), "/")
	if parsed.Host == "" || len(segments) != 4 {
		return chunk.Header{}, chunk.Malformed("expected scheme://version/prefix/code/index/total, got %d path segments", len(segments))
	}

	code, err := url.QueryUnescape(segments[1])
	if err != nil {
		return chunk.Header{}, chunk.Malformed("code segment: %v", err)
	}
	header := chunk.Header{
		Prefix:  segments[0],
		Version: parsed.Host,
		Code:    code,
	}

	if header.Index, err = parseNumber("index", segments[2]); err != nil {
		return chunk.Header{}, withCode(err, header)
	}
	if header.Total, err = parseNumber("total", segments[3]); err != nil {
		return chunk.Header{}, withCode(err, header)
	}

	if !query.Has(u.config.PayloadParam) {
		return chunk.Header{}, withCode(chunk.Malformed("missing payload parameter %q", u.config.PayloadParam), header)
	}
	header.Fragment = query.Get(u.config.PayloadParam)
	return u.finish(header)
}

// finish applies the identity and range checks shared by both forms.
func (u URL) finish(header chunk.Header) (chunk.Header, error) {
	if err := checkIdentity(header, u.config.Prefix, u.config.Version); err != nil {
		return chunk.Header{}, err
	}
	if err := header.Validate(); err != nil {
		return chunk.Header{}, withCode(err, header)
	}
	return header, nil
}
