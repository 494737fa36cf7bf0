package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// InertURL replaces redirect targets whose scheme is not considered safe.
// Keeping a fixed, obviously-invalid value means a poisoned redirect_uri can
// never be navigated to, while parsing still succeeds downstream.
const InertURL = "about:invalid"

// Sanitize returns rawurl if it uses a safe scheme, and InertURL otherwise.
// Scheme-relative and path-relative URLs are considered safe.
func Sanitize(rawurl string) string {
	if rawurl == "" {
		return rawurl
	}
	u, err := url.Parse(strings.TrimSpace(rawurl))
	if err != nil {
		return InertURL
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
		return rawurl
	default:
		return InertURL
	}
}

// Origin returns the scheme://host[:port] portion of rawurl.
func Origin(rawurl string) (string, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawurl, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("URL %q has no origin", rawurl)
	}
	return u.Scheme + "://" + u.Host, nil
}

// MatchesDomain reports whether the hostname of rawurl is domain itself or a
// subdomain of it. Ports are ignored; matching is case-insensitive.
func MatchesDomain(rawurl, domain string) bool {
	u, err := url.Parse(rawurl)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain = strings.ToLower(strings.TrimSpace(domain))
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// WithQuery returns base with the given query parameters set, replacing any
// existing values for the same keys. Keys with empty values are omitted.
func WithQuery(base string, params map[string]string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", base, err)
	}
	q := u.Query()
	for k, v := range params {
		if v == "" {
			continue
		}
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
