// Package gcip is the typed client for the identity-platform API: project
// configuration lookup and the origin-authorization gate built on top of it.
package gcip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dgellow/auth-front/internal/autherr"
	"github.com/dgellow/auth-front/internal/log"
	"github.com/dgellow/auth-front/internal/urlutil"
)

const defaultBaseURL = "https://identitytoolkit.googleapis.com"

// Network timeouts. Mobile radios take noticeably longer to wake up, so
// mobile user agents get double the budget.
const (
	desktopTimeout = 30 * time.Second
	mobileTimeout  = 60 * time.Second
)

var mobileUARe = regexp.MustCompile(`(?i)android|iphone|ipad|ipod|mobile`)

// ProjectConfig is the response of the project configuration lookup.
type ProjectConfig struct {
	ProjectID         string   `json:"projectId"`
	AuthorizedDomains []string `json:"authorizedDomains"`
}

// Client calls the identity-platform API for one API key.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(base, "/") }
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent tunes the request timeout for the host environment.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if mobileUARe.MatchString(ua) {
			c.timeout = mobileTimeout
		}
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, autherr.InvalidArgument("API key is required")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		timeout:    desktopTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetProjectConfig fetches the project id and authorized-domain allow-list
// for the client's API key.
func (c *Client) GetProjectConfig(ctx context.Context) (*ProjectConfig, error) {
	endpoint := fmt.Sprintf("%s/v1/projects?key=%s", c.baseURL, url.QueryEscape(c.apiKey))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, autherr.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, autherr.Wrap(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, autherr.Wrap(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, autherr.FromResponse(resp.StatusCode, body)
	}

	var cfg ProjectConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, autherr.Unknown("unparsable project config response")
	}
	if cfg.ProjectID == "" {
		return nil, autherr.Unknown("project config response missing projectId")
	}
	return &cfg, nil
}

// CheckAuthorizedDomains verifies that the origin of every supplied URL is
// covered by the project's authorized domains, returning the project id only
// when all pass. URL shapes are validated locally before anything is sent.
func (c *Client) CheckAuthorizedDomains(ctx context.Context, urls ...string) (string, error) {
	for _, raw := range urls {
		if _, err := urlutil.Origin(raw); err != nil {
			return "", autherr.InvalidArgument("unable to determine origin of %q", raw)
		}
	}

	cfg, err := c.GetProjectConfig(ctx)
	if err != nil {
		return "", err
	}

	for _, raw := range urls {
		if !domainAuthorized(raw, cfg.AuthorizedDomains) {
			log.LogWarnWithFields("gcip", "Unauthorized domain", map[string]any{
				"url":     raw,
				"project": cfg.ProjectID,
			})
			return "", autherr.PermissionDenied("unauthorized domain: %s", raw)
		}
	}
	return cfg.ProjectID, nil
}

func domainAuthorized(rawurl string, domains []string) bool {
	for _, d := range domains {
		if urlutil.MatchesDomain(rawurl, d) {
			return true
		}
	}
	return false
}
