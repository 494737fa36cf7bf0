// Package gateway is the typed client for the access gateway's handshake
// endpoints: ID-token exchange, session-cookie establishment, and
// session-info lookup.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgellow/auth-front/internal/autherr"
	"github.com/dgellow/auth-front/internal/log"
)

const defaultBaseURL = "https://iap.googleapis.com/v1/gcip"

// redirectTokenHeader carries the redirect token to the target resource so
// the gateway in front of it can mint the session cookie.
const redirectTokenHeader = "x-iap-3p-token"

// PlaceholderIDToken stands in for a real ID token on sign-out, where the
// exchange endpoint is only used to resolve the original URL.
const PlaceholderIDToken = "RESOLVE_ORIGINAL_URL"

// ExchangeRequest is the token-exchange request body.
type ExchangeRequest struct {
	IDToken  string `json:"id_token"`
	State    string `json:"state"`
	TenantID string `json:"id_token_tenant_id,omitempty"`
}

// RedirectResponse is the successful exchange result. All fields are
// required; a response missing any of them is unusable.
type RedirectResponse struct {
	RedirectToken string `json:"redirectToken"`
	OriginalURI   string `json:"originalUri"`
	TargetURI     string `json:"targetUri"`
}

// SessionInfoResponse lists the candidate tenants behind one handshake.
// An empty TenantIDs is a backend misconfiguration, not a retryable state;
// callers treat it as fatal.
type SessionInfoResponse struct {
	TenantIDs   []string `json:"tenantIds"`
	OriginalURI string   `json:"originalUri"`
}

// Client calls the gateway endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the gateway endpoint, mainly for tests.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(base, "/") }
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExchangeIDToken trades an ID token plus the gateway's state token for the
// redirect token and the original/target URLs.
func (c *Client) ExchangeIDToken(ctx context.Context, req *ExchangeRequest) (*RedirectResponse, error) {
	if req.IDToken == "" {
		return nil, autherr.InvalidArgument("id_token is required")
	}
	if req.State == "" {
		return nil, autherr.InvalidArgument("state is required")
	}

	var resp RedirectResponse
	if err := c.post(ctx, "resources:handleRedirect", req, &resp); err != nil {
		return nil, err
	}
	if resp.RedirectToken == "" || resp.OriginalURI == "" || resp.TargetURI == "" {
		return nil, autherr.Unknown("incomplete redirect response from gateway")
	}
	return &resp, nil
}

// SetCookieAtTarget presents the redirect token to the target URI so the
// gateway fronting it establishes the session cookie.
func (c *Client) SetCookieAtTarget(ctx context.Context, targetURI, redirectToken string) error {
	if redirectToken == "" {
		return autherr.InvalidArgument("redirect token is required")
	}
	u, err := url.Parse(targetURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return autherr.InvalidArgument("invalid target URI %q", targetURI)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURI, nil)
	if err != nil {
		return autherr.Wrap(err)
	}
	req.Header.Set(redirectTokenHeader, redirectToken)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return autherr.Wrap(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
		return autherr.FromResponse(httpResp.StatusCode, body)
	}

	log.LogDebugWithFields("gateway", "Session cookie established", map[string]any{
		"target": u.Host,
	})
	return nil
}

// GetSessionInfo resolves the candidate tenants and the original URL bound
// to one state token.
func (c *Client) GetSessionInfo(ctx context.Context, state string) (*SessionInfoResponse, error) {
	if state == "" {
		return nil, autherr.InvalidArgument("state is required")
	}

	var resp SessionInfoResponse
	if err := c.post(ctx, "resources:getSessionInfo", map[string]string{"state": state}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, method string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return autherr.Wrap(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(payload))
	if err != nil {
		return autherr.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return autherr.Wrap(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return autherr.Wrap(err)
	}
	if resp.StatusCode != http.StatusOK {
		return autherr.FromResponse(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return autherr.Unknown("unparsable response from gateway %s", method)
	}
	return nil
}
