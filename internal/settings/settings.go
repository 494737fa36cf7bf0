// Package settings bundles the per-API-key RPC clients with the shared
// memoization cache, so repeated handshake steps and chained same-document
// transitions reuse results instead of re-issuing network calls.
package settings

import (
	"net/http"

	"github.com/dgellow/auth-front/internal/cache"
	"github.com/dgellow/auth-front/internal/gateway"
	"github.com/dgellow/auth-front/internal/gcip"
)

// Shared is passed by reference into every operation built for one API key
// within one facade's lifetime. It is read-mostly: the cache is the only
// mutable part and is safe for concurrent use.
type Shared struct {
	APIKey  string
	GCIP    *gcip.Client
	Gateway *gateway.Client
	Cache   *cache.ResultCache
}

// Option configures a Shared bundle.
type Option func(*options)

type options struct {
	gcipBaseURL    string
	gatewayBaseURL string
	httpClient     *http.Client
	userAgent      string
}

// WithGCIPBaseURL overrides the identity-platform endpoint.
func WithGCIPBaseURL(base string) Option {
	return func(o *options) { o.gcipBaseURL = base }
}

// WithGatewayBaseURL overrides the gateway endpoint.
func WithGatewayBaseURL(base string) Option {
	return func(o *options) { o.gatewayBaseURL = base }
}

// WithHTTPClient overrides the transport for both clients.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithUserAgent tunes client timeouts for the host environment.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// New builds the bundle for one API key.
func New(apiKey string, opts ...Option) (*Shared, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var gcipOpts []gcip.Option
	var gatewayOpts []gateway.Option
	if o.gcipBaseURL != "" {
		gcipOpts = append(gcipOpts, gcip.WithBaseURL(o.gcipBaseURL))
	}
	if o.gatewayBaseURL != "" {
		gatewayOpts = append(gatewayOpts, gateway.WithBaseURL(o.gatewayBaseURL))
	}
	if o.httpClient != nil {
		gcipOpts = append(gcipOpts, gcip.WithHTTPClient(o.httpClient))
		gatewayOpts = append(gatewayOpts, gateway.WithHTTPClient(o.httpClient))
	}
	if o.userAgent != "" {
		gcipOpts = append(gcipOpts, gcip.WithUserAgent(o.userAgent))
	}

	gcipClient, err := gcip.NewClient(apiKey, gcipOpts...)
	if err != nil {
		return nil, err
	}

	return &Shared{
		APIKey:  apiKey,
		GCIP:    gcipClient,
		Gateway: gateway.NewClient(gatewayOpts...),
		Cache:   cache.New(),
	}, nil
}
