// Package authfront coordinates the authentication handshake between a
// reverse-proxy access gateway and a multi-tenant identity backend on behalf
// of a sign-in surface. It parses the gateway's redirect into an operation
// descriptor, drives the matching state machine (sign-in, tenant selection,
// sign-out), and finally sends the user back to the protected resource with
// a fresh session cookie.
package authfront

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/dgellow/auth-front/internal/authui"
	"github.com/dgellow/auth-front/internal/autherr"
	"github.com/dgellow/auth-front/internal/config"
	"github.com/dgellow/auth-front/internal/log"
	"github.com/dgellow/auth-front/internal/navigation"
	"github.com/dgellow/auth-front/internal/operation"
	"github.com/dgellow/auth-front/internal/settings"
	"github.com/dgellow/auth-front/internal/storage"
	"github.com/dgellow/auth-front/internal/tenantset"
)

// Authenticator is the single surface the host page talks to. It owns the
// per-API-key client bundles, watches the navigation channel for chained
// same-document transitions, and builds one operation per visit.
type Authenticator struct {
	ui      authui.Handler
	nav     navigation.Navigator
	tenants *tenantset.Manager

	settingsOpts []settings.Option

	mu      sync.Mutex
	shared  map[string]*settings.Shared
	current operation.Operation
	started bool
	closed  chan struct{}
}

// Option configures an Authenticator.
type Option func(*options)

type options struct {
	store        *storage.Store
	settingsOpts []settings.Option
}

// WithStore installs the tenant-persistence store. Without one, tenant
// bookkeeping lives in process memory only.
func WithStore(store *storage.Store) Option {
	return func(o *options) { o.store = store }
}

// WithGCIPBaseURL overrides the identity-platform endpoint.
func WithGCIPBaseURL(base string) Option {
	return func(o *options) {
		o.settingsOpts = append(o.settingsOpts, settings.WithGCIPBaseURL(base))
	}
}

// WithGatewayBaseURL overrides the gateway endpoint.
func WithGatewayBaseURL(base string) Option {
	return func(o *options) {
		o.settingsOpts = append(o.settingsOpts, settings.WithGatewayBaseURL(base))
	}
}

// WithHTTPClient overrides the transport used by both RPC clients.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.settingsOpts = append(o.settingsOpts, settings.WithHTTPClient(hc))
	}
}

// New builds an Authenticator for one sign-in surface.
func New(ui authui.Handler, nav navigation.Navigator, opts ...Option) *Authenticator {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = storage.NewStore(context.Background())
	}

	return &Authenticator{
		ui:           ui,
		nav:          nav,
		tenants:      tenantset.New(o.store),
		settingsOpts: append(o.settingsOpts, settings.WithUserAgent(nav.UserAgent())),
		shared:       make(map[string]*settings.Shared),
		closed:       make(chan struct{}),
	}
}

// Start runs the operation for the current navigation target and begins
// watching for chained same-document transitions. It returns when that first
// operation settles; chained operations run on their own.
func (a *Authenticator) Start(ctx context.Context) error {
	a.mu.Lock()
	if !a.started {
		a.started = true
		go a.watchNavigation()
	}
	op := a.buildOperation(a.nav.CurrentURL(), a.nav.State())
	a.current = op
	a.mu.Unlock()

	return op.Start(ctx)
}

// OriginalURL exposes the pre-authentication target URL so the host can
// render "you will return to X" UI. Usable before Start.
func (a *Authenticator) OriginalURL(ctx context.Context) (string, error) {
	a.mu.Lock()
	op := a.current
	if op == nil {
		op = a.buildOperation(a.nav.CurrentURL(), a.nav.State())
		a.current = op
	}
	a.mu.Unlock()

	return op.OriginalURL(ctx)
}

// Close stops watching the navigation channel. Operations already running
// are not cancelled; a surface that navigated away simply abandons them.
func (a *Authenticator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	select {
	case <-a.closed:
	default:
		close(a.closed)
	}
}

// watchNavigation is the single consumer of the navigation channel: one new
// operation per event. The previous operation is not cancelled — it may
// still be settling, and its late results are accepted as stale side
// effects of same-document handshakes.
func (a *Authenticator) watchNavigation() {
	for {
		select {
		case <-a.closed:
			return
		case ev, ok := <-a.nav.Events():
			if !ok {
				return
			}
			log.LogDebugWithFields("authfront", "Same-document transition", map[string]any{
				"url": ev.URL.String(),
			})

			a.mu.Lock()
			op := a.buildOperation(ev.URL, ev.State)
			a.current = op
			a.mu.Unlock()

			go func() {
				if err := op.Start(context.Background()); err != nil {
					// Already reported through the collaborator's error hook.
					log.LogDebugWithFields("authfront", "Chained operation failed", map[string]any{
						"error": err.Error(),
					})
				}
			}()
		}
	}
}

// buildOperation parses the navigation target and constructs the matching
// state machine. Callers hold a.mu.
func (a *Authenticator) buildOperation(u *url.URL, st *navigation.State) operation.Operation {
	cfg := config.Parse(u, st)

	shared, err := a.sharedFor(cfg.APIKey)
	deps := operation.Deps{
		Config:    cfg,
		Shared:    shared,
		UI:        a.ui,
		Navigator: a.nav,
		Tenants:   a.tenants,
	}
	if err != nil {
		return operation.NewInvalid(deps, err)
	}

	switch cfg.Mode {
	case config.ModeLogin, config.ModeReauth:
		return operation.NewSignIn(deps)
	case config.ModeSelectAuthSession:
		return operation.NewSelectAuthSession(deps)
	case config.ModeSignout:
		return operation.NewSignOut(deps)
	default:
		return operation.NewInvalid(deps, autherr.InvalidArgument("unknown operation mode in navigation target"))
	}
}

// sharedFor returns the client bundle for one API key, building it on first
// use. Bundles are shared by reference across chained operations.
func (a *Authenticator) sharedFor(apiKey string) (*settings.Shared, error) {
	if s, ok := a.shared[apiKey]; ok {
		return s, nil
	}
	s, err := settings.New(apiKey, a.settingsOpts...)
	if err != nil {
		return nil, err
	}
	a.shared[apiKey] = s
	return s, nil
}
