// Package operation contains the protocol state machines behind each
// gateway-initiated visit: sign-in, tenant selection, and sign-out. All
// three share one skeleton: authorize the involved origins, run the
// mode-specific steps, and funnel every failure through the collaborator's
// error hook with a bound retry.
package operation

import (
	"context"
	"fmt"
	"time"

	"github.com/dgellow/auth-front/internal/authui"
	"github.com/dgellow/auth-front/internal/autherr"
	"github.com/dgellow/auth-front/internal/cache"
	"github.com/dgellow/auth-front/internal/config"
	"github.com/dgellow/auth-front/internal/log"
	"github.com/dgellow/auth-front/internal/navigation"
	"github.com/dgellow/auth-front/internal/settings"
	"github.com/dgellow/auth-front/internal/tenantset"
)

// Cache lifetimes. Domain authorization practically never changes within a
// handshake; the remaining results only need to survive a retry or a chained
// transition.
const (
	authzTTL       = 30 * time.Minute
	sessionInfoTTL = 5 * time.Minute
	exchangeTTL    = 5 * time.Minute
	cookieTTL      = 5 * time.Minute
)

type state string

const (
	stateCreated        state = "created"
	stateAuthorizing    state = "authorizing"
	stateWorking        state = "working"
	stateAwaitingSignIn state = "awaiting-sign-in"
	stateCompleted      state = "completed"
	stateFailed         state = "failed"
)

// Operation is one handshake state machine. Start drives it to completion;
// OriginalURL exposes the pre-authentication target for host-page UI.
type Operation interface {
	Start(ctx context.Context) error
	OriginalURL(ctx context.Context) (string, error)
}

// processor is the mode-specific step a concrete operation plugs into the
// shared skeleton.
type processor interface {
	process(ctx context.Context) error
	name() string
}

// Deps carries everything an operation needs; owned by the facade and shared
// by reference across chained operations.
type Deps struct {
	Config    *config.OperationConfig
	Shared    *settings.Shared
	UI        authui.Handler
	Navigator navigation.Navigator
	Tenants   *tenantset.Manager
}

type base struct {
	cfg     *config.OperationConfig
	shared  *settings.Shared
	ui      authui.Handler
	nav     navigation.Navigator
	tenants *tenantset.Manager

	self        processor
	needsClient bool

	// Construction-time validation failures are deferred here so they
	// surface through Start and the error hook like every other failure.
	initErr error

	state     state
	client    authui.Client
	projectID string
}

func newBase(deps Deps) base {
	return base{
		cfg:     deps.Config,
		shared:  deps.Shared,
		ui:      deps.UI,
		nav:     deps.Navigator,
		tenants: deps.Tenants,
		state:   stateCreated,
	}
}

func (b *base) setState(s state) {
	b.state = s
	log.LogDebugWithFields("operation", "State transition", map[string]any{
		"operation": b.self.name(),
		"state":     string(s),
	})
}

// Start runs the skeleton. On failure the progress indicator is hidden, the
// error is normalized, reported through the collaborator's error hook, and
// returned with a Retry bound to this same instance; memoized steps make the
// retry replay only what had not yet succeeded.
func (b *base) Start(ctx context.Context) error {
	err := b.run(ctx)
	if err == nil {
		b.setState(stateCompleted)
		return nil
	}

	b.setState(stateFailed)
	b.hideProgress()

	ae := autherr.Wrap(err)
	ae.Retry = func(ctx context.Context) error {
		return b.Start(ctx)
	}

	log.LogErrorWithFields("operation", "Operation failed", map[string]any{
		"operation": b.self.name(),
		"code":      string(ae.Code),
		"error":     ae.Message,
	})
	if reporter, ok := b.ui.(authui.ErrorReporter); ok {
		reporter.HandleError(ae)
	}
	return ae
}

func (b *base) run(ctx context.Context) error {
	if b.initErr != nil {
		return b.initErr
	}

	b.showProgress()

	if b.needsClient && b.client == nil {
		client, err := b.ui.GetAuth(b.shared.APIKey, config.NormalizeTenantID(b.cfg.TenantID))
		if err != nil {
			return fmt.Errorf("resolving identity client: %w", err)
		}
		b.client = client
	}

	b.setState(stateAuthorizing)
	projectID, err := b.authorize(ctx)
	if err != nil {
		return err
	}
	b.projectID = projectID

	b.setState(stateWorking)
	return b.self.process(ctx)
}

// authorize issues the combined "are these URLs authorized for this project"
// check covering the current origin and the redirect target. The result is
// cached; chained operations and retries share it. A redirect target that was
// sanitized to the inert URL stays in the list: it has no origin, so the
// check rejects the visit instead of letting a poisoned redirect through.
func (b *base) authorize(ctx context.Context) (string, error) {
	urls := []string{b.nav.CurrentURL().String()}
	if b.cfg.RedirectURL != "" {
		urls = append(urls, b.cfg.RedirectURL)
	}

	key := fmt.Sprintf("authz|%s|%v", b.shared.APIKey, urls)
	return cache.Get(ctx, b.shared.Cache, key, authzTTL, func(ctx context.Context) (string, error) {
		return b.shared.GCIP.CheckAuthorizedDomains(ctx, urls...)
	})
}

// sessionInfo resolves the candidate tenants and original URL bound to the
// state token, memoized across the selection surface and OriginalURL calls.
func (b *base) sessionInfo(ctx context.Context) (*gatewaySessionInfo, error) {
	if b.cfg.State == "" {
		return nil, autherr.InvalidArgument("no state token in navigation target")
	}
	key := "sessionInfo|" + b.cfg.State
	return cache.Get(ctx, b.shared.Cache, key, sessionInfoTTL, func(ctx context.Context) (*gatewaySessionInfo, error) {
		resp, err := b.shared.Gateway.GetSessionInfo(ctx, b.cfg.State)
		if err != nil {
			return nil, err
		}
		return &gatewaySessionInfo{TenantIDs: resp.TenantIDs, OriginalURI: resp.OriginalURI}, nil
	})
}

func (b *base) showProgress() {
	if reporter, ok := b.ui.(authui.ProgressReporter); ok {
		reporter.ShowProgressBar()
	}
}

func (b *base) hideProgress() {
	if reporter, ok := b.ui.(authui.ProgressReporter); ok {
		reporter.HideProgressBar()
	}
}

// verifyTenant rejects a user whose tenant does not match the operation's
// resolved tenant identity. No further RPCs run after a mismatch.
func (b *base) verifyTenant(user authui.User) error {
	want := config.NormalizeTenantID(b.cfg.TenantID)
	if got := user.TenantID(); got != want {
		return autherr.InvalidArgument("signed-in tenant %q does not match expected tenant %q", got, want)
	}
	return nil
}

type gatewaySessionInfo struct {
	TenantIDs   []string
	OriginalURI string
}
