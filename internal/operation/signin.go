package operation

import (
	"context"
	"fmt"

	"github.com/dgellow/auth-front/internal/authui"
	"github.com/dgellow/auth-front/internal/autherr"
	"github.com/dgellow/auth-front/internal/cache"
	"github.com/dgellow/auth-front/internal/config"
	"github.com/dgellow/auth-front/internal/gateway"
	"github.com/dgellow/auth-front/internal/log"
)

// implicitSignOutCodes are token-fetch failures that mean the underlying
// account is gone rather than the request having failed: the session is
// treated as absent instead of surfacing an error.
var implicitSignOutCodes = map[string]bool{
	"USER_DISABLED":  true,
	"TOKEN_EXPIRED":  true,
	"USER_NOT_FOUND": true,
}

// SignIn drives a sign-in or forced re-authentication visit: silent session
// check, interactive sign-in when needed, token exchange, session-cookie
// establishment, and the final navigation back to the resource.
type SignIn struct {
	base
}

// NewSignIn validates the descriptor and builds the operation. Validation
// failures are deferred to Start so they surface through the error hook.
func NewSignIn(deps Deps) *SignIn {
	op := &SignIn{base: newBase(deps)}
	op.self = op
	op.needsClient = true

	switch {
	case deps.Config.TenantID == "":
		op.initErr = autherr.InvalidArgument("sign-in requires a resolvable tenant identity")
	case deps.Config.RedirectURL == "":
		op.initErr = autherr.InvalidArgument("sign-in requires a redirect URL")
	case deps.Config.State == "":
		op.initErr = autherr.InvalidArgument("sign-in requires a state token")
	}
	return op
}

func (op *SignIn) name() string { return "signIn" }

func (op *SignIn) process(ctx context.Context) error {
	user, err := op.silentUser(ctx)
	if err != nil {
		return err
	}

	if user == nil {
		user, err = op.interactiveUser(ctx)
		if err != nil {
			return err
		}
	}

	return op.finish(ctx, user)
}

// silentUser resolves an already-signed-in user whose token is still usable.
// Forced re-auth ignores the existing session entirely.
func (op *SignIn) silentUser(ctx context.Context) (authui.User, error) {
	if op.cfg.Mode == config.ModeReauth {
		return nil, nil
	}

	user := awaitSessionUser(ctx, op.client)
	if user == nil {
		return nil, nil
	}

	if _, err := user.IDToken(ctx, false); err != nil {
		ae := autherr.Wrap(err)
		if implicitSignOutCodes[ae.SubCode] {
			log.LogDebugWithFields("operation", "Existing session unusable, treating as signed out", map[string]any{
				"subCode": ae.SubCode,
			})
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// interactiveUser hands control to the collaborator's sign-in UI. A surface
// embedded cross-origin never gets here with UI; only the silent path is
// tolerated in that context.
func (op *SignIn) interactiveUser(ctx context.Context) (authui.User, error) {
	if op.nav.EmbeddedCrossOrigin() {
		return nil, autherr.PermissionDenied("interactive sign-in is not allowed in a cross-origin frame")
	}

	op.setState(stateAwaitingSignIn)
	op.hideProgress()

	cred, err := op.ui.StartSignIn(ctx, op.client, op.cfg.SelectedTenantInfo)
	if err != nil {
		return nil, fmt.Errorf("interactive sign-in: %w", err)
	}
	if cred == nil || cred.User == nil {
		return nil, autherr.Unknown("interactive sign-in resolved without a credential")
	}

	op.setState(stateWorking)
	op.showProgress()

	if err := op.verifyTenant(cred.User); err != nil {
		return nil, err
	}
	return cred.User, nil
}

// finish is shared by the silent and interactive paths: optional user
// post-processing, token exchange, cookie establishment, tenant bookkeeping,
// and the redirect back to the resource.
func (op *SignIn) finish(ctx context.Context, user authui.User) error {
	if processor, ok := op.ui.(authui.UserProcessor); ok {
		processed, err := processor.ProcessUser(ctx, user)
		if err != nil {
			return fmt.Errorf("processing user: %w", err)
		}
		if err := op.verifyTenant(processed); err != nil {
			return err
		}
		user = processed
	}

	idToken, err := user.IDToken(ctx, false)
	if err != nil {
		return err
	}

	resp, err := op.exchange(ctx, idToken)
	if err != nil {
		return err
	}

	cookieKey := fmt.Sprintf("setCookie|%s|%s", resp.TargetURI, resp.RedirectToken)
	if _, err := cache.Get(ctx, op.shared.Cache, cookieKey, cookieTTL, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op.shared.Gateway.SetCookieAtTarget(ctx, resp.TargetURI, resp.RedirectToken)
	}); err != nil {
		return err
	}

	if err := op.tenants.Add(ctx, op.projectID, op.cfg.TenantID); err != nil {
		// Bookkeeping only; the handshake itself has succeeded.
		log.LogWarnWithFields("operation", "Failed to record tenant", map[string]any{
			"tenant": op.cfg.TenantID,
			"error":  err.Error(),
		})
	}

	op.hideProgress()
	return op.nav.Navigate(resp.OriginalURI)
}

func (op *SignIn) exchange(ctx context.Context, idToken string) (*gateway.RedirectResponse, error) {
	key := fmt.Sprintf("exchange|%s|%s", op.cfg.State, idToken)
	return cache.Get(ctx, op.shared.Cache, key, exchangeTTL, func(ctx context.Context) (*gateway.RedirectResponse, error) {
		return op.shared.Gateway.ExchangeIDToken(ctx, &gateway.ExchangeRequest{
			IDToken:  idToken,
			State:    op.cfg.State,
			TenantID: config.NormalizeTenantID(op.cfg.TenantID),
		})
	})
}

// OriginalURL resolves the pre-authentication target the user will return to.
func (op *SignIn) OriginalURL(ctx context.Context) (string, error) {
	info, err := op.sessionInfo(ctx)
	if err != nil {
		return "", err
	}
	return info.OriginalURI, nil
}

// awaitSessionUser subscribes once to the client's session-state
// notification and unsubscribes on the first callback.
func awaitSessionUser(ctx context.Context, client authui.Client) authui.User {
	ch := make(chan authui.User, 1)
	unsubscribe := client.OnSessionState(func(u authui.User) {
		select {
		case ch <- u:
		default:
		}
	})
	defer unsubscribe()

	select {
	case u := <-ch:
		return u
	case <-ctx.Done():
		return nil
	}
}
