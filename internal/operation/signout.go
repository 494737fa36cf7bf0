package operation

import (
	"context"
	"fmt"

	"github.com/dgellow/auth-front/internal/authui"
	"github.com/dgellow/auth-front/internal/cache"
	"github.com/dgellow/auth-front/internal/config"
	"github.com/dgellow/auth-front/internal/gateway"
	"github.com/dgellow/auth-front/internal/log"
)

// SignOut drives a sign-out visit: terminate the session of one tenant, or
// of every tenant the project has recorded, then either return to the
// resource or show the terminal signed-out surface.
type SignOut struct {
	base
}

// NewSignOut builds the operation. A missing tenant means "all recorded
// tenants"; a missing redirect context means the terminal surface is shown
// instead of navigating back.
func NewSignOut(deps Deps) *SignOut {
	op := &SignOut{base: newBase(deps)}
	op.self = op
	op.needsClient = deps.Config.TenantID != ""
	return op
}

func (op *SignOut) name() string { return "signOut" }

func (op *SignOut) process(ctx context.Context) error {
	if op.cfg.TenantID != "" {
		if err := op.signOutOne(ctx, op.cfg.TenantID, op.client); err != nil {
			return err
		}
	} else {
		if err := op.signOutAll(ctx); err != nil {
			return err
		}
	}

	if op.cfg.RedirectURL != "" && op.cfg.State != "" {
		resp, err := op.resolveRedirect(ctx)
		if err != nil {
			return err
		}
		op.hideProgress()
		return op.nav.Navigate(resp.OriginalURI)
	}

	op.hideProgress()
	return op.ui.CompleteSignOut(ctx)
}

func (op *SignOut) signOutOne(ctx context.Context, tenantID string, client authui.Client) error {
	if err := client.SignOut(ctx); err != nil {
		return fmt.Errorf("signing out of tenant %q: %w", tenantID, err)
	}
	if err := op.tenants.Remove(ctx, op.projectID, tenantID); err != nil {
		log.LogWarnWithFields("operation", "Failed to remove tenant record", map[string]any{
			"tenant": tenantID,
			"error":  err.Error(),
		})
	}
	return nil
}

// signOutAll walks the project's recorded tenant set and signs out of each
// associated identity client.
func (op *SignOut) signOutAll(ctx context.Context) error {
	tenantIDs, err := op.tenants.List(ctx, op.projectID)
	if err != nil {
		return fmt.Errorf("listing recorded tenants: %w", err)
	}

	for _, tenantID := range tenantIDs {
		client, err := op.ui.GetAuth(op.shared.APIKey, config.NormalizeTenantID(tenantID))
		if err != nil {
			return fmt.Errorf("resolving identity client for tenant %q: %w", tenantID, err)
		}
		if err := op.signOutOne(ctx, tenantID, client); err != nil {
			return err
		}
	}
	return nil
}

// resolveRedirect reuses the exchange endpoint with the placeholder token to
// learn the original URL; no real credential exists after sign-out.
func (op *SignOut) resolveRedirect(ctx context.Context) (*gateway.RedirectResponse, error) {
	key := "signoutRedirect|" + op.cfg.State
	return cache.Get(ctx, op.shared.Cache, key, exchangeTTL, func(ctx context.Context) (*gateway.RedirectResponse, error) {
		return op.shared.Gateway.ExchangeIDToken(ctx, &gateway.ExchangeRequest{
			IDToken: gateway.PlaceholderIDToken,
			State:   op.cfg.State,
		})
	})
}

// OriginalURL resolves the return target, or empty when no redirect context
// exists (the visit ends on the terminal signed-out surface).
func (op *SignOut) OriginalURL(ctx context.Context) (string, error) {
	if op.cfg.RedirectURL == "" || op.cfg.State == "" {
		return "", nil
	}
	resp, err := op.resolveRedirect(ctx)
	if err != nil {
		return "", err
	}
	return resp.OriginalURI, nil
}
