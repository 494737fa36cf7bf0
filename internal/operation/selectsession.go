package operation

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgellow/auth-front/internal/authui"
	"github.com/dgellow/auth-front/internal/autherr"
	"github.com/dgellow/auth-front/internal/config"
	"github.com/dgellow/auth-front/internal/log"
	"github.com/dgellow/auth-front/internal/navigation"
	"github.com/dgellow/auth-front/internal/urlutil"
)

// SelectAuthSession drives a tenant-selection visit: the resource serves
// several tenants and the user must pick one before the sign-in surface can
// run. The transition to sign-in happens in-document on capable hosts.
type SelectAuthSession struct {
	base
}

// NewSelectAuthSession validates the descriptor and builds the operation.
// There is no fixed tenant at this point; only the redirect context is
// required.
func NewSelectAuthSession(deps Deps) *SelectAuthSession {
	op := &SelectAuthSession{base: newBase(deps)}
	op.self = op

	switch {
	case deps.Config.RedirectURL == "":
		op.initErr = autherr.InvalidArgument("tenant selection requires a redirect URL")
	case deps.Config.State == "":
		op.initErr = autherr.InvalidArgument("tenant selection requires a state token")
	}
	return op
}

func (op *SelectAuthSession) name() string { return "selectAuthSession" }

func (op *SelectAuthSession) process(ctx context.Context) error {
	info, err := op.sessionInfo(ctx)
	if err != nil {
		return err
	}
	if len(info.TenantIDs) == 0 {
		// Misconfiguration on the resource: nothing to select from, and
		// retrying will not change that.
		return autherr.Internal("no tenants associated with the requested resource")
	}

	selection, err := op.selectTenant(ctx, info.TenantIDs)
	if err != nil {
		return err
	}

	tenantID, ok := matchCandidate(selection.TenantID, info.TenantIDs, op.projectID)
	if !ok {
		return autherr.InvalidArgument("selected tenant %q is not a candidate for this resource", selection.TenantID)
	}

	signInURL, err := op.signInURL(tenantID)
	if err != nil {
		return err
	}

	op.hideProgress()
	return op.transition(signInURL, tenantID, selection.ProviderIDs)
}

// selectTenant asks the collaborator to present the candidates, or
// auto-selects the first one when the capability is absent.
func (op *SelectAuthSession) selectTenant(ctx context.Context, tenantIDs []string) (*authui.Selection, error) {
	selector, ok := op.ui.(authui.ProviderSelector)
	if !ok {
		return &authui.Selection{TenantID: tenantIDs[0]}, nil
	}

	op.hideProgress()
	selection, err := selector.SelectProvider(ctx, authui.ProjectConfig{
		ProjectID: op.projectID,
		APIKey:    op.shared.APIKey,
	}, tenantIDs)
	op.showProgress()
	if err != nil {
		return nil, fmt.Errorf("tenant selection: %w", err)
	}
	if selection == nil {
		return nil, autherr.InvalidArgument("tenant selection resolved without a choice")
	}
	return selection, nil
}

// signInURL builds the next surface's navigation target on the current path.
func (op *SelectAuthSession) signInURL(tenantID string) (string, error) {
	current := op.nav.CurrentURL()
	base := current.Scheme + "://" + current.Host + current.Path
	return urlutil.WithQuery(base, map[string]string{
		"mode":         string(config.ModeLogin),
		"apiKey":       op.shared.APIKey,
		"tid":          tenantID,
		"state":        op.cfg.State,
		"redirect_uri": op.cfg.RedirectURL,
		"hl":           op.cfg.Locale,
	})
}

// transition hands off to the sign-in surface: an in-document history push
// with a synthesized navigation event where the host supports it, otherwise
// a real navigation with the selection hint in the hash fragment.
func (op *SelectAuthSession) transition(signInURL, tenantID string, providerIDs []string) error {
	if op.nav.SupportsState() {
		log.LogDebugWithFields("operation", "Chaining to sign-in in-document", map[string]any{
			"tenant": tenantID,
		})
		return op.nav.PushState(signInURL, &navigation.State{
			Kind: navigation.KindSignIn,
			TenantHint: &navigation.TenantHint{
				TenantID:    tenantID,
				ProviderIDs: providerIDs,
			},
		})
	}

	// Legacy fragment "#hint=<email>;<p1>,<p2>". A selection carries no
	// email, so the slot before the semicolon stays empty.
	return op.nav.Navigate(signInURL + "#hint=;" + strings.Join(providerIDs, ","))
}

// matchCandidate validates a selection against the candidate list. The
// project-level namespace has two spellings: an empty or marker-form
// selection matches the candidate carrying the project-marker prefix.
func matchCandidate(selected string, candidates []string, projectID string) (string, bool) {
	if config.NormalizeTenantID(selected) == "" {
		marker := config.ProjectMarkerPrefix + projectID
		for _, c := range candidates {
			if c == marker {
				return c, true
			}
		}
		return "", false
	}
	for _, c := range candidates {
		if c == selected {
			return c, true
		}
	}
	return "", false
}

// OriginalURL resolves the pre-authentication target the user will return to.
func (op *SelectAuthSession) OriginalURL(ctx context.Context) (string, error) {
	info, err := op.sessionInfo(ctx)
	if err != nil {
		return "", err
	}
	return info.OriginalURI, nil
}
