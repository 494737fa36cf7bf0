// Package authui is the boundary to the external collaborator: the sign-in
// surface's UI and its per-tenant identity clients. The library drives the
// protocol; everything user-visible happens behind these interfaces.
package authui

import (
	"context"

	"github.com/dgellow/auth-front/internal/config"
)

// User is a signed-in identity within one tenant.
type User interface {
	// TenantID returns the tenant the user belongs to, empty for the
	// project-level namespace.
	TenantID() string

	// IDToken returns a valid ID token, refreshing it when forceRefresh is
	// set or the cached one expired.
	IDToken(ctx context.Context, forceRefresh bool) (string, error)
}

// Client is a tenant-scoped identity client.
type Client interface {
	// TenantID returns the tenant this client is scoped to, empty for the
	// project-level namespace.
	TenantID() string

	// OnSessionState registers a one-shot-capable session-state listener.
	// The callback fires with the current user (nil when signed out) at
	// least once; the returned function unsubscribes.
	OnSessionState(func(User)) (unsubscribe func())

	// SignOut terminates the client's session.
	SignOut(ctx context.Context) error
}

// Credential is the result of an interactive sign-in.
type Credential struct {
	User User
}

// ProjectConfig identifies the project a selection hook chooses a tenant for.
type ProjectConfig struct {
	ProjectID string
	APIKey    string
}

// Selection is a tenant chosen on a selection surface.
type Selection struct {
	TenantID    string
	ProviderIDs []string
}

// Handler is the required collaborator surface. Implementations may
// additionally satisfy any of the optional capability interfaces below;
// operations probe for them with type assertions.
type Handler interface {
	// GetAuth resolves the identity client for one API key and tenant.
	// tenantID is empty for the project-level namespace.
	GetAuth(apiKey, tenantID string) (Client, error)

	// StartSignIn runs the interactive sign-in UI on the given client and
	// resolves with the resulting credential. hint, when present, carries
	// the tenant and providers chosen on a selection surface. Wall-clock
	// time is unbounded; any timeout policy belongs to the UI.
	StartSignIn(ctx context.Context, client Client, hint *config.SelectedTenantInfo) (*Credential, error)

	// CompleteSignOut shows the terminal signed-out surface when no
	// redirect context exists to return to.
	CompleteSignOut(ctx context.Context) error
}

// ProviderSelector presents candidate tenants on a selection surface.
// Without it, the first candidate is selected automatically.
type ProviderSelector interface {
	SelectProvider(ctx context.Context, project ProjectConfig, tenantIDs []string) (*Selection, error)
}

// UserProcessor post-processes the signed-in user before token exchange,
// for example to force a fresh token with updated claims.
type UserProcessor interface {
	ProcessUser(ctx context.Context, user User) (User, error)
}

// ProgressReporter shows and hides the host's progress indicator.
type ProgressReporter interface {
	ShowProgressBar()
	HideProgressBar()
}

// ErrorReporter receives every failure an operation surfaces. Errors carry a
// bound retry via autherr.Error.
type ErrorReporter interface {
	HandleError(err error)
}
