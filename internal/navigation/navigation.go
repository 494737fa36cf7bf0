// Package navigation abstracts the host's navigation surface: the current
// target URL, same-document history updates, full navigations, and the event
// channel the facade watches for chained transitions.
package navigation

import "net/url"

// KindSignIn is the discriminator a tenant-selection surface stamps on the
// state payload it hands to the next sign-in surface.
const KindSignIn = "signIn"

// TenantHint carries the tenant selected on a selection surface into the
// sign-in surface that follows it.
type TenantHint struct {
	Email       string   `json:"email,omitempty"`
	TenantID    string   `json:"tenantId"`
	ProviderIDs []string `json:"providerIds,omitempty"`
}

// State is the same-document navigation payload attached to a history entry.
type State struct {
	Kind       string      `json:"state"`
	TenantHint *TenantHint `json:"selectedTenantInfo,omitempty"`
}

// Event notifies the facade that the navigation target changed without a
// full reload.
type Event struct {
	URL   *url.URL
	State *State
}

// Navigator is the host's navigation surface.
//
// PushState must deliver a synthesized Event on the Events channel: native
// history pushes emit no notification of their own, and the facade is the
// single consumer that builds the next operation from it. Hosts that cannot
// implement PushState return SupportsState() == false and operations fall
// back to a full Navigate with the hint encoded in the hash fragment.
type Navigator interface {
	// CurrentURL returns the navigation target this surface was loaded with.
	CurrentURL() *url.URL

	// State returns the current entry's state payload, nil if absent or
	// unsupported.
	State() *State

	// SupportsState reports whether PushState is available.
	SupportsState() bool

	// PushState replaces the navigation target in-document and emits a
	// synthesized Event carrying st.
	PushState(rawurl string, st *State) error

	// Navigate performs a full navigation away from this surface.
	Navigate(rawurl string) error

	// Events is the single-consumer channel of same-document transitions.
	Events() <-chan Event

	// UserAgent identifies the host environment for transport tuning.
	UserAgent() string

	// EmbeddedCrossOrigin reports whether this surface is loaded inside a
	// cross-origin embedded frame.
	EmbeddedCrossOrigin() bool
}
