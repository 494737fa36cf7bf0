// Package idp ships a default, OIDC-backed implementation of the
// collaborator's per-tenant identity client. Hosts with their own identity
// SDK implement the contract directly instead of importing this package.
package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/dgellow/auth-front/internal/authui"
	"github.com/dgellow/auth-front/internal/autherr"
)

// Config describes one tenant's OIDC provider. Either DiscoveryURL or both
// direct endpoints must be set.
type Config struct {
	TenantID string

	DiscoveryURL string

	AuthorizationURL string
	TokenURL         string

	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
}

type discoveryDocument struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	Issuer                string `json:"issuer"`
}

// Client is a tenant-scoped identity client over one OIDC provider. It
// satisfies the collaborator's Client contract and keeps its session in
// process memory.
type Client struct {
	tenantID string
	config   oauth2.Config

	mu        sync.Mutex
	user      *sessionUser
	listeners map[int]func(authui.User)
	nextID    int
}

var _ authui.Client = (*Client)(nil)

// NewClient builds the client, running OIDC discovery when configured.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	authURL := cfg.AuthorizationURL
	tokenURL := cfg.TokenURL

	if cfg.DiscoveryURL != "" {
		doc, err := fetchDiscovery(ctx, cfg.DiscoveryURL)
		if err != nil {
			return nil, err
		}
		authURL = doc.AuthorizationEndpoint
		tokenURL = doc.TokenEndpoint
	}
	if authURL == "" || tokenURL == "" {
		return nil, autherr.InvalidArgument("either discoveryUrl or both authorizationUrl and tokenUrl must be provided")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}

	return &Client{
		tenantID: cfg.TenantID,
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		listeners: make(map[int]func(authui.User)),
	}, nil
}

func fetchDiscovery(ctx context.Context, discoveryURL string) (*discoveryDocument, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building discovery request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery endpoint returned status %d", resp.StatusCode)
	}

	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding discovery document: %w", err)
	}
	if doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" {
		return nil, fmt.Errorf("discovery document missing required endpoints")
	}
	return &doc, nil
}

func (c *Client) TenantID() string { return c.tenantID }

// AuthURL generates the provider's authorization URL for an interactive
// sign-in driven by the host UI.
func (c *Client) AuthURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// CompleteSignIn exchanges the authorization code the host UI received and
// installs the resulting session.
func (c *Client) CompleteSignIn(ctx context.Context, code string) (*authui.Credential, error) {
	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	user := &sessionUser{
		tenantID: c.tenantID,
		source:   c.config.TokenSource(context.WithoutCancel(ctx), token),
		current:  token,
	}

	c.mu.Lock()
	c.user = user
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	for _, cb := range listeners {
		cb(user)
	}
	return &authui.Credential{User: user}, nil
}

// OnSessionState notifies cb with the current user immediately and again on
// every session change until unsubscribed.
func (c *Client) OnSessionState(cb func(authui.User)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = cb
	user := c.user
	c.mu.Unlock()

	if user != nil {
		cb(user)
	} else {
		cb(nil)
	}

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// SignOut clears the session and notifies listeners.
func (c *Client) SignOut(_ context.Context) error {
	c.mu.Lock()
	c.user = nil
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	for _, cb := range listeners {
		cb(nil)
	}
	return nil
}

// snapshotListeners must be called with c.mu held.
func (c *Client) snapshotListeners() []func(authui.User) {
	out := make([]func(authui.User), 0, len(c.listeners))
	for _, cb := range c.listeners {
		out = append(out, cb)
	}
	return out
}

// sessionUser is a signed-in identity backed by an oauth2 token source.
type sessionUser struct {
	tenantID string
	source   oauth2.TokenSource

	mu      sync.Mutex
	current *oauth2.Token
}

var _ authui.User = (*sessionUser)(nil)

func (u *sessionUser) TenantID() string { return u.tenantID }

// IDToken returns the provider's ID token, refreshing through the token
// source when forced or expired.
func (u *sessionUser) IDToken(_ context.Context, forceRefresh bool) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if forceRefresh || !u.current.Valid() {
		token, err := u.source.Token()
		if err != nil {
			return "", fmt.Errorf("refreshing token: %w", err)
		}
		u.current = token
	}

	idToken, ok := u.current.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", autherr.Unknown("provider response carried no id_token")
	}
	return idToken, nil
}
