package authfront

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgellow/auth-front/internal/gateway"
)

const facadeOriginalURI = "https://app.example.com/orig"

// facadeEnv serves both RPC backends from in-process HTTP servers.
type facadeEnv struct {
	gcipURL    string
	gatewayURL string
}

func newFacadeEnv(t *testing.T) *facadeEnv {
	t.Helper()
	e := &facadeEnv{}

	gcipSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"projectId":         "proj-1",
			"authorizedDomains": []string{"example.com", "127.0.0.1"},
		})
	}))
	t.Cleanup(gcipSrv.Close)
	e.gcipURL = gcipSrv.URL

	gwSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/resources:handleRedirect":
			json.NewEncoder(w).Encode(gateway.RedirectResponse{
				RedirectToken: "rt-1",
				OriginalURI:   facadeOriginalURI,
				TargetURI:     e.gatewayURL + "/target",
			})
		case "/resources:getSessionInfo":
			json.NewEncoder(w).Encode(gateway.SessionInfoResponse{
				TenantIDs:   []string{"tenant-a"},
				OriginalURI: facadeOriginalURI,
			})
		case "/target":
			// Session cookie establishment; nothing to do.
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(gwSrv.Close)
	e.gatewayURL = gwSrv.URL
	return e
}

func (e *facadeEnv) authenticator(ui Handler, nav Navigator) *Authenticator {
	return New(ui, nav,
		WithGCIPBaseURL(e.gcipURL),
		WithGatewayBaseURL(e.gatewayURL),
	)
}

// hostUI is a collaborator fake with an existing session per tenant.
type hostUI struct {
	mu       sync.Mutex
	sessions map[string]*hostClient
	errors   []error
	hints    []*SelectedTenantInfo
}

func newHostUI() *hostUI { return &hostUI{sessions: map[string]*hostClient{}} }

func (h *hostUI) withSession(tenantID, token string) *hostUI {
	h.sessions[tenantID] = &hostClient{
		tenantID: tenantID,
		user:     &hostUser{tenantID: tenantID, token: token},
	}
	return h
}

func (h *hostUI) GetAuth(apiKey, tenantID string) (Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.sessions[tenantID]; ok {
		return c, nil
	}
	c := &hostClient{tenantID: tenantID}
	h.sessions[tenantID] = c
	return c, nil
}

func (h *hostUI) StartSignIn(ctx context.Context, client Client, hint *SelectedTenantInfo) (*Credential, error) {
	h.mu.Lock()
	h.hints = append(h.hints, hint)
	h.mu.Unlock()
	return &Credential{User: &hostUser{tenantID: client.TenantID(), token: "interactive-tok"}}, nil
}

func (h *hostUI) CompleteSignOut(ctx context.Context) error { return nil }

func (h *hostUI) HandleError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, err)
}

func (h *hostUI) reportedErrors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.errors...)
}

type hostClient struct {
	tenantID string
	user     *hostUser
}

func (c *hostClient) TenantID() string { return c.tenantID }

func (c *hostClient) OnSessionState(cb func(User)) func() {
	if c.user != nil {
		cb(c.user)
	} else {
		cb(nil)
	}
	return func() {}
}

func (c *hostClient) SignOut(ctx context.Context) error {
	c.user = nil
	return nil
}

type hostUser struct {
	tenantID string
	token    string
}

func (u *hostUser) TenantID() string { return u.tenantID }

func (u *hostUser) IDToken(ctx context.Context, forceRefresh bool) (string, error) {
	return u.token, nil
}

func TestStartSignInVisit(t *testing.T) {
	e := newFacadeEnv(t)
	ui := newHostUI().withSession("tenant-a", "id-tok")

	nav, err := NewMemoryNavigator(
		"https://auth.example.com/signin?mode=login&apiKey=key-1&tid=tenant-a&redirect_uri=https%3A%2F%2Fapp.example.com%2Fx&state=st-1")
	require.NoError(t, err)

	a := e.authenticator(ui, nav)
	defer a.Close()

	require.NoError(t, a.Start(context.Background()))
	assert.Equal(t, []string{facadeOriginalURI}, nav.Departures())
	assert.Empty(t, ui.reportedErrors())
}

func TestStartUnknownModeFailsThroughErrorHook(t *testing.T) {
	e := newFacadeEnv(t)
	ui := newHostUI()

	nav, err := NewMemoryNavigator("https://auth.example.com/signin?mode=frobnicate&apiKey=key-1")
	require.NoError(t, err)

	a := e.authenticator(ui, nav)
	defer a.Close()

	startErr := a.Start(context.Background())
	var ae *Error
	require.ErrorAs(t, startErr, &ae)
	assert.Equal(t, CodeInvalidArgument, ae.Code)
	assert.Len(t, ui.reportedErrors(), 1)
}

func TestStartWithoutAPIKeyFails(t *testing.T) {
	e := newFacadeEnv(t)
	nav, err := NewMemoryNavigator("https://auth.example.com/signin?mode=login&tid=tenant-a")
	require.NoError(t, err)

	a := e.authenticator(newHostUI(), nav)
	defer a.Close()

	startErr := a.Start(context.Background())
	var ae *Error
	require.ErrorAs(t, startErr, &ae)
	assert.Equal(t, CodeInvalidArgument, ae.Code)
}

func TestSelectionChainsIntoSignIn(t *testing.T) {
	e := newFacadeEnv(t)
	ui := newHostUI().withSession("tenant-a", "id-tok")

	nav, err := NewMemoryNavigator(
		"https://auth.example.com/signin?mode=selectAuthSession&apiKey=key-1&redirect_uri=https%3A%2F%2Fapp.example.com%2Fx&state=st-1")
	require.NoError(t, err)

	a := e.authenticator(ui, nav)
	defer a.Close()

	// The selection operation settles by pushing the sign-in target; the
	// chained sign-in runs on its own and ends in the redirect back.
	require.NoError(t, a.Start(context.Background()))
	assert.Equal(t, "login", nav.CurrentURL().Query().Get("mode"))
	assert.Equal(t, "tenant-a", nav.CurrentURL().Query().Get("tid"))

	require.Eventually(t, func() bool {
		d := nav.Departures()
		return len(d) == 1 && d[0] == facadeOriginalURI
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, ui.reportedErrors())
}

func TestOriginalURLBeforeStart(t *testing.T) {
	e := newFacadeEnv(t)
	nav, err := NewMemoryNavigator(
		"https://auth.example.com/signin?mode=login&apiKey=key-1&tid=tenant-a&redirect_uri=https%3A%2F%2Fapp.example.com%2Fx&state=st-1")
	require.NoError(t, err)

	a := e.authenticator(newHostUI(), nav)
	defer a.Close()

	got, err := a.OriginalURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, facadeOriginalURI, got)
}

func TestCloseIsIdempotent(t *testing.T) {
	e := newFacadeEnv(t)
	nav, err := NewMemoryNavigator("https://auth.example.com/signin?mode=login&apiKey=key-1")
	require.NoError(t, err)

	a := e.authenticator(newHostUI(), nav)
	a.Close()
	a.Close()
}
