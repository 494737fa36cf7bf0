package navigation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryNavigator(t *testing.T) {
	n, err := NewMemoryNavigator("https://auth.example.com/signin?mode=login")
	require.NoError(t, err)

	assert.Equal(t, "auth.example.com", n.CurrentURL().Host)
	assert.Nil(t, n.State())
	assert.True(t, n.SupportsState())
	assert.False(t, n.EmbeddedCrossOrigin())
	assert.Empty(t, n.UserAgent())
}

func TestMemoryNavigatorOptions(t *testing.T) {
	n, err := NewMemoryNavigator("https://auth.example.com/",
		WithUserAgent("test-agent/1.0"), WithEmbeddedCrossOrigin())
	require.NoError(t, err)

	assert.Equal(t, "test-agent/1.0", n.UserAgent())
	assert.True(t, n.EmbeddedCrossOrigin())
}

func TestPushStateEmitsSynthesizedEvent(t *testing.T) {
	n, err := NewMemoryNavigator("https://auth.example.com/signin?mode=selectAuthSession")
	require.NoError(t, err)

	st := &State{
		Kind:       KindSignIn,
		TenantHint: &TenantHint{TenantID: "tenant-a", ProviderIDs: []string{"saml.corp"}},
	}
	require.NoError(t, n.PushState("https://auth.example.com/signin?mode=login&tid=tenant-a", st))

	select {
	case ev := <-n.Events():
		assert.Equal(t, "mode=login&tid=tenant-a", ev.URL.RawQuery)
		require.NotNil(t, ev.State)
		assert.Equal(t, KindSignIn, ev.State.Kind)
		assert.Equal(t, "tenant-a", ev.State.TenantHint.TenantID)
	case <-time.After(time.Second):
		t.Fatal("no synthesized event after PushState")
	}

	// The entry itself moved too.
	assert.Equal(t, "mode=login&tid=tenant-a", n.CurrentURL().RawQuery)
	assert.Same(t, st, n.State())
}

func TestNavigateRecordsDeparture(t *testing.T) {
	n, err := NewMemoryNavigator("https://auth.example.com/")
	require.NoError(t, err)

	require.NoError(t, n.Navigate("https://app.example.com/orig"))
	require.NoError(t, n.Navigate("https://app.example.com/other"))

	assert.Equal(t, []string{
		"https://app.example.com/orig",
		"https://app.example.com/other",
	}, n.Departures())

	// Navigate does not touch the history stack or emit events.
	assert.Equal(t, "auth.example.com", n.CurrentURL().Host)
	select {
	case <-n.Events():
		t.Fatal("Navigate must not emit a same-document event")
	default:
	}
}

func TestStateWireNames(t *testing.T) {
	// The wire names are shared with the selection surface that writes this
	// payload; they are part of the contract, not an implementation detail.
	st := State{Kind: KindSignIn, TenantHint: &TenantHint{Email: "u@example.com", TenantID: "t"}}
	raw, err := json.Marshal(st)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"signIn","selectedTenantInfo":{"email":"u@example.com","tenantId":"t"}}`, string(raw))
}
