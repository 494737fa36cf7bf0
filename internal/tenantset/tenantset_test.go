package tenantset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgellow/auth-front/internal/storage"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	return New(storage.NewStore(context.Background()))
}

func TestAddPreservesOrderAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	require.NoError(t, m.Add(ctx, "proj", "tenant-b"))
	require.NoError(t, m.Add(ctx, "proj", "tenant-a"))
	require.NoError(t, m.Add(ctx, "proj", "tenant-b"))

	tenants, err := m.List(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"tenant-b", "tenant-a"}, tenants)
}

func TestListEmptyProject(t *testing.T) {
	tenants, err := newManager(t).List(context.Background(), "proj")
	require.NoError(t, err)
	assert.Empty(t, tenants)
}

func TestProjectsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	require.NoError(t, m.Add(ctx, "proj-1", "tenant-a"))

	tenants, err := m.List(ctx, "proj-2")
	require.NoError(t, err)
	assert.Empty(t, tenants)
}

func TestProjectMarkerFormIsStoredVerbatim(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	require.NoError(t, m.Add(ctx, "proj", "_proj"))
	require.NoError(t, m.Add(ctx, "proj", "tenant-a"))

	tenants, err := m.List(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"_proj", "tenant-a"}, tenants)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	require.NoError(t, m.Add(ctx, "proj", "tenant-a"))
	require.NoError(t, m.Add(ctx, "proj", "tenant-b"))
	require.NoError(t, m.Remove(ctx, "proj", "tenant-a"))

	tenants, err := m.List(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"tenant-b"}, tenants)

	// Removing the last tenant drops the key entirely.
	require.NoError(t, m.Remove(ctx, "proj", "tenant-b"))
	tenants, err = m.List(ctx, "proj")
	require.NoError(t, err)
	assert.Empty(t, tenants)

	// Removing an absent tenant is fine.
	require.NoError(t, m.Remove(ctx, "proj", "tenant-z"))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	require.NoError(t, m.Add(ctx, "proj", "tenant-a"))
	require.NoError(t, m.Clear(ctx, "proj"))

	tenants, err := m.List(ctx, "proj")
	require.NoError(t, err)
	assert.Empty(t, tenants)
}
