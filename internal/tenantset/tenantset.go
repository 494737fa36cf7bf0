// Package tenantset tracks the tenants a project's users have signed in
// with, so a tenant-less sign-out can find every identity client it must
// sign out of.
package tenantset

import (
	"context"
	"fmt"
	"slices"

	"github.com/dgellow/auth-front/internal/storage"
)

// Manager is a project-scoped ordered set of tenant identifiers, including
// the project-marker form for the top-level namespace. The set is shared
// across hosts of the same backend with no cross-host locking; last write
// wins.
type Manager struct {
	store       *storage.Store
	persistence storage.Persistence
}

func New(store *storage.Store) *Manager {
	return &Manager{store: store, persistence: storage.PersistenceDurable}
}

func key(projectID string) string {
	return fmt.Sprintf("recent_tenants:%s", projectID)
}

// Add records tenantID for the project. Adding an already-present id is a
// no-op; insertion order is preserved.
func (m *Manager) Add(ctx context.Context, projectID, tenantID string) error {
	tenants, err := m.List(ctx, projectID)
	if err != nil {
		return err
	}
	if slices.Contains(tenants, tenantID) {
		return nil
	}
	return m.store.Set(ctx, m.persistence, key(projectID), append(tenants, tenantID))
}

// List returns the recorded tenant ids, oldest first.
func (m *Manager) List(ctx context.Context, projectID string) ([]string, error) {
	var tenants []string
	if _, err := m.store.Get(ctx, m.persistence, key(projectID), &tenants); err != nil {
		return nil, err
	}
	return tenants, nil
}

// Remove drops tenantID from the project's set if present.
func (m *Manager) Remove(ctx context.Context, projectID, tenantID string) error {
	tenants, err := m.List(ctx, projectID)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(tenants, func(t string) bool { return t == tenantID })
	if len(kept) == 0 {
		return m.store.Delete(ctx, m.persistence, key(projectID))
	}
	return m.store.Set(ctx, m.persistence, key(projectID), kept)
}

// Clear removes the whole set for the project.
func (m *Manager) Clear(ctx context.Context, projectID string) error {
	return m.store.Delete(ctx, m.persistence, key(projectID))
}
