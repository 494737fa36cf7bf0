package authfront

import (
	"context"

	"google.golang.org/api/option"

	"github.com/dgellow/auth-front/internal/authui"
	"github.com/dgellow/auth-front/internal/autherr"
	"github.com/dgellow/auth-front/internal/config"
	"github.com/dgellow/auth-front/internal/navigation"
	"github.com/dgellow/auth-front/internal/storage"
)

// The handshake machinery lives in internal packages; these aliases are the
// public names hosts implement and consume.

// Collaborator contract.
type (
	Handler          = authui.Handler
	Client           = authui.Client
	User             = authui.User
	Credential       = authui.Credential
	ProjectConfig    = authui.ProjectConfig
	Selection        = authui.Selection
	ProviderSelector = authui.ProviderSelector
	UserProcessor    = authui.UserProcessor
	ProgressReporter = authui.ProgressReporter
	ErrorReporter    = authui.ErrorReporter
)

// Navigation surface.
type (
	Navigator       = navigation.Navigator
	NavigationState = navigation.State
	NavigationEvent = navigation.Event
	TenantHint      = navigation.TenantHint
	MemoryNavigator = navigation.MemoryNavigator
)

// SelectedTenantInfo is the tenant hint carried between chained surfaces.
type SelectedTenantInfo = config.SelectedTenantInfo

// Error is the normalized failure type every operation returns. Its Retry
// field, when non-nil, re-runs the failed operation on the same instance.
type Error = autherr.Error

// Error taxonomy codes.
const (
	CodeInvalidArgument  = autherr.CodeInvalidArgument
	CodePermissionDenied = autherr.CodePermissionDenied
	CodeInternal         = autherr.CodeInternal
	CodeUnknown          = autherr.CodeUnknown
	CodeUnavailable      = autherr.CodeUnavailable
)

// NewMemoryNavigator creates the in-process navigation surface used by
// headless hosts and tests.
func NewMemoryNavigator(rawurl string, opts ...navigation.MemoryOption) (*MemoryNavigator, error) {
	return navigation.NewMemoryNavigator(rawurl, opts...)
}

// Tenant-persistence store and backends.
type (
	Store            = storage.Store
	StorageBackend   = storage.Backend
	FirestoreBackend = storage.FirestoreBackend
)

// NewStore builds the persistence store. See the storage options below for
// installing durable and session tiers; unusable tiers are demoted to
// memory after a failed canary round-trip.
func NewStore(ctx context.Context, opts ...storage.StoreOption) *Store {
	return storage.NewStore(ctx, opts...)
}

// WithDurableBackend installs the durable persistence tier.
func WithDurableBackend(b StorageBackend) storage.StoreOption {
	return storage.WithDurableBackend(b)
}

// WithSessionBackend installs the session-scoped persistence tier.
func WithSessionBackend(b StorageBackend) storage.StoreOption {
	return storage.WithSessionBackend(b)
}

// WithAppID namespaces keys for applications co-hosted on one backend.
func WithAppID(id string) storage.StoreOption {
	return storage.WithAppID(id)
}

// NewFirestoreBackend connects the durable tier to Firestore.
func NewFirestoreBackend(ctx context.Context, projectID, database, collection string, opts ...option.ClientOption) (*FirestoreBackend, error) {
	return storage.NewFirestoreBackend(ctx, projectID, database, collection, opts...)
}

// NewFileBackend creates the machine-local session tier rooted at dir.
func NewFileBackend(dir string) (StorageBackend, error) {
	return storage.NewFileBackend(dir)
}
