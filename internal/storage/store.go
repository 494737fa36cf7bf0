package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/dgellow/auth-front/internal/log"
)

// keyPrefix namespaces every key so co-hosted applications sharing a backend
// cannot collide.
const keyPrefix = "authfront"

// Store routes logical keys to a persistence tier. Each non-memory tier is
// probed once at construction with a canary round-trip; a tier that is
// unavailable or silently drops writes is demoted to memory so public
// operations never fail on backend absence.
type Store struct {
	durable Backend
	session Backend
	memory  Backend
	appID   string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDurableBackend installs the durable tier (for example a Firestore
// backend). Without one, durable keys live in memory.
func WithDurableBackend(b Backend) StoreOption {
	return func(s *Store) { s.durable = b }
}

// WithSessionBackend installs the session-scoped tier.
func WithSessionBackend(b Backend) StoreOption {
	return func(s *Store) { s.session = b }
}

// WithAppID adds a per-application suffix to every key, for applications
// co-hosted on one backend.
func WithAppID(id string) StoreOption {
	return func(s *Store) { s.appID = id }
}

// NewStore builds a Store and runs the canary probes.
func NewStore(ctx context.Context, opts ...StoreOption) *Store {
	s := &Store{memory: NewMemoryBackend()}
	for _, opt := range opts {
		opt(s)
	}

	if s.durable != nil && !canaryOK(ctx, s.durable) {
		log.LogWarnWithFields("storage", "Durable backend failed canary check, falling back to memory", nil)
		s.durable = nil
	}
	if s.session != nil && !canaryOK(ctx, s.session) {
		log.LogWarnWithFields("storage", "Session backend failed canary check, falling back to memory", nil)
		s.session = nil
	}
	return s
}

// canaryOK writes, reads back, and deletes a unique value. Backends that are
// present but silently reject writes fail the read-back comparison.
func canaryOK(ctx context.Context, b Backend) bool {
	key := keyPrefix + ":canary:" + uuid.NewString()
	want, _ := json.Marshal(uuid.NewString())

	if err := b.Set(ctx, key, want); err != nil {
		return false
	}
	got, ok, err := b.Get(ctx, key)
	if err != nil || !ok || string(got) != string(want) {
		return false
	}
	return b.Delete(ctx, key) == nil
}

func (s *Store) backend(p Persistence) Backend {
	switch p {
	case PersistenceDurable:
		if s.durable != nil {
			return s.durable
		}
	case PersistenceSession:
		if s.session != nil {
			return s.session
		}
	}
	return s.memory
}

// Key builds the namespaced form "<prefix>:<name>[:<appID>]".
func (s *Store) Key(name string) string {
	if s.appID != "" {
		return fmt.Sprintf("%s:%s:%s", keyPrefix, name, s.appID)
	}
	return fmt.Sprintf("%s:%s", keyPrefix, name)
}

// Get unmarshals the value stored under name into out. Absent keys and
// unparsable stored values both report ok == false rather than erroring;
// a corrupt entry reads the same as a missing one.
func (s *Store) Get(ctx context.Context, p Persistence, name string, out any) (bool, error) {
	raw, ok, err := s.backend(p).Get(ctx, s.Key(name))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.LogWarnWithFields("storage", "Discarding unparsable stored value", map[string]any{
			"key": s.Key(name),
		})
		return false, nil
	}
	return true, nil
}

// Set serializes value as JSON under name.
func (s *Store) Set(ctx context.Context, p Persistence, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", name, err)
	}
	return s.backend(p).Set(ctx, s.Key(name), raw)
}

// Delete removes the value stored under name.
func (s *Store) Delete(ctx context.Context, p Persistence, name string) error {
	return s.backend(p).Delete(ctx, s.Key(name))
}
