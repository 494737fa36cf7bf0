// Package storage is the tenant-persistence layer: a backend-agnostic
// key-value store with durable, session-scoped, and in-memory tiers, and
// automatic demotion to memory when a tier is unavailable or silently
// rejects writes.
package storage

import (
	"context"
	"encoding/json"
)

// Persistence selects the storage tier for one logical key.
type Persistence string

const (
	// PersistenceDurable survives restarts and is shared across hosts.
	PersistenceDurable Persistence = "durable"
	// PersistenceSession survives a host restart but stays machine-local.
	PersistenceSession Persistence = "session"
	// PersistenceNone lives only as long as the process.
	PersistenceNone Persistence = "none"
)

// Backend stores JSON-serialized values under opaque string keys.
//
// Get returns ok == false for absent keys; it must not treat absence as an
// error. Values round-trip as raw JSON so every JSON-representable type is
// preserved.
type Backend interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Delete(ctx context.Context, key string) error
}
