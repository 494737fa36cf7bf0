package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreBackend is the durable tier. One document per key; the value is
// kept as a JSON string so the backend stays agnostic of what callers store.
type FirestoreBackend struct {
	client     *firestore.Client
	collection string
}

var _ Backend = (*FirestoreBackend)(nil)

type firestoreDoc struct {
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// NewFirestoreBackend connects to the given project and collection. database
// may be empty for the default database. Extra client options are forwarded,
// which lets tests point at an emulator.
func NewFirestoreBackend(ctx context.Context, projectID, database, collection string, opts ...option.ClientOption) (*FirestoreBackend, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	var client *firestore.Client
	var err error
	if database != "" && database != "(default)" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database, opts...)
	} else {
		client, err = firestore.NewClient(ctx, projectID, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &FirestoreBackend{client: client, collection: collection}, nil
}

func (b *FirestoreBackend) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	snap, err := b.client.Collection(b.collection).Doc(docID(key)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}

	var doc firestoreDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return json.RawMessage(doc.Value), true, nil
}

func (b *FirestoreBackend) Set(ctx context.Context, key string, value json.RawMessage) error {
	_, err := b.client.Collection(b.collection).Doc(docID(key)).Set(ctx, firestoreDoc{
		Value:     string(value),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (b *FirestoreBackend) Delete(ctx context.Context, key string) error {
	_, err := b.client.Collection(b.collection).Doc(docID(key)).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

func (b *FirestoreBackend) Close() error {
	return b.client.Close()
}

// docID makes a key usable as a Firestore document id, which must not
// contain forward slashes.
func docID(key string) string {
	return strings.ReplaceAll(key, "/", "_")
}
