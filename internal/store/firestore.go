package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
)

// Firestore keeps one document per result key in a collection.
type Firestore struct {
	client     *firestore.Client
	collection string
	log        *logger.Logger
}

func NewFirestore(client *firestore.Client, collection string, log *logger.Logger) *Firestore {
	if log == nil {
		log = logger.Nop()
	}
	return &Firestore{client: client, collection: collection, log: log.With("service", "FirestoreStore")}
}

func (f *Firestore) Put(ctx context.Context, key string, result models.StoredResult) error {
	_, err := f.client.Collection(f.collection).Doc(key).Create(ctx, result)
	if status.Code(err) == codes.AlreadyExists {
		return models.ErrAlreadyExists
	}
	if err != nil {
		f.log.Error("Failed to create result document.", "key", key, "error", err)
		return fmt.Errorf("failed to store result %s: %w", key, err)
	}
	return nil
}

func (f *Firestore) Get(ctx context.Context, key string) (*models.StoredResult, error) {
	snap, err := f.client.Collection(f.collection).Doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read result %s: %w", key, err)
	}
	var res models.StoredResult
	if err := snap.DataTo(&res); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", key, err)
	}
	return &res, nil
}

// List returns keys oldest first.
func (f *Firestore) List(ctx context.Context) ([]string, error) {
	docs, err := f.client.Collection(f.collection).OrderBy("createdAt", firestore.Asc).Select().Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	keys := make([]string, 0, len(docs))
	for _, d := range docs {
		keys = append(keys, d.Ref.ID)
	}
	return keys, nil
}

func (f *Firestore) Close() error { return f.client.Close() }
