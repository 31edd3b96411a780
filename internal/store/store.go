// Package store holds processed results so they can be downloaded later.
package store

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/pattadocumentflow/internal/config"
	"github.com/Lllllllleong/pattadocumentflow/internal/gcp"
	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
)

// Store is a keyed result store. Put never overwrites: a taken key yields
// models.ErrAlreadyExists. Get returns models.ErrNotFound for unknown keys.
type Store interface {
	Put(ctx context.Context, key string, result models.StoredResult) error
	Get(ctx context.Context, key string) (*models.StoredResult, error)
	List(ctx context.Context) ([]string, error)
	Close() error
}

// New builds the store selected by cfg.StoreBackend.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return NewMemory(cfg.StoreMaxEntries), nil
	case config.StoreFirestore:
		client, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID, gcp.ClientOptions(cfg)...)
		if err != nil {
			return nil, err
		}
		return NewFirestore(client, cfg.FirestoreCollection, log), nil
	case config.StoreRedis:
		return NewRedis(ctx, cfg.RedisAddr, cfg.RedisTTL, log)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
