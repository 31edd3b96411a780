package store

import (
	"context"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Lllllllleong/pattadocumentflow/internal/models"
)

// Memory is a process-local store bounded to maxEntries results. When full,
// the oldest result is evicted. A non-positive bound means unbounded.
// Reads use Peek so eviction and List follow insertion order.
type Memory struct {
	cache *lru.Cache[string, models.StoredResult]
}

func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = math.MaxInt
	}
	cache, err := lru.New[string, models.StoredResult](maxEntries)
	if err != nil {
		// Only a non-positive size fails, which is excluded above.
		panic(err)
	}
	return &Memory{cache: cache}
}

func (m *Memory) Put(_ context.Context, key string, result models.StoredResult) error {
	if found, _ := m.cache.ContainsOrAdd(key, result); found {
		return models.ErrAlreadyExists
	}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (*models.StoredResult, error) {
	res, ok := m.cache.Peek(key)
	if !ok {
		return nil, models.ErrNotFound
	}
	return &res, nil
}

// List returns keys oldest first.
func (m *Memory) List(_ context.Context) ([]string, error) {
	keys := m.cache.Keys()
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func (m *Memory) Close() error { return nil }
