package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
)

const redisPrefix = "pattaflow:result:"

// Redis stores each result as a JSON string that expires after ttl.
type Redis struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewRedis(ctx context.Context, addr string, ttl time.Duration, log *logger.Logger) (*Redis, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if log == nil {
		log = logger.Nop()
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ttl, log: log.With("service", "RedisStore")}, nil
}

func redisKey(key string) string { return redisPrefix + key }

func (r *Redis) Put(ctx context.Context, key string, result models.StoredResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result %s: %w", key, err)
	}
	ok, err := r.rdb.SetNX(ctx, redisKey(key), raw, r.ttl).Result()
	if err != nil {
		r.log.Error("Failed to store result.", "key", key, "error", err)
		return fmt.Errorf("failed to store result %s: %w", key, err)
	}
	if !ok {
		return models.ErrAlreadyExists
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, key string) (*models.StoredResult, error) {
	raw, err := r.rdb.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read result %s: %w", key, err)
	}
	var res models.StoredResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", key, err)
	}
	return &res, nil
}

// List returns the live keys in lexical order, which for timestamped keys is
// also chronological within each key prefix.
func (r *Redis) List(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.rdb.Scan(ctx, 0, redisPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), redisPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Redis) Close() error { return r.rdb.Close() }
