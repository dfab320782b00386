// Package storage provides the string key-value scopes the board, flags and identity are kept in.
//
// Two scopes exist at runtime: a durable store that outlives the process ([SQLite] or [Redis]) and a session
// store that lives as long as one tab or one terminal session ([Memory], handed out per session by [Sessions]).
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/bowlstone/internal/shared"
)

// Backend names accepted in the storage configuration.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Store is a string key-value scope.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Open builds the durable store selected by cfg.Backend. db is required for the sqlite backend.
func Open(ctx context.Context, cfg shared.StorageConfig, db *sql.DB) (Store, error) {
	switch cfg.Backend {
	case "", BackendSQLite:
		if db == nil {
			return nil, fmt.Errorf("%w: sqlite storage needs a database", shared.ErrInvalidConfig)
		}
		return NewSQLite(db), nil
	case BackendRedis:
		return DialRedis(ctx, cfg.RedisURL, cfg.KeyPrefix)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}
