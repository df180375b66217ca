// Package blacklist implements the token revocation store: an explicit
// deny-list of tokens invalid before their natural expiry, backed by Redis
// or an in-process map.
package blacklist

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/appigle/gateway/internal/config"
)

// Store answers revocation queries and records revocations. Implementations
// must be safe for concurrent use.
type Store interface {
	// IsRevoked reports whether the token is present in the deny-list.
	IsRevoked(ctx context.Context, token string) (bool, error)

	// Revoke adds the token to the deny-list for the given TTL. Revoking an
	// already-revoked token succeeds and replaces the TTL (last write wins).
	Revoke(ctx context.Context, token string, ttl time.Duration) error

	// Close releases store resources.
	Close() error
}

// New creates a Store from the blacklist configuration.
func New(cfg config.BlacklistConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "redis":
		return NewRedisStore(RedisStoreConfig{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout.Duration(),
			KeyPrefix:   cfg.KeyPrefix,
		}, logger)
	case "memory":
		return NewMemoryStore(cfg.SweepInterval.Duration(), logger), nil
	case "disabled":
		return NewDisabledStore(), nil
	default:
		return nil, fmt.Errorf("unknown blacklist backend %q", cfg.Backend)
	}
}

// disabledStore is used when revocation is turned off: every token reads as
// not revoked and revocations are accepted as no-op successes.
type disabledStore struct{}

var _ Store = (*disabledStore)(nil)

// NewDisabledStore creates a Store that never reports revocations.
func NewDisabledStore() Store {
	return &disabledStore{}
}

func (s *disabledStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	return false, nil
}

func (s *disabledStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	return nil
}

func (s *disabledStore) Close() error {
	return nil
}
