package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const revokedMarker = "revoked"

// RedisStoreConfig holds Redis connection settings for the deny-list.
type RedisStoreConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	KeyPrefix   string
}

// redisStore backs the deny-list with Redis, relying on native per-key TTL
// for entry expiry.
type redisStore struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
	tracer    trace.Tracer
}

var _ Store = (*redisStore)(nil)

// NewRedisStore creates a Redis-backed Store.
func NewRedisStore(cfg RedisStoreConfig, logger *zap.Logger) (Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	return &redisStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger,
		tracer:    otel.Tracer("gateway/blacklist"),
	}, nil
}

func (s *redisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "blacklist.IsRevoked",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", "redis")),
	)
	defer span.End()

	count, err := s.client.Exists(ctx, s.key(token)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("revocation lookup failed: %w", err)
	}
	return count > 0, nil
}

func (s *redisStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	ctx, span := s.tracer.Start(ctx, "blacklist.Revoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", "redis")),
	)
	defer span.End()

	// SET with expiry overwrites any existing entry, so the most recent
	// revocation's TTL wins.
	if err := s.client.Set(ctx, s.key(token), revokedMarker, ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("revocation write failed: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

func (s *redisStore) key(token string) string {
	return s.keyPrefix + token
}
