package jwt

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Probability that a successful validation triggers a full cache sweep.
// Bounds sweep cost without a dedicated timer.
const cacheSweepProbability = 0.1

// Validator is the central authority for "is this token good".
type Validator interface {
	Validate(ctx context.Context, token string) (*Claims, error)
}

// RevocationStore answers whether a token is on the deny-list. The blacklist
// package provides the implementations.
type RevocationStore interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// ValidatorConfig holds validation policy settings.
type ValidatorConfig struct {
	// TokenTypes is the allowed token-type set. Empty disables the check.
	TokenTypes []string

	// ClockSkew is the tolerance for issued-at timestamps from peers with
	// imperfect clocks.
	ClockSkew time.Duration

	// CacheEnabled turns the positive-result cache on.
	CacheEnabled bool

	// CacheTTL bounds cache entry lifetime.
	CacheTTL time.Duration

	// FailClosed treats revocation store errors as revocations. The default
	// is fail-open with a warning so gateway availability does not depend on
	// the secondary store's uptime.
	FailClosed bool
}

// ValidatorOption configures a validator.
type ValidatorOption func(*validator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ValidatorOption {
	return func(v *validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithMetrics sets the metrics instance.
func WithMetrics(metrics *Metrics) ValidatorOption {
	return func(v *validator) {
		if metrics != nil {
			v.metrics = metrics
		}
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *validator) {
		v.now = now
	}
}

// WithSweepRand overrides the random source deciding probabilistic sweeps.
func WithSweepRand(randFloat func() float64) ValidatorOption {
	return func(v *validator) {
		v.sweepRand = randFloat
	}
}

type validator struct {
	codec       Codec
	revocations RevocationStore
	cache       *TokenCache
	tokenTypes  map[string]struct{}
	skew        time.Duration
	failClosed  bool

	logger    *zap.Logger
	metrics   *Metrics
	now       func() time.Time
	sweepRand func() float64
}

var _ Validator = (*validator)(nil)

// NewValidator creates a validator orchestrating the cache, the revocation
// store, the codec and the claim policy checks. The revocation store may be
// nil when revocation is not configured.
func NewValidator(codec Codec, revocations RevocationStore, cfg ValidatorConfig, opts ...ValidatorOption) Validator {
	tokenTypes := make(map[string]struct{}, len(cfg.TokenTypes))
	for _, t := range cfg.TokenTypes {
		tokenTypes[t] = struct{}{}
	}

	v := &validator{
		codec:       codec,
		revocations: revocations,
		tokenTypes:  tokenTypes,
		skew:        cfg.ClockSkew,
		failClosed:  cfg.FailClosed,
		logger:      zap.NewNop(),
		metrics:     GetSharedMetrics(),
		now:         time.Now,
		sweepRand:   rand.Float64,
	}
	if cfg.CacheEnabled {
		v.cache = NewTokenCache(cfg.CacheTTL)
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs the validation state machine. Every failure is terminal; no
// retries happen here.
func (v *validator) Validate(ctx context.Context, token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		v.metrics.RecordValidation("empty_token")
		return nil, NewValidationError("token is blank", ErrEmptyToken)
	}

	now := v.now()

	if v.cache != nil {
		if claims, ok := v.cache.Get(token, now); ok {
			v.metrics.RecordCacheHit()
			return claims, nil
		}
		v.metrics.RecordCacheMiss()
	}

	if v.revocations != nil {
		revoked, err := v.revocations.IsRevoked(ctx, token)
		switch {
		case err != nil && v.failClosed:
			v.metrics.RecordValidation("revocation_error")
			return nil, NewValidationError("revocation check failed", ErrRevocationUnavailable)
		case err != nil:
			v.logger.Warn("revocation check failed, continuing fail-open", zap.Error(err))
		case revoked:
			v.metrics.RecordValidation("revoked")
			return nil, NewValidationError("token is revoked", ErrTokenRevoked)
		}
	}

	claims, err := v.codec.Decode(ctx, token)
	if err != nil {
		v.metrics.RecordValidation(resultLabel(err))
		return nil, err
	}

	// The codec already enforces expiry; re-check explicitly so a codec
	// swap cannot silently drop the guarantee.
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		v.metrics.RecordValidation("expired")
		return nil, NewValidationErrorWithClaims("token has expired", ErrTokenExpired, claims)
	}

	if len(v.tokenTypes) > 0 {
		if claims.TokenType == "" {
			v.metrics.RecordValidation("invalid_token_type")
			return nil, NewValidationErrorWithClaims("token type claim is missing", ErrInvalidTokenType, claims)
		}
		if _, ok := v.tokenTypes[claims.TokenType]; !ok {
			v.metrics.RecordValidation("invalid_token_type")
			return nil, NewValidationErrorWithClaims("token type is not in the allowed set", ErrInvalidTokenType, claims)
		}
	}

	if err := CheckClaimPolicy(claims, now, v.skew); err != nil {
		v.metrics.RecordValidation("invalid_claims")
		return nil, err
	}
	if len(claims.Roles) == 0 {
		v.logger.Debug("token carries no roles claim", zap.String("subject", claims.Subject))
	}

	if v.cache != nil {
		v.cache.Put(token, claims, now)
		if v.sweepRand() < cacheSweepProbability {
			if removed := v.cache.Sweep(now); removed > 0 {
				v.logger.Debug("token cache sweep", zap.Int("removed", removed))
			}
			v.metrics.RecordCacheSweep()
		}
	}

	v.metrics.RecordValidation("success")
	return claims, nil
}

// resultLabel maps a classified validation error to its metric label.
func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrInvalidSignature):
		return "bad_signature"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrClaimMismatch):
		return "claim_mismatch"
	case errors.Is(err, ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, ErrInvalidTokenType):
		return "invalid_token_type"
	case errors.Is(err, ErrInvalidClaims):
		return "invalid_claims"
	case errors.Is(err, ErrEmptyToken):
		return "empty_token"
	default:
		return "error"
	}
}
