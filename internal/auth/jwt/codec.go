package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Codec decodes and verifies a raw token into Claims. Decode is pure
// computation over the token bytes and key material; it performs no I/O.
type Codec interface {
	Decode(ctx context.Context, raw string) (*Claims, error)
}

// CodecConfig holds the verification parameters for an HMAC codec.
type CodecConfig struct {
	Secret     []byte
	Issuer     string
	Audience   string
	Algorithms []string
}

// CodecOption configures an HMAC codec.
type CodecOption func(*hmacCodec)

// WithCodecClock overrides the clock used for expiry evaluation.
func WithCodecClock(now func() time.Time) CodecOption {
	return func(c *hmacCodec) {
		c.now = now
	}
}

type hmacCodec struct {
	secret     []byte
	issuer     string
	audience   string
	algorithms map[string]struct{}
	now        func() time.Time
}

var _ Codec = (*hmacCodec)(nil)

// NewCodec creates an HMAC codec from the given configuration.
func NewCodec(cfg CodecConfig, opts ...CodecOption) Codec {
	algorithms := make(map[string]struct{}, len(cfg.Algorithms))
	for _, alg := range cfg.Algorithms {
		algorithms[alg] = struct{}{}
	}

	c := &hmacCodec{
		secret:     cfg.Secret,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		algorithms: algorithms,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decode parses and verifies a raw token. Failures are classified into the
// package sentinel errors: structural problems map to ErrTokenMalformed,
// disallowed algorithms to ErrUnsupportedFormat, verification failures to
// ErrInvalidSignature, expiry to ErrTokenExpired and issuer/audience
// mismatches to ErrClaimMismatch.
func (c *hmacCodec) Decode(ctx context.Context, raw string) (*Claims, error) {
	msg, err := jws.Parse([]byte(raw))
	if err != nil {
		return nil, NewValidationError("cannot parse token structure", ErrTokenMalformed)
	}
	signatures := msg.Signatures()
	if len(signatures) == 0 {
		return nil, NewValidationError("token carries no signature", ErrTokenMalformed)
	}

	alg := signatures[0].ProtectedHeaders().Algorithm()
	if _, ok := c.algorithms[alg.String()]; !ok {
		return nil, NewValidationError(
			fmt.Sprintf("algorithm %q is not accepted", alg.String()), ErrUnsupportedFormat)
	}

	// Parse the payload without verification first so that structural
	// problems in the claim set are not misreported as signature failures.
	if _, err := jwt.Parse([]byte(raw), jwt.WithVerify(false), jwt.WithValidate(false)); err != nil {
		return nil, NewValidationError("token payload is not a valid claim set", ErrTokenMalformed)
	}

	token, err := jwt.Parse([]byte(raw), jwt.WithKey(alg, c.secret), jwt.WithValidate(false))
	if err != nil {
		return nil, NewValidationError("signature verification failed", ErrInvalidSignature)
	}

	claimMap, err := token.AsMap(ctx)
	if err != nil {
		return nil, NewValidationError("cannot read token claims", ErrTokenMalformed)
	}
	claims := ParseClaims(claimMap)

	if claims.ExpiresAt == nil {
		return nil, NewValidationError("exp claim is required", ErrClaimMismatch)
	}
	// A token whose expiration equals now exactly is already expired.
	now := c.now()
	if !now.Before(claims.ExpiresAt.Time) {
		return nil, NewValidationErrorWithClaims(
			fmt.Sprintf("token expired at %s", claims.ExpiresAt.Format(time.RFC3339)),
			ErrTokenExpired, claims)
	}

	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, NewValidationError(
			fmt.Sprintf("issuer %q does not match required issuer", claims.Issuer), ErrClaimMismatch)
	}
	if c.audience != "" && !claims.Audience.Contains(c.audience) {
		return nil, NewValidationError("audience does not contain the required value", ErrClaimMismatch)
	}

	return claims, nil
}
