package jwt

import (
	"strings"
	"time"
)

// CheckClaimPolicy applies the claim policy rules to parsed claims: the user
// id must be present, the subject must be non-blank, and issued-at, when
// present, must not be later than now plus the allowed clock skew. The
// function is pure; absence of roles is permitted and left to the caller to
// log as a soft signal.
func CheckClaimPolicy(claims *Claims, now time.Time, skew time.Duration) error {
	if claims.UserID == "" {
		return NewValidationErrorWithClaims("userId claim is required", ErrInvalidClaims, claims)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return NewValidationErrorWithClaims("subject claim is required", ErrInvalidClaims, claims)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.After(now.Add(skew)) {
		return NewValidationErrorWithClaims("token issued in the future", ErrInvalidClaims, claims)
	}
	return nil
}
