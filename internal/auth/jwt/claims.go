// Package jwt implements bearer-token validation: decoding and verifying
// signed tokens into claims, caching positive results, and orchestrating
// revocation and claim-policy checks.
package jwt

import (
	"encoding/json"
	"strconv"
	"time"
)

// Claims represents the decoded, verified payload of a token. Claims are
// immutable once parsed and shared read-only with callers.
type Claims struct {
	// Registered claims
	Issuer    string
	Subject   string
	Audience  Audience
	ExpiresAt *Time
	IssuedAt  *Time

	// Application claims
	TokenType   string
	UserID      string
	Roles       []string
	Permissions []string
	Tenant      *Tenant

	// Extra holds claims not covered by the fixed shape.
	Extra map[string]interface{}
}

// Tenant holds the nested tenant claim with its sub-entities.
type Tenant struct {
	Organization TenantEntity
	Church       TenantEntity
}

// TenantEntity is one tenant sub-entity.
type TenantEntity struct {
	ID   string
	Code string
	Name string
}

// Time wraps time.Time for numeric-date claim values.
type Time struct {
	time.Time
}

// Audience represents the audience claim which can be a string or an array.
type Audience []string

// Contains checks if the audience contains a specific value.
func (a Audience) Contains(aud string) bool {
	for _, v := range a {
		if v == aud {
			return true
		}
	}
	return false
}

// ParseClaims builds Claims from a raw claim map. Registered and known
// application claims populate the fixed shape; everything else lands in Extra.
func ParseClaims(data map[string]interface{}) *Claims {
	claims := &Claims{
		Extra: make(map[string]interface{}),
	}

	for key, value := range data {
		if parseKnownClaim(claims, key, value) {
			continue
		}
		claims.Extra[key] = value
	}

	return claims
}

func parseKnownClaim(claims *Claims, key string, value interface{}) bool {
	switch key {
	case "iss":
		if s, ok := value.(string); ok {
			claims.Issuer = s
		}
	case "sub":
		if s, ok := value.(string); ok {
			claims.Subject = s
		}
	case "aud":
		claims.Audience = parseAudience(value)
	case "exp":
		claims.ExpiresAt = parseTime(value)
	case "iat":
		claims.IssuedAt = parseTime(value)
	case "tokenType":
		if s, ok := value.(string); ok {
			claims.TokenType = s
		}
	case "userId":
		claims.UserID = parseUserID(value)
	case "roles":
		claims.Roles = parseStringSlice(value)
	case "permissions":
		claims.Permissions = parseStringSlice(value)
	case "tenant":
		claims.Tenant = parseTenant(value)
	default:
		return false
	}
	return true
}

func parseAudience(value interface{}) Audience {
	switch v := value.(type) {
	case string:
		return Audience{v}
	case []string:
		return Audience(v)
	case []interface{}:
		result := make(Audience, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}

// parseTime handles the value shapes produced by JSON decoding and by the
// token library, which surfaces numeric-date claims as time.Time.
func parseTime(value interface{}) *Time {
	switch v := value.(type) {
	case time.Time:
		return &Time{Time: v}
	case float64:
		return &Time{Time: time.Unix(int64(v), 0)}
	case int64:
		return &Time{Time: time.Unix(v, 0)}
	case int:
		return &Time{Time: time.Unix(int64(v), 0)}
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return &Time{Time: time.Unix(i, 0)}
		}
	}
	return nil
}

// parseUserID accepts string and numeric user ids; upstream token issuers
// have emitted both.
func parseUserID(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

func parseStringSlice(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

func parseTenant(value interface{}) *Tenant {
	m, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	tenant := &Tenant{
		Organization: parseTenantEntity(m["organization"]),
		Church:       parseTenantEntity(m["church"]),
	}
	return tenant
}

func parseTenantEntity(value interface{}) TenantEntity {
	m, ok := value.(map[string]interface{})
	if !ok {
		return TenantEntity{}
	}
	entity := TenantEntity{}
	if s, ok := m["id"].(string); ok {
		entity.ID = s
	}
	if s, ok := m["code"].(string); ok {
		entity.Code = s
	}
	if s, ok := m["name"].(string); ok {
		entity.Name = s
	}
	return entity
}
