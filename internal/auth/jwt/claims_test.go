package jwt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClaimsFullMap(t *testing.T) {
	exp := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	claims := ParseClaims(map[string]interface{}{
		"iss":         "appigle-auth",
		"sub":         "user@example.com",
		"aud":         []interface{}{"appigle-api", "appigle-admin"},
		"exp":         exp,
		"iat":         float64(exp.Add(-time.Hour).Unix()),
		"tokenType":   "ACCESS",
		"userId":      "user-1",
		"roles":       []interface{}{"USER", "ADMIN"},
		"permissions": []string{"read:profile"},
		"tenant": map[string]interface{}{
			"organization": map[string]interface{}{"id": "org-1", "code": "ORG", "name": "Org One"},
			"church":       map[string]interface{}{"id": "ch-1"},
		},
		"sessionId": "sess-9",
	})

	assert.Equal(t, "appigle-auth", claims.Issuer)
	assert.Equal(t, "user@example.com", claims.Subject)
	assert.True(t, claims.Audience.Contains("appigle-api"))
	assert.True(t, claims.Audience.Contains("appigle-admin"))
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, claims.ExpiresAt.Equal(exp))
	require.NotNil(t, claims.IssuedAt)
	assert.True(t, claims.IssuedAt.Equal(exp.Add(-time.Hour)))
	assert.Equal(t, "ACCESS", claims.TokenType)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, []string{"USER", "ADMIN"}, claims.Roles)
	assert.Equal(t, []string{"read:profile"}, claims.Permissions)
	require.NotNil(t, claims.Tenant)
	assert.Equal(t, "ORG", claims.Tenant.Organization.Code)
	assert.Equal(t, "ch-1", claims.Tenant.Church.ID)
	assert.Equal(t, "sess-9", claims.Extra["sessionId"])
}

func TestParseClaimsAudienceShapes(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  Audience
	}{
		{name: "single string", value: "appigle-api", want: Audience{"appigle-api"}},
		{name: "string slice", value: []string{"a", "b"}, want: Audience{"a", "b"}},
		{name: "interface slice", value: []interface{}{"a", "b"}, want: Audience{"a", "b"}},
		{name: "mixed slice keeps strings", value: []interface{}{"a", 1}, want: Audience{"a"}},
		{name: "unsupported type", value: 42, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := ParseClaims(map[string]interface{}{"aud": tt.value})
			assert.Equal(t, tt.want, claims.Audience)
		})
	}
}

func TestParseClaimsNumericUserID(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{name: "string", value: "user-1", want: "user-1"},
		{name: "float without fraction", value: float64(12345), want: "12345"},
		{name: "json number", value: json.Number("67890"), want: "67890"},
		{name: "unsupported type", value: true, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := ParseClaims(map[string]interface{}{"userId": tt.value})
			assert.Equal(t, tt.want, claims.UserID)
		})
	}
}

func TestParseClaimsMalformedTenantIgnored(t *testing.T) {
	claims := ParseClaims(map[string]interface{}{"tenant": "not-a-map"})
	assert.Nil(t, claims.Tenant)
}
