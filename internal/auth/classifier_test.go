package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifierIsPublic(t *testing.T) {
	c := NewClassifier(
		[]string{"/health", "/api/auth/**", "/api/catalog/*/preview"},
		map[string][]string{
			"get": {"/api/public/*"},
		},
	)

	tests := []struct {
		name   string
		method string
		path   string
		want   bool
	}{
		{name: "exact match", method: "GET", path: "/health", want: true},
		{name: "exact mismatch", method: "GET", path: "/healthz", want: false},
		{name: "subtree root", method: "GET", path: "/api/auth", want: true},
		{name: "subtree child", method: "POST", path: "/api/auth/login", want: true},
		{name: "subtree deep child", method: "POST", path: "/api/auth/oauth/callback", want: true},
		{name: "subtree prefix is not a segment match", method: "GET", path: "/api/authentication", want: false},
		{name: "single segment wildcard", method: "GET", path: "/api/catalog/item-1/preview", want: true},
		{name: "wildcard does not span segments", method: "GET", path: "/api/catalog/a/b/preview", want: false},
		{name: "per-method pattern on matching method", method: "GET", path: "/api/public/doc", want: true},
		{name: "per-method pattern lowercase method", method: "get", path: "/api/public/doc", want: true},
		{name: "per-method pattern on other method", method: "POST", path: "/api/public/doc", want: false},
		{name: "protected path", method: "GET", path: "/api/users/42", want: false},
		{name: "OPTIONS always public", method: "OPTIONS", path: "/api/users/42", want: true},
		{name: "options lowercase always public", method: "options", path: "/api/users/42", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsPublic(tt.method, tt.path))
		})
	}
}

func TestClassifierNoPatterns(t *testing.T) {
	c := NewClassifier(nil, nil)
	assert.False(t, c.IsPublic(http.MethodGet, "/anything"))
	assert.True(t, c.IsPublic(http.MethodOptions, "/anything"))
}
