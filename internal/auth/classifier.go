// Package auth implements the request-admission pipeline: public-vs-protected
// classification, bearer token extraction, validation, and identity header
// rewriting.
package auth

import (
	"net/http"
	"strings"
)

// Classifier decides whether a (method, path) pair is public or protected.
// Classification is order-independent: a request is public if any applicable
// pattern matches. OPTIONS requests are always public so CORS preflight is
// never blocked by authentication.
type Classifier struct {
	global   []string
	byMethod map[string][]string
}

// NewClassifier creates a classifier from global patterns and per-method
// patterns. Method keys are case-insensitive.
func NewClassifier(global []string, byMethod map[string][]string) *Classifier {
	normalized := make(map[string][]string, len(byMethod))
	for method, patterns := range byMethod {
		normalized[strings.ToUpper(method)] = patterns
	}
	return &Classifier{
		global:   global,
		byMethod: normalized,
	}
}

// IsPublic reports whether the request may skip authentication.
func (c *Classifier) IsPublic(method, path string) bool {
	if strings.EqualFold(method, http.MethodOptions) {
		return true
	}
	for _, pattern := range c.global {
		if matchPattern(pattern, path) {
			return true
		}
	}
	for _, pattern := range c.byMethod[strings.ToUpper(method)] {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern matches a path against a pattern supporting exact paths, a
// trailing "/**" subtree wildcard, and "*" single-segment wildcards.
func matchPattern(pattern, path string) bool {
	if pattern == path {
		return true
	}

	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}

	if !strings.Contains(pattern, "*") {
		return false
	}

	patternSegments := strings.Split(strings.Trim(pattern, "/"), "/")
	pathSegments := strings.Split(strings.Trim(path, "/"), "/")
	if len(patternSegments) != len(pathSegments) {
		return false
	}
	for i, segment := range patternSegments {
		if segment == "*" {
			continue
		}
		if segment != pathSegments[i] {
			return false
		}
	}
	return true
}
