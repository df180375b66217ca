package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/appigle/gateway/internal/auth/jwt"
	"github.com/appigle/gateway/internal/config"
)

// Inbound headers that could spoof identity downstream. Always stripped from
// protected requests before forwarding.
var sensitiveHeaders = []string{"Authorization", "Cookie", "Set-Cookie"}

// HeaderRewriter strips sensitive inbound headers and injects identity
// headers derived from validated claims.
type HeaderRewriter struct {
	prefix             string
	includePermissions bool
	includeTenant      bool
	gatewaySource      string
}

// NewHeaderRewriter creates a rewriter from the propagation configuration.
func NewHeaderRewriter(cfg config.PropagationConfig) *HeaderRewriter {
	prefix := cfg.HeaderPrefix
	if prefix == "" {
		prefix = "X-"
	}
	return &HeaderRewriter{
		prefix:             prefix,
		includePermissions: cfg.IncludePermissions,
		includeTenant:      cfg.IncludeTenant,
		gatewaySource:      cfg.GatewaySource,
	}
}

// Rewrite mutates the outgoing request: sensitive inbound headers are removed
// and whichever claim fields are present become identity headers.
func (h *HeaderRewriter) Rewrite(r *http.Request, claims *jwt.Claims) {
	for _, name := range sensitiveHeaders {
		r.Header.Del(name)
	}

	h.set(r, "User-Id", claims.UserID)
	h.set(r, "User-Email", claims.Subject)
	if len(claims.Roles) > 0 {
		h.set(r, "User-Roles", strings.Join(claims.Roles, ","))
	}
	if h.includePermissions && len(claims.Permissions) > 0 {
		h.set(r, "User-Permissions", strings.Join(claims.Permissions, ","))
	}
	if h.includeTenant && claims.Tenant != nil {
		h.setTenantEntity(r, "Organization", claims.Tenant.Organization)
		h.setTenantEntity(r, "Church", claims.Tenant.Church)
	}
	if claims.ExpiresAt != nil {
		h.set(r, "Token-Expiration", strconv.FormatInt(claims.ExpiresAt.UnixMilli(), 10))
	}
	if h.gatewaySource != "" {
		h.set(r, "Gateway-Source", h.gatewaySource)
	}
}

func (h *HeaderRewriter) set(r *http.Request, name, value string) {
	if value == "" {
		return
	}
	r.Header.Set(h.prefix+name, value)
}

func (h *HeaderRewriter) setTenantEntity(r *http.Request, name string, entity jwt.TenantEntity) {
	h.set(r, name+"-Id", entity.ID)
	h.set(r, name+"-Code", entity.Code)
	h.set(r, name+"-Name", entity.Name)
}
