package http

import (
	"net/http"
	"strings"

	"certichain/internal/domain"
	"certichain/internal/infra/auth/rbac"

	"github.com/gin-gonic/gin"
)

const principalContextKey = "principal"

// requireAuth authenticates the caller's API key and checks permission.
// Credentials come from "Authorization: Bearer" or X-API-Key.
func (s *Server) requireAuth(c *gin.Context, permission string) (domain.Principal, bool) {
	if s.authenticator == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "AUTH_NOT_CONFIGURED", "no API keys configured")
		return domain.Principal{}, false
	}
	credential := extractBearerToken(c.GetHeader("Authorization"))
	if credential == "" {
		credential = strings.TrimSpace(c.GetHeader("X-API-Key"))
	}
	if credential == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing API key")
		return domain.Principal{}, false
	}
	principal, err := s.authenticator.Authenticate(c.Request.Context(), credential)
	if err != nil {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid API key")
		return domain.Principal{}, false
	}
	if err := s.authorizer.Require(principal, permission); err != nil {
		writeAuthzError(c, err)
		return domain.Principal{}, false
	}
	c.Set(principalContextKey, principal)
	return principal, true
}

func extractBearerToken(value string) string {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(strings.ToLower(value), "bearer ") {
		return ""
	}
	return strings.TrimSpace(value[len("bearer "):])
}

func writeAuthzError(c *gin.Context, err error) {
	if authz, ok := rbac.IsAuthzError(err); ok {
		writeErrorCode(c, http.StatusForbidden, authz.Code, "forbidden")
		return
	}
	writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
}
