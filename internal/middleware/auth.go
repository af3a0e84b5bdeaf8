package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/audit"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/repository"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/util"
)

type contextKey string

const TenantContextKey contextKey = "tenant"

func GetTenant(ctx context.Context) *model.Tenant {
	if tenant, ok := ctx.Value(TenantContextKey).(*model.Tenant); ok {
		return tenant
	}
	return nil
}

// AuthMiddleware authenticates API calls with a per-tenant bearer token.
// Tokens are stored hashed; the lookup is by hash.
type AuthMiddleware struct {
	tenantRepo repository.TenantRepository
}

func NewAuthMiddleware(tenantRepo repository.TenantRepository) *AuthMiddleware {
	return &AuthMiddleware{tenantRepo: tenantRepo}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing authentication token",
			})
			return
		}

		tokenHash := util.HashToken(token)
		tenant, err := m.tenantRepo.FindByTokenHash(r.Context(), tokenHash)
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: database error")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Authentication failed",
			})
			return
		}

		if tenant == nil {
			audit.Log(r.Context(), audit.Event{
				Type: audit.EventAuthFailure,
				IP:   r.RemoteAddr,
			})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid token",
			})
			return
		}

		if tenant.Status != model.TenantStatusActive {
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error": "Tenant is not active",
			})
			return
		}

		ctx := context.WithValue(r.Context(), TenantContextKey, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
