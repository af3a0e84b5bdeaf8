package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/util"
)

type stubTenantRepo struct {
	tenants map[string]*model.Tenant // keyed by token hash
	err     error
}

func (r *stubTenantRepo) FindByID(_ context.Context, _ string) (*model.Tenant, error) {
	return nil, nil
}

func (r *stubTenantRepo) FindByTokenHash(_ context.Context, tokenHash string) (*model.Tenant, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.tenants[tokenHash], nil
}

func (r *stubTenantRepo) ListActive(_ context.Context) ([]model.Tenant, error) { return nil, nil }

func (r *stubTenantRepo) GetSettings(_ context.Context, _ string) (*model.Settings, error) {
	return nil, nil
}

func (r *stubTenantRepo) SaveCredentials(_ context.Context, _, _ string) error { return nil }
func (r *stubTenantRepo) ClearCredentials(_ context.Context, _ string) error   { return nil }

func doAuthRequest(t *testing.T, repo *stubTenantRepo, token string) (*httptest.ResponseRecorder, *model.Tenant) {
	t.Helper()
	var seen *model.Tenant
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetTenant(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := NewAuthMiddleware(repo).Handler(next)

	req := httptest.NewRequest(http.MethodGet, "/v1/tenants/t1/connection", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestAuthMissingToken(t *testing.T) {
	rec, _ := doAuthRequest(t, &stubTenantRepo{}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthInvalidToken(t *testing.T) {
	rec, _ := doAuthRequest(t, &stubTenantRepo{tenants: map[string]*model.Tenant{}}, "wrong-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthDatabaseError(t *testing.T) {
	rec, _ := doAuthRequest(t, &stubTenantRepo{err: errors.New("db down")}, "some-token")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuthValidToken(t *testing.T) {
	token := "merchant-token-1"
	repo := &stubTenantRepo{tenants: map[string]*model.Tenant{
		util.HashToken(token): {ID: "t1", Status: model.TenantStatusActive},
	}}

	rec, tenant := doAuthRequest(t, repo, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, tenant)
	assert.Equal(t, "t1", tenant.ID)
}

func TestAuthInactiveTenant(t *testing.T) {
	token := "merchant-token-2"
	repo := &stubTenantRepo{tenants: map[string]*model.Tenant{
		util.HashToken(token): {ID: "t2", Status: model.TenantStatusInactive},
	}}

	rec, _ := doAuthRequest(t, repo, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
