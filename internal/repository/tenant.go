package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
)

type TenantRepository interface {
	FindByID(ctx context.Context, id string) (*model.Tenant, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.Tenant, error)
	ListActive(ctx context.Context) ([]model.Tenant, error)
	GetSettings(ctx context.Context, tenantID string) (*model.Settings, error)
	SaveCredentials(ctx context.Context, id string, credentials string) error
	ClearCredentials(ctx context.Context, id string) error
}

type tenantRepo struct {
	db *sqlx.DB
}

func NewTenantRepository(db *sqlx.DB) TenantRepository {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) FindByID(ctx context.Context, id string) (*model.Tenant, error) {
	var tenant model.Tenant
	err := r.db.GetContext(ctx, &tenant, `
		SELECT * FROM tenants WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Tenant, error) {
	var tenant model.Tenant
	err := r.db.GetContext(ctx, &tenant, `
		SELECT * FROM tenants
		WHERE api_token_hash = $1
		AND status = 'active'
	`, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepo) ListActive(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	err := r.db.SelectContext(ctx, &tenants, `
		SELECT * FROM tenants WHERE status = 'active' ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

func (r *tenantRepo) GetSettings(ctx context.Context, tenantID string) (*model.Settings, error) {
	var settings model.Settings
	err := r.db.GetContext(ctx, &settings, `
		SELECT * FROM tenant_settings WHERE tenant_id = $1
	`, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *tenantRepo) SaveCredentials(ctx context.Context, id string, credentials string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tenants SET
			credentials = $2,
			updated_at = $3
		WHERE id = $1
	`, id, credentials, time.Now())
	return err
}

func (r *tenantRepo) ClearCredentials(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tenants SET
			credentials = NULL,
			updated_at = $2
		WHERE id = $1
	`, id, time.Now())
	return err
}
