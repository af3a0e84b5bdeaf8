package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
)

type ProductRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*model.Product, error)
	FindByTenantID(ctx context.Context, tenantID string) ([]model.Product, error)
	// FindByName resolves a product by name, preferring an exact
	// case-insensitive match over a substring match.
	FindByName(ctx context.Context, tenantID, name string) (*model.Product, error)
}

type productRepo struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) FindByID(ctx context.Context, tenantID, id string) (*model.Product, error) {
	var product model.Product
	err := r.db.GetContext(ctx, &product, `
		SELECT * FROM products WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindByTenantID(ctx context.Context, tenantID string) ([]model.Product, error) {
	var products []model.Product
	err := r.db.SelectContext(ctx, &products, `
		SELECT * FROM products WHERE tenant_id = $1 ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepo) FindByName(ctx context.Context, tenantID, name string) (*model.Product, error) {
	var product model.Product
	err := r.db.GetContext(ctx, &product, `
		SELECT * FROM products
		WHERE tenant_id = $1 AND LOWER(name) = LOWER($2)
	`, tenantID, name)
	if err == nil {
		return &product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.GetContext(ctx, &product, `
		SELECT * FROM products
		WHERE tenant_id = $1 AND name ILIKE '%' || $2 || '%'
		ORDER BY name
		LIMIT 1
	`, tenantID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
