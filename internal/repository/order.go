package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, params model.CreateOrderParams, reference string) (*model.Order, error)
	FindByTenantID(ctx context.Context, tenantID string, limit, offset int) ([]model.Order, error)
	LogActivity(ctx context.Context, tenantID string, kind model.ActivityKind, message string) error
}

type orderRepo struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, params model.CreateOrderParams, reference string) (*model.Order, error) {
	var order model.Order
	err := r.db.GetContext(ctx, &order, `
		INSERT INTO orders (tenant_id, customer_id, reference, items, total, address, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING *
	`, params.TenantID, params.CustomerID, reference,
		model.OrderItems(params.Items), params.Total, params.Address)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) FindByTenantID(ctx context.Context, tenantID string, limit, offset int) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepo) LogActivity(ctx context.Context, tenantID string, kind model.ActivityKind, message string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activities (tenant_id, kind, message)
		VALUES ($1, $2, $3)
	`, tenantID, kind, message)
	return err
}
