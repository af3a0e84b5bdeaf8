package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// OrderItems is the materialized line-item list, stored as JSONB.
type OrderItems []CartItem

func (i OrderItems) Value() (driver.Value, error) {
	if i == nil {
		i = OrderItems{}
	}
	return json.Marshal(i)
}

func (i *OrderItems) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = OrderItems{}
		return nil
	case []byte:
		return json.Unmarshal(v, i)
	case string:
		return json.Unmarshal([]byte(v), i)
	default:
		return fmt.Errorf("cannot scan %T into OrderItems", src)
	}
}

type Order struct {
	ID         string      `db:"id" json:"id"`
	TenantID   string      `db:"tenant_id" json:"tenantId"`
	CustomerID string      `db:"customer_id" json:"customerId"`
	Reference  string      `db:"reference" json:"reference"`
	Items      OrderItems  `db:"items" json:"items"`
	Total      int64       `db:"total" json:"total"`
	Address    string      `db:"address" json:"address"`
	Status     OrderStatus `db:"status" json:"status"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updatedAt"`
}

type CreateOrderParams struct {
	TenantID   string
	CustomerID string
	Items      []CartItem
	Total      int64
	Address    string
}

type Activity struct {
	ID        string       `db:"id" json:"id"`
	TenantID  string       `db:"tenant_id" json:"tenantId"`
	Kind      ActivityKind `db:"kind" json:"kind"`
	Message   string       `db:"message" json:"message"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
}
