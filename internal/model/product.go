package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type VariationOption struct {
	Value      string `json:"value"`
	PriceDelta int64  `json:"priceDelta"`
	Stock      int    `json:"stock"`
}

// Variation is one option axis on a product (e.g. Taille: S/M/L).
type Variation struct {
	Name    string            `json:"name"`
	Options []VariationOption `json:"options"`
}

// Variations is stored as a JSONB column on products.
type Variations []Variation

func (v Variations) Value() (driver.Value, error) {
	if v == nil {
		v = Variations{}
	}
	return json.Marshal(v)
}

func (v *Variations) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*v = Variations{}
		return nil
	case []byte:
		return json.Unmarshal(s, v)
	case string:
		return json.Unmarshal([]byte(s), v)
	default:
		return fmt.Errorf("cannot scan %T into Variations", src)
	}
}

type Product struct {
	ID          string     `db:"id" json:"id"`
	TenantID    string     `db:"tenant_id" json:"tenantId"`
	Name        string     `db:"name" json:"name"`
	Description string     `db:"description" json:"description"`
	Price       int64      `db:"price" json:"price"`
	Stock       int        `db:"stock" json:"stock"`
	Variations  Variations `db:"variations" json:"variations"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// HasVariations reports whether buying this product requires
// walking the variation-selection flow first.
func (p *Product) HasVariations() bool {
	return len(p.Variations) > 0
}
