package cart

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
)

func item(productID string, qty int, price int64, variations ...model.SelectedVariation) model.CartItem {
	return model.CartItem{
		ProductID:          productID,
		ProductName:        "Product " + productID,
		Quantity:           qty,
		UnitPrice:          price,
		SelectedVariations: variations,
	}
}

func TestMerge(t *testing.T) {
	t.Run("first item creates a line", func(t *testing.T) {
		items, total, summary := Merge(nil, item("p1", 2, 15000))

		assert.Len(t, items, 1)
		assert.Equal(t, 2, items[0].Quantity)
		assert.Equal(t, int64(30000), total)
		assert.Contains(t, summary, "2x Product p1")
		assert.Contains(t, summary, "Total: 30000 FCFA")
	})

	t.Run("same product and variations accumulates quantity", func(t *testing.T) {
		items, _, _ := Merge(nil, item("p1", 1, 5000,
			model.SelectedVariation{Name: "Taille", Value: "M"}))
		items, total, _ := Merge(items, item("p1", 2, 5000,
			model.SelectedVariation{Name: "Taille", Value: "M"}))

		assert.Len(t, items, 1)
		assert.Equal(t, 3, items[0].Quantity)
		assert.Equal(t, int64(15000), total)
	})

	t.Run("variation order does not matter", func(t *testing.T) {
		items, _, _ := Merge(nil, item("p1", 1, 5000,
			model.SelectedVariation{Name: "Taille", Value: "M"},
			model.SelectedVariation{Name: "Couleur", Value: "Rouge"}))
		items, _, _ = Merge(items, item("p1", 1, 5000,
			model.SelectedVariation{Name: "Couleur", Value: "Rouge"},
			model.SelectedVariation{Name: "Taille", Value: "M"}))

		assert.Len(t, items, 1)
		assert.Equal(t, 2, items[0].Quantity)
	})

	t.Run("different variation value creates a new line", func(t *testing.T) {
		items, _, _ := Merge(nil, item("p1", 1, 5000,
			model.SelectedVariation{Name: "Taille", Value: "M"}))
		items, total, _ := Merge(items, item("p1", 1, 5000,
			model.SelectedVariation{Name: "Taille", Value: "L"}))

		assert.Len(t, items, 2)
		assert.Equal(t, int64(10000), total)
	})

	t.Run("different product creates a new line", func(t *testing.T) {
		items, _, _ := Merge(nil, item("p1", 1, 5000))
		items, total, _ := Merge(items, item("p2", 1, 7000))

		assert.Len(t, items, 2)
		assert.Equal(t, int64(12000), total)
	})

	t.Run("does not mutate the input slice", func(t *testing.T) {
		original := []model.CartItem{item("p1", 1, 5000)}
		Merge(original, item("p1", 4, 5000))

		assert.Equal(t, 1, original[0].Quantity)
	})

	t.Run("repeated merges sum quantities exactly", func(t *testing.T) {
		var items []model.CartItem
		var total int64
		quantities := []int{1, 3, 2, 5, 4}
		sum := 0
		for _, q := range quantities {
			items, total, _ = Merge(items, item("p1", q, 15000))
			sum += q
		}

		assert.Len(t, items, 1)
		assert.Equal(t, sum, items[0].Quantity)
		assert.Equal(t, int64(sum)*15000, total)
	})
}

func TestSummary(t *testing.T) {
	t.Run("empty cart renders empty", func(t *testing.T) {
		assert.Equal(t, "", Summary(nil))
	})

	t.Run("renders variations and per-line totals", func(t *testing.T) {
		items := []model.CartItem{
			{
				ProductID:   "p1",
				ProductName: "Bazin Riche",
				Quantity:    2,
				UnitPrice:   16000,
				SelectedVariations: []model.SelectedVariation{
					{Name: "Taille", Value: "M"},
					{Name: "Couleur", Value: "Rouge"},
				},
			},
		}

		summary := Summary(items)
		assert.Contains(t, summary, "2x Bazin Riche (Taille: M, Couleur: Rouge) = 32000 FCFA")
		assert.Contains(t, summary, "Total: 32000 FCFA")
	})

	t.Run("is deterministic and line-ordered", func(t *testing.T) {
		items := []model.CartItem{item("p1", 1, 1000), item("p2", 1, 2000)}
		first := Summary(items)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Summary(items))
		}
		assert.Less(t,
			strings.Index(first, "Product p1"),
			strings.Index(first, "Product p2"))
	})
}

func TestTotal(t *testing.T) {
	t.Run("sums price times quantity over lines", func(t *testing.T) {
		items := []model.CartItem{
			item("p1", 3, 1500),
			item("p2", 2, 25000),
		}
		assert.Equal(t, int64(3*1500+2*25000), Total(items))
	})

	t.Run("no drift across many small lines", func(t *testing.T) {
		var items []model.CartItem
		var expected int64
		for i := 0; i < 100; i++ {
			price := int64(100 + i)
			items, _, _ = Merge(items, item(fmt.Sprintf("p%d", i), i+1, price))
			expected += price * int64(i+1)
		}
		assert.Equal(t, expected, Total(items))
	})
}
