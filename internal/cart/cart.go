// Package cart folds line items into a running draft order.
// Totals and summaries are always recomputed from the full item list,
// never patched incrementally.
package cart

import (
	"fmt"
	"strings"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
)

const currency = "FCFA"

// Merge folds newItem into items. Two items are the same line iff their
// product IDs match and their selected-variation sets are set-equal;
// merging increments quantity instead of appending a duplicate line.
func Merge(items []model.CartItem, newItem model.CartItem) ([]model.CartItem, int64, string) {
	merged := make([]model.CartItem, len(items))
	copy(merged, items)

	found := false
	for i := range merged {
		if sameLine(merged[i], newItem) {
			merged[i].Quantity += newItem.Quantity
			found = true
			break
		}
	}
	if !found {
		merged = append(merged, newItem)
	}

	return merged, Total(merged), Summary(merged)
}

// Total is the exact sum of unitPrice x quantity over all lines.
func Total(items []model.CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// Summary renders the cart as a deterministic, line-ordered text block.
func Summary(items []model.CartItem) string {
	if len(items) == 0 {
		return ""
	}

	var b strings.Builder
	for _, item := range items {
		b.WriteString(fmt.Sprintf("%dx %s", item.Quantity, item.ProductName))
		if len(item.SelectedVariations) > 0 {
			parts := make([]string, len(item.SelectedVariations))
			for i, v := range item.SelectedVariations {
				parts[i] = fmt.Sprintf("%s: %s", v.Name, v.Value)
			}
			b.WriteString(" (" + strings.Join(parts, ", ") + ")")
		}
		b.WriteString(fmt.Sprintf(" = %d %s\n", item.UnitPrice*int64(item.Quantity), currency))
	}
	b.WriteString(fmt.Sprintf("Total: %d %s", Total(items), currency))
	return b.String()
}

func sameLine(a, b model.CartItem) bool {
	if a.ProductID != b.ProductID {
		return false
	}
	if len(a.SelectedVariations) != len(b.SelectedVariations) {
		return false
	}
	selected := make(map[string]string, len(a.SelectedVariations))
	for _, v := range a.SelectedVariations {
		selected[v.Name] = v.Value
	}
	for _, v := range b.SelectedVariations {
		if value, ok := selected[v.Name]; !ok || value != v.Value {
			return false
		}
	}
	return true
}
