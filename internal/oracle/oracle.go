// Package oracle classifies purchase intent and drafts free-text replies.
// The production adapter talks to Gemini; every caller-facing path
// degrades to a deterministic offline responder rather than erroring.
package oracle

import (
	"context"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
)

// Classification is the structured result of intent detection.
type Classification struct {
	Intent      model.Intent `json:"intent"`
	ProductName string       `json:"productName,omitempty"`
	Quantity    int          `json:"quantity,omitempty"`
}

// ReplyContext carries everything the responder may use to draft a reply.
type ReplyContext struct {
	History   model.History
	Settings  *model.Settings
	Inventory []model.Product
}

type Oracle interface {
	ClassifyIntent(ctx context.Context, text string, catalog []model.Product) (*Classification, error)
	GenerateReply(ctx context.Context, text string, rc ReplyContext) (string, error)
}
