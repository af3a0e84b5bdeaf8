package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// HistoryLimit caps the number of conversation turns kept per session.
// Oldest turns are dropped first.
const HistoryLimit = 20

type ChatTurn struct {
	Role string `json:"role"` // "customer" or "assistant"
	Text string `json:"text"`
}

// History is the bounded conversation log, stored as a JSONB column.
type History []ChatTurn

func (h History) Value() (driver.Value, error) {
	if h == nil {
		h = History{}
	}
	return json.Marshal(h)
}

func (h *History) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*h = History{}
		return nil
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	default:
		return fmt.Errorf("cannot scan %T into History", src)
	}
}

// Append adds a turn and drops the oldest entries past HistoryLimit.
func (h History) Append(role, text string) History {
	h = append(h, ChatTurn{Role: role, Text: text})
	if len(h) > HistoryLimit {
		h = h[len(h)-HistoryLimit:]
	}
	return h
}

type SelectedVariation struct {
	Name       string `json:"name"`
	Value      string `json:"value"`
	PriceDelta int64  `json:"priceDelta"`
}

type CartItem struct {
	ProductID          string              `json:"productId"`
	ProductName        string              `json:"productName"`
	Quantity           int                 `json:"quantity"`
	UnitPrice          int64               `json:"unitPrice"`
	SelectedVariations []SelectedVariation `json:"selectedVariations"`
}

// PendingSelection is the in-progress variation-selection cursor:
// which product is being configured and which variation axis comes next.
type PendingSelection struct {
	ProductID      string              `json:"productId"`
	ProductName    string              `json:"productName"`
	BasePrice      int64               `json:"basePrice"`
	Quantity       int                 `json:"quantity"`
	VariationIndex int                 `json:"variationIndex"`
	Selected       []SelectedVariation `json:"selected"`
}

// TempOrder is the draft cart embedded in a session, stored as JSONB.
type TempOrder struct {
	Items   []CartItem        `json:"items"`
	Total   int64             `json:"total"`
	Summary string            `json:"summary"`
	Pending *PendingSelection `json:"pending,omitempty"`
}

func (o TempOrder) Value() (driver.Value, error) {
	// items is always a JSON array, never null, so SQL can take its
	// length without a type check.
	if o.Items == nil {
		o.Items = []CartItem{}
	}
	return json.Marshal(o)
}

func (o *TempOrder) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*o = TempOrder{}
		return nil
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	default:
		return fmt.Errorf("cannot scan %T into TempOrder", src)
	}
}

// HasItems reports whether the draft holds at least one confirmed line.
func (o *TempOrder) HasItems() bool {
	return len(o.Items) > 0
}

// Session is one conversation per (tenant, customer) pair.
// The composite key is the natural primary key; at most one row
// exists per pair and creation is idempotent.
type Session struct {
	TenantID   string `db:"tenant_id" json:"tenantId"`
	CustomerID string `db:"customer_id" json:"customerId"`
	// ChatID is the transport chat the conversation runs on. Refreshed
	// from every inbound message so outbound nudges reach the same chat.
	ChatID           string            `db:"chat_id" json:"chatId"`
	State            ConversationState `db:"state" json:"state"`
	History          History           `db:"history" json:"history"`
	TempOrder        TempOrder         `db:"temp_order" json:"tempOrder"`
	LastInteraction  time.Time         `db:"last_interaction" json:"lastInteraction"`
	ReminderSent     bool              `db:"reminder_sent" json:"reminderSent"`
	AutopilotEnabled bool              `db:"autopilot_enabled" json:"autopilotEnabled"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`
}
