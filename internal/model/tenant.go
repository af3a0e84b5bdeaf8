package model

import "time"

type Tenant struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	PhoneNumber  *string      `db:"phone_number" json:"phoneNumber,omitempty"`
	Status       TenantStatus `db:"status" json:"status"`
	APITokenHash string       `db:"api_token_hash" json:"-"`
	// Credentials is the transport session blob, AES-GCM encrypted at rest
	// when an encryption key is configured.
	Credentials *string   `db:"credentials" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Settings carries the merchant-tunable knobs the responder uses:
// shop identity, tone and payment details for the reply prompt.
type Settings struct {
	TenantID       string    `db:"tenant_id" json:"tenantId"`
	ShopName       string    `db:"shop_name" json:"shopName"`
	WelcomeMessage string    `db:"welcome_message" json:"welcomeMessage"`
	Tone           string    `db:"tone" json:"tone"`
	Currency       string    `db:"currency" json:"currency"`
	PaymentInfo    string    `db:"payment_info" json:"paymentInfo"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}
