// Package transport defines the messaging capability the engine consumes.
// The actual wire protocol (handshake, QR issuance, delivery) lives in an
// external library; the connection manager only depends on this surface.
package transport

import (
	"context"
	"time"
)

// DisconnectReason explains why a connection closed.
type DisconnectReason struct {
	Code    string
	Message string
	// LoggedOut is set when the remote side explicitly unlinked the
	// device. It is terminal: credentials must be wiped and no
	// reconnect attempted.
	LoggedOut bool
}

type EventType string

const (
	EventQR      EventType = "qr"
	EventOpen    EventType = "open"
	EventClose   EventType = "close"
	EventMessage EventType = "message"
)

type MediaKind string

const (
	MediaNone  MediaKind = ""
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// Message is one inbound chat message from the transport.
type Message struct {
	ChatID     string
	CustomerID string
	MessageID  string
	Text       string
	Media      MediaKind
	Timestamp  time.Time
	// FromHistory marks messages delivered by the transport's own
	// history sync rather than live.
	FromHistory bool
	FromSelf    bool
}

// Event is a tagged union of everything a connection can emit.
// Exactly one payload field is set, matching Type.
type Event struct {
	Type    EventType
	QR      string
	Creds   []byte
	Reason  DisconnectReason
	Message *Message
}

// Conn is one live transport connection for a tenant.
type Conn interface {
	// Events yields connection events until the connection closes,
	// at which point the channel is closed after a final close event.
	Events() <-chan Event
	Send(ctx context.Context, chatID, text string) error
	RequestPairingCode(ctx context.Context, phoneNumber string) (string, error)
	MarkRead(ctx context.Context, chatID string, messageIDs ...string) error
	// FetchHistory returns recent messages per chat, newest last,
	// bounded by the since cutoff and perChat limit.
	FetchHistory(ctx context.Context, since time.Time, perChat int) ([]Message, error)
	Close() error
}

// Dialer opens connections. creds is the opaque credential blob from a
// previous session, nil for a fresh pairing (the transport will emit QR
// events until the pairing completes).
type Dialer interface {
	Dial(ctx context.Context, tenantID string, creds []byte) (Conn, error)
}
