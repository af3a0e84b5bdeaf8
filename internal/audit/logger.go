// Package audit emits structured security-audit events, separate from
// request logging so they can be filtered and retained independently.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventAuthFailure        EventType = "auth_failure"
	EventCrossTenantDenied  EventType = "cross_tenant_denied"
	EventPairingStarted     EventType = "pairing_started"
	EventPairingCodeIssued  EventType = "pairing_code_issued"
	EventCredentialsStored  EventType = "credentials_stored"
	EventCredentialsWiped   EventType = "credentials_wiped"
	EventTenantDisconnected EventType = "tenant_disconnected"
)

type Event struct {
	Type     EventType
	TenantID string
	IP       string
	Details  map[string]interface{}
}

func Log(_ context.Context, event Event) {
	logger := log.With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.TenantID != "" {
		logger = logger.With().Str("tenant_id", event.TenantID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}

	logEvent := logger.Info()
	if event.Details != nil {
		logEvent = logEvent.Fields(event.Details)
	}
	logEvent.Msg("audit event")
}
