package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Reconnect backoff: delay = retryCount * ReconnectBackoffStep, capped at ReconnectBackoffMax.
const (
	ReconnectBackoffStep = 2 * time.Second
	ReconnectBackoffMax  = 30 * time.Second
)

// Abandoned-cart sweeper schedule
const (
	ReminderJobStartupDelay = 1 * time.Minute
	ReminderJobInterval     = 10 * time.Minute
)

// Inbound events older than this are treated as historical backfill,
// not live conversation.
const LiveMessageMaxAge = 10 * time.Second

// Messages replayed per chat on history sync.
const HistorySyncPerChatLimit = 50

// TTL for replay-dedupe keys in Redis.
const ReplayDedupeTTL = 14 * 24 * time.Hour

// TTL for QR payloads surfaced for admin polling.
const QRPayloadTTL = 2 * time.Minute
