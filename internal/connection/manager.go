// Package connection supervises one transport connection per tenant:
// pairing, reconnect with backoff, credential persistence and routing
// of inbound events into the conversation engine.
package connection

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/audit"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/config"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/engine"
	apperrors "github.com/lexxxdtp/djassabotSaas-sub000/internal/errors"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/repository"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/transport"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/util"
)

// MessageHandler is the engine surface the manager routes events into.
type MessageHandler interface {
	HandleInbound(ctx context.Context, tenantID string, msg engine.Inbound) (string, error)
}

// StateStore publishes connection state for dashboard polling and
// remembers which message IDs were already processed.
type StateStore interface {
	SetQR(ctx context.Context, tenantID, qr string) error
	GetQR(ctx context.Context, tenantID string) (string, error)
	ClearQR(ctx context.Context, tenantID string) error
	SetStatus(ctx context.Context, tenantID string, status model.ConnectionStatus) error
	// MarkSeen records a message ID and reports whether it was new.
	MarkSeen(ctx context.Context, tenantID, messageID string) (bool, error)
}

// Status is a snapshot of one tenant's connection.
type Status struct {
	TenantID   string                 `json:"tenantId"`
	Status     model.ConnectionStatus `json:"status"`
	QR         string                 `json:"qr,omitempty"`
	RetryCount int                    `json:"retryCount"`
}

// record is the in-memory per-tenant connection state. It survives
// transient reconnects and is destroyed on explicit logout.
type record struct {
	conn       transport.Conn
	status     model.ConnectionStatus
	qr         string
	retryCount int
	retryTimer *time.Timer
	cancel     context.CancelFunc
}

type Manager struct {
	mu      sync.Mutex
	records map[string]*record

	dialer  transport.Dialer
	handler MessageHandler
	tenants repository.TenantRepository
	orders  repository.OrderRepository
	state   StateStore

	encryptionKey string
	historyWindow time.Duration
}

func NewManager(
	dialer transport.Dialer,
	handler MessageHandler,
	tenants repository.TenantRepository,
	orders repository.OrderRepository,
	state StateStore,
	encryptionKey string,
	historyWindow time.Duration,
) *Manager {
	return &Manager{
		records:       make(map[string]*record),
		dialer:        dialer,
		handler:       handler,
		tenants:       tenants,
		orders:        orders,
		state:         state,
		encryptionKey: encryptionKey,
		historyWindow: historyWindow,
	}
}

// backoffDelay is the reconnect delay after the given attempt count.
func backoffDelay(retryCount int) time.Duration {
	delay := time.Duration(retryCount) * config.ReconnectBackoffStep
	if delay > config.ReconnectBackoffMax {
		delay = config.ReconnectBackoffMax
	}
	return delay
}

// EnsureConnection starts supervising a connection for the tenant.
// Calling it while a connection is connecting or connected is a no-op
// that returns the current status.
func (m *Manager) EnsureConnection(ctx context.Context, tenantID string) (*Status, error) {
	m.mu.Lock()
	if rec, ok := m.records[tenantID]; ok && rec.status != model.ConnectionDisconnected {
		status := m.snapshotLocked(tenantID, rec)
		m.mu.Unlock()
		return status, nil
	}
	m.mu.Unlock()

	tenant, err := m.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, apperrors.Database("load tenant", err)
	}
	if tenant == nil {
		return nil, apperrors.NotFound("tenant")
	}
	if tenant.Status != model.TenantStatusActive {
		return nil, apperrors.New(apperrors.ErrCodeForbidden, "tenant is not active")
	}

	m.mu.Lock()
	// Re-check under the lock: another caller may have won the race.
	if rec, ok := m.records[tenantID]; ok && rec.status != model.ConnectionDisconnected {
		status := m.snapshotLocked(tenantID, rec)
		m.mu.Unlock()
		return status, nil
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	rec := &record{status: model.ConnectionConnecting, cancel: cancel}
	m.records[tenantID] = rec
	m.mu.Unlock()

	if err := m.state.SetStatus(ctx, tenantID, model.ConnectionConnecting); err != nil {
		log.Error().Err(err).Str("tenantId", tenantID).Msg("failed to publish connection status")
	}

	go m.connect(loopCtx, tenantID, tenant.Credentials)

	log.Info().Str("tenantId", tenantID).Msg("connection attempt started")
	return &Status{TenantID: tenantID, Status: model.ConnectionConnecting}, nil
}

// RequestPairingCode asks the transport for a phone-number pairing code,
// the QR alternative for headless onboarding.
func (m *Manager) RequestPairingCode(ctx context.Context, tenantID, phoneNumber string) (string, error) {
	if !util.IsValidPhoneNumber(phoneNumber) {
		return "", apperrors.InvalidInput("phoneNumber", "expected international format, e.g. +2250700000000")
	}

	m.mu.Lock()
	rec, ok := m.records[tenantID]
	var conn transport.Conn
	if ok {
		conn = rec.conn
	}
	m.mu.Unlock()

	if conn == nil {
		return "", apperrors.NotConnected(tenantID)
	}

	code, err := conn.RequestPairingCode(ctx, phoneNumber)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeTransport, "request pairing code", err)
	}
	return code, nil
}

// Disconnect tears the tenant's connection down for good: pending
// reconnect timers are aborted and stored credentials wiped.
func (m *Manager) Disconnect(ctx context.Context, tenantID string) error {
	m.mu.Lock()
	rec, ok := m.records[tenantID]
	if ok {
		if rec.retryTimer != nil {
			rec.retryTimer.Stop()
			rec.retryTimer = nil
		}
		rec.cancel()
		if rec.conn != nil {
			_ = rec.conn.Close()
		}
		delete(m.records, tenantID)
	}
	m.mu.Unlock()

	if !ok {
		return apperrors.NotConnected(tenantID)
	}

	if err := m.tenants.ClearCredentials(ctx, tenantID); err != nil {
		log.Error().Err(err).Str("tenantId", tenantID).Msg("failed to clear credentials")
	}
	if err := m.state.SetStatus(ctx, tenantID, model.ConnectionDisconnected); err != nil {
		log.Error().Err(err).Str("tenantId", tenantID).Msg("failed to publish connection status")
	}
	_ = m.state.ClearQR(ctx, tenantID)
	audit.Log(ctx, audit.Event{Type: audit.EventCredentialsWiped, TenantID: tenantID})

	log.Info().Str("tenantId", tenantID).Msg("tenant disconnected")
	return nil
}

// Send delivers an outbound message on the tenant's live connection.
func (m *Manager) Send(ctx context.Context, tenantID, chatID, text string) error {
	m.mu.Lock()
	rec, ok := m.records[tenantID]
	var conn transport.Conn
	connected := ok && rec.status == model.ConnectionConnected
	if connected {
		conn = rec.conn
	}
	m.mu.Unlock()

	if !connected || conn == nil {
		return apperrors.NotConnected(tenantID)
	}
	return conn.Send(ctx, chatID, text)
}

// Status reports the tenant's connection snapshot.
func (m *Manager) Status(tenantID string) *Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[tenantID]
	if !ok {
		return &Status{TenantID: tenantID, Status: model.ConnectionDisconnected}
	}
	return m.snapshotLocked(tenantID, rec)
}

// IsConnected reports whether the tenant has a live connection.
func (m *Manager) IsConnected(tenantID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[tenantID]
	return ok && rec.status == model.ConnectionConnected
}

// Shutdown closes every live connection without wiping credentials,
// so tenants resume on the next boot.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tenantID, rec := range m.records {
		if rec.retryTimer != nil {
			rec.retryTimer.Stop()
		}
		rec.cancel()
		if rec.conn != nil {
			_ = rec.conn.Close()
		}
		delete(m.records, tenantID)
	}
}

func (m *Manager) snapshotLocked(tenantID string, rec *record) *Status {
	return &Status{
		TenantID:   tenantID,
		Status:     rec.status,
		QR:         rec.qr,
		RetryCount: rec.retryCount,
	}
}

func (m *Manager) connect(ctx context.Context, tenantID string, storedCreds *string) {
	creds := m.decryptCredentials(tenantID, storedCreds)

	conn, err := m.dialer.Dial(ctx, tenantID, creds)
	if err != nil {
		log.Error().Err(err).Str("tenantId", tenantID).Msg("transport dial failed")
		m.scheduleReconnect(ctx, tenantID)
		return
	}

	m.mu.Lock()
	rec, ok := m.records[tenantID]
	if !ok {
		// Disconnected while dialing.
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	rec.conn = conn
	m.mu.Unlock()

	m.eventLoop(ctx, tenantID, conn)
}

func (m *Manager) eventLoop(ctx context.Context, tenantID string, conn transport.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-conn.Events():
			if !ok {
				return
			}
			switch ev.Type {
			case transport.EventQR:
				m.onQR(ctx, tenantID, ev.QR)
			case transport.EventOpen:
				m.onOpen(ctx, tenantID, conn, ev.Creds)
			case transport.EventMessage:
				if ev.Message != nil {
					m.dispatch(ctx, tenantID, conn, *ev.Message)
				}
			case transport.EventClose:
				m.onClose(ctx, tenantID, ev.Reason)
				return
			}
		}
	}
}

func (m *Manager) onQR(ctx context.Context, tenantID, qr string) {
	m.mu.Lock()
	if rec, ok := m.records[tenantID]; ok {
		rec.qr = qr
	}
	m.mu.Unlock()

	if err := m.state.SetQR(ctx, tenantID, qr); err != nil {
		log.Error().Err(err).Str("tenantId", tenantID).Msg("failed to publish qr payload")
	}
	log.Info().Str("tenantId", tenantID).Msg("qr payload issued")
}

func (m *Manager) onOpen(ctx context.Context, tenantID string, conn transport.Conn, creds []byte) {
	m.mu.Lock()
	rec, ok := m.records[tenantID]
	if ok {
		rec.status = model.ConnectionConnected
		rec.retryCount = 0
		rec.qr = ""
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	if len(creds) > 0 {
		m.persistCredentials(ctx, tenantID, creds)
	}
	_ = m.state.ClearQR(ctx, tenantID)
	if err := m.state.SetStatus(ctx, tenantID, model.ConnectionConnected); err != nil {
		log.Error().Err(err).Str("tenantId", tenantID).Msg("failed to publish connection status")
	}
	if err := m.orders.LogActivity(ctx, tenantID, model.ActivityConnectionOpened, "Connexion WhatsApp établie"); err != nil {
		log.Error().Err(err).Str("tenantId", tenantID).Msg("failed to log connection activity")
	}

	log.Info().Str("tenantId", tenantID).Msg("connection open")

	go m.replayHistory(ctx, tenantID, conn)
}

// replayHistory pushes recent chat history through the engine tagged as
// historical, so sessions rebuild their context without re-sending
// replies or re-creating orders.
func (m *Manager) replayHistory(ctx context.Context, tenantID string, conn transport.Conn) {
	since := time.Now().Add(-m.historyWindow)
	messages, err := conn.FetchHistory(ctx, since, config.HistorySyncPerChatLimit)
	if err != nil {
		log.Error().Err(err).Str("tenantId", tenantID).Msg("history fetch failed")
		return
	}

	replayed := 0
	for _, msg := range messages {
		msg.FromHistory = true
		m.dispatch(ctx, tenantID, conn, msg)
		replayed++
	}

	log.Info().Str("tenantId", tenantID).Int("count", replayed).Msg("history replay complete")
}

// dispatch routes one transport message into the engine and sends the
// reply, if any. Stale live messages are demoted to historical.
func (m *Manager) dispatch(ctx context.Context, tenantID string, conn transport.Conn, msg transport.Message) {
	if msg.MessageID != "" {
		fresh, err := m.state.MarkSeen(ctx, tenantID, msg.MessageID)
		if err != nil {
			log.Error().Err(err).Str("tenantId", tenantID).Msg("replay dedupe check failed")
		} else if !fresh {
			return
		}
	}

	isHistory := msg.FromHistory
	if !isHistory && !msg.Timestamp.IsZero() && time.Since(msg.Timestamp) > config.LiveMessageMaxAge {
		isHistory = true
	}

	reply, err := m.handler.HandleInbound(ctx, tenantID, engine.Inbound{
		ChatID:     msg.ChatID,
		CustomerID: msg.CustomerID,
		MessageID:  msg.MessageID,
		Text:       msg.Text,
		Media:      string(msg.Media),
		Timestamp:  msg.Timestamp,
		FromSelf:   msg.FromSelf,
		IsHistory:  isHistory,
	})
	if err != nil {
		log.Error().Err(err).
			Str("tenantId", tenantID).
			Str("customerId", msg.CustomerID).
			Msg("message handling failed")
		return
	}
	if reply == "" {
		return
	}

	if err := conn.MarkRead(ctx, msg.ChatID, msg.MessageID); err != nil {
		log.Debug().Err(err).Str("tenantId", tenantID).Msg("mark read failed")
	}
	if err := conn.Send(ctx, msg.ChatID, reply); err != nil {
		log.Error().Err(err).
			Str("tenantId", tenantID).
			Str("chatId", msg.ChatID).
			Msg("send failed")
	}
}

func (m *Manager) onClose(ctx context.Context, tenantID string, reason transport.DisconnectReason) {
	if reason.LoggedOut {
		// Remote side unlinked the device: terminal, no retry.
		m.mu.Lock()
		if rec, ok := m.records[tenantID]; ok {
			if rec.retryTimer != nil {
				rec.retryTimer.Stop()
			}
			rec.cancel()
			delete(m.records, tenantID)
		}
		m.mu.Unlock()

		if err := m.tenants.ClearCredentials(ctx, tenantID); err != nil {
			log.Error().Err(err).Str("tenantId", tenantID).Msg("failed to clear credentials")
		}
		if err := m.state.SetStatus(ctx, tenantID, model.ConnectionDisconnected); err != nil {
			log.Error().Err(err).Str("tenantId", tenantID).Msg("failed to publish connection status")
		}
		if err := m.orders.LogActivity(ctx, tenantID, model.ActivityLoggedOut, "Déconnexion WhatsApp par le marchand"); err != nil {
			log.Error().Err(err).Str("tenantId", tenantID).Msg("failed to log logout activity")
		}
		audit.Log(ctx, audit.Event{Type: audit.EventCredentialsWiped, TenantID: tenantID})

		log.Warn().Str("tenantId", tenantID).Str("reason", reason.Code).Msg("logged out, credentials purged")
		return
	}

	log.Warn().
		Str("tenantId", tenantID).
		Str("reason", reason.Code).
		Msg("connection lost, scheduling reconnect")

	if err := m.orders.LogActivity(ctx, tenantID, model.ActivityConnectionLost, "Connexion WhatsApp perdue: "+reason.Code); err != nil {
		log.Error().Err(err).Str("tenantId", tenantID).Msg("failed to log disconnect activity")
	}

	m.scheduleReconnect(ctx, tenantID)
}

func (m *Manager) scheduleReconnect(ctx context.Context, tenantID string) {
	m.mu.Lock()
	rec, ok := m.records[tenantID]
	if !ok {
		m.mu.Unlock()
		return
	}
	rec.status = model.ConnectionConnecting
	rec.conn = nil
	rec.retryCount++
	retryCount := rec.retryCount
	delay := backoffDelay(retryCount)
	rec.retryTimer = time.AfterFunc(delay, func() {
		m.retry(tenantID)
	})
	m.mu.Unlock()

	if err := m.state.SetStatus(ctx, tenantID, model.ConnectionConnecting); err != nil {
		log.Error().Err(err).Str("tenantId", tenantID).Msg("failed to publish connection status")
	}

	log.Info().
		Str("tenantId", tenantID).
		Dur("delay", delay).
		Int("retryCount", retryCount).
		Msg("reconnect scheduled")
}

func (m *Manager) retry(tenantID string) {
	m.mu.Lock()
	rec, ok := m.records[tenantID]
	if !ok {
		m.mu.Unlock()
		return
	}
	rec.retryTimer = nil
	loopCtx, cancel := context.WithCancel(context.Background())
	rec.cancel()
	rec.cancel = cancel
	m.mu.Unlock()

	ctx, loadCancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	tenant, err := m.tenants.FindByID(ctx, tenantID)
	loadCancel()
	if err != nil || tenant == nil {
		log.Error().Err(err).Str("tenantId", tenantID).Msg("tenant reload failed, retrying later")
		m.scheduleReconnect(context.Background(), tenantID)
		return
	}

	m.connect(loopCtx, tenantID, tenant.Credentials)
}

func (m *Manager) decryptCredentials(tenantID string, stored *string) []byte {
	if stored == nil || *stored == "" {
		return nil
	}
	if m.encryptionKey == "" {
		return []byte(*stored)
	}
	plain, err := util.Decrypt(m.encryptionKey, *stored)
	if err != nil {
		log.Error().Err(err).Str("tenantId", tenantID).Msg("credential decrypt failed, starting fresh pairing")
		return nil
	}
	return []byte(plain)
}

func (m *Manager) persistCredentials(ctx context.Context, tenantID string, creds []byte) {
	value := string(creds)
	if m.encryptionKey != "" {
		encrypted, err := util.Encrypt(m.encryptionKey, value)
		if err != nil {
			log.Error().Err(err).Str("tenantId", tenantID).Msg("credential encrypt failed, not persisting")
			return
		}
		value = encrypted
	}
	if err := m.tenants.SaveCredentials(ctx, tenantID, value); err != nil {
		log.Error().Err(err).Str("tenantId", tenantID).Msg("failed to persist credentials")
		return
	}
	audit.Log(ctx, audit.Event{Type: audit.EventCredentialsStored, TenantID: tenantID})
}
