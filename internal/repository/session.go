package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
)

type SessionRepository interface {
	// GetOrCreate returns the session for (tenantID, customerID),
	// creating an IDLE one on first read. Creation is idempotent.
	GetOrCreate(ctx context.Context, tenantID, customerID string) (*model.Session, error)
	// Upsert writes the full session record keyed by the composite PK.
	Upsert(ctx context.Context, session *model.Session) error
	// Reset clears history and draft cart and returns the state to IDLE.
	Reset(ctx context.Context, tenantID, customerID string) error
	// FindAbandoned lists sessions waiting for an address whose draft cart
	// has been idle since before cutoff and that were not reminded yet.
	FindAbandoned(ctx context.Context, cutoff time.Time) ([]model.Session, error)
	MarkReminderSent(ctx context.Context, tenantID, customerID string) error
}

type sessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) find(ctx context.Context, tenantID, customerID string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE tenant_id = $1 AND customer_id = $2
	`, tenantID, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) GetOrCreate(ctx context.Context, tenantID, customerID string) (*model.Session, error) {
	session, err := r.find(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	now := time.Now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (tenant_id, customer_id, chat_id, state, history, temp_order,
			last_interaction, reminder_sent, autopilot_enabled, created_at, updated_at)
		VALUES ($1, $2, '', $3, $4, $5, $6, false, true, $6, $6)
		ON CONFLICT (tenant_id, customer_id) DO NOTHING
	`, tenantID, customerID, model.StateIdle, model.History{}, model.TempOrder{}, now)
	if err != nil {
		return nil, err
	}

	return r.find(ctx, tenantID, customerID)
}

func (r *sessionRepo) Upsert(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (tenant_id, customer_id, chat_id, state, history, temp_order,
			last_interaction, reminder_sent, autopilot_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (tenant_id, customer_id) DO UPDATE SET
			chat_id = EXCLUDED.chat_id,
			state = EXCLUDED.state,
			history = EXCLUDED.history,
			temp_order = EXCLUDED.temp_order,
			last_interaction = EXCLUDED.last_interaction,
			reminder_sent = EXCLUDED.reminder_sent,
			autopilot_enabled = EXCLUDED.autopilot_enabled,
			updated_at = EXCLUDED.updated_at
	`, session.TenantID, session.CustomerID, session.ChatID, session.State,
		session.History, session.TempOrder, session.LastInteraction,
		session.ReminderSent, session.AutopilotEnabled, time.Now())
	return err
}

func (r *sessionRepo) Reset(ctx context.Context, tenantID, customerID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			state = $3,
			history = $4,
			temp_order = $5,
			reminder_sent = false,
			updated_at = $6
		WHERE tenant_id = $1 AND customer_id = $2
	`, tenantID, customerID, model.StateIdle, model.History{}, model.TempOrder{}, time.Now())
	return err
}

func (r *sessionRepo) FindAbandoned(ctx context.Context, cutoff time.Time) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sessions
		WHERE state = $1
		AND reminder_sent = false
		AND last_interaction <= $2
		AND jsonb_array_length(COALESCE(temp_order->'items', '[]'::jsonb)) > 0
		ORDER BY last_interaction
	`, model.StateWaitingForAddress, cutoff)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) MarkReminderSent(ctx context.Context, tenantID, customerID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			reminder_sent = true,
			updated_at = $3
		WHERE tenant_id = $1 AND customer_id = $2
	`, tenantID, customerID, time.Now())
	return err
}
