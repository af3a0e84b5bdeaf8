package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/repository"
)

// Sender delivers outbound messages on a tenant's live connection.
// Satisfied by the connection manager.
type Sender interface {
	Send(ctx context.Context, tenantID, chatID, text string) error
	IsConnected(tenantID string) bool
}

// ReminderJob periodically nudges customers who left a filled cart
// waiting for a delivery address. Each session gets at most one nudge.
type ReminderJob struct {
	sessionRepo  repository.SessionRepository
	orderRepo    repository.OrderRepository
	sender       Sender
	delay        time.Duration
	interval     time.Duration
	startupDelay time.Duration
	done         chan struct{}
}

func NewReminderJob(
	sessionRepo repository.SessionRepository,
	orderRepo repository.OrderRepository,
	sender Sender,
	delay time.Duration,
	interval time.Duration,
	startupDelay time.Duration,
) *ReminderJob {
	return &ReminderJob{
		sessionRepo:  sessionRepo,
		orderRepo:    orderRepo,
		sender:       sender,
		delay:        delay,
		interval:     interval,
		startupDelay: startupDelay,
		done:         make(chan struct{}),
	}
}

func (j *ReminderJob) Start() {
	go j.run()
	log.Info().
		Dur("interval", j.interval).
		Dur("delay", j.delay).
		Msg("reminder job started")
}

func (j *ReminderJob) Stop() {
	close(j.done)
	log.Info().Msg("reminder job stopped")
}

func (j *ReminderJob) run() {
	// Let connections come back up after a restart before sweeping,
	// otherwise every reminder fails on a not-yet-open connection.
	startup := time.NewTimer(j.startupDelay)
	defer startup.Stop()
	select {
	case <-j.done:
		return
	case <-startup.C:
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *ReminderJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.delay)
	sessions, err := j.sessionRepo.FindAbandoned(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("abandoned cart lookup failed")
		return
	}

	sent := 0
	for _, session := range sessions {
		if j.remind(ctx, &session) {
			sent++
		}
	}

	if sent > 0 {
		log.Info().Int("count", sent).Msg("cart reminders sent")
	}
}

// remind sends one nudge and marks the session so it is never nudged
// again. Tenants without a live connection are skipped silently and
// picked up on a later sweep.
func (j *ReminderJob) remind(ctx context.Context, session *model.Session) bool {
	if !j.sender.IsConnected(session.TenantID) {
		log.Debug().
			Str("tenantId", session.TenantID).
			Str("customerId", session.CustomerID).
			Msg("reminder skipped, tenant not connected")
		return false
	}

	// Send to the transport chat the conversation ran on; very old rows
	// predate chat_id and fall back to the customer identifier.
	chatID := session.ChatID
	if chatID == "" {
		chatID = session.CustomerID
	}

	text := reminderText(session.TempOrder.Summary)
	if err := j.sender.Send(ctx, session.TenantID, chatID, text); err != nil {
		log.Error().Err(err).
			Str("tenantId", session.TenantID).
			Str("customerId", session.CustomerID).
			Msg("reminder send failed")
		return false
	}

	if err := j.sessionRepo.MarkReminderSent(ctx, session.TenantID, session.CustomerID); err != nil {
		log.Error().Err(err).
			Str("tenantId", session.TenantID).
			Str("customerId", session.CustomerID).
			Msg("failed to mark reminder sent")
		return false
	}

	if err := j.orderRepo.LogActivity(ctx, session.TenantID, model.ActivityReminderSent,
		"Relance panier envoyée à "+session.CustomerID); err != nil {
		log.Error().Err(err).Str("tenantId", session.TenantID).Msg("failed to log reminder activity")
	}

	return true
}

func reminderText(summary string) string {
	text := "Bonjour ! 👋 Vous avez laissé votre commande en attente."
	if summary != "" {
		text += "\n\n" + summary
	}
	text += "\n\nPour la finaliser, envoyez simplement votre adresse de livraison."
	return text
}
