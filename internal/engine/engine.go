// Package engine drives one customer conversation at a time through the
// IDLE -> WAITING_FOR_VARIATION -> WAITING_FOR_ADDRESS cycle, turning
// free-form messages into cart operations and persisted orders.
package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/cart"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/oracle"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/repository"
)

// Inbound is one message handed to the state machine.
type Inbound struct {
	ChatID     string
	CustomerID string
	MessageID  string
	Text       string
	Media      string // "image", "audio", "video" or empty
	Timestamp  time.Time
	// FromSelf marks messages the merchant side sent, seen during
	// history replay.
	FromSelf bool
	// IsHistory marks replayed or stale messages: bookkeeping only,
	// never a reply or a checkout side effect.
	IsHistory bool
}

var handoverPhrases = []string{
	"parler a un humain", "parler à un humain", "un humain",
	"un conseiller", "une vraie personne", "le patron", "la patronne",
}

var cancelPhrases = []string{
	"annuler", "annule", "laisse tomber", "laissez tomber", "cancel",
}

type Engine struct {
	sessions repository.SessionRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
	tenants  repository.TenantRepository
	oracle   oracle.Oracle
	locks    *convLocks
}

func New(
	sessions repository.SessionRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	tenants repository.TenantRepository,
	o oracle.Oracle,
) *Engine {
	return &Engine{
		sessions: sessions,
		products: products,
		orders:   orders,
		tenants:  tenants,
		oracle:   o,
		locks:    newConvLocks(),
	}
}

// outcome is what one dispatch branch produced.
type outcome struct {
	reply string
	// recordReply is false when the branch already rewrote the session
	// history itself (checkout clears it).
	recordReply bool
}

// HandleInbound processes one message for (tenantID, msg.CustomerID) and
// returns the outbound reply, or "" when nothing should be sent.
// Handlers for the same conversation are serialized; a panic inside one
// message's processing is recovered here and never reaches the
// connection loop.
func (e *Engine) HandleInbound(ctx context.Context, tenantID string, msg Inbound) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("tenantId", tenantID).
				Str("customerId", msg.CustomerID).
				Interface("panic", r).
				Msg("recovered panic in message handler")
			reply = ""
			err = fmt.Errorf("message handler panic: %v", r)
		}
	}()

	unlock := e.locks.lock(tenantID + "|" + msg.CustomerID)
	defer unlock()

	session, err := e.sessions.GetOrCreate(ctx, tenantID, msg.CustomerID)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}

	if msg.ChatID != "" {
		session.ChatID = msg.ChatID
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" && msg.Media != "" {
		text = mediaPlaceholder(msg.Media)
	}
	if text == "" {
		return "", nil
	}

	role := "customer"
	if msg.FromSelf {
		role = "assistant"
	}

	// Historical replays only refresh session bookkeeping.
	if msg.IsHistory {
		session.History = session.History.Append(role, text)
		if err := e.sessions.Upsert(ctx, session); err != nil {
			return "", fmt.Errorf("save session: %w", err)
		}
		return "", nil
	}

	session.History = session.History.Append(role, text)
	session.LastInteraction = msg.Timestamp
	if session.LastInteraction.IsZero() {
		session.LastInteraction = time.Now()
	}

	// A human operator has taken over this conversation.
	if !session.AutopilotEnabled || msg.FromSelf {
		if err := e.sessions.Upsert(ctx, session); err != nil {
			return "", fmt.Errorf("save session: %w", err)
		}
		return "", nil
	}

	// Explicit cancellation empties the draft and restarts from IDLE.
	if wantsCancel(text) && (session.State != model.StateIdle || session.TempOrder.HasItems()) {
		if err := e.sessions.Reset(ctx, tenantID, msg.CustomerID); err != nil {
			return "", fmt.Errorf("reset session: %w", err)
		}
		log.Info().
			Str("tenantId", tenantID).
			Str("customerId", msg.CustomerID).
			Msg("cart cancelled by customer")
		return "Pas de souci, j'ai vidé votre panier. Dites-moi quand vous voulez reprendre !", nil
	}

	var out outcome
	switch session.State {
	case model.StateWaitingForAddress:
		out, err = e.handleAddress(ctx, tenantID, session, text)
	case model.StateWaitingForVariation:
		out, err = e.handleVariation(ctx, tenantID, session, text)
	default:
		out, err = e.handleIdle(ctx, tenantID, session, text)
	}
	if err != nil {
		return "", err
	}

	if out.reply != "" && out.recordReply {
		session.History = session.History.Append("assistant", out.reply)
	}

	if err := e.sessions.Upsert(ctx, session); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	log.Debug().
		Str("tenantId", tenantID).
		Str("customerId", msg.CustomerID).
		Str("state", string(session.State)).
		Bool("replied", out.reply != "").
		Msg("message processed")

	return out.reply, nil
}

// handleAddress interprets the message as the delivery address and
// materializes the draft cart into a persisted order.
func (e *Engine) handleAddress(ctx context.Context, tenantID string, session *model.Session, text string) (outcome, error) {
	if !session.TempOrder.HasItems() {
		// The draft vanished (reset elsewhere, data loss): recover.
		session.State = model.StateIdle
		session.TempOrder = model.TempOrder{}
		return outcome{
			reply:       "Votre panier a expiré. Dites-moi ce que vous souhaitez commander et on reprend !",
			recordReply: true,
		}, nil
	}

	reference := "CMD-" + strings.ToUpper(uuid.NewString()[:8])
	order, err := e.orders.Create(ctx, model.CreateOrderParams{
		TenantID:   tenantID,
		CustomerID: session.CustomerID,
		Items:      session.TempOrder.Items,
		Total:      session.TempOrder.Total,
		Address:    text,
	}, reference)
	if err != nil {
		return outcome{}, fmt.Errorf("create order: %w", err)
	}

	if err := e.orders.LogActivity(ctx, tenantID, model.ActivityOrderCreated,
		fmt.Sprintf("Commande %s de %s: %d FCFA", order.Reference, session.CustomerID, order.Total)); err != nil {
		log.Error().Err(err).Str("tenantId", tenantID).Msg("failed to log order activity")
	}

	summary := session.TempOrder.Summary

	// Order completed: the session is reset, never deleted.
	session.State = model.StateIdle
	session.History = model.History{}
	session.TempOrder = model.TempOrder{}
	session.ReminderSent = false

	reply := fmt.Sprintf(
		"Merci ! Votre commande %s est confirmée.\n%s\nLivraison: %s\nNous vous contactons très vite pour la livraison.",
		order.Reference, summary, text)

	log.Info().
		Str("tenantId", tenantID).
		Str("customerId", session.CustomerID).
		Str("reference", order.Reference).
		Int64("total", order.Total).
		Msg("order created")

	return outcome{reply: reply, recordReply: false}, nil
}

// handleVariation matches the message against the current variation's
// options and advances the selection cursor.
func (e *Engine) handleVariation(ctx context.Context, tenantID string, session *model.Session, text string) (outcome, error) {
	pending := session.TempOrder.Pending
	if pending == nil {
		session.State = model.StateIdle
		return outcome{
			reply:       "Reprenons depuis le début : quel produit souhaitez-vous commander ?",
			recordReply: true,
		}, nil
	}

	product, err := e.products.FindByID(ctx, tenantID, pending.ProductID)
	if err != nil {
		return outcome{}, fmt.Errorf("load product: %w", err)
	}
	if product == nil || pending.VariationIndex >= len(product.Variations) {
		session.State = model.StateIdle
		session.TempOrder.Pending = nil
		return outcome{
			reply:       "Ce produit n'est plus disponible. Que puis-je vous proposer d'autre ?",
			recordReply: true,
		}, nil
	}

	variation := product.Variations[pending.VariationIndex]
	option := matchOption(variation.Options, text)
	if option == nil {
		return outcome{
			reply:       variationPrompt(pending.ProductName, variation),
			recordReply: true,
		}, nil
	}

	if option.Stock == 0 {
		return outcome{
			reply: fmt.Sprintf("Désolé, %s %s est épuisé. Choisissez une autre option :\n%s",
				variation.Name, option.Value, optionList(variation)),
			recordReply: true,
		}, nil
	}
	if option.Stock < pending.Quantity {
		// Hold the state and offer the maximum we can fulfil.
		pending.Quantity = option.Stock
		return outcome{
			reply: fmt.Sprintf("Il ne reste que %d en %s %s. Répondez \"%s\" pour prendre %d, ou choisissez une autre option.",
				option.Stock, variation.Name, option.Value, option.Value, option.Stock),
			recordReply: true,
		}, nil
	}

	pending.Selected = append(pending.Selected, model.SelectedVariation{
		Name:       variation.Name,
		Value:      option.Value,
		PriceDelta: option.PriceDelta,
	})
	pending.VariationIndex++

	if pending.VariationIndex < len(product.Variations) {
		next := product.Variations[pending.VariationIndex]
		return outcome{
			reply:       variationPrompt(pending.ProductName, next),
			recordReply: true,
		}, nil
	}

	// All axes chosen: finalize the line with accumulated modifiers.
	unitPrice := pending.BasePrice
	for _, v := range pending.Selected {
		unitPrice += v.PriceDelta
	}
	item := model.CartItem{
		ProductID:          pending.ProductID,
		ProductName:        pending.ProductName,
		Quantity:           pending.Quantity,
		UnitPrice:          unitPrice,
		SelectedVariations: pending.Selected,
	}

	items, total, summary := cart.Merge(session.TempOrder.Items, item)
	session.TempOrder = model.TempOrder{Items: items, Total: total, Summary: summary}
	session.State = model.StateWaitingForAddress
	session.ReminderSent = false

	return outcome{
		reply:       fmt.Sprintf("C'est noté !\n%s\n\nQuelle est votre adresse de livraison ?", summary),
		recordReply: true,
	}, nil
}

// handleIdle classifies the message and either starts a purchase or
// answers conversationally.
func (e *Engine) handleIdle(ctx context.Context, tenantID string, session *model.Session, text string) (outcome, error) {
	if wantsHuman(text) {
		if err := e.orders.LogActivity(ctx, tenantID, model.ActivityHandoverRequested,
			fmt.Sprintf("Le client %s demande un humain", session.CustomerID)); err != nil {
			log.Error().Err(err).Str("tenantId", tenantID).Msg("failed to log handover activity")
		}
		return outcome{
			reply:       "Pas de souci ! Un membre de l'équipe prend le relais et vous répond très vite.",
			recordReply: true,
		}, nil
	}

	catalog, err := e.products.FindByTenantID(ctx, tenantID)
	if err != nil {
		return outcome{}, fmt.Errorf("load catalog: %w", err)
	}

	classification, err := e.oracle.ClassifyIntent(ctx, text, catalog)
	if err != nil {
		return outcome{}, fmt.Errorf("classify intent: %w", err)
	}

	if classification.Intent == model.IntentBuy && classification.ProductName != "" {
		product, err := e.products.FindByName(ctx, tenantID, classification.ProductName)
		if err != nil {
			return outcome{}, fmt.Errorf("resolve product: %w", err)
		}
		if product != nil {
			return e.startPurchase(session, product, classification.Quantity)
		}
	}

	return e.chatReply(ctx, tenantID, session, text, catalog)
}

func (e *Engine) startPurchase(session *model.Session, product *model.Product, quantity int) (outcome, error) {
	if quantity <= 0 {
		quantity = 1
	}

	if product.HasVariations() {
		session.TempOrder.Pending = &model.PendingSelection{
			ProductID:      product.ID,
			ProductName:    product.Name,
			BasePrice:      product.Price,
			Quantity:       quantity,
			VariationIndex: 0,
		}
		session.State = model.StateWaitingForVariation
		return outcome{
			reply:       variationPrompt(product.Name, product.Variations[0]),
			recordReply: true,
		}, nil
	}

	if product.Stock == 0 {
		return outcome{
			reply: fmt.Sprintf("Désolé, %s est épuisé pour le moment. Voulez-vous être prévenu quand il revient ?",
				product.Name),
			recordReply: true,
		}, nil
	}
	if product.Stock < quantity {
		return outcome{
			reply: fmt.Sprintf("Il ne reste que %d %s en stock. Voulez-vous prendre les %d ?",
				product.Stock, product.Name, product.Stock),
			recordReply: true,
		}, nil
	}

	item := model.CartItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   product.Price,
	}
	items, total, summary := cart.Merge(session.TempOrder.Items, item)
	session.TempOrder = model.TempOrder{Items: items, Total: total, Summary: summary}
	session.State = model.StateWaitingForAddress
	session.ReminderSent = false

	return outcome{
		reply:       fmt.Sprintf("Très bon choix !\n%s\n\nQuelle est votre adresse de livraison ?", summary),
		recordReply: true,
	}, nil
}

func (e *Engine) chatReply(ctx context.Context, tenantID string, session *model.Session, text string, catalog []model.Product) (outcome, error) {
	settings, err := e.tenants.GetSettings(ctx, tenantID)
	if err != nil {
		log.Error().Err(err).Str("tenantId", tenantID).Msg("failed to load settings")
	}

	reply, err := e.oracle.GenerateReply(ctx, text, oracle.ReplyContext{
		History:   session.History,
		Settings:  settings,
		Inventory: catalog,
	})
	if err != nil {
		return outcome{}, fmt.Errorf("generate reply: %w", err)
	}

	return outcome{reply: reply, recordReply: true}, nil
}

// matchOption resolves the customer's answer against an option list by
// 1-based numeric index, exact value match or substring match.
func matchOption(options []model.VariationOption, text string) *model.VariationOption {
	trimmed := strings.TrimSpace(text)
	if n, err := strconv.Atoi(trimmed); err == nil {
		if n >= 1 && n <= len(options) {
			return &options[n-1]
		}
		return nil
	}

	lower := strings.ToLower(trimmed)
	for i := range options {
		if strings.ToLower(options[i].Value) == lower {
			return &options[i]
		}
	}
	for i := range options {
		value := strings.ToLower(options[i].Value)
		if strings.Contains(lower, value) || strings.Contains(value, lower) {
			return &options[i]
		}
	}
	return nil
}

func variationPrompt(productName string, v model.Variation) string {
	return fmt.Sprintf("Pour %s, quelle %s voulez-vous ?\n%s\nRépondez avec le nom ou le numéro.",
		productName, strings.ToLower(v.Name), optionList(v))
}

func optionList(v model.Variation) string {
	var b strings.Builder
	for i, opt := range v.Options {
		fmt.Fprintf(&b, "%d. %s", i+1, opt.Value)
		if opt.PriceDelta > 0 {
			fmt.Fprintf(&b, " (+%d FCFA)", opt.PriceDelta)
		} else if opt.PriceDelta < 0 {
			fmt.Fprintf(&b, " (%d FCFA)", opt.PriceDelta)
		}
		if i < len(v.Options)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func wantsHuman(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range handoverPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func wantsCancel(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range cancelPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func mediaPlaceholder(media string) string {
	switch media {
	case "image":
		return "[photo reçue]"
	case "audio":
		return "[note vocale reçue]"
	case "video":
		return "[vidéo reçue]"
	default:
		return "[pièce jointe reçue]"
	}
}
