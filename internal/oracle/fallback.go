package oracle

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
)

var buyKeywords = []string{
	"je veux", "je prends", "acheter", "commander", "commande",
	"donne moi", "donnez moi", "i want", "buy",
}

var quantityRe = regexp.MustCompile(`\b(\d+)\b`)

// Fallback is the deterministic offline responder used whenever the
// generative oracle is unavailable or misbehaves.
type Fallback struct{}

func NewFallback() *Fallback {
	return &Fallback{}
}

func (f *Fallback) ClassifyIntent(ctx context.Context, text string, catalog []model.Product) (*Classification, error) {
	lower := strings.ToLower(text)

	matched := ""
	for _, p := range catalog {
		if strings.Contains(lower, strings.ToLower(p.Name)) {
			matched = p.Name
			break
		}
	}

	hasKeyword := false
	for _, kw := range buyKeywords {
		if strings.Contains(lower, kw) {
			hasKeyword = true
			break
		}
	}

	if matched != "" && hasKeyword {
		quantity := 1
		if m := quantityRe.FindString(text); m != "" {
			if q, err := strconv.Atoi(m); err == nil && q > 0 {
				quantity = q
			}
		}
		return &Classification{
			Intent:      model.IntentBuy,
			ProductName: matched,
			Quantity:    quantity,
		}, nil
	}

	return &Classification{Intent: model.IntentChat}, nil
}

func (f *Fallback) GenerateReply(ctx context.Context, text string, rc ReplyContext) (string, error) {
	if rc.Settings != nil && rc.Settings.WelcomeMessage != "" && len(rc.History) <= 1 {
		return rc.Settings.WelcomeMessage, nil
	}

	if len(rc.Inventory) > 0 {
		var b strings.Builder
		b.WriteString("Voici nos produits disponibles :\n")
		for _, p := range rc.Inventory {
			b.WriteString("- " + p.Name + " : " + strconv.FormatInt(p.Price, 10) + " FCFA\n")
		}
		b.WriteString("Dites-moi ce qui vous interesse !")
		return b.String(), nil
	}

	return "Merci pour votre message ! Un conseiller vous repondra tres vite.", nil
}

// Resilient delegates to a primary oracle and falls back to the
// deterministic responder on any failure. Its methods never return a
// non-nil error, which is the contract the state machine relies on.
type Resilient struct {
	primary  Oracle
	fallback *Fallback
}

// NewResilient wraps primary with the offline fallback. primary may be
// nil when no API key is configured.
func NewResilient(primary Oracle) *Resilient {
	return &Resilient{primary: primary, fallback: NewFallback()}
}

func (r *Resilient) ClassifyIntent(ctx context.Context, text string, catalog []model.Product) (*Classification, error) {
	if r.primary != nil {
		c, err := r.primary.ClassifyIntent(ctx, text, catalog)
		if err == nil {
			return c, nil
		}
		log.Warn().Err(err).Msg("oracle classification failed, using fallback")
	}
	return r.fallback.ClassifyIntent(ctx, text, catalog)
}

func (r *Resilient) GenerateReply(ctx context.Context, text string, rc ReplyContext) (string, error) {
	if r.primary != nil {
		reply, err := r.primary.GenerateReply(ctx, text, rc)
		if err == nil {
			return reply, nil
		}
		log.Warn().Err(err).Msg("oracle reply failed, using fallback")
	}
	return r.fallback.GenerateReply(ctx, text, rc)
}
