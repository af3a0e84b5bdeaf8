package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
)

// Gemini is the production oracle backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{client: client, model: modelName}, nil
}

func (g *Gemini) ClassifyIntent(ctx context.Context, text string, catalog []model.Product) (*Classification, error) {
	prompt := buildClassifyPrompt(text, catalog)

	result, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini classify: %w", err)
	}

	var c Classification
	if err := json.Unmarshal([]byte(result.Text()), &c); err != nil {
		return nil, fmt.Errorf("parse classification: %w", err)
	}
	if c.Intent != model.IntentBuy {
		c.Intent = model.IntentChat
	}
	if c.Quantity <= 0 {
		c.Quantity = 1
	}
	return &c, nil
}

func (g *Gemini) GenerateReply(ctx context.Context, text string, rc ReplyContext) (string, error) {
	prompt := buildReplyPrompt(text, rc)

	result, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini reply: %w", err)
	}

	reply := strings.TrimSpace(result.Text())
	if reply == "" {
		return "", fmt.Errorf("gemini reply: empty response")
	}
	return reply, nil
}

func buildClassifyPrompt(text string, catalog []model.Product) string {
	var b strings.Builder
	b.WriteString("Tu analyses le message d'un client d'une boutique en ligne.\n")
	b.WriteString("Produits disponibles:\n")
	for _, p := range catalog {
		fmt.Fprintf(&b, "- %s (%d FCFA)\n", p.Name, p.Price)
	}
	b.WriteString("\nMessage du client: ")
	b.WriteString(text)
	b.WriteString("\n\nReponds uniquement en JSON: ")
	b.WriteString(`{"intent": "BUY" ou "CHAT", "productName": "nom exact du produit si BUY", "quantity": nombre}`)
	return b.String()
}

func buildReplyPrompt(text string, rc ReplyContext) string {
	var b strings.Builder
	shopName := "la boutique"
	tone := "chaleureux et professionnel"
	if rc.Settings != nil {
		if rc.Settings.ShopName != "" {
			shopName = rc.Settings.ShopName
		}
		if rc.Settings.Tone != "" {
			tone = rc.Settings.Tone
		}
	}
	fmt.Fprintf(&b, "Tu es le vendeur de %s sur WhatsApp. Ton ton est %s. Reponds court, en francais.\n", shopName, tone)
	if rc.Settings != nil && rc.Settings.PaymentInfo != "" {
		fmt.Fprintf(&b, "Infos paiement: %s\n", rc.Settings.PaymentInfo)
	}
	if len(rc.Inventory) > 0 {
		b.WriteString("Produits en vente:\n")
		for _, p := range rc.Inventory {
			fmt.Fprintf(&b, "- %s: %d FCFA (stock %d)\n", p.Name, p.Price, p.Stock)
		}
	}
	if len(rc.History) > 0 {
		b.WriteString("\nConversation recente:\n")
		for _, turn := range rc.History {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Text)
		}
	}
	b.WriteString("\nMessage du client: ")
	b.WriteString(text)
	return b.String()
}
