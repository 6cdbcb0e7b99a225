// Package compose turns dispatched Actions into customer-facing reply
// text. A language model writes the reply when a provider is configured;
// every failure path degrades to a canned localized message so a turn
// always has something to say.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Sdiabate1337/djula-com-sub000/internal/dispatch"
	"github.com/Sdiabate1337/djula-com-sub000/internal/provider"
	"github.com/Sdiabate1337/djula-com-sub000/pkg/message"
)

// historyWindow bounds how much conversation history feeds the prompt.
const historyWindow = 6

// composeTemperature keeps replies warm without drifting from the action
// payloads the prompt pins.
var composeTemperature = 0.7

// Input carries everything the composer may draw on for one reply.
type Input struct {
	CustomerName string
	Language     string
	Actions      []dispatch.Action
	History      []message.Message
}

// Composer writes reply text for a turn.
type Composer struct {
	provider provider.Provider
	logger   *slog.Logger
}

// New builds a Composer. provider may be nil; the composer then always
// answers from templates.
func New(p provider.Provider, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{provider: p, logger: logger.With("component", "compose")}
}

// Compose returns the reply text for the turn. It never returns an
// error: provider failures fall back to a localized template.
func (c *Composer) Compose(ctx context.Context, in Input) string {
	if c.provider == nil {
		return template(in.Language, in.Actions, in.CustomerName)
	}

	resp, err := c.provider.Complete(ctx, provider.CompletionRequest{
		Messages:    c.buildPrompt(in),
		MaxTokens:   300,
		Temperature: &composeTemperature,
	})
	if err != nil {
		c.logger.Warn("reply generation failed, using template", "error", err)
		return template(in.Language, in.Actions, in.CustomerName)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return template(in.Language, in.Actions, in.CustomerName)
	}
	return text
}

func (c *Composer) buildPrompt(in Input) []provider.LLMMessage {
	msgs := make([]provider.LLMMessage, 0, historyWindow+2)
	msgs = append(msgs, provider.LLMMessage{
		Role:    provider.MessageRoleSystem,
		Content: composerSystemPrompt(in.Language),
	})

	history := in.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, m := range history {
		role := provider.MessageRoleUser
		if m.Role == message.RoleAssistant {
			role = provider.MessageRoleAssistant
		}
		msgs = append(msgs, provider.LLMMessage{Role: role, Content: m.Content})
	}

	msgs = append(msgs, provider.LLMMessage{
		Role:    provider.MessageRoleUser,
		Content: "Résultats de l'opération à présenter au client:\n" + summarize(in.Actions),
	})
	return msgs
}

func composerSystemPrompt(lang string) string {
	l := "French"
	if strings.HasPrefix(strings.ToLower(lang), "en") {
		l = "English"
	}
	return "You are the assistant of a small online shop chatting with a customer " +
		"on a messaging app. Write one short, warm reply in " + l + " presenting the " +
		"operation results you are given. Never invent products, prices or order " +
		"numbers. Do not use markdown."
}

// summarize renders the action set as plain lines for the prompt.
func summarize(actions []dispatch.Action) string {
	var b strings.Builder
	for _, a := range actions {
		fmt.Fprintf(&b, "- %s", a.Type)
		switch {
		case a.Product != nil:
			fmt.Fprintf(&b, ": %s (%d %s)", a.Product.Name, a.Product.PriceCents/100, a.Product.Currency)
		case len(a.Products) > 0:
			fmt.Fprintf(&b, ": %d produits", len(a.Products))
		case a.Order != nil:
			fmt.Fprintf(&b, ": commande %s, statut %s", a.Order.ID, a.Order.Status)
		case a.Transaction != nil:
			fmt.Fprintf(&b, ": paiement %s via %s", a.Transaction.Status, a.Transaction.Method)
		case a.Ticket != nil:
			fmt.Fprintf(&b, ": ticket %s", a.Ticket.ID)
		case a.ErrMessage != "":
			b.WriteString(": une erreur interne est survenue")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
