// Package render turns a composed reply and its Actions into one or more
// channel-formatted outbound messages, honoring the channel's interactive
// limits: at most 3 buttons per message and 10 rows per list.
package render

import (
	"fmt"

	"github.com/Sdiabate1337/djula-com-sub000/internal/commerce"
	"github.com/Sdiabate1337/djula-com-sub000/internal/dispatch"
	"github.com/Sdiabate1337/djula-com-sub000/internal/wa"
)

// mediaPreviewCount is how many products are sent individually when a
// list exceeds the channel's row limit.
const mediaPreviewCount = 3

// Render selects a presentation strategy for the turn's reply. It always
// returns at least one message.
func Render(to, text string, suggestions []dispatch.Suggestion, actions []dispatch.Action) []wa.OutboundPayload {
	if a := find(actions, dispatch.ActionShowPaymentMethods); a != nil {
		return paymentMethods(to, text, a.Methods)
	}

	if a := findProducts(actions); a != nil {
		if len(a.Products) > wa.MaxListRows {
			return largeCatalog(to, text, a.Products)
		}
		return []wa.OutboundPayload{productList(to, text, "Voir les produits", a.Products)}
	}

	if a := find(actions, dispatch.ActionShowProduct); a != nil {
		return productDetail(to, text, a, find(actions, dispatch.ActionShowSimilar))
	}

	if a := find(actions, dispatch.ActionShowCategories); a != nil && len(a.Categories) > 0 {
		return []wa.OutboundPayload{categoryButtons(to, text, a.Categories)}
	}

	if len(suggestions) > 0 {
		return []wa.OutboundPayload{buttonMessage(to, text, suggestionButtons(suggestions))}
	}
	return []wa.OutboundPayload{wa.NewText(to, text)}
}

// find returns the first action with the given tag, or nil.
func find(actions []dispatch.Action, t dispatch.ActionType) *dispatch.Action {
	for i := range actions {
		if actions[i].Type == t {
			return &actions[i]
		}
	}
	return nil
}

// findProducts returns the first product-list action.
func findProducts(actions []dispatch.Action) *dispatch.Action {
	if a := find(actions, dispatch.ActionShowProducts); a != nil {
		return a
	}
	return find(actions, dispatch.ActionRecommendations)
}

// productList renders up to MaxListRows products as one interactive list.
func productList(to, body, opener string, products []commerce.Product) wa.OutboundPayload {
	if len(products) > wa.MaxListRows {
		products = products[:wa.MaxListRows]
	}

	rows := make([]wa.ListRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, wa.ListRow{
			ID:          "product_" + p.ID,
			Title:       wa.Truncate(p.Name, wa.MaxRowTitleLen),
			Description: wa.Truncate(rowDescription(p), wa.MaxRowDescLen),
		})
	}

	return wa.OutboundPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             wa.TypeInteractive,
		Interactive: &wa.InteractiveOut{
			Type: "list",
			Body: wa.InteractiveBody{Text: body},
			Action: wa.InteractiveAction{
				Button:   opener,
				Sections: []wa.ListSection{{Rows: rows}},
			},
		},
	}
}

// largeCatalog sends the first products individually (media + caption)
// then a category-filter button message.
func largeCatalog(to, body string, products []commerce.Product) []wa.OutboundPayload {
	var out []wa.OutboundPayload
	for _, p := range products[:mediaPreviewCount] {
		out = append(out, mediaCard(to, p))
	}

	cats := categories(products)
	if len(cats) > wa.MaxButtons {
		cats = cats[:wa.MaxButtons]
	}
	out = append(out, categoryButtons(to, body, cats))
	return out
}

// mediaCard renders one product as media with a caption, or text when the
// product has no image.
func mediaCard(to string, p commerce.Product) wa.OutboundPayload {
	caption := fmt.Sprintf("%s — %s", p.Name, formatAmount(p.PriceCents, p.Currency))
	if p.ImageURL == "" {
		return wa.NewText(to, caption)
	}
	return wa.OutboundPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             wa.TypeImage,
		Image:            &wa.MediaPayload{Link: p.ImageURL, Caption: caption},
	}
}

func categoryButtons(to, body string, cats []string) wa.OutboundPayload {
	if len(cats) > wa.MaxButtons {
		cats = cats[:wa.MaxButtons]
	}
	buttons := make([]wa.Button, 0, len(cats))
	for _, c := range cats {
		buttons = append(buttons, wa.NewReplyButton("filter_"+c, c))
	}
	return buttonMessage(to, body, buttons)
}

// paymentMethods partitions methods into the mobile-money/digital-wallet
// primary group and a secondary group. Each group renders as at most 3
// buttons; a secondary group larger than 3 falls back to a list.
func paymentMethods(to, body string, methods []commerce.PaymentMethod) []wa.OutboundPayload {
	var primary, secondary []commerce.PaymentMethod
	for _, m := range methods {
		if m.Kind.IsPrimary() {
			primary = append(primary, m)
		} else {
			secondary = append(secondary, m)
		}
	}

	var out []wa.OutboundPayload

	if len(primary) > 0 {
		if len(primary) > wa.MaxButtons {
			primary = primary[:wa.MaxButtons]
		}
		out = append(out, buttonMessage(to, body, methodButtons(primary)))
	}

	if len(secondary) > 0 {
		if len(secondary) <= wa.MaxButtons {
			out = append(out, buttonMessage(to, "Autres moyens de paiement :", methodButtons(secondary)))
		} else {
			rows := make([]wa.ListRow, 0, len(secondary))
			for _, m := range secondary {
				rows = append(rows, wa.ListRow{
					ID:    "pay_" + m.ID,
					Title: wa.Truncate(m.Name, wa.MaxRowTitleLen),
				})
			}
			if len(rows) > wa.MaxListRows {
				rows = rows[:wa.MaxListRows]
			}
			out = append(out, wa.OutboundPayload{
				MessagingProduct: "whatsapp",
				RecipientType:    "individual",
				To:               to,
				Type:             wa.TypeInteractive,
				Interactive: &wa.InteractiveOut{
					Type: "list",
					Body: wa.InteractiveBody{Text: "Autres moyens de paiement :"},
					Action: wa.InteractiveAction{
						Button:   "Choisir",
						Sections: []wa.ListSection{{Rows: rows}},
					},
				},
			})
		}
	}

	if len(out) == 0 {
		out = append(out, wa.NewText(to, body))
	}
	return out
}

// productDetail renders the product reply, followed by a similar-products
// block when present.
func productDetail(to, body string, product, similar *dispatch.Action) []wa.OutboundPayload {
	p := product.Product

	out := []wa.OutboundPayload{buttonMessage(to, body, []wa.Button{
		wa.NewReplyButton("add_cart_"+p.ID, "Ajouter au panier"),
		wa.NewReplyButton("buy_now_"+p.ID, "Acheter"),
	})}

	if similar != nil && len(similar.Products) > 0 {
		out = append(out, productList(to, "Produits similaires :", "Découvrir", similar.Products))
	}
	return out
}

func suggestionButtons(suggestions []dispatch.Suggestion) []wa.Button {
	if len(suggestions) > wa.MaxButtons {
		suggestions = suggestions[:wa.MaxButtons]
	}
	buttons := make([]wa.Button, 0, len(suggestions))
	for _, s := range suggestions {
		buttons = append(buttons, wa.NewReplyButton(s.ID, s.Label))
	}
	return buttons
}

func methodButtons(methods []commerce.PaymentMethod) []wa.Button {
	buttons := make([]wa.Button, 0, len(methods))
	for _, m := range methods {
		buttons = append(buttons, wa.NewReplyButton("pay_"+m.ID, m.Name))
	}
	return buttons
}

func buttonMessage(to, body string, buttons []wa.Button) wa.OutboundPayload {
	if len(buttons) > wa.MaxButtons {
		buttons = buttons[:wa.MaxButtons]
	}
	return wa.OutboundPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             wa.TypeInteractive,
		Interactive: &wa.InteractiveOut{
			Type:   "button",
			Body:   wa.InteractiveBody{Text: body},
			Action: wa.InteractiveAction{Buttons: buttons},
		},
	}
}

// rowDescription is the one-line product summary in a list row.
func rowDescription(p commerce.Product) string {
	if p.Description != "" {
		return fmt.Sprintf("%s · %s", formatAmount(p.PriceCents, p.Currency), p.Description)
	}
	return formatAmount(p.PriceCents, p.Currency)
}

// categories extracts distinct product categories, preserving first-seen
// order.
func categories(products []commerce.Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// formatAmount renders integer cents in a human form. Currencies without
// minor units (CFA franc) print whole amounts.
func formatAmount(cents int64, currency string) string {
	if currency == "" {
		currency = "XOF"
	}
	switch currency {
	case "XOF", "XAF", "GNF":
		return fmt.Sprintf("%d %s", cents/100, currency)
	default:
		return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
	}
}
