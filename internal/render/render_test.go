package render

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Sdiabate1337/djula-com-sub000/internal/commerce"
	"github.com/Sdiabate1337/djula-com-sub000/internal/dispatch"
	"github.com/Sdiabate1337/djula-com-sub000/internal/wa"
)

func products(n int) []commerce.Product {
	out := make([]commerce.Product, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, commerce.Product{
			ID:         fmt.Sprintf("p%d", i),
			Name:       fmt.Sprintf("Produit %d", i),
			PriceCents: int64(1000 * (i + 1)),
			Currency:   "XOF",
			Category:   fmt.Sprintf("cat%d", i%4),
			ImageURL:   fmt.Sprintf("https://img.example/%d.jpg", i),
		})
	}
	return out
}

func TestRender_SmallCatalogBecomesList(t *testing.T) {
	t.Parallel()

	msgs := Render("221700000001", "Voici nos produits", nil, []dispatch.Action{
		{Type: dispatch.ActionShowProducts, Products: products(7)},
	})

	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	m := msgs[0]
	if m.Type != wa.TypeInteractive || m.Interactive == nil || m.Interactive.Type != "list" {
		t.Fatalf("want interactive list, got %+v", m)
	}
	rows := m.Interactive.Action.Sections[0].Rows
	if len(rows) != 7 {
		t.Fatalf("rows = %d, want 7", len(rows))
	}
	if rows[0].ID != "product_p0" {
		t.Errorf("row id = %q, want product_p0", rows[0].ID)
	}
	if !strings.Contains(rows[0].Description, "10 XOF") {
		t.Errorf("row description %q should carry the price", rows[0].Description)
	}
}

func TestRender_ListRowTextTruncated(t *testing.T) {
	t.Parallel()

	long := commerce.Product{
		ID:          "p1",
		Name:        strings.Repeat("a", 40),
		Description: strings.Repeat("b", 100),
		PriceCents:  500000,
		Currency:    "XOF",
	}

	msgs := Render("221700000001", "ok", nil, []dispatch.Action{
		{Type: dispatch.ActionShowProducts, Products: []commerce.Product{long}},
	})

	row := msgs[0].Interactive.Action.Sections[0].Rows[0]
	if n := utf8.RuneCountInString(row.Title); n > wa.MaxRowTitleLen {
		t.Errorf("title length = %d, want <= %d", n, wa.MaxRowTitleLen)
	}
	if n := utf8.RuneCountInString(row.Description); n > wa.MaxRowDescLen {
		t.Errorf("description length = %d, want <= %d", n, wa.MaxRowDescLen)
	}
}

func TestRender_LargeCatalogSplitsIntoMediaAndFilters(t *testing.T) {
	t.Parallel()

	msgs := Render("221700000001", "Beaucoup de choix", nil, []dispatch.Action{
		{Type: dispatch.ActionShowProducts, Products: products(12)},
	})

	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 3 media + 1 filter message", len(msgs))
	}
	for i := 0; i < 3; i++ {
		if msgs[i].Type != wa.TypeImage || msgs[i].Image == nil {
			t.Errorf("message %d: want image card, got type %q", i, msgs[i].Type)
		}
	}
	last := msgs[3]
	if last.Interactive == nil || last.Interactive.Type != "button" {
		t.Fatalf("last message should carry filter buttons, got %+v", last)
	}
	buttons := last.Interactive.Action.Buttons
	if len(buttons) == 0 || len(buttons) > wa.MaxButtons {
		t.Fatalf("filter buttons = %d, want 1..%d", len(buttons), wa.MaxButtons)
	}
	for _, b := range buttons {
		if !strings.HasPrefix(b.Reply.ID, "filter_") {
			t.Errorf("button id %q should be a filter id", b.Reply.ID)
		}
	}
}

func TestRender_PaymentMethodsPartitioned(t *testing.T) {
	t.Parallel()

	methods := []commerce.PaymentMethod{
		{ID: "om", Name: "Orange Money", Kind: commerce.KindMobileMoney},
		{ID: "wave", Name: "Wave", Kind: commerce.KindDigitalWallet},
		{ID: "mtn", Name: "MTN MoMo", Kind: commerce.KindMobileMoney},
		{ID: "moov", Name: "Moov Money", Kind: commerce.KindMobileMoney},
		{ID: "free", Name: "Free Money", Kind: commerce.KindMobileMoney},
		{ID: "card", Name: "Carte bancaire", Kind: commerce.KindCard},
		{ID: "bank", Name: "Virement", Kind: commerce.KindBankTransfer},
		{ID: "cod", Name: "Paiement livraison", Kind: commerce.KindCashOnDeliver},
		{ID: "card2", Name: "Carte prépayée", Kind: commerce.KindCard},
	}

	msgs := Render("221700000001", "Comment souhaitez-vous payer ?", nil, []dispatch.Action{
		{Type: dispatch.ActionShowPaymentMethods, Methods: methods},
	})

	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want primary + secondary", len(msgs))
	}

	primary := msgs[0].Interactive
	if primary.Type != "button" || len(primary.Action.Buttons) != wa.MaxButtons {
		t.Fatalf("primary group: want %d buttons, got %+v", wa.MaxButtons, primary)
	}
	if primary.Action.Buttons[0].Reply.ID != "pay_om" {
		t.Errorf("first primary button = %q, want pay_om", primary.Action.Buttons[0].Reply.ID)
	}

	secondary := msgs[1].Interactive
	if secondary.Type != "list" {
		t.Fatalf("secondary group of 4 should render as a list, got %q", secondary.Type)
	}
	if got := len(secondary.Action.Sections[0].Rows); got != 4 {
		t.Errorf("secondary rows = %d, want 4", got)
	}
}

func TestRender_ProductDetailWithSimilarBlock(t *testing.T) {
	t.Parallel()

	p := commerce.Product{ID: "p42", Name: "Sac en cuir", PriceCents: 2500000, Currency: "XOF"}
	msgs := Render("221700000001", "Le sac en cuir coûte 25000 XOF.", nil, []dispatch.Action{
		{Type: dispatch.ActionShowProduct, Product: &p},
		{Type: dispatch.ActionShowSimilar, Products: products(4)},
	})

	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want detail + similar", len(msgs))
	}

	detail := msgs[0].Interactive
	if detail == nil || detail.Type != "button" {
		t.Fatalf("want detail button message, got %+v", msgs[0])
	}
	ids := []string{detail.Action.Buttons[0].Reply.ID, detail.Action.Buttons[1].Reply.ID}
	if ids[0] != "add_cart_p42" || ids[1] != "buy_now_p42" {
		t.Errorf("detail button ids = %v", ids)
	}

	if msgs[1].Interactive == nil || msgs[1].Interactive.Type != "list" {
		t.Errorf("similar block should be a list, got %+v", msgs[1])
	}
}

func TestRender_SuggestionsBecomeButtons(t *testing.T) {
	t.Parallel()

	msgs := Render("221700000001", "Je peux vous aider autrement ?", []dispatch.Suggestion{
		{ID: "suggestion_product", Label: "Voir le catalogue"},
		{ID: "suggestion_order", Label: "Suivre ma commande"},
		{ID: "suggestion_support", Label: "Parler au support"},
		{ID: "suggestion_payment", Label: "Quatrième"},
	}, nil)

	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	buttons := msgs[0].Interactive.Action.Buttons
	if len(buttons) != wa.MaxButtons {
		t.Fatalf("buttons = %d, want capped at %d", len(buttons), wa.MaxButtons)
	}
	if buttons[0].Reply.ID != "suggestion_product" {
		t.Errorf("button id = %q, want suggestion_product", buttons[0].Reply.ID)
	}
}

func TestRender_PlainTextFallback(t *testing.T) {
	t.Parallel()

	msgs := Render("221700000001", "Bonjour !", nil, nil)
	if len(msgs) != 1 || msgs[0].Type != wa.TypeText || msgs[0].Text.Body != "Bonjour !" {
		t.Fatalf("want single text message, got %+v", msgs)
	}
}
