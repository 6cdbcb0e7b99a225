package intent

import "strings"

// Deterministic interactive-id prefixes, as emitted by the renderer's
// buttons and list rows. A message matching one of these parses locally
// with confidence 1.0 and never touches the network.
const (
	prefixProduct     = "product_"
	prefixAddCart     = "add_cart_"
	prefixBuyNow      = "buy_now_"
	prefixPay         = "pay_"
	prefixFilter      = "filter_"
	prefixTrackOrder  = "track_order_"
	prefixCancelOrder = "cancel_order_"
	prefixSuggestion  = "suggestion_"
)

// suggestionTable maps suggestion_<n> remainders to intent types. Both the
// positional and the named form are recognized.
var suggestionTable = map[string]Type{
	"0":       TypeCatalogBrowse,
	"product": TypeCatalogBrowse,
	"1":       TypeOrderStatus,
	"order":   TypeOrderStatus,
	"2":       TypeCustomerSupport,
	"support": TypeCustomerSupport,
	"payment": TypePayment,
}

// ParseInteractive attempts the deterministic path. The bool is false when
// the content matches no recognized prefix; the caller then falls back to
// model-assisted classification.
func ParseInteractive(content string, flags Flags) (Intent, bool) {
	id := strings.TrimSpace(content)

	exact := func(t Type, params map[string]string) (Intent, bool) {
		return Intent{Type: t, Confidence: 1.0, Parameters: params, Flags: flags}, true
	}

	switch {
	case strings.HasPrefix(id, prefixTrackOrder):
		return exact(TypeOrderStatus, map[string]string{
			"orderId": strings.TrimPrefix(id, prefixTrackOrder),
		})
	case strings.HasPrefix(id, prefixCancelOrder):
		return exact(TypeOrderStatus, map[string]string{
			"orderId": strings.TrimPrefix(id, prefixCancelOrder),
			"action":  "cancel",
		})
	case strings.HasPrefix(id, prefixAddCart):
		return exact(TypeOrderPlacement, map[string]string{
			"productId": strings.TrimPrefix(id, prefixAddCart),
			"action":    "add_to_cart",
		})
	case strings.HasPrefix(id, prefixBuyNow):
		return exact(TypeOrderPlacement, map[string]string{
			"productId": strings.TrimPrefix(id, prefixBuyNow),
			"action":    "buy_now",
		})
	case strings.HasPrefix(id, prefixProduct):
		return exact(TypeProductQuery, map[string]string{
			"productId": strings.TrimPrefix(id, prefixProduct),
		})
	case strings.HasPrefix(id, prefixPay):
		return exact(TypePayment, map[string]string{
			"method": strings.TrimPrefix(id, prefixPay),
		})
	case strings.HasPrefix(id, prefixFilter):
		return exact(TypeCatalogBrowse, map[string]string{
			"category": strings.TrimPrefix(id, prefixFilter),
		})
	case strings.HasPrefix(id, prefixSuggestion):
		rest := strings.TrimPrefix(id, prefixSuggestion)
		if t, ok := suggestionTable[rest]; ok {
			return exact(t, nil)
		}
		return unknown(0.3, flags), true
	}

	return Intent{}, false
}
