// Package intent turns one inbound message into a structured Intent,
// either by deterministic interactive-id parsing or by model-assisted
// classification against a fixed taxonomy.
package intent

// Type enumerates the intent taxonomy. Dispatch switches over this type
// exhaustively; adding a value is a compile-visible change.
type Type string

// The taxonomy.
const (
	TypeCatalogBrowse   Type = "CATALOG_BROWSE"
	TypeProductQuery    Type = "PRODUCT_QUERY"
	TypeOrderPlacement  Type = "ORDER_PLACEMENT"
	TypeOrderStatus     Type = "ORDER_STATUS"
	TypePayment         Type = "PAYMENT"
	TypeCustomerSupport Type = "CUSTOMER_SUPPORT"
	TypeUnknown         Type = "UNKNOWN"
)

// All lists every taxonomy value, in prompt order.
var All = []Type{
	TypeCatalogBrowse,
	TypeProductQuery,
	TypeOrderPlacement,
	TypeOrderStatus,
	TypePayment,
	TypeCustomerSupport,
	TypeUnknown,
}

// Valid reports whether t is in the taxonomy.
func (t Type) Valid() bool {
	for _, v := range All {
		if t == v {
			return true
		}
	}
	return false
}

// Flags carries conversational context captured at resolution time.
type Flags struct {
	PreviousIntentType Type `json:"previous_intent_type,omitempty"`
	OrderInProgress    bool `json:"order_in_progress,omitempty"`
	ProductDiscussion  bool `json:"product_discussion,omitempty"`
}

// Intent is the structured interpretation of one inbound message.
type Intent struct {
	Type       Type              `json:"type"`
	Confidence float64           `json:"confidence"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Flags      Flags             `json:"flags,omitempty"`
}

// Param returns a parameter value, or "" when absent.
func (i Intent) Param(key string) string {
	return i.Parameters[key]
}

// unknown builds the degraded fallback intent.
func unknown(confidence float64, flags Flags) Intent {
	return Intent{Type: TypeUnknown, Confidence: confidence, Flags: flags}
}
