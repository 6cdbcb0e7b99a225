// Package dispatch maps resolved intents to business-collaborator calls
// and produces tagged Action results for the composer and renderer.
package dispatch

import "github.com/Sdiabate1337/djula-com-sub000/internal/commerce"

// ActionType tags an Action variant. The renderer and composer switch
// over this tag; adding a value is a compile-visible change.
type ActionType string

// Action tags.
const (
	ActionShowProducts       ActionType = "SHOW_PRODUCTS"
	ActionShowProduct        ActionType = "SHOW_PRODUCT"
	ActionShowSimilar        ActionType = "SHOW_SIMILAR"
	ActionShowCategories     ActionType = "SHOW_CATEGORIES"
	ActionNoResults          ActionType = "NO_RESULTS"
	ActionRecommendations    ActionType = "RECOMMENDATIONS"
	ActionOrderCreated       ActionType = "ORDER_CREATED"
	ActionCartUpdated        ActionType = "CART_UPDATED"
	ActionOrderSummary       ActionType = "ORDER_SUMMARY"
	ActionOrderStatus        ActionType = "ORDER_STATUS"
	ActionOrderCancelled     ActionType = "ORDER_CANCELLED"
	ActionOrderNotFound      ActionType = "ORDER_NOT_FOUND"
	ActionShowPaymentMethods ActionType = "SHOW_PAYMENT_METHODS"
	ActionPaymentInitiated   ActionType = "PAYMENT_INITIATED"
	ActionPaymentConfirmed   ActionType = "PAYMENT_CONFIRMED"
	ActionTicketCreated      ActionType = "TICKET_CREATED"
	ActionSupportEscalated   ActionType = "SUPPORT_ESCALATED"
	ActionGreeting           ActionType = "GREETING"
	ActionSuggestions        ActionType = "SUGGESTIONS"
	ActionAskClarification   ActionType = "ASK_CLARIFICATION"
	ActionFallback           ActionType = "FALLBACK"
	ActionError              ActionType = "ERROR"
)

// Action is the tagged result of one business operation. Exactly the
// fields matching the Type tag are populated; the rest stay zero.
type Action struct {
	Type ActionType

	Products    []commerce.Product
	Product     *commerce.Product
	Categories  []string
	Order       *commerce.Order
	Methods     []commerce.PaymentMethod
	Transaction *commerce.PaymentTransaction
	Ticket      *commerce.Ticket
	Suggestions []string

	// ErrMessage is set for ActionError: a short operator-facing
	// description of the collaborator failure.
	ErrMessage string
}

// Suggestion is one quick-reply option offered to the customer. ID is an
// interactive reply id the deterministic intent path recognizes.
type Suggestion struct {
	ID    string
	Label string
}

// errorAction wraps a collaborator failure so the turn can continue.
func errorAction(op string, err error) Action {
	return Action{Type: ActionError, ErrMessage: op + ": " + err.Error()}
}

// HasType reports whether any action in actions carries the given tag.
func HasType(actions []Action, t ActionType) bool {
	for _, a := range actions {
		if a.Type == t {
			return true
		}
	}
	return false
}
