// Package session models per-customer session state: an explicit phase
// machine with a transition table, an optional active order reference, and
// an open sessionData map with defined merge semantics.
package session

import (
	"errors"
	"fmt"
	"time"
)

// Phase is the explicit session lifecycle state. It replaces the boolean
// flag pair (orderInProgress, paymentPending); those flags are derived
// projections, never authoritative.
type Phase string

// Session phases.
const (
	PhaseNew             Phase = "new"
	PhaseActive          Phase = "active"
	PhaseOrderInProgress Phase = "order_in_progress"
	PhasePaymentPending  Phase = "payment_pending"
	PhaseCompleted       Phase = "completed"
	PhaseCancelled       Phase = "cancelled"
	PhaseAbandoned       Phase = "abandoned"
)

// ErrIllegalTransition is returned when a phase change is not permitted by
// the transition table. State is left unchanged on rejection.
var ErrIllegalTransition = errors.New("session: illegal phase transition")

// transitions lists the permitted next phases for each phase. Terminal
// phases loop back to Active so a returning customer starts a fresh flow
// in the same session record.
var transitions = map[Phase][]Phase{
	PhaseNew:             {PhaseActive},
	PhaseActive:          {PhaseOrderInProgress, PhaseCancelled, PhaseAbandoned},
	PhaseOrderInProgress: {PhasePaymentPending, PhaseCancelled, PhaseAbandoned},
	PhasePaymentPending:  {PhaseCompleted, PhaseCancelled, PhaseAbandoned},
	PhaseCompleted:       {PhaseActive},
	PhaseCancelled:       {PhaseActive},
	PhaseAbandoned:       {PhaseActive},
}

// CanTransition reports whether moving from p to next is permitted.
// Staying in the same phase is always allowed.
func (p Phase) CanTransition(next Phase) bool {
	if p == next {
		return true
	}
	for _, allowed := range transitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseNew, PhaseActive, PhaseOrderInProgress, PhasePaymentPending,
		PhaseCompleted, PhaseCancelled, PhaseAbandoned:
		return true
	}
	return false
}

// OrderItem is one line of an in-progress order reference.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderRef points at the customer's in-progress order. A session holds at
// most one.
type OrderRef struct {
	ID     string      `json:"id"`
	Status string      `json:"status"`
	Items  []OrderItem `json:"items,omitempty"`
}

// Well-known sessionData keys. The map is open: callers may add keys, but
// these are always present after Default or Merge.
const (
	KeyLastInteraction = "lastInteraction"
	KeyLastIntentType  = "lastIntentType"
	KeyOrderInProgress = "orderInProgress"
	KeyPaymentPending  = "paymentPending"
	KeyLanguage        = "language"
)

// State is the per-customer session state.
type State struct {
	Phase       Phase          `json:"phase"`
	ActiveOrder *OrderRef      `json:"active_order,omitempty"`
	Data        map[string]any `json:"data"`
}

// Default returns the state seeded on first contact from a new customer.
func Default(now time.Time) State {
	return State{
		Phase: PhaseNew,
		Data: map[string]any{
			KeyLastInteraction: now.UTC().Format(time.RFC3339),
			KeyLastIntentType:  "",
			KeyOrderInProgress: false,
			KeyPaymentPending:  false,
		},
	}
}

// Update describes a partial state change.
type Update struct {
	// Phase, if non-empty, requests a phase transition validated against
	// the transition table.
	Phase Phase

	// ActiveOrder, if non-nil, replaces the current order reference
	// wholesale. Use ClearOrder to drop it.
	ActiveOrder *OrderRef
	ClearOrder  bool

	// Data is merged into the current sessionData key-by-key; values
	// replace existing keys, untouched keys are preserved.
	Data map[string]any
}

// Merge applies upd to cur and returns the merged state. The input state
// is not mutated. A phase change that the transition table rejects returns
// ErrIllegalTransition and the original state.
func Merge(cur State, upd Update, now time.Time) (State, error) {
	next := cur
	next.Data = make(map[string]any, len(cur.Data)+len(upd.Data))
	for k, v := range cur.Data {
		next.Data[k] = v
	}

	if upd.Phase != "" {
		if !upd.Phase.Valid() {
			return cur, fmt.Errorf("%w: unknown phase %q", ErrIllegalTransition, upd.Phase)
		}
		if !cur.Phase.CanTransition(upd.Phase) {
			return cur, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, cur.Phase, upd.Phase)
		}
		next.Phase = upd.Phase
	}

	switch {
	case upd.ClearOrder:
		next.ActiveOrder = nil
	case upd.ActiveOrder != nil:
		ref := *upd.ActiveOrder
		next.ActiveOrder = &ref
	}

	for k, v := range upd.Data {
		next.Data[k] = v
	}

	// Derived projections of the phase, kept for sessionData consumers.
	next.Data[KeyOrderInProgress] = next.Phase == PhaseOrderInProgress
	next.Data[KeyPaymentPending] = next.Phase == PhasePaymentPending
	next.Data[KeyLastInteraction] = now.UTC().Format(time.RFC3339)

	return next, nil
}

// Language returns the customer's preferred language, or fallback when the
// session carries none.
func (s State) Language(fallback string) string {
	if v, ok := s.Data[KeyLanguage].(string); ok && v != "" {
		return v
	}
	return fallback
}
