// Package store defines the durable persistence contract behind the
// conversation caches: message history, the intent log, session state and
// webhook delivery dedup.
package store

import (
	"context"
	"time"

	"github.com/Sdiabate1337/djula-com-sub000/internal/intent"
	"github.com/Sdiabate1337/djula-com-sub000/internal/session"
	"github.com/Sdiabate1337/djula-com-sub000/pkg/message"
)

// IntentRecord is one resolved intent in a customer's log.
type IntentRecord struct {
	Type       intent.Type
	Confidence float64
	Parameters map[string]string
	At         time.Time
}

// Store is the durable backing for conversation data. Implementations
// must be safe for concurrent use.
type Store interface {
	// AppendMessages appends msgs to the customer's history in order.
	AppendMessages(ctx context.Context, customerID string, msgs []message.Message) error

	// RecentMessages returns up to n messages in chronological order.
	RecentMessages(ctx context.Context, customerID string, n int) ([]message.Message, error)

	// LogIntent appends one record to the customer's intent log.
	LogIntent(ctx context.Context, customerID string, rec IntentRecord) error

	// LastIntent returns the most recent intent record. found is false
	// when the customer has no intent history.
	LastIntent(ctx context.Context, customerID string) (rec IntentRecord, found bool, err error)

	// State loads the customer's session state. found is false when no
	// state has been saved yet.
	State(ctx context.Context, customerID string) (st session.State, found bool, err error)

	// SaveState persists the customer's session state, replacing any
	// previous one.
	SaveState(ctx context.Context, customerID string, st session.State) error

	// MarkDelivery records a webhook delivery id. It returns true the
	// first time an id is seen and false on replays.
	MarkDelivery(ctx context.Context, deliveryID string) (bool, error)

	// PruneDeliveries removes delivery records older than olderThan and
	// returns how many were removed.
	PruneDeliveries(ctx context.Context, olderThan time.Duration) (int, error)

	// IdleCustomers returns the customers whose session is in a phase
	// that can be abandoned and has not been touched for olderThan.
	IdleCustomers(ctx context.Context, olderThan time.Duration) ([]string, error)

	// Clear removes all data for a customer: history, intent log and
	// state.
	Clear(ctx context.Context, customerID string) error
}
