// Package conversation manages per-customer conversation context and
// session state with a TTL cache in front of the durable store. Context
// reads are cache-first with write-invalidate; state writes are cached
// write-back so the next turn sees them without a store round trip.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sdiabate1337/djula-com-sub000/internal/cache"
	"github.com/Sdiabate1337/djula-com-sub000/internal/session"
	"github.com/Sdiabate1337/djula-com-sub000/internal/store"
	"github.com/Sdiabate1337/djula-com-sub000/pkg/message"
)

// DefaultHistoryLimit bounds how many messages a rebuilt context carries.
const DefaultHistoryLimit = 20

// Context is the conversational context one turn runs against.
type Context struct {
	CustomerID string
	Messages   []message.Message
	LastIntent *store.IntentRecord
}

// Manager is the cache-fronted access layer over the durable store.
type Manager struct {
	store        store.Store
	contexts     *cache.TTLCache[Context]
	states       *cache.TTLCache[session.State]
	historyLimit int
	logger       *slog.Logger
	now          func() time.Time
}

// Options tunes a Manager. Zero values fall back to defaults.
type Options struct {
	CacheTTL     time.Duration
	HistoryLimit int
	Logger       *slog.Logger
}

// NewManager builds a Manager over st.
func NewManager(st store.Store, opts Options) *Manager {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:        st,
		contexts:     cache.New[Context](ttl),
		states:       cache.New[session.State](ttl),
		historyLimit: limit,
		logger:       logger.With("component", "conversation"),
		now:          time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
	m.contexts.SetClock(now)
	m.states.SetClock(now)
}

// Context returns the customer's conversation context, rebuilding it from
// the store on a cache miss.
func (m *Manager) Context(ctx context.Context, customerID string) (Context, error) {
	if c, ok := m.contexts.Get(customerID); ok {
		return c, nil
	}

	msgs, err := m.store.RecentMessages(ctx, customerID, m.historyLimit)
	if err != nil {
		return Context{}, fmt.Errorf("conversation: load history: %w", err)
	}

	c := Context{CustomerID: customerID, Messages: msgs}
	rec, found, err := m.store.LastIntent(ctx, customerID)
	if err != nil {
		return Context{}, fmt.Errorf("conversation: load last intent: %w", err)
	}
	if found {
		c.LastIntent = &rec
	}

	m.contexts.Set(customerID, c)
	return c, nil
}

// State returns the customer's session state. A customer with no stored
// state gets the default new-session state, persisted right away so a
// crash before the first update still leaves a readable session.
func (m *Manager) State(ctx context.Context, customerID string) (session.State, error) {
	if st, ok := m.states.Get(customerID); ok {
		return st, nil
	}

	st, found, err := m.store.State(ctx, customerID)
	if err != nil {
		return session.State{}, fmt.Errorf("conversation: load state: %w", err)
	}
	if !found {
		st = session.Default(m.now())
		if err := m.store.SaveState(ctx, customerID, st); err != nil {
			return session.State{}, fmt.Errorf("conversation: seed state: %w", err)
		}
	}

	m.states.Set(customerID, st)
	return st, nil
}

// UpdateState merges upd into the customer's current state, persists the
// result and writes it back to the cache.
func (m *Manager) UpdateState(ctx context.Context, customerID string, upd session.Update) (session.State, error) {
	cur, err := m.State(ctx, customerID)
	if err != nil {
		return session.State{}, err
	}

	next, err := session.Merge(cur, upd, m.now())
	if err != nil {
		return session.State{}, fmt.Errorf("conversation: merge state: %w", err)
	}

	if err := m.store.SaveState(ctx, customerID, next); err != nil {
		return session.State{}, fmt.Errorf("conversation: save state: %w", err)
	}

	m.states.Set(customerID, next)
	return next, nil
}

// ContextUpdate carries the durable outcome of one turn.
type ContextUpdate struct {
	Intent *store.IntentRecord
	State  *session.Update
}

// UpdateContext records a turn's resolved intent and folds its state
// patch through UpdateState. Either part may be nil.
func (m *Manager) UpdateContext(ctx context.Context, customerID string, upd ContextUpdate) error {
	if upd.Intent != nil {
		if err := m.LogIntent(ctx, customerID, *upd.Intent); err != nil {
			return err
		}
	}
	if upd.State != nil {
		if _, err := m.UpdateState(ctx, customerID, *upd.State); err != nil {
			return err
		}
	}
	return nil
}

// AddMessages appends the turn's messages to the history and invalidates
// the cached context so the next read rebuilds from the store.
func (m *Manager) AddMessages(ctx context.Context, customerID string, msgs ...message.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := m.store.AppendMessages(ctx, customerID, msgs); err != nil {
		return fmt.Errorf("conversation: append messages: %w", err)
	}
	m.contexts.Invalidate(customerID)
	return nil
}

// LogIntent records a resolved intent and invalidates the cached context.
func (m *Manager) LogIntent(ctx context.Context, customerID string, rec store.IntentRecord) error {
	if rec.At.IsZero() {
		rec.At = m.now()
	}
	if err := m.store.LogIntent(ctx, customerID, rec); err != nil {
		return fmt.Errorf("conversation: log intent: %w", err)
	}
	m.contexts.Invalidate(customerID)
	return nil
}

// AbandonIdle moves every session untouched for olderThan into the
// abandoned phase. Returns how many sessions were abandoned. A rejected
// transition (the session moved between the scan and the update) is
// skipped, not fatal.
func (m *Manager) AbandonIdle(ctx context.Context, olderThan time.Duration) (int, error) {
	ids, err := m.store.IdleCustomers(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("conversation: scan idle sessions: %w", err)
	}

	abandoned := 0
	for _, id := range ids {
		if _, err := m.UpdateState(ctx, id, session.Update{Phase: session.PhaseAbandoned}); err != nil {
			m.logger.Warn("idle session not abandoned", "error", err, "customer_id", id)
			continue
		}
		abandoned++
	}
	return abandoned, nil
}

// Clear removes the customer's history, intent log and state everywhere.
func (m *Manager) Clear(ctx context.Context, customerID string) error {
	if err := m.store.Clear(ctx, customerID); err != nil {
		return fmt.Errorf("conversation: clear: %w", err)
	}
	m.contexts.Invalidate(customerID)
	m.states.Invalidate(customerID)
	return nil
}

// Sweep evicts expired cache entries and returns how many were removed.
// Wired to a periodic job.
func (m *Manager) Sweep() int {
	n := m.contexts.Sweep() + m.states.Sweep()
	if n > 0 {
		m.logger.Debug("cache sweep", "evicted", n)
	}
	return n
}
