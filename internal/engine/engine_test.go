package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sdiabate1337/djula-com-sub000/internal/commerce"
	"github.com/Sdiabate1337/djula-com-sub000/internal/compose"
	"github.com/Sdiabate1337/djula-com-sub000/internal/conversation"
	"github.com/Sdiabate1337/djula-com-sub000/internal/dispatch"
	"github.com/Sdiabate1337/djula-com-sub000/internal/session"
	"github.com/Sdiabate1337/djula-com-sub000/internal/store"
	"github.com/Sdiabate1337/djula-com-sub000/internal/wa"
	"github.com/Sdiabate1337/djula-com-sub000/pkg/message"
)

// memStore is an in-memory store.Store for engine tests.
type memStore struct {
	mu         sync.Mutex
	messages   map[string][]message.Message
	intents    map[string][]store.IntentRecord
	states     map[string]session.State
	deliveries map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		messages:   make(map[string][]message.Message),
		intents:    make(map[string][]store.IntentRecord),
		states:     make(map[string]session.State),
		deliveries: make(map[string]bool),
	}
}

func (m *memStore) AppendMessages(_ context.Context, id string, msgs []message.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[id] = append(m.messages[id], msgs...)
	return nil
}

func (m *memStore) RecentMessages(_ context.Context, id string, n int) ([]message.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[id]
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]message.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *memStore) LogIntent(_ context.Context, id string, rec store.IntentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[id] = append(m.intents[id], rec)
	return nil
}

func (m *memStore) LastIntent(_ context.Context, id string) (store.IntentRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.intents[id]
	if len(recs) == 0 {
		return store.IntentRecord{}, false, nil
	}
	return recs[len(recs)-1], true, nil
}

func (m *memStore) State(_ context.Context, id string) (session.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[id]
	return st, ok, nil
}

func (m *memStore) SaveState(_ context.Context, id string, st session.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id] = st
	return nil
}

func (m *memStore) MarkDelivery(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deliveries[id] {
		return false, nil
	}
	m.deliveries[id] = true
	return true, nil
}

func (m *memStore) PruneDeliveries(context.Context, time.Duration) (int, error) { return 0, nil }

func (m *memStore) IdleCustomers(context.Context, time.Duration) ([]string, error) { return nil, nil }

func (m *memStore) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, id)
	delete(m.intents, id)
	delete(m.states, id)
	return nil
}

// recordingSender captures outbound payloads.
type recordingSender struct {
	mu       sync.Mutex
	payloads []wa.OutboundPayload
}

func (r *recordingSender) Send(_ context.Context, p wa.OutboundPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	return nil
}

func (r *recordingSender) sent() []wa.OutboundPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wa.OutboundPayload, len(r.payloads))
	copy(out, r.payloads)
	return out
}

type fakeCatalog struct {
	products map[string]commerce.Product
}

func (f *fakeCatalog) Search(_ context.Context, q commerce.SearchQuery) ([]commerce.Product, error) {
	var out []commerce.Product
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) Get(_ context.Context, id string) (commerce.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return commerce.Product{}, errors.New("product not found")
	}
	return p, nil
}

func newTestEngine(t *testing.T, ms *memStore, sender *recordingSender) *Engine {
	t.Helper()

	catalog := &fakeCatalog{products: map[string]commerce.Product{
		"42": {ID: "42", Name: "Sac en cuir", PriceCents: 2500000, Currency: "XOF", Category: "maroquinerie"},
		"43": {ID: "43", Name: "Ceinture", PriceCents: 800000, Currency: "XOF", Category: "maroquinerie"},
	}}

	e, err := New(Config{
		Conversation: conversation.NewManager(ms, conversation.Options{}),
		Store:        ms,
		Dispatcher:   dispatch.New(dispatch.Config{Catalog: catalog}),
		Composer:     compose.New(nil, nil),
		Sender:       sender,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.pacing = 0
	return e
}

func TestExecute_ProductReplyTurn(t *testing.T) {
	t.Parallel()

	ms := newMemStore()
	sender := &recordingSender{}
	e := newTestEngine(t, ms, sender)

	e.Execute(context.Background(), wa.Event{
		DeliveryID:  "wamid.1",
		CustomerID:  "221700000001",
		Content:     "product_42",
		MessageType: "interactive",
		Timestamp:   time.Now().UTC(),
	})

	sent := sender.sent()
	if len(sent) < 1 {
		t.Fatal("no reply sent")
	}
	detail := sent[0]
	if detail.Interactive == nil || detail.Interactive.Type != "button" {
		t.Fatalf("first message should be the product detail, got %+v", detail)
	}
	if got := detail.Interactive.Action.Buttons[0].Reply.ID; got != "add_cart_42" {
		t.Errorf("detail button = %q, want add_cart_42", got)
	}

	// The exchange is persisted: customer message then assistant reply.
	msgs, _ := ms.RecentMessages(context.Background(), "221700000001", 10)
	if len(msgs) != 2 || msgs[0].Role != message.RoleCustomer || msgs[1].Role != message.RoleAssistant {
		t.Fatalf("persisted history = %+v", msgs)
	}
	if msgs[1].Metadata == nil || msgs[1].Metadata.IntentType != "PRODUCT_QUERY" {
		t.Errorf("assistant metadata = %+v", msgs[1].Metadata)
	}

	rec, found, _ := ms.LastIntent(context.Background(), "221700000001")
	if !found || rec.Confidence != 1.0 {
		t.Errorf("intent log = %+v found=%v", rec, found)
	}

	// First contact activates the session.
	st, _, _ := ms.State(context.Background(), "221700000001")
	if st.Phase != session.PhaseActive {
		t.Errorf("phase = %s, want active", st.Phase)
	}
}

func TestExecute_DuplicateDeliveryIsDropped(t *testing.T) {
	t.Parallel()

	ms := newMemStore()
	sender := &recordingSender{}
	e := newTestEngine(t, ms, sender)

	ev := wa.Event{
		DeliveryID:  "wamid.dup",
		CustomerID:  "221700000002",
		Content:     "product_42",
		MessageType: "interactive",
		Timestamp:   time.Now().UTC(),
	}
	e.Execute(context.Background(), ev)
	firstCount := len(sender.sent())

	e.Execute(context.Background(), ev)
	if got := len(sender.sent()); got != firstCount {
		t.Fatalf("replay produced %d extra sends", got-firstCount)
	}

	msgs, _ := ms.RecentMessages(context.Background(), "221700000002", 10)
	if len(msgs) != 2 {
		t.Fatalf("replay duplicated history: %d messages", len(msgs))
	}
}

func TestSubmit_AfterStopIsRejected(t *testing.T) {
	t.Parallel()

	ms := newMemStore()
	e := newTestEngine(t, ms, &recordingSender{})
	e.Start(context.Background())
	e.Stop(context.Background())

	err := e.Submit(wa.Event{DeliveryID: "wamid.x", CustomerID: "c"})
	if err != ErrEngineStopped {
		t.Fatalf("Submit after stop = %v, want ErrEngineStopped", err)
	}
}

func TestStartStop_ProcessesSubmittedEvents(t *testing.T) {
	t.Parallel()

	ms := newMemStore()
	sender := &recordingSender{}
	e := newTestEngine(t, ms, sender)

	e.Start(context.Background())
	if err := e.Submit(wa.Event{
		DeliveryID:  "wamid.s1",
		CustomerID:  "221700000003",
		Content:     "suggestion_product",
		MessageType: "interactive",
		Timestamp:   time.Now().UTC(),
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	e.Stop(context.Background()) // drains the inbox before returning

	if len(sender.sent()) == 0 {
		t.Fatal("submitted event produced no reply")
	}
}

func TestExecute_UnknownIntentGetsSuggestions(t *testing.T) {
	t.Parallel()

	ms := newMemStore()
	sender := &recordingSender{}
	e := newTestEngine(t, ms, sender)

	e.Execute(context.Background(), wa.Event{
		DeliveryID:  "wamid.u1",
		CustomerID:  "221700000004",
		Content:     "??",
		MessageType: "text",
		Timestamp:   time.Now().UTC(),
	})

	// Unknown input from a stocked shop yields recommendations as a list.
	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("messages = %d, want 1", len(sent))
	}
	last := sent[0]
	if last.Interactive == nil || last.Interactive.Type != "list" {
		t.Fatalf("fallback reply should recommend products, got %+v", last)
	}
	rows := last.Interactive.Action.Sections[0].Rows
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	for _, r := range rows {
		if !strings.HasPrefix(r.ID, "product_") {
			t.Errorf("row id = %q, want product id", r.ID)
		}
	}
}
