package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sdiabate1337/djula-com-sub000/internal/intent"
	"github.com/Sdiabate1337/djula-com-sub000/internal/session"
	"github.com/Sdiabate1337/djula-com-sub000/internal/store"
	"github.com/Sdiabate1337/djula-com-sub000/pkg/message"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "djula.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_MigrationIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "djula.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	_ = s2.Close()
}

func TestMessages_AppendAndRecent(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var msgs []message.Message
	for i := 0; i < 5; i++ {
		m := message.NewCustomerMessage("msg", now.Add(time.Duration(i)*time.Minute))
		msgs = append(msgs, m)
	}
	msgs[4].Role = message.RoleAssistant
	msgs[4].Metadata = &message.Metadata{IntentType: "CATALOG_BROWSE"}

	if err := s.AppendMessages(ctx, "cust-1", msgs); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}

	got, err := s.RecentMessages(ctx, "cust-1", 3)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if !got[0].Timestamp.Before(got[2].Timestamp) {
		t.Errorf("messages should be chronological: %v then %v", got[0].Timestamp, got[2].Timestamp)
	}
	last := got[2]
	if last.Role != message.RoleAssistant || last.Metadata == nil || last.Metadata.IntentType != "CATALOG_BROWSE" {
		t.Errorf("metadata did not survive persistence: %+v", last)
	}
}

func TestRecentMessages_UnknownCustomerIsEmpty(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	got, err := s.RecentMessages(context.Background(), "nobody", 10)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}

func TestIntentLog(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	ctx := context.Background()

	if _, found, err := s.LastIntent(ctx, "cust-1"); err != nil || found {
		t.Fatalf("LastIntent on empty log: found=%v err=%v", found, err)
	}

	recs := []store.IntentRecord{
		{Type: intent.TypeCatalogBrowse, Confidence: 0.9},
		{Type: intent.TypeProductQuery, Confidence: 1.0, Parameters: map[string]string{"product_id": "p42"}},
	}
	for _, r := range recs {
		if err := s.LogIntent(ctx, "cust-1", r); err != nil {
			t.Fatalf("LogIntent: %v", err)
		}
	}

	got, found, err := s.LastIntent(ctx, "cust-1")
	if err != nil || !found {
		t.Fatalf("LastIntent: found=%v err=%v", found, err)
	}
	if got.Type != intent.TypeProductQuery {
		t.Errorf("type = %s, want PRODUCT_QUERY", got.Type)
	}
	if got.Parameters["product_id"] != "p42" {
		t.Errorf("parameters = %v", got.Parameters)
	}
}

func TestState_SaveAndLoad(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	ctx := context.Background()

	if _, found, err := s.State(ctx, "cust-1"); err != nil || found {
		t.Fatalf("State before save: found=%v err=%v", found, err)
	}

	st := session.State{
		Phase:       session.PhaseOrderInProgress,
		ActiveOrder: &session.OrderRef{ID: "ord-7"},
		Data:        map[string]any{"language": "fr", "last_intent_type": "ORDER_PLACEMENT"},
	}
	if err := s.SaveState(ctx, "cust-1", st); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	got, found, err := s.State(ctx, "cust-1")
	if err != nil || !found {
		t.Fatalf("State: found=%v err=%v", found, err)
	}
	if got.Phase != session.PhaseOrderInProgress {
		t.Errorf("phase = %s", got.Phase)
	}
	if got.ActiveOrder == nil || got.ActiveOrder.ID != "ord-7" {
		t.Errorf("active order = %+v", got.ActiveOrder)
	}
	if got.Data["language"] != "fr" {
		t.Errorf("data = %v", got.Data)
	}

	// Replacing drops the previous order reference.
	st.ActiveOrder = nil
	st.Phase = session.PhaseCompleted
	if err := s.SaveState(ctx, "cust-1", st); err != nil {
		t.Fatalf("SaveState replace: %v", err)
	}
	got, _, err = s.State(ctx, "cust-1")
	if err != nil {
		t.Fatalf("State after replace: %v", err)
	}
	if got.Phase != session.PhaseCompleted || got.ActiveOrder != nil {
		t.Errorf("replaced state = %+v", got)
	}
}

func TestMarkDelivery_Dedup(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	ctx := context.Background()

	first, err := s.MarkDelivery(ctx, "wamid.abc")
	if err != nil {
		t.Fatalf("MarkDelivery: %v", err)
	}
	if !first {
		t.Fatal("first delivery should be new")
	}

	replay, err := s.MarkDelivery(ctx, "wamid.abc")
	if err != nil {
		t.Fatalf("MarkDelivery replay: %v", err)
	}
	if replay {
		t.Fatal("replayed delivery id should not be new")
	}
}

func TestPruneDeliveries(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	ctx := context.Background()

	if _, err := s.MarkDelivery(ctx, "wamid.old"); err != nil {
		t.Fatalf("MarkDelivery: %v", err)
	}

	// Everything just written is newer than the cutoff.
	n, err := s.PruneDeliveries(ctx, time.Hour)
	if err != nil {
		t.Fatalf("PruneDeliveries: %v", err)
	}
	if n != 0 {
		t.Fatalf("pruned %d, want 0", n)
	}

	// A zero retention removes all records.
	n, err = s.PruneDeliveries(ctx, -time.Second)
	if err != nil {
		t.Fatalf("PruneDeliveries: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
}

func TestIdleCustomers(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	save := func(id string, phase session.Phase) {
		st := session.Default(now)
		st.Phase = phase
		if err := s.SaveState(ctx, id, st); err != nil {
			t.Fatalf("SaveState(%s): %v", id, err)
		}
	}
	backdate := func(id string, age time.Duration) {
		stamp := now.Add(-age).Format(time.RFC3339Nano)
		if _, err := s.db.ExecContext(ctx, "UPDATE states SET updated_at = ? WHERE customer_id = ?", stamp, id); err != nil {
			t.Fatalf("backdate %s: %v", id, err)
		}
	}

	save("stale-active", session.PhaseActive)
	backdate("stale-active", 48*time.Hour)
	save("stale-paying", session.PhasePaymentPending)
	backdate("stale-paying", 48*time.Hour)
	save("stale-completed", session.PhaseCompleted)
	backdate("stale-completed", 48*time.Hour)
	save("fresh-active", session.PhaseActive)

	ids, err := s.IdleCustomers(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("IdleCustomers: %v", err)
	}
	want := []string{"stale-active", "stale-paying"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestClear_RemovesCustomerDataOnly(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"cust-1", "cust-2"} {
		if err := s.AppendMessages(ctx, id, []message.Message{message.NewCustomerMessage("salut", now)}); err != nil {
			t.Fatalf("AppendMessages: %v", err)
		}
		if err := s.SaveState(ctx, id, session.Default(now)); err != nil {
			t.Fatalf("SaveState: %v", err)
		}
	}

	if err := s.Clear(ctx, "cust-1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if got, _ := s.RecentMessages(ctx, "cust-1", 10); len(got) != 0 {
		t.Errorf("cust-1 messages remain: %d", len(got))
	}
	if _, found, _ := s.State(ctx, "cust-1"); found {
		t.Error("cust-1 state remains")
	}
	if got, _ := s.RecentMessages(ctx, "cust-2", 10); len(got) != 1 {
		t.Errorf("cust-2 messages = %d, want 1", len(got))
	}
}
