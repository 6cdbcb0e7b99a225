package wa

import "testing"

func TestSendLimiter_SoftEnforcement(t *testing.T) {
	t.Parallel()

	l := NewSendLimiter(15, nil)

	var overLimit []string
	l.OnOverLimit = func(id string) { overLimit = append(overLimit, id) }

	for i := 0; i < 15; i++ {
		if over := l.Note("cust-1"); over {
			t.Fatalf("send %d flagged over-limit, limit is 15", i+1)
		}
	}

	// The 16th send is flagged but never blocked.
	if over := l.Note("cust-1"); !over {
		t.Fatal("16th send not flagged over-limit")
	}
	if len(overLimit) != 1 || overLimit[0] != "cust-1" {
		t.Fatalf("OnOverLimit calls = %v, want one for cust-1", overLimit)
	}
	if l.Count("cust-1") != 16 {
		t.Fatalf("Count = %d, want 16 (soft limit still counts)", l.Count("cust-1"))
	}
}

func TestSendLimiter_ResetClearsAllCounters(t *testing.T) {
	t.Parallel()

	l := NewSendLimiter(15, nil)
	for i := 0; i < 16; i++ {
		l.Note("cust-1")
	}
	l.Note("cust-2")

	l.Reset()

	if l.Count("cust-1") != 0 || l.Count("cust-2") != 0 {
		t.Fatalf("counts after reset = %d/%d, want 0/0", l.Count("cust-1"), l.Count("cust-2"))
	}
	if over := l.Note("cust-1"); over {
		t.Fatal("first send after window roll flagged over-limit")
	}
}

func TestSendLimiter_CustomersIndependent(t *testing.T) {
	t.Parallel()

	l := NewSendLimiter(2, nil)
	l.Note("a")
	l.Note("a")
	if over := l.Note("b"); over {
		t.Fatal("customer b flagged by customer a's counter")
	}
	if over := l.Note("a"); !over {
		t.Fatal("customer a not flagged past its own limit")
	}
}
