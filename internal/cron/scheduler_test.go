package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name     string
	schedule string
}

func (j *stubJob) Name() string              { return j.name }
func (j *stubJob) Schedule() string          { return j.schedule }
func (j *stubJob) Run(context.Context) error { return nil }

func TestRegisterJob_RejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	if err := s.RegisterJob(&stubJob{name: "a", schedule: "* * * * *"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := s.RegisterJob(&stubJob{name: "a", schedule: "* * * * *"}); err == nil {
		t.Fatal("duplicate name should be rejected")
	}
}

func TestStart_RejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	if err := s.RegisterJob(&stubJob{name: "bad", schedule: "not-a-schedule"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Fatal("invalid schedule should fail Start")
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	if err := s.RegisterJob(&stubJob{name: "ok", schedule: "* * * * *"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

type countingSweeper struct{ n int }

func (c *countingSweeper) Sweep() int { c.n++; return 2 }

func TestCacheSweepJob(t *testing.T) {
	t.Parallel()

	sw := &countingSweeper{}
	j := &CacheSweepJob{Cache: sw}
	if j.Schedule() == "" {
		t.Fatal("empty default schedule")
	}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sw.n != 1 {
		t.Fatalf("sweeps = %d, want 1", sw.n)
	}
}

type countingPruner struct {
	got time.Duration
}

func (c *countingPruner) PruneDeliveries(_ context.Context, olderThan time.Duration) (int, error) {
	c.got = olderThan
	return 0, nil
}

func TestDeliveryPruneJob_DefaultRetention(t *testing.T) {
	t.Parallel()

	p := &countingPruner{}
	j := &DeliveryPruneJob{Store: p}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.got != 72*time.Hour {
		t.Fatalf("retention = %v, want 72h default", p.got)
	}
}

type countingAbandoner struct {
	got time.Duration
}

func (c *countingAbandoner) AbandonIdle(_ context.Context, olderThan time.Duration) (int, error) {
	c.got = olderThan
	return 2, nil
}

func TestSessionAbandonJob_DefaultIdleWindow(t *testing.T) {
	t.Parallel()

	a := &countingAbandoner{}
	j := &SessionAbandonJob{Sessions: a}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a.got != 24*time.Hour {
		t.Fatalf("idle window = %v, want 24h default", a.got)
	}

	j.IdleAfter = 6 * time.Hour
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a.got != 6*time.Hour {
		t.Fatalf("idle window = %v, want 6h", a.got)
	}
}
