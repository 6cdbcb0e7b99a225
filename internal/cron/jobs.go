package cron

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper evicts expired entries and reports how many were removed.
type Sweeper interface {
	Sweep() int
}

// CacheSweepJob evicts expired conversation cache entries.
type CacheSweepJob struct {
	Cache        Sweeper
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/5 * * * *"
}

var _ Job = (*CacheSweepJob)(nil)

func (j *CacheSweepJob) Name() string { return "cache_sweep" }

func (j *CacheSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

func (j *CacheSweepJob) Run(_ context.Context) error {
	if n := j.Cache.Sweep(); n > 0 && j.Logger != nil {
		j.Logger.Info("cron: swept expired cache entries", "count", n)
	}
	return nil
}

// Resetter clears all rate-limit counters.
type Resetter interface {
	Reset()
}

// LimiterResetJob restarts the outbound rate-limit window. The limit is
// "per window", not "per rolling minute": counters drop to zero on every
// tick.
type LimiterResetJob struct {
	Limiter Resetter
}

var _ Job = (*LimiterResetJob)(nil)

func (j *LimiterResetJob) Name() string { return "limiter_reset" }

// Schedule fires every minute, the length of the send window.
func (j *LimiterResetJob) Schedule() string { return "* * * * *" }

func (j *LimiterResetJob) Run(_ context.Context) error {
	j.Limiter.Reset()
	return nil
}

// DeliveryPruner removes old delivery-dedup records.
type DeliveryPruner interface {
	PruneDeliveries(ctx context.Context, olderThan time.Duration) (int, error)
}

// DeliveryPruneJob bounds the dedup table. Retention only needs to cover
// the channel's retry horizon.
type DeliveryPruneJob struct {
	Store     DeliveryPruner
	Retention time.Duration
	Logger    *slog.Logger
}

var _ Job = (*DeliveryPruneJob)(nil)

func (j *DeliveryPruneJob) Name() string { return "delivery_prune" }

func (j *DeliveryPruneJob) Schedule() string { return "0 * * * *" }

func (j *DeliveryPruneJob) Run(ctx context.Context) error {
	retention := j.Retention
	if retention <= 0 {
		retention = 72 * time.Hour
	}
	n, err := j.Store.PruneDeliveries(ctx, retention)
	if err != nil {
		return err
	}
	if n > 0 && j.Logger != nil {
		j.Logger.Info("cron: pruned delivery records", "count", n)
	}
	return nil
}

// SessionAbandoner moves idle sessions into the abandoned phase.
type SessionAbandoner interface {
	AbandonIdle(ctx context.Context, olderThan time.Duration) (int, error)
}

// SessionAbandonJob closes out conversations the customer walked away
// from, so a return visit starts a fresh flow instead of resuming a
// stale order.
type SessionAbandonJob struct {
	Sessions  SessionAbandoner
	IdleAfter time.Duration // <= 0 uses 24h
	Logger    *slog.Logger
}

var _ Job = (*SessionAbandonJob)(nil)

func (j *SessionAbandonJob) Name() string { return "session_abandon" }

func (j *SessionAbandonJob) Schedule() string { return "30 * * * *" }

func (j *SessionAbandonJob) Run(ctx context.Context) error {
	idle := j.IdleAfter
	if idle <= 0 {
		idle = 24 * time.Hour
	}
	n, err := j.Sessions.AbandonIdle(ctx, idle)
	if err != nil {
		return err
	}
	if n > 0 && j.Logger != nil {
		j.Logger.Info("cron: abandoned idle sessions", "count", n)
	}
	return nil
}

// LaneMarker flags idle serialization lanes for cleanup.
type LaneMarker interface {
	MarkLanesStale()
}

// LaneCleanupJob keeps the per-customer lane map from growing without
// bound.
type LaneCleanupJob struct {
	Engine LaneMarker
}

var _ Job = (*LaneCleanupJob)(nil)

func (j *LaneCleanupJob) Name() string { return "lane_cleanup" }

func (j *LaneCleanupJob) Schedule() string { return "*/10 * * * *" }

func (j *LaneCleanupJob) Run(_ context.Context) error {
	j.Engine.MarkLanesStale()
	return nil
}
