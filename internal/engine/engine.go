// Package engine runs conversation turns: it consumes normalized inbound
// events from a worker-pool inbox, serializes turns per customer, and
// drives resolve -> dispatch -> compose -> render -> send, persisting the
// exchange at the end of each turn.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sdiabate1337/djula-com-sub000/internal/compose"
	"github.com/Sdiabate1337/djula-com-sub000/internal/conversation"
	"github.com/Sdiabate1337/djula-com-sub000/internal/dispatch"
	"github.com/Sdiabate1337/djula-com-sub000/internal/intent"
	"github.com/Sdiabate1337/djula-com-sub000/internal/metrics"
	"github.com/Sdiabate1337/djula-com-sub000/internal/render"
	"github.com/Sdiabate1337/djula-com-sub000/internal/session"
	"github.com/Sdiabate1337/djula-com-sub000/internal/store"
	"github.com/Sdiabate1337/djula-com-sub000/internal/wa"
	"github.com/Sdiabate1337/djula-com-sub000/pkg/message"
)

const (
	defaultInboxSize   = 256
	defaultTurnTimeout = 45 * time.Second

	// sendPacing spaces consecutive sends of one turn so multi-message
	// replies arrive in order.
	sendPacing = 300 * time.Millisecond
)

// Config holds the collaborators of an Engine.
type Config struct {
	Conversation *conversation.Manager
	Store        store.Store
	Resolver     *intent.Resolver
	Dispatcher   *dispatch.Dispatcher
	Composer     *compose.Composer
	Sender       wa.Sender
	Limiter      *wa.SendLimiter
	Metrics      *metrics.Metrics

	WorkerCount     int
	InboxSize       int
	TurnTimeout     time.Duration
	DefaultLanguage string
	Logger          *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = DefaultWorkerCount
	}
	if c.InboxSize <= 0 {
		c.InboxSize = defaultInboxSize
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = defaultTurnTimeout
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "fr"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Engine is the turn processor.
type Engine struct {
	config   Config
	inbox    chan envelope
	inboxMu  sync.RWMutex
	lanes    *LaneLock
	pool     *workerPool
	tracer   trace.Tracer
	cancel   context.CancelFunc
	stopOnce sync.Once
	logger   *slog.Logger
	stopped  atomic.Bool
	now      func() time.Time
	pacing   time.Duration
}

// New creates an Engine with the given configuration.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()

	switch {
	case cfg.Conversation == nil:
		return nil, ErrNoConversation
	case cfg.Store == nil:
		return nil, ErrNoStore
	case cfg.Dispatcher == nil:
		return nil, ErrNoDispatcher
	case cfg.Sender == nil:
		return nil, ErrNoSender
	}

	return &Engine{
		config: cfg,
		inbox:  make(chan envelope, cfg.InboxSize),
		lanes:  NewLaneLock(),
		pool:   newWorkerPool(cfg.WorkerCount),
		tracer: otel.Tracer("engine"),
		logger: cfg.Logger.With("component", "engine"),
		now:    time.Now,
		pacing: sendPacing,
	}, nil
}

// Start launches the worker pool and begins processing events.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.inboxMu.Lock()
	if e.stopped.Load() {
		e.inboxMu.Unlock()
		cancel()
		e.logger.Warn("start ignored, engine already stopped")
		return
	}
	e.cancel = cancel
	e.inboxMu.Unlock()

	e.pool.start(ctx, e.inbox, func(ctx context.Context, env envelope) {
		e.Execute(ctx, env.Event)
	})
	e.logger.Info("engine started", "workers", e.config.WorkerCount, "inbox_size", e.config.InboxSize)
}

// Submit enqueues a normalized inbound event for processing. If the inbox
// is full the event is dropped with a warning.
func (e *Engine) Submit(ev wa.Event) error {
	e.inboxMu.RLock()
	defer e.inboxMu.RUnlock()

	if e.stopped.Load() {
		return ErrEngineStopped
	}

	select {
	case e.inbox <- envelope{Event: ev}:
		return nil
	default:
		e.logger.Warn("inbox full, event dropped", "customer_id", ev.CustomerID)
		return ErrInboxFull
	}
}

// Stop gracefully shuts down: closes the inbox, drains workers, cancels
// in-flight turns.
func (e *Engine) Stop(_ context.Context) {
	e.stopOnce.Do(func() {
		e.logger.Info("engine stopping")

		e.inboxMu.Lock()
		e.stopped.Store(true)
		close(e.inbox)
		cancel := e.cancel
		e.inboxMu.Unlock()

		if cancel != nil {
			cancel()
		}

		e.pool.wait()
		e.logger.Info("engine stopped")
	})
}

// MarkLanesStale flags idle per-customer lanes for cleanup. Wired to a
// periodic job.
func (e *Engine) MarkLanesStale() {
	e.lanes.MarkStale()
}

// Execute runs one full turn for the event. Turns for the same customer
// are serialized; the method never panics the worker and always tries to
// leave the customer with a reply.
func (e *Engine) Execute(ctx context.Context, ev wa.Event) {
	if e.config.Metrics != nil {
		e.config.Metrics.TurnsStarted.Inc()
	}
	started := e.now()

	ctx, span := e.tracer.Start(ctx, "turn",
		trace.WithAttributes(
			attribute.String("customer.id", ev.CustomerID),
			attribute.String("message.type", ev.MessageType),
		))
	defer span.End()

	e.lanes.Acquire(ev.CustomerID)
	defer e.lanes.Release(ev.CustomerID)

	ctx, cancel := context.WithTimeout(ctx, e.config.TurnTimeout)
	defer cancel()

	// Webhook deliveries are at-least-once; replays are dropped before any
	// side effect.
	fresh, err := e.config.Store.MarkDelivery(ctx, ev.DeliveryID)
	if err != nil {
		e.logger.Error("delivery dedup check failed", "error", err, "delivery_id", ev.DeliveryID)
	} else if !fresh {
		if e.config.Metrics != nil {
			e.config.Metrics.DuplicateDrops.Inc()
		}
		e.logger.Info("duplicate delivery dropped", "delivery_id", ev.DeliveryID)
		return
	}

	if err := e.turn(ctx, ev); err != nil {
		if e.config.Metrics != nil {
			e.config.Metrics.TurnsFailed.Inc()
		}
		span.RecordError(err)
		e.logger.Error("turn failed", "error", err, "customer_id", ev.CustomerID)
		e.apologize(ctx, ev)
	}

	if e.config.Metrics != nil {
		e.config.Metrics.TurnDuration.Observe(e.now().Sub(started).Seconds())
	}
}

func (e *Engine) turn(ctx context.Context, ev wa.Event) error {
	conv := e.config.Conversation

	cctx, err := conv.Context(ctx, ev.CustomerID)
	if err != nil {
		return err
	}
	st, err := conv.State(ctx, ev.CustomerID)
	if err != nil {
		return err
	}
	lang := st.Language(e.config.DefaultLanguage)

	it := e.resolve(ctx, ev, cctx, st)
	if e.config.Metrics != nil {
		e.config.Metrics.IntentsResolved.WithLabelValues(string(it.Type)).Inc()
	}

	actions := e.config.Dispatcher.Dispatch(ctx, it, ev.CustomerID, st)
	if e.config.Metrics != nil {
		for _, a := range actions {
			e.config.Metrics.ActionsDispatched.WithLabelValues(string(a.Type)).Inc()
		}
	}

	text := e.composeReply(ctx, ev, cctx, st, lang, actions)
	suggestions := compose.SuggestedReplies(lang, actions)
	payloads := render.Render(ev.CustomerID, text, suggestions, actions)

	e.send(ctx, ev.CustomerID, payloads)

	e.persist(ctx, ev, it, actions, text)
	return nil
}

func (e *Engine) resolve(ctx context.Context, ev wa.Event, cctx conversation.Context, st session.State) intent.Intent {
	flags := intent.Flags{
		OrderInProgress: st.Phase == session.PhaseOrderInProgress || st.Phase == session.PhasePaymentPending,
	}
	if cctx.LastIntent != nil {
		flags.PreviousIntentType = cctx.LastIntent.Type
		flags.ProductDiscussion = cctx.LastIntent.Type == intent.TypeProductQuery ||
			cctx.LastIntent.Type == intent.TypeCatalogBrowse
	}

	in := intent.ClassifyInput{
		Text:     ev.Content,
		History:  cctx.Messages,
		Language: st.Language(e.config.DefaultLanguage),
		Flags:    flags,
	}
	if st.ActiveOrder != nil {
		in.OrderSummary = st.ActiveOrder.ID + " (" + st.ActiveOrder.Status + ")"
	}

	if e.config.Resolver == nil {
		if it, ok := intent.ParseInteractive(ev.Content, flags); ok {
			return it
		}
		return intent.Intent{Type: intent.TypeUnknown, Confidence: 0.3, Flags: flags}
	}
	return e.config.Resolver.Resolve(ctx, in)
}

func (e *Engine) composeReply(ctx context.Context, ev wa.Event, cctx conversation.Context, st session.State, lang string, actions []dispatch.Action) string {
	if e.config.Composer == nil {
		return compose.Apology(lang)
	}
	return e.config.Composer.Compose(ctx, compose.Input{
		CustomerName: ev.CustomerName,
		Language:     lang,
		Actions:      actions,
		History:      cctx.Messages,
	})
}

// send delivers the rendered payloads in order. The limiter is soft: an
// over-limit customer is flagged, never silenced.
func (e *Engine) send(ctx context.Context, customerID string, payloads []wa.OutboundPayload) {
	for i, p := range payloads {
		if i > 0 && e.pacing > 0 {
			select {
			case <-time.After(e.pacing):
			case <-ctx.Done():
				return
			}
		}

		if e.config.Limiter != nil {
			e.config.Limiter.Note(customerID)
		}

		if err := e.config.Sender.Send(ctx, p); err != nil {
			if e.config.Metrics != nil {
				e.config.Metrics.SendFailures.Inc()
			}
			e.logger.Error("send failed", "error", err, "customer_id", customerID)
			continue
		}
		if e.config.Metrics != nil {
			e.config.Metrics.MessagesSent.Inc()
		}
	}
}

// persist records the exchange and folds the turn's outcome into the
// session state. Persistence failures are logged, not surfaced: the
// customer already has their reply.
func (e *Engine) persist(ctx context.Context, ev wa.Event, it intent.Intent, actions []dispatch.Action, reply string) {
	conv := e.config.Conversation
	now := e.now()

	inMsg := message.NewCustomerMessage(ev.Content, ev.Timestamp)
	outMsg := message.NewAssistantMessage(reply, now)
	outMsg.Metadata = &message.Metadata{
		IntentType: string(it.Type),
		Parameters: it.Parameters,
		IsError:    dispatch.HasType(actions, dispatch.ActionError),
	}
	if err := conv.AddMessages(ctx, ev.CustomerID, inMsg, outMsg); err != nil {
		e.logger.Error("history append failed", "error", err, "customer_id", ev.CustomerID)
	}

	rec := store.IntentRecord{
		Type:       it.Type,
		Confidence: it.Confidence,
		Parameters: it.Parameters,
		At:         now,
	}
	if err := conv.UpdateContext(ctx, ev.CustomerID, conversation.ContextUpdate{Intent: &rec}); err != nil {
		e.logger.Error("intent log failed", "error", err, "customer_id", ev.CustomerID)
	}

	e.advanceState(ctx, ev.CustomerID, it, actions)
}

// advanceState walks the session through the phase changes the turn's
// actions imply, one validated transition at a time.
func (e *Engine) advanceState(ctx context.Context, customerID string, it intent.Intent, actions []dispatch.Action) {
	conv := e.config.Conversation

	st, err := conv.State(ctx, customerID)
	if err != nil {
		e.logger.Error("state load failed", "error", err, "customer_id", customerID)
		return
	}

	apply := func(upd session.Update) {
		next, err := conv.UpdateState(ctx, customerID, upd)
		if err != nil {
			e.logger.Warn("state update rejected", "error", err, "customer_id", customerID)
			return
		}
		st = next
	}

	// A first contact, or a new flow after a terminal phase, activates the
	// session before anything order-related happens.
	if st.Phase != session.PhaseActive && st.Phase.CanTransition(session.PhaseActive) &&
		st.Phase != session.PhaseOrderInProgress && st.Phase != session.PhasePaymentPending {
		apply(session.Update{Phase: session.PhaseActive})
	}

	upd := session.Update{Data: map[string]any{session.KeyLastIntentType: string(it.Type)}}

	switch {
	case dispatch.HasType(actions, dispatch.ActionOrderCreated),
		dispatch.HasType(actions, dispatch.ActionCartUpdated):
		upd.Phase = session.PhaseOrderInProgress
		if ref := orderRefFrom(actions); ref != nil {
			upd.ActiveOrder = ref
		}
	case dispatch.HasType(actions, dispatch.ActionPaymentInitiated):
		upd.Phase = session.PhasePaymentPending
	case dispatch.HasType(actions, dispatch.ActionPaymentConfirmed):
		upd.Phase = session.PhaseCompleted
		upd.ClearOrder = true
	case dispatch.HasType(actions, dispatch.ActionOrderCancelled):
		upd.Phase = session.PhaseCancelled
		upd.ClearOrder = true
	}

	if upd.Phase != "" && !st.Phase.CanTransition(upd.Phase) {
		// Keep the data update even when the phase change is not legal
		// from here.
		upd.Phase = ""
	}
	apply(upd)
}

// orderRefFrom extracts the order reference carried by an order action.
func orderRefFrom(actions []dispatch.Action) *session.OrderRef {
	for _, a := range actions {
		if a.Order == nil {
			continue
		}
		ref := &session.OrderRef{ID: a.Order.ID, Status: a.Order.Status}
		for _, item := range a.Order.Items {
			ref.Items = append(ref.Items, session.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		return ref
	}
	return nil
}

// apologize is the last-resort reply when a turn fails. It bypasses
// compose and render entirely.
func (e *Engine) apologize(ctx context.Context, ev wa.Event) {
	lang := e.config.DefaultLanguage
	if st, err := e.config.Conversation.State(ctx, ev.CustomerID); err == nil {
		lang = st.Language(lang)
	}

	p := wa.NewText(ev.CustomerID, compose.Apology(lang))
	if err := e.config.Sender.Send(ctx, p); err != nil {
		e.logger.Error("apology send failed", "error", err, "customer_id", ev.CustomerID)
	}
}
