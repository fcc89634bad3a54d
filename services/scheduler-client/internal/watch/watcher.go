// Package watch polls the API on a cron schedule for newly opened slots and
// logs out sessions whose token has expired.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	otelx "github.com/md-rashed-zaman/slotscheduler/libs/otel"
	"github.com/md-rashed-zaman/slotscheduler/libs/runtime"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/auth"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/events"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultSchedule = "@every 1m"

type SlotSource interface {
	Upcoming(ctx context.Context) ([]model.Slot, error)
}

type Session interface {
	State() auth.State
	Refresh(ctx context.Context) auth.State
	IsAuthenticated(ctx context.Context) bool
	Logout(ctx context.Context) error
}

type Watcher struct {
	slots    SlotSource
	session  Session
	events   events.Publisher
	logger   *slog.Logger
	metrics  *Metrics
	schedule string

	mu     sync.Mutex
	seeded bool
	seen   map[string]struct{}
}

type Option func(*Watcher)

func WithEvents(p events.Publisher) Option {
	return func(w *Watcher) { w.events = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

func WithSchedule(spec string) Option {
	return func(w *Watcher) {
		if spec != "" {
			w.schedule = spec
		}
	}
}

func New(slots SlotSource, sess Session, opts ...Option) *Watcher {
	w := &Watcher{
		slots:    slots,
		session:  sess,
		events:   events.Nop{},
		logger:   slog.Default(),
		metrics:  NewMetrics("scheduler_client"),
		schedule: DefaultSchedule,
		seen:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run ticks once immediately, then on the schedule until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.PrintfLogger(slog.NewLogLogger(w.logger.Handler(), slog.LevelWarn))),
	))
	if _, err := c.AddFunc(w.schedule, func() { w.Tick(ctx) }); err != nil {
		return fmt.Errorf("watch schedule %q: %w", w.schedule, err)
	}

	w.Tick(ctx)
	c.Start()
	w.logger.Info("watcher started", "schedule", w.schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	w.logger.Info("watcher stopped")
	return nil
}

// Tick runs one pass: expire the session if needed, then look for slots
// not seen before. The first pass only records what is already open.
func (w *Watcher) Tick(ctx context.Context) {
	ctx, span := otelx.StartSpan(ctx, "watch.tick")
	found, err := w.tick(ctx)
	span.SetAttributes(attribute.Int("slots.discovered", found))
	otelx.EndSpan(span, err)
}

func (w *Watcher) tick(ctx context.Context) (int, error) {
	st := w.session.State()
	if !st.Authenticated {
		// another process may have logged in through the shared store
		st = w.session.Refresh(ctx)
	}
	if !st.Authenticated {
		w.metrics.ticks.WithLabelValues("logged_out").Inc()
		w.logger.Debug("watcher idle, no session")
		return 0, nil
	}
	if !w.session.IsAuthenticated(ctx) {
		w.metrics.expired.Inc()
		w.metrics.ticks.WithLabelValues("expired").Inc()
		w.logger.Info("session token expired, logging out")
		return 0, w.session.Logout(ctx)
	}

	upcoming, err := w.slots.Upcoming(ctx)
	if err != nil {
		w.metrics.ticks.WithLabelValues("error").Inc()
		w.logger.Warn("fetch upcoming slots failed", "err", err)
		return 0, err
	}
	w.metrics.upcoming.Set(float64(len(upcoming)))

	fresh := w.diff(upcoming)
	userID := ""
	if st.User != nil {
		userID = st.User.ID
	}
	for _, slot := range fresh {
		w.metrics.discovered.Inc()
		w.logger.Info("slot opened",
			"slot_id", slot.ID,
			"title", slot.Title,
			"start", slot.StartTime,
			"available_spots", slot.AvailableSpots,
		)
		events.Emit(ctx, w.events, w.logger, events.New(events.SlotDiscovered, slot.ID, userID, slot))
	}
	w.metrics.ticks.WithLabelValues("ok").Inc()
	return len(fresh), nil
}

// diff returns slots missing from the previous pass and replaces the seen
// set with the current one.
func (w *Watcher) diff(current []model.Slot) []model.Slot {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := make(map[string]struct{}, len(current))
	var fresh []model.Slot
	for _, slot := range current {
		next[slot.ID] = struct{}{}
		if _, ok := w.seen[slot.ID]; !ok && w.seeded {
			fresh = append(fresh, slot)
		}
	}
	w.seen = next
	w.seeded = true
	return fresh
}

// Handler serves /metrics from reg next to /healthz and /readyz.
func Handler(reg prometheus.Gatherer, checks ...runtime.ReadyCheck) http.Handler {
	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}
