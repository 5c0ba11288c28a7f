package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"vigil/api/hub"
	"vigil/api/logger"
	"vigil/api/metrics"
	"vigil/api/model"
	"vigil/api/notify"
	"vigil/api/probe"
)

// ErrMonitorNotFound is returned by CheckOne for an unknown monitor id.
var ErrMonitorNotFound = errors.New("monitor not found")

// Store is the persistence contract the engine consumes. *store.DB
// satisfies it; tests use an in-memory fake.
type Store interface {
	ListActiveMonitors(ctx context.Context) ([]model.Monitor, error)
	GetMonitor(ctx context.Context, id string) (*model.Monitor, error)
	AppendOutcome(ctx context.Context, o *model.Outcome) error
	RecentOutcomes(ctx context.Context, monitorID string, limit int) ([]model.Outcome, error)
	HasActiveAlert(ctx context.Context, monitorID string) (bool, error)
	HasRecentAlert(ctx context.Context, monitorID string, createdAfter time.Time) (bool, error)
	CreateAlert(ctx context.Context, monitorID string, kind model.AlertKind, message string) (*model.Alert, bool, error)
	ResolveActiveAlerts(ctx context.Context, monitorID string) ([]model.Alert, error)
	AppendResourceSample(ctx context.Context, s *model.ResourceSample) error
}

// Prober issues a single classified check against a target.
type Prober interface {
	Check(ctx context.Context, target string, timeout time.Duration) probe.Result
}

// Sampler reads host resource utilization.
type Sampler interface {
	Sample() (*model.ResourceSample, error)
}

// Broadcaster pushes live events to subscribers; hub.Hub satisfies it.
type Broadcaster interface {
	Broadcast(evt hub.Event)
}

// Engine owns the check → record → evaluate pipeline. It holds no
// monitor state of its own: streaks, cooldowns and the active-alert
// invariant are all derived from (and enforced by) the store, so
// concurrent evaluations for the same monitor stay safe.
type Engine struct {
	store    Store
	prober   Prober
	sampler  Sampler
	senders  []notify.Sender
	events   Broadcaster
	cooldown time.Duration
}

func New(store Store, prober Prober, sampler Sampler, senders []notify.Sender, events Broadcaster, cooldown time.Duration) *Engine {
	return &Engine{
		store:    store,
		prober:   prober,
		sampler:  sampler,
		senders:  senders,
		events:   events,
		cooldown: cooldown,
	}
}

// CheckAll runs one full sweep over every active monitor. Monitors are
// checked concurrently; the call returns once every check has finished,
// so one slow probe delays only its own goroutine, never the batch of
// the next tick. Per-monitor failures are logged and isolated.
func (e *Engine) CheckAll(ctx context.Context) {
	log := logger.WithComponent("engine")

	monitors, err := e.store.ListActiveMonitors(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list active monitors")
		return
	}
	log.Info().Int("count", len(monitors)).Msg("checking active monitors")

	var wg sync.WaitGroup
	for i := range monitors {
		m := monitors[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					metrics.CheckErrors.WithLabelValues("panic").Inc()
					log.Error().
						Str("monitor", m.ID).
						Interface("panic", r).
						Bytes("stack", debug.Stack()).
						Msg("check panic recovered")
				}
			}()
			e.checkMonitor(ctx, &m)
		}()
	}
	wg.Wait()
}

// CheckOne performs the probe → record → evaluate sequence for a single
// monitor synchronously, for on-demand checks from the API.
func (e *Engine) CheckOne(ctx context.Context, monitorID string) error {
	m, err := e.store.GetMonitor(ctx, monitorID)
	if err != nil {
		return fmt.Errorf("get monitor: %w", err)
	}
	if m == nil {
		return ErrMonitorNotFound
	}
	e.checkMonitor(ctx, m)
	return nil
}

// checkMonitor runs one probe and feeds the outcome through the
// recorder and the alert evaluator. A failed write is logged and
// swallowed; evaluation still runs against whatever history exists.
func (e *Engine) checkMonitor(ctx context.Context, m *model.Monitor) {
	log := logger.WithComponent("engine").With().
		Str("monitor", m.ID).Str("name", m.Name).Logger()

	res := e.prober.Check(ctx, m.URL, m.Timeout())
	if res.LatencyMs != nil {
		metrics.ProbeDuration.Observe(*res.LatencyMs / 1000)
	}

	outcome := &model.Outcome{
		MonitorID:  m.ID,
		StatusCode: res.StatusCode,
		LatencyMs:  res.LatencyMs,
		Up:         res.Up,
		Error:      res.Error,
		Timestamp:  time.Now(),
	}

	if err := e.store.AppendOutcome(ctx, outcome); err != nil {
		metrics.CheckErrors.WithLabelValues("record").Inc()
		log.Error().Err(err).Msg("record outcome")
	}

	if res.Up {
		metrics.ChecksTotal.WithLabelValues("up").Inc()
		log.Info().Int("status", *res.StatusCode).Float64("latency_ms", *res.LatencyMs).Msg("up")
	} else {
		metrics.ChecksTotal.WithLabelValues("down").Inc()
		log.Warn().Str("error", *res.Error).Msg("down")
	}

	if e.events != nil {
		e.events.Broadcast(hub.Event{Type: hub.EventOutcome, MonitorID: m.ID, Payload: outcome})
	}

	if err := e.evaluate(ctx, m, res.Up); err != nil {
		metrics.CheckErrors.WithLabelValues("evaluate").Inc()
		log.Error().Err(err).Msg("evaluate alerts")
	}
}

// evaluate advances the per-monitor alert state machine after one
// recorded outcome.
//
// Down path: when the newest `threshold` outcomes are all down and no
// active alert exists, open one — unless any alert for the monitor
// (active or resolved) was created inside the cooldown window. A store
// failure during the cooldown check fails open: alerting beats silence.
//
// Up path: a single up outcome resolves every active alert.
func (e *Engine) evaluate(ctx context.Context, m *model.Monitor, up bool) error {
	log := logger.WithComponent("engine").With().
		Str("monitor", m.ID).Str("name", m.Name).Logger()

	if up {
		resolved, err := e.store.ResolveActiveAlerts(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("resolve alerts: %w", err)
		}
		for i := range resolved {
			a := resolved[i]
			metrics.AlertsResolvedTotal.Inc()
			log.Info().Str("alert", a.ID).Msg("alert resolved")
			if e.events != nil {
				e.events.Broadcast(hub.Event{Type: hub.EventAlertResolved, MonitorID: m.ID, Payload: a})
			}
		}
		return nil
	}

	recent, err := e.store.RecentOutcomes(ctx, m.ID, m.AlertThreshold)
	if err != nil {
		return fmt.Errorf("recent outcomes: %w", err)
	}
	if len(recent) < m.AlertThreshold {
		return nil
	}
	for _, o := range recent {
		if o.Up {
			return nil
		}
	}

	active, err := e.store.HasActiveAlert(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("check active alert: %w", err)
	}
	if active {
		return nil
	}

	// Cooldown looks at any alert created in the window, including ones
	// already resolved — a fast flap suppresses the next incident.
	cutoff := time.Now().Add(-e.cooldown)
	inCooldown, err := e.store.HasRecentAlert(ctx, m.ID, cutoff)
	if err != nil {
		// Fail open: a broken cooldown check must not hide an incident.
		log.Error().Err(err).Msg("cooldown check failed, creating alert anyway")
		inCooldown = false
	}
	if inCooldown {
		metrics.AlertsSuppressedTotal.Inc()
		log.Info().Msg("alert in cooldown period, skipping")
		return nil
	}

	message := fmt.Sprintf("Monitor '%s' is down. Failed %d consecutive checks.", m.Name, m.AlertThreshold)
	alert, created, err := e.store.CreateAlert(ctx, m.ID, model.AlertDown, message)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	if !created {
		// A concurrent evaluation won the race; its alert stands.
		return nil
	}

	metrics.AlertsCreatedTotal.Inc()
	log.Warn().Str("alert", alert.ID).Str("message", message).Msg("alert created")

	if e.events != nil {
		e.events.Broadcast(hub.Event{Type: hub.EventAlertCreated, MonitorID: m.ID, Payload: alert})
	}
	e.dispatch(notify.Event{
		MonitorName: m.Name,
		Kind:        string(alert.Kind),
		Message:     alert.Message,
		CreatedAt:   alert.CreatedAt,
	})
	return nil
}

// dispatch fans an alert out to every sender, fire-and-forget. Delivery
// failures are counted and logged; they never touch engine state.
func (e *Engine) dispatch(ev notify.Event) {
	for _, s := range e.senders {
		s := s
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.Send(ctx, ev); err != nil {
				metrics.NotifyFailures.WithLabelValues(s.Name()).Inc()
				clog := logger.WithComponent("notify")
				clog.Error().
					Err(err).Str("sender", s.Name()).Str("monitor", ev.MonitorName).
					Msg("notification failed")
			}
		}()
	}
}

// SampleResources takes one host resource reading and records it. No
// alert evaluation hangs off this path.
func (e *Engine) SampleResources(ctx context.Context) (*model.ResourceSample, error) {
	sample, err := e.sampler.Sample()
	if err != nil {
		metrics.ResourceSamplesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("sample resources: %w", err)
	}

	if err := e.store.AppendResourceSample(ctx, sample); err != nil {
		metrics.ResourceSamplesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("record sample: %w", err)
	}
	metrics.ResourceSamplesTotal.WithLabelValues("ok").Inc()

	clog := logger.WithComponent("engine")
	clog.Info().
		Float64("cpu", sample.CPUPercent).
		Float64("memory", sample.MemoryPercent).
		Float64("disk", sample.DiskPercent).
		Msg("system metrics collected")

	if e.events != nil {
		e.events.Broadcast(hub.Event{Type: hub.EventSample, Payload: sample})
	}
	return sample, nil
}
