package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"vigil/api/engine"
	"vigil/api/logger"
	"vigil/api/metrics"
)

// RetentionStore is the slice of the store the retention sweep needs.
type RetentionStore interface {
	DeleteOutcomesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Config struct {
	CheckInterval        time.Duration // monitor sweep period
	SystemInterval       time.Duration // resource sample period
	SystemMonitorEnabled bool
	RetentionDays        int
	RetentionSchedule    string // cron spec; defaults to 02:00 daily
}

// Scheduler drives the three repeating timers: the monitor sweep, the
// resource sample, and the daily retention cleanup. Each job is
// independent; a failure inside one tick is logged and the next tick
// fires regardless.
type Scheduler struct {
	cron   *cron.Cron
	engine *engine.Engine
	store  RetentionStore
	cfg    Config
}

func New(eng *engine.Engine, store RetentionStore, cfg Config) *Scheduler {
	if cfg.RetentionSchedule == "" {
		cfg.RetentionSchedule = "0 2 * * *"
	}
	return &Scheduler{
		cron:   cron.New(),
		engine: eng,
		store:  store,
		cfg:    cfg,
	}
}

func (s *Scheduler) Start() error {
	log := logger.WithComponent("sched")

	_, err := s.cron.AddFunc(every(s.cfg.CheckInterval), s.runMonitors)
	if err != nil {
		return fmt.Errorf("schedule monitor checks: %w", err)
	}

	if s.cfg.SystemMonitorEnabled {
		_, err = s.cron.AddFunc(every(s.cfg.SystemInterval), s.runSystemSample)
		if err != nil {
			return fmt.Errorf("schedule system sampling: %w", err)
		}
	}

	_, err = s.cron.AddFunc(s.cfg.RetentionSchedule, s.runRetention)
	if err != nil {
		return fmt.Errorf("schedule retention cleanup: %w", err)
	}

	s.cron.Start()
	log.Info().
		Dur("check_interval", s.cfg.CheckInterval).
		Dur("system_interval", s.cfg.SystemInterval).
		Bool("system_enabled", s.cfg.SystemMonitorEnabled).
		Str("retention", s.cfg.RetentionSchedule).
		Int("retention_days", s.cfg.RetentionDays).
		Msg("scheduler started")
	return nil
}

// Stop halts the timers and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	clog := logger.WithComponent("sched")
	clog.Info().Msg("scheduler stopped")
}

func (s *Scheduler) runMonitors() {
	s.engine.CheckAll(context.Background())
}

func (s *Scheduler) runSystemSample() {
	if _, err := s.engine.SampleResources(context.Background()); err != nil {
		clog := logger.WithComponent("sched")
		clog.Error().Err(err).Msg("system sample failed")
	}
}

func (s *Scheduler) runRetention() {
	log := logger.WithComponent("sched")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)

	outcomes, err := s.store.DeleteOutcomesBefore(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("prune metrics")
	} else {
		metrics.RetentionDeletedTotal.WithLabelValues("metrics").Add(float64(outcomes))
	}

	samples, err := s.store.DeleteSamplesBefore(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("prune system metrics")
	} else {
		metrics.RetentionDeletedTotal.WithLabelValues("system_metrics").Add(float64(samples))
	}

	log.Info().
		Int64("metrics", outcomes).
		Int64("system_metrics", samples).
		Time("cutoff", cutoff).
		Msg("retention sweep complete")
}

// every formats a duration as a robfig/cron interval spec.
func every(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}
