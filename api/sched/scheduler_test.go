package sched

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
)

type fakeRetentionStore struct {
	mu           sync.Mutex
	outcomeCut   time.Time
	sampleCut    time.Time
	outcomeCalls int
	sampleCalls  int
	outcomeErr   error
}

func (f *fakeRetentionStore) DeleteOutcomesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomeCalls++
	f.outcomeCut = cutoff
	return 3, f.outcomeErr
}

func (f *fakeRetentionStore) DeleteSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sampleCalls++
	f.sampleCut = cutoff
	return 2, nil
}

func TestEveryFormatsCronSpec(t *testing.T) {
	if got := every(60 * time.Second); got != "@every 1m0s" {
		t.Errorf("every(60s) = %q, want @every 1m0s", got)
	}
	if got := every(90 * time.Second); got != "@every 1m30s" {
		t.Errorf("every(90s) = %q, want @every 1m30s", got)
	}

	// The formatted spec must be parseable by the cron library.
	c := cron.New()
	if _, err := c.AddFunc(every(30*time.Second), func() {}); err != nil {
		t.Fatalf("cron rejected interval spec: %v", err)
	}
}

func TestDefaultRetentionSchedule(t *testing.T) {
	s := New(nil, &fakeRetentionStore{}, Config{CheckInterval: time.Minute})
	if s.cfg.RetentionSchedule != "0 2 * * *" {
		t.Errorf("RetentionSchedule = %q, want daily at 02:00", s.cfg.RetentionSchedule)
	}

	s = New(nil, &fakeRetentionStore{}, Config{RetentionSchedule: "0 4 * * *"})
	if s.cfg.RetentionSchedule != "0 4 * * *" {
		t.Errorf("RetentionSchedule = %q, explicit value overridden", s.cfg.RetentionSchedule)
	}
}

func TestRunRetentionCutoff(t *testing.T) {
	store := &fakeRetentionStore{}
	s := New(nil, store, Config{RetentionDays: 30})

	before := time.Now().AddDate(0, 0, -30)
	s.runRetention()
	after := time.Now().AddDate(0, 0, -30)

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.outcomeCalls != 1 || store.sampleCalls != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", store.outcomeCalls, store.sampleCalls)
	}
	if store.outcomeCut.Before(before) || store.outcomeCut.After(after) {
		t.Errorf("outcome cutoff %v outside [%v, %v]", store.outcomeCut, before, after)
	}
	if !store.outcomeCut.Equal(store.sampleCut) {
		t.Error("both tables must share one cutoff per sweep")
	}
}

func TestRunRetentionContinuesAfterError(t *testing.T) {
	store := &fakeRetentionStore{outcomeErr: errors.New("lock timeout")}
	s := New(nil, store, Config{RetentionDays: 7})

	s.runRetention()

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.sampleCalls != 1 {
		t.Fatal("sample prune skipped after metrics prune failed")
	}
}
