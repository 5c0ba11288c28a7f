package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"vigil/api/model"
	"vigil/api/probe"
)

// fakeStore is an in-memory Store with the same semantics the Postgres
// store guarantees: newest-first recent outcomes and an atomic
// conditional alert insert.
type fakeStore struct {
	mu       sync.Mutex
	monitors map[string]*model.Monitor
	outcomes []model.Outcome
	alerts   []*model.Alert
	samples  []model.ResourceSample
	nextID   int

	appendErr   error
	recentErr   error
	activeErr   error
	cooldownErr error
}

func newFakeStore(monitors ...*model.Monitor) *fakeStore {
	s := &fakeStore{monitors: map[string]*model.Monitor{}}
	for _, m := range monitors {
		s.monitors[m.ID] = m
	}
	return s
}

func (s *fakeStore) ListActiveMonitors(ctx context.Context) ([]model.Monitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Monitor
	for _, m := range s.monitors {
		if m.IsActive {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *fakeStore) GetMonitor(ctx context.Context, id string) (*model.Monitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monitors[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *fakeStore) AppendOutcome(ctx context.Context, o *model.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.nextID++
	o.ID = int64(s.nextID)
	s.outcomes = append(s.outcomes, *o)
	return nil
}

func (s *fakeStore) RecentOutcomes(ctx context.Context, monitorID string, limit int) ([]model.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	var out []model.Outcome
	for i := len(s.outcomes) - 1; i >= 0 && len(out) < limit; i-- {
		if s.outcomes[i].MonitorID == monitorID {
			out = append(out, s.outcomes[i])
		}
	}
	return out, nil
}

func (s *fakeStore) HasActiveAlert(ctx context.Context, monitorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeErr != nil {
		return false, s.activeErr
	}
	return s.hasActiveLocked(monitorID), nil
}

func (s *fakeStore) hasActiveLocked(monitorID string) bool {
	for _, a := range s.alerts {
		if a.MonitorID == monitorID && a.Status == model.AlertActive {
			return true
		}
	}
	return false
}

func (s *fakeStore) HasRecentAlert(ctx context.Context, monitorID string, createdAfter time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cooldownErr != nil {
		return false, s.cooldownErr
	}
	for _, a := range s.alerts {
		if a.MonitorID == monitorID && a.CreatedAt.After(createdAfter) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CreateAlert(ctx context.Context, monitorID string, kind model.AlertKind, message string) (*model.Alert, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasActiveLocked(monitorID) {
		return nil, false, nil
	}
	s.nextID++
	a := &model.Alert{
		ID:        fmt.Sprintf("alert-%d", s.nextID),
		MonitorID: monitorID,
		Kind:      kind,
		Message:   message,
		Status:    model.AlertActive,
		CreatedAt: time.Now(),
	}
	s.alerts = append(s.alerts, a)
	cp := *a
	return &cp, true, nil
}

func (s *fakeStore) ResolveActiveAlerts(ctx context.Context, monitorID string) ([]model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var resolved []model.Alert
	for _, a := range s.alerts {
		if a.MonitorID == monitorID && a.Status == model.AlertActive {
			now := time.Now()
			a.Status = model.AlertResolved
			a.ResolvedAt = &now
			resolved = append(resolved, *a)
		}
	}
	return resolved, nil
}

func (s *fakeStore) AppendResourceSample(ctx context.Context, sample *model.ResourceSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sample.ID = int64(s.nextID)
	s.samples = append(s.samples, *sample)
	return nil
}

func (s *fakeStore) alertsFor(monitorID string) (active, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.MonitorID != monitorID {
			continue
		}
		total++
		if a.Status == model.AlertActive {
			active++
		}
	}
	return active, total
}

// backdateAlerts shifts every alert's creation time, to step past the
// cooldown window without sleeping.
func (s *fakeStore) backdateAlerts(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		a.CreatedAt = a.CreatedAt.Add(-d)
	}
}

// scriptedProber replays a fixed sequence of results, then repeats the
// last one.
type scriptedProber struct {
	mu      sync.Mutex
	results []probe.Result
	i       int
	panics  map[string]bool // targets whose checks panic
}

func upResult(code int) probe.Result {
	latency := 12.5
	return probe.Result{Up: true, StatusCode: &code, LatencyMs: &latency}
}

func downResult(msg string) probe.Result {
	return probe.Result{Up: false, Error: &msg}
}

func (p *scriptedProber) Check(ctx context.Context, target string, timeout time.Duration) probe.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panics[target] {
		panic("probe exploded")
	}
	r := p.results[p.i]
	if p.i < len(p.results)-1 {
		p.i++
	}
	return r
}

type fakeSampler struct {
	sample *model.ResourceSample
	err    error
}

func (f *fakeSampler) Sample() (*model.ResourceSample, error) {
	return f.sample, f.err
}

func testMonitor(threshold int) *model.Monitor {
	return &model.Monitor{
		ID:             "mon-1",
		Name:           "Example",
		URL:            "https://example.com",
		TimeoutSeconds: 5,
		AlertThreshold: threshold,
		IsActive:       true,
	}
}

func newTestEngine(s *fakeStore, p Prober, cooldown time.Duration) *Engine {
	return New(s, p, &fakeSampler{}, nil, nil, cooldown)
}

func checkN(t *testing.T, e *Engine, id string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := e.CheckOne(context.Background(), id); err != nil {
			t.Fatalf("CheckOne #%d: %v", i+1, err)
		}
	}
}

func TestAlertCreatedAfterThresholdFailures(t *testing.T) {
	m := testMonitor(3)
	store := newFakeStore(m)
	e := newTestEngine(store, &scriptedProber{results: []probe.Result{downResult("timeout")}}, 5*time.Minute)

	checkN(t, e, m.ID, 2)
	if active, total := store.alertsFor(m.ID); total != 0 {
		t.Fatalf("after 2 failures: %d alerts (%d active), want none", total, active)
	}

	checkN(t, e, m.ID, 1)
	active, total := store.alertsFor(m.ID)
	if active != 1 || total != 1 {
		t.Fatalf("after 3 failures: active=%d total=%d, want 1/1", active, total)
	}

	a := store.alerts[0]
	if a.Kind != model.AlertDown {
		t.Errorf("Kind = %q, want down", a.Kind)
	}
	if want := "Monitor 'Example' is down. Failed 3 consecutive checks."; a.Message != want {
		t.Errorf("Message = %q, want %q", a.Message, want)
	}
}

func TestMixedWindowDoesNotTrigger(t *testing.T) {
	m := testMonitor(3)
	store := newFakeStore(m)
	p := &scriptedProber{results: []probe.Result{
		downResult("timeout"),
		upResult(200),
		downResult("timeout"),
		downResult("timeout"),
	}}
	e := newTestEngine(store, p, 5*time.Minute)

	// down, up, down, down: the newest three contain an up
	checkN(t, e, m.ID, 4)

	if _, total := store.alertsFor(m.ID); total != 0 {
		t.Fatalf("got %d alerts, want none: window is not all down", total)
	}
}

func TestSingleUpResolvesActiveAlerts(t *testing.T) {
	m := testMonitor(3)
	store := newFakeStore(m)
	p := &scriptedProber{results: []probe.Result{
		downResult("connection error"),
		downResult("connection error"),
		downResult("connection error"),
		upResult(204),
	}}
	e := newTestEngine(store, p, 5*time.Minute)

	checkN(t, e, m.ID, 3)
	if active, _ := store.alertsFor(m.ID); active != 1 {
		t.Fatalf("active = %d, want 1 before recovery", active)
	}

	checkN(t, e, m.ID, 1)
	active, total := store.alertsFor(m.ID)
	if active != 0 || total != 1 {
		t.Fatalf("after recovery: active=%d total=%d, want 0/1", active, total)
	}
	if store.alerts[0].ResolvedAt == nil {
		t.Error("ResolvedAt not stamped on resolution")
	}
}

func TestActiveAlertNeverDuplicated(t *testing.T) {
	m := testMonitor(3)
	store := newFakeStore(m)
	// Cooldown zero isolates the active-alert guard from suppression.
	e := newTestEngine(store, &scriptedProber{results: []probe.Result{downResult("timeout")}}, 0)

	checkN(t, e, m.ID, 8)

	active, total := store.alertsFor(m.ID)
	if active != 1 || total != 1 {
		t.Fatalf("after 8 straight failures: active=%d total=%d, want exactly one alert", active, total)
	}
}

// A full down-streak inside the cooldown window of an earlier alert is
// suppressed even when that alert has already resolved. Known
// limitation: a fast up/down flap mutes the next legitimate incident
// until the window passes.
func TestCooldownCountsResolvedAlerts(t *testing.T) {
	m := testMonitor(3)
	store := newFakeStore(m)
	p := &scriptedProber{results: []probe.Result{
		downResult("timeout"), downResult("timeout"), downResult("timeout"), // alert
		upResult(200),         // resolve
		downResult("timeout"), // second streak
	}}
	e := newTestEngine(store, p, 5*time.Minute)

	checkN(t, e, m.ID, 4)
	if active, total := store.alertsFor(m.ID); active != 0 || total != 1 {
		t.Fatalf("after flap: active=%d total=%d, want 0/1", active, total)
	}

	checkN(t, e, m.ID, 3)
	if _, total := store.alertsFor(m.ID); total != 1 {
		t.Fatalf("second streak inside cooldown created an alert: total=%d, want 1", total)
	}
}

func TestNewAlertAfterCooldownElapses(t *testing.T) {
	m := testMonitor(3)
	store := newFakeStore(m)
	p := &scriptedProber{results: []probe.Result{
		downResult("timeout"), downResult("timeout"), downResult("timeout"),
		upResult(200),
		downResult("timeout"),
	}}
	e := newTestEngine(store, p, 5*time.Minute)

	checkN(t, e, m.ID, 4) // alert + resolve
	firstID := store.alerts[0].ID

	checkN(t, e, m.ID, 3) // suppressed streak
	store.backdateAlerts(6 * time.Minute)
	checkN(t, e, m.ID, 1) // window still all-down, cooldown clear

	active, total := store.alertsFor(m.ID)
	if active != 1 || total != 2 {
		t.Fatalf("after cooldown: active=%d total=%d, want 1/2", active, total)
	}
	if store.alerts[1].ID == firstID {
		t.Error("new incident reused the old alert id")
	}
	if store.alerts[0].Status != model.AlertResolved {
		t.Error("first alert should stay resolved; incidents are never reopened")
	}
}

func TestCooldownCheckFailsOpen(t *testing.T) {
	m := testMonitor(2)
	store := newFakeStore(m)
	store.cooldownErr = errors.New("store unavailable")
	e := newTestEngine(store, &scriptedProber{results: []probe.Result{downResult("timeout")}}, 5*time.Minute)

	checkN(t, e, m.ID, 2)

	if active, _ := store.alertsFor(m.ID); active != 1 {
		t.Fatalf("active = %d, want 1: cooldown failure must not hide the incident", active)
	}
}

func TestInsufficientHistoryDoesNotTrigger(t *testing.T) {
	m := testMonitor(5)
	store := newFakeStore(m)
	e := newTestEngine(store, &scriptedProber{results: []probe.Result{downResult("timeout")}}, 0)

	checkN(t, e, m.ID, 4)

	if _, total := store.alertsFor(m.ID); total != 0 {
		t.Fatalf("got %d alerts with only 4 of 5 required outcomes", total)
	}
}

func TestRecordFailureDoesNotAbortCheck(t *testing.T) {
	m := testMonitor(1)
	store := newFakeStore(m)
	store.appendErr = errors.New("disk full")
	e := newTestEngine(store, &scriptedProber{results: []probe.Result{downResult("timeout")}}, 0)

	// Append fails, so history stays empty and no alert can form, but
	// the check itself must complete without error.
	if err := e.CheckOne(context.Background(), m.ID); err != nil {
		t.Fatalf("CheckOne: %v", err)
	}
	if _, total := store.alertsFor(m.ID); total != 0 {
		t.Fatalf("alert created from unrecorded outcome")
	}
}

func TestCheckOneUnknownMonitor(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, &scriptedProber{results: []probe.Result{upResult(200)}}, 0)

	err := e.CheckOne(context.Background(), "missing")
	if !errors.Is(err, ErrMonitorNotFound) {
		t.Fatalf("err = %v, want ErrMonitorNotFound", err)
	}
}

func TestCheckAllIsolatesPanics(t *testing.T) {
	m1 := testMonitor(3)
	m2 := &model.Monitor{
		ID: "mon-2", Name: "Other", URL: "https://other.example.com",
		TimeoutSeconds: 5, AlertThreshold: 3, IsActive: true,
	}
	store := newFakeStore(m1, m2)
	p := &scriptedProber{
		results: []probe.Result{upResult(200)},
		panics:  map[string]bool{m1.URL: true},
	}
	e := newTestEngine(store, p, 0)

	e.CheckAll(context.Background())

	store.mu.Lock()
	defer store.mu.Unlock()
	var recorded int
	for _, o := range store.outcomes {
		if o.MonitorID == m2.ID {
			recorded++
		}
	}
	if recorded != 1 {
		t.Fatalf("healthy monitor recorded %d outcomes, want 1: panic must stay isolated", recorded)
	}
}

func TestCheckAllSkipsInactiveMonitors(t *testing.T) {
	m := testMonitor(3)
	m.IsActive = false
	store := newFakeStore(m)
	e := newTestEngine(store, &scriptedProber{results: []probe.Result{upResult(200)}}, 0)

	e.CheckAll(context.Background())

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.outcomes) != 0 {
		t.Fatalf("inactive monitor was checked: %d outcomes", len(store.outcomes))
	}
}

func TestSampleResources(t *testing.T) {
	store := newFakeStore()
	sampler := &fakeSampler{sample: &model.ResourceSample{
		CPUPercent:    41.5,
		MemoryPercent: 63.2,
		DiskPercent:   80.1,
		Timestamp:     time.Now(),
	}}
	e := New(store, &scriptedProber{results: []probe.Result{upResult(200)}}, sampler, nil, nil, 0)

	got, err := e.SampleResources(context.Background())
	if err != nil {
		t.Fatalf("SampleResources: %v", err)
	}
	if got.CPUPercent != 41.5 {
		t.Errorf("CPUPercent = %v, want 41.5", got.CPUPercent)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.samples) != 1 {
		t.Fatalf("recorded %d samples, want 1", len(store.samples))
	}
}

func TestSampleResourcesError(t *testing.T) {
	store := newFakeStore()
	sampler := &fakeSampler{err: errors.New("no /proc")}
	e := New(store, &scriptedProber{results: []probe.Result{upResult(200)}}, sampler, nil, nil, 0)

	if _, err := e.SampleResources(context.Background()); err == nil {
		t.Fatal("expected error from failing sampler")
	}
}
