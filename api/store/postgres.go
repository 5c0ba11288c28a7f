package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vigil/api/model"
)

type DB struct {
	pool *pgxpool.Pool
}

func Connect(databaseURL string) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}
	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

func (db *DB) QueryRow(ctx context.Context, sql string, args ...interface{}) interface{ Scan(...interface{}) error } {
	return db.pool.QueryRow(ctx, sql, args...)
}

func Migrate(db *DB) error {
	ctx := context.Background()
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS monitors (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			url             TEXT NOT NULL,
			monitor_type    TEXT NOT NULL DEFAULT 'http',
			check_interval  INTEGER NOT NULL DEFAULT 60,
			timeout         INTEGER NOT NULL DEFAULT 10,
			alert_threshold INTEGER NOT NULL DEFAULT 3,
			is_active       BOOLEAN NOT NULL DEFAULT TRUE,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS metrics (
			id               BIGSERIAL PRIMARY KEY,
			monitor_id       TEXT NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
			status_code      INTEGER,
			response_time_ms DOUBLE PRECISION,
			is_up            BOOLEAN NOT NULL,
			error_message    TEXT,
			timestamp        TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_metrics_monitor_time
			ON metrics(monitor_id, timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics(timestamp);

		CREATE TABLE IF NOT EXISTS alerts (
			id              TEXT PRIMARY KEY,
			monitor_id      TEXT NOT NULL REFERENCES monitors(id) ON DELETE CASCADE,
			alert_type      TEXT NOT NULL DEFAULT 'down',
			message         TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL DEFAULT 'active',
			acknowledged    BOOLEAN NOT NULL DEFAULT FALSE,
			acknowledged_at TIMESTAMPTZ,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			resolved_at     TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_alerts_monitor ON alerts(monitor_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
		-- At most one active alert per monitor; CreateAlert races resolve here.
		CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_one_active
			ON alerts(monitor_id) WHERE status = 'active';

		CREATE TABLE IF NOT EXISTS system_metrics (
			id              BIGSERIAL PRIMARY KEY,
			cpu_percent     DOUBLE PRECISION NOT NULL,
			memory_percent  DOUBLE PRECISION NOT NULL,
			memory_used_gb  DOUBLE PRECISION NOT NULL,
			memory_total_gb DOUBLE PRECISION NOT NULL,
			disk_percent    DOUBLE PRECISION NOT NULL,
			disk_used_gb    DOUBLE PRECISION NOT NULL,
			disk_total_gb   DOUBLE PRECISION NOT NULL,
			timestamp       TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_system_metrics_timestamp ON system_metrics(timestamp);
	`)
	return err
}

// --- Monitors ---

const monitorCols = `id, name, url, monitor_type, check_interval, timeout, alert_threshold, is_active, created_at, updated_at`

func scanMonitor(row pgx.Row) (*model.Monitor, error) {
	var m model.Monitor
	err := row.Scan(&m.ID, &m.Name, &m.URL, &m.Type, &m.CheckInterval,
		&m.TimeoutSeconds, &m.AlertThreshold, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (db *DB) InsertMonitor(ctx context.Context, m *model.Monitor) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	row := db.pool.QueryRow(ctx,
		`INSERT INTO monitors (id, name, url, monitor_type, check_interval, timeout, alert_threshold)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING is_active, created_at, updated_at`,
		m.ID, m.Name, m.URL, m.Type, m.CheckInterval, m.TimeoutSeconds, m.AlertThreshold,
	)
	return row.Scan(&m.IsActive, &m.CreatedAt, &m.UpdatedAt)
}

func (db *DB) GetMonitor(ctx context.Context, id string) (*model.Monitor, error) {
	m, err := scanMonitor(db.pool.QueryRow(ctx,
		`SELECT `+monitorCols+` FROM monitors WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (db *DB) ListMonitors(ctx context.Context) ([]model.Monitor, error) {
	return db.queryMonitors(ctx,
		`SELECT `+monitorCols+` FROM monitors ORDER BY created_at DESC`)
}

func (db *DB) ListActiveMonitors(ctx context.Context) ([]model.Monitor, error) {
	return db.queryMonitors(ctx,
		`SELECT `+monitorCols+` FROM monitors WHERE is_active = TRUE ORDER BY created_at`)
}

func (db *DB) queryMonitors(ctx context.Context, sql string, args ...interface{}) ([]model.Monitor, error) {
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var monitors []model.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, err
		}
		monitors = append(monitors, *m)
	}
	return monitors, rows.Err()
}

// UpdateMonitor applies a typed partial update. Returns nil when the
// monitor does not exist.
func (db *DB) UpdateMonitor(ctx context.Context, id string, u *model.MonitorUpdate) (*model.Monitor, error) {
	set := ""
	args := []interface{}{}
	argN := 1

	add := func(col string, val interface{}) {
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", col, argN)
		args = append(args, val)
		argN++
	}

	if u.Name != nil {
		add("name", model.SanitizeString(*u.Name, 255))
	}
	if u.URL != nil {
		add("url", model.SanitizeString(*u.URL, 512))
	}
	if u.Type != nil {
		add("monitor_type", *u.Type)
	}
	if u.CheckInterval != nil {
		add("check_interval", *u.CheckInterval)
	}
	if u.TimeoutSeconds != nil {
		add("timeout", *u.TimeoutSeconds)
	}
	if u.AlertThreshold != nil {
		add("alert_threshold", *u.AlertThreshold)
	}
	if u.IsActive != nil {
		add("is_active", *u.IsActive)
	}
	if set == "" {
		return db.GetMonitor(ctx, id)
	}
	set += ", updated_at = now()"

	args = append(args, id)
	sql := fmt.Sprintf(`UPDATE monitors SET %s WHERE id = $%d RETURNING %s`, set, argN, monitorCols)

	m, err := scanMonitor(db.pool.QueryRow(ctx, sql, args...))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (db *DB) DeleteMonitor(ctx context.Context, id string) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM monitors WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// --- Outcomes ---

const outcomeCols = `id, monitor_id, status_code, response_time_ms, is_up, error_message, timestamp`

func scanOutcome(row pgx.Row) (*model.Outcome, error) {
	var o model.Outcome
	err := row.Scan(&o.ID, &o.MonitorID, &o.StatusCode, &o.LatencyMs, &o.Up, &o.Error, &o.Timestamp)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (db *DB) AppendOutcome(ctx context.Context, o *model.Outcome) error {
	if o.Timestamp.IsZero() {
		o.Timestamp = time.Now()
	}
	row := db.pool.QueryRow(ctx,
		`INSERT INTO metrics (monitor_id, status_code, response_time_ms, is_up, error_message, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		o.MonitorID, o.StatusCode, o.LatencyMs, o.Up, o.Error, o.Timestamp,
	)
	return row.Scan(&o.ID)
}

// RecentOutcomes returns the newest limit outcomes, newest first.
func (db *DB) RecentOutcomes(ctx context.Context, monitorID string, limit int) ([]model.Outcome, error) {
	return db.queryOutcomes(ctx,
		`SELECT `+outcomeCols+` FROM metrics
		 WHERE monitor_id = $1 ORDER BY timestamp DESC LIMIT $2`,
		monitorID, limit)
}

func (db *DB) ListOutcomes(ctx context.Context, f model.OutcomeFilter) ([]model.Outcome, error) {
	where := ""
	args := []interface{}{}
	argN := 1

	if f.MonitorID != "" {
		where += fmt.Sprintf(" AND monitor_id = $%d", argN)
		args = append(args, f.MonitorID)
		argN++
	}
	if f.Start != nil {
		where += fmt.Sprintf(" AND timestamp >= $%d", argN)
		args = append(args, *f.Start)
		argN++
	}
	if f.End != nil {
		where += fmt.Sprintf(" AND timestamp <= $%d", argN)
		args = append(args, *f.End)
		argN++
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	args = append(args, limit)

	sql := fmt.Sprintf(
		`SELECT %s FROM metrics WHERE 1=1%s ORDER BY timestamp DESC LIMIT $%d`,
		outcomeCols, where, argN,
	)
	return db.queryOutcomes(ctx, sql, args...)
}

func (db *DB) queryOutcomes(ctx context.Context, sql string, args ...interface{}) ([]model.Outcome, error) {
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []model.Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, *o)
	}
	return outcomes, rows.Err()
}

// OutcomeSummary aggregates outcomes since the cutoff; monitorID may be
// empty to aggregate across all monitors.
func (db *DB) OutcomeSummary(ctx context.Context, monitorID string, since time.Time) (*model.OutcomeSummary, error) {
	sql := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_up),
		       COUNT(*) FILTER (WHERE NOT is_up),
		       AVG(response_time_ms), MIN(response_time_ms), MAX(response_time_ms)
		FROM metrics WHERE timestamp > $1`
	args := []interface{}{since}
	if monitorID != "" {
		sql += ` AND monitor_id = $2`
		args = append(args, monitorID)
	}

	var s model.OutcomeSummary
	err := db.pool.QueryRow(ctx, sql, args...).Scan(
		&s.TotalChecks, &s.SuccessfulChecks, &s.FailedChecks,
		&s.AvgLatencyMs, &s.MinLatencyMs, &s.MaxLatencyMs,
	)
	if err != nil {
		return nil, err
	}
	if s.TotalChecks > 0 {
		s.UptimePercent = round2(float64(s.SuccessfulChecks) / float64(s.TotalChecks) * 100)
	}
	return &s, nil
}

// MonitorStatus returns the latest outcome plus 24h uptime for a monitor.
func (db *DB) MonitorStatus(ctx context.Context, monitorID string) (*model.MonitorStatus, error) {
	status := &model.MonitorStatus{}

	latest, err := scanOutcome(db.pool.QueryRow(ctx,
		`SELECT `+outcomeCols+` FROM metrics
		 WHERE monitor_id = $1 ORDER BY timestamp DESC LIMIT 1`, monitorID))
	if err != nil && err != pgx.ErrNoRows {
		return nil, err
	}
	status.LatestOutcome = latest

	var total, up int
	err = db.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_up)
		 FROM metrics WHERE monitor_id = $1 AND timestamp > now() - interval '24 hours'`,
		monitorID,
	).Scan(&total, &up)
	if err != nil {
		return nil, err
	}
	status.TotalChecks = total
	if total > 0 {
		status.Uptime24h = round2(float64(up) / float64(total) * 100)
	}
	return status, nil
}

// UptimeReport aggregates per-monitor uptime over the last `days` days.
// monitorID may be empty to report on every monitor.
func (db *DB) UptimeReport(ctx context.Context, monitorID string, days int) ([]model.UptimeEntry, error) {
	sql := `
		SELECT m.id, m.name,
		       COUNT(met.id),
		       COUNT(met.id) FILTER (WHERE met.is_up),
		       AVG(met.response_time_ms)
		FROM monitors m
		LEFT JOIN metrics met ON m.id = met.monitor_id
		  AND met.timestamp > now() - ($1 || ' days')::interval
		WHERE 1=1`
	args := []interface{}{days}
	if monitorID != "" {
		sql += ` AND m.id = $2`
		args = append(args, monitorID)
	}
	sql += ` GROUP BY m.id, m.name ORDER BY m.name`

	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var report []model.UptimeEntry
	for rows.Next() {
		var e model.UptimeEntry
		if err := rows.Scan(&e.MonitorID, &e.MonitorName, &e.TotalChecks, &e.SuccessfulChecks, &e.AvgLatencyMs); err != nil {
			return nil, err
		}
		if e.TotalChecks > 0 {
			e.UptimePercent = round2(float64(e.SuccessfulChecks) / float64(e.TotalChecks) * 100)
		}
		report = append(report, e)
	}
	return report, rows.Err()
}

// --- Alerts ---

const alertCols = `id, monitor_id, alert_type, message, status, acknowledged, acknowledged_at, created_at, resolved_at`

func scanAlert(row pgx.Row) (*model.Alert, error) {
	var a model.Alert
	err := row.Scan(&a.ID, &a.MonitorID, &a.Kind, &a.Message, &a.Status,
		&a.Acknowledged, &a.AcknowledgedAt, &a.CreatedAt, &a.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (db *DB) HasActiveAlert(ctx context.Context, monitorID string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM alerts WHERE monitor_id = $1 AND status = 'active')`,
		monitorID,
	).Scan(&exists)
	return exists, err
}

// HasRecentAlert reports whether any alert for the monitor, active or
// resolved, was created after the cutoff. Drives cooldown suppression.
func (db *DB) HasRecentAlert(ctx context.Context, monitorID string, createdAfter time.Time) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM alerts WHERE monitor_id = $1 AND created_at > $2)`,
		monitorID, createdAfter,
	).Scan(&exists)
	return exists, err
}

// CreateAlert opens an active alert unless one already exists for the
// monitor. The partial unique index makes the check-then-insert atomic:
// of two concurrent creates, exactly one returns created=true.
func (db *DB) CreateAlert(ctx context.Context, monitorID string, kind model.AlertKind, message string) (*model.Alert, bool, error) {
	a, err := scanAlert(db.pool.QueryRow(ctx,
		`INSERT INTO alerts (id, monitor_id, alert_type, message, status)
		 VALUES ($1, $2, $3, $4, 'active')
		 ON CONFLICT (monitor_id) WHERE status = 'active' DO NOTHING
		 RETURNING `+alertCols,
		uuid.NewString(), monitorID, kind, message,
	))
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}

// ResolveActiveAlerts closes every active alert for the monitor and
// returns the alerts it resolved.
func (db *DB) ResolveActiveAlerts(ctx context.Context, monitorID string) ([]model.Alert, error) {
	rows, err := db.pool.Query(ctx,
		`UPDATE alerts SET status = 'resolved', resolved_at = now()
		 WHERE monitor_id = $1 AND status = 'active'
		 RETURNING `+alertCols,
		monitorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resolved []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, *a)
	}
	return resolved, rows.Err()
}

func (db *DB) ListAlerts(ctx context.Context, f model.AlertFilter) ([]model.Alert, error) {
	where := ""
	args := []interface{}{}
	argN := 1

	if f.MonitorID != "" {
		where += fmt.Sprintf(" AND a.monitor_id = $%d", argN)
		args = append(args, f.MonitorID)
		argN++
	}
	if f.Status != "" {
		where += fmt.Sprintf(" AND a.status = $%d", argN)
		args = append(args, f.Status)
		argN++
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	args = append(args, limit)

	sql := fmt.Sprintf(`
		SELECT a.id, a.monitor_id, m.name, a.alert_type, a.message, a.status,
		       a.acknowledged, a.acknowledged_at, a.created_at, a.resolved_at
		FROM alerts a JOIN monitors m ON a.monitor_id = m.id
		WHERE 1=1%s ORDER BY a.created_at DESC LIMIT $%d`, where, argN)

	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(&a.ID, &a.MonitorID, &a.MonitorName, &a.Kind, &a.Message,
			&a.Status, &a.Acknowledged, &a.AcknowledgedAt, &a.CreatedAt, &a.ResolvedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (db *DB) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	var a model.Alert
	err := db.pool.QueryRow(ctx, `
		SELECT a.id, a.monitor_id, m.name, a.alert_type, a.message, a.status,
		       a.acknowledged, a.acknowledged_at, a.created_at, a.resolved_at
		FROM alerts a JOIN monitors m ON a.monitor_id = m.id
		WHERE a.id = $1`, id,
	).Scan(&a.ID, &a.MonitorID, &a.MonitorName, &a.Kind, &a.Message,
		&a.Status, &a.Acknowledged, &a.AcknowledgedAt, &a.CreatedAt, &a.ResolvedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AcknowledgeAlert marks an un-acked alert. Returns nil when the alert
// does not exist or was already acknowledged.
func (db *DB) AcknowledgeAlert(ctx context.Context, id string) (*model.Alert, error) {
	a, err := scanAlert(db.pool.QueryRow(ctx,
		`UPDATE alerts SET acknowledged = TRUE, acknowledged_at = now()
		 WHERE id = $1 AND acknowledged = FALSE
		 RETURNING `+alertCols,
		id,
	))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (db *DB) AlertStats(ctx context.Context, since time.Time) (*model.AlertStats, error) {
	var s model.AlertStats
	err := db.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'active'),
		       COUNT(*) FILTER (WHERE status = 'resolved'),
		       COUNT(*) FILTER (WHERE acknowledged)
		FROM alerts WHERE created_at > $1`, since,
	).Scan(&s.TotalAlerts, &s.ActiveAlerts, &s.ResolvedAlerts, &s.AcknowledgedAlerts)
	if err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx, `
		SELECT m.name, COUNT(*)
		FROM alerts a JOIN monitors m ON a.monitor_id = m.id
		WHERE a.created_at > $1
		GROUP BY m.name ORDER BY COUNT(*) DESC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var row model.MonitorAlertRow
		if err := rows.Scan(&row.MonitorName, &row.AlertCount); err != nil {
			return nil, err
		}
		s.ByMonitor = append(s.ByMonitor, row)
	}
	return &s, rows.Err()
}

// --- Resource samples ---

func (db *DB) AppendResourceSample(ctx context.Context, s *model.ResourceSample) error {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}
	row := db.pool.QueryRow(ctx,
		`INSERT INTO system_metrics
		 (cpu_percent, memory_percent, memory_used_gb, memory_total_gb,
		  disk_percent, disk_used_gb, disk_total_gb, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		s.CPUPercent, s.MemoryPercent, s.MemoryUsedGB, s.MemoryTotalGB,
		s.DiskPercent, s.DiskUsedGB, s.DiskTotalGB, s.Timestamp,
	)
	return row.Scan(&s.ID)
}

func (db *DB) ListResourceSamples(ctx context.Context, since time.Time, limit int) ([]model.ResourceSample, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, cpu_percent, memory_percent, memory_used_gb, memory_total_gb,
		        disk_percent, disk_used_gb, disk_total_gb, timestamp
		 FROM system_metrics WHERE timestamp > $1
		 ORDER BY timestamp DESC LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []model.ResourceSample
	for rows.Next() {
		var s model.ResourceSample
		if err := rows.Scan(&s.ID, &s.CPUPercent, &s.MemoryPercent, &s.MemoryUsedGB,
			&s.MemoryTotalGB, &s.DiskPercent, &s.DiskUsedGB, &s.DiskTotalGB, &s.Timestamp); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// --- Retention ---

func (db *DB) DeleteOutcomesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM metrics WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (db *DB) DeleteSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM system_metrics WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
