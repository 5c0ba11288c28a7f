package model

import "time"

// Outcome is one probe result. Rows are append-only; LatencyMs and
// StatusCode are nil when the probe never got a response.
type Outcome struct {
	ID         int64     `json:"id"`
	MonitorID  string    `json:"monitorId"`
	StatusCode *int      `json:"statusCode"`
	LatencyMs  *float64  `json:"responseTimeMs"`
	Up         bool      `json:"isUp"`
	Error      *string   `json:"errorMessage"`
	Timestamp  time.Time `json:"timestamp"`
}

// OutcomeFilter narrows outcome queries from the metrics API.
type OutcomeFilter struct {
	MonitorID string
	Start     *time.Time
	End       *time.Time
	Limit     int
}

// OutcomeSummary aggregates a window of outcomes for one or all monitors.
type OutcomeSummary struct {
	TotalChecks      int      `json:"totalChecks"`
	SuccessfulChecks int      `json:"successfulChecks"`
	FailedChecks     int      `json:"failedChecks"`
	UptimePercent    float64  `json:"uptimePercent"`
	AvgLatencyMs     *float64 `json:"avgResponseTimeMs"`
	MinLatencyMs     *float64 `json:"minResponseTimeMs"`
	MaxLatencyMs     *float64 `json:"maxResponseTimeMs"`
}

// UptimeEntry is one row of the per-monitor uptime report.
type UptimeEntry struct {
	MonitorID        string   `json:"monitorId"`
	MonitorName      string   `json:"monitorName"`
	TotalChecks      int      `json:"totalChecks"`
	SuccessfulChecks int      `json:"successfulChecks"`
	UptimePercent    float64  `json:"uptimePercent"`
	AvgLatencyMs     *float64 `json:"avgResponseTimeMs"`
}
