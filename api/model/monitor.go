package model

import "time"

// Monitor is a target under periodic observation. The checking engine
// only ever reads a snapshot of these fields; mutation happens through
// the management API.
type Monitor struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	URL            string    `json:"url"`
	Type           string    `json:"monitorType"` // http, https, api
	CheckInterval  int       `json:"checkInterval"`  // seconds
	TimeoutSeconds int       `json:"timeout"`        // seconds
	AlertThreshold int       `json:"alertThreshold"` // consecutive failures
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Timeout returns the probe timeout as a duration.
func (m *Monitor) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// MonitorUpdate is a typed partial update: nil fields are left
// untouched by the store.
type MonitorUpdate struct {
	Name           *string `json:"name"`
	URL            *string `json:"url"`
	Type           *string `json:"monitorType"`
	CheckInterval  *int    `json:"checkInterval"`
	TimeoutSeconds *int    `json:"timeout"`
	AlertThreshold *int    `json:"alertThreshold"`
	IsActive       *bool   `json:"isActive"`
}

// Empty reports whether the update touches no fields.
func (u *MonitorUpdate) Empty() bool {
	return u.Name == nil && u.URL == nil && u.Type == nil &&
		u.CheckInterval == nil && u.TimeoutSeconds == nil &&
		u.AlertThreshold == nil && u.IsActive == nil
}

// MonitorStatus is the live view embedded in monitor API responses.
type MonitorStatus struct {
	LatestOutcome *Outcome `json:"latestCheck"`
	Uptime24h     float64  `json:"uptime24h"`
	TotalChecks   int      `json:"totalChecks24h"`
}
