package model

import "time"

type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)

// AlertKind names the incident type. Only "down" is produced today.
type AlertKind string

const AlertDown AlertKind = "down"

// Alert is one open-or-closed incident for a monitor. At most one
// active alert may exist per monitor at any time; the store enforces
// that with a conditional insert.
type Alert struct {
	ID             string      `json:"id"`
	MonitorID      string      `json:"monitorId"`
	MonitorName    string      `json:"monitorName,omitempty"`
	Kind           AlertKind   `json:"alertType"`
	Message        string      `json:"message"`
	Status         AlertStatus `json:"status"`
	Acknowledged   bool        `json:"acknowledged"`
	AcknowledgedAt *time.Time  `json:"acknowledgedAt"`
	CreatedAt      time.Time   `json:"createdAt"`
	ResolvedAt     *time.Time  `json:"resolvedAt"`
}

// AlertFilter narrows alert list queries.
type AlertFilter struct {
	MonitorID string
	Status    string
	Limit     int
}

// AlertStats summarizes alert activity over a window.
type AlertStats struct {
	TotalAlerts        int               `json:"totalAlerts"`
	ActiveAlerts       int               `json:"activeAlerts"`
	ResolvedAlerts     int               `json:"resolvedAlerts"`
	AcknowledgedAlerts int               `json:"acknowledgedAlerts"`
	ByMonitor          []MonitorAlertRow `json:"byMonitor"`
}

type MonitorAlertRow struct {
	MonitorName string `json:"monitorName"`
	AlertCount  int    `json:"alertCount"`
}
