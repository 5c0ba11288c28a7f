package model

import "time"

// ResourceSample is one reading of host CPU/memory/disk utilization.
// Append-only; no alerting hangs off these.
type ResourceSample struct {
	ID            int64     `json:"id"`
	CPUPercent    float64   `json:"cpuPercent"`
	MemoryPercent float64   `json:"memoryPercent"`
	MemoryUsedGB  float64   `json:"memoryUsedGb"`
	MemoryTotalGB float64   `json:"memoryTotalGb"`
	DiskPercent   float64   `json:"diskPercent"`
	DiskUsedGB    float64   `json:"diskUsedGb"`
	DiskTotalGB   float64   `json:"diskTotalGb"`
	Timestamp     time.Time `json:"timestamp"`
}
