package sysinfo

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"vigil/api/model"
)

const gb = 1024 * 1024 * 1024

// Sampler reads host CPU, memory and disk utilization.
type Sampler struct {
	DiskPath    string        // mount point to measure, default "/"
	CPUInterval time.Duration // cpu.Percent sampling window, default 1s
}

func New() *Sampler {
	return &Sampler{DiskPath: "/", CPUInterval: time.Second}
}

// Sample takes one reading. The CPU figure is averaged over CPUInterval,
// so a call blocks for that long.
func (s *Sampler) Sample() (*model.ResourceSample, error) {
	cpuPercents, err := cpu.Percent(s.CPUInterval, false)
	if err != nil {
		return nil, fmt.Errorf("cpu: %w", err)
	}
	var cpuPercent float64
	if len(cpuPercents) > 0 {
		cpuPercent = cpuPercents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}

	du, err := disk.Usage(s.DiskPath)
	if err != nil {
		return nil, fmt.Errorf("disk %s: %w", s.DiskPath, err)
	}

	return &model.ResourceSample{
		CPUPercent:    round2(cpuPercent),
		MemoryPercent: round2(vm.UsedPercent),
		MemoryUsedGB:  round2(float64(vm.Used) / gb),
		MemoryTotalGB: round2(float64(vm.Total) / gb),
		DiskPercent:   round2(du.UsedPercent),
		DiskUsedGB:    round2(float64(du.Used) / gb),
		DiskTotalGB:   round2(float64(du.Total) / gb),
		Timestamp:     time.Now(),
	}, nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
