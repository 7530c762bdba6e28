package model

import "time"

// SystemStatus is a snapshot of the image service host utilization. Every poll
// produces a new value that replaces the previous one.
type SystemStatus struct {
	CPU       CPUStatus
	Memory    MemoryStatus
	GPU       *GPUStatus
	Disk      *DiskStatus
	Timestamp time.Time
}

// CPUStatus is the CPU utilization.
type CPUStatus struct {
	Cores        int
	FrequencyMHz float64
	UsagePercent float64
}

// MemoryStatus is the RAM utilization.
type MemoryStatus struct {
	UsedGB       float64
	TotalGB      float64
	AvailableGB  float64
	UsagePercent float64
}

// GPUStatus is the GPU utilization, values are only meaningful when Available is true.
type GPUStatus struct {
	Available     bool
	Name          string
	UsagePercent  float64
	MemoryUsedGB  float64
	MemoryTotalGB float64
	TemperatureC  float64
}

// MemoryUsagePercent returns the GPU memory usage percentage.
func (g GPUStatus) MemoryUsagePercent() float64 {
	if g.MemoryTotalGB <= 0 {
		return 0
	}
	return g.MemoryUsedGB / g.MemoryTotalGB * 100
}

// DiskStatus is the image storage disk utilization.
type DiskStatus struct {
	Path         string
	TotalGB      float64
	UsedGB       float64
	FreeGB       float64
	UsagePercent float64
}
