// Package sysinfo reads the local host utilization.
package sysinfo

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/slok/zimg/internal/log"
	"github.com/slok/zimg/internal/model"
)

const gb = 1 << 30

// ProviderConfig is the configuration of the provider.
type ProviderConfig struct {
	// DiskPath is the path whose filesystem usage is reported.
	DiskPath string
	// CPUSampleInterval is the CPU usage sampling window, 0 compares against the previous call.
	CPUSampleInterval time.Duration
	TimeNow           func() time.Time
	Logger            log.Logger
}

func (c *ProviderConfig) defaults() error {
	if c.DiskPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("could not get working directory: %w", err)
		}
		c.DiskPath = wd
	}

	if c.CPUSampleInterval < 0 {
		return fmt.Errorf("cpu sample interval can't be negative")
	}

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "sysinfo.Provider"})

	return nil
}

// Provider reports the host CPU, memory and disk usage. GPUs are not probed, they are
// reported as unavailable.
type Provider struct {
	diskPath       string
	sampleInterval time.Duration
	timeNow        func() time.Time
	logger         log.Logger
}

// NewProvider returns a new host status provider.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Provider{
		diskPath:       cfg.DiskPath,
		sampleInterval: cfg.CPUSampleInterval,
		timeNow:        cfg.TimeNow,
		logger:         cfg.Logger,
	}, nil
}

// SystemStatus returns the current host status.
func (p *Provider) SystemStatus(ctx context.Context) (*model.SystemStatus, error) {
	status := &model.SystemStatus{
		GPU:       &model.GPUStatus{Available: false},
		Timestamp: p.timeNow().UTC(),
	}

	pcts, err := cpu.PercentWithContext(ctx, p.sampleInterval, false)
	if err != nil {
		return nil, fmt.Errorf("could not get cpu usage: %w", err)
	}
	if len(pcts) > 0 {
		status.CPU.UsagePercent = round1(pcts[0])
	}

	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("could not get cpu count: %w", err)
	}
	status.CPU.Cores = cores

	// Frequency is not available on every platform.
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		p.logger.Debugf("Could not get cpu info: %s", err)
	} else if len(infos) > 0 {
		status.CPU.FrequencyMHz = infos[0].Mhz
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get memory usage: %w", err)
	}
	status.Memory = model.MemoryStatus{
		UsedGB:       toGB(vm.Used),
		TotalGB:      toGB(vm.Total),
		AvailableGB:  toGB(vm.Available),
		UsagePercent: round1(vm.UsedPercent),
	}

	du, err := disk.UsageWithContext(ctx, p.diskPath)
	if err != nil {
		p.logger.Warningf("Could not get disk usage of %s: %s", p.diskPath, err)
	} else {
		status.Disk = &model.DiskStatus{
			Path:         du.Path,
			TotalGB:      toGB(du.Total),
			UsedGB:       toGB(du.Used),
			FreeGB:       toGB(du.Free),
			UsagePercent: round1(du.UsedPercent),
		}
	}

	return status, nil
}

func toGB(b uint64) float64 { return round2(float64(b) / gb) }

func round1(f float64) float64 { return float64(int64(f*10+0.5)) / 10 }

func round2(f float64) float64 { return float64(int64(f*100+0.5)) / 100 }
