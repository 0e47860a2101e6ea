package metrics

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostStats is a point-in-time view of the machine serving requests.
type HostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`
	ProcessRSS    uint64  `json:"process_rss_bytes"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
}

// CollectHostStats reads what the platform exposes. Readings it cannot take stay zero.
// diskPath is the volume uploads and backups are written to.
func CollectHostStats(ctx context.Context, diskPath string) HostStats {
	var s HostStats
	if p, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(p) > 0 {
		s.CPUPercent = p[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.MemoryPercent = vm.UsedPercent
	}
	if diskPath != "" {
		if du, err := disk.UsageWithContext(ctx, diskPath); err == nil {
			s.DiskPercent = du.UsedPercent
		}
	}
	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if mi, err := proc.MemoryInfoWithContext(ctx); err == nil {
			s.ProcessRSS = mi.RSS
		}
	}
	if up, err := host.UptimeWithContext(ctx); err == nil {
		s.UptimeSeconds = up
	}
	return s
}

// RegisterHostGauges exposes host memory and disk usage, sampled at scrape time.
func (m *Metrics) RegisterHostGauges(diskPath string) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "host_memory_used_percent",
			Help: "Host memory in use",
		}, func() float64 {
			vm, err := mem.VirtualMemory()
			if err != nil {
				return 0
			}
			return vm.UsedPercent
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "host_disk_used_percent",
			Help:        "Disk usage of the upload volume",
			ConstLabels: prometheus.Labels{"path": diskPath},
		}, func() float64 {
			du, err := disk.Usage(diskPath)
			if err != nil {
				return 0
			}
			return du.UsedPercent
		}),
	}
	for _, g := range gauges {
		if err := m.registry.Register(g); err != nil {
			return err
		}
	}
	return nil
}
