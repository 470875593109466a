package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats сведения о процессе сервера для /api/stats
type ProcessStats struct {
	start time.Time
	proc  *process.Process
}

// ProcessSnapshot снимок состояния процесса
type ProcessSnapshot struct {
	Uptime        string  `json:"uptime"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	RSSMB         float64 `json:"rss_mb,omitempty"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	SysMB         float64 `json:"sys_mb"`
	NumGC         uint32  `json:"num_gc"`
	Goroutines    int     `json:"goroutines"`
}

// NewProcessStats запоминает момент старта. Без доступа к /proc
// снимок обходится без CPU и RSS процесса.
func NewProcessStats() *ProcessStats {
	ps := &ProcessStats{start: time.Now()}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		ps.proc = p
	}
	return ps
}

// Snapshot собирает метрики; ошибки gopsutil не фатальны
func (ps *ProcessStats) Snapshot() ProcessSnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	up := time.Since(ps.start)
	snap := ProcessSnapshot{
		Uptime:        formatUptime(up),
		UptimeSeconds: int64(up.Seconds()),
		HeapAllocMB:   float64(m.HeapAlloc) / 1024 / 1024,
		SysMB:         float64(m.Sys) / 1024 / 1024,
		NumGC:         m.NumGC,
		Goroutines:    runtime.NumGoroutine(),
	}
	snap.CPUPercent = ps.cpuPercent()
	if ps.proc != nil {
		if mem, err := ps.proc.MemoryInfo(); err == nil {
			snap.RSSMB = float64(mem.RSS) / 1024 / 1024
		}
	}
	return snap
}

func (ps *ProcessStats) cpuPercent() float64 {
	if ps.proc != nil {
		if v, err := ps.proc.CPUPercent(); err == nil {
			return v
		}
	}
	// без метрики процесса берём системную
	if v, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(v) > 0 {
		return v[0]
	}
	return 0
}

// formatUptime "1д 2ч 3м 4с" без ведущих нулевых разрядов
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	}
	return fmt.Sprintf("%dс", seconds)
}
