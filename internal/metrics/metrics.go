// Package metrics reports process and host resource usage and provides a
// small helper for timing pipeline stages.
package metrics

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"tome/internal/logger"
)

// Snapshot captures resource usage at a point in time.
type Snapshot struct {
	ProcessRSS  uint64  // resident memory of this process, bytes
	TotalMemory uint64  // host physical memory, bytes
	UsedMemory  uint64  // host memory in use, bytes
	MemoryPct   float64 // host memory usage, percent
	CPUPct      float64 // host CPU usage since the last sample, percent
}

// Collect gathers a usage snapshot. Fields that cannot be read are left
// zero; only a total failure returns an error.
func Collect() (Snapshot, error) {
	var s Snapshot

	vm, vmErr := mem.VirtualMemory()
	if vmErr == nil {
		s.TotalMemory = vm.Total
		s.UsedMemory = vm.Used
		s.MemoryPct = vm.UsedPercent
	}

	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		s.CPUPct = pcts[0]
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := proc.MemoryInfo(); err == nil {
			s.ProcessRSS = mi.RSS
		}
	}

	if vmErr != nil && s.ProcessRSS == 0 {
		return s, fmt.Errorf("collect metrics: %w", vmErr)
	}
	return s, nil
}

// FormatBytes renders a byte count in a human-readable unit.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

// Timer measures a named stage and logs its duration in verbose mode.
type Timer struct {
	name  string
	start time.Time
}

// Start begins timing a named stage.
func Start(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop ends the timer, logs the elapsed time, and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	logger.Debug("%s took %s", t.name, elapsed.Round(time.Millisecond))
	return elapsed
}
