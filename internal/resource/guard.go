// Package resource gives the subsystem threads in internal/threads and
// internal/broker a host-aware on_overload trigger: a Guard samples CPU
// utilization via gopsutil and exposes a boolean the broker Service's
// accept loop and the oscillator thread can consult. Grounded on
// ResourceGuard (internal/shared/limits/resource_guard.go) and its
// gopsutil host-CPU fallback (internal/single/platform/cgroup_cpu.go's
// GetPercent).
package resource

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/metrics"
)

// Guard samples host CPU utilization on demand and answers whether the
// broker Service should reject new connections or an oscillator-driven
// thread should treat itself as overloaded.
type Guard struct {
	rejectThreshold float64
	pauseThreshold  float64
	sampleWindow    time.Duration
	logger          logging.Logger

	currentPercent atomic.Uint64 // math.Float64bits
}

// NewGuard builds a Guard with the given reject/pause thresholds
// (percentages, 0-100) and the sample window passed to cpu.Percent.
func NewGuard(rejectThreshold, pauseThreshold float64, sampleWindow time.Duration, logger logging.Logger) *Guard {
	return &Guard{
		rejectThreshold: rejectThreshold,
		pauseThreshold:  pauseThreshold,
		sampleWindow:    sampleWindow,
		logger:          logger,
	}
}

// Sample blocks for g.sampleWindow measuring host CPU utilization and
// records the result. Intended to be called periodically from a
// dedicated thread (spec.md §4.G's oscillator is a natural driver).
func (g *Guard) Sample() error {
	percents, err := cpu.Percent(g.sampleWindow, false)
	if err != nil {
		g.logger.Error("resource: cpu sample failed", map[string]any{"error": err.Error()})
		return err
	}
	if len(percents) == 0 {
		return nil
	}
	g.store(percents[0])
	metrics.ResourceCPUPercent.Set(percents[0])
	return nil
}

func (g *Guard) store(percent float64) {
	g.currentPercent.Store(math.Float64bits(percent))
}

// CurrentPercent returns the most recently sampled CPU percentage.
func (g *Guard) CurrentPercent() float64 {
	return math.Float64frombits(g.currentPercent.Load())
}

// ShouldRejectConnections reports whether the broker Service's accept
// loop should reject new connections because CPU is over the reject
// threshold.
func (g *Guard) ShouldRejectConnections() bool {
	return g.CurrentPercent() > g.rejectThreshold
}

// Overloaded reports whether the current sample exceeds the pause
// threshold, the signal an oscillator thread's on_overload hook acts on
// (spec.md §4.G).
func (g *Guard) Overloaded() bool {
	return g.CurrentPercent() > g.pauseThreshold
}
