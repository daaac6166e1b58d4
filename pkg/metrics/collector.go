// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package metrics

import (
	"context"
	"runtime"
	"time"
)

// Collector samples Go runtime statistics into the resource gauges:
// goroutine count, heap and system memory, cumulative GC pause time, and
// process uptime.
type Collector struct {
	interval time.Duration
	started  time.Time
}

// NewCollector creates a collector sampling at the given interval. Intervals
// between 10 and 60 seconds are reasonable; sampling reads runtime.MemStats,
// which briefly stops the world.
func NewCollector(interval time.Duration) *Collector {
	return &Collector{
		interval: interval,
		started:  time.Now(),
	}
}

// Run samples immediately, then on every tick until ctx is cancelled. It
// blocks; run it in a goroutine or use StartCollector.
func (c *Collector) Run(ctx context.Context) {
	c.sample()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sample()
		}
	}
}

// sample publishes one round of runtime readings.
func (c *Collector) sample() {
	if !IsEnabled() {
		return
	}

	sampleRuntime()
	ServerUptime.Set(time.Since(c.started).Seconds())
}

// sampleRuntime updates the gauges derived from the Go runtime. Uptime is
// excluded: it is anchored to a collector's start time.
func sampleRuntime() {
	Goroutines.Set(float64(runtime.NumGoroutine()))

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	MemoryAllocBytes.Set(float64(memStats.Alloc))
	MemorySysBytes.Set(float64(memStats.Sys))
	GCPauseTotalSeconds.Set(float64(memStats.PauseTotalNs) / 1e9)
}

// CollectOnce performs a single runtime sample outside any periodic
// collection, for handlers that want fresh readings on demand.
func CollectOnce() {
	if !IsEnabled() {
		return
	}
	sampleRuntime()
}

// StartCollector creates a collector and runs it in the background. It stops
// when ctx is cancelled.
func StartCollector(ctx context.Context, interval time.Duration) *Collector {
	c := NewCollector(interval)
	go c.Run(ctx)
	return c
}
