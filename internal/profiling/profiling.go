// Package profiling provides phase-scoped performance instrumentation for
// browser automation operations.
package profiling

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Phase records timing and outcome for one named sub-operation
type Phase struct {
	Name       string                 `json:"phaseName"`
	StartTime  time.Time              `json:"startTime"`
	EndTime    time.Time              `json:"endTime"`
	DurationMs float64                `json:"durationMs"`
	Success    bool                   `json:"success"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Data aggregates all phases of one detection or fill operation
type Data struct {
	Operation       string    `json:"operation"`
	TotalDurationMs float64   `json:"totalDurationMs"`
	Phases          []Phase   `json:"phases"`
	FieldCount      int       `json:"fieldCount"`
	ScreenshotCount int       `json:"screenshotCount"`
	PeakMemoryMB    float64   `json:"peakMemoryMb"`
	SlowestPhase    string    `json:"slowestPhase,omitempty"`
	SlowestPhaseMs  float64   `json:"slowestPhaseMs,omitempty"`
	ProfiledAt      time.Time `json:"profiledAt"`
}

// Collector is the scoped-acquisition wrapper applied around every
// instrumented phase. The no-op implementation keeps control flow identical
// when profiling is disabled.
type Collector interface {
	// Phase runs fn inside a profiled scope. The phase is recorded even when
	// fn returns an error; the error is passed through unchanged.
	Phase(ctx context.Context, name string, metadata map[string]interface{}, fn func(context.Context) error) error
	// AddCount increments an operation-specific counter ("field_count" or
	// "screenshot_count").
	AddCount(key string, n int)
	// Finish closes the collection and returns the aggregate, or nil for the
	// no-op collector.
	Finish() *Data
}

// phaseCollector is the recording Collector implementation
type phaseCollector struct {
	operation string
	started   time.Time
	proc      *process.Process

	mu              sync.Mutex
	phases          []Phase
	peakMemoryMB    float64
	fieldCount      int
	screenshotCount int
}

// New creates a recording collector for one operation
func New(operation string) Collector {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		proc = nil
	}
	return &phaseCollector{
		operation: operation,
		started:   time.Now(),
		proc:      proc,
	}
}

// Nop returns a collector that records nothing and finishes to nil
func Nop() Collector {
	return nopCollector{}
}

// Enabled returns a recording collector when enabled is true, the no-op
// collector otherwise.
func Enabled(operation string, enabled bool) Collector {
	if enabled {
		return New(operation)
	}
	return Nop()
}

func (c *phaseCollector) Phase(ctx context.Context, name string, metadata map[string]interface{}, fn func(context.Context) error) error {
	start := time.Now()
	memBefore := c.residentMemoryMB()

	err := fn(ctx)

	end := time.Now()
	memAfter := c.residentMemoryMB()

	meta := make(map[string]interface{}, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["memory_delta_mb"] = memAfter - memBefore

	c.mu.Lock()
	if memAfter > c.peakMemoryMB {
		c.peakMemoryMB = memAfter
	}
	c.phases = append(c.phases, Phase{
		Name:       name,
		StartTime:  start.UTC(),
		EndTime:    end.UTC(),
		DurationMs: float64(end.Sub(start)) / float64(time.Millisecond),
		Success:    err == nil,
		Metadata:   meta,
	})
	c.mu.Unlock()

	return err
}

func (c *phaseCollector) AddCount(key string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch key {
	case CountFields:
		c.fieldCount += n
	case CountScreenshots:
		c.screenshotCount += n
	}
}

// Counter keys recognized by AddCount
const (
	CountFields      = "field_count"
	CountScreenshots = "screenshot_count"
)

func (c *phaseCollector) Finish() *Data {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := &Data{
		Operation:       c.operation,
		TotalDurationMs: float64(time.Since(c.started)) / float64(time.Millisecond),
		Phases:          c.phases,
		FieldCount:      c.fieldCount,
		ScreenshotCount: c.screenshotCount,
		PeakMemoryMB:    c.peakMemoryMB,
		ProfiledAt:      time.Now().UTC(),
	}

	for _, p := range c.phases {
		if p.DurationMs > data.SlowestPhaseMs {
			data.SlowestPhase = p.Name
			data.SlowestPhaseMs = p.DurationMs
		}
	}

	return data
}

// residentMemoryMB samples the process RSS. Returns 0 when the process
// handle is unavailable (sandboxed environments).
func (c *phaseCollector) residentMemoryMB() float64 {
	if c.proc == nil {
		return 0
	}
	info, err := c.proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return float64(info.RSS) / 1024 / 1024
}

type nopCollector struct{}

func (nopCollector) Phase(ctx context.Context, _ string, _ map[string]interface{}, fn func(context.Context) error) error {
	return fn(ctx)
}

func (nopCollector) AddCount(string, int) {}

func (nopCollector) Finish() *Data { return nil }
