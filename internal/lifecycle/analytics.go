package lifecycle

import (
	"context"

	apperrors "github.com/form-autopilot/internal/errors"
	"github.com/form-autopilot/internal/storage"
)

// ProfilingStats aggregates attempt durations across profiled records
type ProfilingStats struct {
	Count         int     `json:"count"`
	MinDurationMs float64 `json:"minDurationMs"`
	AvgDurationMs float64 `json:"avgDurationMs"`
	MaxDurationMs float64 `json:"maxDurationMs"`
}

// ProfilingStats computes duration aggregates over all application records
// that carry profiling data, optionally filtered. Records filled with
// profiling disabled are excluded.
func (m *Manager) ProfilingStats(ctx context.Context, filters *storage.ApplicationFilters) (*ProfilingStats, error) {
	records, err := m.applications.List(ctx, filters)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list application records", err)
	}

	stats := &ProfilingStats{}
	var total float64
	for _, rec := range records {
		if rec.Profiling == nil {
			continue
		}
		d := rec.Profiling.TotalDurationMs
		if stats.Count == 0 || d < stats.MinDurationMs {
			stats.MinDurationMs = d
		}
		if d > stats.MaxDurationMs {
			stats.MaxDurationMs = d
		}
		total += d
		stats.Count++
	}
	if stats.Count > 0 {
		stats.AvgDurationMs = total / float64(stats.Count)
	}
	return stats, nil
}
