package profiling

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopCollector(t *testing.T) {
	c := Nop()

	called := false
	err := c.Phase(context.Background(), "anything", nil, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called, "phase body runs even without recording")

	c.AddCount(CountFields, 5)
	assert.Nil(t, c.Finish())
}

func TestEnabled(t *testing.T) {
	assert.Nil(t, Enabled("op", false).Finish())
	assert.NotNil(t, Enabled("op", true).Finish())
}

func TestCollectorRecordsPhases(t *testing.T) {
	c := New("form_detection")

	err := c.Phase(context.Background(), "fast", nil, func(context.Context) error {
		return nil
	})
	require.NoError(t, err)

	err = c.Phase(context.Background(), "slow", map[string]interface{}{"url": "https://example.com"}, func(context.Context) error {
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	phaseErr := fmt.Errorf("boom")
	err = c.Phase(context.Background(), "failing", nil, func(context.Context) error {
		return phaseErr
	})
	assert.Equal(t, phaseErr, err, "phase error passes through unchanged")

	c.AddCount(CountFields, 7)
	c.AddCount(CountScreenshots, 1)
	c.AddCount(CountScreenshots, 1)
	c.AddCount("unrelated", 99)

	data := c.Finish()
	require.NotNil(t, data)

	assert.Equal(t, "form_detection", data.Operation)
	assert.Greater(t, data.TotalDurationMs, 0.0)
	require.Len(t, data.Phases, 3)

	assert.True(t, data.Phases[0].Success)
	assert.False(t, data.Phases[2].Success, "failed phase is still recorded")
	assert.Equal(t, "https://example.com", data.Phases[1].Metadata["url"])
	assert.Contains(t, data.Phases[0].Metadata, "memory_delta_mb")

	assert.Equal(t, "slow", data.SlowestPhase)
	assert.GreaterOrEqual(t, data.SlowestPhaseMs, 20.0)

	assert.Equal(t, 7, data.FieldCount)
	assert.Equal(t, 2, data.ScreenshotCount)
}

func TestFormatReport(t *testing.T) {
	assert.Empty(t, FormatReport(nil))

	data := &Data{
		Operation:       "form_filling",
		TotalDurationMs: 100,
		FieldCount:      4,
		ScreenshotCount: 2,
		SlowestPhase:    "navigation",
		SlowestPhaseMs:  60,
		Phases: []Phase{
			{Name: "navigation", DurationMs: 60, Success: true},
			{Name: "submission", DurationMs: 40, Success: false},
		},
	}

	report := FormatReport(data)
	assert.Contains(t, report, "PROFILING REPORT")
	assert.Contains(t, report, "Bottleneck: navigation")
	assert.Contains(t, report, "Field Count: 4")
	assert.Contains(t, report, "[FAIL]")
}
