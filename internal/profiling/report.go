package profiling

import (
	"fmt"
	"sort"
	"strings"
)

// FormatReport renders profiling data as a human-readable CLI report
func FormatReport(data *Data) string {
	if data == nil {
		return ""
	}

	var b strings.Builder
	line := strings.Repeat("=", 70)

	b.WriteString("\n" + line + "\n")
	b.WriteString("PROFILING REPORT\n")
	b.WriteString(line + "\n")
	fmt.Fprintf(&b, "Total Duration: %.2f ms\n", data.TotalDurationMs)

	if data.PeakMemoryMB > 0 {
		fmt.Fprintf(&b, "Peak Memory: %.2f MB\n", data.PeakMemoryMB)
	}

	fmt.Fprintf(&b, "Field Count: %d\n", data.FieldCount)
	fmt.Fprintf(&b, "Screenshot Count: %d\n", data.ScreenshotCount)

	if data.SlowestPhase != "" {
		fmt.Fprintf(&b, "\nBottleneck: %s (%.2f ms)\n", data.SlowestPhase, data.SlowestPhaseMs)
	}

	b.WriteString("\nPHASE BREAKDOWN:\n")
	b.WriteString(strings.Repeat("-", 70) + "\n")
	fmt.Fprintf(&b, "%-35s %-15s %-15s\n", "Phase", "Duration (ms)", "% of Total")
	b.WriteString(strings.Repeat("-", 70) + "\n")

	phases := make([]Phase, len(data.Phases))
	copy(phases, data.Phases)
	sort.Slice(phases, func(i, j int) bool {
		return phases[i].DurationMs > phases[j].DurationMs
	})

	for _, p := range phases {
		percent := 0.0
		if data.TotalDurationMs > 0 {
			percent = p.DurationMs / data.TotalDurationMs * 100
		}
		status := "[OK]"
		if !p.Success {
			status = "[FAIL]"
		}
		fmt.Fprintf(&b, "%-35s %10.2f ms   %6.1f%% %s\n", p.Name, p.DurationMs, percent, status)
	}

	b.WriteString(line + "\n")
	return b.String()
}
