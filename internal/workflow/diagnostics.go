package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vk/emigrid/internal/ctxlog"
	"github.com/vk/emigrid/internal/table"
)

// uncoveredThreshold is the relative share of base-year history outside a
// group's proxy coverage above which the diagnostic escalates to WARN.
const uncoveredThreshold = 0.01

// uncoveredTolerance absorbs float noise in the threshold comparison.
const uncoveredTolerance = 1e-6

// logUncoveredHistory compares total against covered historical emissions at
// the base year per (gas, sector, unit). Observability only; coverage gaps
// are handled by zero-fill, never by control flow.
func logUncoveredHistory(ctx context.Context, hist, histAgg *table.Table, threshold float64, baseYear int) {
	logger := ctxlog.FromContext(ctx)
	levels := []string{"gas", "sector", "unit"}

	total := hist.Exclude("country", "World").GroupSum(levels...)
	covered := histAgg.GroupSum(levels...)

	totalCol, ok := total.Column(baseYear)
	if !ok {
		return
	}
	coveredAt := make(map[string]float64, covered.Len())
	if col, ok := covered.Column(baseYear); ok {
		for i := 0; i < covered.Len(); i++ {
			coveredAt[strings.Join(covered.Key(i), "\x1f")] = col[i]
		}
	}

	type stat struct {
		gas, sector, unit string
		uncovered, rel    float64
	}
	stats := make([]stat, 0, total.Len())
	level := slog.LevelInfo
	for i := 0; i < total.Len(); i++ {
		key := total.Key(i)
		c, haveCovered := coveredAt[strings.Join(key, "\x1f")]
		uncovered := totalCol[i] - c
		rel := 0.0
		if totalCol[i] != 0 {
			rel = uncovered / totalCol[i]
		}
		stats = append(stats, stat{key[0], key[1], key[2], uncovered, rel})
		// Buckets with no aggregated counterpart at all are reported but
		// never escalate; their output is structurally zero-filled.
		if haveCovered && uncovered > threshold*totalCol[i]+uncoveredTolerance {
			level = slog.LevelWarn
		}
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].rel > stats[j].rel })

	var b strings.Builder
	b.WriteString("Historical emissions in countries missing from proxy:")
	for _, s := range stats {
		fmt.Fprintf(&b, "\n%s::%s - %.2f %s (%.1f%%)", s.gas, s.sector, s.uncovered, s.unit, s.rel*100)
	}
	logger.Log(ctx, level, b.String())
}
