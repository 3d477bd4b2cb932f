// Package harmdown declares the contracts of the numerical harmonization and
// downscaling stages. The implementations live outside this module; the
// workflow driver consumes them through these interfaces only.
package harmdown

import (
	"context"

	"github.com/vk/emigrid/internal/config"
	"github.com/vk/emigrid/internal/region"
	"github.com/vk/emigrid/internal/table"
)

// Harmonizer reconciles model trajectories with aggregated history. The
// result carries one extra "method" index level naming the reconciliation
// method chosen per row.
type Harmonizer interface {
	Harmonize(ctx context.Context, model, hist, overrides *table.Table, settings *config.Settings) (*table.Table, error)
}

// Downscaler redistributes harmonized region totals onto countries using
// history and GDP. The result is country-indexed and keeps the "region" and
// "method" levels for bookkeeping.
type Downscaler interface {
	Downscale(ctx context.Context, harmonized, hist, gdp *table.Table, mapping *region.Mapping, settings *config.Settings) (*table.Table, error)
}
