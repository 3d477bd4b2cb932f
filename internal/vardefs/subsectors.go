package vardefs

import (
	"strings"

	"github.com/vk/emigrid/internal/table"
)

// ShortSector returns the parent sector of a sub-sector code, i.e. the part
// before the first "|". Proxy weights are keyed by parent sector, so
// "Energy Sector|Modelled" shares the weights of "Energy Sector".
func ShortSector(sector string) string {
	sector, _, _ = strings.Cut(sector, "|")
	return sector
}

// AggregateSubsectors merges sub-sector rows into their parent sector,
// summing payloads of rows that collapse onto the same key. Tables without
// sub-sector rows come back unchanged in content.
func AggregateSubsectors(t *table.Table) *table.Table {
	relabeled := table.New(t.Levels(), t.Years())
	for i := 0; i < t.Len(); i++ {
		key := t.Key(i)
		for li, level := range t.Levels() {
			if level == "sector" {
				key[li] = ShortSector(key[li])
			}
		}
		relabeled.AddRow(key, t.Row(i))
	}
	return relabeled.GroupSum(relabeled.Levels()...)
}
