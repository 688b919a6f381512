package cache

import (
	"sort"

	"github.com/harunnryd/cortex/internal/domain"
)

// Activity orders signals for the feed: newest timestamp first. Signals
// without a timestamp keep their arrival position relative to each other
// and sort after timestamped ones.
func Activity(signals []domain.StreamSignal) []domain.StreamSignal {
	out := make([]domain.StreamSignal, len(signals))
	copy(out, signals)
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].Time(), out[j].Time()
		if ti.IsZero() || tj.IsZero() {
			return !ti.IsZero() && tj.IsZero()
		}
		return ti.After(tj)
	})
	return out
}
