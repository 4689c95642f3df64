// Package stats contains reaction-time calculations and reporting.
package stats

import (
	"sort"

	"github.com/verte-zerg/keyrec/internal/model"
)

// SelectSlowKeys selects the keys with the highest mean RT. Keys with no
// correct trials count as slowest.
func SelectSlowKeys(aggs []model.KeyAggregate, top int) map[string]struct{} {
	slowSet := map[string]struct{}{}
	if len(aggs) == 0 {
		return slowSet
	}
	candidates := make([]model.KeyAggregate, len(aggs))
	copy(candidates, aggs)
	sort.Slice(candidates, func(i, j int) bool {
		si, sj := slowness(candidates[i]), slowness(candidates[j])
		if si == sj {
			return candidates[i].Key < candidates[j].Key
		}
		return si > sj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	for i := 0; i < top; i++ {
		slowSet[candidates[i].Key] = struct{}{}
	}
	return slowSet
}

func slowness(agg model.KeyAggregate) int64 {
	if agg.RTCount == 0 {
		return 1<<62 - 1
	}
	return agg.RTSumUs / agg.RTCount
}
