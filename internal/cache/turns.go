package cache

import (
	"sort"

	"github.com/harunnryd/cortex/internal/domain"
)

// mergeTurns returns existing plus incoming with duplicates replaced by the
// incoming copy, sorted by turn_index. Turns match on id; when either side
// has no id they match on turn_index, and a known id is kept.
func mergeTurns(existing, incoming []domain.ConversationTurn) []domain.ConversationTurn {
	out := make([]domain.ConversationTurn, 0, len(existing)+len(incoming))
	byID := make(map[string]int)
	atIndex := make(map[int]int)
	anonymous := make(map[int]int)

	for _, list := range [][]domain.ConversationTurn{existing, incoming} {
		for _, t := range list {
			t.Role = t.Role.Normalize()
			pos := -1
			if t.ID != "" {
				if i, ok := byID[t.ID]; ok {
					pos = i
				} else if i, ok := anonymous[t.TurnIndex]; ok {
					pos = i
					delete(anonymous, t.TurnIndex)
				}
			} else if i, ok := atIndex[t.TurnIndex]; ok {
				pos = i
				t.ID = out[i].ID
			}

			if pos < 0 {
				pos = len(out)
				out = append(out, t)
			} else {
				out[pos] = t
			}
			atIndex[t.TurnIndex] = pos
			if t.ID != "" {
				byID[t.ID] = pos
			} else {
				anonymous[t.TurnIndex] = pos
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TurnIndex < out[j].TurnIndex
	})
	return out
}
