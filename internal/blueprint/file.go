package blueprint

import (
	"fmt"
	"os"

	"github.com/harunnryd/cortex/internal/domain"
	cortexErrors "github.com/harunnryd/cortex/internal/errors"
	"github.com/harunnryd/cortex/internal/pathutil"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML blueprint.
func LoadFile(path string) (domain.Blueprint, error) {
	resolved, err := pathutil.Expand(path)
	if err != nil {
		return domain.Blueprint{}, cortexErrors.InvalidInput(err.Error())
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return domain.Blueprint{}, fmt.Errorf("read blueprint %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (domain.Blueprint, error) {
	var bp domain.Blueprint
	if err := yaml.Unmarshal(data, &bp); err != nil {
		return domain.Blueprint{}, cortexErrors.InvalidInput(fmt.Sprintf("parse blueprint: %v", err))
	}
	for ti, t := range bp.Teams {
		if TeamKey(t) == "" {
			return domain.Blueprint{}, cortexErrors.InvalidInput(fmt.Sprintf("team %d has neither id nor name", ti))
		}
		for ai, a := range t.Agents {
			if a.ID == "" {
				return domain.Blueprint{}, cortexErrors.InvalidInput(fmt.Sprintf("team %s agent %d has no id", TeamKey(t), ai))
			}
		}
	}
	if err := CheckTeamKeys(bp); err != nil {
		return domain.Blueprint{}, err
	}
	return bp, nil
}

// CheckTeamKeys rejects blueprints where two teams resolve to the same
// key, since their group nodes would share an id.
func CheckTeamKeys(bp domain.Blueprint) error {
	seen := make(map[string]int, len(bp.Teams))
	for i, t := range bp.Teams {
		key := TeamKey(t)
		if prev, ok := seen[key]; ok {
			return cortexErrors.Conflict(fmt.Sprintf("teams %d and %d share key %q", prev, i, key))
		}
		seen[key] = i
	}
	return nil
}
