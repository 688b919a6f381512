package mission

import (
	"fmt"
	"slices"

	"github.com/harunnryd/cortex/internal/domain"
	cortexErrors "github.com/harunnryd/cortex/internal/errors"
)

var activeEditable = []string{"system_prompt", "model", "tools", "inputs", "outputs"}

var draftEditable = []string{"id", "role", "system_prompt", "model", "tools", "inputs", "outputs"}

// EditableFields lists the agent fields the editor may enable in state s.
func EditableFields(s State) []string {
	switch s {
	case StateDrafting:
		return slices.Clone(draftEditable)
	case StateActive:
		return slices.Clone(activeEditable)
	}
	return nil
}

// CheckAgentEdit validates replacing old with updated in state s.
func CheckAgentEdit(s State, old, updated domain.AgentManifest) error {
	switch s {
	case StateDrafting:
		return nil
	case StateActive:
		if old.ID != updated.ID {
			return cortexErrors.ImmutableField(fmt.Sprintf("agent id %s is read-only on an active mission", old.ID))
		}
		if old.Role.Normalize() != updated.Role.Normalize() {
			return cortexErrors.ImmutableField(fmt.Sprintf("agent %s role is read-only on an active mission", old.ID))
		}
		return nil
	}
	return cortexErrors.IllegalTransition(fmt.Sprintf("agents cannot be edited in state %s", s))
}

// CheckAgentDelete reports whether agents may be removed in state s.
func CheckAgentDelete(s State) error {
	if s == StateDrafting || s == StateActive {
		return nil
	}
	return cortexErrors.IllegalTransition(fmt.Sprintf("agents cannot be deleted in state %s", s))
}
