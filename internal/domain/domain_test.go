package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentRoleNormalize(t *testing.T) {
	assert.Equal(t, RoleCognitive, AgentRole("Cognitive").Normalize())
	assert.Equal(t, RoleLedger, AgentRole(" ledger ").Normalize())
	assert.Equal(t, RoleOther, AgentRole("telepathic").Normalize())
	assert.Equal(t, RoleOther, AgentRole("").Normalize())
}

func TestServiceHealthNormalize(t *testing.T) {
	assert.Equal(t, HealthOnline, ServiceHealth("connected").Normalize())
	assert.Equal(t, HealthOffline, ServiceHealth("DOWN").Normalize())
	assert.Equal(t, HealthDegraded, ServiceHealth("warming").Normalize())
}

func TestTriggerGuardViolations(t *testing.T) {
	ok := TriggerRule{CooldownSeconds: 0, MaxDepth: 1, MaxActiveRuns: 1}
	assert.Empty(t, ok.GuardViolations())

	bad := TriggerRule{CooldownSeconds: -5, MaxDepth: 0, MaxActiveRuns: 0}
	assert.Len(t, bad.GuardViolations(), 3)
}

func TestGroupSensorsKeepsFirstSeenOrder(t *testing.T) {
	groups := GroupSensors([]SensorNode{
		{ID: "s1", Type: "weather"},
		{ID: "s2", Type: "email"},
		{ID: "s3", Type: "weather"},
	})

	if assert.Len(t, groups, 2) {
		assert.Equal(t, "weather", groups[0].Type)
		assert.Len(t, groups[0].Sensors, 2)
		assert.Equal(t, "email", groups[1].Type)
	}
}

func TestSignalKind(t *testing.T) {
	cases := map[string]SignalKind{
		"thought":           SignalThought,
		"cognitive":         SignalThought,
		"artifact":          SignalOutput,
		"output":            SignalOutput,
		"error":             SignalError,
		"tool.error":        SignalError,
		"governance_halt":   SignalGovernanceHalt,
		"approval.pending":  SignalApproval,
		"conversation.turn": SignalTurn,
		"scheduler.tick":    SignalOther,
	}
	for typ, want := range cases {
		assert.Equal(t, want, StreamSignal{Type: typ}.Kind(), typ)
	}
}

func TestBlueprintCloneIsDeep(t *testing.T) {
	bp := Blueprint{Teams: []Team{{Name: "a", Agents: []AgentManifest{{ID: "x", Tools: []string{"t"}}}}}}
	cp := bp.Clone()
	cp.Teams[0].Agents[0].Tools[0] = "changed"
	cp.Teams[0].Agents[0].ID = "y"

	assert.Equal(t, "t", bp.Teams[0].Agents[0].Tools[0])
	assert.Equal(t, "x", bp.Teams[0].Agents[0].ID)
	assert.Equal(t, 1, bp.AgentCount())
}

func TestChatRoleWireRole(t *testing.T) {
	assert.Equal(t, "user", ChatUser.WireRole())
	assert.Equal(t, "assistant", ChatCouncil.WireRole())
	assert.Equal(t, "assistant", ChatRole("mystery").WireRole())
}
