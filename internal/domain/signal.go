package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// StreamSignal is one message from the live event stream.
type StreamSignal struct {
	Type      string          `json:"type"`
	Source    string          `json:"source,omitempty"`
	Level     string          `json:"level,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Topic     string          `json:"topic,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Time parses Timestamp, returning the zero time when it is absent or invalid.
func (s StreamSignal) Time() time.Time {
	if s.Timestamp == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

type SignalKind string

const (
	SignalThought        SignalKind = "thought"
	SignalOutput         SignalKind = "output"
	SignalError          SignalKind = "error"
	SignalGovernanceHalt SignalKind = "governance_halt"
	SignalApproval       SignalKind = "approval"
	SignalTurn           SignalKind = "turn"
	SignalOther          SignalKind = "other"
)

// Kind folds the backend's signal type vocabulary into the kinds the
// console reacts to.
func (s StreamSignal) Kind() SignalKind {
	t := strings.ToLower(s.Type)
	switch {
	case t == "thought" || t == "cognitive" || strings.HasPrefix(t, "agent.thinking"):
		return SignalThought
	case t == "artifact" || t == "output" || t == "artifact.created" || strings.HasPrefix(t, "agent.output"):
		return SignalOutput
	case t == "error" || strings.HasSuffix(t, ".error"):
		return SignalError
	case t == "governance_halt":
		return SignalGovernanceHalt
	case strings.HasPrefix(t, "approval.") || strings.HasPrefix(t, "governance."):
		return SignalApproval
	case t == "conversation.turn":
		return SignalTurn
	default:
		return SignalOther
	}
}

type EventType string

const (
	EventMissionStarted   EventType = "mission.started"
	EventMissionCompleted EventType = "mission.completed"
	EventMissionFailed    EventType = "mission.failed"
	EventMissionCancelled EventType = "mission.cancelled"
)

// MissionEvent is one entry of a run's event timeline.
type MissionEvent struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	TenantID  string          `json:"tenant_id,omitempty"`
	Type      EventType       `json:"event_type"`
	Severity  string          `json:"severity,omitempty"`
	Source    string          `json:"source_agent,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled:
		return true
	}
	return false
}
