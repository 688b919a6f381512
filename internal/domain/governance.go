package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type PendingApproval struct {
	ID             string     `json:"id"`
	SourceAgent    string     `json:"source_agent"`
	TeamID         string     `json:"team_id"`
	Reason         string     `json:"reason"`
	Intent         string     `json:"intent"`
	PayloadSummary string     `json:"payload_summary,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) Normalize() RiskLevel {
	switch RiskLevel(strings.ToLower(string(r))) {
	case RiskLow:
		return RiskLow
	case RiskHigh, "critical":
		return RiskHigh
	default:
		return RiskMedium
	}
}

type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalConfirmed ProposalStatus = "confirmed"
	ProposalCancelled ProposalStatus = "cancelled"
)

// Proposal is an action attached to a chat reply. It does nothing until
// confirmed.
type Proposal struct {
	ConfirmToken string         `json:"confirm_token"`
	Intent       string         `json:"intent,omitempty"`
	RiskLevel    RiskLevel      `json:"risk_level"`
	Tools        []string       `json:"tools,omitempty"`
	Teams        int            `json:"teams,omitempty"`
	Agents       int            `json:"agents,omitempty"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
	Status       ProposalStatus `json:"-"`
}

type TriggerMode string

const (
	TriggerPropose     TriggerMode = "propose"
	TriggerAutoExecute TriggerMode = "auto_execute"
)

// Normalize falls back to propose, the mode that cannot act on its own.
func (m TriggerMode) Normalize() TriggerMode {
	if TriggerMode(strings.ToLower(string(m))) == TriggerAutoExecute {
		return TriggerAutoExecute
	}
	return TriggerPropose
}

type TriggerRule struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	EventPattern    string          `json:"event_pattern"`
	Condition       json.RawMessage `json:"condition,omitempty"`
	TargetMissionID string          `json:"target_mission_id"`
	Mode            TriggerMode     `json:"mode"`
	CooldownSeconds int             `json:"cooldown_seconds"`
	MaxDepth        int             `json:"max_depth"`
	MaxActiveRuns   int             `json:"max_active_runs"`
	IsActive        bool            `json:"is_active"`
	LastFiredAt     *time.Time      `json:"last_fired_at,omitempty"`
}

// GuardViolations lists guard values the server will reject. The client
// only shows them; it does not block a save.
func (r TriggerRule) GuardViolations() []string {
	var out []string
	if r.CooldownSeconds < 0 {
		out = append(out, fmt.Sprintf("cooldown_seconds must be >= 0 (got %d)", r.CooldownSeconds))
	}
	if r.MaxDepth < 1 {
		out = append(out, fmt.Sprintf("max_depth must be >= 1 (got %d)", r.MaxDepth))
	}
	if r.MaxActiveRuns < 1 {
		out = append(out, fmt.Sprintf("max_active_runs must be >= 1 (got %d)", r.MaxActiveRuns))
	}
	return out
}
