package domain

import (
	"encoding/json"
	"strings"
	"time"
)

type TurnRole string

const (
	TurnUser         TurnRole = "user"
	TurnAssistant    TurnRole = "assistant"
	TurnTool         TurnRole = "tool"
	TurnSystem       TurnRole = "system"
	TurnInterjection TurnRole = "interjection"
)

func (r TurnRole) Normalize() TurnRole {
	switch TurnRole(strings.ToLower(string(r))) {
	case TurnUser:
		return TurnUser
	case TurnTool:
		return TurnTool
	case TurnSystem:
		return TurnSystem
	case TurnInterjection:
		return TurnInterjection
	default:
		return TurnAssistant
	}
}

type ConversationTurn struct {
	ID             string          `json:"id"`
	RunID          string          `json:"run_id"`
	SessionID      string          `json:"session_id,omitempty"`
	AgentID        string          `json:"agent_id"`
	TeamID         string          `json:"team_id,omitempty"`
	TurnIndex      int             `json:"turn_index"`
	Role           TurnRole        `json:"role"`
	Content        string          `json:"content"`
	ProviderID     string          `json:"provider_id,omitempty"`
	ModelUsed      string          `json:"model_used,omitempty"`
	ToolName       string          `json:"tool_name,omitempty"`
	ToolArgs       json.RawMessage `json:"tool_args,omitempty"`
	ParentTurnID   string          `json:"parent_turn_id,omitempty"`
	ConsultationOf string          `json:"consultation_of,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
