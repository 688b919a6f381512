package domain

import (
	"strings"
	"time"
)

type MissionStatus string

const (
	MissionActive    MissionStatus = "active"
	MissionCompleted MissionStatus = "completed"
	MissionFailed    MissionStatus = "failed"
)

// Normalize maps unknown wire values to active so a mission is never hidden.
func (s MissionStatus) Normalize() MissionStatus {
	switch MissionStatus(strings.ToLower(string(s))) {
	case MissionCompleted:
		return MissionCompleted
	case MissionFailed, "cancelled", "canceled":
		return MissionFailed
	default:
		return MissionActive
	}
}

type Mission struct {
	ID        string        `json:"id"`
	Intent    string        `json:"intent"`
	Status    MissionStatus `json:"status"`
	Teams     int           `json:"teams"`
	Agents    int           `json:"agents"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
}

type TeamType string

const (
	TeamStanding TeamType = "standing"
	TeamMission  TeamType = "mission"
)

func (t TeamType) Normalize() TeamType {
	if TeamType(strings.ToLower(string(t))) == TeamStanding {
		return TeamStanding
	}
	return TeamMission
}

type AgentRole string

const (
	RoleCognitive AgentRole = "cognitive"
	RoleSensory   AgentRole = "sensory"
	RoleActuation AgentRole = "actuation"
	RoleLedger    AgentRole = "ledger"
	RoleOther     AgentRole = "other"
)

func (r AgentRole) Known() bool {
	switch r {
	case RoleCognitive, RoleSensory, RoleActuation, RoleLedger:
		return true
	}
	return false
}

// Normalize lowercases r and maps unrecognized roles to RoleOther.
func (r AgentRole) Normalize() AgentRole {
	lower := AgentRole(strings.ToLower(strings.TrimSpace(string(r))))
	if lower.Known() {
		return lower
	}
	return RoleOther
}

type AgentManifest struct {
	ID           string    `json:"id" yaml:"id"`
	Role         AgentRole `json:"role" yaml:"role"`
	SystemPrompt string    `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	Model        string    `json:"model,omitempty" yaml:"model,omitempty"`
	Tools        []string  `json:"tools,omitempty" yaml:"tools,omitempty"`
	Inputs       []string  `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs      []string  `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

func (a AgentManifest) Clone() AgentManifest {
	a.Tools = cloneStrings(a.Tools)
	a.Inputs = cloneStrings(a.Inputs)
	a.Outputs = cloneStrings(a.Outputs)
	return a
}

type Team struct {
	ID     string          `json:"id,omitempty" yaml:"id,omitempty"`
	Name   string          `json:"name" yaml:"name"`
	Role   string          `json:"role,omitempty" yaml:"role,omitempty"`
	Type   TeamType        `json:"type,omitempty" yaml:"type,omitempty"`
	Agents []AgentManifest `json:"agents" yaml:"agents"`
}

func (t Team) Clone() Team {
	agents := make([]AgentManifest, len(t.Agents))
	for i, a := range t.Agents {
		agents[i] = a.Clone()
	}
	t.Agents = agents
	return t
}

// Blueprint is the declarative team/agent composition of a mission.
type Blueprint struct {
	MissionID string `json:"mission_id,omitempty" yaml:"mission_id,omitempty"`
	Intent    string `json:"intent" yaml:"intent"`
	Teams     []Team `json:"teams" yaml:"teams"`
}

func (b Blueprint) Clone() Blueprint {
	teams := make([]Team, len(b.Teams))
	for i, t := range b.Teams {
		teams[i] = t.Clone()
	}
	b.Teams = teams
	return b
}

func (b Blueprint) AgentCount() int {
	n := 0
	for _, t := range b.Teams {
		n += len(t.Agents)
	}
	return n
}

// CommitResult is returned by the backend when a blueprint is instantiated.
type CommitResult struct {
	MissionID string `json:"mission_id"`
	Teams     int    `json:"teams"`
	Agents    int    `json:"agents"`
}

// TeamAgent is an agent entry in the live team roster.
type TeamAgent struct {
	ID            string     `json:"id"`
	Role          AgentRole  `json:"role"`
	Status        int        `json:"status"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
	Tools         []string   `json:"tools,omitempty"`
	Model         string     `json:"model,omitempty"`
	SystemPrompt  string     `json:"system_prompt,omitempty"`
}

// AgentStatusLabel renders the roster's numeric agent status.
func AgentStatusLabel(status int) string {
	switch status {
	case 0:
		return "offline"
	case 1:
		return "idle"
	case 2:
		return "busy"
	case 3:
		return "error"
	default:
		return "unknown"
	}
}

// TeamDetail is a team as reported by the roster endpoint.
type TeamDetail struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Role          string      `json:"role"`
	Type          TeamType    `json:"type"`
	MissionID     string      `json:"mission_id,omitempty"`
	MissionIntent string      `json:"mission_intent,omitempty"`
	Inputs        []string    `json:"inputs,omitempty"`
	Deliveries    []string    `json:"deliveries,omitempty"`
	Agents        []TeamAgent `json:"agents"`
}

// Agent is a catalogue entry independent of any team.
type Agent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Role         AgentRole `json:"role"`
	TeamID       string    `json:"team_id,omitempty"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Model        string    `json:"model,omitempty"`
	Tools        []string  `json:"tools,omitempty"`
	Inputs       []string  `json:"inputs,omitempty"`
	Outputs      []string  `json:"outputs,omitempty"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
