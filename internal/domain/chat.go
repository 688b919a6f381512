package domain

import (
	"strings"
	"time"
)

type ChatRole string

const (
	ChatUser      ChatRole = "user"
	ChatArchitect ChatRole = "architect"
	ChatAdmin     ChatRole = "admin"
	ChatCouncil   ChatRole = "council"
)

func (r ChatRole) Normalize() ChatRole {
	switch ChatRole(strings.ToLower(string(r))) {
	case ChatUser:
		return ChatUser
	case ChatArchitect:
		return ChatArchitect
	case ChatAdmin:
		return ChatAdmin
	default:
		return ChatCouncil
	}
}

// WireRole is the role sent to the chat endpoint, which only knows two.
func (r ChatRole) WireRole() string {
	if r.Normalize() == ChatUser {
		return "user"
	}
	return "assistant"
}

type ChatArtifact struct {
	ID          string `json:"id,omitempty"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	ContentType string `json:"content_type,omitempty"`
	Content     string `json:"content,omitempty"`
	URL         string `json:"url,omitempty"`
}

type ChatMessage struct {
	ID            string         `json:"id"`
	Role          ChatRole       `json:"role"`
	Content       string         `json:"content"`
	Consultations []string       `json:"consultations,omitempty"`
	ToolsUsed     []string       `json:"tools_used,omitempty"`
	SourceNode    string         `json:"source_node,omitempty"`
	TrustScore    float64        `json:"trust_score,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Artifacts     []ChatArtifact `json:"artifacts,omitempty"`
	Proposal      *Proposal      `json:"proposal,omitempty"`
	IsError       bool           `json:"is_error,omitempty"`
}

type CouncilMember struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Team string `json:"team"`
}

type WireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatEnvelope is the payload of a successful council chat response.
type ChatEnvelope struct {
	Meta struct {
		SourceNode string `json:"source_node"`
		Timestamp  string `json:"timestamp"`
		TraceID    string `json:"trace_id,omitempty"`
	} `json:"meta"`
	SignalType string  `json:"signal_type"`
	TrustScore float64 `json:"trust_score"`
	Payload    struct {
		Text          string         `json:"text"`
		Consultations []string       `json:"consultations,omitempty"`
		ToolsUsed     []string       `json:"tools_used,omitempty"`
		Artifacts     []ChatArtifact `json:"artifacts,omitempty"`
		Proposal      *Proposal      `json:"proposal,omitempty"`
	} `json:"payload"`
}

type BroadcastReply struct {
	TeamID  string `json:"team_id"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

type BroadcastResult struct {
	TeamsHit int              `json:"teams_hit"`
	Replies  []BroadcastReply `json:"replies"`
}
