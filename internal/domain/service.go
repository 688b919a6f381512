package domain

import (
	"strings"
	"time"
)

type ServiceHealth string

const (
	HealthOnline   ServiceHealth = "online"
	HealthDegraded ServiceHealth = "degraded"
	HealthOffline  ServiceHealth = "offline"
)

// Normalize folds backend status words onto the three health levels.
// Anything unrecognized counts as degraded.
func (h ServiceHealth) Normalize() ServiceHealth {
	switch strings.ToLower(strings.TrimSpace(string(h))) {
	case "online", "ok", "healthy", "connected", "up":
		return HealthOnline
	case "offline", "down", "disconnected", "error", "unavailable":
		return HealthOffline
	default:
		return HealthDegraded
	}
}

type ServiceStatus struct {
	Name      string        `json:"name"`
	Status    ServiceHealth `json:"status"`
	Detail    string        `json:"detail,omitempty"`
	LatencyMS int           `json:"latency_ms,omitempty"`
}

type SensorNode struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Label    string        `json:"label"`
	Status   ServiceHealth `json:"status"`
	LastSeen *time.Time    `json:"last_seen,omitempty"`
}

type SensorGroup struct {
	Type    string
	Sensors []SensorNode
}

// GroupSensors groups nodes by Type in first-seen order.
func GroupSensors(nodes []SensorNode) []SensorGroup {
	index := make(map[string]int)
	var groups []SensorGroup
	for _, n := range nodes {
		i, ok := index[n.Type]
		if !ok {
			i = len(groups)
			index[n.Type] = i
			groups = append(groups, SensorGroup{Type: n.Type})
		}
		groups[i].Sensors = append(groups[i].Sensors, n)
	}
	return groups
}

type MCPServer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Transport string `json:"transport"`
	URL       string `json:"url,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Usable reports whether the server's tools can be reached.
func (s MCPServer) Usable() bool {
	switch strings.ToLower(s.Status) {
	case "connected", "installed":
		return true
	}
	return false
}

type CognitiveEngine struct {
	Status   string `json:"status"`
	Endpoint string `json:"endpoint,omitempty"`
	Model    string `json:"model,omitempty"`
}

type CognitiveStatus struct {
	Text  CognitiveEngine `json:"text"`
	Media CognitiveEngine `json:"media"`
}

// ProviderReady reports whether a text brain is available for missions.
func (c CognitiveStatus) ProviderReady() bool {
	return ServiceHealth(c.Text.Status).Normalize() == HealthOnline
}
