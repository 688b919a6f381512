package blueprint

import (
	"strings"
	"unicode"

	"github.com/harunnryd/cortex/internal/domain"
)

const (
	GroupWidth        = 280
	GroupGap          = 60
	GroupHeaderHeight = 80
	GroupFooter       = 40
	AgentRowHeight    = 130
	AgentOffsetX      = 60
	ThoughtPreviewLen = 60
)

type NodeKind string

const (
	NodeGroup NodeKind = "group"
	NodeAgent NodeKind = "agent"
)

type NodeStatus string

const (
	StatusOffline NodeStatus = "offline"
	StatusOnline  NodeStatus = "online"
	StatusError   NodeStatus = "error"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NodeData is what an agent or group node renders.
type NodeData struct {
	Label       string           `json:"label"`
	Role        domain.AgentRole `json:"role,omitempty"`
	Status      NodeStatus       `json:"status,omitempty"`
	LastThought string           `json:"lastThought,omitempty"`
	IsThinking  bool             `json:"isThinking,omitempty"`
	TeamKey     string           `json:"teamKey,omitempty"`
	AgentID     string           `json:"agentId,omitempty"`
}

type Node struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"type"`
	ParentID string   `json:"parentId,omitempty"`
	Position Position `json:"position"`
	Size     Size     `json:"size,omitempty"`
	Data     NodeData `json:"data"`
}

type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Topic  string `json:"label"`
}

type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node returns the node with id, if present.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// BuildOptions carry state that is not part of the blueprint.
type BuildOptions struct {
	// Status applied to every agent node.
	Status NodeStatus
	// Positions override computed positions by node id.
	Positions map[string]Position
	// Live overrides per agent node id, from the event stream.
	Live map[string]LiveState
}

type LiveState struct {
	Status     NodeStatus
	IsThinking bool
}

// TeamKey is the stable identity of a team inside a graph.
func TeamKey(t domain.Team) string {
	if id := strings.TrimSpace(t.ID); id != "" {
		return id
	}
	return slug(t.Name)
}

func GroupNodeID(teamKey string) string { return "team-" + teamKey }

func AgentNodeID(teamKey, agentID string) string { return "agent-" + teamKey + "-" + agentID }

func EdgeID(source, target, topic string) string { return "edge-" + source + "-" + target + "-" + topic }

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func preview(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= ThoughtPreviewLen {
		return string(r)
	}
	return string(r[:ThoughtPreviewLen])
}

func groupHeight(agents int) float64 {
	return float64(GroupHeaderHeight + agents*AgentRowHeight + GroupFooter)
}

type placed struct {
	nodeID string
	agent  domain.AgentManifest
}

// Build projects bp onto a graph. The same inputs always give the same
// node and edge ids in the same order.
func Build(bp domain.Blueprint, opts BuildOptions) Graph {
	status := opts.Status
	if status == "" {
		status = StatusOffline
	}

	g := Graph{Nodes: []Node{}, Edges: []Edge{}}
	var agents []placed
	x := 0.0

	for _, team := range bp.Teams {
		key := TeamKey(team)
		groupID := GroupNodeID(key)
		pos := Position{X: x}
		if p, ok := opts.Positions[groupID]; ok {
			pos = p
		}
		label := team.Name
		if label == "" {
			label = key
		}
		g.Nodes = append(g.Nodes, Node{
			ID:       groupID,
			Kind:     NodeGroup,
			Position: pos,
			Size:     Size{Width: GroupWidth, Height: groupHeight(len(team.Agents))},
			Data:     NodeData{Label: label, TeamKey: key},
		})
		x += GroupWidth + GroupGap

		for i, a := range team.Agents {
			id := AgentNodeID(key, a.ID)
			pos := Position{X: AgentOffsetX, Y: float64(GroupHeaderHeight + i*AgentRowHeight)}
			if p, ok := opts.Positions[id]; ok {
				pos = p
			}
			data := NodeData{
				Label:       a.ID,
				Role:        a.Role.Normalize(),
				Status:      status,
				LastThought: preview(a.SystemPrompt),
				TeamKey:     key,
				AgentID:     a.ID,
			}
			if live, ok := opts.Live[id]; ok {
				if live.Status != "" {
					data.Status = live.Status
				}
				data.IsThinking = live.IsThinking
			}
			g.Nodes = append(g.Nodes, Node{ID: id, Kind: NodeAgent, ParentID: groupID, Position: pos, Data: data})
			agents = append(agents, placed{nodeID: id, agent: a})
		}
	}

	g.Edges = buildEdges(agents)
	return g
}

func buildEdges(agents []placed) []Edge {
	edges := []Edge{}
	seen := make(map[string]bool)
	for _, producer := range agents {
		for _, topic := range producer.agent.Outputs {
			topic = strings.TrimSpace(topic)
			if topic == "" {
				continue
			}
			for _, consumer := range agents {
				if consumer.nodeID == producer.nodeID || !consumes(consumer.agent, topic) {
					continue
				}
				id := EdgeID(producer.nodeID, consumer.nodeID, topic)
				if seen[id] {
					continue
				}
				seen[id] = true
				edges = append(edges, Edge{ID: id, Source: producer.nodeID, Target: consumer.nodeID, Topic: topic})
			}
		}
	}
	return edges
}

func consumes(a domain.AgentManifest, topic string) bool {
	for _, in := range a.Inputs {
		if strings.TrimSpace(in) == topic {
			return true
		}
	}
	return false
}
