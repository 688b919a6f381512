package blueprint

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/harunnryd/cortex/internal/domain"
	cortexErrors "github.com/harunnryd/cortex/internal/errors"
)

// AgentPatch lists the fields an editor save changes. Nil fields are kept.
type AgentPatch struct {
	ID           *string
	Role         *domain.AgentRole
	SystemPrompt *string
	Model        *string
	Tools        *[]string
	Inputs       *[]string
	Outputs      *[]string
}

// Changes lists the manifest fields the patch touches.
func (p AgentPatch) Changes() []string {
	var out []string
	if p.ID != nil {
		out = append(out, "id")
	}
	if p.Role != nil {
		out = append(out, "role")
	}
	if p.SystemPrompt != nil {
		out = append(out, "system_prompt")
	}
	if p.Model != nil {
		out = append(out, "model")
	}
	if p.Tools != nil {
		out = append(out, "tools")
	}
	if p.Inputs != nil {
		out = append(out, "inputs")
	}
	if p.Outputs != nil {
		out = append(out, "outputs")
	}
	return out
}

// Apply returns a with the patch applied.
func (p AgentPatch) Apply(a domain.AgentManifest) domain.AgentManifest {
	out := a.Clone()
	if p.ID != nil {
		out.ID = *p.ID
	}
	if p.Role != nil {
		out.Role = *p.Role
	}
	if p.SystemPrompt != nil {
		out.SystemPrompt = *p.SystemPrompt
	}
	if p.Model != nil {
		out.Model = *p.Model
	}
	if p.Tools != nil {
		out.Tools = slices.Clone(*p.Tools)
	}
	if p.Inputs != nil {
		out.Inputs = slices.Clone(*p.Inputs)
	}
	if p.Outputs != nil {
		out.Outputs = slices.Clone(*p.Outputs)
	}
	return out
}

// AgentUpdate is an edited agent awaiting save on an active mission.
type AgentUpdate struct {
	TeamKey string
	Agent   domain.AgentManifest
}

// Delta is the difference between the draft and the last committed blueprint.
type Delta struct {
	Updated []AgentUpdate
	Deleted []string
}

func (d Delta) Empty() bool {
	return len(d.Updated) == 0 && len(d.Deleted) == 0
}

// Synchronizer keeps a draft blueprint and its graph projection in step.
// Every edit rebuilds the graph from the blueprint.
type Synchronizer struct {
	mu        sync.RWMutex
	draft     domain.Blueprint
	committed domain.Blueprint
	loaded    bool
	solid     bool
	positions map[string]Position
	live      map[string]LiveState
	graph     Graph
	version   uint64
}

func NewSynchronizer() *Synchronizer {
	return &Synchronizer{
		positions: make(map[string]Position),
		live:      make(map[string]LiveState),
		graph:     Graph{Nodes: []Node{}, Edges: []Edge{}},
	}
}

// Load replaces the draft with a copy of bp and clears live state.
// Dragged positions are kept for node ids that still exist. A blueprint
// with colliding team keys is refused and the current draft is kept.
func (s *Synchronizer) Load(bp domain.Blueprint) error {
	if err := CheckTeamKeys(bp); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = bp.Clone()
	s.committed = bp.Clone()
	s.loaded = true
	s.solid = false
	s.live = make(map[string]LiveState)
	s.rebuild()
	slog.Debug("Blueprint loaded", "component", "blueprint", "teams", len(bp.Teams), "agents", bp.AgentCount())
	return nil
}

// Clear drops the draft entirely.
func (s *Synchronizer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = domain.Blueprint{}
	s.committed = domain.Blueprint{}
	s.loaded = false
	s.solid = false
	s.positions = make(map[string]Position)
	s.live = make(map[string]LiveState)
	s.rebuild()
}

func (s *Synchronizer) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Synchronizer) Blueprint() domain.Blueprint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft.Clone()
}

func (s *Synchronizer) Graph() Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Graph{Nodes: slices.Clone(s.graph.Nodes), Edges: slices.Clone(s.graph.Edges)}
}

// Version increases on every graph rebuild.
func (s *Synchronizer) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Agent finds an agent by id in the draft.
func (s *Synchronizer) Agent(agentID string) (domain.AgentManifest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ti, ai, ok := s.find(agentID)
	if !ok {
		return domain.AgentManifest{}, false
	}
	return s.draft.Teams[ti].Agents[ai].Clone(), true
}

// MoveNode records a dragged position. The blueprint is not touched.
func (s *Synchronizer) MoveNode(nodeID string, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.graph.Node(nodeID); !ok {
		return cortexErrors.NotFound(fmt.Sprintf("node %s", nodeID))
	}
	s.positions[nodeID] = pos
	s.rebuild()
	return nil
}

func (s *Synchronizer) UpdateAgent(agentID string, patch AgentPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ti, ai, ok := s.find(agentID)
	if !ok {
		return cortexErrors.NotFound(fmt.Sprintf("agent %s", agentID))
	}
	updated := patch.Apply(s.draft.Teams[ti].Agents[ai])
	if updated.ID == "" {
		return cortexErrors.InvalidInput("agent id cannot be empty")
	}
	if updated.ID != agentID {
		if _, _, taken := s.find(updated.ID); taken {
			return cortexErrors.Conflict(fmt.Sprintf("agent %s already exists", updated.ID))
		}
	}
	s.draft.Teams[ti].Agents[ai] = updated
	s.rebuild()
	return nil
}

// DeleteAgent removes the agent from its team. A team left empty stays
// until RemoveTeam is called for it.
func (s *Synchronizer) DeleteAgent(agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ti, ai, ok := s.find(agentID)
	if !ok {
		return cortexErrors.NotFound(fmt.Sprintf("agent %s", agentID))
	}
	team := &s.draft.Teams[ti]
	team.Agents = slices.Delete(team.Agents, ai, ai+1)
	s.rebuild()
	return nil
}

// EmptyTeams lists the keys of teams that have no agents left.
func (s *Synchronizer) EmptyTeams() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, t := range s.draft.Teams {
		if len(t.Agents) == 0 {
			out = append(out, TeamKey(t))
		}
	}
	return out
}

// RemoveTeam drops an empty team and its group node.
func (s *Synchronizer) RemoveTeam(teamKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.draft.Teams {
		if TeamKey(t) != teamKey {
			continue
		}
		if len(t.Agents) > 0 {
			return cortexErrors.Conflict(fmt.Sprintf("team %s still has %d agents", teamKey, len(t.Agents)))
		}
		s.draft.Teams = slices.Delete(s.draft.Teams, i, i+1)
		delete(s.positions, GroupNodeID(teamKey))
		s.rebuild()
		return nil
	}
	return cortexErrors.NotFound(fmt.Sprintf("team %s", teamKey))
}

// Solidify marks every agent online, after the blueprint is committed.
func (s *Synchronizer) Solidify(missionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solid = true
	s.draft.MissionID = missionID
	s.committed = s.draft.Clone()
	s.rebuild()
}

// ApplySignal updates live node state from a stream signal addressed to
// an agent. It reports whether any node changed.
func (s *Synchronizer) ApplySignal(sig domain.StreamSignal) bool {
	if sig.Source == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, t := range s.draft.Teams {
		key := TeamKey(t)
		for _, a := range t.Agents {
			if a.ID != sig.Source {
				continue
			}
			id := AgentNodeID(key, a.ID)
			prev := s.live[id]
			next := prev
			switch sig.Kind() {
			case domain.SignalThought:
				next.IsThinking = true
			case domain.SignalOutput:
				next.IsThinking = false
			case domain.SignalError:
				next.IsThinking = false
				next.Status = StatusError
			default:
				continue
			}
			if next != prev {
				s.live[id] = next
				changed = true
			}
		}
	}
	if changed {
		s.rebuild()
	}
	return changed
}

// Delta reports agent edits and deletions since the last commit.
func (s *Synchronizer) Delta() Delta {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var d Delta
	current := make(map[string]AgentUpdate)
	var order []string
	for _, t := range s.draft.Teams {
		for _, a := range t.Agents {
			current[a.ID] = AgentUpdate{TeamKey: TeamKey(t), Agent: a}
			order = append(order, a.ID)
		}
	}

	previous := make(map[string]domain.AgentManifest)
	for _, t := range s.committed.Teams {
		for _, a := range t.Agents {
			previous[a.ID] = a
			if _, ok := current[a.ID]; !ok {
				d.Deleted = append(d.Deleted, a.ID)
			}
		}
	}

	for _, id := range order {
		upd := current[id]
		if prev, ok := previous[id]; !ok || !sameAgent(prev, upd.Agent) {
			upd.Agent = upd.Agent.Clone()
			d.Updated = append(d.Updated, upd)
		}
	}
	return d
}

// MarkCommitted records the draft as saved.
func (s *Synchronizer) MarkCommitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = s.draft.Clone()
}

// Revert throws away edits since the last commit.
func (s *Synchronizer) Revert() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = s.committed.Clone()
	s.rebuild()
}

func (s *Synchronizer) find(agentID string) (int, int, bool) {
	for ti, t := range s.draft.Teams {
		for ai, a := range t.Agents {
			if a.ID == agentID {
				return ti, ai, true
			}
		}
	}
	return 0, 0, false
}

// rebuild must be called with s.mu held.
func (s *Synchronizer) rebuild() {
	status := StatusOffline
	if s.solid {
		status = StatusOnline
	}
	s.graph = Build(s.draft, BuildOptions{Status: status, Positions: s.positions, Live: s.live})
	s.version++
}

func sameAgent(a, b domain.AgentManifest) bool {
	return a.ID == b.ID &&
		a.Role == b.Role &&
		a.SystemPrompt == b.SystemPrompt &&
		a.Model == b.Model &&
		slices.Equal(a.Tools, b.Tools) &&
		slices.Equal(a.Inputs, b.Inputs) &&
		slices.Equal(a.Outputs, b.Outputs)
}
