package mission

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/cortex/internal/domain"
	cortexErrors "github.com/harunnryd/cortex/internal/errors"
)

type State string

const (
	StateIdle        State = "idle"
	StateDrafting    State = "drafting"
	StateActive      State = "active"
	StateTerminating State = "terminating"
	StateTerminated  State = "terminated"
	StateFailed      State = "failed"
)

type Event string

const (
	EventLoadDraft       Event = "load_draft"
	EventCommit          Event = "commit"
	EventDiscard         Event = "discard"
	EventBeginTerminate  Event = "begin_terminate"
	EventTerminateFailed Event = "terminate_failed"
	EventObserve         Event = "observe"
	EventReset           Event = "reset"
)

type Transition struct {
	Event Event
	From  State
	To    State
	At    time.Time
}

const maxTransitionLog = 50

// Machine tracks where the console's mission is in its lifecycle.
type Machine struct {
	mu        sync.RWMutex
	state     State
	missionID string
	log       []Transition
	now       func() time.Time
}

func NewMachine() *Machine {
	return &Machine{state: StateIdle, now: time.Now}
}

func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// MissionID is empty until Commit.
func (m *Machine) MissionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.missionID
}

// Transitions returns the most recent transitions, oldest first.
func (m *Machine) Transitions() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Transition, len(m.log))
	copy(out, m.log)
	return out
}

func (m *Machine) LoadDraft() error {
	return m.fire(EventLoadDraft, func(from State) (State, bool) {
		switch from {
		case StateIdle, StateDrafting, StateTerminated, StateFailed:
			m.missionID = ""
			return StateDrafting, true
		}
		return from, false
	})
}

// Commit binds the server-assigned mission id. It cannot change afterwards.
func (m *Machine) Commit(missionID string) error {
	if missionID == "" {
		return cortexErrors.InvalidInput("commit requires a mission id")
	}
	return m.fire(EventCommit, func(from State) (State, bool) {
		if from != StateDrafting {
			return from, false
		}
		m.missionID = missionID
		return StateActive, true
	})
}

func (m *Machine) Discard() error {
	return m.fire(EventDiscard, func(from State) (State, bool) {
		return StateIdle, from == StateDrafting
	})
}

func (m *Machine) BeginTerminate() error {
	return m.fire(EventBeginTerminate, func(from State) (State, bool) {
		return StateTerminating, from == StateActive
	})
}

// TerminateFailed returns to active after the cancel request failed.
func (m *Machine) TerminateFailed() error {
	return m.fire(EventTerminateFailed, func(from State) (State, bool) {
		return StateActive, from == StateTerminating
	})
}

// Observe applies a run status seen on the mission's event feed.
// Non-terminal statuses leave the state alone.
func (m *Machine) Observe(status domain.RunStatus) error {
	return m.fire(EventObserve, func(from State) (State, bool) {
		if from != StateActive && from != StateTerminating {
			return from, false
		}
		switch status {
		case domain.RunCompleted, domain.RunCancelled:
			return StateTerminated, true
		case domain.RunFailed:
			return StateFailed, true
		}
		return from, true
	})
}

func (m *Machine) Reset() error {
	return m.fire(EventReset, func(from State) (State, bool) {
		if from != StateTerminated && from != StateFailed {
			return from, false
		}
		m.missionID = ""
		return StateIdle, true
	})
}

// fire runs step under the lock. step reports the target state and
// whether the event is legal from the current one.
func (m *Machine) fire(ev Event, step func(from State) (State, bool)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.state
	to, ok := step(from)
	if !ok {
		return cortexErrors.IllegalTransition(fmt.Sprintf("%s not allowed in state %s", ev, from))
	}
	if to == from {
		return nil
	}

	m.state = to
	m.log = append(m.log, Transition{Event: ev, From: from, To: to, At: m.now()})
	if len(m.log) > maxTransitionLog {
		m.log = m.log[len(m.log)-maxTransitionLog:]
	}
	slog.Info("Mission state changed", "component", "mission", "event", ev, "from", from, "to", to, "mission_id", m.missionID)
	return nil
}
