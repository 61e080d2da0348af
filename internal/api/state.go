package api

import (
	"sync/atomic"

	"github.com/gomarkereditor/markereditor/internal/apperr"
)

// State is one of the server's lifecycle states (spec §4.8).
type State int32

const (
	FirstBoot State = iota
	Running
	Suspended
	ReInit
	ShuttingDown
)

func (s State) String() string {
	switch s {
	case FirstBoot:
		return "FirstBoot"
	case Running:
		return "Running"
	case Suspended:
		return "Suspended"
	case ReInit:
		return "ReInit"
	case ShuttingDown:
		return "ShuttingDown"
	default:
		return "Unknown"
	}
}

// StateMachine holds the current lifecycle state behind an atomic so reads
// from request-handling goroutines never block on a lock.
type StateMachine struct {
	state atomic.Int32
}

// NewStateMachine starts in FirstBoot, per spec §4.8.
func NewStateMachine() *StateMachine {
	m := &StateMachine{}
	m.state.Store(int32(FirstBoot))
	return m
}

func (m *StateMachine) Current() State {
	return State(m.state.Load())
}

// transitions is the allowed-edge table from spec §4.8's lifecycle table.
var transitions = map[State]map[State]bool{
	FirstBoot:    {Running: true, ShuttingDown: true},
	Running:      {Suspended: true, ShuttingDown: true, ReInit: true},
	Suspended:    {Running: true, ShuttingDown: true},
	ReInit:       {Running: true, ShuttingDown: true},
	ShuttingDown: {},
}

// Transition moves the machine to next, rejecting any edge not present in
// the lifecycle table. ShuttingDown is terminal: no edge leaves it.
func (m *StateMachine) Transition(next State) error {
	cur := m.Current()
	if !transitions[cur][next] {
		return apperr.InvalidInput("cannot transition from %s to %s", cur, next)
	}
	m.state.Store(int32(next))
	return nil
}

// commandsAlwaysAllowed bypasses the Suspended-state command block; every
// other command rejects with Suspended while the server is suspended.
var commandsAlwaysAllowed = map[string]bool{
	"resume":   true,
	"shutdown": true,
}

// CheckCommand enforces spec §4.8's per-state command gate: ShuttingDown
// rejects everything, Suspended rejects everything except resume/shutdown.
func (m *StateMachine) CheckCommand(command string) error {
	switch m.Current() {
	case ShuttingDown:
		return apperr.ShuttingDown("server is shutting down")
	case Suspended:
		if !commandsAlwaysAllowed[command] {
			return apperr.Suspended("server is suspended")
		}
	}
	return nil
}

// CheckThumbnailRead enforces spec §4.8's "thumbnail reads reject [in
// Suspended]" rule, which is stricter than the general command gate since
// thumbnails have no exemption list.
func (m *StateMachine) CheckThumbnailRead() error {
	switch m.Current() {
	case ShuttingDown:
		return apperr.ShuttingDown("server is shutting down")
	case Suspended:
		return apperr.Suspended("server is suspended")
	}
	return nil
}

// CheckStaticRead enforces "static GETs succeed" even while Suspended;
// only ShuttingDown blocks them.
func (m *StateMachine) CheckStaticRead() error {
	if m.Current() == ShuttingDown {
		return apperr.ShuttingDown("server is shutting down")
	}
	return nil
}
