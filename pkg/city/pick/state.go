package pick

import (
	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// Kind enumerates the interaction states.
type Kind int

const (
	Idle Kind = iota
	Hovering
	Selected
)

func (k Kind) String() string {
	switch k {
	case Hovering:
		return "hovering"
	case Selected:
		return "selected"
	default:
		return "idle"
	}
}

// State is the interaction state. Target is the building under the pointer
// and is empty exactly when Kind is Idle. Selected means the hovered target
// has also been clicked.
type State struct {
	Kind   Kind   `json:"kind"`
	Target string `json:"target,omitempty"`
}

// HoverEvent reports a change of the hovered building. Record is nil when
// the pointer left all buildings.
type HoverEvent struct {
	Record *metrics.Record
	X, Y   float64
}

// SelectEvent reports a click on a building.
type SelectEvent struct {
	Record metrics.Record
}

// Transition is the outcome of one input event.
type Transition struct {
	From, To State
	Hover    *HoverEvent
	Select   *SelectEvent
}

// Changed reports whether the state moved.
func (t Transition) Changed() bool { return t.From != t.To }

// Machine is the hover/select state machine. Hover events are emitted only
// when the hovered target changes, so a pointer resting on empty ground
// produces a single nil event. A Machine is not safe for concurrent use.
type Machine struct {
	state State
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Move feeds a pointer move at screen point (x, y) whose world ray is r.
func (m *Machine) Move(snap *Snapshot, r Ray, x, y float64) Transition {
	var (
		hit layout.Building
		ok  bool
	)
	if snap != nil {
		hit, _, ok = snap.Nearest(r)
	}
	return m.MoveTo(hit, ok, x, y)
}

// MoveTo is Move with the hit already resolved (ok=false for empty space).
func (m *Machine) MoveTo(hit layout.Building, ok bool, x, y float64) Transition {
	from := m.state
	tr := Transition{From: from, To: from}

	switch {
	case ok && hit.ID() == from.Target:
		return tr
	case ok:
		rec := hit.Record
		m.state = State{Kind: Hovering, Target: hit.ID()}
		tr.Hover = &HoverEvent{Record: &rec, X: x, Y: y}
	case from.Kind != Idle:
		m.state = State{Kind: Idle}
		tr.Hover = &HoverEvent{X: x, Y: y}
	}
	tr.To = m.state
	return tr
}

// Click selects the currently hovered building. Every click on a building
// yields exactly one SelectEvent; clicks on empty space yield none.
func (m *Machine) Click(snap *Snapshot) Transition {
	from := m.state
	tr := Transition{From: from, To: from}
	if from.Kind == Idle || snap == nil {
		return tr
	}
	b, ok := snap.Building(from.Target)
	if !ok {
		return tr
	}
	m.state = State{Kind: Selected, Target: from.Target}
	tr.To = m.state
	tr.Select = &SelectEvent{Record: b.Record}
	return tr
}

// Reset returns to Idle without emitting events. Called when the building
// set is replaced.
func (m *Machine) Reset() Transition {
	tr := Transition{From: m.state, To: State{Kind: Idle}}
	m.state = tr.To
	return tr
}
