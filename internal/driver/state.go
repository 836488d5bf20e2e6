package driver

// State is where an assemble call is.
//
//	Idle → BuildingSource → Invoking → Success | Failed
//	Invoking → Retrying → Invoking
//	BuildingSource → Failed
//
// Retrying only ever leads back to Invoking; the source is fixed once built.
type State uint8

const (
	StateIdle State = iota
	StateBuildingSource
	StateInvoking
	StateRetrying
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuildingSource:
		return "building-source"
	case StateInvoking:
		return "invoking"
	case StateRetrying:
		return "retrying"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == StateSuccess || s == StateFailed }

var transitions = map[State][]State{
	StateIdle:           {StateBuildingSource},
	StateBuildingSource: {StateInvoking, StateFailed},
	StateInvoking:       {StateSuccess, StateRetrying, StateFailed},
	StateRetrying:       {StateInvoking},
}

// CanTransition reports whether to may follow from.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StateObserver is told about every transition of a call.
type StateObserver func(from, to State)

// machine records transitions and panics on an illegal one; that is a bug
// in this package, never a caller error.
type machine struct {
	cur     State
	history []State
	observe StateObserver
}

func newMachine(observe StateObserver) *machine {
	return &machine{cur: StateIdle, history: []State{StateIdle}, observe: observe}
}

func (m *machine) to(next State) {
	if !CanTransition(m.cur, next) {
		panic("driver: illegal transition " + m.cur.String() + " -> " + next.String())
	}
	prev := m.cur
	m.cur = next
	m.history = append(m.history, next)
	if m.observe != nil {
		m.observe(prev, next)
	}
}
