package export

// State is a stage of an export's lifecycle.
type State string

const (
	StateCreated         State = "created"
	StateScopeResolved   State = "scope_resolved"
	StateFileInitialized State = "file_initialized"
	StateAppending       State = "appending"
	StateFinalizing      State = "finalizing"
	StatePersisted       State = "persisted"
	StateAborted         State = "aborted"
)

var transitions = map[State][]State{
	StateCreated:         {StateScopeResolved},
	StateScopeResolved:   {StateFileInitialized},
	StateFileInitialized: {StateAppending, StateFinalizing},
	StateAppending:       {StateAppending, StateFinalizing},
	StateFinalizing:      {StatePersisted},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StatePersisted || s == StateAborted
}

// CanTransitionTo reports whether next may follow s. Every non-terminal
// state may abort.
func (s State) CanTransitionTo(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateAborted {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
