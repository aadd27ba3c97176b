package models

// ItemState is the per-item download state.
type ItemState string

const (
	StatePending     ItemState = "pending"
	StateResolving   ItemState = "resolving"
	StateDownloading ItemState = "downloading"
	StateTranscoding ItemState = "transcoding"
	StateDone        ItemState = "done"
	StateFailed      ItemState = "failed"
)

var transitions = map[ItemState][]ItemState{
	StatePending:     {StateResolving, StateFailed},
	StateResolving:   {StateDownloading, StateFailed},
	StateDownloading: {StateTranscoding, StateFailed},
	StateTranscoding: {StateDone, StateFailed},
}

// IsTerminal reports whether no further transitions are possible.
func (s ItemState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether moving from s to next is allowed.
func (s ItemState) CanTransition(next ItemState) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}
