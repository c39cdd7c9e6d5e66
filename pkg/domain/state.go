package domain

// State is the position of a user's conversation in the state machine.
type State string

const (
	StateEntry                   State = "entry"                     // Initial; entry menu shown
	StateAwaitingTitleText       State = "awaiting_title_text"       // Waiting for a title to search
	StateAwaitingContributorText State = "awaiting_contributor_text" // Waiting for an actor name
	StateResultsShown            State = "results_shown"             // A list of results is displayed
	StateDetailShown             State = "detail_shown"              // A single item is displayed
	StateRequestCompleted        State = "request_completed"         // A request was submitted (or failed)
)

// States lists every defined state in declaration order.
var States = []State{
	StateEntry,
	StateAwaitingTitleText,
	StateAwaitingContributorText,
	StateResultsShown,
	StateDetailShown,
	StateRequestCompleted,
}

// Valid reports whether s is one of the defined states.
func (s State) Valid() bool {
	for _, known := range States {
		if s == known {
			return true
		}
	}
	return false
}

func (s State) String() string {
	return string(s)
}
