package transfer

// State is the stable integer code persisted for a TransferProcess's
// position in the state machine. Codes are stored as-is by the store,
// so existing values must never be renumbered.
type State int

const (
	Initial State = iota
	Provisioning
	Provisioned
	Requesting
	Requested
	InProgress
	Streaming
	Completed
	Deprovisioning
	Deprovisioned
	Ended
	Error
)

var stateNames = map[State]string{
	Initial:        "INITIAL",
	Provisioning:   "PROVISIONING",
	Provisioned:    "PROVISIONED",
	Requesting:     "REQUESTING",
	Requested:      "REQUESTED",
	InProgress:     "IN_PROGRESS",
	Streaming:      "STREAMING",
	Completed:      "COMPLETED",
	Deprovisioning: "DEPROVISIONING",
	Deprovisioned:  "DEPROVISIONED",
	Ended:          "ENDED",
	Error:          "ERROR",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Code returns the integer persisted for this state. Distinct from
// String: the store indexes by Code, logs and listeners read String.
func (s State) Code() int {
	return int(s)
}

// ActiveStates lists, in scheduler dispatch order, every state the
// manager polls for and hands to a handler each tick. Terminal states
// (Ended, Error) are deliberately absent: nothing ever polls for them.
var ActiveStates = []State{
	Initial,
	Provisioning,
	Provisioned,
	Requesting,
	Requested,
	InProgress,
	Streaming,
	Deprovisioning,
	Deprovisioned,
}

// IsTerminal reports whether s is an absorbing state.
func (s State) IsTerminal() bool {
	return s == Ended || s == Error
}
