package call

type State int
type EndReason int
type ChannelRole int

// State is the lifecycle position of a CallSession
const (
	StateRinging State = iota + 1
	StateAnswered
	StateBridged
	StateConversing
	StateEnding
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRinging:
		return "Ringing"
	case StateAnswered:
		return "Answered"
	case StateBridged:
		return "Bridged"
	case StateConversing:
		return "Conversing"
	case StateEnding:
		return "Ending"
	case StateTerminated:
		return "Terminated"
	}
	return "Unknown"
}

// next lists the forward transitions; Ending is reachable from every live state
var next = map[State]State{
	StateRinging:    StateAnswered,
	StateAnswered:   StateBridged,
	StateBridged:    StateConversing,
	StateConversing: StateEnding,
	StateEnding:     StateTerminated,
}

// CanTransition reports whether from -> to is a legal lifecycle move
func CanTransition(from, to State) bool {
	if to == StateEnding {
		return from != StateEnding && from != StateTerminated
	}
	return next[from] == to
}

// Reasons a call leaves Conversing (or any earlier state)
const (
	EndReasonNone EndReason = iota
	EndReasonCallEnded
	EndReasonHangupRequested
	EndReasonFarewell
	EndReasonSilenceTimeout
	EndReasonMaxDuration
	EndReasonCommandFailed
	EndReasonCollaboratorFailure
	EndReasonMediaLost
	EndReasonReplaced
	EndReasonShutdown
)

func (r EndReason) String() string {
	switch r {
	case EndReasonNone:
		return "none"
	case EndReasonCallEnded:
		return "call-ended"
	case EndReasonHangupRequested:
		return "hangup-requested"
	case EndReasonFarewell:
		return "farewell"
	case EndReasonSilenceTimeout:
		return "silence-timeout"
	case EndReasonMaxDuration:
		return "max-duration"
	case EndReasonCommandFailed:
		return "command-failed"
	case EndReasonCollaboratorFailure:
		return "collaborator-failure"
	case EndReasonMediaLost:
		return "media-lost"
	case EndReasonReplaced:
		return "replaced"
	case EndReasonShutdown:
		return "shutdown"
	}
	return "unknown"
}

// PlaysFarewell is true for the limit driven endings only
func (r EndReason) PlaysFarewell() bool {
	return r == EndReasonSilenceTimeout || r == EndReasonMaxDuration
}

const (
	RoleCaller ChannelRole = iota + 1
	RoleMedia
)
