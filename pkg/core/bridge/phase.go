// Package bridge implements the per-call conversation bridge: the call
// phase machine, turn detection over streaming transcripts, throttled
// live translation previews, and the agent-mediated response flow.
package bridge

// CallPhase is the lifecycle state of one call.
type CallPhase string

const (
	PhaseGatheringInfo           CallPhase = "gathering_info"
	PhaseReadyToCall             CallPhase = "ready_to_call"
	PhaseDialing                 CallPhase = "dialing"
	PhaseConnected               CallPhase = "connected"
	PhaseWaitingGreetingResponse CallPhase = "waiting_greeting_response"
	PhaseCafSpeaking             CallPhase = "caf_speaking"
	PhaseWaitingUser             CallPhase = "waiting_user"
	PhaseUserSpeaking            CallPhase = "user_speaking"
	PhaseEnded                   CallPhase = "ended"
	PhaseFailed                  CallPhase = "failed"
)

// Terminal reports whether no transition may leave the phase.
func (p CallPhase) Terminal() bool {
	return p == PhaseEnded || p == PhaseFailed
}

var phaseTransitions = map[CallPhase][]CallPhase{
	PhaseGatheringInfo:           {PhaseReadyToCall},
	PhaseReadyToCall:             {PhaseDialing},
	PhaseDialing:                 {PhaseConnected},
	PhaseConnected:               {PhaseWaitingGreetingResponse},
	PhaseWaitingGreetingResponse: {PhaseCafSpeaking, PhaseUserSpeaking},
	PhaseCafSpeaking:             {PhaseWaitingUser, PhaseUserSpeaking},
	PhaseWaitingUser:             {PhaseUserSpeaking, PhaseCafSpeaking},
	PhaseUserSpeaking:            {PhaseCafSpeaking, PhaseWaitingUser, PhaseWaitingGreetingResponse},
}

// CanTransition reports whether moving from p to next is a legal phase
// change. Ended is reachable from any live phase on hangup, stream stop
// or a goodbye; Failed from any live phase on an unrecoverable error.
func (p CallPhase) CanTransition(next CallPhase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseEnded || next == PhaseFailed {
		return true
	}
	for _, allowed := range phaseTransitions[p] {
		if next == allowed {
			return true
		}
	}
	return false
}
