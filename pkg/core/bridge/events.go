package bridge

import "encoding/json"

// Event is the interface for all observer channel events.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// MarshalEvent renders an event as the wire JSON object, with the type
// discriminator spliced in as "type".
func MarshalEvent(e Event) ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	typeRaw, err := json.Marshal(e.EventType())
	if err != nil {
		return nil, err
	}
	fields["type"] = typeRaw
	return json.Marshal(fields)
}

// SessionStateEvent is the snapshot sent when an observer connects.
type SessionStateEvent struct {
	Phase    CallPhase `json:"phase"`
	Target   string    `json:"target"`
	Question string    `json:"question"`
}

func (e *SessionStateEvent) EventType() string { return "session_state" }

// CallConnectedEvent is emitted when the telephony media stream opens.
type CallConnectedEvent struct{}

func (e *CallConnectedEvent) EventType() string { return "call_connected" }

// CounterpartySpeakingEvent is emitted when the bridge starts listening
// for the counterparty.
type CounterpartySpeakingEvent struct {
	Status string `json:"status,omitempty"`
}

func (e *CounterpartySpeakingEvent) EventType() string { return "caf_speaking_started" }

// CounterpartySaidEvent carries a throttled non-final translation
// preview of the turn in progress.
type CounterpartySaidEvent struct {
	Text       string `json:"text"`
	Translated string `json:"translated"`
	IsFinal    bool   `json:"is_final"`
}

func (e *CounterpartySaidEvent) EventType() string { return "caf_said" }

// CounterpartyFinishedEvent carries the final transcript of a turn.
type CounterpartyFinishedEvent struct {
	Text       string `json:"text"`
	Translated string `json:"translated"`
}

func (e *CounterpartyFinishedEvent) EventType() string { return "caf_finished" }

// AgentThinkingEvent is emitted while the agent crafts a response.
type AgentThinkingEvent struct {
	Message string `json:"message,omitempty"`
}

func (e *AgentThinkingEvent) EventType() string { return "agent_thinking" }

// WaitingForUserEvent suspends auto-speech until a human responds.
type WaitingForUserEvent struct {
	Prompt string `json:"prompt"`
}

func (e *WaitingForUserEvent) EventType() string { return "waiting_for_user" }

// AgentSuggestsEvent previews an agent reply that will be auto-sent
// after a short override window.
type AgentSuggestsEvent struct {
	Text          string `json:"text"`
	AutoSend      bool   `json:"auto_send"`
	AutoSendDelay int    `json:"auto_send_delay"`
}

func (e *AgentSuggestsEvent) EventType() string { return "agent_suggests" }

// SpeakingEvent marks the start of outbound speech.
type SpeakingEvent struct {
	Text string `json:"text"`
}

func (e *SpeakingEvent) EventType() string { return "speaking_to_caf" }

// FinishedSpeakingEvent marks the end of outbound speech.
type FinishedSpeakingEvent struct{}

func (e *FinishedSpeakingEvent) EventType() string { return "finished_speaking" }

// CallEndedEvent is the last event of a completed call.
type CallEndedEvent struct{}

func (e *CallEndedEvent) EventType() string { return "call_ended" }

// ErrorEvent reports an unrecoverable failure. It always precedes the
// terminal CallEndedEvent.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (e *ErrorEvent) EventType() string { return "error" }
