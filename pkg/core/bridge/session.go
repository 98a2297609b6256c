package bridge

import "time"

// Speaker identifies who produced a transcript entry.
type Speaker string

const (
	// SpeakerCounterparty is the remote party reached on the phone.
	SpeakerCounterparty Speaker = "caf"
	// SpeakerUser is the user's side, whether typed by the human or
	// generated by the agent on their behalf.
	SpeakerUser Speaker = "user"
)

// TranscriptEntry is one completed turn of the conversation. Entries
// are append-only and immutable once recorded.
type TranscriptEntry struct {
	Speaker        Speaker   `json:"speaker"`
	SourceText     string    `json:"source_text"`
	TranslatedText string    `json:"translated_text"`
	Timestamp      time.Time `json:"timestamp"`
}

// CallSession is the durable record of one call. The owning bridge is
// the only writer for the call's lifetime; everyone else sees copies.
type CallSession struct {
	CallID              string            `json:"call_id"`
	Target              string            `json:"target"`
	TargetNumber        string            `json:"target_number,omitempty"`
	UserQuestion        string            `json:"user_question"`
	Phase               CallPhase         `json:"phase"`
	Transcript          []TranscriptEntry `json:"transcript"`
	TelephonyCallSID    string            `json:"telephony_call_sid,omitempty"`
	StreamSID           string            `json:"stream_sid,omitempty"`
	AgentConversationID string            `json:"agent_conversation_id,omitempty"`
	Error               string            `json:"error,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}

// Clone returns a deep copy safe to hand outside the owning bridge.
func (s *CallSession) Clone() *CallSession {
	out := *s
	out.Transcript = make([]TranscriptEntry, len(s.Transcript))
	copy(out.Transcript, s.Transcript)
	return &out
}

// LastBySpeaker returns the translated text of the most recent entry
// from the given speaker, or "" if there is none.
func (s *CallSession) LastBySpeaker(sp Speaker) string {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Speaker == sp {
			return s.Transcript[i].TranslatedText
		}
	}
	return ""
}
