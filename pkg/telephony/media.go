// Package telephony covers the phone-network side of the gateway: the
// Twilio REST client that places and ends calls, the Media Streams wire
// messages, and the hotline directory.
package telephony

import "encoding/base64"

// Media Streams event names.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventStop      = "stop"
)

// InboundMessage is one JSON frame read from a Media Streams socket.
type InboundMessage struct {
	Event     string        `json:"event"`
	StreamSID string        `json:"streamSid,omitempty"`
	Start     *StartPayload `json:"start,omitempty"`
	Media     *MediaPayload `json:"media,omitempty"`
}

// StartPayload describes the stream that just began.
type StartPayload struct {
	StreamSID        string            `json:"streamSid"`
	CallSID          string            `json:"callSid"`
	Tracks           []string          `json:"tracks"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// MediaPayload carries one base64-encoded mu-law audio frame.
type MediaPayload struct {
	Track     string `json:"track,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

// Audio decodes the frame's audio bytes.
func (m *MediaPayload) Audio() ([]byte, error) {
	return base64.StdEncoding.DecodeString(m.Payload)
}

// OutboundMedia is one JSON frame written back to a Media Streams
// socket to play audio into the call.
type OutboundMedia struct {
	Event     string       `json:"event"`
	StreamSID string       `json:"streamSid"`
	Media     MediaPayload `json:"media"`
}

// NewMediaFrame builds an outbound media frame for raw mu-law audio.
func NewMediaFrame(streamSID string, audio []byte) OutboundMedia {
	return OutboundMedia{
		Event:     EventMedia,
		StreamSID: streamSID,
		Media:     MediaPayload{Payload: base64.StdEncoding.EncodeToString(audio)},
	}
}
