// Package stt provides streaming speech-to-text over the speech engine's
// WebSocket API. The stream yields incremental transcript text and periodic
// voice-activity samples; turn-taking decisions belong to the caller.
package stt

import "context"

// Provider is the interface for streaming transcription services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// NewStream opens a bidirectional transcription stream. Audio is sent
	// incrementally via SendAudio and events received via Events.
	NewStream(ctx context.Context, opts StreamOptions) (*Stream, error)
}

// StreamOptions configures a transcription stream.
type StreamOptions struct {
	Model      string // engine model name (default: "default")
	Language   string // ISO language code of the expected speech
	Encoding   string // input encoding (default: "pcm")
	SampleRate int    // input sample rate in Hz
}

// EventType discriminates stream events.
type EventType int

const (
	// EventTranscript carries an incremental text delta.
	EventTranscript EventType = iota
	// EventVAD carries a voice-activity sample.
	EventVAD
	// EventEndOfStream marks the engine-side end of the stream.
	EventEndOfStream
)

// Event is a single message from the transcription stream.
type Event struct {
	Type EventType

	// Text is the transcript delta for EventTranscript.
	Text string

	// InactivityProb is the probability in [0,1] that the speaker has
	// stopped talking, for EventVAD.
	InactivityProb float64
}
