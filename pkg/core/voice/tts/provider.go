// Package tts provides streaming text-to-speech from the speech engine.
// Synthesis is requested in the telephony-native encoding (ulaw_8000) so
// chunks can be relayed to the call leg without conversion.
package tts

import "context"

// Provider is the interface for streaming synthesis services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// NewStream starts synthesizing text and returns a stream of audio
	// chunks in the requested output format.
	NewStream(ctx context.Context, opts SpeakOptions) (*Stream, error)
}

// SpeakOptions configures one synthesis request.
type SpeakOptions struct {
	Voice        string // voice identifier
	OutputFormat string // e.g. "ulaw_8000", "pcm_24000", "wav"
	Text         string // text to synthesize
}
