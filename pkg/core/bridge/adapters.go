package bridge

import (
	"context"

	"github.com/nishuastic/tech-europe/pkg/core/voice/stt"
	"github.com/nishuastic/tech-europe/pkg/core/voice/tts"
)

type sttAdapter struct {
	provider stt.Provider
}

func (a sttAdapter) NewStream(ctx context.Context, opts stt.StreamOptions) (TranscriptionStream, error) {
	s, err := a.provider.NewStream(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// AdaptSTT wraps a concrete transcription provider as an STTClient.
func AdaptSTT(p stt.Provider) STTClient {
	return sttAdapter{provider: p}
}

type ttsAdapter struct {
	provider tts.Provider
}

func (a ttsAdapter) NewStream(ctx context.Context, opts tts.SpeakOptions) (SynthesisStream, error) {
	s, err := a.provider.NewStream(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// AdaptTTS wraps a concrete synthesis provider as a TTSClient.
func AdaptTTS(p tts.Provider) TTSClient {
	return ttsAdapter{provider: p}
}
