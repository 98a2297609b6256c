// Package translate converts conversation text between the caller's
// language and the remote party's language.
package translate

import (
	"context"
	"log/slog"
	"strings"
)

// Translator converts text from one language to another. Implementations
// should return the translated text only, with no commentary.
type Translator interface {
	Name() string
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// FailOpen wraps a Translator so that provider failures degrade to
// passing the original text through instead of stalling the call.
type FailOpen struct {
	inner  Translator
	logger *slog.Logger
}

// NewFailOpen wraps t. A nil logger falls back to slog.Default.
func NewFailOpen(t Translator, logger *slog.Logger) *FailOpen {
	if logger == nil {
		logger = slog.Default()
	}
	return &FailOpen{inner: t, logger: logger}
}

// Name returns the wrapped provider's name.
func (f *FailOpen) Name() string {
	return f.inner.Name()
}

// Translate delegates to the wrapped translator. On error it logs and
// returns the untranslated input with a nil error.
func (f *FailOpen) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	out, err := f.inner.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		f.logger.Warn("translation failed, passing text through",
			"provider", f.inner.Name(),
			"source_lang", sourceLang,
			"target_lang", targetLang,
			"error", err)
		return text, nil
	}
	return out, nil
}

func systemPrompt(sourceLang, targetLang string) string {
	var b strings.Builder
	b.WriteString("You are a translator on a live phone call. Translate the user's message from ")
	b.WriteString(sourceLang)
	b.WriteString(" to ")
	b.WriteString(targetLang)
	b.WriteString(". Keep the register conversational and concise. Reply with the translation only, no explanations or quotes.")
	return b.String()
}
