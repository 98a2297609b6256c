package translate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type scriptedTranslator struct {
	out   string
	err   error
	calls int
}

func (s *scriptedTranslator) Name() string { return "scripted" }

func (s *scriptedTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.out, nil
}

func TestFailOpen_PassesThroughOnError(t *testing.T) {
	inner := &scriptedTranslator{err: errors.New("provider down")}
	f := NewFailOpen(inner, slog.Default())

	got, err := f.Translate(context.Background(), "bonjour", "fr", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "bonjour" {
		t.Fatalf("got %q, want original text", got)
	}
}

func TestFailOpen_ReturnsTranslation(t *testing.T) {
	inner := &scriptedTranslator{out: "hello"}
	f := NewFailOpen(inner, nil)

	got, err := f.Translate(context.Background(), "bonjour", "fr", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestFailOpen_SkipsBlankText(t *testing.T) {
	inner := &scriptedTranslator{out: "should not be used"}
	f := NewFailOpen(inner, nil)

	got, err := f.Translate(context.Background(), "   ", "fr", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "   " {
		t.Fatalf("got %q, want input unchanged", got)
	}
	if inner.calls != 0 {
		t.Fatalf("inner called %d times, want 0", inner.calls)
	}
}

func TestSystemPrompt_NamesBothLanguages(t *testing.T) {
	p := systemPrompt("French", "English")
	if !strings.Contains(p, "French") || !strings.Contains(p, "English") {
		t.Fatalf("prompt missing languages: %q", p)
	}
}
