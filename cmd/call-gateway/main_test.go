package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nishuastic/tech-europe/pkg/gateway/config"
)

func TestBuildHTTPServer(t *testing.T) {
	cfg := config.Config{Addr: ":9099", ReadHeaderTimeout: 7 * time.Second}
	srv := buildHTTPServer(cfg, nil)
	if srv.Addr != ":9099" {
		t.Fatalf("addr = %q", srv.Addr)
	}
	if srv.ReadHeaderTimeout != 7*time.Second {
		t.Fatalf("read header timeout = %v", srv.ReadHeaderTimeout)
	}
}

func TestBuildTranslator_RequiresKey(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := buildTranslator(context.Background(), config.Config{
		TranslateProvider: config.TranslateOpenAI,
	}, logger)
	if err == nil {
		t.Fatal("expected an error without an api key")
	}
}

func TestBuildTranslator_OpenAI(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tr, err := buildTranslator(context.Background(), config.Config{
		TranslateProvider: config.TranslateOpenAI,
		OpenAIAPIKey:      "sk-test",
	}, logger)
	if err != nil {
		t.Fatalf("buildTranslator: %v", err)
	}
	if tr.Name() != "openai" {
		t.Fatalf("provider = %q, want openai", tr.Name())
	}
}

func TestBuildStore_DefaultsToMemory(t *testing.T) {
	s, err := buildStore(context.Background(), config.Config{})
	if err != nil {
		t.Fatalf("buildStore: %v", err)
	}
	defer s.Close()
}
