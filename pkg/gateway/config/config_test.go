package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.TranslateProvider != TranslateOpenAI {
		t.Fatalf("TranslateProvider = %q", cfg.TranslateProvider)
	}
	if cfg.SourceLang != "fr" || cfg.UserLang != "en" {
		t.Fatalf("langs = %q/%q", cfg.SourceLang, cfg.UserLang)
	}
	if cfg.AutoSendDelay != 3*time.Second {
		t.Fatalf("AutoSendDelay = %v", cfg.AutoSendDelay)
	}
	if cfg.AuthEnabled() {
		t.Fatal("auth should be disabled without keys")
	}
}

func TestLoadFromEnv_Hotlines(t *testing.T) {
	t.Setenv("CALLGW_HOTLINES", "caf=+33100000001, impots=+33100000002")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Hotlines["caf"] != "+33100000001" || cfg.Hotlines["impots"] != "+33100000002" {
		t.Fatalf("hotlines = %v", cfg.Hotlines)
	}
}

func TestLoadFromEnv_BadHotlineEntry(t *testing.T) {
	t.Setenv("CALLGW_HOTLINES", "caf+33100000001")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for malformed hotline entry")
	}
}

func TestLoadFromEnv_BadTranslateProvider(t *testing.T) {
	t.Setenv("CALLGW_TRANSLATE_PROVIDER", "deepl")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadFromEnv_APIKeys(t *testing.T) {
	t.Setenv("CALLGW_API_KEYS", "key-a, key-b")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Fatal("auth should be enabled")
	}
	if _, ok := cfg.APIKeys["key-b"]; !ok {
		t.Fatalf("keys = %v", cfg.APIKeys)
	}
}

func TestMediaStreamURL(t *testing.T) {
	t.Setenv("CALLGW_PUBLIC_URL", "https://gateway.example.com/")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	got := cfg.MediaStreamURL("abc")
	if got != "wss://gateway.example.com/api/v1/call/media/abc" {
		t.Fatalf("url = %q", got)
	}
}
