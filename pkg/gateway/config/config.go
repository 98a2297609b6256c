// Package config loads the gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// TranslateProvider selects the translation backend.
type TranslateProvider string

const (
	TranslateOpenAI TranslateProvider = "openai"
	TranslateGemini TranslateProvider = "gemini"
)

type Config struct {
	Addr string

	// PublicURL is the externally reachable base URL of this gateway,
	// used to build the media stream URL handed to the telephony
	// provider.
	PublicURL string

	// DatabaseURL selects the Postgres session store; empty keeps
	// sessions in memory.
	DatabaseURL string

	// APIKeys guards the REST surface; empty disables auth.
	APIKeys map[string]struct{}

	// CORS
	CORSAllowedOrigins map[string]struct{} // empty => disabled

	// Telephony provider credentials.
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// Speech engine.
	GradiumAPIKey string
	GradiumSTTURL string
	GradiumTTSURL string

	// Agent/reasoning service.
	AgentBaseURL string
	AgentAPIKey  string

	// Translation.
	TranslateProvider TranslateProvider
	OpenAIAPIKey      string
	GeminiAPIKey      string
	TranslateModel    string

	// Call behavior.
	TTSVoice        string
	SourceLang      string
	UserLang        string
	Greeting        string
	Hotlines        map[string]string
	DefaultTarget   string
	TestPhoneNumber string
	AutoSendDelay   time.Duration

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("CALLGW_ADDR", ":8080"),
		PublicURL:           strings.TrimRight(envOr("CALLGW_PUBLIC_URL", "http://localhost:8080"), "/"),
		DatabaseURL:         os.Getenv("CALLGW_DATABASE_URL"),
		APIKeys:             make(map[string]struct{}),
		CORSAllowedOrigins:  make(map[string]struct{}),
		TwilioAccountSID:    os.Getenv("CALLGW_TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:     os.Getenv("CALLGW_TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:    os.Getenv("CALLGW_TWILIO_FROM_NUMBER"),
		GradiumAPIKey:       os.Getenv("CALLGW_GRADIUM_API_KEY"),
		GradiumSTTURL:       os.Getenv("CALLGW_GRADIUM_STT_URL"),
		GradiumTTSURL:       os.Getenv("CALLGW_GRADIUM_TTS_URL"),
		AgentBaseURL:        os.Getenv("CALLGW_AGENT_BASE_URL"),
		AgentAPIKey:         os.Getenv("CALLGW_AGENT_API_KEY"),
		TranslateProvider:   TranslateProvider(envOr("CALLGW_TRANSLATE_PROVIDER", string(TranslateOpenAI))),
		OpenAIAPIKey:        os.Getenv("CALLGW_OPENAI_API_KEY"),
		GeminiAPIKey:        os.Getenv("CALLGW_GEMINI_API_KEY"),
		TranslateModel:      os.Getenv("CALLGW_TRANSLATE_MODEL"),
		TTSVoice:            envOr("CALLGW_TTS_VOICE", "b35yykvVppLXyw_l"),
		SourceLang:          envOr("CALLGW_SOURCE_LANG", "fr"),
		UserLang:            envOr("CALLGW_USER_LANG", "en"),
		Greeting:            envOr("CALLGW_GREETING", "Bonjour, allô?"),
		Hotlines:            make(map[string]string),
		DefaultTarget:       envOr("CALLGW_DEFAULT_TARGET", "caf"),
		TestPhoneNumber:     os.Getenv("CALLGW_TEST_PHONE_NUMBER"),
		AutoSendDelay:       envDurationOr("CALLGW_AUTO_SEND_DELAY", 3*time.Second),
		ReadHeaderTimeout:   envDurationOr("CALLGW_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("CALLGW_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	for _, key := range splitCSV(os.Getenv("CALLGW_API_KEYS")) {
		cfg.APIKeys[key] = struct{}{}
	}
	for _, origin := range splitCSV(os.Getenv("CALLGW_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}
	for _, entry := range splitCSV(os.Getenv("CALLGW_HOTLINES")) {
		target, number, ok := strings.Cut(entry, "=")
		if !ok {
			return Config{}, fmt.Errorf("CALLGW_HOTLINES entry %q must be target=number", entry)
		}
		cfg.Hotlines[strings.TrimSpace(target)] = strings.TrimSpace(number)
	}

	switch cfg.TranslateProvider {
	case TranslateOpenAI, TranslateGemini:
	default:
		return Config{}, fmt.Errorf("CALLGW_TRANSLATE_PROVIDER must be one of openai|gemini")
	}
	if cfg.AutoSendDelay <= 0 {
		return Config{}, fmt.Errorf("CALLGW_AUTO_SEND_DELAY must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("CALLGW_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

// AuthEnabled reports whether API-key auth guards the REST surface.
func (c Config) AuthEnabled() bool {
	return len(c.APIKeys) > 0
}

// MediaStreamURL builds the WebSocket URL the telephony provider
// connects back to for a call's media stream.
func (c Config) MediaStreamURL(callID string) string {
	base := c.PublicURL
	base = strings.TrimPrefix(base, "https://")
	base = strings.TrimPrefix(base, "http://")
	return "wss://" + base + "/api/v1/call/media/" + callID
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
