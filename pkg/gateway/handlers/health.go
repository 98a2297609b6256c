package handlers

import (
	"net/http"

	"github.com/nishuastic/tech-europe/pkg/gateway/config"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type ReadyHandler struct {
	Config config.Config
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK           bool     `json:"ok"`
		AuthEnabled  bool     `json:"auth_enabled"`
		SessionStore string   `json:"session_store"`
		Issues       []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)
	if h.Config.TwilioAccountSID == "" || h.Config.TwilioAuthToken == "" {
		issues = append(issues, "telephony credentials missing")
	}
	if h.Config.TwilioFromNumber == "" {
		issues = append(issues, "telephony from-number missing")
	}
	if h.Config.GradiumAPIKey == "" {
		issues = append(issues, "speech engine api key missing")
	}
	switch h.Config.TranslateProvider {
	case config.TranslateOpenAI:
		if h.Config.OpenAIAPIKey == "" {
			issues = append(issues, "translate provider openai but no api key")
		}
	case config.TranslateGemini:
		if h.Config.GeminiAPIKey == "" {
			issues = append(issues, "translate provider gemini but no api key")
		}
	default:
		issues = append(issues, "invalid translate provider")
	}
	if h.Config.AutoSendDelay <= 0 {
		issues = append(issues, "auto send delay must be > 0")
	}

	sessionStore := "memory"
	if h.Config.DatabaseURL != "" {
		sessionStore = "postgres"
	}

	ok := len(issues) == 0
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, readyResp{
		OK:           ok,
		AuthEnabled:  h.Config.AuthEnabled(),
		SessionStore: sessionStore,
		Issues:       issues,
	})
}
