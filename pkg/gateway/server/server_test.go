package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nishuastic/tech-europe/pkg/core/bridge"
	"github.com/nishuastic/tech-europe/pkg/gateway/config"
	"github.com/nishuastic/tech-europe/pkg/gateway/store"
	"github.com/nishuastic/tech-europe/pkg/telephony"
)

func testServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := Deps{
		Store:     store.NewMemory(),
		Registry:  bridge.NewRegistry(),
		Directory: telephony.NewDirectory(cfg.Hotlines, "", cfg.TestPhoneNumber),
	}
	srv := httptest.NewServer(New(cfg, deps, logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthz_OpenWithoutAuth(t *testing.T) {
	cfg := config.Config{
		APIKeys:       map[string]struct{}{"secret": {}},
		AutoSendDelay: 3 * time.Second,
	}
	srv := testServer(t, cfg)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok\n" {
		t.Fatalf("body = %q", body)
	}
}

func TestRESTRequiresAPIKey(t *testing.T) {
	cfg := config.Config{
		APIKeys:       map[string]struct{}{"secret": {}},
		AutoSendDelay: 3 * time.Second,
	}
	srv := testServer(t, cfg)

	resp, err := http.Get(srv.URL + "/api/v1/call/sessions")
	if err != nil {
		t.Fatalf("GET sessions: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("without key: status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/call/sessions", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET sessions with key: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("with key: status = %d, want 200", resp.StatusCode)
	}
}

func TestReadyz_ReportsMissingCredentials(t *testing.T) {
	cfg := config.Config{
		TranslateProvider: config.TranslateOpenAI,
		AutoSendDelay:     3 * time.Second,
	}
	srv := testServer(t, cfg)

	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var out struct {
		OK     bool     `json:"ok"`
		Issues []string `json:"issues"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode readyz: %v", err)
	}
	if out.OK {
		t.Fatal("expected not ready")
	}
	found := false
	for _, issue := range out.Issues {
		if strings.Contains(issue, "telephony credentials") {
			found = true
		}
	}
	if !found {
		t.Fatalf("issues = %v, want a telephony credentials issue", out.Issues)
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	srv := testServer(t, config.Config{AutoSendDelay: 3 * time.Second})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("expected X-Request-Id response header")
	}
}
