// Package server assembles the gateway's HTTP surface: routes plus the
// middleware chain.
package server

import (
	"log/slog"
	"net/http"

	"github.com/nishuastic/tech-europe/pkg/core/bridge"
	"github.com/nishuastic/tech-europe/pkg/gateway/config"
	"github.com/nishuastic/tech-europe/pkg/gateway/handlers"
	"github.com/nishuastic/tech-europe/pkg/gateway/mw"
	"github.com/nishuastic/tech-europe/pkg/gateway/store"
	"github.com/nishuastic/tech-europe/pkg/telephony"
)

// Deps are the wired collaborators the handlers need.
type Deps struct {
	Store     store.SessionStore
	Registry  *bridge.Registry
	Telephony telephony.CallControl
	Directory *telephony.Directory
	NewBridge handlers.BridgeFactory
}

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux
}

func New(cfg config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.routes(deps)
	return s
}

func (s *Server) routes(deps Deps) {
	s.mux.Handle("GET /healthz", handlers.HealthHandler{})
	s.mux.Handle("GET /readyz", handlers.ReadyHandler{Config: s.cfg})

	calls := &handlers.CallHandlers{
		Config:    s.cfg,
		Store:     deps.Store,
		Registry:  deps.Registry,
		Telephony: deps.Telephony,
		Directory: deps.Directory,
		NewBridge: deps.NewBridge,
		Logger:    s.logger,
	}
	s.mux.HandleFunc("POST /api/v1/call/start", calls.StartCall)
	s.mux.HandleFunc("POST /api/v1/call/dial/{id}", calls.DialCall)
	s.mux.HandleFunc("GET /api/v1/call/session/{id}", calls.GetSession)
	s.mux.HandleFunc("GET /api/v1/call/sessions", calls.ListSessions)
	s.mux.HandleFunc("DELETE /api/v1/call/session/{id}", calls.EndCall)

	s.mux.Handle("GET /api/v1/call/media/{id}", &handlers.MediaHandler{
		Registry: deps.Registry,
		Logger:   s.logger,
	})
	s.mux.Handle("GET /api/v1/call/ws/{id}", &handlers.ObserverHandler{
		Registry: deps.Registry,
		Logger:   s.logger,
	})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Auth(s.cfg, h)
	h = mw.CORS(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
