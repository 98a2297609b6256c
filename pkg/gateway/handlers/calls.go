package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nishuastic/tech-europe/pkg/core/bridge"
	"github.com/nishuastic/tech-europe/pkg/gateway/config"
	"github.com/nishuastic/tech-europe/pkg/gateway/store"
	"github.com/nishuastic/tech-europe/pkg/telephony"
)

// BridgeFactory builds the live bridge for a freshly created session.
// Wiring the factory instead of the full dependency set keeps the
// handlers testable with scripted bridges.
type BridgeFactory func(session *bridge.CallSession) *bridge.Bridge

// CallHandlers serves the call lifecycle REST endpoints.
type CallHandlers struct {
	Config    config.Config
	Store     store.SessionStore
	Registry  *bridge.Registry
	Telephony telephony.CallControl
	Directory *telephony.Directory
	NewBridge BridgeFactory
	Logger    *slog.Logger
}

type startCallRequest struct {
	Target       string `json:"target"`
	UserQuestion string `json:"user_question"`
}

type startCallResponse struct {
	CallID       string `json:"call_id"`
	Phase        string `json:"phase"`
	WebsocketURL string `json:"websocket_url"`
}

// StartCall creates a session record and its bridge. Nothing is dialed
// yet; the caller connects the observer socket first, then dials.
func (h *CallHandlers) StartCall(w http.ResponseWriter, r *http.Request) {
	var req startCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.UserQuestion = strings.TrimSpace(req.UserQuestion)
	if req.UserQuestion == "" {
		writeError(w, http.StatusBadRequest, "user_question is required")
		return
	}
	target := strings.TrimSpace(req.Target)
	if target == "" {
		target = h.Config.DefaultTarget
	}

	session := &bridge.CallSession{
		CallID:       uuid.NewString(),
		Target:       target,
		TargetNumber: h.Directory.Lookup(target),
		UserQuestion: req.UserQuestion,
		Phase:        bridge.PhaseReadyToCall,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Store.UpsertSession(r.Context(), session); err != nil {
		h.Logger.Error("persist new session", "call_id", session.CallID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to persist session")
		return
	}

	b := h.NewBridge(session)
	h.Registry.Put(session.CallID, b)
	// The durable record outlives the bridge; the live entry must not.
	go func() {
		<-b.Done()
		h.Registry.Remove(session.CallID)
	}()
	h.Logger.Info("call session created", "call_id", session.CallID, "target", target)

	writeJSON(w, http.StatusCreated, startCallResponse{
		CallID:       session.CallID,
		Phase:        string(session.Phase),
		WebsocketURL: "/api/v1/call/ws/" + session.CallID,
	})
}

type dialCallResponse struct {
	CallID  string `json:"call_id"`
	Phase   string `json:"phase"`
	CallSID string `json:"call_sid"`
}

// DialCall places the outbound telephony call for an existing session.
func (h *CallHandlers) DialCall(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("id")
	b, err := h.Registry.Get(callID)
	if err != nil {
		writeError(w, http.StatusNotFound, "call not found")
		return
	}
	snapshot := b.Snapshot()
	if snapshot.Phase != bridge.PhaseReadyToCall {
		writeError(w, http.StatusConflict, "call is not ready to dial")
		return
	}

	callSID, err := h.Telephony.PlaceCall(r.Context(), snapshot.TargetNumber, h.Config.MediaStreamURL(callID))
	if err != nil {
		h.Logger.Error("place call", "call_id", callID, "error", err)
		b.Fail(err)
		h.Registry.Remove(callID)
		writeError(w, http.StatusBadGateway, "failed to place call")
		return
	}
	b.BeginDial(callSID)
	h.Logger.Info("outbound call placed", "call_id", callID, "call_sid", callSID, "to", snapshot.TargetNumber)

	writeJSON(w, http.StatusOK, dialCallResponse{
		CallID:  callID,
		Phase:   string(bridge.PhaseDialing),
		CallSID: callSID,
	})
}

// GetSession returns the live snapshot when the call is active, the
// stored record otherwise.
func (h *CallHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("id")
	if b, err := h.Registry.Get(callID); err == nil {
		writeJSON(w, http.StatusOK, b.Snapshot())
		return
	}
	session, err := h.Store.GetSession(r.Context(), callID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "call not found")
			return
		}
		h.Logger.Error("load session", "call_id", callID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// ListSessions returns all session records, newest first.
func (h *CallHandlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Store.ListSessions(r.Context())
	if err != nil {
		h.Logger.Error("list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

type endCallResponse struct {
	CallID string `json:"call_id"`
	Phase  string `json:"phase"`
}

// EndCall hangs up a live call, or reports the stored phase when the
// call already finished.
func (h *CallHandlers) EndCall(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("id")
	if b, err := h.Registry.Get(callID); err == nil {
		b.Hangup()
		select {
		case <-b.Done():
		case <-time.After(5 * time.Second):
			h.Logger.Warn("hangup did not settle in time", "call_id", callID)
		}
		h.Registry.Remove(callID)
		writeJSON(w, http.StatusOK, endCallResponse{CallID: callID, Phase: string(b.Snapshot().Phase)})
		return
	}
	session, err := h.Store.GetSession(r.Context(), callID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "call not found")
			return
		}
		h.Logger.Error("load session", "call_id", callID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, endCallResponse{CallID: callID, Phase: string(session.Phase)})
}
