package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nishuastic/tech-europe/pkg/core/bridge"
)

// ObserverHandler serves the frontend websocket: live call events out,
// user responses and hangup commands in.
type ObserverHandler struct {
	Registry *bridge.Registry
	Logger   *slog.Logger
}

type observerCommand struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (h *ObserverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("id")
	b, err := h.Registry.Get(callID)
	if err != nil {
		writeError(w, http.StatusNotFound, "call not found")
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	logger := h.Logger.With("call_id", callID)

	var writeMu sync.Mutex
	writeEvent := func(ev bridge.Event) error {
		data, err := bridge.MarshalEvent(ev)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	snapshot := b.Snapshot()
	if err := writeEvent(&bridge.SessionStateEvent{
		Phase:    snapshot.Phase,
		Target:   snapshot.Target,
		Question: snapshot.UserQuestion,
	}); err != nil {
		return
	}

	// Commands come in on a separate goroutine so the event pump never
	// blocks on a slow or silent client.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var cmd observerCommand
			if err := json.Unmarshal(payload, &cmd); err != nil {
				logger.Warn("undecodable observer command", "error", err)
				continue
			}
			switch cmd.Type {
			case "user_response":
				if err := b.UserResponse(cmd.Text); err != nil {
					logger.Warn("user response rejected", "error", err)
				}
			case "hangup":
				_ = b.Hangup()
			default:
				logger.Debug("ignoring observer command", "command", cmd.Type)
			}
		}
	}()

	for {
		select {
		case ev := <-b.Events():
			if err := writeEvent(ev); err != nil {
				return
			}
		case <-b.Done():
			// Drain events emitted before the bridge stopped, then let
			// the client see a clean close.
			for {
				select {
				case ev := <-b.Events():
					if err := writeEvent(ev); err != nil {
						return
					}
				default:
					writeMu.Lock()
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call ended"))
					writeMu.Unlock()
					return
				}
			}
		case <-readerDone:
			return
		}
	}
}
