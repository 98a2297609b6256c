package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nishuastic/tech-europe/pkg/core/bridge"
	"github.com/nishuastic/tech-europe/pkg/telephony"
)

// MediaHandler serves the websocket the telephony provider connects
// back to with the call's bidirectional audio.
type MediaHandler struct {
	Registry *bridge.Registry
	Logger   *slog.Logger
}

// mediaSender writes outbound audio frames back over the telephony
// socket. gorilla/websocket allows one concurrent writer, hence the
// mutex.
type mediaSender struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	streamSID string
}

func (m *mediaSender) SendMedia(audio []byte) error {
	frame := telephony.NewMediaFrame(m.streamSID, audio)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn.WriteJSON(frame)
}

func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("id")
	b, err := h.Registry.Get(callID)
	if err != nil {
		writeError(w, http.StatusNotFound, "call not found")
		return
	}

	// Twilio does not send an Origin header.
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	logger := h.Logger.With("call_id", callID)

	// The bridge outlives this request's context: teardown is driven by
	// the call phase machine, not by the HTTP layer.
	if err := b.Start(context.Background()); err != nil {
		switch {
		case errors.Is(err, bridge.ErrAlreadyStarted):
			// Reconnect of an active stream, keep reading.
		case errors.Is(err, bridge.ErrStopped):
			// The call was torn down while the socket connected.
			logger.Info("media stream for a finished call, closing")
			return
		default:
			logger.Error("start bridge", "error", err)
			b.Fail(err)
			return
		}
	}
	logger.Info("media stream connected")

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("media stream read", "error", err)
			}
			_ = b.StreamStopped()
			return
		}
		var msg telephony.InboundMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Warn("undecodable media message", "error", err)
			continue
		}
		switch msg.Event {
		case telephony.EventConnected:
			logger.Debug("telephony socket handshake complete")
		case telephony.EventStart:
			streamSID := msg.StreamSID
			if msg.Start != nil && msg.Start.StreamSID != "" {
				streamSID = msg.Start.StreamSID
			}
			sender := &mediaSender{conn: conn, streamSID: streamSID}
			if err := b.StreamStarted(streamSID, sender); err != nil {
				logger.Warn("stream start rejected", "error", err)
				return
			}
		case telephony.EventMedia:
			if msg.Media == nil {
				continue
			}
			audio, err := msg.Media.Audio()
			if err != nil {
				logger.Warn("undecodable audio payload", "error", err)
				continue
			}
			if err := b.PushAudio(audio); err != nil {
				return
			}
		case telephony.EventStop:
			logger.Info("media stream stopped")
			_ = b.StreamStopped()
			return
		default:
			logger.Debug("ignoring media event", "event", msg.Event)
		}
	}
}
