package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const defaultGradiumWSURL = "wss://api.gradium.ai/v1/stt/streaming"

// GradiumProvider implements Provider against the Gradium streaming API.
type GradiumProvider struct {
	apiKey string
	wsURL  string
}

// NewGradium creates a Gradium STT provider.
func NewGradium(apiKey string) *GradiumProvider {
	return &GradiumProvider{apiKey: apiKey, wsURL: defaultGradiumWSURL}
}

// NewGradiumWithURL creates a provider against a non-default endpoint.
func NewGradiumWithURL(apiKey, wsURL string) *GradiumProvider {
	return &GradiumProvider{apiKey: apiKey, wsURL: wsURL}
}

// Name returns the provider identifier.
func (g *GradiumProvider) Name() string {
	return "gradium"
}

type gradiumSetup struct {
	ModelName   string            `json:"model_name"`
	InputFormat string            `json:"input_format"`
	JSONConfig  map[string]string `json:"json_config,omitempty"`
}

type gradiumMessage struct {
	Type string `json:"type"` // "text", "step", "end_of_stream", "error"
	Text string `json:"text,omitempty"`
	VAD  []struct {
		InactivityProb float64 `json:"inactivity_prob"`
	} `json:"vad,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewStream opens a streaming transcription session.
func (g *GradiumProvider) NewStream(ctx context.Context, opts StreamOptions) (*Stream, error) {
	u, err := url.Parse(g.wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse websocket URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("X-API-Key", g.apiKey)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket connect: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "default"
	}
	encoding := opts.Encoding
	if encoding == "" {
		encoding = "pcm"
	}
	setup := gradiumSetup{
		ModelName:   model,
		InputFormat: encoding,
	}
	if opts.Language != "" {
		setup.JSONConfig = map[string]string{"language": opts.Language}
	}
	if err := conn.WriteJSON(setup); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send setup: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		conn:   conn,
		events: make(chan Event, 100),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go s.readLoop()
	return s, nil
}

// Stream is a live transcription session.
type Stream struct {
	conn    *websocket.Conn
	events  chan Event
	done    chan struct{}
	closed  atomic.Bool
	writeMu sync.Mutex
	errMu   sync.Mutex
	err     error
	ctx     context.Context
	cancel  context.CancelFunc
}

func (s *Stream) readLoop() {
	defer func() {
		close(s.events)
		close(s.done)
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !s.closed.Load() {
				s.setErr(err)
			}
			return
		}

		var msg gradiumMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "text":
			if msg.Text == "" {
				continue
			}
			s.deliver(Event{Type: EventTranscript, Text: msg.Text})

		case "step":
			// The engine reports several prediction horizons per step;
			// the third one is the stable inactivity estimate.
			if len(msg.VAD) >= 3 {
				s.deliver(Event{Type: EventVAD, InactivityProb: msg.VAD[2].InactivityProb})
			}

		case "end_of_stream":
			s.deliver(Event{Type: EventEndOfStream})
			return

		case "error":
			s.setErr(fmt.Errorf("gradium stt: %s", msg.Message))
			return
		}
	}
}

func (s *Stream) deliver(ev Event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *Stream) setErr(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

// SendAudio sends one audio chunk in the format given at stream creation.
func (s *Stream) SendAudio(data []byte) error {
	if s.closed.Load() {
		return fmt.Errorf("stream closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Events returns the channel of transcription events. It is closed when
// the stream ends.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Done returns a channel closed when the stream ends.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the first stream error, if any.
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close terminates the session.
func (s *Stream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.cancel()

	s.writeMu.Lock()
	s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"end_of_stream"}`))
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()

	return s.conn.Close()
}
