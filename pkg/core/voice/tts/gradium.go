package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const defaultGradiumTTSURL = "wss://api.gradium.ai/v1/tts/streaming"

// OutputFormatTelephony is the mu-law 8 kHz format the telephony leg plays
// natively. Requesting it here removes the whole return-path conversion.
const OutputFormatTelephony = "ulaw_8000"

// GradiumProvider implements Provider against the Gradium streaming API.
type GradiumProvider struct {
	apiKey string
	wsURL  string
}

// NewGradium creates a Gradium TTS provider.
func NewGradium(apiKey string) *GradiumProvider {
	return &GradiumProvider{apiKey: apiKey, wsURL: defaultGradiumTTSURL}
}

// NewGradiumWithURL creates a provider against a non-default endpoint.
func NewGradiumWithURL(apiKey, wsURL string) *GradiumProvider {
	return &GradiumProvider{apiKey: apiKey, wsURL: wsURL}
}

// Name returns the provider identifier.
func (g *GradiumProvider) Name() string {
	return "gradium"
}

type gradiumTTSSetup struct {
	VoiceID      string `json:"voice_id"`
	OutputFormat string `json:"output_format"`
}

type gradiumTTSText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type gradiumTTSMessage struct {
	Type    string `json:"type"` // "audio", "end", "error"
	Audio   string `json:"audio,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewStream starts a synthesis stream for opts.Text.
func (g *GradiumProvider) NewStream(ctx context.Context, opts SpeakOptions) (*Stream, error) {
	if opts.Text == "" {
		return nil, fmt.Errorf("empty synthesis text")
	}
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

	format := opts.OutputFormat
	if format == "" {
		format = OutputFormatTelephony
	}
	if err := conn.WriteJSON(gradiumTTSSetup{VoiceID: opts.Voice, OutputFormat: format}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send setup: %w", err)
	}
	if err := conn.WriteJSON(gradiumTTSText{Type: "text", Text: opts.Text}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send text: %w", err)
	}

	s := &Stream{
		conn:  conn,
		audio: make(chan []byte, 64),
		done:  make(chan struct{}),
	}
	go s.readLoop(ctx)
	return s, nil
}

// Stream delivers synthesized audio chunks as they are produced.
type Stream struct {
	conn   *websocket.Conn
	audio  chan []byte
	done   chan struct{}
	closed atomic.Bool
	errMu  sync.Mutex
	err    error
}

func (s *Stream) readLoop(ctx context.Context) {
	defer func() {
		close(s.audio)
		close(s.done)
		s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			s.setErr(ctx.Err())
			return
		default:
		}

		var msg gradiumTTSMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !s.closed.Load() {
				s.setErr(err)
			}
			return
		}

		switch msg.Type {
		case "audio":
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				s.setErr(fmt.Errorf("decode audio chunk: %w", err))
				return
			}
			select {
			case s.audio <- chunk:
			case <-ctx.Done():
				s.setErr(ctx.Err())
				return
			}

		case "end":
			return

		case "error":
			s.setErr(fmt.Errorf("gradium tts: %s", msg.Message))
			return
		}
	}
}

func (s *Stream) setErr(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

// Audio returns the channel of synthesized chunks. It is closed when
// synthesis finishes or fails; check Err afterwards.
func (s *Stream) Audio() <-chan []byte {
	return s.audio
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

// Close abandons the stream.
func (s *Stream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.conn.Close()
}
