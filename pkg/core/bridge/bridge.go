package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nishuastic/tech-europe/pkg/core/agent"
	"github.com/nishuastic/tech-europe/pkg/core/audio"
	"github.com/nishuastic/tech-europe/pkg/core/voice/stt"
	"github.com/nishuastic/tech-europe/pkg/core/voice/tts"
)

// TranscriptionStream is one live speech-to-text stream.
type TranscriptionStream interface {
	SendAudio(data []byte) error
	Events() <-chan stt.Event
	Done() <-chan struct{}
	Err() error
	Close() error
}

// STTClient opens transcription streams.
type STTClient interface {
	NewStream(ctx context.Context, opts stt.StreamOptions) (TranscriptionStream, error)
}

// SynthesisStream is one live text-to-speech stream.
type SynthesisStream interface {
	Audio() <-chan []byte
	Done() <-chan struct{}
	Err() error
	Close() error
}

// TTSClient opens synthesis streams.
type TTSClient interface {
	NewStream(ctx context.Context, opts tts.SpeakOptions) (SynthesisStream, error)
}

// Translator converts text between the call's two languages. Failures
// are tolerated; the untranslated text is used instead.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// AgentClient proposes the next thing to say on the user's behalf.
type AgentClient interface {
	Chat(ctx context.Context, req agent.Request) (*agent.Reply, error)
}

// CallControl hangs up the telephony leg.
type CallControl interface {
	EndCall(ctx context.Context, callSID string) error
}

// MediaSender plays raw narrowband audio into the phone call.
type MediaSender interface {
	SendMedia(audio []byte) error
}

// SessionStore persists the session record. Upserts are keyed by call
// id and happen after every transcript append and phase change.
type SessionStore interface {
	UpsertSession(ctx context.Context, s *CallSession) error
}

// Deps are the external collaborators of one bridge. STT, TTS and
// Translator are required; the rest degrade gracefully when nil.
type Deps struct {
	STT        STTClient
	TTS        TTSClient
	Translator Translator
	Agent      AgentClient
	Telephony  CallControl
	Store      SessionStore
}

// Config tunes one bridge.
type Config struct {
	Greeting      string
	Voice         string
	SourceLang    string
	UserLang      string
	STTModel      string
	AutoSendDelay time.Duration
	Logger        *slog.Logger
	Now           func() time.Time
}

func (c *Config) applyDefaults() {
	if c.Greeting == "" {
		c.Greeting = "Bonjour, allô?"
	}
	if c.SourceLang == "" {
		c.SourceLang = "fr"
	}
	if c.UserLang == "" {
		c.UserLang = "en"
	}
	if c.STTModel == "" {
		c.STTModel = "default"
	}
	if c.AutoSendDelay <= 0 {
		c.AutoSendDelay = 3 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

type controlKind int

const (
	controlStreamStart controlKind = iota
	controlStreamStop
	controlUserResponse
	controlHangup
)

type controlMsg struct {
	kind      controlKind
	text      string
	streamSID string
	media     MediaSender
}

// Bridge orchestrates one call: it owns the TurnState and CallPhase,
// consumes the transcription stream, applies turn detection and the
// throttled preview policy, and drives agent-mediated speech back out.
// All state transitions happen on the event loop goroutine; the other
// goroutines hand work to it through channels.
type Bridge struct {
	deps Deps
	cfg  Config

	mu      sync.Mutex
	session *CallSession

	turn       TurnState
	transcoder *audio.Transcoder
	sttStream  TranscriptionStream
	media      MediaSender

	audioIn chan []byte
	control chan controlMsg
	events  chan Event

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once
	started  atomic.Bool
	closed   atomic.Bool

	logger *slog.Logger
}

// New creates a bridge for the given session record. The bridge becomes
// the session's sole writer until the call ends.
func New(session *CallSession, deps Deps, cfg Config) *Bridge {
	cfg.applyDefaults()
	return &Bridge{
		deps:       deps,
		cfg:        cfg,
		session:    session,
		transcoder: audio.NewTranscoder(),
		audioIn:    make(chan []byte, 256),
		control:    make(chan controlMsg, 16),
		events:     make(chan Event, 100),
		done:       make(chan struct{}),
		logger:     cfg.Logger.With("call_id", session.CallID),
	}
}

// Start opens the transcription stream and launches the per-call
// goroutines. It is not safe to call twice, and it refuses to run on a
// bridge that was already torn down (a hangup can land while the media
// socket is still connecting).
func (b *Bridge) Start(ctx context.Context) error {
	if b.closed.Load() {
		return ErrStopped
	}
	if b.started.Swap(true) {
		return ErrAlreadyStarted
	}
	sttStream, err := b.deps.STT.NewStream(ctx, stt.StreamOptions{
		Model:      b.cfg.STTModel,
		Language:   b.cfg.SourceLang,
		Encoding:   "pcm",
		SampleRate: audio.EngineSampleRate,
	})
	if err != nil {
		return fmt.Errorf("open transcription stream: %w", err)
	}
	b.sttStream = sttStream
	b.ctx, b.cancel = context.WithCancel(ctx)
	if b.closed.Load() {
		// Close raced with Start and missed the cancel func.
		b.cancel()
	}

	go b.ingestLoop()
	go b.eventLoop()
	return nil
}

// Done is closed when the bridge has fully stopped.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Events returns the observer event channel. Events are dropped rather
// than blocking the owner loop when the consumer falls behind.
func (b *Bridge) Events() <-chan Event {
	return b.events
}

// Snapshot returns a copy of the session record.
func (b *Bridge) Snapshot() *CallSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.Clone()
}

// PushAudio queues one inbound narrowband telephony frame.
func (b *Bridge) PushAudio(frame []byte) error {
	buf := make([]byte, len(frame))
	copy(buf, frame)
	select {
	case b.audioIn <- buf:
		return nil
	case <-b.done:
		return fmt.Errorf("bridge stopped")
	}
}

// StreamStarted tells the bridge the telephony media stream is live.
func (b *Bridge) StreamStarted(streamSID string, media MediaSender) error {
	return b.send(controlMsg{kind: controlStreamStart, streamSID: streamSID, media: media})
}

// StreamStopped tells the bridge the telephony media stream closed.
func (b *Bridge) StreamStopped() error {
	return b.send(controlMsg{kind: controlStreamStop})
}

// UserResponse queues a human-supplied reply to speak to the
// counterparty.
func (b *Bridge) UserResponse(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("empty user response")
	}
	return b.send(controlMsg{kind: controlUserResponse, text: text})
}

// Hangup ends the call on the user's request. Before Start there is no
// event loop to relay through, so the teardown runs inline.
func (b *Bridge) Hangup() error {
	if !b.started.Load() {
		b.endCall(true)
		return nil
	}
	return b.send(controlMsg{kind: controlHangup})
}

func (b *Bridge) send(msg controlMsg) error {
	select {
	case b.control <- msg:
		return nil
	case <-b.done:
		return fmt.Errorf("bridge stopped")
	}
}

// BeginDial records the placed telephony call and moves the session to
// Dialing. It runs before the media stream exists, so before Start.
func (b *Bridge) BeginDial(callSID string) {
	b.mu.Lock()
	b.session.TelephonyCallSID = callSID
	b.mu.Unlock()
	b.setPhase(PhaseDialing)
}

// Fail marks the call unrecoverably broken from outside the event
// loop, for errors that happen before the loops start (a dial that
// never goes through) or on the media connection itself.
func (b *Bridge) Fail(err error) {
	b.fail(err)
}

// Close cancels the call's activities. It is idempotent.
func (b *Bridge) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	if b.cancel != nil {
		b.cancel()
	} else {
		// No event loop running to close done for us.
		b.closeDone()
	}
	return nil
}

func (b *Bridge) closeDone() {
	b.doneOnce.Do(func() { close(b.done) })
}

// ingestLoop transcodes inbound telephony audio and feeds the
// transcription stream.
func (b *Bridge) ingestLoop() {
	for {
		select {
		case frame := <-b.audioIn:
			for _, engineFrame := range b.transcoder.NarrowbandToEngine(frame) {
				if err := b.sttStream.SendAudio(engineFrame); err != nil {
					b.logger.Warn("send audio to transcription", "error", err)
					return
				}
			}
		case <-b.ctx.Done():
			return
		}
	}
}

// eventLoop is the single owner of TurnState and CallPhase. Every
// transition and transcript append happens here.
func (b *Bridge) eventLoop() {
	defer b.closeDone()
	defer b.sttStream.Close()
	defer b.Close()

	for {
		select {
		case ev, ok := <-b.sttStream.Events():
			if !ok {
				if !b.phase().Terminal() {
					err := b.sttStream.Err()
					if err == nil {
						err = fmt.Errorf("transcription stream closed")
					}
					b.fail(fmt.Errorf("transcription: %w", err))
				}
				return
			}
			b.handleSTTEvent(ev)

		case msg := <-b.control:
			b.handleControl(msg)

		case <-b.ctx.Done():
			return
		}
		if b.phase().Terminal() {
			return
		}
	}
}

func (b *Bridge) handleSTTEvent(ev stt.Event) {
	switch ev.Type {
	case stt.EventTranscript:
		b.turn.AddDelta(ev.Text)
		now := b.cfg.Now()
		if b.turn.ShouldPreview(now) {
			text := b.turn.Text()
			translated := b.translate(text, b.cfg.SourceLang, b.cfg.UserLang)
			b.turn.MarkPreview(translated, now)
			b.emit(&CounterpartySaidEvent{Text: text, Translated: translated, IsFinal: false})
		}

	case stt.EventVAD:
		b.turn.ObserveVAD(ev.InactivityProb)
		if b.turn.HardPause() {
			b.handleTurnEnd()
		}

	case stt.EventEndOfStream:
		b.logger.Info("transcription stream ended")
	}
}

func (b *Bridge) handleControl(msg controlMsg) {
	switch msg.kind {
	case controlStreamStart:
		b.media = msg.media
		b.mu.Lock()
		b.session.StreamSID = msg.streamSID
		b.mu.Unlock()
		b.setPhase(PhaseConnected)
		b.emit(&CallConnectedEvent{})
		b.setPhase(PhaseWaitingGreetingResponse)
		b.speak(b.cfg.Greeting, PhaseWaitingGreetingResponse)
		b.emit(&CounterpartySpeakingEvent{Status: "listening_for_greeting"})

	case controlStreamStop:
		b.endCall(false)

	case controlUserResponse:
		b.respond(msg.text)

	case controlHangup:
		b.endCall(true)
	}
}

// handleTurnEnd runs the full turn-boundary sequence: final
// translation, transcript append, termination check, and either the
// deferred question or the agent-mediated response flow.
func (b *Bridge) handleTurnEnd() {
	text := b.turn.Text()
	translated := b.translate(text, b.cfg.SourceLang, b.cfg.UserLang)

	b.appendTranscript(SpeakerCounterparty, text, translated)
	b.emit(&CounterpartyFinishedEvent{Text: text, Translated: translated})

	if ContainsTermination(text, translated) {
		b.logger.Info("termination phrase heard, hanging up")
		b.endCall(true)
		return
	}

	if b.phase() == PhaseWaitingGreetingResponse {
		b.logger.Info("counterparty answered greeting, sending the question")
		question := b.question()
		spoken := b.translate(question, b.cfg.UserLang, b.cfg.SourceLang)
		b.appendTranscript(SpeakerUser, spoken, question)
		b.speak(spoken, PhaseCafSpeaking)
		b.turn.Reset()
		return
	}

	b.setPhase(PhaseWaitingUser)
	b.emit(&AgentThinkingEvent{Message: "Crafting response..."})
	b.runAgentTurn(translated)
	b.turn.Reset()
}

func (b *Bridge) runAgentTurn(counterpartySaid string) {
	if b.deps.Agent == nil {
		b.emit(&WaitingForUserEvent{Prompt: "Waiting for your response"})
		return
	}

	reply, err := b.deps.Agent.Chat(b.ctx, b.agentRequest(counterpartySaid))
	if err != nil {
		b.logger.Warn("agent request failed", "error", err)
		b.emit(&WaitingForUserEvent{Prompt: "The assistant is unavailable. What should I say?"})
		return
	}
	if reply.ConversationID != "" {
		b.mu.Lock()
		b.session.AgentConversationID = reply.ConversationID
		b.mu.Unlock()
	}

	if reply.Action != nil && reply.Action.Type == agent.ActionTypeAskUser {
		if reply.Message != "" {
			filler := b.translate(reply.Message, b.cfg.UserLang, b.cfg.SourceLang)
			b.speak(filler, PhaseWaitingUser)
		}
		question := reply.Action.Question
		if question == "" {
			question = "The assistant needs your help."
		}
		b.logger.Info("agent asked for human input", "question", question)
		b.emit(&WaitingForUserEvent{Prompt: question})
		return
	}

	if reply.Message == "" {
		b.emit(&WaitingForUserEvent{Prompt: "Waiting for your response"})
		return
	}

	lastSpoken := b.lastBySpeaker(SpeakerUser)
	if IsRepetitionLoop(lastSpoken, reply.Message, counterpartySaid) {
		b.logger.Warn("repetition loop detected, deferring to human")
		prompt := fmt.Sprintf("I'm stuck in a loop. Last thing they said was '%s'. What should I say?", counterpartySaid)
		b.emit(&WaitingForUserEvent{Prompt: prompt})
		return
	}

	endAfter := ContainsTermination(reply.Message, "")
	if endAfter {
		b.logger.Info("agent said goodbye, ending after speaking")
	}

	b.emit(&AgentSuggestsEvent{
		Text:          reply.Message,
		AutoSend:      true,
		AutoSendDelay: int(b.cfg.AutoSendDelay / time.Millisecond),
	})

	spoken := b.translate(reply.Message, b.cfg.UserLang, b.cfg.SourceLang)
	b.appendTranscript(SpeakerUser, spoken, reply.Message)
	b.speak(spoken, PhaseCafSpeaking)

	if endAfter {
		b.endCall(true)
	}
}

func (b *Bridge) agentRequest(counterpartySaid string) agent.Request {
	b.mu.Lock()
	target := b.session.Target
	question := b.session.UserQuestion
	convID := b.session.AgentConversationID
	entries := make([]TranscriptEntry, len(b.session.Transcript))
	copy(entries, b.session.Transcript)
	b.mu.Unlock()

	label := strings.ToUpper(target)
	if label == "" {
		label = "THEY"
	}
	var history []string
	for _, entry := range entries {
		name := "User"
		if entry.Speaker == SpeakerCounterparty {
			name = label
		}
		history = append(history, name+": "+entry.TranslatedText)
	}

	query := fmt.Sprintf("%s just said: '%s'. Generate the next response. IMPORTANT: Keep your response very short and concise (max 2 sentences) unless asked for details.", label, counterpartySaid)
	return agent.Request{
		Query: query,
		Inputs: map[string]any{
			"user_question": question,
			"transcript":    strings.Join(history, "\n"),
			"last_message":  counterpartySaid,
		},
		ConversationID: convID,
	}
}

// respond speaks a human-supplied reply to the counterparty.
func (b *Bridge) respond(text string) {
	spoken := b.translate(text, b.cfg.UserLang, b.cfg.SourceLang)
	b.appendTranscript(SpeakerUser, spoken, text)
	b.speak(spoken, PhaseCafSpeaking)
	b.turn.Reset()
}

// speak synthesizes text and streams each audio chunk to the telephony
// leg as soon as it is produced. The phase is held at UserSpeaking for
// the duration and moves to returnPhase when the stream finishes.
func (b *Bridge) speak(text string, returnPhase CallPhase) {
	if b.media == nil {
		b.logger.Warn("no media stream attached, dropping speech", "text", text)
		return
	}

	b.setPhase(PhaseUserSpeaking)
	b.emit(&SpeakingEvent{Text: text})

	stream, err := b.deps.TTS.NewStream(b.ctx, tts.SpeakOptions{
		Voice:        b.cfg.Voice,
		OutputFormat: tts.OutputFormatTelephony,
		Text:         text,
	})
	if err != nil {
		b.logger.Warn("synthesis failed", "error", err)
		b.setPhase(returnPhase)
		b.emit(&WaitingForUserEvent{Prompt: "I couldn't speak that. What should I say?"})
		return
	}
	defer stream.Close()

sendLoop:
	for chunk := range stream.Audio() {
		for _, frame := range audio.ChunkFrames(audio.EngineToNarrowband(chunk), audio.TelephonyFrameBytes) {
			if err := b.media.SendMedia(frame); err != nil {
				b.logger.Warn("send media frame", "error", err)
				break sendLoop
			}
		}
	}
	if err := stream.Err(); err != nil {
		b.logger.Warn("synthesis stream error", "error", err)
	}

	b.emit(&FinishedSpeakingEvent{})
	b.setPhase(returnPhase)
}

func (b *Bridge) translate(text, from, to string) string {
	out, err := b.deps.Translator.Translate(b.ctx, text, from, to)
	if err != nil {
		b.logger.Warn("translation failed, using original text", "error", err)
		return text
	}
	return out
}

// endCall finishes the call normally. hangup controls whether the
// telephony leg is told to disconnect.
func (b *Bridge) endCall(hangup bool) {
	if b.phase().Terminal() {
		return
	}
	if hangup && b.deps.Telephony != nil {
		b.mu.Lock()
		callSID := b.session.TelephonyCallSID
		b.mu.Unlock()
		if callSID != "" {
			ctx := b.ctx
			if ctx == nil {
				ctx = context.Background()
			}
			if err := b.deps.Telephony.EndCall(ctx, callSID); err != nil {
				b.logger.Warn("hangup telephony call", "error", err)
			}
		}
	}
	b.setPhase(PhaseEnded)
	b.emit(&CallEndedEvent{})
	b.Close()
}

// fail marks the call unrecoverably broken. The error event always
// precedes the terminal call_ended event; the transcript appended so
// far stays on the record.
func (b *Bridge) fail(err error) {
	if b.phase().Terminal() {
		return
	}
	b.logger.Error("call failed", "error", err)
	b.mu.Lock()
	b.session.Error = err.Error()
	b.mu.Unlock()
	b.emit(&ErrorEvent{Message: err.Error()})
	b.setPhase(PhaseFailed)
	b.emit(&CallEndedEvent{})
	b.Close()
}

func (b *Bridge) phase() CallPhase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.Phase
}

func (b *Bridge) question() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.UserQuestion
}

func (b *Bridge) lastBySpeaker(sp Speaker) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.LastBySpeaker(sp)
}

func (b *Bridge) setPhase(next CallPhase) {
	b.mu.Lock()
	current := b.session.Phase
	if current == next {
		b.mu.Unlock()
		return
	}
	if !current.CanTransition(next) {
		b.mu.Unlock()
		b.logger.Warn("illegal phase transition refused", "from", string(current), "to", string(next))
		return
	}
	b.session.Phase = next
	b.mu.Unlock()
	b.persist()
}

func (b *Bridge) appendTranscript(sp Speaker, source, translated string) {
	b.mu.Lock()
	b.session.Transcript = append(b.session.Transcript, TranscriptEntry{
		Speaker:        sp,
		SourceText:     source,
		TranslatedText: translated,
		Timestamp:      b.cfg.Now(),
	})
	b.mu.Unlock()
	b.logger.Info("transcript", "speaker", string(sp), "text", translated)
	b.persist()
}

func (b *Bridge) persist() {
	if b.deps.Store == nil {
		return
	}
	ctx := context.Background()
	if b.ctx != nil {
		ctx = context.WithoutCancel(b.ctx)
	}
	snapshot := b.Snapshot()
	if err := b.deps.Store.UpsertSession(ctx, snapshot); err != nil {
		b.logger.Warn("persist session", "error", err)
	}
}

func (b *Bridge) emit(ev Event) {
	select {
	case b.events <- ev:
	default:
		b.logger.Debug("observer event dropped", "event", ev.EventType())
	}
}
