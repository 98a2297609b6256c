package bridge

import (
	"strings"
	"time"
)

const (
	// inactivityThreshold is the VAD probability above which a sample
	// counts as silence.
	inactivityThreshold = 0.90
	// silenceStreakTarget is how many consecutive silent samples end a
	// turn. One noisy sample must not cut off a still-speaking party.
	silenceStreakTarget = 3
	// previewMinNewChars and previewMinInterval form the dual gate for
	// intermediate translation previews. Both must hold, which bounds
	// translation calls while keeping live captions responsive.
	previewMinNewChars = 20
	previewMinInterval = time.Second
)

// TurnState tracks one speaking turn of the counterparty: the growing
// transcript accumulator, preview-throttling bookkeeping, and the
// consecutive-silence counter. It is owned by a single goroutine and is
// not safe for concurrent use.
type TurnState struct {
	accumulated   string
	lastSnapshot  string
	lastPreview   string
	lastPreviewAt time.Time
	silenceStreak int
}

// AddDelta appends one transcript delta to the current turn. Deltas are
// space-joined; blank deltas are ignored.
func (t *TurnState) AddDelta(delta string) {
	delta = strings.TrimSpace(delta)
	if delta == "" {
		return
	}
	if t.accumulated == "" {
		t.accumulated = delta
		return
	}
	t.accumulated += " " + delta
}

// Text returns the accumulated transcript for the current turn.
func (t *TurnState) Text() string {
	return t.accumulated
}

// ShouldPreview reports whether an intermediate translation is due:
// enough new text since the last preview AND enough wall-clock time.
func (t *TurnState) ShouldPreview(now time.Time) bool {
	newChars := len(t.accumulated) - len(t.lastSnapshot)
	return newChars > previewMinNewChars && now.Sub(t.lastPreviewAt) > previewMinInterval
}

// MarkPreview records that a preview translation was emitted at now.
func (t *TurnState) MarkPreview(translated string, now time.Time) {
	t.lastSnapshot = t.accumulated
	t.lastPreview = translated
	t.lastPreviewAt = now
}

// ObserveVAD feeds one voice-activity sample into the silence counter.
func (t *TurnState) ObserveVAD(inactivityProb float64) {
	if inactivityProb > inactivityThreshold {
		t.silenceStreak++
		return
	}
	t.silenceStreak = 0
}

// HardPause reports whether the turn has ended: a sustained silence
// streak with text actually accumulated.
func (t *TurnState) HardPause() bool {
	return t.silenceStreak >= silenceStreakTarget && t.accumulated != ""
}

// Reset clears the turn at a boundary. The preview timestamp is kept so
// the time gate spans turns.
func (t *TurnState) Reset() {
	t.accumulated = ""
	t.lastSnapshot = ""
	t.lastPreview = ""
	t.silenceStreak = 0
}
