package bridge

import "strings"

// terminationPhrases end the call when heard in either language.
var terminationPhrases = []string{
	"au revoir",
	"goodbye",
	"bonne journée",
	"bon journée",
	"bye",
	"a bientôt",
}

// ackWords mark a non-substantive acknowledgement in either language.
var ackWords = []string{
	"sure",
	"okay",
	"ok",
	"d'accord",
	"bien sûr",
	"yes",
	"oui",
	"understood",
	"good",
}

const shortAckMaxLen = 20

// ContainsTermination reports whether the source text or its
// translation contains a goodbye phrase.
func ContainsTermination(source, translated string) bool {
	src := strings.ToLower(source)
	tr := strings.ToLower(translated)
	for _, phrase := range terminationPhrases {
		if strings.Contains(src, phrase) || strings.Contains(tr, phrase) {
			return true
		}
	}
	return false
}

// IsShortAck reports whether text reads as a bare acknowledgement:
// short, or containing one of the known acknowledgement words.
func IsShortAck(text string) bool {
	if len(text) < shortAckMaxLen {
		return true
	}
	lower := strings.ToLower(text)
	for _, ack := range ackWords {
		if strings.Contains(lower, ack) {
			return true
		}
	}
	return false
}

// IsRepetitionLoop reports whether auto-speaking candidate would repeat
// the bridge's last utterance while the counterparty is just waiting.
// That combination means the conversation has stalled and a human
// should take over.
func IsRepetitionLoop(lastSpoken, candidate, lastCounterparty string) bool {
	if lastSpoken == "" || lastCounterparty == "" {
		return false
	}
	a := strings.ToLower(strings.TrimSpace(lastSpoken))
	b := strings.ToLower(strings.TrimSpace(candidate))
	if !strings.Contains(a, b) && !strings.Contains(b, a) {
		return false
	}
	return IsShortAck(lastCounterparty)
}
