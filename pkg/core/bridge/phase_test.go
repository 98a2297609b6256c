package bridge

import (
	"encoding/json"
	"testing"
)

func TestCallPhase_Lifecycle(t *testing.T) {
	path := []CallPhase{
		PhaseGatheringInfo,
		PhaseReadyToCall,
		PhaseDialing,
		PhaseConnected,
		PhaseWaitingGreetingResponse,
		PhaseUserSpeaking,
		PhaseCafSpeaking,
		PhaseWaitingUser,
		PhaseUserSpeaking,
		PhaseCafSpeaking,
		PhaseEnded,
	}
	for i := 0; i < len(path)-1; i++ {
		if !path[i].CanTransition(path[i+1]) {
			t.Fatalf("%s -> %s should be legal", path[i], path[i+1])
		}
	}
}

func TestCallPhase_SpeechCanReturnToWaitingUser(t *testing.T) {
	// A spoken filler while the agent defers to the human ends back in
	// the waiting state.
	if !PhaseUserSpeaking.CanTransition(PhaseWaitingUser) {
		t.Fatal("user_speaking -> waiting_user should be legal")
	}
}

func TestCallPhase_TerminalIsFinal(t *testing.T) {
	for _, p := range []CallPhase{PhaseEnded, PhaseFailed} {
		if !p.Terminal() {
			t.Fatalf("%s should be terminal", p)
		}
		if p.CanTransition(PhaseCafSpeaking) || p.CanTransition(PhaseEnded) {
			t.Fatalf("no transition may leave %s", p)
		}
	}
}

func TestCallPhase_FailureReachableFromAnyLivePhase(t *testing.T) {
	live := []CallPhase{
		PhaseGatheringInfo, PhaseReadyToCall, PhaseDialing, PhaseConnected,
		PhaseWaitingGreetingResponse, PhaseCafSpeaking, PhaseWaitingUser, PhaseUserSpeaking,
	}
	for _, p := range live {
		if !p.CanTransition(PhaseFailed) {
			t.Fatalf("%s -> failed should be legal", p)
		}
		if !p.CanTransition(PhaseEnded) {
			t.Fatalf("%s -> ended should be legal", p)
		}
	}
}

func TestCallPhase_IllegalMoves(t *testing.T) {
	cases := [][2]CallPhase{
		{PhaseDialing, PhaseCafSpeaking},
		{PhaseConnected, PhaseWaitingUser},
		{PhaseCafSpeaking, PhaseDialing},
		{PhaseWaitingUser, PhaseConnected},
	}
	for _, c := range cases {
		if c[0].CanTransition(c[1]) {
			t.Errorf("%s -> %s should be illegal", c[0], c[1])
		}
	}
}

func TestMarshalEvent_SplicesType(t *testing.T) {
	data, err := MarshalEvent(&CounterpartySaidEvent{Text: "bonjour", Translated: "hello", IsFinal: false})
	if err != nil {
		t.Fatalf("MarshalEvent: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fields["type"] != "caf_said" {
		t.Fatalf("type = %v", fields["type"])
	}
	if fields["text"] != "bonjour" || fields["translated"] != "hello" {
		t.Fatalf("fields = %v", fields)
	}
	if _, ok := fields["is_final"]; !ok {
		t.Fatal("is_final missing")
	}
}

func TestMarshalEvent_EmptyEvent(t *testing.T) {
	data, err := MarshalEvent(&CallEndedEvent{})
	if err != nil {
		t.Fatalf("MarshalEvent: %v", err)
	}
	if string(data) != `{"type":"call_ended"}` {
		t.Fatalf("data = %s", data)
	}
}
