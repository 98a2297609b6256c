package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nishuastic/tech-europe/pkg/core/bridge"
)

func TestMemoryStore_UpsertAndGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.GetSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	s := &bridge.CallSession{
		CallID:    "call-1",
		Target:    "caf",
		Phase:     bridge.PhaseDialing,
		CreatedAt: time.Now(),
	}
	if err := m.UpsertSession(ctx, s); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}

	got, err := m.GetSession(ctx, "call-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Target != "caf" || got.Phase != bridge.PhaseDialing {
		t.Fatalf("got = %+v", got)
	}

	// Upsert replaces the stored record.
	s.Phase = bridge.PhaseEnded
	s.Transcript = append(s.Transcript, bridge.TranscriptEntry{
		Speaker: bridge.SpeakerCounterparty, SourceText: "au revoir", TranslatedText: "goodbye",
	})
	if err := m.UpsertSession(ctx, s); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	got, err = m.GetSession(ctx, "call-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Phase != bridge.PhaseEnded || len(got.Transcript) != 1 {
		t.Fatalf("got = %+v", got)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	s := &bridge.CallSession{CallID: "call-1", Transcript: []bridge.TranscriptEntry{{SourceText: "a"}}}
	if err := m.UpsertSession(ctx, s); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}

	got, _ := m.GetSession(ctx, "call-1")
	got.Transcript[0].SourceText = "mutated"

	again, _ := m.GetSession(ctx, "call-1")
	if again.Transcript[0].SourceText != "a" {
		t.Fatal("store handed out its internal slice")
	}
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		err := m.UpsertSession(ctx, &bridge.CallSession{
			CallID:    id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("UpsertSession: %v", err)
		}
	}

	list, err := m.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 3 || list[0].CallID != "new" || list[2].CallID != "old" {
		ids := make([]string, len(list))
		for i, s := range list {
			ids[i] = s.CallID
		}
		t.Fatalf("order = %v", ids)
	}
}
