package bridge

import (
	"errors"
	"testing"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	b := New(&CallSession{CallID: "call-1"}, Deps{}, Config{})
	r.Put("call-1", b)
	got, err := r.Get("call-1")
	if err != nil || got != b {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d", r.Len())
	}

	r.Remove("call-1")
	if _, err := r.Get("call-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err after remove = %v", err)
	}
}
