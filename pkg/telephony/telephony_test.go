package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStreamTwiML(t *testing.T) {
	out, err := StreamTwiML("wss://gateway.example/media/abc")
	if err != nil {
		t.Fatalf("StreamTwiML: %v", err)
	}
	for _, want := range []string{"<Response>", "<Connect>", `<Stream url="wss://gateway.example/media/abc">`} {
		if !strings.Contains(out, want) {
			t.Fatalf("twiml missing %q:\n%s", want, out)
		}
	}
}

func TestPlaceCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "token" {
			t.Errorf("basic auth = %q/%q", user, pass)
		}
		if r.URL.Path != "/Accounts/AC123/Calls.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("To"); got != "+33700000001" {
			t.Errorf("To = %q", got)
		}
		if got := r.PostForm.Get("From"); got != "+15550000000" {
			t.Errorf("From = %q", got)
		}
		if got := r.PostForm.Get("Twiml"); !strings.Contains(got, "wss://gw/media/xyz") {
			t.Errorf("Twiml = %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"sid":"CA777"}`)
	}))
	defer srv.Close()

	c := NewTwilioWithURL("AC123", "token", "+15550000000", srv.URL)
	sid, err := c.PlaceCall(context.Background(), "+33700000001", "wss://gw/media/xyz")
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if sid != "CA777" {
		t.Fatalf("sid = %q", sid)
	}
}

func TestEndCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Accounts/AC123/Calls/CA777.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		r.ParseForm()
		if got := r.PostForm.Get("Status"); got != "completed" {
			t.Errorf("Status = %q", got)
		}
		fmt.Fprint(w, `{"sid":"CA777","status":"completed"}`)
	}))
	defer srv.Close()

	c := NewTwilioWithURL("AC123", "token", "+15550000000", srv.URL)
	if err := c.EndCall(context.Background(), "CA777"); err != nil {
		t.Fatalf("EndCall: %v", err)
	}
}

func TestEndCall_SurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewTwilioWithURL("AC123", "token", "+15550000000", srv.URL)
	err := c.EndCall(context.Background(), "CA000")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("err = %v", err)
	}
}

func TestMediaRoundTrip(t *testing.T) {
	audio := []byte{0x7f, 0xff, 0x00, 0x80}
	frame := NewMediaFrame("MZ1", audio)

	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Event != EventMedia || msg.StreamSID != "MZ1" {
		t.Fatalf("msg = %+v", msg)
	}
	got, err := msg.Media.Audio()
	if err != nil {
		t.Fatalf("Audio: %v", err)
	}
	if string(got) != string(audio) {
		t.Fatalf("audio = %x", got)
	}
}

func TestInboundMessage_Start(t *testing.T) {
	raw := `{"event":"start","streamSid":"MZ2","start":{"streamSid":"MZ2","callSid":"CA1","tracks":["inbound"],"customParameters":{"call_id":"abc"}}}`
	var msg InboundMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Start == nil || msg.Start.CallSID != "CA1" || msg.Start.CustomParameters["call_id"] != "abc" {
		t.Fatalf("start = %+v", msg.Start)
	}
}

func TestDirectory(t *testing.T) {
	d := NewDirectory(map[string]string{"CAF": "+33100000001", "impots": "+33100000002"}, "+33100000001", "")
	if got := d.Lookup("caf"); got != "+33100000001" {
		t.Fatalf("caf = %q", got)
	}
	if got := d.Lookup("Impots"); got != "+33100000002" {
		t.Fatalf("impots = %q", got)
	}
	if got := d.Lookup("unknown"); got != "+33100000001" {
		t.Fatalf("fallback = %q", got)
	}
}

func TestDirectory_Override(t *testing.T) {
	d := NewDirectory(map[string]string{"caf": "+33100000001"}, "+33100000001", "+33780827985")
	if got := d.Lookup("caf"); got != "+33780827985" {
		t.Fatalf("override = %q", got)
	}
}

func TestMediaPayload_BadBase64(t *testing.T) {
	m := &MediaPayload{Payload: "not base64!!"}
	if _, err := m.Audio(); err == nil {
		t.Fatal("expected decode error")
	}
}
