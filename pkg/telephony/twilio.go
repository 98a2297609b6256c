package telephony

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// CallControl places and tears down phone calls.
type CallControl interface {
	PlaceCall(ctx context.Context, toNumber, mediaStreamURL string) (callSID string, err error)
	EndCall(ctx context.Context, callSID string) error
}

// TwilioClient implements CallControl against the Twilio REST API.
type TwilioClient struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

// NewTwilio creates a Twilio call-control client.
func NewTwilio(accountSID, authToken, fromNumber string) *TwilioClient {
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    twilioAPIBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewTwilioWithURL creates a client against a non-default API endpoint.
func NewTwilioWithURL(accountSID, authToken, fromNumber, baseURL string) *TwilioClient {
	c := NewTwilio(accountSID, authToken, fromNumber)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type twiml struct {
	XMLName xml.Name `xml:"Response"`
	Connect struct {
		Stream struct {
			URL string `xml:"url,attr"`
		} `xml:"Stream"`
	} `xml:"Connect"`
}

// StreamTwiML renders the call instructions that open a bidirectional
// media stream to the given WebSocket URL.
func StreamTwiML(mediaStreamURL string) (string, error) {
	var doc twiml
	doc.Connect.Stream.URL = mediaStreamURL
	out, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("render twiml: %w", err)
	}
	return xml.Header + string(out), nil
}

// PlaceCall starts an outbound call that connects its audio to the
// media stream URL. It returns the provider's call SID.
func (t *TwilioClient) PlaceCall(ctx context.Context, toNumber, mediaStreamURL string) (string, error) {
	instructions, err := StreamTwiML(mediaStreamURL)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("To", toNumber)
	form.Set("From", t.fromNumber)
	form.Set("Twiml", instructions)

	var created struct {
		SID string `json:"sid"`
	}
	if err := t.post(ctx, fmt.Sprintf("/Accounts/%s/Calls.json", t.accountSID), form, &created); err != nil {
		return "", fmt.Errorf("place call: %w", err)
	}
	return created.SID, nil
}

// EndCall hangs up an in-progress call.
func (t *TwilioClient) EndCall(ctx context.Context, callSID string) error {
	form := url.Values{}
	form.Set("Status", "completed")
	if err := t.post(ctx, fmt.Sprintf("/Accounts/%s/Calls/%s.json", t.accountSID, callSID), form, nil); err != nil {
		return fmt.Errorf("end call: %w", err)
	}
	return nil
}

func (t *TwilioClient) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("twilio api status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
