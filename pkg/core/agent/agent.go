// Package agent talks to the reasoning agent that decides what the
// caller's assistant should say next.
package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ActionTypeAskUser asks the human user for information the agent is
// missing before it can answer.
const ActionTypeAskUser = "ask_user"

// Request is one turn of the agent conversation.
type Request struct {
	Query          string
	Inputs         map[string]any
	ConversationID string
	User           string
}

// Action is a structured instruction extracted from the agent's answer.
type Action struct {
	Type     string `json:"type"`
	Question string `json:"question,omitempty"`
}

// Reply is the agent's processed answer for one turn.
type Reply struct {
	Message        string
	Action         *Action
	ConversationID string
}

// Client streams chat turns from an agent service speaking the Dify
// chat-messages protocol.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an agent client. A nil logger falls back to
// slog.Default.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

type chatPayload struct {
	Inputs         map[string]any `json:"inputs"`
	Query          string         `json:"query"`
	ResponseMode   string         `json:"response_mode"`
	User           string         `json:"user"`
	ConversationID string         `json:"conversation_id,omitempty"`
}

type streamEvent struct {
	Event          string `json:"event"`
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
}

// Chat sends one conversation turn and accumulates the streamed answer.
// A stale conversation ID rejected by the service is dropped and the
// turn is retried once as a fresh conversation.
func (c *Client) Chat(ctx context.Context, req Request) (*Reply, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("agent api key is not configured")
	}
	user := req.User
	if user == "" {
		user = "call-gateway"
	}
	payload := chatPayload{
		Inputs:         req.Inputs,
		Query:          req.Query,
		ResponseMode:   "streaming",
		User:           user,
		ConversationID: strings.TrimSpace(req.ConversationID),
	}
	if payload.Inputs == nil {
		payload.Inputs = map[string]any{}
	}

	answer, convID, err := c.stream(ctx, payload)
	if err != nil {
		var se *statusError
		if payload.ConversationID != "" && errors.As(err, &se) && se.code == http.StatusBadRequest {
			c.logger.Warn("agent rejected conversation id, retrying without it",
				"conversation_id", payload.ConversationID)
			payload.ConversationID = ""
			answer, convID, err = c.stream(ctx, payload)
		}
		if err != nil {
			return nil, err
		}
	}

	reply := ParseReply(answer)
	reply.ConversationID = convID
	return reply, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("agent api error %d: %s", e.code, e.body)
}

func (c *Client) stream(ctx context.Context, payload chatPayload) (answer, conversationID string, err error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("encode agent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat-messages", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("build agent request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", "", fmt.Errorf("call agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", "", &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(detail))}
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev streamEvent
		if err := json.Unmarshal([]byte(line[len("data: "):]), &ev); err != nil {
			continue
		}
		switch ev.Event {
		case "message", "agent_message":
			full.WriteString(ev.Answer)
		case "message_end":
			conversationID = ev.ConversationID
		}
	}
	if err := scanner.Err(); err != nil {
		return "", "", fmt.Errorf("read agent stream: %w", err)
	}
	return full.String(), conversationID, nil
}

// ParseReply extracts the spoken message and any structured action from
// a raw agent answer. Agents that emit structured output embed a JSON
// object in the answer text; plain text answers pass through unchanged.
func ParseReply(answer string) *Reply {
	reply := &Reply{Message: strings.TrimSpace(answer)}

	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end <= start {
		return reply
	}

	var parsed struct {
		Explanation string  `json:"explanation"`
		Action      *Action `json:"action"`
		AskUser     *struct {
			Question string `json:"question"`
		} `json:"ask_user"`
	}
	if err := json.Unmarshal([]byte(answer[start:end+1]), &parsed); err != nil {
		return reply
	}

	if parsed.Explanation != "" {
		reply.Message = strings.TrimSpace(parsed.Explanation)
	}
	switch {
	case parsed.Action != nil:
		reply.Action = parsed.Action
	case parsed.AskUser != nil:
		reply.Action = &Action{Type: ActionTypeAskUser, Question: parsed.AskUser.Question}
	}
	return reply
}
