package translate

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAITranslator translates via the OpenAI chat completions API.
type OpenAITranslator struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a translator using the given API key and the
// default model.
func NewOpenAI(apiKey string) *OpenAITranslator {
	return &OpenAITranslator{client: openai.NewClient(apiKey), model: defaultOpenAIModel}
}

// NewOpenAIWithClient creates a translator around an existing client.
// An empty model selects the default.
func NewOpenAIWithClient(client *openai.Client, model string) *OpenAITranslator {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAITranslator{client: client, model: model}
}

// Name returns the provider identifier.
func (o *OpenAITranslator) Name() string {
	return "openai"
}

// Translate sends a single chat completion request and returns the
// model's reply text.
func (o *OpenAITranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(sourceLang, targetLang)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
