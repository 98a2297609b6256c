package translate

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiTranslator translates via the Google Gen AI SDK.
type GeminiTranslator struct {
	client *genai.Client
	model  string
}

// NewGemini creates a translator backed by the Gemini API. An empty
// model selects the default.
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiTranslator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiTranslator{client: client, model: model}, nil
}

// Name returns the provider identifier.
func (g *GeminiTranslator) Name() string {
	return "gemini"
}

// Translate sends a single generation request and returns the model's
// reply text.
func (g *GeminiTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.3),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt(sourceLang, targetLang)}},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", fmt.Errorf("gemini generate content: empty response")
	}
	return out, nil
}
