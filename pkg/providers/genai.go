package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// GenAIClient sends the same single-shot prompt through the Google GenAI SDK.
type GenAIClient struct {
	client *genai.Client
	model  string
}

func NewGenAIClient(ctx context.Context, apiKey, baseURL, model string, timeout time.Duration) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIClient{client: client, model: model}, nil
}

func (c *GenAIClient) Complete(ctx context.Context, req PromptRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", &CompletionError{Backend: BackendGenAI, Err: err}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Text()), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxOutputTokens),
	})
	if err != nil {
		return "", &CompletionError{Backend: BackendGenAI, Err: err}
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 || resp.Candidates[0].Content.Parts[0] == nil {
		return "", &CompletionError{Backend: BackendGenAI, Err: ErrMalformedResponse}
	}
	text := resp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", &CompletionError{Backend: BackendGenAI, Err: ErrMalformedResponse}
	}
	return text, nil
}
