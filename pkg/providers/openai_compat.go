package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultOpenAICompatBaseURL is Gemini's OpenAI-compatible surface.
const DefaultOpenAICompatBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// OpenAICompatClient speaks the chat-completions protocol. The SDK's own
// retries are disabled so one Complete is one request.
type OpenAICompatClient struct {
	client openai.Client
	model  string
}

func NewOpenAICompatClient(apiKey, baseURL, model string, timeout time.Duration) (*OpenAICompatClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if baseURL == "" {
		baseURL = DefaultOpenAICompatBaseURL
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	return &OpenAICompatClient{client: client, model: model}, nil
}

func (c *OpenAICompatClient) Complete(ctx context.Context, req PromptRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", &CompletionError{Backend: BackendOpenAI, Err: err}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Text()),
		},
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(req.MaxOutputTokens)),
	})
	if err != nil {
		return "", &CompletionError{Backend: BackendOpenAI, Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &CompletionError{Backend: BackendOpenAI, Err: ErrMalformedResponse}
	}
	return resp.Choices[0].Message.Content, nil
}
