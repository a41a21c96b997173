package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Generation parameters used for every request.
const (
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 2048
)

// Completer turns a prompt into response text. One call is one upstream
// request: no retry, no cache.
type Completer interface {
	Complete(ctx context.Context, req PromptRequest) (string, error)
}

// PromptRequest is built fresh for each invocation.
type PromptRequest struct {
	// Persona is the fixed voice instruction.
	Persona string
	// Speaker labels the user's line.
	Speaker string
	// Flourish is appended to Persona in one-shot prompts.
	Flourish string

	// Conversation is the assembled history text. It is rendered, even
	// when empty, iff HasHistory is set.
	Conversation string
	HasHistory   bool
	UserMessage  string

	Temperature     float64
	MaxOutputTokens int
}

// NewPromptRequest fills the default generation parameters.
func NewPromptRequest(persona, speaker, userMessage string) PromptRequest {
	return PromptRequest{
		Persona:         persona,
		Speaker:         speaker,
		UserMessage:     userMessage,
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
}

// WithHistory returns a copy of r carrying conversation text.
func (r PromptRequest) WithHistory(conversation string) PromptRequest {
	r.Conversation = conversation
	r.HasHistory = true
	return r
}

// Text renders the single-shot prompt.
func (r PromptRequest) Text() string {
	var sb strings.Builder
	if r.HasHistory {
		sb.WriteString("Previous conversation:\n")
		sb.WriteString(r.Conversation)
		sb.WriteString("\n")
	}
	sb.WriteString(r.Speaker)
	sb.WriteString(": ")
	sb.WriteString(r.UserMessage)
	sb.WriteString("\n")
	sb.WriteString(r.Persona)
	if !r.HasHistory && r.Flourish != "" {
		sb.WriteString(" ")
		sb.WriteString(r.Flourish)
	}
	return sb.String()
}

// Validate rejects generation parameters the API would refuse.
func (r PromptRequest) Validate() error {
	if r.Temperature < 0 || r.Temperature > 1 {
		return fmt.Errorf("temperature %v outside [0,1]", r.Temperature)
	}
	if r.MaxOutputTokens <= 0 {
		return fmt.Errorf("maxOutputTokens must be positive, got %d", r.MaxOutputTokens)
	}
	return nil
}

// ErrMalformedResponse reports a response without a first candidate text part.
var ErrMalformedResponse = errors.New("response has no candidates[0].content.parts[0].text")

// CompletionError is any failed completion: transport, status, shape.
type CompletionError struct {
	Backend    string
	StatusCode int
	Body       string
	Err        error
}

func (e *CompletionError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s completion failed with status %d: %s", e.Backend, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s completion failed with status %d", e.Backend, e.StatusCode)
	default:
		return fmt.Sprintf("%s completion failed: %v", e.Backend, e.Err)
	}
}

func (e *CompletionError) Unwrap() error { return e.Err }
