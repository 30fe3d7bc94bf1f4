// Package llm defines the Provider interface for the language-model backends
// used by the extraction, reconciliation, and graph stages.
//
// A provider wraps a remote or local chat-completion API (OpenAI, or any
// backend reachable through any-llm) and exposes a uniform completion surface
// plus an optional vision call for describing image references.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly.
package llm

import (
	"context"
	"errors"
)

// ErrVisionUnsupported is returned by DescribeImage when the underlying model
// or backend cannot process image inputs. Callers degrade by dropping the
// image reference.
var ErrVisionUnsupported = errors.New("llm: vision not supported by this provider")

// Message is a single message in a completion conversation.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Request carries everything the model needs to produce a response. At
// minimum Messages must be non-empty.
type Request struct {
	// Messages is the ordered conversation. The last message typically
	// drives the response.
	Messages []Message

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation. Providers without a dedicated system slot prepend it
	// as a "system"-role message.
	SystemPrompt string

	// Temperature controls output randomness in [0.0, 2.0]. Zero requests
	// the provider default. The pipeline stages run at low temperatures for
	// deterministic structured output.
	Temperature float64

	// MaxTokens caps the completion length. Zero means the provider default.
	MaxTokens int

	// JSONOnly asks the model to respond with a bare JSON object and nothing
	// else. Providers enforce it via prompt instruction; [ParseJSON] handles
	// models that wrap the object in markdown fences anyway.
	JSONOnly bool
}

// Usage holds token accounting returned by the backend. Counts are in the
// model's native token unit.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input.
	PromptTokens int

	// CompletionTokens is the number of tokens generated.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// Response is the model's full reply.
type Response struct {
	// Content is the text of the reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any chat-completion backend.
//
// Implementations must be safe for concurrent use. Failures should be
// surfaced as *memory.ProviderError with Provider "llm" so the engine's
// retry policy can classify them.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	Complete(ctx context.Context, req Request) (*Response, error)

	// DescribeImage returns a concise text description of the image at url
	// (an HTTP URL or data URI). Providers without vision support return
	// ErrVisionUnsupported.
	DescribeImage(ctx context.Context, url string) (string, error)

	// ModelID returns the backend-specific model identifier, for logging and
	// telemetry.
	ModelID() string
}

// jsonOnlyInstruction is appended to the system prompt when Request.JSONOnly
// is set and the backend has no native JSON response mode.
const jsonOnlyInstruction = "\n\nRespond with ONLY the JSON object. No markdown fences, no prose, no explanations."

// SystemPromptFor returns the effective system prompt for req, with the
// JSON-only instruction appended when requested.
func SystemPromptFor(req Request) string {
	if !req.JSONOnly || req.SystemPrompt == "" {
		return req.SystemPrompt
	}
	return req.SystemPrompt + jsonOnlyInstruction
}
