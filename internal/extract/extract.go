// Package extract turns conversation messages into candidate fact strings.
//
// The extractor joins the user/assistant transcript, asks the LLM for a
// {"facts": [...]} object, and repairs malformed output with one re-prompt.
// Extraction is best-effort: a second malformed reply yields an empty
// candidate set rather than an error, so a flaky model never aborts an
// ingest call. Image references are resolved to text descriptions first via
// the provider's vision mode.
package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/memory"
	"github.com/Gabrielmcp78/mem0-sub000/pkg/provider/llm"
)

// Extractor produces candidate facts from a message transcript.
type Extractor struct {
	provider          llm.Provider
	prompt            string
	useSystemOverride bool
}

// Option customises an [Extractor].
type Option func(*Extractor)

// WithPrompt replaces the built-in extraction instruction.
func WithPrompt(prompt string) Option {
	return func(e *Extractor) {
		if strings.TrimSpace(prompt) != "" {
			e.prompt = prompt
		}
	}
}

// WithSystemPromptOverride lets a system message in the transcript replace
// the extraction instruction. Off by default: system messages are excluded
// from extraction unless the caller opts in.
func WithSystemPromptOverride() Option {
	return func(e *Extractor) {
		e.useSystemOverride = true
	}
}

// New creates an Extractor over the given LLM provider.
func New(provider llm.Provider, opts ...Option) *Extractor {
	e := &Extractor{provider: provider, prompt: defaultPrompt}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// factsReply is the JSON shape the extraction prompt requests.
type factsReply struct {
	Facts []string `json:"facts"`
}

// Extract resolves image references, sends the transcript to the LLM, and
// returns the trimmed, deduplicated candidate facts. With
// [WithSystemPromptOverride] set, a system message in the transcript
// replaces the extraction instruction for this call. Malformed output gets
// one repair attempt; a second failure returns an empty set. Only context
// cancellation is surfaced as an error.
func (e *Extractor) Extract(ctx context.Context, messages []memory.Message) ([]string, error) {
	messages = e.resolveImages(ctx, messages)

	prompt := e.prompt
	if e.useSystemOverride {
		if override := systemOverride(messages); override != "" {
			prompt = override
		}
	}

	transcript := Transcript(messages)
	if transcript == "" {
		return nil, nil
	}

	raw, err := e.complete(ctx, prompt, transcript)
	if err != nil {
		if ctxErr(err) {
			return nil, err
		}
		slog.Warn("fact extraction failed, continuing with empty candidate set", "error", err)
		return nil, nil
	}

	var reply factsReply
	if parseErr := llm.ParseJSON(raw, &reply); parseErr != nil {
		raw, err = e.complete(ctx, repairPrompt, raw)
		if err != nil {
			if ctxErr(err) {
				return nil, err
			}
			slog.Warn("fact extraction repair failed", "error", err)
			return nil, nil
		}
		if parseErr = llm.ParseJSON(raw, &reply); parseErr != nil {
			slog.Warn("fact extraction output unparseable after repair", "error", parseErr)
			return nil, nil
		}
	}

	return Dedupe(reply.Facts), nil
}

func (e *Extractor) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := e.provider.Complete(ctx, llm.Request{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: "user", Content: user}},
		JSONOnly:     true,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// resolveImages replaces each image reference with a textual description via
// the provider's vision mode, appending it to the message content. A failed
// description drops the reference with a warning; the transcript text is
// kept either way.
func (e *Extractor) resolveImages(ctx context.Context, messages []memory.Message) []memory.Message {
	out := make([]memory.Message, len(messages))
	for i, msg := range messages {
		out[i] = msg
		if len(msg.Images) == 0 {
			continue
		}
		out[i].Images = nil

		parts := []string{msg.Content}
		for _, url := range msg.Images {
			desc, err := e.provider.DescribeImage(ctx, url)
			if err != nil {
				if ctxErr(err) {
					continue
				}
				slog.Warn("dropping unresolvable image reference",
					"url", url,
					"vision_supported", !errors.Is(err, llm.ErrVisionUnsupported),
					"error", err)
				continue
			}
			parts = append(parts, "[image: "+desc+"]")
		}
		out[i].Content = strings.TrimSpace(strings.Join(parts, "\n"))
	}
	return out
}

// Transcript joins user and assistant messages into the "role: content" form
// the extraction prompts expect. System messages carry instructions, not
// conversation content, and are excluded.
func Transcript(messages []memory.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg.Role == "system" {
			continue
		}
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(content)
	}
	return b.String()
}

// systemOverride returns the last non-empty system message, which replaces
// the extraction instruction for the call.
func systemOverride(messages []memory.Message) string {
	override := ""
	for _, msg := range messages {
		if msg.Role != "system" {
			continue
		}
		if content := strings.TrimSpace(msg.Content); content != "" {
			override = content
		}
	}
	return override
}

// Passthrough implements the infer=false mode: each raw message becomes one
// candidate fact as-is, with no LLM involvement. Empty messages are skipped.
func Passthrough(messages []memory.Message) []string {
	candidates := make([]string, 0, len(messages))
	for _, msg := range messages {
		if content := strings.TrimSpace(msg.Content); content != "" {
			candidates = append(candidates, content)
		}
	}
	return candidates
}

// Dedupe trims candidates and removes exact duplicates, preserving first
// occurrence order.
func Dedupe(candidates []string) []string {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func ctxErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
