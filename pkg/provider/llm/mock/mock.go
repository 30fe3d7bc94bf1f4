// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify the requests the pipeline stages send
// and to feed controlled responses without a live backend. Queue several
// responses to script multi-call flows (extraction, then reconciliation,
// then repair).
//
// Example:
//
//	p := &mock.Provider{}
//	p.Queue(`{"facts": ["likes espresso"]}`)
//	p.Queue(`{"memory": []}`)
package mock

import (
	"context"
	"sync"

	"github.com/Gabrielmcp78/mem0-sub000/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Req is the request passed to Complete.
	Req llm.Request
}

// DescribeImageCall records a single invocation of DescribeImage.
type DescribeImageCall struct {
	// URL is the image reference passed to DescribeImage.
	URL string
}

// Provider is a mock implementation of llm.Provider.
//
// Complete pops responses from the queue in FIFO order; when the queue is
// empty it returns Response (or an empty response when nil). Set CompleteErr
// to fail every call, or queue an error with QueueErr to fail one call.
type Provider struct {
	mu sync.Mutex

	// Response is the fallback response when the queue is empty.
	Response *llm.Response

	// CompleteErr, if non-nil, is returned by every Complete call.
	CompleteErr error

	// Description is returned by DescribeImage.
	Description string

	// DescribeErr, if non-nil, is returned by DescribeImage.
	DescribeErr error

	// Model is returned by ModelID; empty defaults to "mock-llm".
	Model string

	// CompleteCalls records every Complete invocation in order.
	CompleteCalls []CompleteCall

	// DescribeImageCalls records every DescribeImage invocation in order.
	DescribeImageCalls []DescribeImageCall

	queue []queued
}

type queued struct {
	content string
	err     error
}

// Queue appends a scripted reply, returned by the next unconsumed Complete.
func (p *Provider) Queue(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, queued{content: content})
}

// QueueErr appends a scripted failure.
func (p *Provider) QueueErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, queued{err: err})
}

// Complete implements llm.Provider.
func (p *Provider) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Req: req})

	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}
	if len(p.queue) > 0 {
		next := p.queue[0]
		p.queue = p.queue[1:]
		if next.err != nil {
			return nil, next.err
		}
		return &llm.Response{Content: next.content}, nil
	}
	if p.Response != nil {
		resp := *p.Response
		return &resp, nil
	}
	return &llm.Response{}, nil
}

// DescribeImage implements llm.Provider.
func (p *Provider) DescribeImage(_ context.Context, url string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DescribeImageCalls = append(p.DescribeImageCalls, DescribeImageCall{URL: url})
	if p.DescribeErr != nil {
		return "", p.DescribeErr
	}
	return p.Description, nil
}

// ModelID implements llm.Provider.
func (p *Provider) ModelID() string {
	if p.Model == "" {
		return "mock-llm"
	}
	return p.Model
}

// CallCount returns the number of Complete invocations so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.CompleteCalls)
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
