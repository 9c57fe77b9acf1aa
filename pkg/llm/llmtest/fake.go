// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/jmylchreest/recipescale/pkg/llm"
)

// Reply is one scripted provider answer.
type Reply struct {
	Content string
	Err     error
	Usage   llm.Usage
}

// Fake returns scripted replies in order and records every request.
type Fake struct {
	mu       sync.Mutex
	replies  []Reply
	requests []llm.Request

	// Handler, when set, answers requests instead of the script.
	Handler func(req llm.Request) Reply
}

// New returns a Fake that answers with contents in order.
func New(contents ...string) *Fake {
	f := &Fake{}
	for _, c := range contents {
		f.replies = append(f.replies, Reply{Content: c, Usage: llm.Usage{InputTokens: 100, OutputTokens: 50}})
	}
	return f
}

// Push appends a reply to the script.
func (f *Fake) Push(r Reply) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, r)
	return f
}

// Execute implements llm.Provider.
func (f *Fake) Execute(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	var r Reply
	switch {
	case f.Handler != nil:
		f.mu.Unlock()
		r = f.Handler(req)
	case len(f.replies) == 0:
		f.mu.Unlock()
		return nil, errors.New("llmtest: no scripted reply left")
	default:
		r = f.replies[0]
		f.replies = f.replies[1:]
		f.mu.Unlock()
	}

	if r.Err != nil {
		return nil, r.Err
	}
	return &llm.Response{Content: r.Content, Usage: r.Usage, Model: f.Model(), FinishReason: "stop"}, nil
}

// Name implements llm.Provider.
func (f *Fake) Name() string { return "fake" }

// Model implements llm.Provider.
func (f *Fake) Model() string { return "fake-model" }

// Requests returns the requests seen so far.
func (f *Fake) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

// Calls returns how many requests were made.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

var _ llm.Provider = (*Fake)(nil)
