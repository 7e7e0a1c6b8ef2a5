package conversation

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrUnavailable means the generative backend is absent, failed, or timed
// out. The router treats it as a signal to fall through to the next stage;
// it is never surfaced to the caller.
var ErrUnavailable = errors.New("conversation: generative backend unavailable")

const defaultGenerativeTimeout = 5 * time.Second

// GenerativeAdapter wraps an optional LLMClient as a pluggable capability.
// A nil client is a valid configuration meaning the capability is disabled.
type GenerativeAdapter struct {
	client  LLMClient
	system  string
	timeout time.Duration
}

// NewGenerativeAdapter creates an adapter around client. client may be nil.
func NewGenerativeAdapter(client LLMClient, systemPrompt string, timeout time.Duration) *GenerativeAdapter {
	if timeout <= 0 {
		timeout = defaultGenerativeTimeout
	}
	return &GenerativeAdapter{client: client, system: systemPrompt, timeout: timeout}
}

// Available reports whether a backend is configured. Callers probe this
// before spending a request.
func (a *GenerativeAdapter) Available() bool {
	return a != nil && a.client != nil
}

// Generate makes a single attempt at a completion, bounded by the adapter's
// timeout. No retries: any failure, empty completion, or timeout maps to
// ErrUnavailable so the router can fall through promptly.
func (a *GenerativeAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	if !a.Available() {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req := LLMRequest{
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   512,
		Temperature: 0.7,
	}
	if a.system != "" {
		req.System = []string{a.system}
	}

	resp, err := a.client.Complete(ctx, req)
	if err != nil {
		return "", errors.Join(ErrUnavailable, err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrUnavailable
	}
	return text, nil
}
