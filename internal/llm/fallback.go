package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_provider.go -package=mocks clarifyai/internal/llm Provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clarifyai/internal/apperr"
	"clarifyai/internal/contextutil"
)

// ErrEmptyCompletion is returned when a provider answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Provider is a named Generator that can take part in a Chain.
type Provider interface {
	Generator
	Name() string
}

// Attempt records the outcome of one provider call.
type Attempt struct {
	Provider string
	Err      error
	Duration time.Duration
}

// OK reports whether the attempt produced text.
func (a Attempt) OK() bool { return a.Err == nil }

// Chain tries providers in order until one returns non-empty text.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a chain over providers, tried in the given order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// WithLogger sets the logger used for per-attempt failures.
func (c *Chain) WithLogger(logger *slog.Logger) *Chain {
	c.logger = logger
	return c
}

// Len returns the number of configured providers.
func (c *Chain) Len() int { return len(c.providers) }

// Names returns the provider names in fallback order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Generate implements Generator.
func (c *Chain) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	text, _, err := c.GenerateWithAttempts(ctx, prompt, maxTokens)
	return text, err
}

// GenerateWithAttempts returns the first successful completion together with
// every attempt made. When all providers fail the error wraps
// apperr.ErrExternalService and each attempt's error.
func (c *Chain) GenerateWithAttempts(ctx context.Context, prompt string, maxTokens int) (string, []Attempt, error) {
	logger := contextutil.LoggerOr(ctx, c.logger)

	if len(c.providers) == 0 {
		return "", nil, fmt.Errorf("%w: no language model provider configured", apperr.ErrExternalService)
	}

	attempts := make([]Attempt, 0, len(c.providers))
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: err})
			break
		}

		start := time.Now()
		text, err := p.Generate(ctx, prompt, maxTokens)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyCompletion
		}
		attempt := Attempt{Provider: p.Name(), Err: err, Duration: time.Since(start)}
		attempts = append(attempts, attempt)

		if err == nil {
			logger.DebugContext(ctx, "generation succeeded", "provider", p.Name(), "duration_ms", attempt.Duration.Milliseconds())
			return text, attempts, nil
		}
		logger.WarnContext(ctx, "provider failed, trying next", "provider", p.Name(), "error", err)
	}

	errs := make([]error, len(attempts))
	for i, a := range attempts {
		errs[i] = fmt.Errorf("%s: %w", a.Provider, a.Err)
	}
	return "", attempts, fmt.Errorf("%w: all providers failed: %w", apperr.ErrExternalService, errors.Join(errs...))
}
