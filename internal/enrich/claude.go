package enrich

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/wordhaven/vocab-cli/internal/config"
	"github.com/wordhaven/vocab-cli/internal/resilience"
	"github.com/wordhaven/vocab-cli/pkg/anthropic"
)

// claudeEnricher enriches batches through the Anthropic Messages API.
type claudeEnricher struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewClaude builds the Claude provider from config. The caller is expected
// to have checked that an API key is present.
func NewClaude(cfg config.AnthropicConfig) Enricher {
	return &claudeEnricher{
		client:  anthropic.NewClient(cfg.Key),
		model:   cfg.Model,
		timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		limiter: perMinuteLimiter(cfg.RequestsPerMinute),
	}
}

// NewClaudeWithClient is NewClaude with an injected client, for tests.
func NewClaudeWithClient(client anthropic.Client, model string, timeout time.Duration) Enricher {
	return &claudeEnricher{client: client, model: model, timeout: timeout}
}

func (e *claudeEnricher) Name() string { return "claude" }

func (e *claudeEnricher) Enrich(ctx context.Context, items []Item) ([]*Payload, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	prompt, err := buildPrompt(items)
	if err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateMessage(cctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: 4096,
		System:    systemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return nil, resilience.NewTimeoutError(e.Name(), err)
		}
		return nil, err
	}
	resp.Usage.LogUsage(e.model, "enrich")

	return parsePayloads(resp.Text(), len(items))
}

// perMinuteLimiter converts a requests-per-minute budget into a limiter,
// or nil when unlimited.
func perMinuteLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
}
