package enrich

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/wordhaven/vocab-cli/internal/config"
	"github.com/wordhaven/vocab-cli/internal/resilience"
	"github.com/wordhaven/vocab-cli/pkg/gemini"
)

// geminiEnricher enriches batches through the Gemini API.
type geminiEnricher struct {
	client  gemini.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// NewGemini builds the Gemini provider from config.
func NewGemini(ctx context.Context, cfg config.GeminiConfig) (Enricher, error) {
	client, err := gemini.NewClient(ctx, cfg.Key, cfg.Model)
	if err != nil {
		return nil, err
	}
	return &geminiEnricher{
		client:  client,
		timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		limiter: perMinuteLimiter(cfg.RequestsPerMinute),
	}, nil
}

// NewGeminiWithClient is NewGemini with an injected client, for tests.
func NewGeminiWithClient(client gemini.Client, timeout time.Duration) Enricher {
	return &geminiEnricher{client: client, timeout: timeout}
}

func (e *geminiEnricher) Name() string { return "gemini" }

func (e *geminiEnricher) Enrich(ctx context.Context, items []Item) ([]*Payload, error) {
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

	text, err := e.client.GenerateJSON(cctx, systemPrompt, prompt)
	if err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return nil, resilience.NewTimeoutError(e.Name(), err)
		}
		return nil, err
	}

	return parsePayloads(text, len(items))
}
