package enrich

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wordhaven/vocab-cli/internal/model"
	"github.com/wordhaven/vocab-cli/internal/resilience"
)

// DefaultBatchSize is used when the configured batch size is not positive.
const DefaultBatchSize = 20

// Engine batches records with missing fields, deduplicates identical
// requests through a per-job cache, and walks the provider chain with
// retries. Records are mutated in place.
type Engine struct {
	providers []Enricher
	batchSize int
	retry     resilience.RetryConfig
}

// NewEngine builds an engine over an ordered provider chain.
func NewEngine(providers []Enricher, batchSize, retryLimit int) *Engine {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	retry := resilience.DefaultRetryConfig()
	if retryLimit > 0 {
		retry.MaxAttempts = retryLimit
	}
	return &Engine{providers: providers, batchSize: batchSize, retry: retry}
}

// Result is what one engine run produced.
type Result struct {
	// EnrichedCount is the number of records that had at least one field
	// newly populated this run, cache hits included.
	EnrichedCount int
	Errors        []model.ImportError
}

// Run enriches every record that still has a missing field. Field validation
// failures and exhausted batches are reported in the result, never as an
// error: enrichment failure is always soft and the records proceed to save
// in whatever state they reached. The progress callback, when non-nil,
// receives the cumulative number of records processed.
func (e *Engine) Run(ctx context.Context, records []*model.Record, cache *Cache, progress func(processed int)) *Result {
	res := &Result{}

	pending := make([]*model.Record, 0, len(records))
	for _, rec := range records {
		if rec.Missing.Any() {
			pending = append(pending, rec)
		}
	}
	if len(pending) == 0 {
		return res
	}

	if len(e.providers) == 0 {
		res.Errors = append(res.Errors, model.ImportError{
			Stage:   model.StageSystem,
			Message: "no enrichment providers available",
		})
		return res
	}

	processed := 0
	enriched := make(map[*model.Record]bool)
	for start := 0; start < len(pending); start += e.batchSize {
		end := min(start+e.batchSize, len(pending))
		batchNo := start/e.batchSize + 1

		e.runBatch(ctx, pending[start:end], batchNo, cache, enriched, res)

		processed += end - start
		if progress != nil {
			progress(processed)
		}
	}

	res.EnrichedCount = len(enriched)
	return res
}

// runBatch splits one batch into cache hits and provider work, then applies
// and caches whatever comes back.
func (e *Engine) runBatch(ctx context.Context, batch []*model.Record, batchNo int, cache *Cache, enriched map[*model.Record]bool, res *Result) {
	apply := func(rec *model.Record, p *Payload) {
		changed, errs := Apply(rec, p)
		res.Errors = append(res.Errors, errs...)
		if changed {
			enriched[rec] = true
		}
	}

	// Cache hits are re-applied without a network call. Uncached records are
	// grouped by cache key so a word repeated within the batch is requested
	// once.
	var keys []string
	byKey := make(map[string][]*model.Record)
	for _, rec := range batch {
		key := rec.CacheKey()
		if p, ok := cache.Get(key); ok {
			apply(rec, p)
			continue
		}
		if _, ok := byKey[key]; !ok {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], rec)
	}
	if len(keys) == 0 {
		return
	}

	items := make([]Item, len(keys))
	for i, key := range keys {
		items[i] = itemFor(byKey[key][0])
	}

	payloads, provider, err := e.callChain(ctx, items)
	if err != nil {
		// One report entry per exhausted batch, not one per record. The
		// records keep their missing state and proceed to save unenriched.
		res.Errors = append(res.Errors, model.ImportError{
			Stage:    model.StageEnrich,
			Message:  fmt.Sprintf("all providers failed: %v", err),
			Location: fmt.Sprintf("batch %d", batchNo),
		})
		zap.L().Warn("enrich: batch exhausted provider chain",
			zap.Int("batch", batchNo),
			zap.Int("size", len(items)),
			zap.Error(err),
		)
		return
	}

	for i, key := range keys {
		var p *Payload
		if i < len(payloads) {
			p = payloads[i]
		}
		if p == nil {
			zap.L().Debug("enrich: provider returned no payload",
				zap.String("provider", provider),
				zap.String("word", byKey[key][0].Word),
			)
		}
		cache.Put(key, p)
		for _, rec := range byKey[key] {
			apply(rec, p)
		}
	}
}

// callChain tries each provider in order, retrying transient failures with
// backoff inside a provider before falling through to the next. The first
// success short-circuits the rest.
func (e *Engine) callChain(ctx context.Context, items []Item) ([]*Payload, string, error) {
	var lastErr error
	for _, p := range e.providers {
		cfg := e.retry
		cfg.OnRetry = resilience.RetryLogger(p.Name(), "enrich")

		payloads, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]*Payload, error) {
			return p.Enrich(ctx, items)
		})
		if err == nil {
			return payloads, p.Name(), nil
		}
		lastErr = err
		zap.L().Warn("enrich: provider exhausted retries",
			zap.String("provider", p.Name()),
			zap.Bool("timeout", resilience.IsTimeout(err)),
			zap.Error(err),
		)
	}
	return nil, "", lastErr
}
