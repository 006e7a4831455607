package enrich

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/wordhaven/vocab-cli/internal/config"
)

// BuildChain resolves the configured primary provider and its comma-separated
// fallbacks into an ordered list of usable Enrichers. Names are deduplicated
// preserving order. A provider with missing credentials is skipped with a
// warning: an empty chain means "no enrichment available", not a fatal error.
func BuildChain(ctx context.Context, cfg *config.Config) []Enricher {
	names := []string{cfg.Import.Provider}
	for _, n := range strings.Split(cfg.Import.Fallbacks, ",") {
		names = append(names, n)
	}

	var chain []Enricher
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case "claude":
			if cfg.Anthropic.Key == "" {
				zap.L().Warn("enrich: claude configured without api key, skipping")
				continue
			}
			chain = append(chain, NewClaude(cfg.Anthropic))
		case "gemini":
			if cfg.Gemini.Key == "" {
				zap.L().Warn("enrich: gemini configured without api key, skipping")
				continue
			}
			e, err := NewGemini(ctx, cfg.Gemini)
			if err != nil {
				zap.L().Warn("enrich: gemini init failed, skipping", zap.Error(err))
				continue
			}
			chain = append(chain, e)
		default:
			zap.L().Warn("enrich: unknown provider", zap.String("provider", name))
		}
	}

	return chain
}
