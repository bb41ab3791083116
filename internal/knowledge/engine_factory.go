package knowledge

import (
	"context"
	"fmt"
	"strings"

	"clausegen/internal/config"

	"golang.org/x/time/rate"
)

// NewEngine builds the configured local engine adapter. Only local endpoints
// are accepted.
func NewEngine(cfg config.EngineConfig) (Engine, error) {
	if err := config.ValidateLocalEndpoint(cfg.BaseURL); err != nil {
		return nil, err
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "openai"
	}

	var eng Engine
	switch provider {
	case "openai", "llama.cpp", "llama-server", "vllm":
		eng = NewOpenAIEngine(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.HTTPTimeout)
	case "ollama":
		if strings.TrimSpace(cfg.Model) == "" {
			return nil, fmt.Errorf("ollama engine: model is required")
		}
		eng = NewOllamaEngine(cfg.Model, cfg.BaseURL, cfg.HTTPTimeout)
	default:
		return nil, fmt.Errorf("unsupported engine provider: %s", cfg.Provider)
	}

	if cfg.RequestsPerSecond > 0 {
		eng = RateLimited(eng, rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1)))
	}
	return eng, nil
}

type rateLimited struct {
	next    Engine
	limiter *rate.Limiter
}

// RateLimited throttles calls to next with a limiter shared by all callers.
func RateLimited(next Engine, limiter *rate.Limiter) Engine {
	return &rateLimited{next: next, limiter: limiter}
}

func (r *rateLimited) Generate(ctx context.Context, p Prompt, params SamplingParams) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", &EngineError{Provider: "ratelimit", Kind: KindTimeout, Err: err}
	}
	return r.next.Generate(ctx, p, params)
}
