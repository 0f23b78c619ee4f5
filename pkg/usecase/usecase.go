package usecase

import (
	"github.com/ensura-lab/ensura/pkg/agent"
	"github.com/ensura-lab/ensura/pkg/domain/interfaces"
	"github.com/ensura-lab/ensura/pkg/service/cache"
	"github.com/ensura-lab/ensura/pkg/service/limiter"
	"github.com/ensura-lab/ensura/pkg/service/memory"
	"github.com/ensura-lab/ensura/pkg/service/metrics"
)

// UseCases bundles the application operations exposed over HTTP and the CLI.
type UseCases struct {
	memory   *memory.Service
	pipeline *agent.Pipeline
	limiter  *limiter.RateLimiter
	metrics  *metrics.Collector
	cache    *cache.Cache
	loader   interfaces.KnowledgeLoader
}

type Option func(*UseCases)

// WithKnowledgeLoader enables the knowledge base reload operation
func WithKnowledgeLoader(loader interfaces.KnowledgeLoader) Option {
	return func(uc *UseCases) {
		uc.loader = loader
	}
}

func New(mem *memory.Service, pipeline *agent.Pipeline, lim *limiter.RateLimiter, collector *metrics.Collector, c *cache.Cache, opts ...Option) *UseCases {
	uc := &UseCases{
		memory:   mem,
		pipeline: pipeline,
		limiter:  lim,
		metrics:  collector,
		cache:    c,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
