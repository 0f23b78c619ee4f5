package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Pipeline holds the tuning knobs for the chat pipeline: admission control,
// caching, conversation memory and retrieval.
type Pipeline struct {
	RateLimitCalls  int
	RateLimitPeriod time.Duration
	CacheCapacity   int
	CacheTTL        time.Duration
	MaxMessages     int
	ContextWindow   int
	RetrievalTopK   int
	RetrievalScore  float64
	KnowledgeDir    string
	ChunkSize       int
	ChunkOverlap    int
}

// Flags returns CLI flags for pipeline configuration
func (p *Pipeline) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "rate-limit-calls",
			Usage:       "Allowed chat turns per client per period",
			Value:       20,
			Sources:     cli.EnvVars("ENSURA_RATE_LIMIT_CALLS"),
			Destination: &p.RateLimitCalls,
		},
		&cli.DurationFlag{
			Name:        "rate-limit-period",
			Usage:       "Rate limit refill period",
			Value:       time.Minute,
			Sources:     cli.EnvVars("ENSURA_RATE_LIMIT_PERIOD"),
			Destination: &p.RateLimitPeriod,
		},
		&cli.IntFlag{
			Name:        "cache-capacity",
			Usage:       "Maximum entries in the classification and retrieval cache",
			Value:       1024,
			Sources:     cli.EnvVars("ENSURA_CACHE_CAPACITY"),
			Destination: &p.CacheCapacity,
		},
		&cli.DurationFlag{
			Name:        "cache-ttl",
			Usage:       "Time to live for cache entries",
			Value:       time.Hour,
			Sources:     cli.EnvVars("ENSURA_CACHE_TTL"),
			Destination: &p.CacheTTL,
		},
		&cli.IntFlag{
			Name:        "memory-max-messages",
			Usage:       "Maximum messages retained per session",
			Value:       50,
			Sources:     cli.EnvVars("ENSURA_MEMORY_MAX_MESSAGES"),
			Destination: &p.MaxMessages,
		},
		&cli.IntFlag{
			Name:        "context-window",
			Usage:       "Recent messages forwarded to the pipeline as conversation context",
			Value:       6,
			Sources:     cli.EnvVars("ENSURA_CONTEXT_WINDOW"),
			Destination: &p.ContextWindow,
		},
		&cli.IntFlag{
			Name:        "retrieval-top-k",
			Usage:       "Maximum documents returned by retrieval",
			Value:       4,
			Sources:     cli.EnvVars("ENSURA_RETRIEVAL_TOP_K"),
			Destination: &p.RetrievalTopK,
		},
		&cli.FloatFlag{
			Name:        "retrieval-min-score",
			Usage:       "Minimum similarity score for retrieved documents",
			Value:       0.3,
			Sources:     cli.EnvVars("ENSURA_RETRIEVAL_MIN_SCORE"),
			Destination: &p.RetrievalScore,
		},
		&cli.StringFlag{
			Name:        "knowledge-dir",
			Usage:       "Directory holding the knowledge base documents (.txt)",
			Value:       "./knowledge",
			Sources:     cli.EnvVars("ENSURA_KNOWLEDGE_DIR"),
			Destination: &p.KnowledgeDir,
		},
		&cli.IntFlag{
			Name:        "chunk-size",
			Usage:       "Knowledge base chunk size in characters",
			Value:       1000,
			Sources:     cli.EnvVars("ENSURA_CHUNK_SIZE"),
			Destination: &p.ChunkSize,
		},
		&cli.IntFlag{
			Name:        "chunk-overlap",
			Usage:       "Overlap between consecutive knowledge base chunks",
			Value:       200,
			Sources:     cli.EnvVars("ENSURA_CHUNK_OVERLAP"),
			Destination: &p.ChunkOverlap,
		},
	}
}

// Validate checks the pipeline configuration for inconsistent values
func (p *Pipeline) Validate() error {
	if p.RateLimitCalls < 1 {
		return goerr.New("rate-limit-calls must be at least 1", goerr.V("value", p.RateLimitCalls))
	}
	if p.RateLimitPeriod <= 0 {
		return goerr.New("rate-limit-period must be positive", goerr.V("value", p.RateLimitPeriod))
	}
	if p.CacheCapacity < 1 {
		return goerr.New("cache-capacity must be at least 1", goerr.V("value", p.CacheCapacity))
	}
	if p.RetrievalScore < -1 || p.RetrievalScore > 1 {
		return goerr.New("retrieval-min-score must be within [-1, 1]", goerr.V("value", p.RetrievalScore))
	}
	if p.ChunkOverlap >= p.ChunkSize {
		return goerr.New("chunk-overlap must be smaller than chunk-size",
			goerr.V("overlap", p.ChunkOverlap), goerr.V("size", p.ChunkSize))
	}
	return nil
}
