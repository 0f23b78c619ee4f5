package interfaces

import (
	"context"

	"github.com/m-mizutani/gollem"

	"github.com/ensura-lab/ensura/pkg/domain/model"
)

// LLM is the narrow language model capability the answer pipeline depends
// on. The pipeline never constructs provider sessions itself, so the whole
// model surface stays swappable for tests.
type LLM interface {
	// GenerateText produces a free-form completion for prompt under the
	// given system prompt.
	GenerateText(ctx context.Context, systemPrompt, prompt string) (string, error)

	// GenerateJSON produces a completion constrained to schema, returned as
	// the raw JSON document.
	GenerateJSON(ctx context.Context, systemPrompt, prompt string, schema *gollem.Parameter) (string, error)
}

// VectorSearch is the opaque vector-search capability consumed by the
// retrieval stage: query text in, ranked documents out. Results are ordered
// by descending score and already filtered by minScore.
type VectorSearch interface {
	Query(ctx context.Context, text string, k int, minScore float64) ([]model.RetrievedDocument, error)
}

// KnowledgeLoader re-ingests the knowledge base. Reload returns the number
// of indexed chunks. Callers are responsible for invalidating caches that
// may reference stale documents.
type KnowledgeLoader interface {
	Reload(ctx context.Context) (int, error)
}
