package agent

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ensura-lab/ensura/pkg/domain/interfaces"
	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
	"github.com/ensura-lab/ensura/pkg/service/cache"
)

const retrievalCachePrefix = "retrieval"

// intentHints are secondary search queries run alongside the user's own
// question to pull in documents for the classified topic.
var intentHints = map[types.Intent]string{
	types.IntentPolicyTypes: "types of life insurance policies",
	types.IntentEligibility: "life insurance eligibility requirements",
	types.IntentClaims:      "life insurance claims process",
	types.IntentPremiums:    "life insurance premium costs",
	types.IntentCoverage:    "life insurance coverage amounts",
}

// Retriever fetches knowledge base passages relevant to a question. Results
// are cached per query and intent since the hint query depends on both.
type Retriever struct {
	search   interfaces.VectorSearch
	cache    *cache.Cache
	ttl      time.Duration
	topK     int
	minScore float64
}

func NewRetriever(search interfaces.VectorSearch, c *cache.Cache, ttl time.Duration, topK int, minScore float64) *Retriever {
	return &Retriever{search: search, cache: c, ttl: ttl, topK: topK, minScore: minScore}
}

// Retrieve returns up to topK documents scoring at or above the threshold,
// ordered by descending score, and whether the result came from the cache.
// history is the recent conversation window: when present it is folded into
// the search query so follow-up questions resolve their referents. An empty
// result is valid: generation proceeds without grounding context.
func (r *Retriever) Retrieve(ctx context.Context, query, history string, intent types.Intent) ([]model.RetrievedDocument, bool, error) {
	key := cache.Key(retrievalCachePrefix, query, history, intent.String())
	if v, ok := r.cache.Get(key); ok {
		if docs, ok := v.([]model.RetrievedDocument); ok {
			return docs, true, nil
		}
	}

	docs, err := r.retrieve(ctx, query, history, intent)
	if err != nil {
		return nil, false, err
	}

	r.cache.Set(key, docs, r.ttl)
	return docs, false, nil
}

func (r *Retriever) retrieve(ctx context.Context, query, history string, intent types.Intent) ([]model.RetrievedDocument, error) {
	search := query
	if history != "" {
		search = history + "\n\nCurrent question: " + query
	}

	queries := []string{search}
	if hint, ok := intentHints[intent]; ok {
		queries = append(queries, hint)
	}

	seen := map[string]int{}
	var merged []model.RetrievedDocument
	for _, q := range queries {
		docs, err := r.search.Query(ctx, q, r.topK, r.minScore)
		if err != nil {
			return nil, goerr.Wrap(err, "knowledge base search failed", goerr.V("query", q))
		}
		for _, doc := range docs {
			id := doc.Source + "\x1f" + doc.Content
			if at, ok := seen[id]; ok {
				if doc.Score > merged[at].Score {
					merged[at].Score = doc.Score
				}
				continue
			}
			seen[id] = len(merged)
			merged = append(merged, doc)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > r.topK {
		merged = merged[:r.topK]
	}
	return merged, nil
}
