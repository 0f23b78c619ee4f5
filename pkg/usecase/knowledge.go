package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ensura-lab/ensura/pkg/domain/types"
	"github.com/ensura-lab/ensura/pkg/service/cache"
	"github.com/ensura-lab/ensura/pkg/service/metrics"
	"github.com/ensura-lab/ensura/pkg/utils/logging"
)

// MetricsReport combines operation counters with cache effectiveness
type MetricsReport struct {
	metrics.Snapshot
	Cache cache.Stats `json:"cache"`
}

// ReloadKnowledgeBase re-ingests the document directory and drops all cached
// classifications and retrievals, since they may reference stale documents.
// Returns the number of indexed chunks.
func (uc *UseCases) ReloadKnowledgeBase(ctx context.Context) (int, error) {
	if uc.loader == nil {
		return 0, goerr.Wrap(types.ErrCapabilityUnavailable, "no knowledge loader configured")
	}

	n, err := uc.loader.Reload(ctx)
	if err != nil {
		uc.metrics.RecordError("knowledge_reload")
		return 0, err
	}

	uc.cache.InvalidateAll()
	logging.From(ctx).Info("knowledge base reloaded", "chunks", n)
	return n, nil
}

// Metrics returns the aggregated operation counters and timings together
// with the pipeline cache's effectiveness counters
func (uc *UseCases) Metrics() MetricsReport {
	return MetricsReport{
		Snapshot: uc.metrics.Snapshot(),
		Cache:    uc.cache.Stats(),
	}
}
