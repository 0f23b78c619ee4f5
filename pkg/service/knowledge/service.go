package knowledge

import (
	"context"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"golang.org/x/sync/errgroup"

	"github.com/ensura-lab/ensura/pkg/domain/interfaces"
	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
	"github.com/ensura-lab/ensura/pkg/utils/logging"
)

const (
	defaultChunkSize = 1000
	defaultOverlap   = 200
	embedBatchSize   = 16
	embedConcurrency = 4
)

// Service indexes the knowledge base directory and serves vector similarity
// queries over it. It implements both the vector-search capability and the
// knowledge loader.
type Service struct {
	llmClient gollem.LLMClient
	dir       string
	chunkSize int
	overlap   int

	mu     sync.RWMutex
	chunks []model.Chunk
}

var (
	_ interfaces.VectorSearch    = &Service{}
	_ interfaces.KnowledgeLoader = &Service{}
)

// Option is a functional option for Service configuration
type Option func(*Service)

// WithChunking overrides the chunk size and overlap used at ingestion
func WithChunking(size, overlap int) Option {
	return func(s *Service) {
		s.chunkSize = size
		s.overlap = overlap
	}
}

// New creates a knowledge service over the given directory of .txt documents
func New(llmClient gollem.LLMClient, dir string, opts ...Option) (*Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	s := &Service{
		llmClient: llmClient,
		dir:       dir,
		chunkSize: defaultChunkSize,
		overlap:   defaultOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Reload re-reads every document under the knowledge directory, splits it
// into chunks, embeds them and atomically swaps the index. Returns the
// number of indexed chunks.
func (s *Service) Reload(ctx context.Context) (int, error) {
	var sources []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".txt") {
			sources = append(sources, path)
		}
		return nil
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to walk knowledge base directory", goerr.V("dir", s.dir))
	}

	var pending []model.Chunk
	for _, path := range sources {
		data, err := os.ReadFile(path) // #nosec G304 - path comes from the configured knowledge dir
		if err != nil {
			return 0, goerr.Wrap(err, "failed to read knowledge document", goerr.V("path", path))
		}

		source := filepath.Base(path)
		for _, content := range splitText(string(data), s.chunkSize, s.overlap) {
			pending = append(pending, model.Chunk{Source: source, Content: content})
		}
	}

	if err := s.embedChunks(ctx, pending); err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.chunks = pending
	s.mu.Unlock()

	logging.From(ctx).Info("knowledge base reloaded",
		"documents", len(sources),
		"chunks", len(pending),
	)

	return len(pending), nil
}

// embedChunks fills in embeddings for all chunks, batching requests to the
// embedding capability and running batches concurrently
func (s *Service) embedChunks(ctx context.Context, chunks []model.Chunk) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(embedConcurrency)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		eg.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Content
			}

			embeddings, err := s.llmClient.GenerateEmbedding(ctx, model.EmbeddingDimension, texts)
			if err != nil {
				return goerr.Wrap(types.ErrCapabilityUnavailable, "failed to generate chunk embeddings",
					goerr.V("batch_size", len(batch)),
					goerr.V("cause", err.Error()),
				)
			}
			if len(embeddings) != len(batch) {
				return goerr.New("embedding count mismatch",
					goerr.V("want", len(batch)),
					goerr.V("got", len(embeddings)),
				)
			}

			for i := range batch {
				batch[i].Embedding = toFloat32(embeddings[i])
			}
			return nil
		})
	}

	return eg.Wait()
}

// Query embeds the query text and returns the top-k chunks with cosine
// similarity of at least minScore, ordered by descending score. An empty
// result is a valid outcome.
func (s *Service) Query(ctx context.Context, text string, k int, minScore float64) ([]model.RetrievedDocument, error) {
	s.mu.RLock()
	chunks := s.chunks
	s.mu.RUnlock()

	if len(chunks) == 0 {
		return nil, goerr.Wrap(types.ErrKnowledgeNotReady, "knowledge base is empty, run ingest first")
	}

	embeddings, err := s.llmClient.GenerateEmbedding(ctx, model.EmbeddingDimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(types.ErrCapabilityUnavailable, "failed to generate query embedding",
			goerr.V("cause", err.Error()),
		)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.Wrap(types.ErrCapabilityUnavailable, "embedding generation returned empty result")
	}

	query := toFloat32(embeddings[0])

	type scored struct {
		chunk model.Chunk
		score float64
	}

	var candidates []scored
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		if score := cosineSimilarity(query, c.Embedding); score >= minScore {
			candidates = append(candidates, scored{chunk: c, score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	result := make([]model.RetrievedDocument, len(candidates))
	for i, c := range candidates {
		result[i] = model.RetrievedDocument{
			Source:  c.chunk.Source,
			Content: c.chunk.Content,
			Score:   c.score,
		}
	}

	return result, nil
}

func toFloat32(v []float64) []float32 {
	result := make([]float32, len(v))
	for i, f := range v {
		result[i] = float32(f)
	}
	return result
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	return dot / denom
}
