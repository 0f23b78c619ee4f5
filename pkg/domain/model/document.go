package model

// EmbeddingDimension is the dimension of the embedding vector.
// OpenAI text-embedding-3-small uses 1536 dimensions.
const EmbeddingDimension = 1536

// Chunk is one indexed span of a knowledge base document
type Chunk struct {
	Source    string // base name of the originating document
	Content   string
	Embedding []float32
}

// RetrievedDocument is a knowledge chunk returned by vector search,
// ordered by descending relevance score
type RetrievedDocument struct {
	Source  string
	Content string
	Score   float64
}
