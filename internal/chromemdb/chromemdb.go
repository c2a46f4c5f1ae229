package chromemdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"document-qa/internal/helper"
	"document-qa/internal/models"
)

const (
	metaChunkID = "chunk_id"
	metaStart   = "start"
	metaEnd     = "end"

	// Chunks are embedded in one batch call; adding the finished vectors
	// needs no parallelism.
	addConcurrency = 1
)

// Match is a chunk returned by a similarity search.
type Match struct {
	Chunk      models.Chunk
	Similarity float32
}

// Index is an immutable in-memory similarity index over one upload batch.
// It keeps the embedder that produced its vectors so queries are embedded
// into the same vector space.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
	model      string
	chunks     []models.Chunk
}

// BuildIndex embeds every chunk and loads the vectors into a fresh chromem
// database. Any provider failure aborts the build; no partial index is
// returned.
func BuildIndex(ctx context.Context, embedder embeddings.Embedder, model string, chunks []models.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, models.ErrNoText
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding %d chunks: %w", models.ErrProvider, len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", models.ErrProvider, len(vectors), len(chunks))
	}

	name, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	db := chromem.NewDB()
	collection, err := db.CreateCollection(name, map[string]string{"embedding_model": model}, queryEmbeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("%w: empty embedding for chunk %d", models.ErrProvider, c.ID)
		}
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   c.Content,
			Metadata:  chunkMetadata(c),
			Embedding: vectors[i],
		}
	}
	if err := collection.AddDocuments(ctx, docs, addConcurrency); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}

	log.Info().Str("collection", name).Str("embedding_model", model).Int("chunks", len(chunks)).Msg("Built vector index")

	return &Index{
		db:         db,
		collection: collection,
		embedder:   embedder,
		model:      model,
		chunks:     append([]models.Chunk(nil), chunks...),
	}, nil
}

// queryEmbeddingFunc ties the collection's query path to the build embedder.
func queryEmbeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vec, err := embedder.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%w: embedding query: %w", models.ErrProvider, err)
		}
		return vec, nil
	}
}

// EmbeddingModel is the model the index vectors were produced with.
func (ix *Index) EmbeddingModel() string {
	return ix.model
}

// Count returns the number of indexed chunks.
func (ix *Index) Count() int {
	return ix.collection.Count()
}

// Chunks returns the indexed chunks in build order.
func (ix *Index) Chunks() []models.Chunk {
	return append([]models.Chunk(nil), ix.chunks...)
}

// Search embeds query with the index embedder and returns the k most
// similar chunks, best first.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.ErrEmptyQuery
	}
	k = ix.clamp(k)
	if k == 0 {
		return nil, nil
	}
	results, err := ix.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return ix.matches(results), nil
}

// SearchVector is Search for an already embedded query.
func (ix *Index) SearchVector(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: no query embedding", models.ErrEmptyQuery)
	}
	k = ix.clamp(k)
	if k == 0 {
		return nil, nil
	}
	results, err := ix.collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return ix.matches(results), nil
}

// chromem refuses to return more results than it holds.
func (ix *Index) clamp(k int) int {
	if k <= 0 {
		k = models.DefaultTopK
	}
	return min(k, ix.collection.Count())
}

func (ix *Index) matches(results []chromem.Result) []Match {
	out := make([]Match, 0, len(results))
	for _, r := range results {
		i, err := strconv.Atoi(r.ID)
		if err != nil || i < 0 || i >= len(ix.chunks) {
			log.Warn().Str("id", r.ID).Msg("Result does not map to a chunk")
			continue
		}
		out = append(out, Match{Chunk: ix.chunks[i], Similarity: r.Similarity})
	}
	return out
}

func chunkMetadata(c models.Chunk) map[string]string {
	return map[string]string{
		metaChunkID: strconv.Itoa(c.ID),
		metaStart:   strconv.Itoa(c.Start),
		metaEnd:     strconv.Itoa(c.End),
	}
}
