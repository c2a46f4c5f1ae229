package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"document-qa/internal/chromemdb"
	"document-qa/internal/chunker"
	"document-qa/internal/config"
	"document-qa/internal/embedding"
	"document-qa/internal/llmservice"
	"document-qa/internal/metrics"
	"document-qa/internal/models"
	"document-qa/internal/parser"
	"document-qa/internal/rag"
)

// Pipeline holds the stateless components shared by every session.
type Pipeline struct {
	Ingestor       *parser.Ingestor
	Chunker        chunker.Chunker
	Embedder       embeddings.Embedder
	EmbeddingModel string
	LLM            rag.Completer
	Retrieval      config.RetrievalConfig
	Metrics        *metrics.Recorder
}

// NewPipeline builds the components described by cfg.
func NewPipeline(cfg *config.Config, rec *metrics.Recorder) (*Pipeline, error) {
	ch, err := chunker.New(cfg.Chunking)
	if err != nil {
		return nil, err
	}
	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	llm, err := llmservice.New(cfg.Completion)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Ingestor:       parser.NewIngestor(cfg.Ingest),
		Chunker:        ch,
		Embedder:       emb,
		EmbeddingModel: cfg.Embedding.Model,
		LLM:            llm,
		Retrieval:      cfg.Retrieval,
		Metrics:        rec,
	}, nil
}

// Summary describes a processed upload batch.
type Summary struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Runes     int `json:"runes"`
}

// Session is the state of one user: an optional index and the conversation
// over it. Actions on a session run one at a time.
type Session struct {
	ID string

	mu       sync.Mutex
	pipeline *Pipeline
	conv     *rag.Conversation
	summary  Summary
}

func New(id string, p *Pipeline) *Session {
	return &Session{
		ID:       id,
		pipeline: p,
		conv: rag.NewConversation(p.LLM, rag.Options{
			TopK:             p.Retrieval.TopK,
			CondenseQuestion: p.Retrieval.CondenseQuestion,
		}),
	}
}

// Process extracts, chunks and embeds the uploads, then starts a fresh
// conversation over the new index. If any step fails the session keeps its
// previous index and transcript.
func (s *Session) Process(ctx context.Context, uploads []parser.Upload) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	sum, ix, err := s.build(ctx, uploads)
	s.pipeline.Metrics.ObserveBuild(sum.Documents, sum.Chunks, time.Since(start), err)
	if err != nil {
		log.Error().Err(err).Str("session", s.ID).Str("kind", string(models.KindOf(err))).Msg("Processing documents failed")
		return Summary{}, err
	}

	s.conv.Load(ix)
	s.summary = sum
	log.Info().Str("session", s.ID).Int("documents", sum.Documents).Int("chunks", sum.Chunks).
		Dur("elapsed", time.Since(start)).Msg("Documents processed")
	return sum, nil
}

func (s *Session) build(ctx context.Context, uploads []parser.Upload) (Summary, *chromemdb.Index, error) {
	text, err := s.pipeline.Ingestor.Ingest(ctx, uploads)
	if err != nil {
		return Summary{}, nil, fmt.Errorf("reading documents: %w", err)
	}
	chunks, err := s.pipeline.Chunker.Split(text)
	if err != nil {
		return Summary{}, nil, fmt.Errorf("splitting text: %w", err)
	}
	ix, err := chromemdb.BuildIndex(ctx, s.pipeline.Embedder, s.pipeline.EmbeddingModel, chunks)
	if err != nil {
		return Summary{}, nil, fmt.Errorf("building index: %w", err)
	}
	return Summary{Documents: len(uploads), Chunks: len(chunks), Runes: len([]rune(text))}, ix, nil
}

// Ask answers question and returns the transcript, oldest first.
func (s *Session) Ask(ctx context.Context, question string) ([]models.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	turns, err := s.conv.Ask(ctx, question)
	s.pipeline.Metrics.ObserveAnswer(time.Since(start), err)
	if err != nil {
		log.Error().Err(err).Str("session", s.ID).Str("kind", string(models.KindOf(err))).Msg("Answering failed")
		return nil, err
	}
	return turns, nil
}

func (s *Session) State() rag.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.State()
}

func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

func (s *Session) Transcript() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Transcript()
}

// Messages returns the transcript newest first, ready to display.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Render(s.conv.Messages())
}

// Render orders messages newest first. Roles follow the parity of the
// chronological position: even is the user, odd the assistant.
func Render(messages []models.Message) []models.Message {
	return models.NewestFirst(messages)
}
