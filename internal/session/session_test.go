package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"document-qa/internal/chunker"
	"document-qa/internal/config"
	"document-qa/internal/embedding/embeddingtest"
	"document-qa/internal/llmservice"
	"document-qa/internal/metrics"
	"document-qa/internal/models"
	"document-qa/internal/parser"
	"document-qa/internal/parser/pdftest"
	"document-qa/internal/rag"
)

// echoLLM answers with the last human message, upper-cased.
type echoLLM struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (e *echoLLM) GenerateContent(_ context.Context, msgs []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	last := msgs[len(msgs)-1].Parts[0].(llms.TextContent).Text
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: strings.ToUpper(last)}}}, nil
}

func testPipeline(t *testing.T, emb *embeddingtest.Fake, llm *echoLLM) *Pipeline {
	t.Helper()
	ch, err := chunker.NewCharacter(10, 2, "\n")
	require.NoError(t, err)
	return &Pipeline{
		Ingestor:       parser.NewIngestor(config.IngestConfig{}),
		Chunker:        ch,
		Embedder:       emb,
		EmbeddingModel: "fake",
		LLM:            llmservice.NewClient(llm, "echo", 0),
		Retrieval:      config.RetrievalConfig{TopK: 4},
		Metrics:        metrics.New(),
	}
}

func greekPDF() []parser.Upload {
	return []parser.Upload{{Name: "abc.pdf", Data: pdftest.Build("Alpha.", "Beta.", "Gamma.")}}
}

func TestAskBeforeUpload(t *testing.T) {
	s := New("s1", testPipeline(t, &embeddingtest.Fake{}, &echoLLM{}))

	_, err := s.Ask(context.Background(), "What is this about?")

	assert.ErrorIs(t, err, models.ErrNotReady)
	assert.Equal(t, models.KindUsage, models.KindOf(err))
	assert.Empty(t, s.Transcript())
	assert.Equal(t, rag.Idle, s.State())
}

func TestEmbeddingFailureStaysIdle(t *testing.T) {
	emb := &embeddingtest.Fake{DocErr: errors.New("invalid api key")}
	llm := &echoLLM{}
	s := New("s1", testPipeline(t, emb, llm))

	_, err := s.Process(context.Background(), greekPDF())
	assert.ErrorIs(t, err, models.ErrProvider)
	assert.Equal(t, rag.Idle, s.State())

	_, err = s.Ask(context.Background(), "anything?")
	assert.ErrorIs(t, err, models.ErrNotReady)
	assert.Zero(t, llm.calls)
}

func TestProcessPDFThenAsk(t *testing.T) {
	s := New("s1", testPipeline(t, &embeddingtest.Fake{}, &echoLLM{}))

	sum, err := s.Process(context.Background(), greekPDF())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Documents)
	assert.GreaterOrEqual(t, sum.Chunks, 2)
	assert.Equal(t, rag.Ready, s.State())

	turns, err := s.Ask(context.Background(), "What comes after Alpha?")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "WHAT COMES AFTER ALPHA?", turns[0].Answer)

	assert.NotEmpty(t, turns[0].Sources)
	assert.LessOrEqual(t, len(turns[0].Sources), 4)
}

func TestGreekLettersChunking(t *testing.T) {
	p := testPipeline(t, &embeddingtest.Fake{}, &echoLLM{})
	p.Ingestor = parser.NewIngestor(config.IngestConfig{}).WithExtractor(parser.ExtractorFunc(func(u parser.Upload) (parser.Document, error) {
		return parser.Document{Name: u.Name, Pages: []string{"Alpha.", "Beta.", "Gamma."}}, nil
	}))
	s := New("s1", p)

	sum, err := s.Process(context.Background(), []parser.Upload{{Name: "abc.pdf"}})
	require.NoError(t, err)

	assert.Equal(t, Summary{Documents: 1, Chunks: 3, Runes: len("Alpha.\nBeta.\nGamma.")}, sum)
}

func TestFailedRebuildKeepsPreviousConversation(t *testing.T) {
	emb := &embeddingtest.Fake{}
	s := New("s1", testPipeline(t, emb, &echoLLM{}))

	_, err := s.Process(context.Background(), greekPDF())
	require.NoError(t, err)
	_, err = s.Ask(context.Background(), "first?")
	require.NoError(t, err)
	before := s.Summary()

	_, err = s.Process(context.Background(), []parser.Upload{{Name: "broken.pdf", Data: []byte("not a pdf")}})
	assert.ErrorIs(t, err, models.ErrUnreadableDocument)
	assert.Equal(t, models.KindIngestion, models.KindOf(err))

	assert.Equal(t, rag.Ready, s.State())
	assert.Len(t, s.Transcript(), 1)
	assert.Equal(t, before, s.Summary())

	turns, err := s.Ask(context.Background(), "second?")
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestReprocessClearsTranscript(t *testing.T) {
	s := New("s1", testPipeline(t, &embeddingtest.Fake{}, &echoLLM{}))

	_, err := s.Process(context.Background(), greekPDF())
	require.NoError(t, err)
	_, err = s.Ask(context.Background(), "first?")
	require.NoError(t, err)

	_, err = s.Process(context.Background(), greekPDF())
	require.NoError(t, err)

	assert.Empty(t, s.Transcript())
	assert.Equal(t, rag.Ready, s.State())
}

func TestFailedAnswerKeepsTranscript(t *testing.T) {
	llm := &echoLLM{}
	s := New("s1", testPipeline(t, &embeddingtest.Fake{}, llm))
	_, err := s.Process(context.Background(), greekPDF())
	require.NoError(t, err)
	_, err = s.Ask(context.Background(), "one")
	require.NoError(t, err)

	llm.err = errors.New("service unavailable")
	_, err = s.Ask(context.Background(), "two")

	assert.ErrorIs(t, err, models.ErrProvider)
	assert.Len(t, s.Transcript(), 1)
}

func TestSessionsAreIsolatedAndIdempotent(t *testing.T) {
	p := testPipeline(t, &embeddingtest.Fake{}, &echoLLM{})
	a := New("a", p)
	b := New("b", p)

	sumA, err := a.Process(context.Background(), greekPDF())
	require.NoError(t, err)
	sumB, err := b.Process(context.Background(), greekPDF())
	require.NoError(t, err)
	assert.Equal(t, sumA, sumB)

	_, err = a.Ask(context.Background(), "only in a")
	require.NoError(t, err)

	assert.Len(t, a.Transcript(), 1)
	assert.Empty(t, b.Transcript())
}

func TestMessagesNewestFirst(t *testing.T) {
	s := New("s1", testPipeline(t, &embeddingtest.Fake{}, &echoLLM{}))
	_, err := s.Process(context.Background(), greekPDF())
	require.NoError(t, err)
	for _, q := range []string{"one", "two"} {
		_, err = s.Ask(context.Background(), q)
		require.NoError(t, err)
	}

	msgs := s.Messages()

	require.Len(t, msgs, 4)
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Content: "TWO", Position: 3}, msgs[0])
	assert.Equal(t, models.Message{Role: models.RoleUser, Content: "two", Position: 2}, msgs[1])
	assert.Equal(t, models.Message{Role: models.RoleUser, Content: "one", Position: 0}, msgs[3])
}
