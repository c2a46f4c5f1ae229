package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"document-qa/internal/chromemdb"
	"document-qa/internal/embedding/embeddingtest"
	"document-qa/internal/llmservice"
	"document-qa/internal/models"
)

// scriptedLLM answers with the next reply, or fails when the reply is an error.
type scriptedLLM struct {
	replies []any
	calls   [][]llms.MessageContent
}

func (s *scriptedLLM) GenerateContent(_ context.Context, msgs []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	s.calls = append(s.calls, msgs)
	if len(s.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	if err, ok := r.(error); ok {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: r.(string)}}}, nil
}

type recordingRetriever struct {
	matches []chromemdb.Match
	err     error
	queries []string
}

func (r *recordingRetriever) Search(_ context.Context, query string, _ int) ([]chromemdb.Match, error) {
	r.queries = append(r.queries, query)
	return r.matches, r.err
}

func newConversation(llm *scriptedLLM, condense bool) *Conversation {
	return NewConversation(llmservice.NewClient(llm, "test-model", 0), Options{TopK: 2, CondenseQuestion: condense})
}

func text(m llms.MessageContent) string {
	return m.Parts[0].(llms.TextContent).Text
}

func TestAskBeforeLoadIsUsageError(t *testing.T) {
	llm := &scriptedLLM{}
	c := newConversation(llm, true)

	assert.Equal(t, Idle, c.State())
	_, err := c.Ask(context.Background(), "anything?")

	assert.ErrorIs(t, err, models.ErrNotReady)
	assert.Equal(t, models.KindUsage, models.KindOf(err))
	assert.Empty(t, c.Transcript())
	assert.Empty(t, llm.calls)
}

func TestAskEmptyQuestion(t *testing.T) {
	c := newConversation(&scriptedLLM{}, false)
	c.Load(&recordingRetriever{})

	_, err := c.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, models.ErrEmptyQuestion)
}

func TestAskAccumulatesTurnsInOrder(t *testing.T) {
	llm := &scriptedLLM{replies: []any{"a1", "a2", "a3"}}
	c := newConversation(llm, false)
	c.Load(&recordingRetriever{})
	assert.Equal(t, Ready, c.State())

	var transcript []models.Turn
	for i := 1; i <= 3; i++ {
		var err error
		transcript, err = c.Ask(context.Background(), fmt.Sprintf("q%d", i))
		require.NoError(t, err)
		assert.Len(t, transcript, i)
	}

	for i, turn := range transcript {
		assert.Equal(t, fmt.Sprintf("q%d", i+1), turn.Question)
		assert.Equal(t, fmt.Sprintf("a%d", i+1), turn.Answer)
	}
	assert.Len(t, c.Messages(), 6)
}

func TestFailedTurnLeavesTranscriptUnchanged(t *testing.T) {
	llm := &scriptedLLM{replies: []any{"a1", errors.New("quota exceeded"), "a2"}}
	c := newConversation(llm, false)
	c.Load(&recordingRetriever{})

	_, err := c.Ask(context.Background(), "q1")
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), "q2")
	assert.ErrorIs(t, err, models.ErrProvider)
	assert.Len(t, c.Transcript(), 1)

	transcript, err := c.Ask(context.Background(), "q2 again")
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, "q2 again", transcript[1].Question)
}

func TestRetrievalFailureLeavesTranscriptUnchanged(t *testing.T) {
	llm := &scriptedLLM{replies: []any{"never"}}
	c := newConversation(llm, false)
	c.Load(&recordingRetriever{err: fmt.Errorf("%w: embedding query: timeout", models.ErrProvider)})

	_, err := c.Ask(context.Background(), "q1")

	assert.ErrorIs(t, err, models.ErrProvider)
	assert.Empty(t, c.Transcript())
	assert.Empty(t, llm.calls)
}

func TestPromptCarriesContextHistoryAndQuestion(t *testing.T) {
	llm := &scriptedLLM{replies: []any{"first answer", "second answer"}}
	ret := &recordingRetriever{matches: []chromemdb.Match{
		{Chunk: models.Chunk{ID: 7, Content: "the sky is blue"}, Similarity: 0.9},
		{Chunk: models.Chunk{ID: 2, Content: "grass is green"}, Similarity: 0.5},
	}}
	c := newConversation(llm, false)
	c.Load(ret)

	_, err := c.Ask(context.Background(), "what colour is the sky?")
	require.NoError(t, err)
	transcript, err := c.Ask(context.Background(), "and grass?")
	require.NoError(t, err)

	last := llm.calls[1]
	require.Len(t, last, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, last[0].Role)
	assert.Contains(t, text(last[0]), "the sky is blue"+models.ContextSeparator+"grass is green")
	assert.Equal(t, llms.ChatMessageTypeHuman, last[1].Role)
	assert.Equal(t, "what colour is the sky?", text(last[1]))
	assert.Equal(t, llms.ChatMessageTypeAI, last[2].Role)
	assert.Equal(t, "first answer", text(last[2]))
	assert.Equal(t, "and grass?", text(last[3]))

	assert.Equal(t, []string{"what colour is the sky?", "and grass?"}, ret.queries)
	require.Len(t, transcript[1].Sources, 2)
	assert.Equal(t, 7, transcript[1].Sources[0].ChunkID)
}

func TestFollowUpIsCondensedBeforeRetrieval(t *testing.T) {
	llm := &scriptedLLM{replies: []any{"blue", "What colour is grass?", "green"}}
	ret := &recordingRetriever{}
	c := newConversation(llm, true)
	c.Load(ret)

	_, err := c.Ask(context.Background(), "what colour is the sky?")
	require.NoError(t, err)
	_, err = c.Ask(context.Background(), "and grass?")
	require.NoError(t, err)

	assert.Equal(t, []string{"what colour is the sky?", "What colour is grass?"}, ret.queries)
	require.Len(t, llm.calls, 3)
	condensePrompt := text(llm.calls[1][0])
	assert.Contains(t, condensePrompt, "Human: what colour is the sky?\nAssistant: blue")
	assert.Contains(t, condensePrompt, "Follow Up Input: and grass?")
	// The answer prompt still asks the user's own wording.
	assert.Equal(t, "and grass?", text(llm.calls[2][len(llm.calls[2])-1]))
}

func TestCondenseFailureAbortsTurn(t *testing.T) {
	llm := &scriptedLLM{replies: []any{"blue", errors.New("503")}}
	c := newConversation(llm, true)
	c.Load(&recordingRetriever{})

	_, err := c.Ask(context.Background(), "q1")
	require.NoError(t, err)
	_, err = c.Ask(context.Background(), "q2")

	assert.ErrorIs(t, err, models.ErrProvider)
	assert.Len(t, c.Transcript(), 1)
}

func TestLoadClearsMemory(t *testing.T) {
	llm := &scriptedLLM{replies: []any{"a1"}}
	c := newConversation(llm, false)
	c.Load(&recordingRetriever{})
	_, err := c.Ask(context.Background(), "q1")
	require.NoError(t, err)

	c.Load(&recordingRetriever{})

	assert.Equal(t, Ready, c.State())
	assert.Empty(t, c.Transcript())
}

func TestAskAgainstBuiltIndex(t *testing.T) {
	chunks := []models.Chunk{
		{ID: 1, Content: "Alpha is the first letter."},
		{ID: 2, Content: "Zulu closes the alphabet."},
	}
	ix, err := chromemdb.BuildIndex(context.Background(), &embeddingtest.Fake{}, "fake", chunks)
	require.NoError(t, err)

	llm := &scriptedLLM{replies: []any{"Alpha."}}
	c := newConversation(llm, false)
	c.Load(ix)

	transcript, err := c.Ask(context.Background(), "Which letter is first?")
	require.NoError(t, err)

	require.Len(t, transcript, 1)
	assert.Equal(t, "Alpha.", transcript[0].Answer)
	assert.Len(t, transcript[0].Sources, 2)
}
