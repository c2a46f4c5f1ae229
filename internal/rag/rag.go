package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"document-qa/internal/chromemdb"
	"document-qa/internal/models"
)

type State int

const (
	Idle State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "idle"
}

// Retriever finds the chunks most similar to a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]chromemdb.Match, error)
}

// Completer answers a chat prompt.
type Completer interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent) (string, error)
}

type Options struct {
	TopK int
	// CondenseQuestion rewrites follow-up questions into standalone ones
	// before retrieval.
	CondenseQuestion bool
}

// Conversation answers questions against one index and remembers the
// answered turns. It is Idle until an index is loaded.
type Conversation struct {
	llm   Completer
	opts  Options
	index Retriever
	turns []models.Turn
}

func NewConversation(llm Completer, opts Options) *Conversation {
	if opts.TopK <= 0 {
		opts.TopK = models.DefaultTopK
	}
	return &Conversation{llm: llm, opts: opts}
}

func (c *Conversation) State() State {
	if c.index == nil {
		return Idle
	}
	return Ready
}

// Load switches to index and forgets all previous turns.
func (c *Conversation) Load(index Retriever) {
	c.index = index
	c.turns = nil
}

// Ask answers question from the loaded index and returns the whole
// transcript. A failed turn leaves the transcript as it was.
func (c *Conversation) Ask(ctx context.Context, question string) ([]models.Turn, error) {
	if c.index == nil {
		return nil, models.ErrNotReady
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, models.ErrEmptyQuestion
	}

	query := question
	if c.opts.CondenseQuestion && len(c.turns) > 0 {
		standalone, err := c.condense(ctx, question)
		if err != nil {
			return nil, fmt.Errorf("condensing question: %w", err)
		}
		query = standalone
	}

	matches, err := c.index.Search(ctx, query, c.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	answer, err := c.llm.GenerateContent(ctx, c.messages(matches, question))
	if err != nil {
		return nil, fmt.Errorf("answering question: %w", err)
	}

	c.turns = append(c.turns, models.Turn{
		Question: question,
		Answer:   strings.TrimSpace(answer),
		Sources:  sources(matches),
	})
	log.Info().Int("turn", len(c.turns)).Int("sources", len(matches)).Str("query", query).Msg("Answered question")

	return c.Transcript(), nil
}

// Transcript returns a copy of the answered turns, oldest first.
func (c *Conversation) Transcript() []models.Turn {
	return append([]models.Turn(nil), c.turns...)
}

// Messages returns the transcript as alternating user/assistant messages.
func (c *Conversation) Messages() []models.Message {
	return models.Flatten(c.turns)
}

func (c *Conversation) condense(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf(models.CondenseQuestionTemplate, formatHistory(c.turns), question)
	standalone, err := c.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	})
	if err != nil {
		return "", err
	}
	if standalone = strings.TrimSpace(standalone); standalone == "" {
		return question, nil
	}
	return standalone, nil
}

// messages lays out the retrieved context as the system prompt, followed by
// the earlier turns and the new question.
func (c *Conversation) messages(matches []chromemdb.Match, question string) []llms.MessageContent {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.Chunk.Content
	}

	msgs := make([]llms.MessageContent, 0, 2+2*len(c.turns))
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem,
		fmt.Sprintf(models.QAPromptTemplate, strings.Join(parts, models.ContextSeparator))))
	for _, t := range c.turns {
		msgs = append(msgs,
			llms.TextParts(llms.ChatMessageTypeHuman, t.Question),
			llms.TextParts(llms.ChatMessageTypeAI, t.Answer),
		)
	}
	return append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, question))
}

func formatHistory(turns []models.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "Human: %s\nAssistant: %s\n", t.Question, t.Answer)
	}
	return b.String()
}

func sources(matches []chromemdb.Match) []models.Source {
	out := make([]models.Source, len(matches))
	for i, m := range matches {
		out[i] = models.Source{ChunkID: m.Chunk.ID, Content: m.Chunk.Content, Similarity: m.Similarity}
	}
	return out
}
