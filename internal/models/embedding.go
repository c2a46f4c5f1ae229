package models

// Chunk represents a bounded piece of the extracted text
type Chunk struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	// Start and End are rune offsets into the text the chunk was cut from.
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Source is a retrieved chunk that was handed to the model for an answer
type Source struct {
	ChunkID    int     `json:"chunk_id"`
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}

// Turn is one answered question
type Turn struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry of the flattened transcript. Position is the
// index in chronological order; even positions are questions.
type Message struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	Position int    `json:"position"`
}

// Flatten turns a chronological list of turns into alternating user and
// assistant messages.
func Flatten(turns []Turn) []Message {
	msgs := make([]Message, 0, len(turns)*2)
	for _, t := range turns {
		msgs = append(msgs,
			Message{Role: RoleUser, Content: t.Question, Position: len(msgs)},
			Message{Role: RoleAssistant, Content: t.Answer, Position: len(msgs) + 1},
		)
	}
	return msgs
}

// NewestFirst returns the messages in reverse order. Roles keep the parity
// of their chronological position.
func NewestFirst(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		if m.Position%2 == 0 {
			m.Role = RoleUser
		} else {
			m.Role = RoleAssistant
		}
		out[len(msgs)-1-i] = m
	}
	return out
}
