package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/textsplitter"

	"document-qa/internal/models"
)

// Recursive delegates to the langchaingo recursive character splitter, which
// falls back to spaces and single runes for units longer than a chunk.
// Chunks come back trimmed, so overlaps are whole units rather than exact
// rune counts.
type Recursive struct {
	splitter textsplitter.RecursiveCharacter
}

func NewRecursive(size, overlap int, separator string) (*Recursive, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	separators := []string{separator, " ", ""}
	if separator == "" || separator == " " {
		separators = []string{separator, ""}
	}
	return &Recursive{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(separators),
		),
	}, nil
}

func (r *Recursive) Split(text string) ([]models.Chunk, error) {
	if text == "" {
		return nil, nil
	}
	parts, err := r.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.Chunk, 0, len(parts))
	from := 0
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		c := models.Chunk{ID: len(chunks) + 1, Content: p, Start: -1, End: -1}
		if i := strings.Index(text[from:], p); i >= 0 {
			at := from + i
			c.Start = utf8.RuneCountInString(text[:at])
			c.End = c.Start + utf8.RuneCountInString(p)
			_, size := utf8.DecodeRuneInString(text[at:])
			from = at + size
		} else {
			log.Debug().Int("chunk", c.ID).Msg("chunk not found in source text")
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}
