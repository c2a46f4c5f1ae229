package chunker

import (
	"fmt"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

// Chunker splits extracted text into ordered, overlapping chunks.
type Chunker interface {
	Split(text string) ([]models.Chunk, error)
}

// New returns the chunker selected by cfg.Strategy.
func New(cfg config.ChunkingConfig) (Chunker, error) {
	switch cfg.Strategy {
	case config.StrategyCharacter, "":
		return NewCharacter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.Separator)
	case config.StrategyRecursive:
		return NewRecursive(cfg.ChunkSize, cfg.ChunkOverlap, cfg.Separator)
	default:
		return nil, fmt.Errorf("%w: unknown chunking strategy %q", models.ErrInvalidConfig, cfg.Strategy)
	}
}

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size %d", models.ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: chunk overlap %d with size %d", models.ErrInvalidConfig, overlap, size)
	}
	return nil
}

// Reassemble joins chunks back into the text they were cut from, dropping
// the part of each chunk that overlaps its predecessor.
func Reassemble(chunks []models.Chunk) string {
	var out []rune
	end := 0
	for _, c := range chunks {
		r := []rune(c.Content)
		skip := end - c.Start
		if skip < 0 {
			skip = 0
		}
		if skip > len(r) {
			skip = len(r)
		}
		out = append(out, r[skip:]...)
		if c.End > end {
			end = c.End
		}
	}
	return string(out)
}
