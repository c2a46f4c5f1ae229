package chunker

import (
	"sort"

	"document-qa/internal/models"
)

// Character cuts text at separator boundaries. Each unit keeps its trailing
// separator so the units concatenate back to the input.
type Character struct {
	size      int
	overlap   int
	separator []rune
}

func NewCharacter(size, overlap int, separator string) (*Character, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return &Character{size: size, overlap: overlap, separator: []rune(separator)}, nil
}

// Split greedily packs whole units into chunks of at most size runes. The
// next chunk backs up overlap runes into the previous one, less when the
// following unit would not fit otherwise. A unit longer than size becomes a
// chunk of its own.
func (c *Character) Split(text string) ([]models.Chunk, error) {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	bounds := c.boundaries(runes)

	var chunks []models.Chunk
	start := 0
	for {
		end := furthestWithin(bounds, start, start+c.size)
		chunks = append(chunks, models.Chunk{
			ID:      len(chunks) + 1,
			Content: string(runes[start:end]),
			Start:   start,
			End:     end,
		})
		if end == len(runes) {
			return chunks, nil
		}

		next := end - c.overlap
		if nb := firstAfter(bounds, end); nb-next > c.size {
			next = nb - c.size
		}
		if next > end {
			next = end
		}
		start = next
	}
}

// boundaries returns the sorted end offsets of every unit; the last one is
// always len(runes).
func (c *Character) boundaries(runes []rune) []int {
	n := len(runes)
	sl := len(c.separator)
	if sl == 0 {
		b := make([]int, n)
		for i := range b {
			b[i] = i + 1
		}
		return b
	}

	var b []int
	for i := 0; i+sl <= n; {
		if equalRunes(runes[i:i+sl], c.separator) {
			i += sl
			b = append(b, i)
			continue
		}
		i++
	}
	if len(b) == 0 || b[len(b)-1] != n {
		b = append(b, n)
	}
	return b
}

// furthestWithin picks the largest boundary in (start, limit], or the first
// boundary after start when the unit there is longer than the limit allows.
func furthestWithin(bounds []int, start, limit int) int {
	i := sort.SearchInts(bounds, limit+1)
	if i > 0 && bounds[i-1] > start {
		return bounds[i-1]
	}
	return firstAfter(bounds, start)
}

func firstAfter(bounds []int, pos int) int {
	i := sort.SearchInts(bounds, pos+1)
	return bounds[i]
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
