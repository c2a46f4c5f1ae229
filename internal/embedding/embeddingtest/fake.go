// Package embeddingtest provides a deterministic in-process embedder.
package embeddingtest

import (
	"context"
	"sync"
	"unicode"
)

// Dim is the length of vectors produced by Vector.
const Dim = 27

// Fake implements the langchaingo embeddings.Embedder interface without a
// network. Vectors fall back to a letter histogram of the text.
type Fake struct {
	mu sync.Mutex

	// Vectors overrides the vector for an exact text.
	Vectors map[string][]float32
	// DocErr and QueryErr are returned by the matching call when set.
	DocErr   error
	QueryErr error

	DocCalls   int
	QueryCalls int
}

func (f *Fake) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DocCalls++
	if f.DocErr != nil {
		return nil, f.DocErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *Fake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.QueryCalls++
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	return f.vector(text), nil
}

func (f *Fake) vector(text string) []float32 {
	if v, ok := f.Vectors[text]; ok {
		return append([]float32(nil), v...)
	}
	return Vector(text)
}

// Vector counts the letters a-z of text. The last component is constant so
// the vector is never zero.
func Vector(text string) []float32 {
	v := make([]float32, Dim)
	for _, r := range text {
		r = unicode.ToLower(r)
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	v[Dim-1] = 1
	return v
}
