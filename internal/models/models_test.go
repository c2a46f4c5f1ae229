package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenAlternatesRoles(t *testing.T) {
	msgs := Flatten([]Turn{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
	})

	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "q1", Position: 0},
		{Role: RoleAssistant, Content: "a1", Position: 1},
		{Role: RoleUser, Content: "q2", Position: 2},
		{Role: RoleAssistant, Content: "a2", Position: 3},
	}, msgs)
}

func TestNewestFirstKeepsParity(t *testing.T) {
	msgs := NewestFirst(Flatten([]Turn{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
	}))

	if assert.Len(t, msgs, 4) {
		assert.Equal(t, "a2", msgs[0].Content)
		assert.Equal(t, RoleAssistant, msgs[0].Role)
		assert.Equal(t, "q2", msgs[1].Content)
		assert.Equal(t, RoleUser, msgs[1].Role)
		assert.Equal(t, "q1", msgs[3].Content)
		assert.Equal(t, RoleUser, msgs[3].Role)
	}
}

func TestNewestFirstEmpty(t *testing.T) {
	assert.Empty(t, NewestFirst(nil))
}

func TestKindOf(t *testing.T) {
	cases := map[error]ErrorKind{
		fmt.Errorf("asking: %w", ErrNotReady):              KindUsage,
		ErrEmptyQuestion:                                   KindUsage,
		ErrEmptyQuery:                                      KindUsage,
		fmt.Errorf("%w: embedding: boom", ErrProvider):     KindProvider,
		fmt.Errorf("a.pdf: %w", ErrUnreadableDocument):     KindIngestion,
		ErrNoDocuments:                                     KindIngestion,
		fmt.Errorf("x: %w", ErrUnsupportedFormat):          KindIngestion,
		ErrNoText:                                          KindIngestion,
		fmt.Errorf("something else"):                       KindInternal,
	}
	for err, want := range cases {
		assert.Equal(t, want, KindOf(err), err.Error())
	}
}
