package helper

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	a, err := GenerateUUID()
	require.NoError(t, err)
	b, err := GenerateUUID()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	_, err = uuid.Parse(a)
	assert.NoError(t, err)
}

func TestPrettyPrint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrettyPrint(&buf, map[string]int{"chunks": 3}))

	assert.Equal(t, "{\n  \"chunks\": 3\n}\n", buf.String())
}

func TestPrettyPrintUnsupportedValue(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, PrettyPrint(&buf, make(chan int)))
}
