package otp

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerator_Generate(t *testing.T) {
	g := NewGenerator()

	seen := make(map[string]struct{})
	for range 200 {
		code, err := g.Generate()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, minCode)
		assert.LessOrEqual(t, n, maxCode)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 150)
}

func TestGenerator_RandomFailure(t *testing.T) {
	g := &Generator{rand: failingReader{}}

	_, err := g.Generate()
	assert.ErrorContains(t, err, "entropy exhausted")
}
