package roomcode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandom(t *testing.T) {
	code, err := Random()
	require.NoError(t, err)

	norm, ok := Normalize(code)
	assert.True(t, ok)
	assert.Equal(t, code, norm)
}

func TestGenerate_RetriesOnCollision(t *testing.T) {
	codes := []string{"AAAAAA", "BBBBBB", "CCCCCC"}
	taken := map[string]bool{"AAAAAA": true, "BBBBBB": true}

	g := NewGenerator(func(_ context.Context, code string) (bool, error) {
		return taken[code], nil
	})
	i := 0
	g.random = func() (string, error) {
		c := codes[i]
		i++
		return c, nil
	}

	code, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "CCCCCC", code)
	assert.Equal(t, 3, i)
}

func TestGenerate_Exhausted(t *testing.T) {
	calls := 0
	g := NewGenerator(func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	})

	_, err := g.Generate(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, MaxRetries, calls)
}

func TestGenerate_LookupError(t *testing.T) {
	boom := errors.New("boom")
	g := NewGenerator(func(context.Context, string) (bool, error) { return false, boom })

	_, err := g.Generate(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestNormalize(t *testing.T) {
	code, ok := Normalize("  ab12cd ")
	assert.True(t, ok)
	assert.Equal(t, "AB12CD", code)

	for _, bad := range []string{"", "ABC", "ABCDEFG", "AB-2CD"} {
		_, ok := Normalize(bad)
		assert.False(t, ok, bad)
	}
}
