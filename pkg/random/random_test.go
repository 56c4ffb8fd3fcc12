package random

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRandomString(t *testing.T) {
	t.Run("length and alphabet", func(t *testing.T) {
		for _, n := range []int{1, 8, 10, 64} {
			s, err := NewRandomString(n)
			require.NoError(t, err)
			assert.Len(t, s, n)
			for _, r := range s {
				assert.True(t, strings.ContainsRune(Alphabet, r), "unexpected rune %q", r)
			}
		}
	})

	t.Run("rejects non-positive length", func(t *testing.T) {
		_, err := NewRandomString(0)
		assert.Error(t, err)
	})

	t.Run("values differ", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 100; i++ {
			s, err := NewRandomString(8)
			require.NoError(t, err)
			seen[s] = struct{}{}
		}
		assert.Greater(t, len(seen), 95)
	})
}
