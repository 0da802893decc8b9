package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextNonce_FormatAndMonotonic(t *testing.T) {
	at := time.Date(2026, 10, 18, 9, 5, 7, 123_456_789, time.UTC)
	first := nextNonce(at)
	require.Len(t, first, 16)

	seen := map[string]bool{first: true}
	prev := first
	for i := 0; i < 100; i++ {
		n := nextNonce(at)
		require.Len(t, n, 16)
		require.False(t, seen[n], "duplicate nonce %s", n)
		require.Greater(t, n, prev)
		seen[n] = true
		prev = n
	}
}
