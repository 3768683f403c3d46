package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter_PerClientBuckets(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(60, 2)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow("10.0.0.1"))
	require.True(t, l.Allow("10.0.0.1"))
	require.False(t, l.Allow("10.0.0.1"))
	require.True(t, l.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	require.True(t, l.Allow("10.0.0.1"))
}

func TestRateLimiter_DropsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(60, 1)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow("10.0.0.1"))
	now = now.Add(11 * time.Minute)
	require.True(t, l.Allow("10.0.0.2"))
	require.Len(t, l.clients, 1)
}
