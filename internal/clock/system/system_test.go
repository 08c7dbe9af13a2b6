package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowIsUTCAndMonotonic(t *testing.T) {
	t.Parallel()

	c := Clock{}
	first := c.Now()
	second := c.Now()

	require.Equal(t, time.UTC, first.Location())
	require.False(t, second.Before(first))
	require.WithinDuration(t, time.Now().UTC(), second, time.Minute)
}
