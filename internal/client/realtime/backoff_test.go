package realtime

import (
	"testing"
	"time"

	"github.com/avolkov/lanferry/internal/common"
	"github.com/stretchr/testify/require"
)

func TestReconnectBase_NonDecreasingUpToCap(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 0; attempt < 20; attempt++ {
		d := reconnectBase(attempt)
		require.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		require.LessOrEqual(t, d, common.BackoffCap)
		prev = d
	}
	require.Equal(t, common.BackoffCap, reconnectBase(19), "large attempts pin at the cap")
}

func TestReconnectBase_FirstAttemptIsBase(t *testing.T) {
	require.Equal(t, common.BackoffBase, reconnectBase(0))
}

func TestReconnectDelay_JitterBounded(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := reconnectDelay(3)
		base := reconnectBase(3)
		require.GreaterOrEqual(t, d, base)
		require.Less(t, d, base+common.BackoffJitter)
	}
}
