package realtime

import (
	"math/rand"
	"time"

	"github.com/avolkov/lanferry/internal/common"
)

// reconnectBase is the deterministic part of the reconnect delay:
// min(cap, base * 2^attempt).
func reconnectBase(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := common.BackoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= common.BackoffCap {
			return common.BackoffCap
		}
	}
	if d > common.BackoffCap {
		return common.BackoffCap
	}
	return d
}

// reconnectDelay adds random jitter so a burst of clients does not
// stampede the coordinator on the same schedule.
func reconnectDelay(attempt int) time.Duration {
	return reconnectBase(attempt) + time.Duration(rand.Int63n(int64(common.BackoffJitter)))
}
