package guard

import (
	"strconv"
	"time"
)

// FreshnessResult classifies a message timestamp against the replay window.
type FreshnessResult int

const (
	FreshnessOK FreshnessResult = iota
	FreshnessExpired
	FreshnessMalformed
)

// DefaultFreshnessWindow bounds replay exposure without persisted nonce
// tracking. Five minutes matches the vendor contract.
const DefaultFreshnessWindow = 300 * time.Second

// CheckFreshness rejects timestamps outside the window. The boundary is
// inclusive: a message exactly window old is still fresh, one second past
// is expired. Clock skew is indistinguishable from replay and rejected the
// same way.
func CheckFreshness(timestamp string, now time.Time, window time.Duration) FreshnessResult {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return FreshnessMalformed
	}

	diff := now.Unix() - ts
	if diff < 0 {
		diff = -diff
	}
	if diff > int64(window.Seconds()) {
		return FreshnessExpired
	}
	return FreshnessOK
}
