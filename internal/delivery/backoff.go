package delivery

import (
	"math/rand"
	"strconv"
	"time"
)

// backoffDelay returns the wait before the next attempt: exponential
// from base, capped at max, with ±10% jitter. Delays are deliberately
// short because the retry loop holds the inbound request handler
// open; the total blocking bound is attempts × (timeout + max delay).
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		return 0
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}
	if delay > max {
		delay = max
	}

	jitterRange := int64(delay / 5)
	if jitterRange > 0 {
		delay += time.Duration(rand.Int63n(jitterRange)) - delay/10
	}
	return delay
}

// ParseRetryAfter parses a Retry-After header value given in seconds.
// HTTP-date values are not handled and report false.
func ParseRetryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}

	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
