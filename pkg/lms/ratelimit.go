package lms

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Rate limit headers sent with every Valence response.
const (
	HeaderRateLimitRemaining = "X-Rate-Limit-Remaining"
	HeaderRequestCost        = "X-Request-Cost"
	HeaderRateLimitReset     = "X-Rate-Limit-Reset"
)

// defaultRemainingFloor applies when the server omits the request cost.
const defaultRemainingFloor = 10

// RateLimit captures the credit window reported by a response. Has* fields are false when the
// header was absent or unparseable.
type RateLimit struct {
	Remaining    float64
	HasRemaining bool
	Cost         float64
	HasCost      bool
	Reset        time.Duration
}

// ParseRateLimit reads the rate limit headers off h.
func ParseRateLimit(h http.Header) RateLimit {
	var rl RateLimit
	rl.Remaining, rl.HasRemaining = headerNumber(h, HeaderRateLimitRemaining)
	rl.Cost, rl.HasCost = headerNumber(h, HeaderRequestCost)
	if reset, ok := headerNumber(h, HeaderRateLimitReset); ok && reset > 0 {
		rl.Reset = time.Duration(reset * float64(time.Second))
	}
	return rl
}

// Backoff returns how long to pause before the next call: the reset window when the remaining
// credit is below three request costs (or ten when the cost is unknown), zero otherwise.
func (r RateLimit) Backoff() time.Duration {
	if !r.HasRemaining {
		return 0
	}
	floor := float64(defaultRemainingFloor)
	if r.HasCost {
		floor = 3 * r.Cost
	}
	if r.Remaining < floor {
		return r.Reset
	}
	return 0
}

func headerNumber(h http.Header, key string) (float64, bool) {
	raw := strings.TrimSpace(h.Get(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
