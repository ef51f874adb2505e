package lms

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitBackoff(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    time.Duration
	}{
		{name: "no headers", headers: nil, want: 0},
		{name: "plenty remaining", headers: map[string]string{HeaderRateLimitRemaining: "100", HeaderRequestCost: "5", HeaderRateLimitReset: "4"}, want: 0},
		{name: "below three costs", headers: map[string]string{HeaderRateLimitRemaining: "14", HeaderRequestCost: "5", HeaderRateLimitReset: "4"}, want: 4 * time.Second},
		{name: "exactly three costs", headers: map[string]string{HeaderRateLimitRemaining: "15", HeaderRequestCost: "5", HeaderRateLimitReset: "4"}, want: 0},
		{name: "floor without cost", headers: map[string]string{HeaderRateLimitRemaining: "9", HeaderRateLimitReset: "2"}, want: 2 * time.Second},
		{name: "at floor without cost", headers: map[string]string{HeaderRateLimitRemaining: "10", HeaderRateLimitReset: "2"}, want: 0},
		{name: "low but no reset", headers: map[string]string{HeaderRateLimitRemaining: "1"}, want: 0},
		{name: "garbage remaining", headers: map[string]string{HeaderRateLimitRemaining: "lots", HeaderRateLimitReset: "2"}, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tc.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tc.want, ParseRateLimit(h).Backoff())
		})
	}
}
