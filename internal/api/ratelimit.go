package api

import (
	"log/slog"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerMinute throttles calls to a single IRIDA server
const DefaultRequestsPerMinute = 120

// newLimiter converts a requests-per-minute budget into a token bucket
func newLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	rps := float64(requestsPerMinute) / 60.0
	burst := max(5, requestsPerMinute/5) // Allow 20% burst capacity
	slog.Debug("Created rate limiter",
		"rpm", requestsPerMinute,
		"rps", rps,
		"burst", burst)
	return rate.NewLimiter(rate.Limit(rps), burst)
}
