// Package resilience provides the fault-handling primitives used around
// transport round trips.
//
// This package includes:
//   - Breaker: fails fast while a dependency keeps failing
//   - Limiter: paces calls with a token bucket
//
// Both are optional. The client enables each one only when its
// configuration section is present:
//
//	client, err := fetchbridge.New(fetchbridge.Config{
//	    Breaker:   &resilience.BreakerConfig{MaxFailures: 5},
//	    RateLimit: &resilience.LimiterConfig{Rate: 100, Burst: 20},
//	})
package resilience
