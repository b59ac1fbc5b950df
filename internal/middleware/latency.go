package middleware

import (
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/akmatori/opsconsole/internal/api"
)

// Latency delays every request by a uniformly random duration in [min, max]
// before dispatching it. A zero max disables the delay. A request cancelled
// while waiting is answered with 503 and never dispatched.
func Latency(min, max time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if max <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			timer := time.NewTimer(randomBetween(min, max))
			defer timer.Stop()

			select {
			case <-timer.C:
				next.ServeHTTP(w, r)
			case <-r.Context().Done():
				api.RespondStatus(w, http.StatusServiceUnavailable, "request cancelled")
			}
		})
	}
}

func randomBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min+1)
}
