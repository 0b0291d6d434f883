package httpx

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// HealthChecker is anything with a Ping: the database pool, the Redis client
// and the event bus.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthChecks lists the dependencies checked by HealthHandler. A nil checker
// is a backend that is not configured (memory store or remap) and is reported
// as "disabled" without affecting the overall status.
type HealthChecks struct {
	Database HealthChecker
	Redis    HealthChecker
	EventBus HealthChecker
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	EventBus string `json:"event_bus"`
}

const healthTimeout = 2 * time.Second

// HealthHandler checks every configured dependency concurrently and answers
// 503 when any of them is unreachable.
func HealthHandler(checks HealthChecks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		var resp healthResponse
		var wg sync.WaitGroup
		for _, p := range []struct {
			checker HealthChecker
			out     *string
		}{
			{checks.Database, &resp.Database},
			{checks.Redis, &resp.Redis},
			{checks.EventBus, &resp.EventBus},
		} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				*p.out = checkOne(ctx, p.checker)
			}()
		}
		wg.Wait()

		resp.Status = "ok"
		status := http.StatusOK
		for _, s := range []string{resp.Database, resp.Redis, resp.EventBus} {
			if s == "unreachable" {
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
		JSON(w, status, resp)
	}
}

func checkOne(ctx context.Context, c HealthChecker) string {
	if c == nil {
		return "disabled"
	}
	if err := c.Ping(ctx); err != nil {
		return "unreachable"
	}
	return "ok"
}
