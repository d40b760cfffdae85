// Package health provides the health endpoint for the import worker.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component is operational but with issues.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy Status = "unhealthy"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// Version is the worker version, set at build time using ldflags.
var Version = "dev"

// FrontendChecker is a function that checks frontend connectivity.
type FrontendChecker func(ctx context.Context) error

// PollClock reports when the worker loop last polled the queue.
type PollClock func() time.Time

// Checker performs health checks for the import worker.
type Checker struct {
	frontendChecker FrontendChecker
	pollClock       PollClock
	pollStale       time.Duration
	startTime       time.Time
	timeout         time.Duration
	mu              sync.RWMutex
}

// NewChecker creates a worker health checker. pollStale is how long the loop
// may go without polling before it counts as degraded.
func NewChecker(fe FrontendChecker, poll PollClock, pollStale time.Duration) *Checker {
	return &Checker{
		frontendChecker: fe,
		pollClock:       poll,
		pollStale:       pollStale,
		startTime:       time.Now(),
		timeout:         5 * time.Second,
	}
}

// SetTimeout sets the timeout for health checks.
func (c *Checker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Check performs all health checks and returns the aggregated response.
func (c *Checker) Check(ctx context.Context) *Response {
	c.mu.RLock()
	timeout := c.timeout
	c.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	components := make(map[string]ComponentStatus)
	components["frontend"] = c.checkFrontend(checkCtx)
	components["poll_loop"] = c.checkPollLoop()

	overallStatus := StatusHealthy
	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			break
		}
		if comp.Status == StatusDegraded {
			overallStatus = StatusDegraded
		}
	}

	return &Response{
		Status:     overallStatus,
		Components: components,
		Version:    Version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
	}
}

// checkFrontend verifies frontend queue connectivity.
func (c *Checker) checkFrontend(ctx context.Context) ComponentStatus {
	if c.frontendChecker == nil {
		return ComponentStatus{
			Status:  StatusUnhealthy,
			Message: "frontend checker not configured",
		}
	}

	if err := c.frontendChecker(ctx); err != nil {
		return ComponentStatus{
			Status:  StatusUnhealthy,
			Message: "frontend check failed: " + err.Error(),
		}
	}

	return ComponentStatus{
		Status:  StatusHealthy,
		Message: "connected",
	}
}

// checkPollLoop verifies the worker loop polled recently. A long-running
// build legitimately delays polling, so staleness only degrades.
func (c *Checker) checkPollLoop() ComponentStatus {
	if c.pollClock == nil {
		return ComponentStatus{
			Status:  StatusUnhealthy,
			Message: "poll clock not configured",
		}
	}

	last := c.pollClock()
	if last.IsZero() {
		return ComponentStatus{
			Status:  StatusDegraded,
			Message: "no poll yet",
		}
	}

	if age := time.Since(last); age > c.pollStale {
		return ComponentStatus{
			Status:  StatusDegraded,
			Message: "last poll " + age.Round(time.Second).String() + " ago",
		}
	}

	return ComponentStatus{Status: StatusHealthy}
}

// Handler returns an HTTP handler for health checks.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")

		switch response.Status {
		case StatusHealthy, StatusDegraded:
			w.WriteHeader(http.StatusOK)
		case StatusUnhealthy:
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(response)
	}
}
