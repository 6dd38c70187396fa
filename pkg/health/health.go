// Package health runs dependency probes and aggregates them into a report.
package health

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/recall/pkg/storage"
)

// Status is the aggregate health of a service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultTimeout bounds each probe.
const DefaultTimeout = 3 * time.Second

// Check is the outcome of one probe.
type Check struct {
	Healthy   bool   `json:"healthy"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	LatencyMs int64  `json:"latency_ms"`
}

// Report is the aggregate of all checks.
type Report struct {
	Status Status           `json:"status"`
	Checks map[string]Check `json:"checks"`
}

// HTTPStatus maps the report onto a response code: 503 when unhealthy,
// 200 otherwise.
func (r *Report) HTTPStatus() int {
	if r.Status == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Probe checks one dependency. Check returns a short message on success.
type Probe struct {
	Name string

	// Critical probes make the report unhealthy when they fail.
	Critical bool

	Check func(ctx context.Context) (string, error)
}

// Checker runs probes concurrently.
type Checker struct {
	probes  []Probe
	timeout time.Duration
}

// NewChecker creates a Checker. A non-positive timeout selects DefaultTimeout.
func NewChecker(timeout time.Duration, probes ...Probe) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{probes: probes, timeout: timeout}
}

// Run executes every probe and aggregates the results. The report is
// unhealthy when a critical probe fails or when every probe fails, and
// degraded when any other probe fails.
func (c *Checker) Run(ctx context.Context) *Report {
	report := &Report{
		Status: StatusHealthy,
		Checks: make(map[string]Check, len(c.probes)),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	failed, criticalFailed := 0, false

	for _, p := range c.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			check := c.run(ctx, p)

			mu.Lock()
			defer mu.Unlock()
			report.Checks[p.Name] = check
			if !check.Healthy {
				failed++
				if p.Critical {
					criticalFailed = true
				}
			}
		}()
	}
	wg.Wait()

	switch {
	case criticalFailed || (failed > 0 && failed == len(c.probes)):
		report.Status = StatusUnhealthy
	case failed > 0:
		report.Status = StatusDegraded
	}
	return report
}

func (c *Checker) run(ctx context.Context, p Probe) Check {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	msg, err := p.Check(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return Check{Healthy: false, Status: string(StatusUnhealthy), Message: err.Error(), LatencyMs: latency}
	}
	return Check{Healthy: true, Status: string(StatusHealthy), Message: msg, LatencyMs: latency}
}

// BackendProbe checks that the inference backend answers at its root URL.
func BackendProbe(client *http.Client, upstream string) Probe {
	return Probe{
		Name: "backend",
		Check: func(ctx context.Context) (string, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(upstream, "/")+"/", nil)
			if err != nil {
				return "", err
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("backend unreachable: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return "", fmt.Errorf("backend returned %d", resp.StatusCode)
			}
			return "backend reachable at " + upstream, nil
		},
	}
}

// StoreProbe pings the entry store and reports its size.
func StoreProbe(store storage.Driver) Probe {
	return Probe{
		Name: "store",
		Check: func(ctx context.Context) (string, error) {
			if err := store.Ping(ctx); err != nil {
				return "", err
			}
			n, err := store.Count(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d entries", n), nil
		},
	}
}

// TemplatesProbe checks that the required template names are registered.
func TemplatesProbe(has func(name string) bool, required ...string) Probe {
	return Probe{
		Name: "templates",
		Check: func(context.Context) (string, error) {
			var missing []string
			for _, name := range required {
				if !has(name) {
					missing = append(missing, name)
				}
			}
			if len(missing) > 0 {
				return "", fmt.Errorf("missing templates: %s", strings.Join(missing, ", "))
			}
			return fmt.Sprintf("%d required templates registered", len(required)), nil
		},
	}
}

// StaticProbe always succeeds with msg.
func StaticProbe(name, msg string) Probe {
	return Probe{
		Name:  name,
		Check: func(context.Context) (string, error) { return msg, nil },
	}
}
