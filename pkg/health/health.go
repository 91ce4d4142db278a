// Package health serves liveness and readiness endpoints.
//
// Each check runs in its own goroutine. A check flips to unhealthy after
// FailureThreshold consecutive failures and back after SuccessThreshold
// consecutive passes. Advisory checks are reported in the response body but
// never fail it.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Kind selects the endpoint a check belongs to.
type Kind int

const (
	// Liveness checks tell whether the process should be restarted.
	Liveness Kind = iota
	// Readiness checks tell whether the process should receive traffic.
	Readiness
)

// Check describes a registered check.
type Check struct {
	Name    string
	Kind    Kind
	Timeout time.Duration
	Func    CheckFunc
	// Advisory checks show up in the response body without affecting its status.
	Advisory bool
	// FailureThreshold defaults to 3, SuccessThreshold to 1.
	FailureThreshold int
	SuccessThreshold int
}

type check struct {
	Check

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	// Only touched by the single goroutine calling run.
	fails  int
	passes int
}

func (c *check) isHealthy() bool {
	return c.healthy.Load()
}

func (c *check) getLastError() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// run executes the check once. Must be called from a single goroutine.
func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	err := c.Func(ctx)
	c.lastErr.Store(&err)

	if err != nil {
		c.passes = 0
		c.fails++
		if c.fails >= c.FailureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.fails = 0
	c.passes++
	if c.passes >= c.SuccessThreshold {
		c.healthy.Store(true)
	}
}

// Health manages liveness and readiness checks for a service.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	checks []*check
	cancel context.CancelFunc
}

// New creates a Health in the not-ready state; call SetReady(true) once
// initialization is done.
func New() *Health {
	return &Health{}
}

// Add registers c. Checks start healthy until proven otherwise.
func (h *Health) Add(c Check) {
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	cc := &check{Check: c}
	cc.healthy.Store(true)

	h.mu.Lock()
	h.checks = append(h.checks, cc)
	h.mu.Unlock()
}

// Start runs every registered check at interval until Stop or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := append([]*check(nil), h.checks...)
	h.mu.Unlock()

	for _, c := range checks {
		go runCheck(ctx, c, interval)
	}
}

func runCheck(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.run(ctx)
		}
	}
}

// Stop cancels all background checks. It is safe to call Stop multiple times.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady sets the manual readiness flag, typically true after startup and
// false at the start of graceful shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every
// non-advisory readiness check passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, c := range h.snapshot(Readiness) {
		if !c.Advisory && !c.isHealthy() {
			return false
		}
	}
	return true
}

func (h *Health) snapshot(kind Kind) []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*check, 0, len(h.checks))
	for _, c := range h.checks {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeReport(w, newReport(h.snapshot(Liveness)))
}

// ReadyEndpoint serves /readyz. It fails while the service is not marked
// ready.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	rep := newReport(h.snapshot(Readiness))
	if !h.ready.Load() {
		rep.failed = true
		rep.results = append(rep.results, result{name: "_readiness", message: "service is not ready"})
	}
	writeReport(w, rep)
}

type result struct {
	name    string
	message string
}

type report struct {
	failed  bool
	results []result
}

// newReport lists every check that is unhealthy. Advisory checks are listed
// as soon as their last run failed.
func newReport(checks []*check) report {
	var rep report
	for _, c := range checks {
		err := c.getLastError()
		switch {
		case c.Advisory && err != nil:
			rep.results = append(rep.results, result{name: c.Name, message: "advisory: " + err.Error()})
		case !c.Advisory && !c.isHealthy():
			msg := "check is unhealthy"
			if err != nil {
				msg = err.Error()
			}
			rep.failed = true
			rep.results = append(rep.results, result{name: c.Name, message: msg})
		}
	}
	sort.Slice(rep.results, func(i, j int) bool { return rep.results[i].name < rep.results[j].name })
	return rep
}

// writeReport writes {"status": "ok"|"unhealthy", "checks": {...}}.
func writeReport(w http.ResponseWriter, rep report) {
	e := jx.Encoder{}
	e.ObjStart()
	e.FieldStart("status")
	status := http.StatusOK
	if rep.failed {
		e.Str("unhealthy")
		status = http.StatusServiceUnavailable
	} else {
		e.Str("ok")
	}
	if len(rep.results) > 0 {
		e.FieldStart("checks")
		e.ObjStart()
		for _, r := range rep.results {
			e.FieldStart(r.name)
			e.Str(r.message)
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
