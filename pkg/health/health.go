// Package health exposes liveness and readiness probes for a simulator
// serving telemetry.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Probe paths served by Handler
const (
	LivenessPath  = "/health"
	ReadinessPath = "/ready"
)

// HealthCheck defines the interface for individual health checks.
type HealthCheck interface {
	// Name returns the unique name of this health check
	Name() string
	// Check performs the health check and returns an error if unhealthy
	Check(ctx context.Context) error
}

// HealthStatus represents the overall health status of the application.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents the health status of an individual component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker runs registered checks
type HealthChecker struct {
	checks  map[string]HealthCheck
	mu      sync.RWMutex
	timeout time.Duration
}

// NewHealthChecker creates a new health checker instance.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:  make(map[string]HealthCheck),
		timeout: 5 * time.Second,
	}
}

// AddCheck registers a check, replacing any with the same name.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a health check by name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// Names returns the registered check names in sorted order
func (hc *HealthChecker) Names() []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckHealth runs every check. The overall status is "healthy" only if all
// of them pass.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: "healthy",
		Checks: make(map[string]ComponentHealth, len(hc.checks)),
	}

	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = ComponentHealth{Status: "unhealthy", Message: err.Error()}
			continue
		}
		status.Checks[name] = ComponentHealth{Status: "healthy"}
	}

	return status
}

// LivenessHandler returns 200 while the process can answer requests.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// ReadinessHandler runs all checks and answers 200 or 503 with the details.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), hc.timeout)
	defer cancel()

	health := hc.CheckHealth(ctx)

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}

// Handler serves both probes
func (hc *HealthChecker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(LivenessPath, hc.LivenessHandler)
	mux.HandleFunc(ReadinessPath, hc.ReadinessHandler)
	return mux
}

// SimulationProbe is the part of a world a SimulationHealthCheck reads
type SimulationProbe interface {
	Healthy() bool
	Running() bool
	Tick() uint64
}

// SimulationHealthCheck fails when any point state is non-finite, or when the
// world is running but its tick counter has not moved for stallAfter.
type SimulationHealthCheck struct {
	probe      SimulationProbe
	stallAfter time.Duration
	now        func() time.Time

	mu         sync.Mutex
	lastTick   uint64
	lastChange time.Time
}

// NewSimulationHealthCheck creates a health check for a world
func NewSimulationHealthCheck(probe SimulationProbe, stallAfter time.Duration) *SimulationHealthCheck {
	return &SimulationHealthCheck{
		probe:      probe,
		stallAfter: stallAfter,
		now:        time.Now,
		lastTick:   probe.Tick(),
		lastChange: time.Now(),
	}
}

// Name returns the name of this health check.
func (s *SimulationHealthCheck) Name() string {
	return "simulation"
}

// Check verifies the world state is finite and the clock is advancing.
func (s *SimulationHealthCheck) Check(ctx context.Context) error {
	if !s.probe.Healthy() {
		return fmt.Errorf("simulation state is not finite")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	tick := s.probe.Tick()
	if tick != s.lastTick {
		s.lastTick = tick
		s.lastChange = now
		return nil
	}
	if s.probe.Running() && s.stallAfter > 0 && now.Sub(s.lastChange) > s.stallAfter {
		return fmt.Errorf("simulation stalled at tick %d for %v", tick, now.Sub(s.lastChange).Round(time.Millisecond))
	}
	return nil
}

// NetworkHealthCheck implements HealthCheck for the telemetry listener.
type NetworkHealthCheck struct {
	listenerAddr func() string
}

// NewNetworkHealthCheck creates a health check for network connectivity.
func NewNetworkHealthCheck(listenerAddr func() string) *NetworkHealthCheck {
	return &NetworkHealthCheck{
		listenerAddr: listenerAddr,
	}
}

// Name returns the name of this health check.
func (n *NetworkHealthCheck) Name() string {
	return "network"
}

// Check verifies that the network listener is active.
func (n *NetworkHealthCheck) Check(ctx context.Context) error {
	if n.listenerAddr() == "" {
		return fmt.Errorf("telemetry listener is not active")
	}
	return nil
}

// MemoryHealthCheck implements HealthCheck for memory usage monitoring.
type MemoryHealthCheck struct {
	maxMemoryMB    int64
	getMemoryUsage func() int64
}

// NewMemoryHealthCheck creates a health check for memory usage.
func NewMemoryHealthCheck(maxMemoryMB int64, getMemoryUsage func() int64) *MemoryHealthCheck {
	return &MemoryHealthCheck{
		maxMemoryMB:    maxMemoryMB,
		getMemoryUsage: getMemoryUsage,
	}
}

// Name returns the name of this health check.
func (m *MemoryHealthCheck) Name() string {
	return "memory"
}

// Check verifies that memory usage is within acceptable limits.
func (m *MemoryHealthCheck) Check(ctx context.Context) error {
	currentMB := m.getMemoryUsage()
	if currentMB > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.maxMemoryMB)
	}
	return nil
}
