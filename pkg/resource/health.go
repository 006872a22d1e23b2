// pkg/resource/health.go
package resource

import (
	"context"
	"fmt"
)

// HealthCheck reports the supervisor unhealthy when memory is over its limit,
// when goroutines pass 80% of theirs, or when any task has panicked.
type HealthCheck struct {
	supervisor *Supervisor
}

// NewHealthCheck creates a health check for s
func NewHealthCheck(s *Supervisor) *HealthCheck {
	return &HealthCheck{supervisor: s}
}

// Name returns the name of this health check.
func (h *HealthCheck) Name() string {
	return "resource"
}

// Check verifies that resource usage is within acceptable limits.
func (h *HealthCheck) Check(ctx context.Context) error {
	stats := h.supervisor.Stats()

	if stats.MaxMemoryMB > 0 && stats.MemoryUsageMB > stats.MaxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB",
			stats.MemoryUsageMB, stats.MaxMemoryMB)
	}

	threshold := stats.MaxGoroutines * 8 / 10
	if stats.MaxGoroutines > 0 && stats.Goroutines > threshold {
		return fmt.Errorf("goroutine count %d exceeds 80%% threshold (%d/%d)",
			stats.Goroutines, threshold, stats.MaxGoroutines)
	}

	if stats.Panics > 0 {
		return fmt.Errorf("%d supervised goroutines panicked", stats.Panics)
	}
	return nil
}
