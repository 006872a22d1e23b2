// Package resource supervises the long-running goroutines of the telemetry
// services and keeps an eye on process memory.
package resource

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arda-guler/SloshTVC/pkg/config"
	"github.com/arda-guler/SloshTVC/pkg/logging"
)

// ErrLimitExceeded is returned when a task would exceed the goroutine limit
var ErrLimitExceeded = errors.New("goroutine limit exceeded")

// ErrStopped is returned when a task is started after Shutdown
var ErrStopped = errors.New("supervisor stopped")

// Supervisor tracks named goroutines. Every task receives a context that is
// cancelled by Shutdown, and Shutdown waits for all of them to return.
type Supervisor struct {
	maxMemoryMB     int64
	maxGoroutines   int64
	shutdownTimeout time.Duration
	checkInterval   time.Duration

	active    int64
	memoryMB  int64
	panics    int64
	lastCheck atomic.Value // time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	tasks      map[string]int
	monitoring bool
	stopped    bool
	done       chan struct{}

	logger *logging.Logger
}

// NewSupervisor creates a supervisor with the limits from cfg. A nil logger
// gets the default JSON logger.
func NewSupervisor(cfg *config.EnvironmentConfig, logger *logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NewLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		maxMemoryMB:     cfg.MaxMemoryMB,
		maxGoroutines:   int64(cfg.MaxGoroutines),
		shutdownTimeout: cfg.ShutdownTimeout,
		checkInterval:   cfg.ResourceCheckInterval,
		ctx:             ctx,
		cancel:          cancel,
		tasks:           make(map[string]int),
		done:            make(chan struct{}),
		logger:          logger.WithComponent("resource"),
	}
	s.lastCheck.Store(time.Time{})
	return s
}

// Start begins the periodic memory check
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.monitoring {
		return fmt.Errorf("supervisor already monitoring")
	}
	s.monitoring = true

	go s.monitor()

	s.logger.Info(s.ctx, "Resource supervisor started",
		"max_memory_mb", s.maxMemoryMB,
		"max_goroutines", s.maxGoroutines,
		"check_interval", s.checkInterval,
	)
	return nil
}

// StartGoroutine runs fn in a tracked goroutine. The context passed to fn is
// cancelled when Shutdown begins. A panic in fn is logged and counted.
func (s *Supervisor) StartGoroutine(name string, fn func(ctx context.Context)) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.maxGoroutines > 0 && atomic.LoadInt64(&s.active) >= s.maxGoroutines {
		s.mu.Unlock()
		s.logger.Warn(s.ctx, "Goroutine limit reached", "name", name, "limit", s.maxGoroutines)
		return fmt.Errorf("%s: %w (%d)", name, ErrLimitExceeded, s.maxGoroutines)
	}
	atomic.AddInt64(&s.active, 1)
	s.tasks[name]++
	s.wg.Add(1)
	s.mu.Unlock()

	ctx := logging.WithFields(s.ctx, "task", name)
	go func() {
		defer s.finish(name)
		defer func() {
			if r := recover(); r != nil {
				atomic.AddInt64(&s.panics, 1)
				s.logger.Error(ctx, "Supervised goroutine panicked", fmt.Errorf("panic: %v", r))
			}
		}()
		fn(ctx)
	}()
	return nil
}

func (s *Supervisor) finish(name string) {
	s.mu.Lock()
	if s.tasks[name] <= 1 {
		delete(s.tasks, name)
	} else {
		s.tasks[name]--
	}
	s.mu.Unlock()
	atomic.AddInt64(&s.active, -1)
	s.wg.Done()
}

// Context is cancelled when Shutdown begins
func (s *Supervisor) Context() context.Context {
	return s.ctx
}

// Tasks returns the names of running goroutines, sorted
func (s *Supervisor) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckMemoryUsage samples the heap and compares it to the limit
func (s *Supervisor) CheckMemoryUsage() error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	current := int64(m.Alloc / 1024 / 1024)
	atomic.StoreInt64(&s.memoryMB, current)
	s.lastCheck.Store(time.Now())

	if s.maxMemoryMB > 0 && current > s.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", current, s.maxMemoryMB)
	}
	return nil
}

// MemoryUsageMB returns the last sampled heap size
func (s *Supervisor) MemoryUsageMB() int64 {
	return atomic.LoadInt64(&s.memoryMB)
}

// Stats contains resource usage statistics
type Stats struct {
	Goroutines    int64     `json:"goroutines"`
	MaxGoroutines int64     `json:"max_goroutines"`
	MemoryUsageMB int64     `json:"memory_usage_mb"`
	MaxMemoryMB   int64     `json:"max_memory_mb"`
	Panics        int64     `json:"panics"`
	LastCheck     time.Time `json:"last_check"`
	Tasks         []string  `json:"tasks"`
}

// Stats returns a snapshot of the supervisor's counters
func (s *Supervisor) Stats() Stats {
	last, _ := s.lastCheck.Load().(time.Time)
	return Stats{
		Goroutines:    atomic.LoadInt64(&s.active),
		MaxGoroutines: s.maxGoroutines,
		MemoryUsageMB: s.MemoryUsageMB(),
		MaxMemoryMB:   s.maxMemoryMB,
		Panics:        atomic.LoadInt64(&s.panics),
		LastCheck:     last,
		Tasks:         s.Tasks(),
	}
}

// Shutdown cancels every task and waits for them up to the configured
// shutdown timeout or until ctx ends, whichever comes first.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	monitoring := s.monitoring
	s.mu.Unlock()

	s.logger.Info(ctx, "Shutting down resource supervisor", "tasks", s.Tasks())
	s.cancel()

	if s.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}

	if monitoring {
		select {
		case <-s.done:
		case <-ctx.Done():
		}
	}

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		s.logger.Info(ctx, "All supervised goroutines finished")
		return nil
	case <-ctx.Done():
		remaining := atomic.LoadInt64(&s.active)
		s.logger.Warn(ctx, "Shutdown timed out", "remaining", remaining, "tasks", s.Tasks())
		return fmt.Errorf("shutdown timeout: %d goroutines still running", remaining)
	}
}

func (s *Supervisor) monitor() {
	defer close(s.done)

	interval := s.checkInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.CheckMemoryUsage(); err != nil {
				s.logger.Error(s.ctx, "Memory limit exceeded", err)
			}
			s.logger.Debug(s.ctx, "Resource usage",
				"goroutines", atomic.LoadInt64(&s.active),
				"memory_mb", s.MemoryUsageMB(),
			)
		case <-s.ctx.Done():
			return
		}
	}
}
