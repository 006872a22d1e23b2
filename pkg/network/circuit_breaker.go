// Package network streams simulation state over TCP. The server steps a world
// and broadcasts frames; clients receive them and send control commands.
// Client dials go through a circuit breaker so a dead server is not hammered.
package network

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/arda-guler/SloshTVC/pkg/config"
	"github.com/arda-guler/SloshTVC/pkg/logging"
)

// NetworkService wraps network operations with a circuit breaker and
// linear-backoff retries.
type NetworkService struct {
	breaker    *gobreaker.CircuitBreaker
	logger     *logging.Logger
	maxRetries int
	baseDelay  time.Duration
}

// NetworkOperation represents a function that performs a network operation.
// It should return an error if the operation fails.
type NetworkOperation func() error

// NewNetworkService creates a NetworkService with the breaker settings from
// envConfig. The breaker opens after CircuitBreakerMaxConsecutiveFails
// consecutive failures.
func NewNetworkService(envConfig *config.EnvironmentConfig, logger *logging.Logger) *NetworkService {
	if logger == nil {
		logger = logging.NewLogger()
	}
	logger = logger.WithComponent("network-service")

	maxFails := uint32(envConfig.CircuitBreakerMaxConsecutiveFails)
	settings := gobreaker.Settings{
		Name:        "sloshtvc-telemetry",
		MaxRequests: uint32(envConfig.CircuitBreakerMaxRequests),
		Interval:    envConfig.CircuitBreakerInterval,
		Timeout:     envConfig.CircuitBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &NetworkService{
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
		maxRetries: 3,
		baseDelay:  time.Second,
	}
}

// SetRetryPolicy changes the retry count and the base backoff delay
func (ns *NetworkService) SetRetryPolicy(maxRetries int, baseDelay time.Duration) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	ns.maxRetries = maxRetries
	ns.baseDelay = baseDelay
}

// Execute runs a network operation through the circuit breaker.
// If the circuit is open, it returns an error without calling operation.
func (ns *NetworkService) Execute(ctx context.Context, operation NetworkOperation) error {
	_, err := ns.breaker.Execute(func() (interface{}, error) {
		return nil, operation()
	})
	if err != nil {
		ns.logger.LogWithContext(ctx, slog.LevelDebug, "circuit breaker execution failed",
			"error", err,
			"state", ns.breaker.State().String(),
		)
		return fmt.Errorf("circuit breaker: %w", err)
	}
	return nil
}

// ExecuteWithRetry runs operation up to the configured number of attempts,
// waiting attempt·baseDelay between them. It stops early when the breaker
// opens or ctx ends.
func (ns *NetworkService) ExecuteWithRetry(ctx context.Context, operation NetworkOperation) error {
	var err error
	for attempt := 0; attempt < ns.maxRetries; attempt++ {
		if err = ns.Execute(ctx, operation); err == nil {
			return nil
		}

		if ns.breaker.State() == gobreaker.StateOpen {
			ns.logger.LogWithContext(ctx, slog.LevelWarn, "circuit breaker is open, skipping retries",
				"attempt", attempt+1,
				"max_retries", ns.maxRetries,
			)
			return err
		}

		if attempt == ns.maxRetries-1 {
			break
		}

		delay := time.Duration(attempt+1) * ns.baseDelay
		ns.logger.LogWithContext(ctx, slog.LevelWarn, "operation failed, retrying",
			"attempt", attempt+1,
			"max_retries", ns.maxRetries,
			"delay", delay,
			"error", err,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}

	ns.logger.LogWithContext(ctx, slog.LevelError, "all retry attempts failed",
		"attempts", ns.maxRetries,
		"final_error", err,
	)
	return fmt.Errorf("max retries (%d) exceeded: %w", ns.maxRetries, err)
}

// GetState returns the current state of the circuit breaker.
func (ns *NetworkService) GetState() gobreaker.State {
	return ns.breaker.State()
}

// GetCounts returns the current failure/success counts of the circuit breaker.
func (ns *NetworkService) GetCounts() gobreaker.Counts {
	return ns.breaker.Counts()
}
