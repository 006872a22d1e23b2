// Package validation checks simulation parameters and telemetry control
// messages before they reach the world.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/arda-guler/SloshTVC/pkg/physics"
)

// Message size and content limits
const (
	MaxMessageSize    = 64 * 1024 // 64KB max message
	MaxNameLen        = 32
	MaxMessagesPerMin = 600
	MaxStepsPerCmd    = 100000
	MaxForceMagnitude = 1e9
)

var validNameChars = regexp.MustCompile(`^[a-zA-Z0-9\-_.()]+$`)

// ErrRateLimited is returned for messages over a client's budget
var ErrRateLimited = errors.New("rate limit exceeded")

// MessageValidator checks the control messages of telemetry clients
type MessageValidator struct {
	limiter *RateLimiter
}

// NewMessageValidator allows each client MaxMessagesPerMin messages a minute
func NewMessageValidator() *MessageValidator {
	return NewMessageValidatorWithLimiter(NewRateLimiter(MaxMessagesPerMin, time.Minute))
}

// NewMessageValidatorWithLimiter validates with a caller-supplied budget
func NewMessageValidatorWithLimiter(limiter *RateLimiter) *MessageValidator {
	return &MessageValidator{limiter: limiter}
}

// Forget releases the budget of a client that disconnected
func (v *MessageValidator) Forget(clientID uint64) {
	v.limiter.Forget(clientID)
}

// ValidateMessage checks the size and JSON shape of data, then charges it to
// clientID's budget. Malformed messages are not charged.
func (v *MessageValidator) ValidateMessage(data []byte, clientID uint64) error {
	if len(data) > MaxMessageSize {
		return fmt.Errorf("message too large: %d bytes (max %d)", len(data), MaxMessageSize)
	}

	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON format")
	}

	if !v.limiter.Allow(clientID) {
		return fmt.Errorf("%w: retry in %s", ErrRateLimited, v.limiter.Wait(clientID).Round(time.Millisecond))
	}

	return nil
}

// ValidateName validates and trims an entity name. Names end up in logs,
// CSV headers and HUD text so they are restricted to a plain character set.
func ValidateName(name string) (string, error) {
	if !utf8.ValidString(name) {
		return "", invalid("name contains invalid UTF-8 characters")
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", invalid("name cannot be empty")
	}
	if len(trimmed) > MaxNameLen {
		return "", invalid("name too long: %d characters (max %d)", len(trimmed), MaxNameLen)
	}

	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", invalid("name contains control characters")
		}
	}

	if !validNameChars.MatchString(trimmed) {
		return "", invalid("name %q contains invalid characters (only alphanumeric, hyphens, underscores, dots and parentheses allowed)", trimmed)
	}

	return trimmed, nil
}

// ValidateFinite rejects NaN and infinite values
func ValidateFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid("%s must be finite, got %g", field, v)
	}
	return nil
}

// ValidateVector rejects vectors with a NaN or infinite component
func ValidateVector(field string, v physics.Vector2D) error {
	if !v.IsFinite() {
		return invalid("%s must be finite, got %v", field, v)
	}
	return nil
}

// ValidateMass requires a finite, strictly positive mass
func ValidateMass(mass float64) error {
	if err := ValidateFinite("mass", mass); err != nil {
		return err
	}
	if mass <= 0 {
		return invalid("mass must be positive, got %g", mass)
	}
	return nil
}

// ValidateSpring requires a finite, strictly positive spring constant
func ValidateSpring(k float64) error {
	if err := ValidateFinite("spring constant", k); err != nil {
		return err
	}
	if k <= 0 {
		return invalid("spring constant must be positive, got %g", k)
	}
	return nil
}

// ValidateDamping requires a finite, non-negative damping coefficient
func ValidateDamping(b float64) error {
	if err := ValidateFinite("damping", b); err != nil {
		return err
	}
	if b < 0 {
		return invalid("damping cannot be negative, got %g", b)
	}
	return nil
}

// ValidateTimeStep accepts zero (paused) or a positive step no larger than 0.1s
func ValidateTimeStep(dt float64) error {
	if err := ValidateFinite("time step", dt); err != nil {
		return err
	}
	if dt < 0 || dt > 0.1 {
		return invalid("time step must be in [0, 0.1], got %g", dt)
	}
	return nil
}

// ValidateForce bounds an externally injected force
func ValidateForce(f physics.Vector2D) error {
	if err := ValidateVector("force", f); err != nil {
		return err
	}
	if f.Length() > MaxForceMagnitude {
		return invalid("force magnitude %g exceeds %g", f.Length(), float64(MaxForceMagnitude))
	}
	return nil
}

// ValidateStepCount bounds how many ticks a single control message may request
func ValidateStepCount(n int) error {
	if n < 1 || n > MaxStepsPerCmd {
		return invalid("step count must be between 1 and %d, got %d", MaxStepsPerCmd, n)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), physics.ErrInvalidParameter)
}
