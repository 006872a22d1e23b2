package validation

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arda-guler/SloshTVC/pkg/physics"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        string
		wantErr     bool
		errContains string
	}{
		{name: "valid simple name", input: "p00", want: "p00"},
		{name: "valid name with hyphen", input: "tip-1", want: "tip-1"},
		{name: "valid name with underscore", input: "pl_11", want: "pl_11"},
		{name: "valid name with parentheses", input: "adapter(1)", want: "adapter(1)"},
		{name: "leading and trailing spaces", input: "  p15  ", want: "p15"},
		{name: "empty name", input: "", wantErr: true, errContains: "cannot be empty"},
		{name: "only whitespace", input: "   ", wantErr: true, errContains: "cannot be empty"},
		{name: "too long", input: strings.Repeat("a", MaxNameLen+1), wantErr: true, errContains: "too long"},
		{name: "control characters", input: "p\x0100", wantErr: true, errContains: "control characters"},
		{name: "inner space", input: "point one", wantErr: true, errContains: "invalid characters"},
		{name: "markup", input: "<b>p</b>", wantErr: true, errContains: "invalid characters"},
		{name: "invalid utf8", input: "p\xff", wantErr: true, errContains: "UTF-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, physics.ErrInvalidParameter) {
					t.Errorf("error %v does not wrap ErrInvalidParameter", err)
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("ValidateName() error = %v, should contain %q", err, tt.errContains)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ValidateName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParameterValidators(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"mass_positive", ValidateMass(35.7), false},
		{"mass_zero", ValidateMass(0), true},
		{"mass_negative", ValidateMass(-1), true},
		{"mass_nan", ValidateMass(math.NaN()), true},
		{"spring_positive", ValidateSpring(15e6), false},
		{"spring_zero", ValidateSpring(0), true},
		{"spring_inf", ValidateSpring(math.Inf(1)), true},
		{"damping_zero", ValidateDamping(0), false},
		{"damping_positive", ValidateDamping(50), false},
		{"damping_negative", ValidateDamping(-1e-4), true},
		{"step_paused", ValidateTimeStep(0), false},
		{"step_default", ValidateTimeStep(0.001), false},
		{"step_negative", ValidateTimeStep(-0.001), true},
		{"step_huge", ValidateTimeStep(1), true},
		{"finite", ValidateFinite("x", 1), false},
		{"infinite", ValidateFinite("x", math.Inf(-1)), true},
		{"vector_nan", ValidateVector("pos", physics.Vector2D{Y: math.NaN()}), true},
		{"force_ok", ValidateForce(physics.Vector2D{X: 10, Y: -5}), false},
		{"force_huge", ValidateForce(physics.Vector2D{X: 1e10}), true},
		{"steps_one", ValidateStepCount(1), false},
		{"steps_zero", ValidateStepCount(0), true},
		{"steps_too_many", ValidateStepCount(MaxStepsPerCmd + 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", tt.err, tt.wantErr)
			}
			if tt.err != nil && !errors.Is(tt.err, physics.ErrInvalidParameter) {
				t.Errorf("error %v does not wrap ErrInvalidParameter", tt.err)
			}
		})
	}
}

func TestMessageValidator_ValidateMessage(t *testing.T) {
	validator := NewMessageValidator()

	tests := []struct {
		name        string
		data        []byte
		wantErr     bool
		errContains string
	}{
		{name: "step command", data: []byte(`{"seq":1,"op":"step","ticks":10}`)},
		{name: "ping timestamp", data: []byte(`"2026-10-19T10:00:00Z"`)},
		{name: "too large message", data: make([]byte, MaxMessageSize+1), wantErr: true, errContains: "too large"},
		{name: "invalid JSON", data: []byte(`{"op": pause`), wantErr: true, errContains: "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateMessage(tt.data, 1)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil && tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("ValidateMessage() error = %v, should contain %q", err, tt.errContains)
			}
		})
	}
}

// fakeClock is a settable time source for rate limiter tests
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(burst int, window time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(burst, window)
	rl.now = clock.now
	return rl, clock
}

func TestMessageValidator_RateLimitPerClient(t *testing.T) {
	rl, clock := newTestLimiter(3, time.Second)
	validator := NewMessageValidatorWithLimiter(rl)
	step := []byte(`{"seq":1,"op":"step"}`)

	for i := 0; i < 3; i++ {
		if err := validator.ValidateMessage(step, 7); err != nil {
			t.Fatalf("command %d: %v", i+1, err)
		}
	}
	err := validator.ValidateMessage(step, 7)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("fourth command error = %v, want ErrRateLimited", err)
	}
	if !strings.Contains(err.Error(), "retry in 333ms") {
		t.Errorf("error %q should say when to retry", err)
	}

	if err := validator.ValidateMessage(step, 8); err != nil {
		t.Errorf("another client should have its own budget: %v", err)
	}
	if err := validator.ValidateMessage([]byte(`{`), 7); err == nil || errors.Is(err, ErrRateLimited) {
		t.Errorf("malformed message error = %v, want a format error", err)
	}

	clock.advance(334 * time.Millisecond)
	if err := validator.ValidateMessage(step, 7); err != nil {
		t.Errorf("after a third of the window one command should pass: %v", err)
	}
}

func TestRateLimiter_Burst(t *testing.T) {
	rl, _ := newTestLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		if !rl.Allow(1) {
			t.Errorf("message %d should be allowed", i+1)
		}
	}
	if rl.Allow(1) {
		t.Error("sixth message should be denied")
	}
	if !rl.Allow(2) {
		t.Error("a different client should be allowed")
	}
}

func TestRateLimiter_ContinuousRefill(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		allowed int
	}{
		{"no time passed", 0, 0},
		{"half a token", 500 * time.Millisecond, 0},
		{"one token", time.Second, 1},
		{"two and a half tokens", 2500 * time.Millisecond, 2},
		{"refill caps at burst", time.Hour, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// one token a second
			rl, clock := newTestLimiter(4, 4*time.Second)
			for rl.Allow(1) {
			}
			clock.advance(tt.elapsed)

			got := 0
			for rl.Allow(1) {
				got++
			}
			if got != tt.allowed {
				t.Errorf("allowed %d after %s, want %d", got, tt.elapsed, tt.allowed)
			}
		})
	}
}

func TestRateLimiter_Wait(t *testing.T) {
	rl, clock := newTestLimiter(2, time.Second)

	if w := rl.Wait(1); w != 0 {
		t.Errorf("Wait() on a fresh client = %s, want 0", w)
	}
	rl.Allow(1)
	rl.Allow(1)
	if w := rl.Wait(1); w != 500*time.Millisecond {
		t.Errorf("Wait() on an empty bucket = %s, want 500ms", w)
	}
	clock.advance(250 * time.Millisecond)
	if w := rl.Wait(1); w != 250*time.Millisecond {
		t.Errorf("Wait() after 250ms = %s, want 250ms", w)
	}
}

func TestRateLimiter_ForgetResetsBucket(t *testing.T) {
	rl, _ := newTestLimiter(1, time.Minute)

	rl.Allow(3)
	if rl.Allow(3) {
		t.Fatal("second message should be denied")
	}

	rl.Forget(3)
	if rl.Clients() != 0 {
		t.Errorf("Clients() = %d after Forget", rl.Clients())
	}
	if !rl.Allow(3) {
		t.Error("a forgotten client should start with a full bucket")
	}
}

func TestRateLimiter_ConcurrentClients(t *testing.T) {
	rl := NewRateLimiter(10, time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow(42) {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 10 {
		t.Errorf("allowed %d messages, want exactly 10 from one bucket", allowed)
	}
	if rl.Clients() != 1 {
		t.Errorf("Clients() = %d, want 1", rl.Clients())
	}
}
