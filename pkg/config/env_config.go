// pkg/config/env_config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variable names. Every variable is optional.
const (
	EnvServerAddr     = "SLOSHTVC_SERVER_ADDR"
	EnvServerPort     = "SLOSHTVC_SERVER_PORT"
	EnvHealthPort     = "SLOSHTVC_HEALTH_PORT"
	EnvMaxClients     = "SLOSHTVC_MAX_CLIENTS"
	EnvReadTimeout    = "SLOSHTVC_READ_TIMEOUT"
	EnvWriteTimeout   = "SLOSHTVC_WRITE_TIMEOUT"
	EnvFrameRate      = "SLOSHTVC_FRAME_RATE"
	EnvStepsPerFrame  = "SLOSHTVC_STEPS_PER_FRAME"
	EnvTimeStep       = "SLOSHTVC_TIME_STEP"
	EnvGravity        = "SLOSHTVC_GRAVITY"
	EnvDrag           = "SLOSHTVC_DRAG"
	EnvGroundHeight   = "SLOSHTVC_GROUND_HEIGHT"
	EnvStartPaused    = "SLOSHTVC_START_PAUSED"
	EnvCBMaxRequests  = "SLOSHTVC_CB_MAX_REQUESTS"
	EnvCBInterval     = "SLOSHTVC_CB_INTERVAL"
	EnvCBTimeout      = "SLOSHTVC_CB_TIMEOUT"
	EnvCBMaxFails     = "SLOSHTVC_CB_MAX_CONSECUTIVE_FAILS"
	EnvMaxMemoryMB    = "SLOSHTVC_MAX_MEMORY_MB"
	EnvMaxGoroutines  = "SLOSHTVC_MAX_GOROUTINES"
	EnvShutdownTimout = "SLOSHTVC_SHUTDOWN_TIMEOUT"
	EnvResourceCheck  = "SLOSHTVC_RESOURCE_CHECK_INTERVAL"
)

// EnvironmentConfig holds deployment settings read from the environment.
// Simulation physics lives in SimConfig; the values here only tune how the
// process serves telemetry and guards its resources.
type EnvironmentConfig struct {
	ServerAddr   string
	ServerPort   int
	HealthPort   int
	MaxClients   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Circuit Breaker Configuration
	CircuitBreakerMaxRequests         int
	CircuitBreakerInterval            time.Duration
	CircuitBreakerTimeout             time.Duration
	CircuitBreakerMaxConsecutiveFails int

	// Resource Management Configuration
	MaxMemoryMB           int64
	MaxGoroutines         int
	ShutdownTimeout       time.Duration
	ResourceCheckInterval time.Duration
}

// ValidationError reports a configuration field that failed validation
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Message)
}

// DefaultEnvironmentConfig returns the settings used when no variables are set
func DefaultEnvironmentConfig() *EnvironmentConfig {
	return &EnvironmentConfig{
		ServerAddr:                        "localhost",
		ServerPort:                        4567,
		HealthPort:                        8081,
		MaxClients:                        16,
		ReadTimeout:                       30 * time.Second,
		WriteTimeout:                      30 * time.Second,
		CircuitBreakerMaxRequests:         3,
		CircuitBreakerInterval:            60 * time.Second,
		CircuitBreakerTimeout:             30 * time.Second,
		CircuitBreakerMaxConsecutiveFails: 5,
		MaxMemoryMB:                       500,
		MaxGoroutines:                     100,
		ShutdownTimeout:                   30 * time.Second,
		ResourceCheckInterval:             10 * time.Second,
	}
}

// LoadConfigFromEnv reads the deployment settings from environment variables,
// falling back to DefaultEnvironmentConfig for anything unset or unparsable.
func LoadConfigFromEnv() (*EnvironmentConfig, error) {
	d := DefaultEnvironmentConfig()
	config := &EnvironmentConfig{
		ServerAddr:   getEnvOrDefault(EnvServerAddr, d.ServerAddr),
		ServerPort:   getEnvAsIntOrDefault(EnvServerPort, d.ServerPort),
		HealthPort:   getEnvAsIntOrDefault(EnvHealthPort, d.HealthPort),
		MaxClients:   getEnvAsIntOrDefault(EnvMaxClients, d.MaxClients),
		ReadTimeout:  getEnvAsDurationOrDefault(EnvReadTimeout, d.ReadTimeout),
		WriteTimeout: getEnvAsDurationOrDefault(EnvWriteTimeout, d.WriteTimeout),

		CircuitBreakerMaxRequests:         getEnvAsIntOrDefault(EnvCBMaxRequests, d.CircuitBreakerMaxRequests),
		CircuitBreakerInterval:            getEnvAsDurationOrDefault(EnvCBInterval, d.CircuitBreakerInterval),
		CircuitBreakerTimeout:             getEnvAsDurationOrDefault(EnvCBTimeout, d.CircuitBreakerTimeout),
		CircuitBreakerMaxConsecutiveFails: getEnvAsIntOrDefault(EnvCBMaxFails, d.CircuitBreakerMaxConsecutiveFails),

		MaxMemoryMB:           int64(getEnvAsIntOrDefault(EnvMaxMemoryMB, int(d.MaxMemoryMB))),
		MaxGoroutines:         getEnvAsIntOrDefault(EnvMaxGoroutines, d.MaxGoroutines),
		ShutdownTimeout:       getEnvAsDurationOrDefault(EnvShutdownTimout, d.ShutdownTimeout),
		ResourceCheckInterval: getEnvAsDurationOrDefault(EnvResourceCheck, d.ResourceCheckInterval),
	}

	if err := validateEnvironmentConfig(config); err != nil {
		return nil, fmt.Errorf("environment configuration validation failed: %w", err)
	}
	return config, nil
}

func validateEnvironmentConfig(c *EnvironmentConfig) error {
	if c.ServerAddr == "" {
		return &ValidationError{Field: "ServerAddr", Value: c.ServerAddr, Message: "cannot be empty"}
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return &ValidationError{Field: "ServerPort", Value: c.ServerPort, Message: "must be between 1 and 65535"}
	}
	if c.HealthPort < 1 || c.HealthPort > 65535 {
		return &ValidationError{Field: "HealthPort", Value: c.HealthPort, Message: "must be between 1 and 65535"}
	}
	if c.MaxClients < 1 || c.MaxClients > 1000 {
		return &ValidationError{Field: "MaxClients", Value: c.MaxClients, Message: "must be between 1 and 1000"}
	}
	if c.ReadTimeout <= 0 {
		return &ValidationError{Field: "ReadTimeout", Value: c.ReadTimeout, Message: "must be positive"}
	}
	if c.WriteTimeout <= 0 {
		return &ValidationError{Field: "WriteTimeout", Value: c.WriteTimeout, Message: "must be positive"}
	}
	if c.CircuitBreakerMaxRequests < 1 {
		return &ValidationError{Field: "CircuitBreakerMaxRequests", Value: c.CircuitBreakerMaxRequests, Message: "must be at least 1"}
	}
	if c.CircuitBreakerInterval <= 0 {
		return &ValidationError{Field: "CircuitBreakerInterval", Value: c.CircuitBreakerInterval, Message: "must be positive"}
	}
	if c.CircuitBreakerTimeout <= 0 {
		return &ValidationError{Field: "CircuitBreakerTimeout", Value: c.CircuitBreakerTimeout, Message: "must be positive"}
	}
	if c.CircuitBreakerMaxConsecutiveFails < 1 {
		return &ValidationError{Field: "CircuitBreakerMaxConsecutiveFails", Value: c.CircuitBreakerMaxConsecutiveFails, Message: "must be at least 1"}
	}
	if c.MaxMemoryMB < 1 {
		return &ValidationError{Field: "MaxMemoryMB", Value: c.MaxMemoryMB, Message: "must be at least 1"}
	}
	if c.MaxGoroutines < 1 {
		return &ValidationError{Field: "MaxGoroutines", Value: c.MaxGoroutines, Message: "must be at least 1"}
	}
	if c.ShutdownTimeout <= 0 {
		return &ValidationError{Field: "ShutdownTimeout", Value: c.ShutdownTimeout, Message: "must be positive"}
	}
	if c.ResourceCheckInterval <= 0 {
		return &ValidationError{Field: "ResourceCheckInterval", Value: c.ResourceCheckInterval, Message: "must be positive"}
	}
	return nil
}

// ApplyEnvironmentOverrides overwrites fields of config for every variable
// that is set. Unset variables leave the file or default values in place.
func ApplyEnvironmentOverrides(config *SimConfig) error {
	if v, ok := os.LookupEnv(EnvServerAddr); ok && v != "" {
		config.Telemetry.ServerAddress = v
	}
	if _, ok := os.LookupEnv(EnvServerPort); ok {
		config.Telemetry.ServerPort = getEnvAsIntOrDefault(EnvServerPort, config.Telemetry.ServerPort)
	}
	if _, ok := os.LookupEnv(EnvHealthPort); ok {
		config.Telemetry.HealthPort = getEnvAsIntOrDefault(EnvHealthPort, config.Telemetry.HealthPort)
	}
	if _, ok := os.LookupEnv(EnvFrameRate); ok {
		config.Runner.FrameRate = getEnvAsIntOrDefault(EnvFrameRate, config.Runner.FrameRate)
	}
	if _, ok := os.LookupEnv(EnvStepsPerFrame); ok {
		config.Runner.StepsPerFrame = getEnvAsIntOrDefault(EnvStepsPerFrame, config.Runner.StepsPerFrame)
	}
	if _, ok := os.LookupEnv(EnvStartPaused); ok {
		config.Runner.StartPaused = getEnvAsBoolOrDefault(EnvStartPaused, config.Runner.StartPaused)
	}
	if _, ok := os.LookupEnv(EnvTimeStep); ok {
		config.Physics.TimeStep = getEnvAsFloatOrDefault(EnvTimeStep, config.Physics.TimeStep)
	}
	if _, ok := os.LookupEnv(EnvGravity); ok {
		config.Physics.GravityY = getEnvAsFloatOrDefault(EnvGravity, config.Physics.GravityY)
	}
	if _, ok := os.LookupEnv(EnvDrag); ok {
		config.Physics.DragCoefficient = getEnvAsFloatOrDefault(EnvDrag, config.Physics.DragCoefficient)
	}
	if _, ok := os.LookupEnv(EnvGroundHeight); ok {
		config.Ground.Height = getEnvAsFloatOrDefault(EnvGroundHeight, config.Ground.Height)
	}

	return config.Validate()
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
