// pkg/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// SimConfig contains configuration for a simulation run
type SimConfig struct {
	Physics   PhysicsConfig   `json:"physics"`
	Ground    GroundConfig    `json:"ground"`
	TVC       TVCConfig       `json:"tvc"`
	Rocket    RocketConfig    `json:"rocket"`
	Runner    RunnerConfig    `json:"runner"`
	Telemetry TelemetryConfig `json:"telemetry"`
}

// PhysicsConfig contains the global force model and the fixed step
type PhysicsConfig struct {
	GravityX        float64 `json:"gravityX"`
	GravityY        float64 `json:"gravityY"`
	DragCoefficient float64 `json:"dragCoefficient"`
	TimeStep        float64 `json:"timeStep"`
}

// GroundConfig describes the flat floor
type GroundConfig struct {
	Height     float64 `json:"height"`
	Elasticity float64 `json:"elasticity"`
	Friction   float64 `json:"friction"`
}

// ScheduleStep maps altitudes below Below to the desired flight angle Angle
type ScheduleStep struct {
	Below float64 `json:"below"`
	Angle float64 `json:"angle"`
}

// TVCConfig contains the attitude controller gains
type TVCConfig struct {
	KGimbal         float64        `json:"kGimbal"`
	KAngVel         float64        `json:"kAngVel"`
	MaxTargetAngVel float64        `json:"maxTargetAngVel"`
	KOrient         float64        `json:"kOrient"`
	ArmLength       float64        `json:"armLength"`
	Schedule        []ScheduleStep `json:"schedule"`
	FinalAngle      float64        `json:"finalAngle"`
}

// RocketConfig parameterises the built-in rocket scenario
type RocketConfig struct {
	Enabled             bool      `json:"enabled"`
	StructureMass       float64   `json:"structureMass"`
	PropellantMass      float64   `json:"propellantMass"`
	PropellantSplit     []float64 `json:"propellantSplit"`
	PayloadMass         float64   `json:"payloadMass"`
	Rigidity            float64   `json:"rigidity"`
	Damping             float64   `json:"damping"`
	PropellantStiffness float64   `json:"propellantStiffness"`
	PropellantDamping   float64   `json:"propellantDamping"`
	ThrustFactor        float64   `json:"thrustFactor"`
	GimbalRate          float64   `json:"gimbalRate"`
	OffsetX             float64   `json:"offsetX"`
	OffsetY             float64   `json:"offsetY"`
}

// RunnerConfig controls how ticks are paced against wall-clock frames
type RunnerConfig struct {
	StepsPerFrame int  `json:"stepsPerFrame"`
	FrameRate     int  `json:"frameRate"`
	StartPaused   bool `json:"startPaused"`
}

// TelemetryConfig contains telemetry server and recorder settings
type TelemetryConfig struct {
	ServerAddress string `json:"serverAddress"`
	ServerPort    int    `json:"serverPort"`
	HealthPort    int    `json:"healthPort"`
	SampleEvery   int    `json:"sampleEvery"`
}

// LoadConfig loads a configuration from a file
func LoadConfig(path string) (*SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig saves a configuration to a file
func SaveConfig(config *SimConfig, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns the default rocket launch configuration
func DefaultConfig() *SimConfig {
	return &SimConfig{
		Physics: PhysicsConfig{
			GravityX:        0,
			GravityY:        -9.81,
			DragCoefficient: 1e-8,
			TimeStep:        0.001,
		},
		Ground: GroundConfig{
			Height:     -100,
			Elasticity: 0.5,
			Friction:   0.8,
		},
		TVC: TVCConfig{
			KGimbal:         35,
			KAngVel:         1e-2,
			MaxTargetAngVel: 0.5,
			KOrient:         1,
			ArmLength:       70,
			Schedule: []ScheduleStep{
				{Below: 500, Angle: 10},
				{Below: 1500, Angle: 25},
				{Below: 5000, Angle: 45},
			},
			FinalAngle: 60,
		},
		Rocket: RocketConfig{
			Enabled:             true,
			StructureMass:       500,
			PropellantMass:      5000,
			PropellantSplit:     []float64{0.3, 0.4, 0.1, 0.2},
			PayloadMass:         20,
			Rigidity:            15e6,
			Damping:             1e-4,
			PropellantStiffness: 15e4,
			PropellantDamping:   50,
			ThrustFactor:        30,
			GimbalRate:          25,
		},
		Runner: RunnerConfig{
			StepsPerFrame: 10,
			FrameRate:     30,
			StartPaused:   false,
		},
		Telemetry: TelemetryConfig{
			ServerAddress: "localhost",
			ServerPort:    4567,
			HealthPort:    8081,
			SampleEvery:   100,
		},
	}
}

// Validate checks the configuration for values the simulation cannot run with
func (c *SimConfig) Validate() error {
	if !finite(c.Physics.GravityX) || !finite(c.Physics.GravityY) {
		return &ValidationError{Field: "physics.gravity", Value: fmt.Sprintf("(%g, %g)", c.Physics.GravityX, c.Physics.GravityY), Message: "must be finite"}
	}
	if !(c.Physics.DragCoefficient >= 0) || !finite(c.Physics.DragCoefficient) {
		return &ValidationError{Field: "physics.dragCoefficient", Value: c.Physics.DragCoefficient, Message: "must be a finite non-negative number"}
	}
	if !(c.Physics.TimeStep > 0) || c.Physics.TimeStep > 0.1 {
		return &ValidationError{Field: "physics.timeStep", Value: c.Physics.TimeStep, Message: "must be in (0, 0.1]"}
	}
	if !finite(c.Ground.Height) {
		return &ValidationError{Field: "ground.height", Value: c.Ground.Height, Message: "must be finite"}
	}
	if !(c.Ground.Elasticity >= 0) || c.Ground.Elasticity > 1 {
		return &ValidationError{Field: "ground.elasticity", Value: c.Ground.Elasticity, Message: "must be in [0, 1]"}
	}
	if !(c.Ground.Friction >= 0) || !finite(c.Ground.Friction) {
		return &ValidationError{Field: "ground.friction", Value: c.Ground.Friction, Message: "must be a finite non-negative number"}
	}
	if err := c.TVC.validate(); err != nil {
		return err
	}
	if c.Rocket.Enabled {
		if err := c.Rocket.validate(); err != nil {
			return err
		}
	}
	if c.Runner.StepsPerFrame < 1 {
		return &ValidationError{Field: "runner.stepsPerFrame", Value: c.Runner.StepsPerFrame, Message: "must be at least 1"}
	}
	if c.Runner.FrameRate < 1 || c.Runner.FrameRate > 240 {
		return &ValidationError{Field: "runner.frameRate", Value: c.Runner.FrameRate, Message: "must be between 1 and 240"}
	}
	if c.Telemetry.ServerPort < 1 || c.Telemetry.ServerPort > 65535 {
		return &ValidationError{Field: "telemetry.serverPort", Value: c.Telemetry.ServerPort, Message: "must be between 1 and 65535"}
	}
	if c.Telemetry.HealthPort < 1 || c.Telemetry.HealthPort > 65535 {
		return &ValidationError{Field: "telemetry.healthPort", Value: c.Telemetry.HealthPort, Message: "must be between 1 and 65535"}
	}
	if c.Telemetry.SampleEvery < 1 {
		return &ValidationError{Field: "telemetry.sampleEvery", Value: c.Telemetry.SampleEvery, Message: "must be at least 1"}
	}
	return nil
}

func (t *TVCConfig) validate() error {
	gains := map[string]float64{
		"tvc.kGimbal":         t.KGimbal,
		"tvc.kAngVel":         t.KAngVel,
		"tvc.maxTargetAngVel": t.MaxTargetAngVel,
		"tvc.kOrient":         t.KOrient,
	}
	for field, v := range gains {
		if !(v >= 0) || !finite(v) {
			return &ValidationError{Field: field, Value: v, Message: "must be a finite non-negative number"}
		}
	}
	if !(t.ArmLength > 0) || !finite(t.ArmLength) {
		return &ValidationError{Field: "tvc.armLength", Value: t.ArmLength, Message: "must be positive"}
	}
	for i := 1; i < len(t.Schedule); i++ {
		if !(t.Schedule[i].Below > t.Schedule[i-1].Below) {
			return &ValidationError{Field: "tvc.schedule", Value: t.Schedule[i].Below, Message: "altitude thresholds must be strictly increasing"}
		}
	}
	return nil
}

func (r *RocketConfig) validate() error {
	positive := []struct {
		field string
		value float64
	}{
		{"rocket.structureMass", r.StructureMass},
		{"rocket.propellantMass", r.PropellantMass},
		{"rocket.payloadMass", r.PayloadMass},
		{"rocket.rigidity", r.Rigidity},
		{"rocket.propellantStiffness", r.PropellantStiffness},
	}
	for _, p := range positive {
		if !(p.value > 0) || !finite(p.value) {
			return &ValidationError{Field: p.field, Value: p.value, Message: "must be positive"}
		}
	}
	if !(r.Damping >= 0) || !(r.PropellantDamping >= 0) {
		return &ValidationError{Field: "rocket.damping", Value: fmt.Sprintf("%g/%g", r.Damping, r.PropellantDamping), Message: "must be non-negative"}
	}
	if !(r.ThrustFactor >= 0) || !(r.GimbalRate >= 0) {
		return &ValidationError{Field: "rocket.thrustFactor", Value: fmt.Sprintf("%g/%g", r.ThrustFactor, r.GimbalRate), Message: "thrust factor and gimbal rate must be non-negative"}
	}
	if len(r.PropellantSplit) != 4 {
		return &ValidationError{Field: "rocket.propellantSplit", Value: len(r.PropellantSplit), Message: "must have exactly 4 entries"}
	}
	sum := 0.0
	for _, s := range r.PropellantSplit {
		if !(s > 0) {
			return &ValidationError{Field: "rocket.propellantSplit", Value: s, Message: "entries must be positive"}
		}
		sum += s
	}
	if math.Abs(sum-1) > 1e-9 {
		return &ValidationError{Field: "rocket.propellantSplit", Value: sum, Message: "entries must sum to 1"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
