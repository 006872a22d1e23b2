package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if config.Physics.GravityY != -9.81 || config.Physics.GravityX != 0 {
		t.Errorf("Expected gravity (0, -9.81), got (%f, %f)", config.Physics.GravityX, config.Physics.GravityY)
	}
	if config.Physics.DragCoefficient != 1e-8 {
		t.Errorf("Expected drag 1e-8, got %g", config.Physics.DragCoefficient)
	}
	if config.Physics.TimeStep != 0.001 {
		t.Errorf("Expected TimeStep 0.001, got %f", config.Physics.TimeStep)
	}

	if config.Ground.Height != -100 || config.Ground.Elasticity != 0.5 || config.Ground.Friction != 0.8 {
		t.Errorf("Unexpected ground config: %+v", config.Ground)
	}

	tvc := config.TVC
	if tvc.KGimbal != 35 || tvc.KAngVel != 1e-2 || tvc.MaxTargetAngVel != 0.5 || tvc.KOrient != 1 || tvc.ArmLength != 70 {
		t.Errorf("Unexpected TVC gains: %+v", tvc)
	}
	if len(tvc.Schedule) != 3 || tvc.FinalAngle != 60 {
		t.Errorf("Expected 3 schedule steps and final angle 60, got %d and %f", len(tvc.Schedule), tvc.FinalAngle)
	}

	if !config.Rocket.Enabled {
		t.Error("Expected rocket scenario enabled by default")
	}
	if config.Rocket.StructureMass != 500 || config.Rocket.PropellantMass != 5000 {
		t.Errorf("Unexpected rocket masses: %+v", config.Rocket)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig does not validate: %v", err)
	}
}

func TestSaveAndLoadConfig_RoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "sim.json")

	original := DefaultConfig()
	original.Physics.TimeStep = 0.0005
	original.Ground.Height = 0
	original.TVC.KGimbal = 20
	original.Rocket.Enabled = false
	original.Runner.StepsPerFrame = 25

	if err := SaveConfig(original, configPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loaded.Physics.TimeStep != 0.0005 {
		t.Errorf("Expected TimeStep 0.0005, got %f", loaded.Physics.TimeStep)
	}
	if loaded.Ground.Height != 0 {
		t.Errorf("Expected ground height 0, got %f", loaded.Ground.Height)
	}
	if loaded.TVC.KGimbal != 20 {
		t.Errorf("Expected KGimbal 20, got %f", loaded.TVC.KGimbal)
	}
	if loaded.Rocket.Enabled {
		t.Error("Expected rocket disabled after round trip")
	}
	if loaded.Runner.StepsPerFrame != 25 {
		t.Errorf("Expected StepsPerFrame 25, got %d", loaded.Runner.StepsPerFrame)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "partial.json")
	if err := os.WriteFile(configPath, []byte(`{"ground": {"height": 5, "elasticity": 0.2, "friction": 0.1}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Ground.Height != 5 {
		t.Errorf("Expected ground height 5, got %f", loaded.Ground.Height)
	}
	if loaded.Physics.TimeStep != 0.001 {
		t.Errorf("Expected default TimeStep to survive, got %f", loaded.Physics.TimeStep)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	config, err := LoadConfig("/path/that/does/not/exist/config.json")

	if err == nil {
		t.Error("Expected error when loading non-existent file, got nil")
	}
	if config != nil {
		t.Error("Expected nil config when file not found, got non-nil")
	}
	if err != nil && !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.json")
	if err := os.WriteFile(configPath, []byte(`{"physics": {"timeStep": 0.001}, invalid json}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(configPath)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("Expected parse error, got %v", err)
	}
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(configPath, []byte(`{"physics": {"gravityY": -9.81, "timeStep": 0}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(configPath)
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "physics.timeStep" {
		t.Errorf("Expected physics.timeStep validation error, got %v", err)
	}
}

func TestSimConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *SimConfig)
		field  string
	}{
		{"negative_drag", func(c *SimConfig) { c.Physics.DragCoefficient = -1 }, "physics.dragCoefficient"},
		{"huge_step", func(c *SimConfig) { c.Physics.TimeStep = 1 }, "physics.timeStep"},
		{"elasticity_above_one", func(c *SimConfig) { c.Ground.Elasticity = 1.5 }, "ground.elasticity"},
		{"negative_friction", func(c *SimConfig) { c.Ground.Friction = -0.1 }, "ground.friction"},
		{"zero_arm", func(c *SimConfig) { c.TVC.ArmLength = 0 }, "tvc.armLength"},
		{"unsorted_schedule", func(c *SimConfig) { c.TVC.Schedule[1].Below = 100 }, "tvc.schedule"},
		{"zero_structure_mass", func(c *SimConfig) { c.Rocket.StructureMass = 0 }, "rocket.structureMass"},
		{"bad_split_sum", func(c *SimConfig) { c.Rocket.PropellantSplit = []float64{0.5, 0.5, 0.5, 0.5} }, "rocket.propellantSplit"},
		{"short_split", func(c *SimConfig) { c.Rocket.PropellantSplit = []float64{1} }, "rocket.propellantSplit"},
		{"zero_steps_per_frame", func(c *SimConfig) { c.Runner.StepsPerFrame = 0 }, "runner.stepsPerFrame"},
		{"bad_port", func(c *SimConfig) { c.Telemetry.ServerPort = 70000 }, "telemetry.serverPort"},
		{"zero_sample", func(c *SimConfig) { c.Telemetry.SampleEvery = 0 }, "telemetry.sampleEvery"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Expected ValidationError, got %T: %v", err, err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Expected error for field '%s', got '%s'", tt.field, vErr.Field)
			}
		})
	}
}

func TestSimConfig_ValidateSkipsDisabledRocket(t *testing.T) {
	c := DefaultConfig()
	c.Rocket.Enabled = false
	c.Rocket.StructureMass = 0
	if err := c.Validate(); err != nil {
		t.Errorf("disabled rocket should not be validated: %v", err)
	}
}
