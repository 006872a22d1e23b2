// Package control implements the thrust-vector-control law that steers a
// gimbaled thruster toward an altitude-scheduled flight angle.
//
// Angles are in degrees measured clockwise from +Y, so a rocket leaning to the
// right has a positive flight angle. Angular rates are counter-clockwise
// positive, which means a rocket tipping further right reports a negative rate.
// The controller is stateless: every call derives its command from the current
// geometry alone.
package control

import (
	"fmt"
	"math"

	"github.com/arda-guler/SloshTVC/pkg/config"
	"github.com/arda-guler/SloshTVC/pkg/physics"
)

// Gains are the fixed controller constants
type Gains struct {
	KAngVel         float64 `json:"kAngVel"`
	KOrient         float64 `json:"kOrient"`
	KGimbal         float64 `json:"kGimbal"`
	MaxTargetAngVel float64 `json:"maxTargetAngVel"`
	ArmLength       float64 `json:"armLength"`
}

// ScheduleStep selects Angle for altitudes strictly below Below
type ScheduleStep struct {
	Below float64
	Angle float64
}

// Schedule maps altitude to a desired flight angle. Steps are checked in
// order; altitudes above every step get Final.
type Schedule struct {
	Steps []ScheduleStep
	Final float64
}

// DefaultSchedule is the gravity-turn profile of the built-in rocket
func DefaultSchedule() Schedule {
	return Schedule{
		Steps: []ScheduleStep{
			{Below: 500, Angle: 10},
			{Below: 1500, Angle: 25},
			{Below: 5000, Angle: 45},
		},
		Final: 60,
	}
}

// DesiredFlightAngle returns the scheduled angle for altitude
func (s Schedule) DesiredFlightAngle(altitude float64) float64 {
	for _, step := range s.Steps {
		if altitude < step.Below {
			return step.Angle
		}
	}
	return s.Final
}

// Command holds one evaluation of the control law. Everything except Gimbal
// is carried for telemetry.
type Command struct {
	Altitude     float64 `json:"altitude"`
	DesiredAngle float64 `json:"desiredAngle"`
	FlightAngle  float64 `json:"flightAngle"`
	Correction   float64 `json:"correction"`
	AngularRate  float64 `json:"angularRate"`
	TargetRate   float64 `json:"targetRate"`
	Gimbal       float64 `json:"gimbal"`
}

// Controller evaluates the TVC law
type Controller struct {
	Gains    Gains
	Schedule Schedule
}

// NewController validates gains and creates a controller
func NewController(gains Gains, schedule Schedule) (*Controller, error) {
	if !(gains.ArmLength > 0) || math.IsInf(gains.ArmLength, 0) {
		return nil, fmt.Errorf("arm length %g: %w", gains.ArmLength, physics.ErrInvalidParameter)
	}
	if !(gains.MaxTargetAngVel >= 0) {
		return nil, fmt.Errorf("max target angular velocity %g: %w", gains.MaxTargetAngVel, physics.ErrInvalidParameter)
	}
	return &Controller{Gains: gains, Schedule: schedule}, nil
}

// NewControllerFromConfig builds a controller from the tvc config section
func NewControllerFromConfig(cfg config.TVCConfig) (*Controller, error) {
	schedule := Schedule{Final: cfg.FinalAngle}
	for _, s := range cfg.Schedule {
		schedule.Steps = append(schedule.Steps, ScheduleStep{Below: s.Below, Angle: s.Angle})
	}
	return NewController(Gains{
		KAngVel:         cfg.KAngVel,
		KOrient:         cfg.KOrient,
		KGimbal:         cfg.KGimbal,
		MaxTargetAngVel: cfg.MaxTargetAngVel,
		ArmLength:       cfg.ArmLength,
	}, schedule)
}

// FlightAngle returns the lean of origin→tip from vertical in degrees,
// clockwise positive.
func FlightAngle(origin, tip physics.Vector2D) (float64, error) {
	r := tip.Sub(origin)
	if r.LengthSquared() == 0 {
		return 0, fmt.Errorf("flight angle: %w", physics.ErrDegenerateGeometry)
	}
	return physics.Degrees(math.Atan2(r.X, r.Y)), nil
}

// AngularRate returns the counter-clockwise rate of the tip about the origin,
// using the tangential part of the relative velocity over a fixed arm length.
func AngularRate(origin, tip *physics.PointMass, armLength float64) (float64, error) {
	rHat, err := tip.Position.Sub(origin.Position).Unit()
	if err != nil {
		return 0, fmt.Errorf("angular rate: %w", err)
	}
	rel := tip.Velocity.Sub(origin.Velocity)
	return rHat.Cross(rel) / armLength, nil
}

// Command evaluates the law for a thruster pushing origin and aimed at tip.
// Altitude is the origin's height.
func (c *Controller) Command(origin, tip *physics.PointMass) (Command, error) {
	current, err := FlightAngle(origin.Position, tip.Position)
	if err != nil {
		return Command{}, err
	}
	rate, err := AngularRate(origin, tip, c.Gains.ArmLength)
	if err != nil {
		return Command{}, err
	}

	cmd := Command{
		Altitude:    origin.Position.Y,
		FlightAngle: current,
		AngularRate: rate,
	}
	cmd.DesiredAngle = c.Schedule.DesiredFlightAngle(cmd.Altitude)
	cmd.Correction = cmd.DesiredAngle - current

	// Leaning further clockwise needs a negative (clockwise) rate
	cmd.TargetRate = clamp(-c.Gains.KAngVel*cmd.Correction, c.Gains.MaxTargetAngVel)
	cmd.Gimbal = c.Gains.KOrient * (rate - cmd.TargetRate) * c.Gains.KGimbal
	return cmd, nil
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
