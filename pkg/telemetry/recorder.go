// Package telemetry samples a running world into a flight log that can be
// written as CSV or plotted.
package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/arda-guler/SloshTVC/pkg/control"
	"github.com/arda-guler/SloshTVC/pkg/engine"
	"github.com/arda-guler/SloshTVC/pkg/physics"
)

// ErrNoSamples is returned when exporting an empty log
var ErrNoSamples = errors.New("no telemetry samples")

// Source is the part of a world the recorder reads
type Source interface {
	Tick() uint64
	Snapshot() *engine.WorldState
}

// Sample is one row of the flight log
type Sample struct {
	Tick         uint64           `json:"tick"`
	Time         float64          `json:"time"`
	Altitude     float64          `json:"altitude"`
	FlightAngle  float64          `json:"flightAngle"`
	DesiredAngle float64          `json:"desiredAngle"`
	AngularRate  float64          `json:"angularRate"`
	Gimbal       float64          `json:"gimbal"`
	CenterOfMass physics.Vector2D `json:"centerOfMass"`
	Velocity     physics.Vector2D `json:"velocity"`
}

// Header is the CSV column order
var Header = []string{
	"tick", "time", "altitude", "flight_angle", "desired_angle",
	"angular_rate", "gimbal", "com_x", "com_y", "vel_x", "vel_y",
}

// Recorder keeps every Nth tick of a world
type Recorder struct {
	every    uint64
	thruster string

	mu      sync.Mutex
	samples []Sample
}

// NewRecorder samples every n ticks from the named thruster. An empty name
// follows the first thruster in the world.
func NewRecorder(every int, thruster string) *Recorder {
	if every < 1 {
		every = 1
	}
	return &Recorder{every: uint64(every), thruster: thruster}
}

// Observe records a sample if the source's tick is due. It reports whether a
// sample was taken.
func (r *Recorder) Observe(src Source) bool {
	if src.Tick()%r.every != 0 {
		return false
	}
	s, ok := r.sample(src.Snapshot())
	if !ok {
		return false
	}

	r.mu.Lock()
	r.samples = append(r.samples, s)
	r.mu.Unlock()
	return true
}

// sample reduces a state to a Sample. It needs a thruster to measure.
func (r *Recorder) sample(state *engine.WorldState) (Sample, bool) {
	th, ok := r.findThruster(state)
	if !ok {
		return Sample{}, false
	}

	s := Sample{
		Tick:     state.Tick,
		Time:     state.SimTime,
		Altitude: th.OriginPos.Y,
		Gimbal:   th.Offset,
	}
	if th.Command != nil {
		s.FlightAngle = th.Command.FlightAngle
		s.DesiredAngle = th.Command.DesiredAngle
		s.AngularRate = th.Command.AngularRate
	} else if angle, err := control.FlightAngle(th.OriginPos, th.AimPos); err == nil {
		s.FlightAngle = angle
	}

	var mass float64
	var moment, momentum physics.Vector2D
	for _, p := range state.Points {
		mass += p.Mass
		moment = moment.Add(p.Position.Scale(p.Mass))
		momentum = momentum.Add(p.Velocity.Scale(p.Mass))
	}
	if mass > 0 {
		s.CenterOfMass = moment.Scale(1 / mass)
		s.Velocity = momentum.Scale(1 / mass)
	}
	return s, true
}

func (r *Recorder) findThruster(state *engine.WorldState) (engine.ThrusterState, bool) {
	for _, th := range state.Thrusters {
		if r.thruster == "" || th.Name == r.thruster {
			return th, true
		}
	}
	return engine.ThrusterState{}, false
}

// Samples returns a copy of the log
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sample(nil), r.samples...)
}

// Len returns the number of samples
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// Reset drops all samples
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.samples = nil
	r.mu.Unlock()
}

// WriteCSV writes the log with a header row
func (r *Recorder) WriteCSV(w io.Writer) error {
	samples := r.Samples()

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, s := range samples {
		if err := cw.Write(s.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the log to path
func (r *Recorder) SaveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}
	if err := r.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return f.Close()
}

func (s Sample) record() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		strconv.FormatUint(s.Tick, 10),
		f(s.Time),
		f(s.Altitude),
		f(s.FlightAngle),
		f(s.DesiredAngle),
		f(s.AngularRate),
		f(s.Gimbal),
		f(s.CenterOfMass.X),
		f(s.CenterOfMass.Y),
		f(s.Velocity.X),
		f(s.Velocity.Y),
	}
}
