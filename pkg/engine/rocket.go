// pkg/engine/rocket.go
package engine

import (
	"fmt"

	"github.com/arda-guler/SloshTVC/pkg/config"
	"github.com/arda-guler/SloshTVC/pkg/entity"
	"github.com/arda-guler/SloshTVC/pkg/physics"
)

// Rocket layout. Rails run up both sides at x = ±2, the propellant and payload
// sit on the centreline, and the engine mount pt is at the base.
var (
	railHeights = []float64{0, 15, 40, 50, 60, 65}

	propellantPoints = []struct {
		name string
		y    float64
	}{
		{"p10", 7},
		{"p11", 27},
		{"p12", 45},
		{"p13", 55},
	}

	// Each propellant mass hangs from the four rail points around it
	propellantAnchors = [][4]string{
		{"p00", "p20", "p21", "p01"},
		{"p01", "p21", "p22", "p02"},
		{"p02", "p22", "p23", "p03"},
		{"p03", "p23", "p24", "p04"},
	}

	structuralLinks = [][3]string{
		{"s01", "p00", "pt"}, {"s02", "p20", "pt"}, {"s03", "p01", "pt"}, {"s04", "p21", "pt"},
		{"s1", "p01", "p21"}, {"s2", "p02", "p22"}, {"s3", "p03", "p23"}, {"s4", "p04", "p24"},
		{"v1", "p00", "p01"}, {"v2", "p01", "p02"}, {"v3", "p02", "p03"}, {"v4", "p03", "p04"}, {"v5", "p04", "p05"},
		{"v6", "p20", "p21"}, {"v7", "p21", "p22"}, {"v8", "p22", "p23"}, {"v9", "p23", "p24"}, {"v10", "p24", "p25"},
		{"tip1", "p05", "p15"}, {"tip2", "p15", "p25"}, {"tip3", "p05", "p25"},
		{"adapter1", "p04", "p14"}, {"adapter2", "p24", "p14"},
		{"c1", "p00", "p21"}, {"c2", "p01", "p22"}, {"c3", "p02", "p23"}, {"c4", "p03", "p24"}, {"c5", "p04", "p25"},
		{"c6", "p01", "p20"}, {"c7", "p02", "p21"}, {"c8", "p03", "p22"}, {"c9", "p04", "p23"}, {"c10", "p05", "p24"},
	}
)

const (
	structureColor  = "skyblue"
	propellantColor = "orange"
	pointColor      = "seagreen"
)

// RocketScenario builds the flexible launch vehicle with sloshing propellant
// and a TVC-steered engine.
type RocketScenario struct {
	Config config.RocketConfig
}

// NewRocketScenario creates the rocket scenario
func NewRocketScenario(cfg config.RocketConfig) *RocketScenario {
	return &RocketScenario{Config: cfg}
}

// Name returns the scenario name
func (r *RocketScenario) Name() string {
	return "rocket"
}

// Build adds 19 points, 49 links and one thruster
func (r *RocketScenario) Build(b Builder) error {
	cfg := r.Config
	ptMass := cfg.StructureMass / 14
	offset := physics.Vector2D{X: cfg.OffsetX, Y: cfg.OffsetY}
	ids := make(map[string]entity.ID)

	add := func(name string, x, y, mass float64, kind physics.PointKind) error {
		id, err := b.AddPoint(PointSpec{
			Name:     name,
			Position: physics.Vector2D{X: x, Y: y}.Add(offset),
			Mass:     mass,
			Kind:     kind,
			Color:    pointColor,
		})
		if err != nil {
			return err
		}
		ids[name] = id
		return nil
	}

	for i, y := range railHeights {
		if err := add(fmt.Sprintf("p0%d", i), -2, y, ptMass, physics.Structural); err != nil {
			return err
		}
	}
	for i, pp := range propellantPoints {
		if err := add(pp.name, 0, pp.y, cfg.PropellantMass*cfg.PropellantSplit[i], physics.Propellant); err != nil {
			return err
		}
	}
	if err := add("p14", 0, 65, cfg.PayloadMass, physics.Structural); err != nil {
		return err
	}
	if err := add("p15", 0, 70, ptMass, physics.Structural); err != nil {
		return err
	}
	for i, y := range railHeights {
		if err := add(fmt.Sprintf("p2%d", i), 2, y, ptMass, physics.Structural); err != nil {
			return err
		}
	}
	if err := add("pt", 0, 0, ptMass, physics.Structural); err != nil {
		return err
	}

	link := func(name, a, c string, k, damping float64, color string) error {
		_, err := b.AddLink(ids[a], ids[c], LinkSpec{Name: name, K: k, B: damping, Color: color})
		return err
	}

	for _, s := range structuralLinks {
		if err := link(s[0], s[1], s[2], cfg.Rigidity, cfg.Damping, structureColor); err != nil {
			return err
		}
	}
	for i, anchors := range propellantAnchors {
		mass := propellantPoints[i].name
		for j, anchor := range anchors {
			name := fmt.Sprintf("pl%d%d", i, j+1)
			if err := link(name, anchor, mass, cfg.PropellantStiffness, cfg.PropellantDamping, propellantColor); err != nil {
				return err
			}
		}
	}

	_, err := b.AddThruster(ThrusterSpec{
		Name:      "engine",
		Origin:    ids["pt"],
		Aim:       ids["p15"],
		Magnitude: (cfg.StructureMass + cfg.PropellantMass) * cfg.ThrustFactor,
		RateLimit: cfg.GimbalRate,
		TVC:       true,
	})
	return err
}
