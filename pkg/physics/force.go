package physics

// ConstantForce is an externally injected force acting on a single point
type ConstantForce struct {
	Name  string
	Force Vector2D
}

// Apply pushes the force into p
func (c *ConstantForce) Apply(p *PointMass) {
	p.ApplyForce(c.Force)
}

// Tip returns where the force arrow ends when drawn from p at the given scale
func (c *ConstantForce) Tip(p *PointMass, scale float64) Vector2D {
	return p.Position.Add(c.Force.Scale(scale))
}

// ForceTowards returns a force on p pointing at target, proportional to the
// distance between them.
func ForceTowards(p *PointMass, target Vector2D, gain float64) Vector2D {
	return target.Sub(p.Position).Scale(gain)
}
