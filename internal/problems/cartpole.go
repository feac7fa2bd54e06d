package problems

import (
	"fmt"
	"math"

	"github.com/san-kum/trajopt/internal/ocp"
)

// CartPole swings the pole up from hanging (theta = pi) to balanced
// (theta = 0) and returns the cart to its start. The state is
// (position, velocity, theta, omega) and the control is the cart force.
type CartPole struct {
	CartMass   float64
	PoleMass   float64
	PoleLength float64
	Gravity    float64
	MaxForce   float64
	TrackLimit float64
	Duration   float64
}

func NewCartPole() *CartPole {
	return &CartPole{
		CartMass:   1.0,
		PoleMass:   0.1,
		PoleLength: 1.0,
		Gravity:    9.81,
		MaxForce:   20.0,
		TrackLimit: 2.0,
		Duration:   2.5,
	}
}

func (c *CartPole) StateDim() int   { return 4 }
func (c *CartPole) ControlDim() int { return 1 }

func (c *CartPole) Derive(x ocp.State, u ocp.Control, t float64) ocp.State {
	vel, theta, omega := x[1], x[2], x[3]

	mc, mp, l, g := c.CartMass, c.PoleMass, c.PoleLength, c.Gravity
	sint, cost := math.Sin(theta), math.Cos(theta)

	temp := (u[0] + mp*l*omega*omega*sint) / (mc + mp)
	thetaacc := (g*sint - cost*temp) / (l * (4.0/3.0 - mp*cost*cost/(mc+mp)))
	xacc := temp - mp*l*thetaacc*cost/(mc+mp)

	return ocp.State{vel, xacc, omega, thetaacc}
}

func (c *CartPole) IntegralCost(x ocp.State, u ocp.Control, t float64) float64 {
	return u[0] * u[0]
}

func (c *CartPole) Bounds() ocp.Bounds {
	b := ocp.FreeBounds(4, 1, 0, c.Duration)
	b.States[0] = ocp.Range(-c.TrackLimit, c.TrackLimit)
	b.InitialStates = []ocp.Bound{ocp.Fixed(0), ocp.Fixed(0), ocp.Fixed(math.Pi), ocp.Fixed(0)}
	b.FinalStates = []ocp.Bound{ocp.Fixed(0), ocp.Fixed(0), ocp.Fixed(0), ocp.Fixed(0)}
	b.Controls[0] = ocp.Range(-c.MaxForce, c.MaxForce)
	return b
}

func (c *CartPole) GetParams() map[string]float64 {
	return map[string]float64{
		"cart_mass":   c.CartMass,
		"pole_mass":   c.PoleMass,
		"pole_length": c.PoleLength,
		"gravity":     c.Gravity,
		"max_force":   c.MaxForce,
		"track_limit": c.TrackLimit,
		"duration":    c.Duration,
	}
}

func (c *CartPole) SetParam(name string, value float64) error {
	target := map[string]*float64{
		"cart_mass":   &c.CartMass,
		"pole_mass":   &c.PoleMass,
		"pole_length": &c.PoleLength,
		"gravity":     &c.Gravity,
		"max_force":   &c.MaxForce,
		"track_limit": &c.TrackLimit,
		"duration":    &c.Duration,
	}[name]
	if target == nil {
		return fmt.Errorf("%w: %s", ocp.ErrUnknownParameter, name)
	}
	if name != "gravity" && value <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %g", ocp.ErrParameterBounds, name, value)
	}
	*target = value
	return nil
}
