package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/microsim/internal/sim"
)

type oscillator struct{}

func (o *oscillator) Derive(x sim.State, t float64) sim.State {
	return sim.State{x[1], -x[0]}
}

func (o *oscillator) Layout() sim.StateLayout { return sim.StateLayout{} }

func (o *oscillator) energy(x sim.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func TestRK4Accuracy(t *testing.T) {
	sys := &oscillator{}
	integ := NewRK4()

	x := sim.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(sys, x, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}

	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestEulerConvergesSlower(t *testing.T) {
	sys := &oscillator{}
	euler := NewEuler()
	rk4 := NewRK4()

	xe := sim.State{1.0, 0.0}
	xr := sim.State{1.0, 0.0}
	dt := 0.01
	steps := 1000

	for i := 0; i < steps; i++ {
		xe = euler.Step(sys, xe, float64(i)*dt, dt)
		xr = rk4.Step(sys, xr, float64(i)*dt, dt)
	}

	exact := math.Cos(float64(steps) * dt)
	if math.Abs(xr[0]-exact) > math.Abs(xe[0]-exact) {
		t.Errorf("rk4 error %e should beat euler error %e",
			math.Abs(xr[0]-exact), math.Abs(xe[0]-exact))
	}
}
