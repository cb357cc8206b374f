package sim

import "math"

// State is the combined simulation state vector laid out as
// [species abundances..., resource concentrations..., volume].
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// IsValid reports whether every component is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Clamp floors every component at zero. Negative abundances and
// concentrations are non-physical integrator artifacts.
func (s State) Clamp() {
	for i, v := range s {
		if v < 0 {
			s[i] = 0
		}
	}
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// StateLayout maps the combined vector onto its three channels.
type StateLayout struct {
	NSpecies   int
	NResources int
}

func (l StateLayout) Dim() int { return l.NSpecies + l.NResources + 1 }

// Species returns the species slice of x (aliases x, no copy).
func (l StateLayout) Species(x State) []float64 { return x[:l.NSpecies] }

// Resources returns the resource slice of x (aliases x, no copy).
func (l StateLayout) Resources(x State) []float64 {
	return x[l.NSpecies : l.NSpecies+l.NResources]
}

func (l StateLayout) Volume(x State) float64 { return x[l.NSpecies+l.NResources] }

func (l StateLayout) VolumeIndex() int { return l.NSpecies + l.NResources }

// System is the right-hand side of the ODE. Derive must not mutate x;
// it receives a snapshot and returns a fresh derivative vector.
type System interface {
	Derive(x State, t float64) State
	Layout() StateLayout
}

// Integrator advances the state by one step of size dt.
type Integrator interface {
	Step(sys System, x State, t, dt float64) State
}
