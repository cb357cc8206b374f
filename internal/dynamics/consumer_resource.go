// Package dynamics implements the consumer-resource right-hand side: Monod
// feeding forms, optional priority gating of resources (catabolite
// repression), growth-coupled secretion of by-products, and the
// inflow/outflow terms that express batch, fed-batch, and chemostat
// operation through rates alone.
package dynamics

import (
	"math"

	"github.com/san-kum/microsim/internal/matrix"
	"github.com/san-kum/microsim/internal/sim"
)

// ActivationThreshold is the concentration below which a resource counts as
// depleted for priority gating: a lower-ranked resource becomes available to
// a species only once every higher-priority resource has fallen below it.
const ActivationThreshold = 1e-6

// Params assembles everything the model needs. E, Monod, and Priority are
// cloned at construction; their entries cannot change sign mid-run.
type Params struct {
	// E is the n-by-k coefficient matrix: positive entries consume,
	// negative entries produce.
	E *matrix.Matrix

	// Monod holds the half-saturation constant per species-resource pair.
	// Only entries where E is non-zero affect the dynamics; those must be
	// positive (or zero, in which case f is defined as 0 when S is also 0).
	Monod *matrix.Matrix

	// Priority optionally ranks resources per species: rank 1 is consumed
	// first, rank 2 only once every rank-1 resource is depleted, and so on.
	// Rank 0 exempts the pair from gating. Equal ranks feed simultaneously.
	Priority *matrix.Matrix

	// GrowthRates is the maximum per-capita growth rate per species.
	GrowthRates []float64

	// Offsets is the optional per-species dilution/maintenance offset added
	// to the specific growth rate. Nil means all zero.
	Offsets []float64

	InflowRate           float64
	OutflowRate          float64
	InflowConcentrations []float64
}

// ConsumerResource implements sim.System over the combined (X, S, V) vector.
type ConsumerResource struct {
	layout sim.StateLayout

	e        *matrix.Matrix
	monod    *matrix.Matrix
	priority *matrix.Matrix
	mu       []float64
	delta    []float64

	inflow     float64
	outflow    float64
	inflowConc []float64
}

func New(p Params) (*ConsumerResource, error) {
	if err := matrix.Validate(p.E); err != nil {
		return nil, sim.ConstraintError{Message: err.Error()}
	}
	n, k := p.E.Rows, p.E.Cols

	if p.Monod == nil || p.Monod.Rows != n || p.Monod.Cols != k {
		return nil, sim.ConfigError{Field: "monod_constants", Message: "shape must match the coefficient matrix"}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			if p.E.At(i, j) != 0 && p.Monod.At(i, j) < 0 {
				return nil, sim.ConfigError{Field: "monod_constants", Message: "must be non-negative where E is non-zero"}
			}
		}
	}
	if len(p.GrowthRates) != n {
		return nil, sim.ConfigError{Field: "growth_rates", Message: "need one rate per species"}
	}
	if p.Offsets != nil && len(p.Offsets) != n {
		return nil, sim.ConfigError{Field: "offsets", Message: "need one offset per species"}
	}
	if p.Priority != nil {
		if p.Priority.Rows != n || p.Priority.Cols != k {
			return nil, sim.ConfigError{Field: "priority", Message: "shape must match the coefficient matrix"}
		}
		for _, v := range p.Priority.Data {
			if v < 0 || v != math.Trunc(v) {
				return nil, sim.ConfigError{Field: "priority", Message: "ranks must be non-negative integers"}
			}
		}
	}
	if p.InflowRate < 0 || p.OutflowRate < 0 {
		return nil, sim.ConfigError{Field: "inflow_rate", Message: "flow rates must be non-negative"}
	}
	inflowConc := p.InflowConcentrations
	if inflowConc == nil {
		inflowConc = make([]float64, k)
	} else if len(inflowConc) != k {
		return nil, sim.ConfigError{Field: "inflow_concentrations", Message: "need one concentration per resource"}
	}

	delta := p.Offsets
	if delta == nil {
		delta = make([]float64, n)
	}

	var priority *matrix.Matrix
	if p.Priority != nil {
		priority = p.Priority.Clone()
	}

	return &ConsumerResource{
		layout:     sim.StateLayout{NSpecies: n, NResources: k},
		e:          p.E.Clone(),
		monod:      p.Monod.Clone(),
		priority:   priority,
		mu:         append([]float64(nil), p.GrowthRates...),
		delta:      append([]float64(nil), delta...),
		inflow:     p.InflowRate,
		outflow:    p.OutflowRate,
		inflowConc: append([]float64(nil), inflowConc...),
	}, nil
}

func (c *ConsumerResource) Layout() sim.StateLayout { return c.layout }

// Coefficients returns the coefficient matrix (a copy, for inspection).
func (c *ConsumerResource) Coefficients() *matrix.Matrix { return c.e.Clone() }

// feedingForm is the Monod saturation S/(K+S): 0 at S=0, asymptotic to 1.
// The K=0, S=0 corner is defined as 0 to avoid 0/0.
func feedingForm(s, k float64) float64 {
	if s <= 0 {
		return 0
	}
	return s / (k + s)
}

// Derive computes the derivative of the combined state from a snapshot.
// It never mutates x.
func (c *ConsumerResource) Derive(x sim.State, t float64) sim.State {
	n, k := c.layout.NSpecies, c.layout.NResources
	X := c.layout.Species(x)
	S := c.layout.Resources(x)
	V := c.layout.Volume(x)

	dx := make(sim.State, c.layout.Dim())
	dX := dx[:n]
	dS := dx[n : n+k]

	for i := 0; i < n; i++ {
		row := c.e.Row(i)
		gate := c.availability(i, S)

		// Realized uptake drives both growth and secretion.
		uptake := c.delta[i]
		for j := 0; j < k; j++ {
			if row[j] <= 0 {
				continue
			}
			if gate != nil && !gate[j] {
				continue
			}
			uptake += row[j] * feedingForm(S[j], c.monod.At(i, j))
		}

		dX[i] = c.mu[i] * X[i] * uptake

		for j := 0; j < k; j++ {
			e := row[j]
			switch {
			case e > 0:
				if gate != nil && !gate[j] {
					continue
				}
				dS[j] -= e * feedingForm(S[j], c.monod.At(i, j)) * X[i]
			case e < 0:
				dS[j] += -e * X[i] * uptake
			}
		}
	}

	// Flow: with volume V(t), any concentration-like quantity Q obeys
	// dQ/dt = inflow*(Q_in - Q)/V once washout and the volume change are
	// combined (Q_in is the feed concentration for resources, 0 for
	// species). Batch (inflow=0) contributes nothing.
	if c.inflow > 0 && V > 0 {
		for j := 0; j < k; j++ {
			dS[j] += c.inflow * (c.inflowConc[j] - S[j]) / V
		}
		for i := 0; i < n; i++ {
			dX[i] -= c.inflow * X[i] / V
		}
	}
	dx[c.layout.VolumeIndex()] = c.inflow - c.outflow

	return dx
}

// availability computes the priority gate for species i: a consumed resource
// at rank r is available only when every resource this species ranks ahead
// of it is depleted below ActivationThreshold. Returns nil when the species
// has no positive rank (no gating).
func (c *ConsumerResource) availability(i int, S []float64) []bool {
	if c.priority == nil {
		return nil
	}
	ranks := c.priority.Row(i)
	gated := false
	for _, r := range ranks {
		if r > 0 {
			gated = true
			break
		}
	}
	if !gated {
		return nil
	}

	gate := make([]bool, len(ranks))
	for j, r := range ranks {
		if r == 0 {
			gate[j] = true
			continue
		}
		gate[j] = true
		for l, rl := range ranks {
			if rl > 0 && rl < r && S[l] >= ActivationThreshold {
				gate[j] = false
				break
			}
		}
	}
	return gate
}
