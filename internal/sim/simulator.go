package sim

import (
	"context"

	"github.com/san-kum/microsim/internal/noise"
)

// RunConfig describes one simulation run: the sampling grid, the substep
// resolution of the integrator, the stochastic bundle, and cosmetic labels
// carried through to the output tables.
type RunConfig struct {
	TStart float64
	TEnd   float64

	// TStore is the number of evenly spaced samples over [TStart, TEnd]
	// inclusive; must be at least 2.
	TStore int

	// Substeps is the number of integrator steps between consecutive
	// samples. Zero selects DefaultSubsteps.
	Substeps int

	Noise noise.Config

	SpeciesNames  []string
	ResourceNames []string
}

const DefaultSubsteps = 10

// Simulator owns the (X, S, V) state vector for the duration of a run and
// advances it through the integrator collaborator. Resuming is supported by
// passing a non-zero TStart with caller-supplied state; serial passaging is
// composed externally by diluting the final state and re-invoking Run.
type Simulator struct {
	sys   System
	integ Integrator
}

func New(sys System, integ Integrator) *Simulator {
	return &Simulator{sys: sys, integ: integ}
}

// perturbedSystem layers drift and external-perturbation terms onto the
// inner right-hand side. Volume is never perturbed.
type perturbedSystem struct {
	inner System
	src   *noise.Source
	n     int // species + resource components
}

func (p *perturbedSystem) Layout() StateLayout { return p.inner.Layout() }

func (p *perturbedSystem) Derive(x State, t float64) State {
	dx := p.inner.Derive(x, t)
	for i := 0; i < p.n; i++ {
		dx[i] += p.src.Drift()
	}
	if term := p.src.ExternalTerm(t); term != nil {
		for i, v := range term {
			dx[i] += v
		}
	}
	return dx
}

// Run integrates from TStart to TEnd and returns the three sampled series.
// On numerical failure the partial result is returned alongside the error.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg RunConfig) (*Result, error) {
	layout := s.sys.Layout()
	if err := s.validate(x0, cfg, layout); err != nil {
		return nil, err
	}

	substeps := cfg.Substeps
	if substeps == 0 {
		substeps = DefaultSubsteps
	}
	speciesNames := cfg.SpeciesNames
	if speciesNames == nil {
		speciesNames = defaultLabels("species", layout.NSpecies)
	}
	resourceNames := cfg.ResourceNames
	if resourceNames == nil {
		resourceNames = defaultLabels("resource", layout.NResources)
	}

	result := &Result{
		Species:   newSeries("species", speciesNames, cfg.TStore),
		Resources: newSeries("resources", resourceNames, cfg.TStore),
		Volume:    newSeries("volume", []string{"volume"}, cfg.TStore),
	}

	src := noise.NewSource(cfg.Noise, layout.NSpecies, layout.NResources)
	sys := s.sys
	if src.Enabled() {
		sys = &perturbedSystem{inner: s.sys, src: src, n: layout.NSpecies + layout.NResources}
	}

	x := x0.Clone()
	t := cfg.TStart
	interval := (cfg.TEnd - cfg.TStart) / float64(cfg.TStore-1)

	s.sample(result, x, t, layout, src)

	for i := 1; i < cfg.TStore; i++ {
		target := cfg.TStart + float64(i)*interval
		dt := (target - t) / float64(substeps)

		for k := 0; k < substeps; k++ {
			select {
			case <-ctx.Done():
				result.Err = ctx.Err()
				return result, ctx.Err()
			default:
			}

			x = s.integ.Step(sys, x, t, dt)
			t += dt
			x.Clamp()

			if !x.IsValid() {
				err := NumericalError{Time: t, Step: result.StepsTaken}
				result.Err = err
				return result, err
			}

			if shift, ok := src.EpochShift(dt); ok {
				for j, v := range shift {
					x[j] += v
				}
				x.Clamp()
			}
			if pulse, ok := src.MigrationPulse(dt); ok {
				for j, v := range pulse {
					x[j] += v
				}
			}
			result.StepsTaken++
		}

		t = target
		s.sample(result, x, t, layout, src)
	}

	return result, nil
}

// sample emits one row into each output table. Measurement error perturbs
// only the emitted copies, never the carried state; reported abundances and
// concentrations are clamped at zero.
func (s *Simulator) sample(result *Result, x State, t float64, layout StateLayout, src *noise.Source) {
	speciesRow := make([]float64, layout.NSpecies)
	for i, v := range layout.Species(x) {
		speciesRow[i] = max(src.Measure(v), 0)
	}
	resourceRow := make([]float64, layout.NResources)
	for j, v := range layout.Resources(x) {
		resourceRow[j] = max(src.Measure(v), 0)
	}
	result.Species.append(t, speciesRow)
	result.Resources.append(t, resourceRow)
	result.Volume.append(t, []float64{layout.Volume(x)})
}

func (s *Simulator) validate(x0 State, cfg RunConfig, layout StateLayout) error {
	if cfg.TStore < 2 {
		return ConfigError{Field: "t_store", Message: "must be at least 2"}
	}
	if cfg.TEnd <= cfg.TStart {
		return ConfigError{Field: "t_end", Message: "must be greater than t_start"}
	}
	if cfg.Substeps < 0 {
		return ConfigError{Field: "substeps", Message: "must be non-negative"}
	}
	if len(x0) != layout.Dim() {
		return ConfigError{Field: "initial_state", Message: "length does not match layout"}
	}
	if !x0.IsValid() {
		return ConfigError{Field: "initial_state", Message: "contains non-finite values"}
	}
	for _, v := range x0 {
		if v < 0 {
			return ConfigError{Field: "initial_state", Message: "contains negative values"}
		}
	}
	if cfg.SpeciesNames != nil && len(cfg.SpeciesNames) != layout.NSpecies {
		return ConfigError{Field: "species_names", Message: "length does not match species count"}
	}
	if cfg.ResourceNames != nil && len(cfg.ResourceNames) != layout.NResources {
		return ConfigError{Field: "resource_names", Message: "length does not match resource count"}
	}
	if err := cfg.Noise.Validate(layout.NSpecies); err != nil {
		return ConfigError{Field: "noise", Message: err.Error()}
	}
	return nil
}
