// Package noise implements the stochastic perturbation processes of the
// consumer-resource engine: continuous drift on the right-hand side,
// memoryless epoch shifts, sustained external perturbation windows,
// migration pulses from a metacommunity, and measurement error on the
// reported samples. Every draw flows through a single seeded source so
// runs are reproducible.
package noise

import (
	"fmt"
	"math"
	"math/rand"
)

// PerturbationEvent is a sustained additive perturbation applied to the
// right-hand side during [Time, Time+Duration).
type PerturbationEvent struct {
	Time     float64 `yaml:"time"`
	Duration float64 `yaml:"duration"`
	Sigma    float64 `yaml:"sigma"`
}

// Config bundles every noise parameter. Enabled is the master switch: when
// false no noise kind is evaluated regardless of its own parameters.
type Config struct {
	Enabled bool  `yaml:"enabled"`
	Seed    int64 `yaml:"seed"`

	SigmaDrift float64 `yaml:"sigma_drift"`

	EpochP     float64 `yaml:"epoch_p"`
	SigmaEpoch float64 `yaml:"sigma_epoch"`

	Events []PerturbationEvent `yaml:"events"`

	MigrationP     float64   `yaml:"migration_p"`
	SigmaMigration float64   `yaml:"sigma_migration"`
	Metacommunity  []float64 `yaml:"metacommunity"`

	MeasurementVariance float64 `yaml:"measurement_variance"`
}

func (c Config) Validate(nSpecies int) error {
	if !c.Enabled {
		return nil
	}
	if c.SigmaDrift < 0 || c.SigmaEpoch < 0 || c.SigmaMigration < 0 {
		return fmt.Errorf("noise sigmas must be non-negative")
	}
	if c.EpochP < 0 || c.MigrationP < 0 {
		return fmt.Errorf("noise event probabilities must be non-negative")
	}
	if c.MeasurementVariance < 0 {
		return fmt.Errorf("measurement_variance must be non-negative")
	}
	if c.MigrationP > 0 && len(c.Metacommunity) != nSpecies {
		return fmt.Errorf("metacommunity length %d, want %d", len(c.Metacommunity), nSpecies)
	}
	for i, ev := range c.Events {
		if ev.Duration < 0 || ev.Sigma < 0 {
			return fmt.Errorf("event %d: duration and sigma must be non-negative", i)
		}
	}
	return nil
}

// Source drives all stochastic draws for one run.
type Source struct {
	cfg  Config
	rng  *rand.Rand
	meta []float64
	dim  int // perturbed components: species + resources

	eventOffsets [][]float64
	errStdDev    float64
}

// NewSource builds a seeded source for a run over nSpecies + nResources
// perturbable state components. A disabled config yields a source whose
// every method is a no-op.
func NewSource(cfg Config, nSpecies, nResources int) *Source {
	s := &Source{
		cfg:       cfg,
		dim:       nSpecies + nResources,
		errStdDev: math.Sqrt(cfg.MeasurementVariance),
	}
	if !cfg.Enabled {
		return s
	}
	s.rng = rand.New(rand.NewSource(cfg.Seed))
	s.eventOffsets = make([][]float64, len(cfg.Events))

	if len(cfg.Metacommunity) == nSpecies {
		s.meta = make([]float64, nSpecies)
		total := 0.0
		for _, w := range cfg.Metacommunity {
			total += w
		}
		if total > 0 {
			for i, w := range cfg.Metacommunity {
				s.meta[i] = w / total
			}
		}
	}
	return s
}

func (s *Source) Enabled() bool { return s.cfg.Enabled }

// Drift returns one Gaussian right-hand-side perturbation with standard
// deviation sigma_drift. Called once per perturbed component per evaluation.
func (s *Source) Drift() float64 {
	if !s.cfg.Enabled || s.cfg.SigmaDrift == 0 {
		return 0
	}
	return s.rng.NormFloat64() * s.cfg.SigmaDrift
}

// EpochShift decides whether an epoch event fires in a step of length dt
// and, if so, returns the instantaneous additive shift for the (X, S) block.
func (s *Source) EpochShift(dt float64) ([]float64, bool) {
	if !s.cfg.Enabled || s.cfg.EpochP == 0 {
		return nil, false
	}
	if s.rng.Float64() >= s.cfg.EpochP*dt {
		return nil, false
	}
	shift := make([]float64, s.dim)
	for i := range shift {
		shift[i] = s.rng.NormFloat64() * s.cfg.SigmaEpoch
	}
	return shift, true
}

// ExternalTerm returns the summed right-hand-side contribution of every
// perturbation window active at time t. Each event's offset vector is drawn
// once, on first activation, and held for the whole window; overlapping
// windows simply add.
func (s *Source) ExternalTerm(t float64) []float64 {
	if !s.cfg.Enabled || len(s.cfg.Events) == 0 {
		return nil
	}
	var term []float64
	for i, ev := range s.cfg.Events {
		if t < ev.Time || t >= ev.Time+ev.Duration {
			continue
		}
		if s.eventOffsets[i] == nil {
			off := make([]float64, s.dim)
			for j := range off {
				off[j] = s.rng.NormFloat64() * ev.Sigma
			}
			s.eventOffsets[i] = off
		}
		if term == nil {
			term = make([]float64, s.dim)
		}
		for j, v := range s.eventOffsets[i] {
			term[j] += v
		}
	}
	return term
}

// MigrationPulse decides whether a migration event fires in a step of length
// dt and, if so, returns the biomass to add per species: one exponential
// magnitude scaled by sigma_migration, split across species in proportion to
// the metacommunity composition.
func (s *Source) MigrationPulse(dt float64) ([]float64, bool) {
	if !s.cfg.Enabled || s.cfg.MigrationP == 0 || s.meta == nil {
		return nil, false
	}
	if s.rng.Float64() >= s.cfg.MigrationP*dt {
		return nil, false
	}
	magnitude := s.rng.ExpFloat64() * s.cfg.SigmaMigration
	pulse := make([]float64, len(s.meta))
	for i, w := range s.meta {
		pulse[i] = magnitude * w
	}
	return pulse, true
}

// Measure applies additive Gaussian measurement error to a reported value.
// It never feeds back into the carried state.
func (s *Source) Measure(v float64) float64 {
	if !s.cfg.Enabled || s.cfg.MeasurementVariance == 0 {
		return v
	}
	return v + s.rng.NormFloat64()*s.errStdDev
}
