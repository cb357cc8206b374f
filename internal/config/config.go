// Package config loads and validates simulation descriptions from YAML and
// assembles the engine objects (coefficient matrix, dynamics, integrator,
// run grid) from them.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/microsim/internal/dynamics"
	"github.com/san-kum/microsim/internal/integrators"
	"github.com/san-kum/microsim/internal/matrix"
	"github.com/san-kum/microsim/internal/noise"
	"github.com/san-kum/microsim/internal/sim"
)

const (
	DefaultTEnd     = 750.0
	DefaultTStore   = 500
	DefaultSubsteps = 10
	DefaultMonod    = 1.0
	DefaultVolume   = 1.0
)

// MatrixConfig selects the coefficient matrix source: an explicit
// stoichiometric matrix supplied verbatim (validated only), or the
// structured random generator.
type MatrixConfig struct {
	Coefficients [][]float64             `yaml:"coefficients"`
	Generator    *matrix.GeneratorConfig `yaml:"generator"`
}

type Config struct {
	NSpecies   int `yaml:"n_species"`
	NResources int `yaml:"n_resources"`

	SpeciesNames  []string `yaml:"species_names"`
	ResourceNames []string `yaml:"resource_names"`

	GrowthRates []float64 `yaml:"growth_rates"`
	Offsets     []float64 `yaml:"offsets"`

	InitialSpecies   []float64 `yaml:"initial_species"`
	InitialResources []float64 `yaml:"initial_resources"`
	InitialVolume    float64   `yaml:"initial_volume"`

	InflowRate           float64   `yaml:"inflow_rate"`
	OutflowRate          float64   `yaml:"outflow_rate"`
	InflowConcentrations []float64 `yaml:"inflow_concentrations"`

	Matrix MatrixConfig `yaml:"matrix"`

	// MonodDefault fills a uniform half-saturation matrix; Monod overrides
	// it per pair when given.
	MonodDefault float64     `yaml:"monod_default"`
	Monod        [][]float64 `yaml:"monod"`

	// Priority holds per-species resource ranks (0 = ungated).
	Priority [][]float64 `yaml:"priority"`

	Integrator string  `yaml:"integrator"`
	TStart     float64 `yaml:"t_start"`
	TEnd       float64 `yaml:"t_end"`
	TStore     int     `yaml:"t_store"`
	Substeps   int     `yaml:"substeps"`

	Noise noise.Config `yaml:"noise"`
}

// Default returns the two-species, three-resource glucose batch community:
// both species eat resource 0, species 0 additionally eats resource 1 and
// secretes resource 2, species 1 secretes resource 1 and eats resource 2.
func Default() *Config {
	return &Config{
		NSpecies:         2,
		NResources:       3,
		SpeciesNames:     []string{"primary", "scavenger"},
		ResourceNames:    []string{"glucose", "acetate", "lactate"},
		GrowthRates:      []float64{1, 1},
		InitialSpecies:   []float64{2, 2},
		InitialResources: []float64{10, 0, 0},
		InitialVolume:    DefaultVolume,
		Matrix: MatrixConfig{
			Coefficients: [][]float64{
				{1, 0.5, -3},
				{1, -2, 0.16},
			},
		},
		MonodDefault: DefaultMonod,
		Integrator:   "rk4",
		TEnd:         DefaultTEnd,
		TStore:       DefaultTStore,
		Substeps:     DefaultSubsteps,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BuildMatrix produces the coefficient matrix: explicit coefficients are
// used verbatim (validated only), otherwise the generator runs.
func (c *Config) BuildMatrix() (*matrix.Matrix, error) {
	if c.Matrix.Coefficients != nil {
		e, err := matrix.FromRows(c.Matrix.Coefficients)
		if err != nil {
			return nil, sim.ConfigError{Field: "matrix.coefficients", Message: err.Error()}
		}
		if err := matrix.Validate(e); err != nil {
			return nil, sim.ConstraintError{Message: err.Error()}
		}
		return e, nil
	}
	if c.Matrix.Generator != nil {
		gen := *c.Matrix.Generator
		if gen.NSpecies == 0 {
			gen.NSpecies = c.NSpecies
		}
		if gen.NResources == 0 {
			gen.NResources = c.NResources
		}
		return matrix.Generate(gen)
	}
	return nil, sim.ConfigError{Field: "matrix", Message: "need explicit coefficients or generator parameters"}
}

// BuildSystem assembles the consumer-resource dynamics from the config.
func (c *Config) BuildSystem() (*dynamics.ConsumerResource, error) {
	e, err := c.BuildMatrix()
	if err != nil {
		return nil, err
	}

	monodDefault := c.MonodDefault
	if monodDefault == 0 {
		monodDefault = DefaultMonod
	}
	var monod *matrix.Matrix
	if c.Monod != nil {
		monod, err = matrix.FromRows(c.Monod)
		if err != nil {
			return nil, sim.ConfigError{Field: "monod", Message: err.Error()}
		}
	} else {
		monod = matrix.Constant(e.Rows, e.Cols, monodDefault)
	}

	var priority *matrix.Matrix
	if c.Priority != nil {
		priority, err = matrix.FromRows(c.Priority)
		if err != nil {
			return nil, sim.ConfigError{Field: "priority", Message: err.Error()}
		}
	}

	return dynamics.New(dynamics.Params{
		E:                    e,
		Monod:                monod,
		Priority:             priority,
		GrowthRates:          c.GrowthRates,
		Offsets:              c.Offsets,
		InflowRate:           c.InflowRate,
		OutflowRate:          c.OutflowRate,
		InflowConcentrations: c.InflowConcentrations,
	})
}

// BuildIntegrator resolves the integrator by name; empty selects RK4.
func (c *Config) BuildIntegrator() (sim.Integrator, error) {
	switch c.Integrator {
	case "", "rk4":
		return integrators.NewRK4(), nil
	case "euler":
		return integrators.NewEuler(), nil
	case "rk45":
		return integrators.NewRK45(), nil
	default:
		return nil, sim.ConfigError{Field: "integrator", Message: "unknown integrator " + c.Integrator}
	}
}

// InitialState packs the configured initial condition into the combined
// vector.
func (c *Config) InitialState() sim.State {
	x := make(sim.State, 0, len(c.InitialSpecies)+len(c.InitialResources)+1)
	x = append(x, c.InitialSpecies...)
	x = append(x, c.InitialResources...)
	volume := c.InitialVolume
	if volume == 0 {
		volume = DefaultVolume
	}
	return append(x, volume)
}

// RunConfig extracts the driver parameters.
func (c *Config) RunConfig() sim.RunConfig {
	return sim.RunConfig{
		TStart:        c.TStart,
		TEnd:          c.TEnd,
		TStore:        c.TStore,
		Substeps:      c.Substeps,
		Noise:         c.Noise,
		SpeciesNames:  c.SpeciesNames,
		ResourceNames: c.ResourceNames,
	}
}

// Validate performs the eager checks that do not need assembled matrices;
// shape checks against E happen in dynamics.New.
func (c *Config) Validate() error {
	if c.NSpecies <= 0 {
		return sim.ConfigError{Field: "n_species", Message: "must be positive"}
	}
	if c.NResources <= 0 {
		return sim.ConfigError{Field: "n_resources", Message: "must be positive"}
	}
	if len(c.GrowthRates) != c.NSpecies {
		return sim.ConfigError{Field: "growth_rates", Message: "need one rate per species"}
	}
	if len(c.InitialSpecies) != c.NSpecies {
		return sim.ConfigError{Field: "initial_species", Message: "need one abundance per species"}
	}
	if len(c.InitialResources) != c.NResources {
		return sim.ConfigError{Field: "initial_resources", Message: "need one concentration per resource"}
	}
	if c.InflowRate < 0 || c.OutflowRate < 0 {
		return sim.ConfigError{Field: "inflow_rate", Message: "flow rates must be non-negative"}
	}
	if c.TStore < 2 {
		return sim.ConfigError{Field: "t_store", Message: "must be at least 2"}
	}
	if c.TEnd <= c.TStart {
		return sim.ConfigError{Field: "t_end", Message: "must be greater than t_start"}
	}
	return nil
}
