package config

import (
	"github.com/san-kum/microsim/internal/matrix"
	"github.com/san-kum/microsim/internal/noise"
)

// Presets are ready-made community scenarios for the CLI.
var Presets = map[string]func() *Config{
	// Closed culture: glucose is consumed to exhaustion while the two
	// cross-feeding by-products accumulate and are re-consumed.
	"glucose_batch": Default,

	// Continuous culture: constant volume, fresh glucose in, culture out.
	"chemostat": func() *Config {
		cfg := Default()
		cfg.InflowRate = 0.02
		cfg.OutflowRate = 0.02
		cfg.InflowConcentrations = []float64{10, 0, 0}
		cfg.TEnd = 2000
		return cfg
	},

	// Feeding without harvest: the volume grows and dilutes the culture.
	"fed_batch": func() *Config {
		cfg := Default()
		cfg.InflowRate = 0.01
		cfg.InflowConcentrations = []float64{10, 0, 0}
		cfg.TEnd = 1000
		return cfg
	},

	// Diauxic growth: both species prefer glucose and only switch to the
	// by-products once it is depleted.
	"diauxie": func() *Config {
		cfg := Default()
		cfg.Matrix.Coefficients = [][]float64{
			{0.7, 0.3, -1},
			{0.6, -1, 0.4},
		}
		cfg.Priority = [][]float64{
			{1, 2, 0},
			{1, 0, 2},
		}
		return cfg
	},

	// Generated three-level cross-feeding chain over nine resources.
	"trophic_chain": func() *Config {
		cfg := Default()
		cfg.NSpecies = 6
		cfg.NResources = 9
		cfg.SpeciesNames = nil
		cfg.ResourceNames = nil
		cfg.GrowthRates = []float64{1, 1, 1, 1, 1, 1}
		cfg.InitialSpecies = []float64{1, 1, 1, 1, 1, 1}
		cfg.InitialResources = []float64{10, 10, 10, 0, 0, 0, 0, 0, 0}
		cfg.Matrix = MatrixConfig{
			Generator: &matrix.GeneratorConfig{
				MeanConsumption: 1,
				MeanProduction:  0.5,
				Maintenance:     0.3,
				TrophicLevels:   []int{2, 2, 2},
				Seed:            7,
			},
		}
		cfg.TEnd = 400
		return cfg
	},

	// Default community under drift, epoch shifts, and measurement error.
	"noisy_batch": func() *Config {
		cfg := Default()
		cfg.Noise = noise.Config{
			Enabled:             true,
			Seed:                42,
			SigmaDrift:          0.001,
			EpochP:              0.01,
			SigmaEpoch:          0.05,
			MigrationP:          0.005,
			SigmaMigration:      0.1,
			Metacommunity:       []float64{0.5, 0.5},
			MeasurementVariance: 0.0001,
		}
		return cfg
	},
}

func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
