package config

import (
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/san-kum/microsim/internal/sim"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if _, err := cfg.BuildSystem(); err != nil {
		t.Fatalf("default system: %v", err)
	}
	x0 := cfg.InitialState()
	if len(x0) != cfg.NSpecies+cfg.NResources+1 {
		t.Fatalf("initial state length %d, want %d", len(x0), cfg.NSpecies+cfg.NResources+1)
	}
	if x0[len(x0)-1] != DefaultVolume {
		t.Errorf("initial volume %v, want %v", x0[len(x0)-1], DefaultVolume)
	}
}

func TestAllPresetsBuild(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			if cfg == nil {
				t.Fatal("preset missing")
			}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if _, err := cfg.BuildSystem(); err != nil {
				t.Fatalf("BuildSystem: %v", err)
			}
			if _, err := cfg.BuildIntegrator(); err != nil {
				t.Fatalf("BuildIntegrator: %v", err)
			}
			if err := cfg.Noise.Validate(cfg.NSpecies); err != nil {
				t.Fatalf("noise: %v", err)
			}
		})
	}
}

func TestGetPresetUnknown(t *testing.T) {
	if GetPreset("no_such_preset") != nil {
		t.Error("unknown preset should return nil")
	}
}

func TestListPresetsComplete(t *testing.T) {
	names := ListPresets()
	sort.Strings(names)
	want := []string{"chemostat", "diauxie", "fed_batch", "glucose_batch", "noisy_batch", "trophic_chain"}
	if len(names) != len(want) {
		t.Fatalf("got %d presets, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("preset %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero species", func(c *Config) { c.NSpecies = 0 }, "n_species"},
		{"growth rate count", func(c *Config) { c.GrowthRates = []float64{1} }, "growth_rates"},
		{"initial species count", func(c *Config) { c.InitialSpecies = []float64{1} }, "initial_species"},
		{"initial resource count", func(c *Config) { c.InitialResources = nil }, "initial_resources"},
		{"negative outflow", func(c *Config) { c.OutflowRate = -1 }, "inflow_rate"},
		{"t_store too small", func(c *Config) { c.TStore = 1 }, "t_store"},
		{"t_end before t_start", func(c *Config) { c.TStart = 800 }, "t_end"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			var cfgErr sim.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("got %v, want ConfigError", err)
			}
			if cfgErr.Field != tc.field {
				t.Errorf("field %q, want %q", cfgErr.Field, tc.field)
			}
		})
	}
}

func TestBuildMatrixSources(t *testing.T) {
	t.Run("explicit coefficients verbatim", func(t *testing.T) {
		cfg := Default()
		e, err := cfg.BuildMatrix()
		if err != nil {
			t.Fatalf("BuildMatrix: %v", err)
		}
		if e.At(0, 2) != -3 {
			t.Errorf("At(0,2) = %v, want -3", e.At(0, 2))
		}
	})

	t.Run("generator inherits counts", func(t *testing.T) {
		cfg := GetPreset("trophic_chain")
		e, err := cfg.BuildMatrix()
		if err != nil {
			t.Fatalf("BuildMatrix: %v", err)
		}
		if e.Rows != cfg.NSpecies || e.Cols != cfg.NResources {
			t.Errorf("got %dx%d, want %dx%d", e.Rows, e.Cols, cfg.NSpecies, cfg.NResources)
		}
	})

	t.Run("no source", func(t *testing.T) {
		cfg := Default()
		cfg.Matrix = MatrixConfig{}
		if _, err := cfg.BuildMatrix(); err == nil {
			t.Error("missing matrix source must fail")
		}
	})

	t.Run("ragged coefficients", func(t *testing.T) {
		cfg := Default()
		cfg.Matrix.Coefficients = [][]float64{{1, 2}, {3}}
		if _, err := cfg.BuildMatrix(); err == nil {
			t.Error("ragged coefficients must fail")
		}
	})
}

func TestBuildIntegratorNames(t *testing.T) {
	for _, name := range []string{"", "rk4", "euler", "rk45"} {
		cfg := Default()
		cfg.Integrator = name
		if _, err := cfg.BuildIntegrator(); err != nil {
			t.Errorf("integrator %q: %v", name, err)
		}
	}
	cfg := Default()
	cfg.Integrator = "leapfrog"
	if _, err := cfg.BuildIntegrator(); err == nil {
		t.Error("unknown integrator must fail")
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	cfg := GetPreset("noisy_batch")
	cfg.TEnd = 123
	cfg.Priority = [][]float64{{1, 2, 0}, {1, 0, 2}}

	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TEnd != 123 {
		t.Errorf("TEnd = %v, want 123", loaded.TEnd)
	}
	if !loaded.Noise.Enabled || loaded.Noise.Seed != 42 {
		t.Error("noise block did not survive the roundtrip")
	}
	if len(loaded.Priority) != 2 || loaded.Priority[0][1] != 2 {
		t.Error("priority matrix did not survive the roundtrip")
	}
	if loaded.SpeciesNames[1] != "scavenger" {
		t.Error("names did not survive the roundtrip")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file must fail")
	}
}

func TestRunConfigExtraction(t *testing.T) {
	cfg := Default()
	cfg.TStart = 5
	rc := cfg.RunConfig()
	if rc.TStart != 5 || rc.TEnd != cfg.TEnd || rc.TStore != cfg.TStore {
		t.Error("grid parameters not carried through")
	}
	if rc.Substeps != cfg.Substeps {
		t.Error("substeps not carried through")
	}
	if len(rc.SpeciesNames) != cfg.NSpecies {
		t.Error("names not carried through")
	}
}
