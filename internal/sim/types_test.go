package sim

import (
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"zeros", State{0.0, 0.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Clamp(t *testing.T) {
	s := State{1.0, -0.5, 0.0, -1e-12}
	s.Clamp()
	for i, v := range s {
		if v < 0 {
			t.Errorf("component %d still negative: %v", i, v)
		}
	}
	if s[0] != 1.0 {
		t.Errorf("positive component changed: %v", s[0])
	}
}

func TestState_Clone(t *testing.T) {
	s := State{1, 2, 3}
	c := s.Clone()
	c[0] = 99
	if s[0] == 99 {
		t.Error("Clone did not create independent copy")
	}
}

func TestStateLayout(t *testing.T) {
	layout := StateLayout{NSpecies: 2, NResources: 3}
	if layout.Dim() != 6 {
		t.Errorf("Dim() = %d, want 6", layout.Dim())
	}

	x := State{1, 2, 10, 20, 30, 5}
	species := layout.Species(x)
	if len(species) != 2 || species[0] != 1 || species[1] != 2 {
		t.Errorf("Species slice wrong: %v", species)
	}
	resources := layout.Resources(x)
	if len(resources) != 3 || resources[0] != 10 || resources[2] != 30 {
		t.Errorf("Resources slice wrong: %v", resources)
	}
	if layout.Volume(x) != 5 {
		t.Errorf("Volume = %v, want 5", layout.Volume(x))
	}

	// slices alias the backing array
	species[0] = 7
	if x[0] != 7 {
		t.Error("Species should alias the state vector")
	}
}

func TestErrorStrings(t *testing.T) {
	cfgErr := ConfigError{Field: "t_store", Message: "must be at least 2"}
	if cfgErr.Error() != "config t_store: must be at least 2" {
		t.Errorf("ConfigError.Error() = %q", cfgErr.Error())
	}

	numErr := NumericalError{Time: 1.5, Step: 150}
	if numErr.Error() != "non-finite state at step 150 (t=1.5000)" {
		t.Errorf("NumericalError.Error() = %q", numErr.Error())
	}

	conErr := ConstraintError{Message: "trophic level sizes must sum to n_species"}
	if conErr.Error() != "constraint violated: trophic level sizes must sum to n_species" {
		t.Errorf("ConstraintError.Error() = %q", conErr.Error())
	}
}
