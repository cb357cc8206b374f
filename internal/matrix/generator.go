package matrix

import (
	"math/rand"

	"github.com/san-kum/microsim/internal/sim"
)

// GeneratorConfig parameterizes the structured random coefficient matrix.
// Draws come from the exponential family, so the consumption and production
// magnitudes are each controlled by a single mean.
type GeneratorConfig struct {
	NSpecies   int `yaml:"n_species"`
	NResources int `yaml:"n_resources"`

	MeanConsumption float64 `yaml:"mean_consumption"`
	MeanProduction  float64 `yaml:"mean_production"`

	// Maintenance is the fraction of consumed flux lost to cellular upkeep,
	// removed from the flux available for secretion. Must lie in [0, 1).
	Maintenance float64 `yaml:"maintenance"`

	// TrophicLevels partitions species into ordered groups forming a linear
	// cross-feeding chain; the sizes must sum to NSpecies. Nested or
	// branching topologies are not derived here: call Generate once per node
	// and assemble the rows with Stack.
	TrophicLevels []int `yaml:"trophic_levels"`

	// TrophicPreferences optionally biases each species' consumption draw:
	// one weight vector of length NResources per species. Higher weight
	// means proportionally larger expected consumption.
	TrophicPreferences [][]float64 `yaml:"trophic_preferences"`

	Seed int64 `yaml:"seed"`
}

// Generate builds an n-by-k coefficient matrix: per species, exponential
// consumption magnitudes (biased by preferences) normalized to sum to
// 1 - maintenance, plus negated production magnitudes on resources the
// species does not itself consume. Deterministic for a fixed Seed.
func Generate(cfg GeneratorConfig) (*Matrix, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	e := New(cfg.NSpecies, cfg.NResources)

	meanC := cfg.MeanConsumption
	if meanC == 0 {
		meanC = 1
	}

	groups := cfg.speciesGroups()
	blocks := resourceBlocks(cfg.NResources, len(cfg.TrophicLevels))

	for i := 0; i < cfg.NSpecies; i++ {
		row := e.Row(i)
		g := groups[i]

		// Consumption: an unpartitioned community draws over every resource.
		// In a chain, group g eats block g: block 0 is the externally fed
		// diet, every later block is what the upstream group secretes.
		// Group 0 cannot eat downstream blocks or the no-overlap rule would
		// erase its own secretion and starve the chain.
		consumable := allResources(cfg.NResources)
		if len(cfg.TrophicLevels) > 0 {
			consumable = blocks[g]
		}

		sum := 0.0
		for _, j := range consumable {
			w := 1.0
			if cfg.TrophicPreferences != nil {
				w = cfg.TrophicPreferences[i][j]
			}
			if w <= 0 {
				continue
			}
			row[j] = rng.ExpFloat64() * meanC * w
			sum += row[j]
		}
		if sum == 0 {
			return nil, sim.ConfigError{Field: "trophic_preferences", Message: "no positive consumption weight for a species"}
		}
		scale := (1 - cfg.Maintenance) / sum
		for _, j := range consumable {
			row[j] *= scale
		}

		// Production: never on a resource this species consumes. With a
		// trophic chain the last group secretes nothing.
		if cfg.MeanProduction > 0 {
			producible := allResources(cfg.NResources)
			if len(cfg.TrophicLevels) > 0 {
				if g == len(cfg.TrophicLevels)-1 {
					producible = nil
				} else {
					producible = blocks[g+1]
				}
			}
			for _, j := range producible {
				if row[j] != 0 {
					continue
				}
				row[j] = -rng.ExpFloat64() * cfg.MeanProduction
			}
		}
	}

	return e, nil
}

func (cfg GeneratorConfig) validate() error {
	if cfg.NSpecies <= 0 {
		return sim.ConfigError{Field: "n_species", Message: "must be positive"}
	}
	if cfg.NResources <= 0 {
		return sim.ConfigError{Field: "n_resources", Message: "must be positive"}
	}
	if cfg.Maintenance < 0 || cfg.Maintenance >= 1 {
		return sim.ConfigError{Field: "maintenance", Message: "must lie in [0, 1)"}
	}
	if cfg.MeanConsumption < 0 || cfg.MeanProduction < 0 {
		return sim.ConfigError{Field: "mean_consumption", Message: "means must be non-negative"}
	}
	if cfg.TrophicPreferences != nil {
		if len(cfg.TrophicPreferences) != cfg.NSpecies {
			return sim.ConfigError{Field: "trophic_preferences", Message: "need one weight vector per species"}
		}
		for _, prefs := range cfg.TrophicPreferences {
			if len(prefs) != cfg.NResources {
				return sim.ConfigError{Field: "trophic_preferences", Message: "weight vector length must equal n_resources"}
			}
			for _, w := range prefs {
				if w < 0 {
					return sim.ConfigError{Field: "trophic_preferences", Message: "weights must be non-negative"}
				}
			}
		}
	}
	if len(cfg.TrophicLevels) > 0 {
		total := 0
		for _, size := range cfg.TrophicLevels {
			if size <= 0 {
				return sim.ConstraintError{Message: "trophic level sizes must be positive"}
			}
			total += size
		}
		if total != cfg.NSpecies {
			return sim.ConstraintError{Message: "trophic level sizes must sum to n_species"}
		}
		if len(cfg.TrophicLevels) > cfg.NResources {
			return sim.ConstraintError{Message: "more trophic levels than resources"}
		}
	}
	return nil
}

// speciesGroups maps each species index to its trophic group (0 when no
// partition is configured).
func (cfg GeneratorConfig) speciesGroups() []int {
	groups := make([]int, cfg.NSpecies)
	if len(cfg.TrophicLevels) == 0 {
		return groups
	}
	i := 0
	for g, size := range cfg.TrophicLevels {
		for n := 0; n < size; n++ {
			groups[i] = g
			i++
		}
	}
	return groups
}

// resourceBlocks splits k resources into m contiguous blocks, as evenly as
// possible. Block g holds the secretion targets of group g-1 and therefore
// the diet of group g.
func resourceBlocks(k, m int) [][]int {
	if m == 0 {
		return nil
	}
	blocks := make([][]int, m)
	start := 0
	for g := 0; g < m; g++ {
		end := (g + 1) * k / m
		block := make([]int, 0, end-start)
		for j := start; j < end; j++ {
			block = append(block, j)
		}
		blocks[g] = block
		start = end
	}
	return blocks
}

func allResources(k int) []int {
	out := make([]int, k)
	for j := range out {
		out[j] = j
	}
	return out
}
