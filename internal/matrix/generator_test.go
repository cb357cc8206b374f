package matrix_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/microsim/internal/matrix"
	"github.com/san-kum/microsim/internal/sim"
)

func rowSums(e *matrix.Matrix) (consumed, produced []float64) {
	consumed = make([]float64, e.Rows)
	produced = make([]float64, e.Rows)
	for i := 0; i < e.Rows; i++ {
		for _, v := range e.Row(i) {
			if v > 0 {
				consumed[i] += v
			} else {
				produced[i] -= v
			}
		}
	}
	return consumed, produced
}

var _ = Describe("Generate", func() {
	var cfg matrix.GeneratorConfig

	BeforeEach(func() {
		cfg = matrix.GeneratorConfig{
			NSpecies:        4,
			NResources:      6,
			MeanConsumption: 1,
			MeanProduction:  0.3,
			Maintenance:     0.2,
			Seed:            13,
		}
	})

	It("is deterministic for a fixed seed", func() {
		a, err := matrix.Generate(cfg)
		Expect(err).NotTo(HaveOccurred())
		b, err := matrix.Generate(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Data).To(Equal(b.Data))

		cfg.Seed = 14
		c, err := matrix.Generate(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Data).NotTo(Equal(a.Data))
	})

	It("normalizes each consumption row to 1 minus maintenance", func() {
		e, err := matrix.Generate(cfg)
		Expect(err).NotTo(HaveOccurred())
		consumed, _ := rowSums(e)
		for _, sum := range consumed {
			Expect(sum).To(BeNumerically("~", 0.8, 1e-9))
		}
	})

	It("never marks a resource as both consumed and produced", func() {
		e, err := matrix.Generate(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(matrix.Validate(e)).To(Succeed())
		// every entry is strictly one of: consumption, production, absent
		for _, v := range e.Data {
			Expect(v).To(SatisfyAny(
				BeNumerically(">", 0),
				BeNumerically("<", 0),
				BeZero(),
			))
		}
	})

	It("skips production when mean_production is zero", func() {
		cfg.MeanProduction = 0
		e, err := matrix.Generate(cfg)
		Expect(err).NotTo(HaveOccurred())
		_, produced := rowSums(e)
		for _, sum := range produced {
			Expect(sum).To(BeZero())
		}
	})

	It("biases consumption by the preference weights", func() {
		cfg.NSpecies = 1
		cfg.TrophicPreferences = [][]float64{{1, 0, 0, 0, 0, 0}}
		e, err := matrix.Generate(cfg)
		Expect(err).NotTo(HaveOccurred())

		row := e.Row(0)
		Expect(row[0]).To(BeNumerically("~", 0.8, 1e-9),
			"the single positive weight takes the whole normalized consumption")
		for j := 1; j < 6; j++ {
			Expect(row[j]).To(BeNumerically("<=", 0), "zero weight blocks consumption")
		}
	})

	Context("with a trophic chain", func() {
		BeforeEach(func() {
			cfg.TrophicLevels = []int{2, 1, 1}
		})

		It("confines each group's diet to its block and its secretion to the next", func() {
			e, err := matrix.Generate(cfg)
			Expect(err).NotTo(HaveOccurred())

			// 6 resources over 3 levels: blocks {0,1}, {2,3}, {4,5}
			blockOf := func(j int) int { return j / 2 }
			groupOf := []int{0, 0, 1, 2}

			for i := 0; i < e.Rows; i++ {
				g := groupOf[i]
				for j, v := range e.Row(i) {
					switch {
					case v > 0:
						Expect(blockOf(j)).To(Equal(g),
							"species %d consumes outside its block", i)
					case v < 0:
						Expect(blockOf(j)).To(Equal(g+1),
							"species %d secretes outside the next block", i)
					}
				}
			}
		})

		It("gives the last group nothing to secrete", func() {
			e, err := matrix.Generate(cfg)
			Expect(err).NotTo(HaveOccurred())
			for _, v := range e.Row(3) {
				Expect(v).To(BeNumerically(">=", 0))
			}
		})

		It("keeps upstream secretion flowing despite the no-overlap rule", func() {
			e, err := matrix.Generate(cfg)
			Expect(err).NotTo(HaveOccurred())
			_, produced := rowSums(e)
			Expect(produced[0]).To(BeNumerically(">", 0))
			Expect(produced[2]).To(BeNumerically(">", 0))
		})
	})

	Describe("validation", func() {
		It("rejects non-positive dimensions", func() {
			cfg.NSpecies = 0
			_, err := matrix.Generate(cfg)
			var cfgErr sim.ConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Field).To(Equal("n_species"))
		})

		It("rejects maintenance outside [0, 1)", func() {
			cfg.Maintenance = 1
			_, err := matrix.Generate(cfg)
			var cfgErr sim.ConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
		})

		It("rejects level sizes that do not sum to the species count", func() {
			cfg.TrophicLevels = []int{2, 3}
			_, err := matrix.Generate(cfg)
			var conErr sim.ConstraintError
			Expect(errors.As(err, &conErr)).To(BeTrue())
		})

		It("rejects more levels than resources", func() {
			cfg.NSpecies = 7
			cfg.NResources = 6
			cfg.TrophicLevels = []int{1, 1, 1, 1, 1, 1, 1}
			_, err := matrix.Generate(cfg)
			var conErr sim.ConstraintError
			Expect(errors.As(err, &conErr)).To(BeTrue())
		})

		It("rejects a species with no positive preference weight", func() {
			cfg.NSpecies = 1
			cfg.TrophicPreferences = [][]float64{{0, 0, 0, 0, 0, 0}}
			_, err := matrix.Generate(cfg)
			var cfgErr sim.ConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
		})

		It("rejects malformed preference vectors", func() {
			cfg.TrophicPreferences = [][]float64{{1, 1}}
			_, err := matrix.Generate(cfg)
			Expect(err).To(HaveOccurred())
		})
	})
})
