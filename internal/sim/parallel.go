package sim

import (
	"context"
	"sync"
)

// Channel selects one of the three output tables of a Result.
type Channel int

const (
	SpeciesChannel Channel = iota
	ResourcesChannel
	VolumeChannel
)

func (r *Result) series(ch Channel) Series {
	switch ch {
	case ResourcesChannel:
		return r.Resources
	case VolumeChannel:
		return r.Volume
	default:
		return r.Species
	}
}

// Ensemble runs independent replicates of a simulation concurrently. Each
// replicate owns wholly private state, so no synchronization beyond the
// final join is needed. The factory receives the replicate's seed and builds
// a fresh simulator, initial state, and run config.
type Ensemble struct {
	factory   func(seed int64) (*Simulator, State, RunConfig, error)
	numRuns   int
	seedStart int64
}

func NewEnsemble(factory func(seed int64) (*Simulator, State, RunConfig, error), numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{factory: factory, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	if e.numRuns <= 0 {
		return nil, ConfigError{Field: "replicates", Message: "must be positive"}
	}

	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sim, x0, cfg, err := e.factory(e.seedStart + int64(idx))
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = sim.Run(ctx, x0, cfg)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// AggregateAt computes per-column mean and population variance of one output
// channel at a single sample index across replicates, and returns the raw
// values alongside.
func AggregateAt(results []*Result, ch Channel, sampleIdx int) (mean, variance []float64, raw [][]float64, err error) {
	if len(results) == 0 {
		return nil, nil, nil, ConfigError{Field: "results", Message: "no replicates to aggregate"}
	}

	raw = make([][]float64, len(results))
	for i, r := range results {
		s := r.series(ch)
		if sampleIdx < 0 || sampleIdx >= s.Len() {
			return nil, nil, nil, ConfigError{Field: "sample_index", Message: "out of range"}
		}
		raw[i] = s.Values[sampleIdx]
	}

	cols := len(raw[0])
	mean = make([]float64, cols)
	variance = make([]float64, cols)

	for _, row := range raw {
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(raw))
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range raw {
		for j, v := range row {
			d := v - mean[j]
			variance[j] += d * d
		}
	}
	for j := range variance {
		variance[j] /= n
	}
	return mean, variance, raw, nil
}
