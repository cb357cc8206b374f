package sim

import "fmt"

// Series is a labeled, time-indexed table of sampled values. It is created
// fresh for every run and must be treated as immutable once returned;
// callers concatenate series from consecutive runs to emulate passaging.
type Series struct {
	Name   string
	Labels []string
	Times  []float64
	Values [][]float64
}

func newSeries(name string, labels []string, capacity int) Series {
	return Series{
		Name:   name,
		Labels: labels,
		Times:  make([]float64, 0, capacity),
		Values: make([][]float64, 0, capacity),
	}
}

func (s *Series) append(t float64, row []float64) {
	s.Times = append(s.Times, t)
	s.Values = append(s.Values, row)
}

// Len returns the number of stored samples.
func (s Series) Len() int { return len(s.Times) }

// Column extracts one labeled channel as a flat slice.
func (s Series) Column(j int) []float64 {
	col := make([]float64, len(s.Values))
	for i, row := range s.Values {
		col[i] = row[j]
	}
	return col
}

func defaultLabels(prefix string, n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("%s_%d", prefix, i)
	}
	return labels
}

// Result bundles the three output tables of one run.
type Result struct {
	Species    Series
	Resources  Series
	Volume     Series
	StepsTaken int

	// Err is non-nil when the run aborted mid-integration; the series hold
	// whatever samples were produced before the failure.
	Err error
}
