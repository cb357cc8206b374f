// Package storage archives simulation runs: one directory per run holding
// metadata.json plus one CSV per output table.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/microsim/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	NSpecies    int       `json:"n_species"`
	NResources  int       `json:"n_resources"`
	Integrator  string    `json:"integrator"`
	TStart      float64   `json:"t_start"`
	TEnd        float64   `json:"t_end"`
	TStore      int       `json:"t_store"`
	InflowRate  float64   `json:"inflow_rate"`
	OutflowRate float64   `json:"outflow_rate"`
	Stochastic  bool      `json:"stochastic"`
	Seed        int64     `json:"seed"`
	Aborted     string    `json:"aborted,omitempty"`
}

var seriesFiles = map[string]func(*sim.Result) sim.Series{
	"species.csv":   func(r *sim.Result) sim.Series { return r.Species },
	"resources.csv": func(r *sim.Result) sim.Series { return r.Resources },
	"volume.csv":    func(r *sim.Result) sim.Series { return r.Volume },
}

// Save writes a run directory and returns its ID. Aborted runs are saved
// too: the partial series is the diagnostic.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	runID := fmt.Sprintf("run_%d", time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()
	meta.NSpecies = len(result.Species.Labels)
	meta.NResources = len(result.Resources.Labels)
	meta.TStore = result.Species.Len()
	if result.Err != nil {
		meta.Aborted = result.Err.Error()
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	for name, pick := range seriesFiles {
		if err := writeSeries(filepath.Join(runDir, name), pick(result)); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func writeSeries(path string, series sim.Series) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	header := append([]string{"time"}, series.Labels...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, t := range series.Times {
		row := make([]string, 0, len(series.Labels)+1)
		row = append(row, strconv.FormatFloat(t, 'f', 6, 64))
		for _, v := range series.Values[i] {
			row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSeries reads one of species.csv, resources.csv, or volume.csv back
// into a Series.
func (s *Store) LoadSeries(runID, table string) (*sim.Series, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, table+".csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("storage: %s/%s is empty", runID, table)
	}

	series := &sim.Series{
		Name:   table,
		Labels: records[0][1:],
		Times:  make([]float64, 0, len(records)-1),
		Values: make([][]float64, 0, len(records)-1),
	}
	for _, record := range records[1:] {
		if len(record) != len(records[0]) {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		row := make([]float64, 0, len(record)-1)
		ok := true
		for _, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			row = append(row, v)
		}
		if !ok {
			continue
		}
		series.Times = append(series.Times, t)
		series.Values = append(series.Values, row)
	}
	return series, nil
}
