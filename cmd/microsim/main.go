package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/microsim/internal/config"
	"github.com/san-kum/microsim/internal/matrix"
	"github.com/san-kum/microsim/internal/sim"
	"github.com/san-kum/microsim/internal/storage"
	"github.com/san-kum/microsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	tEnd       float64
	tStore     int
	substeps   int
	integrator string
	seed       int64
	stochastic bool
	// replicates
	numReplicates int
	sampleIndex   int
	channelName   string
	// plot
	tableName string
	// generate
	genSpecies     int
	genResources   int
	genConsumption float64
	genProduction  float64
	genMaintenance float64
	genLevels      []int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "microsim",
		Short: "microbial consumer-resource community simulator",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".microsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and archive the series",
		RunE:  runSimulation,
	}
	addScenarioFlags(runCmd)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "generate a coefficient matrix",
		RunE:  generateMatrix,
	}
	generateCmd.Flags().IntVar(&genSpecies, "species", 4, "number of species")
	generateCmd.Flags().IntVar(&genResources, "resources", 6, "number of resources")
	generateCmd.Flags().Float64Var(&genConsumption, "consumption", 1.0, "mean consumption magnitude")
	generateCmd.Flags().Float64Var(&genProduction, "production", 0.5, "mean production magnitude")
	generateCmd.Flags().Float64Var(&genMaintenance, "maintenance", 0.3, "maintenance fraction [0,1)")
	generateCmd.Flags().IntSliceVar(&genLevels, "levels", nil, "trophic level sizes (must sum to species)")
	generateCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")

	replicatesCmd := &cobra.Command{
		Use:   "replicates",
		Short: "run replicate simulations and aggregate moments at a sample",
		RunE:  runReplicates,
	}
	addScenarioFlags(replicatesCmd)
	replicatesCmd.Flags().IntVar(&numReplicates, "n", 10, "number of replicates")
	replicatesCmd.Flags().IntVar(&sampleIndex, "sample", -1, "sample index (-1 = last)")
	replicatesCmd.Flags().StringVar(&channelName, "channel", "species", "channel: species|resources|volume")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list archived runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot an archived run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&tableName, "table", "species", "table: species|resources|volume")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write an archived table to stdout as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVar(&tableName, "table", "species", "table: species|resources|volume")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write run metadata to stdout as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "watch a simulation evolve in the terminal",
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)

	rootCmd.AddCommand(runCmd, generateCmd, replicatesCmd, listCmd, plotCmd,
		exportCSVCmd, exportJSONCmd, presetsCmd, liveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "preset scenario name")
	cmd.Flags().Float64Var(&tEnd, "t-end", 0, "override end time")
	cmd.Flags().IntVar(&tStore, "t-store", 0, "override number of stored samples")
	cmd.Flags().IntVar(&substeps, "substeps", 0, "override integrator substeps per sample")
	cmd.Flags().StringVar(&integrator, "integrator", "", "override integrator: euler|rk4|rk45")
	cmd.Flags().Int64Var(&seed, "seed", 0, "override noise seed")
	cmd.Flags().BoolVar(&stochastic, "stochastic", false, "force the noise master switch on")
}

// loadScenario resolves preset, config file, and flag overrides, in that
// order of precedence (flags win).
func loadScenario(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("t-end") {
		cfg.TEnd = tEnd
	}
	if cmd.Flags().Changed("t-store") {
		cfg.TStore = tStore
	}
	if cmd.Flags().Changed("substeps") {
		cfg.Substeps = substeps
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("seed") {
		cfg.Noise.Seed = seed
	}
	if cmd.Flags().Changed("stochastic") {
		cfg.Noise.Enabled = stochastic
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildSimulator(cfg *config.Config) (*sim.Simulator, sim.State, sim.RunConfig, error) {
	sys, err := cfg.BuildSystem()
	if err != nil {
		return nil, nil, sim.RunConfig{}, err
	}
	integ, err := cfg.BuildIntegrator()
	if err != nil {
		return nil, nil, sim.RunConfig{}, err
	}
	return sim.New(sys, integ), cfg.InitialState(), cfg.RunConfig(), nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd)
	if err != nil {
		return err
	}

	simulator, x0, runCfg, err := buildSimulator(cfg)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	start := time.Now()
	result, runErr := simulator.Run(context.Background(), x0, runCfg)
	elapsed := time.Since(start)

	if result == nil {
		return runErr
	}

	runID, err := st.Save(storage.RunMetadata{
		Integrator:  cfg.Integrator,
		TStart:      cfg.TStart,
		TEnd:        cfg.TEnd,
		InflowRate:  cfg.InflowRate,
		OutflowRate: cfg.OutflowRate,
		Stochastic:  cfg.Noise.Enabled,
		Seed:        cfg.Noise.Seed,
	}, result)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("steps: %d in %v\n", result.StepsTaken, elapsed)
	if runErr != nil {
		fmt.Printf("aborted: %v (partial series archived)\n", runErr)
	}
	fmt.Println()
	fmt.Println(viz.PlotSeries(result.Species, 80, 12))
	fmt.Println(viz.Summary(result.Species))
	fmt.Println(viz.Summary(result.Resources))
	return nil
}

func generateMatrix(cmd *cobra.Command, args []string) error {
	e, err := matrix.Generate(matrix.GeneratorConfig{
		NSpecies:        genSpecies,
		NResources:      genResources,
		MeanConsumption: genConsumption,
		MeanProduction:  genProduction,
		Maintenance:     genMaintenance,
		TrophicLevels:   genLevels,
		Seed:            seed,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprint(w, "species")
	for j := 0; j < e.Cols; j++ {
		fmt.Fprintf(w, "\tr%d", j)
	}
	fmt.Fprintln(w)
	for i := 0; i < e.Rows; i++ {
		fmt.Fprintf(w, "s%d", i)
		for j := 0; j < e.Cols; j++ {
			fmt.Fprintf(w, "\t%+.3f", e.At(i, j))
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func runReplicates(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd)
	if err != nil {
		return err
	}

	baseSeed := cfg.Noise.Seed
	ensemble := sim.NewEnsemble(func(replicateSeed int64) (*sim.Simulator, sim.State, sim.RunConfig, error) {
		replicaCfg := *cfg
		replicaCfg.Noise.Seed = replicateSeed
		return buildSimulator(&replicaCfg)
	}, numReplicates, baseSeed)

	results, err := ensemble.Run(context.Background())
	if err != nil {
		return err
	}

	channel := sim.SpeciesChannel
	switch channelName {
	case "resources":
		channel = sim.ResourcesChannel
	case "volume":
		channel = sim.VolumeChannel
	}

	idx := sampleIndex
	if idx < 0 {
		idx = results[0].Species.Len() - 1
	}
	mean, variance, raw, err := sim.AggregateAt(results, channel, idx)
	if err != nil {
		return err
	}

	fmt.Printf("replicates: %d, channel: %s, sample: %d (t=%.2f)\n\n",
		len(raw), channelName, idx, results[0].Species.Times[idx])

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "column\tmean\tvariance")
	for j := range mean {
		fmt.Fprintf(w, "%d\t%.6f\t%.6f\n", j, mean[j], variance[j])
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "id\ttime\tspecies\tresources\tsamples\tstochastic")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%v\n",
			run.ID, run.Timestamp.Format(time.RFC3339), run.NSpecies,
			run.NResources, run.TStore, run.Stochastic)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(args[0], tableName)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	if meta.Aborted != "" {
		fmt.Printf("aborted: %s\n", meta.Aborted)
	}
	fmt.Println()
	fmt.Println(viz.PlotSeries(*series, 80, 14))
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	file, err := os.Open(filepath.Join(dataDir, args[0], tableName+".csv"))
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(os.Stdout, file)
	return err
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd)
	if err != nil {
		return err
	}
	sys, err := cfg.BuildSystem()
	if err != nil {
		return err
	}
	integ, err := cfg.BuildIntegrator()
	if err != nil {
		return err
	}

	dt := (cfg.TEnd - cfg.TStart) / float64((cfg.TStore-1)*max(cfg.Substeps, 1))
	model := viz.NewLiveModel(sys, integ, cfg.InitialState(), dt, cfg.TEnd,
		cfg.SpeciesNames, cfg.ResourceNames)

	_, err = tea.NewProgram(model).Run()
	return err
}
