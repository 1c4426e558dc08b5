package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/neurosim/internal/config"
	"github.com/san-kum/neurosim/internal/dynamo"
	"github.com/san-kum/neurosim/internal/integrators"
	"github.com/san-kum/neurosim/internal/sensitivity"
	"github.com/san-kum/neurosim/internal/sim"
	"github.com/san-kum/neurosim/internal/storage"
	"github.com/san-kum/neurosim/internal/viz"
)

var (
	dataDir    string
	configFile string
	sexFlag    int
	apoe4Flag  int
	xiFlag     float64
	ageStart   float64
	ageEnd     float64
	samples    int
	atol       float64
	rtol       float64
	integrator string
	plotVar    string
	saveRun    bool
	factor     float64
	biomarker  string
	workers    int
	timeout    time.Duration
	live       bool
	paramName  string
	factorsCSV string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "neurosim",
		Short: "neurodegeneration kinetics simulator and sensitivity lab",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".neurosim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "simulate one scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().StringVar(&plotVar, "plot", "N", "state variable to plot")
	runCmd.Flags().BoolVar(&saveRun, "save", false, "persist the trajectory")

	sensCmd := &cobra.Command{
		Use:   "sensitivity [scenario|all]",
		Short: "rank parameters by influence on a biomarker",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSensitivity,
	}
	addScenarioFlags(sensCmd)
	sensCmd.Flags().Float64Var(&factor, "factor", config.DefaultFactor, "perturbation factor")
	sensCmd.Flags().StringVar(&biomarker, "biomarker", "N", "observed biomarker (AB, tau, N)")
	sensCmd.Flags().IntVar(&workers, "workers", 0, "parallel evaluations (0 = NumCPU)")
	sensCmd.Flags().DurationVar(&timeout, "timeout", 0, "per-integration timeout")
	sensCmd.Flags().BoolVar(&live, "live", false, "live progress view")
	sensCmd.Flags().BoolVar(&saveRun, "save", false, "persist the report")

	perturbCmd := &cobra.Command{
		Use:   "perturb [scenario]",
		Short: "plot trajectories under single-parameter perturbation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPerturb,
	}
	addScenarioFlags(perturbCmd)
	perturbCmd.Flags().StringVar(&paramName, "param", "d_Fi", "parameter to perturb")
	perturbCmd.Flags().StringVar(&factorsCSV, "factors", "0.95,1,1.05,1.10", "comma-separated factors")
	perturbCmd.Flags().StringVar(&plotVar, "plot", "N", "state variable to plot")

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list scenario presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSEX\tAPOE4\tAGES\tSAMPLES")
			for _, name := range config.PresetNames() {
				c := config.Presets[name]
				fmt.Fprintf(w, "%s\t%d\t%d\t%g-%g\t%d\n", name, c.Sex, c.APOE4, c.AgeStart, c.AgeEnd, c.Samples)
			}
			return w.Flush()
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotVar, "var", "N", "state variable to plot")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := storage.New(dataDir).Load(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(meta)
		},
	}

	rootCmd.AddCommand(runCmd, sensCmd, perturbCmd, scenariosCmd, listCmd, plotCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scenario config file (yaml)")
	cmd.Flags().IntVar(&sexFlag, "sex", 0, "0 woman, 1 man")
	cmd.Flags().IntVar(&apoe4Flag, "apoe4", 0, "APOE4 carrier status")
	cmd.Flags().Float64Var(&xiFlag, "xi", 1, "microglia activation scaling (0,1]")
	cmd.Flags().Float64Var(&ageStart, "age-start", config.DefaultAgeStart, "start age (years)")
	cmd.Flags().Float64Var(&ageEnd, "age-end", config.DefaultAgeEnd, "end age (years)")
	cmd.Flags().IntVar(&samples, "samples", config.DefaultSamples, "trajectory samples")
	cmd.Flags().Float64Var(&atol, "atol", config.DefaultAbsTol, "absolute tolerance")
	cmd.Flags().Float64Var(&rtol, "rtol", config.DefaultRelTol, "relative tolerance")
	cmd.Flags().StringVar(&integrator, "integrator", "rosenbrock", "integrator ("+strings.Join(integrators.Names(), ", ")+")")
}

// resolveConfig builds the effective config: preset or file, then flags.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.Default()
	if len(args) == 1 {
		preset, ok := config.Presets[args[0]]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q (see `neurosim scenarios`)", args[0])
		}
		c := *preset
		cfg = &c
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("sex") {
		cfg.Sex = sexFlag
	}
	if cmd.Flags().Changed("apoe4") {
		cfg.APOE4 = apoe4Flag
	}
	if cmd.Flags().Changed("xi") {
		cfg.Xi = xiFlag
	}
	if cmd.Flags().Changed("age-start") {
		cfg.AgeStart = ageStart
	}
	if cmd.Flags().Changed("age-end") {
		cfg.AgeEnd = ageEnd
	}
	if cmd.Flags().Changed("samples") {
		cfg.Samples = samples
	}
	if cmd.Flags().Changed("atol") {
		cfg.AbsTol = atol
	}
	if cmd.Flags().Changed("rtol") {
		cfg.RelTol = rtol
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	return cfg, nil
}

func varIndex(label string) (int, error) {
	for i, name := range dynamo.VarNames {
		if name == label || strings.EqualFold(name, label) {
			return i, nil
		}
	}
	if idx, ok := sensitivity.Biomarkers[label]; ok {
		return idx, nil
	}
	return 0, fmt.Errorf("unknown state variable %q", label)
}

func newRunner(cfg *config.Config) (*sim.Runner, error) {
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	return sim.NewRunner(integ), nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	runner, err := newRunner(cfg)
	if err != nil {
		return err
	}
	sc := cfg.Scenario()

	start := time.Now()
	tr, err := runner.Run(context.Background(), sc)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	idx, err := varIndex(plotVar)
	if err != nil {
		return err
	}
	fmt.Printf("%s [%s] over ages %g-%g (%s)\n\n",
		sc.Name, dynamo.VarNames[idx], sc.AgeStartYears, sc.AgeEndYears, elapsed.Round(time.Millisecond))
	fmt.Println(asciigraph.Plot(tr.Series(idx), asciigraph.Height(16), asciigraph.Width(72)))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "\nfinal plaque (AB_p^o)\t%.4e g/mL\n", tr.Final(dynamo.VarABpo))
	fmt.Fprintf(w, "final tangles (F_i)\t%.4e g/mL\n", tr.Final(dynamo.VarNFTi))
	fmt.Fprintf(w, "final neurons (N)\t%.4e g/mL\n", tr.Final(dynamo.VarNeurons))
	fmt.Fprintf(w, "neuron loss\t%.2f%%\n", 100*sim.NeuronLossFraction(tr))
	if onset := sim.OnsetAgeYears(tr, 0.9); onset > 0 {
		fmt.Fprintf(w, "10%% loss reached\tage %.1f\n", onset)
	}
	w.Flush()

	if saveRun {
		store := storage.New(dataDir)
		if err := store.Init(); err != nil {
			return err
		}
		id, err := store.SaveTrajectory(metaFor(cfg), tr)
		if err != nil {
			return err
		}
		fmt.Printf("\nsaved run %s\n", id)
	}
	return nil
}

func metaFor(cfg *config.Config) storage.RunMetadata {
	return storage.RunMetadata{
		Scenario:   cfg.Name,
		Sex:        cfg.Sex,
		APOE4:      cfg.APOE4,
		Xi:         cfg.Xi,
		AgeStart:   cfg.AgeStart,
		AgeEnd:     cfg.AgeEnd,
		Samples:    cfg.Samples,
		AbsTol:     cfg.AbsTol,
		RelTol:     cfg.RelTol,
		Integrator: cfg.Integrator,
	}
}

func runSensitivity(cmd *cobra.Command, args []string) error {
	if len(args) == 1 && args[0] == "all" {
		return runSensitivityAll(cmd)
	}
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	cfg.Biomarker = biomarker
	idx, err := cfg.BiomarkerIndex()
	if err != nil {
		return err
	}
	runner, err := newRunner(cfg)
	if err != nil {
		return err
	}
	analyzer := sensitivity.New(runner)
	sc := cfg.Scenario()
	opts := sensitivity.Options{Factor: factor, Biomarker: idx, Workers: workers, Timeout: timeout}

	var rep *sensitivity.Report
	if live {
		rep, err = runSweepLive(analyzer, sc, opts, biomarker)
	} else {
		rep, err = analyzer.Analyze(context.Background(), sc, opts)
	}
	if err != nil {
		return err
	}

	printReport(rep, biomarker)

	if saveRun {
		store := storage.New(dataDir)
		if err := store.Init(); err != nil {
			return err
		}
		id, err := store.SaveReport(metaFor(cfg), rep)
		if err != nil {
			return err
		}
		fmt.Printf("\nsaved report %s\n", id)
	}
	return nil
}

// runSweepLive drives the analyzer under the bubbletea progress view.
func runSweepLive(analyzer *sensitivity.Analyzer, sc sim.Scenario, opts sensitivity.Options, biomarker string) (*sensitivity.Report, error) {
	p, err := sc.Parameters()
	if err != nil {
		return nil, err
	}
	prog := tea.NewProgram(viz.NewSweep(sc.Name, biomarker, len(p.Names())))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts.OnResult = func(r sensitivity.Result) { prog.Send(viz.ResultMsg(r)) }

	go func() {
		rep, err := analyzer.Analyze(ctx, sc, opts)
		prog.Send(viz.DoneMsg{Report: rep, Err: err})
	}()

	final, err := prog.Run()
	if err != nil {
		return nil, err
	}
	return final.(viz.SweepModel).Report()
}

func printReport(rep *sensitivity.Report, biomarker string) {
	fmt.Printf("%s / %s: baseline %.6e, %d parameters scored, %d skipped\n\n",
		rep.Scenario.Name, biomarker, rep.Baseline, len(rep.Scores), len(rep.Failures))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PARAMETER\tRELATIVE CHANGE (%)")
	for _, s := range rep.Scores {
		fmt.Fprintf(w, "%s\t%.4f\n", s.Parameter, s.Value)
	}
	w.Flush()

	for _, f := range rep.Failures {
		fmt.Printf("skipped %s (%s): %v\n", f.Parameter, f.Direction, f.Err)
	}
}

func runSensitivityAll(cmd *cobra.Command) error {
	cfg := config.Default()
	cfg.Biomarker = biomarker
	idx, err := cfg.BiomarkerIndex()
	if err != nil {
		return err
	}
	runner, err := newRunner(cfg)
	if err != nil {
		return err
	}
	analyzer := sensitivity.New(runner)
	opts := sensitivity.Options{Factor: factor, Biomarker: idx, Workers: workers, Timeout: timeout}

	var reports []*sensitivity.Report
	for _, sc := range config.PresetScenarios() {
		fmt.Printf("analyzing %s...\n", sc.Name)
		rep, err := analyzer.Analyze(context.Background(), sc, opts)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		reports = append(reports, rep)
	}

	summary := sensitivity.Aggregate(reports)
	fmt.Printf("\ncross-scenario sensitivity of %s (threshold %.0f%% of max)\n\n", biomarker, 100*sensitivity.DisplayThreshold)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "PARAMETER\t%s\tMEAN\n", strings.Join(summary.Scenarios, "\t"))
	for _, row := range summary.Rows {
		cells := make([]string, len(row.Scores))
		for i, v := range row.Scores {
			cells[i] = fmt.Sprintf("%.3f", v)
		}
		fmt.Fprintf(w, "%s\t%s\t%.3f\n", row.Parameter, strings.Join(cells, "\t"), row.Mean)
	}
	return w.Flush()
}

func runPerturb(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	// Perturbation plots run at the trajectory-comparison tolerances
	// unless explicitly overridden.
	if !cmd.Flags().Changed("atol") {
		cfg.AbsTol = config.PerturbAbsTol
	}
	if !cmd.Flags().Changed("rtol") {
		cfg.RelTol = config.PerturbRelTol
	}
	runner, err := newRunner(cfg)
	if err != nil {
		return err
	}
	idx, err := varIndex(plotVar)
	if err != nil {
		return err
	}

	var factors []float64
	for _, tok := range strings.Split(factorsCSV, ",") {
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(tok), "%g", &f); err != nil {
			return fmt.Errorf("bad factor %q", tok)
		}
		factors = append(factors, f)
	}

	analyzer := sensitivity.New(runner)
	runs, err := analyzer.PerturbTrajectories(context.Background(), cfg.Scenario(), paramName, factors)
	if err != nil {
		return err
	}

	for _, r := range runs {
		if r.Err != nil {
			fmt.Printf("%s x%g: integration failed: %v\n\n", paramName, r.Factor, r.Err)
			continue
		}
		fmt.Printf("%s x%g (%+.0f%%), %s\n", paramName, r.Factor, 100*r.Factor-100, dynamo.VarNames[idx])
		fmt.Println(asciigraph.Plot(r.Trajectory.Series(idx), asciigraph.Height(10), asciigraph.Width(72)))
		fmt.Println()
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no stored runs")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSCENARIO\tAGES\tTIME")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g-%g\t%s\n",
			r.ID, r.Kind, r.Scenario, r.AgeStart, r.AgeEnd, r.Timestamp.Format(time.DateTime))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	meta, err := store.Load(args[0])
	if err != nil {
		return err
	}
	if meta.Kind != "trajectory" {
		return fmt.Errorf("run %s is a %s run, nothing to plot", meta.ID, meta.Kind)
	}
	tr, err := store.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	idx, err := varIndex(plotVar)
	if err != nil {
		return err
	}
	fmt.Printf("%s [%s]\n", meta.ID, dynamo.VarNames[idx])
	fmt.Println(asciigraph.Plot(tr.Series(idx), asciigraph.Height(16), asciigraph.Width(72)))
	return nil
}
