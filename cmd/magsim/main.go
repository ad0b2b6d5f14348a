package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/magsim/internal/analysis"
	"github.com/san-kum/magsim/internal/automation"
	"github.com/san-kum/magsim/internal/config"
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/experiment"
	"github.com/san-kum/magsim/internal/export"
	"github.com/san-kum/magsim/internal/integrators"
	"github.com/san-kum/magsim/internal/optim"
	"github.com/san-kum/magsim/internal/storage"
	"github.com/san-kum/magsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	verbose bool

	configFile  string
	preset      string
	dt          float64
	duration    float64
	integrator  string
	alpha       float64
	field       []float64
	points      int
	seed        int64
	saveEvery   int
	renormalize bool

	numRuns   int
	plotWidth int

	sweepParams []string
	metricName  string
	maximize    bool

	fftSize int
	svgOut  string
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "magsim",
		Short:         "micromagnetic LLG simulation lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose || config.DebugEnabled())
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DataDir(".magsim"), "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run simulation and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [scenario]",
		Short: "run seeded copies of a simulation in parallel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addRunFlags(ensembleCmd)
	ensembleCmd.Flags().IntVarP(&numRuns, "runs", "n", 8, "number of runs")

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "run simulation with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot average magnetization of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [integrator...]",
		Short: "benchmark integrators on a precessing macrospin",
		RunE:  benchIntegrators,
	}
	benchCmd.Flags().IntVar(&points, "points", 1, "number of spins")

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario]",
		Short: "run a parameter grid and report a metric",
		Long:  "Each --param is key=lo:hi:n or key=v1,v2,... with key one of " + strings.Join(config.ParamKeys(), ", ") + ".",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepParams, "param", nil, "parameter range, repeatable")
	sweepCmd.Flags().StringVar(&metricName, "metric", "mz", "metric to report")
	sweepCmd.Flags().BoolVar(&maximize, "max", false, "best point maximizes the metric")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "precession spectrum of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&fftSize, "samples", 4096, "resampled points for the FFT")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export <m>(t) as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&svgOut, "output", "o", "", "output file (default stdout)")

	batchCmd := &cobra.Command{
		Use:   "batch [script.yaml]",
		Short: "run a scripted sequence of simulations",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	rootCmd.AddCommand(runCmd, ensembleCmd, liveCmd, listCmd, plotCmd, exportJSONCmd, presetsCmd, benchCmd,
		sweepCmd, analyzeCmd, exportSVGCmd, batchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "initial timestep (s)")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration (s)")
	cmd.Flags().StringVar(&integrator, "integrator", "rk45", "integrator ("+strings.Join(integrators.Names(), ", ")+")")
	cmd.Flags().Float64Var(&alpha, "alpha", config.DefaultAlpha, "Gilbert damping")
	cmd.Flags().Float64SliceVar(&field, "field", nil, "applied field hx,hy,hz (A/m)")
	cmd.Flags().IntVar(&points, "points", 1, "number of spins")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&saveEvery, "save-every", 1, "record every n-th step")
	cmd.Flags().BoolVar(&renormalize, "renormalize", false, "renormalize m after every step")
}

// resolveConfig layers preset, config file and explicit flags, in that
// order, over the defaults.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	scenario := "macrospin"
	if len(args) > 0 {
		scenario = args[0]
	}

	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(scenario, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(scenario))
		}
	}

	if configFile != "" {
		var err error
		cfg, err = config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
		cfg.Adaptive = integrator == "rk45"
	}
	if flags.Changed("alpha") {
		cfg.Material.Alpha = alpha
	}
	if flags.Changed("field") {
		if len(field) != 3 {
			return nil, fmt.Errorf("--field needs three components, got %d", len(field))
		}
		cfg.Zeeman.H = [3]float64{field[0], field[1], field[2]}
	}
	if flags.Changed("points") {
		cfg.Points = points
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("save-every") {
		cfg.SaveEvery = saveEvery
	}
	if flags.Changed("renormalize") {
		cfg.Renormalize = renormalize
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.Build(cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println(titleStyle.Render("running " + cfg.Name))
	start := time.Now()

	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}
	if runErr != nil {
		slog.Warn("run stopped early, saving partial result", "err", runErr)
	}

	elapsed := time.Since(start)

	runID, err := st.Save(experiment.RunInfo(cfg), result)
	if err != nil {
		return err
	}

	fmt.Printf("%s %v\n", labelStyle.Render("completed in"), elapsed)
	fmt.Printf("%s %s\n", labelStyle.Render("run id:"), runID)
	fmt.Printf("%s %d (%d rejected)\n", labelStyle.Render("steps:"), result.StepsTaken, result.StepsRejected)
	fmt.Printf("%s %.3e\n", labelStyle.Render("energy change:"), result.EnergyChange)
	printMetrics(result.Metrics)

	return runErr
}

func printMetrics(metrics map[string]float64) {
	fmt.Println(titleStyle.Render("\nmetrics:"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range experiment.NewRegistry().ListMetrics() {
		if v, ok := metrics[name]; ok {
			fmt.Fprintf(w, "  %s\t%.6g\n", name, v)
		}
	}
	w.Flush()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println(titleStyle.Render(fmt.Sprintf("running %d x %s", numRuns, cfg.Name)))
	start := time.Now()

	results, err := experiment.RunEnsemble(ctx, cfg, experiment.NewRegistry(), numRuns)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tSTEPS\tREJECTED\tMX\tMY\tMZ\tNORM_DRIFT")
	var mean [3]float64
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%d\t%+.4f\t%+.4f\t%+.4f\t%.2e\n",
			cfg.Seed+int64(i), r.StepsTaken, r.StepsRejected,
			r.Metrics["mx"], r.Metrics["my"], r.Metrics["mz"], r.Metrics["norm_drift"])
		mean[0] += r.Metrics["mx"] / float64(len(results))
		mean[1] += r.Metrics["my"] / float64(len(results))
		mean[2] += r.Metrics["mz"] / float64(len(results))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%s (%+.4f, %+.4f, %+.4f)\n", labelStyle.Render("mean <m>:"), mean[0], mean[1], mean[2])
	fmt.Printf("%s %v\n", labelStyle.Render("completed in"), time.Since(start))
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	exp, err := experiment.Build(cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}

	integ, err := experiment.NewRegistry().GetIntegrator(cfg.Integrator)
	if err != nil {
		return err
	}

	m := viz.NewModel(cfg.Name, exp.Equation(), integ, exp.InitialState(), experiment.SimConfig(cfg))
	final, err := viz.Run(m)
	if err != nil {
		return err
	}
	return final.Err()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tDURATION\tDT\tINTEG\tPOINTS\tSTEPS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3gs\t%.3gs\t%s\t%d\t%d\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Points,
			run.StepsTaken,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Println(titleStyle.Render("run: " + meta.ID))
	fmt.Printf("%s %s\n", labelStyle.Render("name:"), meta.Name)
	fmt.Printf("%s %d over %.4g ns\n\n", labelStyle.Render("samples:"), len(states), times[len(times)-1]*1e9)

	series := averageSeries(states)
	for i, caption := range []string{"<mx> vs time", "<my> vs time", "<mz> vs time"} {
		graph := asciigraph.Plot(series[i],
			asciigraph.Height(10),
			asciigraph.Width(plotWidth),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func averageSeries(states []dynamo.State) [3][]float64 {
	var out [3][]float64
	for i := range out {
		out[i] = make([]float64, len(states))
	}
	for j, s := range states {
		avg := dynamo.Average(s)
		for i := range out {
			out[i][j] = avg[i]
		}
	}
	return out
}

func listPresets(cmd *cobra.Command, args []string) error {
	scenarios := config.ListScenarios()
	if len(args) > 0 {
		scenarios = args
	}

	for _, scenario := range scenarios {
		presets := config.ListPresets(scenario)
		if len(presets) == 0 {
			fmt.Printf("no presets for scenario: %s\n", scenario)
			continue
		}
		fmt.Println(titleStyle.Render("presets for " + scenario + ":"))
		for _, p := range presets {
			cfg := config.GetPreset(scenario, p)
			fmt.Printf("  %-12s %s\n", p, labelStyle.Render(fmt.Sprintf("%s, alpha=%g, H=%v, %g ns",
				cfg.Integrator, cfg.Material.Alpha, cfg.Zeeman.H, cfg.Duration*1e9)))
		}
	}
	return nil
}

func benchIntegrators(cmd *cobra.Command, args []string) error {
	names := args
	if len(names) == 0 {
		names = integrators.Names()
	}

	dts := []float64{1e-13, 5e-13, 1e-12}
	registry := experiment.NewRegistry()

	fmt.Println(titleStyle.Render(fmt.Sprintf("benchmarking precession, %d spin(s)", points)))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEG\tDT\tSTEPS\tTIME\tSTEPS/SEC\tNORM_DRIFT\tENERGY_CHANGE")

	for _, name := range names {
		for _, h := range dts {
			cfg := config.GetPreset("macrospin", "precession")
			cfg.Integrator = name
			cfg.Adaptive = false
			cfg.Dt = h
			cfg.Points = points
			cfg.SaveEvery = 1 << 30

			exp, err := experiment.Build(cfg, registry)
			if err != nil {
				return err
			}

			start := time.Now()
			result, err := exp.Run(context.Background())
			elapsed := time.Since(start)
			if err != nil {
				fmt.Fprintf(w, "%s\t%.0e\terror: %v\n", name, h, err)
				continue
			}

			fmt.Fprintf(w, "%s\t%.0e\t%d\t%v\t%.0f\t%.2e\t%.2e\n",
				name, h, result.StepsTaken, elapsed.Round(time.Microsecond),
				float64(result.StepsTaken)/elapsed.Seconds(),
				result.Metrics["norm_drift"], result.EnergyChange)
		}
	}

	return w.Flush()
}

// parseRange parses key=lo:hi:n or key=v1,v2,...
func parseRange(arg string) (string, []float64, error) {
	key, rest, ok := strings.Cut(arg, "=")
	if !ok || rest == "" {
		return "", nil, fmt.Errorf("invalid --param %q, want key=lo:hi:n or key=v1,v2", arg)
	}

	if parts := strings.Split(rest, ":"); len(parts) == 3 {
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || n < 1 {
			return "", nil, fmt.Errorf("invalid range in --param %q", arg)
		}
		return key, optim.Linspace(lo, hi, n), nil
	}

	var values []float64
	for _, f := range strings.Split(rest, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid value in --param %q: %w", arg, err)
		}
		values = append(values, v)
	}
	return key, values, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	if len(sweepParams) == 0 {
		return fmt.Errorf("at least one --param is required")
	}
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(sweepParams))
	ranges := make([][]float64, 0, len(sweepParams))
	for _, arg := range sweepParams {
		key, values, err := parseRange(arg)
		if err != nil {
			return err
		}
		names = append(names, key)
		ranges = append(ranges, values)
	}

	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println(titleStyle.Render(fmt.Sprintf("sweeping %s over %d points", strings.Join(names, ", "), len(g.Grid()))))
	points, err := g.Search(ctx, cfg, experiment.NewRegistry(), metricName)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(metricName))
	for _, p := range points {
		for _, n := range names {
			fmt.Fprintf(w, "%.4g\t", p.Params[n])
		}
		if p.Err != nil {
			fmt.Fprintf(w, "error: %v\n", p.Err)
		} else {
			fmt.Fprintf(w, "%.6g\n", p.Value)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best, ok := optim.Best(points, maximize); ok {
		fmt.Printf("\n%s %v -> %.6g\n", labelStyle.Render("best:"), best.Params, best.Value)
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	series := averageSeries(states)
	samples, sampleDt, err := analysis.Resample(times, series[0], fftSize)
	if err != nil {
		return err
	}
	power, freqs := analysis.PowerSpectrum(samples, sampleDt)
	peak, err := analysis.PeakFrequency(times, series[0], fftSize)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("spectrum of <mx>: " + meta.ID))
	fmt.Printf("%s %.4g GHz\n", labelStyle.Render("peak:"), peak/1e9)
	if f, ok := larmorReference(meta); ok {
		fmt.Printf("%s %.4g GHz (%+.2f%%)\n", labelStyle.Render("larmor:"), f/1e9, 100*(peak-f)/f)
	}
	for _, k := range analysis.TopPeaks(power, 3) {
		fmt.Printf("  %8.4g GHz  %.3g\n", freqs[k]/1e9, power[k])
	}

	shown := min(len(power), 256)
	fmt.Println(asciigraph.Plot(power[:shown],
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("|X(f)|, 0 to %.3g GHz", freqs[shown-1]/1e9)),
	))
	return nil
}

// larmorReference is the precession frequency expected from the applied
// field stored with a run. Runs saved without γ or field have none.
func larmorReference(meta *storage.RunMetadata) (float64, bool) {
	h := math.Sqrt(meta.Field[0]*meta.Field[0] + meta.Field[1]*meta.Field[1] + meta.Field[2]*meta.Field[2])
	if meta.Gamma <= 0 || h == 0 {
		return 0, false
	}
	return analysis.LarmorFrequency(meta.Gamma, meta.Alpha, h), true
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	states, times, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}

	avg := averageSeries(states)
	series := []export.Series{
		{Label: "<mx>", Values: avg[0]},
		{Label: "<my>", Values: avg[1]},
		{Label: "<mz>", Values: avg[2]},
	}

	out := os.Stdout
	if svgOut != "" {
		f, err := os.Create(svgOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return export.TimeSeriesSVG(out, times, series, 800, 300, -1, 1)
}

func runBatch(cmd *cobra.Command, args []string) error {
	script, err := automation.LoadScript(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println(titleStyle.Render("batch " + script.Name))
	results, err := automation.Run(ctx, script, experiment.NewRegistry(), storage.New(dataDir))
	for _, r := range results {
		fmt.Printf("  %-16s %s  mz=%+.4f\n", r.Name, r.RunID, r.Result.Metrics["mz"])
	}
	return err
}
