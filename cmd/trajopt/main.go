package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/trajopt/internal/config"
	"github.com/san-kum/trajopt/internal/logs"
	"github.com/san-kum/trajopt/internal/metrics"
	"github.com/san-kum/trajopt/internal/nlp"
	"github.com/san-kum/trajopt/internal/problems"
	"github.com/san-kum/trajopt/internal/solver"
	"github.com/san-kum/trajopt/internal/storage"
	"github.com/san-kum/trajopt/internal/sweep"
	"github.com/san-kum/trajopt/internal/transcription"
	"github.com/san-kum/trajopt/internal/viz"
)

var (
	dataDir  string
	logLevel string
	logFile  string

	configFile string
	preset     string
	watch      bool
	noSave     bool

	backend    string
	meshPoints int
	maxIter    int
	hessian    string
	quadrature string
	guess      string
	policy     string
	params     map[string]string

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	workers    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "trajopt",
		Short:         "direct-collocation trajectory optimization",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")

	solveCmd := &cobra.Command{
		Use:   "solve [problem]",
		Short: "solve an optimal control problem",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSolve,
	}
	solveCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	solveCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	solveCmd.Flags().BoolVar(&watch, "watch", false, "show live solver progress")
	solveCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	solveCmd.Flags().StringVar(&backend, "backend", "", "solver backend (auglag, sqp)")
	solveCmd.Flags().IntVar(&meshPoints, "mesh", 0, "number of mesh points")
	solveCmd.Flags().IntVar(&maxIter, "max-iter", 0, "maximum solver iterations")
	solveCmd.Flags().StringVar(&hessian, "hessian", "", "hessian approximation (exact, limited-memory)")
	solveCmd.Flags().StringVar(&quadrature, "quadrature", "", "right-rectangle, trapezoidal or left-biased")
	solveCmd.Flags().StringVar(&guess, "guess", "", "initial guess (bounds, simulation)")
	solveCmd.Flags().StringVar(&policy, "policy", "", "controller for a simulated guess (zero, pid, lqr)")
	solveCmd.Flags().StringToStringVar(&params, "param", nil, "problem parameter, e.g. --param mass=2")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	problemsCmd := &cobra.Command{
		Use:   "problems",
		Short: "list built-in problems and their parameters",
		Args:  cobra.NoArgs,
		RunE:  listProblems,
	}

	optionsCmd := &cobra.Command{
		Use:   "options",
		Short: "show effective solver options",
		Args:  cobra.NoArgs,
		RunE:  showOptions,
	}
	optionsCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	optionsCmd.Flags().StringVar(&backend, "backend", "", "solver backend (auglag, sqp)")

	presetsCmd := &cobra.Command{
		Use:   "presets [problem]",
		Short: "list available presets for a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for problem: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [problem]",
		Short: "solve a problem across a range of parameter values",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	sweepCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	sweepCmd.Flags().StringVar(&backend, "backend", "", "solver backend (auglag, sqp)")
	sweepCmd.Flags().IntVar(&meshPoints, "mesh", 0, "number of mesh points")
	sweepCmd.Flags().StringVar(&sweepParam, "sweep", sweep.MeshPoints, "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 11, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 51, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel solves (default GOMAXPROCS)")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "solve every run of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().IntVar(&workers, "workers", 0, "parallel solves (default GOMAXPROCS)")

	rootCmd.AddCommand(solveCmd, listCmd, plotCmd, exportCmd, problemsCmd, optionsCmd, presetsCmd, sweepCmd, scenarioCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, viz.StatusBad.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

// loadConfig layers defaults, the preset, the config file and flags, in
// that order.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Problem = args[0]
	}
	if preset != "" {
		p := config.GetPreset(cfg.Problem, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Problem))
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 && loaded.Problem != args[0] {
			return nil, fmt.Errorf("config is for problem %q, not %q", loaded.Problem, args[0])
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Solver.Backend = backend
	}
	if flags.Changed("mesh") {
		cfg.MeshPoints = meshPoints
	}
	if flags.Changed("max-iter") {
		cfg.Solver.MaxIterations = config.Ptr(maxIter)
	}
	if flags.Changed("hessian") {
		cfg.Solver.HessianApproximation = hessian
	}
	if flags.Changed("quadrature") {
		cfg.Quadrature = quadrature
	}
	if flags.Changed("guess") {
		cfg.Guess = guess
	}
	if flags.Changed("policy") {
		cfg.GuessPolicy = policy
		if !flags.Changed("guess") {
			cfg.Guess = config.GuessSimulation
		}
	}
	if len(params) > 0 {
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, len(params))
		}
		for k, raw := range params {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("param %s: %w", k, err)
			}
			cfg.Params[k] = v
		}
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg *config.Config, terminal io.Writer) (*slog.Logger, func(), error) {
	level, err := logs.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	opts := logs.Options{Writer: terminal, Level: level}
	closer := func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, err
		}
		opts.File = f
		closer = func() { f.Close() }
	}
	return logs.New(opts), closer, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	var terminal io.Writer = os.Stderr
	if watch {
		terminal = nil
	}
	logger, closeLog, err := newLogger(cfg, terminal)
	if err != nil {
		return err
	}
	defer closeLog()

	problem, err := problems.NewRegistry().Configure(cfg.Problem, cfg.Params)
	if err != nil {
		return err
	}
	q, err := cfg.QuadratureRule()
	if err != nil {
		return err
	}
	dc, err := transcription.New(problem, cfg.MeshPoints,
		transcription.WithQuadrature(q),
		transcription.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	x0, err := cfg.BuildGuess(dc)
	if err != nil {
		return err
	}
	s, err := cfg.NewSolver(solver.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var sol *nlp.Solution
	var solveErr error
	if watch {
		limit, _ := s.MaxIterations()
		sol, solveErr = viz.Watch(ctx, cfg.Problem, limit, func(ctx context.Context, observe nlp.Observer) (*nlp.Solution, error) {
			s.SetObserver(observe)
			return s.Optimize(ctx, dc, x0)
		})
	} else {
		sol, solveErr = s.Optimize(ctx, dc, x0)
	}
	if sol == nil {
		return solveErr
	}

	scores, err := metrics.Evaluate(dc, sol.X)
	if err != nil {
		return errors.Join(solveErr, err)
	}
	fmt.Println(viz.RenderSummary(cfg.Problem, sol, scores))

	if !noSave {
		id, err := saveRun(cfg, dc, s, sol, scores)
		if err != nil {
			return errors.Join(solveErr, err)
		}
		fmt.Printf("saved run %s\n", id)
	}
	return solveErr
}

func saveRun(cfg *config.Config, dc *transcription.DirectCollocation, s *solver.Solver, sol *nlp.Solution, scores map[string]float64) (string, error) {
	tr, err := dc.Unpack(sol.X)
	if err != nil {
		return "", err
	}
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	return st.Save(&storage.Run{
		Meta: storage.RunMetadata{
			Problem:    cfg.Problem,
			Params:     cfg.Params,
			Backend:    s.Backend().Name(),
			Quadrature: dc.Quadrature().String(),
			MeshPoints: dc.Points,
			StateDim:   dc.States,
			ControlDim: dc.Controls,
			Status:     sol.Status.String(),
			Objective:  sol.Objective,
			Iterations: sol.Iterations,
			Elapsed:    sol.Elapsed,
			Message:    sol.Message,
			Metrics:    scores,
		},
		Trajectory: tr,
	})
}

func store() *storage.Store {
	if dataDir != "" {
		return storage.New(dataDir)
	}
	return storage.New(config.DefaultDataDir)
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := store().List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROBLEM\tTIME\tBACKEND\tMESH\tSTATUS\tOBJECTIVE\tITER")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%.6g\t%d\n",
			run.ID,
			run.Problem,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Backend,
			run.MeshPoints,
			run.Status,
			run.Objective,
			run.Iterations,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := store()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	tr, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render("run: " + meta.ID))
	fmt.Printf("problem: %s\n", meta.Problem)
	fmt.Printf("status: %s, objective: %.6g\n\n", meta.Status, meta.Objective)
	fmt.Println(viz.PlotTrajectory(tr, viz.LabelsFor(meta.Problem)))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, err := store().Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func listProblems(cmd *cobra.Command, args []string) error {
	r := problems.NewRegistry()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROBLEM\tSTATES\tCONTROLS\tPARAMS")
	for _, name := range r.List() {
		p, err := r.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%v\n", name, p.StateDim(), p.ControlDim(), p.GetParams())
	}
	return w.Flush()
}

func showOptions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	s, err := cfg.NewSolver()
	if err != nil {
		return err
	}
	fmt.Println(viz.RenderOptions(s.Backend().Name(), s.Describe()))
	return nil
}

func newRunner(cfg *config.Config) (*sweep.Runner, func(), error) {
	logger, closeLog, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	opts := []sweep.Option{sweep.WithLogger(logger)}
	if workers > 0 {
		opts = append(opts, sweep.WithWorkers(workers))
	}
	return sweep.NewRunner(opts...), closeLog, nil
}

func printResults(label string, results []sweep.Result, value func(i int) string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTATUS\tOBJECTIVE\tITER\tMAX_DEFECT\tELAPSED\n", label)
	for i, res := range results {
		if res.Err != nil && res.Solution == nil {
			fmt.Fprintf(w, "%s\terror: %v\t\t\t\t\n", value(i), res.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%.6g\t%d\t%.3e\t%s\n",
			value(i),
			res.Solution.Status,
			res.Solution.Objective,
			res.Solution.Iterations,
			res.Metrics[metrics.MaxDefect],
			res.Solution.Elapsed.Round(time.Millisecond),
		)
	}
	w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	runner, closeLog, err := newRunner(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := runner.Sweep(ctx, &sweep.ParameterSweep{
		Base:  cfg,
		Param: sweepParam,
		Min:   sweepMin,
		Max:   sweepMax,
		Steps: sweepSteps,
	})
	if err != nil {
		return err
	}
	fmt.Println(viz.Title.Render(fmt.Sprintf("%s: sweep %s", cfg.Problem, sweepParam)))
	printResults(strings.ToUpper(sweepParam), results, func(i int) string {
		return strconv.FormatFloat(results[i].Value, 'g', 6, 64)
	})
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := sweep.LoadScenario(args[0])
	if err != nil {
		return err
	}
	runner, closeLog, err := newRunner(sc.Runs[0])
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results := runner.RunScenario(ctx, sc)
	fmt.Println(viz.Title.Render("scenario: " + sc.Name))
	if sc.Description != "" {
		fmt.Println(viz.Subtle.Render(sc.Description))
	}
	printResults("RUN", results, func(i int) string {
		return fmt.Sprintf("%d:%s", i+1, sc.Runs[i].Problem)
	})
	return nil
}
