// Command scheduler runs the multi-site observation scheduler core.
//
// It replaces the teacher's bubbletea TUI entrypoint (cmd/ls-horizons)
// with a cobra command tree: `run`, `validate`, and `simulate`, one per
// Scheduler.Mode. Flags bind onto internal/config.Config fields; the
// scheduling pipeline itself lives in internal/scheduler and is invoked
// synchronously here for a single request, or, when -serve is set, that
// same single request runs through an internal/jobqueue worker pool with
// its per-job timeout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/litescript/gemscheduler/internal/collector"
	"github.com/litescript/gemscheduler/internal/config"
	"github.com/litescript/gemscheduler/internal/ingest"
	"github.com/litescript/gemscheduler/internal/jobqueue"
	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/nightevents"
	"github.com/litescript/gemscheduler/internal/obslog"
	"github.com/litescript/gemscheduler/internal/optimizer"
	"github.com/litescript/gemscheduler/internal/scheduler"
	"github.com/litescript/gemscheduler/internal/targetinfo"
	"github.com/litescript/gemscheduler/internal/timeline"
)

var (
	configPath string
	startDate  string
	numNights  int
	siteNames  []string
	programDir string
	logLevel   string
	serve      bool
	serveSize  int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML scheduler configuration (optional, overlays compiled-in defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&startDate, "start", time.Now().UTC().Format("2006-01-02"), "First night to schedule, as YYYY-MM-DD (UTC)")
	rootCmd.PersistentFlags().IntVar(&numNights, "nights", 1, "Number of consecutive nights to schedule")
	rootCmd.PersistentFlags().StringSliceVar(&siteNames, "site", nil, "Site name to schedule (repeatable); defaults to every configured site")
	rootCmd.PersistentFlags().StringVar(&programDir, "programs", "", "Directory of JSON program documents to load")

	runCmd.Flags().BoolVar(&serve, "serve", false, "Run the scheduling request through a bounded worker pool (with a per-job timeout) instead of calling the scheduler directly")
	runCmd.Flags().IntVar(&serveSize, "pool-size", jobqueue.DefaultSize, "Standard worker pool size when -serve is set")

	rootCmd.AddCommand(runCmd, validateCmd, simulateCmd)
}

var rootCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Multi-site astronomical observation scheduler",
	Long: `scheduler computes nightly observing plans for one or more sites from a
set of awarded observing programs, scoring and placing observations within
each night's visibility windows subject to conditions, resources, and time
accounting constraints.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler in OPERATION mode",
	Long:  `OPERATION mode executes the full pipeline and commits observation status/time-accounting updates, matching a live night's actual execution record.`,
	RunE:  makeRunE(scheduler.ModeOperation),
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the scheduler in VALIDATION mode",
	Long:  `VALIDATION mode resets every observation's status before scheduling, producing a plan from a clean slate without requiring live execution state.`,
	RunE:  makeRunE(scheduler.ModeValidation),
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the scheduler in SIMULATION mode",
	Long:  `SIMULATION mode runs the same pipeline as OPERATION against current observation status, for what-if planning; time accounting is applied to the loaded observations in memory as in every mode, and nothing is written back.`,
	RunE:  makeRunE(scheduler.ModeSimulation),
}

func makeRunE(mode scheduler.Mode) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log := obslog.New(obslog.ParseLevel(logLevel))
		defer log.Sync()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		start, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return fmt.Errorf("parsing --start: %w", err)
		}
		sites, err := resolveSites(cfg)
		if err != nil {
			return err
		}

		sched, err := buildScheduler(cfg, sites, log)
		if err != nil {
			return err
		}

		if err := loadPrograms(sched, cfg, sites, log); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		task := func(context.Context) error {
			tl, summary, err := sched.Run(mode, start, numNights, sites)
			if err != nil {
				return err
			}
			return printResult(tl, summary)
		}

		if serve {
			return serveOnce(ctx, task, serveSize, log)
		}
		return task(ctx)
	}
}

// loadConfig returns the compiled-in defaults overlaid with --config, if
// given.
func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func resolveSites(cfg config.Config) ([]model.Site, error) {
	if len(siteNames) == 0 {
		sites := make([]model.Site, len(cfg.Sites))
		for i, s := range cfg.Sites {
			sites[i] = s.Site()
		}
		if len(sites) == 0 {
			return nil, fmt.Errorf("no sites configured: pass --site or a --config file with a sites: list")
		}
		return sites, nil
	}
	sites := make([]model.Site, 0, len(siteNames))
	for _, name := range siteNames {
		sc, ok := cfg.SiteByName(name)
		if !ok {
			return nil, fmt.Errorf("--site %s is not present in the configuration", name)
		}
		sites = append(sites, sc.Site())
	}
	return sites, nil
}

// buildScheduler wires a Collector and Scheduler from cfg, with the
// default go-cache TargetInfo cache and no ephemeris provider (non-sidereal
// targets require a deployment to supply one; spec.md treats it as an
// external "Ephemeris service" adapter).
func buildScheduler(cfg config.Config, sites []model.Site, log *obslog.Logger) (*scheduler.Scheduler, error) {
	ne := nightevents.NewManager()
	col := collector.New(sites, cfg.Semesters, cfg.SlotLength, ne, nil, targetinfo.NewGoCache(), nil, log)

	catalog := catalogFromConfig{cfg}
	newOptimizer := func() optimizer.Optimizer { return optimizer.NewGreedyOptimizer(time.Now().UnixNano()) }

	sched := scheduler.New(col, cfg.RankerParameters(), cfg.BandParameters(), newOptimizer, catalog, nil, nil, cfg.SlotLength, log)
	return sched, nil
}

// loadPrograms reads every *.json document under --programs (if set) and
// loads them through ingest.JSONProvider.
func loadPrograms(sched *scheduler.Scheduler, cfg config.Config, sites []model.Site, log *obslog.Logger) error {
	if programDir == "" {
		return nil
	}
	entries, err := os.ReadDir(programDir)
	if err != nil {
		return fmt.Errorf("reading --programs %s: %w", programDir, err)
	}
	var docs [][]byte
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(programDir, e.Name()))
		if err != nil {
			return fmt.Errorf("reading program file %s: %w", e.Name(), err)
		}
		docs = append(docs, data)
	}
	loaded, skipped, err := sched.Collector.LoadPrograms(ingest.NewJSONProvider(), docs)
	log.Info("loaded programs", "loaded", loaded, "skipped", skipped, "dir", programDir)
	if err != nil {
		log.Warn("some program documents were rejected", "error", err)
	}
	return nil
}

// catalogFromConfig adapts config.Config to selector.ResourceCatalog: every
// resource in the configured catalog is always available, and no program is
// block-filtered. Deployments wanting live block-schedule/resource-outage
// data wire their own selector.ResourceCatalog into scheduler.New directly.
type catalogFromConfig struct {
	cfg config.Config
}

func (c catalogFromConfig) Available(site model.Site, night model.NightIndex) model.ResourceSet {
	return c.cfg.Resources(site.Name)
}

func (c catalogFromConfig) ProgramFiltered(site model.Site, night model.NightIndex, prog *model.Program) bool {
	return false
}

func serveOnce(ctx context.Context, task jobqueue.Task, size int, log *obslog.Logger) error {
	mgr := jobqueue.NewManager(size, jobqueue.DefaultTimeout, log)
	defer mgr.Shutdown()
	return mgr.ScheduleAndWait(ctx, jobqueue.ModeStandard, task)
}

func printResult(tl *timeline.NightlyTimeline, summary scheduler.PlansSummary) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Timeline interface{} `json:"timeline"`
		Summary  interface{} `json:"plansSummary"`
	}{Timeline: tl.ToWire(), Summary: summary})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
