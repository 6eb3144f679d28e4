package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitrdm/rows-delay/internal/config"
	"github.com/gitrdm/rows-delay/internal/demoengine"
	"github.com/gitrdm/rows-delay/internal/logging"
	"github.com/gitrdm/rows-delay/internal/metrics"
	"github.com/gitrdm/rows-delay/pkg/delay"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Args:  cobra.NoArgs,
	Short: "Build a synthetic routing problem and run the delay constraints against it",
	RunE:  runDelayDemo,
}

func init() {
	runCmd.Flags().Int("scenarios", 0, "override harness.scenarios")
	runCmd.Flags().Bool("serve-metrics", false, "start the /metrics HTTP server and keep running")
}

func runDelayDemo(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if n, _ := cmd.Flags().GetInt("scenarios"); n > 0 {
		cfg.Harness.Scenarios = n
	}

	logLevel := cfg.Logging.Level
	if verbose {
		logLevel = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:  logLevel,
		Format: logging.Format(cfg.Logging.Format),
	})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	recorder := metrics.NewRecorder()

	var metricsServer *metrics.Server
	serveMetrics, _ := cmd.Flags().GetBool("serve-metrics")
	if serveMetrics && cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Address, recorder)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("metrics server stopped", err)
			}
		}()
		logger.Info("serving metrics", "address", cfg.Metrics.Address)
	}

	logger.Info("building synthetic problem",
		"vehicles", cfg.Harness.Vehicles,
		"visits_per_vehicle", cfg.Harness.VisitsPerCar,
		"scenarios", cfg.Harness.Scenarios)

	problem, err := demoengine.Build(demoengine.Options{
		Vehicles:      cfg.Harness.Vehicles,
		VisitsPerCar:  cfg.Harness.VisitsPerCar,
		Scenarios:     cfg.Harness.Scenarios,
		BreakStart:    cfg.Harness.BreakStart,
		BreakDuration: cfg.Harness.BreakDuration,
	})
	if err != nil {
		return fmt.Errorf("building synthetic problem: %w", err)
	}

	tracker, err := delay.NewDelayTracker(problem.Model(), problem.Sample())
	if err != nil {
		return fmt.Errorf("building delay tracker: %w", err)
	}

	failures := delay.NewFailedIndexRepository()
	notExpected, err := delay.NewDelayNotExpectedConstraint(problem.Model(), tracker, failures)
	if err != nil {
		return fmt.Errorf("building delay-not-expected constraint: %w", err)
	}

	riskinessVar := newRiskinessVar()
	riskiness, err := delay.NewDelayRiskinessConstraint(problem.Model(), tracker, riskinessVar)
	if err != nil {
		return fmt.Errorf("building delay-riskiness constraint: %w", err)
	}

	start := time.Now()
	notExpected.Post()
	notExpected.InitialPropagate()
	riskiness.Post()
	riskiness.InitialPropagate()
	recorder.ObservePropagation(time.Since(start))
	for v := 0; v < problem.Vehicles(); v++ {
		recorder.RecordPathUpdate()
	}
	recorder.SetRiskinessBound(riskinessVar.Min())

	if problem.Engine().Failed() {
		logger.Warn("search branch failed", "blamed_nodes", failures.Indices())
		for _, n := range failures.Indices() {
			recorder.RecordBranchFailure("DelayNotExpectedConstraint")
			fmt.Printf("node %d: mean delay is not expected to be non-positive\n", n)
		}
	} else {
		fmt.Println("no visit failed the delay-not-expected constraint")
	}

	fmt.Printf("riskiness_index lower bound: %d\n", riskinessVar.Min())

	if metricsServer != nil {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
	}
	return nil
}

// riskinessVar is the CLI's own trivial MonotoneIntVar: nothing outside
// this process ever lowers it, so a simple in-memory counter suffices.
type riskinessVar struct{ min int64 }

func newRiskinessVar() *riskinessVar { return &riskinessVar{} }

func (r *riskinessVar) Min() int64 { return r.min }
func (r *riskinessVar) SetMin(min int64) {
	if min > r.min {
		r.min = min
	}
}
