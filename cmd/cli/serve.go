package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scanlab-io/scanlab/internal/api"
	"github.com/scanlab-io/scanlab/internal/logging"
	"github.com/scanlab-io/scanlab/internal/metrics"
	"github.com/scanlab-io/scanlab/internal/model"
	"github.com/scanlab-io/scanlab/internal/scheduler"
)

// serveCmd runs the API server until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scan API server",
	Long: `Start the HTTP API server together with the worker pool, the
scan scheduler and the metrics endpoint. The server runs until it
receives SIGINT or SIGTERM.`,
	Example: `  scanlab serve
  scanlab serve --config config.yaml
  SCANLAB_API_PORT=9090 scanlab serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go metrics.Global().StartPeriodicUpdates(ctx, 30*time.Second)

	sched := scheduler.New(scheduler.Config{
		Enabled:  cfg.AutoScan.Enabled,
		Schedule: cfg.AutoScan.Schedule,
		Target:   cfg.AutoScan.Target,
		ScanType: model.ScanType(cfg.AutoScan.ScanType),
	}, rt.orch, rt.store)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	if !cfg.API.Enabled {
		logging.Info("API server disabled, running scheduler only")
		<-ctx.Done()
		return nil
	}

	server := api.New(cfg, rt.orch)
	return server.Start(ctx)
}
