package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jirenz/dist-scheduler/pkg/api"
	"github.com/jirenz/dist-scheduler/pkg/log"
	"github.com/jirenz/dist-scheduler/pkg/metrics"
	"github.com/jirenz/dist-scheduler/pkg/scheduler"
	"github.com/jirenz/dist-scheduler/pkg/types"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Control plane for distributed render jobs",
	RunE:  runScheduler,
}

func init() {
	rootCmd.Flags().Int("server-port", 13480, "API channel port")
	rootCmd.Flags().Int("system-port", 13481, "system channel port (workers and coordinator runners)")
	rootCmd.Flags().Int("cores-per-worker", 1, "render threads per worker slot, scheduler-wide")
	rootCmd.Flags().String("addresses", "", "comma-separated host:port coordinator slot pool; overrides --job-port-low/--job-port-high")
	rootCmd.Flags().Int("job-port-low", 14000, "low end (inclusive) of the generated slot port range")
	rootCmd.Flags().Int("job-port-high", 14100, "high end (exclusive) of the generated slot port range")
	rootCmd.Flags().String("coordinator-binary", "pbrt", "executable spawned as each job's coordinator process")
	rootCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Prometheus /metrics listen address")
	rootCmd.Flags().String("http-addr", "", "optional HTTP/JSON API bridge listen address (disabled unless set)")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("log-json", false, "output logs as JSON")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	serverPort, _ := cmd.Flags().GetInt("server-port")
	systemPort, _ := cmd.Flags().GetInt("system-port")
	coresPerWorker, _ := cmd.Flags().GetInt("cores-per-worker")
	addresses, _ := cmd.Flags().GetString("addresses")
	portLow, _ := cmd.Flags().GetInt("job-port-low")
	portHigh, _ := cmd.Flags().GetInt("job-port-high")
	coordinatorBinary, _ := cmd.Flags().GetString("coordinator-binary")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	httpAddr, _ := cmd.Flags().GetString("http-addr")
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSON, _ := cmd.Flags().GetBool("log-json")

	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})

	slots, err := parseSlots(addresses, portLow, portHigh)
	if err != nil {
		return err
	}

	s, err := scheduler.New(scheduler.Config{
		APIAddr:           fmt.Sprintf(":%d", serverPort),
		SystemAddr:        fmt.Sprintf(":%d", systemPort),
		Slots:             slots,
		CoresPerWorker:    coresPerWorker,
		CoordinatorBinary: coordinatorBinary,
	}, log.Logger)
	if err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	collector := scheduler.NewMetricsCollector(s)

	metrics.SetVersion("dist-scheduler")
	metrics.RegisterComponent("transport", true, fmt.Sprintf("api=%s system=%s", s.APIAddr(), s.SystemAddr()))
	metrics.RegisterComponent("api", true, "event loop running")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	metricsServer := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server error: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go collector.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	var httpServer *http.Server
	if httpAddr != "" {
		bridge := api.NewHTTPBridge(s.APIAddr())
		httpServer = &http.Server{Addr: httpAddr, Handler: bridge.Handler()}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("HTTP bridge error: %v", err)
			}
		}()
		fmt.Printf("HTTP bridge listening on http://%s\n", httpAddr)
	}

	fmt.Printf("scheduler listening: api=%s system=%s metrics=http://%s/metrics\n", s.APIAddr(), s.SystemAddr(), metricsAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case runErr := <-errCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", runErr)
		}
	}

	cancel()
	_ = metricsServer.Shutdown(context.Background())
	if httpServer != nil {
		_ = httpServer.Shutdown(context.Background())
	}
	return nil
}

// parseSlots builds the coordinator slot pool: an explicit host:port
// list from --addresses, or else every 127.0.0.1 port in
// [low, high).
func parseSlots(addresses string, low, high int) ([]types.Slot, error) {
	if addresses == "" {
		slots := make([]types.Slot, 0, high-low)
		for p := low; p < high; p++ {
			slots = append(slots, types.Slot{Host: "127.0.0.1", Port: p})
		}
		return slots, nil
	}

	var slots []types.Slot
	for _, addr := range strings.Split(addresses, ",") {
		host, portStr, ok := strings.Cut(addr, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --addresses entry %q, want host:port", addr)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port in --addresses entry %q: %w", addr, err)
		}
		slots = append(slots, types.Slot{Host: host, Port: port})
	}
	return slots, nil
}
