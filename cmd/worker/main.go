package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jirenz/dist-scheduler/pkg/log"
	"github.com/jirenz/dist-scheduler/pkg/worker"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "worker NAME",
	Short: "Worker agent: asks the scheduler for a task, spawns it, reports back",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorker,
}

func init() {
	rootCmd.Flags().String("system-host", "127.0.0.1", "scheduler system-channel host")
	rootCmd.Flags().Int("system-port", 13481, "scheduler system-channel port")
	rootCmd.Flags().Int("heartbeat-interval", 5, "seconds between heartbeats while a task is running")
	rootCmd.Flags().Int("cores-per-worker", 1, "render threads passed to the task binary as --nthreads")
	rootCmd.Flags().String("task-binary", "pbrt", "executable spawned for each assigned task")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("log-json", false, "output logs as JSON")
}

func runWorker(cmd *cobra.Command, args []string) error {
	name := args[0]
	systemHost, _ := cmd.Flags().GetString("system-host")
	systemPort, _ := cmd.Flags().GetInt("system-port")
	heartbeatInterval, _ := cmd.Flags().GetInt("heartbeat-interval")
	coresPerWorker, _ := cmd.Flags().GetInt("cores-per-worker")
	taskBinary, _ := cmd.Flags().GetString("task-binary")
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSON, _ := cmd.Flags().GetBool("log-json")

	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})

	agent := worker.NewAgent(worker.Config{
		Name:              name,
		SystemAddr:        fmt.Sprintf("%s:%d", systemHost, systemPort),
		TaskBinary:        taskBinary,
		HeartbeatInterval: time.Duration(heartbeatInterval) * time.Second,
		CoresPerWorker:    coresPerWorker,
	}, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := agent.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker: %w", err)
	}
	return nil
}
