package api

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jirenz/dist-scheduler/pkg/types"
)

// NewCLI builds the schedulerctl command tree. Each leaf command
// dials the scheduler's API channel fresh, sends one request, and
// prints the reply.
func NewCLI() *cobra.Command {
	defaultAddr := loadClientConfig().Server

	root := &cobra.Command{
		Use:   "schedulerctl",
		Short: "Control client for the render job scheduler",
	}
	root.PersistentFlags().String("server", defaultAddr, "scheduler API address")

	root.AddCommand(
		&cobra.Command{
			Use:   "jobs",
			Short: "List all jobs",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRequest(cmd, types.Envelope{Type: types.MsgQueryJobs, Data: map[string]any{}})
			},
		},
		&cobra.Command{
			Use:   "job NAME",
			Short: "Show a job's detail",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRequest(cmd, types.Envelope{
					Type: types.MsgQueryJob,
					Data: map[string]any{"job_name": args[0]},
				})
			},
		},
		&cobra.Command{
			Use:   "workers",
			Short: "List all registered workers",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRequest(cmd, types.Envelope{Type: types.MsgQueryWorkers, Data: map[string]any{}})
			},
		},
		&cobra.Command{
			Use:   "create NAME FOLDER INPUT_FILE NUM_WORKERS",
			Short: "Submit a new render job",
			Args:  cobra.ExactArgs(4),
			RunE: func(cmd *cobra.Command, args []string) error {
				numWorkers, err := strconv.Atoi(args[3])
				if err != nil {
					return fmt.Errorf("num_workers must be an integer: %w", err)
				}
				return runRequest(cmd, types.Envelope{
					Type: types.MsgAssignJob,
					Data: map[string]any{
						"context_name":   args[0],
						"context_folder": args[1],
						"input_file":     args[2],
						"num_workers":    numWorkers,
					},
				})
			},
		},
		&cobra.Command{
			Use:   "delete-job NAME",
			Short: "Delete a job, queued or running",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRequest(cmd, types.Envelope{
					Type: types.MsgDeleteJob,
					Data: map[string]any{"job_name": args[0]},
				})
			},
		},
	)

	return root
}

func runRequest(cmd *cobra.Command, env types.Envelope) error {
	addr, err := cmd.Flags().GetString("server")
	if err != nil {
		return err
	}
	reply, err := call(addr, env)
	if err != nil {
		return err
	}
	if reply.Type == types.MsgError {
		return fmt.Errorf("%v", reply.Data["reason"])
	}
	if len(reply.Data) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	}
	out, err := yaml.Marshal(reply.Data)
	if err != nil {
		return fmt.Errorf("api: marshal reply: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}
