package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewWorkerCmd creates the worker command group.
func NewWorkerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage workers",
	}

	cmd.AddCommand(
		newWorkerListCmd(clientFn, outputFn),
		newWorkerRegisterCmd(clientFn, outputFn),
		newWorkerUnregisterCmd(clientFn, outputFn),
	)

	return cmd
}

func newWorkerListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workers, err := client.ListWorkers()
			if err != nil {
				return err
			}

			headers := []string{"ID", "STATE", "ACTIVE", "COMPLETED", "AVG MS", "HEALTH"}
			rows := make([][]string, len(workers))
			for i, w := range workers {
				rows[i] = []string{
					w.WorkerID,
					w.State,
					strconv.Itoa(w.ActiveTasks),
					strconv.FormatInt(w.CompletedTasks, 10),
					strconv.FormatFloat(w.AvgResponseMs, 'f', 1, 64),
					strconv.FormatFloat(w.HealthScore, 'f', 2, 64),
				}
			}

			out.Print(headers, rows, workers)
			return nil
		},
	}
}

func newWorkerRegisterCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "register ID",
		Short: "Register a catalog worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.RegisterWorker(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Worker registered: %s", args[0]))
			return nil
		},
	}
}

func newWorkerUnregisterCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "unregister ID",
		Short: "Unregister a worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.UnregisterWorker(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Worker unregistered: %s", args[0]))
			return nil
		},
	}
}
