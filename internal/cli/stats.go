package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewStatsCmd creates the stats command.
func NewStatsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show runtime and channel statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			stats, err := client.Stats()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"tasks_executed", strconv.FormatInt(stats.Runtime.TasksExecuted, 10)},
				{"tasks_failed", strconv.FormatInt(stats.Runtime.TasksFailed, 10)},
				{"avg_task_ms", strconv.FormatFloat(stats.Runtime.AvgTaskMs, 'f', 1, 64)},
			}
			for pattern, n := range stats.Runtime.ByPattern {
				rows = append(rows, []string{"pattern:" + pattern, strconv.FormatInt(n, 10)})
			}
			for _, ch := range stats.Channels {
				rows = append(rows, []string{
					"channel:" + ch.Name,
					strconv.FormatUint(ch.Messages, 10) + " msgs, " +
						strconv.Itoa(ch.Subscribers) + " subs, " +
						strconv.Itoa(ch.HistoryLen) + " retained",
				})
			}

			out.Print([]string{"METRIC", "VALUE"}, rows, stats)
			return nil
		},
	}
}
