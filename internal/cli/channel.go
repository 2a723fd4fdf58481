package cli

import (
	"github.com/spf13/cobra"
)

// NewChannelCmd creates the channel command group.
func NewChannelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Inspect message bus channels",
	}

	cmd.AddCommand(newChannelHistoryCmd(clientFn, outputFn))

	return cmd
}

func newChannelHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history NAME",
		Short: "Show retained messages on a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			msgs, err := client.ChannelHistory(args[0], limit)
			if err != nil {
				return err
			}

			headers := []string{"TIME", "TYPE", "SENDER", "ID"}
			rows := make([][]string, len(msgs))
			for i, m := range msgs {
				rows[i] = []string{m.Timestamp, m.Type, m.Sender, m.ID}
			}

			out.Print(headers, rows, msgs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Most recent messages to return (0 = all retained)")
	return cmd
}
