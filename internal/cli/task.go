package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewTaskCmd creates the task command group.
func NewTaskCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Submit and route tasks",
	}

	cmd.AddCommand(
		newTaskSubmitCmd(clientFn, outputFn),
		newTaskRouteCmd(clientFn, outputFn),
	)

	return cmd
}

// taskFlags collects the shared task-shape flags.
type taskFlags struct {
	taskType     string
	priority     string
	payload      string
	capabilities []string
	inputSize    int
	subtasks     int
	complexity   string
	workflow     string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.taskType, "type", "", "Task type, e.g. summarization (required)")
	cmd.Flags().StringVar(&f.priority, "priority", "normal", "Priority: low, normal, high or critical")
	cmd.Flags().StringVar(&f.payload, "payload", "", "Task payload text")
	cmd.Flags().StringSliceVar(&f.capabilities, "capability", nil, "Required capability (repeatable)")
	cmd.Flags().IntVar(&f.inputSize, "input-size", 0, "Input size hint in bytes")
	cmd.Flags().IntVar(&f.subtasks, "subtasks", 0, "Declared subtask count")
	cmd.Flags().StringVar(&f.complexity, "complexity", "", "Complexity hint: simple or complex")
	cmd.Flags().StringVar(&f.workflow, "workflow", "", "Workflow pattern name for multi-step execution")
	cmd.MarkFlagRequired("type")
}

func (f *taskFlags) spec() TaskSpec {
	return TaskSpec{
		ID:                   uuid.New().String(),
		Type:                 f.taskType,
		Priority:             f.priority,
		Payload:              f.payload,
		RequiredCapabilities: f.capabilities,
		InputSize:            f.inputSize,
		Subtasks:             f.subtasks,
		Complexity:           f.complexity,
		Workflow:             f.workflow,
	}
}

func newTaskSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flags taskFlags

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Execute a task through the coordinator",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			result, err := client.SubmitTask(flags.spec())
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Task %s finished (%s)", result.TaskID, result.Pattern))
			out.Print(
				[]string{"TASK", "PATTERN", "SUCCESS", "WORKERS", "ELAPSED"},
				[][]string{{
					result.TaskID,
					result.Pattern,
					strconv.FormatBool(result.Success),
					strings.Join(result.Workers, ","),
					time.Duration(result.Elapsed).String(),
				}},
				result,
			)
			if result.Output != "" {
				out.Raw(result.Output)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newTaskRouteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flags taskFlags
	var workers int

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Preview worker selection without executing",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			result, err := client.RouteTask(flags.spec(), workers)
			if err != nil {
				return err
			}

			rows := make([][]string, len(result.Workers))
			for i, w := range result.Workers {
				rows[i] = []string{strconv.Itoa(i + 1), w}
			}
			out.Print([]string{"RANK", "WORKER"}, rows, result)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&workers, "workers", 1, "Number of workers to select")
	return cmd
}
