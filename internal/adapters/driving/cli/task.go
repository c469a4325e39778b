package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and cancel background build tasks",
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show the status of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskStatus,
}

var taskCancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Request cooperative cancellation of a running task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskCancel,
}

func init() {
	taskCmd.AddCommand(taskStatusCmd)
	taskCmd.AddCommand(taskCancelCmd)
	rootCmd.AddCommand(taskCmd)
}

func runTaskStatus(cmd *cobra.Command, args []string) error {
	if libraryManager == nil {
		return errors.New("library service not configured")
	}

	task, err := libraryManager.GetTask(args[0])
	if err != nil {
		return fmt.Errorf("task status: %w", err)
	}

	cmd.Printf("Task %s (%s on %s)\n", task.ID, task.Kind, task.Library)
	cmd.Printf("  status:  %s\n", task.Status)
	if task.Stage != "" {
		cmd.Printf("  stage:   %s\n", task.Stage)
	}
	if task.Total > 0 {
		cmd.Printf("  progress: %d/%d %s\n", task.Done, task.Total, task.Detail)
	}
	cmd.Printf("  started: %s\n", task.StartedAt.Format(time.RFC3339))
	if task.Status.Terminal() {
		cmd.Printf("  ended:   %s\n", task.EndedAt.Format(time.RFC3339))
	}
	if task.Error != "" {
		cmd.Printf("  error:   %s\n", task.Error)
	}
	return nil
}

func runTaskCancel(cmd *cobra.Command, args []string) error {
	if libraryManager == nil {
		return errors.New("library service not configured")
	}

	if err := libraryManager.CancelTask(args[0]); err != nil {
		return fmt.Errorf("cancel task: %w", err)
	}
	cmd.Printf("Cancellation requested for task %s.\n", args[0])
	return nil
}
