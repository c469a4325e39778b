package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage exemplar libraries",
	Long: `Create, inspect and remove exemplar libraries. A library is a
named index built from a folder of reference documents.`,
}

var libraryBuildCmd = &cobra.Command{
	Use:   "build <library> [corpus-dir]",
	Short: "Build or incrementally rebuild a library",
	Long: `Indexes the corpus folder into the library: extracts text, collects
word and bigram statistics, embeds sentence chunks and the citation
bank. Rebuilds are incremental; only changed documents are reprocessed.
Omitting corpus-dir rebuilds from the folder of the previous build.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLibraryBuild,
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List libraries",
	Args:  cobra.NoArgs,
	RunE:  runLibraryList,
}

var libraryRemoveCmd = &cobra.Command{
	Use:   "remove <library>",
	Short: "Delete a library and its artifacts",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryRemove,
}

// buildDetach skips progress polling and prints the task id instead.
var buildDetach bool

func init() {
	libraryBuildCmd.Flags().BoolVar(&buildDetach, "detach", false, "start the build and return the task id")
	libraryCmd.AddCommand(libraryBuildCmd)
	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryRemoveCmd)
	rootCmd.AddCommand(libraryCmd)
}

func runLibraryBuild(cmd *cobra.Command, args []string) error {
	if libraryManager == nil {
		return errors.New("library service not configured")
	}

	library := args[0]
	corpusDir := ""
	if len(args) > 1 {
		corpusDir = args[1]
	}

	ctx := cmd.Context()
	taskID, err := libraryManager.Build(ctx, library, corpusDir)
	if err != nil {
		return fmt.Errorf("start build: %w", err)
	}

	if buildDetach {
		cmd.Printf("Build started: task %s\n", taskID)
		cmd.Printf("Poll with 'exemplar task status %s'.\n", taskID)
		return nil
	}

	task, err := followTask(ctx, cmd, taskID)
	if err != nil {
		return err
	}
	return reportTask(cmd, task)
}

// followTask polls the task until it reaches a terminal state, printing
// stage transitions and progress along the way.
func followTask(ctx context.Context, cmd *cobra.Command, taskID string) (*domain.Task, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var lastStage domain.BuildStage
	for {
		select {
		case <-ctx.Done():
			// Leave the build running; it can be cancelled explicitly.
			return nil, ctx.Err()
		case <-ticker.C:
			task, err := libraryManager.GetTask(taskID)
			if err != nil {
				return nil, fmt.Errorf("poll task: %w", err)
			}
			if task.Stage != lastStage && task.Stage != "" {
				if lastStage != "" {
					cmd.Println()
				}
				cmd.Printf("%s:", task.Stage)
				lastStage = task.Stage
			}
			if task.Total > 0 {
				cmd.Printf("\r%s: %d/%d %s", task.Stage, task.Done, task.Total, task.Detail)
			}
			if task.Status.Terminal() {
				cmd.Println()
				return task, nil
			}
		}
	}
}

// reportTask prints the terminal state of a build task.
func reportTask(cmd *cobra.Command, task *domain.Task) error {
	switch task.Status {
	case domain.TaskDone:
		cmd.Printf("Library %s built in %s.\n", task.Library, task.EndedAt.Sub(task.StartedAt).Round(time.Millisecond))
		return nil
	case domain.TaskCanceled:
		cmd.Printf("Build of %s cancelled; previous artifacts remain usable.\n", task.Library)
		return nil
	case domain.TaskFailed:
		return fmt.Errorf("build failed: %s", task.Error)
	default:
		return fmt.Errorf("task ended in unexpected state %s", task.Status)
	}
}

func runLibraryList(cmd *cobra.Command, _ []string) error {
	if libraryManager == nil {
		return errors.New("library service not configured")
	}

	libraries, err := libraryManager.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list libraries: %w", err)
	}
	if len(libraries) == 0 {
		cmd.Println("No libraries. Create one with 'exemplar library build <name> <corpus-dir>'.")
		return nil
	}

	for _, lib := range libraries {
		cmd.Printf("%s\n", lib.Name)
		cmd.Printf("  corpus:     %s\n", lib.CorpusDir)
		cmd.Printf("  model:      %s (%d dims)\n", lib.EmbeddingModel, lib.Dimensions)
		if !lib.BuiltAt.IsZero() {
			cmd.Printf("  built:      %s\n", lib.BuiltAt.Format(time.RFC3339))
		}
	}
	return nil
}

func runLibraryRemove(cmd *cobra.Command, args []string) error {
	if libraryManager == nil {
		return errors.New("library service not configured")
	}

	if err := libraryManager.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("remove library: %w", err)
	}
	cmd.Printf("Removed library %s.\n", args[0])
	return nil
}
