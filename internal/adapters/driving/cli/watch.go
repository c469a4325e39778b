package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <library>",
	Short: "Rebuild the library automatically when its corpus changes",
	Long: `Watches the library's corpus folder and triggers an incremental
rebuild once changes settle. Runs until interrupted. Cancelling
mid-build leaves the previous artifacts untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if libraryManager == nil || corpusWatcher == nil {
		return errors.New("watch service not configured")
	}

	library := args[0]
	ctx := cmd.Context()

	// The corpus folder comes from the library's last build.
	corpusDir, err := corpusDirOf(cmd, library)
	if err != nil {
		return err
	}

	changes, err := corpusWatcher.Watch(ctx, corpusDir)
	if err != nil {
		return fmt.Errorf("watch corpus: %w", err)
	}
	cmd.Printf("Watching %s for changes to %s. Ctrl-C to stop.\n", corpusDir, library)

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, open := <-changes:
			if !open {
				return nil
			}
			cmd.Println("Corpus changed, rebuilding...")
			taskID, err := libraryManager.Build(ctx, library, "")
			if err != nil {
				// A build may already be running from the previous burst.
				cmd.Printf("Rebuild not started: %v\n", err)
				continue
			}
			task, err := followTask(ctx, cmd, taskID)
			if err != nil {
				return err
			}
			if reportErr := reportTask(cmd, task); reportErr != nil {
				cmd.Printf("%v\n", reportErr)
			}
		}
	}
}

// corpusDirOf resolves the corpus folder recorded for a library.
func corpusDirOf(cmd *cobra.Command, library string) (string, error) {
	libraries, err := libraryManager.List(cmd.Context())
	if err != nil {
		return "", fmt.Errorf("list libraries: %w", err)
	}
	for _, lib := range libraries {
		if lib.Name == library && lib.CorpusDir != "" {
			return lib.CorpusDir, nil
		}
	}
	return "", fmt.Errorf("library %s has no recorded corpus folder; build it once first", library)
}
