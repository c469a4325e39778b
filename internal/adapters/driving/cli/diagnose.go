package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <library> [file]",
	Short: "Rank draft sentences by misalignment with the corpus",
	Long: `Splits the draft into sentences and scores each against the library:
word rarity, bigram rarity and semantic distance from the nearest
exemplar. Sentences are listed most-suspect first. Reads the draft from
the file argument or stdin.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDiagnose,
}

// diagnoseAll includes clean sentences in the output.
var diagnoseAll bool

func init() {
	diagnoseCmd.Flags().BoolVar(&diagnoseAll, "all", false, "also list sentences without warnings")
	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	text, err := readInputText(args, 1)
	if err != nil {
		return err
	}

	items, err := analysisService.Diagnose(cmd.Context(), args[0], text)
	if err != nil {
		return fmt.Errorf("diagnose: %w", err)
	}

	flagged := 0
	for _, item := range items {
		if len(item.Warnings) == 0 {
			if !diagnoseAll {
				continue
			}
			cmd.Printf("   ok  #%d %s\n", item.Position+1, truncate(item.Sentence, 90))
			continue
		}
		flagged++
		cmd.Printf("%5s  #%d %s\n", item.TopSeverity(), item.Position+1, truncate(item.Sentence, 90))
		for _, w := range item.Warnings {
			cmd.Printf("       - [%s] %s\n", w.Kind, w.Explanation)
			for _, id := range w.ExemplarIDs {
				cmd.Printf("         nearest exemplar: %s\n", id)
			}
		}
	}

	if flagged == 0 {
		cmd.Printf("All %d sentences look aligned with the corpus.\n", len(items))
	} else {
		cmd.Printf("\n%d of %d sentences flagged.\n", flagged, len(items))
	}
	return nil
}
