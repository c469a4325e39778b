package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

var scanCmd = &cobra.Command{
	Use:   "scan <library> [file]",
	Short: "Show per-sentence alignment with nearest exemplars",
	Long: `Scores every sentence of the draft by its best exemplar similarity
and lists the weakest-aligned sentences first, each with its labelled
nearest exemplars. Retrieval only; nothing is generated. Reads the
draft from the file argument or stdin.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runScan,
}

var (
	scanTopK     int
	scanMaxItems int
)

func init() {
	scanCmd.Flags().IntVar(&scanTopK, "top", 0, "exemplars per sentence (0 = configured default)")
	scanCmd.Flags().IntVar(&scanMaxItems, "max", 0, "maximum sentences to list (0 = all)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	text, err := readInputText(args, 1)
	if err != nil {
		return err
	}

	results, err := analysisService.Scan(cmd.Context(), args[0], text, scanTopK, scanMaxItems)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	for _, s := range results {
		cmd.Printf("%5.1f%%  #%d %s\n", domain.DisplaySimilarity(s.Alignment), s.Position+1, truncate(s.Sentence, 80))
		for _, ex := range s.Exemplars {
			cmd.Printf("        [%s] %5.1f%%  %s p.%d: %s\n",
				ex.Label, domain.DisplaySimilarity(ex.Score),
				ex.Record.DocumentPath, ex.Record.Page, truncate(ex.Record.Text, 70))
		}
	}
	return nil
}
