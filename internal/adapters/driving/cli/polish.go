package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

var polishCmd = &cobra.Command{
	Use:   "polish <library> [file]",
	Short: "Rewrite a passage in the corpus voice, with citations",
	Long: `Retrieves the nearest exemplar passages as evidence and asks the
generation backend for a light and a medium rewrite, each citing the
evidence verbatim. Rewrites that fabricate citations, smuggle in new
facts or drift from the passage meaning are rejected; after bounded
repair attempts the command falls back to evidence only. Reads the
passage from the file argument or stdin.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPolish,
}

var (
	polishTopK       int
	polishNoGenerate bool
)

func init() {
	polishCmd.Flags().IntVar(&polishTopK, "top", 0, "exemplars to retrieve (0 = configured default)")
	polishCmd.Flags().BoolVar(&polishNoGenerate, "no-generate", false, "retrieve evidence only, skip the rewrite")
	rootCmd.AddCommand(polishCmd)
}

func runPolish(cmd *cobra.Command, args []string) error {
	if polishService == nil {
		return errors.New("polish service not configured")
	}

	passage, err := readInputText(args, 1)
	if err != nil {
		return err
	}

	result, err := polishService.Polish(cmd.Context(), args[0], passage, polishTopK, !polishNoGenerate)
	if err != nil && !errors.Is(err, domain.ErrGenerationDegraded) {
		return fmt.Errorf("polish: %w", err)
	}
	printEvidence(cmd, result)

	if result.Degraded {
		cmd.Printf("\nNo validated rewrite available: %s\n", result.DegradedReason)
		cmd.Println("The evidence above is still usable for a manual edit.")
		return nil
	}
	if polishNoGenerate {
		return nil
	}

	if len(result.Diagnosis) > 0 {
		cmd.Println("\nDiagnosis:")
		for _, d := range result.Diagnosis {
			cmd.Printf("  - %s %s\n", d.Issue, formatCitations(d.Citations))
		}
	}
	cmd.Println("\nRewrites:")
	for _, v := range result.Variants {
		cmd.Printf("  [%s] %s\n", v.Level, v.Text)
		cmd.Printf("         cites %s\n", formatCitations(v.Citations))
	}
	return nil
}

// printEvidence lists the labelled exemplars of a polish result.
func printEvidence(cmd *cobra.Command, result *domain.PolishResult) {
	cmd.Println("Evidence:")
	for _, ex := range result.Exemplars {
		cmd.Printf("  [%s] %5.1f%%  %s p.%d\n",
			ex.Label, domain.DisplaySimilarity(ex.Score), ex.Record.DocumentPath, ex.Record.Page)
		cmd.Printf("        %s\n", truncate(ex.Record.Text, 100))
	}
}

// formatCitations renders citation labels compactly, e.g. "[C1, C3]".
func formatCitations(refs []domain.CitationRef) string {
	if len(refs) == 0 {
		return "[]"
	}
	out := "["
	for i, ref := range refs {
		if i > 0 {
			out += ", "
		}
		out += ref.Label
	}
	return out + "]"
}
