package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

var citeCmd = &cobra.Command{
	Use:   "cite <library> <query...>",
	Short: "Find citation sentences matching a topic",
	Long: `Searches the library's citation bank for sentences that cite prior
work related to the query, ranked by similarity, with the source
document and page of each hit.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCite,
}

var citeTopK int

func init() {
	citeCmd.Flags().IntVar(&citeTopK, "top", 0, "citations to return (0 = configured default)")
	rootCmd.AddCommand(citeCmd)
}

func runCite(cmd *cobra.Command, args []string) error {
	if citationSearcher == nil {
		return errors.New("citation service not configured")
	}

	query := strings.Join(args[1:], " ")
	hits, err := citationSearcher.SearchCitations(cmd.Context(), args[0], query, citeTopK)
	if err != nil {
		return fmt.Errorf("cite: %w", err)
	}
	if len(hits) == 0 {
		cmd.Println("No citation sentences found in this library.")
		return nil
	}

	for _, hit := range hits {
		cmd.Printf("%5.1f%%  %s p.%d\n", domain.DisplaySimilarity(hit.Score), hit.Citation.DocumentPath, hit.Citation.Page)
		cmd.Printf("        %s\n", truncate(hit.Citation.Sentence, 100))
		if len(hit.Citation.Authors) > 0 {
			cmd.Printf("        cited: %s\n", formatAuthors(hit.Citation))
		}
	}
	return nil
}

// formatAuthors renders the parsed author/year pairs of a citation.
func formatAuthors(c domain.Citation) string {
	parts := make([]string, 0, len(c.Authors))
	for i, author := range c.Authors {
		if i < len(c.Years) {
			parts = append(parts, fmt.Sprintf("%s (%d)", author, c.Years[i]))
		} else {
			parts = append(parts, author)
		}
	}
	return strings.Join(parts, ", ")
}
