package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change configuration: inference providers and analysis
thresholds. Values persist to the TOML config file.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Sets a configuration key. Keys use dot notation, for example:

  embedding.provider   ollama | openai
  embedding.model      model name
  llm.provider         ollama | openai | anthropic
  llm.model            model name
  analysis.semantic_floor       0..1
  analysis.rare_word_threshold  0..1
  analysis.top_k                integer

API keys are read from the environment (OPENAI_API_KEY,
ANTHROPIC_API_KEY), never stored in the config file.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Ping the configured inference backends",
	Args:  cobra.NoArgs,
	RunE:  runSettingsCheck,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cmd.Println("[Embedding]")
	printProvider(cmd, embeddingProvider)
	cmd.Println()

	cmd.Println("[Generation]")
	printProvider(cmd, llmProvider)
	cmd.Println()

	cmd.Println("[Analysis]")
	defaults := domain.DefaultAnalysisSettings()
	printThreshold(cmd, "semantic_floor", defaults.SemanticFloor)
	printThreshold(cmd, "rare_word_threshold", defaults.RareWordThreshold)
	printThreshold(cmd, "rare_fraction_trigger", defaults.RareFractionTrigger)
	printThreshold(cmd, "fidelity_floor", defaults.FidelityFloor)
	printIntSetting(cmd, "top_k", defaults.TopK)
	printIntSetting(cmd, "min_sentence_tokens", defaults.MinSentenceTokens)
	printIntSetting(cmd, "repair_retries", defaults.RepairRetries)

	cmd.Printf("\nConfig file: %s\n", configStore.Path())
	return nil
}

func printProvider(cmd *cobra.Command, provider string) {
	if provider == "" {
		cmd.Println("  Provider: (not configured)")
		return
	}
	cmd.Printf("  Provider: %s\n", provider)
}

func printThreshold(cmd *cobra.Command, name string, fallback float64) {
	key := "analysis." + name
	value := fallback
	if _, ok := configStore.Get(key); ok {
		value = configStore.GetFloat(key)
	}
	cmd.Printf("  %-22s %.2f\n", name+":", value)
}

func printIntSetting(cmd *cobra.Command, name string, fallback int) {
	key := "analysis." + name
	value := fallback
	if _, ok := configStore.Get(key); ok {
		value = configStore.GetInt(key)
	}
	cmd.Printf("  %-22s %d\n", name+":", value)
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if backendChecker == nil {
		return errors.New("backend check not configured")
	}
	if err := backendChecker(); err != nil {
		return fmt.Errorf("backend check: %w", err)
	}
	cmd.Println("All configured backends are reachable.")
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key, raw := args[0], args[1]

	// Store numbers as numbers so typed getters work on reload.
	var value any = raw
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		value = i
	} else if f, err := strconv.ParseFloat(raw, 64); err == nil {
		value = f
	} else if b, err := strconv.ParseBool(raw); err == nil {
		value = b
	}

	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	cmd.Printf("Set %s = %v\n", key, value)
	cmd.Println("Restart running commands to pick up the change.")
	return nil
}
