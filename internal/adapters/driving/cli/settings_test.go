package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Settings Command Tests

func TestSettingsCmd_Use(t *testing.T) {
	assert.Equal(t, "settings", settingsCmd.Use)
}

func TestSettingsCmd_HasSubcommands(t *testing.T) {
	commands := settingsCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.Contains(t, commandNames, "show")
	assert.Contains(t, commandNames, "set")
	assert.Contains(t, commandNames, "check")
}

// Settings Check Tests

func TestSettingsCheckCmd_ReportsReachable(t *testing.T) {
	oldChecker := backendChecker
	backendChecker = func() error { return nil }
	defer func() {
		backendChecker = oldChecker
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "check"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "All configured backends are reachable")
}

func TestSettingsCheckCmd_SurfacesFailure(t *testing.T) {
	oldChecker := backendChecker
	backendChecker = func() error { return errors.New("connection refused") }
	defer func() {
		backendChecker = oldChecker
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"settings", "check"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

// Settings Show Tests

func TestSettingsShowCmd_PrintsDefaults(t *testing.T) {
	oldStore := configStore
	oldEmbedding := embeddingProvider
	oldLLM := llmProvider
	configStore = newMockConfigStore()
	embeddingProvider = "ollama"
	llmProvider = ""
	defer func() {
		configStore = oldStore
		embeddingProvider = oldEmbedding
		llmProvider = oldLLM
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "show"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Provider: ollama")
	assert.Contains(t, buf.String(), "Provider: (not configured)")
	assert.Contains(t, buf.String(), "semantic_floor:")
	assert.Contains(t, buf.String(), "0.35")
	assert.Contains(t, buf.String(), "top_k:")
	assert.Contains(t, buf.String(), "Config file: /tmp/exemplar-test/config.toml")
}

func TestSettingsShowCmd_PrefersConfiguredValues(t *testing.T) {
	oldStore := configStore
	store := newMockConfigStore()
	_ = store.Set("analysis.semantic_floor", 0.5)
	_ = store.Set("analysis.top_k", int64(9))
	configStore = store
	defer func() {
		configStore = oldStore
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "show"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "0.50")
	assert.Regexp(t, `top_k:\s+9`, buf.String())
}

func TestSettingsShowCmd_StoreNotConfigured(t *testing.T) {
	oldStore := configStore
	configStore = nil
	defer func() {
		configStore = oldStore
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"settings", "show"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config store not configured")
}

// Settings Set Tests

func TestSettingsSetCmd_RequiresKeyAndValue(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"settings", "set", "analysis.top_k"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestSettingsSetCmd_CoercesNumbers(t *testing.T) {
	oldStore := configStore
	store := newMockConfigStore()
	configStore = store
	defer func() {
		configStore = oldStore
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "set", "analysis.semantic_floor", "0.4"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Set analysis.semantic_floor = 0.4")
	value, ok := store.Get("analysis.semantic_floor")
	assert.True(t, ok)
	assert.Equal(t, 0.4, value)
}

func TestSettingsSetCmd_KeepsStringsAsStrings(t *testing.T) {
	oldStore := configStore
	store := newMockConfigStore()
	configStore = store
	defer func() {
		configStore = oldStore
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "set", "embedding.model", "nomic-embed-text"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	value, ok := store.Get("embedding.model")
	assert.True(t, ok)
	assert.Equal(t, "nomic-embed-text", value)
}
