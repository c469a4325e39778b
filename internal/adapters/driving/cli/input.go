package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// readInputText returns the draft text for an analysis command: the
// contents of the file argument when given, otherwise everything on
// stdin (so commands compose with pipes).
func readInputText(args []string, index int) (string, error) {
	if len(args) > index {
		data, err := os.ReadFile(args[index])
		if err != nil {
			return "", fmt.Errorf("read input file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no input text: pass a file or pipe text on stdin")
	}
	return text, nil
}

// truncate shortens s for single-line display.
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
