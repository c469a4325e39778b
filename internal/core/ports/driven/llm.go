package driven

import "context"

// GenerationService provides chat-completion text generation.
// The core treats it as a black box returning text expected to parse
// as the alignment contract; correctness is enforced by validation,
// not by trusting the backend.
//
// Implementations may include:
//   - OpenAI (GPT models)
//   - Anthropic (Claude)
//   - Ollama (local models)
type GenerationService interface {
	// Complete produces a completion for the prompt. Calls may block
	// for seconds to tens of seconds; callers impose their own timeout
	// via ctx and must not hold library write locks across the call.
	//
	// Errors wrap domain.ErrBackendUnavailable or domain.ErrRateLimited
	// where the failure class is known.
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)

	// ModelName returns the name of the generation model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompleteOptions configures a generation call.
type CompleteOptions struct {
	// MaxTokens is the output budget for the call.
	MaxTokens int

	// Temperature controls randomness. Alignment requests always use 0
	// so output is reproducible and validation failures are not noise.
	Temperature float64
}
