package engine

import "context"

// Engine abstracts a local inference backend (Ollama or any OpenAI-compatible
// server). The completion service talks to this interface instead of a
// concrete client. Errors returned by Chat carry an apperr completion kind.
type Engine interface {
	// Name identifies the backend in status output.
	Name() string

	// Chat sends messages to the given model and returns the assistant's response.
	Chat(ctx context.Context, model string, messages []Message, opts GenOptions) (string, error)

	// IsRunning reports whether the inference backend is reachable.
	IsRunning(ctx context.Context) bool

	// ListModels returns the names of all locally available models.
	ListModels(ctx context.Context) ([]string, error)

	// HasModel reports whether the given model name is available locally.
	HasModel(ctx context.Context, name string) bool

	// PullModel downloads a model. The optional callback receives progress
	// updates. Backends that cannot pull return ErrPullUnsupported.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
