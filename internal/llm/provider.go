package llm

import (
	"context"

	"github.com/nulzo/llm-bridge/pkg/schema"
)

type ProviderName string

const (
	OpenAI          ProviderName = "openai"
	OpenAIResponses ProviderName = "openai_responses"
	Anthropic       ProviderName = "anthropic"
	Google          ProviderName = "google"
	Ollama          ProviderName = "ollama"
	Compat          ProviderName = "openai_compatible"
)

// Provider is the contract every upstream adapter implements. Adapters are
// stateless: configuration and credentials arrive per call, nothing is cached
// between requests.
type Provider interface {
	Name() string

	// Chat performs one blocking round trip. A response without content is
	// an error, never an empty success.
	Chat(ctx context.Context, msgs []schema.ChatMessage, cfg *schema.GenerationConfig) (*schema.ChatResponse, error)

	// Stream emits one fragment per upstream increment and exactly one
	// fragment with Done set. Adapters without an incremental mode return
	// an *UnsupportedError instead of falling back to Chat.
	Stream(ctx context.Context, msgs []schema.ChatMessage, cfg *schema.GenerationConfig) (<-chan schema.StreamResult, error)

	// TestConnection is the cheapest authenticated call against the
	// upstream. It must not depend on cfg.Model being valid.
	TestConnection(ctx context.Context, cfg *schema.GenerationConfig) error

	// Models enumerates upstream models filtered to conversational ones.
	// An empty result after filtering is an error.
	Models(ctx context.Context, cfg *schema.GenerationConfig) ([]schema.ModelInfo, error)
}

// Thinking is the provider-neutral surface of a reasoning adapter. The
// wire-level halves (building reasoning controls into a native request,
// extracting a trace out of a native response) live inside each provider
// package next to its wire types.
type Thinking interface {
	// SupportsThinking reports whether the model id matches the vendor's
	// reasoning-model naming. Unknown models are false.
	SupportsThinking(model string) bool

	// PrepareMessages readies a conversation for replay, stripping or
	// keeping previously attached reasoning per the vendor's rules.
	PrepareMessages(msgs []schema.ChatMessage) []schema.ChatMessage

	// ValidateConfig flags risky reasoning configurations. It never fails
	// hard: the verdict is always Valid with zero or more warnings.
	ValidateConfig(cfg *schema.GenerationConfig) schema.ThinkingValidation
}
