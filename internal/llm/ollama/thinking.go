package ollama

import (
	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

// Local model families known to emit reasoning, either through the native
// thinking field or inline <think> tags.
var reasoningKeywords = []string{
	"deepseek-r1",
	"qwq",
	"qwen3",
	"r1",
	"gpt-oss",
	"magistral",
	"cogito",
}

type Thinking struct{}

func (Thinking) SupportsThinking(model string) bool {
	return llm.MatchesAny(model, reasoningKeywords)
}

func (Thinking) PrepareMessages(msgs []schema.ChatMessage) []schema.ChatMessage {
	return llm.StripReasoning(msgs)
}

func (t Thinking) ValidateConfig(cfg *schema.GenerationConfig) schema.ThinkingValidation {
	if !cfg.Thinking.Enabled {
		return schema.ThinkingValidation{Valid: true}
	}
	v := schema.ThinkingValidation{Valid: true}
	if cfg.Thinking.BudgetTokens != nil {
		v.Warnings = append(v.Warnings, "budget_tokens is not supported locally; thinking length follows the model")
	}
	if cfg.Thinking.Effort != "" {
		v.Warnings = append(v.Warnings, "effort is not supported locally and will be ignored")
	}
	if !t.SupportsThinking(cfg.Model) {
		v.Warnings = append(v.Warnings, "model is not known to support thinking; the think flag may be rejected")
	}
	return v
}
