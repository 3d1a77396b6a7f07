package compat

import (
	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

// Hosted-compatible model families known to reason. Deliberately broad:
// a false positive only switches the token-limit field name, which the
// one-shot retry corrects.
var reasoningKeywords = []string{
	"deepseek-reasoner",
	"deepseek-r1",
	"qwq",
	"o1",
	"o3",
	"r1",
	"thinking",
	"reasoner",
}

type Thinking struct{}

func (Thinking) SupportsThinking(model string) bool {
	return llm.MatchesAny(model, reasoningKeywords)
}

func (Thinking) PrepareMessages(msgs []schema.ChatMessage) []schema.ChatMessage {
	return llm.StripReasoning(msgs)
}

func (Thinking) ValidateConfig(cfg *schema.GenerationConfig) schema.ThinkingValidation {
	var warnings []string
	if cfg != nil && cfg.Thinking.Enabled && cfg.Thinking.BudgetTokens != nil {
		warnings = append(warnings, "budget_tokens has no chat-completions equivalent; set effort instead")
	}
	return schema.ThinkingValidation{Valid: true, Warnings: warnings}
}
