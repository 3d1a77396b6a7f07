package google

import (
	"strings"

	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

// Model families that accept a thinkingConfig block.
var reasoningKeywords = []string{
	"gemini-2.5",
	"gemini-2.0-flash-thinking",
	"thinking",
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
	warnings := llm.CheckThinkingBudget(cfg, 0)
	if !t.SupportsThinking(cfg.Model) {
		warnings = append(warnings, "model does not advertise thinking support; thinkingConfig will be rejected upstream")
	}
	return schema.ThinkingValidation{Valid: true, Warnings: warnings}
}

// buildThinkingConfig maps the normalized thinking options onto the
// generationConfig.thinkingConfig block. A budget of 0 disables thinking
// on models where it is otherwise on by default, so the zero value is
// passed through rather than elided.
func buildThinkingConfig(cfg *schema.GenerationConfig) *thinkingConfig {
	if !cfg.Thinking.Enabled || !(Thinking{}).SupportsThinking(cfg.Model) {
		return nil
	}
	tc := &thinkingConfig{IncludeThoughts: cfg.Thinking.IncludeInOutput}
	if cfg.Thinking.BudgetTokens != nil {
		tc.ThinkingBudget = cfg.Thinking.BudgetTokens
	}
	return tc
}

// splitParts separates thought parts from answer parts in a candidate.
// Multiple thought parts join with newlines into one trace.
func splitParts(parts []part) (string, *schema.ReasoningTrace) {
	var text, thoughts []string
	for _, p := range parts {
		if p.Text == "" {
			continue
		}
		if p.Thought {
			thoughts = append(thoughts, p.Text)
		} else {
			text = append(text, p.Text)
		}
	}
	if len(thoughts) == 0 {
		return strings.Join(text, ""), nil
	}
	return strings.Join(text, ""), &schema.ReasoningTrace{Content: strings.Join(thoughts, "\n")}
}
