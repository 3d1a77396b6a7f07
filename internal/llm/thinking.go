package llm

import (
	"fmt"
	"strings"

	"github.com/nulzo/llm-bridge/pkg/schema"
)

// StripReasoning removes previously attached thinking payloads from
// assistant turns before a conversation is replayed. Every provider family
// uses this except Anthropic, which tolerates (and benefits from) replaying
// its own thinking blocks unchanged.
func StripReasoning(msgs []schema.ChatMessage) []schema.ChatMessage {
	out := make([]schema.ChatMessage, len(msgs))
	copy(out, msgs)
	for i := range out {
		if out[i].Role == schema.RoleAssistant {
			out[i].Reasoning = ""
			out[i].Signature = ""
		}
	}
	return out
}

// CheckThinkingBudget produces the warnings common to every reasoning
// adapter: a zero budget that silently disables reasoning, a missing output
// bound, a budget below the vendor's known-safe floor, and a budget that
// leaves no room for the answer. Pass floor 0 when the vendor has none.
func CheckThinkingBudget(cfg *schema.GenerationConfig, floor int) []string {
	var warnings []string
	if cfg == nil || !cfg.Thinking.Enabled {
		return warnings
	}
	if b := cfg.Thinking.BudgetTokens; b != nil {
		switch {
		case *b == 0:
			warnings = append(warnings, "thinking budget of 0 disables reasoning")
		case floor > 0 && *b < floor:
			warnings = append(warnings, fmt.Sprintf("thinking budget %d is below the known-safe floor of %d", *b, floor))
		}
		if cfg.MaxTokens > 0 && *b >= cfg.MaxTokens {
			warnings = append(warnings, "thinking budget leaves no tokens for the final answer")
		}
	}
	if cfg.MaxTokens == 0 {
		warnings = append(warnings, "no max output tokens set; reasoning output may be truncated by upstream defaults")
	}
	return warnings
}

// MatchesAny reports whether the model id contains one of the keywords,
// case-insensitively. Keyword lists are data owned by each adapter, not
// control flow.
func MatchesAny(model string, keywords []string) bool {
	model = strings.ToLower(model)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(model, kw) {
			return true
		}
	}
	return false
}
