package anthropic

import (
	"strings"

	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

// budgetFloor is the smallest thinking budget the messages API accepts.
const budgetFloor = 1024

// Thinking handles extended thinking on the messages API: a token budget on
// the request, thinking blocks with a round-trip signature on the response.
type Thinking struct{}

// Extended-thinking model naming. Claude 3.7 and every Claude 4 generation
// support it; older generations silently ignore the config at best.
var reasoningKeywords = []string{
	"claude-3-7",
	"claude-3.7",
	"claude-sonnet-4",
	"claude-opus-4",
	"claude-haiku-4",
	"claude-4",
}

func (Thinking) SupportsThinking(model string) bool {
	return llm.MatchesAny(model, reasoningKeywords)
}

// PrepareMessages keeps replayed thinking payloads intact. This is the one
// family documented to verify and benefit from getting its own thinking
// blocks back on the next turn.
func (Thinking) PrepareMessages(msgs []schema.ChatMessage) []schema.ChatMessage {
	return msgs
}

func (Thinking) ValidateConfig(cfg *schema.GenerationConfig) schema.ThinkingValidation {
	warnings := llm.CheckThinkingBudget(cfg, budgetFloor)
	if cfg != nil && cfg.Thinking.Enabled && cfg.Temperature != nil {
		warnings = append(warnings, "temperature is ignored while extended thinking is enabled")
	}
	return schema.ThinkingValidation{Valid: true, Warnings: warnings}
}

// applyThinking attaches the extended-thinking config when the model
// supports it. The API rejects sampling temperature alongside thinking, so
// it is dropped rather than letting the call fail.
func applyThinking(req *request, cfg *schema.GenerationConfig) {
	if !cfg.Thinking.Enabled || !(Thinking{}).SupportsThinking(cfg.Model) {
		return
	}

	budget := budgetFloor
	if cfg.Thinking.BudgetTokens != nil && *cfg.Thinking.BudgetTokens > 0 {
		budget = *cfg.Thinking.BudgetTokens
	}
	req.Thinking = &thinkingConfig{Type: "enabled", BudgetTokens: budget}
	req.Temperature = nil
	req.TopP = nil
	req.TopK = nil

	if req.MaxTokens <= budget {
		// max_tokens must leave room for the answer after the budget
		req.MaxTokens = budget + defaultMaxTokens
	}
}

// extractThinking collects thinking blocks from a completed response in
// emission order. Multiple blocks join with a newline; the last signature
// seen wins, and is carried opaquely for the next turn.
func extractThinking(resp *response) *schema.ReasoningTrace {
	var parts []string
	var signature string
	for _, block := range resp.Content {
		if block.Type != "thinking" {
			continue
		}
		if block.Thinking != "" {
			parts = append(parts, block.Thinking)
		}
		if block.Signature != "" {
			signature = block.Signature
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return &schema.ReasoningTrace{
		Content:   strings.Join(parts, "\n"),
		Signature: signature,
	}
}
