package openai

import (
	"strings"

	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

// Thinking handles the reasoning side of the chat-completions family:
// o-series and gpt-5 models accept a reasoning_effort knob, and compatible
// upstreams expose their chain of thought through a reasoning_content field.
type Thinking struct{}

// Reasoning model naming for the OpenAI family. The o-series ids are
// prefixes ("o1", "o3-mini", "o4-mini-2025-04-16"); gpt-5 ids keep the
// keyword anywhere in the id.
var (
	reasoningPrefixes = []string{"o1", "o3", "o4"}
	reasoningKeywords = []string{"gpt-5"}
)

func (Thinking) SupportsThinking(model string) bool {
	model = strings.ToLower(model)
	for _, p := range reasoningPrefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return llm.MatchesAny(model, reasoningKeywords)
}

func (Thinking) PrepareMessages(msgs []schema.ChatMessage) []schema.ChatMessage {
	return llm.StripReasoning(msgs)
}

func (Thinking) ValidateConfig(cfg *schema.GenerationConfig) schema.ThinkingValidation {
	warnings := llm.CheckThinkingBudget(cfg, 0)
	if cfg != nil && cfg.Thinking.Enabled && cfg.Thinking.BudgetTokens != nil {
		warnings = append(warnings, "the chat-completions API has no token budget; use effort instead")
	}
	return schema.ThinkingValidation{Valid: true, Warnings: warnings}
}

// extractThinking pulls a reasoning trace out of a completed response.
// Candidate locations, in priority order: the reasoning_content field
// (DeepSeek convention), then the reasoning field (OpenRouter convention).
// No match means no trace.
func extractThinking(resp *chatResponse) *schema.ReasoningTrace {
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return nil
	}
	msg := resp.Choices[0].Message

	text := msg.ReasoningContent
	if text == "" {
		text = msg.Reasoning
	}
	if text == "" {
		return nil
	}

	trace := &schema.ReasoningTrace{Content: text}
	if resp.Usage != nil && resp.Usage.CompletionTokensDetails != nil {
		trace.Tokens = resp.Usage.CompletionTokensDetails.ReasoningTokens
	}
	return trace
}

// decodeStreamChunk turns one SSE chunk into a fragment, separating a
// reasoning increment from an answer increment even though both ride the
// same delta shape. Chunks with nothing to report (usage-only records)
// return nil.
func decodeStreamChunk(chunk *chatResponse) *schema.StreamFragment {
	if len(chunk.Choices) == 0 {
		return nil
	}
	c := chunk.Choices[0]

	frag := &schema.StreamFragment{Model: chunk.Model}
	if c.Delta != nil {
		frag.Content = c.Delta.Content
		if r := c.Delta.ReasoningContent; r == "" {
			if c.Delta.Reasoning != "" {
				frag.Thinking = &schema.ThinkingFragment{Content: c.Delta.Reasoning}
			}
		} else {
			frag.Thinking = &schema.ThinkingFragment{Content: r}
		}
	}
	if c.FinishReason != "" {
		frag.Done = true
	}

	if frag.Content == "" && frag.Thinking == nil && !frag.Done {
		return nil
	}
	return frag
}
