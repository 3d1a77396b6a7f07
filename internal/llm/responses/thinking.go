package responses

import (
	"strings"

	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/internal/llm/openai"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

// Thinking covers the responses-API half of the OpenAI family. Model naming
// is shared with chat completions; the wire-level controls differ.
type Thinking struct{}

func (Thinking) SupportsThinking(model string) bool {
	return openai.Thinking{}.SupportsThinking(model)
}

func (Thinking) PrepareMessages(msgs []schema.ChatMessage) []schema.ChatMessage {
	return llm.StripReasoning(msgs)
}

func (Thinking) ValidateConfig(cfg *schema.GenerationConfig) schema.ThinkingValidation {
	warnings := llm.CheckThinkingBudget(cfg, 0)
	if cfg != nil && cfg.Thinking.Enabled && cfg.Thinking.BudgetTokens != nil {
		warnings = append(warnings, "the responses API takes an effort level, not a token budget")
	}
	return schema.ThinkingValidation{Valid: true, Warnings: warnings}
}

// buildRequest translates the shared model into a responses-API request.
// For reasoning models each message's content is wrapped as typed parts and
// the reasoning block is attached; for everything else content stays a
// plain string and no reasoning controls are sent, even when requested.
func buildRequest(msgs []schema.ChatMessage, cfg *schema.GenerationConfig) *request {
	reasoning := Thinking{}.SupportsThinking(cfg.Model)

	req := &request{
		Model:           cfg.Model,
		MaxOutputTokens: cfg.MaxTokens,
		TopP:            cfg.TopP,
	}
	if !reasoning {
		// reasoning models reject sampling temperature outright
		req.Temperature = cfg.Temperature
	}

	for _, m := range msgs {
		item := inputItem{Role: string(m.Role)}
		if reasoning {
			partType := "input_text"
			if m.Role == schema.RoleAssistant {
				partType = "output_text"
			}
			item.Content = []contentItem{{Type: partType, Text: m.Content}}
		} else {
			item.Content = m.Content
		}
		req.Input = append(req.Input, item)
	}

	if reasoning && cfg.Thinking.Enabled {
		req.Reasoning = &reasoningConfig{
			Effort:  cfg.Thinking.Effort,
			Summary: "auto",
		}
		if cfg.Thinking.IncludeInOutput {
			req.Include = []string{"reasoning.encrypted_content"}
		}
	}
	return req
}

// extractThinking pulls the reasoning trace from the dedicated output item.
// Summary texts join in emission order; the encrypted payload rides along
// opaquely for callers that replay it.
func extractThinking(resp *response) *schema.ReasoningTrace {
	var parts []string
	var encrypted string
	for _, item := range resp.Output {
		if item.Type != "reasoning" {
			continue
		}
		for _, s := range item.Summary {
			if s.Text != "" {
				parts = append(parts, s.Text)
			}
		}
		if item.EncryptedContent != "" {
			encrypted = item.EncryptedContent
		}
	}
	if len(parts) == 0 {
		// an encrypted blob alone is not a readable reasoning segment
		return nil
	}

	trace := &schema.ReasoningTrace{Content: strings.Join(parts, "\n")}
	trace.Summary = trace.Content
	if encrypted != "" {
		trace.ProviderData = map[string]any{"encrypted_content": encrypted}
	}
	if resp.Usage != nil && resp.Usage.OutputTokensDetails != nil {
		trace.Tokens = resp.Usage.OutputTokensDetails.ReasoningTokens
	}
	return trace
}
