package compat

import (
	"context"

	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/internal/llm/openai"
	"github.com/nulzo/llm-bridge/internal/llm/processing"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

func init() {
	llm.Register(llm.Compat, func() llm.Provider { return NewAdapter() })
	llm.RegisterThinking(llm.Compat, Thinking{})
}

// Adapter fronts any OpenAI-compatible endpoint (vLLM, LM Studio, OpenRouter,
// DeepSeek, Groq and friends). The wire format is inherited from the OpenAI
// adapter; what this layer adds is recovery of reasoning from inline <think>
// tags, which compatible upstreams emit when they have no reasoning field.
type Adapter struct {
	*openai.Adapter
}

func NewAdapter() *Adapter {
	return &Adapter{
		Adapter: openai.NewNamed(string(llm.Compat), "", Thinking{}.SupportsThinking),
	}
}

func (a *Adapter) Chat(ctx context.Context, msgs []schema.ChatMessage, cfg *schema.GenerationConfig) (*schema.ChatResponse, error) {
	out, err := a.Adapter.Chat(ctx, msgs, cfg)
	if err != nil {
		return nil, err
	}

	// upstreams with a real reasoning field already produced a trace
	if out.Thinking == nil {
		content, thought := processing.ExtractThinking(out.Content)
		if thought != "" {
			out.Content = content
			out.Thinking = &schema.ReasoningTrace{Content: thought}
		}
	}
	out.Provider = a.Name()
	return out, nil
}

func (a *Adapter) Stream(ctx context.Context, msgs []schema.ChatMessage, cfg *schema.GenerationConfig) (<-chan schema.StreamResult, error) {
	inner, err := a.Adapter.Stream(ctx, msgs, cfg)
	if err != nil {
		return nil, err
	}

	ch := make(chan schema.StreamResult)
	go func() {
		defer close(ch)

		emit := func(res schema.StreamResult) bool {
			select {
			case ch <- res:
				return true
			case <-ctx.Done():
				return false
			}
		}

		parser := &processing.StreamParser{}
		for res := range inner {
			if res.Err != nil || res.Fragment == nil {
				if !emit(res) {
					return
				}
				continue
			}

			frag := res.Fragment
			frag.Provider = a.Name()

			// fragments already split by the upstream pass straight through
			if frag.Thinking != nil || frag.Content == "" {
				if frag.Done {
					tail, tailThought := parser.Flush()
					if tailThought != "" {
						tfrag := &schema.StreamFragment{
							Provider: a.Name(),
							Model:    frag.Model,
							Thinking: &schema.ThinkingFragment{Content: tailThought},
						}
						if !emit(schema.StreamResult{Fragment: tfrag}) {
							return
						}
					}
					if tail != "" {
						tfrag := &schema.StreamFragment{Content: tail, Provider: a.Name(), Model: frag.Model}
						if !emit(schema.StreamResult{Fragment: tfrag}) {
							return
						}
					}
				}
				if !emit(res) {
					return
				}
				continue
			}

			text, thought := parser.Process(frag.Content)
			if frag.Done {
				// the terminal delta can carry text; drain any held-back
				// partial tag so the tail is not lost
				tail, tailThought := parser.Flush()
				text += tail
				thought += tailThought
			}
			if thought != "" {
				tfrag := &schema.StreamFragment{
					Provider: a.Name(),
					Model:    frag.Model,
					Thinking: &schema.ThinkingFragment{Content: thought},
				}
				if !emit(schema.StreamResult{Fragment: tfrag}) {
					return
				}
			}
			if text != "" || frag.Done {
				frag.Content = text
				if !emit(schema.StreamResult{Fragment: frag}) {
					return
				}
			}
		}
	}()

	return ch, nil
}
