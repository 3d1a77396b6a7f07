package responses

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nulzo/llm-bridge/internal/httpclient"
	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/internal/llm/openai"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

const defaultBaseURL = "https://api.openai.com/v1"

func init() {
	llm.Register(llm.OpenAIResponses, func() llm.Provider { return NewAdapter() })
	llm.RegisterThinking(llm.OpenAIResponses, Thinking{})
}

// Adapter speaks the OpenAI responses API, the extended-response variant of
// the chat-completions family. Model listing and connection checks ride the
// embedded chat-completions adapter; only the completion path differs.
//
// The responses endpoint has no incremental mode here: Stream fails fast
// with an unsupported-operation error so the caller owns the fallback.
type Adapter struct {
	*openai.Adapter
	client *http.Client
}

func NewAdapter() *Adapter {
	return &Adapter{
		Adapter: openai.NewNamed(string(llm.OpenAIResponses), defaultBaseURL, nil),
		client:  &http.Client{Timeout: 300 * time.Second},
	}
}

func (a *Adapter) endpoint(cfg *schema.GenerationConfig) string {
	base := defaultBaseURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}
	return strings.TrimRight(base, "/") + "/responses"
}

func (a *Adapter) headers(cfg *schema.GenerationConfig) map[string]string {
	return map[string]string{"Authorization": "Bearer " + cfg.APIKey}
}

func (a *Adapter) Chat(ctx context.Context, msgs []schema.ChatMessage, cfg *schema.GenerationConfig) (*schema.ChatResponse, error) {
	req := buildRequest(msgs, cfg)

	var resp response
	if err := httpclient.SendRequest(ctx, a.client, "POST", a.endpoint(cfg), a.headers(cfg), req, &resp); err != nil {
		return nil, llm.WrapUpstream(a.Name(), err)
	}
	if resp.Error != nil {
		return nil, llm.WrapUpstream(a.Name(), fmt.Errorf("response %s failed: %s", resp.ID, resp.Error.Message))
	}

	content := collectText(&resp)
	if content == "" {
		return nil, llm.WrapUpstream(a.Name(), llm.ErrEmptyCompletion)
	}

	out := &schema.ChatResponse{
		Content:    content,
		Model:      resp.Model,
		Provider:   a.Name(),
		Thinking:   extractThinking(&resp),
		ResponseID: resp.ID,
		Created:    int64(resp.CreatedAt),
	}
	if resp.Usage != nil {
		out.Usage = &schema.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
		if d := resp.Usage.OutputTokensDetails; d != nil {
			out.Usage.ReasoningTokens = d.ReasoningTokens
		}
	}
	return out, nil
}

// Stream is not available on this adapter. The error is distinct from
// upstream failures so callers can route around it deliberately.
func (a *Adapter) Stream(ctx context.Context, msgs []schema.ChatMessage, cfg *schema.GenerationConfig) (<-chan schema.StreamResult, error) {
	return nil, &llm.UnsupportedError{Provider: a.Name(), Op: "streaming"}
}

func collectText(resp *response) string {
	var out string
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" {
				out += c.Text
			}
		}
	}
	return out
}
