package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/llm-bridge/internal/httpclient"
	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/internal/llm/processing"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

const defaultBaseURL = "http://localhost:11434"

func init() {
	llm.Register(llm.Ollama, func() llm.Provider { return NewAdapter() })
	llm.RegisterThinking(llm.Ollama, Thinking{})
}

// Adapter speaks the native Ollama API (/api/chat NDJSON), not its OpenAI
// compatibility shim, so thinking and context-length options survive.
type Adapter struct {
	client       *http.Client
	streamClient *http.Client
}

func NewAdapter() *Adapter {
	return &Adapter{
		// local inference can be slow; give completions a long leash
		client:       &http.Client{Timeout: 300 * time.Second},
		streamClient: &http.Client{},
	}
}

func (a *Adapter) Name() string { return string(llm.Ollama) }

func (a *Adapter) base(cfg *schema.GenerationConfig) string {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/")
	}
	return defaultBaseURL
}

type chatMessage struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	Thinking string `json:"thinking,omitempty"`
}

type options struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty"`
	Seed          *int     `json:"seed,omitempty"`
	Stop          []string `json:"stop,omitempty"`
	NumPredict    int      `json:"num_predict,omitempty"`
	NumCtx        int      `json:"num_ctx,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Think    *bool         `json:"think,omitempty"`
	Options  *options      `json:"options,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
}

func buildRequest(msgs []schema.ChatMessage, cfg *schema.GenerationConfig, stream bool) *chatRequest {
	req := &chatRequest{
		Model:  cfg.Model,
		Stream: stream,
		Options: &options{
			Temperature:   cfg.Temperature,
			TopP:          cfg.TopP,
			TopK:          cfg.TopK,
			RepeatPenalty: cfg.RepeatPenalty,
			Seed:          cfg.Seed,
			Stop:          cfg.Stop,
			NumPredict:    cfg.MaxTokens,
			NumCtx:        cfg.NumCtx,
		},
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, chatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	if cfg.Thinking.Enabled && (Thinking{}).SupportsThinking(cfg.Model) {
		think := true
		req.Think = &think
	}
	return req
}

func (a *Adapter) Chat(ctx context.Context, msgs []schema.ChatMessage, cfg *schema.GenerationConfig) (*schema.ChatResponse, error) {
	req := buildRequest(msgs, cfg, false)

	var resp chatResponse
	if err := httpclient.SendRequest(ctx, a.client, "POST", a.base(cfg)+"/api/chat", nil, req, &resp); err != nil {
		return nil, llm.WrapUpstream(a.Name(), err)
	}

	text := resp.Message.Content
	trace := extractThinking(&resp)
	if trace == nil {
		// older models emit inline <think> tags instead of the thinking field
		var inline string
		text, inline = processing.ExtractThinking(text)
		if inline != "" {
			trace = &schema.ReasoningTrace{Content: inline}
		}
	}
	if text == "" {
		return nil, llm.WrapUpstream(a.Name(), llm.ErrEmptyCompletion)
	}

	model := resp.Model
	if model == "" {
		model = cfg.Model
	}
	out := &schema.ChatResponse{
		Content:    text,
		Model:      model,
		Provider:   a.Name(),
		Thinking:   trace,
		ResponseID: "ollama-" + uuid.NewString(),
		Created:    time.Now().Unix(),
	}
	if resp.PromptEvalCount > 0 || resp.EvalCount > 0 {
		out.Usage = &schema.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		}
	}
	return out, nil
}

func (a *Adapter) Stream(ctx context.Context, msgs []schema.ChatMessage, cfg *schema.GenerationConfig) (<-chan schema.StreamResult, error) {
	req := buildRequest(msgs, cfg, true)
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
		sawDone := false
		err := httpclient.StreamRequest(ctx, a.streamClient, "POST", a.base(cfg)+"/api/chat", nil, req, func(line string) error {
			var chunk chatResponse
			if err := json.Unmarshal([]byte(line), &chunk); err != nil {
				return nil
			}

			if chunk.Message.Thinking != "" {
				frag := &schema.StreamFragment{
					Provider: a.Name(),
					Model:    cfg.Model,
					Thinking: &schema.ThinkingFragment{Content: chunk.Message.Thinking},
				}
				if !emit(schema.StreamResult{Fragment: frag}) {
					return ctx.Err()
				}
			}

			if chunk.Message.Content != "" {
				// route through the tag parser for models that think inline
				text, thought := parser.Process(chunk.Message.Content)
				if thought != "" {
					frag := &schema.StreamFragment{
						Provider: a.Name(),
						Model:    cfg.Model,
						Thinking: &schema.ThinkingFragment{Content: thought},
					}
					if !emit(schema.StreamResult{Fragment: frag}) {
						return ctx.Err()
					}
				}
				if text != "" {
					frag := &schema.StreamFragment{Content: text, Provider: a.Name(), Model: cfg.Model}
					if !emit(schema.StreamResult{Fragment: frag}) {
						return ctx.Err()
					}
				}
			}

			if chunk.Done {
				sawDone = true
				tail, tailThought := parser.Flush()
				if tailThought != "" {
					frag := &schema.StreamFragment{
						Provider: a.Name(),
						Model:    cfg.Model,
						Thinking: &schema.ThinkingFragment{Content: tailThought},
					}
					if !emit(schema.StreamResult{Fragment: frag}) {
						return ctx.Err()
					}
				}
				if tail != "" {
					frag := &schema.StreamFragment{Content: tail, Provider: a.Name(), Model: cfg.Model}
					if !emit(schema.StreamResult{Fragment: frag}) {
						return ctx.Err()
					}
				}
				frag := &schema.StreamFragment{Done: true, Provider: a.Name(), Model: cfg.Model}
				if !emit(schema.StreamResult{Fragment: frag}) {
					return ctx.Err()
				}
				return httpclient.ErrStopStream
			}
			return nil
		})

		if err != nil {
			emit(schema.StreamResult{Err: llm.WrapUpstream(a.Name(), err)})
			return
		}
		if !sawDone {
			emit(schema.StreamResult{Err: llm.WrapUpstream(a.Name(), errors.New("stream ended before done record"))})
		}
	}()

	return ch, nil
}

func (a *Adapter) TestConnection(ctx context.Context, cfg *schema.GenerationConfig) error {
	var version struct {
		Version string `json:"version"`
	}
	if err := httpclient.SendRequest(ctx, a.client, "GET", a.base(cfg)+"/api/version", nil, nil, &version); err != nil {
		return llm.WrapUpstream(a.Name(), err)
	}
	return nil
}

var nonChatKeywords = []string{"embed", "embedding", "bge-", "nomic-embed"}

type tagEntry struct {
	Name string `json:"name"`
}

type tagsResponse struct {
	Models []tagEntry `json:"models"`
}

func (a *Adapter) Models(ctx context.Context, cfg *schema.GenerationConfig) ([]schema.ModelInfo, error) {
	var tags tagsResponse
	if err := httpclient.SendRequest(ctx, a.client, "GET", a.base(cfg)+"/api/tags", nil, nil, &tags); err != nil {
		return nil, llm.WrapUpstream(a.Name(), err)
	}

	var models []schema.ModelInfo
	for _, m := range tags.Models {
		if llm.MatchesAny(m.Name, nonChatKeywords) {
			continue
		}
		models = append(models, schema.ModelInfo{ID: m.Name, DisplayName: m.Name})
	}
	if len(models) == 0 {
		return nil, llm.WrapUpstream(a.Name(), errors.New("no chat models pulled; run `ollama pull <model>` first"))
	}
	return models, nil
}

func extractThinking(resp *chatResponse) *schema.ReasoningTrace {
	if resp.Message.Thinking == "" {
		return nil
	}
	return &schema.ReasoningTrace{Content: resp.Message.Thinking}
}
