package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nulzo/llm-bridge/internal/httpclient"
	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
)

func init() {
	llm.Register(llm.Anthropic, func() llm.Provider { return NewAdapter() })
	llm.RegisterThinking(llm.Anthropic, Thinking{})
}

type Adapter struct {
	client       *http.Client
	streamClient *http.Client
}

func NewAdapter() *Adapter {
	return &Adapter{
		client:       &http.Client{Timeout: 120 * time.Second},
		streamClient: &http.Client{},
	}
}

func (a *Adapter) Name() string { return string(llm.Anthropic) }

func (a *Adapter) endpoint(cfg *schema.GenerationConfig, path string) string {
	base := defaultBaseURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}
	return strings.TrimRight(base, "/") + path
}

func (a *Adapter) headers(cfg *schema.GenerationConfig) map[string]string {
	return map[string]string{
		"x-api-key":         cfg.APIKey,
		"anthropic-version": apiVersion,
	}
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type      string `json:"type"` // "text" or "thinking"
	Text      string `json:"text,omitempty"`
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`
}

type thinkingConfig struct {
	Type         string `json:"type"` // "enabled"
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

type request struct {
	Model         string          `json:"model"`
	System        string          `json:"system,omitempty"`
	Messages      []message       `json:"messages"`
	MaxTokens     int             `json:"max_tokens"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	TopK          *int            `json:"top_k,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
	Thinking      *thinkingConfig `json:"thinking,omitempty"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type response struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      usage          `json:"usage"`
}

// buildRequest translates the shared model into a messages-API request.
// The leading system message moves into the dedicated system field;
// assistant turns carrying a replayed thinking payload become a thinking
// block ahead of their text (the API verifies the signature round trip).
func buildRequest(msgs []schema.ChatMessage, cfg *schema.GenerationConfig) *request {
	req := &request{
		Model:         cfg.Model,
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		TopP:          cfg.TopP,
		TopK:          cfg.TopK,
		StopSequences: cfg.Stop,
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = defaultMaxTokens
	}

	for _, m := range msgs {
		if m.Role == schema.RoleSystem {
			// system turns fold into the side channel wherever they sit
			if req.System != "" {
				req.System += "\n"
			}
			req.System += m.Content
			continue
		}

		var blocks []contentBlock
		if m.Role == schema.RoleAssistant && m.Reasoning != "" {
			sig := m.Signature
			if sig == "" {
				sig = cfg.Thinking.Signature
			}
			blocks = append(blocks, contentBlock{Type: "thinking", Thinking: m.Reasoning, Signature: sig})
		}
		blocks = append(blocks, contentBlock{Type: "text", Text: m.Content})
		req.Messages = append(req.Messages, message{Role: string(m.Role), Content: blocks})
	}

	applyThinking(req, cfg)
	return req
}

func (a *Adapter) Chat(ctx context.Context, msgs []schema.ChatMessage, cfg *schema.GenerationConfig) (*schema.ChatResponse, error) {
	req := buildRequest(msgs, cfg)
	req.Stream = false

	var resp response
	url := a.endpoint(cfg, "/messages")
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, a.headers(cfg), req, &resp); err != nil {
		return nil, llm.WrapUpstream(a.Name(), err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, llm.WrapUpstream(a.Name(), llm.ErrEmptyCompletion)
	}

	return &schema.ChatResponse{
		Content:    text,
		Model:      resp.Model,
		Provider:   a.Name(),
		Thinking:   extractThinking(&resp),
		ResponseID: resp.ID,
		Created:    time.Now().Unix(),
		Usage: &schema.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// streamEvent is the envelope of the typed lifecycle events the messages
// API emits while streaming.
type streamEvent struct {
	Type         string        `json:"type"`
	Index        int           `json:"index,omitempty"`
	ContentBlock *contentBlock `json:"content_block,omitempty"`
	Delta        *eventDelta   `json:"delta,omitempty"`
	Usage        *usage        `json:"usage,omitempty"`
}

type eventDelta struct {
	Type       string `json:"type"` // text_delta, thinking_delta, signature_delta
	Text       string `json:"text,omitempty"`
	Thinking   string `json:"thinking,omitempty"`
	Signature  string `json:"signature,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

func (a *Adapter) Stream(ctx context.Context, msgs []schema.ChatMessage, cfg *schema.GenerationConfig) (<-chan schema.StreamResult, error) {
	req := buildRequest(msgs, cfg)
	req.Stream = true

	url := a.endpoint(cfg, "/messages")
	headers := a.headers(cfg)
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

		sawDone := false
		blockTypes := map[int]string{}

		err := httpclient.StreamRequest(ctx, a.streamClient, "POST", url, headers, req, func(line string) error {
			if !strings.HasPrefix(line, "data: ") {
				return nil
			}
			data := strings.TrimPrefix(line, "data: ")

			var event streamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				return nil
			}

			switch event.Type {
			case "content_block_start":
				if event.ContentBlock != nil {
					blockTypes[event.Index] = event.ContentBlock.Type
				}

			case "content_block_delta":
				if event.Delta == nil {
					return nil
				}
				var frag *schema.StreamFragment
				switch event.Delta.Type {
				case "text_delta":
					frag = &schema.StreamFragment{Content: event.Delta.Text}
				case "thinking_delta":
					frag = &schema.StreamFragment{Thinking: &schema.ThinkingFragment{Content: event.Delta.Thinking}}
				default:
					// signature_delta carries no renderable text
					return nil
				}
				frag.Provider = a.Name()
				frag.Model = cfg.Model
				if !emit(schema.StreamResult{Fragment: frag}) {
					return ctx.Err()
				}

			case "content_block_stop":
				if blockTypes[event.Index] == "thinking" {
					frag := &schema.StreamFragment{
						Provider: a.Name(),
						Model:    cfg.Model,
						Thinking: &schema.ThinkingFragment{Done: true},
					}
					if !emit(schema.StreamResult{Fragment: frag}) {
						return ctx.Err()
					}
				}

			case "message_stop":
				sawDone = true
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
			emit(schema.StreamResult{Err: llm.WrapUpstream(a.Name(), errors.New("stream ended without message_stop"))})
		}
	}()

	return ch, nil
}

func (a *Adapter) TestConnection(ctx context.Context, cfg *schema.GenerationConfig) error {
	url := a.endpoint(cfg, "/models?limit=1")
	if err := httpclient.SendRequest(ctx, a.client, "GET", url, a.headers(cfg), nil, nil); err != nil {
		return llm.WrapUpstream(a.Name(), err)
	}
	return nil
}

// The messages API only lists conversational models today; the filter list
// exists so renamed or future non-chat classes fall out without a code path
// change.
var nonChatKeywords = []string{"embed", "embedding"}

type modelList struct {
	Data []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
	HasMore bool `json:"has_more"`
}

func (a *Adapter) Models(ctx context.Context, cfg *schema.GenerationConfig) ([]schema.ModelInfo, error) {
	url := a.endpoint(cfg, "/models")

	var list modelList
	if err := httpclient.SendRequest(ctx, a.client, "GET", url, a.headers(cfg), nil, &list); err != nil {
		return nil, llm.WrapUpstream(a.Name(), err)
	}

	var models []schema.ModelInfo
	for _, m := range list.Data {
		if llm.MatchesAny(m.ID, nonChatKeywords) {
			continue
		}
		name := m.DisplayName
		if name == "" {
			name = m.ID
		}
		models = append(models, schema.ModelInfo{ID: m.ID, DisplayName: name})
	}
	if len(models) == 0 {
		return nil, llm.WrapUpstream(a.Name(), fmt.Errorf("no conversational models visible; check credentials and permissions"))
	}
	return models, nil
}
