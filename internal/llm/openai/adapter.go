package openai

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

const defaultBaseURL = "https://api.openai.com/v1"

func init() {
	llm.Register(llm.OpenAI, func() llm.Provider { return NewAdapter() })
	llm.RegisterThinking(llm.OpenAI, Thinking{})
}

// Adapter speaks the OpenAI chat-completions wire format. Named instances
// serve OpenAI-compatible third parties under their own provider id.
type Adapter struct {
	name         string
	baseURL      string
	reasoner     func(model string) bool
	client       *http.Client
	streamClient *http.Client
}

func NewAdapter() *Adapter {
	return NewNamed(string(llm.OpenAI), defaultBaseURL, nil)
}

// NewNamed builds an adapter that reports name as its provider id and falls
// back to base when the config has no endpoint override. reasoner decides
// which model ids get reasoning controls; nil means OpenAI's own naming.
func NewNamed(name, base string, reasoner func(string) bool) *Adapter {
	if reasoner == nil {
		reasoner = Thinking{}.SupportsThinking
	}
	return &Adapter{
		name:         name,
		baseURL:      base,
		reasoner:     reasoner,
		client:       &http.Client{Timeout: 120 * time.Second},
		streamClient: &http.Client{},
	}
}

func (a *Adapter) Name() string { return a.name }

func (a *Adapter) endpoint(cfg *schema.GenerationConfig, path string) string {
	base := a.baseURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}
	return strings.TrimRight(base, "/") + path
}

func (a *Adapter) headers(cfg *schema.GenerationConfig) map[string]string {
	h := map[string]string{}
	if cfg.APIKey != "" {
		h["Authorization"] = "Bearer " + cfg.APIKey
	}
	return h
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// Reasoning fields some compatible upstreams attach to responses.
	// OpenAI itself never sets them; decoding them is harmless.
	ReasoningContent string `json:"reasoning_content,omitempty"`
	Reasoning        string `json:"reasoning,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatRequest struct {
	Model               string         `json:"model"`
	Messages            []chatMessage  `json:"messages"`
	Temperature         *float64       `json:"temperature,omitempty"`
	TopP                *float64       `json:"top_p,omitempty"`
	FrequencyPenalty    *float64       `json:"frequency_penalty,omitempty"`
	PresencePenalty     *float64       `json:"presence_penalty,omitempty"`
	Seed                *int           `json:"seed,omitempty"`
	Stop                []string       `json:"stop,omitempty"`
	MaxTokens           int            `json:"max_tokens,omitempty"`
	MaxCompletionTokens int            `json:"max_completion_tokens,omitempty"`
	Stream              bool           `json:"stream,omitempty"`
	StreamOptions       *streamOptions `json:"stream_options,omitempty"`
	ReasoningEffort     string         `json:"reasoning_effort,omitempty"`
}

type usage struct {
	PromptTokens            int `json:"prompt_tokens"`
	CompletionTokens        int `json:"completion_tokens"`
	TotalTokens             int `json:"total_tokens"`
	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details,omitempty"`
}

type choice struct {
	Index        int          `json:"index"`
	Message      *chatMessage `json:"message,omitempty"`
	Delta        *chatMessage `json:"delta,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

type chatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage,omitempty"`
}

func (a *Adapter) buildRequest(msgs []schema.ChatMessage, cfg *schema.GenerationConfig) *chatRequest {
	req := &chatRequest{
		Model:            cfg.Model,
		Temperature:      cfg.Temperature,
		TopP:             cfg.TopP,
		FrequencyPenalty: cfg.FrequencyPenalty,
		PresencePenalty:  cfg.PresencePenalty,
		Seed:             cfg.Seed,
		Stop:             cfg.Stop,
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	// Reasoning models renamed the output bound; the retry path catches
	// upstreams that disagree with this split.
	if a.reasoner(cfg.Model) {
		req.MaxCompletionTokens = cfg.MaxTokens
		if cfg.Thinking.Enabled && cfg.Thinking.Effort != "" {
			req.ReasoningEffort = cfg.Thinking.Effort
		}
	} else {
		req.MaxTokens = cfg.MaxTokens
	}
	return req
}

// errorResponse mirrors the standard OpenAI error envelope.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Param   string `json:"param"`
		Code    string `json:"code"`
	} `json:"error"`
}

// unsupportedParam extracts the single parameter named by an "unsupported
// parameter" rejection. Any other error shape returns false.
func unsupportedParam(err error) (string, bool) {
	var ue *httpclient.UpstreamError
	if !errors.As(err, &ue) || ue.StatusCode != http.StatusBadRequest {
		return "", false
	}
	var apiErr errorResponse
	if json.Unmarshal(ue.Body, &apiErr) != nil {
		return "", false
	}
	if apiErr.Error.Param == "" {
		return "", false
	}
	if apiErr.Error.Code != "unsupported_parameter" &&
		apiErr.Error.Code != "unsupported_value" &&
		!strings.Contains(apiErr.Error.Message, "Unsupported parameter") {
		return "", false
	}
	return apiErr.Error.Param, true
}

// dropParam removes the named field from the request. Returns false for
// fields the adapter does not own, so unrelated errors propagate unchanged.
func dropParam(req *chatRequest, param string) bool {
	switch param {
	case "temperature":
		req.Temperature = nil
	case "top_p":
		req.TopP = nil
	case "frequency_penalty":
		req.FrequencyPenalty = nil
	case "presence_penalty":
		req.PresencePenalty = nil
	case "seed":
		req.Seed = nil
	case "stop":
		req.Stop = nil
	case "max_tokens":
		// the upstream wants the reasoning-era name instead
		req.MaxCompletionTokens = req.MaxTokens
		req.MaxTokens = 0
	default:
		return false
	}
	return true
}

// send posts the request, retrying exactly once when the upstream rejects a
// single named parameter. This is the only sanctioned local retry.
func (a *Adapter) send(ctx context.Context, cfg *schema.GenerationConfig, req *chatRequest, out *chatResponse) error {
	url := a.endpoint(cfg, "/chat/completions")
	err := httpclient.SendRequest(ctx, a.client, "POST", url, a.headers(cfg), req, out)
	if err == nil {
		return nil
	}
	if param, ok := unsupportedParam(err); ok && dropParam(req, param) {
		return httpclient.SendRequest(ctx, a.client, "POST", url, a.headers(cfg), req, out)
	}
	return err
}

func (a *Adapter) Chat(ctx context.Context, msgs []schema.ChatMessage, cfg *schema.GenerationConfig) (*schema.ChatResponse, error) {
	req := a.buildRequest(msgs, cfg)
	req.Stream = false

	var resp chatResponse
	if err := a.send(ctx, cfg, req, &resp); err != nil {
		return nil, llm.WrapUpstream(a.name, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return nil, llm.WrapUpstream(a.name, fmt.Errorf("%w: no choices", llm.ErrEmptyCompletion))
	}

	msg := resp.Choices[0].Message
	if msg.Content == "" {
		return nil, llm.WrapUpstream(a.name, llm.ErrEmptyCompletion)
	}

	out := &schema.ChatResponse{
		Content:    msg.Content,
		Model:      resp.Model,
		Provider:   a.name,
		Thinking:   extractThinking(&resp),
		ResponseID: resp.ID,
		Created:    resp.Created,
	}
	if resp.Usage != nil {
		out.Usage = normalizeUsage(resp.Usage)
	}
	return out, nil
}

func normalizeUsage(u *usage) *schema.Usage {
	out := &schema.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
	if u.CompletionTokensDetails != nil {
		out.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	return out
}

func (a *Adapter) Stream(ctx context.Context, msgs []schema.ChatMessage, cfg *schema.GenerationConfig) (<-chan schema.StreamResult, error) {
	req := a.buildRequest(msgs, cfg)
	req.Stream = true
	req.StreamOptions = &streamOptions{IncludeUsage: true}

	url := a.endpoint(cfg, "/chat/completions")
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
		err := httpclient.StreamRequest(ctx, a.streamClient, "POST", url, headers, req, func(line string) error {
			if !strings.HasPrefix(line, "data: ") {
				return nil
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				if !sawDone {
					sawDone = true
					if !emit(schema.StreamResult{Fragment: &schema.StreamFragment{Done: true, Provider: a.name}}) {
						return ctx.Err()
					}
				}
				return httpclient.ErrStopStream
			}

			var chunk chatResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return nil
			}

			frag := decodeStreamChunk(&chunk)
			if frag == nil {
				return nil
			}
			frag.Provider = a.name
			if frag.Done {
				sawDone = true
			}
			if !emit(schema.StreamResult{Fragment: frag}) {
				return ctx.Err()
			}
			return nil
		})

		if err != nil {
			emit(schema.StreamResult{Err: llm.WrapUpstream(a.name, err)})
			return
		}
		if !sawDone {
			emit(schema.StreamResult{Err: llm.WrapUpstream(a.name, errors.New("stream ended without completion signal"))})
		}
	}()

	return ch, nil
}

func (a *Adapter) TestConnection(ctx context.Context, cfg *schema.GenerationConfig) error {
	url := a.endpoint(cfg, "/models")
	if err := httpclient.SendRequest(ctx, a.client, "GET", url, a.headers(cfg), nil, nil); err != nil {
		return llm.WrapUpstream(a.name, err)
	}
	return nil
}

// nonChatKeywords excludes model classes that cannot hold a conversation.
// Data, not logic: vendors rename models and this list follows them.
var nonChatKeywords = []string{
	"embedding", "embed", "whisper", "tts", "audio", "transcribe",
	"dall-e", "image", "moderation", "realtime",
	"davinci", "babbage", "curie", "ada",
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (a *Adapter) Models(ctx context.Context, cfg *schema.GenerationConfig) ([]schema.ModelInfo, error) {
	url := a.endpoint(cfg, "/models")

	var list modelList
	if err := httpclient.SendRequest(ctx, a.client, "GET", url, a.headers(cfg), nil, &list); err != nil {
		return nil, llm.WrapUpstream(a.name, err)
	}

	var models []schema.ModelInfo
	for _, m := range list.Data {
		if llm.MatchesAny(m.ID, nonChatKeywords) {
			continue
		}
		models = append(models, schema.ModelInfo{ID: m.ID, DisplayName: m.ID})
	}
	if len(models) == 0 {
		return nil, llm.WrapUpstream(a.name, errors.New("no conversational models visible; check credentials and permissions"))
	}
	return models, nil
}
