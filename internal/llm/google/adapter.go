package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/llm-bridge/internal/httpclient"
	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

func init() {
	llm.Register(llm.Google, func() llm.Provider { return NewAdapter() })
	llm.RegisterThinking(llm.Google, Thinking{})
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

func (a *Adapter) Name() string { return string(llm.Google) }

func (a *Adapter) base(cfg *schema.GenerationConfig) string {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/")
	}
	return defaultBaseURL
}

type part struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type thinkingConfig struct {
	ThinkingBudget  *int `json:"thinkingBudget,omitempty"`
	IncludeThoughts bool `json:"includeThoughts,omitempty"`
}

type generationConfig struct {
	Temperature     *float64        `json:"temperature,omitempty"`
	TopP            *float64        `json:"topP,omitempty"`
	TopK            *int            `json:"topK,omitempty"`
	MaxOutputTokens int             `json:"maxOutputTokens,omitempty"`
	StopSequences   []string        `json:"stopSequences,omitempty"`
	ThinkingConfig  *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type request struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
	ThoughtsTokenCount   int `json:"thoughtsTokenCount,omitempty"`
}

type response struct {
	Candidates    []candidate    `json:"candidates"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
}

// buildRequest translates the shared model. The generate-content API renames
// the assistant role to "model"; the normalized form maps back on the way
// out, so the rename is a bijection owned entirely by this adapter.
func buildRequest(msgs []schema.ChatMessage, cfg *schema.GenerationConfig) *request {
	req := &request{}
	for _, m := range msgs {
		role := "user"
		if m.Role == schema.RoleAssistant {
			role = "model"
		}
		req.Contents = append(req.Contents, content{
			Role:  role,
			Parts: []part{{Text: m.Content}},
		})
	}

	gc := &generationConfig{
		Temperature:     cfg.Temperature,
		TopP:            cfg.TopP,
		TopK:            cfg.TopK,
		MaxOutputTokens: cfg.MaxTokens,
		StopSequences:   cfg.Stop,
	}
	gc.ThinkingConfig = buildThinkingConfig(cfg)
	req.GenerationConfig = gc
	return req
}

func (a *Adapter) Chat(ctx context.Context, msgs []schema.ChatMessage, cfg *schema.GenerationConfig) (*schema.ChatResponse, error) {
	req := buildRequest(msgs, cfg)
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.base(cfg), cfg.Model, cfg.APIKey)

	var resp response
	if err := httpclient.SendRequest(ctx, a.client, "POST", url, nil, req, &resp); err != nil {
		return nil, llm.WrapUpstream(a.Name(), err)
	}
	if len(resp.Candidates) == 0 {
		return nil, llm.WrapUpstream(a.Name(), fmt.Errorf("%w: no candidates", llm.ErrEmptyCompletion))
	}

	text, trace := splitParts(resp.Candidates[0].Content.Parts)
	if text == "" {
		return nil, llm.WrapUpstream(a.Name(), llm.ErrEmptyCompletion)
	}

	model := resp.ModelVersion
	if model == "" {
		model = cfg.Model
	}

	out := &schema.ChatResponse{
		Content:    text,
		Model:      model,
		Provider:   a.Name(),
		Thinking:   trace,
		ResponseID: "gemini-" + uuid.NewString(),
		Created:    time.Now().Unix(),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &schema.Usage{
			PromptTokens:     u.PromptTokenCount,
			CompletionTokens: u.CandidatesTokenCount,
			TotalTokens:      u.TotalTokenCount,
			ReasoningTokens:  u.ThoughtsTokenCount,
		}
		if trace != nil {
			trace.Tokens = u.ThoughtsTokenCount
		}
	}
	return out, nil
}

func (a *Adapter) Stream(ctx context.Context, msgs []schema.ChatMessage, cfg *schema.GenerationConfig) (<-chan schema.StreamResult, error) {
	req := buildRequest(msgs, cfg)
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", a.base(cfg), cfg.Model, cfg.APIKey)
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
		err := httpclient.StreamRequest(ctx, a.streamClient, "POST", url, nil, req, func(line string) error {
			if !strings.HasPrefix(line, "data: ") {
				return nil
			}
			data := strings.TrimPrefix(line, "data: ")

			var chunk response
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return nil
			}
			if len(chunk.Candidates) == 0 {
				return nil
			}

			cand := chunk.Candidates[0]
			for _, p := range cand.Content.Parts {
				frag := &schema.StreamFragment{Provider: a.Name(), Model: cfg.Model}
				if p.Thought {
					frag.Thinking = &schema.ThinkingFragment{Content: p.Text}
				} else {
					frag.Content = p.Text
				}
				if !emit(schema.StreamResult{Fragment: frag}) {
					return ctx.Err()
				}
			}

			if cand.FinishReason != "" {
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
			emit(schema.StreamResult{Err: llm.WrapUpstream(a.Name(), errors.New("stream ended without finish reason"))})
		}
	}()

	return ch, nil
}

func (a *Adapter) TestConnection(ctx context.Context, cfg *schema.GenerationConfig) error {
	url := fmt.Sprintf("%s/models?pageSize=1&key=%s", a.base(cfg), cfg.APIKey)
	if err := httpclient.SendRequest(ctx, a.client, "GET", url, nil, nil, nil); err != nil {
		return llm.WrapUpstream(a.Name(), err)
	}
	return nil
}

// Identifier-level exclusions on top of the supportedGenerationMethods
// check, for model classes that answer generateContent but are not chat
// (image generation, embedding previews, audio).
var nonChatKeywords = []string{"embedding", "embed", "aqa", "imagen", "tts", "audio", "veo"}

type modelEntry struct {
	Name                       string   `json:"name"` // "models/gemini-2.0-flash"
	DisplayName                string   `json:"displayName"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

type modelListResponse struct {
	Models []modelEntry `json:"models"`
}

func (a *Adapter) Models(ctx context.Context, cfg *schema.GenerationConfig) ([]schema.ModelInfo, error) {
	url := fmt.Sprintf("%s/models?key=%s", a.base(cfg), cfg.APIKey)

	var list modelListResponse
	if err := httpclient.SendRequest(ctx, a.client, "GET", url, nil, nil, &list); err != nil {
		return nil, llm.WrapUpstream(a.Name(), err)
	}

	var models []schema.ModelInfo
	for _, m := range list.Models {
		if !supportsGenerateContent(m) {
			continue
		}
		id := strings.TrimPrefix(m.Name, "models/")
		if llm.MatchesAny(id, nonChatKeywords) {
			continue
		}
		name := m.DisplayName
		if name == "" {
			name = id
		}
		models = append(models, schema.ModelInfo{ID: id, DisplayName: name})
	}
	if len(models) == 0 {
		return nil, llm.WrapUpstream(a.Name(), errors.New("no conversational models visible; check credentials and permissions"))
	}
	return models, nil
}

func supportsGenerateContent(m modelEntry) bool {
	for _, method := range m.SupportedGenerationMethods {
		if method == "generateContent" {
			return true
		}
	}
	return false
}
