package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *schema.GenerationConfig {
	return &schema.GenerationConfig{
		Provider: "anthropic",
		APIKey:   "test-key",
		BaseURL:  baseURL,
		Model:    "claude-sonnet-4-20250514",
	}
}

func TestBuildRequestSystemExtraction(t *testing.T) {
	msgs := []schema.ChatMessage{
		{Role: schema.RoleSystem, Content: "You are terse."},
		{Role: schema.RoleUser, Content: "Hi"},
		{Role: schema.RoleAssistant, Content: "Hello"},
	}

	req := buildRequest(msgs, testConfig(""))

	// the leading system message round-trips verbatim into the side channel
	assert.Equal(t, "You are terse.", req.System)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	assert.Equal(t, defaultMaxTokens, req.MaxTokens)
}

func TestBuildRequestStraySystemMessages(t *testing.T) {
	// a stray system turn with no leading one must not pick up a separator
	msgs := []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "Hi"},
		{Role: schema.RoleSystem, Content: "You are terse."},
	}
	req := buildRequest(msgs, testConfig(""))
	assert.Equal(t, "You are terse.", req.System)

	// with a leading system turn, stray ones join on single newlines
	msgs = []schema.ChatMessage{
		{Role: schema.RoleSystem, Content: "You are terse."},
		{Role: schema.RoleUser, Content: "Hi"},
		{Role: schema.RoleSystem, Content: "Answer in French."},
	}
	req = buildRequest(msgs, testConfig(""))
	assert.Equal(t, "You are terse.\nAnswer in French.", req.System)
	require.Len(t, req.Messages, 1)
}

func TestBuildRequestReplaysThinkingBlocks(t *testing.T) {
	msgs := []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "2+2?"},
		{
			Role:      schema.RoleAssistant,
			Content:   "4",
			Reasoning: "compute 2+2",
			Signature: "sig-abc",
		},
		{Role: schema.RoleUser, Content: "and 3+3?"},
	}

	req := buildRequest(msgs, testConfig(""))

	require.Len(t, req.Messages, 3)
	blocks := req.Messages[1].Content
	require.Len(t, blocks, 2)
	assert.Equal(t, "thinking", blocks[0].Type)
	assert.Equal(t, "compute 2+2", blocks[0].Thinking)
	assert.Equal(t, "sig-abc", blocks[0].Signature)
	assert.Equal(t, "text", blocks[1].Type)
	assert.Equal(t, "4", blocks[1].Text)
}

func TestApplyThinkingDropsSampling(t *testing.T) {
	temp := 0.7
	budget := 2048
	cfg := testConfig("")
	cfg.Temperature = &temp
	cfg.MaxTokens = 1000
	cfg.Thinking = schema.ThinkingOptions{Enabled: true, BudgetTokens: &budget}

	req := buildRequest([]schema.ChatMessage{{Role: schema.RoleUser, Content: "Hi"}}, cfg)

	require.NotNil(t, req.Thinking)
	assert.Equal(t, "enabled", req.Thinking.Type)
	assert.Equal(t, 2048, req.Thinking.BudgetTokens)
	assert.Nil(t, req.Temperature)
	assert.Greater(t, req.MaxTokens, req.Thinking.BudgetTokens)
}

func TestApplyThinkingSkipsUnsupportedModel(t *testing.T) {
	cfg := testConfig("")
	cfg.Model = "claude-3-haiku-20240307"
	cfg.Thinking = schema.ThinkingOptions{Enabled: true}

	req := buildRequest([]schema.ChatMessage{{Role: schema.RoleUser, Content: "Hi"}}, cfg)
	assert.Nil(t, req.Thinking)
}

func TestChatExtractsThinking(t *testing.T) {
	var reqBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &reqBody))

		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"model": "claude-sonnet-4-20250514",
			"content": [
				{"type": "thinking", "thinking": "compute 2+2", "signature": "sig-xyz"},
				{"type": "text", "text": "4"}
			],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 30}
		}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Thinking = schema.ThinkingOptions{Enabled: true}

	adapter := NewAdapter()
	resp, err := adapter.Chat(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "2+2?"},
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, "4", resp.Content)
	require.NotNil(t, resp.Thinking)
	assert.Equal(t, "compute 2+2", resp.Thinking.Content)
	assert.Equal(t, "sig-xyz", resp.Thinking.Signature)
	assert.Equal(t, 42, resp.Usage.TotalTokens)
	assert.Contains(t, reqBody, "thinking")
}

func TestChatNoThinkingBlocksYieldsNilTrace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "msg_02", "model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "Hello"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	adapter := NewAdapter()
	resp, err := adapter.Chat(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "Hi"},
	}, testConfig(server.URL))

	require.NoError(t, err)
	assert.Nil(t, resp.Thinking)
}

func TestChatEmptyTextIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "msg_03", "model": "claude-sonnet-4-20250514",
			"content": [{"type": "thinking", "thinking": "hmm"}],
			"stop_reason": "max_tokens",
			"usage": {"input_tokens": 3, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	adapter := NewAdapter()
	_, err := adapter.Chat(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "Hi"},
	}, testConfig(server.URL))

	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrEmptyCompletion)
}

func TestStreamLifecycleEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"event: message_start\n" +
				"data: {\"type\":\"message_start\"}\n\n" +
				"event: content_block_start\n" +
				"data: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"thinking\"}}\n\n" +
				"data: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"thinking_delta\",\"thinking\":\"compute 2+2\"}}\n\n" +
				"data: {\"type\":\"content_block_stop\",\"index\":0}\n\n" +
				"data: {\"type\":\"content_block_start\",\"index\":1,\"content_block\":{\"type\":\"text\"}}\n\n" +
				"data: {\"type\":\"content_block_delta\",\"index\":1,\"delta\":{\"type\":\"text_delta\",\"text\":\"4\"}}\n\n" +
				"data: {\"type\":\"message_delta\",\"delta\":{\"stop_reason\":\"end_turn\"},\"usage\":{\"output_tokens\":30}}\n\n" +
				"data: {\"type\":\"message_stop\"}\n\n"))
	}))
	defer server.Close()

	adapter := NewAdapter()
	ch, err := adapter.Stream(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "2+2?"},
	}, testConfig(server.URL))
	require.NoError(t, err)

	var thinking, content string
	var doneCount int
	for res := range ch {
		require.NoError(t, res.Err)
		f := res.Fragment
		content += f.Content
		if f.Thinking != nil {
			thinking += f.Thinking.Content
		}
		if f.Done {
			doneCount++
		}
	}

	assert.Equal(t, "compute 2+2", thinking)
	assert.Equal(t, "4", content)
	assert.Equal(t, 1, doneCount)
}

func TestStreamAbnormalCloseErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"partial\"}}\n\n"))
	}))
	defer server.Close()

	adapter := NewAdapter()
	ch, err := adapter.Stream(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "Hi"},
	}, testConfig(server.URL))
	require.NoError(t, err)

	var last schema.StreamResult
	for res := range ch {
		last = res
	}
	require.Error(t, last.Err)
}

func TestSupportsThinkingMonotonic(t *testing.T) {
	th := Thinking{}

	assert.True(t, th.SupportsThinking("claude-3-7-sonnet-20250219"))
	assert.True(t, th.SupportsThinking("claude-sonnet-4-20250514"))
	assert.True(t, th.SupportsThinking("claude-opus-4-1-20250805"))

	assert.False(t, th.SupportsThinking("claude-3-5-sonnet-20241022"))
	assert.False(t, th.SupportsThinking("claude-3-haiku-20240307"))
}

func TestPrepareMessagesKeepsReasoning(t *testing.T) {
	msgs := []schema.ChatMessage{
		{Role: schema.RoleAssistant, Content: "4", Reasoning: "compute 2+2", Signature: "sig"},
	}

	out := Thinking{}.PrepareMessages(msgs)
	assert.Equal(t, "compute 2+2", out[0].Reasoning)
	assert.Equal(t, "sig", out[0].Signature)
}
