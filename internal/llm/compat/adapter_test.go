package compat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

func testConfig(baseURL, model string) *schema.GenerationConfig {
	return &schema.GenerationConfig{
		Provider: string(llm.Compat),
		APIKey:   "test-key",
		BaseURL:  baseURL,
		Model:    model,
	}
}

func chatBody(content string) string {
	body := map[string]any{
		"id":      "chatcmpl-1",
		"model":   "deepseek-r1",
		"created": 1700000000,
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	b, _ := json.Marshal(body)
	return string(b)
}

func TestChatRecoversInlineThinking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		fmt.Fprint(w, chatBody("<think>2 plus 2 is 4</think>The answer is 4."))
	}))
	defer srv.Close()

	a := NewAdapter()
	out, err := a.Chat(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "what is 2+2?"},
	}, testConfig(srv.URL, "deepseek-r1"))

	require.NoError(t, err)
	assert.Equal(t, "The answer is 4.", out.Content)
	assert.Equal(t, string(llm.Compat), out.Provider)
	require.NotNil(t, out.Thinking)
	assert.Equal(t, "2 plus 2 is 4", out.Thinking.Content)
}

func TestChatWithoutTagsPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatBody("The answer is 4."))
	}))
	defer srv.Close()

	a := NewAdapter()
	out, err := a.Chat(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "what is 2+2?"},
	}, testConfig(srv.URL, "some-model"))

	require.NoError(t, err)
	assert.Equal(t, "The answer is 4.", out.Content)
	assert.Nil(t, out.Thinking)
}

func sseChunk(delta map[string]any, finish string) string {
	choice := map[string]any{"index": 0, "delta": delta}
	if finish != "" {
		choice["finish_reason"] = finish
	}
	body := map[string]any{"id": "chatcmpl-1", "model": "deepseek-r1", "choices": []any{choice}}
	b, _ := json.Marshal(body)
	return "data: " + string(b) + "\n\n"
}

func TestStreamSplitsInlineThinking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk(map[string]any{"content": "<think>add"}, ""))
		fmt.Fprint(w, sseChunk(map[string]any{"content": "ing</think>The answer"}, ""))
		fmt.Fprint(w, sseChunk(map[string]any{"content": " is 4."}, ""))
		fmt.Fprint(w, sseChunk(map[string]any{}, "stop"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	a := NewAdapter()
	ch, err := a.Stream(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "what is 2+2?"},
	}, testConfig(srv.URL, "deepseek-r1"))
	require.NoError(t, err)

	var text, thinking strings.Builder
	doneCount := 0
	for res := range ch {
		require.NoError(t, res.Err)
		text.WriteString(res.Fragment.Content)
		if res.Fragment.Thinking != nil {
			thinking.WriteString(res.Fragment.Thinking.Content)
		}
		if res.Fragment.Done {
			doneCount++
		}
	}

	assert.Equal(t, "The answer is 4.", text.String())
	assert.Equal(t, "adding", thinking.String())
	assert.Equal(t, 1, doneCount)
}

func TestStreamFinalDeltaKeepsHeldSuffix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk(map[string]any{"content": "the answer is"}, ""))
		// finish arrives on the same delta as the last text, which ends in
		// a byte that could open a think tag
		fmt.Fprint(w, sseChunk(map[string]any{"content": " 4 <"}, "stop"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	a := NewAdapter()
	ch, err := a.Stream(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "what is 2+2?"},
	}, testConfig(srv.URL, "deepseek-r1"))
	require.NoError(t, err)

	var text strings.Builder
	doneCount := 0
	for res := range ch {
		require.NoError(t, res.Err)
		text.WriteString(res.Fragment.Content)
		if res.Fragment.Done {
			doneCount++
		}
	}

	assert.Equal(t, "the answer is 4 <", text.String())
	assert.Equal(t, 1, doneCount)
}

func TestStreamReasoningFieldPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk(map[string]any{"reasoning_content": "adding numbers"}, ""))
		fmt.Fprint(w, sseChunk(map[string]any{"content": "The answer is 4."}, ""))
		fmt.Fprint(w, sseChunk(map[string]any{}, "stop"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	a := NewAdapter()
	ch, err := a.Stream(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "what is 2+2?"},
	}, testConfig(srv.URL, "deepseek-reasoner"))
	require.NoError(t, err)

	var text, thinking strings.Builder
	for res := range ch {
		require.NoError(t, res.Err)
		text.WriteString(res.Fragment.Content)
		if res.Fragment.Thinking != nil {
			thinking.WriteString(res.Fragment.Thinking.Content)
		}
	}

	assert.Equal(t, "The answer is 4.", text.String())
	assert.Equal(t, "adding numbers", thinking.String())
}

func TestValidateConfigWarnsOnBudget(t *testing.T) {
	th := Thinking{}
	budget := 1024
	v := th.ValidateConfig(&schema.GenerationConfig{
		Model:    "deepseek-r1",
		Thinking: schema.ThinkingOptions{Enabled: true, BudgetTokens: &budget},
	})
	assert.True(t, v.Valid)
	assert.NotEmpty(t, v.Warnings)
}

func TestSupportsThinking(t *testing.T) {
	th := Thinking{}
	assert.True(t, th.SupportsThinking("deepseek-reasoner"))
	assert.True(t, th.SupportsThinking("Qwen/QwQ-32B"))
	assert.False(t, th.SupportsThinking("llama-3.3-70b"))
}
