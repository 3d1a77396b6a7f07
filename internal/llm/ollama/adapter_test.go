package ollama

import (
	"context"
	"encoding/json"
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
		Provider: string(llm.Ollama),
		BaseURL:  baseURL,
		Model:    model,
	}
}

func TestBuildRequestOptions(t *testing.T) {
	temp := 0.7
	cfg := testConfig("", "llama3.2")
	cfg.Temperature = &temp
	cfg.MaxTokens = 512
	cfg.NumCtx = 8192

	req := buildRequest([]schema.ChatMessage{{Role: schema.RoleUser, Content: "hi"}}, cfg, false)

	require.NotNil(t, req.Options)
	assert.Equal(t, 0.7, *req.Options.Temperature)
	assert.Equal(t, 512, req.Options.NumPredict)
	assert.Equal(t, 8192, req.Options.NumCtx)
	assert.Nil(t, req.Think)
}

func TestBuildRequestThinkFlag(t *testing.T) {
	cfg := testConfig("", "deepseek-r1:8b")
	cfg.Thinking.Enabled = true

	req := buildRequest([]schema.ChatMessage{{Role: schema.RoleUser, Content: "hi"}}, cfg, false)
	require.NotNil(t, req.Think)
	assert.True(t, *req.Think)
}

func TestChatNativeThinkingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		json.NewEncoder(w).Encode(chatResponse{
			Model: "deepseek-r1:8b",
			Message: chatMessage{
				Role:     "assistant",
				Content:  "The answer is 4.",
				Thinking: "2 plus 2 makes 4.",
			},
			Done:            true,
			PromptEvalCount: 12,
			EvalCount:       30,
		})
	}))
	defer srv.Close()

	a := NewAdapter()
	out, err := a.Chat(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "what is 2+2?"},
	}, testConfig(srv.URL, "deepseek-r1:8b"))

	require.NoError(t, err)
	assert.Equal(t, "The answer is 4.", out.Content)
	require.NotNil(t, out.Thinking)
	assert.Equal(t, "2 plus 2 makes 4.", out.Thinking.Content)
	require.NotNil(t, out.Usage)
	assert.Equal(t, 42, out.Usage.TotalTokens)
}

func TestChatInlineThinkTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{
			Model: "qwq:32b",
			Message: chatMessage{
				Role:    "assistant",
				Content: "<think>adding the numbers</think>The answer is 4.",
			},
			Done: true,
		})
	}))
	defer srv.Close()

	a := NewAdapter()
	out, err := a.Chat(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "what is 2+2?"},
	}, testConfig(srv.URL, "qwq:32b"))

	require.NoError(t, err)
	assert.Equal(t, "The answer is 4.", out.Content)
	require.NotNil(t, out.Thinking)
	assert.Equal(t, "adding the numbers", out.Thinking.Content)
}

func TestChatEmptyContentIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{Model: "llama3.2", Done: true})
	}))
	defer srv.Close()

	a := NewAdapter()
	_, err := a.Chat(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "hi"},
	}, testConfig(srv.URL, "llama3.2"))

	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrEmptyCompletion)
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunks := []chatResponse{
			{Model: "deepseek-r1:8b", Message: chatMessage{Thinking: "adding "}},
			{Model: "deepseek-r1:8b", Message: chatMessage{Thinking: "numbers"}},
			{Model: "deepseek-r1:8b", Message: chatMessage{Content: "The answer"}},
			{Model: "deepseek-r1:8b", Message: chatMessage{Content: " is 4."}},
			{Model: "deepseek-r1:8b", Done: true},
		}
		enc := json.NewEncoder(w)
		for _, c := range chunks {
			enc.Encode(c)
		}
	}))
	defer srv.Close()

	a := NewAdapter()
	ch, err := a.Stream(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "what is 2+2?"},
	}, testConfig(srv.URL, "deepseek-r1:8b"))
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
	assert.Equal(t, "adding numbers", thinking.String())
	assert.Equal(t, 1, doneCount)
}

func TestStreamInlineThinkTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunks := []chatResponse{
			{Message: chatMessage{Content: "<think>add"}},
			{Message: chatMessage{Content: "ing</think>"}},
			{Message: chatMessage{Content: "4."}},
			{Done: true},
		}
		enc := json.NewEncoder(w)
		for _, c := range chunks {
			enc.Encode(c)
		}
	}))
	defer srv.Close()

	a := NewAdapter()
	ch, err := a.Stream(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "what is 2+2?"},
	}, testConfig(srv.URL, "qwq:32b"))
	require.NoError(t, err)

	var text, thinking strings.Builder
	for res := range ch {
		require.NoError(t, res.Err)
		text.WriteString(res.Fragment.Content)
		if res.Fragment.Thinking != nil {
			thinking.WriteString(res.Fragment.Thinking.Content)
		}
	}

	assert.Equal(t, "4.", text.String())
	assert.Equal(t, "adding", thinking.String())
}

func TestStreamAbnormalCloseErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Content: "partial"}})
		// closes without done:true
	}))
	defer srv.Close()

	a := NewAdapter()
	ch, err := a.Stream(context.Background(), []schema.ChatMessage{
		{Role: schema.RoleUser, Content: "hi"},
	}, testConfig(srv.URL, "llama3.2"))
	require.NoError(t, err)

	var streamErr error
	for res := range ch {
		if res.Err != nil {
			streamErr = res.Err
		}
	}
	require.Error(t, streamErr)
}

func TestModelsFiltering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		json.NewEncoder(w).Encode(tagsResponse{Models: []tagEntry{
			{Name: "llama3.2:latest"},
			{Name: "nomic-embed-text:latest"},
			{Name: "deepseek-r1:8b"},
			{Name: "bge-m3:latest"},
		}})
	}))
	defer srv.Close()

	a := NewAdapter()
	models, err := a.Models(context.Background(), testConfig(srv.URL, ""))
	require.NoError(t, err)

	require.Len(t, models, 2)
	assert.Equal(t, "llama3.2:latest", models[0].ID)
	assert.Equal(t, "deepseek-r1:8b", models[1].ID)
}

func TestSupportsThinking(t *testing.T) {
	th := Thinking{}
	assert.True(t, th.SupportsThinking("deepseek-r1:8b"))
	assert.True(t, th.SupportsThinking("qwq:32b"))
	assert.True(t, th.SupportsThinking("gpt-oss:20b"))
	assert.False(t, th.SupportsThinking("llama3.2:latest"))
}
