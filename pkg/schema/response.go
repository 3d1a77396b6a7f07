package schema

// Usage reports token accounting for one completed request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	ReasoningTokens  int `json:"reasoning_tokens,omitempty"`
}

// ChatResponse is the normalized result of a blocking chat call. Content is
// never empty: an upstream response without text is surfaced as an error.
type ChatResponse struct {
	Content    string          `json:"content"`
	Model      string          `json:"model"`
	Provider   string          `json:"provider"`
	Usage      *Usage          `json:"usage,omitempty"`
	Thinking   *ReasoningTrace `json:"thinking,omitempty"`
	ResponseID string          `json:"response_id,omitempty"`
	Created    int64           `json:"created,omitempty"`
}

// StreamFragment is one increment of a streamed response. The terminal
// fragment has Done set; it is emitted exactly once per stream.
type StreamFragment struct {
	Content  string            `json:"content"`
	Done     bool              `json:"done"`
	Model    string            `json:"model,omitempty"`
	Provider string            `json:"provider,omitempty"`
	Thinking *ThinkingFragment `json:"thinking,omitempty"`
}

// ThinkingFragment is a reasoning increment interleaved in a stream.
type ThinkingFragment struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

// StreamResult is what flows over a stream channel: a fragment or a terminal
// error, never both. An abnormal upstream close produces an Err result, not
// a silent Done fragment.
type StreamResult struct {
	Fragment *StreamFragment
	Err      error
}

// ModelInfo is one entry of a provider's conversational model catalog.
type ModelInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
