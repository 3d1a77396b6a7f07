package responses

// Wire types for the /responses endpoint.

type request struct {
	Model           string           `json:"model"`
	Input           []inputItem      `json:"input"`
	MaxOutputTokens int              `json:"max_output_tokens,omitempty"`
	Temperature     *float64         `json:"temperature,omitempty"`
	TopP            *float64         `json:"top_p,omitempty"`
	Reasoning       *reasoningConfig `json:"reasoning,omitempty"`
	Include         []string         `json:"include,omitempty"`
}

// inputItem carries either a plain string or typed content parts. Reasoning
// models get the typed form.
type inputItem struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentItem struct {
	Type string `json:"type"` // input_text or output_text
	Text string `json:"text"`
}

type reasoningConfig struct {
	Effort  string `json:"effort,omitempty"`
	Summary string `json:"summary,omitempty"`
}

type response struct {
	ID        string       `json:"id"`
	Object    string       `json:"object"`
	CreatedAt float64      `json:"created_at"`
	Model     string       `json:"model"`
	Status    string       `json:"status"`
	Output    []outputItem `json:"output"`
	Usage     *usage       `json:"usage,omitempty"`
	Error     *apiError    `json:"error,omitempty"`
}

type outputItem struct {
	ID               string          `json:"id"`
	Type             string          `json:"type"` // "message" or "reasoning"
	Role             string          `json:"role,omitempty"`
	Content          []outputContent `json:"content,omitempty"`
	Summary          []summaryItem   `json:"summary,omitempty"`
	EncryptedContent string          `json:"encrypted_content,omitempty"`
}

type outputContent struct {
	Type string `json:"type"` // "output_text"
	Text string `json:"text,omitempty"`
}

type summaryItem struct {
	Type string `json:"type"` // "summary_text"
	Text string `json:"text,omitempty"`
}

type usage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	TotalTokens         int `json:"total_tokens"`
	OutputTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"output_tokens_details,omitempty"`
}

type apiError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
