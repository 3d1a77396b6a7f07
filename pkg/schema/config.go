package schema

// GenerationConfig carries everything an adapter needs for one upstream call:
// routing (provider id), credentials, the model id, and an open set of
// tunables. Adapters ignore knobs they do not understand and drop knobs their
// upstream rejects.
//
// Sampling parameters are pointers so that "unset" and "zero" stay
// distinguishable on the wire.
type GenerationConfig struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
	Model    string `json:"model" validate:"required"`

	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	TopK             *int     `json:"top_k,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	RepeatPenalty    *float64 `json:"repeat_penalty,omitempty"`
	Seed             *int     `json:"seed,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	MaxTokens        int      `json:"max_tokens,omitempty" validate:"gte=0"`
	NumCtx           int      `json:"num_ctx,omitempty" validate:"gte=0"`

	Thinking ThinkingOptions `json:"thinking,omitempty"`

	// UseResponsesAPI retargets a request addressed to "openai" onto the
	// responses-API adapter. Configuration lookup still happens under the
	// base provider name.
	UseResponsesAPI bool `json:"use_responses_api,omitempty"`
}

// ThinkingOptions are the reasoning knobs shared across providers. Each
// thinking adapter maps the subset its upstream understands.
type ThinkingOptions struct {
	Enabled         bool   `json:"enabled,omitempty"`
	Effort          string `json:"effort,omitempty" validate:"omitempty,oneof=minimal low medium high max"`
	BudgetTokens    *int   `json:"budget_tokens,omitempty"`
	IncludeInOutput bool   `json:"include_in_output,omitempty"`
	// Signature is an opaque continuation token from a previous response.
	// It is threaded back to the upstream verbatim.
	Signature string `json:"signature,omitempty"`
	Mode      string `json:"mode,omitempty"`
}

// Clone returns a copy safe to mutate without touching the caller's config.
func (c *GenerationConfig) Clone() *GenerationConfig {
	if c == nil {
		return &GenerationConfig{}
	}
	cp := *c
	if c.Stop != nil {
		cp.Stop = append([]string(nil), c.Stop...)
	}
	return &cp
}
