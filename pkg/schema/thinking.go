package schema

// ReasoningTrace is the intermediate "thinking" a reasoning-capable model
// emitted separately from its final answer. A trace always has content; an
// upstream response without a distinguishable reasoning segment yields no
// trace at all.
type ReasoningTrace struct {
	Content string `json:"content"`
	Tokens  int    `json:"tokens,omitempty"`
	Effort  string `json:"effort,omitempty"`
	Summary string `json:"summary,omitempty"`
	// Signature is opaque. Callers replay it verbatim on the next turn of
	// the same conversation when the provider requires continuity.
	Signature    string         `json:"signature,omitempty"`
	ProviderData map[string]any `json:"provider_data,omitempty"`
}

// ThinkingValidation is the warnings-only verdict of a reasoning config
// check. Risky combinations never block a call.
type ThinkingValidation struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings,omitempty"`
}
