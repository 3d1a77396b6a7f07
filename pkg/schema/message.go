package schema

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one turn in a conversation. The sequence is chronological
// and every provider translation preserves its order.
type ChatMessage struct {
	Role    Role   `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content"`

	// Reasoning and Signature carry the thinking payload of a previous
	// assistant turn so it can be replayed on providers that want it back.
	// Signature is provider-opaque and is never parsed.
	Reasoning string `json:"reasoning,omitempty"`
	Signature string `json:"signature,omitempty"`
}
