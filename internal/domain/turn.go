// Package domain contains core domain types for the Mentalyze backend.
package domain

// Role identifies the speaker of a conversation turn.
type Role string

const (
	// RoleSystem marks instruction turns supplied by the server, never by users.
	RoleSystem Role = "system"
	// RoleUser marks turns submitted by the person chatting.
	RoleUser Role = "user"
	// RoleAssistant marks turns produced by the analysis backend.
	RoleAssistant Role = "assistant"
)

// Turn is one message in a chat exchange. Turns are immutable once created;
// history mutation is always append-only.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemTurn builds a system-role turn.
func SystemTurn(content string) Turn {
	return Turn{Role: RoleSystem, Content: content}
}

// UserTurn builds a user-role turn.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// AssistantTurn builds an assistant-role turn.
func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}
