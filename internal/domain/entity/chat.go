package entity

// ChatTurn is one message of a chat conversation
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
