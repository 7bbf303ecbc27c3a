package ai

import "context"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of prompt context, oldest first.
type Message struct {
	Role    string
	Content string
}

// Provider is a text-completion backend.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}
