package chat

import (
	"encoding/json"
	"errors"
	"time"
)

// Author says who wrote a log entry. It is either Human or Generated.
type Author interface {
	isAuthor()
}

// Human is a registered user.
type Human struct {
	UserID   uint64
	Username string
}

// Generated is the AI assistant, identified by the model that produced the text.
type Generated struct {
	Model string
}

func (Human) isAuthor()     {}
func (Generated) isAuthor() {}

// Message is one append-only chat log entry.
type Message struct {
	ID        uint64
	Content   string
	Author    Author
	CreatedAt time.Time
}

// IsAI reports whether the entry was produced by the assistant.
func (m Message) IsAI() bool {
	_, ok := m.Author.(Generated)
	return ok
}

type messageJSON struct {
	ID        uint64    `json:"id"`
	Content   string    `json:"content"`
	Username  *string   `json:"username"`
	IsAI      bool      `json:"is_ai"`
	AIModel   *string   `json:"ai_model"`
	CreatedAt time.Time `json:"created_at"`
}

// MarshalJSON renders the wire form
// {id, content, username|null, is_ai, ai_model|null, created_at}.
func (m Message) MarshalJSON() ([]byte, error) {
	out := messageJSON{ID: m.ID, Content: m.Content, CreatedAt: m.CreatedAt.UTC()}
	switch a := m.Author.(type) {
	case Human:
		name := a.Username
		out.Username = &name
	case Generated:
		model := a.Model
		out.IsAI = true
		out.AIModel = &model
	default:
		return nil, errors.New("chat: message has no author")
	}
	return json.Marshal(out)
}
