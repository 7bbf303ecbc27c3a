package rabbitmq

import (
	"fmt"
	"time"

	"github.com/suPer8Hu/ai-chatroom/internal/chat"
	"github.com/suPer8Hu/ai-chatroom/internal/common"
)

const EventMessageCreated = "message.created"

// MessageEvent is the body published for every appended chat message.
type MessageEvent struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	MessageID uint64    `json:"message_id"`
	Content   string    `json:"content"`
	UserID    *uint64   `json:"user_id"`
	Username  *string   `json:"username"`
	IsAI      bool      `json:"is_ai"`
	AIModel   *string   `json:"ai_model"`
	CreatedAt time.Time `json:"created_at"`
}

func NewMessageEvent(m chat.Message) (MessageEvent, error) {
	id, err := common.NewULID()
	if err != nil {
		return MessageEvent{}, err
	}
	ev := MessageEvent{
		EventID:   id,
		Type:      EventMessageCreated,
		MessageID: m.ID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UTC(),
	}
	switch a := m.Author.(type) {
	case chat.Human:
		uid, name := a.UserID, a.Username
		ev.UserID, ev.Username = &uid, &name
	case chat.Generated:
		model := a.Model
		ev.IsAI, ev.AIModel = true, &model
	default:
		return MessageEvent{}, fmt.Errorf("rabbitmq: message %d has no author", m.ID)
	}
	return ev, nil
}
