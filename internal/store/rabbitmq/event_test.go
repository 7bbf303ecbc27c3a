package rabbitmq

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/suPer8Hu/ai-chatroom/internal/chat"
)

func TestNewMessageEvent(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	human, err := NewMessageEvent(chat.Message{ID: 4, Content: "hi", Author: chat.Human{UserID: 2, Username: "alice"}, CreatedAt: at})
	if err != nil {
		t.Fatalf("human event: %v", err)
	}
	if human.Type != EventMessageCreated || human.EventID == "" || human.IsAI {
		t.Fatalf("unexpected event %+v", human)
	}
	if human.UserID == nil || *human.UserID != 2 || human.Username == nil || *human.Username != "alice" || human.AIModel != nil {
		t.Fatalf("unexpected authorship %+v", human)
	}

	bot, err := NewMessageEvent(chat.Message{ID: 5, Content: "hello", Author: chat.Generated{Model: "gemini-1.5-flash"}, CreatedAt: at})
	if err != nil {
		t.Fatalf("ai event: %v", err)
	}
	if !bot.IsAI || bot.UserID != nil || bot.AIModel == nil || *bot.AIModel != "gemini-1.5-flash" {
		t.Fatalf("unexpected authorship %+v", bot)
	}
	if bot.EventID == human.EventID {
		t.Fatalf("event ids must differ")
	}

	b, err := json.Marshal(bot)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["username"] != nil || decoded["type"] != "message.created" {
		t.Fatalf("unexpected wire form %s", b)
	}

	if _, err := NewMessageEvent(chat.Message{ID: 6}); err == nil {
		t.Fatalf("authorless message must fail")
	}
}
