package models

import "time"

// Message is the stored form of a chat log entry. A row is either
// human-authored (UserID set, IsAI false, AIModel nil) or AI-authored
// (UserID nil, IsAI true, AIModel set); the check constraints hold the
// database to the same rule.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Content   string    `gorm:"type:text;not null"`
	UserID    *uint64   `gorm:"index:idx_messages_user_id"`
	User      *User     `gorm:"foreignKey:UserID"`
	IsAI      bool      `gorm:"not null;check:chk_messages_author,(user_id IS NULL) = is_ai"`
	AIModel   *string   `gorm:"type:varchar(64);check:chk_messages_model,(ai_model IS NULL) = (user_id IS NOT NULL)"`
	CreatedAt time.Time `gorm:"index:idx_messages_created_at;not null"`
}
