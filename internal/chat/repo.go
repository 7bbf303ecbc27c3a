package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/suPer8Hu/ai-chatroom/internal/models"
	"gorm.io/gorm"
)

// Repo is the message log over the messages table. Ids come from the
// store's autoincrement, so appends need no locking here.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Append inserts m and fills in its id.
func (r *Repo) Append(ctx context.Context, m *Message) error {
	row, err := toRow(m)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Omit("User").Create(row).Error; err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	m.ID = row.ID
	return nil
}

// Recent returns the newest limit entries by log order, oldest first.
// Log order is id order. created_at is stamped before the insert, so two
// concurrent posts can commit with ids and timestamps in opposite order;
// listings, prompts and the recent cache all follow id.
func (r *Repo) Recent(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	var rows []models.Message
	if err := r.db.WithContext(ctx).
		Preload("User").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		m, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func toRow(m *Message) (*models.Message, error) {
	row := &models.Message{Content: m.Content, CreatedAt: m.CreatedAt}
	switch a := m.Author.(type) {
	case Human:
		if a.UserID == 0 {
			return nil, errors.New("chat: human author without user id")
		}
		uid := a.UserID
		row.UserID = &uid
	case Generated:
		if a.Model == "" {
			return nil, errors.New("chat: generated author without model")
		}
		model := a.Model
		row.IsAI = true
		row.AIModel = &model
	default:
		return nil, errors.New("chat: message has no author")
	}
	return row, nil
}

func fromRow(row *models.Message) (Message, error) {
	m := Message{ID: row.ID, Content: row.Content, CreatedAt: row.CreatedAt.UTC()}
	switch {
	case row.IsAI && row.UserID == nil && row.AIModel != nil:
		m.Author = Generated{Model: *row.AIModel}
	case !row.IsAI && row.UserID != nil:
		h := Human{UserID: *row.UserID}
		if row.User != nil {
			h.Username = row.User.Username
		}
		m.Author = h
	default:
		return Message{}, fmt.Errorf("chat: message %d has inconsistent authorship", row.ID)
	}
	return m, nil
}
