package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/suPer8Hu/ai-chatroom/internal/chat"
)

const (
	recentKey       = "chat:recent"
	recentPrimedKey = "chat:recent:primed"

	// longest stretch reads are served between refills from the log
	primedTTL = 5 * time.Minute
)

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// RecentMessages mirrors the tail of the message log in a sorted set scored
// by message id. It only answers reads after a Fill from the log has marked
// it primed; Adds before that are kept but not trusted on their own. The
// primed mark expires after primedTTL and is dropped by Invalidate.
type RecentMessages struct {
	rdb      *redis.Client
	capacity int64
}

func (s *Store) RecentMessages(capacity int) *RecentMessages {
	if capacity <= 0 {
		capacity = chat.DefaultListCap
	}
	return &RecentMessages{rdb: s.rdb, capacity: int64(capacity)}
}

type cachedMessage struct {
	ID        uint64    `json:"id"`
	Content   string    `json:"content"`
	UserID    uint64    `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	AIModel   string    `json:"ai_model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *RecentMessages) Add(ctx context.Context, m chat.Message) error {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if err := c.put(ctx, p, m); err != nil {
			return err
		}
		p.ZRemRangeByRank(ctx, recentKey, 0, -(c.capacity + 1))
		return nil
	})
	return err
}

func (c *RecentMessages) Fill(ctx context.Context, msgs []chat.Message) error {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, m := range msgs {
			if err := c.put(ctx, p, m); err != nil {
				return err
			}
		}
		p.ZRemRangeByRank(ctx, recentKey, 0, -(c.capacity + 1))
		p.Set(ctx, recentPrimedKey, "1", primedTTL)
		return nil
	})
	return err
}

// Invalidate drops the primed mark so reads miss until the next Fill.
func (c *RecentMessages) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, recentPrimedKey).Err()
}

func (c *RecentMessages) Recent(ctx context.Context, limit int) ([]chat.Message, bool, error) {
	if int64(limit) > c.capacity {
		return nil, false, nil
	}

	var primed *redis.IntCmd
	var members *redis.StringSliceCmd
	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		primed = p.Exists(ctx, recentPrimedKey)
		members = p.ZRevRange(ctx, recentKey, 0, int64(limit)-1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, false, err
	}
	if primed.Val() == 0 {
		return nil, false, nil
	}

	raw := members.Val()
	out := make([]chat.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		m, err := decode(raw[i])
		if err != nil {
			return nil, false, err
		}
		out = append(out, m)
	}
	return out, true, nil
}

// put replaces any entry with the same id.
func (c *RecentMessages) put(ctx context.Context, p redis.Pipeliner, m chat.Message) error {
	member, err := encode(m)
	if err != nil {
		return err
	}
	id := strconv.FormatUint(m.ID, 10)
	p.ZRemRangeByScore(ctx, recentKey, id, id)
	p.ZAdd(ctx, recentKey, redis.Z{Score: float64(m.ID), Member: member})
	return nil
}

func encode(m chat.Message) (string, error) {
	cm := cachedMessage{ID: m.ID, Content: m.Content, CreatedAt: m.CreatedAt.UTC()}
	switch a := m.Author.(type) {
	case chat.Human:
		cm.UserID = a.UserID
		cm.Username = a.Username
	case chat.Generated:
		cm.AIModel = a.Model
	default:
		return "", fmt.Errorf("redisstore: message %d has no author", m.ID)
	}
	b, err := json.Marshal(cm)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decode(raw string) (chat.Message, error) {
	var cm cachedMessage
	if err := json.Unmarshal([]byte(raw), &cm); err != nil {
		return chat.Message{}, fmt.Errorf("redisstore: decode cached message: %w", err)
	}
	m := chat.Message{ID: cm.ID, Content: cm.Content, CreatedAt: cm.CreatedAt.UTC()}
	if cm.AIModel != "" {
		m.Author = chat.Generated{Model: cm.AIModel}
	} else {
		m.Author = chat.Human{UserID: cm.UserID, Username: cm.Username}
	}
	return m, nil
}
