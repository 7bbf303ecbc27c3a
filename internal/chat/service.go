package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/suPer8Hu/ai-chatroom/internal/ai"
	"go.uber.org/zap"
)

const (
	DefaultListLimit     = 50
	DefaultListCap       = 100
	DefaultMaxContentLen = 2000
	DefaultContextWindow = 10

	// AIUnavailableWarning is returned alongside a saved message whose
	// requested AI reply could not be produced.
	AIUnavailableWarning = "AI assistant is unavailable right now; your message was saved without a reply"
)

var ErrInvalidContent = errors.New("invalid message content")

// Responder produces assistant replies. *ai.Responder satisfies it.
type Responder interface {
	Respond(ctx context.Context, messages []ai.Message) (string, error)
	Model() string
}

// RecentCache mirrors the tail of the message log. Recent reports ok=false
// when the cache cannot answer and the log must be read instead.
// Invalidate makes Recent miss until the next Fill.
type RecentCache interface {
	Add(ctx context.Context, m Message) error
	Fill(ctx context.Context, msgs []Message) error
	Recent(ctx context.Context, limit int) (msgs []Message, ok bool, err error)
	Invalidate(ctx context.Context) error
}

// EventPublisher announces appended messages to downstream consumers.
type EventPublisher interface {
	PublishMessageCreated(ctx context.Context, m Message) error
}

type Options struct {
	ContextWindowSize int
	MaxContentLength  int
	ListCap           int

	Cache  RecentCache
	Events EventPublisher
	Logger *zap.Logger
	Now    func() time.Time
}

type Service struct {
	repo      *Repo
	responder Responder

	contextWindowSize int
	maxContentLength  int
	listCap           int

	cache  RecentCache
	events EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

func NewService(repo *Repo, responder Responder, opts Options) *Service {
	if opts.ContextWindowSize <= 0 || opts.ContextWindowSize > 100 {
		opts.ContextWindowSize = DefaultContextWindow
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = DefaultMaxContentLen
	}
	if opts.ListCap <= 0 {
		opts.ListCap = DefaultListCap
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:              repo,
		responder:         responder,
		contextWindowSize: opts.ContextWindowSize,
		maxContentLength:  opts.MaxContentLength,
		listCap:           opts.ListCap,
		cache:             opts.Cache,
		events:            opts.Events,
		log:               opts.Logger,
		now:               opts.Now,
	}
}

// PostResult is what a post returns: the saved message, and either the AI
// reply or, when the reply failed, a warning.
type PostResult struct {
	UserMessage Message  `json:"userMessage"`
	AIMessage   *Message `json:"aiMessage,omitempty"`
	Warning     string   `json:"warning,omitempty"`
}

// PostMessage appends the author's message and, when it addresses the
// assistant, appends the assistant's reply. An AI failure never fails the
// call: the human message is already stored by then.
func (s *Service) PostMessage(ctx context.Context, author Human, content string) (*PostResult, error) {
	if err := s.validateContent(content); err != nil {
		return nil, err
	}

	// 1) store user message
	userMsg := Message{
		Content:   content,
		Author:    author,
		CreatedAt: s.timestamp(),
	}
	if err := s.append(ctx, &userMsg); err != nil {
		return nil, err
	}

	res := &PostResult{UserMessage: userMsg}
	if !ShouldTrigger(content) {
		return res, nil
	}

	// 2) ask the assistant; no lock is held while this runs
	start := time.Now()
	reply, err := s.responder.Respond(ctx, s.promptFor(ctx, userMsg))
	if err != nil {
		s.log.Warn("ai reply failed",
			zap.Uint64("message_id", userMsg.ID),
			zap.String("model", s.responder.Model()),
			zap.Duration("cost", time.Since(start)),
			zap.Error(err))
		res.Warning = AIUnavailableWarning
		return res, nil
	}

	// 3) store assistant message strictly after the user message
	aiAt := s.timestamp()
	if !aiAt.After(userMsg.CreatedAt) {
		aiAt = userMsg.CreatedAt.Add(time.Millisecond)
	}
	aiMsg := Message{
		Content:   reply,
		Author:    Generated{Model: s.responder.Model()},
		CreatedAt: aiAt,
	}
	if err := s.append(ctx, &aiMsg); err != nil {
		s.log.Error("store ai reply failed", zap.Uint64("message_id", userMsg.ID), zap.Error(err))
		res.Warning = AIUnavailableWarning
		return res, nil
	}

	res.AIMessage = &aiMsg
	return res, nil
}

// ListRecent returns up to limit of the newest messages, oldest first. The
// limit is clamped to the service's cap whatever the caller asks for.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > s.listCap {
		limit = s.listCap
	}

	if s.cache != nil {
		msgs, ok, err := s.cache.Recent(ctx, limit)
		if err != nil {
			s.log.Warn("recent cache read failed", zap.Error(err))
		} else if ok {
			return msgs, nil
		}
	}

	msgs, err := s.repo.Recent(ctx, s.listCap)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Fill(ctx, msgs); err != nil {
			s.log.Warn("recent cache fill failed", zap.Error(err))
		}
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (s *Service) validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is empty", ErrInvalidContent)
	}
	if !utf8.ValidString(content) {
		return fmt.Errorf("%w: content is not valid utf-8", ErrInvalidContent)
	}
	if n := utf8.RuneCountInString(content); n > s.maxContentLength {
		return fmt.Errorf("%w: content is %d characters, limit is %d", ErrInvalidContent, n, s.maxContentLength)
	}
	return nil
}

// append stores m, then best-effort updates the cache and publishes an event.
func (s *Service) append(ctx context.Context, m *Message) error {
	if err := s.repo.Append(ctx, m); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Add(ctx, *m); err != nil {
			s.log.Warn("recent cache add failed", zap.Uint64("message_id", m.ID), zap.Error(err))
			// the cache no longer holds the whole tail; force a refill from the log
			if err := s.cache.Invalidate(ctx); err != nil {
				s.log.Error("recent cache invalidate failed", zap.Uint64("message_id", m.ID), zap.Error(err))
			}
		}
	}
	if s.events != nil {
		if err := s.events.PublishMessageCreated(ctx, *m); err != nil {
			s.log.Warn("publish message event failed", zap.Uint64("message_id", m.ID), zap.Error(err))
		}
	}
	return nil
}

// promptFor builds the assistant's context: the last contextWindowSize log
// entries ending at trigger. A window of 1 sends the triggering text alone.
func (s *Service) promptFor(ctx context.Context, trigger Message) []ai.Message {
	only := []ai.Message{{Role: ai.RoleUser, Content: trigger.Content}}
	if s.contextWindowSize <= 1 {
		return only
	}

	recent, err := s.repo.Recent(ctx, s.contextWindowSize)
	if err != nil {
		s.log.Warn("load prompt context failed", zap.Error(err))
		return only
	}

	out := make([]ai.Message, 0, len(recent))
	for _, m := range recent {
		if m.ID > trigger.ID {
			// a concurrent post landed after ours
			continue
		}
		switch a := m.Author.(type) {
		case Human:
			out = append(out, ai.Message{Role: ai.RoleUser, Content: a.Username + ": " + m.Content})
		case Generated:
			out = append(out, ai.Message{Role: ai.RoleAssistant, Content: m.Content})
		}
	}
	if len(out) == 0 {
		return only
	}
	return out
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}
