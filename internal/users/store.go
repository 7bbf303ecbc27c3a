// Package users is the credential store: account creation and password
// verification over the users table.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/suPer8Hu/ai-chatroom/internal/auth"
	"github.com/suPer8Hu/ai-chatroom/internal/models"
	"gorm.io/gorm"
)

const MaxUsernameLength = 64

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Create registers a user. Usernames are compared byte-for-byte.
func (s *Store) Create(ctx context.Context, username, password string) (*models.User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if password == "" || len(password) > auth.MaxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be 1-%d bytes", ErrInvalidInput, auth.MaxPasswordBytes)
	}

	existing, err := s.findByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateUsername
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		// lost a race on the unique index
		if again, getErr := s.findByUsername(ctx, username); getErr == nil && again != nil {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Verify returns the user when password matches. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Store) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.findByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		auth.BurnPasswordCheck(password)
		return nil, ErrInvalidCredentials
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("check password: %w", err)
	}
	return user, nil
}

// findByUsername returns nil, nil when no row matches exactly.
func (s *Store) findByUsername(ctx context.Context, username string) (*models.User, error) {
	var candidates []models.User
	if err := s.db.WithContext(ctx).
		Where("username = ?", username).
		Limit(2).
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	// case-insensitive collations can return near matches
	for i := range candidates {
		if candidates[i].Username == username {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

func validateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username required", ErrInvalidInput)
	}
	if !utf8.ValidString(username) || utf8.RuneCountInString(username) > MaxUsernameLength {
		return fmt.Errorf("%w: username must be at most %d characters", ErrInvalidInput, MaxUsernameLength)
	}
	for _, r := range username {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: username contains control characters", ErrInvalidInput)
		}
	}
	return nil
}
