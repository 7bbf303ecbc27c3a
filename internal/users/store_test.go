package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/suPer8Hu/ai-chatroom/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestCreateThenVerify(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()

	created, err := s.Create(ctx, "alice", "pa55word")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected id to be assigned")
	}
	if created.PasswordHash == "pa55word" || created.PasswordHash == "" {
		t.Fatalf("password must be stored hashed, got %q", created.PasswordHash)
	}

	got, err := s.Verify(ctx, "alice", "pa55word")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != created.ID || got.Username != "alice" {
		t.Fatalf("verify returned different identity: %+v vs %+v", got, created)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()

	if _, err := s.Create(ctx, "bob", "one"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := s.Create(ctx, "bob", "two"); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	// case-sensitive: a different casing is a different user
	if _, err := s.Create(ctx, "Bob", "three"); err != nil {
		t.Fatalf("create with different case: %v", err)
	}
	if _, err := s.Verify(ctx, "BOB", "one"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected exact-match lookup, got %v", err)
	}
}

func TestCreate_InvalidInput(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()

	cases := []struct {
		name, username, password string
	}{
		{"empty username", "", "pw"},
		{"blank username", "   ", "pw"},
		{"long username", strings.Repeat("x", MaxUsernameLength+1), "pw"},
		{"control char", "bad\nname", "pw"},
		{"empty password", "carol", ""},
		{"long password", "carol", strings.Repeat("p", 73)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Create(ctx, tc.username, tc.password); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestVerify_UniformFailure(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()

	if _, err := s.Create(ctx, "dave", "right"); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, wrongPw := s.Verify(ctx, "dave", "wrong")
	_, noUser := s.Verify(ctx, "nobody", "right")
	if !errors.Is(wrongPw, ErrInvalidCredentials) || !errors.Is(noUser, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", wrongPw, noUser)
	}
	if wrongPw.Error() != noUser.Error() {
		t.Fatalf("error text must not distinguish the cases: %q vs %q", wrongPw, noUser)
	}
}
