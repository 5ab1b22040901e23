package store

import (
	"errors"
	"testing"

	"github.com/dvanbeek/boodschap/internal/database"
)

func setupUserTestDB(t *testing.T) *UserStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db)
}

func TestUserCreateAndGet(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("Alice", "1234", "#FF0000")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Name != "Alice" {
		t.Errorf("name = %q, want %q", u.Name, "Alice")
	}
	if u.Color != "#FF0000" {
		t.Errorf("color = %q, want %q", u.Color, "#FF0000")
	}

	got, err := us.GetByID(u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got == nil || got.Name != "Alice" {
		t.Errorf("got = %+v, want Alice", got)
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	us := setupUserTestDB(t)

	got, err := us.GetByID(9999)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserListOrdering(t *testing.T) {
	us := setupUserTestDB(t)

	us.Create("Charlie", "0000", "#00FF00")
	us.Create("Alice", "1111", "#FF0000")
	us.Create("Bob", "2222", "#0000FF")

	users, err := us.List()
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	if users[0].Name != "Alice" || users[1].Name != "Bob" || users[2].Name != "Charlie" {
		t.Errorf("users not ordered by name: %v %v %v", users[0].Name, users[1].Name, users[2].Name)
	}
}

func TestAuthenticate(t *testing.T) {
	us := setupUserTestDB(t)

	created, err := us.Create("Alice", "1234", "#FF0000")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	u, token, err := us.Authenticate("Alice", "1234")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u.ID != created.ID {
		t.Errorf("user id = %d, want %d", u.ID, created.ID)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(token))
	}

	// The token must resolve back to the user.
	got, err := us.GetBySessionToken(token)
	if err != nil {
		t.Fatalf("get by session token: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Errorf("token resolved to %+v, want user %d", got, created.ID)
	}
}

func TestAuthenticateWrongPIN(t *testing.T) {
	us := setupUserTestDB(t)
	us.Create("Alice", "1234", "#FF0000")

	if _, _, err := us.Authenticate("Alice", "9999"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong pin err = %v, want ErrBadCredentials", err)
	}
	if _, _, err := us.Authenticate("Nobody", "1234"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown user err = %v, want ErrBadCredentials", err)
	}
}

func TestSecondLoginInvalidatesFirstToken(t *testing.T) {
	us := setupUserTestDB(t)
	us.Create("Alice", "1234", "#FF0000")

	_, first, err := us.Authenticate("Alice", "1234")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	_, second, err := us.Authenticate("Alice", "1234")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if first == second {
		t.Fatal("expected a fresh token on second login")
	}

	got, err := us.GetBySessionToken(first)
	if err != nil {
		t.Fatalf("get by stale token: %v", err)
	}
	if got != nil {
		t.Error("stale token should no longer resolve to a user")
	}

	got, err = us.GetBySessionToken(second)
	if err != nil {
		t.Fatalf("get by fresh token: %v", err)
	}
	if got == nil {
		t.Error("fresh token should resolve to the user")
	}
}

func TestGetBySessionTokenEmpty(t *testing.T) {
	us := setupUserTestDB(t)
	us.Create("Alice", "1234", "#FF0000")

	// A user with no session yet must not be matched by an empty token.
	got, err := us.GetBySessionToken("")
	if err != nil {
		t.Fatalf("get by empty token: %v", err)
	}
	if got != nil {
		t.Error("empty token should never resolve to a user")
	}
}
