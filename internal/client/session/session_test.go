package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/afero"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "u1",
		"email": "a@b.co",
		"exp":   exp.Unix(),
	})
	s, err := tok.SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), "/cfg")

	if _, err := store.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("empty store err = %v", err)
	}

	sess := &Session{Email: "a@b.co", AccessToken: "tok", RefreshToken: "r"}
	if err := store.Save(sess); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Email != "a@b.co" || got.RefreshToken != "r" {
		t.Errorf("loaded %#v", got)
	}

	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Errorf("second clear: %v", err)
	}
}

func TestAccessExpired(t *testing.T) {
	now := time.Now()
	fresh := &Session{AccessToken: signed(t, now.Add(time.Hour))}
	stale := &Session{AccessToken: signed(t, now.Add(-time.Minute))}

	if fresh.AccessExpired(now) {
		t.Error("fresh token reported expired")
	}
	if !stale.AccessExpired(now) {
		t.Error("stale token reported valid")
	}
	if !(&Session{AccessToken: "nope"}).AccessExpired(now) {
		t.Error("garbage token reported valid")
	}
}

func TestTokensBoundToIdentity(t *testing.T) {
	tokens := NewTokens(&Session{Email: "a@b.co", AccessToken: "tok"})

	if tok, err := tokens.Token(Identity{Email: "a@b.co"}); err != nil || tok != "tok" {
		t.Errorf("token = %q, %v", tok, err)
	}
	if _, err := tokens.Token(Identity{Email: "other@b.co"}); !errors.Is(err, ErrNoSession) {
		t.Errorf("other identity err = %v", err)
	}
	if _, err := tokens.Token(Guest()); !errors.Is(err, ErrNoSession) {
		t.Errorf("guest err = %v", err)
	}
}
