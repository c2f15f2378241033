package services

import (
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/dto"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingPurger struct{ emails []string }

func (p *recordingPurger) PurgeUser(_ *gorm.DB, email string) error {
	p.emails = append(p.emails, email)
	return nil
}

func newService(t *testing.T, purgers ...AccountPurger) (*AuthService, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: time.Hour,
	}
	return NewAuthService(db, cfg, purgers...), db
}

func TestRegisterNormalizesEmailAndSignsClaims(t *testing.T) {
	s, _ := newService(t)
	resp, err := s.Register(&dto.RegisterRequest{Email: "  Ada@Example.COM ", Password: "longenough"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.User.Email != "ada@example.com" {
		t.Errorf("email = %q", resp.User.Email)
	}

	token, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (any, error) { return []byte("test-secret"), nil })
	if err != nil {
		t.Fatal(err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["email"] != "ada@example.com" || claims["sub"] != resp.User.ID.String() {
		t.Errorf("claims = %v", claims)
	}

	if _, err := s.Register(&dto.RegisterRequest{Email: "ada@example.com", Password: "longenough"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate register err = %v", err)
	}
	if _, err := s.Register(&dto.RegisterRequest{Email: "nope", Password: "longenough"}); !errors.Is(err, ErrInvalidSignup) {
		t.Errorf("bad email err = %v", err)
	}
}

func TestLoginAndRefreshRotation(t *testing.T) {
	s, _ := newService(t)
	if _, err := s.Register(&dto.RegisterRequest{Email: "a@b.co", Password: "longenough"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Login(&dto.LoginRequest{Email: "a@b.co", Password: "wrong-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v", err)
	}
	resp, err := s.Login(&dto.LoginRequest{Email: "A@B.co", Password: "longenough"})
	if err != nil {
		t.Fatal(err)
	}

	next, err := s.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	if err != nil {
		t.Fatal(err)
	}
	if next.RefreshToken == resp.RefreshToken {
		t.Error("refresh token not rotated")
	}
	if _, err := s.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reused refresh err = %v", err)
	}
}

func TestRefreshRejectsExpired(t *testing.T) {
	s, _ := newService(t)
	resp, _ := s.Register(&dto.RegisterRequest{Email: "a@b.co", Password: "longenough"})
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := s.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired refresh err = %v", err)
	}
}

func TestDeleteAccountRunsPurgers(t *testing.T) {
	p := &recordingPurger{}
	s, db := newService(t, p)
	resp, _ := s.Register(&dto.RegisterRequest{Email: "a@b.co", Password: "longenough"})

	if err := s.DeleteAccount(resp.User.ID, ""); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("empty password err = %v", err)
	}
	if err := s.DeleteAccount(resp.User.ID, "longenough"); err != nil {
		t.Fatal(err)
	}
	if len(p.emails) != 1 || p.emails[0] != "a@b.co" {
		t.Errorf("purged = %v", p.emails)
	}
	var tokens int64
	db.Model(&models.RefreshToken{}).Count(&tokens)
	if tokens != 0 {
		t.Errorf("refresh tokens left = %d", tokens)
	}
	if _, err := s.Login(&dto.LoginRequest{Email: "a@b.co", Password: "longenough"}); err == nil {
		t.Error("deleted user can still log in")
	}
}
