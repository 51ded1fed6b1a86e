// Package auth registers users, checks credentials and issues the tokens
// that carry a user's identity and role.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"marketplace/db"
	"marketplace/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidInput       = errors.New("invalid registration")
)

const minPasswordLen = 6

// UserStore is the slice of the entity store auth needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type Service struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
}

func NewService(users UserStore, secret []byte, ttl time.Duration) *Service {
	return &Service{users: users, secret: secret, ttl: ttl}
}

// Session is a signed token for an authenticated user.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Register creates an account. A username is registered once; its role
// never changes afterwards.
func (s *Service) Register(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > 64 {
		return nil, fmt.Errorf("%w: username must be 1-64 characters", ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role must be client or contractor", ErrInvalidInput)
	}

	_, err := s.users.GetUserByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("auth: lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	u := &models.User{Username: username, PasswordHash: string(hash), Role: role}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, db.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("auth: create user: %w", err)
	}
	return u, nil
}

// Login checks the credentials and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth: lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := NewToken(s.secret, u.ID, u.Role, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("auth: sign token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// Verify parses a token issued by Login.
func (s *Service) Verify(token string) (*Claims, error) {
	return ParseToken(s.secret, token)
}
