package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError describes a rejected signup field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Reason }

const minPasswordLen = 8

// ValidateSignup checks a username/password pair before it is stored.
func ValidateSignup(username, password string) error {
	u := strings.TrimSpace(username)
	switch {
	case u == "":
		return &ValidationError{Field: "username", Reason: "required"}
	case utf8.RuneCountInString(u) > 150:
		return &ValidationError{Field: "username", Reason: "at most 150 characters"}
	case strings.ContainsAny(u, " \t\r\n"):
		return &ValidationError{Field: "username", Reason: "must not contain spaces"}
	case utf8.RuneCountInString(password) < minPasswordLen:
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("at least %d characters", minPasswordLen)}
	case strings.EqualFold(u, password):
		return &ValidationError{Field: "password", Reason: "too similar to the username"}
	}
	return nil
}

// CreateUser stores a new account with a bcrypt password hash.
func (s *Store) CreateUser(ctx context.Context, username, password string) error {
	if err := ValidateSignup(username, password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO `+usersTable+` (username, password_hash) VALUES ($1, $2)`,
		strings.TrimSpace(username), hash)
	if isUniqueViolation(err) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Authenticate checks a username/password pair.
func (s *Store) Authenticate(ctx context.Context, username, password string) error {
	var hash []byte
	err := s.db.QueryRow(ctx,
		`SELECT password_hash FROM `+usersTable+` WHERE username = $1`,
		strings.TrimSpace(username)).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
