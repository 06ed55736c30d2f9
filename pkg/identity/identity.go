// Package identity provides the credential collaborator for the FTP
// server: a Checker interface consulted by the PASS handler and an
// in-memory Store built from configuration.
package identity

import (
	"crypto/subtle"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Common errors for credential operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUser      = errors.New("user already exists")

	// ErrPasswordTooShort is returned when a password is below MinPasswordLength.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")

	// ErrPasswordTooLong is returned when a password exceeds the bcrypt
	// input limit of 72 bytes.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

// Password length rules enforced when hashing new passwords.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// DefaultBcryptCost balances hashing time against brute-force resistance.
const DefaultBcryptCost = 10

// Checker verifies a username/password pair. The PASS handler depends on
// this interface only, so tests substitute a fake.
type Checker interface {
	Verify(username, password string) bool
}

// User is a credential-store entry. Exactly one of PasswordHash (bcrypt)
// or Password (plaintext, intended for development configs) should be set;
// when both are present the hash wins.
type User struct {
	Username     string
	PasswordHash string
	Password     string
}

// Store is an in-memory credential table. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewStore builds a Store from the given users.
// Duplicate usernames are rejected.
func NewStore(users []User) (*Store, error) {
	s := &Store{users: make(map[string]User, len(users))}
	for _, u := range users {
		if _, exists := s.users[u.Username]; exists {
			return nil, ErrDuplicateUser
		}
		s.users[u.Username] = u
	}
	return s, nil
}

// Verify implements Checker.
func (s *Store) Verify(username, password string) bool {
	s.mu.RLock()
	u, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	if u.PasswordHash != "" {
		return VerifyPassword(password, u.PasswordHash)
	}
	return subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
}

// HasUser reports whether a username exists in the store.
func (s *Store) HasUser(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok
}

// HashPassword creates a bcrypt hash of the given password, enforcing
// the package's length rules.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultBcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks a password against a bcrypt hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword checks the package's password length rules.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}
