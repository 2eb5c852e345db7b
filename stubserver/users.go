package stubserver

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/hansamarket/go-session/session"
)

var (
	DuplicateUserErr = errors.New("user already exists")
	UserNotFoundErr  = errors.New("user not found")
)

// User is the stub's account record. Only the fields the auth surface needs.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Role         string
	Country      session.Country
	Language     session.Language
	Verified     bool
}

// Profile converts the account into the wire profile the client caches.
func (u *User) Profile() session.UserProfile {
	level := session.VerificationNone
	if u.Verified {
		level = session.VerificationEmail
	}
	return session.UserProfile{
		ID:                u.ID,
		Email:             u.Email,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Role:              u.Role,
		VerificationLevel: level,
		Country:           u.Country,
		Language:          u.Language,
	}
}

// UserRepo is an in-memory account store keyed by email.
type UserRepo struct {
	mu      sync.RWMutex
	byEmail map[string]*User
	byID    map[string]*User
}

// NewUserRepo creates an empty account store.
func NewUserRepo() *UserRepo {
	return &UserRepo{
		byEmail: make(map[string]*User),
		byID:    make(map[string]*User),
	}
}

// Create stores a new account; emails are unique case-insensitively.
func (r *UserRepo) Create(user *User) error {
	key := strings.ToLower(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[key]; exists {
		return DuplicateUserErr
	}
	r.byEmail[key] = user
	r.byID[user.ID] = user
	return nil
}

// GetByEmail looks an account up by email.
func (r *UserRepo) GetByEmail(email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, UserNotFoundErr
	}
	return user, nil
}

// GetByID looks an account up by ID.
func (r *UserRepo) GetByID(id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, UserNotFoundErr
	}
	return user, nil
}

// SetVerified flips the verification flag for an account.
func (r *UserRepo) SetVerified(email string, verified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return UserNotFoundErr
	}
	user.Verified = verified
	return nil
}

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash checks a password against a stored hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
