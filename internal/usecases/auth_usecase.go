package usecases

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"wppserver/internal/entities"
)

// tokenTTL bounds how long an issued API token stays valid.
const tokenTTL = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already exists")
)

// UserStore is the slice of user persistence the auth flow needs.
type UserStore interface {
	Create(user *entities.User) error
	GetByUsername(username string) (*entities.User, error)
}

// AuthUsecase issues the JWTs guarding the tenant management API.
// Usernames are case-insensitive; the lowercased form is canonical.
type AuthUsecase struct {
	users     UserStore
	jwtSecret []byte
}

func NewAuthUsecase(users UserStore, secret string) *AuthUsecase {
	return &AuthUsecase{
		users:     users,
		jwtSecret: []byte(secret),
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (uc *AuthUsecase) Register(username, password string) error {
	username = normalizeUsername(username)

	existing, err := uc.users.GetByUsername(username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return uc.users.Create(&entities.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         "user",
	})
}

// Login verifies the credentials and returns a signed token carrying
// the identity the middleware and rate limiter key on.
func (uc *AuthUsecase) Login(username, password string) (string, error) {
	user, err := uc.users.GetByUsername(normalizeUsername(username))
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(tokenTTL).Unix(),
	})

	signed, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// EnsureAdmin bootstraps the admin account on startup. Idempotent: an
// existing user with the name is left untouched.
func (uc *AuthUsecase) EnsureAdmin(username, password string) error {
	username = normalizeUsername(username)

	user, err := uc.users.GetByUsername(username)
	if err != nil {
		return err
	}
	if user != nil {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return uc.users.Create(&entities.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         "admin",
	})
}
