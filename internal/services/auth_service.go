package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sjperalta/firma-api/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin is the only role the console issues
const RoleAdmin = "admin"

// AuthService handles admin console authentication
type AuthService struct {
	cfg          *config.Config
	username     string
	passwordHash []byte
}

// NewAuthService hashes the configured admin password once at startup
func NewAuthService(cfg *config.Config) (*AuthService, error) {
	hash, err := HashPassword(cfg.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	return &AuthService{
		cfg:          cfg,
		username:     cfg.AdminUsername,
		passwordHash: []byte(hash),
	}, nil
}

// LoginResult represents the result of a login attempt
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login checks the admin credentials and returns a signed token
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) == nil
	if !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(time.Duration(s.cfg.JWTExpirationHours) * time.Hour)
	token, err := s.generateJWT(username, expiresAt)
	if err != nil {
		return nil, errors.New("error al generar token")
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}

// generateJWT creates a new JWT token for the admin
func (s *AuthService) generateJWT(username string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  username,
		"role": RoleAdmin,
		"exp":  expiresAt.Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// VerifyPassword compares a password with a hash
func VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
