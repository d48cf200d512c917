package service

import (
	"errors"

	"github.com/nandakv/regio/internal/auth"
)

// AuthService gates the admin API. The credential comes from
// configuration as an email plus a bcrypt hash; there is no literal
// password comparison anywhere, and an empty hash keeps the admin API
// locked.
type AuthService struct {
	adminEmail    string
	adminPassHash string
	jwtSecret     string
}

func NewAuthService(adminEmail, adminPassHash, jwtSecret string) *AuthService {
	return &AuthService{adminEmail: adminEmail, adminPassHash: adminPassHash, jwtSecret: jwtSecret}
}

type AuthResult struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

var ErrInvalidCredentials = errors.New("invalid credentials")

func (s *AuthService) Login(email, password string) (*AuthResult, error) {
	if s.adminPassHash == "" {
		return nil, ErrInvalidCredentials
	}
	if email != s.adminEmail || !auth.CheckPassword(password, s.adminPassHash) {
		return nil, ErrInvalidCredentials
	}
	token, err := auth.GenerateToken(s.jwtSecret, email, "admin")
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Email: email, Role: "admin"}, nil
}
