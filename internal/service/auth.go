package service

import (
	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/deppfellow/cardapi/internal/server"
)

// AuthService configures the Clerk SDK used to verify bearer tokens.
type AuthService struct {
	server *server.Server
}

// NewAuthService sets the Clerk secret key when authentication is enabled.
func NewAuthService(s *server.Server) *AuthService {
	if s.Config.Auth.Enabled {
		clerk.SetKey(s.Config.Auth.SecretKey)
	}
	return &AuthService{server: s}
}
