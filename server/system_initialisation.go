package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-hr-tenancy/accounts"
	"github.com/jrsteele09/go-hr-tenancy/internal/errors"
)

const DefaultSuperAdminUsername = "superadmin"

// InitialiseSystem makes sure a superadmin account exists. The password is
// taken from config or generated, and printed once on first creation.
func (s *Server) InitialiseSystem(ctx context.Context) error {
	baseURL := s.config.GetBaseURL()
	email := s.config.GetSuperAdminEmail()
	if email == "" {
		email = generateEmailFromBaseURL(DefaultSuperAdminUsername, baseURL)
	}

	generatedPassword, err := s.createSuperAdmin(ctx, email, s.config.GetSuperAdminPassword())
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to bootstrap super admin: %w", err)
	}
	if generatedPassword != "" {
		log.Info().Msg("System Configuration:")
		log.Info().Msgf("   Base URL:    %s", baseURL)
		log.Info().Msg("Super Admin Credentials:")
		log.Info().Msgf("   Email:       %s", email)
		log.Info().Msgf("   Password:    %s", generatedPassword)
	}
	return nil
}

// createSuperAdmin returns the password it set, or "" when the account
// already existed.
func (s *Server) createSuperAdmin(ctx context.Context, email, defaultPassword string) (generatedPassword string, err error) {
	existing, err := s.store.Accounts().GetByEmail(ctx, email)
	if err == nil {
		if !existing.IsSuperAdmin() {
			return "", fmt.Errorf("[server createSuperAdmin] %s exists and is not a superadmin", email)
		}
		return "", nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return "", fmt.Errorf("[server createSuperAdmin] lookup: %w", err)
	}

	generatedPassword = defaultPassword
	if generatedPassword == "" {
		if generatedPassword, err = accounts.GeneratePassword(); err != nil {
			return "", fmt.Errorf("[server createSuperAdmin] failed to generate password: %w", err)
		}
	}
	passwordHash, err := accounts.HashPassword(generatedPassword)
	if err != nil {
		return "", fmt.Errorf("[server createSuperAdmin] failed to hash password: %w", err)
	}

	admin := &accounts.Account{
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  "System Administrator",
		Role:         accounts.RoleSuperAdmin,
		Tenant:       accounts.Unbound(),
		IsApproved:   true,
		IsActive:     true,
	}
	if err := s.store.Accounts().Create(ctx, admin); err != nil {
		return "", fmt.Errorf("[server createSuperAdmin] failed to create super admin: %w", err)
	}
	return generatedPassword, nil
}

// generateEmailFromBaseURL creates an email address from a username and base URL
// Example: ("admin", "https://hr.example.com/path") -> "admin@hr.example.com"
func generateEmailFromBaseURL(user, baseURL string) string {
	domain := strings.ReplaceAll(strings.ReplaceAll(baseURL, "https://", ""), "http://", "")
	domain = strings.SplitN(domain, "/", 2)[0]
	domain = strings.SplitN(domain, ":", 2)[0]
	if !strings.Contains(domain, ".") {
		domain += ".local"
	}
	return fmt.Sprintf("%s@%s", user, domain)
}
