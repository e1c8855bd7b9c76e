package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/unaibg/merkatu/internal/core/domain"
	"github.com/unaibg/merkatu/internal/core/ports"
	"github.com/unaibg/merkatu/internal/pkg/password"
	"github.com/unaibg/merkatu/internal/pkg/token"
)

// AuthService drives the account lifecycle: signup, login, email
// verification, password resets, and role changes. Every stage is recorded
// in the authentication funnel.
type AuthService struct {
	users     ports.UserRepository
	mailer    ports.Mailer
	funnel    ports.FunnelRecorder
	jwtSecret string
	tokenTTL  time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(users ports.UserRepository, mailer ports.Mailer, funnel ports.FunnelRecorder, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		mailer:    mailer,
		funnel:    funnel,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// Signup registers a new account and sends the verification email.
func (s *AuthService) Signup(ctx context.Context, email, plain string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		s.funnel.SignupFailed(map[string]any{"reason": "invalid email"})
		return nil, fmt.Errorf("a valid email is required")
	}
	if len(plain) < 8 {
		s.funnel.SignupFailed(map[string]any{"email_domain": emailDomain(email), "reason": "weak password"})
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := password.Hash(plain)
	if err != nil {
		s.funnel.AuthError(map[string]any{"stage": "signup", "error": err.Error()})
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		Role:         domain.RoleUser,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.funnel.SignupFailed(map[string]any{"email_domain": emailDomain(email), "reason": err.Error()})
		return nil, err
	}
	s.funnel.SignupSucceeded(map[string]any{"user_id": user.ID, "email_domain": emailDomain(email)})

	if err := s.sendVerification(ctx, user); err != nil {
		// Account exists; the verification email can be re-requested.
		s.funnel.VerificationFailed(map[string]any{"user_id": user.ID, "error": err.Error()})
		return user, nil
	}

	return user, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *domain.User) error {
	verifyToken, err := token.Generate(user.ID, "verify", s.jwtSecret, 24*time.Hour)
	if err != nil {
		return fmt.Errorf("verification token: %w", err)
	}
	if err := s.mailer.SendVerification(ctx, user.Email, verifyToken); err != nil {
		return err
	}
	s.funnel.VerificationSent(map[string]any{"user_id": user.ID, "email_domain": emailDomain(user.Email)})
	return nil
}

// Login checks credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, plain string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.funnel.LoginFailed(map[string]any{"email_domain": emailDomain(email), "reason": "unknown account"})
		return "", fmt.Errorf("invalid credentials")
	}
	if err := password.Compare(user.PasswordHash, plain); err != nil {
		s.funnel.LoginFailed(map[string]any{"user_id": user.ID, "reason": "bad password"})
		return "", fmt.Errorf("invalid credentials")
	}

	sessionToken, err := token.Generate(user.ID, user.Role, s.jwtSecret, s.tokenTTL)
	if err != nil {
		s.funnel.AuthError(map[string]any{"stage": "login", "error": err.Error()})
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.funnel.LoginSucceeded(map[string]any{"user_id": user.ID})
	return sessionToken, nil
}

// VerifyEmail completes the verification funnel from a verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, verifyToken string) error {
	claims, err := token.Parse(verifyToken, s.jwtSecret)
	if err != nil || claims.Role != "verify" {
		s.funnel.VerificationFailed(map[string]any{"reason": "invalid token"})
		return fmt.Errorf("invalid verification token")
	}

	if err := s.users.SetVerified(ctx, claims.UserID); err != nil {
		s.funnel.VerificationFailed(map[string]any{"user_id": claims.UserID, "error": err.Error()})
		return err
	}

	s.funnel.VerificationCompleted(map[string]any{"user_id": claims.UserID})
	return nil
}

// RequestPasswordReset mails a short-lived reset token. Unknown accounts are
// reported as success to avoid leaking which emails exist.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.funnel.PasswordResetRequested(map[string]any{"email_domain": emailDomain(email), "known": false})
		return nil
	}

	resetToken, err := token.Generate(user.ID, "reset", s.jwtSecret, time.Hour)
	if err != nil {
		s.funnel.AuthError(map[string]any{"stage": "password_reset", "error": err.Error()})
		return fmt.Errorf("reset token: %w", err)
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, resetToken); err != nil {
		s.funnel.PasswordResetFailed(map[string]any{"user_id": user.ID, "error": err.Error()})
		return err
	}

	s.funnel.PasswordResetRequested(map[string]any{"user_id": user.ID, "known": true})
	return nil
}

// ConfirmPasswordReset sets a new password from a reset token.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, resetToken, plain string) error {
	claims, err := token.Parse(resetToken, s.jwtSecret)
	if err != nil || claims.Role != "reset" {
		s.funnel.PasswordResetFailed(map[string]any{"reason": "invalid token"})
		return fmt.Errorf("invalid reset token")
	}
	if len(plain) < 8 {
		s.funnel.PasswordResetFailed(map[string]any{"user_id": claims.UserID, "reason": "weak password"})
		return fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := password.Hash(plain)
	if err != nil {
		s.funnel.AuthError(map[string]any{"stage": "password_reset", "error": err.Error()})
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, claims.UserID, hash); err != nil {
		s.funnel.PasswordResetFailed(map[string]any{"user_id": claims.UserID, "error": err.Error()})
		return err
	}

	s.funnel.PasswordResetCompleted(map[string]any{"user_id": claims.UserID})
	return nil
}

// ChangeRole moves a user between roles (admin operation).
func (s *AuthService) ChangeRole(ctx context.Context, userID, role string) error {
	if role != domain.RoleUser && role != domain.RoleVendor && role != domain.RoleAdmin {
		s.funnel.RoleChangeFailed(map[string]any{"user_id": userID, "to": role, "reason": "unknown role"})
		return fmt.Errorf("unknown role %q", role)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.funnel.RoleChangeFailed(map[string]any{"user_id": userID, "to": role, "reason": "unknown user"})
		return err
	}

	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		s.funnel.RoleChangeFailed(map[string]any{"user_id": userID, "from": user.Role, "to": role, "error": err.Error()})
		return err
	}

	s.funnel.RoleChanged(map[string]any{"user_id": userID, "from": user.Role, "to": role})
	return nil
}

func emailDomain(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return ""
}
