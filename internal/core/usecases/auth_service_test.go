package usecases_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/unaibg/merkatu/internal/core/domain"
	"github.com/unaibg/merkatu/internal/core/usecases"
	"github.com/unaibg/merkatu/internal/pkg/password"
)

// --- Mock UserRepository ---

type mockUserRepo struct {
	createFn     func(ctx context.Context, u *domain.User) error
	getByEmailFn func(ctx context.Context, email string) (*domain.User, error)
	getByIDFn    func(ctx context.Context, id string) (*domain.User, error)

	verifiedIDs  []string
	passwordSets []string
	roleSets     map[string]string
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	u.ID = "u-1"
	return nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockUserRepo) SetVerified(ctx context.Context, id string) error {
	m.verifiedIDs = append(m.verifiedIDs, id)
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	m.passwordSets = append(m.passwordSets, id)
	return nil
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id, role string) error {
	if m.roleSets == nil {
		m.roleSets = map[string]string{}
	}
	m.roleSets[id] = role
	return nil
}

// --- Mock Mailer ---

type mockMailer struct {
	verifyTokens []string
	resetTokens  []string
	failNext     bool
}

func (m *mockMailer) SendVerification(ctx context.Context, email, token string) error {
	if m.failNext {
		return fmt.Errorf("smtp unavailable")
	}
	m.verifyTokens = append(m.verifyTokens, token)
	return nil
}

func (m *mockMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	if m.failNext {
		return fmt.Errorf("smtp unavailable")
	}
	m.resetTokens = append(m.resetTokens, token)
	return nil
}

// --- Mock FunnelRecorder ---

type mockFunnel struct {
	calls map[string]int
}

func newMockFunnel() *mockFunnel { return &mockFunnel{calls: map[string]int{}} }

func (m *mockFunnel) VerificationSent(map[string]any)       { m.calls["verification_sent"]++ }
func (m *mockFunnel) VerificationCompleted(map[string]any)  { m.calls["verification_completed"]++ }
func (m *mockFunnel) VerificationFailed(map[string]any)     { m.calls["verification_failed"]++ }
func (m *mockFunnel) PasswordResetRequested(map[string]any) { m.calls["password_reset_requested"]++ }
func (m *mockFunnel) PasswordResetCompleted(map[string]any) { m.calls["password_reset_completed"]++ }
func (m *mockFunnel) PasswordResetFailed(map[string]any)    { m.calls["password_reset_failed"]++ }
func (m *mockFunnel) RoleChanged(map[string]any)            { m.calls["role_changed"]++ }
func (m *mockFunnel) RoleChangeFailed(map[string]any)       { m.calls["role_change_failed"]++ }
func (m *mockFunnel) LoginSucceeded(map[string]any)         { m.calls["login_succeeded"]++ }
func (m *mockFunnel) LoginFailed(map[string]any)            { m.calls["login_failed"]++ }
func (m *mockFunnel) SignupSucceeded(map[string]any)        { m.calls["signup_succeeded"]++ }
func (m *mockFunnel) SignupFailed(map[string]any)           { m.calls["signup_failed"]++ }
func (m *mockFunnel) AuthError(map[string]any)              { m.calls["auth_error"]++ }

const testSecret = "test-secret"

func newAuthService(repo *mockUserRepo, mailer *mockMailer, funnel *mockFunnel) *usecases.AuthService {
	return usecases.NewAuthService(repo, mailer, funnel, testSecret, 15*time.Minute)
}

func TestAuthService_Signup(t *testing.T) {
	repo := &mockUserRepo{}
	mailer := &mockMailer{}
	funnel := newMockFunnel()
	svc := newAuthService(repo, mailer, funnel)

	user, err := svc.Signup(context.Background(), "  Ane@Example.COM ", "correct-horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "ane@example.com" {
		t.Errorf("expected normalized email, got %s", user.Email)
	}
	if user.Role != domain.RoleUser {
		t.Errorf("expected role user, got %s", user.Role)
	}
	if funnel.calls["signup_succeeded"] != 1 {
		t.Errorf("expected 1 signup_succeeded, got %d", funnel.calls["signup_succeeded"])
	}
	if funnel.calls["verification_sent"] != 1 {
		t.Errorf("expected 1 verification_sent, got %d", funnel.calls["verification_sent"])
	}
	if len(mailer.verifyTokens) != 1 {
		t.Fatalf("expected verification email, got %d", len(mailer.verifyTokens))
	}
}

func TestAuthService_SignupRejectsWeakPassword(t *testing.T) {
	funnel := newMockFunnel()
	svc := newAuthService(&mockUserRepo{}, &mockMailer{}, funnel)

	if _, err := svc.Signup(context.Background(), "ane@example.com", "short"); err == nil {
		t.Fatal("expected error for weak password")
	}
	if funnel.calls["signup_failed"] != 1 {
		t.Errorf("expected 1 signup_failed, got %d", funnel.calls["signup_failed"])
	}
	if funnel.calls["signup_succeeded"] != 0 {
		t.Errorf("expected no signup_succeeded, got %d", funnel.calls["signup_succeeded"])
	}
}

func TestAuthService_SignupSurvivesMailerOutage(t *testing.T) {
	funnel := newMockFunnel()
	svc := newAuthService(&mockUserRepo{}, &mockMailer{failNext: true}, funnel)

	user, err := svc.Signup(context.Background(), "ane@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil {
		t.Fatal("expected user despite mailer failure")
	}
	if funnel.calls["verification_failed"] != 1 {
		t.Errorf("expected 1 verification_failed, got %d", funnel.calls["verification_failed"])
	}
	if funnel.calls["verification_sent"] != 0 {
		t.Errorf("expected no verification_sent, got %d", funnel.calls["verification_sent"])
	}
}

func TestAuthService_Login(t *testing.T) {
	hash, err := password.Hash("correct-horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &mockUserRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: "u-1", Email: email, Role: domain.RoleUser, PasswordHash: hash}, nil
		},
	}
	funnel := newMockFunnel()
	svc := newAuthService(repo, &mockMailer{}, funnel)

	tok, err := svc.Login(context.Background(), "ane@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok == "" {
		t.Fatal("expected a session token")
	}
	if funnel.calls["login_succeeded"] != 1 {
		t.Errorf("expected 1 login_succeeded, got %d", funnel.calls["login_succeeded"])
	}

	if _, err := svc.Login(context.Background(), "ane@example.com", "wrong"); err == nil {
		t.Fatal("expected error for bad password")
	}
	if funnel.calls["login_failed"] != 1 {
		t.Errorf("expected 1 login_failed, got %d", funnel.calls["login_failed"])
	}
}

func TestAuthService_LoginUnknownAccount(t *testing.T) {
	funnel := newMockFunnel()
	svc := newAuthService(&mockUserRepo{}, &mockMailer{}, funnel)

	if _, err := svc.Login(context.Background(), "ghost@example.com", "whatever"); err == nil {
		t.Fatal("expected error for unknown account")
	}
	if funnel.calls["login_failed"] != 1 {
		t.Errorf("expected 1 login_failed, got %d", funnel.calls["login_failed"])
	}
}

func TestAuthService_VerifyEmail(t *testing.T) {
	repo := &mockUserRepo{}
	mailer := &mockMailer{}
	funnel := newMockFunnel()
	svc := newAuthService(repo, mailer, funnel)

	if _, err := svc.Signup(context.Background(), "ane@example.com", "correct-horse"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := svc.VerifyEmail(context.Background(), mailer.verifyTokens[0]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.verifiedIDs) != 1 || repo.verifiedIDs[0] != "u-1" {
		t.Errorf("expected u-1 verified, got %v", repo.verifiedIDs)
	}
	if funnel.calls["verification_completed"] != 1 {
		t.Errorf("expected 1 verification_completed, got %d", funnel.calls["verification_completed"])
	}
}

func TestAuthService_VerifyEmailRejectsBogusToken(t *testing.T) {
	funnel := newMockFunnel()
	svc := newAuthService(&mockUserRepo{}, &mockMailer{}, funnel)

	if err := svc.VerifyEmail(context.Background(), "not-a-token"); err == nil {
		t.Fatal("expected error for bogus token")
	}
	if funnel.calls["verification_failed"] != 1 {
		t.Errorf("expected 1 verification_failed, got %d", funnel.calls["verification_failed"])
	}
}

func TestAuthService_PasswordReset(t *testing.T) {
	repo := &mockUserRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: "u-1", Email: email}, nil
		},
	}
	mailer := &mockMailer{}
	funnel := newMockFunnel()
	svc := newAuthService(repo, mailer, funnel)

	if err := svc.RequestPasswordReset(context.Background(), "ane@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mailer.resetTokens) != 1 {
		t.Fatalf("expected reset email, got %d", len(mailer.resetTokens))
	}
	if funnel.calls["password_reset_requested"] != 1 {
		t.Errorf("expected 1 password_reset_requested, got %d", funnel.calls["password_reset_requested"])
	}

	if err := svc.ConfirmPasswordReset(context.Background(), mailer.resetTokens[0], "new-password-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.passwordSets) != 1 || repo.passwordSets[0] != "u-1" {
		t.Errorf("expected password update for u-1, got %v", repo.passwordSets)
	}
	if funnel.calls["password_reset_completed"] != 1 {
		t.Errorf("expected 1 password_reset_completed, got %d", funnel.calls["password_reset_completed"])
	}
}

func TestAuthService_PasswordResetHidesUnknownAccounts(t *testing.T) {
	mailer := &mockMailer{}
	funnel := newMockFunnel()
	svc := newAuthService(&mockUserRepo{}, mailer, funnel)

	if err := svc.RequestPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mailer.resetTokens) != 0 {
		t.Errorf("expected no reset email for unknown account")
	}
	if funnel.calls["password_reset_requested"] != 1 {
		t.Errorf("expected 1 password_reset_requested, got %d", funnel.calls["password_reset_requested"])
	}
}

func TestAuthService_ConfirmPasswordResetRejectsBogusToken(t *testing.T) {
	funnel := newMockFunnel()
	svc := newAuthService(&mockUserRepo{}, &mockMailer{}, funnel)

	if err := svc.ConfirmPasswordReset(context.Background(), "not-a-token", "new-password-1"); err == nil {
		t.Fatal("expected error for bogus token")
	}
	if funnel.calls["password_reset_failed"] != 1 {
		t.Errorf("expected 1 password_reset_failed, got %d", funnel.calls["password_reset_failed"])
	}
}

func TestAuthService_ChangeRole(t *testing.T) {
	repo := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Role: domain.RoleUser}, nil
		},
	}
	funnel := newMockFunnel()
	svc := newAuthService(repo, &mockMailer{}, funnel)

	if err := svc.ChangeRole(context.Background(), "u-1", domain.RoleVendor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.roleSets["u-1"] != domain.RoleVendor {
		t.Errorf("expected vendor role set, got %v", repo.roleSets)
	}
	if funnel.calls["role_changed"] != 1 {
		t.Errorf("expected 1 role_changed, got %d", funnel.calls["role_changed"])
	}

	if err := svc.ChangeRole(context.Background(), "u-1", "overlord"); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if funnel.calls["role_change_failed"] != 1 {
		t.Errorf("expected 1 role_change_failed, got %d", funnel.calls["role_change_failed"])
	}
}
