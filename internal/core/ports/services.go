package ports

import (
	"context"
)

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// Mailer sends transactional email. Delivery outcomes come back through the
// provider webhook, not through this interface.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// FunnelRecorder records authentication funnel stages. Satisfied by
// monitoring.FunnelTracker; the indirection keeps usecases testable.
type FunnelRecorder interface {
	VerificationSent(metadata map[string]any)
	VerificationCompleted(metadata map[string]any)
	VerificationFailed(metadata map[string]any)
	PasswordResetRequested(metadata map[string]any)
	PasswordResetCompleted(metadata map[string]any)
	PasswordResetFailed(metadata map[string]any)
	RoleChanged(metadata map[string]any)
	RoleChangeFailed(metadata map[string]any)
	LoginSucceeded(metadata map[string]any)
	LoginFailed(metadata map[string]any)
	SignupSucceeded(metadata map[string]any)
	SignupFailed(metadata map[string]any)
	AuthError(metadata map[string]any)
}
