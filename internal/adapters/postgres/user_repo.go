package postgres

import (
	"context"

	"github.com/unaibg/merkatu/internal/core/domain"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a user and fills in its generated id.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, role, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, u.Email, u.Role, u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, email, role, password_hash, email_verified, created_at
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.Role, &u.PasswordHash, &u.EmailVerified, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, email, role, password_hash, email_verified, created_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Role, &u.PasswordHash, &u.EmailVerified, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) SetVerified(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE users SET email_verified = true WHERE id = $1
	`, id)
	return err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE users SET password_hash = $2 WHERE id = $1
	`, id, hash)
	return err
}

func (r *UserRepo) UpdateRole(ctx context.Context, id, role string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE users SET role = $2 WHERE id = $1
	`, id, role)
	return err
}
