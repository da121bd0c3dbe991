package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Repo resolves customer and artisan identities. Credential handling lives
// with the auth service, not here.
type Repo interface {
	Find(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}

type PGRepo struct{ DB *pgxpool.Pool }

func (r *PGRepo) Find(ctx context.Context, id string) (User, error) {
	return r.scanOne(ctx, `SELECT id, username, email, role, created_at FROM users WHERE id=$1`, id)
}

func (r *PGRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.scanOne(ctx, `SELECT id, username, email, role, created_at FROM users WHERE email=$1`, email)
}

func (r *PGRepo) scanOne(ctx context.Context, q string, arg any) (User, error) {
	var u User
	err := r.DB.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}
