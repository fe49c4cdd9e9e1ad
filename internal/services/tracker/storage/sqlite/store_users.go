package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/orion/internal/services/tracker/storage"
	"github.com/louisbranch/orion/internal/services/tracker/user"
)

// CreateUser inserts a user and returns it with its assigned id.
func (t *txStore) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	u.CreatedAt = t.stamp(u.CreatedAt)
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?)`,
		u.Email, u.PasswordHash, toMillis(u.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, storage.ErrConflict
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return user.User{}, fmt.Errorf("user id: %w", err)
	}
	u.ID = id
	u.CreatedAt = fromMillis(toMillis(u.CreatedAt))
	return u, nil
}

// GetUser loads a user by id.
func (t *txStore) GetUser(ctx context.Context, userID int64) (user.User, error) {
	row := t.q.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, userID)
	return scanUser(row)
}

// GetUserByEmail loads a user by email. Matching ignores case.
func (t *txStore) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := t.q.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// DeleteUser removes a user together with their projects and tasks.
func (t *txStore) DeleteUser(ctx context.Context, userID int64) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		u         user.User
		createdAt int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}
