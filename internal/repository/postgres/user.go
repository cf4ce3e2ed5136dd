package postgres

import (
	"context"
	"fmt"
	"time"

	"gallan_chat/internal/domain"
	apperrors "gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

const userColumns = `id, username, password_hash, display_name, status, avatar_url, is_online, last_seen, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName, &u.Status,
		&u.AvatarURL, &u.IsOnline, &u.LastSeen, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, password_hash, display_name, status, avatar_url, is_online, last_seen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		user.Username, user.PasswordHash, user.DisplayName, user.Status, user.AvatarURL,
		user.IsOnline, user.LastSeen, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			r.log.Warn("User already exists (unique violation)", "username", user.Username)
			return fmt.Errorf("%w: username %q is taken", apperrors.ErrConflict, user.Username)
		}
		r.log.Error("Failed to create user", "error", err, "username", user.Username)
		return err
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("user %d", id))
	}
	return u, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1)`

	u, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("user %q", username))
	}
	return u, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	query := `UPDATE users SET display_name = $2, status = $3, avatar_url = $4 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, user.ID, user.DisplayName, user.Status, user.AvatarURL)
	if err != nil {
		r.log.Error("Failed to update user", "error", err, "user_id", user.ID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", apperrors.ErrNotFound, user.ID)
	}
	return nil
}

func (r *userRepository) UpdatePresence(ctx context.Context, id int64, online bool, lastSeen time.Time) error {
	query := `UPDATE users SET is_online = $2, last_seen = $3 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, online, lastSeen)
	if err != nil {
		r.log.Error("Failed to update presence", "error", err, "user_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", apperrors.ErrNotFound, id)
	}
	return nil
}
