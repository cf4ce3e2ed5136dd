package postgres

import (
	"context"
	"fmt"

	"gallan_chat/internal/domain"
	apperrors "gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type chatRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

const chatColumns = `c.id, c.kind, c.name, c.avatar_url, c.description, c.created_by, c.created_at, c.updated_at`

func scanChat(row pgx.Row) (*domain.Chat, error) {
	ch := &domain.Chat{}
	err := row.Scan(&ch.ID, &ch.Kind, &ch.Name, &ch.AvatarURL, &ch.Description,
		&ch.CreatedBy, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func insertChat(ctx context.Context, tx pgx.Tx, chat *domain.Chat) error {
	query := `
		INSERT INTO chats (kind, name, avatar_url, description, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return tx.QueryRow(ctx, query, chat.Kind, chat.Name, chat.AvatarURL, chat.Description,
		chat.CreatedBy, chat.CreatedAt, chat.UpdatedAt).Scan(&chat.ID)
}

func insertParticipant(ctx context.Context, tx pgx.Tx, p *domain.ChatParticipant) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO chat_participants (chat_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
		p.ChatID, p.UserID, p.Role, p.JoinedAt)
	return err
}

func (r *chatRepository) CreateDirect(ctx context.Context, chat *domain.Chat, userA, userB int64) error {
	key := domain.DirectPairKey(userA, userB)

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := insertChat(ctx, tx, chat); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO direct_chats (user_low, user_high, chat_id) VALUES ($1, $2, $3)`,
			key[0], key[1], chat.ID); err != nil {
			return err
		}
		for _, id := range key {
			p := &domain.ChatParticipant{ChatID: chat.ID, UserID: id, Role: domain.ParticipantRoleMember, JoinedAt: chat.CreatedAt}
			if err := insertParticipant(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("%w: direct chat already exists", apperrors.ErrConflict)
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: user", apperrors.ErrNotFound)
		}
		r.log.Error("Failed to create direct chat", "error", err, "user_a", userA, "user_b", userB)
		return err
	}
	return nil
}

func (r *chatRepository) GetDirect(ctx context.Context, userA, userB int64) (*domain.Chat, error) {
	key := domain.DirectPairKey(userA, userB)
	query := `
		SELECT ` + chatColumns + `
		FROM chats c
		JOIN direct_chats d ON d.chat_id = c.id
		WHERE d.user_low = $1 AND d.user_high = $2
	`

	ch, err := scanChat(r.db.QueryRow(ctx, query, key[0], key[1]))
	if err != nil {
		return nil, notFound(err, "direct chat")
	}
	return ch, nil
}

func (r *chatRepository) CreateGroup(ctx context.Context, chat *domain.Chat, participants []*domain.ChatParticipant) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := insertChat(ctx, tx, chat); err != nil {
			return err
		}
		for _, p := range participants {
			p.ChatID = chat.ID
			if err := insertParticipant(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: user", apperrors.ErrNotFound)
		}
		r.log.Error("Failed to create group chat", "error", err, "created_by", chat.CreatedBy)
		return err
	}
	return nil
}

func (r *chatRepository) GetByID(ctx context.Context, id int64) (*domain.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats c WHERE c.id = $1`

	ch, err := scanChat(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("chat %d", id))
	}
	return ch, nil
}

func (r *chatRepository) IsParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat_participants WHERE chat_id = $1 AND user_id = $2)`,
		chatID, userID).Scan(&ok)
	if err != nil {
		r.log.Error("Failed to check participant", "error", err, "chat_id", chatID, "user_id", userID)
		return false, err
	}
	return ok, nil
}

func (r *chatRepository) ListParticipants(ctx context.Context, chatID int64) ([]*domain.ChatParticipant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT chat_id, user_id, role, joined_at FROM chat_participants WHERE chat_id = $1 ORDER BY user_id`,
		chatID)
	if err != nil {
		r.log.Error("Failed to list participants", "error", err, "chat_id", chatID)
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ChatParticipant
	for rows.Next() {
		p := &domain.ChatParticipant{}
		if err := rows.Scan(&p.ChatID, &p.UserID, &p.Role, &p.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: chat %d", apperrors.ErrNotFound, chatID)
	}
	return out, nil
}

func (r *chatRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Chat, error) {
	query := `
		SELECT ` + chatColumns + `
		FROM chats c
		JOIN chat_participants p ON p.chat_id = c.id
		WHERE p.user_id = $1
		ORDER BY c.updated_at DESC, c.id DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("Failed to list chats", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Chat
	for rows.Next() {
		ch, err := scanChat(rows)
		if err != nil {
			r.log.Error("Failed to scan chat", "error", err)
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (r *chatRepository) ListIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT chat_id FROM chat_participants WHERE user_id = $1 ORDER BY chat_id`, userID)
	if err != nil {
		r.log.Error("Failed to list chat ids", "error", err, "user_id", userID)
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
