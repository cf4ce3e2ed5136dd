package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gallan_chat/internal/domain"
	apperrors "gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

const messageColumns = `id, chat_id, sender_id, content, message_type, quoted_message_id, created_at, status`

func scanMessage(row pgx.Row) (*domain.Message, error) {
	m := &domain.Message{}
	err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.Type,
		&m.QuotedMessageID, &m.CreatedAt, &m.Status)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func scanReceipt(row pgx.Row) (*domain.Receipt, error) {
	rc := &domain.Receipt{}
	if err := row.Scan(&rc.MessageID, &rc.UserID, &rc.Status, &rc.UpdatedAt); err != nil {
		return nil, err
	}
	return rc, nil
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message, receipts []*domain.Receipt) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		// The row lock serializes writers per chat, so ids and timestamps agree.
		var chatUpdatedAt time.Time
		err := tx.QueryRow(ctx, `SELECT updated_at FROM chats WHERE id = $1 FOR UPDATE`, message.ChatID).Scan(&chatUpdatedAt)
		if err != nil {
			return notFound(err, fmt.Sprintf("chat %d", message.ChatID))
		}
		if message.CreatedAt.Before(chatUpdatedAt) {
			message.CreatedAt = chatUpdatedAt
		}

		query := `
			INSERT INTO messages (chat_id, sender_id, content, message_type, quoted_message_id, created_at, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`
		err = tx.QueryRow(ctx, query,
			message.ChatID, message.SenderID, message.Content, message.Type,
			message.QuotedMessageID, message.CreatedAt, message.Status,
		).Scan(&message.ID)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, rc := range receipts {
			rc.MessageID = message.ID
			batch.Queue(
				`INSERT INTO message_receipts (message_id, user_id, status, updated_at) VALUES ($1, $2, $3, $4)`,
				rc.MessageID, rc.UserID, rc.Status, rc.UpdatedAt)
		}
		batch.Queue(`UPDATE chats SET updated_at = $2 WHERE id = $1`,
			message.ChatID, message.CreatedAt)
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: chat %d", apperrors.ErrNotFound, message.ChatID)
		}
		r.log.Error("Failed to create message", "error", err, "chat_id", message.ChatID)
		return err
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	m, err := scanMessage(r.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("message %d", id))
	}
	return m, nil
}

func (r *messageRepository) ListByChat(ctx context.Context, chatID int64) ([]*domain.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE chat_id = $1 ORDER BY created_at ASC, id ASC`, chatID)
	if err != nil {
		r.log.Error("Failed to list messages", "error", err, "chat_id", chatID)
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *messageRepository) LastInChat(ctx context.Context, chatID int64) (*domain.Message, error) {
	m, err := scanMessage(r.db.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE chat_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, chatID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("chat %d has no messages", chatID))
	}
	return m, nil
}

func (r *messageRepository) GetReceipt(ctx context.Context, messageID, userID int64) (*domain.Receipt, error) {
	rc, err := scanReceipt(r.db.QueryRow(ctx,
		`SELECT message_id, user_id, status, updated_at FROM message_receipts WHERE message_id = $1 AND user_id = $2`,
		messageID, userID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("receipt for message %d user %d", messageID, userID))
	}
	return rc, nil
}

func (r *messageRepository) ListReceipts(ctx context.Context, messageID int64) ([]*domain.Receipt, error) {
	rows, err := r.db.Query(ctx,
		`SELECT message_id, user_id, status, updated_at FROM message_receipts WHERE message_id = $1 ORDER BY user_id`,
		messageID)
	if err != nil {
		r.log.Error("Failed to list receipts", "error", err, "message_id", messageID)
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Receipt
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (r *messageRepository) ListUserReceiptsBelow(ctx context.Context, chatID, userID int64, below domain.MessageStatus) ([]*domain.Receipt, error) {
	query := `
		SELECT mr.message_id, mr.user_id, mr.status, mr.updated_at
		FROM message_receipts mr
		JOIN messages m ON m.id = mr.message_id
		WHERE m.chat_id = $1 AND mr.user_id = $2 AND ` + fmt.Sprintf(rankSQL, "mr.status") + ` < $3
		ORDER BY m.created_at, m.id
	`

	rows, err := r.db.Query(ctx, query, chatID, userID, below.Rank())
	if err != nil {
		r.log.Error("Failed to list pending receipts", "error", err, "chat_id", chatID, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Receipt
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (r *messageRepository) AdvanceReceipt(ctx context.Context, messageID, userID int64, status domain.MessageStatus, at time.Time) (*domain.Receipt, bool, error) {
	query := `
		UPDATE message_receipts SET status = $3, updated_at = $4
		WHERE message_id = $1 AND user_id = $2 AND ` + fmt.Sprintf(rankSQL, "status") + ` < $5
		RETURNING message_id, user_id, status, updated_at
	`

	rc, err := scanReceipt(r.db.QueryRow(ctx, query, messageID, userID, status, at, status.Rank()))
	if err == nil {
		return rc, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.log.Error("Failed to advance receipt", "error", err, "message_id", messageID, "user_id", userID)
		return nil, false, err
	}

	// Nothing updated: either already at or past status, or no such row.
	rc, err = r.GetReceipt(ctx, messageID, userID)
	if err != nil {
		return nil, false, err
	}
	return rc, false, nil
}

func (r *messageRepository) AdvanceStatus(ctx context.Context, messageID int64, status domain.MessageStatus) error {
	query := `UPDATE messages SET status = $2 WHERE id = $1 AND ` + fmt.Sprintf(rankSQL, "status") + ` < $3`

	if _, err := r.db.Exec(ctx, query, messageID, status, status.Rank()); err != nil {
		r.log.Error("Failed to advance message status", "error", err, "message_id", messageID)
		return err
	}
	return nil
}

func (r *messageRepository) CountUnread(ctx context.Context, chatID, userID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM message_receipts mr
		JOIN messages m ON m.id = mr.message_id
		WHERE m.chat_id = $1 AND mr.user_id = $2 AND mr.status <> 'read'
	`

	var n int
	if err := r.db.QueryRow(ctx, query, chatID, userID).Scan(&n); err != nil {
		r.log.Error("Failed to count unread", "error", err, "chat_id", chatID, "user_id", userID)
		return 0, err
	}
	return n, nil
}
