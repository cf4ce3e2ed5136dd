// Package postgres is the pgx-backed storage backend.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"gallan_chat/internal/repository"
	apperrors "gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// rankSQL orders status values the same way domain.MessageStatus.Rank does.
const rankSQL = `CASE %s WHEN 'sent' THEN 1 WHEN 'delivered' THEN 2 WHEN 'read' THEN 3 ELSE 0 END`

func New(db *pgxpool.Pool, log logger.Logger) *repository.Repositories {
	log.Info("Using postgres storage backend")

	return &repository.Repositories{
		User:    &userRepository{db: db, log: log},
		Contact: &contactRepository{db: db, log: log},
		Chat:    &chatRepository{db: db, log: log},
		Message: &messageRepository{db: db, log: log},
	}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, what)
	}
	return err
}

// Code 23505 = unique_violation
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Code 23503 = foreign_key_violation
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
