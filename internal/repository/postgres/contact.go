package postgres

import (
	"context"
	"fmt"

	"gallan_chat/internal/domain"
	apperrors "gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type contactRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func (r *contactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	query := `
		INSERT INTO contacts (owner_user_id, contact_user_id, display_name,
			is_scholar, is_blocked, is_starred, is_archived, is_muted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	f := contact.Flags
	err := r.db.QueryRow(ctx, query,
		contact.OwnerUserID, contact.ContactUserID, contact.DisplayName,
		f.Scholar, f.Blocked, f.Starred, f.Archived, f.Muted, contact.CreatedAt,
	).Scan(&contact.ID)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("%w: contact already exists", apperrors.ErrConflict)
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: user %d", apperrors.ErrNotFound, contact.ContactUserID)
		}
		r.log.Error("Failed to create contact", "error", err, "owner_id", contact.OwnerUserID)
		return err
	}
	return nil
}

func (r *contactRepository) Get(ctx context.Context, ownerID, contactUserID int64) (*domain.Contact, error) {
	query := `
		SELECT id, owner_user_id, contact_user_id, display_name,
			is_scholar, is_blocked, is_starred, is_archived, is_muted, created_at
		FROM contacts
		WHERE owner_user_id = $1 AND contact_user_id = $2
	`

	c := &domain.Contact{}
	err := r.db.QueryRow(ctx, query, ownerID, contactUserID).Scan(
		&c.ID, &c.OwnerUserID, &c.ContactUserID, &c.DisplayName,
		&c.Flags.Scholar, &c.Flags.Blocked, &c.Flags.Starred, &c.Flags.Archived, &c.Flags.Muted, &c.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("contact %d", contactUserID))
	}
	return c, nil
}

func (r *contactRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.ContactView, error) {
	query := `
		SELECT c.id, c.owner_user_id, c.contact_user_id, c.display_name,
			c.is_scholar, c.is_blocked, c.is_starred, c.is_archived, c.is_muted, c.created_at,
			u.username, u.status, u.avatar_url, u.is_online, u.last_seen
		FROM contacts c
		JOIN users u ON u.id = c.contact_user_id
		WHERE c.owner_user_id = $1
		ORDER BY c.display_name
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		r.log.Error("Failed to list contacts", "error", err, "owner_id", ownerID)
		return nil, err
	}
	defer rows.Close()

	var views []*domain.ContactView
	for rows.Next() {
		v := &domain.ContactView{}
		err := rows.Scan(
			&v.ID, &v.OwnerUserID, &v.ContactUserID, &v.DisplayName,
			&v.Flags.Scholar, &v.Flags.Blocked, &v.Flags.Starred, &v.Flags.Archived, &v.Flags.Muted, &v.CreatedAt,
			&v.Username, &v.Status, &v.AvatarURL, &v.IsOnline, &v.LastSeen,
		)
		if err != nil {
			r.log.Error("Failed to scan contact", "error", err)
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (r *contactRepository) Update(ctx context.Context, contact *domain.Contact) error {
	query := `
		UPDATE contacts
		SET display_name = $3, is_scholar = $4, is_blocked = $5, is_starred = $6, is_archived = $7, is_muted = $8
		WHERE owner_user_id = $1 AND contact_user_id = $2
	`

	f := contact.Flags
	tag, err := r.db.Exec(ctx, query, contact.OwnerUserID, contact.ContactUserID, contact.DisplayName,
		f.Scholar, f.Blocked, f.Starred, f.Archived, f.Muted)
	if err != nil {
		r.log.Error("Failed to update contact", "error", err, "owner_id", contact.OwnerUserID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: contact %d", apperrors.ErrNotFound, contact.ContactUserID)
	}
	return nil
}
