package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"gallan_chat/internal/domain"
	"gallan_chat/internal/repository"
	apperrors "gallan_chat/pkg/errors"
	"gallan_chat/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	return New(pool, logger.NewNop())
}

func createUser(t *testing.T, repos *repository.Repositories, prefix string) *domain.User {
	t.Helper()
	now := time.Now()
	u := &domain.User{
		Username:     fmt.Sprintf("%s_%d", prefix, now.UnixNano()),
		PasswordHash: "x",
		DisplayName:  prefix,
		Status:       domain.DefaultUserStatus,
		LastSeen:     now,
		CreatedAt:    now,
	}
	require.NoError(t, repos.User.Create(context.Background(), u))
	return u
}

func TestPostgresDirectChatAndReceipts(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	a := createUser(t, repos, "a")
	b := createUser(t, repos, "b")

	err := repos.User.Create(ctx, &domain.User{Username: a.Username, PasswordHash: "x", DisplayName: "dup", CreatedAt: time.Now(), LastSeen: time.Now()})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	now := time.Now()
	chat := &domain.Chat{Kind: domain.ChatKindDirect, CreatedBy: a.ID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repos.Chat.CreateDirect(ctx, chat, a.ID, b.ID))

	dup := &domain.Chat{Kind: domain.ChatKindDirect, CreatedBy: b.ID, CreatedAt: now, UpdatedAt: now}
	assert.ErrorIs(t, repos.Chat.CreateDirect(ctx, dup, b.ID, a.ID), apperrors.ErrConflict)

	got, err := repos.Chat.GetDirect(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, got.ID)

	msg := &domain.Message{ChatID: chat.ID, SenderID: a.ID, Content: "hi", Type: domain.MessageTypeText, CreatedAt: now, Status: domain.StatusSent}
	require.NoError(t, repos.Message.Create(ctx, msg, []*domain.Receipt{{UserID: b.ID, Status: domain.StatusDelivered, UpdatedAt: now}}))
	assert.NotZero(t, msg.ID)

	rc, changed, err := repos.Message.AdvanceReceipt(ctx, msg.ID, b.ID, domain.StatusRead, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.StatusRead, rc.Status)

	_, changed, err = repos.Message.AdvanceReceipt(ctx, msg.ID, b.ID, domain.StatusDelivered, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, repos.Message.AdvanceStatus(ctx, msg.ID, domain.StatusRead))
	require.NoError(t, repos.Message.AdvanceStatus(ctx, msg.ID, domain.StatusDelivered))
	stored, err := repos.Message.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRead, stored.Status)

	unread, err := repos.Message.CountUnread(ctx, chat.ID, b.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}
