package service

import (
	"context"
	"testing"

	"gallan_chat/internal/config"
	"gallan_chat/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceFansOutToEveryChat(t *testing.T) {
	f := newFixture(t, config.DeliveryConnectivity)
	ctx := context.Background()
	a, b, c := f.user(t, "a"), f.user(t, "b"), f.user(t, "c")
	direct, err := f.chats.CreateDirectChat(ctx, a.ID, b.ID)
	require.NoError(t, err)
	group, err := f.chats.CreateGroupChat(ctx, c.ID, GroupChatInput{Name: "g", MemberIDs: []int64{a.ID}})
	require.NoError(t, err)

	require.NoError(t, f.presence.SetOnline(ctx, a.ID))
	u, err := f.repos.User.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, u.IsOnline)

	for _, chatID := range []int64{direct.ID, group.ID} {
		events := f.broadcaster.chatEvents(chatID, domain.EventPresenceChanged)
		require.Len(t, events, 1)
		p := events[0].Payload.(domain.PresencePayload)
		assert.Equal(t, a.ID, p.UserID)
		assert.True(t, p.IsOnline)
	}

	before := u.LastSeen
	require.NoError(t, f.presence.SetOffline(ctx, a.ID))
	u, err = f.repos.User.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, u.IsOnline)
	assert.True(t, u.LastSeen.After(before))

	events := f.broadcaster.chatEvents(direct.ID, domain.EventPresenceChanged)
	require.Len(t, events, 2)
	assert.False(t, events[1].Payload.(domain.PresencePayload).IsOnline)
}

func TestPresenceUnknownUser(t *testing.T) {
	f := newFixture(t, config.DeliveryConnectivity)
	assert.Error(t, f.presence.SetOnline(context.Background(), 42))
}
