package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hiddenrole/mafia/internal/domain/entity"
)

func TestCheckChat_DeadSenderAlwaysBlocked(t *testing.T) {
	r := newTestRoom(map[string]entity.Role{"a": entity.RoleCivilian})
	r.Eliminate("a")
	r.Phase = entity.PhaseDay

	require.ErrorIs(t, CheckChat(r, "a", ChatScopePublic), entity.ErrChatBlocked)
}

func TestCheckChat_PublicBlockedAtNight(t *testing.T) {
	r := newTestRoom(map[string]entity.Role{"a": entity.RoleCivilian})
	r.Phase = entity.PhaseKiller

	require.ErrorIs(t, CheckChat(r, "a", ChatScopePublic), entity.ErrChatBlocked)
}

func TestCheckChat_PublicAllowedDuringDay(t *testing.T) {
	r := newTestRoom(map[string]entity.Role{"a": entity.RoleCivilian})
	r.Phase = entity.PhaseDay

	require.NoError(t, CheckChat(r, "a", ChatScopePublic))
}

func TestCheckChat_KillerChatOnlyForKillersAtNight(t *testing.T) {
	r := newTestRoom(map[string]entity.Role{"k": entity.RoleKiller, "c": entity.RoleCivilian})
	r.Phase = entity.PhaseKiller

	require.NoError(t, CheckChat(r, "k", ChatScopeKillers))
	require.ErrorIs(t, CheckChat(r, "c", ChatScopeKillers), entity.ErrChatBlocked)
}

func TestCheckChat_KillerChatBlockedOutsideNight(t *testing.T) {
	r := newTestRoom(map[string]entity.Role{"k": entity.RoleKiller})
	r.Phase = entity.PhaseDay

	require.ErrorIs(t, CheckChat(r, "k", ChatScopeKillers), entity.ErrChatBlocked)
}

func TestChatStoreKey(t *testing.T) {
	r := newTestRoom(map[string]entity.Role{})

	require.Equal(t, r.Code, ChatStoreKey(r, ChatScopePublic))
	require.Equal(t, r.KillerSubRoom, ChatStoreKey(r, ChatScopeKillers))
	require.Equal(t, r.DoctorSubRoom, ChatStoreKey(r, ChatScopeDoctors))
}
