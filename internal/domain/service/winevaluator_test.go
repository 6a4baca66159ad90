package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hiddenrole/mafia/internal/domain/entity"
)

func TestEvaluateWin_NoKillersLeft(t *testing.T) {
	r := newTestRoom(map[string]entity.Role{"k": entity.RoleKiller, "c1": entity.RoleCivilian, "c2": entity.RoleCivilian})
	r.Eliminate("k")

	ended, winner, living := EvaluateWin(r)

	require.True(t, ended)
	require.Equal(t, entity.TeamCivilians, winner)
	require.Empty(t, living)
}

func TestEvaluateWin_KillersReachParity(t *testing.T) {
	r := newTestRoom(map[string]entity.Role{"k1": entity.RoleKiller, "k2": entity.RoleKiller, "c1": entity.RoleCivilian})
	r.Eliminate("c1")

	ended, winner, living := EvaluateWin(r)

	require.True(t, ended)
	require.Equal(t, entity.TeamKillers, winner)
	require.ElementsMatch(t, []string{"k1", "k2"}, living)
}

func TestEvaluateWin_GameContinues(t *testing.T) {
	r := newTestRoom(map[string]entity.Role{"k": entity.RoleKiller, "c1": entity.RoleCivilian, "c2": entity.RoleCivilian, "c3": entity.RoleCivilian})

	ended, _, _ := EvaluateWin(r)

	require.False(t, ended)
}
