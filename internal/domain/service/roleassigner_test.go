package service

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hiddenrole/mafia/internal/domain/entity"
)

func TestAssignRoles_CoversRosterExactlyOnce(t *testing.T) {
	players := []string{"p1", "p2", "p3", "p4", "p5"}
	settings := entity.Settings{KillerCount: 1, DoctorCount: 1, DetectiveCount: 1}

	roles := AssignRoles(players, settings, rand.New(rand.NewSource(1)))

	require.Len(t, roles, len(players))
	counts := map[entity.Role]int{}
	for _, p := range players {
		role, ok := roles[p]
		require.True(t, ok)
		counts[role]++
	}
	require.Equal(t, 1, counts[entity.RoleKiller])
	require.Equal(t, 1, counts[entity.RoleDoctor])
	require.Equal(t, 1, counts[entity.RoleDetective])
	require.Equal(t, 2, counts[entity.RoleCivilian])
}

func TestAssignRoles_DeterministicUnderSeed(t *testing.T) {
	players := []string{"p1", "p2", "p3", "p4"}
	settings := entity.Settings{KillerCount: 1, DoctorCount: 1}

	a := AssignRoles(players, settings, rand.New(rand.NewSource(42)))
	b := AssignRoles(players, settings, rand.New(rand.NewSource(42)))

	require.Equal(t, a, b)
}

func TestAssignRoles_CapacityClampedToRosterSize(t *testing.T) {
	players := []string{"p1", "p2"}
	settings := entity.Settings{KillerCount: 5, DoctorCount: 5, DetectiveCount: 5}

	roles := AssignRoles(players, settings, rand.New(rand.NewSource(7)))

	require.Len(t, roles, 2)
	killers := 0
	for _, role := range roles {
		if role == entity.RoleKiller {
			killers++
		}
	}
	require.Equal(t, 2, killers)
}
