package service

import (
	"math/rand"

	"github.com/hiddenrole/mafia/internal/domain/entity"
)

// AssignRoles builds a role multiset from settings (killers, then doctors,
// then detectives, then civilians to fill), shuffles it with rng, and zips
// it with players in insertion order. rng is caller-supplied so tests can
// pass a seeded source and get a deterministic assignment.
func AssignRoles(playerOrder []string, settings entity.Settings, rng *rand.Rand) map[string]entity.Role {
	n := len(playerOrder)
	roles := make([]entity.Role, 0, n)

	killers := min(settings.KillerCount, n)
	for i := 0; i < killers; i++ {
		roles = append(roles, entity.RoleKiller)
	}
	doctors := min(settings.DoctorCount, n-len(roles))
	for i := 0; i < doctors; i++ {
		roles = append(roles, entity.RoleDoctor)
	}
	detectives := min(settings.DetectiveCount, n-len(roles))
	for i := 0; i < detectives; i++ {
		roles = append(roles, entity.RoleDetective)
	}
	for len(roles) < n {
		roles = append(roles, entity.RoleCivilian)
	}

	rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	assigned := make(map[string]entity.Role, n)
	for i, playerID := range playerOrder {
		assigned[playerID] = roles[i]
	}
	return assigned
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
