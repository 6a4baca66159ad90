package service

import "github.com/hiddenrole/mafia/internal/domain/entity"

// EvaluateWin implements §4.7. It must only be called after the relevant
// result (night_summary or vote_result) has already been displayed to
// clients — never immediately upon resolution — so "game over" never
// arrives before players know who died.
func EvaluateWin(r *entity.Room) (ended bool, winner entity.Team, livingKillers []string) {
	killers := r.AlivePlayersWithRole(entity.RoleKiller)
	alive := r.AlivePlayerIDs()
	others := len(alive) - len(killers)

	if len(killers) == 0 {
		return true, entity.TeamCivilians, nil
	}
	if len(killers) >= others {
		return true, entity.TeamKillers, killers
	}
	return false, "", nil
}
