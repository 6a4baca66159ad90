package service

import "github.com/hiddenrole/mafia/internal/domain/entity"

// NightOutcome is the result of resolving one round's recorded night actions.
type NightOutcome string

const (
	NightOutcomeNone   NightOutcome = "none"
	NightOutcomeSaved  NightOutcome = "saved"
	NightOutcomeKilled NightOutcome = "killed"
)

// NightResult carries the resolved outcome plus the fields needed for the
// night_result emission.
type NightResult struct {
	Outcome    NightOutcome
	VictimID   string
	VictimRole entity.Role // revealed only when Outcome == killed
	SavedBy    string      // doctor id, revealed only when Outcome == saved
}

// ResolveNight applies night_kill and doctor_save in the fixed precedence of
// §4.5: a stale save — one whose actor is no longer an alive Doctor — does
// not protect, even if it targeted the same player as the kill.
func ResolveNight(r *entity.Room) NightResult {
	kill := r.NightKill
	if kill == nil || kill.Skipped || kill.TargetID == "" {
		return NightResult{Outcome: NightOutcomeNone}
	}

	save := r.DoctorSave
	saveValid := save != nil &&
		!save.Skipped &&
		r.AssignedRoles[save.ActorID] == entity.RoleDoctor &&
		r.IsAlive(save.ActorID)

	if saveValid && save.TargetID == kill.TargetID {
		return NightResult{Outcome: NightOutcomeSaved, VictimID: kill.TargetID, SavedBy: save.ActorID}
	}

	role := r.AssignedRoles[kill.TargetID]
	r.Eliminate(kill.TargetID)
	return NightResult{Outcome: NightOutcomeKilled, VictimID: kill.TargetID, VictimRole: role}
}
