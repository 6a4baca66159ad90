package service

import "github.com/hiddenrole/mafia/internal/domain/entity"

// VoteReason names why no elimination happened, when applicable.
type VoteReason string

const (
	VoteReasonNone          VoteReason = ""
	VoteReasonNoVotes       VoteReason = "no_votes"
	VoteReasonTie           VoteReason = "tie"
	VoteReasonSkipsMajority VoteReason = "skips_majority"
)

// VoteResult is the outcome of tallying one round's ballots.
type VoteResult struct {
	EliminatedID   string
	EliminatedRole entity.Role
	Eliminated     bool
	Reason         VoteReason
	Tallies        map[string]int // target_id -> vote count
	SkipCount      int
	Top            []string // ids tied for max_votes, for the wire payload
}

// AggregateVotes implements §4.6: partition into skips and tallies, compare
// the skip count against the max tally before looking at the top set, so a
// skip majority blocks elimination even when one candidate has a plurality.
func AggregateVotes(r *entity.Room) VoteResult {
	tallies := make(map[string]int)
	skipCount := 0

	for voterID, targetID := range r.Votes {
		if !r.IsAlive(voterID) {
			continue
		}
		if targetID == "" {
			skipCount++
			continue
		}
		tallies[targetID]++
	}

	if len(tallies) == 0 {
		return VoteResult{Reason: VoteReasonNoVotes, Tallies: tallies, SkipCount: skipCount}
	}

	maxVotes := 0
	for _, count := range tallies {
		if count > maxVotes {
			maxVotes = count
		}
	}
	top := make([]string, 0, 1)
	for id, count := range tallies {
		if count == maxVotes {
			top = append(top, id)
		}
	}

	if skipCount >= maxVotes {
		return VoteResult{Reason: VoteReasonSkipsMajority, Tallies: tallies, SkipCount: skipCount, Top: top}
	}
	if len(top) != 1 {
		return VoteResult{Reason: VoteReasonTie, Tallies: tallies, SkipCount: skipCount, Top: top}
	}

	target := top[0]
	role := r.AssignedRoles[target]
	r.Eliminate(target)
	return VoteResult{
		EliminatedID:   target,
		EliminatedRole: role,
		Eliminated:     true,
		Tallies:        tallies,
		SkipCount:      skipCount,
		Top:            top,
	}
}
