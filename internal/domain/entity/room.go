package entity

import "time"

// Phase is a named state of the per-room game state machine.
type Phase string

const (
	PhaseWaiting    Phase = "Waiting"
	PhasePreNight   Phase = "PreNight"
	PhaseNightStart Phase = "NightStart"
	PhaseKiller     Phase = "Killer"
	PhaseDoctor     Phase = "Doctor"
	PhaseDayStart   Phase = "DayStart"
	PhaseDay        Phase = "Day"
	PhaseVoting     Phase = "Voting"
	PhasePostVote   Phase = "PostVote"
	PhaseEnded      Phase = "Ended"
)

// NightAction records a single killer/doctor submission for the round.
// TargetID is empty when Skipped is true or when no target was chosen.
type NightAction struct {
	TargetID string
	ActorID  string
	Skipped  bool
}

// ActionsRound tracks per-round idempotence: at most one killer action and
// one doctor action may be recorded per round (invariant 5).
type ActionsRound struct {
	KillerActed bool
	DoctorActed bool
}

// Room is the full state of one game instance, keyed by its room code.
// Room itself performs no locking: every mutation is expected to run inside
// the caller's per-room critical section (see service.Engine), so that
// multi-step transactions (record action + cancel timer + transition) are
// atomic from an observer's point of view.
type Room struct {
	Code string

	Players     map[string]*Player
	PlayerOrder []string // insertion order, preserved for host promotion and display
	HostID      string

	Phase    Phase
	Settings Settings

	Eliminated    map[string]bool
	AssignedRoles map[string]Role
	Ready         map[string]bool

	NightKill     *NightAction
	DoctorSave    *NightAction
	DetectiveUsed map[string]bool

	Votes        map[string]string // voter_id -> target_id ("" = abstain)
	ActionsRound ActionsRound

	KillerSubRoom string
	DoctorSubRoom string

	InGame bool
	Round  int
	Winner Team

	// PendingRemovals holds the reconnection-grace timer for a player whose
	// last connection just dropped. Single-owner, cancelled synchronously by
	// the engine's join path (inside the room's lock) on a matching re-join.
	PendingRemovals map[string]*time.Timer

	// PhaseTimer is the single cancellable handle for the room's current
	// phase deadline. PhaseTimerSeq guards against a fire racing a cancel:
	// every scheduling bumps the sequence, and a fired timer's continuation
	// checks its captured sequence against the room's before acting.
	PhaseTimer    *time.Timer
	PhaseTimerSeq int

	// PhaseDeadlineMS and PhaseDurationS describe the current phase's
	// countdown so a reconnecting client can resync it via game_state_update
	// without needing the original phase-start broadcast.
	PhaseDeadlineMS int64
	PhaseDurationS  int
}

// NewRoom creates an empty room in Waiting with default settings.
func NewRoom(code string) *Room {
	return &Room{
		Code:            code,
		Players:         make(map[string]*Player),
		PlayerOrder:     make([]string, 0),
		Phase:           PhaseWaiting,
		Settings:        DefaultSettings(),
		Eliminated:      make(map[string]bool),
		AssignedRoles:   make(map[string]Role),
		Ready:           make(map[string]bool),
		DetectiveUsed:   make(map[string]bool),
		Votes:           make(map[string]string),
		KillerSubRoom:   code + "__killers",
		DoctorSubRoom:   code + "__doctors",
		PendingRemovals: make(map[string]*time.Timer),
	}
}

// AddPlayer appends a player to the roster. Rejects duplicate names and
// joins while in_game (invariant 3); the first joiner becomes host.
func (r *Room) AddPlayer(p *Player) error {
	if r.InGame {
		return ErrGameInProgress
	}
	for _, id := range r.PlayerOrder {
		if existing := r.Players[id]; existing != nil && existing.Name == p.Name {
			return ErrNicknameInUse
		}
	}
	if _, ok := r.Players[p.ID]; ok {
		return nil
	}
	r.Players[p.ID] = p
	r.PlayerOrder = append(r.PlayerOrder, p.ID)
	if r.HostID == "" {
		r.HostID = p.ID
	}
	return nil
}

// RemovePlayer drops a player entirely (used by leave_room, which bypasses
// the reconnection grace window, and by the grace timer's expiry path).
// Returns the removed player and, if a new host was promoted, its id.
func (r *Room) RemovePlayer(playerID string) (*Player, string) {
	player, ok := r.Players[playerID]
	if !ok {
		return nil, ""
	}
	delete(r.Players, playerID)
	delete(r.Ready, playerID)
	delete(r.AssignedRoles, playerID)
	delete(r.Eliminated, playerID)
	delete(r.Votes, playerID)
	delete(r.DetectiveUsed, playerID)
	for i, id := range r.PlayerOrder {
		if id == playerID {
			r.PlayerOrder = append(r.PlayerOrder[:i], r.PlayerOrder[i+1:]...)
			break
		}
	}

	var newHostID string
	if r.HostID == playerID {
		if len(r.PlayerOrder) > 0 {
			newHostID = r.PlayerOrder[0]
			r.HostID = newHostID
		} else {
			r.HostID = ""
		}
	}
	return player, newHostID
}

func (r *Room) GetPlayer(playerID string) *Player {
	return r.Players[playerID]
}

func (r *Room) IsHost(playerID string) bool {
	return r.HostID != "" && r.HostID == playerID
}

func (r *Room) PlayerCount() int {
	return len(r.Players)
}

func (r *Room) IsEmpty() bool {
	return len(r.Players) == 0
}

// IsAlive reports whether a roster member has not been eliminated.
// Players that left the roster are, by definition, not alive either.
func (r *Room) IsAlive(playerID string) bool {
	if _, ok := r.Players[playerID]; !ok {
		return false
	}
	return !r.Eliminated[playerID]
}

// Eliminate adds a player to the eliminated set (invariant 1 keeps this a
// subset of the roster by construction: callers only ever pass roster ids).
func (r *Room) Eliminate(playerID string) {
	r.Eliminated[playerID] = true
}

// AlivePlayerIDs returns alive roster members in insertion order.
func (r *Room) AlivePlayerIDs() []string {
	alive := make([]string, 0, len(r.PlayerOrder))
	for _, id := range r.PlayerOrder {
		if r.IsAlive(id) {
			alive = append(alive, id)
		}
	}
	return alive
}

// AlivePlayersWithRole returns alive roster members holding the given role.
func (r *Room) AlivePlayersWithRole(role Role) []string {
	out := make([]string, 0)
	for _, id := range r.AlivePlayerIDs() {
		if r.AssignedRoles[id] == role {
			out = append(out, id)
		}
	}
	return out
}

// SetReady marks (or unmarks) a roster member as ready in the lobby.
func (r *Room) SetReady(playerID string, ready bool) error {
	if _, ok := r.Players[playerID]; !ok {
		return ErrPlayerNotFound
	}
	if ready {
		r.Ready[playerID] = true
	} else {
		delete(r.Ready, playerID)
	}
	return nil
}

// AllReady reports whether every roster member is ready and the roster is
// non-empty (§4.4 player_ready: "every player in roster is ready and
// |roster| >= 1").
func (r *Room) AllReady() bool {
	if len(r.PlayerOrder) == 0 {
		return false
	}
	for _, id := range r.PlayerOrder {
		if !r.Ready[id] {
			return false
		}
	}
	return true
}

// GetPlayersDTO returns the roster in insertion order for wire transmission.
func (r *Room) GetPlayersDTO() []PlayerDTO {
	players := make([]PlayerDTO, 0, len(r.PlayerOrder))
	for _, id := range r.PlayerOrder {
		p, ok := r.Players[id]
		if !ok {
			continue
		}
		players = append(players, PlayerDTO{
			ID:          p.ID,
			Name:        p.Name,
			IsHost:      r.IsHost(p.ID),
			IsReady:     r.Ready[p.ID],
			IsConnected: p.IsConnected,
			Alive:       r.IsAlive(p.ID),
		})
	}
	return players
}

// AssignRoles installs a completed role assignment and enters the game
// (invariant 2: assigned_roles must cover every roster member exactly once,
// enforced by the role assigner before this is called).
func (r *Room) AssignRoles(roles map[string]Role) {
	r.AssignedRoles = roles
	r.InGame = true
	r.Round = 0
}

// NextRound resets per-round trackers ahead of a new Night phase.
func (r *Room) NextRound() {
	r.Round++
	r.NightKill = nil
	r.DoctorSave = nil
	r.Votes = make(map[string]string)
	r.ActionsRound = ActionsRound{}
}

// Reset clears all in-game state and returns the room to Waiting, keeping
// the roster and settings (so the same room code can be reused).
func (r *Room) Reset() {
	r.Phase = PhaseWaiting
	r.Eliminated = make(map[string]bool)
	r.AssignedRoles = make(map[string]Role)
	r.Ready = make(map[string]bool)
	r.NightKill = nil
	r.DoctorSave = nil
	r.DetectiveUsed = make(map[string]bool)
	r.Votes = make(map[string]string)
	r.ActionsRound = ActionsRound{}
	r.InGame = false
	r.Round = 0
	r.Winner = ""
}
