package service

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/hiddenrole/mafia/internal/domain/entity"
	"github.com/hiddenrole/mafia/internal/pkg/config"
	"github.com/hiddenrole/mafia/internal/pkg/id"
)

// Engine is the per-room game engine: phase controller, action router, and
// the concurrency discipline that serializes every mutation of a Room (§5).
// Every exported method that reads or mutates a Room does so with the named
// room's lock held, so two operations on the same room never interleave;
// across rooms the server is fully parallel (one *sync.Mutex per room code).
type Engine struct {
	registry *RoomRegistry
	conns    *ConnectionRegistry
	emitter  Emitter
	store    ChatStore
	cfg      *config.Config
	logger   *slog.Logger

	locks sync.Map // room code -> *sync.Mutex

	// newRNG is overridable so tests can pin a seeded source (§4.2:
	// "optional seed"); production uses a fresh time-seeded generator
	// per role assignment.
	newRNG func() *rand.Rand
}

func NewEngine(registry *RoomRegistry, conns *ConnectionRegistry, emitter Emitter, store ChatStore, cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		registry: registry,
		conns:    conns,
		emitter:  emitter,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		newRNG:   func() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) },
	}
}

// SetRNGFactory lets tests pin deterministic role assignment.
func (e *Engine) SetRNGFactory(f func() *rand.Rand) {
	e.newRNG = f
}

func (e *Engine) lockFor(code string) *sync.Mutex {
	l, _ := e.locks.LoadOrStore(code, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// withRoom runs fn with the named room's lock held. Unknown rooms are
// reported via the not_found error kind (§7) by the caller.
func (e *Engine) withRoom(code string, fn func(r *entity.Room) error) error {
	lock := e.lockFor(code)
	lock.Lock()
	defer lock.Unlock()

	room, err := e.registry.Get(code)
	if err != nil {
		return err
	}
	return fn(room)
}

// runLocked is withRoom's fire-and-forget sibling, used by timer
// continuations which have nobody to report an error to.
func (e *Engine) runLocked(code string, fn func(r *entity.Room)) {
	lock := e.lockFor(code)
	lock.Lock()
	defer lock.Unlock()

	room, err := e.registry.Get(code)
	if err != nil {
		return
	}
	fn(room)
}

// ---- timer ownership (§4.3, §9) ----

func (e *Engine) cancelTimer(r *entity.Room) {
	if r.PhaseTimer != nil {
		r.PhaseTimer.Stop()
		r.PhaseTimer = nil
	}
	r.PhaseTimerSeq++
	r.PhaseDeadlineMS = 0
	r.PhaseDurationS = 0
}

// scheduleTimer installs the single cancellable deadline for the room's
// current phase. The continuation runs back inside the per-room lock and
// no-ops if the handle was superseded or cancelled in the meantime.
func (e *Engine) scheduleTimer(r *entity.Room, d time.Duration, continuation func(r *entity.Room)) {
	e.cancelTimer(r)
	seq := r.PhaseTimerSeq
	code := r.Code
	r.PhaseDeadlineMS = time.Now().Add(d).UnixMilli()
	r.PhaseDurationS = int(d.Seconds())
	r.PhaseTimer = time.AfterFunc(d, func() {
		e.runLocked(code, func(r2 *entity.Room) {
			if r2.PhaseTimerSeq != seq {
				return
			}
			continuation(r2)
		})
	})
}

func phasePayload(phase entity.Phase, message string, duration time.Duration) map[string]any {
	return map[string]any{
		"phase":    string(phase),
		"message":  message,
		"duration": int(duration.Seconds()),
		"start_ts": time.Now().UnixMilli(),
	}
}

// ---- room_state (§4.10, per-recipient role visibility per §9/§13) ----

func aliveRoleMembers(r *entity.Room, recipientID string) map[string][]string {
	view := make(map[string][]string)
	if !r.InGame {
		return view
	}
	if role, ok := r.AssignedRoles[recipientID]; ok && role != "" {
		view[string(role)] = append(view[string(role)], recipientID)
	}
	if r.AssignedRoles[recipientID] == entity.RoleKiller && r.IsAlive(recipientID) {
		for _, pid := range r.AlivePlayersWithRole(entity.RoleKiller) {
			if pid != recipientID {
				view[string(entity.RoleKiller)] = append(view[string(entity.RoleKiller)], pid)
			}
		}
	}
	for pid := range r.Eliminated {
		if role, ok := r.AssignedRoles[pid]; ok {
			view[string(role)] = append(view[string(role)], pid)
		}
	}
	return view
}

func roleCounts(r *entity.Room) map[string]int {
	if !r.InGame {
		return nil
	}
	counts := map[string]int{
		string(entity.RoleKiller):    r.Settings.KillerCount,
		string(entity.RoleDoctor):    r.Settings.DoctorCount,
		string(entity.RoleDetective): r.Settings.DetectiveCount,
	}
	civilians := len(r.PlayerOrder) - r.Settings.KillerCount - r.Settings.DoctorCount - r.Settings.DetectiveCount
	if civilians > 0 {
		counts[string(entity.RoleCivilian)] = civilians
	}
	return counts
}

func eliminatedIDs(r *entity.Room) []string {
	out := make([]string, 0, len(r.Eliminated))
	for id := range r.Eliminated {
		out = append(out, id)
	}
	return out
}

// emitRoomState fans room_state out per recipient so the alive_role_members
// view can be scoped instead of broadcast identically to everyone.
func (e *Engine) emitRoomState(r *entity.Room) {
	base := map[string]any{
		"players":    r.GetPlayersDTO(),
		"host_id":    r.HostID,
		"eliminated": eliminatedIDs(r),
		"role_counts": roleCounts(r),
	}
	for _, pid := range r.PlayerOrder {
		payload := make(map[string]any, len(base)+1)
		for k, v := range base {
			payload[k] = v
		}
		if r.InGame {
			payload["alive_role_members"] = aliveRoleMembers(r, pid)
		}
		for _, connID := range e.conns.ConnectionsOf(r.Code, pid) {
			e.emitter.PrivateToConnection(connID, EventRoomState, payload)
		}
	}
}

// ---- connection lifecycle (§4.1, §4.4 join_room/leave_room) ----

// CreateRoom registers a brand new room and returns its code.
func (e *Engine) CreateRoom() string {
	return e.registry.Create().Code
}

// JoinRoom attaches a connection to a room under a given player id. If the
// player id already has a pending removal timer (it reconnected inside the
// grace window), that timer is cancelled synchronously before anything
// else runs, per §9's "hold the registry lock across {attach, cancel
// pending}" note generalized to the per-room lock.
func (e *Engine) JoinRoom(connID, roomCode, playerID, name string) error {
	return e.withRoom(roomCode, func(r *entity.Room) error {
		if timer, ok := r.PendingRemovals[playerID]; ok {
			timer.Stop()
			delete(r.PendingRemovals, playerID)
		}

		_, existed := r.Players[playerID]
		if !existed {
			if r.InGame {
				e.emitter.PrivateToConnection(connID, EventJoinRejected, map[string]any{"reason": "game_in_progress"})
				return entity.ErrGameInProgress
			}
			if err := r.AddPlayer(entity.NewPlayer(playerID, name)); err != nil {
				e.emitter.PrivateToConnection(connID, EventJoinRejected, map[string]any{"reason": err.Error()})
				return err
			}
		}

		e.conns.Attach(connID, roomCode, playerID)
		if p := r.GetPlayer(playerID); p != nil {
			p.IsConnected = true
		}

		if !existed {
			e.emitter.BroadcastRoom(roomCode, EventPlayerJoined, map[string]any{"player": r.GetPlayer(playerID).ID, "name": name})
		}
		e.emitRoomState(r)
		return nil
	})
}

// LeaveRoom removes a player immediately, bypassing the reconnection grace
// window (§4.4 leave_room).
func (e *Engine) LeaveRoom(connID string) error {
	loc, ok := e.conns.LookupPlayer(connID)
	if !ok {
		return entity.ErrPlayerNotFound
	}
	return e.withRoom(loc.RoomCode, func(r *entity.Room) error {
		e.conns.Detach(connID)
		if timer, ok := r.PendingRemovals[loc.PlayerID]; ok {
			timer.Stop()
			delete(r.PendingRemovals, loc.PlayerID)
		}
		player, newHostID := r.RemovePlayer(loc.PlayerID)
		if player == nil {
			return entity.ErrPlayerNotFound
		}
		e.emitter.BroadcastRoom(loc.RoomCode, EventPlayerLeft, map[string]any{"player_id": loc.PlayerID, "new_host": newHostID})
		e.emitRoomState(r)
		e.maybeGarbageCollect(r)
		return nil
	})
}

// Disconnect handles a transport-level drop (ws close without an explicit
// leave_room). It starts the GRACE_SECONDS pending-removal timer once the
// player's last connection is gone.
func (e *Engine) Disconnect(connID string) {
	loc, _, ok := e.conns.Detach(connID)
	if !ok {
		return
	}
	_ = e.withRoom(loc.RoomCode, func(r *entity.Room) error {
		if p := r.GetPlayer(loc.PlayerID); p != nil && len(e.conns.ConnectionsOf(r.Code, loc.PlayerID)) == 0 {
			p.IsConnected = false
			code, playerID := r.Code, loc.PlayerID
			var timer *time.Timer
			timer = time.AfterFunc(time.Duration(e.cfg.ReconnectGraceS)*time.Second, func() {
				e.runLocked(code, func(r2 *entity.Room) {
					if r2.PendingRemovals[playerID] != timer {
						return
					}
					delete(r2.PendingRemovals, playerID)
					player, newHostID := r2.RemovePlayer(playerID)
					if player == nil {
						return
					}
					e.emitter.BroadcastRoom(code, EventPlayerLeft, map[string]any{"player_id": playerID, "new_host": newHostID})
					e.emitRoomState(r2)
					e.maybeGarbageCollect(r2)
				})
			})
			r.PendingRemovals[playerID] = timer
		}
		return nil
	})
}

// maybeGarbageCollect drops a room once it is empty with nothing pending
// (§3 Lifecycle).
func (e *Engine) maybeGarbageCollect(r *entity.Room) {
	if r.IsEmpty() && len(r.PendingRemovals) == 0 {
		e.conns.DropRoom(r.Code)
		e.registry.Delete(r.Code)
	}
}

// ---- lobby (§4.4 player_ready, set_settings) ----

func (e *Engine) SetReady(connID string, ready bool) error {
	loc, ok := e.conns.LookupPlayer(connID)
	if !ok {
		return entity.ErrPlayerNotFound
	}
	return e.withRoom(loc.RoomCode, func(r *entity.Room) error {
		if err := r.SetReady(loc.PlayerID, ready); err != nil {
			return err
		}
		e.emitter.BroadcastRoom(r.Code, EventReadyState, map[string]any{"player_id": loc.PlayerID, "ready": ready})
		if r.Phase == entity.PhaseWaiting && r.AllReady() {
			e.startGame(r)
		}
		return nil
	})
}

func (e *Engine) UpdateSettings(connID string, next entity.Settings) error {
	loc, ok := e.conns.LookupPlayer(connID)
	if !ok {
		return entity.ErrPlayerNotFound
	}
	return e.withRoom(loc.RoomCode, func(r *entity.Room) error {
		if !r.IsHost(loc.PlayerID) {
			e.emitter.PrivateToConnection(connID, EventSettingsRejected, map[string]any{"reason": "not_host"})
			return entity.ErrNotHost
		}
		if r.Phase != entity.PhaseWaiting {
			e.emitter.PrivateToConnection(connID, EventSettingsRejected, map[string]any{"reason": "game_in_progress"})
			return entity.ErrGameInProgress
		}
		if !r.Settings.NoDurationDecreased(next) {
			e.emitter.PrivateToConnection(connID, EventSettingsRejected, map[string]any{"reason": "duration_decrease"})
			return entity.ErrDurationDecrease
		}
		next.Normalize()
		r.Settings = next
		e.emitter.BroadcastRoom(r.Code, EventSettingsUpdated, r.Settings)
		return nil
	})
}

// ---- phase controller (§4.3) ----

// startGame assigns roles and begins the PreNight countdown. Called with
// the room's lock already held.
func (e *Engine) startGame(r *entity.Room) {
	roles := AssignRoles(r.PlayerOrder, r.Settings, e.newRNG())
	r.AssignRoles(roles)

	e.emitter.BroadcastRoom(r.Code, EventRolesAssigned, map[string]any{})
	for _, pid := range r.PlayerOrder {
		role := roles[pid]
		payload := map[string]any{"role": string(role), "team": string(role.Team())}
		e.emitter.PrivateToPlayer(r.Code, pid, EventYourRole, payload)
	}
	e.emitRoomState(r)
	e.startPreNight(r)
}

func (e *Engine) startPreNight(r *entity.Room) {
	r.Phase = entity.PhasePreNight
	d := time.Duration(e.cfg.PreNightCountdownS) * time.Second
	e.emitter.BroadcastRoom(r.Code, EventPrestart, phasePayload(r.Phase, "the game begins shortly", d))
	e.scheduleTimer(r, d, e.startNightStart)
}

func (e *Engine) startNightStart(r *entity.Room) {
	r.NextRound()
	r.Phase = entity.PhaseNightStart
	d := time.Duration(e.cfg.NightStartAnnounceS) * time.Second
	e.emitter.BroadcastRoom(r.Code, EventPhase, phasePayload(r.Phase, "close your eyes", d))
	e.scheduleTimer(r, d, e.startKiller)
}

func (e *Engine) startKiller(r *entity.Room) {
	r.Phase = entity.PhaseKiller
	d := time.Duration(r.Settings.KillerDurationS) * time.Second
	e.emitter.BroadcastSubRoom(r.KillerSubRoom, EventPhase, phasePayload(r.Phase, "killers choose a target", d))
	e.scheduleTimer(r, d, e.afterKiller)
}

func (e *Engine) afterKiller(r *entity.Room) {
	if len(r.AlivePlayersWithRole(entity.RoleDoctor)) > 0 {
		e.startDoctor(r)
		return
	}
	e.resolveNightPhase(r)
}

func (e *Engine) startDoctor(r *entity.Room) {
	r.Phase = entity.PhaseDoctor
	d := time.Duration(r.Settings.DoctorDurationS) * time.Second
	e.emitter.BroadcastSubRoom(r.DoctorSubRoom, EventPhase, phasePayload(r.Phase, "doctor chooses who to save", d))
	e.scheduleTimer(r, d, e.resolveNightPhase)
}

func (e *Engine) resolveNightPhase(r *entity.Room) {
	result := ResolveNight(r)

	payload := map[string]any{"outcome": string(result.Outcome)}
	switch result.Outcome {
	case NightOutcomeKilled:
		payload["victim_id"] = result.VictimID
		payload["victim_role"] = string(result.VictimRole)
	case NightOutcomeSaved:
		payload["victim_id"] = result.VictimID
		payload["saved_by"] = result.SavedBy
	}
	e.emitter.BroadcastRoom(r.Code, EventNightResult, payload)
	e.emitRoomState(r)

	e.startDayStart(r)
}

func (e *Engine) startDayStart(r *entity.Room) {
	r.Phase = entity.PhaseDayStart
	d := time.Duration(e.cfg.DayStartAnnounceS) * time.Second
	e.emitter.BroadcastRoom(r.Code, EventPhase, phasePayload(r.Phase, "open your eyes", d))
	e.scheduleTimer(r, d, e.showNightSummary)
}

// showNightSummary emits night_summary, then pauses before the win check
// runs, so "game over" never races ahead of clients learning who died
// (§9 "Game-over ordering").
func (e *Engine) showNightSummary(r *entity.Room) {
	e.emitter.BroadcastRoom(r.Code, EventNightSummary, map[string]any{
		"eliminated": eliminatedIDs(r),
		"alive":      r.AlivePlayerIDs(),
	})
	d := time.Duration(e.cfg.NightSummaryPauseS) * time.Second
	e.scheduleTimer(r, d, e.checkWinAfterNight)
}

func (e *Engine) checkWinAfterNight(r *entity.Room) {
	if e.evaluateWinAndMaybeEnd(r) {
		return
	}
	e.startDay(r)
}

func (e *Engine) startDay(r *entity.Room) {
	r.Phase = entity.PhaseDay
	d := time.Duration(r.Settings.DiscussionDurationS) * time.Second
	e.emitter.BroadcastRoom(r.Code, EventPhase, phasePayload(r.Phase, "discuss who to eliminate", d))
	e.scheduleTimer(r, d, e.startVoting)
}

func (e *Engine) startVoting(r *entity.Room) {
	r.Phase = entity.PhaseVoting
	d := time.Duration(r.Settings.VotingDurationS) * time.Second
	e.emitter.BroadcastRoom(r.Code, EventPhase, phasePayload(r.Phase, "cast your vote", d))
	e.scheduleTimer(r, d, e.resolveVotes)
}

func (e *Engine) resolveVotes(r *entity.Room) {
	result := AggregateVotes(r)
	payload := map[string]any{
		"result":     resultLabel(result),
		"reason":     string(result.Reason),
		"tallies":    result.Tallies,
		"skip_count": result.SkipCount,
		"top":        result.Top,
	}
	if result.Eliminated {
		payload["eliminated_id"] = result.EliminatedID
		payload["eliminated_role"] = string(result.EliminatedRole)
	}
	e.emitter.BroadcastRoom(r.Code, EventVoteResult, payload)
	e.emitRoomState(r)

	r.Phase = entity.PhasePostVote
	d := time.Duration(e.cfg.PostVotePauseS) * time.Second
	e.scheduleTimer(r, d, e.checkWinAfterVote)
}

func resultLabel(v VoteResult) string {
	if v.Eliminated {
		return "eliminated"
	}
	if v.Reason == VoteReasonNoVotes {
		return "no_votes"
	}
	return "no_elimination"
}

func (e *Engine) checkWinAfterVote(r *entity.Room) {
	if e.evaluateWinAndMaybeEnd(r) {
		return
	}
	e.startNightStart(r)
}

// evaluateWinAndMaybeEnd runs the win evaluator (§4.7) and, if the game is
// over, transitions to Ended. Returns true if the game ended.
func (e *Engine) evaluateWinAndMaybeEnd(r *entity.Room) bool {
	ended, winner, livingKillers := EvaluateWin(r)
	if !ended {
		return false
	}

	r.Phase = entity.PhaseEnded
	r.Winner = winner
	e.emitter.BroadcastRoom(r.Code, EventGameOver, map[string]any{
		"winner":         string(winner),
		"living_killers": livingKillers,
		"assigned_roles": r.AssignedRoles,
	})

	d := time.Duration(e.cfg.EndedDisplayS) * time.Second
	e.scheduleTimer(r, d, e.resetRoom)
	return true
}

func (e *Engine) resetRoom(r *entity.Room) {
	for _, timer := range r.PendingRemovals {
		timer.Stop()
	}
	r.PendingRemovals = make(map[string]*time.Timer)
	if e.store != nil {
		_ = e.store.DeleteRoom(r.Code, r.KillerSubRoom, r.DoctorSubRoom)
	}
	r.Reset()
	e.emitter.BroadcastRoom(r.Code, EventRoomReset, map[string]any{})
	e.emitRoomState(r)
}

// ---- action router (§4.4) ----

// RoomPlayers is a read-only accessor for the HTTP collaborator surface
// (§1): it takes the room's lock like any other engine operation so a
// concurrent phase transition can never be observed half-applied.
func (e *Engine) RoomPlayers(roomCode string) ([]entity.PlayerDTO, string, error) {
	var players []entity.PlayerDTO
	var hostID string
	err := e.withRoom(roomCode, func(r *entity.Room) error {
		players = r.GetPlayersDTO()
		hostID = r.HostID
		return nil
	})
	return players, hostID, err
}

func (e *Engine) blockAction(connID, reason string) error {
	e.emitter.PrivateToConnection(connID, EventActionBlocked, map[string]any{"reason": reason})
	return entity.ErrWrongPhase
}

func (e *Engine) SubmitKillerAction(connID, targetID string, skip bool) error {
	loc, ok := e.conns.LookupPlayer(connID)
	if !ok {
		return entity.ErrPlayerNotFound
	}
	return e.withRoom(loc.RoomCode, func(r *entity.Room) error {
		if r.Phase != entity.PhaseKiller {
			return e.blockAction(connID, "wrong_phase")
		}
		if r.AssignedRoles[loc.PlayerID] != entity.RoleKiller || !r.IsAlive(loc.PlayerID) {
			return e.blockAction(connID, "wrong_role_or_dead")
		}
		if r.ActionsRound.KillerActed {
			return e.blockAction(connID, "already_acted")
		}
		if !skip && targetID != "" {
			if !r.IsAlive(targetID) {
				return e.blockAction(connID, "invalid_target")
			}
			if r.AssignedRoles[targetID] == entity.RoleKiller {
				return e.blockAction(connID, "target_is_killer")
			}
		}

		r.NightKill = &entity.NightAction{ActorID: loc.PlayerID, TargetID: targetID, Skipped: skip}
		r.ActionsRound.KillerActed = true
		e.emitter.PrivateToConnection(connID, EventActionAccepted, map[string]any{"action": "killer_action"})

		e.cancelTimer(r)
		e.afterKiller(r)
		return nil
	})
}

func (e *Engine) SubmitDoctorAction(connID, targetID string, skip bool) error {
	loc, ok := e.conns.LookupPlayer(connID)
	if !ok {
		return entity.ErrPlayerNotFound
	}
	return e.withRoom(loc.RoomCode, func(r *entity.Room) error {
		if r.Phase != entity.PhaseDoctor {
			return e.blockAction(connID, "wrong_phase")
		}
		if r.AssignedRoles[loc.PlayerID] != entity.RoleDoctor || !r.IsAlive(loc.PlayerID) {
			return e.blockAction(connID, "wrong_role_or_dead")
		}
		if r.ActionsRound.DoctorActed {
			return e.blockAction(connID, "already_acted")
		}
		if !skip && targetID != "" && !r.IsAlive(targetID) {
			return e.blockAction(connID, "invalid_target")
		}

		r.DoctorSave = &entity.NightAction{ActorID: loc.PlayerID, TargetID: targetID, Skipped: skip}
		r.ActionsRound.DoctorActed = true
		e.emitter.PrivateToConnection(connID, EventActionAccepted, map[string]any{"action": "doctor_action"})

		e.cancelTimer(r)
		e.resolveNightPhase(r)
		return nil
	})
}

func (e *Engine) SubmitDetectiveAction(connID, targetID string) error {
	loc, ok := e.conns.LookupPlayer(connID)
	if !ok {
		return entity.ErrPlayerNotFound
	}
	return e.withRoom(loc.RoomCode, func(r *entity.Room) error {
		switch r.Phase {
		case entity.PhasePreNight, entity.PhaseNightStart, entity.PhaseKiller, entity.PhaseDoctor:
		default:
			return e.blockAction(connID, "wrong_phase")
		}
		if r.AssignedRoles[loc.PlayerID] != entity.RoleDetective || !r.IsAlive(loc.PlayerID) {
			return e.blockAction(connID, "wrong_role_or_dead")
		}
		if r.DetectiveUsed[loc.PlayerID] {
			return e.blockAction(connID, "already_used")
		}
		target := r.GetPlayer(targetID)
		if target == nil {
			return e.blockAction(connID, "invalid_target")
		}

		r.DetectiveUsed[loc.PlayerID] = true
		role := r.AssignedRoles[targetID]
		e.emitter.PrivateToConnection(connID, EventDetectiveResult, map[string]any{
			"target_id": targetID,
			"role":      string(role),
			"is_killer": role == entity.RoleKiller,
		})
		return nil
	})
}

func (e *Engine) CastVote(connID, targetID string, skip bool) error {
	loc, ok := e.conns.LookupPlayer(connID)
	if !ok {
		return entity.ErrPlayerNotFound
	}
	return e.withRoom(loc.RoomCode, func(r *entity.Room) error {
		if r.Phase != entity.PhaseVoting {
			return e.blockAction(connID, "wrong_phase")
		}
		if !r.IsAlive(loc.PlayerID) {
			return e.blockAction(connID, "dead")
		}
		if !skip && targetID != "" {
			if targetID == loc.PlayerID {
				return e.blockAction(connID, "invalid_target")
			}
			if !r.IsAlive(targetID) {
				return e.blockAction(connID, "invalid_target")
			}
			if r.AssignedRoles[loc.PlayerID] == entity.RoleKiller && r.AssignedRoles[targetID] == entity.RoleKiller {
				return e.blockAction(connID, "target_is_killer")
			}
		}

		if skip {
			r.Votes[loc.PlayerID] = ""
		} else {
			r.Votes[loc.PlayerID] = targetID
		}
		e.emitter.BroadcastRoom(r.Code, EventVoteCast, map[string]any{"voter_id": loc.PlayerID, "target_id": targetID, "skip": skip})

		if e.allAliveVoted(r) {
			e.cancelTimer(r)
			e.resolveVotes(r)
		}
		return nil
	})
}

func (e *Engine) allAliveVoted(r *entity.Room) bool {
	for _, pid := range r.AlivePlayerIDs() {
		if _, ok := r.Votes[pid]; !ok {
			return false
		}
	}
	return true
}

// TimeSync replies with the server clock so clients can reconcile local
// countdowns (§4.9, §5 Timeouts).
func (e *Engine) TimeSync(connID string) {
	e.emitter.PrivateToConnection(connID, EventTimeSyncResponse, map[string]any{"server_ts": time.Now().UnixMilli()})
}

// GetGameState replies privately with a room_state-equivalent snapshot plus
// the requester's own phase-scoped view (§12 supplemented feature).
func (e *Engine) GetGameState(connID string) error {
	loc, ok := e.conns.LookupPlayer(connID)
	if !ok {
		return entity.ErrPlayerNotFound
	}
	return e.withRoom(loc.RoomCode, func(r *entity.Room) error {
		payload := map[string]any{
			"players":           r.GetPlayersDTO(),
			"host_id":           r.HostID,
			"eliminated":        eliminatedIDs(r),
			"phase":             string(r.Phase),
			"round":             r.Round,
			"role_counts":       roleCounts(r),
			"phase_deadline_ms": r.PhaseDeadlineMS,
			"phase_duration_s":  r.PhaseDurationS,
		}
		if role, ok := r.AssignedRoles[loc.PlayerID]; ok {
			payload["my_role"] = string(role)
			payload["my_team"] = string(role.Team())
			payload["voted"] = r.Votes[loc.PlayerID]
		}
		e.emitter.PrivateToConnection(connID, EventGameStateUpdate, payload)
		return nil
	})
}

// ---- chat (§4.8) ----

func (e *Engine) SendMessage(connID, text string, scope ChatScope) error {
	loc, ok := e.conns.LookupPlayer(connID)
	if !ok {
		return entity.ErrPlayerNotFound
	}
	return e.withRoom(loc.RoomCode, func(r *entity.Room) error {
		if err := CheckChat(r, loc.PlayerID, scope); err != nil {
			e.emitter.PrivateToConnection(connID, EventChatBlocked, map[string]any{"reason": "blocked"})
			return err
		}

		sender := r.GetPlayer(loc.PlayerID)
		senderName := ""
		if sender != nil {
			senderName = sender.Name
		}
		msg := ChatMessage{
			ID:         id.Generate(),
			Room:       ChatStoreKey(r, scope),
			SenderID:   loc.PlayerID,
			SenderName: senderName,
			Text:       text,
			TS:         time.Now().UnixMilli(),
		}
		if e.store != nil {
			if err := e.store.SaveMessage(msg); err != nil {
				e.logger.Error("chat persistence failed", "room", r.Code, "error", err)
			}
		}

		payload := map[string]any{
			"id":          msg.ID,
			"sender_id":   msg.SenderID,
			"sender_name": msg.SenderName,
			"text":        msg.Text,
			"ts":          msg.TS,
			"scope":       string(scope),
		}
		switch scope {
		case ChatScopeKillers:
			e.emitter.BroadcastSubRoom(r.KillerSubRoom, EventNewMessage, payload)
		case ChatScopeDoctors:
			e.emitter.BroadcastSubRoom(r.DoctorSubRoom, EventNewMessage, payload)
		default:
			e.emitter.BroadcastRoom(r.Code, EventNewMessage, payload)
		}
		return nil
	})
}
