package service

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hiddenrole/mafia/internal/domain/entity"
	"github.com/hiddenrole/mafia/internal/pkg/config"
	"github.com/hiddenrole/mafia/internal/pkg/logger"
)

// fakeEmitter records every send instead of delivering over a transport, so
// tests can assert on what the engine tried to broadcast.
type fakeEmitter struct {
	mu    sync.Mutex
	sends []fakeSend
}

type fakeSend struct {
	kind    string // "room", "subroom", "conn", "player"
	target  string
	event   string
	payload any
}

func (f *fakeEmitter) record(kind, target, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, fakeSend{kind: kind, target: target, event: event, payload: payload})
}

func (f *fakeEmitter) BroadcastRoom(roomCode, eventType string, payload any) {
	f.record("room", roomCode, eventType, payload)
}
func (f *fakeEmitter) BroadcastSubRoom(subRoom, eventType string, payload any) {
	f.record("subroom", subRoom, eventType, payload)
}
func (f *fakeEmitter) PrivateToConnection(connID, eventType string, payload any) {
	f.record("conn", connID, eventType, payload)
}
func (f *fakeEmitter) PrivateToPlayer(roomCode, playerID, eventType string, payload any) {
	f.record("player", roomCode+"/"+playerID, eventType, payload)
}

func (f *fakeEmitter) has(event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sends {
		if s.event == event {
			return true
		}
	}
	return false
}

// last returns the payload of the most recent send matching event, or nil.
func (f *fakeEmitter) last(event string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sends) - 1; i >= 0; i-- {
		if f.sends[i].event == event {
			return f.sends[i].payload
		}
	}
	return nil
}

func newTestEngine() (*Engine, *fakeEmitter) {
	emitter := &fakeEmitter{}
	cfg := config.Load()
	e := NewEngine(NewRoomRegistry(logger.New(true)), NewConnectionRegistry(), emitter, nil, cfg, logger.New(true))
	e.SetRNGFactory(func() *rand.Rand { return rand.New(rand.NewSource(1)) })
	return e, emitter
}

// ---- timer ownership (§4.3, §9) ----

func TestScheduleTimer_FiresContinuationAfterDelay(t *testing.T) {
	e, _ := newTestEngine()
	room := e.registry.Create()

	fired := make(chan struct{}, 1)
	e.scheduleTimer(room, 10*time.Millisecond, func(r *entity.Room) { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("continuation never fired")
	}
}

func TestScheduleTimer_CancelPreventsFire(t *testing.T) {
	e, _ := newTestEngine()
	room := e.registry.Create()

	fired := make(chan struct{}, 1)
	e.scheduleTimer(room, 20*time.Millisecond, func(r *entity.Room) { fired <- struct{}{} })
	e.cancelTimer(room)

	select {
	case <-fired:
		t.Fatal("cancelled continuation fired anyway")
	case <-time.After(60 * time.Millisecond):
	}
}

// Rescheduling before the first timer fires must supersede it: only the
// second continuation should run, even though both timers are in flight.
func TestScheduleTimer_RescheduleSupersedesPriorFire(t *testing.T) {
	e, _ := newTestEngine()
	room := e.registry.Create()

	var mu sync.Mutex
	var firedSeqs []int

	e.scheduleTimer(room, 10*time.Millisecond, func(r *entity.Room) {
		mu.Lock()
		firedSeqs = append(firedSeqs, 1)
		mu.Unlock()
	})
	e.scheduleTimer(room, 30*time.Millisecond, func(r *entity.Room) {
		mu.Lock()
		firedSeqs = append(firedSeqs, 2)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{2}, firedSeqs)
}

// ---- lobby + role assignment end to end ----

func TestEngine_JoinReadyStartsGame(t *testing.T) {
	e, emitter := newTestEngine()
	room := e.registry.Create()

	require.NoError(t, e.JoinRoom("conn1", room.Code, "p1", "Alice"))
	require.NoError(t, e.JoinRoom("conn2", room.Code, "p2", "Bob"))
	require.NoError(t, e.JoinRoom("conn3", room.Code, "p3", "Carol"))

	require.NoError(t, e.SetReady("conn1", true))
	require.NoError(t, e.SetReady("conn2", true))
	require.NoError(t, e.SetReady("conn3", true))

	got, err := e.registry.Get(room.Code)
	require.NoError(t, err)
	require.True(t, got.InGame)
	require.Len(t, got.AssignedRoles, 3)
	require.True(t, emitter.has(EventRolesAssigned))
	require.True(t, emitter.has(EventYourRole))
}

func TestEngine_UpdateSettingsRejectsDurationDecrease(t *testing.T) {
	e, emitter := newTestEngine()
	room := e.registry.Create()
	require.NoError(t, e.JoinRoom("conn1", room.Code, "p1", "Alice"))

	lowered := room.Settings
	lowered.KillerDurationS = room.Settings.KillerDurationS - 1

	err := e.UpdateSettings("conn1", lowered)

	require.ErrorIs(t, err, entity.ErrDurationDecrease)
	require.True(t, emitter.has(EventSettingsRejected))
}

func TestEngine_UpdateSettingsRejectsNonHost(t *testing.T) {
	e, _ := newTestEngine()
	room := e.registry.Create()
	require.NoError(t, e.JoinRoom("conn1", room.Code, "host", "Alice"))
	require.NoError(t, e.JoinRoom("conn2", room.Code, "guest", "Bob"))

	err := e.UpdateSettings("conn2", room.Settings)

	require.ErrorIs(t, err, entity.ErrNotHost)
}

// ---- reconnection grace window (§4.1, §9) ----

func TestEngine_DisconnectStartsGraceWindowThenRemoves(t *testing.T) {
	e, emitter := newTestEngine()
	e.cfg.ReconnectGraceS = 0 // fire as soon as the scheduler runs it
	room := e.registry.Create()
	require.NoError(t, e.JoinRoom("conn1", room.Code, "p1", "Alice"))
	// A second player keeps the room from being garbage collected once p1 goes.
	require.NoError(t, e.JoinRoom("conn2", room.Code, "p2", "Bob"))

	e.Disconnect("conn1")

	require.Eventually(t, func() bool {
		got, err := e.registry.Get(room.Code)
		if err != nil {
			return false
		}
		return got.GetPlayer("p1") == nil
	}, time.Second, 5*time.Millisecond)

	require.True(t, emitter.has(EventPlayerLeft))
}

func TestEngine_ReconnectWithinGraceCancelsRemoval(t *testing.T) {
	e, _ := newTestEngine()
	e.cfg.ReconnectGraceS = 5
	room := e.registry.Create()
	require.NoError(t, e.JoinRoom("conn1", room.Code, "p1", "Alice"))

	e.Disconnect("conn1")
	require.NoError(t, e.JoinRoom("conn2", room.Code, "p1", "Alice"))

	got, err := e.registry.Get(room.Code)
	require.NoError(t, err)
	require.NotNil(t, got.GetPlayer("p1"))
	require.Empty(t, got.PendingRemovals)
}

// ---- vote early-completion (§4.6) ----

func TestEngine_CastVote_AllAliveVotedResolvesEarly(t *testing.T) {
	e, emitter := newTestEngine()
	room := e.registry.Create()
	require.NoError(t, e.JoinRoom("conn1", room.Code, "p1", "Alice"))
	require.NoError(t, e.JoinRoom("conn2", room.Code, "p2", "Bob"))

	_ = e.withRoom(room.Code, func(r *entity.Room) error {
		r.InGame = true
		r.Phase = entity.PhaseVoting
		r.AssignedRoles = map[string]entity.Role{"p1": entity.RoleCivilian, "p2": entity.RoleCivilian}
		return nil
	})

	require.NoError(t, e.CastVote("conn1", "p2", false))
	require.NoError(t, e.CastVote("conn2", "p1", false))

	require.True(t, emitter.has(EventVoteResult))
}

// ---- reconnect resync (§12 supplemented feature) ----

func TestEngine_GetGameState_IncludesPhaseDeadline(t *testing.T) {
	e, emitter := newTestEngine()
	room := e.registry.Create()
	require.NoError(t, e.JoinRoom("conn1", room.Code, "p1", "Alice"))

	_ = e.withRoom(room.Code, func(r *entity.Room) error {
		r.InGame = true
		r.Phase = entity.PhaseVoting
		e.scheduleTimer(r, 5*time.Second, func(r *entity.Room) {})
		return nil
	})

	require.NoError(t, e.GetGameState("conn1"))

	payload, ok := emitter.last(EventGameStateUpdate).(map[string]any)
	require.True(t, ok)
	require.Equal(t, 5, payload["phase_duration_s"])
	require.Greater(t, payload["phase_deadline_ms"].(int64), time.Now().UnixMilli())
}

func TestEngine_CastVote_RejectsSelfVote(t *testing.T) {
	e, emitter := newTestEngine()
	room := e.registry.Create()
	require.NoError(t, e.JoinRoom("conn1", room.Code, "p1", "Alice"))
	require.NoError(t, e.JoinRoom("conn2", room.Code, "p2", "Bob"))

	_ = e.withRoom(room.Code, func(r *entity.Room) error {
		r.InGame = true
		r.Phase = entity.PhaseVoting
		r.AssignedRoles = map[string]entity.Role{"p1": entity.RoleCivilian, "p2": entity.RoleCivilian}
		return nil
	})

	require.Error(t, e.CastVote("conn1", "p1", false))

	require.True(t, emitter.has(EventActionBlocked))
	got, err := e.registry.Get(room.Code)
	require.NoError(t, err)
	require.Empty(t, got.Votes["p1"], "self-vote must not be recorded")
}
