package service

import (
	"log/slog"
	"sync"

	"github.com/hiddenrole/mafia/internal/domain/entity"
	"github.com/hiddenrole/mafia/internal/pkg/id"
)

// RoomRegistry maps room_code -> Room, creating and garbage-collecting
// rooms. It is one of the two process-wide shared mutables (§5); it never
// calls into a Room's per-room critical section while holding its own lock.
type RoomRegistry struct {
	mu     sync.RWMutex
	rooms  map[string]*entity.Room
	logger *slog.Logger
}

func NewRoomRegistry(logger *slog.Logger) *RoomRegistry {
	return &RoomRegistry{
		rooms:  make(map[string]*entity.Room),
		logger: logger,
	}
}

// Create generates a unique room code (retrying on collision, per §9) and
// registers a fresh room under it.
func (reg *RoomRegistry) Create() *entity.Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var code string
	for {
		code = id.GenerateRoomCode()
		if _, exists := reg.rooms[code]; !exists {
			break
		}
	}

	room := entity.NewRoom(code)
	reg.rooms[code] = room
	reg.logger.Info("room created", "room", code)
	return room
}

func (reg *RoomRegistry) Get(code string) (*entity.Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[code]
	if !ok {
		return nil, entity.ErrRoomNotFound
	}
	return room, nil
}

// Delete removes a room from the registry. Called once a room is confirmed
// empty with no pending reconnection-grace timers (§3 Lifecycle).
func (reg *RoomRegistry) Delete(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.rooms[code]; ok {
		delete(reg.rooms, code)
		reg.logger.Info("room garbage collected", "room", code)
	}
}

func (reg *RoomRegistry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
