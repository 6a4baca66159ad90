package service

import "sync"

// connLocation is where a connection is currently attached.
type connLocation struct {
	RoomCode string
	PlayerID string
}

// ConnectionRegistry is pure transport bookkeeping: connection_id <->
// (room_code, player_id), plus the per-room, per-player set of connection
// ids needed for multi-tab support. It owns no game state and takes no
// per-room lock of its own; the reconnection-grace timer itself lives on
// entity.Room.PendingRemovals and is scheduled/cancelled by the Engine
// inside the room's critical section, per §5's note that the registry
// "never call[s] into a Room's serializer while holding its own lock."
type ConnectionRegistry struct {
	mu        sync.Mutex
	byConn    map[string]connLocation
	byPlayer  map[string]map[string]map[string]bool // room -> player -> set<connID>
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		byConn:   make(map[string]connLocation),
		byPlayer: make(map[string]map[string]map[string]bool),
	}
}

// Attach records a new connection for (roomCode, playerID). Returns the
// number of connections the player now has, so the caller can decide
// whether to cancel a pending removal.
func (c *ConnectionRegistry) Attach(connID, roomCode, playerID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byConn[connID] = connLocation{RoomCode: roomCode, PlayerID: playerID}

	players, ok := c.byPlayer[roomCode]
	if !ok {
		players = make(map[string]map[string]bool)
		c.byPlayer[roomCode] = players
	}
	conns, ok := players[playerID]
	if !ok {
		conns = make(map[string]bool)
		players[playerID] = conns
	}
	conns[connID] = true
	return len(conns)
}

// Detach removes a connection. Returns the location it was attached to and
// the number of remaining connections for that player (0 means the caller
// should start the reconnection grace window).
func (c *ConnectionRegistry) Detach(connID string) (loc connLocation, remaining int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	loc, ok = c.byConn[connID]
	if !ok {
		return connLocation{}, 0, false
	}
	delete(c.byConn, connID)

	if players, ok := c.byPlayer[loc.RoomCode]; ok {
		if conns, ok := players[loc.PlayerID]; ok {
			delete(conns, connID)
			remaining = len(conns)
			if remaining == 0 {
				delete(players, loc.PlayerID)
			}
		}
		if len(players) == 0 {
			delete(c.byPlayer, loc.RoomCode)
		}
	}
	return loc, remaining, true
}

func (c *ConnectionRegistry) LookupPlayer(connID string) (connLocation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	loc, ok := c.byConn[connID]
	return loc, ok
}

// ConnectionsOf returns the connection ids currently attached for a player.
func (c *ConnectionRegistry) ConnectionsOf(roomCode, playerID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	players, ok := c.byPlayer[roomCode]
	if !ok {
		return nil
	}
	conns, ok := players[playerID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(conns))
	for id := range conns {
		out = append(out, id)
	}
	return out
}

// DropRoom discards all bookkeeping for a room (used on reset/GC).
func (c *ConnectionRegistry) DropRoom(roomCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byPlayer, roomCode)
}
