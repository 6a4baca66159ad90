package ws

import (
	"strings"

	"github.com/hiddenrole/mafia/internal/domain/entity"
	"github.com/hiddenrole/mafia/internal/domain/service"
)

// Emitter implements service.Emitter over the Hub, resolving addressed
// delivery (room, sub-room, connection, player) into connection sends. It is
// the transport-side half of the boundary described in events.go; the
// engine never imports this package.
type Emitter struct {
	hub   *Hub
	conns *service.ConnectionRegistry
	rooms *service.RoomRegistry
}

func NewEmitter(hub *Hub, conns *service.ConnectionRegistry, rooms *service.RoomRegistry) *Emitter {
	return &Emitter{hub: hub, conns: conns, rooms: rooms}
}

func (e *Emitter) BroadcastRoom(roomCode, eventType string, payload any) {
	e.hub.BroadcastToRoom(roomCode, MustMessage(eventType, payload), "")
}

// BroadcastSubRoom resolves a team-chat sub-room key (room code plus
// "__killers"/"__doctors", set once on entity.NewRoom) back to the players
// currently holding that role, then fans out to their live connections.
func (e *Emitter) BroadcastSubRoom(subRoom, eventType string, payload any) {
	roomCode, role, ok := splitSubRoom(subRoom)
	if !ok {
		return
	}
	room, err := e.rooms.Get(roomCode)
	if err != nil {
		return
	}
	msg := MustMessage(eventType, payload)
	for _, pid := range room.AlivePlayersWithRole(role) {
		e.hub.SendToConns(e.conns.ConnectionsOf(roomCode, pid), msg)
	}
}

func (e *Emitter) PrivateToConnection(connID, eventType string, payload any) {
	e.hub.SendToConn(connID, MustMessage(eventType, payload))
}

func (e *Emitter) PrivateToPlayer(roomCode, playerID, eventType string, payload any) {
	e.hub.SendToConns(e.conns.ConnectionsOf(roomCode, playerID), MustMessage(eventType, payload))
}

func splitSubRoom(subRoom string) (code string, role entity.Role, ok bool) {
	if strings.HasSuffix(subRoom, "__killers") {
		return strings.TrimSuffix(subRoom, "__killers"), entity.RoleKiller, true
	}
	if strings.HasSuffix(subRoom, "__doctors") {
		return strings.TrimSuffix(subRoom, "__doctors"), entity.RoleDoctor, true
	}
	return "", "", false
}
