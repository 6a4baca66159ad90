package ws

import (
	"encoding/json"
	"log/slog"

	"github.com/hiddenrole/mafia/internal/domain/entity"
	"github.com/hiddenrole/mafia/internal/domain/service"
	"github.com/hiddenrole/mafia/internal/pkg/id"
)

// Router dispatches inbound messages to the engine and keeps the hub's room
// membership in sync with join_room/leave_room/disconnect so BroadcastRoom
// reaches the right connections (§4.4, §5).
type Router struct {
	hub    *Hub
	engine *service.Engine
	logger *slog.Logger
}

func NewRouter(hub *Hub, engine *service.Engine, logger *slog.Logger) *Router {
	return &Router{hub: hub, engine: engine, logger: logger}
}

// HandleMessage routes an incoming message to the matching engine call.
func (r *Router) HandleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case MsgJoinRoom:
		r.handleJoinRoom(client, msg)
	case MsgLeaveRoom:
		r.handleLeaveRoom(client)
	case MsgPlayerReady:
		r.handlePlayerReady(client, msg)
	case MsgSetSettings:
		r.handleSetSettings(client, msg)
	case MsgKillerAction:
		r.handleKillerAction(client, msg)
	case MsgDoctorAction:
		r.handleDoctorAction(client, msg)
	case MsgDetectiveAction:
		r.handleDetectiveAction(client, msg)
	case MsgCastVote:
		r.handleCastVote(client, msg)
	case MsgSendMessage:
		r.handleSendMessage(client, msg)
	case MsgTimeSync:
		r.engine.TimeSync(client.ConnID)
	case MsgGetGameState:
		r.handleErr(client, r.engine.GetGameState(client.ConnID))
	default:
		client.SendError("unknown_message", "unknown message type: "+msg.Type)
	}
}

// HandleDisconnect is the client's onDisconnect callback: it detaches the
// transport side immediately and starts the engine's reconnection-grace
// window for the player side.
func (r *Router) HandleDisconnect(client *Client) {
	r.hub.LeaveRoom(client)
	r.engine.Disconnect(client.ConnID)
}

func (r *Router) handleErr(client *Client, err error) {
	if err == nil {
		return
	}
	r.logger.Debug("action rejected", "conn_id", client.ConnID, "error", err)
	client.SendError("rejected", err.Error())
}

func (r *Router) handleJoinRoom(client *Client, msg *Message) {
	var payload JoinRoomPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		client.SendError("invalid_payload", "join_room: "+err.Error())
		return
	}
	playerID := payload.PlayerID
	if playerID == "" {
		playerID = id.Generate()
	}
	if err := r.engine.JoinRoom(client.ConnID, payload.RoomCode, playerID, payload.Name); err != nil {
		r.handleErr(client, err)
		return
	}
	client.PlayerID = playerID
	r.hub.JoinRoom(client, payload.RoomCode)
}

func (r *Router) handleLeaveRoom(client *Client) {
	r.handleErr(client, r.engine.LeaveRoom(client.ConnID))
	r.hub.LeaveRoom(client)
}

func (r *Router) handlePlayerReady(client *Client, msg *Message) {
	var payload PlayerReadyPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		client.SendError("invalid_payload", "player_ready: "+err.Error())
		return
	}
	r.handleErr(client, r.engine.SetReady(client.ConnID, payload.Ready))
}

func (r *Router) handleSetSettings(client *Client, msg *Message) {
	var payload SetSettingsPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		client.SendError("invalid_payload", "set_settings: "+err.Error())
		return
	}
	next := entity.Settings{
		KillerCount:         payload.KillerCount,
		DoctorCount:         payload.DoctorCount,
		DetectiveCount:      payload.DetectiveCount,
		KillerDurationS:     payload.KillerDurationS,
		DoctorDurationS:     payload.DoctorDurationS,
		VotingDurationS:     payload.VotingDurationS,
		DiscussionDurationS: payload.DiscussionDurationS,
	}
	r.handleErr(client, r.engine.UpdateSettings(client.ConnID, next))
}

func (r *Router) handleKillerAction(client *Client, msg *Message) {
	var payload TargetActionPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		client.SendError("invalid_payload", "killer_action: "+err.Error())
		return
	}
	r.handleErr(client, r.engine.SubmitKillerAction(client.ConnID, payload.TargetID, payload.Skip))
}

func (r *Router) handleDoctorAction(client *Client, msg *Message) {
	var payload TargetActionPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		client.SendError("invalid_payload", "doctor_action: "+err.Error())
		return
	}
	r.handleErr(client, r.engine.SubmitDoctorAction(client.ConnID, payload.TargetID, payload.Skip))
}

func (r *Router) handleDetectiveAction(client *Client, msg *Message) {
	var payload TargetActionPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		client.SendError("invalid_payload", "detective_action: "+err.Error())
		return
	}
	r.handleErr(client, r.engine.SubmitDetectiveAction(client.ConnID, payload.TargetID))
}

func (r *Router) handleCastVote(client *Client, msg *Message) {
	var payload TargetActionPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		client.SendError("invalid_payload", "cast_vote: "+err.Error())
		return
	}
	r.handleErr(client, r.engine.CastVote(client.ConnID, payload.TargetID, payload.Skip))
}

func (r *Router) handleSendMessage(client *Client, msg *Message) {
	var payload SendMessagePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		client.SendError("invalid_payload", "send_message: "+err.Error())
		return
	}
	scope := service.ChatScope(payload.Scope)
	if scope == "" {
		scope = service.ChatScopePublic
	}
	r.handleErr(client, r.engine.SendMessage(client.ConnID, payload.Text, scope))
}
