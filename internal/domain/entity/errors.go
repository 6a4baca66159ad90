package entity

import "errors"

// Sentinel errors raised by Room mutation methods, the room registry and the
// engine. The engine translates the
// common cases into dedicated rejection events (action_blocked,
// join_rejected, settings_rejected, chat_blocked); these messages are safe
// to surface directly since they never carry request data.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrNicknameInUse    = errors.New("nickname already in use")
	ErrGameInProgress   = errors.New("game already in progress")
	ErrNotHost          = errors.New("only the host can do this")
	ErrDurationDecrease = errors.New("durations cannot be decreased once the game has started")
	ErrWrongPhase       = errors.New("action not valid for current phase")
	ErrWrongRole        = errors.New("actor does not hold the required role")
	ErrPlayerDead       = errors.New("player is not alive")
	ErrAlreadyActed     = errors.New("player already acted this round")
	ErrInvalidTarget    = errors.New("invalid target")
	ErrTargetIsKiller   = errors.New("killers cannot target fellow killers")
	ErrDetectiveSpent   = errors.New("detective ability already used this game")
	ErrChatBlocked      = errors.New("chat not permitted in this phase or scope")
)
