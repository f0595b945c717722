package model

import "errors"

// Common errors used across the application.
// The message of each error is what clients see in error frames.
var (
	// Missing identifier errors
	ErrMissingPlayerID       = errors.New("missing player ID")
	ErrMissingRoomID         = errors.New("missing room ID")
	ErrMissingGameID         = errors.New("missing game ID")
	ErrMissingRoomCode       = errors.New("missing room code")
	ErrMissingTargetPlayerID = errors.New("missing target player ID")
	ErrMissingNewHostID      = errors.New("missing new host player ID")

	// Lookup errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrRoomNotFound   = errors.New("room not found")
	ErrGameNotFound   = errors.New("game not found")

	// Consistency errors
	ErrPlayerNotInRoom = errors.New("player not in room")
	ErrGameNotActive   = errors.New("game not active in room")
	ErrPlayerNotInGame = errors.New("player not in game")

	// Room errors
	ErrNotHost             = errors.New("player is not the host")
	ErrIncorrectPassword   = errors.New("incorrect room password")
	ErrBanned              = errors.New("player is banned from room")
	ErrAlreadyKicked       = errors.New("player has already been kicked")
	ErrInvalidKickDuration = errors.New("invalid kick duration")
	ErrInvalidKickTarget   = errors.New("cannot kick this player")
	ErrHostChanged         = errors.New("room host changed concurrently")
	ErrDuplicateRoomCode   = errors.New("room code already in use")
	ErrRoomCodeExhausted   = errors.New("could not allocate a unique room code")

	// Game errors
	ErrGameFull = errors.New("game is full")

	// Player errors
	ErrEmailTaken = errors.New("email already registered")

	// Listing errors
	ErrInvalidPage = errors.New("invalid page")
)
