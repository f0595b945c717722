package model

import (
	"encoding/json"
	"time"
)

// InboundEvent identifies an event sent by a client over the socket
type InboundEvent int

const (
	EventConnect InboundEvent = iota
	EventJoinRoom
	EventJoinRoomWithCode
	EventLeaveRoom
	EventJoinGame
	EventStartSpectating
	EventStopSpectating
	EventAbandonGame
	EventKickPlayer
	EventReassignHost
	EventGameCreationFailed
	EventGameSettingsChanged
)

var inboundEventNames = map[InboundEvent]string{
	EventConnect:             "connect",
	EventJoinRoom:            "join_room",
	EventJoinRoomWithCode:    "join_room_with_code",
	EventLeaveRoom:           "leave_room",
	EventJoinGame:            "join_game",
	EventStartSpectating:     "start_spectating",
	EventStopSpectating:      "stop_spectating",
	EventAbandonGame:         "abandon_game",
	EventKickPlayer:          "kick_player",
	EventReassignHost:        "reassign_host",
	EventGameCreationFailed:  "game_creation_failed",
	EventGameSettingsChanged: "game_settings_changed",
}

var inboundEventsByName = func() map[string]InboundEvent {
	m := make(map[string]InboundEvent, len(inboundEventNames))
	for event, name := range inboundEventNames {
		m[name] = event
	}
	return m
}()

// String returns the wire name of the event
func (e InboundEvent) String() string {
	if name, ok := inboundEventNames[e]; ok {
		return name
	}
	return "unknown"
}

// ParseInboundEvent maps a wire name to an InboundEvent
func ParseInboundEvent(name string) (InboundEvent, bool) {
	e, ok := inboundEventsByName[name]
	return e, ok
}

// InboundEvents returns every known inbound event in declaration order
func InboundEvents() []InboundEvent {
	events := make([]InboundEvent, 0, len(inboundEventNames))
	for e := EventConnect; e <= EventGameSettingsChanged; e++ {
		events = append(events, e)
	}
	return events
}

// OutboundEvent identifies an event pushed to clients
type OutboundEvent string

const (
	OutboundPlayerActive            OutboundEvent = "player_active"
	OutboundPlayerInactive          OutboundEvent = "player_inactive"
	OutboundPlayerJoinedRoom        OutboundEvent = "player_joined_room"
	OutboundPlayerLeftRoom          OutboundEvent = "player_left_room"
	OutboundPlayerJoined            OutboundEvent = "player_joined"
	OutboundPlayerStartedSpectating OutboundEvent = "player_started_spectating"
	OutboundPlayerStoppedSpectating OutboundEvent = "player_stopped_spectating"
	OutboundHostReassigned          OutboundEvent = "host_reassigned"
	OutboundHostAbandonedGame       OutboundEvent = "host_abandoned_game"
	OutboundHostKickedPlayer        OutboundEvent = "host_kicked_player"
	OutboundCurrentGameChanged      OutboundEvent = "current_game_changed"
	OutboundGameCreationFailed      OutboundEvent = "game_creation_failed"
	OutboundGameSettingsChanged     OutboundEvent = "game_settings_changed"
	OutboundError                   OutboundEvent = "error"
)

// Event is an outbound frame
type Event struct {
	Type    OutboundEvent `json:"eventType"`
	Payload any           `json:"payload"`
}

// EventContext scopes game-level events
type EventContext struct {
	RoomID   RoomID   `json:"roomID"`
	GameID   GameID   `json:"gameID,omitempty"`
	PlayerID PlayerID `json:"playerID,omitempty"`
}

// PlayerSummary is the public view of a player carried in rosters
type PlayerSummary struct {
	ID            PlayerID       `json:"playerID"`
	Name          string         `json:"name"`
	Active        bool           `json:"active"`
	Spectating    bool           `json:"spectating"`
	CurrentRoomID RoomID         `json:"currentRoomID,omitempty"`
	Stats         map[string]int `json:"stats,omitempty"`
}

// SummarizePlayer converts a player into its public view
func SummarizePlayer(p *Player) PlayerSummary {
	return PlayerSummary{
		ID:            p.ID,
		Name:          p.Name,
		Active:        p.Active,
		Spectating:    p.Spectating,
		CurrentRoomID: p.CurrentRoomID,
		Stats:         p.Stats,
	}
}

// RosterPayload is carried by player_active and player_joined_room
type RosterPayload struct {
	RoomID     RoomID          `json:"roomID,omitempty"`
	PlayerID   PlayerID        `json:"playerID"`
	Spectating bool            `json:"spectating"`
	Players    []PlayerSummary `json:"players"`
}

// PlayerInactivePayload is carried by player_inactive
type PlayerInactivePayload struct {
	RoomID   RoomID   `json:"roomID"`
	PlayerID PlayerID `json:"playerID"`
}

// PlayerLeftRoomPayload is carried by player_left_room
type PlayerLeftRoomPayload struct {
	RoomID          RoomID    `json:"roomID"`
	PlayerID        PlayerID  `json:"playerID"`
	NewHostPlayerID *PlayerID `json:"newHostPlayerID"`
}

// PlayerJoinedPayload is carried by player_joined
type PlayerJoinedPayload struct {
	Context    EventContext `json:"context"`
	PlayerID   PlayerID     `json:"playerID"`
	Score      int          `json:"score"`
	Spectating bool         `json:"spectating"`
}

// SpectatingPayload is carried by player_started_spectating and player_stopped_spectating
type SpectatingPayload struct {
	Context  EventContext `json:"context"`
	PlayerID PlayerID     `json:"playerID"`
}

// HostReassignedPayload is carried by host_reassigned
type HostReassignedPayload struct {
	RoomID               RoomID   `json:"roomID"`
	PreviousHostPlayerID PlayerID `json:"previousHostPlayerID,omitempty"`
	NewHostPlayerID      PlayerID `json:"newHostPlayerID"`
}

// HostAbandonedGamePayload is carried by host_abandoned_game
type HostAbandonedGamePayload struct {
	Context      EventContext `json:"context"`
	HostPlayerID PlayerID     `json:"hostPlayerID"`
}

// HostKickedPlayerPayload is carried by host_kicked_player
type HostKickedPlayerPayload struct {
	RoomID         RoomID     `json:"roomID"`
	HostPlayerID   PlayerID   `json:"hostPlayerID"`
	TargetPlayerID PlayerID   `json:"targetPlayerID"`
	ExpiresAt      *time.Time `json:"expiresAt"`
}

// CurrentGameChangedPayload is carried by current_game_changed
type CurrentGameChangedPayload struct {
	RoomID               RoomID   `json:"roomID"`
	GameID               GameID   `json:"gameID,omitempty"`
	PreviousGameID       GameID   `json:"previousGameID,omitempty"`
	CurrentChampion      PlayerID `json:"currentChampion,omitempty"`
	CurrentWinningStreak int      `json:"currentWinningStreak"`
}

// ErrorPayload is carried by error frames sent to a single connection
type ErrorPayload struct {
	EventType string `json:"eventType"`
	Error     string `json:"error"`
	Status    int    `json:"status"`
}

// RawPayload forwards a client payload unchanged
type RawPayload = json.RawMessage
