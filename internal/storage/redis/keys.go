package redis

import (
	"fmt"

	"github.com/mcoot/roomhub/internal/model"
)

// Key prefix for all room coordination data
const keyPrefix = "roomhub"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// roomKey returns the Redis key for a Room
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// gameKey returns the Redis key for a Game
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// emailIndexKey returns the key of the email -> player_id unique index
func emailIndexKey(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", keyPrefix, email)
}

// roomCodeIndexKey returns the key of the room_code -> room_id unique index
func roomCodeIndexKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:idx:room_code:%s", keyPrefix, code)
}

// roomPlayersIndexKey returns the SET of players whose CurrentRoomID is the room
func roomPlayersIndexKey(roomID model.RoomID) string {
	return fmt.Sprintf("%s:idx:room_players:%s", keyPrefix, roomID)
}

// playersIndexKey returns the ZSET of all players scored by creation time
func playersIndexKey() string {
	return fmt.Sprintf("%s:idx:players", keyPrefix)
}

// roomsIndexKey returns the ZSET of all rooms scored by creation time
func roomsIndexKey() string {
	return fmt.Sprintf("%s:idx:rooms", keyPrefix)
}

// roomGamesIndexKey returns the ZSET of a room's games scored by creation time
func roomGamesIndexKey(roomID model.RoomID) string {
	return fmt.Sprintf("%s:idx:room_games:%s", keyPrefix, roomID)
}
