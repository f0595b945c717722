package model

import (
	"slices"
	"time"
)

// RoomID uniquely identifies a room
type RoomID string

// RoomCode is a short human-shareable identifier for joining rooms
type RoomCode string

// Room is a persistent group of players who play games together
type Room struct {
	ID            RoomID
	Code          RoomCode
	OwnerPlayerID PlayerID // immutable creator, bypasses passwords and bans
	HostPlayerID  PlayerID
	PasswordHash  string // empty when the room is open

	// PlayerIDs is ordered by join time; the order breaks host reassignment ties
	PlayerIDs []PlayerID

	// KickedPlayerIDs maps banned players to their ban expiry, nil meaning indefinite
	KickedPlayerIDs map[PlayerID]*time.Time

	CurrentGameID        GameID // empty when no game is current
	PreviousGameIDs      []GameID
	CurrentChampion      PlayerID
	CurrentWinningStreak int
	CreatedAt            time.Time
}

// HasMember returns true if the player is in the membership list
func (r *Room) HasMember(playerID PlayerID) bool {
	return slices.Contains(r.PlayerIDs, playerID)
}

// AddMember appends the player if absent and reports whether it was added
func (r *Room) AddMember(playerID PlayerID) bool {
	if r.HasMember(playerID) {
		return false
	}
	r.PlayerIDs = append(r.PlayerIDs, playerID)
	return true
}

// RemoveMember deletes the player from the membership list and reports whether it was present
func (r *Room) RemoveMember(playerID PlayerID) bool {
	idx := slices.Index(r.PlayerIDs, playerID)
	if idx < 0 {
		return false
	}
	r.PlayerIDs = slices.Delete(r.PlayerIDs, idx, idx+1)
	return true
}

// HasPassword returns true if joining requires a password
func (r *Room) HasPassword() bool {
	return r.PasswordHash != ""
}

// IsOwner returns true if the player created the room
func (r *Room) IsOwner(playerID PlayerID) bool {
	return r.OwnerPlayerID != "" && r.OwnerPlayerID == playerID
}

// HasLiveBan reports whether the player holds a ban that has not expired at now.
// Expired bans stay recorded until something clears them.
func (r *Room) HasLiveBan(playerID PlayerID, now time.Time) bool {
	expiry, ok := r.KickedPlayerIDs[playerID]
	if !ok {
		return false
	}
	return expiry == nil || now.Before(*expiry)
}

// IsBanned reports whether any ban entry, live or expired, exists for the player
func (r *Room) IsBanned(playerID PlayerID) bool {
	_, ok := r.KickedPlayerIDs[playerID]
	return ok
}

// Ban records a ban; a nil expiry bans indefinitely
func (r *Room) Ban(playerID PlayerID, expiry *time.Time) {
	if r.KickedPlayerIDs == nil {
		r.KickedPlayerIDs = make(map[PlayerID]*time.Time)
	}
	r.KickedPlayerIDs[playerID] = expiry
}

// ClearBan removes any ban entry and reports whether one existed
func (r *Room) ClearBan(playerID PlayerID) bool {
	if _, ok := r.KickedPlayerIDs[playerID]; !ok {
		return false
	}
	delete(r.KickedPlayerIDs, playerID)
	return true
}

// ApplyChampion updates the champion and streak for a finished game
func (r *Room) ApplyChampion(update ChampionUpdate) {
	if !update.Provided {
		return
	}
	switch {
	case update.PlayerID == "":
		r.CurrentChampion = ""
		r.CurrentWinningStreak = 0
	case update.PlayerID == r.CurrentChampion:
		r.CurrentWinningStreak++
	default:
		r.CurrentChampion = update.PlayerID
		r.CurrentWinningStreak = 1
	}
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	c := *r
	c.PlayerIDs = slices.Clone(r.PlayerIDs)
	c.PreviousGameIDs = slices.Clone(r.PreviousGameIDs)
	if r.KickedPlayerIDs != nil {
		c.KickedPlayerIDs = make(map[PlayerID]*time.Time, len(r.KickedPlayerIDs))
		for id, expiry := range r.KickedPlayerIDs {
			if expiry != nil {
				e := *expiry
				c.KickedPlayerIDs[id] = &e
			} else {
				c.KickedPlayerIDs[id] = nil
			}
		}
	}
	return &c
}

// ChampionUpdate describes how a game transition affects the room champion.
// The zero value leaves the champion untouched.
type ChampionUpdate struct {
	Provided bool
	PlayerID PlayerID // empty with Provided set records a tie
}

// NoChampionUpdate leaves champion and streak unchanged
func NoChampionUpdate() ChampionUpdate {
	return ChampionUpdate{}
}

// ChampionWon records a winner for the finished game
func ChampionWon(playerID PlayerID) ChampionUpdate {
	return ChampionUpdate{Provided: true, PlayerID: playerID}
}

// ChampionTied records that the finished game had no single winner
func ChampionTied() ChampionUpdate {
	return ChampionUpdate{Provided: true}
}
