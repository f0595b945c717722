package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// StatGamesPlayed counts the games a player has joined as a participant
const StatGamesPlayed = "gamesPlayed"

// Player represents a registered participant of the platform
type Player struct {
	ID               PlayerID
	Name             string
	Email            string // optional, unique when set
	Active           bool   // connected recently
	Spectating       bool
	CurrentRoomID    RoomID // empty when not in a room
	ConnectionID     string // live connection bound by the last connect
	Stats            map[string]int
	CreatedAt        time.Time
	LastConnectionAt time.Time
}

// IsLiveIn reports whether the player is active and currently attributed to the room
func (p *Player) IsLiveIn(roomID RoomID) bool {
	return p.Active && p.CurrentRoomID == roomID
}

// HoldsConnection reports whether connID is the connection the player is bound to
func (p *Player) HoldsConnection(connID string) bool {
	return p.ConnectionID != "" && p.ConnectionID == connID
}

// IncrementStat adds one to a named counter
func (p *Player) IncrementStat(name string) {
	if p.Stats == nil {
		p.Stats = make(map[string]int)
	}
	p.Stats[name]++
}

// Clone returns a deep copy of the player
func (p *Player) Clone() *Player {
	c := *p
	if p.Stats != nil {
		c.Stats = make(map[string]int, len(p.Stats))
		for k, v := range p.Stats {
			c.Stats[k] = v
		}
	}
	return &c
}
