package model

import (
	"slices"
	"time"
)

// GameID uniquely identifies a game
type GameID string

// Game is a single game played inside a room.
// Scoring rules live outside this service; only participation is tracked here.
type Game struct {
	ID         GameID
	RoomID     RoomID
	PlayerIDs  []PlayerID
	Scores     map[PlayerID]int
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// HasParticipant returns true if the player has joined the game
func (g *Game) HasParticipant(playerID PlayerID) bool {
	return slices.Contains(g.PlayerIDs, playerID)
}

// AddParticipant adds the player with a zero score and reports whether they were new
func (g *Game) AddParticipant(playerID PlayerID) bool {
	if g.HasParticipant(playerID) {
		return false
	}
	g.PlayerIDs = append(g.PlayerIDs, playerID)
	if g.Scores == nil {
		g.Scores = make(map[PlayerID]int)
	}
	if _, ok := g.Scores[playerID]; !ok {
		g.Scores[playerID] = 0
	}
	return true
}

// IsFinished returns true once the game has been retired
func (g *Game) IsFinished() bool {
	return g.FinishedAt != nil
}

// Clone returns a deep copy of the game
func (g *Game) Clone() *Game {
	c := *g
	c.PlayerIDs = slices.Clone(g.PlayerIDs)
	if g.Scores != nil {
		c.Scores = make(map[PlayerID]int, len(g.Scores))
		for k, v := range g.Scores {
			c.Scores[k] = v
		}
	}
	if g.FinishedAt != nil {
		f := *g.FinishedAt
		c.FinishedAt = &f
	}
	return &c
}
