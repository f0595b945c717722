package response

import (
	"cmp"
	"slices"
	"time"

	"github.com/mcoot/roomhub/internal/model"
)

// Player represents a player in API responses
type Player struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Email            string         `json:"email,omitempty"`
	Active           bool           `json:"active"`
	Spectating       bool           `json:"spectating"`
	CurrentRoomID    string         `json:"current_room_id,omitempty"`
	Stats            map[string]int `json:"stats"`
	CreatedAt        time.Time      `json:"created_at"`
	LastConnectionAt *time.Time     `json:"last_connection_at,omitempty"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	resp := Player{
		ID:            string(p.ID),
		Name:          p.Name,
		Email:         p.Email,
		Active:        p.Active,
		Spectating:    p.Spectating,
		CurrentRoomID: string(p.CurrentRoomID),
		Stats:         p.Stats,
		CreatedAt:     p.CreatedAt,
	}
	if resp.Stats == nil {
		resp.Stats = map[string]int{}
	}
	if !p.LastConnectionAt.IsZero() {
		t := p.LastConnectionAt
		resp.LastConnectionAt = &t
	}
	return resp
}

// Ban is one entry of a room's kick list
type Ban struct {
	PlayerID  string     `json:"player_id"`
	ExpiresAt *time.Time `json:"expires_at"` // null for an indefinite ban
}

// Room represents a room in API responses. The password hash never leaves the server.
type Room struct {
	ID                   string    `json:"id"`
	Code                 string    `json:"code"`
	OwnerPlayerID        string    `json:"owner_player_id"`
	HostPlayerID         string    `json:"host_player_id"`
	HasPassword          bool      `json:"has_password"`
	PlayerIDs            []string  `json:"player_ids"`
	Bans                 []Ban     `json:"bans"`
	CurrentGameID        string    `json:"current_game_id,omitempty"`
	PreviousGameIDs      []string  `json:"previous_game_ids"`
	CurrentChampion      string    `json:"current_champion,omitempty"`
	CurrentWinningStreak int       `json:"current_winning_streak"`
	CreatedAt            time.Time `json:"created_at"`
}

// RoomFromModel converts a model.Room to a response Room
func RoomFromModel(r *model.Room) Room {
	bans := make([]Ban, 0, len(r.KickedPlayerIDs))
	for id, expiry := range r.KickedPlayerIDs {
		bans = append(bans, Ban{PlayerID: string(id), ExpiresAt: expiry})
	}
	slices.SortFunc(bans, func(a, b Ban) int { return cmp.Compare(a.PlayerID, b.PlayerID) })

	return Room{
		ID:                   string(r.ID),
		Code:                 string(r.Code),
		OwnerPlayerID:        string(r.OwnerPlayerID),
		HostPlayerID:         string(r.HostPlayerID),
		HasPassword:          r.HasPassword(),
		PlayerIDs:            idStrings(r.PlayerIDs),
		Bans:                 bans,
		CurrentGameID:        string(r.CurrentGameID),
		PreviousGameIDs:      idStrings(r.PreviousGameIDs),
		CurrentChampion:      string(r.CurrentChampion),
		CurrentWinningStreak: r.CurrentWinningStreak,
		CreatedAt:            r.CreatedAt,
	}
}

// Game represents a game in API responses
type Game struct {
	ID         string         `json:"id"`
	RoomID     string         `json:"room_id"`
	PlayerIDs  []string       `json:"player_ids"`
	Scores     map[string]int `json:"scores"`
	CreatedAt  time.Time      `json:"created_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// GameFromModel converts a model.Game to a response Game
func GameFromModel(g *model.Game) Game {
	scores := make(map[string]int, len(g.Scores))
	for id, score := range g.Scores {
		scores[string(id)] = score
	}
	return Game{
		ID:         string(g.ID),
		RoomID:     string(g.RoomID),
		PlayerIDs:  idStrings(g.PlayerIDs),
		Scores:     scores,
		CreatedAt:  g.CreatedAt,
		FinishedAt: g.FinishedAt,
	}
}

// List is a page of a listing
type List[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Size  int `json:"size"`
}

// ListFromModels converts a page of models with the given conversion
func ListFromModels[M any, T any](models []M, convert func(M) T, page, size int) List[T] {
	items := make([]T, 0, len(models))
	for _, m := range models {
		items = append(items, convert(m))
	}
	return List[T]{Items: items, Page: page, Size: size}
}

// BanResolution reports whether a ban was lifted
type BanResolution struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
	Resolved bool   `json:"resolved"`
}

// Health is the health check body
type Health struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

func idStrings[T ~string](ids []T) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
