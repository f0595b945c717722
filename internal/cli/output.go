package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case List[Player]:
		for _, p := range v.Items {
			fmt.Printf("%s  %-20s active=%t room=%s\n", p.ID, p.Name, p.Active, orDash(p.CurrentRoomID))
		}
	case Room:
		o.printRoom(v)
	case List[Room]:
		for _, r := range v.Items {
			fmt.Printf("%s  %s  host=%s members=%d\n", r.ID, r.Code, r.HostPlayerID, len(r.PlayerIDs))
		}
	case Game:
		o.printGame(v)
	case List[Game]:
		for _, g := range v.Items {
			fmt.Printf("%s  players=%d created=%s\n", g.ID, len(g.PlayerIDs), g.CreatedAt.Format(time.RFC3339))
		}
	case BanResolution:
		if v.Resolved {
			fmt.Printf("Ban on %s lifted in room %s\n", v.PlayerID, v.RoomID)
		} else {
			fmt.Printf("%s was not banned from room %s\n", v.PlayerID, v.RoomID)
		}
	case HealthResult:
		fmt.Printf("Status: %s\n", v.Status)
		fmt.Printf("Connections: %d\n", v.Connections)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email,omitempty"`
	Active        bool           `json:"active"`
	Spectating    bool           `json:"spectating"`
	CurrentRoomID string         `json:"current_room_id,omitempty"`
	Stats         map[string]int `json:"stats"`
}

// Ban response type
type Ban struct {
	PlayerID  string     `json:"player_id"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// Room response type
type Room struct {
	ID                   string   `json:"id"`
	Code                 string   `json:"code"`
	OwnerPlayerID        string   `json:"owner_player_id"`
	HostPlayerID         string   `json:"host_player_id"`
	HasPassword          bool     `json:"has_password"`
	PlayerIDs            []string `json:"player_ids"`
	Bans                 []Ban    `json:"bans"`
	CurrentGameID        string   `json:"current_game_id,omitempty"`
	PreviousGameIDs      []string `json:"previous_game_ids"`
	CurrentChampion      string   `json:"current_champion,omitempty"`
	CurrentWinningStreak int      `json:"current_winning_streak"`
}

// Game response type
type Game struct {
	ID         string         `json:"id"`
	RoomID     string         `json:"room_id"`
	PlayerIDs  []string       `json:"player_ids"`
	Scores     map[string]int `json:"scores"`
	CreatedAt  time.Time      `json:"created_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// List is a page of a listing
type List[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Size  int `json:"size"`
}

// BanResolution response type
type BanResolution struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
	Resolved bool   `json:"resolved"`
}

// HealthResult response type
type HealthResult struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

func (o *Output) printPlayer(p Player) {
	fmt.Printf("Player: %s (%s)\n", p.Name, p.ID)
	if p.Email != "" {
		fmt.Printf("Email: %s\n", p.Email)
	}
	fmt.Printf("Active: %t\n", p.Active)
	fmt.Printf("Room: %s\n", orDash(p.CurrentRoomID))
	fmt.Printf("Games played: %d\n", p.Stats["gamesPlayed"])
}

func (o *Output) printRoom(r Room) {
	fmt.Printf("Room: %s (%s)\n", r.Code, r.ID)
	fmt.Printf("Owner: %s\n", r.OwnerPlayerID)
	fmt.Printf("Host: %s\n", r.HostPlayerID)
	fmt.Printf("Password: %t\n", r.HasPassword)
	fmt.Printf("Current Game: %s\n", orDash(r.CurrentGameID))
	if r.CurrentChampion != "" {
		fmt.Printf("Champion: %s (streak %d)\n", r.CurrentChampion, r.CurrentWinningStreak)
	}
	fmt.Printf("Members (%d): %s\n", len(r.PlayerIDs), strings.Join(r.PlayerIDs, ", "))
	for _, b := range r.Bans {
		expiry := "indefinitely"
		if b.ExpiresAt != nil {
			expiry = "until " + b.ExpiresAt.Format(time.RFC3339)
		}
		fmt.Printf("  banned: %s %s\n", b.PlayerID, expiry)
	}
}

func (o *Output) printGame(g Game) {
	fmt.Printf("Game: %s\n", g.ID)
	fmt.Printf("Room: %s\n", g.RoomID)
	if g.FinishedAt != nil {
		fmt.Printf("Finished: %s\n", g.FinishedAt.Format(time.RFC3339))
	}

	ids := slices.Clone(g.PlayerIDs)
	slices.SortFunc(ids, func(a, b string) int { return g.Scores[b] - g.Scores[a] })
	fmt.Println("Scores:")
	for _, id := range ids {
		fmt.Printf("  %s: %d\n", id, g.Scores[id])
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
