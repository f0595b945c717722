package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomMembershipHasNoDuplicates(t *testing.T) {
	room := &Room{ID: "room-1"}

	assert.True(t, room.AddMember("a"))
	assert.True(t, room.AddMember("b"))
	assert.False(t, room.AddMember("a"))
	assert.Equal(t, []PlayerID{"a", "b"}, room.PlayerIDs)

	assert.True(t, room.RemoveMember("a"))
	assert.False(t, room.RemoveMember("a"))
	assert.True(t, room.AddMember("a"))
	assert.Equal(t, []PlayerID{"b", "a"}, room.PlayerIDs)
}

func TestRoomHasLiveBan(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	room := &Room{}
	room.Ban("indefinite", nil)
	room.Ban("future", &future)
	room.Ban("past", &past)

	tests := []struct {
		name     string
		playerID PlayerID
		live     bool
		banned   bool
	}{
		{"indefinite ban is live", "indefinite", true, true},
		{"unexpired ban is live", "future", true, true},
		{"expired ban is not live", "past", false, true},
		{"unbanned player", "other", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.live, room.HasLiveBan(tt.playerID, now))
			assert.Equal(t, tt.banned, room.IsBanned(tt.playerID))
		})
	}
}

func TestRoomApplyChampion(t *testing.T) {
	tests := []struct {
		name           string
		champion       PlayerID
		streak         int
		update         ChampionUpdate
		expectChampion PlayerID
		expectStreak   int
	}{
		{"repeat winner extends streak", "a", 2, ChampionWon("a"), "a", 3},
		{"new winner resets streak to one", "a", 2, ChampionWon("b"), "b", 1},
		{"tie clears champion", "a", 2, ChampionTied(), "", 0},
		{"no update leaves champion", "a", 2, NoChampionUpdate(), "a", 2},
		{"first winner", "", 0, ChampionWon("a"), "a", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := &Room{CurrentChampion: tt.champion, CurrentWinningStreak: tt.streak}
			room.ApplyChampion(tt.update)
			assert.Equal(t, tt.expectChampion, room.CurrentChampion)
			assert.Equal(t, tt.expectStreak, room.CurrentWinningStreak)
		})
	}
}

func TestRoomCloneIsDeep(t *testing.T) {
	expiry := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	room := &Room{PlayerIDs: []PlayerID{"a"}, KickedPlayerIDs: map[PlayerID]*time.Time{"b": &expiry}}

	clone := room.Clone()
	clone.AddMember("c")
	clone.ClearBan("b")

	assert.Equal(t, []PlayerID{"a"}, room.PlayerIDs)
	assert.True(t, room.IsBanned("b"))
}

func TestParseInboundEventRoundTrip(t *testing.T) {
	for _, event := range InboundEvents() {
		parsed, ok := ParseInboundEvent(event.String())
		require.True(t, ok, event.String())
		assert.Equal(t, event, parsed)
	}

	_, ok := ParseInboundEvent("start_game")
	assert.False(t, ok)
}

func TestGameAddParticipant(t *testing.T) {
	game := &Game{ID: "game-1"}

	assert.True(t, game.AddParticipant("a"))
	assert.False(t, game.AddParticipant("a"))
	assert.Equal(t, 0, game.Scores["a"])
	assert.Len(t, game.PlayerIDs, 1)
}
