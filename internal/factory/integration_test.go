package factory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/realtime"
	"github.com/mcoot/roomhub/internal/services/room"
	"github.com/mcoot/roomhub/internal/storage/memory"
	redisstorage "github.com/mcoot/roomhub/internal/storage/redis"
	"github.com/mcoot/roomhub/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp(Config{
		Room: room.Config{
			MaxActivePlayersPerRoom: 3,
			MaxKickDurationSeconds:  3600,
			HostReassignDelay:       5 * time.Second,
		},
	})
	s.ctx = context.Background()
}

func (s *IntegrationSuite) register(name string) model.PlayerID {
	player, err := s.app.AuthService.RegisterPlayer(s.ctx, name, "")
	s.Require().NoError(err)
	return player.ID
}

func (s *IntegrationSuite) send(conn realtime.Conn, eventType string, payload any) {
	raw, err := json.Marshal(map[string]any{"eventType": eventType, "payload": payload})
	s.Require().NoError(err)
	s.app.Dispatcher.Dispatch(s.ctx, conn, raw)
}

func (s *IntegrationSuite) room(id model.RoomID) *model.Room {
	r, err := s.app.Engine.GetRoom(s.ctx, id)
	s.Require().NoError(err)
	return r
}

func (s *IntegrationSuite) noErrors(conns ...*testutil.FakeConn) {
	for _, conn := range conns {
		s.Require().Nil(conn.Last("error"), "unexpected error frame: %s", conn.Last("error"))
	}
}

// Test: a room lifecycle from creation through a kick, a ban expiry and a host handoff
func (s *IntegrationSuite) TestRoomLifecycle() {
	s.app.MockRandom.QueueString("HALL42")

	host := s.register("Host")
	guest := s.register("Guest")

	// Step 1: Create a room; the owner hosts it
	created, err := s.app.Engine.CreateRoom(s.ctx, host, "")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("HALL42"), created.Code)

	// Step 2: Host connects into the room, guest joins by code
	hostConn := testutil.NewFakeConn()
	s.send(hostConn, "connect", map[string]any{"playerID": host, "roomID": created.ID})
	guestConn := testutil.NewFakeConn()
	s.send(guestConn, "connect", map[string]any{"playerID": guest})
	s.send(guestConn, "join_room_with_code", map[string]any{"playerID": guest, "roomCode": "HALL42"})
	s.noErrors(hostConn, guestConn)

	s.Equal([]model.PlayerID{host, guest}, s.room(created.ID).PlayerIDs)
	s.Equal(1, hostConn.Count("player_joined_room"))

	// Step 3: Host kicks the guest for a minute
	s.send(hostConn, "kick_player", map[string]any{
		"playerID": host, "roomID": created.ID, "targetPlayerID": guest, "duration": 60,
	})
	s.noErrors(hostConn)
	s.Equal(1, guestConn.Count("host_kicked_player"))
	s.False(s.room(created.ID).HasMember(guest))

	// Step 4: The ban holds until it expires
	s.send(guestConn, "join_room", map[string]any{"playerID": guest, "roomID": created.ID})
	s.Equal(1, guestConn.Count("error"))

	s.app.MockClock.Advance(61 * time.Second)
	guestConn.Reset()
	s.send(guestConn, "join_room", map[string]any{"playerID": guest, "roomID": created.ID})
	s.noErrors(guestConn)
	s.True(s.room(created.ID).HasMember(guest))
	s.False(s.room(created.ID).IsBanned(guest), "expired ban is cleared on rejoin")

	// Step 5: Host drops; after the grace period the guest becomes host
	s.app.Dispatcher.Disconnect(s.ctx, hostConn)
	s.Equal(host, s.room(created.ID).HostPlayerID)

	s.app.MockClock.Advance(5 * time.Second)
	s.Equal(guest, s.room(created.ID).HostPlayerID)
	s.Equal(1, guestConn.Count("host_reassigned"))
}

// Test: a game round from creation to champion bookkeeping
func (s *IntegrationSuite) TestGameRound() {
	s.app.MockRandom.QueueString("GAME23")

	host := s.register("Host")
	guest := s.register("Guest")
	created, err := s.app.Engine.CreateRoom(s.ctx, host, "secret")
	s.Require().NoError(err)

	hostConn := testutil.NewFakeConn()
	s.send(hostConn, "connect", map[string]any{"playerID": host, "roomID": created.ID})
	guestConn := testutil.NewFakeConn()
	s.send(guestConn, "connect", map[string]any{"playerID": guest})
	s.send(guestConn, "join_room", map[string]any{"playerID": guest, "roomID": created.ID, "password": "wrong"})
	s.Equal(1, guestConn.Count("error"))
	s.send(guestConn, "join_room", map[string]any{"playerID": guest, "roomID": created.ID, "password": "secret"})
	guestConn.Reset()

	// Step 1: Create and publish a game
	game, err := s.app.Engine.CreateGame(s.ctx, created.ID)
	s.Require().NoError(err)
	_, err = s.app.Engine.SetCurrentGame(s.ctx, created.ID, game.ID, model.NoChampionUpdate())
	s.Require().NoError(err)
	s.Equal(1, guestConn.Count("current_game_changed"))

	// Step 2: Both players join the game
	for _, p := range []struct {
		id   model.PlayerID
		conn *testutil.FakeConn
	}{{host, hostConn}, {guest, guestConn}} {
		s.send(p.conn, "join_game", map[string]any{
			"context": map[string]any{"roomID": created.ID, "gameID": game.ID, "playerID": p.id},
		})
	}
	s.noErrors(hostConn, guestConn)

	// Step 3: Score and finish the round
	_, err = s.app.Engine.AddScore(s.ctx, game.ID, guest, 7)
	s.Require().NoError(err)

	next, err := s.app.Engine.CreateGame(s.ctx, created.ID)
	s.Require().NoError(err)
	updated, err := s.app.Engine.SetCurrentGame(s.ctx, created.ID, next.ID, model.ChampionWon(guest))
	s.Require().NoError(err)

	s.Equal(next.ID, updated.CurrentGameID)
	s.Equal([]model.GameID{game.ID}, updated.PreviousGameIDs)
	s.Equal(guest, updated.CurrentChampion)
	s.Equal(1, updated.CurrentWinningStreak)

	finished, err := s.app.Engine.GetGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Equal(7, finished.Scores[guest])

	player, err := s.app.AuthService.GetPlayer(s.ctx, guest)
	s.Require().NoError(err)
	s.Equal(1, player.Stats[model.StatGamesPlayed])
}

func TestNewWithRedisStorage(t *testing.T) {
	mini := miniredis.RunT(t)
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mini.Addr()

	app, err := New(Config{StorageType: StorageTypeRedis, RedisConfig: &redisCfg, HasherCost: 4})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, app.Close()) })

	ctx := context.Background()
	player, err := app.AuthService.RegisterPlayer(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)

	created, err := app.Engine.CreateRoom(ctx, player.ID, "pw")
	require.NoError(t, err)
	require.NotEqual(t, "pw", created.PasswordHash)

	fetched, err := app.Engine.GetRoomByCode(ctx, created.Code)
	require.NoError(t, err)
	require.Equal(t, created.ID, fetched.ID)
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown storage", Config{StorageType: "postgres"}},
		{"redis without config", Config{StorageType: StorageTypeRedis}},
		{"unknown notifier", Config{NotifierType: "kafka"}},
		{"unreachable nats", Config{NotifierType: "nats", NATSURL: "nats://127.0.0.1:1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
		})
	}
}

func TestNewDefaultsToMemory(t *testing.T) {
	app, err := New(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, app.Close()) })

	_, isMemory := app.Storage.(*memory.Storage)
	require.True(t, isMemory)
	require.Equal(t, room.DefaultConfig().MaxActivePlayersPerRoom, app.Engine.Config().MaxActivePlayersPerRoom)
}
