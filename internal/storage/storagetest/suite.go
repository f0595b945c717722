// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/storage"
)

// Suite runs the storage contract against the backend returned by NewStorage.
// Backends embed it and set NewStorage in their own SetupTest before calling
// Suite.SetupTest.
type Suite struct {
	suite.Suite
	NewStorage func() storage.Storage

	Storage storage.Storage
	Ctx     context.Context
	base    time.Time
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.Storage = s.NewStorage()
	s.Ctx = context.Background()
	s.base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *Suite) player(id string, offset int) *model.Player {
	return &model.Player{
		ID:        model.PlayerID(id),
		Name:      "name-" + id,
		Email:     id + "@example.com",
		Active:    true,
		Stats:     map[string]int{},
		CreatedAt: s.base.Add(time.Duration(offset) * time.Second),
	}
}

func (s *Suite) room(id, code string, owner model.PlayerID) *model.Room {
	return &model.Room{
		ID:              model.RoomID(id),
		Code:            model.RoomCode(code),
		OwnerPlayerID:   owner,
		HostPlayerID:    owner,
		PlayerIDs:       []model.PlayerID{owner},
		KickedPlayerIDs: map[model.PlayerID]*time.Time{},
		CreatedAt:       s.base,
	}
}

// Player contract

func (s *Suite) TestCreateAndGetPlayer() {
	p := s.player("p1", 0)
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, p))

	got, err := s.Storage.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal("name-p1", got.Name)
	s.Equal("p1@example.com", got.Email)
	s.True(got.Active)
}

func (s *Suite) TestCreatePlayerGeneratesID() {
	p := &model.Player{Name: "anon", CreatedAt: s.base}
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, p))
	s.NotEmpty(p.ID)

	_, err := s.Storage.GetPlayer(s.Ctx, p.ID)
	s.NoError(err)
}

func (s *Suite) TestCreatePlayerRejectsDuplicateEmail() {
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, s.player("p1", 0)))

	dup := s.player("p2", 1)
	dup.Email = "p1@example.com"
	err := s.Storage.CreatePlayer(s.Ctx, dup)
	s.ErrorIs(err, model.ErrEmailTaken)

	_, err = s.Storage.GetPlayer(s.Ctx, "p2")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestCreatePlayerRejectsDuplicateID() {
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, s.player("p1", 0)))

	dup := s.player("p1", 1)
	dup.Email = "other@example.com"
	s.ErrorIs(s.Storage.CreatePlayer(s.Ctx, dup), storage.ErrAlreadyExists)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Storage.GetPlayer(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestGetPlayersFailsWhenAnyMissing() {
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, s.player("p1", 0)))
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, s.player("p2", 1)))

	players, err := s.Storage.GetPlayers(s.Ctx, []model.PlayerID{"p2", "p1"})
	s.Require().NoError(err)
	s.Require().Len(players, 2)
	s.Equal(model.PlayerID("p2"), players[0].ID)
	s.Equal(model.PlayerID("p1"), players[1].ID)

	_, err = s.Storage.GetPlayers(s.Ctx, []model.PlayerID{"p1", "ghost"})
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestUpdatePlayer() {
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, s.player("p1", 0)))

	updated, err := s.Storage.UpdatePlayer(s.Ctx, "p1", func(p *model.Player) error {
		p.Active = false
		p.CurrentRoomID = "r1"
		p.Email = "hijack@example.com"
		return nil
	})
	s.Require().NoError(err)
	s.False(updated.Active)
	s.Equal(model.RoomID("r1"), updated.CurrentRoomID)
	s.Equal("p1@example.com", updated.Email, "email is immutable")

	got, err := s.Storage.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(model.RoomID("r1"), got.CurrentRoomID)
}

func (s *Suite) TestUpdatePlayerNoChange() {
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, s.player("p1", 0)))

	got, err := s.Storage.UpdatePlayer(s.Ctx, "p1", func(p *model.Player) error {
		p.Name = "discarded"
		return storage.ErrNoChange
	})
	s.Require().NoError(err)
	s.Equal("name-p1", got.Name)

	stored, err := s.Storage.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal("name-p1", stored.Name)
}

func (s *Suite) TestUpdatePlayerPropagatesError() {
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, s.player("p1", 0)))

	_, err := s.Storage.UpdatePlayer(s.Ctx, "p1", func(p *model.Player) error {
		return model.ErrNotHost
	})
	s.ErrorIs(err, model.ErrNotHost)
}

func (s *Suite) TestUpdatePlayerNotFound() {
	_, err := s.Storage.UpdatePlayer(s.Ctx, "missing", func(p *model.Player) error { return nil })
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestConcurrentUpdatesAreNotLost() {
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, s.player("p1", 0)))

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Storage.UpdatePlayer(s.Ctx, "p1", func(p *model.Player) error {
				p.IncrementStat(model.StatGamesPlayed)
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	got, err := s.Storage.GetPlayer(s.Ctx, "p1")
	s.Require().NoError(err)
	s.Equal(writers, got.Stats[model.StatGamesPlayed])
}

func (s *Suite) TestListPlayersInRoomFollowsCurrentRoom() {
	for i, id := range []string{"p1", "p2", "p3"} {
		p := s.player(id, i)
		if id != "p3" {
			p.CurrentRoomID = "r1"
		}
		s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, p))
	}

	inRoom, err := s.Storage.ListPlayersInRoom(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"p1", "p2"}, playerIDs(inRoom))

	_, err = s.Storage.UpdatePlayer(s.Ctx, "p1", func(p *model.Player) error {
		p.CurrentRoomID = "r2"
		return nil
	})
	s.Require().NoError(err)
	_, err = s.Storage.UpdatePlayer(s.Ctx, "p3", func(p *model.Player) error {
		p.CurrentRoomID = "r1"
		return nil
	})
	s.Require().NoError(err)

	inRoom, err = s.Storage.ListPlayersInRoom(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"p2", "p3"}, playerIDs(inRoom))

	inOther, err := s.Storage.ListPlayersInRoom(s.Ctx, "r2")
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"p1"}, playerIDs(inOther))
}

func (s *Suite) TestListPlayersPaginatesAndFilters() {
	for i := range 5 {
		p := s.player(fmt.Sprintf("p%d", i), i)
		p.Active = i%2 == 0
		s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, p))
	}

	first, err := s.Storage.ListPlayers(s.Ctx, storage.PlayerFilter{}, storage.Page{Number: 1, Size: 2})
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"p0", "p1"}, playerIDs(first))

	last, err := s.Storage.ListPlayers(s.Ctx, storage.PlayerFilter{}, storage.Page{Number: 3, Size: 2})
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"p4"}, playerIDs(last))

	beyond, err := s.Storage.ListPlayers(s.Ctx, storage.PlayerFilter{}, storage.Page{Number: 9, Size: 2})
	s.Require().NoError(err)
	s.Empty(beyond)

	active, err := s.Storage.ListPlayers(s.Ctx, storage.PlayerFilter{ActiveOnly: true}, storage.FirstPage())
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"p0", "p2", "p4"}, playerIDs(active))
}

func (s *Suite) TestListPlayersRejectsInvalidPage() {
	tests := []storage.Page{
		{Number: 0, Size: 10},
		{Number: 1, Size: 0},
		{Number: 1, Size: storage.MaxPageSize + 1},
	}
	for _, page := range tests {
		_, err := s.Storage.ListPlayers(s.Ctx, storage.PlayerFilter{}, page)
		s.ErrorIs(err, model.ErrInvalidPage, "page %+v", page)
	}
}

// Room contract

func (s *Suite) TestCreateAndGetRoom() {
	r := s.room("r1", "ABC234", "owner")
	s.Require().NoError(s.Storage.CreateRoom(s.Ctx, r))

	got, err := s.Storage.GetRoom(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("ABC234"), got.Code)
	s.Equal(model.PlayerID("owner"), got.HostPlayerID)

	byCode, err := s.Storage.GetRoomByCode(s.Ctx, "ABC234")
	s.Require().NoError(err)
	s.Equal(model.RoomID("r1"), byCode.ID)

	exists, err := s.Storage.RoomCodeExists(s.Ctx, "ABC234")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.Storage.RoomCodeExists(s.Ctx, "ZZZZZZ")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *Suite) TestCreateRoomRejectsDuplicateCode() {
	s.Require().NoError(s.Storage.CreateRoom(s.Ctx, s.room("r1", "ABC234", "owner")))
	err := s.Storage.CreateRoom(s.Ctx, s.room("r2", "ABC234", "owner"))
	s.ErrorIs(err, model.ErrDuplicateRoomCode)
}

func (s *Suite) TestGetRoomNotFound() {
	_, err := s.Storage.GetRoom(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrRoomNotFound)

	_, err = s.Storage.GetRoomByCode(s.Ctx, "NOPE22")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestUpdateRoomKeepsIdentity() {
	s.Require().NoError(s.Storage.CreateRoom(s.Ctx, s.room("r1", "ABC234", "owner")))

	expiry := s.base.Add(time.Minute)
	updated, err := s.Storage.UpdateRoom(s.Ctx, "r1", func(r *model.Room) error {
		r.Code = "XXXXXX"
		r.OwnerPlayerID = "intruder"
		r.HostPlayerID = "p2"
		r.Ban("p3", &expiry)
		return nil
	})
	s.Require().NoError(err)
	s.Equal(model.RoomCode("ABC234"), updated.Code)
	s.Equal(model.PlayerID("owner"), updated.OwnerPlayerID)
	s.Equal(model.PlayerID("p2"), updated.HostPlayerID)

	got, err := s.Storage.GetRoom(s.Ctx, "r1")
	s.Require().NoError(err)
	s.True(got.HasLiveBan("p3", s.base))
	s.False(got.HasLiveBan("p3", expiry.Add(time.Second)))
}

func (s *Suite) TestUpdateRoomCompareAndSet() {
	s.Require().NoError(s.Storage.CreateRoom(s.Ctx, s.room("r1", "ABC234", "owner")))

	casHost := func(expected, next model.PlayerID) error {
		_, err := s.Storage.UpdateRoom(s.Ctx, "r1", func(r *model.Room) error {
			if r.HostPlayerID != expected {
				return model.ErrHostChanged
			}
			r.HostPlayerID = next
			return nil
		})
		return err
	}

	s.Require().NoError(casHost("owner", "p2"))
	s.ErrorIs(casHost("owner", "p3"), model.ErrHostChanged)

	got, err := s.Storage.GetRoom(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p2"), got.HostPlayerID)
}

func (s *Suite) TestListRoomsFiltersByOwner() {
	for i, owner := range []model.PlayerID{"a", "b", "a"} {
		r := s.room(fmt.Sprintf("r%d", i), fmt.Sprintf("CODE%d2", i), owner)
		r.CreatedAt = s.base.Add(time.Duration(i) * time.Second)
		s.Require().NoError(s.Storage.CreateRoom(s.Ctx, r))
	}

	all, err := s.Storage.ListRooms(s.Ctx, storage.RoomFilter{}, storage.FirstPage())
	s.Require().NoError(err)
	s.Len(all, 3)

	owned, err := s.Storage.ListRooms(s.Ctx, storage.RoomFilter{OwnerPlayerID: "a"}, storage.FirstPage())
	s.Require().NoError(err)
	s.Require().Len(owned, 2)
	s.Equal(model.RoomID("r0"), owned[0].ID)
	s.Equal(model.RoomID("r2"), owned[1].ID)
}

// Game contract

func (s *Suite) TestCreateUpdateAndListGames() {
	for i := range 3 {
		g := &model.Game{
			ID:        model.GameID(fmt.Sprintf("g%d", i)),
			RoomID:    "r1",
			Scores:    map[model.PlayerID]int{},
			CreatedAt: s.base.Add(time.Duration(i) * time.Second),
		}
		s.Require().NoError(s.Storage.CreateGame(s.Ctx, g))
	}
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, &model.Game{ID: "other", RoomID: "r2", CreatedAt: s.base}))

	updated, err := s.Storage.UpdateGame(s.Ctx, "g1", func(g *model.Game) error {
		g.RoomID = "r2"
		g.AddParticipant("p1")
		return nil
	})
	s.Require().NoError(err)
	s.Equal(model.RoomID("r1"), updated.RoomID)
	s.True(updated.HasParticipant("p1"))

	games, err := s.Storage.ListGames(s.Ctx, "r1", storage.FirstPage())
	s.Require().NoError(err)
	s.Require().Len(games, 3)
	s.Equal(model.GameID("g0"), games[0].ID)
	s.Equal(model.GameID("g2"), games[2].ID)

	_, err = s.Storage.ListGames(s.Ctx, "", storage.FirstPage())
	s.ErrorIs(err, model.ErrMissingRoomID)
}

func (s *Suite) TestGetGameNotFound() {
	_, err := s.Storage.GetGame(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)

	_, err = s.Storage.UpdateGame(s.Ctx, "missing", func(g *model.Game) error { return nil })
	s.ErrorIs(err, model.ErrGameNotFound)
}

func playerIDs(players []*model.Player) []model.PlayerID {
	ids := make([]model.PlayerID, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}
