package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Documents are cloned on the way in and out so callers never share state with the store.
type Storage struct {
	mu sync.RWMutex

	players    map[model.PlayerID]*model.Player
	emailIndex map[string]model.PlayerID
	rooms      map[model.RoomID]*model.Room
	codeIndex  map[model.RoomCode]model.RoomID
	games      map[model.GameID]*model.Game
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:    make(map[model.PlayerID]*model.Player),
		emailIndex: make(map[string]model.PlayerID),
		rooms:      make(map[model.RoomID]*model.Room),
		codeIndex:  make(map[model.RoomCode]model.RoomID),
		games:      make(map[model.GameID]*model.Game),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if player.ID == "" {
		player.ID = model.PlayerID(storage.NewID())
	}
	if _, exists := s.players[player.ID]; exists {
		return storage.ErrAlreadyExists
	}
	if player.Email != "" {
		if _, taken := s.emailIndex[player.Email]; taken {
			return model.ErrEmailTaken
		}
		s.emailIndex[player.Email] = player.ID
	}
	s.players[player.ID] = player.Clone()
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player.Clone(), nil
}

func (s *Storage) GetPlayers(ctx context.Context, ids []model.PlayerID) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]*model.Player, 0, len(ids))
	for _, id := range ids {
		player, ok := s.players[id]
		if !ok {
			return nil, model.ErrPlayerNotFound
		}
		players = append(players, player.Clone())
	}
	return players, nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, id model.PlayerID, fn storage.PlayerUpdate) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		if errors.Is(err, storage.ErrNoChange) {
			return current.Clone(), nil
		}
		return nil, err
	}
	working.ID = id
	working.Email = current.Email
	s.players[id] = working
	return working.Clone(), nil
}

func (s *Storage) ListPlayers(ctx context.Context, filter storage.PlayerFilter, page storage.Page) ([]*model.Player, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	matched := s.filterPlayers(filter)
	return storage.Paginate(matched, page), nil
}

func (s *Storage) ListPlayersInRoom(ctx context.Context, roomID model.RoomID) ([]*model.Player, error) {
	return s.filterPlayers(storage.PlayerFilter{RoomID: roomID}), nil
}

func (s *Storage) filterPlayers(filter storage.PlayerFilter) []*model.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]*model.Player, 0)
	for _, p := range s.players {
		if storage.MatchPlayer(p, filter) {
			matched = append(matched, p.Clone())
		}
	}
	storage.SortByCreation(matched, storage.PlayerCreatedAt, storage.PlayerKey)
	return matched
}

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.codeIndex[room.Code]; taken {
		return model.ErrDuplicateRoomCode
	}
	if room.ID == "" {
		room.ID = model.RoomID(storage.NewID())
	}
	if _, exists := s.rooms[room.ID]; exists {
		return storage.ErrAlreadyExists
	}
	s.rooms[room.ID] = room.Clone()
	s.codeIndex[room.Code] = room.ID
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *Storage) GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codeIndex[code]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	room, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *Storage) RoomCodeExists(ctx context.Context, code model.RoomCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.codeIndex[code]
	return ok, nil
}

func (s *Storage) UpdateRoom(ctx context.Context, id model.RoomID, fn storage.RoomUpdate) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		if errors.Is(err, storage.ErrNoChange) {
			return current.Clone(), nil
		}
		return nil, err
	}
	working.ID = id
	working.Code = current.Code
	working.OwnerPlayerID = current.OwnerPlayerID
	s.rooms[id] = working
	return working.Clone(), nil
}

func (s *Storage) ListRooms(ctx context.Context, filter storage.RoomFilter, page storage.Page) ([]*model.Room, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	matched := make([]*model.Room, 0)
	for _, r := range s.rooms {
		if storage.MatchRoom(r, filter) {
			matched = append(matched, r.Clone())
		}
	}
	s.mu.RUnlock()
	storage.SortByCreation(matched, storage.RoomCreatedAt, storage.RoomKey)
	return storage.Paginate(matched, page), nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if game.ID == "" {
		game.ID = model.GameID(storage.NewID())
	}
	if _, exists := s.games[game.ID]; exists {
		return storage.ErrAlreadyExists
	}
	s.games[game.ID] = game.Clone()
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return game.Clone(), nil
}

func (s *Storage) UpdateGame(ctx context.Context, id model.GameID, fn storage.GameUpdate) (*model.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		if errors.Is(err, storage.ErrNoChange) {
			return current.Clone(), nil
		}
		return nil, err
	}
	working.ID = id
	working.RoomID = current.RoomID
	s.games[id] = working
	return working.Clone(), nil
}

func (s *Storage) ListGames(ctx context.Context, roomID model.RoomID, page storage.Page) ([]*model.Game, error) {
	if roomID == "" {
		return nil, model.ErrMissingRoomID
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	matched := make([]*model.Game, 0)
	for _, g := range s.games {
		if g.RoomID == roomID {
			matched = append(matched, g.Clone())
		}
	}
	s.mu.RUnlock()
	storage.SortByCreation(matched, storage.GameCreatedAt, storage.GameKey)
	return storage.Paginate(matched, page), nil
}
