package storage

import (
	"context"
	"errors"

	"github.com/mcoot/roomhub/internal/model"
)

// ErrNoChange is returned by an update function to skip the write
var ErrNoChange = errors.New("no change")

// ErrAlreadyExists is returned when a create would overwrite an existing document
var ErrAlreadyExists = errors.New("document already exists")

// ErrConflict is returned when an optimistic update keeps losing to concurrent writers
var ErrConflict = errors.New("too many concurrent updates")

// Update functions mutate a working copy of the document.
// They may be invoked more than once when a concurrent writer wins, so they must not
// have side effects beyond the document and state they reset on entry.
type (
	PlayerUpdate func(*model.Player) error
	RoomUpdate   func(*model.Room) error
	GameUpdate   func(*model.Game) error
)

// PlayerFilter narrows player listings
type PlayerFilter struct {
	RoomID     model.RoomID // only players whose CurrentRoomID matches
	ActiveOnly bool
}

// RoomFilter narrows room listings
type RoomFilter struct {
	OwnerPlayerID model.PlayerID
}

// Storage defines the interface for data persistence.
// Single-document updates are atomic; there are no cross-document transactions.
type Storage interface {
	// Player operations
	CreatePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	GetPlayers(ctx context.Context, ids []model.PlayerID) ([]*model.Player, error)
	UpdatePlayer(ctx context.Context, id model.PlayerID, fn PlayerUpdate) (*model.Player, error)
	ListPlayers(ctx context.Context, filter PlayerFilter, page Page) ([]*model.Player, error)
	ListPlayersInRoom(ctx context.Context, roomID model.RoomID) ([]*model.Player, error)

	// Room operations
	CreateRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error)
	GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.Room, error)
	RoomCodeExists(ctx context.Context, code model.RoomCode) (bool, error)
	UpdateRoom(ctx context.Context, id model.RoomID, fn RoomUpdate) (*model.Room, error)
	ListRooms(ctx context.Context, filter RoomFilter, page Page) ([]*model.Room, error)

	// Game operations
	CreateGame(ctx context.Context, game *model.Game) error
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)
	UpdateGame(ctx context.Context, id model.GameID, fn GameUpdate) (*model.Game, error)
	ListGames(ctx context.Context, roomID model.RoomID, page Page) ([]*model.Game, error)
}
