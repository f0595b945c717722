package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Documents are JSON blobs; updates run as WATCH/MULTI optimistic transactions.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = DefaultConfig().MaxTxRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	if player.ID == "" {
		player.ID = model.PlayerID(storage.NewID())
	}

	if player.Email != "" {
		ok, err := s.client.SetNX(ctx, emailIndexKey(player.Email), string(player.ID), 0).Result()
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrEmailTaken
		}
	}

	err := s.create(ctx, playerKey(player.ID), player, func(pipe redis.Pipeliner) {
		pipe.ZAdd(ctx, playersIndexKey(), redis.Z{Score: score(player.CreatedAt.UnixMilli()), Member: string(player.ID)})
		if player.CurrentRoomID != "" {
			pipe.SAdd(ctx, roomPlayersIndexKey(player.CurrentRoomID), string(player.ID))
		}
	})
	if err != nil && player.Email != "" {
		s.client.Del(ctx, emailIndexKey(player.Email))
	}
	return err
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return getDoc[model.Player](ctx, s.client, playerKey(id), model.ErrPlayerNotFound)
}

func (s *Storage) GetPlayers(ctx context.Context, ids []model.PlayerID) ([]*model.Player, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = playerKey(id)
	}
	return getDocs[model.Player](ctx, s.client, keys, model.ErrPlayerNotFound)
}

func (s *Storage) UpdatePlayer(ctx context.Context, id model.PlayerID, fn storage.PlayerUpdate) (*model.Player, error) {
	return updateDoc(ctx, s, playerKey(id), model.ErrPlayerNotFound, fn,
		func(before, after *model.Player) {
			after.ID = before.ID
			after.Email = before.Email
		},
		func(pipe redis.Pipeliner, before, after *model.Player) {
			if before.CurrentRoomID == after.CurrentRoomID {
				return
			}
			if before.CurrentRoomID != "" {
				pipe.SRem(ctx, roomPlayersIndexKey(before.CurrentRoomID), string(id))
			}
			if after.CurrentRoomID != "" {
				pipe.SAdd(ctx, roomPlayersIndexKey(after.CurrentRoomID), string(id))
			}
		},
	)
}

func (s *Storage) ListPlayers(ctx context.Context, filter storage.PlayerFilter, page storage.Page) ([]*model.Player, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}

	var ids []string
	var err error
	if filter.RoomID != "" {
		ids, err = s.client.SMembers(ctx, roomPlayersIndexKey(filter.RoomID)).Result()
	} else {
		ids, err = s.client.ZRange(ctx, playersIndexKey(), 0, -1).Result()
	}
	if err != nil {
		return nil, err
	}

	players, err := s.loadPlayers(ctx, ids)
	if err != nil {
		return nil, err
	}

	matched := make([]*model.Player, 0, len(players))
	for _, p := range players {
		if storage.MatchPlayer(p, filter) {
			matched = append(matched, p)
		}
	}
	storage.SortByCreation(matched, storage.PlayerCreatedAt, storage.PlayerKey)
	return storage.Paginate(matched, page), nil
}

func (s *Storage) ListPlayersInRoom(ctx context.Context, roomID model.RoomID) ([]*model.Player, error) {
	ids, err := s.client.SMembers(ctx, roomPlayersIndexKey(roomID)).Result()
	if err != nil {
		return nil, err
	}
	players, err := s.loadPlayers(ctx, ids)
	if err != nil {
		return nil, err
	}
	matched := make([]*model.Player, 0, len(players))
	for _, p := range players {
		if p.CurrentRoomID == roomID {
			matched = append(matched, p)
		}
	}
	storage.SortByCreation(matched, storage.PlayerCreatedAt, storage.PlayerKey)
	return matched, nil
}

func (s *Storage) loadPlayers(ctx context.Context, ids []string) ([]*model.Player, error) {
	if len(ids) == 0 {
		return []*model.Player{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = playerKey(model.PlayerID(id))
	}
	return getDocs[model.Player](ctx, s.client, keys, model.ErrPlayerNotFound)
}

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	if room.ID == "" {
		room.ID = model.RoomID(storage.NewID())
	}

	// The code index is the uniqueness guard; losing the SETNX means another room holds the code.
	ok, err := s.client.SetNX(ctx, roomCodeIndexKey(room.Code), string(room.ID), 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrDuplicateRoomCode
	}

	err = s.create(ctx, roomKey(room.ID), room, func(pipe redis.Pipeliner) {
		pipe.ZAdd(ctx, roomsIndexKey(), redis.Z{Score: score(room.CreatedAt.UnixMilli()), Member: string(room.ID)})
	})
	if err != nil {
		s.client.Del(ctx, roomCodeIndexKey(room.Code))
	}
	return err
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	return getDoc[model.Room](ctx, s.client, roomKey(id), model.ErrRoomNotFound)
}

func (s *Storage) GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	id, err := s.client.Get(ctx, roomCodeIndexKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}
	return s.GetRoom(ctx, model.RoomID(id))
}

func (s *Storage) RoomCodeExists(ctx context.Context, code model.RoomCode) (bool, error) {
	exists, err := s.client.Exists(ctx, roomCodeIndexKey(code)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (s *Storage) UpdateRoom(ctx context.Context, id model.RoomID, fn storage.RoomUpdate) (*model.Room, error) {
	return updateDoc(ctx, s, roomKey(id), model.ErrRoomNotFound, fn,
		func(before, after *model.Room) {
			after.ID = before.ID
			after.Code = before.Code
			after.OwnerPlayerID = before.OwnerPlayerID
		},
		nil,
	)
}

func (s *Storage) ListRooms(ctx context.Context, filter storage.RoomFilter, page storage.Page) ([]*model.Room, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	ids, err := s.client.ZRange(ctx, roomsIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Room{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = roomKey(model.RoomID(id))
	}
	rooms, err := getDocs[model.Room](ctx, s.client, keys, model.ErrRoomNotFound)
	if err != nil {
		return nil, err
	}

	matched := make([]*model.Room, 0, len(rooms))
	for _, r := range rooms {
		if storage.MatchRoom(r, filter) {
			matched = append(matched, r)
		}
	}
	storage.SortByCreation(matched, storage.RoomCreatedAt, storage.RoomKey)
	return storage.Paginate(matched, page), nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	if game.ID == "" {
		game.ID = model.GameID(storage.NewID())
	}
	return s.create(ctx, gameKey(game.ID), game, func(pipe redis.Pipeliner) {
		pipe.ZAdd(ctx, roomGamesIndexKey(game.RoomID), redis.Z{Score: score(game.CreatedAt.UnixMilli()), Member: string(game.ID)})
	})
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	return getDoc[model.Game](ctx, s.client, gameKey(id), model.ErrGameNotFound)
}

func (s *Storage) UpdateGame(ctx context.Context, id model.GameID, fn storage.GameUpdate) (*model.Game, error) {
	return updateDoc(ctx, s, gameKey(id), model.ErrGameNotFound, fn,
		func(before, after *model.Game) {
			after.ID = before.ID
			after.RoomID = before.RoomID
		},
		nil,
	)
}

func (s *Storage) ListGames(ctx context.Context, roomID model.RoomID, page storage.Page) ([]*model.Game, error) {
	if roomID == "" {
		return nil, model.ErrMissingRoomID
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	ids, err := s.client.ZRange(ctx, roomGamesIndexKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Game{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKey(model.GameID(id))
	}
	games, err := getDocs[model.Game](ctx, s.client, keys, model.ErrGameNotFound)
	if err != nil {
		return nil, err
	}
	storage.SortByCreation(games, storage.GameCreatedAt, storage.GameKey)
	return storage.Paginate(games, page), nil
}

// create writes a new document and its index entries, refusing to overwrite
func (s *Storage) create(ctx context.Context, key string, doc any, index func(pipe redis.Pipeliner)) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrAlreadyExists
	}

	if index == nil {
		return nil
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		index(pipe)
		return nil
	})
	return err
}

func getDoc[T any](ctx context.Context, client redis.Cmdable, key string, notFound error) (*T, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound
		}
		return nil, err
	}

	var doc T
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// getDocs loads documents in key order and fails if any is missing
func getDocs[T any](ctx context.Context, client redis.Cmdable, keys []string, notFound error) ([]*T, error) {
	if len(keys) == 0 {
		return []*T{}, nil
	}
	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	docs := make([]*T, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s", notFound, keys[i])
		}
		var doc T
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

// updateDoc applies fn to a document under WATCH, retrying when a concurrent write
// invalidates the transaction. finalize restores immutable fields; index adds
// secondary index changes to the same MULTI block.
func updateDoc[T any](
	ctx context.Context,
	s *Storage,
	key string,
	notFound error,
	fn func(*T) error,
	finalize func(before, after *T),
	index func(pipe redis.Pipeliner, before, after *T),
) (*T, error) {
	var result *T

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return notFound
			}
			return err
		}

		var before, after T
		if err := json.Unmarshal(data, &before); err != nil {
			return err
		}
		if err := json.Unmarshal(data, &after); err != nil {
			return err
		}

		if err := fn(&after); err != nil {
			if errors.Is(err, storage.ErrNoChange) {
				result = &before
				return nil
			}
			return err
		}
		if finalize != nil {
			finalize(&before, &after)
		}

		out, err := json.Marshal(&after)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			if index != nil {
				index(pipe, &before, &after)
			}
			return nil
		})
		if err != nil {
			return err
		}
		result = &after
		return nil
	}

	for range s.cfg.MaxTxRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, storage.ErrConflict
}

func score(ms int64) float64 {
	return float64(ms)
}
