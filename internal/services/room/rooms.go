package room

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/storage"
)

// CreateRoom creates a room owned and hosted by ownerID, password protected when
// password is non-empty
func (e *Engine) CreateRoom(ctx context.Context, ownerID model.PlayerID, password string) (*model.Room, error) {
	if ownerID == "" {
		return nil, model.ErrMissingPlayerID
	}
	if _, err := e.storage.GetPlayer(ctx, ownerID); err != nil {
		return nil, err
	}

	var passwordHash string
	if password != "" {
		hash, err := e.hasher.Hash(password)
		if err != nil {
			return nil, err
		}
		passwordHash = hash
	}

	// The existence check and the insert are not atomic; a code taken in between
	// surfaces as ErrDuplicateRoomCode and a fresh code is drawn.
	for range e.cfg.RoomCodeAttempts {
		code, err := e.GenerateRoomCode(ctx)
		if err != nil {
			return nil, err
		}

		room := &model.Room{
			Code:            code,
			OwnerPlayerID:   ownerID,
			HostPlayerID:    ownerID,
			PasswordHash:    passwordHash,
			PlayerIDs:       []model.PlayerID{ownerID},
			KickedPlayerIDs: map[model.PlayerID]*time.Time{},
			PreviousGameIDs: []model.GameID{},
			CreatedAt:       e.clock.Now(),
		}
		err = e.storage.CreateRoom(ctx, room)
		if errors.Is(err, model.ErrDuplicateRoomCode) {
			e.logger.Warn("room code collided on insert", slog.String("code", string(code)))
			continue
		}
		if err != nil {
			return nil, err
		}

		e.logger.Info("room created",
			slog.String("room_id", string(room.ID)),
			slog.String("code", string(code)),
			slog.String("owner_id", string(ownerID)))
		return room, nil
	}
	return nil, model.ErrRoomCodeExhausted
}

// GenerateRoomCode draws codes until one is not bound to an existing room
func (e *Engine) GenerateRoomCode(ctx context.Context) (model.RoomCode, error) {
	for range e.cfg.RoomCodeAttempts {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code := model.RoomCode(e.random.String(RoomCodeLength, RoomCodeAlphabet))
		if !validRoomCode(code) {
			continue
		}
		exists, err := e.storage.RoomCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", model.ErrRoomCodeExhausted
}

func validRoomCode(code model.RoomCode) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(RoomCodeAlphabet, c) {
			return false
		}
	}
	return true
}

// GetRoom retrieves a room by id
func (e *Engine) GetRoom(ctx context.Context, roomID model.RoomID) (*model.Room, error) {
	return e.storage.GetRoom(ctx, roomID)
}

// GetRoomByCode retrieves a room by its code
func (e *Engine) GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return e.storage.GetRoomByCode(ctx, code)
}

// ListRooms lists rooms, oldest first
func (e *Engine) ListRooms(ctx context.Context, filter storage.RoomFilter, page storage.Page) ([]*model.Room, error) {
	return e.storage.ListRooms(ctx, filter, page)
}
