package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/roomhub/internal/dependencies/clock"
	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/storage"
)

// Errors
var (
	ErrMissingName  = errors.New("player name is required")
	ErrInvalidEmail = errors.New("invalid email address")
)

// BcryptHasher hashes room passwords with bcrypt
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher with the given cost, or bcrypt's default when zero
func NewBcryptHasher(cost int) BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{cost: cost}
}

// Hash returns the bcrypt hash of password
func (h BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches hash
func (h BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Service handles player registration and lookup
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger.With(slog.String("component", "auth")),
	}
}

// RegisterPlayer creates a player. The email is optional but must be unique when given.
func (s *Service) RegisterPlayer(ctx context.Context, name, email string) (*model.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingName
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return nil, ErrInvalidEmail
		}
	}

	player := &model.Player{
		Name:      name,
		Email:     email,
		Stats:     map[string]int{model.StatGamesPlayed: 0},
		CreatedAt: s.clock.Now(),
	}
	if err := s.storage.CreatePlayer(ctx, player); err != nil {
		return nil, err
	}

	s.logger.Info("player registered",
		slog.String("player_id", string(player.ID)),
		slog.Bool("has_email", email != ""))
	return player, nil
}

// GetPlayer retrieves a player by id
func (s *Service) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return s.storage.GetPlayer(ctx, id)
}

// ListPlayers lists players, oldest first
func (s *Service) ListPlayers(ctx context.Context, filter storage.PlayerFilter, page storage.Page) ([]*model.Player, error) {
	return s.storage.ListPlayers(ctx, filter, page)
}
