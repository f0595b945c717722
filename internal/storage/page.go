package storage

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/roomhub/internal/model"
)

const (
	// DefaultPageSize is used when a listing does not specify a size
	DefaultPageSize = 20
	// MaxPageSize caps the number of documents returned by a listing
	MaxPageSize = 100
)

// Page selects a window of a listing. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// FirstPage returns the first page with the default size
func FirstPage() Page {
	return Page{Number: 1, Size: DefaultPageSize}
}

// Validate rejects pages outside the supported range
func (p Page) Validate() error {
	if p.Number < 1 || p.Size < 1 || p.Size > MaxPageSize {
		return model.ErrInvalidPage
	}
	return nil
}

// Offset returns the index of the first item on the page
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Paginate returns the window of items selected by the page
func Paginate[T any](items []T, page Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := min(start+page.Size, len(items))
	return items[start:end]
}

// NewID generates an opaque unique identifier for a new document
func NewID() string {
	return uuid.NewString()
}

// SortByCreation orders documents oldest first, breaking ties by id
func SortByCreation[T any](items []T, createdAt func(T) time.Time, id func(T) string) {
	slices.SortStableFunc(items, func(a, b T) int {
		if c := createdAt(a).Compare(createdAt(b)); c != 0 {
			return c
		}
		return cmp.Compare(id(a), id(b))
	})
}

// MatchPlayer reports whether the player passes the filter
func MatchPlayer(p *model.Player, filter PlayerFilter) bool {
	if filter.RoomID != "" && p.CurrentRoomID != filter.RoomID {
		return false
	}
	if filter.ActiveOnly && !p.Active {
		return false
	}
	return true
}

// MatchRoom reports whether the room passes the filter
func MatchRoom(r *model.Room, filter RoomFilter) bool {
	return filter.OwnerPlayerID == "" || r.OwnerPlayerID == filter.OwnerPlayerID
}

// Accessors used with SortByCreation

func PlayerCreatedAt(p *model.Player) time.Time { return p.CreatedAt }
func PlayerKey(p *model.Player) string          { return string(p.ID) }
func RoomCreatedAt(r *model.Room) time.Time     { return r.CreatedAt }
func RoomKey(r *model.Room) string              { return string(r.ID) }
func GameCreatedAt(g *model.Game) time.Time     { return g.CreatedAt }
func GameKey(g *model.Game) string              { return string(g.ID) }
