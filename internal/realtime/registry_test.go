package realtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/testutil"
)

func TestRegistryAddMovesPlayerBetweenScopes(t *testing.T) {
	r := NewRegistry()
	conn := testutil.NewFakeConn()

	r.Add(NoRoom, "p1", conn)
	got, ok := r.Get(NoRoom, "p1")
	require.True(t, ok)
	assert.Same(t, conn, got)

	r.Add(RoomScope("room-1"), "p1", conn)
	_, ok = r.Get(NoRoom, "p1")
	assert.False(t, ok, "no-room entry should be replaced")
	_, ok = r.Get(RoomScope("room-1"), "p1")
	assert.True(t, ok)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, r.ScopeCount(), "empty no-room bucket should be deleted")

	r.Add(RoomScope("room-2"), "p1", conn)
	assert.Empty(t, r.List(RoomScope("room-1")))
	entry, ok := r.Lookup("p1")
	require.True(t, ok)
	assert.Equal(t, RoomScope("room-2"), entry.Scope)
	assert.Equal(t, model.RoomID("room-2"), entry.Scope.RoomID())
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	conn := testutil.NewFakeConn()
	r.Add(RoomScope("room-1"), "p1", conn)

	_, ok := r.Remove(RoomScope("room-2"), "p1")
	assert.False(t, ok)

	removed, ok := r.Remove(RoomScope("room-1"), "p1")
	require.True(t, ok)
	assert.Same(t, conn, removed)
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.ScopeCount())

	_, ok = r.Lookup("p1")
	assert.False(t, ok)
}

func TestRegistryRemoveIfKeepsNewerConnection(t *testing.T) {
	r := NewRegistry()
	stale := testutil.NewFakeConn()
	fresh := testutil.NewFakeConn()

	r.Add(RoomScope("room-1"), "p1", stale)
	r.Add(RoomScope("room-1"), "p1", fresh)

	assert.False(t, r.RemoveIf(RoomScope("room-1"), "p1", stale))
	got, ok := r.Get(RoomScope("room-1"), "p1")
	require.True(t, ok)
	assert.Same(t, fresh, got)

	assert.True(t, r.RemoveIf(RoomScope("room-1"), "p1", fresh))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryMove(t *testing.T) {
	r := NewRegistry()
	conn := testutil.NewFakeConn()
	r.Add(RoomScope("room-1"), "p1", conn)

	moved, ok := r.Move(RoomScope("room-1"), NoRoom, "p1")
	require.True(t, ok)
	assert.Same(t, conn, moved)
	entry, ok := r.Lookup("p1")
	require.True(t, ok)
	assert.Equal(t, NoRoom, entry.Scope)
	assert.Equal(t, 1, r.ScopeCount())

	// The player has since joined another room; a late move out of room-1 is ignored
	r.Add(RoomScope("room-2"), "p1", conn)
	_, ok = r.Move(RoomScope("room-1"), NoRoom, "p1")
	assert.False(t, ok)
	entry, _ = r.Lookup("p1")
	assert.Equal(t, RoomScope("room-2"), entry.Scope)

	_, ok = r.Move(RoomScope("room-2"), RoomScope("room-2"), "p1")
	assert.True(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryMoveRacingAdd(t *testing.T) {
	for range 100 {
		r := NewRegistry()
		conn := testutil.NewFakeConn()
		r.Add(RoomScope("room-1"), "p1", conn)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Move(RoomScope("room-1"), NoRoom, "p1")
		}()
		go func() {
			defer wg.Done()
			r.Add(RoomScope("room-2"), "p1", conn)
		}()
		wg.Wait()

		// Whatever the order, the join to room-2 is never undone
		entry, ok := r.Lookup("p1")
		require.True(t, ok)
		require.Equal(t, RoomScope("room-2"), entry.Scope)
		require.Equal(t, 1, r.Len())
	}
}

func TestRegistryListIsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Add(RoomScope("room-1"), "p1", testutil.NewFakeConn())

	snapshot := r.List(RoomScope("room-1"))
	r.Add(RoomScope("room-1"), "p2", testutil.NewFakeConn())

	assert.Len(t, snapshot, 1)
	assert.Len(t, r.List(RoomScope("room-1")), 2)
	assert.NotNil(t, r.List(RoomScope("unknown")))
}

func TestRegistryEntriesFor(t *testing.T) {
	r := NewRegistry()
	shared := testutil.NewFakeConn()
	other := testutil.NewFakeConn()
	r.Add(RoomScope("room-1"), "p1", shared)
	r.Add(NoRoom, "p2", shared)
	r.Add(RoomScope("room-1"), "p3", other)

	entries := r.EntriesFor(shared)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.Same(t, shared, e.Conn)
	}
}

func TestRegistryConcurrentMoves(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := testutil.NewFakeConn()
			id := model.PlayerID(fmt.Sprintf("p%d", i%10))
			r.Add(NoRoom, id, conn)
			r.Add(RoomScope(model.RoomID(fmt.Sprintf("room-%d", i%3))), id, conn)
			_ = r.List(RoomScope("room-0"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, r.Len(), "each player has exactly one binding")
	total := 0
	for _, scope := range []Scope{NoRoom, "room-0", "room-1", "room-2"} {
		total += len(r.List(scope))
	}
	assert.Equal(t, 10, total)
}

func TestRoomScope(t *testing.T) {
	assert.Equal(t, NoRoom, RoomScope(""))
	assert.Equal(t, model.RoomID(""), NoRoom.RoomID())
	assert.Equal(t, model.RoomID("r"), RoomScope("r").RoomID())
}
