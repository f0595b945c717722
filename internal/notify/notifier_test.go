package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/roomhub/internal/dependencies/mocks"
	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/testutil"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, published{subject, data})
	return nil
}

func decodeMessage(t *testing.T, p published) Message {
	t.Helper()
	var msg Message
	require.NoError(t, json.Unmarshal(p.data, &msg))
	return msg
}

func TestNATSNotifierPublishesOnSubjects(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	publisher := &fakePublisher{}
	n := NewNATSNotifierWithPublisher(publisher, "roomhub", mocks.NewMockClock(now), testutil.NopLogger())
	ctx := context.Background()

	require.NoError(t, n.RoomCreated(ctx, &model.Room{ID: "r1", Code: "ABCDEF", OwnerPlayerID: "alice"}))
	require.NoError(t, n.PlayerRegistered(ctx, &model.Player{ID: "bob"}))
	require.NoError(t, n.BanResolved(ctx, "r1", "bob"))

	require.Len(t, publisher.messages, 3)

	tests := []struct {
		subject string
		want    Message
	}{
		{"roomhub.room_created", Message{Kind: KindRoomCreated, RoomID: "r1", RoomCode: "ABCDEF", PlayerID: "alice", OccurredAt: now}},
		{"roomhub.player_registered", Message{Kind: KindPlayerRegistered, PlayerID: "bob", OccurredAt: now}},
		{"roomhub.ban_resolved", Message{Kind: KindBanResolved, RoomID: "r1", PlayerID: "bob", OccurredAt: now}},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.subject, publisher.messages[i].subject)
		assert.Equal(t, tt.want, decodeMessage(t, publisher.messages[i]))
	}
}

func TestNATSNotifierReportsPublishFailure(t *testing.T) {
	boom := errors.New("nats down")
	publisher := &fakePublisher{err: boom}
	n := NewNATSNotifierWithPublisher(publisher, "roomhub", mocks.NewMockClock(time.Now()), testutil.NopLogger())

	err := n.PlayerRegistered(context.Background(), &model.Player{ID: "bob"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "roomhub.player_registered")
}

func TestNATSNotifierHonoursCancelledContext(t *testing.T) {
	publisher := &fakePublisher{}
	n := NewNATSNotifierWithPublisher(publisher, "roomhub", mocks.NewMockClock(time.Now()), testutil.NopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, n.BanResolved(ctx, "r1", "bob"), context.Canceled)
	assert.Empty(t, publisher.messages)
	assert.NoError(t, n.Close())
}

func TestNewNATSNotifierFailsWithoutServer(t *testing.T) {
	_, err := NewNATSNotifier("nats://127.0.0.1:1", "roomhub", mocks.NewMockClock(time.Now()), testutil.NopLogger())
	assert.Error(t, err)
}

func TestLogNotifierWritesStructuredLines(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	n := NewLogNotifier(logger)

	require.NoError(t, n.RoomCreated(context.Background(), &model.Room{ID: "r1", Code: "ABCDEF", OwnerPlayerID: "alice"}))

	line := logs.Last(t)
	assert.Equal(t, "room created", line["msg"])
	assert.Equal(t, "notify", line["component"])
	assert.Equal(t, "ABCDEF", line["code"])
	assert.NoError(t, n.Close())
}
