package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/roomhub/internal/dependencies/mocks"
	"github.com/mcoot/roomhub/internal/testutil"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMonitorPingsPeriodically(t *testing.T) {
	clk := mocks.NewMockClock(epoch)
	m := NewMonitor(clk, 10*time.Second, testutil.NopLogger())
	conn := testutil.NewFakeConn()

	m.Start(conn)
	clk.Advance(9 * time.Second)
	assert.Equal(t, 0, conn.Pings())

	clk.Advance(time.Second)
	assert.Equal(t, 1, conn.Pings())

	clk.Advance(25 * time.Second)
	assert.Equal(t, 3, conn.Pings())
}

func TestMonitorPingFailureDoesNotStop(t *testing.T) {
	clk := mocks.NewMockClock(epoch)
	m := NewMonitor(clk, time.Second, testutil.NopLogger())
	conn := testutil.NewFakeConn()
	conn.FailPings(true)

	m.Start(conn)
	clk.Advance(3 * time.Second)
	assert.Equal(t, 3, conn.Pings())
	assert.Equal(t, 1, m.Monitored())
	assert.True(t, conn.IsOpen())
}

func TestMonitorStopCancelsTimer(t *testing.T) {
	clk := mocks.NewMockClock(epoch)
	m := NewMonitor(clk, time.Second, testutil.NopLogger())
	conn := testutil.NewFakeConn()

	m.Start(conn)
	m.Stop(conn)
	clk.Advance(5 * time.Second)

	assert.Equal(t, 0, conn.Pings())
	assert.Equal(t, 0, m.Monitored())
	assert.Equal(t, 0, clk.PendingTimers())
}

func TestMonitorRestartDoesNotDoublePing(t *testing.T) {
	clk := mocks.NewMockClock(epoch)
	m := NewMonitor(clk, time.Second, testutil.NopLogger())
	conn := testutil.NewFakeConn()

	m.Start(conn)
	m.Start(conn)
	clk.Advance(time.Second)
	assert.Equal(t, 1, conn.Pings())
}

func TestMonitorScheduleReplacesPendingTask(t *testing.T) {
	clk := mocks.NewMockClock(epoch)
	m := NewMonitor(clk, time.Minute, testutil.NopLogger())

	var fired []string
	m.Schedule("room:p1", 5*time.Second, func() { fired = append(fired, "first") })
	m.Schedule("room:p1", 5*time.Second, func() { fired = append(fired, "second") })
	assert.Equal(t, 1, m.Pending())

	clk.Advance(5 * time.Second)
	assert.Equal(t, []string{"second"}, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestMonitorCancelAndClose(t *testing.T) {
	clk := mocks.NewMockClock(epoch)
	m := NewMonitor(clk, time.Second, testutil.NopLogger())
	conn := testutil.NewFakeConn()

	fired := false
	m.Schedule("a", time.Second, func() { fired = true })
	assert.True(t, m.Cancel("a"))
	assert.False(t, m.Cancel("a"))

	m.Start(conn)
	m.Schedule("b", time.Second, func() { fired = true })
	m.Close()
	m.Schedule("c", time.Second, func() { fired = true })
	m.Start(conn)

	clk.Advance(time.Minute)
	assert.False(t, fired)
	assert.Equal(t, 0, conn.Pings())
	assert.Equal(t, 0, clk.PendingTimers())
}
