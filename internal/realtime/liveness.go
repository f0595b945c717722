package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/roomhub/internal/dependencies/clock"
)

// DefaultPingInterval is used when the monitor is given no interval
const DefaultPingInterval = 30 * time.Second

// Monitor keeps connections alive with periodic pings and runs delayed checks
// scheduled after a disconnect.
type Monitor struct {
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	pings  map[Conn]clock.Timer
	tasks  map[string]clock.Timer
	closed bool
}

// NewMonitor creates a new Monitor
func NewMonitor(clk clock.Clock, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultPingInterval
	}
	return &Monitor{
		clock:    clk,
		interval: interval,
		logger:   logger.With(slog.String("component", "liveness")),
		pings:    make(map[Conn]clock.Timer),
		tasks:    make(map[string]clock.Timer),
	}
}

// Start begins pinging conn every interval until Stop is called.
// Starting an already monitored connection restarts its schedule.
func (m *Monitor) Start(conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if t, ok := m.pings[conn]; ok {
		t.Stop()
	}
	m.armLocked(conn)
}

func (m *Monitor) armLocked(conn Conn) {
	var timer clock.Timer
	timer = m.clock.AfterFunc(m.interval, func() {
		m.mu.Lock()
		if m.closed || m.pings[conn] != timer {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		if err := conn.Ping(); err != nil {
			m.logger.Warn("ping failed",
				slog.String("conn_id", conn.ID()),
				slog.Any("error", err))
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed || m.pings[conn] != timer {
			return
		}
		m.armLocked(conn)
	})
	m.pings[conn] = timer
}

// Stop cancels pings for conn
func (m *Monitor) Stop(conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.pings[conn]; ok {
		t.Stop()
		delete(m.pings, conn)
	}
}

// Schedule runs fn once after delay, replacing any pending task with the same key
func (m *Monitor) Schedule(key string, delay time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if t, ok := m.tasks[key]; ok {
		t.Stop()
	}

	var timer clock.Timer
	timer = m.clock.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.closed || m.tasks[key] != timer {
			m.mu.Unlock()
			return
		}
		delete(m.tasks, key)
		m.mu.Unlock()
		fn()
	})
	m.tasks[key] = timer
}

// Cancel drops a pending task and reports whether one was pending
func (m *Monitor) Cancel(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(m.tasks, key)
	return true
}

// Close cancels every ping and pending task; later Start and Schedule calls are ignored
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for conn, t := range m.pings {
		t.Stop()
		delete(m.pings, conn)
	}
	for key, t := range m.tasks {
		t.Stop()
		delete(m.tasks, key)
	}
}

// Monitored returns the number of connections being pinged
func (m *Monitor) Monitored() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pings)
}

// Pending returns the number of scheduled tasks
func (m *Monitor) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
