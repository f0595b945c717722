package testutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tidwall/gjson"
)

// ErrFakeSend is returned by a FakeConn configured to fail sends
var ErrFakeSend = errors.New("fake send failure")

var fakeConnSeq atomic.Int64

// FakeConn records frames sent to it in place of a socket
type FakeConn struct {
	id string

	mu       sync.Mutex
	frames   [][]byte
	pings    int
	closed   bool
	failSend bool
	failPing bool
}

// NewFakeConn creates an open FakeConn with a unique id
func NewFakeConn() *FakeConn {
	return &FakeConn{id: fmt.Sprintf("fake-%d", fakeConnSeq.Add(1))}
}

func (c *FakeConn) ID() string { return c.id }

func (c *FakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return ErrFakeSend
	}
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}

func (c *FakeConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
	if c.failPing {
		return ErrFakeSend
	}
	return nil
}

func (c *FakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Close marks the connection closed
func (c *FakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// FailSends makes subsequent sends return ErrFakeSend
func (c *FakeConn) FailSends(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failSend = fail
}

// FailPings makes subsequent pings return ErrFakeSend
func (c *FakeConn) FailPings(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failPing = fail
}

// Pings returns how many pings were sent
func (c *FakeConn) Pings() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

// Frames returns a copy of every frame received
func (c *FakeConn) Frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

// EventTypes returns the eventType of every frame received, in order
func (c *FakeConn) EventTypes() []string {
	frames := c.Frames()
	types := make([]string, len(frames))
	for i, f := range frames {
		types[i] = gjson.GetBytes(f, "eventType").String()
	}
	return types
}

// Last returns the most recent frame with the given eventType, or nil
func (c *FakeConn) Last(eventType string) []byte {
	frames := c.Frames()
	for i := len(frames) - 1; i >= 0; i-- {
		if gjson.GetBytes(frames[i], "eventType").String() == eventType {
			return frames[i]
		}
	}
	return nil
}

// Count returns how many frames with the given eventType were received
func (c *FakeConn) Count(eventType string) int {
	n := 0
	for _, t := range c.EventTypes() {
		if t == eventType {
			n++
		}
	}
	return n
}

// Reset forgets recorded frames
func (c *FakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

// Decode unmarshals the payload of frame into v
func Decode(frame []byte, v any) error {
	var envelope struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Payload, v)
}
