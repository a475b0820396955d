package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// fakeConn records frames in place of a live WebSocket connection.
type fakeConn struct {
	mu         sync.Mutex
	frames     [][]byte
	failWrites bool
	closed     bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("write failed")
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	f.frames = append(f.frames, copied)
	return nil
}

func (f *fakeConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return nil
}

func (f *fakeConn) SetPongHandler(h func(appData string) error) {}

func (f *fakeConn) SetReadDeadline(t time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// eventTypes decodes every recorded frame and returns the "type" fields.
func (f *fakeConn) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	types := make([]string, 0, len(f.frames))
	for _, frame := range f.frames {
		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(frame, &envelope); err == nil {
			types = append(types, envelope.Type)
		}
	}
	return types
}

func (f *fakeConn) countEvents(eventType string) int {
	count := 0
	for _, t := range f.eventTypes() {
		if t == eventType {
			count++
		}
	}
	return count
}

// waitForEvent polls until the connection has received at least n events of
// the given type or the deadline passes.
func (f *fakeConn) waitForEvent(eventType string, n int, deadline time.Duration) bool {
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if f.countEvents(eventType) >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return f.countEvents(eventType) >= n
}

// lastEvent decodes the most recent frame into dst.
func (f *fakeConn) lastEvent(dst interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return errors.New("no frames recorded")
	}
	return json.Unmarshal(f.frames[len(f.frames)-1], dst)
}
