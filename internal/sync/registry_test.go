package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordConn records pushes delivered to one connection.
type recordConn struct {
	mu   gosync.Mutex
	got  []Envelope
	fail bool
}

func (c *recordConn) Send(_ context.Context, v any) error {
	if c.fail {
		return errors.New("broken pipe")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, v.(Envelope))
	return nil
}

func (c *recordConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func TestRegistry_BroadcastReachesAllDevices(t *testing.T) {
	r := NewRegistry()
	a, b := &recordConn{}, &recordConn{}
	other := &recordConn{}

	r.Register("alice", "conn-a", a)
	r.Register("alice", "conn-b", b)
	r.Register("bob", "conn-c", other)

	n := r.Broadcast(context.Background(), "alice", "file:uploaded", map[string]string{"fileId": "f1"})

	assert.Equal(t, 2, n)
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
	assert.Zero(t, other.count(), "events never leak to another user's devices")
}

func TestRegistry_BroadcastNoDevices(t *testing.T) {
	r := NewRegistry()

	n := r.Broadcast(context.Background(), "nobody", "file:synced", nil)
	assert.Zero(t, n)
}

func TestRegistry_UnregisterRemovesEmptyUserEntry(t *testing.T) {
	r := NewRegistry()
	r.Register("alice", "conn-a", &recordConn{})

	assert.Equal(t, 1, r.Devices("alice"))
	assert.Equal(t, 1, r.Total())

	r.Unregister("alice", "conn-a")

	assert.Zero(t, r.Devices("alice"))
	assert.Zero(t, r.Total())

	r.mu.Lock()
	_, exists := r.users["alice"]
	r.mu.Unlock()
	assert.False(t, exists, "emptied user entry must be removed")
}

func TestRegistry_UnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Unregister("ghost", "conn-x")
	assert.Zero(t, r.Total())
}

func TestRegistry_SendFailureDoesNotStopFanout(t *testing.T) {
	r := NewRegistry()
	broken := &recordConn{fail: true}
	ok := &recordConn{}
	r.Register("alice", "conn-a", broken)
	r.Register("alice", "conn-b", ok)

	n := r.Broadcast(context.Background(), "alice", "file:uploaded", nil)

	assert.Equal(t, 2, n)
	assert.Equal(t, 1, ok.count())
}

func TestRegistry_ConcurrentRegisterBroadcast(t *testing.T) {
	r := NewRegistry()
	var wg gosync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		connID := string(rune('a' + i%26))
		go func() {
			defer wg.Done()
			r.Register("alice", connID, &recordConn{})
		}()
		go func() {
			defer wg.Done()
			r.Broadcast(context.Background(), "alice", "file:uploaded", nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, 26, r.Devices("alice"))
}
