package hub

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeConn records written payloads and can be told to fail.
type fakeConn struct {
	mutex    sync.Mutex
	payloads [][]byte
	failWith error
	closed   bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.failWith != nil {
		return c.failWith
	}
	c.payloads = append(c.payloads, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.closed = true
	return nil
}

func (c *fakeConn) received() [][]byte {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	out := make([][]byte, len(c.payloads))
	copy(out, c.payloads)
	return out
}

func (c *fakeConn) wasClosed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.closed
}

func newTestHub() *Hub {
	return New(zap.NewNop().Sugar())
}

func TestBroadcastReachesEveryConnectionOnce(t *testing.T) {
	h := newTestHub()

	a := &fakeConn{}
	b := &fakeConn{}
	h.Register(7, a)
	h.Register(7, b)

	h.Broadcast(7, []byte("hi"))

	require.Len(t, a.received(), 1)
	require.Len(t, b.received(), 1)
	assert.Equal(t, "hi", string(a.received()[0]))
	assert.Equal(t, "hi", string(b.received()[0]))
}

func TestBroadcastDoesNotCrossChannels(t *testing.T) {
	h := newTestHub()

	a := &fakeConn{}
	b := &fakeConn{}
	h.Register(1, a)
	h.Register(2, b)

	h.Broadcast(1, []byte("only channel 1"))

	assert.Len(t, a.received(), 1)
	assert.Empty(t, b.received())
}

func TestBroadcastToEmptyChannelIsNoop(t *testing.T) {
	h := newTestHub()

	// must not panic or block
	h.Broadcast(99, []byte("nobody home"))
	assert.Equal(t, 0, h.Count(99))
}

func TestUnregisterRemovesEmptyChannelEntry(t *testing.T) {
	h := newTestHub()

	a := &fakeConn{}
	h.Register(5, a)
	require.Equal(t, 1, h.Count(5))

	h.Unregister(5, a)
	assert.Equal(t, 0, h.Count(5))

	h.Broadcast(5, []byte("gone"))
	assert.Empty(t, a.received())
}

func TestUnregisterUnknownConnectionIsNoop(t *testing.T) {
	h := newTestHub()

	a := &fakeConn{}
	h.Register(5, a)
	h.Unregister(5, &fakeConn{})
	h.Unregister(6, a)

	assert.Equal(t, 1, h.Count(5))
}

func TestFailedSendDropsOnlyThatConnection(t *testing.T) {
	h := newTestHub()

	broken := &fakeConn{failWith: errors.New("peer went away")}
	healthy := &fakeConn{}
	h.Register(3, broken)
	h.Register(3, healthy)

	h.Broadcast(3, []byte("one"))

	assert.Len(t, healthy.received(), 1)
	assert.True(t, broken.wasClosed())
	assert.Equal(t, 1, h.Count(3))

	// the broken connection is gone; subsequent broadcasts still deliver
	h.Broadcast(3, []byte("two"))
	assert.Len(t, healthy.received(), 2)
}

func TestConcurrentBroadcastsDeliverEachPayloadOnce(t *testing.T) {
	h := newTestHub()

	a := &fakeConn{}
	b := &fakeConn{}
	h.Register(9, a)
	h.Register(9, b)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Broadcast(9, []byte("m"))
		}()
	}
	wg.Wait()

	assert.Len(t, a.received(), 10)
	assert.Len(t, b.received(), 10)
}

func TestRegistrationsDuringBroadcastDoNotRace(t *testing.T) {
	h := newTestHub()

	a := &fakeConn{}
	h.Register(4, a)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := &fakeConn{}
			h.Register(4, c)
			h.Unregister(4, c)
		}()
		go func() {
			defer wg.Done()
			h.Broadcast(4, []byte("x"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.Count(4))
}

func TestShutdownClosesAndClears(t *testing.T) {
	h := newTestHub()

	a := &fakeConn{}
	b := &fakeConn{}
	h.Register(1, a)
	h.Register(2, b)

	h.Shutdown()

	assert.True(t, a.wasClosed())
	assert.True(t, b.wasClosed())
	assert.Equal(t, 0, h.Count(1))
	assert.Equal(t, 0, h.Count(2))
}

func TestEventEnvelope(t *testing.T) {
	payload, err := Event(MessageCreated, map[string]string{"content": "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"MessageCreated","data":{"content":"hi"}}`, string(payload))
}
