package hub

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn is the slice of *websocket.Conn the registry needs. Kept narrow so
// broadcast failure handling is testable without a live socket.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Hub tracks the live realtime connections per channel and fans payloads out
// to them. It is the only shared mutable state in the realtime core; every
// access to the map goes through the mutex.
type Hub struct {
	mutex       sync.Mutex
	connections map[int64][]Conn
	sugar       *zap.SugaredLogger
}

func New(sugar *zap.SugaredLogger) *Hub {
	return &Hub{
		connections: make(map[int64][]Conn),
		sugar:       sugar,
	}
}

func (h *Hub) Register(channelID int64, conn Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.connections[channelID] = append(h.connections[channelID], conn)
	h.sugar.Debugf("Channel ID %d has %d connections", channelID, len(h.connections[channelID]))
}

// Unregister removes conn from the channel's set; removing a connection that
// isn't present is a no-op. Empty channel entries are dropped from the map.
func (h *Hub) Unregister(channelID int64, conn Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.removeLocked(channelID, conn)
}

func (h *Hub) removeLocked(channelID int64, conn Conn) {
	conns := h.connections[channelID]
	for i := range conns {
		if conns[i] == conn {
			conns[i] = conns[len(conns)-1]
			h.connections[channelID] = conns[:len(conns)-1]
			break
		}
	}

	if len(h.connections[channelID]) == 0 {
		delete(h.connections, channelID)
		h.sugar.Debugf("Channel ID %d has no connections left, removing entry", channelID)
	}
}

// Broadcast sends payload to every connection currently registered for the
// channel. Sends are issued concurrently; a failed send drops only that
// connection, which is closed and removed from the registry. Broadcast
// returns once every send attempt has completed.
func (h *Hub) Broadcast(channelID int64, payload []byte) {
	h.mutex.Lock()
	conns := make([]Conn, len(h.connections[channelID]))
	copy(conns, h.connections[channelID])
	h.mutex.Unlock()

	if len(conns) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(conn Conn) {
			defer wg.Done()

			err := conn.WriteMessage(websocket.TextMessage, payload)
			if err == nil {
				return
			}

			h.sugar.Debugf("Dropping connection on channel ID %d after failed send: %v", channelID, err)

			h.mutex.Lock()
			h.removeLocked(channelID, conn)
			h.mutex.Unlock()

			if closeErr := conn.Close(); closeErr != nil {
				h.sugar.Debug(closeErr)
			}
		}(conn)
	}
	wg.Wait()
}

// Count reports how many connections are registered for a channel.
func (h *Hub) Count(channelID int64) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return len(h.connections[channelID])
}

// Shutdown closes every registered connection and clears the registry.
// In-flight broadcasts are not waited for; messages are durable before they
// are ever broadcast.
func (h *Hub) Shutdown() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for channelID, conns := range h.connections {
		for _, conn := range conns {
			if err := conn.Close(); err != nil {
				h.sugar.Debug(err)
			}
		}
		delete(h.connections, channelID)
	}
}

// WSConn wraps a gorilla connection with a write mutex so concurrent
// broadcasts never interleave writes on the same socket.
type WSConn struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

func (c *WSConn) WriteMessage(messageType int, data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.conn.WriteMessage(messageType, data)
}

func (c *WSConn) Close() error {
	return c.conn.Close()
}
