package server

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
)

// wsConn is one open editor connection.
type wsConn struct {
	ID   string
	conn *websocket.Conn
	// busy is set while a run submitted on this connection is in flight.
	busy atomic.Bool
	mu   sync.Mutex // serializes writes
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// ConnManager tracks open WebSocket connections so they can be closed on
// shutdown.
type ConnManager struct {
	conns *xsync.MapOf[string, *wsConn]
}

// NewConnManager creates a new ConnManager.
func NewConnManager() *ConnManager {
	return &ConnManager{
		conns: xsync.NewMapOf[string, *wsConn](),
	}
}

// Add registers a connection under id.
func (cm *ConnManager) Add(id string, conn *websocket.Conn) *wsConn {
	c := &wsConn{ID: id, conn: conn}
	cm.conns.Store(id, c)
	return c
}

// Remove forgets a connection. It does not close it.
func (cm *ConnManager) Remove(id string) {
	cm.conns.Delete(id)
}

// Len is the number of open connections.
func (cm *ConnManager) Len() int {
	return cm.conns.Size()
}

// CloseAll sends a going-away frame to every connection and closes it.
func (cm *ConnManager) CloseAll() {
	cm.conns.Range(func(id string, c *wsConn) bool {
		if c.conn != nil {
			c.mu.Lock()
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			c.mu.Unlock()
			c.conn.Close()
		}
		cm.conns.Delete(id)
		return true
	})
}
