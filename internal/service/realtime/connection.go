package realtime

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/safeping/relay/backend/internal/model/presence"
)

// ConnectionOptions tunes per-connection buffering and keepalive.
type ConnectionOptions struct {
	SendBuffer   int           // outbound queue depth per connection
	WriteTimeout time.Duration // deadline for a single frame write
	PongWait     time.Duration // read deadline, extended on every pong
	PingInterval time.Duration // must be shorter than PongWait
}

// DefaultConnectionOptions returns the keepalive settings used in production.
func DefaultConnectionOptions() ConnectionOptions {
	return ConnectionOptions{
		SendBuffer:   32,
		WriteTimeout: 10 * time.Second,
		PongWait:     60 * time.Second,
		PingInterval: 54 * time.Second,
	}
}

type client struct {
	id        string
	conn      *websocket.Conn
	send      chan presence.Message
	done      chan struct{}
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// ConnectionManager owns every live socket. Each connection gets a handle and
// a single writer goroutine; all outbound frames go through its queue.
type ConnectionManager struct {
	mu      sync.RWMutex
	clients map[string]*client
	opts    ConnectionOptions
}

// NewConnectionManager creates an empty manager.
func NewConnectionManager(opts ConnectionOptions) *ConnectionManager {
	defaults := DefaultConnectionOptions()
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaults.SendBuffer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaults.WriteTimeout
	}
	if opts.PongWait <= 0 {
		opts.PongWait = defaults.PongWait
	}
	if opts.PingInterval <= 0 || opts.PingInterval >= opts.PongWait {
		opts.PingInterval = opts.PongWait * 9 / 10
	}
	return &ConnectionManager{
		clients: make(map[string]*client),
		opts:    opts,
	}
}

// Options returns the effective options.
func (cm *ConnectionManager) Options() ConnectionOptions {
	return cm.opts
}

// Add takes ownership of conn and returns its handle.
func (cm *ConnectionManager) Add(conn *websocket.Conn) string {
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan presence.Message, cm.opts.SendBuffer),
		done: make(chan struct{}),
	}

	conn.SetReadDeadline(time.Now().Add(cm.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cm.opts.PongWait))
	})

	cm.mu.Lock()
	cm.clients[c.id] = c
	total := len(cm.clients)
	cm.mu.Unlock()

	go cm.writePump(c)

	log.Printf("[websocket] connection %s opened (total=%d)", c.id, total)
	return c.id
}

// Remove closes and forgets the connection. Unknown handles are ignored.
func (cm *ConnectionManager) Remove(id string) {
	cm.mu.Lock()
	c, ok := cm.clients[id]
	if ok {
		delete(cm.clients, id)
	}
	total := len(cm.clients)
	cm.mu.Unlock()

	if !ok {
		return
	}
	c.close()
	log.Printf("[websocket] connection %s closed (total=%d)", id, total)
}

// Send queues msg for one connection. Unknown handles and full queues drop
// the message.
func (cm *ConnectionManager) Send(id string, msg presence.Message) {
	cm.mu.RLock()
	c, ok := cm.clients[id]
	cm.mu.RUnlock()

	if !ok {
		log.Printf("[websocket] drop %s: connection %s is gone", msg.Event, id)
		return
	}
	cm.enqueue(c, msg)
}

// Broadcast queues msg for every live connection.
func (cm *ConnectionManager) Broadcast(msg presence.Message) {
	cm.mu.RLock()
	targets := make([]*client, 0, len(cm.clients))
	for _, c := range cm.clients {
		targets = append(targets, c)
	}
	cm.mu.RUnlock()

	for _, c := range targets {
		cm.enqueue(c, msg)
	}
}

// Len returns the number of live connections.
func (cm *ConnectionManager) Len() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// CloseAll closes every connection.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	clients := cm.clients
	cm.clients = make(map[string]*client)
	cm.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (cm *ConnectionManager) enqueue(c *client, msg presence.Message) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- msg:
	default:
		log.Printf("[websocket] drop %s: connection %s send buffer full", msg.Event, c.id)
	}
}

func (cm *ConnectionManager) writePump(c *client) {
	ticker := time.NewTicker(cm.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(cm.opts.WriteTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("[websocket] write %s to %s failed: %v", msg.Event, c.id, err)
				cm.Remove(c.id)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(cm.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cm.Remove(c.id)
				return
			}
		}
	}
}
