package control

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/coverdrift/coverdrift/internal/stats"
)

// wsClient wraps one upgraded connection with a buffered outbound queue,
// grounded directly on the teacher's ws.client/writePump pair.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newWSClient(conn *websocket.Conn) *wsClient {
	c := &wsClient{conn: conn, send: make(chan []byte, 16)}
	go c.writePump()
	return c
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *wsClient) close() { close(c.send) }

// Broadcaster periodically pushes a stats.Snapshot to every connected
// dashboard client, throttled the way the teacher's ws.Broadcaster
// coalesces updates via snapshotLoop/flush.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*wsClient]bool

	snapshotFn func() stats.Snapshot
	interval   time.Duration
	ticker     *time.Ticker
	log        *logrus.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewBroadcaster builds a Broadcaster that calls snapshotFn every interval
// and fans the result out to connected clients.
func NewBroadcaster(snapshotFn func() stats.Snapshot, interval time.Duration, log *logrus.Logger) *Broadcaster {
	b := &Broadcaster{
		clients:    make(map[*wsClient]bool),
		snapshotFn: snapshotFn,
		interval:   interval,
		ticker:     time.NewTicker(interval),
		log:        log,
		stopCh:     make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broadcaster) loop() {
	for {
		select {
		case <-b.stopCh:
			return
		case <-b.ticker.C:
			b.broadcast(b.snapshotFn())
		}
	}
}

// Stop halts the broadcast ticker.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		b.ticker.Stop()
		close(b.stopCh)
	})
}

// AddClient registers conn for future broadcasts and immediately sends it
// one snapshot so it doesn't wait out the first tick.
func (b *Broadcaster) AddClient(conn *websocket.Conn) *wsClient {
	c := newWSClient(conn)
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()
	b.sendTo(c, b.snapshotFn())
	return c
}

// RemoveClient unregisters and closes c.
func (b *Broadcaster) RemoveClient(c *wsClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
}

func (b *Broadcaster) broadcast(snap stats.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		b.log.WithError(err).Warn("broadcast marshal error")
		return
	}

	b.mu.RLock()
	clients := make([]*wsClient, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			b.log.Warn("ws client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

func (b *Broadcaster) sendTo(c *wsClient, snap stats.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
