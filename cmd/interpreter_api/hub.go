package main

import (
	"sync"
	"time"

	"github.com/NotCoffee418/tp4000zc_logger/pkg/interpreter"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/monitor"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// Time allowed to write one message to a client
	writeWait = 10 * time.Second
	// Readings queued per client before it is considered stuck
	sendQueueSize = 32
)

// wsClient owns the only writer of its connection. Broadcasts are queued so a
// slow client never holds up the meter reader.
type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newWsClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

// enqueue reports false when the client's queue is full.
func (c *wsClient) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *wsClient) writePump(onError func()) {
	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debugf("Websocket write failed: %v", err)
				onError()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// ws clients for broadcasting live readings
type clientHub struct {
	clients      map[*websocket.Conn]*wsClient
	clientsMutex sync.RWMutex
}

func newClientHub() *clientHub {
	return &clientHub{clients: make(map[*websocket.Conn]*wsClient)}
}

// Broadcast never blocks: clients whose queue is full are dropped.
func (h *clientHub) Broadcast(reading *interpreter.Reading) {
	data := reading.ToJsonBytes()
	if data == nil {
		return
	}

	h.clientsMutex.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.clientsMutex.RUnlock()

	for _, client := range clients {
		if !client.enqueue(data) {
			log.Warn("Dropping websocket client that stopped reading")
			h.Remove(client.conn)
		}
	}
}

func (h *clientHub) Add(conn *websocket.Conn) *wsClient {
	client := newWsClient(conn)
	h.clientsMutex.Lock()
	h.clients[conn] = client
	monitor.WebSocketClients.Set(float64(len(h.clients)))
	h.clientsMutex.Unlock()

	go client.writePump(func() { h.Remove(conn) })
	return client
}

func (h *clientHub) Remove(conn *websocket.Conn) {
	h.clientsMutex.Lock()
	client, ok := h.clients[conn]
	delete(h.clients, conn)
	monitor.WebSocketClients.Set(float64(len(h.clients)))
	h.clientsMutex.Unlock()

	if ok {
		client.close()
	} else {
		conn.Close()
	}
}

func (h *clientHub) Count() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}
