package server

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-codecollab/internal/stats"
	"github.com/npezzotti/go-codecollab/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBufferSize = 256
)

type Client struct {
	id         string
	conn       *websocket.Conn
	hub        *Hub
	log        *log.Logger
	principal  types.Principal
	identity   types.Identity
	identified bool
	identLock  sync.Mutex
	send       chan *ServerMessage
	room       *Room
	roomLock   sync.RWMutex
	closed     atomic.Bool
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewClient(principal types.Principal, conn *websocket.Conn, hub *Hub, l *log.Logger) *Client {
	return &Client{
		conn:      conn,
		hub:       hub,
		log:       l,
		principal: principal,
		send:      make(chan *ServerMessage, sendBufferSize),
		stop:      make(chan struct{}),
	}
}

func (c *Client) Id() string {
	return c.id
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if !c.writeMessage(msg) {
				return
			}
		case <-c.stop:
			c.flush()
			c.sendMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// flush writes whatever is still queued without waiting for more.
func (c *Client) flush() {
	for {
		select {
		case msg := <-c.send:
			if !c.writeMessage(msg) {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) writeMessage(msg *ServerMessage) bool {
	bytes, err := serializeMessage(msg)
	if err != nil {
		c.log.Println("failed to serialize message:", err)
		return true
	}

	return c.sendMessage(websocket.TextMessage, bytes)
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		c.route(raw)
	}
}

// route parses one inbound frame and dispatches it. Invalid frames are
// logged and dropped; the connection stays open.
func (c *Client) route(raw []byte) {
	msg, err := ParseClientMessage(raw)
	if err != nil {
		c.log.Printf("dropping message from %s: %v", c.id, err)
		c.hub.stats.Incr(stats.NumDroppedMessages)
		return
	}
	msg.client = c

	if msg.Join != nil {
		c.joinRoom(msg)
		return
	}

	r := c.currentRoom()
	if r == nil || r.id != msg.DocId {
		c.log.Printf("dropping %q from %s: not joined to %q", msg.Type, c.id, msg.DocId)
		c.hub.stats.Incr(stats.NumDroppedMessages)
		return
	}

	if !r.enqueue(msg) {
		c.log.Printf("inbox full for room %q", r.id)
		c.queueMessage(ErrServiceUnavailable(r.id))
	}
}

func (c *Client) joinRoom(msg *ClientMessage) {
	c.identify(msg.Join.UserId, msg.Join.Name, msg.Join.Color)

	if cur := c.currentRoom(); cur != nil && cur.id != msg.DocId {
		cur.enqueueLeave(c)
		c.unbindIf(cur)
	}

	if _, err := c.hub.routeJoin(msg); err != nil {
		c.log.Printf("join %q: %v", msg.DocId, err)
		c.queueMessage(ErrServiceUnavailable(msg.DocId))
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Printf("failed to send message to %s, channel is full", c.id)
		return false
	}

	return true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	c.hub.remove(c)
	c.stopClient()
}

func (c *Client) isClosed() bool {
	return c.closed.Load()
}

func (c *Client) currentRoom() *Room {
	c.roomLock.RLock()
	defer c.roomLock.RUnlock()
	return c.room
}

func (c *Client) bind(r *Room) {
	c.roomLock.Lock()
	defer c.roomLock.Unlock()
	c.room = r
}

// unbindIf clears the bound room only if it is still r; the client may have
// moved on to another room already.
func (c *Client) unbindIf(r *Room) {
	c.roomLock.Lock()
	defer c.roomLock.Unlock()
	if c.room == r {
		c.room = nil
	}
}
