package server

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/npezzotti/go-codecollab/internal/persistence"
	"github.com/npezzotti/go-codecollab/internal/stats"
	"github.com/npezzotti/go-codecollab/internal/types"
)

const defaultInboxSize = 256

var (
	ErrHubClosed = errors.New("hub is shut down")
	ErrRoomBusy  = errors.New("room inbox is full")
)

// Authorizer reports whether a principal may change a document's content
// and title.
type Authorizer interface {
	MayMutate(ctx context.Context, p types.Principal, docId string) (bool, error)
}

// Hub owns the connection registry and the room directory.
type Hub struct {
	log         *log.Logger
	gw          persistence.Gateway
	authz       Authorizer
	stats       stats.StatsProvider
	clients     map[*Client]struct{}
	clientsLock sync.Mutex
	rooms       map[string]*Room
	roomsLock   sync.Mutex
	roomsWg     sync.WaitGroup
	closed      atomic.Bool
	inboxSize   int
}

func NewHub(logger *log.Logger, gw persistence.Gateway, authz Authorizer, su stats.StatsProvider) (*Hub, error) {
	if gw == nil {
		return nil, errors.New("persistence gateway is required")
	}
	if authz == nil {
		return nil, errors.New("authorizer is required")
	}

	su.RegisterMetric(stats.NumActiveRooms)
	su.RegisterMetric(stats.NumActiveClients)
	su.RegisterMetric(stats.NumBroadcastFailures)
	su.RegisterMetric(stats.NumDroppedMessages)

	return &Hub{
		log:       logger,
		gw:        gw,
		authz:     authz,
		stats:     su,
		clients:   make(map[*Client]struct{}),
		rooms:     make(map[string]*Room),
		inboxSize: defaultInboxSize,
	}, nil
}

func (h *Hub) isClosed() bool {
	return h.closed.Load()
}

// routeJoin resolves or creates the room for msg.DocId and queues the join
// on it. The enqueue happens under roomsLock so a room can never unload
// itself while a join is on the way.
func (h *Hub) routeJoin(msg *ClientMessage) (*Room, error) {
	h.roomsLock.Lock()
	defer h.roomsLock.Unlock()

	if h.isClosed() {
		return nil, ErrHubClosed
	}

	r, ok := h.rooms[msg.DocId]
	if !ok {
		r = newRoom(msg.DocId, h)
		h.rooms[r.id] = r
		h.stats.Incr(stats.NumActiveRooms)
		h.roomsWg.Add(1)
		go r.start()
	}

	select {
	case r.inbox <- msg:
	default:
		return nil, ErrRoomBusy
	}

	msg.client.bind(r)
	return r, nil
}

// unloadRoom removes an empty room from the directory. It refuses while
// requests are still queued for the room.
func (h *Hub) unloadRoom(r *Room) bool {
	h.roomsLock.Lock()
	defer h.roomsLock.Unlock()

	if len(r.inbox) > 0 {
		return false
	}

	if cur, ok := h.rooms[r.id]; ok && cur == r {
		delete(h.rooms, r.id)
		h.stats.Decr(stats.NumActiveRooms)
		h.log.Printf("removed room %q", r.id)
	}

	return true
}

func (h *Hub) getRoom(docId string) (*Room, bool) {
	h.roomsLock.Lock()
	defer h.roomsLock.Unlock()

	r, ok := h.rooms[docId]
	return r, ok
}

// Members returns the identities currently joined to a document's room.
func (h *Hub) Members(docId string) []types.Identity {
	r, ok := h.getRoom(docId)
	if !ok {
		return nil
	}
	return r.Members()
}

func (h *Hub) Stats() (rooms, clients int) {
	h.roomsLock.Lock()
	rooms = len(h.rooms)
	h.roomsLock.Unlock()

	h.clientsLock.Lock()
	clients = len(h.clients)
	h.clientsLock.Unlock()

	return rooms, clients
}

// Shutdown closes every room, notifying its members, and then stops all
// connections. It returns ctx.Err() if rooms do not finish in time.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.roomsLock.Lock()
	if h.isClosed() {
		h.roomsLock.Unlock()
		return nil
	}
	h.closed.Store(true)

	h.log.Println("shutting down rooms")
	for id, r := range h.rooms {
		close(r.exit)
		delete(h.rooms, id)
		h.stats.Decr(stats.NumActiveRooms)
	}
	h.roomsLock.Unlock()

	done := make(chan struct{})
	go func() {
		h.roomsWg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	h.clientsLock.Lock()
	for c := range h.clients {
		c.stopClient()
	}
	h.clientsLock.Unlock()

	return err
}
